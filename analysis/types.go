// Package analysis implements Sonica's Component B: the three-pass
// offline audio analyzer that turns a mono PCM stream into a
// deterministic, per-video-frame feature stream.
package analysis

const (
	// HopSize is the stride, in samples, between successive analysis windows.
	HopSize = 1024
	// WindowSize is the length, in samples, of each analysis window.
	WindowSize = 2048
	// WaveformPoints is the fixed decimated length of FrameFeatures.Waveform.
	WaveformPoints = 512
	// NumBands is the number of frequency bands aggregated per hop.
	NumBands = 7
	// NumFFTBins is the number of magnitude bins WindowSize/2+1 produces.
	NumFFTBins = WindowSize/2 + 1

	medianWindowHops  = 20  // M, ~half-second windows either side of a hop
	onsetThresholdMul = 1.6 // alpha
	onsetCoalesceSecs = 0.15
	beatDecayTau      = 0.15 // seconds
	minTempoBPM       = 60.0
	maxTempoBPM       = 200.0
	tempoEnergyFrac   = 0.3
)

// Band describes one of the 7 fixed frequency bands.
type Band struct {
	Name string
	LoHz float64
	HiHz float64
}

// Bands is the fixed, ordered set of frequency bands from spec §3.
var Bands = [NumBands]Band{
	{"sub_bass", 20, 60},
	{"bass", 60, 250},
	{"low_mid", 250, 500},
	{"mid", 500, 2000},
	{"upper_mid", 2000, 4000},
	{"presence", 4000, 6000},
	{"brilliance", 6000, 20000},
}

// FrameFeatures is one analysis-hop record (Pass 2 output).
type FrameFeatures struct {
	RMS              float64
	SpectralCentroid float64
	SpectralFlux     float64
	Bands            [NumBands]float64
	Waveform         [WaveformPoints]float32
	PeakAmplitude    float64

	// magnitudes caches the full W/2+1 magnitude spectrum for the flux
	// reduction and for templates that bind the raw FFT storage buffer.
	magnitudes []float64
}

// Magnitudes returns the hop's full W/2+1 magnitude spectrum, the same
// slice a template's FFT storage buffer binding is filled from.
func (f FrameFeatures) Magnitudes() []float64 {
	out := make([]float64, len(f.magnitudes))
	copy(out, f.magnitudes)
	return out
}

// GlobalAnalysis is the single, stream-wide statistics record (Pass 1 output).
type GlobalAnalysis struct {
	PeakRMS       float64
	PeakAmplitude float64
	PeakFlux      float64
	PeakCentroid  float64
	BandPeaks     [NumBands]float64
	OnsetTimes    []float64 // seconds, ascending
	TempoBPM      *float64  // nil means "no confident estimate"
}

// SmoothedFrame is one per-video-frame record (Pass 3 output).
type SmoothedFrame struct {
	Time             float64
	FrameIndex       uint32
	Bands            [NumBands]float64
	RMS              float64
	SpectralCentroid float64
	SpectralFlux     float64
	BeatIntensity    float64
	BeatPhase        float64
	IsBeat           bool
}

// FrameUniforms is the fixed 64-byte, 16-float GPU-visible uniform
// record. Field order is part of the external shader contract (spec §3/§6)
// and must not change.
type FrameUniforms struct {
	ResX             float32
	ResY             float32
	Time             float32
	FrameAsF32       float32
	FPS              float32
	Duration         float32
	RMS              float32
	SpectralCentroid float32
	SpectralFlux     float32
	BeatIntensity    float32
	BeatPhase        float32
	IsBeat           float32
	Bass             float32
	Mid              float32
	High             float32
	_pad             float32
}

// ToUniforms projects a SmoothedFrame onto the fixed-layout GPU record.
// Bass/mid/high are representative single bands (indices 1, 3, 5 of the
// 7-band array) rather than the full band set, which templates instead
// read from the FFT storage buffer.
func (f SmoothedFrame) ToUniforms(resX, resY, fps, duration float32) FrameUniforms {
	isBeat := float32(0)
	if f.IsBeat {
		isBeat = 1
	}
	return FrameUniforms{
		ResX:             resX,
		ResY:             resY,
		Time:             float32(f.Time),
		FrameAsF32:       float32(f.FrameIndex),
		FPS:              fps,
		Duration:         duration,
		RMS:              float32(f.RMS),
		SpectralCentroid: float32(f.SpectralCentroid),
		SpectralFlux:     float32(f.SpectralFlux),
		BeatIntensity:    float32(f.BeatIntensity),
		BeatPhase:        float32(f.BeatPhase),
		IsBeat:           isBeat,
		Bass:             float32(f.Bands[1]),
		Mid:              float32(f.Bands[3]),
		High:             float32(f.Bands[5]),
	}
}

// Result is the complete output of Analyze.
type Result struct {
	Global  GlobalAnalysis
	Frames  []SmoothedFrame
	Hops    []FrameFeatures // Pass 2 output, exposed for templates binding raw FFT/waveform per-hop
	FPS     float64
	SampleRate int
}

// FFTMagnitudesForFrame returns the magnitude spectrum of the Pass-2
// hop nearest in time to Frames[frameIndex], for binding into a
// template's FFT storage buffer at its original W/2+1 length.
func (r Result) FFTMagnitudesForFrame(frameIndex int) []float64 {
	if len(r.Hops) == 0 || frameIndex < 0 || frameIndex >= len(r.Frames) {
		return nil
	}
	hopSeconds := float64(HopSize) / float64(r.SampleRate)
	t := r.Frames[frameIndex].Time
	hop := int(t/hopSeconds + 0.5)
	if hop < 0 {
		hop = 0
	}
	if hop >= len(r.Hops) {
		hop = len(r.Hops) - 1
	}
	return r.Hops[hop].Magnitudes()
}

// WaveformForFrame returns the decimated waveform of the Pass-2 hop
// nearest in time to Frames[frameIndex], for binding into a template's
// waveform storage buffer.
func (r Result) WaveformForFrame(frameIndex int) []float32 {
	if len(r.Hops) == 0 || frameIndex < 0 || frameIndex >= len(r.Frames) {
		return nil
	}
	hopSeconds := float64(HopSize) / float64(r.SampleRate)
	t := r.Frames[frameIndex].Time
	hop := int(t/hopSeconds + 0.5)
	if hop < 0 {
		hop = 0
	}
	if hop >= len(r.Hops) {
		hop = len(r.Hops) - 1
	}
	out := make([]float32, WaveformPoints)
	copy(out, r.Hops[hop].Waveform[:])
	return out
}
