package analysis

import (
	"math"
	"sort"

	dspcore "github.com/cwbudde/algo-dsp/dsp/core"
)

// resampleAndSmooth is Pass 3: linear-interpolation resample from hop
// rate to video-frame rate, bidirectional EMA smoothing, per-series
// normalization against the Pass 1 peaks, and beat-field derivation
// from the onset list and estimated tempo.
func resampleAndSmooth(hops []FrameFeatures, global GlobalAnalysis, sampleRate int, fps float64, durationSeconds float64, smoothing float64) []SmoothedFrame {
	numFrames := int(math.Round(durationSeconds * fps))
	if numFrames < 0 {
		numFrames = 0
	}
	frames := make([]SmoothedFrame, numFrames)
	if numFrames == 0 {
		return frames
	}

	hopSeconds := float64(HopSize) / float64(sampleRate)

	// Resample each of the 10 scalar series to frame rate.
	rms := resampleSeries(hops, numFrames, fps, hopSeconds, func(f FrameFeatures) float64 { return f.RMS })
	centroid := resampleSeries(hops, numFrames, fps, hopSeconds, func(f FrameFeatures) float64 { return f.SpectralCentroid })
	flux := resampleSeries(hops, numFrames, fps, hopSeconds, func(f FrameFeatures) float64 { return f.SpectralFlux })
	bands := make([][]float64, NumBands)
	for b := 0; b < NumBands; b++ {
		bb := b
		bands[b] = resampleSeries(hops, numFrames, fps, hopSeconds, func(f FrameFeatures) float64 { return f.Bands[bb] })
	}

	smoothBidirectional(rms, smoothing)
	smoothBidirectional(centroid, smoothing)
	smoothBidirectional(flux, smoothing)
	for b := range bands {
		smoothBidirectional(bands[b], smoothing)
	}

	normalize(rms, global.PeakRMS)
	normalize(flux, global.PeakFlux)
	normalize(centroid, global.PeakCentroid)
	for b := range bands {
		normalize(bands[b], global.BandPeaks[b])
	}

	period := 0.0
	if global.TempoBPM != nil && *global.TempoBPM > 0 {
		period = 60.0 / *global.TempoBPM
	}

	for i := 0; i < numFrames; i++ {
		t := float64(i) / fps
		frames[i] = SmoothedFrame{
			Time:             t,
			FrameIndex:       uint32(i),
			RMS:              rms[i],
			SpectralCentroid: centroid[i],
			SpectralFlux:     flux[i],
		}
		for b := 0; b < NumBands; b++ {
			frames[i].Bands[b] = bands[b][i]
		}
		intensity, phase, isBeat := beatFields(t, 1.0/fps, global.OnsetTimes, period)
		frames[i].BeatIntensity = intensity
		frames[i].BeatPhase = phase
		frames[i].IsBeat = isBeat
	}
	return frames
}

func resampleSeries(hops []FrameFeatures, numFrames int, fps, hopSeconds float64, pick func(FrameFeatures) float64) []float64 {
	out := make([]float64, numFrames)
	n := len(hops)
	if n == 0 {
		return out
	}
	if n == 1 {
		v := pick(hops[0])
		for i := range out {
			out[i] = v
		}
		return out
	}
	lastHopTime := float64(n-1) * hopSeconds
	for i := 0; i < numFrames; i++ {
		t := float64(i) / fps
		if t <= 0 {
			out[i] = pick(hops[0])
			continue
		}
		if t >= lastHopTime {
			out[i] = pick(hops[n-1])
			continue
		}
		pos := t / hopSeconds
		lo := int(math.Floor(pos))
		hi := lo + 1
		if hi >= n {
			hi = n - 1
		}
		frac := pos - float64(lo)
		a := pick(hops[lo])
		b := pick(hops[hi])
		out[i] = a + (b-a)*frac
	}
	return out
}

// smoothBidirectional applies a causal EMA forward, then a second EMA
// backward over the forward result, cancelling group delay while
// keeping each pass a simple one-pole filter.
func smoothBidirectional(xs []float64, lambda float64) {
	n := len(xs)
	if n == 0 {
		return
	}
	fwd := make([]float64, n)
	fwd[0] = xs[0]
	for i := 1; i < n; i++ {
		fwd[i] = dspcore.FlushDenormals(lambda*fwd[i-1] + (1-lambda)*xs[i])
	}
	bwd := make([]float64, n)
	bwd[n-1] = fwd[n-1]
	for i := n - 2; i >= 0; i-- {
		bwd[i] = dspcore.FlushDenormals(lambda*bwd[i+1] + (1-lambda)*fwd[i])
	}
	copy(xs, bwd)
}

func normalize(xs []float64, peak float64) {
	if peak <= 0 {
		for i := range xs {
			xs[i] = 0
		}
		return
	}
	for i, v := range xs {
		xs[i] = clamp01(v / peak)
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// beatFields derives beat_intensity, beat_phase and is_beat for a frame
// spanning [t, t+frameDur) from the global onset list and the
// tempo-implied beat period.
func beatFields(t, frameDur float64, onsets []float64, period float64) (intensity, phase float64, isBeat bool) {
	if len(onsets) == 0 {
		return 0, 0, false
	}

	idx := sort.SearchFloat64s(onsets, t)
	var prevOnset float64
	havePrev := false
	if idx > 0 {
		prevOnset = onsets[idx-1]
		havePrev = true
	} else if idx < len(onsets) && onsets[idx] <= t {
		prevOnset = onsets[idx]
		havePrev = true
	}

	var nextOnset float64
	haveNext := false
	if idx < len(onsets) && onsets[idx] > t {
		nextOnset = onsets[idx]
		haveNext = true
	} else if idx+1 < len(onsets) {
		nextOnset = onsets[idx+1]
		haveNext = true
	}

	if !havePrev {
		if haveNext && period > 0 {
			prevOnset = nextOnset - period
			havePrev = true
		} else {
			return 0, 0, onsetInFrame(onsets[0], t, frameDur)
		}
	}

	intensity = math.Exp(-(t - prevOnset) / beatDecayTau)

	span := period
	if haveNext {
		span = nextOnset - prevOnset
	}
	if span <= 0 {
		phase = 0
	} else {
		phase = clamp01((t - prevOnset) / span)
	}

	for _, o := range onsets {
		if onsetInFrame(o, t, frameDur) {
			isBeat = true
			break
		}
	}
	return intensity, phase, isBeat
}

func onsetInFrame(onset, t, frameDur float64) bool {
	return onset >= t && onset < t+frameDur
}
