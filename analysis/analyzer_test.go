package analysis

import (
	"math"
	"testing"
)

func sineWave(freq float64, sampleRate, numSamples int, amplitude float32) []float32 {
	out := make([]float32, numSamples)
	for i := range out {
		out[i] = amplitude * float32(math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)))
	}
	return out
}

func TestAnalyzeSilenceProducesZeroFrames(t *testing.T) {
	sampleRate := 44100
	pcm := make([]float32, sampleRate*2) // 2s of silence

	res, err := Analyze(pcm, sampleRate, 30, 0.85)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(res.Frames) == 0 {
		t.Fatal("expected non-empty frame stream")
	}
	for i, f := range res.Frames {
		if f.RMS != 0 || f.SpectralFlux != 0 || f.BeatIntensity != 0 || f.IsBeat {
			t.Fatalf("frame %d: expected all-zero features for silence, got %+v", i, f)
		}
		for b, v := range f.Bands {
			if v != 0 {
				t.Fatalf("frame %d band %d: expected 0, got %v", i, b, v)
			}
		}
	}
}

func TestAnalyzeSineMidBandExceedsSubBass(t *testing.T) {
	sampleRate := 44100
	freq := 440.0
	pcm := sineWave(freq, sampleRate, sampleRate*2, 0.8)

	res, err := Analyze(pcm, sampleRate, 30, 0.85)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	mid := res.Frames[len(res.Frames)/2]
	if mid.Bands[3] <= mid.Bands[0] {
		t.Errorf("expected mid band to dominate sub_bass band for a 440Hz tone: mid=%v sub_bass=%v",
			mid.Bands[3], mid.Bands[0])
	}
}

func TestAnalyzeIsDeterministic(t *testing.T) {
	sampleRate := 44100
	pcm := sineWave(220, sampleRate, sampleRate, 0.5)

	r1, err := Analyze(pcm, sampleRate, 24, 0.8)
	if err != nil {
		t.Fatalf("Analyze run 1: %v", err)
	}
	r2, err := Analyze(pcm, sampleRate, 24, 0.8)
	if err != nil {
		t.Fatalf("Analyze run 2: %v", err)
	}
	if len(r1.Frames) != len(r2.Frames) {
		t.Fatalf("frame count mismatch: %d vs %d", len(r1.Frames), len(r2.Frames))
	}
	for i := range r1.Frames {
		if r1.Frames[i] != r2.Frames[i] {
			t.Fatalf("frame %d differs between runs: %+v vs %+v", i, r1.Frames[i], r2.Frames[i])
		}
	}
}

func TestSmoothBidirectionalPreservesConstantSeries(t *testing.T) {
	xs := make([]float64, 50)
	for i := range xs {
		xs[i] = 3.0
	}
	smoothBidirectional(xs, 0.9)
	for i, v := range xs {
		if math.Abs(v-3.0) > 1e-9 {
			t.Fatalf("index %d: expected constant series to be invariant under EMA, got %v", i, v)
		}
	}
}

func TestSmoothBidirectionalIsZeroPhase(t *testing.T) {
	n := 200
	xs := make([]float64, n)
	for i := range xs {
		if i == n/2 {
			xs[i] = 1
		}
	}
	smoothBidirectional(xs, 0.8)

	peakIdx := 0
	peakVal := -1.0
	for i, v := range xs {
		if v > peakVal {
			peakVal = v
			peakIdx = i
		}
	}
	if peakIdx != n/2 {
		t.Errorf("expected symmetric smoothing to preserve the impulse location, got peak at %d want %d", peakIdx, n/2)
	}
}

func TestHopCount(t *testing.T) {
	cases := []struct {
		samples int
		want    int
	}{
		{0, 0},
		{1, 1},
		{WindowSize, 1},
		{WindowSize + HopSize, 2},
		{WindowSize + HopSize*3, 4},
	}
	for _, c := range cases {
		if got := hopCount(c.samples); got != c.want {
			t.Errorf("hopCount(%d) = %d, want %d", c.samples, got, c.want)
		}
	}
}
