package analysis

import (
	"math"

	algofft "github.com/cwbudde/algo-fft"
)

// hannWindow returns a length-n Hann window, following the same
// closed-form used by the teacher's spectral-compare tool.
func hannWindow(n int) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return w
}

// fftPlan is the subset of algofft's real-FFT plan that spectrum needs.
type fftPlan interface {
	Forward(dst []complex128, src []float64)
}

// spectrum wraps a real-input FFT plan and scratch buffers for one
// analysis window size, reused across hops to avoid per-hop allocation.
type spectrum struct {
	plan   fftPlan
	window []float64
	scaled []float64
	freq   []complex128
	mags   []float64
}

func newSpectrum(size int) (*spectrum, error) {
	plan, err := algofft.NewPlanReal64(size)
	if err != nil {
		return nil, err
	}
	return &spectrum{
		plan:   plan,
		window: hannWindow(size),
		scaled: make([]float64, size),
		freq:   make([]complex128, size/2+1),
		mags:   make([]float64, size/2+1),
	}, nil
}

// magnitudes windows src (length == len(s.window)) with the Hann
// window, runs the forward real FFT, and returns the magnitude
// spectrum. The returned slice is owned by the caller (a fresh copy),
// since hops are processed concurrently and each needs its own copy.
func (s *spectrum) magnitudes(src []float64) []float64 {
	for i, v := range src {
		s.scaled[i] = v * s.window[i]
	}
	s.plan.Forward(s.freq, s.scaled)
	out := make([]float64, len(s.freq))
	for i, c := range s.freq {
		out[i] = math.Hypot(real(c), imag(c))
	}
	return out
}
