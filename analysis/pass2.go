package analysis

import (
	"math"
	"runtime"
	"sync"
)

// computeHopFeatures is Pass 2: per-hop FFT, RMS, spectral centroid,
// band aggregation and waveform decimation, computed across a disjoint
// index range per worker. Spectral flux is a serial reduction over the
// resulting magnitude spectra, since each hop's flux depends on its
// predecessor.
func computeHopFeatures(pcm []float32, sampleRate int) ([]FrameFeatures, error) {
	numHops := hopCount(len(pcm))
	hops := make([]FrameFeatures, numHops)
	if numHops == 0 {
		return hops, nil
	}

	binHz := float64(sampleRate) / float64(WindowSize)

	workers := runtime.NumCPU()
	if workers > numHops {
		workers = numHops
	}
	if workers < 1 {
		workers = 1
	}

	var wg sync.WaitGroup
	errs := make([]error, workers)
	chunk := (numHops + workers - 1) / workers

	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if hi > numHops {
			hi = numHops
		}
		if lo >= hi {
			continue
		}
		wg.Add(1)
		go func(w, lo, hi int) {
			defer wg.Done()
			spec, err := newSpectrum(WindowSize)
			if err != nil {
				errs[w] = err
				return
			}
			window := make([]float64, WindowSize)
			for hop := lo; hi > hop; hop++ {
				fillWindow(window, pcm, hop*HopSize)
				computeHopAt(&hops[hop], spec, window, sampleRate, binHz)
			}
		}(w, lo, hi)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	// Flux is a half-wave-rectified L2 distance against the previous
	// hop's magnitude spectrum, reduced serially.
	for i := 1; i < numHops; i++ {
		hops[i].SpectralFlux = spectralFlux(hops[i-1].magnitudes, hops[i].magnitudes)
	}
	return hops, nil
}

func hopCount(numSamples int) int {
	if numSamples < WindowSize {
		if numSamples == 0 {
			return 0
		}
		return 1
	}
	return (numSamples-WindowSize)/HopSize + 1
}

// fillWindow copies WindowSize samples starting at offset into dst,
// zero-padding any tail past the end of pcm.
func fillWindow(dst []float64, pcm []float32, offset int) {
	for i := range dst {
		idx := offset + i
		if idx < len(pcm) {
			dst[i] = float64(pcm[idx])
		} else {
			dst[i] = 0
		}
	}
}

func computeHopAt(f *FrameFeatures, spec *spectrum, window []float64, sampleRate int, binHz float64) {
	var sumSq, peak float64
	for _, v := range window {
		sumSq += v * v
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	f.RMS = math.Sqrt(sumSq / float64(len(window)))
	f.PeakAmplitude = peak

	mags := spec.magnitudes(window)
	f.magnitudes = mags
	f.SpectralCentroid = spectralCentroid(mags, binHz)
	computeBandMeans(&f.Bands, mags, binHz)
	decimateWaveform(&f.Waveform, window)
}

func spectralCentroid(mags []float64, binHz float64) float64 {
	var num, den float64
	for k, m := range mags {
		num += float64(k) * binHz * m
		den += m
	}
	if den == 0 {
		return 0
	}
	return num / den
}

func computeBandMeans(out *[NumBands]float64, mags []float64, binHz float64) {
	for b, band := range Bands {
		loK := int(math.Ceil(band.LoHz / binHz))
		hiK := int(math.Floor(band.HiHz / binHz))
		if loK < 0 {
			loK = 0
		}
		if hiK >= len(mags) {
			hiK = len(mags) - 1
		}
		if hiK < loK {
			out[b] = 0
			continue
		}
		var sum float64
		for k := loK; k <= hiK; k++ {
			sum += mags[k]
		}
		out[b] = sum / float64(hiK-loK+1)
	}
}

func decimateWaveform(out *[WaveformPoints]float32, window []float64) {
	bucket := len(window) / WaveformPoints
	if bucket < 1 {
		bucket = 1
	}
	for i := 0; i < WaveformPoints; i++ {
		start := i * bucket
		end := start + bucket
		if start >= len(window) {
			out[i] = 0
			continue
		}
		if end > len(window) {
			end = len(window)
		}
		var sum float64
		for j := start; j < end; j++ {
			sum += window[j]
		}
		out[i] = float32(sum / float64(end-start))
	}
}

func spectralFlux(prev, cur []float64) float64 {
	if prev == nil || cur == nil {
		return 0
	}
	var sumSq float64
	for k := range cur {
		d := cur[k] - prev[k]
		if d > 0 {
			sumSq += d * d
		}
	}
	return math.Sqrt(sumSq)
}
