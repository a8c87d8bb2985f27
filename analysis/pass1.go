package analysis

import "math"

// computeGlobalStats is Pass 1: stream-wide peaks, adaptive-threshold
// onset detection over the flux series, and autocorrelation-based tempo
// estimation. It consumes the Pass 2 hop array rather than re-deriving
// flux from raw PCM, since flux is itself a hop-to-hop quantity.
func computeGlobalStats(pcm []float32, sampleRate int, hops []FrameFeatures) GlobalAnalysis {
	var g GlobalAnalysis

	for _, v := range pcm {
		if a := math.Abs(float64(v)); a > g.PeakAmplitude {
			g.PeakAmplitude = a
		}
	}
	for _, h := range hops {
		if h.RMS > g.PeakRMS {
			g.PeakRMS = h.RMS
		}
		if h.SpectralFlux > g.PeakFlux {
			g.PeakFlux = h.SpectralFlux
		}
		if h.SpectralCentroid > g.PeakCentroid {
			g.PeakCentroid = h.SpectralCentroid
		}
		for b := range h.Bands {
			if h.Bands[b] > g.BandPeaks[b] {
				g.BandPeaks[b] = h.Bands[b]
			}
		}
	}

	hopSeconds := float64(HopSize) / float64(sampleRate)
	onsetHops := detectOnsetHops(hops)
	g.OnsetTimes = coalesceOnsets(onsetHops, hopSeconds, onsetCoalesceSecs)
	g.TempoBPM = estimateTempo(onsetHops, len(hops), hopSeconds)
	return g
}

// detectOnsetHops flags hops whose flux exceeds alpha times the median
// flux of a +/-M hop neighborhood.
func detectOnsetHops(hops []FrameFeatures) []int {
	n := len(hops)
	if n == 0 {
		return nil
	}
	flux := make([]float64, n)
	for i, h := range hops {
		flux[i] = h.SpectralFlux
	}

	var onsets []int
	window := make([]float64, 0, 2*medianWindowHops+1)
	for i := 0; i < n; i++ {
		lo := i - medianWindowHops
		if lo < 0 {
			lo = 0
		}
		hi := i + medianWindowHops
		if hi >= n {
			hi = n - 1
		}
		window = window[:0]
		window = append(window, flux[lo:hi+1]...)
		med := median(window)
		if flux[i] > med*onsetThresholdMul && flux[i] > 0 {
			onsets = append(onsets, i)
		}
	}
	return onsets
}

func median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	s := append([]float64(nil), xs...)
	// simple insertion sort; neighborhoods are small (<= 2M+1 = 41)
	for i := 1; i < len(s); i++ {
		v := s[i]
		j := i - 1
		for j >= 0 && s[j] > v {
			s[j+1] = s[j]
			j--
		}
		s[j+1] = v
	}
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) / 2
}

// coalesceOnsets drops any candidate hop within onsetCoalesceSecs of the
// previously kept onset, converting surviving hop indices to seconds.
func coalesceOnsets(hopIdx []int, hopSeconds, minGapSeconds float64) []float64 {
	if len(hopIdx) == 0 {
		return nil
	}
	times := make([]float64, 0, len(hopIdx))
	last := math.Inf(-1)
	for _, i := range hopIdx {
		t := float64(i) * hopSeconds
		if t-last < minGapSeconds {
			continue
		}
		times = append(times, t)
		last = t
	}
	return times
}

// estimateTempo autocorrelates the binary onset-impulse train over the
// lag range implied by 60-200 BPM and returns the best-matching tempo,
// or nil if the strongest lag's correlation falls under 30% of the
// zero-lag energy.
func estimateTempo(onsetHops []int, numHops int, hopSeconds float64) *float64 {
	if numHops == 0 || len(onsetHops) < 2 {
		return nil
	}
	impulse := make([]float64, numHops)
	for _, i := range onsetHops {
		impulse[i] = 1
	}

	hopsPerSecond := 1.0 / hopSeconds
	minLag := int(math.Round(hopsPerSecond * 60.0 / maxTempoBPM))
	maxLag := int(math.Round(hopsPerSecond * 60.0 / minTempoBPM))
	if minLag < 1 {
		minLag = 1
	}
	if maxLag >= numHops {
		maxLag = numHops - 1
	}
	if minLag > maxLag {
		return nil
	}

	var zeroLagEnergy float64
	for _, v := range impulse {
		zeroLagEnergy += v * v
	}
	if zeroLagEnergy == 0 {
		return nil
	}

	bestLag := -1
	bestCorr := 0.0
	for lag := minLag; lag <= maxLag; lag++ {
		var corr float64
		for i := 0; i+lag < numHops; i++ {
			corr += impulse[i] * impulse[i+lag]
		}
		if corr > bestCorr {
			bestCorr = corr
			bestLag = lag
		}
	}
	if bestLag < 0 || bestCorr < tempoEnergyFrac*zeroLagEnergy {
		return nil
	}
	bpm := 60.0 / (float64(bestLag) * hopSeconds)
	return &bpm
}
