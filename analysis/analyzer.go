package analysis

import "fmt"

// Analyze runs the full three-pass analysis over a mono PCM stream at
// the given sample rate, producing one SmoothedFrame per output video
// frame at fps. smoothing is the EMA coefficient lambda in [0, 1].
func Analyze(pcm []float32, sampleRate int, fps float64, smoothing float64) (Result, error) {
	if sampleRate <= 0 {
		return Result{}, fmt.Errorf("analysis: sample rate must be positive, got %d", sampleRate)
	}
	if fps <= 0 {
		return Result{}, fmt.Errorf("analysis: fps must be positive, got %v", fps)
	}
	if smoothing < 0 || smoothing > 1 {
		return Result{}, fmt.Errorf("analysis: smoothing must be in [0, 1], got %v", smoothing)
	}

	hops, err := computeHopFeatures(pcm, sampleRate)
	if err != nil {
		return Result{}, fmt.Errorf("analysis: pass 2: %w", err)
	}

	global := computeGlobalStats(pcm, sampleRate, hops)

	duration := float64(len(pcm)) / float64(sampleRate)
	frames := resampleAndSmooth(hops, global, sampleRate, fps, duration, smoothing)

	return Result{
		Global:     global,
		Frames:     frames,
		Hops:       hops,
		FPS:        fps,
		SampleRate: sampleRate,
	}, nil
}
