package orchestrate

import "testing"

func TestBuildScheduleSingleTemplate(t *testing.T) {
	s, err := buildSchedule(Options{TemplateName: "circular_spectrum"}, 10, 30)
	if err != nil {
		t.Fatalf("buildSchedule: %v", err)
	}
	for i := 0; i < 10; i++ {
		if got := s.templateFor(i); got != "circular_spectrum" {
			t.Fatalf("frame %d: got %q, want circular_spectrum", i, got)
		}
	}
}

func TestBuildScheduleDefaultTemplate(t *testing.T) {
	s, err := buildSchedule(Options{}, 5, 30)
	if err != nil {
		t.Fatalf("buildSchedule: %v", err)
	}
	if got := s.templateFor(0); got != "frequency_bars" {
		t.Fatalf("got %q, want frequency_bars", got)
	}
}

func TestBuildScheduleAllCyclesEverything(t *testing.T) {
	s, err := buildSchedule(Options{TemplateName: "all"}, 600, 30)
	if err != nil {
		t.Fatalf("buildSchedule: %v", err)
	}
	used := s.usedTemplates()
	if len(used) != 6 {
		t.Fatalf("expected 6 distinct templates across the run, got %d: %v", len(used), used)
	}
	if s.templateFor(0) != used[0] {
		t.Fatalf("frame 0 should use the first share's template")
	}
	if s.templateFor(599) != used[len(used)-1] {
		t.Fatalf("last frame should use the last share's template")
	}
}

func TestEffectsForPrefersOverride(t *testing.T) {
	s := &schedule{defaultEffects: map[string][]string{"frequency_bars": {"vignette"}}}
	got := s.effectsFor("frequency_bars", []string{"bloom"})
	if len(got) != 1 || got[0] != "bloom" {
		t.Fatalf("expected override to win, got %v", got)
	}
}

func TestEffectsForFallsBackToManifestDefault(t *testing.T) {
	s := &schedule{defaultEffects: map[string][]string{"frequency_bars": {"vignette"}}}
	got := s.effectsFor("frequency_bars", nil)
	if len(got) != 1 || got[0] != "vignette" {
		t.Fatalf("expected manifest default, got %v", got)
	}
}

func TestEffectsForExpandsCrtPreset(t *testing.T) {
	s := &schedule{defaultEffects: map[string][]string{"waveform_scope": {"crt"}}}
	got := s.effectsFor("waveform_scope", nil)
	want := []string{"crt_scanlines", "chromatic_aberration", "vignette", "film_grain", "color_grading"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
