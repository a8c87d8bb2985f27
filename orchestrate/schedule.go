package orchestrate

import (
	"github.com/sonica/sonica/postfx"
	"github.com/sonica/sonica/templates"
)

// schedule maps each output frame index to the template that draws it.
// A single-template run uses one entry for every frame; "all" mode
// divides the frame range into templates.Names' equal shares, per
// spec §6's "-t all" mode.
type schedule struct {
	duration      float64
	perFrame      []string // templates.Names entry for each frame index
	defaultEffects map[string][]string
}

func buildSchedule(opts Options, numFrames int, fps float64) (*schedule, error) {
	s := &schedule{
		duration:       float64(numFrames) / fps,
		defaultEffects: make(map[string][]string),
	}

	if opts.TemplateName != "all" {
		name := opts.TemplateName
		if name == "" {
			name = "frequency_bars"
		}
		s.perFrame = make([]string, numFrames)
		for i := range s.perFrame {
			s.perFrame[i] = name
		}
		return s, nil
	}

	names := templates.Names
	s.perFrame = make([]string, numFrames)
	shareLen := numFrames / len(names)
	if shareLen < 1 {
		shareLen = 1
	}
	for i := 0; i < numFrames; i++ {
		share := i / shareLen
		if share >= len(names) {
			share = len(names) - 1
		}
		s.perFrame[i] = names[share]
	}
	return s, nil
}

// usedTemplates returns the distinct template names this schedule will
// draw, in first-use order.
func (s *schedule) usedTemplates() []string {
	seen := make(map[string]bool)
	var out []string
	for _, n := range s.perFrame {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

func (s *schedule) templateFor(frameIndex int) string {
	return s.perFrame[frameIndex]
}

func (s *schedule) setDefaultEffects(templateName string, effects []string) {
	s.defaultEffects[templateName] = effects
}

// effectsFor resolves the post-process effect list for templateName:
// the run-wide override if the caller supplied one, otherwise the
// template's own manifest default_effects, preset-expanded.
func (s *schedule) effectsFor(templateName string, override []string) []string {
	if override != nil {
		return override
	}
	return postfx.ExpandEffects(s.defaultEffects[templateName])
}
