package postfx

import (
	"reflect"
	"testing"
)

func TestExpandEffects(t *testing.T) {
	cases := []struct {
		name string
		in   []string
		want []string
	}{
		{"empty", nil, nil},
		{"none disables everything", []string{"bloom", "none", "vignette"}, nil},
		{"crt expands in place", []string{"crt"}, []string{"crt_scanlines", "chromatic_aberration", "vignette", "film_grain", "color_grading"}},
		{"plain names pass through", []string{"bloom", "vignette"}, []string{"bloom", "vignette"}},
		{"crt mixed with a plain name", []string{"bloom", "crt"}, []string{"bloom", "crt_scanlines", "chromatic_aberration", "vignette", "film_grain", "color_grading"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := ExpandEffects(c.in)
			if !reflect.DeepEqual(got, c.want) {
				t.Errorf("ExpandEffects(%v) = %v, want %v", c.in, got, c.want)
			}
		})
	}
}

func TestAllEffectNamesHaveShaderSource(t *testing.T) {
	for _, name := range EffectNames {
		if _, ok := shaderSource(name); !ok {
			t.Errorf("effect %q has no shader source", name)
		}
	}
}

func TestUnknownEffectHasNoShaderSource(t *testing.T) {
	if _, ok := shaderSource("not_a_real_effect"); ok {
		t.Error("expected unknown effect name to have no shader source")
	}
}
