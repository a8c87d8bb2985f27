package main

import "testing"

func TestParseParams(t *testing.T) {
	tests := []struct {
		in      string
		want    map[string]string
		wantErr bool
	}{
		{in: "", want: nil},
		{in: "particle_count=64", want: map[string]string{"particle_count": "64"}},
		{in: "gain=1.5,drag=0.2", want: map[string]string{"gain": "1.5", "drag": "0.2"}},
		{in: " gain = 1.5 ", want: map[string]string{"gain": "1.5"}},
		{in: "gain", wantErr: true},
		{in: "gain=1.5,", want: map[string]string{"gain": "1.5"}},
	}

	for _, tt := range tests {
		got, err := parseParams(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("parseParams(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("parseParams(%q) unexpected error: %v", tt.in, err)
		}
		if len(got) != len(tt.want) {
			t.Fatalf("parseParams(%q) = %v, want %v", tt.in, got, tt.want)
		}
		for k, v := range tt.want {
			if got[k] != v {
				t.Fatalf("parseParams(%q)[%q] = %q, want %q", tt.in, k, got[k], v)
			}
		}
	}
}

func TestParseEffects(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{in: "", want: nil},
		{in: "none", want: []string{"none"}},
		{in: "bloom,vignette", want: []string{"bloom", "vignette"}},
		{in: " bloom , vignette ", want: []string{"bloom", "vignette"}},
	}

	for _, tt := range tests {
		got := parseEffects(tt.in)
		if len(got) != len(tt.want) {
			t.Fatalf("parseEffects(%q) = %v, want %v", tt.in, got, tt.want)
		}
		for i := range tt.want {
			if got[i] != tt.want[i] {
				t.Fatalf("parseEffects(%q) = %v, want %v", tt.in, got, tt.want)
			}
		}
	}
}
