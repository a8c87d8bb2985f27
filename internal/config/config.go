// Package config loads sonica.toml and overlays it onto built-in
// defaults, the way preset.LoadJSON/ApplyFile overlay a piano preset
// onto piano.NewDefaultParams.
package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// File is the on-disk TOML schema. Every field is optional.
type File struct {
	Output  OutputFile `toml:"output"`
	Audio   AudioFile  `toml:"audio"`
	Effects []string   `toml:"effects"`
}

type OutputFile struct {
	Width  *int    `toml:"width"`
	Height *int    `toml:"height"`
	FPS    *int    `toml:"fps"`
	CRF    *int    `toml:"crf"`
	Codec  *string `toml:"codec"`
	PixFmt *string `toml:"pix_fmt"`
}

type AudioFile struct {
	Smoothing *float64 `toml:"smoothing"`
}

// Resolved is the fully materialized configuration used by the rest of
// the pipeline, after CLI flags, config file, and defaults have been
// merged (in that order of precedence).
type Resolved struct {
	Width     int
	Height    int
	FPS       int
	CRF       int
	Bitrate   string // empty means "use CRF"
	Codec     string
	PixFmt    string
	Smoothing float64
	Effects   []string // nil means "use template defaults"
}

// Defaults returns the built-in defaults, mirroring cli.rs's
// #[arg(default_value...)] set.
func Defaults() Resolved {
	return Resolved{
		Width:     1920,
		Height:    1080,
		FPS:       30,
		CRF:       18,
		Codec:     "libx264",
		PixFmt:    "yuv420p",
		Smoothing: 0.85,
	}
}

// Load reads and parses a TOML config file. A missing file at the
// default path is not an error; the caller should check os.IsNotExist
// when path was not explicitly requested.
func Load(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f File
	if err := toml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &f, nil
}

// Apply overlays a parsed File onto an existing Resolved, field by
// field, exactly as preset.ApplyFile overlays a piano preset File onto
// piano.Params.
func Apply(dst *Resolved, f *File) {
	if f == nil {
		return
	}
	if f.Output.Width != nil {
		dst.Width = *f.Output.Width
	}
	if f.Output.Height != nil {
		dst.Height = *f.Output.Height
	}
	if f.Output.FPS != nil {
		dst.FPS = *f.Output.FPS
	}
	if f.Output.CRF != nil {
		dst.CRF = *f.Output.CRF
	}
	if f.Output.Codec != nil {
		dst.Codec = *f.Output.Codec
	}
	if f.Output.PixFmt != nil {
		dst.PixFmt = *f.Output.PixFmt
	}
	if f.Audio.Smoothing != nil {
		dst.Smoothing = *f.Audio.Smoothing
	}
	if f.Effects != nil {
		dst.Effects = f.Effects
	}
}
