// Command sonica renders an audio file into an audio-reactive MP4
// video: decode, analyze, render a shader template per frame through
// an optional post-process chain, and encode with ffmpeg.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/sonica/sonica/internal/config"
	"github.com/sonica/sonica/internal/sonicaerr"
	"github.com/sonica/sonica/orchestrate"
	"github.com/sonica/sonica/postfx"
	"github.com/sonica/sonica/templates"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("sonica", flag.ContinueOnError)

	output := fs.String("o", "output.mp4", "output video path")
	fs.StringVar(output, "output", "output.mp4", "output video path")
	template := fs.String("t", "frequency_bars", "visualization template name, or \"all\" to cycle every template")
	fs.StringVar(template, "template", "frequency_bars", "visualization template name, or \"all\" to cycle every template")
	width := fs.Int("width", 1920, "output width in pixels")
	height := fs.Int("height", 1080, "output height in pixels")
	fps := fs.Int("fps", 30, "output frame rate")
	crf := fs.Int("crf", 18, "constant rate factor (ignored if -bitrate is set)")
	bitrate := fs.String("b", "", "target video bitrate, overrides -crf")
	fs.StringVar(bitrate, "bitrate", "", "target video bitrate, overrides -crf")
	codec := fs.String("codec", "libx264", "video codec passed to the encoder")
	pixFmt := fs.String("pix-fmt", "yuv420p", "output pixel format")
	effects := fs.String("effects", "", "comma-separated post-process effects (\"none\" disables, \"crt\" expands to a preset); omitted uses the template's own defaults")
	smoothing := fs.Float64("smoothing", 0.85, "EMA smoothing factor in [0, 1]")
	param := fs.String("param", "", "comma-separated KEY=VALUE template parameter overrides")
	configPath := fs.String("config", "./sonica.toml", "TOML config file path")
	listTemplates := fs.Bool("list-templates", false, "print registered templates and exit")
	templateDir := fs.String("template-dir", "", "optional filesystem directory of template overrides")
	ffmpegPath := fs.String("ffmpeg", "ffmpeg", "path to the ffmpeg binary")

	if err := fs.Parse(args); err != nil {
		return sonicaerr.New(sonicaerr.KindUsage, err).ExitCode()
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if *listTemplates {
		for _, name := range templates.List(*templateDir) {
			fmt.Println(name)
		}
		return 0
	}

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: sonica [flags] <input-audio-path>")
		return sonicaerr.New(sonicaerr.KindUsage, errors.New("missing input audio path")).ExitCode()
	}
	inputPath := fs.Arg(0)

	resolved := config.Defaults()
	if cfgFile, err := config.Load(*configPath); err == nil {
		config.Apply(&resolved, cfgFile)
	} else if !os.IsNotExist(err) {
		logger.Warn("failed to load config file", "path", *configPath, "error", err)
	}

	explicit := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	if explicit["width"] {
		resolved.Width = *width
	}
	if explicit["height"] {
		resolved.Height = *height
	}
	if explicit["fps"] {
		resolved.FPS = *fps
	}
	if explicit["crf"] {
		resolved.CRF = *crf
	}
	if explicit["codec"] {
		resolved.Codec = *codec
	}
	if explicit["pix-fmt"] {
		resolved.PixFmt = *pixFmt
	}
	if explicit["smoothing"] {
		resolved.Smoothing = *smoothing
	}
	if explicit["b"] || explicit["bitrate"] {
		resolved.Bitrate = *bitrate
	}
	if explicit["effects"] {
		resolved.Effects = parseEffects(*effects)
	}

	params, err := parseParams(*param)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return sonicaerr.New(sonicaerr.KindParam, err).ExitCode()
	}

	var runEffects []string
	if resolved.Effects != nil {
		runEffects = postfx.ExpandEffects(resolved.Effects)
		if runEffects == nil {
			// An explicit empty list or "none" disables post-processing;
			// nil would fall back to the templates' manifest defaults.
			runEffects = []string{}
		}
	}

	opts := orchestrate.Options{
		InputPath:    inputPath,
		OutputPath:   *output,
		Width:        resolved.Width,
		Height:       resolved.Height,
		FPS:          resolved.FPS,
		Smoothing:    resolved.Smoothing,
		TemplateName: *template,
		TemplateDir:  *templateDir,
		Params:       params,
		Effects:      runEffects,
		Codec:        resolved.Codec,
		PixFmt:       resolved.PixFmt,
		CRF:          resolved.CRF,
		Bitrate:      resolved.Bitrate,
		FFmpegPath:   *ffmpegPath,
	}

	if err := orchestrate.Run(opts, logger); err != nil {
		fmt.Fprintln(os.Stderr, "sonica:", err)
		var serr *sonicaerr.Error
		if errors.As(err, &serr) {
			return serr.ExitCode()
		}
		return 1
	}
	return 0
}

// parseEffects splits a comma-separated --effects value, returning nil
// for an empty string (meaning "omitted": use template defaults).
func parseEffects(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseParams splits a comma-separated --param KEY=VALUE[,KEY=VALUE]*
// string into a map, used for template shader parameter overrides.
func parseParams(raw string) (map[string]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	out := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --param entry %q, expected KEY=VALUE", pair)
		}
		out[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return out, nil
}
