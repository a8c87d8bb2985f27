// Package orchestrate implements Sonica's Component H: the strictly
// sequential per-frame driver that ties the decoder, analyzer, GPU
// renderer, post-process chain, and encoder together into one run.
package orchestrate

import (
	"log/slog"

	"github.com/sonica/sonica/analysis"
	"github.com/sonica/sonica/audio/decode"
	"github.com/sonica/sonica/encode"
	"github.com/sonica/sonica/gpu"
	"github.com/sonica/sonica/internal/sonicaerr"
	"github.com/sonica/sonica/postfx"
	"github.com/sonica/sonica/render"
	"github.com/sonica/sonica/templates"
)

// Options configures one end-to-end run.
type Options struct {
	InputPath  string
	OutputPath string

	Width, Height int
	FPS           int
	Smoothing     float64

	// TemplateName selects a shipped template by name, or "all" to
	// cycle every registered template in equal shares across the
	// run's duration.
	TemplateName string
	TemplateDir  string // override directory; "" uses only embedded templates
	Params       map[string]string

	// Effects, if non-nil, overrides every template's manifest
	// default_effects for the whole run (already preset-expanded via
	// postfx.ExpandEffects by the caller). A nil slice means "use
	// each template's own manifest defaults".
	Effects     []string
	Intensities []float32

	Codec      string
	PixFmt     string
	CRF        int
	Bitrate    string
	FFmpegPath string
}

// Run decodes the input, analyzes it, and drives the render/post-
// process/encode loop to completion, frame by frame, in order.
func Run(opts Options, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	decoded, err := decode.File(opts.InputPath)
	if err != nil {
		return err
	}
	logger.Info("decoded input", "path", opts.InputPath, "samples", len(decoded.PCM), "sample_rate", decoded.SampleRate)

	result, err := analysis.Analyze(decoded.PCM, decoded.SampleRate, float64(opts.FPS), opts.Smoothing)
	if err != nil {
		return sonicaerr.New(sonicaerr.KindAnalysis, err)
	}
	logger.Info("analyzed audio", "frames", len(result.Frames), "onsets", len(result.Global.OnsetTimes), "tempo_bpm", tempoLog(result.Global.TempoBPM))

	gctx, err := gpu.Open()
	if err != nil {
		return err
	}
	logger.Info("opened GPU backend", "backend", gctx.Backend, "adapter", gctx.AdapterName)

	plan, err := buildSchedule(opts, len(result.Frames), float64(opts.FPS))
	if err != nil {
		return err
	}

	frameRenderer, err := render.NewFrameRenderer(gctx.Device, gctx.Queue, uint32(opts.Width), uint32(opts.Height))
	if err != nil {
		return err
	}
	defer frameRenderer.Destroy()

	pipelines := make(map[string]*render.Pipeline)
	defer func() {
		for _, p := range pipelines {
			p.Destroy()
		}
	}()
	for _, name := range plan.usedTemplates() {
		pipeline, effects, err := buildPipeline(gctx, name, opts)
		if err != nil {
			return err
		}
		pipelines[name] = pipeline
		plan.setDefaultEffects(name, effects)
	}

	enc, err := encode.New(encode.Options{
		OutputPath: opts.OutputPath,
		AudioPath:  opts.InputPath,
		Width:      opts.Width,
		Height:     opts.Height,
		FPS:        opts.FPS,
		Codec:      opts.Codec,
		PixFmt:     opts.PixFmt,
		CRF:        opts.CRF,
		Bitrate:    opts.Bitrate,
		FFmpegPath: opts.FFmpegPath,
	})
	if err != nil {
		return err
	}

	var chain *postfx.Chain
	var chainTemplate string

	for k, frame := range result.Frames {
		templateName := plan.templateFor(k)
		pipeline := pipelines[templateName]

		if chain == nil || chainTemplate != templateName {
			effects := plan.effectsFor(templateName, opts.Effects)
			newChain, err := postfx.New(gctx.Device, gctx.Queue, uint32(opts.Width), uint32(opts.Height), effects, opts.Intensities)
			if err != nil {
				enc.Abort()
				return err
			}
			if chain != nil {
				chain.Destroy()
			}
			chain = newChain
			chainTemplate = templateName
		}

		uniforms := frame.ToUniforms(float32(opts.Width), float32(opts.Height), float32(opts.FPS), float32(plan.duration))
		fft := result.FFTMagnitudesForFrame(k)
		waveform := result.WaveformForFrame(k)

		texture, err := frameRenderer.DrawFrame(pipeline, uniforms, fft, waveform)
		if err != nil {
			enc.Abort()
			return err
		}

		final, err := chain.Run(texture, float32(frame.Time))
		if err != nil {
			enc.Abort()
			return err
		}

		rgba, err := frameRenderer.ReadbackTexture(final)
		if err != nil {
			enc.Abort()
			return err
		}

		if err := enc.WriteFrame(rgba); err != nil {
			enc.Abort()
			return err
		}
	}

	if chain != nil {
		chain.Destroy()
	}

	if err := enc.Finish(); err != nil {
		return err
	}
	logger.Info("encode complete", "output", opts.OutputPath, "frames", len(result.Frames))
	return nil
}

func buildPipeline(gctx *gpu.Context, templateName string, opts Options) (*render.Pipeline, []string, error) {
	loaded, err := templates.Load(templateName, opts.TemplateDir)
	if err != nil {
		return nil, nil, err
	}
	substituted, err := templates.ApplySubstitutions(loaded.FragmentSource, loaded.Manifest, opts.Params)
	if err != nil {
		return nil, nil, err
	}
	pipeline, err := render.NewPipeline(gctx.Device, templateName, substituted)
	if err != nil {
		return nil, nil, err
	}
	return pipeline, loaded.Manifest.DefaultEffects, nil
}

func tempoLog(bpm *float64) any {
	if bpm == nil {
		return "none"
	}
	return *bpm
}
