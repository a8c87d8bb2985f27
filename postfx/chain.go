// Package postfx implements Sonica's Component F: the post-process
// effect chain. Effects are built into one render pipeline each,
// sharing a bind-group layout, and ping-pong between two intermediate
// textures.
package postfx

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/sonica/sonica/internal/sonicaerr"
)

const colorFormat = gputypes.TextureFormatRGBA8UnormSrgb

type pass struct {
	name       string
	pipeline   hal.RenderPipeline
	bindLayout hal.BindGroupLayout
	sampler    hal.Sampler
	uniformBuf hal.Buffer
	intensity  float32
}

// Chain owns the ping-pong textures and one render pipeline per
// configured effect.
type Chain struct {
	device hal.Device
	queue  hal.Queue

	passes []pass

	width, height uint32
	pingTex, pongTex   hal.Texture
	pingView, pongView hal.TextureView

	pipelineLayouts []hal.PipelineLayout
	shaderModules   []hal.ShaderModule
}

// New builds a pipeline per effect in the already-expanded effect
// list. intensities, if non-nil, supplies a per-effect override
// matched by index; effects beyond its length use 1.0.
func New(device hal.Device, queue hal.Queue, width, height uint32, effects []string, intensities []float32) (*Chain, error) {
	c := &Chain{device: device, queue: queue, width: width, height: height}

	if len(effects) == 0 {
		return c, nil
	}

	pingTex, pingView, err := createPPTexture(device, width, height, "pp_ping")
	if err != nil {
		return nil, err
	}
	pongTex, pongView, err := createPPTexture(device, width, height, "pp_pong")
	if err != nil {
		device.DestroyTextureView(pingView)
		device.DestroyTexture(pingTex)
		return nil, err
	}
	c.pingTex, c.pingView = pingTex, pingView
	c.pongTex, c.pongView = pongTex, pongView

	for i, name := range effects {
		intensity := float32(1.0)
		if i < len(intensities) {
			intensity = intensities[i]
		}
		p, err := c.buildPass(name, intensity)
		if err != nil {
			c.Destroy()
			return nil, err
		}
		c.passes = append(c.passes, p)
	}
	return c, nil
}

func createPPTexture(device hal.Device, width, height uint32, label string) (hal.Texture, hal.TextureView, error) {
	tex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label:         label,
		Size:          hal.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        colorFormat,
		Usage: gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageTextureBinding |
			gputypes.TextureUsageCopySrc | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, nil, sonicaerr.New(sonicaerr.KindGPUInit, fmt.Errorf("create %s texture: %w", label, err))
	}
	view, err := device.CreateTextureView(tex, &hal.TextureViewDescriptor{Label: label + "_view"})
	if err != nil {
		device.DestroyTexture(tex)
		return nil, nil, sonicaerr.New(sonicaerr.KindGPUInit, fmt.Errorf("create %s view: %w", label, err))
	}
	return tex, view, nil
}

func (c *Chain) buildPass(name string, intensity float32) (pass, error) {
	src, ok := shaderSource(name)
	if !ok {
		return pass{}, sonicaerr.WithName(sonicaerr.KindEffectNotFound, name, fmt.Errorf("unknown post-process effect"))
	}

	module, err := c.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  name + "_shader",
		Source: hal.ShaderSource{WGSL: src},
	})
	if err != nil {
		return pass{}, sonicaerr.WithName(sonicaerr.KindShaderCompile, name, err)
	}
	c.shaderModules = append(c.shaderModules, module)

	sampler, err := c.device.CreateSampler(&hal.SamplerDescriptor{
		Label:     name + "_sampler",
		MagFilter: gputypes.FilterModeLinear,
		MinFilter: gputypes.FilterModeLinear,
	})
	if err != nil {
		return pass{}, sonicaerr.WithName(sonicaerr.KindShaderCompile, name, fmt.Errorf("sampler: %w", err))
	}

	bindLayout, err := c.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: name + "_bgl",
		Entries: []gputypes.BindGroupLayoutEntry{
			{Binding: 0, Visibility: gputypes.ShaderStageFragment, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
			{Binding: 1, Visibility: gputypes.ShaderStageFragment, Texture: &gputypes.TextureBindingLayout{SampleType: gputypes.TextureSampleTypeFloat, ViewDimension: gputypes.TextureViewDimension2D}},
			{Binding: 2, Visibility: gputypes.ShaderStageFragment, Sampler: &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering}},
		},
	})
	if err != nil {
		return pass{}, sonicaerr.WithName(sonicaerr.KindShaderCompile, name, fmt.Errorf("bind group layout: %w", err))
	}

	pipelineLayout, err := c.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            name + "_pl",
		BindGroupLayouts: []hal.BindGroupLayout{bindLayout},
	})
	if err != nil {
		return pass{}, sonicaerr.WithName(sonicaerr.KindShaderCompile, name, fmt.Errorf("pipeline layout: %w", err))
	}
	c.pipelineLayouts = append(c.pipelineLayouts, pipelineLayout)

	pipeline, err := c.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  name + "_pipeline",
		Layout: pipelineLayout,
		Vertex: hal.VertexState{Module: module, EntryPoint: "vs_main"},
		Fragment: &hal.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets: []hal.ColorTargetState{{Format: colorFormat, WriteMask: gputypes.ColorWriteMaskAll}},
		},
		Primitive:   hal.PrimitiveState{Topology: gputypes.PrimitiveTopologyTriangleList, FrontFace: gputypes.FrontFaceCCW},
		Multisample: hal.MultisampleState{Count: 1, Mask: 0xFFFFFFFF},
	})
	if err != nil {
		return pass{}, sonicaerr.WithName(sonicaerr.KindShaderCompile, name, fmt.Errorf("render pipeline: %w", err))
	}

	uniformBuf, err := c.device.CreateBuffer(&hal.BufferDescriptor{
		Label: name + "_uniforms",
		Size:  16,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return pass{}, sonicaerr.WithName(sonicaerr.KindShaderCompile, name, fmt.Errorf("uniform buffer: %w", err))
	}

	return pass{
		name:       name,
		pipeline:   pipeline,
		bindLayout: bindLayout,
		sampler:    sampler,
		uniformBuf: uniformBuf,
		intensity:  intensity,
	}, nil
}

// HasEffects reports whether the chain has any configured passes.
func (c *Chain) HasEffects() bool { return len(c.passes) > 0 }

// Run copies input into the ping texture, then ping-pongs every
// configured pass, returning the final output texture (input itself
// if the chain is empty).
func (c *Chain) Run(input hal.Texture, timeSeconds float32) (hal.Texture, error) {
	if len(c.passes) == 0 {
		return input, nil
	}

	if err := c.copyToPing(input); err != nil {
		return nil, err
	}

	textures := [2]hal.Texture{c.pingTex, c.pongTex}
	views := [2]hal.TextureView{c.pingView, c.pongView}

	for i, p := range c.passes {
		srcIdx := i % 2
		dstIdx := (i + 1) % 2

		c.queue.WriteBuffer(p.uniformBuf, 0, encodePPUniforms(c.width, c.height, timeSeconds, p.intensity))

		bindGroup, err := c.device.CreateBindGroup(&hal.BindGroupDescriptor{
			Label:  p.name + "_bind",
			Layout: p.bindLayout,
			Entries: []gputypes.BindGroupEntry{
				{Binding: 0, Resource: gputypes.BufferBinding{Buffer: p.uniformBuf.NativeHandle(), Offset: 0, Size: 16}},
				{Binding: 1, Resource: gputypes.TextureViewBinding{TextureView: views[srcIdx].NativeHandle()}},
				{Binding: 2, Resource: gputypes.SamplerBinding{Sampler: p.sampler.NativeHandle()}},
			},
		})
		if err != nil {
			return nil, sonicaerr.WithName(sonicaerr.KindEncode, p.name, fmt.Errorf("create bind group: %w", err))
		}

		if err := c.runPass(p, bindGroup, views[dstIdx]); err != nil {
			c.device.DestroyBindGroup(bindGroup)
			return nil, err
		}
		c.device.DestroyBindGroup(bindGroup)
	}

	finalIdx := len(c.passes) % 2
	return textures[finalIdx], nil
}

func (c *Chain) copyToPing(input hal.Texture) error {
	encoder, err := c.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "pp_copy_encoder"})
	if err != nil {
		return sonicaerr.New(sonicaerr.KindEncode, fmt.Errorf("create copy encoder: %w", err))
	}
	if err := encoder.BeginEncoding("pp_copy"); err != nil {
		return sonicaerr.New(sonicaerr.KindEncode, fmt.Errorf("begin copy encoding: %w", err))
	}
	encoder.CopyTextureToTexture(
		hal.ImageCopyTexture{Texture: input, MipLevel: 0},
		hal.ImageCopyTexture{Texture: c.pingTex, MipLevel: 0},
		hal.Extent3D{Width: c.width, Height: c.height, DepthOrArrayLayers: 1},
	)
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return sonicaerr.New(sonicaerr.KindEncode, fmt.Errorf("end copy encoding: %w", err))
	}
	defer c.device.FreeCommandBuffer(cmdBuf)
	if err := c.queue.Submit([]hal.CommandBuffer{cmdBuf}, nil, 0); err != nil {
		return sonicaerr.New(sonicaerr.KindEncode, fmt.Errorf("submit copy: %w", err))
	}
	return nil
}

func (c *Chain) runPass(p pass, bindGroup hal.BindGroup, dst hal.TextureView) error {
	encoder, err := c.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "pp_encoder"})
	if err != nil {
		return sonicaerr.WithName(sonicaerr.KindEncode, p.name, fmt.Errorf("create encoder: %w", err))
	}
	if err := encoder.BeginEncoding("pp_pass"); err != nil {
		return sonicaerr.WithName(sonicaerr.KindEncode, p.name, fmt.Errorf("begin encoding: %w", err))
	}

	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "pp_render_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       dst,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: gputypes.Color{R: 0, G: 0, B: 0, A: 1},
		}},
	})
	rp.SetPipeline(p.pipeline)
	rp.SetBindGroup(0, bindGroup, nil)
	rp.Draw(0, 3, 0, 1)
	rp.End()

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return sonicaerr.WithName(sonicaerr.KindEncode, p.name, fmt.Errorf("end encoding: %w", err))
	}
	defer c.device.FreeCommandBuffer(cmdBuf)

	fence, err := c.device.CreateFence()
	if err != nil {
		return sonicaerr.WithName(sonicaerr.KindEncode, p.name, fmt.Errorf("create fence: %w", err))
	}
	defer c.device.DestroyFence(fence)

	if err := c.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return sonicaerr.WithName(sonicaerr.KindDeviceLost, p.name, fmt.Errorf("submit: %w", err))
	}
	ok, err := c.device.Wait(fence, 1, 10*time.Second)
	if err != nil || !ok {
		return sonicaerr.WithName(sonicaerr.KindDeviceLost, p.name, fmt.Errorf("wait: ok=%v err=%w", ok, err))
	}
	return nil
}

func encodePPUniforms(width, height uint32, timeSeconds, intensity float32) []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(float32(width)))
	binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(float32(height)))
	binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(timeSeconds))
	binary.LittleEndian.PutUint32(buf[12:], math.Float32bits(intensity))
	return buf
}

// Destroy releases all GPU resources owned by the chain.
func (c *Chain) Destroy() {
	for _, p := range c.passes {
		c.device.DestroyBuffer(p.uniformBuf)
		c.device.DestroySampler(p.sampler)
		c.device.DestroyRenderPipeline(p.pipeline)
		c.device.DestroyBindGroupLayout(p.bindLayout)
	}
	for _, pl := range c.pipelineLayouts {
		c.device.DestroyPipelineLayout(pl)
	}
	for _, m := range c.shaderModules {
		c.device.DestroyShaderModule(m)
	}
	if c.pingView != nil {
		c.device.DestroyTextureView(c.pingView)
		c.device.DestroyTexture(c.pingTex)
	}
	if c.pongView != nil {
		c.device.DestroyTextureView(c.pongView)
		c.device.DestroyTexture(c.pongTex)
	}
}
