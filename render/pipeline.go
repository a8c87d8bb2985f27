// Package render implements Sonica's Components D and E: compiling a
// template's WGSL fragment shader into a render pipeline bound against
// the fixed uniform/FFT/waveform layout, and rendering+reading back one
// frame at a time.
package render

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/sonica/sonica/internal/sonicaerr"
)

// ColorFormat is the fixed offscreen render target format. sRGB output
// matches how the encoder's raw-RGBA frames are expected downstream.
const ColorFormat = gputypes.TextureFormatRGBA8UnormSrgb

// Pipeline wraps a compiled template shader: the full-screen-triangle
// vertex stage plus the template's fragment stage, bound to the fixed
// three-entry layout (uniforms, FFT storage, waveform storage).
type Pipeline struct {
	device      hal.Device
	Handle      hal.RenderPipeline
	BindLayout  hal.BindGroupLayout
	pipelineLayout hal.PipelineLayout
	shaderModule   hal.ShaderModule
}

// vertexShaderSource is shared by every template: it emits a
// full-screen triangle from the vertex index alone, no vertex buffer.
const vertexShaderSource = `
struct VertexOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) uv: vec2<f32>,
};

@vertex
fn vs_main(@builtin(vertex_index) idx: u32) -> VertexOutput {
    var out: VertexOutput;
    let x = f32((idx << 1u) & 2u);
    let y = f32(idx & 2u);
    out.position = vec4<f32>(x * 2.0 - 1.0, 1.0 - y * 2.0, 0.0, 1.0);
    out.uv = vec2<f32>(x, y);
    return out;
}
`

// NewPipeline compiles fragmentSource (the template's WGSL, with
// PARAM_<NAME> substitutions already applied) against the fixed
// vertex stage and bind group layout.
func NewPipeline(device hal.Device, templateName, fragmentSource string) (*Pipeline, error) {
	combined := vertexShaderSource + "\n" + fragmentSource

	module, err := device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  templateName + "_shader",
		Source: hal.ShaderSource{WGSL: combined},
	})
	if err != nil {
		return nil, sonicaerr.WithName(sonicaerr.KindShaderCompile, templateName, err)
	}

	bindLayout, err := device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: templateName + "_bgl",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageFragment,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage},
			},
			{
				Binding:    2,
				Visibility: gputypes.ShaderStageFragment,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage},
			},
		},
	})
	if err != nil {
		device.DestroyShaderModule(module)
		return nil, sonicaerr.WithName(sonicaerr.KindShaderCompile, templateName, fmt.Errorf("bind group layout: %w", err))
	}

	pipelineLayout, err := device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            templateName + "_pl",
		BindGroupLayouts: []hal.BindGroupLayout{bindLayout},
	})
	if err != nil {
		device.DestroyBindGroupLayout(bindLayout)
		device.DestroyShaderModule(module)
		return nil, sonicaerr.WithName(sonicaerr.KindShaderCompile, templateName, fmt.Errorf("pipeline layout: %w", err))
	}

	pipeline, err := device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  templateName + "_pipeline",
		Layout: pipelineLayout,
		Vertex: hal.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
		},
		Fragment: &hal.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets: []hal.ColorTargetState{{
				Format:    ColorFormat,
				WriteMask: gputypes.ColorWriteMaskAll,
			}},
		},
		Primitive: hal.PrimitiveState{
			Topology:  gputypes.PrimitiveTopologyTriangleList,
			FrontFace: gputypes.FrontFaceCCW,
		},
		Multisample: hal.MultisampleState{Count: 1, Mask: 0xFFFFFFFF},
	})
	if err != nil {
		device.DestroyPipelineLayout(pipelineLayout)
		device.DestroyBindGroupLayout(bindLayout)
		device.DestroyShaderModule(module)
		return nil, sonicaerr.WithName(sonicaerr.KindShaderCompile, templateName, fmt.Errorf("render pipeline: %w", err))
	}

	return &Pipeline{
		device:         device,
		Handle:         pipeline,
		BindLayout:     bindLayout,
		pipelineLayout: pipelineLayout,
		shaderModule:   module,
	}, nil
}

// Destroy releases the pipeline's owned GPU resources.
func (p *Pipeline) Destroy() {
	if p.Handle != nil {
		p.device.DestroyRenderPipeline(p.Handle)
	}
	if p.pipelineLayout != nil {
		p.device.DestroyPipelineLayout(p.pipelineLayout)
	}
	if p.BindLayout != nil {
		p.device.DestroyBindGroupLayout(p.BindLayout)
	}
	if p.shaderModule != nil {
		p.device.DestroyShaderModule(p.shaderModule)
	}
}
