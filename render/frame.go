package render

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/sonica/sonica/analysis"
	"github.com/sonica/sonica/internal/sonicaerr"
)

const copyPitchAlignment = 256

// FrameRenderer owns the offscreen color texture and the CPU-readback
// staging buffer for one output resolution, plus the per-frame uniform
// and storage buffers shared across every draw.
type FrameRenderer struct {
	device hal.Device
	queue  hal.Queue

	width, height      uint32
	unpaddedBytesPerRow uint32
	paddedBytesPerRow   uint32

	colorTexture hal.Texture
	colorView    hal.TextureView
	stagingBuf   hal.Buffer

	uniformBuf hal.Buffer
	fftBuf     hal.Buffer
	fftBufCap  uint64
	waveBuf    hal.Buffer

	overlay TextOverlay
}

// NewFrameRenderer allocates the fixed-size render target and staging
// buffer for width x height frames.
func NewFrameRenderer(device hal.Device, queue hal.Queue, width, height uint32) (*FrameRenderer, error) {
	colorTexture, err := device.CreateTexture(&hal.TextureDescriptor{
		Label:         "sonica_render_target",
		Size:          hal.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        ColorFormat,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		return nil, sonicaerr.New(sonicaerr.KindGPUInit, fmt.Errorf("create render target: %w", err))
	}
	colorView, err := device.CreateTextureView(colorTexture, &hal.TextureViewDescriptor{Label: "sonica_render_target_view"})
	if err != nil {
		device.DestroyTexture(colorTexture)
		return nil, sonicaerr.New(sonicaerr.KindGPUInit, fmt.Errorf("create render target view: %w", err))
	}

	unpadded := width * 4
	padded := (unpadded + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)

	stagingBuf, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: "sonica_readback",
		Size:  uint64(padded) * uint64(height),
		Usage: gputypes.BufferUsageCopyDst | gputypes.BufferUsageMapRead,
	})
	if err != nil {
		device.DestroyTextureView(colorView)
		device.DestroyTexture(colorTexture)
		return nil, sonicaerr.New(sonicaerr.KindGPUInit, fmt.Errorf("create staging buffer: %w", err))
	}

	uniformBuf, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: "sonica_frame_uniforms",
		Size:  64,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		device.DestroyBuffer(stagingBuf)
		device.DestroyTextureView(colorView)
		device.DestroyTexture(colorTexture)
		return nil, sonicaerr.New(sonicaerr.KindGPUInit, fmt.Errorf("create uniform buffer: %w", err))
	}

	waveBuf, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: "sonica_waveform",
		Size:  uint64(analysis.WaveformPoints) * 4,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		device.DestroyBuffer(uniformBuf)
		device.DestroyBuffer(stagingBuf)
		device.DestroyTextureView(colorView)
		device.DestroyTexture(colorTexture)
		return nil, sonicaerr.New(sonicaerr.KindGPUInit, fmt.Errorf("create waveform buffer: %w", err))
	}

	return &FrameRenderer{
		device:              device,
		queue:               queue,
		width:               width,
		height:              height,
		unpaddedBytesPerRow: unpadded,
		paddedBytesPerRow:   padded,
		colorTexture:        colorTexture,
		colorView:           colorView,
		stagingBuf:          stagingBuf,
		uniformBuf:          uniformBuf,
		waveBuf:             waveBuf,
	}, nil
}

// SetOverlay installs a text-overlay hook applied after the template
// draw but before readback. A nil overlay (the default) is a no-op.
func (r *FrameRenderer) SetOverlay(o TextOverlay) { r.overlay = o }

// ensureFFTBuffer (re)allocates the FFT storage buffer to hold
// numBins float32 magnitudes, growing only when capacity is exceeded.
func (r *FrameRenderer) ensureFFTBuffer(numBins int) error {
	needed := uint64(numBins) * 4
	if r.fftBuf != nil && r.fftBufCap >= needed {
		return nil
	}
	if r.fftBuf != nil {
		r.device.DestroyBuffer(r.fftBuf)
	}
	buf, err := r.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "sonica_fft_bins",
		Size:  needed,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		r.fftBuf = nil
		r.fftBufCap = 0
		return err
	}
	r.fftBuf = buf
	r.fftBufCap = needed
	return nil
}

// DrawFrame renders one frame with pipeline against uniforms/fft/waveform
// into the renderer's offscreen color texture, without reading it back.
// The returned texture is valid until the next call to DrawFrame and is
// the input a post-process chain runs against.
func (r *FrameRenderer) DrawFrame(pipeline *Pipeline, uniforms analysis.FrameUniforms, fftMagnitudes []float64, waveform []float32) (hal.Texture, error) {
	if err := r.ensureFFTBuffer(len(fftMagnitudes)); err != nil {
		return nil, sonicaerr.New(sonicaerr.KindEncode, fmt.Errorf("ensure fft buffer: %w", err))
	}

	r.queue.WriteBuffer(r.uniformBuf, 0, encodeUniforms(uniforms))
	r.queue.WriteBuffer(r.fftBuf, 0, encodeFloat64AsFloat32(fftMagnitudes))
	r.queue.WriteBuffer(r.waveBuf, 0, encodeFloat32(waveform))

	bindGroup, err := r.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "sonica_frame_bind",
		Layout: pipeline.BindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: r.uniformBuf.NativeHandle(), Offset: 0, Size: 64}},
			{Binding: 1, Resource: gputypes.BufferBinding{Buffer: r.fftBuf.NativeHandle(), Offset: 0, Size: r.fftBufCap}},
			{Binding: 2, Resource: gputypes.BufferBinding{Buffer: r.waveBuf.NativeHandle(), Offset: 0, Size: uint64(analysis.WaveformPoints) * 4}},
		},
	})
	if err != nil {
		return nil, sonicaerr.New(sonicaerr.KindEncode, fmt.Errorf("create bind group: %w", err))
	}
	defer r.device.DestroyBindGroup(bindGroup)

	encoder, err := r.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "sonica_frame_encoder"})
	if err != nil {
		return nil, sonicaerr.New(sonicaerr.KindEncode, fmt.Errorf("create command encoder: %w", err))
	}
	if err := encoder.BeginEncoding("sonica_frame"); err != nil {
		return nil, sonicaerr.New(sonicaerr.KindEncode, fmt.Errorf("begin encoding: %w", err))
	}

	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "sonica_main_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       r.colorView,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: gputypes.Color{R: 0, G: 0, B: 0, A: 1},
		}},
	})
	rp.SetPipeline(pipeline.Handle)
	rp.SetBindGroup(0, bindGroup, nil)
	rp.Draw(0, 3, 0, 1)
	rp.End()

	if r.overlay != nil {
		if err := r.overlay.Draw(encoder, r.colorView, r.width, r.height, uniforms); err != nil {
			encoder.DiscardEncoding()
			return nil, sonicaerr.New(sonicaerr.KindEncode, fmt.Errorf("text overlay: %w", err))
		}
	}

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return nil, sonicaerr.New(sonicaerr.KindEncode, fmt.Errorf("end encoding: %w", err))
	}
	defer r.device.FreeCommandBuffer(cmdBuf)

	fence, err := r.device.CreateFence()
	if err != nil {
		return nil, sonicaerr.New(sonicaerr.KindEncode, fmt.Errorf("create fence: %w", err))
	}
	defer r.device.DestroyFence(fence)

	if err := r.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return nil, sonicaerr.New(sonicaerr.KindDeviceLost, fmt.Errorf("submit: %w", err))
	}
	ok, err := r.device.Wait(fence, 1, 10*time.Second)
	if err != nil || !ok {
		return nil, sonicaerr.New(sonicaerr.KindDeviceLost, fmt.Errorf("wait for GPU: ok=%v err=%w", ok, err))
	}

	return r.colorTexture, nil
}

// ReadbackTexture copies an arbitrary width x height texture (the
// template's own color texture, or a post-process chain's final output)
// into the staging buffer and returns its tightly-packed RGBA8 bytes.
// Grounded on the original FrameRenderer's split render_and_readback /
// readback_texture methods.
func (r *FrameRenderer) ReadbackTexture(texture hal.Texture) ([]byte, error) {
	encoder, err := r.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "sonica_readback_encoder"})
	if err != nil {
		return nil, sonicaerr.New(sonicaerr.KindEncode, fmt.Errorf("create readback encoder: %w", err))
	}
	if err := encoder.BeginEncoding("sonica_readback"); err != nil {
		return nil, sonicaerr.New(sonicaerr.KindEncode, fmt.Errorf("begin readback encoding: %w", err))
	}

	encoder.CopyTextureToBuffer(texture, r.stagingBuf, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: r.paddedBytesPerRow, RowsPerImage: r.height},
		TextureBase:  hal.ImageCopyTexture{Texture: texture, MipLevel: 0},
		Size:         hal.Extent3D{Width: r.width, Height: r.height, DepthOrArrayLayers: 1},
	}})

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return nil, sonicaerr.New(sonicaerr.KindEncode, fmt.Errorf("end readback encoding: %w", err))
	}
	defer r.device.FreeCommandBuffer(cmdBuf)

	fence, err := r.device.CreateFence()
	if err != nil {
		return nil, sonicaerr.New(sonicaerr.KindEncode, fmt.Errorf("create fence: %w", err))
	}
	defer r.device.DestroyFence(fence)

	if err := r.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return nil, sonicaerr.New(sonicaerr.KindDeviceLost, fmt.Errorf("submit readback: %w", err))
	}
	ok, err := r.device.Wait(fence, 1, 10*time.Second)
	if err != nil || !ok {
		return nil, sonicaerr.New(sonicaerr.KindDeviceLost, fmt.Errorf("wait for GPU: ok=%v err=%w", ok, err))
	}

	padded := make([]byte, uint64(r.paddedBytesPerRow)*uint64(r.height))
	if err := r.queue.ReadBuffer(r.stagingBuf, 0, padded); err != nil {
		return nil, sonicaerr.New(sonicaerr.KindDeviceLost, fmt.Errorf("readback: %w", err))
	}

	return stripRowPadding(padded, r.width, r.height, r.unpaddedBytesPerRow, r.paddedBytesPerRow), nil
}

// stripRowPadding copies each row's unpadded bytes out of a
// 256-byte-row-aligned readback buffer into a tightly packed result.
func stripRowPadding(padded []byte, width, height, unpaddedBytesPerRow, paddedBytesPerRow uint32) []byte {
	if unpaddedBytesPerRow == paddedBytesPerRow {
		out := make([]byte, len(padded))
		copy(out, padded)
		return out
	}
	out := make([]byte, uint64(unpaddedBytesPerRow)*uint64(height))
	for row := uint32(0); row < height; row++ {
		srcOff := uint64(row) * uint64(paddedBytesPerRow)
		dstOff := uint64(row) * uint64(unpaddedBytesPerRow)
		copy(out[dstOff:dstOff+uint64(unpaddedBytesPerRow)], padded[srcOff:srcOff+uint64(unpaddedBytesPerRow)])
	}
	return out
}

// Destroy releases all GPU resources owned by the renderer.
func (r *FrameRenderer) Destroy() {
	if r.fftBuf != nil {
		r.device.DestroyBuffer(r.fftBuf)
	}
	r.device.DestroyBuffer(r.waveBuf)
	r.device.DestroyBuffer(r.uniformBuf)
	r.device.DestroyBuffer(r.stagingBuf)
	r.device.DestroyTextureView(r.colorView)
	r.device.DestroyTexture(r.colorTexture)
}

func encodeUniforms(u analysis.FrameUniforms) []byte {
	buf := make([]byte, 64)
	vals := [16]float32{
		u.ResX, u.ResY, u.Time, u.FrameAsF32, u.FPS, u.Duration, u.RMS, u.SpectralCentroid,
		u.SpectralFlux, u.BeatIntensity, u.BeatPhase, u.IsBeat, u.Bass, u.Mid, u.High, 0,
	}
	for i, v := range vals {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func encodeFloat64AsFloat32(xs []float64) []byte {
	buf := make([]byte, len(xs)*4)
	for i, v := range xs {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(float32(v)))
	}
	return buf
}

func encodeFloat32(xs []float32) []byte {
	buf := make([]byte, len(xs)*4)
	for i, v := range xs {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}
