package render

import (
	"github.com/gogpu/wgpu/hal"

	"github.com/sonica/sonica/analysis"
)

// TextOverlay draws caller-supplied text (e.g. a title card) onto the
// color target after the template's own draw call, inside the same
// command encoder. No implementation ships with Sonica today; this is
// the seam a font-rendering pass would hang off of.
type TextOverlay interface {
	Draw(encoder hal.CommandEncoder, target hal.TextureView, width, height uint32, uniforms analysis.FrameUniforms) error
}
