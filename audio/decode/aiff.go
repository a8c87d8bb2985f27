package decode

import (
	"fmt"
	"io"

	"github.com/go-audio/aiff"
)

// aiffDecoder decodes AIFF containers via go-audio/aiff, the decoder
// ik5-audpbx/formats/aiff wraps for the same purpose.
type aiffDecoder struct{}

func (aiffDecoder) Decode(r io.Reader) (Source, error) {
	rs, ok := r.(io.ReadSeeker)
	if !ok {
		return nil, fmt.Errorf("aiff: reader must support seeking")
	}
	dec := aiff.NewDecoder(rs)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("not a valid AIFF file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode aiff: %w", err)
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, fmt.Errorf("invalid aiff buffer")
	}
	floatBuf := buf.AsFloatBuffer()
	data := make([]float32, len(floatBuf.Data))
	peak := float64(1 << (uint(buf.SourceBitDepth) - 1))
	for i, v := range floatBuf.Data {
		data[i] = float32(v / peak)
	}
	return &wavSource{
		data:     data,
		sr:       buf.Format.SampleRate,
		channels: buf.Format.NumChannels,
	}, nil
}
