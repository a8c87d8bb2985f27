package decode

import (
	"fmt"
	"io"

	"github.com/cwbudde/wav"
)

// wavDecoder decodes a WAV container by loading it fully via
// github.com/cwbudde/wav, the teacher's own WAV dependency, mirroring
// piano.SoundboardConvolver.SetIRFromWAV's decode idiom.
type wavDecoder struct{}

type wavSource struct {
	data     []float32
	pos      int
	sr       int
	channels int
}

func (s *wavSource) SampleRate() int { return s.sr }
func (s *wavSource) Channels() int   { return s.channels }
func (s *wavSource) Close() error    { return nil }

func (s *wavSource) ReadSamples(dst []float32) (int, error) {
	if s.pos >= len(s.data) {
		return 0, io.EOF
	}
	n := copy(dst, s.data[s.pos:])
	s.pos += n
	return n, nil
}

func (wavDecoder) Decode(r io.Reader) (Source, error) {
	rs, ok := r.(io.ReadSeeker)
	if !ok {
		return nil, fmt.Errorf("wav: reader must support seeking")
	}
	dec := wav.NewDecoder(rs)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("not a valid WAV file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, fmt.Errorf("invalid wav buffer")
	}
	return &wavSource{
		data:     buf.Data,
		sr:       buf.Format.SampleRate,
		channels: buf.Format.NumChannels,
	}, nil
}
