package decode

import (
	"io"

	"github.com/jfreymuth/oggvorbis"
)

// vorbisDecoder decodes OGG/Vorbis via jfreymuth/oggvorbis, grounded on
// ik5-audpbx/formats/vorbis.Decoder.
type vorbisDecoder struct{}

type vorbisSource struct {
	dec      *oggvorbis.Reader
	frameBuf []float32
}

func (s *vorbisSource) SampleRate() int { return s.dec.SampleRate() }
func (s *vorbisSource) Channels() int   { return s.dec.Channels() }
func (s *vorbisSource) Close() error    { return nil }

func (s *vorbisSource) ReadSamples(dst []float32) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}
	channels := s.dec.Channels()
	framesRequested := len(dst) / channels
	if framesRequested == 0 {
		framesRequested = 1
	}
	needed := framesRequested * channels
	if cap(s.frameBuf) < needed {
		s.frameBuf = make([]float32, needed)
	}
	s.frameBuf = s.frameBuf[:needed]

	n, err := s.dec.Read(s.frameBuf)
	if n == 0 {
		if err != nil {
			return 0, err
		}
		return 0, nil
	}
	copy(dst, s.frameBuf[:n])
	return n, err
}

func (vorbisDecoder) Decode(r io.Reader) (Source, error) {
	dec, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, err
	}
	return &vorbisSource{dec: dec, frameBuf: make([]float32, 4096)}, nil
}
