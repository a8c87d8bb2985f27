// Package decode implements Sonica's Component A: demux/decode an audio
// container to an interleaved mono float32 PCM stream plus its sample
// rate.
package decode

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sonica/sonica/internal/sonicaerr"
)

// Source is a decoded, not-yet-downmixed PCM stream. Implementations
// read interleaved float32 samples in [-1, 1].
type Source interface {
	SampleRate() int
	Channels() int
	// ReadSamples fills dst with interleaved samples, returning the
	// count written. n == 0 with err == io.EOF means the stream ended.
	ReadSamples(dst []float32) (n int, err error)
	Close() error
}

// Decoder constructs a Source from an open file.
type Decoder interface {
	Decode(r io.Reader) (Source, error)
}

// Registry maps a file extension (without the dot, lowercase) to the
// Decoder responsible for it.
type Registry struct {
	mtx     sync.Mutex
	codecs  map[string]Decoder
}

func NewRegistry() *Registry {
	return &Registry{codecs: make(map[string]Decoder)}
}

func (r *Registry) Register(ext string, d Decoder) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.codecs[ext] = d
}

func (r *Registry) Get(ext string) (Decoder, bool) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	d, ok := r.codecs[ext]
	return d, ok
}

// Default is the registry populated with Sonica's built-in decoders.
func Default() *Registry {
	r := NewRegistry()
	r.Register("wav", wavDecoder{})
	r.Register("aif", aiffDecoder{})
	r.Register("aiff", aiffDecoder{})
	r.Register("mp3", mp3Decoder{})
	r.Register("ogg", vorbisDecoder{})
	return r
}

// Result is the fully decoded, mono-downmixed stream ready for analysis.
type Result struct {
	PCM        []float32
	SampleRate int
}

// File decodes the audio container at path, downmixing to mono on the
// fly. Format dispatch is by file extension; an unrecognized extension,
// a missing audio track, or an unrecoverable decode error all surface
// as sonicaerr.KindDecode.
func File(path string) (*Result, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))

	dec, ok := Default().Get(ext)
	if !ok {
		return nil, sonicaerr.WithPath(sonicaerr.KindDecode, path,
			fmt.Errorf("unrecognized container extension %q", ext))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, sonicaerr.WithPath(sonicaerr.KindDecode, path, err)
	}
	defer f.Close()

	src, err := dec.Decode(f)
	if err != nil {
		return nil, sonicaerr.WithPath(sonicaerr.KindDecode, path, err)
	}
	defer src.Close()

	if src.Channels() < 1 {
		return nil, sonicaerr.WithPath(sonicaerr.KindDecode, path,
			fmt.Errorf("no audio track"))
	}

	mono := newMonoMixer(src)

	const chunkFrames = 8192
	buf := make([]float32, chunkFrames)
	pcm := make([]float32, 0, chunkFrames*8)
	for {
		n, err := mono.ReadSamples(buf)
		if n > 0 {
			pcm = append(pcm, buf[:n]...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, sonicaerr.WithPath(sonicaerr.KindDecode, path, err)
		}
		if n == 0 {
			break
		}
	}

	if len(pcm) == 0 {
		return nil, sonicaerr.WithPath(sonicaerr.KindDecode, path,
			fmt.Errorf("zero-length decoded stream"))
	}

	return &Result{PCM: pcm, SampleRate: src.SampleRate()}, nil
}
