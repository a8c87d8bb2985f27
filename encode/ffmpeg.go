// Package encode implements Sonica's Component G: the external
// encoder sink. Frames are piped to an ffmpeg child process over its
// standard input; ffmpeg itself remuxes audio from the original file.
package encode

import (
	"bytes"
	"fmt"
	"io"
	"os/exec"
	"strconv"

	"github.com/sonica/sonica/internal/sonicaerr"
)

// Options configures one encoder invocation.
type Options struct {
	OutputPath  string
	AudioPath   string
	Width       int
	Height      int
	FPS         int
	Codec       string
	PixFmt      string
	CRF         int
	Bitrate     string // overrides CRF when non-empty
	FFmpegPath  string // defaults to "ffmpeg"
}

// FFmpegEncoder drives an ffmpeg subprocess fed raw RGBA frames on
// stdin, grounded on the original FfmpegEncoder's argument list and
// child-process lifecycle.
type FFmpegEncoder struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr *bytes.Buffer
}

// New spawns ffmpeg with stdin piped for raw video frames and the
// original audio file bound as its second input.
func New(opts Options) (*FFmpegEncoder, error) {
	bin := opts.FFmpegPath
	if bin == "" {
		bin = "ffmpeg"
	}

	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", opts.Width, opts.Height),
		"-framerate", strconv.Itoa(opts.FPS),
		"-i", "pipe:0",
		"-i", opts.AudioPath,
		"-c:v", opts.Codec,
		"-pix_fmt", opts.PixFmt,
	}
	if opts.Bitrate != "" {
		args = append(args, "-b:v", opts.Bitrate)
	} else {
		args = append(args, "-crf", strconv.Itoa(opts.CRF), "-preset", "medium")
	}
	args = append(args,
		"-c:a", "aac",
		"-b:a", "192k",
		"-shortest",
		opts.OutputPath,
	)

	cmd := exec.Command(bin, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, sonicaerr.New(sonicaerr.KindEncode, fmt.Errorf("ffmpeg stdin pipe: %w", err))
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.Stdout = nil

	if err := cmd.Start(); err != nil {
		return nil, sonicaerr.New(sonicaerr.KindEncode, fmt.Errorf("spawn ffmpeg (is it installed?): %w", err))
	}

	return &FFmpegEncoder{cmd: cmd, stdin: stdin, stderr: &stderr}, nil
}

// WriteFrame writes one contiguous RGBA frame to ffmpeg's stdin. A
// broken pipe (ffmpeg having died) is reported as KindEncoderGone
// rather than a generic write error.
func (e *FFmpegEncoder) WriteFrame(rgba []byte) error {
	_, err := e.stdin.Write(rgba)
	if err != nil {
		if isBrokenPipe(err) {
			return sonicaerr.New(sonicaerr.KindEncoderGone, fmt.Errorf("ffmpeg closed its stdin: %w", err))
		}
		return sonicaerr.New(sonicaerr.KindEncode, fmt.Errorf("write frame: %w", err))
	}
	return nil
}

// Finish closes stdin, waits for ffmpeg to exit, and checks its exit
// status.
func (e *FFmpegEncoder) Finish() error {
	if err := e.stdin.Close(); err != nil && !isBrokenPipe(err) {
		return sonicaerr.New(sonicaerr.KindEncode, fmt.Errorf("close ffmpeg stdin: %w", err))
	}
	if err := e.cmd.Wait(); err != nil {
		return sonicaerr.New(sonicaerr.KindEncode, fmt.Errorf("ffmpeg exited with an error:\n%s", e.stderr.String()))
	}
	return nil
}

// Abort kills the ffmpeg child immediately, used when an upstream
// stage fails mid-stream.
func (e *FFmpegEncoder) Abort() {
	_ = e.stdin.Close()
	if e.cmd.Process != nil {
		_ = e.cmd.Process.Kill()
	}
	_ = e.cmd.Wait()
}

func isBrokenPipe(err error) bool {
	return err == io.ErrClosedPipe || err.Error() == "broken pipe" ||
		bytes.Contains([]byte(err.Error()), []byte("broken pipe")) ||
		bytes.Contains([]byte(err.Error()), []byte("epipe"))
}
