package encode

import (
	"errors"
	"testing"

	"github.com/sonica/sonica/internal/sonicaerr"
)

func TestNewBuildsArgsWithCRFWhenNoBitrate(t *testing.T) {
	e, err := New(Options{
		OutputPath: "out.mp4",
		AudioPath:  "in.wav",
		Width:      64, Height: 64, FPS: 30,
		Codec: "libx264", PixFmt: "yuv420p", CRF: 18,
		FFmpegPath: "true", // stand-in binary that exits 0 immediately
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := e.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	foundCRF := false
	for i, a := range e.cmd.Args {
		if a == "-crf" && i+1 < len(e.cmd.Args) && e.cmd.Args[i+1] == "18" {
			foundCRF = true
		}
		if a == "-b:v" {
			t.Errorf("unexpected -b:v without a bitrate: %v", e.cmd.Args)
		}
	}
	if !foundCRF {
		t.Errorf("expected -crf 18 in args, got %v", e.cmd.Args)
	}
}

func TestNewFailsWhenBinaryMissing(t *testing.T) {
	_, err := New(Options{
		OutputPath: "out.mp4",
		AudioPath:  "in.wav",
		Width:      64, Height: 64, FPS: 30,
		Codec: "libx264", PixFmt: "yuv420p", CRF: 18,
		FFmpegPath: "/nonexistent/definitely-not-ffmpeg",
	})
	if err == nil {
		t.Fatal("expected an error when the encoder binary does not exist")
	}
	var serr *sonicaerr.Error
	if !errors.As(err, &serr) {
		t.Fatalf("expected a sonicaerr.Error, got %T", err)
	}
	if serr.Kind != sonicaerr.KindEncode {
		t.Errorf("expected KindEncode, got %v", serr.Kind)
	}
}

func TestFinishReportsNonZeroExit(t *testing.T) {
	e, err := New(Options{
		OutputPath: "out.mp4",
		AudioPath:  "in.wav",
		Width:      64, Height: 64, FPS: 30,
		Codec: "libx264", PixFmt: "yuv420p", CRF: 18,
		FFmpegPath: "false", // stand-in binary that exits 1
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := e.Finish(); err == nil {
		t.Fatal("expected Finish to report a non-zero exit status")
	}
}
