package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type fakeCall struct {
	name string
	args []string
}

type fakeRunner struct {
	calls   []fakeCall
	handler func(name string, args []string) (commandResult, error)
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) (commandResult, error) {
	f.calls = append(f.calls, fakeCall{name: name, args: args})
	return f.handler(name, args)
}

const probeJSONWithAudio = `{
	"format": {"duration": "3600.5", "size": "1048576"},
	"streams": [
		{"index": 0, "codec_name": "h264", "codec_type": "video", "width": 1920, "height": 1080},
		{"index": 1, "codec_name": "aac", "codec_type": "audio", "channels": 2}
	]
}`

const probeJSONVideoOnly = `{
	"format": {"duration": "10.0", "size": "2048"},
	"streams": [{"index": 0, "codec_name": "h264", "codec_type": "video"}]
}`

const probeJSONAudioOnly = `{
	"format": {"duration": "42.0", "size": "4096"},
	"streams": [{"index": 0, "codec_name": "pcm_s16le", "codec_type": "audio", "channels": 1}]
}`

func newTestExtractor(runner *fakeRunner) *Extractor {
	x := NewExtractor("ffmpeg", "ffprobe")
	x.runner = runner
	return x
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestExtractAudio(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "movie.mkv")
	touch(t, source)

	runner := &fakeRunner{handler: func(name string, args []string) (commandResult, error) {
		if name == "ffprobe" {
			return commandResult{Stdout: probeJSONWithAudio}, nil
		}
		// ffmpeg writes the output file named by the last argument.
		touch(t, args[len(args)-1])
		return commandResult{}, nil
	}}
	x := newTestExtractor(runner)

	wavPath, err := x.ExtractAudio(context.Background(), source)
	if err != nil {
		t.Fatalf("ExtractAudio: %v", err)
	}
	defer x.CleanupAudio(wavPath)

	if filepath.Base(wavPath) != "audio-16k-mono.wav" {
		t.Errorf("wavPath = %q", wavPath)
	}
	if _, err := os.Stat(wavPath); err != nil {
		t.Errorf("output file missing: %v", err)
	}

	if len(runner.calls) != 2 {
		t.Fatalf("got %d process calls, want 2 (probe + convert)", len(runner.calls))
	}
	ffmpegArgs := strings.Join(runner.calls[1].args, " ")
	for _, want := range []string{"-vn", "-acodec pcm_s16le", "-ar 16000", "-ac 1"} {
		if !strings.Contains(ffmpegArgs, want) {
			t.Errorf("ffmpeg args missing %q: %s", want, ffmpegArgs)
		}
	}
}

func TestExtractAudioWavPassthrough(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "recording.wav")
	touch(t, source)

	runner := &fakeRunner{handler: func(name string, args []string) (commandResult, error) {
		if name != "ffprobe" {
			t.Errorf("unexpected %s call for WAV source", name)
		}
		return commandResult{Stdout: probeJSONAudioOnly}, nil
	}}
	x := newTestExtractor(runner)

	wavPath, err := x.ExtractAudio(context.Background(), source)
	if err != nil {
		t.Fatalf("ExtractAudio: %v", err)
	}
	if wavPath != source {
		t.Errorf("wavPath = %q, want passthrough of %q", wavPath, source)
	}

	// Cleanup must never touch a passed-through source.
	x.CleanupAudio(wavPath)
	if _, err := os.Stat(source); err != nil {
		t.Errorf("source removed by cleanup: %v", err)
	}
}

func TestExtractAudioNoAudioStream(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "silent.mp4")
	touch(t, source)

	runner := &fakeRunner{handler: func(name string, args []string) (commandResult, error) {
		return commandResult{Stdout: probeJSONVideoOnly}, nil
	}}
	x := newTestExtractor(runner)

	_, err := x.ExtractAudio(context.Background(), source)
	var extractErr *ExtractionError
	if !errors.As(err, &extractErr) {
		t.Fatalf("want *ExtractionError, got %v", err)
	}
	if !strings.Contains(extractErr.Message, "no audio stream") {
		t.Errorf("Message = %q", extractErr.Message)
	}
}

func TestExtractAudioMissingSource(t *testing.T) {
	runner := &fakeRunner{handler: func(name string, args []string) (commandResult, error) {
		t.Error("no process should run for a missing source")
		return commandResult{}, nil
	}}
	x := newTestExtractor(runner)

	_, err := x.ExtractAudio(context.Background(), "/nonexistent/file.mp4")
	var extractErr *ExtractionError
	if !errors.As(err, &extractErr) {
		t.Fatalf("want *ExtractionError, got %v", err)
	}
}

func TestExtractAudioFfmpegFailure(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "movie.mkv")
	touch(t, source)

	runner := &fakeRunner{handler: func(name string, args []string) (commandResult, error) {
		if name == "ffprobe" {
			return commandResult{Stdout: probeJSONWithAudio}, nil
		}
		return commandResult{Stderr: "Invalid data found", ExitCode: 1}, fmt.Errorf("exit status 1")
	}}
	x := newTestExtractor(runner)

	_, err := x.ExtractAudio(context.Background(), source)
	var extractErr *ExtractionError
	if !errors.As(err, &extractErr) {
		t.Fatalf("want *ExtractionError, got %v", err)
	}
	if extractErr.Stderr != "Invalid data found" {
		t.Errorf("Stderr = %q", extractErr.Stderr)
	}
}

func TestProbe(t *testing.T) {
	runner := &fakeRunner{handler: func(name string, args []string) (commandResult, error) {
		return commandResult{Stdout: probeJSONWithAudio}, nil
	}}
	x := newTestExtractor(runner)

	info, err := x.Probe(context.Background(), "/media/movie.mkv")
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}

	if info.Duration != 3600.5 {
		t.Errorf("Duration = %v", info.Duration)
	}
	if info.SizeBytes != 1048576 {
		t.Errorf("SizeBytes = %v", info.SizeBytes)
	}
	if !info.HasAudio || !info.HasVideo {
		t.Errorf("HasAudio=%v HasVideo=%v", info.HasAudio, info.HasVideo)
	}
	if info.AudioCodec != "aac" || info.VideoCodec != "h264" {
		t.Errorf("codecs: %q / %q", info.AudioCodec, info.VideoCodec)
	}
	if len(info.Streams) != 2 {
		t.Errorf("Streams = %d", len(info.Streams))
	}
}

func TestCleanupAudioRemovesTempDir(t *testing.T) {
	dir, err := os.MkdirTemp("", "subgen-audio-*")
	if err != nil {
		t.Fatal(err)
	}
	wavPath := filepath.Join(dir, "audio-16k-mono.wav")
	touch(t, wavPath)

	x := NewExtractor("", "")
	x.CleanupAudio(wavPath)

	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("temp dir still present: %v", err)
	}
}
