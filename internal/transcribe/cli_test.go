package transcribe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func modelFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ggml-base.bin")
	if err := os.WriteFile(path, []byte("fake model"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// argValue returns the argument following flag, or "".
func argValue(args []string, flag string) string {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func TestCLIEngineTranscribe(t *testing.T) {
	model := modelFixture(t)
	engine := NewCLIEngine("whisper-cli", model)

	var gotArgs []string
	engine.runCommand = func(ctx context.Context, name string, args ...string) (string, error) {
		gotArgs = args
		srt := "1\n00:00:00,000 --> 00:00:01,500\nHello\n\n2\n00:00:01,500 --> 00:00:03,000\nWorld\n"
		return "", os.WriteFile(argValue(args, "-of")+".srt", []byte(srt), 0o644)
	}

	result, err := engine.Transcribe(context.Background(), Request{
		AudioPath: "/tmp/audio.wav",
		Language:  "en",
	}, func(float64) {})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}

	if argValue(gotArgs, "-m") != model {
		t.Errorf("-m = %q", argValue(gotArgs, "-m"))
	}
	if argValue(gotArgs, "-f") != "/tmp/audio.wav" {
		t.Errorf("-f = %q", argValue(gotArgs, "-f"))
	}
	if argValue(gotArgs, "-l") != "en" {
		t.Errorf("-l = %q", argValue(gotArgs, "-l"))
	}
	if !contains(gotArgs, "-osrt") {
		t.Errorf("missing -osrt: %v", gotArgs)
	}

	if len(result.Segments) != 2 || result.Segments[1].Text != "World" {
		t.Errorf("segments: %+v", result.Segments)
	}
}

func TestCLIEngineAutoLanguageOmitted(t *testing.T) {
	engine := NewCLIEngine("", modelFixture(t))
	engine.runCommand = func(ctx context.Context, name string, args ...string) (string, error) {
		if contains(args, "-l") {
			t.Errorf("-l passed for auto-detect: %v", args)
		}
		srt := "1\n00:00:00,000 --> 00:00:01,000\nhola\n"
		return "", os.WriteFile(argValue(args, "-of")+".srt", []byte(srt), 0o644)
	}

	if _, err := engine.Transcribe(context.Background(), Request{
		AudioPath: "/tmp/audio.wav",
		Language:  "auto",
	}, func(float64) {}); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
}

func TestCLIEngineMissingModel(t *testing.T) {
	engine := NewCLIEngine("", "/nonexistent/model.bin")
	_, err := engine.Transcribe(context.Background(), Request{AudioPath: "/tmp/audio.wav"}, func(float64) {})

	var transcribeErr *TranscriptionError
	if !errors.As(err, &transcribeErr) {
		t.Fatalf("want *TranscriptionError, got %v", err)
	}
	if !strings.Contains(transcribeErr.Message, "model") {
		t.Errorf("Message = %q", transcribeErr.Message)
	}
}

func TestCLIEngineProcessFailure(t *testing.T) {
	engine := NewCLIEngine("", modelFixture(t))
	engine.runCommand = func(ctx context.Context, name string, args ...string) (string, error) {
		return "error: unknown language 'xx'\n", fmt.Errorf("exit status 1")
	}

	_, err := engine.Transcribe(context.Background(), Request{
		AudioPath: "/tmp/audio.wav",
		Language:  "en",
	}, func(float64) {})

	var transcribeErr *TranscriptionError
	if !errors.As(err, &transcribeErr) {
		t.Fatalf("want *TranscriptionError, got %v", err)
	}
	if !strings.Contains(transcribeErr.Message, "unknown language") {
		t.Errorf("stderr not surfaced: %q", transcribeErr.Message)
	}
}

func contains(args []string, flag string) bool {
	for _, a := range args {
		if a == flag {
			return true
		}
	}
	return false
}
