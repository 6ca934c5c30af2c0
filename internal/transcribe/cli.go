package transcribe

import (
	"bytes"
	"context"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/subgen/backend/internal/language"
	"github.com/subgen/backend/internal/subtitle"
)

// CLIEngine runs a local whisper.cpp binary. Useful when no
// whisper-server is deployed; the binary writes an SRT transcript next
// to a temp base path which is parsed and removed.
type CLIEngine struct {
	binaryPath string
	modelPath  string
	runCommand func(ctx context.Context, name string, args ...string) (string, error)
}

// NewCLIEngine creates the whisper.cpp CLI engine. modelPath must
// point at a ggml/gguf model file.
func NewCLIEngine(binaryPath, modelPath string) *CLIEngine {
	if binaryPath == "" {
		binaryPath = "whisper-cli"
	}
	return &CLIEngine{
		binaryPath: binaryPath,
		modelPath:  modelPath,
		runCommand: runExec,
	}
}

func (e *CLIEngine) Name() string { return "whisper-cli" }

// Transcribe runs the binary and parses the SRT it writes. Progress is
// indeterminate for the CLI engine: only start and end are reported.
func (e *CLIEngine) Transcribe(ctx context.Context, req Request, progress func(float64)) (*Result, error) {
	if e.modelPath == "" {
		return nil, &TranscriptionError{Engine: e.Name(), Message: "model path not configured"}
	}
	if _, err := os.Stat(e.modelPath); err != nil {
		return nil, &TranscriptionError{Engine: e.Name(), Message: "cannot access model file: " + e.modelPath, Err: err}
	}

	tempDir, err := os.MkdirTemp("", "subgen-whisper-*")
	if err != nil {
		return nil, &TranscriptionError{Engine: e.Name(), Message: "create temp workspace", Err: err}
	}
	defer os.RemoveAll(tempDir)
	outBase := filepath.Join(tempDir, "transcript")

	args := []string{
		"-m", e.modelPath,
		"-f", req.AudioPath,
		"-of", outBase,
		"-osrt",
	}
	if req.Language != "" && req.Language != language.Auto {
		args = append(args, "-l", req.Language)
	}

	progress(0.05)
	log.Printf("[transcribe] running %s (audio: %s)", e.binaryPath, req.AudioPath)

	stderr, err := e.runCommand(ctx, e.binaryPath, args...)
	if err != nil {
		return nil, &TranscriptionError{Engine: e.Name(), Message: "whisper.cpp failed: " + strings.TrimSpace(stderr), Err: err}
	}

	srtPath := outBase + ".srt"
	content, err := os.ReadFile(srtPath)
	if err != nil {
		return nil, &TranscriptionError{Engine: e.Name(), Message: "transcript file missing after run", Err: err}
	}

	segments := subtitle.ParseSRT(string(content))
	if len(segments) == 0 {
		return nil, &TranscriptionError{Engine: e.Name(), Message: "engine produced no segments"}
	}

	progress(1.0)
	return &Result{Segments: segments, Language: req.Language}, nil
}

func runExec(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stderr.String(), err
}
