package media

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// Extractor produces a decoded mono 16 kHz WAV from any media file the
// transcoder can read. It runs ffmpeg as an interruptible external
// process: cancelling the context terminates it.
type Extractor struct {
	ffmpegPath  string
	ffprobePath string
	runner      commandRunner
	mkdirTemp   func(dir, pattern string) (string, error)
	stat        func(name string) (os.FileInfo, error)
}

// NewExtractor constructs the production extractor. Empty paths fall
// back to binaries on PATH.
func NewExtractor(ffmpegPath, ffprobePath string) *Extractor {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Extractor{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		runner:      execRunner{},
		mkdirTemp:   os.MkdirTemp,
		stat:        os.Stat,
	}
}

// ExtractAudio decodes the source's audio track to a temporary WAV
// file (mono, 16 kHz, pcm_s16le — the layout speech models expect) and
// returns its path. The caller owns the temp directory containing the
// file and removes it via CleanupAudio.
func (x *Extractor) ExtractAudio(ctx context.Context, sourcePath string) (string, error) {
	if _, err := x.stat(sourcePath); err != nil {
		return "", &ExtractionError{Path: sourcePath, Message: "cannot access source file", Err: err}
	}

	info, err := x.Probe(ctx, sourcePath)
	if err != nil {
		return "", err
	}
	if !info.HasAudio {
		return "", &ExtractionError{Path: sourcePath, Message: "no audio stream in source"}
	}

	// Audio-only WAV sources go to the engine untouched.
	if !info.HasVideo && strings.EqualFold(filepath.Ext(sourcePath), ".wav") {
		return sourcePath, nil
	}

	tempDir, err := x.mkdirTemp("", "subgen-audio-*")
	if err != nil {
		return "", &ExtractionError{Path: sourcePath, Message: "create temp workspace", Err: err}
	}
	wavPath := filepath.Join(tempDir, "audio-16k-mono.wav")

	log.Printf("[media] extracting audio: %s", sourcePath)
	result, err := x.runner.Run(ctx, x.ffmpegPath,
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", sourcePath,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", "16000",
		"-ac", "1",
		wavPath,
	)
	if err != nil {
		os.RemoveAll(tempDir)
		return "", &ExtractionError{Path: sourcePath, Message: "ffmpeg audio conversion failed", Stderr: result.Stderr, Err: err}
	}

	if fi, err := x.stat(wavPath); err != nil || fi.Size() == 0 {
		os.RemoveAll(tempDir)
		return "", &ExtractionError{Path: sourcePath, Message: "ffmpeg completed but produced no audio", Stderr: result.Stderr, Err: err}
	}

	return wavPath, nil
}

// CleanupAudio removes the temp directory created by ExtractAudio. It
// is a no-op for passed-through source files.
func (x *Extractor) CleanupAudio(wavPath string) {
	if wavPath == "" {
		return
	}
	dir := filepath.Dir(wavPath)
	if strings.HasPrefix(filepath.Base(dir), "subgen-audio-") {
		os.RemoveAll(dir)
	}
}
