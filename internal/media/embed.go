package media

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// EmbedMode selects how subtitles are attached to the output media.
type EmbedMode string

const (
	// EmbedSoft muxes the subtitle as a selectable stream without
	// re-encoding video.
	EmbedSoft EmbedMode = "soft"
	// EmbedHard burns the subtitle into the video frames, re-encoding.
	EmbedHard EmbedMode = "hard"
)

// ParseEmbedMode validates a mode tag from a request.
func ParseEmbedMode(s string) (EmbedMode, error) {
	switch EmbedMode(strings.ToLower(strings.TrimSpace(s))) {
	case EmbedSoft:
		return EmbedSoft, nil
	case EmbedHard:
		return EmbedHard, nil
	default:
		return "", fmt.Errorf("unknown embed mode: %q", s)
	}
}

// Embedder attaches a subtitle file to media via ffmpeg. The source
// file is never modified; output goes to a derived sibling path.
type Embedder struct {
	ffmpegPath string
	runner     commandRunner
	stat       func(name string) (os.FileInfo, error)
}

// NewEmbedder constructs the production embedder.
func NewEmbedder(ffmpegPath string) *Embedder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &Embedder{
		ffmpegPath: ffmpegPath,
		runner:     execRunner{},
		stat:       os.Stat,
	}
}

// Embed attaches subtitlePath to sourcePath and returns the output
// path. langSuffix, when non-empty, becomes part of the output name
// ("movie_es_subtitled.mp4").
func (e *Embedder) Embed(ctx context.Context, sourcePath, subtitlePath string, mode EmbedMode, langSuffix string) (string, error) {
	if _, err := e.stat(sourcePath); err != nil {
		return "", &EmbeddingError{Path: sourcePath, Mode: mode, Message: "cannot access source file", Err: err}
	}
	if _, err := e.stat(subtitlePath); err != nil {
		return "", &EmbeddingError{Path: sourcePath, Mode: mode, Message: "cannot access subtitle file", Err: err}
	}

	outputPath := outputName(sourcePath, langSuffix)

	var args []string
	switch mode {
	case EmbedHard:
		args = []string{
			"-hide_banner", "-nostdin", "-y",
			"-i", sourcePath,
			"-vf", "subtitles=" + subtitlePath,
			"-c:a", "copy",
			outputPath,
		}
	case EmbedSoft:
		args = []string{
			"-hide_banner", "-nostdin", "-y",
			"-i", sourcePath,
			"-i", subtitlePath,
			"-c", "copy",
			"-c:s", subtitleCodecFor(outputPath),
			outputPath,
		}
	default:
		return "", &EmbeddingError{Path: sourcePath, Mode: mode, Message: "unknown embed mode"}
	}

	log.Printf("[media] embedding subtitles (%s): %s -> %s", mode, sourcePath, outputPath)
	result, err := e.runner.Run(ctx, e.ffmpegPath, args...)
	if err != nil {
		os.Remove(outputPath)
		return "", &EmbeddingError{Path: sourcePath, Mode: mode, Message: "ffmpeg failed", Stderr: result.Stderr, Err: err}
	}

	if fi, err := e.stat(outputPath); err != nil || fi.Size() == 0 {
		os.Remove(outputPath)
		return "", &EmbeddingError{Path: sourcePath, Mode: mode, Message: "ffmpeg completed but produced no output", Stderr: result.Stderr, Err: err}
	}

	return outputPath, nil
}

// outputName derives a new sibling path so the source is never
// overwritten: "movie.mp4" -> "movie_es_subtitled.mp4".
func outputName(sourcePath, langSuffix string) string {
	dir := filepath.Dir(sourcePath)
	base := filepath.Base(sourcePath)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if langSuffix != "" && langSuffix != "auto" {
		stem = stem + "_" + langSuffix
	}
	return filepath.Join(dir, stem+"_subtitled"+ext)
}

// subtitleCodecFor picks the mux codec by container. MP4-family
// containers need mov_text; Matroska and WebM carry SRT directly.
func subtitleCodecFor(outputPath string) string {
	switch strings.ToLower(filepath.Ext(outputPath)) {
	case ".mp4", ".m4v", ".mov":
		return "mov_text"
	default:
		return "srt"
	}
}
