package media

import "fmt"

// ExtractionError reports a failed audio extraction: unreadable input,
// missing audio stream, or a non-zero ffmpeg exit.
type ExtractionError struct {
	Path    string
	Message string
	Stderr  string
	Err     error
}

func (e *ExtractionError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("extract %s: %s: %s", e.Path, e.Message, firstLine(e.Stderr))
	}
	return fmt.Sprintf("extract %s: %s", e.Path, e.Message)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// EmbeddingError reports a failed subtitle mux or re-encode.
type EmbeddingError struct {
	Path    string
	Mode    EmbedMode
	Message string
	Stderr  string
	Err     error
}

func (e *EmbeddingError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("embed %s (%s): %s: %s", e.Path, e.Mode, e.Message, firstLine(e.Stderr))
	}
	return fmt.Sprintf("embed %s (%s): %s", e.Path, e.Mode, e.Message)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

func firstLine(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			return s[:i]
		}
	}
	return s
}
