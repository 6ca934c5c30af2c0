// Package subtitle serializes segment collections to subtitle
// interchange formats and parses them back.
package subtitle

import (
	"fmt"
	"math"
	"strings"

	"github.com/subgen/backend/internal/segment"
)

// Format tags accepted by Export.
const (
	FormatSRT = "srt"
	FormatVTT = "vtt"
)

// ExportError reports an unsupported format tag. Segment content is
// always renderable, so this is the only export failure.
type ExportError struct {
	Format string
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("unsupported subtitle format: %q", e.Format)
}

// Export serializes segments to the given format. Cue numbers are
// renumbered densely from 1 regardless of internal indices, and the
// rendered text is the translated text when present. Output is
// deterministic: identical input yields byte-identical output.
func Export(segments []segment.Segment, format string) (string, error) {
	switch format {
	case FormatSRT:
		return exportSRT(segments), nil
	case FormatVTT:
		return exportVTT(segments), nil
	default:
		return "", &ExportError{Format: format}
	}
}

func exportSRT(segments []segment.Segment) string {
	blocks := make([]string, len(segments))
	for i, seg := range segments {
		blocks[i] = fmt.Sprintf("%d\n%s --> %s\n%s\n",
			i+1, formatTimestamp(seg.Start, ','), formatTimestamp(seg.End, ','), seg.EffectiveText())
	}
	return strings.Join(blocks, "\n")
}

func exportVTT(segments []segment.Segment) string {
	blocks := make([]string, len(segments))
	for i, seg := range segments {
		blocks[i] = fmt.Sprintf("%d\n%s --> %s\n%s\n",
			i+1, formatTimestamp(seg.Start, '.'), formatTimestamp(seg.End, '.'), escapeVTT(seg.EffectiveText()))
	}
	return "WEBVTT\n\n" + strings.Join(blocks, "\n")
}

// formatTimestamp renders seconds as HH:MM:SS<sep>mmm with unbounded
// hours. Milliseconds are rounded, not truncated.
func formatTimestamp(seconds float64, sep byte) string {
	if seconds < 0 {
		seconds = 0
	}
	totalMs := int64(math.Round(seconds * 1000))
	h := totalMs / 3600000
	totalMs %= 3600000
	m := totalMs / 60000
	totalMs %= 60000
	s := totalMs / 1000
	ms := totalMs % 1000
	return fmt.Sprintf("%02d:%02d:%02d%c%03d", h, m, s, sep, ms)
}

// WebVTT cue payloads must not contain a raw "-->" and treat & and <
// as markup. Escaping > as well keeps the arrow impossible.
var vttEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

var vttUnescaper = strings.NewReplacer("&lt;", "<", "&gt;", ">", "&amp;", "&")

func escapeVTT(text string) string {
	return vttEscaper.Replace(text)
}

func unescapeVTT(text string) string {
	return vttUnescaper.Replace(text)
}
