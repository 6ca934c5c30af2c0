package subtitle

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/subgen/backend/internal/segment"
)

var timestampRe = regexp.MustCompile(`(\d{2,}):(\d{2}):(\d{2})[.,](\d{3})\s*-->\s*(\d{2,}):(\d{2}):(\d{2})[.,](\d{3})`)

// ParseSRT parses SRT content into ordered segments. Cue numbers in
// the input are ignored; indices are assigned by appearance order.
func ParseSRT(content string) []segment.Segment {
	return parseCues(content, false)
}

// ParseVTT parses WebVTT content into ordered segments. The WEBVTT
// header and optional cue identifiers are skipped and cue text is
// unescaped.
func ParseVTT(content string) []segment.Segment {
	return parseCues(content, true)
}

func parseCues(content string, vtt bool) []segment.Segment {
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")

	var segments []segment.Segment
	var current *segment.Segment

	flush := func() {
		if current != nil && current.Text != "" {
			current.Index = len(segments)
			segments = append(segments, *current)
		}
		current = nil
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if trimmed == "" || trimmed == "WEBVTT" || strings.HasPrefix(trimmed, "WEBVTT ") {
			flush()
			continue
		}

		if m := timestampRe.FindStringSubmatch(trimmed); m != nil {
			flush()
			current = &segment.Segment{
				Start: timestampSeconds(m[1], m[2], m[3], m[4]),
				End:   timestampSeconds(m[5], m[6], m[7], m[8]),
			}
			continue
		}

		// A bare number before a timestamp line is a cue identifier.
		if current == nil {
			if _, err := strconv.Atoi(trimmed); err == nil {
				continue
			}
			// VTT NOTE blocks and other non-cue lines.
			continue
		}

		text := line
		if vtt {
			text = unescapeVTT(text)
		}
		if current.Text != "" {
			current.Text += "\n"
		}
		current.Text += text
	}
	flush()

	return segments
}

func timestampSeconds(h, m, s, ms string) float64 {
	hi, _ := strconv.Atoi(h)
	mi, _ := strconv.Atoi(m)
	si, _ := strconv.Atoi(s)
	msi, _ := strconv.Atoi(ms)
	return float64(hi*3600+mi*60+si) + float64(msi)/1000.0
}
