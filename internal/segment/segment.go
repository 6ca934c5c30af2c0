package segment

// Segment is one timed subtitle cue. Start and End are seconds from the
// beginning of the media. Translated is empty until a translation pass
// writes it; TranslationFailed marks cues whose batch exhausted every
// endpoint so the UI can flag untranslated lines.
type Segment struct {
	Index             int     `json:"index"`
	Start             float64 `json:"start"`
	End               float64 `json:"end"`
	Text              string  `json:"text"`
	Translated        string  `json:"translated,omitempty"`
	TranslationFailed bool    `json:"translation_failed,omitempty"`
}

// EffectiveText returns the translated text when present, else the
// original transcription text.
func (s Segment) EffectiveText() string {
	if s.Translated != "" {
		return s.Translated
	}
	return s.Text
}
