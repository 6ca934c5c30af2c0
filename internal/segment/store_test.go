package segment

import (
	"errors"
	"testing"
)

func testSegments() []Segment {
	return []Segment{
		{Start: 0, End: 1.5, Text: "Hello"},
		{Start: 1.5, End: 3, Text: "World"},
		{Start: 3, End: 4, Text: "Goodbye"},
	}
}

func TestReplaceAllAssignsDenseIndices(t *testing.T) {
	s := NewStore()
	input := testSegments()
	input[0].Index = 7
	input[2].Index = 99

	if err := s.ReplaceAll(input); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}

	for i, seg := range s.Segments() {
		if seg.Index != i {
			t.Errorf("segment %d has index %d", i, seg.Index)
		}
	}
	if s.Len() != 3 {
		t.Errorf("Len = %d, want 3", s.Len())
	}
}

func TestReplaceAllRejectsInvertedTimes(t *testing.T) {
	s := NewStore()
	err := s.ReplaceAll([]Segment{{Start: 2, End: 1, Text: "bad"}})
	if err == nil {
		t.Fatal("expected error for end before start")
	}
}

func TestReplaceAllCopiesInput(t *testing.T) {
	s := NewStore()
	input := testSegments()
	if err := s.ReplaceAll(input); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}

	input[0].Text = "mutated"
	got, err := s.Get(0)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Text != "Hello" {
		t.Errorf("store shares backing array with caller: %q", got.Text)
	}
}

func TestSegmentsSnapshotIsolation(t *testing.T) {
	s := NewStore()
	if err := s.ReplaceAll(testSegments()); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}

	snap := s.Segments()
	snap[1].Text = "mutated"

	got, err := s.Get(1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Text != "World" {
		t.Errorf("snapshot aliases store contents: %q", got.Text)
	}
}

func TestEditTextTargetsTranslation(t *testing.T) {
	s := NewStore()
	if err := s.ReplaceAll(testSegments()); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}

	// No translation yet: edit the source text.
	if err := s.EditText(0, "Hi"); err != nil {
		t.Fatalf("EditText: %v", err)
	}
	got, _ := s.Get(0)
	if got.Text != "Hi" {
		t.Errorf("Text = %q, want %q", got.Text, "Hi")
	}

	// With a translation, the edit lands on the translated text.
	if err := s.SetTranslation(1, "Mundo"); err != nil {
		t.Fatalf("SetTranslation: %v", err)
	}
	if err := s.EditText(1, "Mundo!"); err != nil {
		t.Fatalf("EditText: %v", err)
	}
	got, _ = s.Get(1)
	if got.Translated != "Mundo!" {
		t.Errorf("Translated = %q, want %q", got.Translated, "Mundo!")
	}
	if got.Text != "World" {
		t.Errorf("source text changed: %q", got.Text)
	}
}

func TestEditTextOutOfRange(t *testing.T) {
	s := NewStore()
	if err := s.ReplaceAll(testSegments()); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}
	for _, index := range []int{-1, 3} {
		if err := s.EditText(index, "x"); !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("EditText(%d): %v, want ErrIndexOutOfRange", index, err)
		}
	}
}

func TestSetTranslationClearsFailureFlag(t *testing.T) {
	s := NewStore()
	if err := s.ReplaceAll(testSegments()); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}

	if err := s.MarkTranslationFailed(0); err != nil {
		t.Fatalf("MarkTranslationFailed: %v", err)
	}
	got, _ := s.Get(0)
	if !got.TranslationFailed {
		t.Fatal("segment not flagged")
	}
	if got.Text != "Hello" {
		t.Errorf("flagged segment lost original text: %q", got.Text)
	}

	if err := s.SetTranslation(0, "Hola"); err != nil {
		t.Fatalf("SetTranslation: %v", err)
	}
	got, _ = s.Get(0)
	if got.TranslationFailed {
		t.Error("failure flag not cleared by successful translation")
	}
	if got.EffectiveText() != "Hola" {
		t.Errorf("EffectiveText = %q, want %q", got.EffectiveText(), "Hola")
	}
}

func TestClear(t *testing.T) {
	s := NewStore()
	if err := s.ReplaceAll(testSegments()); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}
	s.Clear()
	if s.Len() != 0 {
		t.Errorf("Len = %d after Clear", s.Len())
	}
}
