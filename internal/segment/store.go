package segment

import (
	"errors"
	"fmt"
	"sync"
)

// ErrIndexOutOfRange is returned when an operation references a segment
// index that does not exist in the store.
var ErrIndexOutOfRange = errors.New("segment index out of range")

// Store is the canonical ordered collection of segments for the active
// job. The pipeline worker mutates it while API handlers read it for
// display; every method is a short critical section and readers get
// value copies, never references into the backing slice.
type Store struct {
	mu       sync.RWMutex
	segments []Segment
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// ReplaceAll clears the store and loads a fresh ordered sequence.
// Indices are reassigned densely from 0 in input order; a segment with
// end < start is rejected.
func (s *Store) ReplaceAll(segments []Segment) error {
	for i, seg := range segments {
		if seg.End < seg.Start {
			return fmt.Errorf("segment %d: end %.3f before start %.3f", i, seg.End, seg.Start)
		}
	}

	copied := make([]Segment, len(segments))
	copy(copied, segments)
	for i := range copied {
		copied[i].Index = i
	}

	s.mu.Lock()
	s.segments = copied
	s.mu.Unlock()
	return nil
}

// Clear removes every segment. Called at the start of each new job.
func (s *Store) Clear() {
	s.mu.Lock()
	s.segments = nil
	s.mu.Unlock()
}

// Get returns a copy of the segment at index.
func (s *Store) Get(index int) (Segment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if index < 0 || index >= len(s.segments) {
		return Segment{}, fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	return s.segments[index], nil
}

// EditText replaces the display text of one segment. When the segment
// carries a translation the edit targets the translated text, since
// that is what the user sees and what export renders.
func (s *Store) EditText(index int, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.segments) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	if s.segments[index].Translated != "" {
		s.segments[index].Translated = text
	} else {
		s.segments[index].Text = text
	}
	return nil
}

// SetTranslation records the translated text for one segment and
// clears any failure flag from an earlier attempt.
func (s *Store) SetTranslation(index int, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.segments) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	s.segments[index].Translated = text
	s.segments[index].TranslationFailed = false
	return nil
}

// MarkTranslationFailed flags a segment whose batch exhausted all
// endpoints. The original text stays in place.
func (s *Store) MarkTranslationFailed(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.segments) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	s.segments[index].TranslationFailed = true
	return nil
}

// Segments returns a consistent snapshot copy of the ordered sequence.
func (s *Store) Segments() []Segment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Segment, len(s.segments))
	copy(out, s.segments)
	return out
}

// Len returns the number of segments.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.segments)
}
