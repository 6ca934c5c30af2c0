package translate

import "testing"

func newTestPool(urls []string, unreachableAfter int) *Pool {
	endpoints := make([]Endpoint, len(urls))
	for i, u := range urls {
		endpoints[i] = Endpoint{BaseURL: u}
	}
	return NewPool(endpoints, unreachableAfter)
}

func TestCandidatesRotateFromPreferred(t *testing.T) {
	p := newTestPool([]string{"a", "b", "c"}, 3)

	got := p.candidates()
	if len(got) != 3 || got[0].BaseURL != "a" {
		t.Fatalf("initial candidates wrong: %v", urls(got))
	}

	// Failing the preferred endpoint moves preference to the next one.
	p.markFailure(got[0])
	got = p.candidates()
	if got[0].BaseURL != "b" {
		t.Errorf("preferred after failure = %q, want %q", got[0].BaseURL, "b")
	}
	if len(got) != 3 {
		t.Errorf("degraded endpoint dropped from rotation: %v", urls(got))
	}
}

func TestUnreachableAfterConsecutiveFailures(t *testing.T) {
	p := newTestPool([]string{"a", "b"}, 3)
	entry := p.candidates()[0]

	p.markFailure(entry)
	p.markFailure(entry)
	if st := p.Statuses()[0].Health; st != Degraded {
		t.Fatalf("after 2 failures: %v, want %v", st, Degraded)
	}

	p.markFailure(entry)
	if st := p.Statuses()[0].Health; st != Unreachable {
		t.Fatalf("after 3 failures: %v, want %v", st, Unreachable)
	}

	for _, c := range p.candidates() {
		if c.BaseURL == "a" {
			t.Error("unreachable endpoint still offered as candidate")
		}
	}

	// Unreachable is permanent for the pool's lifetime.
	p.markSuccess(entry)
	if st := p.Statuses()[0].Health; st != Unreachable {
		t.Errorf("markSuccess revived unreachable endpoint: %v", st)
	}
}

func TestMarkSuccessResetsStreak(t *testing.T) {
	p := newTestPool([]string{"a"}, 3)
	entry := p.candidates()[0]

	p.markFailure(entry)
	p.markFailure(entry)
	p.markSuccess(entry)
	if st := p.Statuses()[0].Health; st != Healthy {
		t.Fatalf("health after recovery: %v, want %v", st, Healthy)
	}

	// The streak starts over; two more failures stay short of the
	// threshold.
	p.markFailure(entry)
	p.markFailure(entry)
	if st := p.Statuses()[0].Health; st != Degraded {
		t.Errorf("streak not reset: %v, want %v", st, Degraded)
	}
}

func TestAllUnreachable(t *testing.T) {
	p := newTestPool([]string{"a", "b"}, 1)
	if p.AllUnreachable() {
		t.Fatal("fresh pool reported all unreachable")
	}
	for _, entry := range p.candidates() {
		p.markFailure(entry)
	}
	if !p.AllUnreachable() {
		t.Error("pool with every endpoint written off not reported")
	}
}

func urls(entries []*poolEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.BaseURL
	}
	return out
}
