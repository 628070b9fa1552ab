package matching

import (
	"errors"
	"testing"
	"time"
)

func TestEnqueue_RejectsDuplicate(t *testing.T) {
	q := NewQueue()

	if err := q.Enqueue(Entry{Endpoint: "a", ChatType: ChatText}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := q.Enqueue(Entry{Endpoint: "a", ChatType: ChatVideo})
	if !errors.Is(err, ErrAlreadyQueued) {
		t.Fatalf("expected ErrAlreadyQueued, got %v", err)
	}
	if q.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", q.Len())
	}
}

func TestEnqueue_StampsTime(t *testing.T) {
	q := NewQueue()
	before := time.Now()
	_ = q.Enqueue(Entry{Endpoint: "a", ChatType: ChatText})

	e := q.entries[0]
	if e.EnqueuedAt.Before(before) {
		t.Errorf("EnqueuedAt %v is before %v", e.EnqueuedAt, before)
	}
}

func TestDequeue_PreservesOrder(t *testing.T) {
	q := NewQueue()
	for _, ep := range []string{"a", "b", "c", "d"} {
		_ = q.Enqueue(Entry{Endpoint: ep, ChatType: ChatText})
	}

	e, ok := q.Dequeue("b")
	if !ok || e.Endpoint != "b" {
		t.Fatalf("expected to dequeue b, got %+v ok=%v", e, ok)
	}
	if q.Contains("b") {
		t.Error("b still reported as queued")
	}

	want := []string{"a", "c", "d"}
	got := q.entries
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(got))
	}
	for i, ep := range want {
		if got[i].Endpoint != ep {
			t.Errorf("entry[%d]: expected %s, got %s", i, ep, got[i].Endpoint)
		}
	}
}

func TestDequeue_Unknown(t *testing.T) {
	q := NewQueue()
	if _, ok := q.Dequeue("ghost"); ok {
		t.Error("expected Dequeue of unknown endpoint to report false")
	}
}

func TestValidChatType(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"text", true},
		{"audio", true},
		{"video", true},
		{"", false},
		{"Text", false},
		{"hologram", false},
	}
	for _, tt := range tests {
		if got := ValidChatType(tt.in); got != tt.want {
			t.Errorf("ValidChatType(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeInterests(t *testing.T) {
	long := "abcdefghijklmnopqrstuvwxyz0123456789"
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"nil", nil, nil},
		{"only blanks", []string{" ", ""}, nil},
		{"trim and lower", []string{"  Music ", "GAMING"}, []string{"music", "gaming"}},
		{"dedupe after normalize", []string{"Anime", "anime ", "ANIME"}, []string{"anime"}},
		{"truncate long tag", []string{long}, []string{long[:MaxInterestRunes]}},
		{"cap count", []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l"},
			[]string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeInterests(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("tag[%d]: expected %q, got %q", i, tt.want[i], got[i])
				}
			}
		})
	}
}
