package matching

import (
	"testing"
	"time"
)

// enqueueTestUser enqueues an endpoint with a join time offset from a fixed
// base so arrival order is explicit.
func enqueueTestUser(t *testing.T, q *Queue, endpoint, chatType string, offset int, interests ...string) {
	t.Helper()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	err := q.Enqueue(Entry{
		Endpoint:   endpoint,
		ChatType:   chatType,
		Interests:  interests,
		EnqueuedAt: base.Add(time.Duration(offset) * time.Second),
	})
	if err != nil {
		t.Fatalf("failed to enqueue %s: %v", endpoint, err)
	}
}

func TestFindMatch_EmptyQueue(t *testing.T) {
	q := NewQueue()

	c, ok := q.FindMatch(Seeker{Endpoint: "s", ChatType: ChatText})
	if ok || c != nil {
		t.Fatalf("expected no match, got %+v", c)
	}
}

func TestFindMatch_FIFOFallback(t *testing.T) {
	q := NewQueue()
	enqueueTestUser(t, q, "w1", ChatText, 1)
	enqueueTestUser(t, q, "w2", ChatText, 2)

	c, ok := q.FindMatch(Seeker{Endpoint: "s", ChatType: ChatText, Interests: []string{"x"}})
	if !ok {
		t.Fatal("expected a match")
	}
	if c.Entry.Endpoint != "w1" {
		t.Errorf("expected oldest entry w1, got %s", c.Entry.Endpoint)
	}
	if len(c.SharedInterests) != 0 {
		t.Errorf("expected no shared interests, got %v", c.SharedInterests)
	}
}

func TestFindMatch_InterestPreference(t *testing.T) {
	q := NewQueue()
	enqueueTestUser(t, q, "w1", ChatText, 1, "y")
	enqueueTestUser(t, q, "w2", ChatText, 2, "x")

	c, ok := q.FindMatch(Seeker{Endpoint: "s", ChatType: ChatText, Interests: []string{"x"}})
	if !ok {
		t.Fatal("expected a match")
	}
	if c.Entry.Endpoint != "w2" {
		t.Errorf("expected w2 (shares x), got %s", c.Entry.Endpoint)
	}
	if len(c.SharedInterests) != 1 || c.SharedInterests[0] != "x" {
		t.Errorf("expected shared [x], got %v", c.SharedInterests)
	}
}

func TestFindMatch_FirstFitNotBestOverlap(t *testing.T) {
	q := NewQueue()
	enqueueTestUser(t, q, "w1", ChatText, 1, "music")
	enqueueTestUser(t, q, "w2", ChatText, 2, "music", "gaming", "anime")

	c, ok := q.FindMatch(Seeker{
		Endpoint:  "s",
		ChatType:  ChatText,
		Interests: []string{"music", "gaming", "anime"},
	})
	if !ok {
		t.Fatal("expected a match")
	}
	if c.Entry.Endpoint != "w1" {
		t.Errorf("expected earliest intersecting w1, got %s", c.Entry.Endpoint)
	}
}

func TestFindMatch_ChatTypeMustMatch(t *testing.T) {
	q := NewQueue()
	enqueueTestUser(t, q, "v1", ChatVideo, 1, "x")
	enqueueTestUser(t, q, "a1", ChatAudio, 2, "x")

	if c, ok := q.FindMatch(Seeker{Endpoint: "s", ChatType: ChatText, Interests: []string{"x"}}); ok {
		t.Fatalf("expected no match across chat types, got %s", c.Entry.Endpoint)
	}

	c, ok := q.FindMatch(Seeker{Endpoint: "s", ChatType: ChatAudio})
	if !ok || c.Entry.Endpoint != "a1" {
		t.Fatalf("expected a1, got %+v", c)
	}
}

func TestFindMatch_SeekerWithoutInterestsTakesOldest(t *testing.T) {
	q := NewQueue()
	enqueueTestUser(t, q, "w1", ChatText, 1, "y")
	enqueueTestUser(t, q, "w2", ChatText, 2, "x")

	c, ok := q.FindMatch(Seeker{Endpoint: "s", ChatType: ChatText})
	if !ok || c.Entry.Endpoint != "w1" {
		t.Fatalf("expected w1, got %+v", c)
	}
}

func TestFindMatch_CandidateWithoutInterestsMatchesInArrivalOrder(t *testing.T) {
	q := NewQueue()
	enqueueTestUser(t, q, "w1", ChatText, 1)
	enqueueTestUser(t, q, "w2", ChatText, 2, "x")

	c, ok := q.FindMatch(Seeker{Endpoint: "s", ChatType: ChatText, Interests: []string{"x"}})
	if !ok || c.Entry.Endpoint != "w1" {
		t.Fatalf("expected older interest-less w1 ahead of w2, got %+v", c)
	}
	if len(c.SharedInterests) != 0 {
		t.Errorf("expected no shared interests, got %v", c.SharedInterests)
	}
}

func TestFindMatch_SkipsOlderDisjointEntry(t *testing.T) {
	q := NewQueue()
	enqueueTestUser(t, q, "w1", ChatText, 1, "y")
	enqueueTestUser(t, q, "w2", ChatText, 2)
	enqueueTestUser(t, q, "w3", ChatText, 3, "x")

	c, ok := q.FindMatch(Seeker{Endpoint: "s", ChatType: ChatText, Interests: []string{"x"}})
	if !ok || c.Entry.Endpoint != "w2" {
		t.Fatalf("expected w2 (no interests, first qualifying entry), got %+v", c)
	}
}

func TestFindMatch_SkipsSelf(t *testing.T) {
	q := NewQueue()
	enqueueTestUser(t, q, "s", ChatText, 1, "x")

	if c, ok := q.FindMatch(Seeker{Endpoint: "s", ChatType: ChatText, Interests: []string{"x"}}); ok {
		t.Fatalf("seeker matched itself: %+v", c)
	}
}

func TestFindMatch_DoesNotMutateQueue(t *testing.T) {
	q := NewQueue()
	enqueueTestUser(t, q, "w1", ChatText, 1)

	_, _ = q.FindMatch(Seeker{Endpoint: "s", ChatType: ChatText})
	if !q.Contains("w1") || q.Len() != 1 {
		t.Error("FindMatch modified the queue")
	}
}

func TestSharedInterests_Sorted(t *testing.T) {
	got := sharedInterests([]string{"music", "anime", "gaming"}, []string{"gaming", "music", "sports"})
	want := []string{"gaming", "music"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("shared[%d]: expected %q, got %q", i, want[i], got[i])
		}
	}
}
