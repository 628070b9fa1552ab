// Package matching holds the waiting queue of endpoints looking for a
// stranger and the matcher that picks a partner for a new seeker.
package matching

import (
	"errors"
	"time"
)

// Chat types a seeker may ask for.
const (
	ChatText  = "text"
	ChatAudio = "audio"
	ChatVideo = "video"
)

// ErrAlreadyQueued is returned by Enqueue for an endpoint that already has a
// waiting entry.
var ErrAlreadyQueued = errors.New("matching: endpoint already queued")

// ValidChatType reports whether t is one of the supported chat types.
func ValidChatType(t string) bool {
	switch t {
	case ChatText, ChatAudio, ChatVideo:
		return true
	}
	return false
}

// Entry is one endpoint waiting for a partner.
type Entry struct {
	Endpoint   string
	ChatType   string
	Interests  []string // normalized, see NormalizeInterests
	EnqueuedAt time.Time
}

// Queue is an arrival-ordered list of waiting entries, at most one per
// endpoint. It is not safe for concurrent use; the lobby serializes access.
type Queue struct {
	entries []Entry
	index   map[string]struct{}
}

// NewQueue creates an empty waiting queue.
func NewQueue() *Queue {
	return &Queue{index: make(map[string]struct{})}
}

// Enqueue appends an entry to the tail of the queue.
func (q *Queue) Enqueue(e Entry) error {
	if _, ok := q.index[e.Endpoint]; ok {
		return ErrAlreadyQueued
	}
	if e.EnqueuedAt.IsZero() {
		e.EnqueuedAt = time.Now()
	}
	q.entries = append(q.entries, e)
	q.index[e.Endpoint] = struct{}{}
	return nil
}

// Dequeue removes the endpoint's entry and returns it. Unknown endpoints
// report false.
func (q *Queue) Dequeue(endpoint string) (Entry, bool) {
	if _, ok := q.index[endpoint]; !ok {
		return Entry{}, false
	}
	for i, e := range q.entries {
		if e.Endpoint == endpoint {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			delete(q.index, endpoint)
			return e, true
		}
	}
	// index and entries disagree; repair the index.
	delete(q.index, endpoint)
	return Entry{}, false
}

// Contains reports whether the endpoint is waiting.
func (q *Queue) Contains(endpoint string) bool {
	_, ok := q.index[endpoint]
	return ok
}

// Len returns the number of waiting entries.
func (q *Queue) Len() int {
	return len(q.entries)
}
