package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrSameEndpoint is returned when both members of a new session are the
	// same endpoint.
	ErrSameEndpoint = errors.New("session: cannot pair an endpoint with itself")

	// ErrAlreadyPaired is returned when either endpoint already has a session.
	ErrAlreadyPaired = errors.New("session: endpoint already in a session")
)

// Store holds every live session, indexed by member. It is not safe for
// concurrent use; the lobby serializes access.
type Store struct {
	byMember map[string]*Session
	byID     map[string]*Session
	now      func() time.Time
	newID    func() string
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{
		byMember: make(map[string]*Session),
		byID:     make(map[string]*Session),
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
	}
}

// Create pairs initiator with other under a fresh session id. Both
// directions are recorded together.
func (s *Store) Create(initiator, other, chatType string, shared []string) (*Session, error) {
	if initiator == other {
		return nil, ErrSameEndpoint
	}
	if _, ok := s.byMember[initiator]; ok {
		return nil, fmt.Errorf("session: create %s/%s: %w", initiator, other, ErrAlreadyPaired)
	}
	if _, ok := s.byMember[other]; ok {
		return nil, fmt.Errorf("session: create %s/%s: %w", initiator, other, ErrAlreadyPaired)
	}

	sess := &Session{
		ID:              s.newID(),
		Initiator:       initiator,
		Other:           other,
		ChatType:        chatType,
		SharedInterests: shared,
		CreatedAt:       s.now(),
	}
	s.byMember[initiator] = sess
	s.byMember[other] = sess
	s.byID[sess.ID] = sess
	return sess, nil
}

// Destroy removes the session the endpoint belongs to, for both members, and
// returns it. Endpoints without a session report false.
func (s *Store) Destroy(endpoint string) (*Session, bool) {
	sess, ok := s.byMember[endpoint]
	if !ok {
		return nil, false
	}
	delete(s.byMember, sess.Initiator)
	delete(s.byMember, sess.Other)
	delete(s.byID, sess.ID)
	return sess, true
}

// PartnerOf returns the endpoint paired with the given one.
func (s *Store) PartnerOf(endpoint string) (string, bool) {
	sess, ok := s.byMember[endpoint]
	if !ok {
		return "", false
	}
	return sess.PartnerOf(endpoint), true
}

// Get returns the session the endpoint belongs to.
func (s *Store) Get(endpoint string) (*Session, bool) {
	sess, ok := s.byMember[endpoint]
	return sess, ok
}

// IsInitiator reports whether the endpoint is the initiator of its session.
func (s *Store) IsInitiator(endpoint string) bool {
	sess, ok := s.byMember[endpoint]
	return ok && sess.Initiator == endpoint
}

// Count returns the number of live sessions.
func (s *Store) Count() int {
	return len(s.byID)
}
