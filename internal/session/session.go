// Package session manages the pairings between two endpoints. A Session is
// created and destroyed as one unit for both members, and lookups in either
// direction are O(1).
package session

import "time"

// Session is one live conversation between two endpoints.
type Session struct {
	ID              string    // also sent to clients as roomId
	Initiator       string    // the seeker that triggered the match
	Other           string    // the endpoint that was waiting
	ChatType        string    // text | audio | video
	SharedInterests []string  // sorted, may be empty
	CreatedAt       time.Time // store clock at creation
}

// PartnerOf returns the other member of the session, or "" if endpoint is
// not a member.
func (s *Session) PartnerOf(endpoint string) string {
	switch endpoint {
	case s.Initiator:
		return s.Other
	case s.Other:
		return s.Initiator
	}
	return ""
}

// Members returns both member ids, initiator first.
func (s *Session) Members() [2]string {
	return [2]string{s.Initiator, s.Other}
}
