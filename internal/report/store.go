// Package report keeps the process-lifetime log of reports filed by one
// partner against the other, and decides when an endpoint has collected
// enough reports to be removed.
package report

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/strangerchat/server/internal/session"
)

const (
	DefaultBanThreshold = 3
	MaxReasonChars      = 64
	MaxMessageChars     = 1000
)

var (
	// ErrNotInSession is returned when the reporter has no current partner.
	ErrNotInSession = errors.New("report: reporter is not in a session")

	// ErrNotPartner is returned when the reported endpoint is not the
	// reporter's current partner.
	ErrNotPartner = errors.New("report: reported endpoint is not the current partner")

	// ErrSessionMismatch is returned when the report names a room other than
	// the reporter's current one.
	ErrSessionMismatch = errors.New("report: session is not the reporter's current session")

	// ErrInvalidReason is returned for an empty or oversized reason or
	// message.
	ErrInvalidReason = errors.New("report: invalid reason")
)

// Report is one accepted report. It outlives the session it was filed in.
type Report struct {
	ReporterID string    `json:"reporterId"`
	ReportedID string    `json:"reportedId"`
	Reason     string    `json:"reason"`
	Message    string    `json:"message"`
	SessionID  string    `json:"sessionId"`
	Timestamp  time.Time `json:"timestamp"`
}

// Outcome describes an accepted report.
type Outcome struct {
	Report Report
	Count  int  // reports against the reported endpoint, this one included
	Ban    bool // Count reached the threshold
}

// Stats is the read-only summary served to operators.
type Stats struct {
	TotalReports  int      `json:"totalReports"`
	RecentReports []Report `json:"recentReports"`
}

// SessionLookup finds the session an endpoint currently belongs to.
type SessionLookup interface {
	Get(endpoint string) (*session.Session, bool)
}

// Tracker is the append-only report log. It is not safe for concurrent use;
// the lobby serializes access.
type Tracker struct {
	sessions  SessionLookup
	threshold int
	reports   []Report
	counts    map[string]int
	now       func() time.Time
}

// NewTracker creates a Tracker that flags an endpoint once it has threshold
// reports against it. A threshold of zero or less uses DefaultBanThreshold.
func NewTracker(sessions SessionLookup, threshold int) *Tracker {
	if threshold <= 0 {
		threshold = DefaultBanThreshold
	}
	return &Tracker{
		sessions:  sessions,
		threshold: threshold,
		counts:    make(map[string]int),
		now:       time.Now,
	}
}

// File records a report from reporter against its current partner. An empty
// reported or sessionID means "my current partner" and "my current room".
// Rejected reports leave the log untouched.
func (t *Tracker) File(reporter, reported, reason, message, sessionID string) (Outcome, error) {
	sess, ok := t.sessions.Get(reporter)
	if !ok {
		return Outcome{}, ErrNotInSession
	}
	partner := sess.PartnerOf(reporter)
	if reported == "" {
		reported = partner
	}
	if reported != partner {
		return Outcome{}, fmt.Errorf("report: %s against %s: %w", reporter, reported, ErrNotPartner)
	}
	if sessionID != "" && sessionID != sess.ID {
		return Outcome{}, fmt.Errorf("report: %s in %s: %w", reporter, sessionID, ErrSessionMismatch)
	}
	if err := validate(reason, message); err != nil {
		return Outcome{}, err
	}

	r := Report{
		ReporterID: reporter,
		ReportedID: reported,
		Reason:     strings.TrimSpace(reason),
		Message:    message,
		SessionID:  sess.ID,
		Timestamp:  t.now(),
	}
	t.reports = append(t.reports, r)
	t.counts[reported]++
	count := t.counts[reported]

	return Outcome{Report: r, Count: count, Ban: count >= t.threshold}, nil
}

func validate(reason, message string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return fmt.Errorf("%w: reason is empty", ErrInvalidReason)
	}
	if utf8.RuneCountInString(reason) > MaxReasonChars {
		return fmt.Errorf("%w: reason exceeds %d characters", ErrInvalidReason, MaxReasonChars)
	}
	if utf8.RuneCountInString(message) > MaxMessageChars {
		return fmt.Errorf("%w: message exceeds %d characters", ErrInvalidReason, MaxMessageChars)
	}
	return nil
}

// CountFor returns the number of accepted reports against an endpoint.
func (t *Tracker) CountFor(endpoint string) int {
	return t.counts[endpoint]
}

// Total returns the number of accepted reports.
func (t *Tracker) Total() int {
	return len(t.reports)
}

// Threshold returns the report count at which an endpoint is banned.
func (t *Tracker) Threshold() int {
	return t.threshold
}

// Stats returns the total count and a copy of the last n reports, oldest
// first.
func (t *Tracker) Stats(n int) Stats {
	if n < 0 {
		n = 0
	}
	start := len(t.reports) - n
	if start < 0 {
		start = 0
	}
	recent := make([]Report, len(t.reports)-start)
	copy(recent, t.reports[start:])
	return Stats{TotalReports: len(t.reports), RecentReports: recent}
}
