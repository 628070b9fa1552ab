package messaging

import (
	"encoding/json"
	"log"
	"time"

	"github.com/strangerchat/server/internal/report"
	"github.com/strangerchat/server/internal/session"
)

// NATS subjects for pairing lifecycle events.
const (
	SubjectSessionCreated = "pairing.session.created"
	SubjectSessionEnded   = "pairing.session.ended"
	SubjectReportFiled    = "pairing.report.filed"
	SubjectEndpointBanned = "pairing.endpoint.banned"

	// Wildcards used by the moderator.
	SubjectAllReports   = "pairing.report.>"
	SubjectAllEndpoints = "pairing.endpoint.>"
)

// SessionEvent is published when a session starts or ends.
type SessionEvent struct {
	SessionID       string    `json:"session_id"`
	Initiator       string    `json:"initiator"`
	Other           string    `json:"other"`
	ChatType        string    `json:"chat_type"`
	SharedInterests []string  `json:"shared_interests,omitempty"`
	Cause           string    `json:"cause,omitempty"` // set on end only
	DurationMs      int64     `json:"duration_ms,omitempty"`
	At              time.Time `json:"at"`
}

// ReportEvent is published for every accepted report. The free-text message
// is never included.
type ReportEvent struct {
	ReporterID string    `json:"reporter_id"`
	ReportedID string    `json:"reported_id"`
	SessionID  string    `json:"session_id"`
	Reason     string    `json:"reason"`
	Count      int       `json:"count"`
	At         time.Time `json:"at"`
}

// BanEvent is published when an endpoint is removed for repeated reports.
type BanEvent struct {
	EndpointID string    `json:"endpoint_id"`
	Reports    int       `json:"reports"`
	At         time.Time `json:"at"`
}

// Publisher is the subset of NATSClient used to emit events.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// EventPublisher turns lobby lifecycle callbacks into NATS messages.
// Publish failures are logged and dropped.
type EventPublisher struct {
	pub Publisher
	now func() time.Time
}

// NewEventPublisher creates an EventPublisher on top of pub.
func NewEventPublisher(pub Publisher) *EventPublisher {
	return &EventPublisher{pub: pub, now: time.Now}
}

// SessionCreated publishes a SessionEvent when two endpoints are paired.
func (p *EventPublisher) SessionCreated(sess *session.Session) {
	p.publish(SubjectSessionCreated, SessionEvent{
		SessionID:       sess.ID,
		Initiator:       sess.Initiator,
		Other:           sess.Other,
		ChatType:        sess.ChatType,
		SharedInterests: sess.SharedInterests,
		At:              p.now(),
	})
}

// SessionEnded publishes a SessionEvent carrying the end cause and the
// session duration.
func (p *EventPublisher) SessionEnded(sess *session.Session, cause string) {
	now := p.now()
	p.publish(SubjectSessionEnded, SessionEvent{
		SessionID:  sess.ID,
		Initiator:  sess.Initiator,
		Other:      sess.Other,
		ChatType:   sess.ChatType,
		Cause:      cause,
		DurationMs: now.Sub(sess.CreatedAt).Milliseconds(),
		At:         now,
	})
}

// ReportFiled publishes an accepted report with the reported endpoint's
// running count.
func (p *EventPublisher) ReportFiled(r report.Report, count int) {
	p.publish(SubjectReportFiled, ReportEvent{
		ReporterID: r.ReporterID,
		ReportedID: r.ReportedID,
		SessionID:  r.SessionID,
		Reason:     r.Reason,
		Count:      count,
		At:         r.Timestamp,
	})
}

// EndpointBanned publishes a BanEvent for an endpoint that crossed the
// report threshold.
func (p *EventPublisher) EndpointBanned(endpoint string, count int) {
	p.publish(SubjectEndpointBanned, BanEvent{
		EndpointID: endpoint,
		Reports:    count,
		At:         p.now(),
	})
}

func (p *EventPublisher) publish(subject string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("[nats] marshal %s: %v", subject, err)
		return
	}
	if err := p.pub.Publish(subject, data); err != nil {
		log.Printf("[nats] publish %s: %v", subject, err)
	}
}
