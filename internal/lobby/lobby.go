// Package lobby coordinates the lifecycle of every endpoint: idle, waiting
// for a partner, or in a session. All state transitions and the
// notifications they cause happen under a single lock, so an event is fully
// applied before the next one is looked at.
package lobby

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/strangerchat/server/internal/matching"
	"github.com/strangerchat/server/internal/metrics"
	"github.com/strangerchat/server/internal/moderation"
	"github.com/strangerchat/server/internal/protocol"
	"github.com/strangerchat/server/internal/registry"
	"github.com/strangerchat/server/internal/relay"
	"github.com/strangerchat/server/internal/report"
	"github.com/strangerchat/server/internal/session"
)

// BanReason is sent to an endpoint removed for repeated reports.
const BanReason = "Multiple reports"

// Causes recorded when a session ends.
const (
	CauseLeave      = "leave"
	CauseSkip       = "skip"
	CauseDisconnect = "disconnect"
	CauseBan        = "ban"
)

// ErrInvalidChatType is returned by JoinQueue for an unsupported chat type.
var ErrInvalidChatType = errors.New("lobby: invalid chat type")

// Notifier delivers encoded server messages to endpoints. Both methods are
// called with the lobby lock held and must not block. Close flushes what was
// already sent to the endpoint and then closes its connection.
type Notifier interface {
	Send(endpoint string, data []byte) error
	Close(endpoint string)
}

// Options tunes a Lobby. Zero values select defaults.
type Options struct {
	MaxMessageChars int
	BanThreshold    int
	Masker          *moderation.Masker
	Events          Events
}

// Lobby owns the registry, waiting queue, session store and report log.
type Lobby struct {
	mu       sync.Mutex
	registry *registry.Registry
	queue    *matching.Queue
	sessions *session.Store
	reports  *report.Tracker
	relay    *relay.Relay
	notifier Notifier
	events   Events
}

// New creates a Lobby that talks to endpoints through notifier.
func New(notifier Notifier, opts Options) *Lobby {
	if opts.Masker == nil {
		opts.Masker = moderation.NewMasker()
	}
	if opts.Events == nil {
		opts.Events = nopEvents{}
	}
	sessions := session.NewStore()
	return &Lobby{
		registry: registry.New(),
		queue:    matching.NewQueue(),
		sessions: sessions,
		reports:  report.NewTracker(sessions, opts.BanThreshold),
		relay:    relay.New(sessions, notifier, opts.Masker, opts.MaxMessageChars),
		notifier: notifier,
		events:   opts.Events,
	}
}

// Connect registers a new endpoint as idle and greets it with its id.
func (l *Lobby) Connect(ep string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.registry.Register(ep) {
		return
	}
	l.send(ep, protocol.TypeConnected, protocol.ConnectedMsg{EndpointID: ep})
	l.observe()
}

// JoinQueue pairs the endpoint with a waiting stranger of the same chat type
// or, failing that, queues it. A waiting endpoint has its entry replaced; an
// endpoint in a session skips its current partner first.
func (l *Lobby) JoinQueue(ep, chatType string, interests []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	st, ok := l.registry.StateOf(ep)
	if !ok {
		return nil
	}
	if !matching.ValidChatType(chatType) {
		l.sendError(ep, protocol.CodeInvalidChatType, fmt.Sprintf("unsupported chat type %q", chatType))
		return fmt.Errorf("%w: %q", ErrInvalidChatType, chatType)
	}

	switch st {
	case registry.Waiting:
		l.queue.Dequeue(ep)
	case registry.InSession:
		l.endSession(ep, CauseSkip)
	}
	l.registry.Set(ep, registry.Idle)
	defer l.observe()

	seeker := matching.Seeker{
		Endpoint:  ep,
		ChatType:  chatType,
		Interests: matching.NormalizeInterests(interests),
	}

	if c, found := l.queue.FindMatch(seeker); found && l.pair(seeker, c) {
		return nil
	}

	if err := l.queue.Enqueue(matching.Entry{
		Endpoint:  ep,
		ChatType:  chatType,
		Interests: seeker.Interests,
	}); err != nil {
		return fmt.Errorf("lobby: enqueue %s: %w", ep, err)
	}
	l.registry.Set(ep, registry.Waiting)
	l.send(ep, protocol.TypeWaitingForPartner, protocol.WaitingForPartnerMsg{})
	log.Printf("[lobby] waiting endpoint=%s chat_type=%s interests=%d (queue=%d)",
		ep, chatType, len(seeker.Interests), l.queue.Len())
	return nil
}

// pair turns a seeker and the chosen waiting entry into a session. The
// seeker is the initiator. On failure the waiter is put back and false is
// returned so the seeker gets queued instead.
func (l *Lobby) pair(seeker matching.Seeker, c *matching.Candidate) bool {
	waiter := c.Entry.Endpoint
	l.queue.Dequeue(waiter)

	sess, err := l.sessions.Create(seeker.Endpoint, waiter, seeker.ChatType, c.SharedInterests)
	if err != nil {
		// Unreachable while the registry and store agree; put the waiter back.
		log.Printf("[lobby] pairing %s with %s failed: %v", seeker.Endpoint, waiter, err)
		_ = l.queue.Enqueue(c.Entry)
		return false
	}
	l.registry.Set(seeker.Endpoint, registry.InSession)
	l.registry.Set(waiter, registry.InSession)
	metrics.MatchWait.Observe(time.Since(c.Entry.EnqueuedAt).Seconds())

	for _, ep := range sess.Members() {
		l.send(ep, protocol.TypePartnerFound, protocol.PartnerFoundMsg{
			PartnerID:       sess.PartnerOf(ep),
			RoomID:          sess.ID,
			ChatType:        sess.ChatType,
			IsInitiator:     l.sessions.IsInitiator(ep),
			SharedInterests: sess.SharedInterests,
		})
	}
	l.events.SessionCreated(sess)
	log.Printf("[lobby] paired session=%s initiator=%s other=%s chat_type=%s shared=%v",
		sess.ID, sess.Initiator, sess.Other, sess.ChatType, sess.SharedInterests)
	return true
}

// CancelQueue takes a waiting endpoint out of the queue.
func (l *Lobby) CancelQueue(ep string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if st, ok := l.registry.StateOf(ep); !ok || st != registry.Waiting {
		return
	}
	l.queue.Dequeue(ep)
	l.registry.Set(ep, registry.Idle)
	l.observe()
	log.Printf("[lobby] cancel endpoint=%s", ep)
}

// Leave ends the endpoint's session or withdraws it from the queue. The
// partner, if any, receives exactly one partner_disconnected.
func (l *Lobby) Leave(ep string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.release(ep, CauseLeave)
	l.observe()
}

// Disconnect releases everything the endpoint held and forgets it. Calling
// it again for the same endpoint does nothing.
func (l *Lobby) Disconnect(ep string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.registry.IsLive(ep) {
		return
	}
	l.release(ep, CauseDisconnect)
	l.registry.Unregister(ep)
	l.observe()
	log.Printf("[lobby] disconnect endpoint=%s (live=%d)", ep, l.registry.Count())
}

// release moves a live endpoint back to idle from whatever it was doing.
func (l *Lobby) release(ep, cause string) {
	st, ok := l.registry.StateOf(ep)
	if !ok {
		return
	}
	switch st {
	case registry.Waiting:
		l.queue.Dequeue(ep)
		l.registry.Set(ep, registry.Idle)
	case registry.InSession:
		l.endSession(ep, cause)
	}
}

// endSession tears down the endpoint's session, returns both members to
// idle and tells the partner. It returns the partner id, or "" if the
// endpoint had no session.
func (l *Lobby) endSession(ep, cause string) string {
	sess, ok := l.sessions.Destroy(ep)
	if !ok {
		return ""
	}
	partner := sess.PartnerOf(ep)
	l.registry.Set(ep, registry.Idle)
	l.registry.Set(partner, registry.Idle)
	l.send(partner, protocol.TypePartnerDisconnected, protocol.PartnerDisconnectedMsg{})

	metrics.SessionsEnded.WithLabelValues(cause).Inc()
	l.events.SessionEnded(sess, cause)
	log.Printf("[lobby] session ended session=%s by=%s partner=%s cause=%s duration=%s",
		sess.ID, ep, partner, cause, time.Since(sess.CreatedAt).Round(time.Second))
	return partner
}

// Chat relays a chat line to the sender's partner. Rejected lines are
// answered with an invalid_message error.
func (l *Lobby) Chat(ep, text string, ts int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.relay.Chat(ep, text, ts); err != nil {
		l.sendError(ep, protocol.CodeInvalidMessage, err.Error())
		return err
	}
	return nil
}

// Typing relays a typing indicator to the sender's partner.
func (l *Lobby) Typing(ep string, started bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.relay.Typing(ep, started)
}

// Signal relays an opaque WebRTC negotiation payload to the sender's
// partner.
func (l *Lobby) Signal(ep, kind string, payload json.RawMessage) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, err := l.relay.Signal(ep, kind, payload)
	return err
}

// Report files a report from ep against its current partner. Once the
// reported endpoint reaches the threshold it is removed: its session is torn
// down, it is told it was banned, and its connection is closed.
func (l *Lobby) Report(ep, reported, reason, message, sessionID string) (report.Outcome, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	out, err := l.reports.File(ep, reported, reason, message, sessionID)
	if err != nil {
		log.Printf("[lobby] report rejected reporter=%s: %v", ep, err)
		l.sendError(ep, protocol.CodeReportRejected, err.Error())
		return out, err
	}

	metrics.ReportsTotal.Inc()
	l.send(ep, protocol.TypeReportSubmitted, protocol.ReportSubmittedMsg{})
	l.events.ReportFiled(out.Report, out.Count)
	log.Printf("[lobby] report filed reporter=%s reported=%s session=%s count=%d/%d",
		ep, out.Report.ReportedID, out.Report.SessionID, out.Count, l.reports.Threshold())

	if out.Ban {
		l.ban(out.Report.ReportedID)
	}
	return out, nil
}

func (l *Lobby) ban(ep string) {
	if !l.registry.IsLive(ep) {
		return
	}
	count := l.reports.CountFor(ep)
	l.release(ep, CauseBan)
	l.registry.Unregister(ep)

	l.send(ep, protocol.TypeBanned, protocol.BannedMsg{Reason: BanReason})
	l.notifier.Close(ep)

	metrics.BansTotal.Inc()
	l.events.EndpointBanned(ep, count)
	l.observe()
	log.Printf("[lobby] banned endpoint=%s reports=%d", ep, count)
}

// ReportStats returns the total report count and the last n reports.
func (l *Lobby) ReportStats(n int) report.Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.reports.Stats(n)
}

// Snapshot is a point-in-time view of the lobby for health checks.
type Snapshot struct {
	Endpoints int `json:"endpoints"`
	Idle      int `json:"idle"`
	Waiting   int `json:"waiting"`
	InSession int `json:"inSession"`
	Sessions  int `json:"sessions"`
	Reports   int `json:"reports"`
}

// Snapshot returns current counts.
func (l *Lobby) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	byState := l.registry.CountByState()
	return Snapshot{
		Endpoints: l.registry.Count(),
		Idle:      byState[registry.Idle],
		Waiting:   byState[registry.Waiting],
		InSession: byState[registry.InSession],
		Sessions:  l.sessions.Count(),
		Reports:   l.reports.Total(),
	}
}

func (l *Lobby) send(ep, msgType string, payload interface{}) {
	data, err := protocol.NewServerMessage(msgType, payload)
	if err != nil {
		log.Printf("[lobby] failed to build %s for %s: %v", msgType, ep, err)
		return
	}
	if err := l.notifier.Send(ep, data); err != nil {
		log.Printf("[lobby] send %s to %s failed: %v", msgType, ep, err)
	}
}

func (l *Lobby) sendError(ep, code, message string) {
	l.send(ep, protocol.TypeError, protocol.ErrorMsg{Code: code, Message: message})
}

func (l *Lobby) observe() {
	metrics.ConnectionsTotal.Set(float64(l.registry.Count()))
	metrics.WaitingQueueSize.Set(float64(l.queue.Len()))
	metrics.ActiveSessions.Set(float64(l.sessions.Count()))
}
