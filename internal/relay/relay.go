// Package relay forwards chat, typing and WebRTC signaling events from an
// endpoint to its current partner, and to nobody else.
package relay

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/strangerchat/server/internal/metrics"
	"github.com/strangerchat/server/internal/moderation"
	"github.com/strangerchat/server/internal/protocol"
)

// Signaling kinds accepted by Signal. They double as wire message types.
const (
	KindOffer        = protocol.TypeMediaOffer
	KindAnswer       = protocol.TypeMediaAnswer
	KindICECandidate = protocol.TypeICECandidate
)

// PartnerLookup resolves the sole legitimate destination for an endpoint.
type PartnerLookup interface {
	PartnerOf(endpoint string) (string, bool)
}

// Notifier delivers an encoded server message to an endpoint without
// blocking.
type Notifier interface {
	Send(endpoint string, data []byte) error
}

// Relay forwards session-scoped events. It keeps no state of its own.
type Relay struct {
	sessions PartnerLookup
	notifier Notifier
	masker   *moderation.Masker
	maxChars int
}

// New creates a Relay. A nil masker disables masking.
func New(sessions PartnerLookup, notifier Notifier, masker *moderation.Masker, maxChars int) *Relay {
	if maxChars <= 0 {
		maxChars = DefaultMaxMessageChars
	}
	return &Relay{
		sessions: sessions,
		notifier: notifier,
		masker:   masker,
		maxChars: maxChars,
	}
}

// Chat forwards a chat line to the sender's partner as receive_message. It
// returns false without error when the sender has no partner, and an error
// wrapping one of the validation sentinels when the text is rejected.
func (r *Relay) Chat(from, text string, ts int64) (bool, error) {
	partner, ok := r.sessions.PartnerOf(from)
	if !ok {
		return false, nil
	}
	if err := ValidateMessage(text, r.maxChars); err != nil {
		metrics.MessagesRejected.Inc()
		return false, err
	}

	if r.masker != nil {
		var masked bool
		if text, masked = r.masker.Mask(text); masked {
			metrics.MessagesMasked.Inc()
		}
	}

	return r.forward(partner, "chat", protocol.TypeReceiveMessage, protocol.ReceiveMessageMsg{
		Message:   text,
		Timestamp: ts,
		SenderID:  from,
	}), nil
}

// Typing forwards a typing-started or typing-stopped indicator.
func (r *Relay) Typing(from string, started bool) bool {
	partner, ok := r.sessions.PartnerOf(from)
	if !ok {
		return false
	}
	if started {
		return r.forward(partner, "typing", protocol.TypePartnerTyping, protocol.PartnerTypingMsg{})
	}
	return r.forward(partner, "stopped_typing", protocol.TypePartnerStoppedTyping, protocol.PartnerStoppedTypingMsg{})
}

// Signal forwards an opaque WebRTC negotiation payload tagged with the
// sender. The payload is never inspected.
func (r *Relay) Signal(from, kind string, payload json.RawMessage) (bool, error) {
	var msg interface{}
	switch kind {
	case KindOffer:
		msg = protocol.RelayedOfferMsg{Offer: payload, From: from}
	case KindAnswer:
		msg = protocol.RelayedAnswerMsg{Answer: payload, From: from}
	case KindICECandidate:
		msg = protocol.RelayedICECandidateMsg{Candidate: payload, From: from}
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownSignal, kind)
	}

	partner, ok := r.sessions.PartnerOf(from)
	if !ok {
		return false, nil
	}
	return r.forward(partner, kind, kind, msg), nil
}

func (r *Relay) forward(to, label, msgType string, payload interface{}) bool {
	data, err := protocol.NewServerMessage(msgType, payload)
	if err != nil {
		log.Printf("[relay] failed to build %s for %s: %v", msgType, to, err)
		return false
	}
	if err := r.notifier.Send(to, data); err != nil {
		log.Printf("[relay] send %s to %s failed: %v", msgType, to, err)
		return false
	}
	metrics.EventsRelayed.WithLabelValues(label).Inc()
	return true
}
