// Package protocol defines the WebSocket message types and structures used for
// communication between the client and server. All messages are serialized as
// JSON and follow a consistent envelope format with a type discriminator.
package protocol

import (
	"encoding/json"
	"fmt"
)

// ---------------------------------------------------------------------------
// Message type constants
// ---------------------------------------------------------------------------

// Client -> Server message types.
const (
	TypeJoinQueue      = "join_queue"
	TypeCancelQueue    = "cancel_queue"
	TypeSendMessage    = "send_message"
	TypeTyping         = "typing"
	TypeStoppedTyping  = "stopped_typing"
	TypeDisconnectUser = "disconnect_user"
	TypeReportUser     = "report_user"
	TypePing           = "ping"
)

// Signaling types are relayed under the same name in both directions.
const (
	TypeMediaOffer   = "media_offer"
	TypeMediaAnswer  = "media_answer"
	TypeICECandidate = "ice_candidate"
)

// Server -> Client message types.
const (
	TypeConnected            = "connected"
	TypeWaitingForPartner    = "waiting_for_partner"
	TypePartnerFound         = "partner_found"
	TypeReceiveMessage       = "receive_message"
	TypePartnerTyping        = "partner_typing"
	TypePartnerStoppedTyping = "partner_stopped_typing"
	TypePartnerDisconnected  = "partner_disconnected"
	TypeReportSubmitted      = "report_submitted"
	TypeBanned               = "banned"
	TypeRateLimited          = "rate_limited"
	TypeError                = "error"
	TypePong                 = "pong"
)

// Error codes carried by ErrorMsg.
const (
	CodeParseError      = "parse_error"
	CodeUnsupportedType = "unsupported_type"
	CodeInvalidChatType = "invalid_chat_type"
	CodeInvalidMessage  = "invalid_message"
	CodeReportRejected  = "report_rejected"
)

// ---------------------------------------------------------------------------
// Envelope: used for initial JSON parsing to extract the type discriminator.
// ---------------------------------------------------------------------------

// Envelope holds the message type and the raw JSON payload for deferred
// parsing into a concrete struct.
type Envelope struct {
	Type string          `json:"type"`
	Raw  json.RawMessage `json:"-"`
}

// UnmarshalJSON implements the json.Unmarshaler interface. It captures the
// full raw bytes and extracts only the "type" field so that the rest of the
// payload can be decoded later into the appropriate concrete struct.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	e.Raw = make(json.RawMessage, len(data))
	copy(e.Raw, data)

	var partial struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &partial); err != nil {
		return fmt.Errorf("protocol: failed to unmarshal envelope: %w", err)
	}
	if partial.Type == "" {
		return fmt.Errorf("protocol: missing or empty \"type\" field")
	}
	e.Type = partial.Type
	return nil
}

// ---------------------------------------------------------------------------
// Client -> Server message structs
// ---------------------------------------------------------------------------

// JoinQueueMsg asks the server to pair the client with a stranger of the same
// chat type, preferring one that shares an interest tag.
type JoinQueueMsg struct {
	Type      string   `json:"type"`
	ChatType  string   `json:"chatType"`
	Interests []string `json:"interests"`
}

// CancelQueueMsg withdraws a pending pairing request.
type CancelQueueMsg struct {
	Type string `json:"type"`
}

// SendMessageMsg is a chat line for the current partner. Timestamp is the
// client's clock in Unix milliseconds and is relayed untouched.
type SendMessageMsg struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

// TypingMsg and StoppedTypingMsg carry no payload.
type TypingMsg struct {
	Type string `json:"type"`
}

type StoppedTypingMsg struct {
	Type string `json:"type"`
}

// MediaOfferMsg carries an opaque WebRTC session description.
type MediaOfferMsg struct {
	Type  string          `json:"type"`
	Offer json.RawMessage `json:"offer"`
}

// MediaAnswerMsg carries an opaque WebRTC session description.
type MediaAnswerMsg struct {
	Type   string          `json:"type"`
	Answer json.RawMessage `json:"answer"`
}

// ICECandidateMsg carries an opaque ICE candidate.
type ICECandidateMsg struct {
	Type      string          `json:"type"`
	Candidate json.RawMessage `json:"candidate"`
}

// DisconnectUserMsg ends the current conversation (skip/stop) or leaves the
// waiting queue.
type DisconnectUserMsg struct {
	Type string `json:"type"`
}

// ReportUserMsg reports the current partner. ReportedID and SessionID are
// optional; when present they must name the current partner and room.
type ReportUserMsg struct {
	Type       string `json:"type"`
	Reason     string `json:"reason"`
	Message    string `json:"message"`
	ReportedID string `json:"reportedId,omitempty"`
	SessionID  string `json:"sessionId,omitempty"`
}

// PingMsg is a client-initiated keepalive ping.
type PingMsg struct {
	Type string `json:"type"`
}

// ---------------------------------------------------------------------------
// Server -> Client message structs
// ---------------------------------------------------------------------------

// ConnectedMsg greets a new connection with its endpoint id.
type ConnectedMsg struct {
	Type       string `json:"type"`
	EndpointID string `json:"endpointId"`
}

// WaitingForPartnerMsg confirms the client has been queued.
type WaitingForPartnerMsg struct {
	Type string `json:"type"`
}

// PartnerFoundMsg is sent to each side of a new pairing with that side's own
// IsInitiator flag.
type PartnerFoundMsg struct {
	Type            string   `json:"type"`
	PartnerID       string   `json:"partnerId"`
	RoomID          string   `json:"roomId"`
	ChatType        string   `json:"chatType"`
	IsInitiator     bool     `json:"isInitiator"`
	SharedInterests []string `json:"sharedInterests,omitempty"`
}

// ReceiveMessageMsg is a chat line relayed from the partner.
type ReceiveMessageMsg struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
	SenderID  string `json:"senderId"`
}

type PartnerTypingMsg struct {
	Type string `json:"type"`
}

type PartnerStoppedTypingMsg struct {
	Type string `json:"type"`
}

// RelayedOfferMsg, RelayedAnswerMsg and RelayedICECandidateMsg are the
// signaling payloads as forwarded to the partner, tagged with the sender.
type RelayedOfferMsg struct {
	Type  string          `json:"type"`
	Offer json.RawMessage `json:"offer"`
	From  string          `json:"from"`
}

type RelayedAnswerMsg struct {
	Type   string          `json:"type"`
	Answer json.RawMessage `json:"answer"`
	From   string          `json:"from"`
}

type RelayedICECandidateMsg struct {
	Type      string          `json:"type"`
	Candidate json.RawMessage `json:"candidate"`
	From      string          `json:"from"`
}

// PartnerDisconnectedMsg is sent when the partner left, skipped, was banned
// or lost the connection.
type PartnerDisconnectedMsg struct {
	Type string `json:"type"`
}

// ReportSubmittedMsg acknowledges an accepted report.
type ReportSubmittedMsg struct {
	Type string `json:"type"`
}

// BannedMsg is sent to a reported endpoint right before it is disconnected.
type BannedMsg struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// RateLimitedMsg is sent by the server when the client has been rate-limited.
type RateLimitedMsg struct {
	Type       string `json:"type"`
	RetryAfter int    `json:"retryAfter"`
}

// ErrorMsg is sent by the server to communicate an error condition.
type ErrorMsg struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PongMsg is the server's response to a client ping.
type PongMsg struct {
	Type string `json:"type"`
}

// ---------------------------------------------------------------------------
// Helper functions
// ---------------------------------------------------------------------------

// ParseClientMessage parses raw WebSocket bytes into a typed client message.
// It returns the message type string, the decoded struct, and any error
// encountered during parsing. An error is returned for unknown or
// server-only message types.
func ParseClientMessage(data []byte) (string, interface{}, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", nil, fmt.Errorf("protocol: failed to parse message: %w", err)
	}

	var (
		msg interface{}
		err error
	)

	switch env.Type {
	case TypeJoinQueue:
		var m JoinQueueMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeCancelQueue:
		var m CancelQueueMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeSendMessage:
		var m SendMessageMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeTyping:
		var m TypingMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeStoppedTyping:
		var m StoppedTypingMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeMediaOffer:
		var m MediaOfferMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeMediaAnswer:
		var m MediaAnswerMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeICECandidate:
		var m ICECandidateMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeDisconnectUser:
		var m DisconnectUserMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeReportUser:
		var m ReportUserMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypePing:
		var m PingMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	default:
		return env.Type, nil, fmt.Errorf("protocol: unknown client message type: %q", env.Type)
	}

	if err != nil {
		return env.Type, nil, fmt.Errorf("protocol: failed to decode %q payload: %w", env.Type, err)
	}
	return env.Type, msg, nil
}

// NewServerMessage creates a JSON-encoded byte slice for a server message.
// The msgType is injected into the payload under the "type" key. The payload
// should be one of the server message structs; this function marshals it to
// JSON, injects the type field, and returns the final bytes.
func NewServerMessage(msgType string, payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("protocol: failed to marshal payload: %w", err)
	}

	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("protocol: failed to unmarshal payload into map: %w", err)
	}

	typeField, _ := json.Marshal(msgType)
	m["type"] = typeField

	out, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("protocol: failed to marshal server message: %w", err)
	}
	return out, nil
}
