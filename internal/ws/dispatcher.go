package ws

import (
	"log"

	"github.com/strangerchat/server/internal/protocol"
)

// MessageHandler is the callback signature for handling a parsed client message.
// The msg parameter is the concrete struct returned by protocol.ParseClientMessage
// (e.g., protocol.JoinQueueMsg, protocol.SendMessageMsg, etc.).
type MessageHandler func(conn *Connection, msg interface{})

// Sender queues outbound frames by endpoint ID.
type Sender interface {
	Send(connID string, data []byte) error
}

// MessageDispatcher routes incoming WebSocket messages to registered handlers
// based on the message type. It handles the built-in ping/pong keepalive
// internally and sends structured error responses for malformed or unsupported
// messages.
type MessageDispatcher struct {
	handlers map[string]MessageHandler
	sender   Sender
}

// NewMessageDispatcher creates a MessageDispatcher that answers through the
// given sender. The sender may be nil and set later with SetSender.
func NewMessageDispatcher(sender Sender) *MessageDispatcher {
	return &MessageDispatcher{
		handlers: make(map[string]MessageHandler),
		sender:   sender,
	}
}

// SetSender assigns the sender on the dispatcher. This supports the
// initialization pattern where the dispatcher is created before the server
// (since NewServer requires the Dispatch callback).
func (d *MessageDispatcher) SetSender(sender Sender) {
	d.sender = sender
}

// Register associates a MessageHandler with a message type. If a handler was
// already registered for the given type, it is silently replaced.
func (d *MessageDispatcher) Register(msgType string, handler MessageHandler) {
	d.handlers[msgType] = handler
}

// Dispatch is the onMessage callback implementation. It parses the raw bytes
// into a typed message, handles ping internally, and routes all other types to
// the registered handler. Parse errors and unregistered types result in an
// error message sent back to the client.
func (d *MessageDispatcher) Dispatch(conn *Connection, data []byte) {
	conn.Touch()

	msgType, msg, err := protocol.ParseClientMessage(data)
	if err != nil {
		if msgType == "" {
			log.Printf("ws: dispatch parse error endpoint=%s: %v", conn.ID, err)
			d.sendError(conn, protocol.CodeParseError, "invalid message format")
			return
		}
		if _, known := d.handlers[msgType]; known {
			log.Printf("ws: dispatch decode error type=%q endpoint=%s: %v", msgType, conn.ID, err)
			d.sendError(conn, protocol.CodeParseError, "invalid message format")
			return
		}
	}

	// Built-in ping handler, answered without requiring registration.
	if msgType == protocol.TypePing {
		d.sendPong(conn)
		return
	}

	handler, ok := d.handlers[msgType]
	if !ok {
		log.Printf("ws: unsupported message type=%q endpoint=%s", msgType, conn.ID)
		d.sendError(conn, protocol.CodeUnsupportedType, "unsupported message type")
		return
	}

	handler(conn, msg)
}

// sendError sends a structured error message back to the client. Errors during
// message construction or transmission are logged but not propagated.
func (d *MessageDispatcher) sendError(conn *Connection, code string, message string) {
	data, err := protocol.NewServerMessage(protocol.TypeError, protocol.ErrorMsg{
		Code:    code,
		Message: message,
	})
	if err != nil {
		log.Printf("ws: failed to build error message endpoint=%s: %v", conn.ID, err)
		return
	}
	d.send(conn, data)
}

// sendPong responds to a client ping with a pong message.
func (d *MessageDispatcher) sendPong(conn *Connection) {
	data, err := protocol.NewServerMessage(protocol.TypePong, protocol.PongMsg{})
	if err != nil {
		log.Printf("ws: failed to build pong message endpoint=%s: %v", conn.ID, err)
		return
	}
	d.send(conn, data)
}

func (d *MessageDispatcher) send(conn *Connection, data []byte) {
	if d.sender == nil {
		return
	}
	if err := d.sender.Send(conn.ID, data); err != nil {
		log.Printf("ws: failed to send reply endpoint=%s: %v", conn.ID, err)
	}
}
