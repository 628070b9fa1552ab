package ws

import (
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gobwas/ws"
)

// ErrOutboxFull is returned by Enqueue when the connection is not draining
// its outbound frames fast enough.
var ErrOutboxFull = errors.New("ws: outbox full")

// Connection represents a single WebSocket client connection with its
// associated metadata, a bounded outbox drained by a writer goroutine, and a
// write mutex for serializing outbound frames.
type Connection struct {
	ID         string    // endpoint ID (UUID)
	Conn       net.Conn  // underlying TCP connection
	Fd         int       // file descriptor, -1 where epoll is not used
	RemoteIP   string    // client address as seen by the server
	CreatedAt  time.Time // when the connection was established
	lastSeen   atomic.Int64
	outbox     chan []byte   // queued text frames; nil entry means close after flush
	done       chan struct{} // closed when the connection is closed
	closeOnce  sync.Once
	writeMu    sync.Mutex // serializes writes to this connection
	processing int32      // atomic flag: 0 = idle, 1 = being read by handleConn
}

// NewConnection wraps an upgraded net.Conn.
func NewConnection(id string, conn net.Conn, outboxSize int) *Connection {
	if outboxSize <= 0 {
		outboxSize = 64
	}
	c := &Connection{
		ID:        id,
		Conn:      conn,
		Fd:        socketFD(conn),
		CreatedAt: time.Now(),
		outbox:    make(chan []byte, outboxSize),
		done:      make(chan struct{}),
	}
	c.Touch()
	return c
}

// Touch records activity from the client.
func (c *Connection) Touch() {
	c.lastSeen.Store(time.Now().UnixNano())
}

// LastSeen returns the time of the last frame received from the client.
func (c *Connection) LastSeen() time.Time {
	return time.Unix(0, c.lastSeen.Load())
}

// Enqueue queues a text frame for the writer goroutine without blocking.
func (c *Connection) Enqueue(data []byte) error {
	select {
	case <-c.done:
		return net.ErrClosed
	default:
	}
	select {
	case c.outbox <- data:
		return nil
	default:
		return ErrOutboxFull
	}
}

// requestClose asks the writer to flush queued frames and then close.
func (c *Connection) requestClose() error {
	return c.Enqueue(nil)
}

// writeFrame writes one frame under the write mutex, bounded by timeout
// when it is positive.
func (c *Connection) writeFrame(timeout time.Duration, f ws.Frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if timeout > 0 {
		_ = c.Conn.SetWriteDeadline(time.Now().Add(timeout))
		// Cleared so a stale deadline cannot fail the next writer.
		defer c.Conn.SetWriteDeadline(time.Time{})
	}
	return ws.WriteFrame(c.Conn, f)
}

// WriteMessage sends a WebSocket text frame to this connection directly,
// bypassing the outbox.
func (c *Connection) WriteMessage(data []byte, timeout time.Duration) error {
	return c.writeFrame(timeout, ws.NewTextFrame(data))
}

func (c *Connection) writeClose(timeout time.Duration) error {
	return c.writeFrame(timeout, ws.NewCloseFrame(ws.NewCloseFrameBody(ws.StatusNormalClosure, "")))
}

func (c *Connection) writePing(timeout time.Duration) error {
	return c.writeFrame(timeout, ws.NewPingFrame(nil))
}

// Close stops the writer and closes the underlying network connection. It
// is safe to call more than once.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.Conn.Close()
	})
	return err
}

// ConnectionManager is a thread-safe registry that maps endpoint IDs and
// network connections to their respective Connection objects.
type ConnectionManager struct {
	mu     sync.RWMutex
	byID   map[string]*Connection   // endpoint_id -> Connection
	byConn map[net.Conn]*Connection // net.Conn -> Connection, for readiness events
}

// NewConnectionManager creates an empty ConnectionManager ready for use.
func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{
		byID:   make(map[string]*Connection),
		byConn: make(map[net.Conn]*Connection),
	}
}

// Add registers a new connection in both lookup maps.
func (cm *ConnectionManager) Add(conn *Connection) {
	cm.mu.Lock()
	cm.byID[conn.ID] = conn
	cm.byConn[conn.Conn] = conn
	cm.mu.Unlock()
}

// Remove removes a connection by endpoint ID, closes it, and removes it from
// both lookup maps. Returns true if the connection was found and removed,
// false if it was already gone.
func (cm *ConnectionManager) Remove(id string) bool {
	cm.mu.Lock()
	conn, ok := cm.byID[id]
	if ok {
		delete(cm.byID, id)
		delete(cm.byConn, conn.Conn)
	}
	cm.mu.Unlock()

	if ok {
		conn.Close()
	}
	return ok
}

// Get returns the connection for the given endpoint ID, or nil if not found.
func (cm *ConnectionManager) Get(id string) *Connection {
	cm.mu.RLock()
	conn := cm.byID[id]
	cm.mu.RUnlock()
	return conn
}

// GetByConn returns the connection wrapping the given net.Conn, or nil if
// not found.
func (cm *ConnectionManager) GetByConn(c net.Conn) *Connection {
	cm.mu.RLock()
	conn := cm.byConn[c]
	cm.mu.RUnlock()
	return conn
}

// Count returns the current number of active connections.
func (cm *ConnectionManager) Count() int {
	cm.mu.RLock()
	n := len(cm.byID)
	cm.mu.RUnlock()
	return n
}

// All returns a snapshot of all current connections. The returned slice is
// safe to iterate without holding the lock.
func (cm *ConnectionManager) All() []*Connection {
	cm.mu.RLock()
	conns := make([]*Connection, 0, len(cm.byID))
	for _, conn := range cm.byID {
		conns = append(conns, conn)
	}
	cm.mu.RUnlock()
	return conns
}
