//go:build linux

package ws

import (
	"errors"
	"io"
	"net"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"
)

// errNoFD is returned by Add for connections that do not expose a socket.
var errNoFD = errors.New("ws: connection has no file descriptor")

// Epoll wraps Linux epoll syscalls for WebSocket I/O multiplexing. File
// descriptors are registered with the kernel and the server is notified only
// when a connection has data to read or the peer hung up.
type Epoll struct {
	fd     int               // epoll file descriptor
	byFd   map[int]net.Conn  // fd -> net.Conn
	fdOf   map[net.Conn]int  // net.Conn -> fd, valid after the socket is closed
	mu     sync.RWMutex      // protects both maps
	events []unix.EpollEvent // reusable event buffer for Wait
}

// NewEpoll creates a new epoll instance using epoll_create1.
func NewEpoll() (*Epoll, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &Epoll{
		fd:     fd,
		byFd:   make(map[int]net.Conn),
		fdOf:   make(map[net.Conn]int),
		events: make([]unix.EpollEvent, 128),
	}, nil
}

// Add registers a connection for read readiness. EPOLLRDHUP reports a peer
// that closed its side so the disconnect is seen without waiting for the
// heartbeat.
func (e *Epoll) Add(conn net.Conn) error {
	fd := socketFD(conn)
	if fd < 0 {
		return errNoFD
	}
	if err := unix.EpollCtl(e.fd, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{
		Events: unix.EPOLLIN | unix.EPOLLRDHUP | unix.EPOLLHUP,
		Fd:     int32(fd),
	}); err != nil {
		return err
	}

	e.mu.Lock()
	e.byFd[fd] = conn
	e.fdOf[conn] = fd
	e.mu.Unlock()
	return nil
}

// Remove unregisters a connection. Unknown connections are ignored.
func (e *Epoll) Remove(conn net.Conn) error {
	e.mu.Lock()
	fd, ok := e.fdOf[conn]
	if ok {
		delete(e.fdOf, conn)
		delete(e.byFd, fd)
	}
	e.mu.Unlock()

	if !ok {
		return nil
	}
	err := unix.EpollCtl(e.fd, unix.EPOLL_CTL_DEL, fd, nil)
	if errors.Is(err, unix.EBADF) || errors.Is(err, unix.ENOENT) {
		// The socket was closed first; the kernel already dropped it.
		return nil
	}
	return err
}

// Wait blocks until one or more registered connections are ready. Events
// for connections removed in the meantime are skipped.
func (e *Epoll) Wait() ([]net.Conn, error) {
	n, err := unix.EpollWait(e.fd, e.events, -1)
	if err != nil {
		return nil, err
	}

	e.mu.RLock()
	conns := make([]net.Conn, 0, n)
	for i := 0; i < n; i++ {
		if conn, ok := e.byFd[int(e.events[i].Fd)]; ok {
			conns = append(conns, conn)
		}
	}
	e.mu.RUnlock()
	return conns, nil
}

// Reader returns the stream frames of conn are read from. With epoll
// nothing is buffered ahead, so it is the connection itself.
func (e *Epoll) Reader(conn net.Conn) io.Reader {
	return conn
}

// Resume is a no-op: epoll is level-triggered and reports remaining data
// again on the next Wait.
func (e *Epoll) Resume(net.Conn) {}

// Close closes the epoll file descriptor, which makes a blocked Wait fail.
func (e *Epoll) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.byFd = make(map[int]net.Conn)
	e.fdOf = make(map[net.Conn]int)
	return unix.Close(e.fd)
}

// socketFD extracts the file descriptor from a net.Conn through
// SyscallConn, without the dup that File() would make. It returns -1 for
// connections without a live socket (net.Pipe, closed sockets).
func socketFD(conn net.Conn) int {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return -1
	}

	raw, err := sc.SyscallConn()
	if err != nil {
		return -1
	}

	fd := -1
	if err := raw.Control(func(sfd uintptr) {
		fd = int(sfd)
	}); err != nil {
		return -1
	}
	return fd
}
