// File: wsconn/connection.go
// Package wsconn implements the core per-connection WebSocket state
// machine: opening handshake, framed data transfer, closing handshake, and
// the concurrency contract gluing them together. See SPEC_FULL.md for the
// full component breakdown.
package wsconn

import (
	"net/http"
	"net/url"
	"sync"

	"github.com/eapache/queue"
	"github.com/rs/zerolog"

	"github.com/momentics/wsconn/processor"
)

// Transport is the byte-oriented collaborator the core reads from and
// writes to. It is explicitly out of core scope (spec §1): the core only
// depends on this interface. A reference net.Conn-backed implementation
// lives in the sibling transport package.
//
// The original C++ design additionally requires the transport to supply a
// "strand" (a serialized callback execution context) and an interrupt
// primitive. This Go rewrite does not need either from the Transport
// itself: Read/Write are ordinary blocking calls. After the handshake,
// Read is only called from readLoop, and Write only from the write pump
// (pumpOnce), which the writeInFlight flag keeps to one at a time, so at
// most one read and one write are in flight. Application callbacks are not
// serialized onto one goroutine: readLoop, the write pump, controlLoop and
// the pong/closing-handshake timer goroutines each invoke callbacks, and
// these may run concurrently with one another. Interrupt is implemented
// with a buffered channel drained by controlLoop, not by the transport.
type Transport interface {
	// Read reads up to len(p) bytes, blocking until at least one byte is
	// available or an error/EOF occurs.
	Read(p []byte) (n int, err error)

	// Write submits buffers to the wire in order, as a single logical
	// write (a scatter/gather submission per spec §9 design note).
	Write(buffers [][]byte) error

	// Close tears down the underlying transport.
	Close() error
}

// TerminationHandler is invoked exactly once when a connection reaches its
// terminal state, for endpoint-level bookkeeping (spec §3, *Termination
// handler*).
type TerminationHandler func(*Connection)

// Connection is the central entity mediating between Transport and
// Handler (spec §2/§3). Grounded on protocol.WSConnection
// (protocol/connection.go), generalized with the explicit dual-level state
// machine, buffered-amount bookkeeping, and close-handshake protocol that
// the teacher's single-state-flag implementation does not have; those come
// from original_source/websocketpp/connection.hpp.
type Connection struct {
	role      Role
	userAgent string
	cfg       config
	logger    zerolog.Logger

	transport Transport

	handle Handle

	state *stateMachine

	// Handshake artifacts, read-only once external == OPEN (invariant 4).
	request  *http.Request
	response *responseBuilder
	uri      *url.URL

	proc        processor.Processor
	procVersion int

	readBuf    []byte
	readCursor int

	// Message reassembly across a fragmented data message (spec §4.3).
	msgInProgress bool
	msgOpcode     byte
	msgBuf        []byte

	// Write side: protected by writeMu exclusively (spec §5: "write lock").
	writeMu       sync.Mutex
	sendQueue     *queue.Queue
	writeInFlight bool
	bufferedAmt   int64

	msgPool *messagePool

	// Handler bundle, swapped under state.withLock (spec §4.6).
	handler *Handler

	termHandler TerminationHandler

	// Close bookkeeping (spec §3, *Close fields*).
	localCloseCode     int
	localCloseReason   string
	remoteCloseCode    int
	remoteCloseReason  string
	closedByMe         bool
	failedByMe         bool
	droppedByMe        bool

	failStatus FailStatus

	timerMu      sync.Mutex
	pongTimer   Cancelable
	pongPending []byte
	closeTimer  Cancelable

	handshakeMu       sync.Mutex
	handshakeTimer    Cancelable
	handshakeTimedOut bool

	interrupts chan struct{}
	done       chan struct{}
	closeOnce  sync.Once

	wg sync.WaitGroup
}

// New constructs a Connection in the CONNECTING/USER_INIT state. The
// handshake and data loops are started by Start, not by New, matching the
// teacher's two-phase construct-then-Start (protocol/connection.go).
func New(role Role, t Transport, handler *Handler, opts ...Option) *Connection {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	c := &Connection{
		role:       role,
		userAgent:  cfg.userAgent,
		cfg:        cfg,
		logger:     cfg.logger,
		transport:  t,
		handle:     NewHandle(),
		state:      newStateMachine(),
		readBuf:    make([]byte, cfg.readBufferSize),
		sendQueue:  queue.New(),
		msgPool:    newMessagePool(),
		handler:    handler,
		interrupts: make(chan struct{}, 8),
		done:       make(chan struct{}),
		failStatus: FailGood,
	}
	return c
}

// SetHandle sets the externally-assigned handle, overriding the one minted
// by New. Endpoints that keep their own ID scheme call this right after
// construction (spec §6, "Identity").
func (c *Connection) SetHandle(h Handle) { c.handle = h }

// GetHandle returns this connection's handle.
func (c *Connection) GetHandle() Handle { return c.handle }

// Role reports whether this is a server- or client-role connection.
func (c *Connection) Role() Role { return c.role }

// State returns the external, RFC-visible connection state.
func (c *Connection) State() State {
	s, _ := c.state.snapshot()
	return s
}

// FailStatus reports why the connection failed, or FailGood if it hasn't.
func (c *Connection) FailStatus() FailStatus { return c.failStatus }

// SetFailStatus overrides the recorded failure classification. Intended
// for use by the owning endpoint/listener only (mirrors
// SetTerminationHandler's privileged-caller convention), so it can
// attribute a handshake-phase deadline it enforced on the raw transport
// (spec §3, FailTimeoutTLS) that the core has no visibility into on its
// own.
func (c *Connection) SetFailStatus(fs FailStatus) { c.failStatus = fs }

// GetOrigin returns the Origin header from the opening request. Only valid
// once the request has been fully read (spec §6).
func (c *Connection) GetOrigin() string {
	if c.request == nil {
		return ""
	}
	return c.request.Header.Get("Origin")
}

// GetHost returns the URI host component (spec §6).
func (c *Connection) GetHost() string {
	if c.uri == nil {
		return ""
	}
	return c.uri.Hostname()
}

// GetResource returns the URI resource (path + query) component (spec §6).
func (c *Connection) GetResource() string {
	if c.uri == nil {
		return ""
	}
	return c.uri.RequestURI()
}

// GetPort returns the URI port component (spec §6).
func (c *Connection) GetPort() string {
	if c.uri == nil {
		return ""
	}
	return c.uri.Port()
}

// GetSecure reports whether the connection URI is flagged secure (spec §6).
func (c *Connection) GetSecure() bool {
	if c.uri == nil {
		return false
	}
	return c.uri.Scheme == "wss" || c.uri.Scheme == "https"
}

// GetBufferedAmount returns the sum of payload bytes queued and currently
// writing but not yet released to the transport (spec §3 invariant 6,
// §4.4 "Backpressure").
func (c *Connection) GetBufferedAmount() int64 {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.bufferedAmt
}

// GetSupportedVersions returns the closed set of WebSocket protocol
// versions this library negotiates (spec §6).
func (c *Connection) GetSupportedVersions() []int {
	out := make([]int, len(processor.SupportedVersions))
	copy(out, processor.SupportedVersions)
	return out
}

// SetTerminationHandler registers the endpoint-level callback invoked once
// terminate() completes (spec §3, *Termination handler*). Intended for use
// by the owning endpoint/listener only.
func (c *Connection) SetTerminationHandler(h TerminationHandler) {
	c.termHandler = h
}

// Done returns a channel closed once the connection has fully terminated.
func (c *Connection) Done() <-chan struct{} { return c.done }

// Stats is a snapshot of internal bookkeeping useful for diagnostics and
// tests, including the failedByMe flag spec §9 leaves undocumented (see
// DESIGN.md's Open Question resolution).
type Stats struct {
	State         State
	FailStatus    FailStatus
	BufferedAmt   int64
	ClosedByMe    bool
	FailedByMe    bool
	DroppedByMe   bool
	LocalCloseCode  int
	RemoteCloseCode int
}

func (c *Connection) Stats() Stats {
	ext, _ := c.state.snapshot()
	return Stats{
		State:           ext,
		FailStatus:      c.failStatus,
		BufferedAmt:     c.GetBufferedAmount(),
		ClosedByMe:      c.closedByMe,
		FailedByMe:      c.failedByMe,
		DroppedByMe:     c.droppedByMe,
		LocalCloseCode:  c.localCloseCode,
		RemoteCloseCode: c.remoteCloseCode,
	}
}
