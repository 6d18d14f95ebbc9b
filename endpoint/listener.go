// File: endpoint/listener.go
package endpoint

import (
	"net"
	"time"

	"github.com/rs/zerolog"

	"github.com/momentics/wsconn"
	wstransport "github.com/momentics/wsconn/transport"
)

// defaultHandshakeDeadline bounds how long an accepted socket may sit
// between TCP accept and a completed opening handshake, when
// ListenerConfig.HandshakeDeadline is left unset (spec §3: the endpoint
// listener enforces this deadline, distinct from the per-connection
// handshakeTimeout the core itself enforces once Start has begun).
const defaultHandshakeDeadline = 10 * time.Second

// ListenerConfig configures Listener, generalizing transport/tcp/
// listener.go's ListenerConfig (Addr + per-connection handler) to the
// wsconn core: instead of hand-rolling the handshake inline, each accepted
// net.Conn is wrapped in a wsconn.Connection and driven through Start.
type ListenerConfig struct {
	Addr     string
	Handler  *wsconn.Handler
	Registry *Registry
	Options  []wsconn.Option
	Logger   zerolog.Logger

	// HandshakeDeadline bounds accept-to-open-handshake-complete time for
	// each connection; zero uses defaultHandshakeDeadline.
	HandshakeDeadline time.Duration
}

// Listener runs the accept loop for a server-role endpoint.
type Listener struct {
	cfg ListenerConfig
	ln  net.Listener
}

// Listen binds cfg.Addr and returns a Listener ready for Serve.
func Listen(cfg ListenerConfig) (*Listener, error) {
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return nil, err
	}
	return &Listener{cfg: cfg, ln: ln}, nil
}

// Addr returns the bound local address.
func (l *Listener) Addr() net.Addr { return l.ln.Addr() }

// Close stops accepting new connections.
func (l *Listener) Close() error { return l.ln.Close() }

// Serve accepts connections until the listener is closed, spawning one
// Connection per accepted socket. Each accepted socket's opening handshake
// runs in a goroutine Serve spawns, and its data loops run in goroutines
// started by Connection.Start, so Serve itself only ever blocks in Accept.
func (l *Listener) Serve() error {
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			return err
		}
		go l.handle(conn)
	}
}

func (l *Listener) handle(raw net.Conn) {
	t := wstransport.NewNetConn(raw)
	opts := append(append([]wsconn.Option{}, l.cfg.Options...), wsconn.WithLogger(l.cfg.Logger))
	c := wsconn.New(wsconn.RoleServer, t, l.cfg.Handler, opts...)
	if l.cfg.Registry != nil {
		l.cfg.Registry.Track(c)
	}

	deadline := l.cfg.HandshakeDeadline
	if deadline <= 0 {
		deadline = defaultHandshakeDeadline
	}
	_ = raw.SetDeadline(time.Now().Add(deadline))

	err := c.Start()
	_ = raw.SetDeadline(time.Time{})

	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			c.SetFailStatus(wsconn.FailTimeoutTLS)
		}
		l.cfg.Logger.Debug().Err(err).Msg("connection handshake failed")
	}
}
