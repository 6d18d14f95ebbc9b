// File: wsconn/options.go
package wsconn

import (
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/momentics/wsconn/wslog"
)

// Role distinguishes the two connection roles named in spec §3: immutable
// after construction.
type Role int

const (
	RoleServer Role = iota
	RoleClient
)

func (r Role) String() string {
	if r == RoleClient {
		return "client"
	}
	return "server"
}

// config holds the immutable, per-connection tunables assembled via
// Option, mirroring the teacher's facade.Config/DefaultConfig() struct-
// with-defaults idiom (facade/hioload.go) but scoped to one connection
// rather than one process, since the core owns no process-wide facade.
type config struct {
	readBufferSize          int
	maxMessageSize           int64
	handshakeTimeout         time.Duration
	closingHandshakeTimeout  time.Duration
	pongTimeout              time.Duration
	silentClose              bool
	userAgent                string
	logger                   zerolog.Logger
	scheduler                Scheduler
	rateLimiter              *rate.Limiter
}

func defaultConfig() config {
	return config{
		readBufferSize:          64 * 1024,
		maxMessageSize:          32 << 20,
		handshakeTimeout:        10 * time.Second,
		closingHandshakeTimeout: 5 * time.Second,
		pongTimeout:             10 * time.Second,
		silentClose:             false,
		userAgent:               "wsconn/1.0",
		logger:                  wslog.Nop(),
		scheduler:               NewTimeScheduler(),
	}
}

// Option configures a Connection at construction time.
type Option func(*config)

// WithReadBufferSize sets the fixed-size read buffer (spec §3, *Read buffer*).
func WithReadBufferSize(n int) Option {
	return func(c *config) { c.readBufferSize = n }
}

// WithMaxMessageSize bounds the total payload size of a (possibly
// fragmented) data message before the core closes with 1009 (spec §4.3).
func WithMaxMessageSize(n int64) Option {
	return func(c *config) { c.maxMessageSize = n }
}

// WithHandshakeTimeout bounds how long the opening handshake may take
// before failing with TIMEOUT_WS (spec §4.2 step 2).
func WithHandshakeTimeout(d time.Duration) Option {
	return func(c *config) { c.handshakeTimeout = d }
}

// WithClosingHandshakeTimeout bounds how long close() waits for the peer's
// ack before forcing termination (spec §4.5).
func WithClosingHandshakeTimeout(d time.Duration) Option {
	return func(c *config) { c.closingHandshakeTimeout = d }
}

// WithPongTimeout bounds how long ping() waits for the matching pong
// before invoking on_pong_timeout (spec §4.5).
func WithPongTimeout(d time.Duration) Option {
	return func(c *config) { c.pongTimeout = d }
}

// WithSilentClose enables the policy where outgoing CLOSE frames omit code
// and reason even when set (spec §4.5, "Silent close policy").
func WithSilentClose(enabled bool) Option {
	return func(c *config) { c.silentClose = enabled }
}

// WithUserAgent sets the immutable user-agent string (spec §3).
func WithUserAgent(ua string) Option {
	return func(c *config) { c.userAgent = ua }
}

// WithLogger injects a structured logger; defaults to a no-op logger. This
// resolves spec §9's open question about unconditional stdout logging.
func WithLogger(l zerolog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithScheduler overrides the timer implementation, mainly for tests.
func WithScheduler(s Scheduler) Option {
	return func(c *config) { c.scheduler = s }
}

// WithRateLimiter attaches an inbound-message rate limiter (spec §4.4:
// "caps are policy set by the embedder"), grounded on
// luciancaetano-kephasnet's RateLimitConfig/rate.Limiter usage. Denied
// frames close the connection with code 1008 (Policy Violation).
func WithRateLimiter(l *rate.Limiter) Option {
	return func(c *config) { c.rateLimiter = l }
}
