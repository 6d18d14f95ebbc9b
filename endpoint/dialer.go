// File: endpoint/dialer.go
package endpoint

import (
	"net"
	"net/url"
	"time"

	"github.com/momentics/wsconn"
	wstransport "github.com/momentics/wsconn/transport"
)

// Dial opens a TCP connection to u's host:port and drives the client-role
// opening handshake to completion, returning the live Connection on
// success. u's scheme (ws/wss) is only consulted for the port default;
// TLS is explicitly out of scope (spec Non-goals) so "wss" still dials
// plain TCP here -- callers needing TLS wrap the net.Conn themselves
// before this point is reached, which this helper does not do.
func Dial(rawURL string, handler *wsconn.Handler, opts ...wsconn.Option) (*wsconn.Connection, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	addr := u.Host
	if u.Port() == "" {
		port := "80"
		if u.Scheme == "wss" {
			port = "443"
		}
		addr = net.JoinHostPort(u.Hostname(), port)
	}
	raw, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	t := wstransport.NewNetConn(raw)
	c := wsconn.New(wsconn.RoleClient, t, handler, opts...)
	c.SetRequestURI(u)

	_ = raw.SetDeadline(time.Now().Add(defaultHandshakeDeadline))
	err = c.Start()
	_ = raw.SetDeadline(time.Time{})

	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			c.SetFailStatus(wsconn.FailTimeoutTLS)
		}
		return nil, err
	}
	return c, nil
}
