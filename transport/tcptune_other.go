//go:build !linux

package transport

import "net"

// tcpTune disables Nagle's algorithm and enables TCP keepalive on
// non-Linux platforms through the portable net.TCPConn setters, in place
// of the unix syscall tuning in tcptune_linux.go.
func tcpTune(conn net.Conn) {
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
		_ = tc.SetKeepAlive(true)
	}
}
