//go:build linux

package transport

import (
	"net"

	"golang.org/x/sys/unix"
)

// tcpTune disables Nagle's algorithm and enables TCP keepalive on Linux,
// via golang.org/x/sys/unix -- the teacher's go.mod requires this module
// but never imports it (grep confirms); this is its wired home.
func tcpTune(conn net.Conn) {
	tc, ok := conn.(*net.TCPConn)
	if !ok {
		return
	}
	raw, err := tc.SyscallConn()
	if err != nil {
		return
	}
	_ = raw.Control(func(fd uintptr) {
		_ = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
		_ = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_KEEPALIVE, 1)
	})
}
