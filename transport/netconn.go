// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

// Package transport provides the reference net.Conn-backed implementation
// of wsconn.Transport. Grounded on transport/netconn.go's NetConn
// (Read/Write/Close over a net.Conn), adapted to the wsconn.Transport
// scatter-write shape and stripped of the NUMA-pool dependency (see
// DESIGN.md: affinity/NUMA pooling is dropped, not wired to any
// SPEC_FULL.md component).
package transport

import "net"

// NetConn adapts a net.Conn to wsconn.Transport.
type NetConn struct {
	conn net.Conn
}

// NewNetConn wraps conn, applying platform-specific socket tuning
// (tcpTune, per-OS file) before returning.
func NewNetConn(conn net.Conn) *NetConn {
	tcpTune(conn)
	return &NetConn{conn: conn}
}

// Read fills buf directly from the socket.
func (n *NetConn) Read(buf []byte) (int, error) {
	return n.conn.Read(buf)
}

// Write submits buffers to the socket in order. net.Conn has no native
// scatter-write, so buffers are concatenated into one Write call; this
// keeps the wsconn.Transport contract (a single logical write per call)
// without pulling in a vectored-I/O library the retrieval pack does not
// provide for plain TCP.
func (n *NetConn) Write(buffers [][]byte) error {
	if len(buffers) == 1 {
		_, err := n.conn.Write(buffers[0])
		return err
	}
	total := 0
	for _, b := range buffers {
		total += len(b)
	}
	merged := make([]byte, 0, total)
	for _, b := range buffers {
		merged = append(merged, b...)
	}
	_, err := n.conn.Write(merged)
	return err
}

// Close tears down the socket.
func (n *NetConn) Close() error {
	return n.conn.Close()
}
