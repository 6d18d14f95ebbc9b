// Package wsconntest provides fake collaborators for exercising the
// wsconn state machine without a real socket, grounded on the teacher's
// fake.Transport (fake/transport.go) adapted to the wsconn.Transport
// Read/Write/Close shape.
package wsconntest

import (
	"bytes"
	"errors"
	"io"
	"sync"
)

// ErrClosed is returned by Write after Close. Read after Close returns any
// bytes still buffered, then io.EOF.
var ErrClosed = errors.New("wsconntest: transport closed")

// PipeTransport is an in-memory, full-duplex wsconn.Transport: writes to
// one side become readable from the other, so a pair can stand in for a
// client/server socket in tests.
type PipeTransport struct {
	mu     sync.Mutex
	cond   *sync.Cond
	inbox  bytes.Buffer
	closed bool

	peer *PipeTransport

	readErr  error
	writeErr error
}

// NewPipe returns two connected PipeTransports: writes to a are readable
// from b, and vice versa.
func NewPipe() (a, b *PipeTransport) {
	a = &PipeTransport{}
	b = &PipeTransport{}
	a.cond = sync.NewCond(&a.mu)
	b.cond = sync.NewCond(&b.mu)
	a.peer = b
	b.peer = a
	return a, b
}

func (p *PipeTransport) Read(buf []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for p.inbox.Len() == 0 && !p.closed && p.readErr == nil {
		p.cond.Wait()
	}
	if p.readErr != nil {
		return 0, p.readErr
	}
	if p.inbox.Len() == 0 && p.closed {
		return 0, io.EOF
	}
	return p.inbox.Read(buf)
}

func (p *PipeTransport) Write(buffers [][]byte) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	if p.writeErr != nil {
		err := p.writeErr
		p.mu.Unlock()
		return err
	}
	peer := p.peer
	p.mu.Unlock()

	peer.mu.Lock()
	for _, b := range buffers {
		peer.inbox.Write(b)
	}
	peer.cond.Broadcast()
	peer.mu.Unlock()
	return nil
}

func (p *PipeTransport) Close() error {
	p.mu.Lock()
	p.closed = true
	p.cond.Broadcast()
	p.mu.Unlock()
	return nil
}

// SetReadError makes subsequent Read calls return err immediately.
func (p *PipeTransport) SetReadError(err error) {
	p.mu.Lock()
	p.readErr = err
	p.cond.Broadcast()
	p.mu.Unlock()
}

// SetWriteError makes subsequent Write calls return err immediately.
func (p *PipeTransport) SetWriteError(err error) {
	p.mu.Lock()
	p.writeErr = err
	p.mu.Unlock()
}
