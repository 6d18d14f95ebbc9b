// File: wsconn/write.go
// The write pump (spec §4.4), grounded on protocol.WSConnection's sendLoop
// and SendFrame (momentics-hioload-ws/protocol/connection.go), generalized
// with an explicit FIFO send queue (github.com/eapache/queue, the
// teacher's own unused dependency -- wired in here rather than dropped)
// and buffered-amount bookkeeping.
package wsconn

import (
	"github.com/momentics/wsconn/processor"
)

// outboundItem is one unit of work for the write pump: a data/control frame
// to encode and send, optionally marked to terminate the connection once
// that exact frame reaches the wire (terminateAfterWrite), mirroring
// websocketpp::connection::handle_write_frame's terminate-after-write flag
// (original_source/websocketpp/connection.hpp) rather than tearing the
// transport down out from under a write still in flight.
type outboundItem struct {
	frame      *processor.Frame
	payloadLen int
	done       chan error // optional: signaled once this item reaches the wire

	terminateAfterWrite bool
	terminateStatus     FailStatus
}

// enqueue appends an item to the send queue and wakes the write pump if it
// is idle. Called from any goroutine under writeMu (spec §5: "single
// write lock guards the queue and buffered amount").
func (c *Connection) enqueue(item *outboundItem) {
	c.writeMu.Lock()
	c.sendQueue.Add(item)
	c.bufferedAmt += int64(item.payloadLen)
	shouldKick := !c.writeInFlight
	if shouldKick {
		c.writeInFlight = true
	}
	c.writeMu.Unlock()

	if shouldKick {
		go c.pumpOnce()
	}
}

// writeLoop exists only to participate in the Start/terminate WaitGroup
// bookkeeping; the actual pump work runs as a chain of pumpOnce calls
// triggered by enqueue, so that a quiet connection costs nothing beyond an
// idle goroutine slot here.
func (c *Connection) writeLoop() {
	defer c.wg.Done()
	<-c.done
}

// pumpOnce drains the send queue until empty, writing one frame per
// Transport.Write call (spec §5: "at most one write in flight"). Each
// iteration re-acquires writeMu only to pop the next item and update
// bookkeeping; the actual Transport.Write happens outside the lock so a
// slow transport does not block enqueue from other goroutines.
func (c *Connection) pumpOnce() {
	for {
		c.writeMu.Lock()
		if c.sendQueue.Length() == 0 {
			c.writeInFlight = false
			c.writeMu.Unlock()
			return
		}
		item := c.sendQueue.Remove().(*outboundItem)
		c.writeMu.Unlock()

		mask := c.role == RoleClient
		wire, err := c.proc.Encode(item.frame, mask)
		if err == nil {
			err = c.transport.Write([][]byte{wire})
		}

		c.writeMu.Lock()
		c.bufferedAmt -= int64(item.payloadLen)
		if c.bufferedAmt < 0 {
			c.bufferedAmt = 0
		}
		c.writeMu.Unlock()

		if item.done != nil {
			item.done <- err
			close(item.done)
		}

		if err != nil {
			c.writeMu.Lock()
			c.writeInFlight = false
			c.writeMu.Unlock()
			c.failedByMe = true
			c.terminate(FailSystem)
			return
		}

		if item.terminateAfterWrite {
			// The frame this termination was waiting on has reached the
			// wire: safe to close the transport and fire the terminal
			// callback now, not before.
			c.writeMu.Lock()
			c.writeInFlight = false
			c.writeMu.Unlock()
			c.terminate(item.terminateStatus)
			return
		}
	}
}

// sendData queues a single, unfragmented data frame. Fragmentation of
// outbound messages is left to the caller (spec §4.4, Non-goal).
func (c *Connection) sendData(opcode byte, payload []byte) error {
	if st := c.State(); st != StateOpen {
		return ErrClosed
	}
	f := &processor.Frame{
		IsFinal:    true,
		Opcode:     opcode,
		Payload:    payload,
		PayloadLen: int64(len(payload)),
	}
	c.enqueue(&outboundItem{frame: f, payloadLen: len(payload)})
	return nil
}

// Send queues a text or binary data message, raising on failure. TrySend
// returns the error instead (spec §4.4, dual raise/Try* forms).
func (c *Connection) Send(opcode byte, payload []byte) {
	if err := c.sendData(opcode, payload); err != nil {
		panic(err)
	}
}

// TrySend queues a text or binary data message, returning any error
// instead of panicking.
func (c *Connection) TrySend(opcode byte, payload []byte) error { return c.sendData(opcode, payload) }
