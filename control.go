// File: wsconn/control.go
// Ping/pong/close protocol and connection teardown (spec §4.5), grounded
// on protocol.WSConnection's handleControl (momentics-hioload-ws/protocol/
// connection.go) for the control-frame dispatch shape, and on
// original_source/websocketpp/connection.hpp's send_close_ack/
// send_close_frame/terminate for the closing-handshake state table and the
// failedByMe bookkeeping (spec §9 Open Question).
package wsconn

import (
	"github.com/momentics/wsconn/processor"
)

func (c *Connection) handleControlFrame(f *processor.Frame) error {
	if len(f.Payload) > processor.MaxControlPayload {
		return &ProtocolError{Code: processor.CloseProtocolError, Reason: "control frame payload exceeds 125 bytes", Err: ErrControlPayloadTooBig}
	}
	switch f.Opcode {
	case processor.OpcodePing:
		return c.handleIncomingPing(f.Payload)
	case processor.OpcodePong:
		return c.handleIncomingPong(f.Payload)
	case processor.OpcodeClose:
		return c.handleIncomingClose(f.Payload)
	default:
		return &ProtocolError{Code: processor.CloseProtocolError, Reason: "unknown control opcode"}
	}
}

func (c *Connection) handleIncomingPing(payload []byte) error {
	autoPong := c.currentHandler().callOnPing(c, payload)
	if autoPong {
		c.sendControl(processor.OpcodePong, payload)
	}
	return nil
}

func (c *Connection) handleIncomingPong(payload []byte) error {
	c.timerMu.Lock()
	if c.pongTimer != nil {
		c.pongTimer.Cancel()
		c.pongTimer = nil
	}
	c.pongPending = nil
	c.timerMu.Unlock()
	c.currentHandler().callOnPong(c, payload)
	return nil
}

// handleIncomingClose implements the per-state branch table of spec §4.5,
// "Incoming CLOSE handling":
//   - OPEN:    this is the first CLOSE seen; echo it back (send_close_ack)
//     and move to CLOSING. Termination waits until that ack frame has
//     actually reached the wire (see sendCloseFrameAndTerminate), not the
//     moment it is merely queued.
//   - CLOSING: this is the peer's ack of a CLOSE we sent first; no frame
//     of ours is in flight here, so terminate immediately.
//   - CLOSED/CONNECTING: protocol violation, ignored beyond bookkeeping.
func (c *Connection) handleIncomingClose(payload []byte) error {
	code, reason := processor.CloseNoStatus, ""
	if len(payload) >= 2 {
		code = int(payload[0])<<8 | int(payload[1])
		reason = string(payload[2:])
	}
	c.remoteCloseCode = code
	c.remoteCloseReason = reason

	switch c.State() {
	case StateOpen:
		c.state.withLock(func() { c.state.external = StateClosing })
		c.sendCloseFrameAndTerminate(code, "", FailGood)
	case StateClosing:
		c.terminate(FailGood)
	default:
		// Already closed/never opened: nothing further to do.
	}
	return nil
}

func (c *Connection) sendControl(opcode byte, payload []byte) {
	f := &processor.Frame{IsFinal: true, Opcode: opcode, Payload: payload, PayloadLen: int64(len(payload))}
	c.enqueue(&outboundItem{frame: f, payloadLen: len(payload)})
}

// sendCloseFrame queues a CLOSE frame without requesting termination once
// it reaches the wire: used when our own close is still waiting on the
// peer's ack to arrive separately (spec §4.5, "Local close").
func (c *Connection) sendCloseFrame(code int, reason string) {
	c.enqueueCloseFrame(code, reason, false, FailGood)
}

// sendCloseFrameAndTerminate queues a CLOSE frame and arranges for
// terminate(fs) to run only once that exact frame has reached the wire,
// rather than racing it from the caller's goroutine (spec §4.5 OPEN row:
// "after ack write completes, arrange transport close and fire on_close").
func (c *Connection) sendCloseFrameAndTerminate(code int, reason string, fs FailStatus) {
	c.enqueueCloseFrame(code, reason, true, fs)
}

func (c *Connection) enqueueCloseFrame(code int, reason string, terminateAfterWrite bool, fs FailStatus) {
	var payload []byte
	if !c.cfg.silentClose {
		if len(reason) > processor.MaxCloseReasonBytes {
			reason = reason[:processor.MaxCloseReasonBytes]
		}
		payload = make([]byte, 2+len(reason))
		payload[0] = byte(code >> 8)
		payload[1] = byte(code)
		copy(payload[2:], reason)
	}

	f := &processor.Frame{IsFinal: true, Opcode: processor.OpcodeClose, Payload: payload, PayloadLen: int64(len(payload))}
	c.enqueue(&outboundItem{
		frame:               f,
		payloadLen:          len(payload),
		terminateAfterWrite: terminateAfterWrite,
		terminateStatus:     fs,
	})
}

// Ping sends a PING control frame and arms the pong-timeout timer
// (spec §4.5). Ping returns its error rather than panicking: ErrClosed when
// the connection is not open, ErrControlPayloadTooBig when payload exceeds
// 125 bytes.
func (c *Connection) Ping(payload []byte) error {
	if c.State() != StateOpen {
		return ErrClosed
	}
	if len(payload) > processor.MaxControlPayload {
		return ErrControlPayloadTooBig
	}
	c.timerMu.Lock()
	c.pongPending = payload
	c.pongTimer = c.cfg.scheduler.Schedule(c.cfg.pongTimeout, func() {
		c.timerMu.Lock()
		pending := c.pongPending
		c.pongTimer = nil
		c.pongPending = nil
		c.timerMu.Unlock()
		c.currentHandler().callOnPongTimeout(c, pending)
	})
	c.timerMu.Unlock()
	c.sendControl(processor.OpcodePing, payload)
	return nil
}

// Close begins the closing handshake: sends a CLOSE frame with the given
// code/reason and arms the closing-handshake timeout, after which the
// connection is forcibly terminated even without the peer's ack
// (spec §4.5, "Local close / forced termination on timeout").
func (c *Connection) Close(code int, reason string) error {
	return c.TryClose(code, reason)
}

// TryClose is Close's explicit-error form; Close is a thin alias, both
// provided per spec §4.4's dual raise/Try* convention even though neither
// can fail for reasons beyond the state check.
func (c *Connection) TryClose(code int, reason string) error {
	if !c.state.tryAdvanceExternal(StateOpen, StateClosing) {
		return ErrClosing
	}
	c.localCloseCode = code
	c.localCloseReason = reason
	c.closedByMe = true

	c.timerMu.Lock()
	c.closeTimer = c.cfg.scheduler.Schedule(c.cfg.closingHandshakeTimeout, func() {
		c.droppedByMe = true
		// The peer never acked our close in time: this is still a local
		// close from our perspective, so on_close fires with the local
		// code (spec §4.5), even though failStatus records TIMEOUT_WS for
		// diagnostics. Never routed through on_fail.
		c.terminateWithCallback(FailTimeoutWS, true)
	})
	c.timerMu.Unlock()
	c.sendCloseFrame(code, reason)
	return nil
}

// terminate performs idempotent teardown, firing on_close only for
// FailGood and on_fail for every other status. Safe to call from the read
// loop, the write pump, or a timer callback; only the first caller's fail
// status sticks.
func (c *Connection) terminate(fs FailStatus) {
	c.terminateWithCallback(fs, fs == FailGood)
}

// terminateWithCallback is terminate with an explicit choice of which
// terminal callback fires, for the one path (TryClose's own closing-
// handshake timeout) where a non-good fail status must still resolve as
// on_close rather than on_fail (spec §4.5).
func (c *Connection) terminateWithCallback(fs FailStatus, fireOnClose bool) {
	if !c.state.tryAdvanceExternal(StateClosing, StateClosed) {
		if !c.state.tryAdvanceExternal(StateOpen, StateClosed) {
			return // another path already terminated this connection
		}
	}
	if fs != FailGood {
		c.failStatus = fs
	}
	c.timerMu.Lock()
	if c.pongTimer != nil {
		c.pongTimer.Cancel()
	}
	if c.closeTimer != nil {
		c.closeTimer.Cancel()
	}
	c.timerMu.Unlock()
	_ = c.transport.Close()

	if fireOnClose {
		c.currentHandler().callOnClose(c)
	} else {
		c.currentHandler().callOnFail(c)
	}

	c.closeOnce.Do(func() { close(c.done) })
	if c.termHandler != nil {
		c.termHandler(c)
	}
}

// controlLoop drains the interrupt channel, delivering exactly one
// on_interrupt callback per Interrupt() call (spec §4.7). It exits once
// the connection is done.
func (c *Connection) controlLoop() {
	defer c.wg.Done()
	for {
		select {
		case <-c.interrupts:
			c.currentHandler().callOnInterrupt(c)
		case <-c.done:
			return
		}
	}
}

// Interrupt posts a single non-blocking signal onto the control loop, safe
// to call from any goroutine including another connection's callbacks
// (spec §4.7).
func (c *Connection) Interrupt() {
	select {
	case c.interrupts <- struct{}{}:
	default:
		// Interrupt channel full: hand the signal to a goroutine so the
		// caller never blocks and this interrupt still gets its own
		// on_interrupt once the control loop drains the backlog.
		go func() {
			select {
			case c.interrupts <- struct{}{}:
			case <-c.done:
			}
		}()
	}
}
