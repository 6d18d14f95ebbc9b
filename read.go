// File: wsconn/read.go
// The framed-data read loop (spec §4.3), grounded on protocol.WSConnection's
// recvLoop (momentics-hioload-ws/protocol/connection.go), generalized with
// incremental decode, message reassembly across fragments, UTF-8/size
// validation, and inbound rate limiting.
package wsconn

import (
	"errors"
	"io"
	"unicode/utf8"

	"github.com/momentics/wsconn/processor"
)

// readLoop is the single goroutine ever calling Transport.Read for this
// connection (spec §5, concurrency contract: "at most one read in
// flight"). It runs until the transport errors/EOFs, which includes
// terminate() closing the transport.
func (c *Connection) readLoop() {
	defer c.wg.Done()
	for {
		if c.readCursor == len(c.readBuf) {
			// Buffer exhausted without a full frame: grow rather than stall.
			grown := make([]byte, len(c.readBuf)*2)
			copy(grown, c.readBuf)
			c.readBuf = grown
		}

		n, err := c.transport.Read(c.readBuf[c.readCursor:])
		if n > 0 {
			c.readCursor += n
			if cerr := c.consumeReadBuffer(); cerr != nil {
				c.failLocally(cerr)
				return
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				c.handleRemoteGoneQuiet()
			} else {
				c.failLocally(err)
			}
			return
		}
	}
}

// consumeReadBuffer decodes as many complete frames as are buffered,
// compacting the buffer afterward.
func (c *Connection) consumeReadBuffer() error {
	frames, consumed, err := c.proc.Decode(c.readBuf[:c.readCursor])
	if err != nil {
		return &ProtocolError{Code: processor.CloseProtocolError, Reason: err.Error(), Err: err}
	}
	for _, f := range frames {
		if err := c.dispatchFrame(f); err != nil {
			return err
		}
	}
	remaining := c.readCursor - consumed
	copy(c.readBuf, c.readBuf[consumed:c.readCursor])
	c.readCursor = remaining
	return nil
}

func (c *Connection) dispatchFrame(f *processor.Frame) error {
	if err := c.checkMasking(f); err != nil {
		return err
	}
	if f.IsControl() {
		return c.handleControlFrame(f)
	}
	return c.handleDataFrame(f)
}

// checkMasking enforces RFC 6455 §5.1's masking requirement: frames sent
// client->server MUST be masked, frames sent server->client MUST NOT be;
// either violation is a protocol error closed with 1002 (spec §7).
// Hixie-76 (version 0) predates masking entirely and is exempt.
func (c *Connection) checkMasking(f *processor.Frame) error {
	if c.procVersion == 0 {
		return nil
	}
	switch {
	case c.role == RoleServer && !f.Masked:
		return &ProtocolError{Code: processor.CloseProtocolError, Reason: "unmasked frame from client"}
	case c.role == RoleClient && f.Masked:
		return &ProtocolError{Code: processor.CloseProtocolError, Reason: "masked frame from server"}
	default:
		return nil
	}
}

func (c *Connection) handleDataFrame(f *processor.Frame) error {
	if c.cfg.rateLimiter != nil && !c.cfg.rateLimiter.Allow() {
		return &ProtocolError{Code: processor.ClosePolicyViolation, Reason: "rate limit exceeded"}
	}

	switch f.Opcode {
	case processor.OpcodeText, processor.OpcodeBinary:
		if c.msgInProgress {
			return &ProtocolError{Code: processor.CloseProtocolError, Reason: "new data frame while fragmented message in progress"}
		}
		c.msgInProgress = true
		c.msgOpcode = f.Opcode
		c.msgBuf = append(c.msgBuf[:0], f.Payload...)
	case processor.OpcodeContinuation:
		if !c.msgInProgress {
			return &ProtocolError{Code: processor.CloseProtocolError, Reason: "continuation frame without initial frame"}
		}
		c.msgBuf = append(c.msgBuf, f.Payload...)
	default:
		return &ProtocolError{Code: processor.CloseProtocolError, Reason: "unknown data opcode"}
	}

	if int64(len(c.msgBuf)) > c.cfg.maxMessageSize {
		return &ProtocolError{Code: processor.CloseMessageTooBig, Reason: ErrMessageTooBig.Error(), Err: ErrMessageTooBig}
	}

	if !f.IsFinal {
		return nil
	}

	opcode := c.msgOpcode
	payload := c.msgBuf
	c.msgInProgress = false
	c.msgBuf = nil

	if opcode == processor.OpcodeText && !utf8.Valid(payload) {
		return &ProtocolError{Code: processor.CloseInvalidPayload, Reason: ErrInvalidUTF8.Error(), Err: ErrInvalidUTF8}
	}

	msg := c.msgPool.get()
	msg.Opcode = opcode
	msg.Payload = append(msg.Payload[:0], payload...)
	c.currentHandler().callOnMessage(c, msg)
	c.msgPool.put(msg)
	return nil
}

// handleRemoteGoneQuiet handles a bare EOF with no closing handshake: the
// peer dropped the TCP connection without sending a CLOSE frame.
func (c *Connection) handleRemoteGoneQuiet() {
	c.droppedByMe = false
	c.terminate(FailWebSocket)
}

// failLocally reports a read-side error to the peer and tears the
// connection down. When the error carries an RFC close code, the CLOSE
// frame is queued with terminateAfterWrite so the transport is only
// closed once that frame has actually reached the wire, instead of
// racing terminate() against the write pump (spec §4.5).
func (c *Connection) failLocally(err error) {
	c.logger.Debug().Err(err).Str("handle", c.handle.String()).Msg("read loop failing connection")
	c.failedByMe = true
	var perr *ProtocolError
	if errors.As(err, &perr) {
		c.sendCloseFrameAndTerminate(perr.Code, perr.Reason, FailWebSocket)
		return
	}
	c.terminate(FailWebSocket)
}
