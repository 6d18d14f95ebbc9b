// File: wsconn/state.go
// Package wsconn implements the core per-connection WebSocket state machine.
package wsconn

import (
	"fmt"
	"sync"
)

// State is the external, RFC 6455-visible connection state. It is monotone:
// CONNECTING -> OPEN -> CLOSING -> CLOSED, with a shortcut straight from
// CONNECTING to CLOSED on handshake failure.
type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "CONNECTING"
	case StateOpen:
		return "OPEN"
	case StateClosing:
		return "CLOSING"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// InternalState is the finer-grained state used to gate operations that the
// external state alone cannot distinguish (e.g. "only inside the handshake
// callback may the response be mutated").
type InternalState int32

const (
	IStateUserInit InternalState = iota
	IStateTransportInit
	IStateReadHTTPRequest
	IStateWriteHTTPRequest
	IStateReadHTTPResponse
	IStateWriteHTTPResponse
	IStateProcessHTTPRequest
	IStateProcessConnection
)

func (s InternalState) String() string {
	switch s {
	case IStateUserInit:
		return "USER_INIT"
	case IStateTransportInit:
		return "TRANSPORT_INIT"
	case IStateReadHTTPRequest:
		return "READ_HTTP_REQUEST"
	case IStateWriteHTTPRequest:
		return "WRITE_HTTP_REQUEST"
	case IStateReadHTTPResponse:
		return "READ_HTTP_RESPONSE"
	case IStateWriteHTTPResponse:
		return "WRITE_HTTP_RESPONSE"
	case IStateProcessHTTPRequest:
		return "PROCESS_HTTP_REQUEST"
	case IStateProcessConnection:
		return "PROCESS_CONNECTION"
	default:
		return "UNKNOWN"
	}
}

// FailStatus classifies why a connection terminated abnormally.
type FailStatus int32

const (
	FailGood FailStatus = iota
	FailSystem
	FailWebSocket
	FailUnknown
	FailTimeoutTLS
	FailTimeoutWS
)

func (f FailStatus) String() string {
	switch f {
	case FailGood:
		return "GOOD"
	case FailSystem:
		return "SYSTEM"
	case FailWebSocket:
		return "WEBSOCKET"
	case FailUnknown:
		return "UNKNOWN"
	case FailTimeoutTLS:
		return "TIMEOUT_TLS"
	case FailTimeoutWS:
		return "TIMEOUT_WS"
	default:
		return "UNKNOWN"
	}
}

// StateError reports an illegal state transition attempt: a programmer
// error per the spec's error taxonomy, never a recoverable condition.
type StateError struct {
	Op       string
	Required string
	Actual   string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("wsconn: illegal state for %s: required %s, got %s", e.Op, e.Required, e.Actual)
}

// stateMachine holds the dual-level state pair behind one lock, so that
// check/advance/advanceBoth observers always see a consistent combination.
// Grounded on websocketpp::connection's atomic_state_check/atomic_state_change
// (original_source/websocketpp/connection.hpp), rewritten without exceptions.
type stateMachine struct {
	mu       sync.Mutex
	external State
	internal InternalState
}

func newStateMachine() *stateMachine {
	return &stateMachine{
		external: StateConnecting,
		internal: IStateUserInit,
	}
}

// snapshot returns the current (external, internal) pair without mutation.
func (sm *stateMachine) snapshot() (State, InternalState) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.external, sm.internal
}

// check verifies the internal state equals req, returning a *StateError
// otherwise. No I/O, no external lock interplay: callers hold this briefly.
func (sm *stateMachine) check(op string, req InternalState) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sm.internal != req {
		return &StateError{Op: op, Required: req.String(), Actual: sm.internal.String()}
	}
	return nil
}

// advance moves the internal state from req to dest, leaving external alone.
func (sm *stateMachine) advance(op string, req, dest InternalState) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sm.internal != req {
		return &StateError{Op: op, Required: req.String(), Actual: sm.internal.String()}
	}
	sm.internal = dest
	return nil
}

// advanceBoth moves both the internal and external state atomically,
// requiring both to currently hold their respective req values.
func (sm *stateMachine) advanceBoth(op string, ireq, idest InternalState, ereq, edest State) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sm.internal != ireq {
		return &StateError{Op: op, Required: ireq.String(), Actual: sm.internal.String()}
	}
	if sm.external != ereq {
		return &StateError{Op: op, Required: ereq.String(), Actual: sm.external.String()}
	}
	sm.internal = idest
	sm.external = edest
	return nil
}

// advanceExternal moves only the external state, for transitions that do
// not correspond to an internal-state boundary. The terminal CLOSING->CLOSED
// and OPEN->CLOSED transitions use tryAdvanceExternal instead.
func (sm *stateMachine) advanceExternal(op string, ereq, edest State) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sm.external != ereq {
		return &StateError{Op: op, Required: ereq.String(), Actual: sm.external.String()}
	}
	sm.external = edest
	return nil
}

// withLock runs fn while holding the state lock, with no I/O permitted
// inside fn (spec §5: "no I/O under this lock"). Used by the handler
// facade's atomic swap (spec §4.6: "under the state lock, swap the handler
// pointer").
func (sm *stateMachine) withLock(fn func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	fn()
}

// tryAdvanceExternal is advanceExternal without erroring: used when two
// independent paths (local failure vs. remote close) may race to the same
// terminal transition and only one should win.
func (sm *stateMachine) tryAdvanceExternal(ereq, edest State) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sm.external != ereq {
		return false
	}
	sm.external = edest
	return true
}
