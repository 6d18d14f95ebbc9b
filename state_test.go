// File: wsconn/state_test.go
package wsconn

import "testing"

func TestStateMachineAdvance(t *testing.T) {
	sm := newStateMachine()
	ext, internal := sm.snapshot()
	if ext != StateConnecting || internal != IStateUserInit {
		t.Fatalf("initial state = (%s, %s), want (CONNECTING, USER_INIT)", ext, internal)
	}

	if err := sm.advance("op", IStateUserInit, IStateTransportInit); err != nil {
		t.Fatalf("advance failed: %v", err)
	}
	if err := sm.advance("op", IStateUserInit, IStateTransportInit); err == nil {
		t.Fatal("expected error re-advancing from a state no longer current")
	}
}

func TestStateMachineAdvanceBothRequiresBoth(t *testing.T) {
	sm := newStateMachine()
	sm.internal = IStateWriteHTTPResponse
	if err := sm.advanceBoth("op", IStateWriteHTTPResponse, IStateProcessConnection, StateOpen, StateClosed); err == nil {
		t.Fatal("expected error: external state was CONNECTING, not OPEN")
	}
	if err := sm.advanceBoth("op", IStateWriteHTTPResponse, IStateProcessConnection, StateConnecting, StateOpen); err != nil {
		t.Fatalf("advanceBoth failed: %v", err)
	}
	ext, internal := sm.snapshot()
	if ext != StateOpen || internal != IStateProcessConnection {
		t.Fatalf("got (%s, %s), want (OPEN, PROCESS_CONNECTION)", ext, internal)
	}
}

func TestTryAdvanceExternalRaceResolvesOnce(t *testing.T) {
	sm := newStateMachine()
	sm.external = StateOpen

	results := make(chan bool, 2)
	go func() { results <- sm.tryAdvanceExternal(StateOpen, StateClosed) }()
	go func() { results <- sm.tryAdvanceExternal(StateOpen, StateClosed) }()

	first, second := <-results, <-results
	if first == second {
		t.Fatalf("expected exactly one winner, got (%v, %v)", first, second)
	}
}
