// Package endpoint provides the listener/dialer wiring and the connection
// registry sitting above the core wsconn package -- the acceptor loop and
// the "arena keyed by handle ID" spec.md §9 design note calls out as the
// Go-idiomatic alternative to the original's shared_ptr-to-self ownership
// model.
//
// Grounded on transport/tcp/listener.go's accept loop (StartTCPListener/
// handleConn) and control/config.go's RWMutex-guarded map idiom
// (momentics-hioload-ws).
package endpoint

import (
	"sync"

	"github.com/momentics/wsconn"
)

// Registry is a concurrency-safe Handle -> *wsconn.Connection lookup
// table. A connection is registered right after construction (Track, as
// the listener does) and removed on termination by the TerminationHandler
// Track installs; nothing else needs to hold a reference to keep it alive,
// since the read/write/control loop goroutines already do that.
type Registry struct {
	mu    sync.RWMutex
	byID  map[wsconn.Handle]*wsconn.Connection
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[wsconn.Handle]*wsconn.Connection)}
}

// Put indexes c under its handle. Call once, right after wsconn.New.
func (r *Registry) Put(c *wsconn.Connection) {
	r.mu.Lock()
	r.byID[c.GetHandle()] = c
	r.mu.Unlock()
}

// Remove deregisters a handle, typically from a TerminationHandler.
func (r *Registry) Remove(h wsconn.Handle) {
	r.mu.Lock()
	delete(r.byID, h)
	r.mu.Unlock()
}

// Get looks up a connection by handle.
func (r *Registry) Get(h wsconn.Handle) (*wsconn.Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byID[h]
	return c, ok
}

// Len reports the number of currently registered connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// Each calls fn for every registered connection. fn must not call Put or
// Remove on this Registry.
func (r *Registry) Each(fn func(*wsconn.Connection)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.byID {
		fn(c)
	}
}

// Track wires a connection's TerminationHandler to automatically remove
// it from the registry once it reaches its terminal state, after first
// registering it.
func (r *Registry) Track(c *wsconn.Connection) {
	r.Put(c)
	c.SetTerminationHandler(func(c *wsconn.Connection) {
		r.Remove(c.GetHandle())
	})
}
