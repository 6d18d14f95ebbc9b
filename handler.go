// File: wsconn/handler.go
package wsconn

// Handler is the application-facing callback bundle (spec §6, Handler
// contract table). Nullable function slots stand in for the inheritance-
// based interface the original describes (spec §9, design note): either
// shape is valid, and this one composes more naturally with Go's
// zero-value defaults (a nil slot is simply "no-op").
type Handler struct {
	HTTP func(*Connection)

	// Validate is server-only; client connections never call it.
	Validate func(*Connection) bool

	OnOpen         func(*Connection)
	OnMessage      func(*Connection, *Message)
	OnPing         func(*Connection, []byte) bool
	OnPong         func(*Connection, []byte)
	OnPongTimeout  func(*Connection, []byte)
	OnClose        func(*Connection)
	OnFail         func(*Connection)
	OnInterrupt    func(*Connection)
	OnLoad         func(con *Connection, old *Handler)
	OnUnload       func(con *Connection, new *Handler)
}

func (h *Handler) callHTTP(c *Connection) {
	if h != nil && h.HTTP != nil {
		h.HTTP(c)
	}
}

func (h *Handler) callValidate(c *Connection) bool {
	if h == nil || h.Validate == nil {
		return true
	}
	return h.Validate(c)
}

func (h *Handler) callOnOpen(c *Connection) {
	if h != nil && h.OnOpen != nil {
		h.OnOpen(c)
	}
}

func (h *Handler) callOnMessage(c *Connection, m *Message) {
	if h != nil && h.OnMessage != nil {
		h.OnMessage(c, m)
	}
}

// callOnPing returns true (auto-pong) by default, per spec §6.
func (h *Handler) callOnPing(c *Connection, payload []byte) bool {
	if h == nil || h.OnPing == nil {
		return true
	}
	return h.OnPing(c, payload)
}

func (h *Handler) callOnPong(c *Connection, payload []byte) {
	if h != nil && h.OnPong != nil {
		h.OnPong(c, payload)
	}
}

func (h *Handler) callOnPongTimeout(c *Connection, payload []byte) {
	if h != nil && h.OnPongTimeout != nil {
		h.OnPongTimeout(c, payload)
	}
}

func (h *Handler) callOnClose(c *Connection) {
	if h != nil && h.OnClose != nil {
		h.OnClose(c)
	}
}

func (h *Handler) callOnFail(c *Connection) {
	if h != nil && h.OnFail != nil {
		h.OnFail(c)
	}
}

func (h *Handler) callOnInterrupt(c *Connection) {
	if h != nil && h.OnInterrupt != nil {
		h.OnInterrupt(c)
	}
}

// SetHandler swaps the active handler bundle. Legal in any state, from any
// thread (spec §4.6). The pointer swap itself happens under the state lock
// so no callback dispatch can observe a partially-swapped handler
// (invariant 5, spec §8); on_unload/on_load then run synchronously,
// outside the lock, to avoid deadlocking a handler that calls back into
// the connection.
func (c *Connection) SetHandler(newHandler *Handler) {
	var old *Handler
	c.state.withLock(func() {
		old = c.handler
		c.handler = newHandler
	})
	old.callOnUnload(c, newHandler)
	newHandler.callOnLoad(c, old)
}

func (h *Handler) callOnUnload(c *Connection, newHandler *Handler) {
	if h != nil && h.OnUnload != nil {
		h.OnUnload(c, newHandler)
	}
}

func (h *Handler) callOnLoad(c *Connection, old *Handler) {
	if h != nil && h.OnLoad != nil {
		h.OnLoad(c, old)
	}
}

// currentHandler returns the active handler bundle under the state lock,
// used by the read/write/control loops before dispatching a callback.
func (c *Connection) currentHandler() *Handler {
	var h *Handler
	c.state.withLock(func() { h = c.handler })
	return h
}
