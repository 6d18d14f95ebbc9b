// File: wsconn/handle.go
package wsconn

import "github.com/google/uuid"

// Handle is a lightweight, non-owning reference to a Connection, shareable
// outside the core for addressing it from caches and routing tables
// (spec §3, *Identity*; design note §9: "appropriate for caches and
// routing tables"). Grounded on luciancaetano-kephasnet's per-client
// uuid.New().String() identity and minio-minio__connection.go's
// google/uuid-keyed connection bookkeeping.
type Handle string

// NewHandle mints a fresh, globally-unique connection handle.
func NewHandle() Handle {
	return Handle(uuid.NewString())
}

func (h Handle) String() string { return string(h) }
