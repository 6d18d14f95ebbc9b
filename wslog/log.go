// Package wslog provides the structured logging sink used throughout wsconn.
//
// The core never writes to stdout directly; every component takes a
// zerolog.Logger (defaulting to a no-op logger) so embedders control where
// diagnostics land.
package wslog

import (
	"io"

	"github.com/rs/zerolog"
)

// Nop returns a logger that discards everything, used as the zero value
// default for components that were not given an explicit logger.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}

// New builds a human-readable console logger writing to w, convenient for
// examples and tests. Production embedders are expected to supply their own
// zerolog.Logger (JSON to a file, a log shipper, etc).
func New(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}
