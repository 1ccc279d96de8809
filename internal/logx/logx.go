// Package logx is the structured logging backend used throughout
// windowstate. It wraps zerolog behind a small package-level logger plus
// per-component child loggers, matching the chained Debug().Str().Msg()
// call style already assumed by this codebase's lineage (see the
// reconciliation logic this repo's application lifecycle is grounded on).
package logx

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	mu   sync.RWMutex
	base zerolog.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Logger().Level(zerolog.InfoLevel)
)

// Configure replaces the base logger's level and output. windowstate's
// Initialize calls it with the configured log level and format.
func Configure(level zerolog.Level, w io.Writer, jsonFormat bool) {
	mu.Lock()
	defer mu.Unlock()

	var out io.Writer = w
	if !jsonFormat {
		out = zerolog.ConsoleWriter{Out: w}
	}
	base = zerolog.New(out).With().Timestamp().Logger().Level(level)
}

// For returns a child logger tagged with the given component name, e.g.
// logx.For("applife") or logx.For("propcache").
func For(component string) zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base.With().Str("component", component).Logger()
}

// L returns the base logger, for call sites that don't have a fixed
// component name (e.g. the root State type, which spans components).
func L() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := base
	return &l
}
