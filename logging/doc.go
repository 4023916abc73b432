// Package logging provides a minimal logging interface and adapters for roundtable.
//
// The Logger interface defines the four leveled methods (Debug, Info, Warn, Error)
// that the graph engine, agents and tools use. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - ConferenceLogger with run/component context and domain helpers
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	conf := roundtable.New(func(o *roundtable.Options) { o.Logger = logger })
package logging
