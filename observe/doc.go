// Package observe provides the logging, tracing and metrics primitives used
// by every component of the landmark service.
//
// It is a pure instrumentation library: exporter setup is the only I/O it
// performs. Components receive a Logger and a Middleware; the HTTP layer
// attaches request ids to the context so log lines can be correlated.
package observe
