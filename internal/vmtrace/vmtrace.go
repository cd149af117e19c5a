/*
Package vmtrace wires every VM subsystem into a single tracing backend.

Each package that needs to log defines its own one-line tracer()
accessor keyed to a subsystem
(`func tracer() tracing.Trace { return vmtrace.Select(vmtrace.KeyTree) }`).
This package only centralizes the backend selection so every subsystem
shares one sink.

# License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package vmtrace

import (
	"github.com/npillmayer/schuko/gtrace"
	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/schuko/tracing/gologadapter"
)

// Key names for tracing.Select, one per VM subsystem.
const (
	KeyTree        = "vm.tree"
	KeyScope       = "vm.scope"
	KeyTypes       = "vm.types"
	KeyConcurrency = "vm.concurrency"
	KeyProgram     = "vm.program"
)

var initialized bool

// Init installs the default logging adapter as the global tracer
// backend. The first call replaces whatever backend is installed at
// that moment; later calls do nothing.
func Init() {
	if initialized {
		return
	}
	gtrace.SyntaxTracer = gologadapter.New()
	initialized = true
}

// Select returns the trace sink for a given subsystem key.
func Select(key string) tracing.Trace {
	Init()
	return tracing.Select(key)
}

// SetLevel sets the trace level for the whole backend.
func SetLevel(level tracing.TraceLevel) {
	Init()
	gtrace.SyntaxTracer.SetTraceLevel(level)
}
