/*
Package host declares the collaborator interfaces the VM core calls
through without owning: debug output, line input, a pre-execution
hook, external function invocation, and an error-dialog sink.
None of these are implemented here — the VM core only ever holds an
interface value and calls through it; a concrete host (cmd/vmrepl, or
any future embedder) supplies the implementation.

# License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package host

import "github.com/fuguevm/fuguevm/vm/types"

// DebugWriter is the "write a string to an output stream tagged
// debug" collaborator.
type DebugWriter interface {
	WriteDebug(s string)
}

// LineReader is the "synchronously read a line from an input stream"
// collaborator.
type LineReader interface {
	ReadLine() (string, error)
}

// PreExecHook is called with no arguments just before entrypoint
// invocation. Any panic it raises is treated as fatal by
// Program.Execute, matching "the VM treats any exception from it as
// fatal".
type PreExecHook func()

// FunctionInvoker is the native-marshalling entry point: it binds a
// function's parameter scope
// to a caller-supplied memory region in reverse declared order so the
// region's layout matches the host ABI's argument order, runs the
// body, then unbinds, returning whatever the function returned
// (packaged as the effective tuple for a multi-return function).
//
// The external region is handed over as a byte slice: the native
// marshalling layer owns the FFI boundary and presents the argument
// memory to the VM core as ordinary bytes; the core decodes them with
// the same per-kind encoding its own value stack uses. *vm.Program
// implements this interface.
type FunctionInvoker interface {
	InvokeWithExternalParams(functionName string, externalParams []byte) (types.RValue, error)
}

// ErrorDialog is the host's error-dialog sink. One dialog per error:
// Show receives the taxonomy prologue and the error's message
// separately so a host can style them independently (bold prologue,
// plain message, as pterm.Error does via its Prefix).
type ErrorDialog interface {
	Show(prologue, message string)
}
