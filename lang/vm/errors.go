// Copyright 2026 The Lattice Authors
// This file is part of Lattice.
//
// Lattice is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Lattice is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Lattice. If not, see <http://www.gnu.org/licenses/>.

package vm

import (
	"errors"
	"fmt"

	"github.com/ajokela/lattice-sub004/lang/core"
)

// FaultKind classifies a VM fault along the lines the runtime's callers
// (debugger, CLI) need to distinguish: whether it is user-recoverable via
// a try/catch, or fatal and terminates the run.
type FaultKind uint8

const (
	// FaultCompileError surfaces only when the VM is handed a malformed
	// chunk (e.g. an internally inconsistent deserialization). Fatal.
	FaultCompileError FaultKind = iota
	// FaultRuntime is a user-recoverable fault: arithmetic, indexing, type
	// mismatch, missing field, wrong arity, not-callable, failed iteration,
	// assertion, or a user-thrown value. Routed through try/catch.
	FaultRuntime
	// FaultResourceLimit is fatal: stack, frame, handler, or defer overflow.
	FaultResourceLimit
	// FaultInternal indicates a bug: state a well-formed compiler and codec
	// cannot produce. Fatal.
	FaultInternal
)

func (k FaultKind) String() string {
	switch k {
	case FaultCompileError:
		return "compile error"
	case FaultRuntime:
		return "runtime fault"
	case FaultResourceLimit:
		return "resource limit"
	case FaultInternal:
		return "internal invariant violated"
	default:
		return "unknown fault"
	}
}

// Fault is a VM-raised error carrying its classification and, for
// FaultRuntime, the thrown Value that try/catch should bind.
type Fault struct {
	Kind    FaultKind
	Message string
	Thrown  core.Value
}

func (f *Fault) Error() string { return f.Message }

// Recoverable reports whether this fault should be routed to the nearest
// exception handler rather than aborting the run.
func (f *Fault) Recoverable() bool { return f.Kind == FaultRuntime }

func newFault(kind FaultKind, format string, args ...any) *Fault {
	msg := fmt.Sprintf(format, args...)
	return &Fault{Kind: kind, Message: msg, Thrown: core.String(msg)}
}

// throwFault builds a FaultRuntime whose Thrown value is exactly what
// bytecode's OP_THROW (or a user-visible catch re-raise) pushed, rather
// than a synthesized String message.
func throwFault(thrown core.Value) *Fault {
	return &Fault{Kind: FaultRuntime, Message: core.Repr(thrown), Thrown: thrown}
}

// ErrStackOverflow, ErrFrameOverflow, ErrHandlerOverflow, and
// ErrDeferOverflow are sentinel FaultResourceLimit causes, formatted into a
// Fault's Message by newFault. *Fault has no Unwrap, so these are for
// message text and %v formatting only — errors.Is against a returned
// *Fault will not match them.
var (
	ErrStackOverflow   = errors.New("value stack overflow")
	ErrFrameOverflow   = errors.New("call frame overflow")
	ErrHandlerOverflow = errors.New("exception handler overflow")
	ErrDeferOverflow   = errors.New("defer stack overflow")
)
