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

package core

// NativeVM is the minimal surface a native function needs from the calling
// VM: the ability to raise a runtime fault and to reach the shared runtime.
// It is defined here, rather than in the vm package, so that core.Value's
// Closure payload can hold a NativeFunc without an import cycle; vm.VM
// implements this interface.
type NativeVM interface {
	// Fault reports a runtime fault from within a native call. The VM
	// observes the returned error after the call and propagates a throw
	// exactly as it would for a fault raised by bytecode.
	Fault(format string, args ...any) error

	// RuntimeHandle returns an opaque handle to the shared runtime, typed
	// as any to avoid a core -> env import; callers type-assert it back to
	// *env.Runtime.
	RuntimeHandle() any

	// Print writes s to the VM's configured output sink — the print-capture
	// callback when one is attached, the VM's default writer otherwise.
	Print(s string)
}

// NativeFunc is the native-function ABI: invoked with the calling VM and
// its argument slice, producing a Value or an error. A non-nil error is
// equivalent to the native having called vm.Fault — the VM propagates it
// as a throw.
type NativeFunc func(vm NativeVM, args []Value) (Value, error)
