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

package env

import (
	"fmt"

	"github.com/ajokela/lattice-sub004/lang/core"
)

// Environment is the scoped name -> value mapping owned by exactly one VM.
// Scope 0 is the globals scope; deeper scopes are entered and left by the
// compiler's scope opcodes. An Environment is never shared between VMs —
// a worker VM gets a deep copy via Clone.
type Environment struct {
	scopes []map[string]core.Value
}

// NewEnvironment returns an Environment with just the globals scope open.
func NewEnvironment() *Environment {
	return &Environment{scopes: []map[string]core.Value{make(map[string]core.Value)}}
}

// PushScope opens a new, empty lexical scope.
func (e *Environment) PushScope() {
	e.scopes = append(e.scopes, make(map[string]core.Value))
}

// PopScope closes the innermost scope. Popping the globals scope panics —
// that would be an internal invariant violation in a well-formed chunk.
func (e *Environment) PopScope() {
	if len(e.scopes) <= 1 {
		panic("env: PopScope called on the globals scope")
	}
	e.scopes = e.scopes[:len(e.scopes)-1]
}

// Depth reports the number of currently open scopes, including globals.
func (e *Environment) Depth() int { return len(e.scopes) }

// Define binds name in the innermost open scope, shadowing any outer
// binding of the same name.
func (e *Environment) Define(name string, v core.Value) {
	e.scopes[len(e.scopes)-1][name] = v
}

// DefineGlobal binds name directly in the globals scope regardless of how
// many scopes are currently open.
func (e *Environment) DefineGlobal(name string, v core.Value) {
	e.scopes[0][name] = v
}

// Get looks up name starting at the innermost scope and working outward to
// globals, returning (value, true) on the first match.
func (e *Environment) Get(name string) (core.Value, bool) {
	for i := len(e.scopes) - 1; i >= 0; i-- {
		if v, ok := e.scopes[i][name]; ok {
			return v, true
		}
	}
	return core.Value{}, false
}

// Set assigns to the nearest existing binding of name, searching innermost
// to outermost. It returns an error (rather than creating a new binding)
// if name is not already bound anywhere, since Lattice distinguishes
// definition from assignment.
func (e *Environment) Set(name string, v core.Value) error {
	for i := len(e.scopes) - 1; i >= 0; i-- {
		if _, ok := e.scopes[i][name]; ok {
			e.scopes[i][name] = v
			return nil
		}
	}
	return fmt.Errorf("env: assignment to undefined name %q", name)
}

// GetGlobal looks up name directly in the globals scope, bypassing any
// shadowing inner scope — used for the VM's wide global-access opcodes.
func (e *Environment) GetGlobal(name string) (core.Value, bool) {
	v, ok := e.scopes[0][name]
	return v, ok
}

// Clone returns a deep copy of e: every scope map is copied and every
// contained Value is cloned, so a worker VM cannot observe later mutations
// made by the parent. Values that fail to clone (Channel, Iterator) are
// carried over by reference instead — those kinds are meant to be shared
// across VMs, matching the runtime's concurrency contract.
func (e *Environment) Clone() *Environment {
	out := &Environment{scopes: make([]map[string]core.Value, len(e.scopes))}
	for i, scope := range e.scopes {
		cloned := make(map[string]core.Value, len(scope))
		for k, v := range scope {
			if cv, err := v.TryClone(); err == nil {
				cloned[k] = cv
			} else {
				cloned[k] = v
			}
		}
		out.scopes[i] = cloned
	}
	return out
}
