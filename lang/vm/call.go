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
	"github.com/ajokela/lattice-sub004/lang/core"
)

// Run executes chunk as the VM's top-level script: an implicit frame with
// no arguments and no upvalues. It returns ResultOK on normal completion,
// ResultRuntimeError if a fault propagated out of the outermost frame (the
// fault's description is then available via ErrorMessage), or
// ResultCompileError if chunk itself is structurally invalid.
func (v *VM) Run(chunk *core.Chunk) (Result, error) {
	if chunk == nil {
		return ResultCompileError, newFault(FaultCompileError, "vm: Run called with a nil chunk")
	}
	if v.logger != nil {
		v.logger.Trace("run start", "vm", v.id, "chunk", chunk.Name, "worker", v.isWorker)
	}
	if err := v.pushFrame(chunk, v.stackTop, nil); err != nil {
		return ResultCompileError, err
	}
	_, fault := v.execute(0)
	if fault != nil {
		v.errMsg = fault.Message
		if v.logger != nil {
			v.logger.Error("run fault", "vm", v.id, "kind", fault.Kind.String(), "message", fault.Message)
		}
		if fault.Kind == FaultCompileError {
			return ResultCompileError, fault
		}
		return ResultRuntimeError, fault
	}
	v.errMsg = ""
	if v.logger != nil {
		v.logger.Trace("run complete", "vm", v.id)
	}
	return ResultOK, nil
}

// CallValue invokes callee (a Closure, native or body-chunk) with args from
// Go code — the entry point worker-VM spawn and native callback bridging
// use, rather than bytecode's OP_CALL. The VM's stacks must be otherwise
// idle (stackTop 0, frameCount 0) when this is used as a fresh entry point;
// calling it while frames are already active (e.g. from within a native
// function) nests correctly since it shares the same stacks.
func (v *VM) CallValue(callee core.Value, args []core.Value) (core.Value, error) {
	base := v.stackTop
	if err := v.push(callee); err != nil {
		return core.Value{}, err
	}
	for _, a := range args {
		if err := v.push(a); err != nil {
			return core.Value{}, err
		}
	}
	if err := v.invoke(callee, len(args), base); err != nil {
		v.stackTop = base
		return core.Value{}, err
	}
	// invoke may have pushed a frame (closure) or already resolved the
	// call in place (native). If a frame is pending, run it to completion.
	if v.frameCount > 0 && v.frames[v.frameCount-1].base == base {
		val, fault := v.execute(v.frameCount - 1)
		if fault != nil {
			return core.Value{}, fault
		}
		v.stackTop = base
		return val, nil
	}
	result := v.pop()
	return result, nil
}

// execCall dispatches OP_CALL: callee sits at stack index base beneath
// argCount arguments. A native call resolves immediately, in place; a
// closure call pushes a new frame and this runs it to completion right
// here (see execute's doc comment), pushing its result before returning.
func (v *VM) execCall(frameIdx int, argCount int) *Fault {
	base := v.stackTop - argCount - 1
	callee := v.stack[base]
	if err := v.invoke(callee, argCount, base); err != nil {
		if f, ok := err.(*Fault); ok {
			return f
		}
		return newFault(FaultRuntime, "%v", err)
	}
	if v.frameCount == frameIdx+2 && v.frames[frameIdx+1].base == base {
		val, fault := v.execute(frameIdx + 1)
		if fault != nil {
			return fault
		}
		return v.pushOrFault(val)
	}
	return nil
}

// pushFrame pushes a new call frame for chunk starting execution at byte 0,
// with locals based at slotBase and the given upvalue vector.
func (v *VM) pushFrame(chunk *core.Chunk, slotBase int, upvalues []*core.Upvalue) error {
	if v.frameCount >= len(v.frames) {
		return newFault(FaultResourceLimit, "%v", ErrFrameOverflow)
	}
	v.frames[v.frameCount] = frame{chunk: chunk, ip: 0, base: slotBase, upvalues: upvalues}
	v.frameCount++
	if v.logger != nil {
		v.logger.Trace("frame enter", "vm", v.id, "chunk", chunk.Name, "depth", v.frameCount)
	}
	return nil
}

// invoke dispatches a call to callee (already on the stack at index base,
// with argCount arguments above it). Native calls complete in place,
// replacing the callee slot with the result and truncating argCount
// operands; closure calls push a new frame for the caller's execute loop
// (or CallValue) to run to completion.
func (v *VM) invoke(callee core.Value, argCount int, base int) error {
	if callee.Kind != core.KindClosure {
		return newFault(FaultRuntime, "value of kind %s is not callable", callee.Kind)
	}
	if callee.IsNativeClosure() {
		return v.invokeNative(callee, argCount, base)
	}
	return v.invokeClosure(callee, argCount, base)
}

// invokeNative copies arguments into a pre-allocated small-args buffer
// (falling back to a heap allocation for large calls), invokes the native
// function, and replaces the callee slot with its result.
func (v *VM) invokeNative(callee core.Value, argCount int, base int) error {
	var smallArgs [smallArgsCapacity]core.Value
	var args []core.Value
	if argCount <= smallArgsCapacity {
		args = smallArgs[:argCount]
	} else {
		args = make([]core.Value, argCount)
	}
	copy(args, v.stack[base+1:base+1+argCount])

	fn, _ := callee.ClosureNative()
	result, err := fn(v, args)
	if err != nil {
		v.stackTop = base
		if f, ok := err.(*Fault); ok {
			return f
		}
		return newFault(FaultRuntime, "%v", err)
	}
	v.stackTop = base
	return v.push(result)
}

// invokeClosure validates arity (folding surplus variadic arguments into a
// trailing Array), shifts the resolved arguments down over the callee's own
// stack slot so slot 0 becomes the first parameter, and pushes a new frame
// based there for the active execute loop to run.
func (v *VM) invokeClosure(callee core.Value, argCount int, base int) error {
	paramCount, _, variadic, defaults := callee.ClosureInfo()
	argsStart := base + 1

	if variadic {
		if argCount < paramCount-1 {
			return newFault(FaultRuntime, "call expects at least %d arguments, got %d", paramCount-1, argCount)
		}
		fixed := paramCount - 1
		surplus := append([]core.Value(nil), v.stack[argsStart+fixed:argsStart+argCount]...)
		rest := core.Array(surplus)
		v.stackTop = argsStart + fixed
		if err := v.push(rest); err != nil {
			return err
		}
	} else if argCount != paramCount {
		if argCount < paramCount && len(defaults) > 0 {
			missing := paramCount - argCount
			if missing > len(defaults) {
				return newFault(FaultRuntime, "call expects %d arguments, got %d", paramCount, argCount)
			}
			for i := len(defaults) - missing; i < len(defaults); i++ {
				if err := v.push(defaults[i]); err != nil {
					return err
				}
			}
		} else {
			return newFault(FaultRuntime, "call expects %d arguments, got %d", paramCount, argCount)
		}
	}

	// The stack now holds exactly paramCount resolved arguments starting at
	// argsStart. Shift them down over the callee slot at base so the callee
	// closure is dropped and slot 0 of the new frame is the first parameter,
	// matching discardFrame's truncation back to the frame's own base.
	copy(v.stack[base:base+paramCount], v.stack[argsStart:argsStart+paramCount])
	v.stackTop = base + paramCount

	return v.pushFrame(callee.ClosureChunk(), base, callee.ClosureUpvalues())
}
