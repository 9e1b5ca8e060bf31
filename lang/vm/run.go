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

import "github.com/ajokela/lattice-sub004/lang/core"

// execute runs the frame at v.frames[frameIdx] to completion and returns
// its result. It owns exactly that one frame: OP_CALL recurses into a
// fresh execute call for the pushed callee frame and waits for it, so at
// every iteration of this loop v.frameCount == frameIdx+1 holds except
// transiently inside that recursive call. This mirrors Go's own call stack
// onto Lattice's frame stack, which is what lets a fault returned by a
// deeper execute call be handled, frame by frame, by each level's own
// handler/defer state exactly as if it had been raised locally.
func (v *VM) execute(frameIdx int) (core.Value, *Fault) {
	f := &v.frames[frameIdx]

	for {
		if v.traceHook != nil {
			v.traceHook(v, frameIdx)
		}

		var fault *Fault

		switch {
		case v.cancelled():
			fault = newFault(FaultRuntime, "%s", ErrCancelled)
		case f.ip >= len(f.chunk.Code):
			fault = newFault(FaultInternal, "instruction pointer ran past the end of chunk %q", f.chunk.Name)
		default:
			op := Opcode(f.chunk.Code[f.ip])
			f.ip++

			switch op {
			case OpConstant:
				fault = v.pushOrFault(f.chunk.Constants[v.readByte(f)])
			case OpConstantWide:
				fault = v.pushOrFault(f.chunk.Constants[v.readWide(f)])
			case OpNil:
				fault = v.pushOrFault(core.Nil)
			case OpUnit:
				fault = v.pushOrFault(core.Unit)
			case OpTrue:
				fault = v.pushOrFault(core.Bool(true))
			case OpFalse:
				fault = v.pushOrFault(core.Bool(false))
			case OpPop:
				v.pop()

			case OpGetLocal:
				slot := int(v.readByte(f))
				fault = v.pushOrFault(v.stack[f.base+slot])
			case OpSetLocal:
				slot := int(v.readByte(f))
				v.stack[f.base+slot] = v.peek(0)

			case OpGetGlobal:
				fault = v.execGetGlobal(f, int(v.readByte(f)))
			case OpGetGlobalWide:
				fault = v.execGetGlobal(f, v.readWide(f))
			case OpSetGlobal:
				fault = v.execSetGlobal(f, int(v.readByte(f)))
			case OpSetGlobalWide:
				fault = v.execSetGlobal(f, v.readWide(f))
			case OpDefineGlobal:
				v.execDefineGlobal(f, int(v.readByte(f)))
			case OpDefineGlobalWide:
				v.execDefineGlobal(f, v.readWide(f))

			case OpGetUpvalue:
				idx := int(v.readByte(f))
				fault = v.pushOrFault(v.upvalueGet(f.upvalues[idx]))
			case OpSetUpvalue:
				idx := int(v.readByte(f))
				v.upvalueSet(f.upvalues[idx], v.peek(0))

			case OpAdd, OpSub, OpMul, OpDiv, OpMod,
				OpBitAnd, OpBitOr, OpBitXor, OpShl, OpShr,
				OpEq, OpNeq, OpLt, OpLte, OpGt, OpGte:
				fault = v.execBinary(op)
			case OpNeg, OpBitNot, OpNot:
				fault = v.execUnary(op)

			case OpJump:
				f.ip += v.readSigned(f)
			case OpJumpIfFalse:
				offset := v.readSigned(f)
				if !truthy(v.pop()) {
					f.ip += offset
				}

			case OpCall:
				argc := int(v.readByte(f))
				fault = v.execCall(frameIdx, argc)
				f = &v.frames[frameIdx]
			case OpReturn:
				retVal := v.pop()
				if f.isDeferBody {
					v.stackTop = f.cleanupBase
					v.frameCount--
					return retVal, nil
				}
				fault = v.runFrameDefers(frameIdx, -1)
				if fault == nil {
					v.discardFrame(frameIdx)
					return retVal, nil
				}
			case OpClosure:
				fault = v.execClosure(f)

			case OpTry:
				offset := v.readWide(f)
				fault = v.execTry(f, frameIdx, offset)
			case OpEndTry:
				fault = v.execEndTry(frameIdx)
			case OpThrow:
				fault = throwFault(v.pop())
			case OpDefer:
				fault = v.execDefer(f, frameIdx)
			case OpEnterScope:
				f.scopeDepth++
			case OpEndScope:
				target := int(v.readByte(f))
				fault = v.execEndScope(f, frameIdx, target)

			case OpStructBuild:
				fault = v.execStructBuild(f)
			case OpGetField:
				fault = v.execGetField(f)
			case OpSetField:
				fault = v.execSetField(f)
			case OpEnumBuild:
				fault = v.execEnumBuild(f)
			case OpEnumTest:
				fault = v.execEnumTest(f)
			case OpTupleBuild:
				fault = v.execTupleBuild(int(v.readByte(f)))
			case OpArrayBuild:
				fault = v.execArrayBuild(v.readWide(f))
			case OpMapBuild:
				fault = v.execMapBuild(v.readWide(f))
			case OpIndexGet:
				fault = v.execIndexGet()
			case OpIndexSet:
				fault = v.execIndexSet()
			case OpRangeBuild:
				fault = v.execRangeBuild()
			case OpIterOpen:
				fault = v.execIterOpen()
			case OpIterNext:
				fault = v.execIterNext()

			case OpScopeEnter:
				v.scopeEnter()
			case OpSpawn:
				fault = v.spawnFault()
			case OpScopeExit:
				fault = v.scopeExitFault()

			default:
				fault = newFault(FaultInternal, "unknown opcode %d at %s:%d", byte(op), f.chunk.Name, f.ip-1)
			}
		}

		if fault != nil {
			remaining, caught := v.handleFault(frameIdx, fault)
			if caught {
				f = &v.frames[frameIdx]
				continue
			}
			if more := v.runFrameDefers(frameIdx, -1); more != nil {
				remaining = more
			}
			v.discardFrame(frameIdx)
			return core.Value{}, remaining
		}
	}
}

func truthy(v core.Value) bool {
	switch v.Kind {
	case core.KindBool:
		return v.AsBool()
	case core.KindNil:
		return false
	default:
		return true
	}
}

func (v *VM) execGetGlobal(f *frame, idx int) *Fault {
	name := f.chunk.Constants[idx].AsString()
	val, ok := v.environ.GetGlobal(name)
	if !ok {
		return newFault(FaultRuntime, "undefined global %q", name)
	}
	return v.pushOrFault(val)
}

func (v *VM) execSetGlobal(f *frame, idx int) *Fault {
	name := f.chunk.Constants[idx].AsString()
	if _, ok := v.environ.GetGlobal(name); !ok {
		return newFault(FaultRuntime, "assignment to undefined global %q", name)
	}
	v.environ.DefineGlobal(name, v.peek(0))
	return nil
}

func (v *VM) execDefineGlobal(f *frame, idx int) {
	name := f.chunk.Constants[idx].AsString()
	v.environ.DefineGlobal(name, v.pop())
}

// execClosure reads a wide sub-chunk-constant index naming a Closure
// template (paramCount/variadic/defaults/chunk already set by the compiler
// or codec, upvalues always nil on the template), then a 1-byte upvalue
// count and that many (is-local, index) descriptor pairs, and pushes a
// fresh Closure sharing the template's chunk but with freshly resolved
// upvalues.
func (v *VM) execClosure(f *frame) *Fault {
	idx := v.readWide(f)
	template := f.chunk.Constants[idx]
	paramCount, paramNames, variadic, defaults := template.ClosureInfo()
	chunk := template.ClosureChunk()

	n := int(v.readByte(f))
	upvalues := make([]*core.Upvalue, n)
	for i := 0; i < n; i++ {
		isLocal := v.readByte(f) != 0
		index := int(v.readByte(f))
		if isLocal {
			upvalues[i] = v.captureUpvalue(f.base + index)
		} else {
			upvalues[i] = f.upvalues[index]
		}
	}

	return v.pushOrFault(core.Closure(paramCount, paramNames, variadic, defaults, chunk, upvalues))
}

func (v *VM) spawnFault() *Fault {
	closureVal := v.pop()
	if closureVal.Kind != core.KindClosure {
		return newFault(FaultRuntime, "SPAWN requires a closure, got %s", closureVal.Kind)
	}
	if err := v.spawn(closureVal); err != nil {
		if f, ok := err.(*Fault); ok {
			return f
		}
		return newFault(FaultRuntime, "%v", err)
	}
	return nil
}

func (v *VM) scopeExitFault() *Fault {
	if err := v.scopeExit(); err != nil {
		if f, ok := err.(*Fault); ok {
			return f
		}
		return newFault(FaultRuntime, "%v", err)
	}
	return nil
}

func (v *VM) readByte(f *frame) byte {
	b := f.chunk.Code[f.ip]
	f.ip++
	return b
}

func (v *VM) readWide(f *frame) int {
	lo := f.chunk.Code[f.ip]
	hi := f.chunk.Code[f.ip+1]
	f.ip += 2
	return int(lo) | int(hi)<<8
}

func (v *VM) readSigned(f *frame) int {
	b := f.chunk.Code[f.ip]
	f.ip++
	return int(int8(b))
}
