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

// execTry pushes a handler for the current frame whose catch body begins
// offset bytes past the end of this instruction.
func (v *VM) execTry(f *frame, frameIdx int, offset int) *Fault {
	if v.handlerCount >= len(v.handlers) {
		return newFault(FaultResourceLimit, "%v", ErrHandlerOverflow)
	}
	v.handlers[v.handlerCount] = handlerEntry{
		resumeIP:   f.ip + offset,
		chunk:      f.chunk,
		frameIndex: frameIdx,
		stackTop:   v.stackTop,
		scopeDepth: f.scopeDepth,
	}
	v.handlerCount++
	return nil
}

// execEndTry pops the innermost handler, which must belong to the running
// frame — a well-formed chunk never emits END_TRY across a frame boundary.
func (v *VM) execEndTry(frameIdx int) *Fault {
	if v.handlerCount == 0 || v.handlers[v.handlerCount-1].frameIndex != frameIdx {
		return newFault(FaultInternal, "END_TRY with no matching handler in the current frame")
	}
	v.handlerCount--
	return nil
}

// execDefer pops a zero-argument, non-native Closure and registers its body
// to run, LIFO, when the current frame returns or an enclosing OpEndScope
// restores the frame's scope depth below the depth recorded here.
func (v *VM) execDefer(f *frame, frameIdx int) *Fault {
	closureVal := v.pop()
	if closureVal.Kind != core.KindClosure || closureVal.IsNativeClosure() {
		return newFault(FaultRuntime, "defer body must be a compiled closure")
	}
	if v.deferCount >= len(v.defers) {
		return newFault(FaultResourceLimit, "%v", ErrDeferOverflow)
	}
	v.defers[v.deferCount] = deferEntry{
		bodyIP:     0,
		chunk:      closureVal.ClosureChunk(),
		frameIndex: frameIdx,
		scopeDepth: f.scopeDepth,
		upvalues:   closureVal.ClosureUpvalues(),
	}
	v.deferCount++
	return nil
}

// execEndScope runs every defer registered for frameIdx deeper than target,
// then restores the frame's scope depth to target.
func (v *VM) execEndScope(f *frame, frameIdx int, target int) *Fault {
	if flt := v.runFrameDefers(frameIdx, target); flt != nil {
		return flt
	}
	f.scopeDepth = target
	return nil
}

// runFrameDefers runs, LIFO, every defer registered for frameIdx whose
// scope depth is greater than floor (floor -1 means "run all of this
// frame's defers regardless of depth," used when the frame itself is being
// discarded). Each defer body runs to completion even if an earlier one in
// the same call already raised; the fault from the last defer body to
// raise is what's returned, matching the "cleanup during unwind" discipline
// the try/catch design notes describe.
func (v *VM) runFrameDefers(frameIdx int, floor int) *Fault {
	var last *Fault
	for v.deferCount > 0 {
		d := v.defers[v.deferCount-1]
		if d.frameIndex != frameIdx || d.scopeDepth <= floor {
			break
		}
		v.deferCount--
		if flt := v.runDeferBody(&d); flt != nil {
			last = flt
		}
	}
	return last
}

// runDeferBody executes a registered defer's body to completion as a nested
// frame sharing the registering frame's live stack (see frame.isDeferBody),
// discarding its return value.
func (v *VM) runDeferBody(d *deferEntry) *Fault {
	if v.frameCount >= len(v.frames) {
		return newFault(FaultResourceLimit, "%v", ErrFrameOverflow)
	}
	idx := v.frameCount
	v.frames[idx] = frame{
		chunk:       d.chunk,
		ip:          d.bodyIP,
		base:        v.stackTop,
		upvalues:    d.upvalues,
		isDeferBody: true,
		cleanupBase: v.stackTop,
	}
	v.frameCount++
	_, fault := v.execute(idx)
	return fault
}

// handleFault searches for a handler belonging to frameIdx's own,
// non-discarded frame. If one is found, any of the frame's defers deeper
// than that handler's recorded scope depth are run first; a fault raised
// by one of those defers supersedes the original and the search continues
// against the next handler still registered for this frame. Returns
// (nil, true) once a handler has been committed to (resume point set, the
// thrown value pushed), or (fault, false) — fault possibly replaced by a
// defer's own fault — once nothing in this frame can catch it.
func (v *VM) handleFault(frameIdx int, fault *Fault) (*Fault, bool) {
	if !fault.Recoverable() {
		return fault, false
	}
	for {
		if v.handlerCount == 0 || v.handlers[v.handlerCount-1].frameIndex != frameIdx {
			return fault, false
		}
		h := v.handlers[v.handlerCount-1]
		v.handlerCount--
		if flt := v.runFrameDefers(frameIdx, h.scopeDepth); flt != nil {
			fault = flt
			if !fault.Recoverable() {
				return fault, false
			}
			continue
		}
		f := &v.frames[frameIdx]
		f.scopeDepth = h.scopeDepth
		v.stackTop = h.stackTop
		f.ip = h.resumeIP
		if err := v.push(fault.Thrown); err != nil {
			return err.(*Fault), false
		}
		return nil, true
	}
}

// discardFrame tears down frameIdx completely: any handlers left
// registered for it (a well-formed chunk leaves none, but a fault unwind
// can skip past an END_TRY), its open upvalues, its stack region, and the
// frame slot itself.
func (v *VM) discardFrame(frameIdx int) {
	for v.handlerCount > 0 && v.handlers[v.handlerCount-1].frameIndex == frameIdx {
		v.handlerCount--
	}
	f := &v.frames[frameIdx]
	if v.logger != nil {
		v.logger.Trace("frame exit", "vm", v.id, "chunk", f.chunk.Name, "depth", v.frameCount)
	}
	v.closeUpvaluesFrom(f.base)
	v.stackTop = f.base
	v.frameCount--
}
