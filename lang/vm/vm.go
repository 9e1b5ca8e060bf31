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
	"context"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"

	"github.com/ajokela/lattice-sub004/lang/core"
	"github.com/ajokela/lattice-sub004/lang/env"
	"github.com/ajokela/lattice-sub004/log"
)

// Default fixed capacities: value stack 4096, frames 256, handlers 64,
// defers 256. Fixed sizing is deliberate — overflow is a distinct,
// unrecoverable fault rather than a reallocation.
const (
	DefaultStackCapacity   = 4096
	DefaultFrameCapacity   = 256
	DefaultHandlerCapacity = 64
	DefaultDeferCapacity   = 256

	// smallArgsCapacity is the size of the pre-allocated buffer used for
	// native-call argument copies; larger calls allocate on the heap.
	smallArgsCapacity = 16

	// defaultModuleCacheSize bounds the in-memory LRU module cache.
	defaultModuleCacheSize = 128
)

// frame is an activation record: the executing chunk, instruction pointer,
// the stack-slot base this frame's locals start at, and the closure's
// upvalue vector (nil for the implicit top-level frame).
type frame struct {
	chunk      *core.Chunk
	ip         int
	base       int
	upvalues   []*core.Upvalue
	scopeDepth int

	// isDeferBody marks a frame pushed to run a defer body inline, starting
	// at the current stack top: its OP_RETURN truncates the stack to
	// cleanupBase and does not close upvalues. The body reaches the
	// registering frame's locals through captured upvalues, which that
	// frame closes when it actually exits.
	isDeferBody bool
	// cleanupBase is where OP_RETURN truncates to instead of base, for a
	// defer-body frame: the stack top recorded just before the defer ran.
	cleanupBase int
}

// handlerEntry is a pushed exception handler: where to resume, and the
// frame/stack snapshot to unwind back to.
type handlerEntry struct {
	resumeIP   int
	chunk      *core.Chunk
	frameIndex int
	stackTop   int
	// scopeDepth is the handler frame's lexical scope depth at the moment
	// OpTry ran, restored (and used to select which of that frame's own
	// defers must run) when a throw unwinds to this handler without
	// discarding the handler's own frame.
	scopeDepth int
}

// deferEntry is a registered defer body awaiting its frame's return or an
// enclosing scope's exit. The body reaches the registering frame's locals
// through its captured upvalues rather than a recorded slot base.
type deferEntry struct {
	bodyIP     int
	chunk      *core.Chunk
	frameIndex int
	scopeDepth int
	upvalues   []*core.Upvalue
}

// Result is the outcome of Run.
type Result uint8

const (
	// ResultOK means the chunk ran to completion with no unhandled fault.
	ResultOK Result = iota
	// ResultCompileError means the VM was handed a malformed chunk.
	ResultCompileError
	// ResultRuntimeError means a fault propagated out of the outermost frame.
	ResultRuntimeError
)

func (r Result) String() string {
	switch r {
	case ResultOK:
		return "ok"
	case ResultCompileError:
		return "compile error"
	case ResultRuntimeError:
		return "runtime error"
	default:
		return "unknown result"
	}
}

// VM is the Lattice stack-based virtual machine.
type VM struct {
	stack    []core.Value
	stackTop int

	frames     []frame
	frameCount int

	handlers     []handlerEntry
	handlerCount int

	defers     []deferEntry
	deferCount int

	// openUpvalues is ordered by descending Slot, matching the "ordered
	// vector indexed by descending stack position" strategy the design
	// notes call out as an alternative to an intrusive linked list.
	openUpvalues []*core.Upvalue

	errMsg string

	// chunks tracks sub-chunks and dynamically compiled chunks this VM owns
	// and is responsible for releasing; a cloned worker VM's chunks vector
	// stays empty, since it only borrows the parent's chunks.
	chunks []*core.Chunk

	moduleCache *lru.Cache
	diskModules *DiskModuleStore

	runtime *env.Runtime
	environ *env.Environment

	out          io.Writer
	printCapture func(string)

	logger    *log.Logger
	traceHook func(v *VM, frameIdx int)

	// scopes is the stack of open structured-concurrency scopes (innermost
	// last), pushed by OpScopeEnter and popped by OpScopeExit.
	scopes []*scopeFrame

	// spawnCtx is the cancellation context of the scope a worker VM was
	// spawned under, nil for a top-level VM. Only a worker observes
	// cancellation at safe points: the scope owner stays live so it can
	// await its children and re-throw the first child fault at scope exit.
	spawnCtx context.Context

	// id distinguishes VM instances in trace/debug logging; worker VMs get
	// a fresh id on clone.
	id string

	// isWorker marks a cloned worker VM: it borrows the parent's tracked
	// chunks and must never free them.
	isWorker bool
}

// Option configures a VM at construction time.
type Option func(*VM)

// WithModuleCacheSize overrides the in-memory module cache's entry limit.
func WithModuleCacheSize(n int) Option {
	return func(v *VM) {
		c, _ := lru.New(n)
		v.moduleCache = c
	}
}

// WithDiskModuleStore attaches an optional persistent second-tier module
// cache backed by goleveldb.
func WithDiskModuleStore(store *DiskModuleStore) Option {
	return func(v *VM) { v.diskModules = store }
}

// WithPrintCapture redirects the print builtin's output to fn instead of
// the VM's default stdout writer.
func WithPrintCapture(fn func(string)) Option {
	return func(v *VM) { v.printCapture = fn }
}

// WithStdout overrides the writer the print builtin writes to when no
// print-capture callback is attached.
func WithStdout(w io.Writer) Option {
	return func(v *VM) { v.out = w }
}

// WithLogger attaches a structured logger; frame entry/exit trace at
// log.LevelTrace, resource-limit faults at log.LevelError, and worker VM
// lifecycle at log.LevelDebug. A VM with no logger runs identically.
func WithLogger(l *log.Logger) Option {
	return func(v *VM) { v.logger = l }
}

// WithTraceHook attaches a callback invoked before each instruction is
// executed, receiving the VM and the index of the currently executing
// frame — the seam a debugger uses to implement "stopped at instruction".
func WithTraceHook(fn func(v *VM, frameIdx int)) Option {
	return func(v *VM) { v.traceHook = fn }
}

// WithCapacities overrides the fixed stack/frame/handler/defer capacities.
// Zero or negative values fall back to the package defaults.
func WithCapacities(stack, frames, handlers, defers int) Option {
	return func(v *VM) {
		if stack > 0 {
			v.stack = make([]core.Value, stack)
		}
		if frames > 0 {
			v.frames = make([]frame, frames)
		}
		if handlers > 0 {
			v.handlers = make([]handlerEntry, handlers)
		}
		if defers > 0 {
			v.defers = make([]deferEntry, defers)
		}
	}
}

// New constructs a fresh top-level VM backed by rt, with its own empty
// Environment.
func New(rt *env.Runtime, opts ...Option) *VM {
	cache, _ := lru.New(defaultModuleCacheSize)
	v := &VM{
		stack:       make([]core.Value, DefaultStackCapacity),
		frames:      make([]frame, DefaultFrameCapacity),
		handlers:    make([]handlerEntry, DefaultHandlerCapacity),
		defers:      make([]deferEntry, DefaultDeferCapacity),
		moduleCache: cache,
		runtime:     rt,
		environ:     env.NewEnvironment(),
		out:         os.Stdout,
		id:          newVMID(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func newVMID() string {
	id, err := uuid.NewRandom()
	if err != nil {
		return "vm-unknown"
	}
	return id.String()
}

// Fault implements core.NativeVM: reports a recoverable runtime fault from
// within a native call.
func (v *VM) Fault(format string, args ...any) error {
	return newFault(FaultRuntime, format, args...)
}

// RuntimeHandle implements core.NativeVM.
func (v *VM) RuntimeHandle() any { return v.runtime }

// Print implements core.NativeVM.
func (v *VM) Print(s string) {
	if v.printCapture != nil {
		v.printCapture(s)
		return
	}
	fmt.Fprint(v.out, s)
}

// ID returns this VM instance's identifier, used in trace/debug logging.
func (v *VM) ID() string { return v.id }

// Environment returns the VM's per-instance scope stack.
func (v *VM) Environment() *env.Environment { return v.environ }

// Runtime returns the shared runtime this VM was constructed with.
func (v *VM) Runtime() *env.Runtime { return v.runtime }

// ErrorMessage returns the textual description of the fault that ended
// the most recent Run, or "" if the last run succeeded.
func (v *VM) ErrorMessage() string { return v.errMsg }

// TrackChunk registers c as owned by this VM (a dynamically compiled or
// decoded sub-chunk) by appending it to the VM's tracked-chunk list;
// nothing else in the package reads that list. Ownership here is documentation-only: Go's GC reclaims c
// once nothing references it, matching §3's Lifecycle note that a chunk's
// only true owner is whichever constant pool or decode call produced it.
func (v *VM) TrackChunk(c *core.Chunk) { v.chunks = append(v.chunks, c) }

func (v *VM) push(val core.Value) error {
	if v.stackTop >= len(v.stack) {
		return newFault(FaultResourceLimit, "%v", ErrStackOverflow)
	}
	v.stack[v.stackTop] = val
	v.stackTop++
	return nil
}

func (v *VM) pop() core.Value {
	v.stackTop--
	val := v.stack[v.stackTop]
	v.stack[v.stackTop] = core.Value{}
	return val
}

func (v *VM) peek(distance int) core.Value {
	return v.stack[v.stackTop-1-distance]
}
