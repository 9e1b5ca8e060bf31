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
	"strings"
	"testing"
	"time"

	"github.com/ajokela/lattice-sub004/lang/core"
	"github.com/ajokela/lattice-sub004/lang/env"
)

// asmChunk hand-assembles a core.Chunk one instruction at a time, standing
// in for the compiler these tests have no access to. Jump and try targets
// are backpatched from the actual emitted length rather than hand-counted,
// the same way a real code generator's label-fixup pass works.
type asmChunk struct{ c *core.Chunk }

func newAsmChunk(name string) *asmChunk {
	c := core.NewChunk()
	c.SetName(name)
	return &asmChunk{c}
}

func (a *asmChunk) op(o Opcode)    { a.c.Write(byte(o), 1) }
func (a *asmChunk) u8(b int)       { a.c.Write(byte(b), 1) }
func (a *asmChunk) u16(n int)      { a.u8(n & 0xFF); a.u8((n >> 8) & 0xFF) }
func (a *asmChunk) k(v core.Value) int { return a.c.AddConstant(v) }

// jump emits o (OpJump or OpJumpIfFalse) with a placeholder offset byte and
// returns its position for patchJump to fix up once the target is known.
func (a *asmChunk) jump(o Opcode) int {
	a.op(o)
	pos := len(a.c.Code)
	a.u8(0)
	return pos
}

func (a *asmChunk) patchJump(pos int) {
	offset := len(a.c.Code) - (pos + 1)
	a.c.Code[pos] = byte(int8(offset))
}

// tryOp emits OpTry with a placeholder wide offset and returns its position.
func (a *asmChunk) tryOp() int {
	a.op(OpTry)
	pos := len(a.c.Code)
	a.u16(0)
	return pos
}

func (a *asmChunk) patchTry(pos int) {
	offset := len(a.c.Code) - (pos + 2)
	a.c.Code[pos] = byte(offset & 0xFF)
	a.c.Code[pos+1] = byte((offset >> 8) & 0xFF)
}

// closureOp emits OpClosure for a zero-upvalue, zero-argument-capture
// template already added to the constant pool at idx.
func (a *asmChunk) closureOp(idx int) {
	a.op(OpClosure)
	a.u16(idx)
	a.u8(0)
}

func newTestRuntime() *env.Runtime {
	rt := env.NewRuntime(nil)
	env.RegisterBuiltins(rt)
	RegisterConcurrencyBuiltins(rt)
	rt.Freeze()
	return rt
}

// definePrint binds the "print" native under v's globals — invokeNative
// never checks a native closure's declared arity, so the parameter count
// here is cosmetic.
func definePrint(v *VM, rt *env.Runtime) {
	fn, _ := rt.Native("print")
	v.Environment().DefineGlobal("print", core.NativeClosure("print", 1, true, fn))
}

func TestArithmeticOperatorPrecedence(t *testing.T) {
	rt := newTestRuntime()
	a := newAsmChunk("main")
	printIdx := a.k(core.String("print"))
	one := a.k(core.Int(1))
	two := a.k(core.Int(2))
	three := a.k(core.Int(3))

	a.op(OpGetGlobal)
	a.u8(printIdx)
	a.op(OpConstant)
	a.u8(one)
	a.op(OpConstant)
	a.u8(two)
	a.op(OpConstant)
	a.u8(three)
	a.op(OpMul)
	a.op(OpAdd)
	a.op(OpCall)
	a.u8(1)
	a.op(OpPop)
	a.op(OpNil)
	a.op(OpReturn)

	var out strings.Builder
	v := New(rt, WithPrintCapture(func(s string) { out.WriteString(s) }))
	definePrint(v, rt)

	result, err := v.Run(a.c)
	if result != ResultOK {
		t.Fatalf("Run = %s, err = %v", result, err)
	}
	if out.String() != "7\n" {
		t.Fatalf("printed %q, want %q", out.String(), "7\n")
	}
}

func TestStringConcatenation(t *testing.T) {
	rt := newTestRuntime()
	a := newAsmChunk("main")
	printIdx := a.k(core.String("print"))
	hi := a.k(core.String("hi "))
	world := a.k(core.String("world"))

	a.op(OpGetGlobal)
	a.u8(printIdx)
	a.op(OpConstant)
	a.u8(hi)
	a.op(OpConstant)
	a.u8(world)
	a.op(OpAdd)
	a.op(OpCall)
	a.u8(1)
	a.op(OpPop)
	a.op(OpNil)
	a.op(OpReturn)

	var out strings.Builder
	v := New(rt, WithPrintCapture(func(s string) { out.WriteString(s) }))
	definePrint(v, rt)

	result, err := v.Run(a.c)
	if result != ResultOK {
		t.Fatalf("Run = %s, err = %v", result, err)
	}
	if out.String() != "hi world\n" {
		t.Fatalf("printed %q, want %q", out.String(), "hi world\n")
	}
}

// TestFibonacciRecursion builds fib(n) = n <= 1 ? n : fib(n-1) + fib(n-2) as
// hand-assembled bytecode and calls it directly through CallValue, the way a
// native callback into the VM would.
func TestFibonacciRecursion(t *testing.T) {
	rt := newTestRuntime()
	v := New(rt)

	fib := newAsmChunk("fib")
	one := fib.k(core.Int(1))
	two := fib.k(core.Int(2))
	fibName := fib.k(core.String("fib"))

	fib.op(OpGetLocal)
	fib.u8(0)
	fib.op(OpConstant)
	fib.u8(one)
	fib.op(OpLte)
	skipBase := fib.jump(OpJumpIfFalse)
	fib.op(OpGetLocal)
	fib.u8(0)
	fib.op(OpReturn)
	fib.patchJump(skipBase)

	fib.op(OpGetGlobal)
	fib.u8(fibName)
	fib.op(OpGetLocal)
	fib.u8(0)
	fib.op(OpConstant)
	fib.u8(one)
	fib.op(OpSub)
	fib.op(OpCall)
	fib.u8(1)

	fib.op(OpGetGlobal)
	fib.u8(fibName)
	fib.op(OpGetLocal)
	fib.u8(0)
	fib.op(OpConstant)
	fib.u8(two)
	fib.op(OpSub)
	fib.op(OpCall)
	fib.u8(1)

	fib.op(OpAdd)
	fib.op(OpReturn)

	fibClosure := core.Closure(1, []string{"n"}, false, nil, fib.c, nil)
	v.Environment().DefineGlobal("fib", fibClosure)

	result, err := v.CallValue(fibClosure, []core.Value{core.Int(10)})
	if err != nil {
		t.Fatalf("fib(10): %v", err)
	}
	if result.AsInt() != 55 {
		t.Fatalf("fib(10) = %d, want 55", result.AsInt())
	}
}

// TestClosureUpvalueSharesAndClosesOverLocal builds a make_counter() closure
// that captures its single local as an upvalue, calls it once to produce the
// counter, then closes over that captured slot — the counter must keep
// incrementing from its own closed storage across repeated calls.
func TestClosureUpvalueSharesAndClosesOverLocal(t *testing.T) {
	rt := newTestRuntime()
	v := New(rt)

	body := newAsmChunk("counter_body")
	one := body.k(core.Int(1))
	body.op(OpGetUpvalue)
	body.u8(0)
	body.op(OpConstant)
	body.u8(one)
	body.op(OpAdd)
	body.op(OpSetUpvalue)
	body.u8(0)
	body.op(OpReturn)

	outer := newAsmChunk("make_counter")
	zero := outer.k(core.Int(0))
	bodyTemplate := outer.k(core.Closure(1, []string{"_"}, false, nil, body.c, nil))

	outer.op(OpConstant) // local slot 0 = n, starts at 0
	outer.u8(zero)
	outer.op(OpClosure)
	outer.u16(bodyTemplate)
	outer.u8(1) // one upvalue
	outer.u8(1) // is-local
	outer.u8(0) // captures slot 0
	outer.op(OpReturn)

	makeCounter := core.Closure(0, nil, false, nil, outer.c, nil)

	counter, err := v.CallValue(makeCounter, nil)
	if err != nil {
		t.Fatalf("make_counter(): %v", err)
	}
	if counter.Kind != core.KindClosure {
		t.Fatalf("make_counter() returned kind %s, want closure", counter.Kind)
	}

	for i, want := range []int64{1, 2, 3} {
		got, err := v.CallValue(counter, []core.Value{core.Nil})
		if err != nil {
			t.Fatalf("counter() call %d: %v", i, err)
		}
		if got.AsInt() != want {
			t.Fatalf("counter() call %d = %d, want %d", i, got.AsInt(), want)
		}
	}
}

// TestTryCatchRecoversFromFault exercises the division-by-zero → caught
// scenario: a runtime fault inside a try block resumes execution at the
// catch body with the thrown value on the stack.
func TestTryCatchRecoversFromFault(t *testing.T) {
	rt := newTestRuntime()
	a := newAsmChunk("main")
	printIdx := a.k(core.String("print"))
	one := a.k(core.Int(1))
	zero := a.k(core.Int(0))
	caught := a.k(core.String("caught"))

	tryPos := a.tryOp()
	a.op(OpConstant)
	a.u8(one)
	a.op(OpConstant)
	a.u8(zero)
	a.op(OpDiv)
	a.op(OpPop)
	a.op(OpEndTry)
	overCatch := a.jump(OpJump)
	a.patchTry(tryPos)
	a.op(OpPop) // discard the thrown value
	a.op(OpGetGlobal)
	a.u8(printIdx)
	a.op(OpConstant)
	a.u8(caught)
	a.op(OpCall)
	a.u8(1)
	a.op(OpPop)
	a.patchJump(overCatch)
	a.op(OpNil)
	a.op(OpReturn)

	var out strings.Builder
	v := New(rt, WithPrintCapture(func(s string) { out.WriteString(s) }))
	definePrint(v, rt)

	result, err := v.Run(a.c)
	if result != ResultOK {
		t.Fatalf("Run = %s, err = %v", result, err)
	}
	if out.String() != "caught\n" {
		t.Fatalf("printed %q, want %q", out.String(), "caught\n")
	}
}

// TestDeferOrderingLIFO registers two defers (printing A, then B) ahead of a
// normal print, and expects them to run in reverse registration order at
// frame return: mid, B, A.
func TestDeferOrderingLIFO(t *testing.T) {
	rt := newTestRuntime()

	newPrintBody := func(name, msg string) *asmChunk {
		body := newAsmChunk(name)
		printName := body.k(core.String("print"))
		text := body.k(core.String(msg))
		body.op(OpGetGlobal)
		body.u8(printName)
		body.op(OpConstant)
		body.u8(text)
		body.op(OpCall)
		body.u8(1)
		body.op(OpPop)
		body.op(OpNil)
		body.op(OpReturn)
		return body
	}
	bodyA := newPrintBody("deferA", "A")
	bodyB := newPrintBody("deferB", "B")

	a := newAsmChunk("main")
	printIdx := a.k(core.String("print"))
	mid := a.k(core.String("mid"))
	templateA := a.k(core.Closure(0, nil, false, nil, bodyA.c, nil))
	templateB := a.k(core.Closure(0, nil, false, nil, bodyB.c, nil))

	a.closureOp(templateA)
	a.op(OpDefer)
	a.closureOp(templateB)
	a.op(OpDefer)

	a.op(OpGetGlobal)
	a.u8(printIdx)
	a.op(OpConstant)
	a.u8(mid)
	a.op(OpCall)
	a.u8(1)
	a.op(OpPop)
	a.op(OpNil)
	a.op(OpReturn)

	var out strings.Builder
	v := New(rt, WithPrintCapture(func(s string) { out.WriteString(s) }))
	definePrint(v, rt)

	result, err := v.Run(a.c)
	if result != ResultOK {
		t.Fatalf("Run = %s, err = %v", result, err)
	}
	if out.String() != "mid\nB\nA\n" {
		t.Fatalf("printed %q, want %q", out.String(), "mid\nB\nA\n")
	}
}

// TestDeferRunsDuringExceptionUnwind registers a defer inside a nested scope
// whose body then faults; the defer must run (cleanup) before control
// reaches the enclosing catch body (caught).
func TestDeferRunsDuringExceptionUnwind(t *testing.T) {
	rt := newTestRuntime()
	a := newAsmChunk("main")
	printIdx := a.k(core.String("print"))
	one := a.k(core.Int(1))
	zero := a.k(core.Int(0))
	caught := a.k(core.String("caught"))

	cleanup := newAsmChunk("cleanup")
	printC := cleanup.k(core.String("print"))
	cleanupMsg := cleanup.k(core.String("cleanup"))
	cleanup.op(OpGetGlobal)
	cleanup.u8(printC)
	cleanup.op(OpConstant)
	cleanup.u8(cleanupMsg)
	cleanup.op(OpCall)
	cleanup.u8(1)
	cleanup.op(OpPop)
	cleanup.op(OpNil)
	cleanup.op(OpReturn)
	cleanupTemplate := a.k(core.Closure(0, nil, false, nil, cleanup.c, nil))

	tryPos := a.tryOp()
	a.op(OpEnterScope)
	a.closureOp(cleanupTemplate)
	a.op(OpDefer)
	a.op(OpConstant)
	a.u8(one)
	a.op(OpConstant)
	a.u8(zero)
	a.op(OpDiv)
	a.op(OpPop)
	a.op(OpEndScope)
	a.u8(0)
	a.op(OpEndTry)
	overCatch := a.jump(OpJump)
	a.patchTry(tryPos)
	a.op(OpPop)
	a.op(OpGetGlobal)
	a.u8(printIdx)
	a.op(OpConstant)
	a.u8(caught)
	a.op(OpCall)
	a.u8(1)
	a.op(OpPop)
	a.patchJump(overCatch)
	a.op(OpNil)
	a.op(OpReturn)

	var out strings.Builder
	v := New(rt, WithPrintCapture(func(s string) { out.WriteString(s) }))
	definePrint(v, rt)

	result, err := v.Run(a.c)
	if result != ResultOK {
		t.Fatalf("Run = %s, err = %v", result, err)
	}
	if out.String() != "cleanup\ncaught\n" {
		t.Fatalf("printed %q, want %q", out.String(), "cleanup\ncaught\n")
	}
}

// TestFrameOverflowFault drives unbounded recursion against a small frame
// capacity and checks the resulting fault names the resource that was
// exhausted.
func TestFrameOverflowFault(t *testing.T) {
	rt := newTestRuntime()
	loop := newAsmChunk("loop")
	loopName := loop.k(core.String("loop"))
	loop.op(OpGetGlobal)
	loop.u8(loopName)
	loop.op(OpCall)
	loop.u8(0)
	loop.op(OpReturn)

	loopClosure := core.Closure(0, nil, false, nil, loop.c, nil)
	v := New(rt, WithCapacities(DefaultStackCapacity, 8, DefaultHandlerCapacity, DefaultDeferCapacity))
	v.Environment().DefineGlobal("loop", loopClosure)

	result, err := v.Run(loop.c)
	if result != ResultRuntimeError {
		t.Fatalf("Run = %s, want %s", result, ResultRuntimeError)
	}
	if err == nil || err.Error() != "call frame overflow" {
		t.Fatalf("err = %v, want %q", err, "call frame overflow")
	}
}

// TestSpawnedWorkerDeliversValueThroughChannel spawns a worker that sends
// 42 into a shared buffered channel; after the scope joins, the parent
// receives exactly the value the worker sent.
func TestSpawnedWorkerDeliversValueThroughChannel(t *testing.T) {
	rt := newTestRuntime()
	v := New(rt)

	sendFn, _ := rt.Native("channel_send")
	recvFn, _ := rt.Native("channel_recv")
	v.Environment().DefineGlobal("channel_send", core.NativeClosure("channel_send", 2, false, sendFn))
	v.Environment().DefineGlobal("channel_recv", core.NativeClosure("channel_recv", 1, false, recvFn))
	v.Environment().DefineGlobal("results", core.Channel(1))

	sender := newAsmChunk("sender")
	sendName := sender.k(core.String("channel_send"))
	chanName := sender.k(core.String("results"))
	payload := sender.k(core.Int(42))
	sender.op(OpGetGlobal)
	sender.u8(sendName)
	sender.op(OpGetGlobal)
	sender.u8(chanName)
	sender.op(OpConstant)
	sender.u8(payload)
	sender.op(OpCall)
	sender.u8(2)
	sender.op(OpReturn)

	top := newAsmChunk("main")
	senderIdx := top.k(core.Closure(0, nil, false, nil, sender.c, nil))
	recvName := top.k(core.String("channel_recv"))
	chanName2 := top.k(core.String("results"))

	top.op(OpScopeEnter)
	top.closureOp(senderIdx)
	top.op(OpSpawn)
	top.op(OpScopeExit)
	top.op(OpGetGlobal)
	top.u8(recvName)
	top.op(OpGetGlobal)
	top.u8(chanName2)
	top.op(OpCall)
	top.u8(1)
	top.op(OpReturn)

	got, err := v.CallValue(core.Closure(0, nil, false, nil, top.c, nil), nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if got.Kind != core.KindInt || got.AsInt() != 42 {
		t.Fatalf("received %s, want 42", core.Repr(got))
	}
}

// TestScopeCancelsSiblingsOnChildFault spawns two workers in one scope: one
// faults immediately (division by zero), the other blocks forever on an
// empty channel. OpScopeExit must re-throw the first fault and the scope's
// cancellation must unblock the second worker — if it doesn't, this test
// hangs instead of failing, which the timeout below converts into a
// reported failure.
func TestScopeCancelsSiblingsOnChildFault(t *testing.T) {
	rt := newTestRuntime()
	v := New(rt)

	recvFn, _ := rt.Native("channel_recv")
	v.Environment().DefineGlobal("channel_recv", core.NativeClosure("channel_recv", 1, false, recvFn))
	v.Environment().DefineGlobal("blocker_chan", core.Channel(0))

	faulter := newAsmChunk("faulter")
	one := faulter.k(core.Int(1))
	zero := faulter.k(core.Int(0))
	faulter.op(OpConstant)
	faulter.u8(one)
	faulter.op(OpConstant)
	faulter.u8(zero)
	faulter.op(OpDiv)

	blocker := newAsmChunk("blocker")
	recvName := blocker.k(core.String("channel_recv"))
	chanName := blocker.k(core.String("blocker_chan"))
	blocker.op(OpGetGlobal)
	blocker.u8(recvName)
	blocker.op(OpGetGlobal)
	blocker.u8(chanName)
	blocker.op(OpCall)
	blocker.u8(1)
	blocker.op(OpReturn)

	top := newAsmChunk("main")
	faulterIdx := top.k(core.Closure(0, nil, false, nil, faulter.c, nil))
	blockerIdx := top.k(core.Closure(0, nil, false, nil, blocker.c, nil))

	top.op(OpScopeEnter)
	top.closureOp(faulterIdx)
	top.op(OpSpawn)
	top.closureOp(blockerIdx)
	top.op(OpSpawn)
	top.op(OpScopeExit)
	top.op(OpNil)
	top.op(OpReturn)

	type outcome struct {
		result Result
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := v.Run(top.c)
		done <- outcome{result, err}
	}()

	select {
	case got := <-done:
		if got.result != ResultRuntimeError {
			t.Fatalf("Run = %s, want %s", got.result, ResultRuntimeError)
		}
		if got.err == nil || !strings.Contains(got.err.Error(), "division by zero") {
			t.Fatalf("err = %v, want it to mention division by zero", got.err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("scope exit did not unblock the sibling worker after cancellation")
	}
}
