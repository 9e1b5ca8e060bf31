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

import "context"

// Map-kind accessors. A Map's keys are always Strings; the VM is
// responsible for rejecting non-String index operands before calling these.

// MapGet looks up key in a Map value.
func (v Value) MapGet(key string) (Value, bool) {
	return v.obj.(*mapObj).get(key)
}

// MapSet inserts or overwrites key in a Map value.
func (v Value) MapSet(key string, val Value) {
	v.obj.(*mapObj).set(key, val)
}

// MapDelete removes key from a Map value, if present.
func (v Value) MapDelete(key string) {
	v.obj.(*mapObj).delete(key)
}

// MapKeys returns a Map value's keys in insertion order. This order is
// observable through iteration but not guaranteed stable across runs.
func (v Value) MapKeys() []string {
	return v.obj.(*mapObj).keys()
}

// MapLen returns the number of entries in a Map value.
func (v Value) MapLen() int {
	return len(v.obj.(*mapObj).data)
}

// Set-kind accessors.

// SetAdd inserts val into a Set value, deduplicating by MapKey.
func (v Value) SetAdd(val Value) {
	v.obj.(*setObj).add(val)
}

// SetContains reports whether val is a member of a Set value.
func (v Value) SetContains(val Value) bool {
	return v.obj.(*setObj).contains(val)
}

// SetRemove deletes val from a Set value, if present.
func (v Value) SetRemove(val Value) {
	v.obj.(*setObj).remove(val)
}

// SetLen returns a Set value's cardinality.
func (v Value) SetLen() int {
	return v.obj.(*setObj).len()
}

// SetElements returns a Set value's members in unspecified order.
func (v Value) SetElements() []Value {
	return v.obj.(*setObj).elements()
}

// Ref-kind accessors.

// RefLoad reads the current value held by a Ref cell.
func (v Value) RefLoad() Value {
	return v.obj.(*refObj).load()
}

// RefStore atomically replaces the value held by a Ref cell.
func (v Value) RefStore(val Value) {
	v.obj.(*refObj).store(val)
}

// Channel-kind accessors. Send/Recv block; the ctx-aware variants return
// ctx.Err() if cancelled before the operation completes, which the VM
// surfaces as a cancellation fault.

// ChannelSend blocks until val is accepted by the channel's buffer or ctx
// is cancelled.
func (v Value) ChannelSend(ctx context.Context, val Value) error {
	ch := v.obj.(*channelObj).ch
	select {
	case ch <- val:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ChannelRecv blocks until a value is available or ctx is cancelled.
func (v Value) ChannelRecv(ctx context.Context) (Value, error) {
	ch := v.obj.(*channelObj).ch
	select {
	case val := <-ch:
		return val, nil
	case <-ctx.Done():
		return Value{}, ctx.Err()
	}
}

// ChannelTrySend attempts a non-blocking send, reporting whether the value
// was accepted.
func (v Value) ChannelTrySend(val Value) bool {
	ch := v.obj.(*channelObj).ch
	select {
	case ch <- val:
		return true
	default:
		return false
	}
}

// ChannelTryRecv attempts a non-blocking receive.
func (v Value) ChannelTryRecv() (Value, bool) {
	ch := v.obj.(*channelObj).ch
	select {
	case val := <-ch:
		return val, true
	default:
		return Value{}, false
	}
}

// Iterator-kind accessor.

// IteratorNext advances an Iterator value, returning its next element and
// true while the sequence has more elements, or the zero Value and false
// once exhausted.
func (v Value) IteratorNext() (Value, bool) {
	return v.obj.(*iteratorObj).next()
}
