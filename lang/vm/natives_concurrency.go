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

	"github.com/ajokela/lattice-sub004/lang/core"
	"github.com/ajokela/lattice-sub004/lang/env"
)

// RegisterConcurrencyBuiltins installs the Channel/Ref native surface:
// channel, ref, ref_get, ref_set, channel_send, channel_recv,
// channel_try_send, and channel_try_recv. These live in package vm, rather
// than alongside env's other builtins, because blocking channel operations
// need the calling VM's scope-cancellation context — a core.NativeVM alone
// doesn't expose one, so each native here type-asserts back to *VM. Call
// before Runtime.Freeze.
func RegisterConcurrencyBuiltins(r *env.Runtime) {
	r.RegisterNative("channel", nativeChannelNew)
	r.RegisterNative("ref", nativeRefNew)
	r.RegisterNative("ref_get", nativeRefGet)
	r.RegisterNative("ref_set", nativeRefSet)
	r.RegisterNative("channel_send", nativeChannelSend)
	r.RegisterNative("channel_recv", nativeChannelRecv)
	r.RegisterNative("channel_try_send", nativeChannelTrySend)
	r.RegisterNative("channel_try_recv", nativeChannelTryRecv)
}

// callerContext returns the calling VM's innermost scope-cancellation
// context, or a never-cancelled background context for a NativeVM that
// isn't a *VM (e.g. in a unit test harness).
func callerContext(nvm core.NativeVM) context.Context {
	if v, ok := nvm.(*VM); ok {
		return v.currentContext()
	}
	return context.Background()
}

func nativeChannelNew(nvm core.NativeVM, args []core.Value) (core.Value, error) {
	capacity := 0
	if len(args) == 1 {
		if args[0].Kind != core.KindInt {
			return core.Nil, nvm.Fault("channel: capacity must be int, got %s", args[0].Kind)
		}
		capacity = int(args[0].AsInt())
	} else if len(args) != 0 {
		return core.Nil, nvm.Fault("channel: expected 0 or 1 arguments, got %d", len(args))
	}
	return core.Channel(capacity), nil
}

func nativeRefNew(nvm core.NativeVM, args []core.Value) (core.Value, error) {
	if len(args) != 1 {
		return core.Nil, nvm.Fault("ref: expected 1 argument, got %d", len(args))
	}
	return core.Ref(args[0]), nil
}

func nativeRefGet(nvm core.NativeVM, args []core.Value) (core.Value, error) {
	if len(args) != 1 || args[0].Kind != core.KindRef {
		return core.Nil, nvm.Fault("ref_get: expected 1 ref argument")
	}
	return args[0].RefLoad(), nil
}

func nativeRefSet(nvm core.NativeVM, args []core.Value) (core.Value, error) {
	if len(args) != 2 || args[0].Kind != core.KindRef {
		return core.Nil, nvm.Fault("ref_set: expected (ref, value) arguments")
	}
	args[0].RefStore(args[1])
	return core.Unit, nil
}

func nativeChannelSend(nvm core.NativeVM, args []core.Value) (core.Value, error) {
	if len(args) != 2 || args[0].Kind != core.KindChannel {
		return core.Nil, nvm.Fault("channel_send: expected (channel, value) arguments")
	}
	if err := args[0].ChannelSend(callerContext(nvm), args[1]); err != nil {
		return core.Nil, nvm.Fault("channel_send: %v", err)
	}
	return core.Unit, nil
}

func nativeChannelRecv(nvm core.NativeVM, args []core.Value) (core.Value, error) {
	if len(args) != 1 || args[0].Kind != core.KindChannel {
		return core.Nil, nvm.Fault("channel_recv: expected 1 channel argument")
	}
	val, err := args[0].ChannelRecv(callerContext(nvm))
	if err != nil {
		return core.Nil, nvm.Fault("channel_recv: %v", err)
	}
	return val, nil
}

func nativeChannelTrySend(nvm core.NativeVM, args []core.Value) (core.Value, error) {
	if len(args) != 2 || args[0].Kind != core.KindChannel {
		return core.Nil, nvm.Fault("channel_try_send: expected (channel, value) arguments")
	}
	return core.Bool(args[0].ChannelTrySend(args[1])), nil
}

func nativeChannelTryRecv(nvm core.NativeVM, args []core.Value) (core.Value, error) {
	if len(args) != 1 || args[0].Kind != core.KindChannel {
		return core.Nil, nvm.Fault("channel_try_recv: expected 1 channel argument")
	}
	val, ok := args[0].ChannelTryRecv()
	return core.Tuple([]core.Value{val, core.Bool(ok)}), nil
}
