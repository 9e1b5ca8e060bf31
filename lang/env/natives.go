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
	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"golang.org/x/crypto/sha3"

	"github.com/ajokela/lattice-sub004/lang/core"
)

// RegisterBuiltins installs the runtime's standard native-function set:
// print, hash, shake256, and uuid. Call before Freeze.
func RegisterBuiltins(r *Runtime) {
	r.RegisterNative("print", nativePrint)
	r.RegisterNative("hash", nativeHash)
	r.RegisterNative("shake256", nativeShake256)
	r.RegisterNative("uuid", nativeUUID)
}

func nativePrint(vm core.NativeVM, args []core.Value) (core.Value, error) {
	for i, a := range args {
		if i > 0 {
			vm.Print(" ")
		}
		vm.Print(core.Repr(a))
	}
	vm.Print("\n")
	return core.Unit, nil
}

// nativeHash returns a fast non-cryptographic xxhash of the argument's
// canonical map-key form (core.MapKey), as an Int.
func nativeHash(vm core.NativeVM, args []core.Value) (core.Value, error) {
	if len(args) != 1 {
		return core.Nil, vm.Fault("hash: expected 1 argument, got %d", len(args))
	}
	h := xxhash.Sum64String(core.MapKey(args[0]))
	return core.Int(int64(h)), nil
}

// nativeShake256 returns a variable-length SHAKE256 digest of a String or
// Buffer argument, as a Buffer. The output length defaults to 32 bytes;
// a second Int argument overrides it.
func nativeShake256(vm core.NativeVM, args []core.Value) (core.Value, error) {
	if len(args) < 1 || len(args) > 2 {
		return core.Nil, vm.Fault("shake256: expected 1 or 2 arguments, got %d", len(args))
	}
	var input []byte
	switch args[0].Kind {
	case core.KindString:
		input = []byte(args[0].AsString())
	case core.KindBuffer:
		input = args[0].AsBuffer()
	default:
		return core.Nil, vm.Fault("shake256: argument must be string or buffer, got %s", args[0].Kind)
	}
	outLen := 32
	if len(args) == 2 {
		if args[1].Kind != core.KindInt {
			return core.Nil, vm.Fault("shake256: length argument must be int, got %s", args[1].Kind)
		}
		outLen = int(args[1].AsInt())
	}
	if outLen < 0 {
		return core.Nil, vm.Fault("shake256: negative output length %d", outLen)
	}
	out := make([]byte, outLen)
	sha3.ShakeSum256(out, input)
	return core.BufferOwned(out), nil
}

// nativeUUID returns a random (v4) UUID as its canonical string form.
func nativeUUID(vm core.NativeVM, args []core.Value) (core.Value, error) {
	if len(args) != 0 {
		return core.Nil, vm.Fault("uuid: expected 0 arguments, got %d", len(args))
	}
	id, err := uuid.NewRandom()
	if err != nil {
		return core.Nil, vm.Fault("uuid: %v", err)
	}
	return core.String(id.String()), nil
}
