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

// Package env implements the runtime's process-wide shared state (struct
// metadata, native-function registry, interned strings, argv) and the
// per-VM Environment (scope stack) that is copy-on-capture cloned for
// worker VMs spawned by concurrent tasks.
package env

import (
	"fmt"
	"sync"

	"github.com/VictoriaMetrics/fastcache"
	"github.com/cespare/xxhash/v2"

	"github.com/ajokela/lattice-sub004/lang/core"
)

// structMeta is the ordered field-name list for one struct type.
type structMeta struct {
	name   string
	fields []string
}

// Runtime is the process-wide, logically per-top-level-VM shared state: the
// struct-metadata registry, native-function registry, and program-argument
// vector. It is constructed once before the first VM and torn down after
// all VMs have been freed. The struct-meta and native registries are
// write-once at program start and, from then on, read concurrently by any
// number of worker VMs under a shared read lock; see Freeze.
type Runtime struct {
	mu      sync.RWMutex
	frozen  bool
	structs map[string]*structMeta
	natives map[string]core.NativeFunc

	argv []string

	// interned caches canonical byte->string mappings for names used as
	// hash keys (struct field names, map keys encountered repeatedly),
	// backed by a fixed-size off-heap cache so a long-running program does
	// not grow the Go heap with duplicate small strings.
	interned *fastcache.Cache
}

// DefaultInternCacheBytes sizes the interned-string cache; 32MiB comfortably
// holds the working set of a single program run's identifier strings.
const DefaultInternCacheBytes = 32 * 1024 * 1024

// NewRuntime constructs an empty Runtime with the given program arguments.
func NewRuntime(argv []string) *Runtime {
	return &Runtime{
		structs:  make(map[string]*structMeta),
		natives:  make(map[string]core.NativeFunc),
		argv:     append([]string(nil), argv...),
		interned: fastcache.New(DefaultInternCacheBytes),
	}
}

// RegisterStruct installs the ordered field-name list for a struct type.
// Must be called before Freeze; calling it afterward panics, since the
// registry is documented as immutable once any VM may be reading it
// concurrently.
func (r *Runtime) RegisterStruct(name string, fields []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		panic("env: RegisterStruct called after Runtime.Freeze")
	}
	r.structs[name] = &structMeta{name: name, fields: append([]string(nil), fields...)}
}

// StructFields returns the registered field-name list for name, or
// (nil, false) if no such struct is registered.
func (r *Runtime) StructFields(name string) ([]string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.structs[name]
	if !ok {
		return nil, false
	}
	return m.fields, true
}

// RegisterNative installs a native function under name. Must be called
// before Freeze.
func (r *Runtime) RegisterNative(name string, fn core.NativeFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		panic("env: RegisterNative called after Runtime.Freeze")
	}
	r.natives[name] = fn
}

// Native looks up a registered native function by name.
func (r *Runtime) Native(name string) (core.NativeFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.natives[name]
	return fn, ok
}

// Freeze marks the struct-metadata and native-function registries as
// immutable. Called once, after program init and before the first worker
// VM is cloned; from then on further registration panics, and lookups from
// any number of goroutines only take the shared read lock.
func (r *Runtime) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Argv returns the program's argument vector.
func (r *Runtime) Argv() []string { return append([]string(nil), r.argv...) }

// Intern canonicalizes s: repeated calls with equal strings return equal
// results, the first call storing the bytes in the shared cache and later
// calls reading them back. Every call that hits the cache returns a freshly
// allocated string copied from it.
func (r *Runtime) Intern(s string) string {
	key := internKey(s)
	if cached := r.interned.Get(nil, key); cached != nil {
		return string(cached)
	}
	r.interned.Set(key, []byte(s))
	return s
}

func internKey(s string) []byte {
	h := xxhash.Sum64String(s)
	return []byte(fmt.Sprintf("%016x:%s", h, s))
}
