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

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/sync/errgroup"

	"github.com/ajokela/lattice-sub004/lang/core"
)

// scopeFrame is a structured-concurrency scope: a cancellation context and
// an errgroup.Group awaiting every child spawned within it. Pushed by
// OpScopeEnter, popped by OpScopeExit.
type scopeFrame struct {
	group  *errgroup.Group
	ctx    context.Context
	cancel context.CancelFunc
}

// scopeEnter opens a new concurrency scope nested inside whatever scope (if
// any) is already open — or, in a worker VM, inside the scope it was
// spawned under, so cancellation reaches transitively spawned tasks.
func (v *VM) scopeEnter() {
	parent := context.Background()
	if len(v.scopes) > 0 {
		parent = v.scopes[len(v.scopes)-1].ctx
	} else if v.spawnCtx != nil {
		parent = v.spawnCtx
	}
	ctx, cancel := context.WithCancel(parent)
	group, gctx := errgroup.WithContext(ctx)
	v.scopes = append(v.scopes, &scopeFrame{group: group, ctx: gctx, cancel: cancel})
}

// currentContext returns the cancellation context blocking channel
// operations must respect: the innermost open scope's, else (in a worker)
// the context it was spawned under, else a never-cancelled background
// context.
func (v *VM) currentContext() context.Context {
	if len(v.scopes) > 0 {
		return v.scopes[len(v.scopes)-1].ctx
	}
	if v.spawnCtx != nil {
		return v.spawnCtx
	}
	return context.Background()
}

// cancelled is the cancellation safe point checked between instructions.
// Only a worker VM observes its spawn scope's cancellation here: the scope owner
// must stay live through OpScopeExit so it can await its children and
// re-throw the first child's fault, rather than unwinding on the signal it
// itself broadcast to the siblings.
func (v *VM) cancelled() bool {
	if v.spawnCtx == nil {
		return false
	}
	select {
	case <-v.spawnCtx.Done():
		return true
	default:
		return false
	}
}

// ErrCancelled is the sentinel thrown value text when a scope's
// cancellation signal is observed at a safe point.
const ErrCancelled = "scope cancelled"

// spawn runs closure on a cloned worker VM under the innermost open scope.
// The closure must take zero arguments; its return value is discarded —
// spawned tasks communicate results via Channels or Refs — but a fault it
// raises propagates to the scope.
func (v *VM) spawn(closure core.Value) error {
	if len(v.scopes) == 0 {
		return newFault(FaultInternal, "SPAWN outside an open scope")
	}
	sf := v.scopes[len(v.scopes)-1]
	worker := v.cloneWorker()
	if v.logger != nil {
		v.logger.Debug("spawning worker VM", "parent", v.id, "worker", worker.id)
	}
	sf.group.Go(func() error {
		_, err := worker.CallValue(closure, nil)
		return err
	})
	return nil
}

// scopeExit awaits every child spawned in the innermost scope. On the
// first child fault it cancels the remaining siblings (errgroup.Group does
// this automatically via its derived context) and returns that fault so
// the caller can re-throw it in the parent frame.
func (v *VM) scopeExit() error {
	if len(v.scopes) == 0 {
		return newFault(FaultInternal, "SCOPE_EXIT with no open scope")
	}
	sf := v.scopes[len(v.scopes)-1]
	v.scopes = v.scopes[:len(v.scopes)-1]
	err := sf.group.Wait()
	sf.cancel()
	if err != nil {
		if f, ok := err.(*Fault); ok {
			return f
		}
		return newFault(FaultRuntime, "%v", err)
	}
	return nil
}

// cloneWorker produces a child VM: a deep copy of the
// environment's scopes, a shared pointer to the struct-meta/native
// registry (via the shared Runtime), an empty module cache, its own
// fixed-size stacks, and no ownership of the parent's tracked chunks.
func (v *VM) cloneWorker() *VM {
	cache, _ := lru.New(defaultModuleCacheSize)
	worker := &VM{
		stack:        make([]core.Value, len(v.stack)),
		frames:       make([]frame, len(v.frames)),
		handlers:     make([]handlerEntry, len(v.handlers)),
		defers:       make([]deferEntry, len(v.defers)),
		moduleCache:  cache,
		runtime:      v.runtime,
		environ:      v.environ.Clone(),
		out:          v.out,
		printCapture: v.printCapture,
		logger:       v.logger,
		traceHook:    v.traceHook,
		id:           newVMID(),
		isWorker:     true,
	}
	// The worker carries the spawning scope's cancellation context so its
	// safe-point checks, blocking channel operations, and nested scopes all
	// observe the same cancellation signal.
	if len(v.scopes) > 0 {
		worker.spawnCtx = v.scopes[len(v.scopes)-1].ctx
	}
	return worker
}
