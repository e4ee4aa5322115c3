// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fiber

import (
	"context"
	"sync"
)

// Group tracks a set of fibers spawned together and lets a caller block
// until they have all finished. Spawn folds Go, Add, and Done into one
// call so callers cannot forget to Done a fiber that panics.
type Group struct {
	rt *Runtime
	wg sync.WaitGroup
}

// NewGroup returns a Group that spawns fibers on rt.
func NewGroup(rt *Runtime) *Group {
	return &Group{rt: rt}
}

// Spawn runs fn on a new fiber, tracked by the group.
func (g *Group) Spawn(ctx context.Context, fn func(context.Context)) Handle {
	g.wg.Add(1)
	return g.rt.Go(ctx, func(fiberCtx context.Context) {
		defer g.wg.Done()
		fn(fiberCtx)
	})
}

// Wait blocks until every fiber spawned through Spawn has returned.
func (g *Group) Wait() {
	g.wg.Wait()
}
