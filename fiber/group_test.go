package fiber

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestGroupWaitsForAllSpawned(t *testing.T) {
	rt := NewRuntime()
	g := NewGroup(rt)
	const n = 50
	done := make(chan int, n)
	for i := 0; i < n; i++ {
		i := i
		g.Spawn(context.Background(), func(ctx context.Context) {
			done <- i
		})
	}
	g.Wait()
	require.Len(t, done, n)
}

// TestGroupFanOutMatchesErrgroup runs the same "spawn N, join all" shape
// through golang.org/x/sync/errgroup as a cross-check that Group's
// Spawn/Wait carries no more and no fewer fibers than an errgroup.Group
// would track goroutines.
func TestGroupFanOutMatchesErrgroup(t *testing.T) {
	rt := NewRuntime()
	g := NewGroup(rt)
	const n = 32

	results := make(chan int, n)
	var eg errgroup.Group
	for i := 0; i < n; i++ {
		i := i
		eg.Go(func() error {
			done := make(chan struct{})
			g.Spawn(context.Background(), func(ctx context.Context) {
				results <- i
				close(done)
			})
			<-done
			return nil
		})
	}
	require.NoError(t, eg.Wait())
	g.Wait()

	seen := make(map[int]bool, n)
	for len(seen) < n {
		seen[<-results] = true
	}
	require.Len(t, seen, n)
	require.NoError(t, validateContiguous(seen, n))
}

func validateContiguous(seen map[int]bool, n int) error {
	for i := 0; i < n; i++ {
		if !seen[i] {
			return fmt.Errorf("missing fiber result %d", i)
		}
	}
	return nil
}
