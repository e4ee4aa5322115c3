package fiber

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParkRestore(t *testing.T) {
	rt := NewRuntime()
	woke := make(chan struct{})
	h := rt.Go(context.Background(), func(ctx context.Context) {
		rt.Park(ctx)
		close(woke)
	})

	select {
	case <-woke:
		t.Fatal("fiber resumed before Restore was called")
	case <-time.After(20 * time.Millisecond):
	}

	rt.Restore(h)

	select {
	case <-woke:
	case <-time.After(time.Second):
		t.Fatal("fiber never resumed after Restore")
	}
}

func TestCurrentOutsideFiberPanics(t *testing.T) {
	rt := NewRuntime()
	assert.Panics(t, func() { rt.Current(context.Background()) })
}

func TestRestoreIsIdempotent(t *testing.T) {
	rt := NewRuntime()
	h := rt.Go(context.Background(), func(ctx context.Context) {
		rt.Park(ctx)
	})
	// Multiple Restores before the fiber parks must not block or panic.
	rt.Restore(h)
	rt.Restore(h)
}
