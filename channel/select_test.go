package channel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/femto/fiberchan/fiber"
)

func TestSelectImmediateReceive(t *testing.T) {
	rt := fiber.NewRuntime()
	ch := NewWithScheduler[int](1, rt)
	require.NoError(t, ch.Send(context.Background(), 9))

	recv := Recv(ch)
	idx, err := Select(context.Background(), []SelectCase{recv})
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
	assert.True(t, recv.Ok())
	assert.Equal(t, 9, recv.Value())
}

func TestSelectWithDefaultWhenNothingReady(t *testing.T) {
	rt := fiber.NewRuntime()
	ch := NewWithScheduler[int](0, rt)

	cases := []SelectCase{Recv(ch)}
	idx, err := Select(context.Background(), cases, WithDefault())
	require.NoError(t, err)
	assert.Equal(t, len(cases), idx)
}

func TestSelectBlocksThenWakesOnWinningChannel(t *testing.T) {
	rt := fiber.NewRuntime()
	chA := NewWithScheduler[int](0, rt)
	chB := NewWithScheduler[int](0, rt)

	type outcome struct {
		idx int
		err error
	}
	results := make(chan outcome, 1)
	var recvA, recvB *ReceiveAction[int]
	rt.Go(context.Background(), func(ctx context.Context) {
		recvA = Recv(chA)
		recvB = Recv(chB)
		idx, err := Select(ctx, []SelectCase{recvA, recvB})
		results <- outcome{idx, err}
	})
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, chB.Send(context.Background(), 42))

	select {
	case r := <-results:
		require.NoError(t, r.err)
		assert.Equal(t, 1, r.idx)
		assert.True(t, recvB.Ok())
		assert.Equal(t, 42, recvB.Value())
	case <-time.After(time.Second):
		t.Fatal("select never woke")
	}

	// chA must have been scrubbed of the stale receiver waiter by the
	// unwait sweep, leaving its receiver queue empty.
	chA.mu.Lock()
	assert.Equal(t, 0, chA.receivers.Len())
	chA.mu.Unlock()
}

func TestSelectConcurrentCloseExactlyOneWinner(t *testing.T) {
	for trial := 0; trial < 20; trial++ {
		rt := fiber.NewRuntime()
		chA := NewWithScheduler[int](0, rt)
		chB := NewWithScheduler[int](0, rt)

		results := make(chan int, 1)
		rt.Go(context.Background(), func(ctx context.Context) {
			idx, _ := Select(ctx, []SelectCase{Recv(chA), Recv(chB)})
			results <- idx
		})
		time.Sleep(10 * time.Millisecond)

		var g errgroup.Group
		g.Go(func() error { chA.Close(); return nil })
		g.Go(func() error { chB.Close(); return nil })
		require.NoError(t, g.Wait())

		select {
		case idx := <-results:
			assert.Contains(t, []int{0, 1}, idx)
		case <-time.After(time.Second):
			t.Fatal("select never resolved a winner under concurrent close")
		}
	}
}

func TestReceiveFirstPicksReadyChannel(t *testing.T) {
	rt := fiber.NewRuntime()
	a := NewWithScheduler[string](1, rt)
	b := NewWithScheduler[string](1, rt)
	c := NewWithScheduler[string](1, rt)
	require.NoError(t, b.Send(context.Background(), "ready"))

	v, idx, err := ReceiveFirst(context.Background(), a, b, c)
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
	assert.Equal(t, "ready", v)
}

func TestSendFirstCompletesOnBlockedReceiver(t *testing.T) {
	rt := fiber.NewRuntime()
	a := NewWithScheduler[int](0, rt)
	b := NewWithScheduler[int](0, rt)

	type result struct {
		v   int
		err error
	}
	results := make(chan result, 1)
	rt.Go(context.Background(), func(ctx context.Context) {
		v, err := b.Receive(ctx)
		results <- result{v, err}
	})
	time.Sleep(20 * time.Millisecond)

	idx, err := SendFirst(context.Background(), 100, a, b)
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	select {
	case r := <-results:
		require.NoError(t, r.err)
		assert.Equal(t, 100, r.v)
	case <-time.After(time.Second):
		t.Fatal("receiver on b never woke")
	}
}
