package channel

import "context"

// FromContext returns a Channel that closes itself once ctx is done. It
// lets ctx.Done() compose with Select the same way any other channel
// does: a caller that wants a timeout or cancellation selects against
// this channel's closure alongside their real work.
func FromContext(ctx context.Context) *Channel[struct{}] {
	c := New[struct{}](0)
	go func() {
		<-ctx.Done()
		c.Close()
	}()
	return c
}
