package channel

import "github.com/pkg/errors"

// ErrClosed is returned by send/receive operations on a closed channel.
// Not retriable: a closed channel stays closed.
var ErrClosed = errors.New("channel: closed")

// ProtocolError reports an internal invariant violation, such as a
// parked receiver waking with a delivery state of None. It is always
// raised via panic, never returned; a correct implementation should
// never trigger one.
type ProtocolError struct {
	msg string
}

func (e *ProtocolError) Error() string {
	return "channel: protocol bug: " + e.msg
}

// throwProtocolError panics with a *ProtocolError wrapped in a stack
// trace, so a recover() at the top of a fiber's goroutine can log where
// the invariant actually broke rather than just the panic message.
func throwProtocolError(msg string) {
	panic(errors.WithStack(&ProtocolError{msg: msg}))
}
