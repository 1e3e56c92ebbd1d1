// Package async wraps service calls for views: it tracks loading, data and
// error state, and turns errors into values so a view never has to handle
// a failed call as control flow.
package async

import (
	"context"
	"errors"
	"sync"

	"nourish/api"
	"nourish/models"
)

// Func is the wrapped call.
type Func[A, T any] func(ctx context.Context, arg A) (T, error)

// State is what a view renders.
type State[T any] struct {
	Data        T
	Loading     bool
	Err         error
	FieldErrors models.FieldErrors
}

// Message is the user-facing error text, or "".
func (s State[T]) Message() string {
	if s.Err == nil {
		return ""
	}
	return s.Err.Error()
}

// Result is the outcome of one Execute call.
type Result[T any] struct {
	Success     bool
	Data        T
	Err         error
	Message     string
	FieldErrors models.FieldErrors
	// Stale is set when a later call was issued before this one resolved,
	// so its outcome was not written to the state.
	Stale bool
	// Canceled is set when the call failed because its context was
	// canceled. The error is returned but never shown in the state.
	Canceled bool
}

type options struct {
	lastWriteWins bool
	onChange      func()
}

// Option configures an Operation.
type Option func(*options)

// WithLastWriteWins lets whichever call resolves last write the state,
// even if it was issued first.
func WithLastWriteWins() Option {
	return func(o *options) { o.lastWriteWins = true }
}

// OnChange registers fn to run after every state change.
func OnChange(fn func()) Option {
	return func(o *options) { o.onChange = fn }
}

// Operation is a stateful wrapper around one service call. By default calls
// are fenced: each Execute takes a sequence number and only the most
// recently issued call may write the state.
type Operation[A, T any] struct {
	fn   Func[A, T]
	opts options

	mu        sync.Mutex
	state     State[T]
	seq       uint64
	discarded bool
}

func New[A, T any](fn Func[A, T], opts ...Option) *Operation[A, T] {
	op := &Operation[A, T]{fn: fn}
	for _, o := range opts {
		o(&op.opts)
	}
	return op
}

// State returns a snapshot of the current state.
func (op *Operation[A, T]) State() State[T] {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.state
}

// Discard detaches the operation from its view. Calls still in flight
// complete, but never touch the state again.
func (op *Operation[A, T]) Discard() {
	op.mu.Lock()
	op.discarded = true
	op.mu.Unlock()
}

// Execute runs the call. Loading is set on entry and cleared when the call
// that owns the state completes, whether it succeeded or failed. A call
// canceled through ctx keeps the previous data and error.
func (op *Operation[A, T]) Execute(ctx context.Context, arg A) Result[T] {
	op.mu.Lock()
	op.seq++
	id := op.seq
	attached := !op.discarded
	if attached {
		op.state.Loading = true
		op.state.Err = nil
		op.state.FieldErrors = nil
	}
	op.mu.Unlock()
	if attached {
		op.changed()
	}

	data, err := op.fn(ctx, arg)
	res := toResult(data, err)
	res.Canceled = err != nil && ctx.Err() != nil && errors.Is(err, context.Canceled)

	op.mu.Lock()
	write := !op.discarded && (op.opts.lastWriteWins || id == op.seq)
	if write {
		op.state.Loading = false
		switch {
		case res.Canceled:
		case err != nil:
			op.state.Err = err
			op.state.FieldErrors = res.FieldErrors
		default:
			op.state.Data = data
		}
	} else {
		res.Stale = true
	}
	op.mu.Unlock()
	if write {
		op.changed()
	}
	return res
}

func (op *Operation[A, T]) changed() {
	if op.opts.onChange != nil {
		op.opts.onChange()
	}
}

func toResult[T any](data T, err error) Result[T] {
	if err == nil {
		return Result[T]{Success: true, Data: data}
	}
	res := Result[T]{Err: err, Message: err.Error()}
	if e, ok := api.AsError(err); ok {
		res.Message = e.Message
		res.FieldErrors = e.FieldErrors
	}
	return res
}
