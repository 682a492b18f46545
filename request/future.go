package request

import (
	"context"
	"fmt"
	"sync"

	"github.com/AiXpand/tsclient-sub000/errors"
)

// Messages of futures resolved without sending anything
const (
	AlreadyClosed = "Already closed"
	NoChanges     = "No changes"
)

// RejectedError is returned by Future.Wait when the request was rejected
type RejectedError struct {
	Result Result
}

// Error implements error
func (e *RejectedError) Error() string {
	if e.Result.Message != "" {
		return fmt.Sprintf("request %s (%s) rejected: %s", e.Result.RequestID, e.Result.Action, e.Result.Message)
	}
	return fmt.Sprintf("request %s (%s) rejected", e.Result.RequestID, e.Result.Action)
}

// Unwrap lets errors.Is match ErrTransactionRejected
func (e *RejectedError) Unwrap() error {
	return errors.ErrTransactionRejected
}

// Future is the deferred outcome of a published command
type Future struct {
	id     string
	done   chan struct{}
	once   sync.Once
	result Result
	err    error
}

// NewFuture creates an unsettled future for request id
func NewFuture(id string) *Future {
	return &Future{id: id, done: make(chan struct{})}
}

// Resolved returns a future already resolved with message
func Resolved(msg string) *Future {
	f := NewFuture("")
	f.Resolve(Result{Message: msg})
	return f
}

// ID returns the request id, empty for futures that never sent anything
func (f *Future) ID() string { return f.id }

// Done is closed once the future settles
func (f *Future) Done() <-chan struct{} { return f.done }

// Resolve settles the future successfully. Later calls are ignored.
func (f *Future) Resolve(r Result) {
	f.settle(r, nil)
}

// Reject settles the future with a RejectedError
func (f *Future) Reject(r Result) {
	f.settle(r, &RejectedError{Result: r})
}

// Abort settles the future with err
func (f *Future) Abort(err error) {
	f.settle(Result{RequestID: f.id}, err)
}

// Failed returns a future already aborted with err
func Failed(err error) *Future {
	f := NewFuture("")
	f.Abort(err)
	return f
}

// OnSuccess returns a Callback resolving the future
func (f *Future) OnSuccess() Callback { return f.Resolve }

// OnFail returns a Callback rejecting the future
func (f *Future) OnFail() Callback { return f.Reject }

// Wait blocks until the future settles or ctx is done.
// A rejected request returns its Result together with a *RejectedError.
func (f *Future) Wait(ctx context.Context) (Result, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		return Result{RequestID: f.id}, errors.WrapTransient(ctx.Err(), "Future", "Wait", "wait for request")
	}
}

func (f *Future) settle(r Result, err error) {
	f.once.Do(func() {
		f.result = r
		f.err = err
		close(f.done)
	})
}
