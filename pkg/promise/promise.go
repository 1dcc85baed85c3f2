// Package promise provides a single-assignment future used to hand out results of background work.
package promise

import (
	"context"

	"github.com/iotaledger/hive.go/ds/orderedmap"
	"github.com/iotaledger/hive.go/runtime/syncutils"
)

// Promise is completed exactly once, either with a value or with an error. Callbacks registered after
// completion are executed immediately.
type Promise[T any] struct {
	successCallbacks *orderedmap.OrderedMap[CallbackID, func(T)]
	errorCallbacks   *orderedmap.OrderedMap[CallbackID, func(error)]

	// done is closed on completion.
	done chan struct{}

	result T
	err    error

	mutex syncutils.RWMutex
}

// New creates a pending promise. The optional resolver is called with the new promise.
func New[T any](optResolver ...func(p *Promise[T])) *Promise[T] {
	p := &Promise[T]{
		successCallbacks: orderedmap.New[CallbackID, func(T)](),
		errorCallbacks:   orderedmap.New[CallbackID, func(error)](),
		done:             make(chan struct{}),
	}

	if len(optResolver) > 0 {
		optResolver[0](p)
	}

	return p
}

// Resolve completes the promise with result. It is a no-op on a completed promise.
func (p *Promise[T]) Resolve(result T) *Promise[T] {
	callbacks := p.complete(func() { p.result = result })
	if callbacks == nil {
		return p
	}

	callbacks.success.ForEach(func(_ CallbackID, callback func(T)) bool {
		callback(result)
		return true
	})

	return p
}

// Reject completes the promise with err. It is a no-op on a completed promise.
func (p *Promise[T]) Reject(err error) *Promise[T] {
	callbacks := p.complete(func() { p.err = err })
	if callbacks == nil {
		return p
	}

	callbacks.failure.ForEach(func(_ CallbackID, callback func(error)) bool {
		callback(err)
		return true
	})

	return p
}

// OnSuccess registers a callback for the resolved value and returns a func that unregisters it.
func (p *Promise[T]) OnSuccess(callback func(result T)) (unsubscribe func()) {
	p.mutex.Lock()

	if p.isDone() {
		p.mutex.Unlock()

		if p.err == nil {
			callback(p.result)
		}

		return func() {}
	}

	callbackID := newCallbackID()
	p.successCallbacks.Set(callbackID, callback)
	p.mutex.Unlock()

	return func() {
		p.mutex.Lock()
		defer p.mutex.Unlock()

		if p.successCallbacks != nil {
			p.successCallbacks.Delete(callbackID)
		}
	}
}

// OnError registers a callback for the rejection error and returns a func that unregisters it.
func (p *Promise[T]) OnError(callback func(err error)) (unsubscribe func()) {
	p.mutex.Lock()

	if p.isDone() {
		p.mutex.Unlock()

		if p.err != nil {
			callback(p.err)
		}

		return func() {}
	}

	callbackID := newCallbackID()
	p.errorCallbacks.Set(callbackID, callback)
	p.mutex.Unlock()

	return func() {
		p.mutex.Lock()
		defer p.mutex.Unlock()

		if p.errorCallbacks != nil {
			p.errorCallbacks.Delete(callbackID)
		}
	}
}

// Wait blocks until the promise is completed or ctx is done. A done context does not affect the promise.
func (p *Promise[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-p.done:
		return p.result, p.err
	case <-ctx.Done():
		var zero T

		return zero, ctx.Err()
	}
}

// Done returns a channel that is closed once the promise is completed.
func (p *Promise[T]) Done() <-chan struct{} {
	return p.done
}

// WasResolved returns true if the promise was resolved.
func (p *Promise[T]) WasResolved() bool {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	return p.isDone() && p.err == nil
}

// WasRejected returns true if the promise was rejected.
func (p *Promise[T]) WasRejected() bool {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	return p.isDone() && p.err != nil
}

type callbackSet[T any] struct {
	success *orderedmap.OrderedMap[CallbackID, func(T)]
	failure *orderedmap.OrderedMap[CallbackID, func(error)]
}

// complete stores the outcome and detaches the callbacks so they can run outside the lock. It returns
// nil if the promise was already completed.
func (p *Promise[T]) complete(setOutcome func()) *callbackSet[T] {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.isDone() {
		return nil
	}

	setOutcome()

	callbacks := &callbackSet[T]{success: p.successCallbacks, failure: p.errorCallbacks}
	p.successCallbacks, p.errorCallbacks = nil, nil

	close(p.done)

	return callbacks
}

func (p *Promise[T]) isDone() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}
