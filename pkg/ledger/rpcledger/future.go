package rpcledger

import (
	"context"

	"github.com/btcsuite/btcd/btcjson"

	"github.com/iotaledger/hive.go/ierrors"
)

// future is the pending result of an asynchronous rpc call.
type future[T any] interface {
	Receive() (T, error)
}

type errorOnlyFuture interface {
	Receive() error
}

type voidFuture struct {
	errorOnlyFuture
}

func (v voidFuture) Receive() (struct{}, error) {
	return struct{}{}, v.errorOnlyFuture.Receive()
}

func errorFuture(f errorOnlyFuture) future[struct{}] {
	return voidFuture{f}
}

// await waits for the future to resolve or the context to be done. The rpc call itself is not
// aborted by a cancelled context, its result is discarded.
func await[T any](ctx context.Context, f future[T]) (T, error) {
	type result struct {
		value T
		err   error
	}

	resultChan := make(chan result, 1)
	go func() {
		value, err := f.Receive()
		resultChan <- result{value: value, err: err}
	}()

	select {
	case <-ctx.Done():
		var zero T

		return zero, ctx.Err()
	case r := <-resultChan:
		return r.value, r.err
	}
}

func isRPCError(err error, codes ...btcjson.RPCErrorCode) bool {
	var rpcErr *btcjson.RPCError
	if !ierrors.As(err, &rpcErr) {
		return false
	}

	for _, code := range codes {
		if rpcErr.Code == code {
			return true
		}
	}

	return false
}
