package promise

import "go.uber.org/atomic"

// CallbackID identifies a registered callback so it can be removed again.
type CallbackID = uint64

var callbackIDCounter atomic.Uint64

func newCallbackID() CallbackID {
	return callbackIDCounter.Inc()
}
