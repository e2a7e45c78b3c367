// Package dispatch executes event handlers on behalf of the event bus.
//
// Handlers run synchronously in the caller's goroutine. The Executor
// recovers panics, applies an optional timeout through the context and
// measures how long each handler took; the outcome is returned as a Result
// so the bus can log and count failures without aborting delivery.
//
// Usage:
//
//	dispatcher := dispatch.NewSyncDispatcher(
//	    dispatch.WithPanicHandler(func(event any, v any, stack []byte) {
//	        logger.Error("handler panic", "value", v)
//	    }),
//	)
//	result := dispatcher.Dispatch(ctx, ev, handler)
//	if !result.IsSuccess() {
//	    // log result.Err()
//	}
package dispatch
