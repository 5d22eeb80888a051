// Package shutdown coordinates graceful termination of snakeview.
//
// A Handler waits for SIGINT, SIGTERM or a cancelled context and then runs
// the registered hooks in reverse order under a shared timeout. Commands use
// it to stop pollers, flush recordings and close shared-memory mappings.
//
// Usage:
//
//	h := shutdown.NewHandler(5 * time.Second)
//	h.OnShutdown(func(ctx context.Context) error { return ch.Close() })
//	return h.WaitContext(ctx)
package shutdown
