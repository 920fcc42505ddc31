// Package eventx provides the in-process notification bus settings writes are
// broadcast on.
//
// Overview:
//   - Responsibility: Deliver Emit calls to listeners whose pattern matches the channel
//   - Key Types: Bus interface, LocalBus implementation, Listener, Stats
//   - Concurrency Model: Safe for concurrent use; dispatch runs synchronously in
//     the emitting goroutine, in subscription order, outside the registry lock
//   - Error Semantics: Emit never fails; listener errors and panics are
//     recovered, logged and counted
//   - Performance Notes: Pattern lookup walks a segment trie, not every subscriber
//
// Channels are ':'-separated segments such as "chatbot:fallback". In a
// pattern, "*" matches exactly one segment and a trailing "**" matches any
// remainder. A "*" segment in an emitted channel reaches every listener on
// that position, so emitting "chatbot:*" notifies all chatbot listeners.
//
// Usage:
//
//	bus := eventx.New(eventx.WithLogger(logger))
//	off := bus.On("chatbot:*", func(ctx context.Context, args ...any) error {
//		return nil
//	})
//	defer off()
//	bus.Emit(ctx, "chatbot:fallback", setting)
package eventx
