// Package internal implements configuration sources, merging and binding for configx.
package internal

import "context"

// Source describes a configuration source that can load and watch for updates.
type Source interface {
	// Load reads the current snapshot.
	Load(ctx context.Context) (map[string]string, error)

	// Watch publishes new snapshots until ctx is cancelled, then closes the channel.
	Watch(ctx context.Context) (<-chan map[string]string, error)
}

// idle returns a channel that closes when ctx is done and never sends.
func idle(ctx context.Context) <-chan map[string]string {
	ch := make(chan map[string]string)
	go func() {
		defer close(ch)
		<-ctx.Done()
	}()
	return ch
}
