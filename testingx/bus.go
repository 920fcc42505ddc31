package testingx

import (
	"context"
	"sync"

	"go.eggybyte.com/settings/eventx"
)

// Emission is one recorded Emit call.
type Emission struct {
	Channel string
	Args    []any
}

// RecordingBus is an eventx.Bus that records every emission and still
// dispatches to listeners through a real eventx.LocalBus.
type RecordingBus struct {
	inner *eventx.LocalBus

	mu        sync.Mutex
	emissions []Emission
}

// NewRecordingBus creates a RecordingBus.
func NewRecordingBus(opts ...eventx.Option) *RecordingBus {
	return &RecordingBus{inner: eventx.New(opts...)}
}

// Emit records the call, then dispatches it.
func (b *RecordingBus) Emit(ctx context.Context, channel string, args ...any) {
	b.mu.Lock()
	b.emissions = append(b.emissions, Emission{Channel: channel, Args: append([]any(nil), args...)})
	b.mu.Unlock()

	b.inner.Emit(ctx, channel, args...)
}

// On registers a listener on the underlying bus.
func (b *RecordingBus) On(pattern string, l eventx.Listener) func() {
	return b.inner.On(pattern, l)
}

// Emissions returns every recorded emission in order.
func (b *RecordingBus) Emissions() []Emission {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Emission, len(b.emissions))
	copy(out, b.emissions)
	return out
}

// OnChannel returns the recorded emissions on channel.
func (b *RecordingBus) OnChannel(channel string) []Emission {
	var out []Emission
	for _, e := range b.Emissions() {
		if e.Channel == channel {
			out = append(out, e)
		}
	}
	return out
}

// Reset forgets recorded emissions. Listeners stay registered.
func (b *RecordingBus) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.emissions = nil
}

// Stats returns the underlying bus counters.
func (b *RecordingBus) Stats() eventx.Stats {
	return b.inner.Stats()
}
