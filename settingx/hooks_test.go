package settingx

import (
	"context"
	"sync/atomic"
	"testing"

	"go.eggybyte.com/settings/core/errors"
	"go.eggybyte.com/settings/testingx"
)

// fakeFinder returns a fixed setting and counts lookups.
type fakeFinder struct {
	setting *Setting
	err     error
	calls   atomic.Int32
	last    Criteria
}

func (f *fakeFinder) FindOne(_ context.Context, criteria Criteria) (*Setting, error) {
	f.calls.Add(1)
	f.last = criteria
	if f.err != nil {
		return nil, f.err
	}
	return f.setting, nil
}

func newTestHooks(t *testing.T, current *Setting) (*Hooks, *fakeFinder, *testingx.RecordingBus) {
	t.Helper()
	finder := &fakeFinder{setting: current}
	bus := testingx.NewRecordingBus()
	return NewHooks(finder, bus, nil, testingx.NewMockLogger(t)), finder, bus
}

func TestHooks_BeforeCreate(t *testing.T) {
	tests := []struct {
		name      string
		candidate *Setting
		filter    Criteria
		update    Update
		wantCode  errors.Code
		wantEmits int
	}{
		{
			name:      "valid plain create",
			candidate: &Setting{Group: "site", Label: "dark", Type: TypeCheckbox, Value: true},
		},
		{
			name:      "invalid value",
			candidate: &Setting{Group: "site", Label: "dark", Type: TypeCheckbox, Value: "true"},
			wantCode:  errors.CodeInvalidArgument,
		},
		{
			name:      "upsert-style create emits pre-update",
			candidate: &Setting{Group: "site", Label: "tags", Type: TypeMultipleText, Value: []string{"a"}},
			filter:    ByKey("site", "tags"),
			update:    Update{"$set": map[string]any{"value": []string{"a"}}},
			wantEmits: 1,
		},
		{
			name:      "filter without update does not emit",
			candidate: &Setting{Group: "site", Label: "tags", Type: TypeMultipleText, Value: []string{}},
			filter:    ByKey("site", "tags"),
		},
		{
			name:     "nil candidate",
			filter:   ByKey("site", "tags"),
			update:   Update{"value": []string{}},
			wantCode: errors.CodeInvalidArgument,
		},
		{
			name:      "invalid upsert-style create does not emit",
			candidate: &Setting{Group: "site", Label: "tags", Type: TypeMultipleText, Value: nil},
			filter:    ByKey("site", "tags"),
			update:    Update{"value": nil},
			wantCode:  errors.CodeInvalidArgument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hooks, finder, bus := newTestHooks(t, nil)

			err := hooks.BeforeCreate(context.Background(), tt.candidate, tt.filter, tt.update)
			if tt.wantCode != "" {
				testingx.AssertError(t, err, tt.wantCode)
			} else {
				testingx.AssertNoError(t, err)
			}

			emits := bus.OnChannel(ChannelPreUpdate)
			if len(emits) != tt.wantEmits {
				t.Fatalf("pre-update emissions = %d, want %d", len(emits), tt.wantEmits)
			}
			if tt.wantEmits == 1 {
				if f, ok := emits[0].Args[0].(Criteria); !ok || f[FieldLabel] != tt.filter[FieldLabel] {
					t.Errorf("pre-update filter = %#v", emits[0].Args[0])
				}
				if _, ok := emits[0].Args[1].(Update); !ok {
					t.Errorf("pre-update update = %#v", emits[0].Args[1])
				}
			}
			if n := finder.calls.Load(); n != 0 {
				t.Errorf("create must not look anything up, got %d calls", n)
			}
		})
	}
}

func TestHooks_BeforeUpdate(t *testing.T) {
	current := &Setting{Group: "limits", Label: "max", Type: TypeNumber, Value: 10}

	tests := []struct {
		name        string
		payload     Update
		wantCode    errors.Code
		wantLookups int32
		wantEmits   int
	}{
		{"value without type looks type up once", Update{"value": 42}, "", 1, 1},
		{"set-style value without type", Update{"$set": map[string]any{"value": 7.5}}, "", 1, 1},
		{"value against current type fails", Update{"value": "42"}, errors.CodeInvalidArgument, 1, 0},
		{"value with new type skips lookup", Update{"value": "big", "type": "text"}, "", 0, 1},
		{"value invalid for new type", Update{"value": 1, "type": "checkbox"}, errors.CodeInvalidArgument, 0, 0},
		{"no value is a no-op", Update{"weight": 3}, "", 0, 0},
		{"type only is a no-op", Update{"type": "text"}, "", 0, 0},
		{"null number is allowed", Update{"value": nil}, "", 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hooks, finder, bus := newTestHooks(t, current)
			criteria := ByKey("limits", "max")

			err := hooks.BeforeUpdate(context.Background(), criteria, tt.payload, criteria, tt.payload)
			if tt.wantCode != "" {
				testingx.AssertError(t, err, tt.wantCode)
			} else {
				testingx.AssertNoError(t, err)
			}

			if n := finder.calls.Load(); n != tt.wantLookups {
				t.Errorf("lookups = %d, want %d", n, tt.wantLookups)
			}
			if tt.wantLookups > 0 && finder.last[FieldLabel] != "max" {
				t.Errorf("lookup criteria = %v", finder.last)
			}
			if n := len(bus.OnChannel(ChannelPreUpdate)); n != tt.wantEmits {
				t.Errorf("pre-update emissions = %d, want %d", n, tt.wantEmits)
			}
			if n := len(bus.Emissions()); n != tt.wantEmits {
				t.Errorf("total emissions = %d, want %d", n, tt.wantEmits)
			}
		})
	}
}

func TestHooks_BeforeUpdate_LookupFailure(t *testing.T) {
	hooks, finder, bus := newTestHooks(t, nil)
	finder.err = errors.Wrap(errors.CodeNotFound, "settings.find_one", ErrNotFound)

	err := hooks.BeforeUpdate(context.Background(), ByKey("a", "b"), Update{"value": 1}, nil, nil)
	testingx.AssertError(t, err, errors.CodeNotFound)
	if len(bus.Emissions()) != 0 {
		t.Error("failed lookup must not emit")
	}
}

func TestHooks_BeforeUpdate_ListenerFailureDoesNotBlock(t *testing.T) {
	hooks, _, bus := newTestHooks(t, &Setting{Type: TypeCheckbox})
	bus.On(ChannelPreUpdate, func(context.Context, ...any) error {
		return errors.New(errors.CodeInternal, "listener broke")
	})
	bus.On(ChannelPreUpdate, func(context.Context, ...any) error {
		panic("listener panicked")
	})

	err := hooks.BeforeUpdate(context.Background(), ByKey("a", "b"), Update{"value": true}, nil, nil)
	testingx.AssertNoError(t, err)

	stats := bus.Stats()
	if stats.ListenerErrors != 1 || stats.ListenerPanics != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestHooks_AfterUpdate(t *testing.T) {
	hooks, _, bus := newTestHooks(t, nil)

	var exact, wildcard, other int
	bus.On("chatbot:fallback", func(context.Context, ...any) error { exact++; return nil })
	bus.On("chatbot:*", func(context.Context, ...any) error { wildcard++; return nil })
	bus.On("site:*", func(context.Context, ...any) error { other++; return nil })

	updated := &Setting{Group: "chatbot", Label: "fallback", Type: TypeCheckbox, Value: true}
	hooks.AfterUpdate(context.Background(), updated)

	emits := bus.Emissions()
	if len(emits) != 1 {
		t.Fatalf("emissions = %d, want exactly 1", len(emits))
	}
	if emits[0].Channel != "chatbot:fallback" {
		t.Errorf("channel = %s, want chatbot:fallback", emits[0].Channel)
	}
	if emits[0].Args[0] != updated {
		t.Error("notification must carry the updated entry")
	}
	if exact != 1 || wildcard != 1 || other != 0 {
		t.Errorf("deliveries exact=%d wildcard=%d other=%d", exact, wildcard, other)
	}
}

func TestNewHooks_PanicsOnNil(t *testing.T) {
	tests := []struct {
		name   string
		finder Finder
		bus    *testingx.RecordingBus
	}{
		{"nil finder", nil, testingx.NewRecordingBus()},
		{"nil bus", &fakeFinder{}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("expected panic")
				}
			}()
			if tt.bus == nil {
				NewHooks(tt.finder, nil, nil, nil)
				return
			}
			NewHooks(tt.finder, tt.bus, nil, nil)
		})
	}
}
