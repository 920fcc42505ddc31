package settingx

import (
	"context"

	"go.eggybyte.com/settings/core/errors"
	"go.eggybyte.com/settings/core/log"
	"go.eggybyte.com/settings/eventx"
)

// Finder is the read the update hook needs to learn an entry's current type.
type Finder interface {
	FindOne(ctx context.Context, criteria Criteria) (*Setting, error)
}

// Hooks holds the write lifecycle checks and notifications of the store.
// It performs no locking and keeps no state between calls.
type Hooks struct {
	finder     Finder
	bus        eventx.Bus
	translator Translator
	logger     log.Logger
	metrics    *storeMetrics
}

// NewHooks creates Hooks. Panics if finder or bus is nil.
func NewHooks(finder Finder, bus eventx.Bus, translator Translator, logger log.Logger) *Hooks {
	if finder == nil {
		panic("NewHooks: finder cannot be nil")
	}
	if bus == nil {
		panic("NewHooks: bus cannot be nil")
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Hooks{finder: finder, bus: bus, translator: translator, logger: logger}
}

// BeforeCreate validates candidate. When filter and update are both present
// the create is an upsert-style write, and one pre-update notification
// carrying them is emitted before the write proceeds.
func (h *Hooks) BeforeCreate(ctx context.Context, candidate *Setting, filter Criteria, update Update) error {
	if candidate == nil {
		return errors.New(errors.CodeInvalidArgument, "setting is required")
	}
	if err := h.validate(ctx, "settings.before_create", candidate.Type, candidate.Value); err != nil {
		return err
	}
	if filter != nil && update != nil {
		h.bus.Emit(ctx, ChannelPreUpdate, filter, update)
	}
	return nil
}

// BeforeUpdate validates the value an update writes.
//
// A payload that does not write value is not checked and emits nothing. When
// the payload writes value without type, the current entry is read once via
// criteria and its type is used. On success one pre-update notification
// carrying filter and update is emitted.
func (h *Hooks) BeforeUpdate(ctx context.Context, criteria Criteria, payload Update, filter Criteria, update Update) error {
	fields := payload.Normalize()
	value, ok := fields[FieldValue]
	if !ok {
		return nil
	}

	var t Type
	if raw, hasType := fields[FieldType]; hasType {
		declared, err := asType(raw)
		if err != nil {
			return err
		}
		t = declared
	} else {
		current, err := h.finder.FindOne(ctx, criteria)
		if err != nil {
			return err
		}
		t = current.Type
	}

	if err := h.validate(ctx, "settings.before_update", t, value); err != nil {
		return err
	}

	h.bus.Emit(ctx, ChannelPreUpdate, filter, update)
	return nil
}

// AfterUpdate emits exactly one notification on the "<group>:<label>"
// channel of updated, carrying updated itself. Listeners registered on
// "<group>:*" receive it too.
func (h *Hooks) AfterUpdate(ctx context.Context, updated *Setting) {
	h.bus.Emit(ctx, updated.Channel(), updated)
}

func (h *Hooks) validate(ctx context.Context, op string, t Type, value any) error {
	err := Validate(t, value)
	if err == nil {
		return nil
	}
	h.metrics.validationFailed(ctx, t)
	h.logger.Debug("setting value rejected",
		log.Str("type", string(t)),
		log.Str("op", op),
		log.Str("reason", errors.Message(err)))
	return localize(ctx, h.translator, op, err)
}
