package settingx

import (
	"context"

	"go.opentelemetry.io/otel/metric"

	"go.eggybyte.com/settings/core/errors"
	"go.eggybyte.com/settings/core/identity"
	"go.eggybyte.com/settings/core/log"
	"go.eggybyte.com/settings/eventx"
)

// Store is the typed settings store. It validates every write through Hooks
// and notifies the bus after writes commit.
type Store struct {
	repo    Repository
	bus     eventx.Bus
	hooks   *Hooks
	logger  log.Logger
	metrics *storeMetrics
}

type storeOptions struct {
	translator Translator
	logger     log.Logger
	meter      metric.MeterProvider
}

// Option configures a Store.
type Option func(*storeOptions)

// WithTranslator localizes validation messages.
func WithTranslator(tr Translator) Option {
	return func(o *storeOptions) { o.translator = tr }
}

// WithLogger sets the store logger.
func WithLogger(logger log.Logger) Option {
	return func(o *storeOptions) { o.logger = logger }
}

// WithMeterProvider records write and validation counters on mp.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *storeOptions) { o.meter = mp }
}

// NewStore creates a Store.
//
// Panics:
//   - If repo or bus is nil (fail-fast at startup)
func NewStore(repo Repository, bus eventx.Bus, opts ...Option) *Store {
	if repo == nil {
		panic("NewStore: repository cannot be nil")
	}
	if bus == nil {
		panic("NewStore: bus cannot be nil")
	}

	o := storeOptions{logger: log.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.Nop()
	}

	var m *storeMetrics
	if o.meter != nil {
		var err error
		if m, err = newStoreMetrics(o.meter); err != nil {
			o.logger.Warn("settings metrics disabled", log.Str("error", err.Error()))
		}
	}

	hooks := NewHooks(repo, bus, o.translator, o.logger)
	hooks.metrics = m

	return &Store{
		repo:    repo,
		bus:     bus,
		hooks:   hooks,
		logger:  o.logger,
		metrics: m,
	}
}

// Hooks returns the lifecycle hooks the store runs.
func (s *Store) Hooks() *Hooks {
	return s.hooks
}

// Create validates and inserts candidate, then emits ChannelPostCreate.
//
// Returns:
//   - CodeInvalidArgument: identity fields are malformed or the value does not match the type
//   - CodeAlreadyExists: group:label is taken
//   - CodeInternal: persistence failed
func (s *Store) Create(ctx context.Context, candidate *Setting) (*Setting, error) {
	created, err := s.create(ctx, candidate, nil, nil)
	s.metrics.write(ctx, "create", err)
	return created, err
}

func (s *Store) create(ctx context.Context, candidate *Setting, filter Criteria, update Update) (*Setting, error) {
	if candidate == nil {
		return nil, errors.New(errors.CodeInvalidArgument, "setting is required")
	}
	if err := candidate.CheckIdentity(); err != nil {
		return nil, err
	}
	if err := s.hooks.BeforeCreate(ctx, candidate, filter, update); err != nil {
		return nil, err
	}

	candidate.UpdatedBy = identity.Actor(ctx)
	created, err := s.repo.Create(ctx, candidate)
	if err != nil {
		return nil, err
	}

	s.logger.Info("setting created",
		log.Str("key", created.Key()),
		log.Str("type", string(created.Type)),
		log.Str("actor", created.UpdatedBy))
	s.bus.Emit(ctx, ChannelPostCreate, created)
	return created, nil
}

// Update applies payload to the single setting matching criteria.
//
// The payload may be flat ({"value": 42}) or set-style
// ({"$set": {"value": 42}}). Only value, type and weight are writable.
// A payload that writes value is validated first and, once committed,
// announced on the setting's "<group>:<label>" channel. Other payloads are
// written without validation and only reported on ChannelPostWrite.
func (s *Store) Update(ctx context.Context, criteria Criteria, payload Update) (*Setting, error) {
	updated, err := s.update(ctx, criteria, payload)
	s.metrics.write(ctx, "update", err)
	return updated, err
}

func (s *Store) update(ctx context.Context, criteria Criteria, payload Update) (*Setting, error) {
	fields, err := payload.Fields()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, errors.New(errors.CodeInvalidArgument, "update has no fields")
	}
	if err := uniqueCriteria("settings.update", criteria); err != nil {
		return nil, err
	}

	if err := s.hooks.BeforeUpdate(ctx, criteria, payload, criteria, payload); err != nil {
		return nil, err
	}

	fields[FieldUpdatedBy] = identity.Actor(ctx)
	updated, err := s.repo.Update(ctx, criteria, fields)
	if err != nil {
		return nil, err
	}

	s.logger.Info("setting updated",
		log.Str("key", updated.Key()),
		log.Bool("value_changed", payload.TouchesValue()),
		log.Str("actor", updated.UpdatedBy))

	if payload.TouchesValue() {
		s.hooks.AfterUpdate(ctx, updated)
	} else {
		s.bus.Emit(ctx, ChannelPostWrite, updated)
	}
	return updated, nil
}

// Upsert updates the setting named by candidate's group and label, or
// creates it. Both paths carry the same filter and set-style update, so the
// create path also emits one pre-update notification.
func (s *Store) Upsert(ctx context.Context, candidate *Setting) (*Setting, error) {
	if candidate == nil {
		return nil, errors.New(errors.CodeInvalidArgument, "setting is required")
	}

	filter := ByKey(candidate.Group, candidate.Label)
	update := Update{SetOperator: map[string]any{
		FieldValue:  candidate.Value,
		FieldType:   string(candidate.Type),
		FieldWeight: candidate.Weight,
	}}

	_, err := s.repo.FindOne(ctx, filter)
	switch {
	case err == nil:
		updated, err := s.update(ctx, filter, update)
		s.metrics.write(ctx, "upsert", err)
		return updated, err
	case errors.IsCode(err, errors.CodeNotFound):
		created, err := s.create(ctx, candidate, filter, update)
		s.metrics.write(ctx, "upsert", err)
		return created, err
	default:
		s.metrics.write(ctx, "upsert", err)
		return nil, err
	}
}

// Get returns the setting group:label.
func (s *Store) Get(ctx context.Context, group, label string) (*Setting, error) {
	if group == "" || label == "" {
		return nil, errors.New(errors.CodeInvalidArgument, "group and label are required")
	}
	return s.repo.FindOne(ctx, ByKey(group, label))
}

// List returns the settings matching criteria ordered by group, weight, label.
func (s *Store) List(ctx context.Context, criteria Criteria) ([]*Setting, error) {
	return s.repo.Find(ctx, criteria)
}

// Delete removes the setting matching criteria, then emits ChannelPostDelete.
func (s *Store) Delete(ctx context.Context, criteria Criteria) (*Setting, error) {
	deleted, err := s.repo.Delete(ctx, criteria)
	s.metrics.write(ctx, "delete", err)
	if err != nil {
		return nil, err
	}

	s.logger.Info("setting deleted", log.Str("key", deleted.Key()), log.Str("actor", identity.Actor(ctx)))
	s.bus.Emit(ctx, ChannelPostDelete, deleted)
	return deleted, nil
}

// Seed creates every default whose group:label does not exist yet. Existing
// settings keep their stored values. Returns the number created.
func (s *Store) Seed(ctx context.Context, defaults []*Setting) (int, error) {
	created := 0
	for _, d := range defaults {
		_, err := s.repo.FindOne(ctx, ByKey(d.Group, d.Label))
		if err == nil {
			continue
		}
		if !errors.IsCode(err, errors.CodeNotFound) {
			return created, err
		}
		if _, err := s.Create(ctx, d.Clone()); err != nil {
			return created, errors.Wrapf(errors.CodeOf(err), "settings.seed", err, "seed %s", d.Key())
		}
		created++
	}

	s.logger.Info("settings seeded", log.Int("created", created), log.Int("defaults", len(defaults)))
	return created, nil
}
