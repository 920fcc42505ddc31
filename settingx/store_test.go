package settingx

import (
	"context"
	"encoding/json"
	"math"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"go.eggybyte.com/settings/core/errors"
	"go.eggybyte.com/settings/core/identity"
	"go.eggybyte.com/settings/testingx"
)

// countingRepo wraps a Repository and counts FindOne calls.
type countingRepo struct {
	Repository
	findOne int
}

func (r *countingRepo) FindOne(ctx context.Context, criteria Criteria) (*Setting, error) {
	r.findOne++
	return r.Repository.FindOne(ctx, criteria)
}

type storeFixture struct {
	store  *Store
	repo   *countingRepo
	bus    *testingx.RecordingBus
	logger *testingx.MockLogger
}

func newStoreFixture(t *testing.T, opts ...Option) *storeFixture {
	t.Helper()
	db := testingx.NewSQLiteDB(t, &Setting{})
	repo := &countingRepo{Repository: NewGORMRepository(db)}
	bus := testingx.NewRecordingBus()
	logger := testingx.NewMockLogger(t)
	opts = append([]Option{WithLogger(logger)}, opts...)
	return &storeFixture{
		store:  NewStore(repo, bus, opts...),
		repo:   repo,
		bus:    bus,
		logger: logger,
	}
}

// seed creates s and resets the recorded emissions and lookup count.
func (f *storeFixture) seed(t *testing.T, s *Setting) *Setting {
	t.Helper()
	created, err := f.store.Create(context.Background(), s)
	testingx.AssertNoError(t, err)
	f.bus.Reset()
	f.repo.findOne = 0
	return created
}

func TestStore_Create(t *testing.T) {
	tests := []struct {
		name     string
		setting  *Setting
		wantCode errors.Code
	}{
		{"checkbox true", &Setting{Group: "site", Label: "dark", Type: TypeCheckbox, Value: true}, ""},
		{"checkbox string", &Setting{Group: "site", Label: "dark", Type: TypeCheckbox, Value: "true"}, errors.CodeInvalidArgument},
		{"multiple_text list", &Setting{Group: "site", Label: "tags", Type: TypeMultipleText, Value: []string{"a", "b"}}, ""},
		{"multiple_text empty", &Setting{Group: "site", Label: "tags", Type: TypeMultipleText, Value: []string{}}, ""},
		{"multiple_text null", &Setting{Group: "site", Label: "tags", Type: TypeMultipleText, Value: nil}, errors.CodeInvalidArgument},
		{"number null", &Setting{Group: "limits", Label: "max", Type: TypeNumber, Value: nil}, ""},
		{"number NaN", &Setting{Group: "limits", Label: "max", Type: TypeNumber, Value: math.NaN()}, errors.CodeInvalidArgument},
		{"number malformed json", &Setting{Group: "limits", Label: "max", Type: TypeNumber, Value: json.Number("abc")}, errors.CodeInvalidArgument},
		{"unknown type", &Setting{Group: "theme", Label: "accent", Type: "color", Value: map[string]any{"r": 1.0}}, ""},
		{"missing group", &Setting{Label: "x", Type: TypeText}, errors.CodeInvalidArgument},
		{"reserved group", &Setting{Group: ReservedGroup, Label: "x", Type: TypeText}, errors.CodeInvalidArgument},
		{"wildcard label", &Setting{Group: "site", Label: "*", Type: TypeText}, errors.CodeInvalidArgument},
		{"separator in label", &Setting{Group: "site", Label: "a:b", Type: TypeText}, errors.CodeInvalidArgument},
		{"missing type", &Setting{Group: "site", Label: "x"}, errors.CodeInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newStoreFixture(t)
			ctx := identity.WithUser(context.Background(), &identity.UserInfo{UserID: "admin-1"})

			created, err := f.store.Create(ctx, tt.setting)
			if tt.wantCode != "" {
				testingx.AssertError(t, err, tt.wantCode)
				if len(f.bus.Emissions()) != 0 {
					t.Error("failed create must not emit")
				}
				list, _ := f.store.List(context.Background(), nil)
				if len(list) != 0 {
					t.Errorf("failed create wrote %d rows", len(list))
				}
				return
			}

			testingx.AssertNoError(t, err)
			if created.ID == "" {
				t.Error("ID should be generated")
			}
			if created.UpdatedBy != "admin-1" {
				t.Errorf("UpdatedBy = %q, want admin-1", created.UpdatedBy)
			}
			if n := len(f.bus.OnChannel(ChannelPostCreate)); n != 1 {
				t.Errorf("post-create emissions = %d, want 1", n)
			}
			if n := len(f.bus.OnChannel(ChannelPreUpdate)); n != 0 {
				t.Errorf("plain create emitted %d pre-update notifications", n)
			}
		})
	}
}

func TestStore_CreateDuplicate(t *testing.T) {
	f := newStoreFixture(t)
	f.seed(t, &Setting{Group: "site", Label: "title", Type: TypeText, Value: "a"})

	_, err := f.store.Create(context.Background(), &Setting{Group: "site", Label: "title", Type: TypeText, Value: "b"})
	testingx.AssertError(t, err, errors.CodeAlreadyExists)
}

func TestStore_UpdateNumberScenario(t *testing.T) {
	f := newStoreFixture(t)
	f.seed(t, &Setting{Group: "limits", Label: "max", Type: TypeNumber, Value: 10})

	var received []*Setting
	f.bus.On("limits:max", func(_ context.Context, args ...any) error {
		received = append(received, args[0].(*Setting))
		return nil
	})

	updated, err := f.store.Update(context.Background(), ByKey("limits", "max"), Update{"value": 42})
	testingx.AssertNoError(t, err)

	if f.repo.findOne != 1 {
		t.Errorf("type lookups = %d, want 1", f.repo.findOne)
	}
	if n := len(f.bus.OnChannel(ChannelPreUpdate)); n != 1 {
		t.Errorf("pre-update emissions = %d, want 1", n)
	}
	if n := len(f.bus.OnChannel("limits:max")); n != 1 {
		t.Errorf("post-update emissions = %d, want 1", n)
	}
	if len(received) != 1 || received[0].Value != 42 || received[0].Type != TypeNumber {
		t.Errorf("subscriber received %+v", received)
	}
	if updated.UpdatedBy != identity.SystemActor {
		t.Errorf("UpdatedBy = %q, want %q", updated.UpdatedBy, identity.SystemActor)
	}

	stored, err := f.store.Get(context.Background(), "limits", "max")
	testingx.AssertNoError(t, err)
	if v, ok := stored.Value.(float64); !ok || v != 42 {
		t.Errorf("stored value = %#v, want 42", stored.Value)
	}
}

func TestStore_Update(t *testing.T) {
	tests := []struct {
		name        string
		payload     Update
		wantCode    errors.Code
		wantPost    int
		wantWrite   int
		wantType    Type
		wantWeight  int
		wantLookups int
	}{
		{"invalid value for current type", Update{"value": "yes"}, errors.CodeInvalidArgument, 0, 0, TypeCheckbox, 0, 1},
		{"value and type together", Update{"$set": map[string]any{"value": "on", "type": "text"}}, "", 1, 0, TypeText, 0, 0},
		{"weight only skips post-update", Update{"weight": 5}, "", 0, 1, TypeCheckbox, 5, 0},
		{"type only skips post-update", Update{"type": "text"}, "", 0, 1, TypeText, 0, 0},
		{"unknown field", Update{"label": "other"}, errors.CodeInvalidArgument, 0, 0, TypeCheckbox, 0, 0},
		{"empty payload", Update{}, errors.CodeInvalidArgument, 0, 0, TypeCheckbox, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newStoreFixture(t)
			f.seed(t, &Setting{Group: "site", Label: "dark", Type: TypeCheckbox, Value: false})

			_, err := f.store.Update(context.Background(), ByKey("site", "dark"), tt.payload)
			if tt.wantCode != "" {
				testingx.AssertError(t, err, tt.wantCode)
			} else {
				testingx.AssertNoError(t, err)
			}

			if n := len(f.bus.OnChannel("site:dark")); n != tt.wantPost {
				t.Errorf("post-update emissions = %d, want %d", n, tt.wantPost)
			}
			if n := len(f.bus.OnChannel(ChannelPostWrite)); n != tt.wantWrite {
				t.Errorf("post-write emissions = %d, want %d", n, tt.wantWrite)
			}
			if f.repo.findOne != tt.wantLookups {
				t.Errorf("lookups = %d, want %d", f.repo.findOne, tt.wantLookups)
			}

			stored, err := f.store.Get(context.Background(), "site", "dark")
			testingx.AssertNoError(t, err)
			if stored.Type != tt.wantType {
				t.Errorf("stored type = %s, want %s", stored.Type, tt.wantType)
			}
			if stored.Weight != tt.wantWeight {
				t.Errorf("stored weight = %d, want %d", stored.Weight, tt.wantWeight)
			}
		})
	}
}

func TestStore_UpdateErrors(t *testing.T) {
	f := newStoreFixture(t)

	_, err := f.store.Update(context.Background(), ByGroup("site"), Update{"weight": 1})
	testingx.AssertError(t, err, errors.CodeInvalidArgument)

	_, err = f.store.Update(context.Background(), ByKey("site", "missing"), Update{"value": "x"})
	testingx.AssertError(t, err, errors.CodeNotFound)

	_, err = f.store.Update(context.Background(), ByKey("site", "missing"), Update{"weight": 1})
	testingx.AssertError(t, err, errors.CodeNotFound)
}

func TestStore_UpsertCreates(t *testing.T) {
	f := newStoreFixture(t)

	created, err := f.store.Upsert(context.Background(), &Setting{Group: "chatbot", Label: "fallback", Type: TypeCheckbox, Value: true})
	testingx.AssertNoError(t, err)
	if created.ID == "" {
		t.Fatal("upsert should create the setting")
	}

	pre := f.bus.OnChannel(ChannelPreUpdate)
	if len(pre) != 1 {
		t.Fatalf("pre-update emissions = %d, want 1 on the create path", len(pre))
	}
	filter := pre[0].Args[0].(Criteria)
	if filter[FieldGroup] != "chatbot" || filter[FieldLabel] != "fallback" {
		t.Errorf("filter = %v", filter)
	}
	if !pre[0].Args[1].(Update).TouchesValue() {
		t.Error("update should carry the value")
	}
	if n := len(f.bus.OnChannel(ChannelPostCreate)); n != 1 {
		t.Errorf("post-create emissions = %d, want 1", n)
	}
}

func TestStore_UpsertUpdates(t *testing.T) {
	f := newStoreFixture(t)
	f.seed(t, &Setting{Group: "chatbot", Label: "fallback", Type: TypeCheckbox, Value: false})

	updated, err := f.store.Upsert(context.Background(), &Setting{Group: "chatbot", Label: "fallback", Type: TypeCheckbox, Value: true, Weight: 2})
	testingx.AssertNoError(t, err)
	if updated.Value != true || updated.Weight != 2 {
		t.Errorf("updated = %+v", updated)
	}
	if n := len(f.bus.OnChannel("chatbot:fallback")); n != 1 {
		t.Errorf("post-update emissions = %d, want 1", n)
	}
	if n := len(f.bus.OnChannel(ChannelPostCreate)); n != 0 {
		t.Errorf("upsert of an existing key emitted %d post-create", n)
	}

	_, err = f.store.Upsert(context.Background(), &Setting{Group: "chatbot", Label: "fallback", Type: TypeCheckbox, Value: "true"})
	testingx.AssertError(t, err, errors.CodeInvalidArgument)
}

func TestStore_ListOrdering(t *testing.T) {
	f := newStoreFixture(t)
	for _, s := range []*Setting{
		{Group: "b", Label: "x", Type: TypeText, Weight: 0},
		{Group: "a", Label: "z", Type: TypeText, Weight: 1},
		{Group: "a", Label: "y", Type: TypeText, Weight: 2},
		{Group: "a", Label: "w", Type: TypeText, Weight: 1},
	} {
		f.seed(t, s)
	}

	all, err := f.store.List(context.Background(), nil)
	testingx.AssertNoError(t, err)
	var keys []string
	for _, s := range all {
		keys = append(keys, s.Key())
	}
	want := []string{"a:w", "a:z", "a:y", "b:x"}
	if len(keys) != len(want) {
		t.Fatalf("keys = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("keys = %v, want %v", keys, want)
		}
	}

	group, err := f.store.List(context.Background(), ByGroup("b"))
	testingx.AssertNoError(t, err)
	if len(group) != 1 {
		t.Errorf("group b has %d settings, want 1", len(group))
	}

	_, err = f.store.List(context.Background(), Criteria{"value": "x"})
	testingx.AssertError(t, err, errors.CodeInvalidArgument)
}

func TestStore_Delete(t *testing.T) {
	f := newStoreFixture(t)
	f.seed(t, &Setting{Group: "site", Label: "title", Type: TypeText, Value: "a"})

	deleted, err := f.store.Delete(context.Background(), ByKey("site", "title"))
	testingx.AssertNoError(t, err)
	if deleted.Key() != "site:title" {
		t.Errorf("deleted %s", deleted.Key())
	}
	if n := len(f.bus.OnChannel(ChannelPostDelete)); n != 1 {
		t.Errorf("post-delete emissions = %d, want 1", n)
	}

	_, err = f.store.Get(context.Background(), "site", "title")
	testingx.AssertError(t, err, errors.CodeNotFound)

	_, err = f.store.Delete(context.Background(), ByKey("site", "title"))
	testingx.AssertError(t, err, errors.CodeNotFound)
}

func TestStore_Seed(t *testing.T) {
	f := newStoreFixture(t)
	f.seed(t, &Setting{Group: "site", Label: "title", Type: TypeText, Value: "custom"})

	defaults := []*Setting{
		{Group: "site", Label: "title", Type: TypeText, Value: "default"},
		{Group: "site", Label: "tags", Type: TypeMultipleText, Value: []string{}},
	}
	n, err := f.store.Seed(context.Background(), defaults)
	testingx.AssertNoError(t, err)
	if n != 1 {
		t.Errorf("created = %d, want 1", n)
	}
	if defaults[1].ID != "" {
		t.Error("Seed must not modify the defaults it is given")
	}

	title, err := f.store.Get(context.Background(), "site", "title")
	testingx.AssertNoError(t, err)
	if title.Value != "custom" {
		t.Errorf("existing value overwritten: %v", title.Value)
	}

	n, err = f.store.Seed(context.Background(), defaults)
	testingx.AssertNoError(t, err)
	if n != 0 {
		t.Errorf("second seed created %d", n)
	}

	_, err = f.store.Seed(context.Background(), []*Setting{{Group: "x", Label: "y", Type: TypeNumber, Value: "nan"}})
	testingx.AssertError(t, err, errors.CodeInvalidArgument)
}

func TestStore_Get(t *testing.T) {
	f := newStoreFixture(t)
	_, err := f.store.Get(context.Background(), "", "x")
	testingx.AssertError(t, err, errors.CodeInvalidArgument)
}

func TestStore_Metrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	f := newStoreFixture(t, WithMeterProvider(mp))

	_, err := f.store.Create(context.Background(), &Setting{Group: "site", Label: "dark", Type: TypeCheckbox, Value: true})
	testingx.AssertNoError(t, err)
	_, err = f.store.Create(context.Background(), &Setting{Group: "site", Label: "bad", Type: TypeCheckbox, Value: "true"})
	testingx.AssertError(t, err, errors.CodeInvalidArgument)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}

	writes := map[string]int64{}
	var failures int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				switch m.Name {
				case "settings_writes_total":
					result, _ := dp.Attributes.Value(attribute.Key("result"))
					writes[result.AsString()] += dp.Value
				case "settings_validation_failures_total":
					failures += dp.Value
				}
			}
		}
	}
	if writes["ok"] != 1 || writes["error"] != 1 {
		t.Errorf("writes = %v", writes)
	}
	if failures != 1 {
		t.Errorf("validation failures = %d, want 1", failures)
	}
}
