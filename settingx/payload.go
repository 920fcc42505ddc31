package settingx

import (
	"sort"

	"go.eggybyte.com/settings/core/errors"
)

// Writable and filterable field names.
const (
	FieldID        = "id"
	FieldGroup     = "group"
	FieldLabel     = "label"
	FieldType      = "type"
	FieldValue     = "value"
	FieldWeight    = "weight"
	FieldUpdatedBy = "updated_by"

	// SetOperator nests the fields of a set-style update.
	SetOperator = "$set"
)

// Update is an update payload: either a flat field map, or a map whose
// SetOperator entry holds the field map.
type Update map[string]any

// Normalize returns the flat field map of u. When a SetOperator entry holding
// a map is present, that map is the payload and sibling keys are ignored.
func (u Update) Normalize() map[string]any {
	if set, ok := u[SetOperator]; ok {
		switch m := set.(type) {
		case map[string]any:
			return m
		case Update:
			return m
		}
	}
	return u
}

// TouchesValue reports whether the payload writes value.
func (u Update) TouchesValue() bool {
	_, ok := u.Normalize()[FieldValue]
	return ok
}

// Fields returns a copy of the normalized field map, rejecting fields that
// cannot be updated.
func (u Update) Fields() (map[string]any, error) {
	flat := u.Normalize()
	out := make(map[string]any, len(flat))
	for k, v := range flat {
		switch k {
		case FieldValue, FieldType, FieldWeight:
			out[k] = v
		default:
			return nil, errors.Newf(errors.CodeInvalidArgument, "field %q cannot be updated", k)
		}
	}
	return out, nil
}

// Criteria selects settings by exact field match.
type Criteria map[string]any

var criteriaFields = map[string]bool{
	FieldID:    true,
	FieldGroup: true,
	FieldLabel: true,
	FieldType:  true,
}

// ByKey selects the setting named group:label.
func ByKey(group, label string) Criteria {
	return Criteria{FieldGroup: group, FieldLabel: label}
}

// ByGroup selects every setting of group.
func ByGroup(group string) Criteria {
	return Criteria{FieldGroup: group}
}

// Check rejects unknown fields and non-scalar values.
func (c Criteria) Check() error {
	for _, k := range c.keys() {
		if !criteriaFields[k] {
			return errors.Newf(errors.CodeInvalidArgument, "cannot filter on %q", k)
		}
		switch c[k].(type) {
		case string, Type:
		default:
			return errors.Newf(errors.CodeInvalidArgument, "filter %q must be a string", k)
		}
	}
	return nil
}

// Unique reports whether c can select at most one setting.
func (c Criteria) Unique() bool {
	if _, ok := c[FieldID]; ok {
		return true
	}
	_, g := c[FieldGroup]
	_, l := c[FieldLabel]
	return g && l
}

func (c Criteria) keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// conditions converts c to a map GORM quotes column names for.
func (c Criteria) conditions() map[string]any {
	out := make(map[string]any, len(c))
	for k, v := range c {
		if t, ok := v.(Type); ok {
			v = string(t)
		}
		out[k] = v
	}
	return out
}
