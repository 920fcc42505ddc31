package settingx

import (
	"encoding/json"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"go.eggybyte.com/settings/core/errors"
	"go.eggybyte.com/settings/eventx"
)

// Type is the declared kind of a setting's value.
type Type string

// Validated value kinds. Other values are stored without shape checks.
const (
	TypeText         Type = "text"
	TypeTextarea     Type = "textarea"
	TypeMultipleText Type = "multiple_text"
	TypeCheckbox     Type = "checkbox"
	TypeNumber       Type = "number"
)

// Known reports whether t belongs to the validated set.
func (t Type) Known() bool {
	switch t {
	case TypeText, TypeTextarea, TypeMultipleText, TypeCheckbox, TypeNumber:
		return true
	}
	return false
}

// Notification channels owned by the store.
const (
	ChannelPreUpdate  = "setting:pre-update"
	ChannelPostCreate = "setting:post-create"
	ChannelPostDelete = "setting:post-delete"
	// ChannelPostWrite carries committed updates that did not touch value.
	ChannelPostWrite = "setting:post-write"

	// ReservedGroup cannot be used by settings; its channels carry store lifecycle events.
	ReservedGroup = "setting"
	// WildcardLabel addresses every label of a group.
	WildcardLabel = "*"
)

// Setting is a named configuration entry.
type Setting struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id" yaml:"-"`
	Group     string    `gorm:"uniqueIndex:idx_settings_group_label;size:100;not null" json:"group" yaml:"group"`
	Label     string    `gorm:"uniqueIndex:idx_settings_group_label;size:100;not null" json:"label" yaml:"label"`
	Type      Type      `gorm:"size:32;not null" json:"type" yaml:"type"`
	Value     any       `gorm:"type:text;serializer:json" json:"value" yaml:"value"`
	Weight    int       `gorm:"not null;default:0" json:"weight" yaml:"weight"`
	UpdatedBy string    `gorm:"size:255" json:"updated_by,omitempty" yaml:"-"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at" yaml:"-"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at" yaml:"-"`
}

// TableName returns the table name for Setting.
func (Setting) TableName() string {
	return "settings"
}

// BeforeCreate generates a UUID when none is set.
func (s *Setting) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}

// Key returns "group:label".
func (s *Setting) Key() string {
	return eventx.Channel(s.Group, s.Label)
}

// Channel returns the post-update channel of s.
func (s *Setting) Channel() string {
	return s.Key()
}

// GroupChannel returns the pattern matching every label of group.
func GroupChannel(group string) string {
	return eventx.Channel(group, WildcardLabel)
}

// Clone returns a copy of s. Slice values are copied; other values are shared.
func (s *Setting) Clone() *Setting {
	c := *s
	switch v := s.Value.(type) {
	case []string:
		c.Value = slices.Clone(v)
	case []any:
		c.Value = slices.Clone(v)
	}
	return &c
}

func checkName(field, v string) error {
	switch {
	case strings.TrimSpace(v) == "":
		return errors.Newf(errors.CodeInvalidArgument, "%s is required", field)
	case strings.Contains(v, ":"):
		return errors.Newf(errors.CodeInvalidArgument, "%s must not contain ':'", field)
	case v == WildcardLabel:
		return errors.Newf(errors.CodeInvalidArgument, "%s must not be %q", field, WildcardLabel)
	}
	return nil
}

// CheckIdentity verifies group and label can name a setting and its channel.
func (s *Setting) CheckIdentity() error {
	if err := checkName("group", s.Group); err != nil {
		return err
	}
	if s.Group == ReservedGroup {
		return errors.Newf(errors.CodeInvalidArgument, "group %q is reserved", ReservedGroup)
	}
	if err := checkName("label", s.Label); err != nil {
		return err
	}
	if strings.TrimSpace(string(s.Type)) == "" {
		return errors.New(errors.CodeInvalidArgument, "type is required")
	}
	return nil
}

// apply copies writable fields onto s. Unknown fields are rejected.
func (s *Setting) apply(fields map[string]any) error {
	for k, v := range fields {
		switch k {
		case FieldValue:
			s.Value = v
		case FieldType:
			t, err := asType(v)
			if err != nil {
				return err
			}
			s.Type = t
		case FieldWeight:
			w, err := asInt(v)
			if err != nil {
				return err
			}
			s.Weight = w
		case FieldUpdatedBy:
			by, ok := v.(string)
			if !ok {
				return errors.New(errors.CodeInvalidArgument, "updated_by must be a string")
			}
			s.UpdatedBy = by
		default:
			return errors.Newf(errors.CodeInvalidArgument, "field %q cannot be updated", k)
		}
	}
	return nil
}

func asType(v any) (Type, error) {
	switch t := v.(type) {
	case Type:
		return t, nil
	case string:
		return Type(t), nil
	}
	return "", errors.Newf(errors.CodeInvalidArgument, "type must be a string, got %T", v)
}

func asInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case float64:
		if n == math.Trunc(n) {
			return int(n), nil
		}
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), nil
		}
	}
	return 0, errors.Newf(errors.CodeInvalidArgument, "weight must be an integer, got %v", v)
}
