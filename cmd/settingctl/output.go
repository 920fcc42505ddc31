package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"go.eggybyte.com/settings/settingx"
)

const (
	outputYAML = "yaml"
	outputJSON = "json"
)

// record is the printed form of a setting. settingx.Setting hides
// bookkeeping fields from YAML so defaults files stay minimal.
type record struct {
	ID        string    `json:"id" yaml:"id"`
	Group     string    `json:"group" yaml:"group"`
	Label     string    `json:"label" yaml:"label"`
	Type      string    `json:"type" yaml:"type"`
	Value     any       `json:"value" yaml:"value"`
	Weight    int       `json:"weight" yaml:"weight"`
	UpdatedBy string    `json:"updated_by,omitempty" yaml:"updated_by,omitempty"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

func toRecord(s *settingx.Setting) record {
	return record{
		ID:        s.ID,
		Group:     s.Group,
		Label:     s.Label,
		Type:      string(s.Type),
		Value:     s.Value,
		Weight:    s.Weight,
		UpdatedBy: s.UpdatedBy,
		UpdatedAt: s.UpdatedAt,
	}
}

func toRecords(list []*settingx.Setting) []record {
	out := make([]record, 0, len(list))
	for _, s := range list {
		out = append(out, toRecord(s))
	}
	return out
}

func render(w io.Writer, format string, v any) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
