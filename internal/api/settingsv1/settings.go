// Package settingsv1 defines the messages of the settings.v1.SettingService
// Connect API. Messages travel as JSON through connectx.JSONCodec.
package settingsv1

import (
	"go.eggybyte.com/settings/settingx"
)

// ServiceName is the fully qualified service name.
const ServiceName = "settings.v1.SettingService"

// Procedure paths.
const (
	GetSettingProcedure    = "/" + ServiceName + "/GetSetting"
	ListSettingsProcedure  = "/" + ServiceName + "/ListSettings"
	CreateSettingProcedure = "/" + ServiceName + "/CreateSetting"
	UpdateSettingProcedure = "/" + ServiceName + "/UpdateSetting"
	DeleteSettingProcedure = "/" + ServiceName + "/DeleteSetting"
)

// Setting is the wire form of a setting.
type Setting = settingx.Setting

// SettingInput names and types a setting to create.
type SettingInput struct {
	Group  string        `json:"group" validate:"required,max=100,excludesall=:"`
	Label  string        `json:"label" validate:"required,max=100,excludesall=:"`
	Type   settingx.Type `json:"type" validate:"required,max=32"`
	Value  any           `json:"value"`
	Weight int           `json:"weight"`
}

// ToSetting converts the input into a new setting.
func (in *SettingInput) ToSetting() *settingx.Setting {
	return &settingx.Setting{
		Group:  in.Group,
		Label:  in.Label,
		Type:   in.Type,
		Value:  in.Value,
		Weight: in.Weight,
	}
}

type GetSettingRequest struct {
	Group string `json:"group" validate:"required"`
	Label string `json:"label" validate:"required"`
}

type GetSettingResponse struct {
	Setting *Setting `json:"setting"`
}

// ListSettingsRequest lists one group, or everything when Group is empty.
type ListSettingsRequest struct {
	Group string `json:"group,omitempty"`
}

type ListSettingsResponse struct {
	Settings []*Setting `json:"settings"`
}

// CreateSettingRequest creates a setting. With Upsert an existing setting
// with the same group and label is updated instead.
type CreateSettingRequest struct {
	Setting *SettingInput `json:"setting" validate:"required"`
	Upsert  bool          `json:"upsert,omitempty"`
}

type CreateSettingResponse struct {
	Setting *Setting `json:"setting"`
}

// UpdateSettingRequest applies Update to group:label. Update is either flat
// ({"value": 42}) or set-style ({"$set": {"value": 42}}).
type UpdateSettingRequest struct {
	Group  string          `json:"group" validate:"required"`
	Label  string          `json:"label" validate:"required"`
	Update settingx.Update `json:"update" validate:"required,min=1"`
}

type UpdateSettingResponse struct {
	Setting *Setting `json:"setting"`
}

type DeleteSettingRequest struct {
	Group string `json:"group" validate:"required"`
	Label string `json:"label" validate:"required"`
}

type DeleteSettingResponse struct {
	Setting *Setting `json:"setting"`
}

// GroupResponse is the REST view of one group.
type GroupResponse struct {
	Group    string         `json:"group"`
	Settings []*Setting     `json:"settings"`
	Values   map[string]any `json:"values"`
}
