// Package service implements the settings.v1.SettingService operations on
// top of the typed settings store.
//
// Overview:
//   - Responsibility: Validate requests, call settingx.Store, localize lookup failures
//   - Key Types: SettingService interface and its implementation
//   - Concurrency Model: Safe for concurrent use; the store holds no locks
//   - Error Semantics: Core errors pass through; NOT_FOUND and ALREADY_EXISTS
//     get a message in the caller's locale
//   - Performance Notes: One repository round trip per call, two for an upsert
//
// Usage:
//
//	svc := service.NewSettingService(store, translator, logger)
//	res, err := svc.GetSetting(ctx, &settingsv1.GetSettingRequest{Group: "chatbot", Label: "fallback"})
package service

import (
	"context"

	"go.eggybyte.com/settings/core/errors"
	"go.eggybyte.com/settings/core/log"
	"go.eggybyte.com/settings/httpx"
	"go.eggybyte.com/settings/internal/api/settingsv1"
	"go.eggybyte.com/settings/settingx"
)

// Catalog keys for lookup failures.
const (
	MsgNotFound = "setting.not_found"
	MsgExists   = "setting.exists"
)

// SettingService is the business surface behind the Connect handler.
type SettingService interface {
	GetSetting(ctx context.Context, req *settingsv1.GetSettingRequest) (*settingsv1.GetSettingResponse, error)
	ListSettings(ctx context.Context, req *settingsv1.ListSettingsRequest) (*settingsv1.ListSettingsResponse, error)
	CreateSetting(ctx context.Context, req *settingsv1.CreateSettingRequest) (*settingsv1.CreateSettingResponse, error)
	UpdateSetting(ctx context.Context, req *settingsv1.UpdateSettingRequest) (*settingsv1.UpdateSettingResponse, error)
	DeleteSetting(ctx context.Context, req *settingsv1.DeleteSettingRequest) (*settingsv1.DeleteSettingResponse, error)
}

type settingService struct {
	store      *settingx.Store
	translator settingx.Translator
	logger     log.Logger
}

// NewSettingService creates a SettingService. translator may be nil, in
// which case lookup failures keep their English messages.
//
// Panics:
//   - If store or logger is nil (fail-fast at startup)
func NewSettingService(store *settingx.Store, translator settingx.Translator, logger log.Logger) SettingService {
	if store == nil {
		panic("NewSettingService: store cannot be nil")
	}
	if logger == nil {
		panic("NewSettingService: logger cannot be nil")
	}
	return &settingService{store: store, translator: translator, logger: logger}
}

func (s *settingService) GetSetting(ctx context.Context, req *settingsv1.GetSettingRequest) (*settingsv1.GetSettingResponse, error) {
	if err := httpx.Validate(req); err != nil {
		return nil, err
	}
	setting, err := s.store.Get(ctx, req.Group, req.Label)
	if err != nil {
		return nil, s.lookupError(ctx, "settings.get", err, req.Group, req.Label)
	}
	return &settingsv1.GetSettingResponse{Setting: setting}, nil
}

func (s *settingService) ListSettings(ctx context.Context, req *settingsv1.ListSettingsRequest) (*settingsv1.ListSettingsResponse, error) {
	var criteria settingx.Criteria
	if req.Group != "" {
		criteria = settingx.ByGroup(req.Group)
	}
	settings, err := s.store.List(ctx, criteria)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		settings = []*settingx.Setting{}
	}
	s.logger.Debug("settings listed", log.Str("group", req.Group), log.Int("count", len(settings)))
	return &settingsv1.ListSettingsResponse{Settings: settings}, nil
}

// CreateSetting creates a setting, or with Upsert writes it either way.
//
// Returns:
//   - CodeInvalidArgument: malformed identity or a value that does not match the type
//   - CodeAlreadyExists: group:label is taken and Upsert is false
func (s *settingService) CreateSetting(ctx context.Context, req *settingsv1.CreateSettingRequest) (*settingsv1.CreateSettingResponse, error) {
	if err := httpx.Validate(req); err != nil {
		return nil, err
	}
	in := req.Setting.ToSetting()

	var (
		setting *settingx.Setting
		err     error
	)
	if req.Upsert {
		setting, err = s.store.Upsert(ctx, in)
	} else {
		setting, err = s.store.Create(ctx, in)
	}
	if err != nil {
		return nil, s.lookupError(ctx, "settings.create", err, in.Group, in.Label)
	}
	return &settingsv1.CreateSettingResponse{Setting: setting}, nil
}

func (s *settingService) UpdateSetting(ctx context.Context, req *settingsv1.UpdateSettingRequest) (*settingsv1.UpdateSettingResponse, error) {
	if err := httpx.Validate(req); err != nil {
		return nil, err
	}
	setting, err := s.store.Update(ctx, settingx.ByKey(req.Group, req.Label), req.Update)
	if err != nil {
		return nil, s.lookupError(ctx, "settings.update", err, req.Group, req.Label)
	}
	return &settingsv1.UpdateSettingResponse{Setting: setting}, nil
}

func (s *settingService) DeleteSetting(ctx context.Context, req *settingsv1.DeleteSettingRequest) (*settingsv1.DeleteSettingResponse, error) {
	if err := httpx.Validate(req); err != nil {
		return nil, err
	}
	setting, err := s.store.Delete(ctx, settingx.ByKey(req.Group, req.Label))
	if err != nil {
		return nil, s.lookupError(ctx, "settings.delete", err, req.Group, req.Label)
	}
	return &settingsv1.DeleteSettingResponse{Setting: setting}, nil
}

// lookupError gives NOT_FOUND and ALREADY_EXISTS errors a localized message.
func (s *settingService) lookupError(ctx context.Context, op string, err error, group, label string) error {
	var key string
	switch errors.CodeOf(err) {
	case errors.CodeNotFound:
		key = MsgNotFound
	case errors.CodeAlreadyExists:
		key = MsgExists
	default:
		return err
	}
	if s.translator == nil {
		return err
	}
	return errors.Build(errors.CodeOf(err)).
		WithOp(op).
		WithErr(err).
		WithMsg(s.translator.Translate(ctx, key, group, label)).
		Err()
}
