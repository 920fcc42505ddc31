// Package handler exposes the setting service over Connect and a read-only
// REST endpoint.
//
// Overview:
//   - Responsibility: Mount SettingService procedures and GET /api/settings/{group}
//   - Key Types: SettingHandler
//   - Concurrency Model: Handlers are stateless; the View serves concurrent reads
//   - Error Semantics: Connect errors come from connectx error mapping; REST
//     errors are written by httpx.WriteError
//   - Performance Notes: The REST endpoint reads the in-memory View, never the database
//
// Usage:
//
//	h := handler.NewSettingHandler(svc, view, app.Logger())
//	h.Register(app)
package handler

import (
	"net/http"

	"go.eggybyte.com/settings/core/errors"
	"go.eggybyte.com/settings/core/log"
	"go.eggybyte.com/settings/httpx"
	"go.eggybyte.com/settings/internal/api/settingsv1"
	"go.eggybyte.com/settings/internal/service"
	"go.eggybyte.com/settings/servicex"
	"go.eggybyte.com/settings/settingx"
)

// GroupPattern is the mux pattern of the REST group endpoint.
const GroupPattern = "GET /api/settings/{group}"

// SettingHandler bridges the transports to SettingService.
type SettingHandler struct {
	service service.SettingService
	view    *settingx.View
	logger  log.Logger
}

// NewSettingHandler creates a SettingHandler.
//
// Panics:
//   - If service, view or logger is nil (fail-fast at startup)
func NewSettingHandler(svc service.SettingService, view *settingx.View, logger log.Logger) *SettingHandler {
	if svc == nil {
		panic("NewSettingHandler: service cannot be nil")
	}
	if view == nil {
		panic("NewSettingHandler: view cannot be nil")
	}
	if logger == nil {
		panic("NewSettingHandler: logger cannot be nil")
	}
	return &SettingHandler{service: svc, view: view, logger: logger}
}

// Register mounts every procedure and the REST endpoint on app.
func (h *SettingHandler) Register(app *servicex.App) {
	servicex.Handle(app, settingsv1.GetSettingProcedure, h.service.GetSetting)
	servicex.Handle(app, settingsv1.ListSettingsProcedure, h.service.ListSettings)
	servicex.Handle(app, settingsv1.CreateSettingProcedure, h.service.CreateSetting)
	servicex.Handle(app, settingsv1.UpdateSettingProcedure, h.service.UpdateSetting)
	servicex.Handle(app, settingsv1.DeleteSettingProcedure, h.service.DeleteSetting)
	app.Mux().Handle(GroupPattern, h.GroupHandler())

	h.logger.Info("registered setting handlers", log.Str("service", settingsv1.ServiceName))
}

// GroupHandler serves one group from the View.
func (h *SettingHandler) GroupHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		group := r.PathValue("group")
		settings := h.view.Group(group)
		if len(settings) == 0 {
			_ = httpx.WriteError(w, r, errors.Newf(errors.CodeNotFound, "group %s not found", group))
			return
		}
		_ = httpx.WriteJSON(w, http.StatusOK, settingsv1.GroupResponse{
			Group:    group,
			Settings: settings,
			Values:   h.view.Map(group),
		})
	})
}
