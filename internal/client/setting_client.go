// Package client calls settingd over Connect.
//
// Overview:
//   - Responsibility: Typed access to settings.v1.SettingService and the REST group view
//   - Key Types: SettingClient
//   - Concurrency Model: Safe for concurrent use; procedures share one breaker
//   - Error Semantics: Failures come back as core errors carrying the server's code and message
//   - Performance Notes: Retries only on gateway errors, with exponential backoff
//
// Usage:
//
//	c := client.NewSettingClient("http://localhost:8080")
//	s, err := c.Get(ctx, "chatbot", "fallback")
package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"connectrpc.com/connect"

	"go.eggybyte.com/settings/clientx"
	"go.eggybyte.com/settings/core/errors"
	"go.eggybyte.com/settings/httpx"
	"go.eggybyte.com/settings/internal/api/settingsv1"
	"go.eggybyte.com/settings/settingx"
)

// SettingClient wraps one Connect client per procedure.
type SettingClient struct {
	base   *clientx.Client
	get    *connect.Client[settingsv1.GetSettingRequest, settingsv1.GetSettingResponse]
	list   *connect.Client[settingsv1.ListSettingsRequest, settingsv1.ListSettingsResponse]
	create *connect.Client[settingsv1.CreateSettingRequest, settingsv1.CreateSettingResponse]
	update *connect.Client[settingsv1.UpdateSettingRequest, settingsv1.UpdateSettingResponse]
	delete *connect.Client[settingsv1.DeleteSettingRequest, settingsv1.DeleteSettingResponse]
}

// NewSettingClient creates a client for the settingd at baseURL.
func NewSettingClient(baseURL string, opts ...clientx.Option) *SettingClient {
	c := clientx.New(baseURL, opts...)
	return &SettingClient{
		base:   c,
		get:    clientx.NewUnary[settingsv1.GetSettingRequest, settingsv1.GetSettingResponse](c, settingsv1.GetSettingProcedure),
		list:   clientx.NewUnary[settingsv1.ListSettingsRequest, settingsv1.ListSettingsResponse](c, settingsv1.ListSettingsProcedure),
		create: clientx.NewUnary[settingsv1.CreateSettingRequest, settingsv1.CreateSettingResponse](c, settingsv1.CreateSettingProcedure),
		update: clientx.NewUnary[settingsv1.UpdateSettingRequest, settingsv1.UpdateSettingResponse](c, settingsv1.UpdateSettingProcedure),
		delete: clientx.NewUnary[settingsv1.DeleteSettingRequest, settingsv1.DeleteSettingResponse](c, settingsv1.DeleteSettingProcedure),
	}
}

// BreakerState reports the circuit breaker state.
func (c *SettingClient) BreakerState() string {
	return c.base.BreakerState()
}

// Get returns group:label.
func (c *SettingClient) Get(ctx context.Context, group, label string) (*settingx.Setting, error) {
	res, err := clientx.Call(ctx, c.get, &settingsv1.GetSettingRequest{Group: group, Label: label})
	if err != nil {
		return nil, err
	}
	return res.Setting, nil
}

// List returns the settings of group, or all settings when group is empty.
func (c *SettingClient) List(ctx context.Context, group string) ([]*settingx.Setting, error) {
	res, err := clientx.Call(ctx, c.list, &settingsv1.ListSettingsRequest{Group: group})
	if err != nil {
		return nil, err
	}
	return res.Settings, nil
}

// Create creates s. With upsert an existing group:label is updated instead.
func (c *SettingClient) Create(ctx context.Context, s *settingx.Setting, upsert bool) (*settingx.Setting, error) {
	req := &settingsv1.CreateSettingRequest{
		Setting: &settingsv1.SettingInput{
			Group:  s.Group,
			Label:  s.Label,
			Type:   s.Type,
			Value:  s.Value,
			Weight: s.Weight,
		},
		Upsert: upsert,
	}
	res, err := clientx.Call(ctx, c.create, req)
	if err != nil {
		return nil, err
	}
	return res.Setting, nil
}

// Update applies update to group:label.
func (c *SettingClient) Update(ctx context.Context, group, label string, update settingx.Update) (*settingx.Setting, error) {
	res, err := clientx.Call(ctx, c.update, &settingsv1.UpdateSettingRequest{Group: group, Label: label, Update: update})
	if err != nil {
		return nil, err
	}
	return res.Setting, nil
}

// Delete removes group:label and returns it.
func (c *SettingClient) Delete(ctx context.Context, group, label string) (*settingx.Setting, error) {
	res, err := clientx.Call(ctx, c.delete, &settingsv1.DeleteSettingRequest{Group: group, Label: label})
	if err != nil {
		return nil, err
	}
	return res.Setting, nil
}

// Group reads a group from the REST view.
func (c *SettingClient) Group(ctx context.Context, group string) (*settingsv1.GroupResponse, error) {
	endpoint := c.base.BaseURL() + "/api/settings/" + url.PathEscape(group)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInvalidArgument, "client.group", err)
	}
	resp, err := c.base.HTTPClient().Do(req)
	if err != nil {
		return nil, errors.Wrap(errors.CodeUnavailable, "client.group", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var body httpx.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Code == "" {
			return nil, errors.Newf(errors.CodeInternal, "unexpected status %d", resp.StatusCode)
		}
		return nil, errors.New(errors.Code(body.Code), body.Message)
	}

	var out settingsv1.GroupResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errors.Wrap(errors.CodeInternal, "client.group", err)
	}
	return &out, nil
}
