// Package identity provides caller identity and request metadata context management.
//
// Overview:
//   - Responsibility: Carry the caller and request metadata through context
//   - Key Types: UserInfo for the caller, RequestMeta for request metadata
//   - Concurrency Model: All functions are safe for concurrent use
//   - Error Semantics: Lookups return a boolean to indicate presence
//   - Performance Notes: Context-based storage, no allocation on lookup
//
// Usage:
//
//	ctx := identity.WithUser(ctx, &identity.UserInfo{UserID: "u-1", Roles: []string{"settings:admin"}})
//	ctx = identity.WithMeta(ctx, &identity.RequestMeta{RequestID: "req-123"})
//	actor := identity.Actor(ctx) // "u-1"
package identity

import (
	"context"
	"slices"
)

// SystemActor names writes performed without a caller, such as bootstrap seeding.
const SystemActor = "system"

// UserInfo contains caller identity information.
// This is a container for user data without authentication logic.
type UserInfo struct {
	UserID   string   // Unique user identifier
	UserName string   // Human-readable user name
	Roles    []string // User roles/permissions
}

// RequestMeta contains request metadata information.
type RequestMeta struct {
	RequestID     string // Unique request identifier for tracing
	InternalToken string // Internal service token
	RemoteIP      string // Client IP address
	UserAgent     string // Client user agent string
}

type contextKey string

const (
	userKey contextKey = "user"
	metaKey contextKey = "meta"
)

// WithUser stores user information in the context.
func WithUser(ctx context.Context, u *UserInfo) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// UserFrom retrieves user information from the context.
func UserFrom(ctx context.Context) (*UserInfo, bool) {
	u, ok := ctx.Value(userKey).(*UserInfo)
	return u, ok && u != nil
}

// WithMeta stores request metadata in the context.
func WithMeta(ctx context.Context, m *RequestMeta) context.Context {
	return context.WithValue(ctx, metaKey, m)
}

// MetaFrom retrieves request metadata from the context.
func MetaFrom(ctx context.Context) (*RequestMeta, bool) {
	m, ok := ctx.Value(metaKey).(*RequestMeta)
	return m, ok && m != nil
}

// RequestID returns the request id carried by ctx, or "".
func RequestID(ctx context.Context) string {
	if m, ok := MetaFrom(ctx); ok {
		return m.RequestID
	}
	return ""
}

// Actor names the caller responsible for a write.
// Resolution order: user id, user name, "service:<token>", SystemActor.
func Actor(ctx context.Context) string {
	if u, ok := UserFrom(ctx); ok {
		if u.UserID != "" {
			return u.UserID
		}
		if u.UserName != "" {
			return u.UserName
		}
	}
	if m, ok := MetaFrom(ctx); ok && m.InternalToken != "" {
		return "service:" + m.InternalToken
	}
	return SystemActor
}

// HasRole checks if the user in the context has the specified role.
// Returns false if no user is found in the context.
func HasRole(ctx context.Context, role string) bool {
	user, ok := UserFrom(ctx)
	if !ok {
		return false
	}
	return slices.Contains(user.Roles, role)
}

// HasAnyRole checks if the user in the context has any of the specified roles.
func HasAnyRole(ctx context.Context, roles ...string) bool {
	user, ok := UserFrom(ctx)
	if !ok {
		return false
	}
	for _, role := range roles {
		if slices.Contains(user.Roles, role) {
			return true
		}
	}
	return false
}
