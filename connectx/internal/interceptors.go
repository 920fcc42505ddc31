// Package internal contains the Connect interceptor implementations.
package internal

import (
	"context"
	stderrors "errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"connectrpc.com/connect"
	"golang.org/x/text/language"

	"go.eggybyte.com/settings/core/errors"
	"go.eggybyte.com/settings/core/identity"
	"go.eggybyte.com/settings/core/log"
	"go.eggybyte.com/settings/i18nx"
	"go.eggybyte.com/settings/logx"
)

// HeaderMapping names the inbound headers identity is read from.
type HeaderMapping struct {
	RequestID     string
	InternalToken string
	UserID        string
	UserName      string
	Roles         string
	RealIP        string
	ForwardedFor  string
	UserAgent     string
}

// RecoveryInterceptor turns a handler panic into an internal error.
func RecoveryInterceptor(logger log.Logger) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (resp connect.AnyResponse, err error) {
			defer func() {
				if r := recover(); r != nil {
					logx.FromContext(ctx, logger).Error(nil, "panic recovered",
						log.Str("procedure", req.Spec().Procedure),
						log.Str("panic", fmt.Sprint(r)),
						log.Str("stack", string(debug.Stack())),
					)
					resp, err = nil, connect.NewError(connect.CodeInternal, stderrors.New("internal error"))
				}
			}()
			return next(ctx, req)
		}
	}
}

// TimeoutInterceptor applies defaultTimeout to requests that arrive without
// a deadline. Clients shorten it with the Connect-Timeout-Ms header.
func TimeoutInterceptor(defaultTimeout time.Duration) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if defaultTimeout <= 0 {
				return next(ctx, req)
			}
			if _, ok := ctx.Deadline(); ok {
				return next(ctx, req)
			}
			ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
			defer cancel()
			return next(ctx, req)
		}
	}
}

// IdentityInterceptor stores identity.UserInfo and identity.RequestMeta
// read from the request headers.
func IdentityInterceptor(headers HeaderMapping) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			user, meta := ExtractIdentity(req.Header(), req.Peer().Addr, headers)
			if user != nil {
				ctx = identity.WithUser(ctx, user)
			}
			return next(identity.WithMeta(ctx, meta), req)
		}
	}
}

// Header is the subset of http.Header identity extraction reads.
type Header interface {
	Get(key string) string
}

// ExtractIdentity reads the caller and request metadata from h.
// A user is returned only when a user id or name header is present.
func ExtractIdentity(h Header, peerAddr string, headers HeaderMapping) (*identity.UserInfo, *identity.RequestMeta) {
	var user *identity.UserInfo
	id, name := h.Get(headers.UserID), h.Get(headers.UserName)
	if id != "" || name != "" {
		user = &identity.UserInfo{UserID: id, UserName: name}
		if roles := h.Get(headers.Roles); roles != "" {
			for _, r := range strings.Split(roles, ",") {
				if r = strings.TrimSpace(r); r != "" {
					user.Roles = append(user.Roles, r)
				}
			}
		}
	}

	meta := &identity.RequestMeta{
		RequestID:     h.Get(headers.RequestID),
		InternalToken: h.Get(headers.InternalToken),
		UserAgent:     h.Get(headers.UserAgent),
		RemoteIP:      peerAddr,
	}
	if ip := h.Get(headers.RealIP); ip != "" {
		meta.RemoteIP = ip
	} else if fwd := h.Get(headers.ForwardedFor); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		meta.RemoteIP = strings.TrimSpace(first)
	}
	return user, meta
}

// Negotiator picks a supported locale for an Accept-Language value.
type Negotiator interface {
	Negotiate(acceptLanguage string) language.Tag
}

// LocaleInterceptor stores the negotiated locale with i18nx.WithLocale.
func LocaleInterceptor(n Negotiator) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			tag := n.Negotiate(req.Header().Get("Accept-Language"))
			return next(i18nx.WithLocale(ctx, tag), req)
		}
	}
}

// ErrorMappingInterceptor converts core errors into *connect.Error with
// the matching code. Errors that already are *connect.Error pass through.
func ErrorMappingInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			resp, err := next(ctx, req)
			if err != nil {
				return resp, ToConnectError(err)
			}
			return resp, nil
		}
	}
}

// ToConnectError maps err to a *connect.Error. The message is the one
// errors.Message reports; internal errors are reported without detail.
func ToConnectError(err error) error {
	if err == nil {
		return nil
	}
	var ce *connect.Error
	if stderrors.As(err, &ce) {
		return err
	}
	if stderrors.Is(err, context.DeadlineExceeded) && errors.CodeOf(err) == "" {
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	}
	if stderrors.Is(err, context.Canceled) && errors.CodeOf(err) == "" {
		return connect.NewError(connect.CodeCanceled, err)
	}

	code := ConnectCode(errors.CodeOf(err))
	msg := errors.Message(err)
	if code == connect.CodeInternal {
		msg = "internal error"
	}
	return connect.NewError(code, stderrors.New(msg))
}

// ConnectCode maps a core code to a Connect code.
func ConnectCode(code errors.Code) connect.Code {
	switch code {
	case errors.CodeInvalidArgument:
		return connect.CodeInvalidArgument
	case errors.CodeNotFound:
		return connect.CodeNotFound
	case errors.CodeAlreadyExists:
		return connect.CodeAlreadyExists
	case errors.CodeFailedPrecondition:
		return connect.CodeFailedPrecondition
	case errors.CodePermissionDenied:
		return connect.CodePermissionDenied
	case errors.CodeUnauthenticated:
		return connect.CodeUnauthenticated
	case errors.CodeResourceExhausted:
		return connect.CodeResourceExhausted
	case errors.CodeUnavailable:
		return connect.CodeUnavailable
	case errors.CodeDeadlineExceeded:
		return connect.CodeDeadlineExceeded
	case errors.CodeUnimplemented:
		return connect.CodeUnimplemented
	case errors.CodeAborted:
		return connect.CodeAborted
	default:
		return connect.CodeInternal
	}
}

// CoreCode maps a Connect code back to a core code.
func CoreCode(code connect.Code) errors.Code {
	switch code {
	case connect.CodeInvalidArgument, connect.CodeOutOfRange:
		return errors.CodeInvalidArgument
	case connect.CodeNotFound:
		return errors.CodeNotFound
	case connect.CodeAlreadyExists:
		return errors.CodeAlreadyExists
	case connect.CodeFailedPrecondition:
		return errors.CodeFailedPrecondition
	case connect.CodePermissionDenied:
		return errors.CodePermissionDenied
	case connect.CodeUnauthenticated:
		return errors.CodeUnauthenticated
	case connect.CodeResourceExhausted:
		return errors.CodeResourceExhausted
	case connect.CodeUnavailable:
		return errors.CodeUnavailable
	case connect.CodeDeadlineExceeded:
		return errors.CodeDeadlineExceeded
	case connect.CodeUnimplemented:
		return errors.CodeUnimplemented
	case connect.CodeAborted:
		return errors.CodeAborted
	default:
		return errors.CodeInternal
	}
}

// LoggingOptions holds configuration for the logging interceptor.
type LoggingOptions struct {
	SlowThreshold time.Duration // 0 disables slow request warnings
}

// LoggingInterceptor logs each call once it completes. Client errors log at
// WARN, server errors at ERROR, slow calls at WARN, the rest at DEBUG.
func LoggingInterceptor(logger log.Logger, opts LoggingOptions) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			elapsed := time.Since(start)

			l := logx.FromContext(ctx, logger)
			fields := []any{
				log.Str("procedure", req.Spec().Procedure),
				log.Dur("duration", elapsed),
			}
			switch {
			case err != nil && IsServerError(err):
				l.Error(err, "rpc failed", append(fields, log.Str("code", connect.CodeOf(err).String()))...)
			case err != nil:
				l.Warn("rpc rejected", append(fields, log.Str("code", connect.CodeOf(err).String()), log.Str("error", err.Error()))...)
			case opts.SlowThreshold > 0 && elapsed > opts.SlowThreshold:
				l.Warn("slow rpc", fields...)
			default:
				l.Debug("rpc completed", fields...)
			}
			return resp, err
		}
	}
}

// IsServerError reports whether err is the server's fault.
func IsServerError(err error) bool {
	switch connect.CodeOf(err) {
	case connect.CodeInternal, connect.CodeUnknown, connect.CodeDataLoss, connect.CodeUnavailable, connect.CodeUnimplemented:
		return true
	default:
		return false
	}
}
