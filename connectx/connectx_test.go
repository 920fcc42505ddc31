package connectx

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"connectrpc.com/connect"

	"go.eggybyte.com/settings/core/errors"
	"go.eggybyte.com/settings/core/identity"
	"go.eggybyte.com/settings/i18nx"
	"go.eggybyte.com/settings/obsx"
	"go.eggybyte.com/settings/testingx"
)

const echoProcedure = "/settings.v1.SettingService/Echo"

type echoRequest struct {
	Fail errors.Code `json:"fail,omitempty"`
}

type echoResponse struct {
	Actor  string `json:"actor"`
	Locale string `json:"locale"`
}

func newEchoServer(t *testing.T, opts Options) *connect.Client[echoRequest, echoResponse] {
	t.Helper()
	mux := http.NewServeMux()
	Bind(mux, echoProcedure, connect.NewUnaryHandler(echoProcedure,
		func(ctx context.Context, req *connect.Request[echoRequest]) (*connect.Response[echoResponse], error) {
			if req.Msg.Fail != "" {
				return nil, errors.New(req.Msg.Fail, "echo failed")
			}
			loc, _ := i18nx.LocaleFrom(ctx)
			return connect.NewResponse(&echoResponse{Actor: identity.Actor(ctx), Locale: loc.String()}), nil
		},
		HandlerOptions(opts)...,
	))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return connect.NewClient[echoRequest, echoResponse](srv.Client(), srv.URL+echoProcedure, connect.WithCodec(JSONCodec{}))
}

func TestDefaultInterceptors(t *testing.T) {
	logger := testingx.NewMockLogger(t)

	if n := len(DefaultInterceptors(Options{Logger: logger})); n != 5 {
		t.Errorf("without telemetry or locales: %d interceptors, want 5", n)
	}

	provider, err := obsx.NewProvider(context.Background(), obsx.Options{ServiceName: "connectx-test"})
	testingx.AssertNoError(t, err)
	defer provider.Shutdown(context.Background())
	tr, err := i18nx.New()
	testingx.AssertNoError(t, err)

	if n := len(DefaultInterceptors(Options{Logger: logger, Otel: provider, Locales: tr})); n != 8 {
		t.Errorf("full stack: %d interceptors, want 8", n)
	}
}

func TestDefaultInterceptors_PanicsWithoutLogger(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	DefaultInterceptors(Options{})
}

func TestServerRoundTrip(t *testing.T) {
	tr, err := i18nx.New()
	testingx.AssertNoError(t, err)
	client := newEchoServer(t, Options{Logger: testingx.NewMockLogger(t), Locales: tr})

	req := connect.NewRequest(&echoRequest{})
	req.Header().Set("X-User-Id", "u-42")
	req.Header().Set("Accept-Language", "fr-FR")
	resp, err := client.CallUnary(context.Background(), req)
	testingx.AssertNoError(t, err)

	if resp.Msg.Actor != "u-42" {
		t.Errorf("Actor = %q, want u-42", resp.Msg.Actor)
	}
	if resp.Msg.Locale != "fr" {
		t.Errorf("Locale = %q, want fr", resp.Msg.Locale)
	}
}

func TestServerErrorMapping(t *testing.T) {
	client := newEchoServer(t, Options{Logger: testingx.NewMockLogger(t)})

	tests := []struct {
		fail        errors.Code
		wantConnect connect.Code
	}{
		{errors.CodeInvalidArgument, connect.CodeInvalidArgument},
		{errors.CodeNotFound, connect.CodeNotFound},
		{errors.CodeAlreadyExists, connect.CodeAlreadyExists},
		{errors.CodeInternal, connect.CodeInternal},
	}
	for _, tt := range tests {
		t.Run(string(tt.fail), func(t *testing.T) {
			_, err := client.CallUnary(context.Background(), connect.NewRequest(&echoRequest{Fail: tt.fail}))
			if connect.CodeOf(err) != tt.wantConnect {
				t.Fatalf("connect code = %v, want %v", connect.CodeOf(err), tt.wantConnect)
			}
			mapped := FromConnectError("client.echo", err)
			testingx.AssertError(t, mapped, tt.fail)
		})
	}
}

func TestFromConnectError(t *testing.T) {
	if FromConnectError("op", nil) != nil {
		t.Error("nil should stay nil")
	}
	err := FromConnectError("op", connect.NewError(connect.CodeNotFound, stderrors.New("Setting a:b not found")))
	testingx.AssertError(t, err, errors.CodeNotFound)
	if msg := errors.Message(err); msg != "Setting a:b not found" {
		t.Errorf("Message() = %q", msg)
	}
}
