package linky

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/linkysync/linkysync/pkg/common"
	"github.com/linkysync/linkysync/pkg/log"
	"github.com/linkysync/linkysync/pkg/types"
	"github.com/stretchr/testify/require"
)

func init() {
	log.SetDefaultLogLevel(slog.LevelError)
}

type fakeCall struct {
	Method string
	URL    string
	Form   url.Values
}

// fakeTransport records every call and answers with handler.
type fakeTransport struct {
	calls   []fakeCall
	handler func(call fakeCall) (*common.Response, error)
}

func (f *fakeTransport) Send(ctx context.Context, method, rawURL string, form url.Values) (*common.Response, error) {
	call := fakeCall{Method: method, URL: rawURL, Form: form}
	f.calls = append(f.calls, call)
	return f.handler(call)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.LoginURL = "https://login.test/auth/UI/Login"
	cfg.HomeURL = "https://portal.test/accueil"
	cfg.DataURL = "https://portal.test/suivi-de-consommation"
	return cfg
}

func textResponse(body string, setCookies ...string) *common.Response {
	h := http.Header{}
	for _, c := range setCookies {
		h.Add("Set-Cookie", c)
	}
	return &common.Response{StatusCode: http.StatusOK, Header: h, Body: []byte(body)}
}

// newTestClient returns a Client whose session already went through a
// successful login. data answers every request made after the login.
func newTestClient(t *testing.T, data func(call fakeCall) (*common.Response, error)) (*Client, *fakeTransport) {
	t.Helper()
	cfg := testConfig()
	ft := &fakeTransport{}
	ft.handler = func(call fakeCall) (*common.Response, error) {
		switch {
		case call.URL == cfg.LoginURL:
			return textResponse("", "iPlanetDirectoryPro=token; Path=/"), nil
		case call.URL == cfg.HomeURL:
			return textResponse("<html></html>"), nil
		case strings.HasPrefix(call.URL, cfg.DataURL):
			return data(call)
		}
		return nil, &common.TransportError{Method: call.Method, URL: call.URL, Err: http.ErrNotSupported}
	}
	session, err := NewSession(context.Background(), cfg, ft, types.Credentials{Username: "user", Password: "pass"})
	require.NoError(t, err)
	// drop the login calls
	ft.calls = nil
	return NewClient(cfg, session), ft
}

func kwh(v types.Value) float64 {
	f, _ := v.KWH()
	return f
}
