package linky

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/linkysync/linkysync/pkg/common"
	"github.com/linkysync/linkysync/pkg/log"
	"github.com/linkysync/linkysync/pkg/types"
)

// Session is an authenticated portal session. It is created by logging in
// once and is never refreshed: if the portal drops it, every later request
// fails.
//
// The portal keeps per-session state server-side so requests are serialized.
type Session struct {
	cfg Config

	mu            sync.Mutex
	transport     common.Transport
	authenticated bool
}

// NewSession logs into the portal with creds. A nil transport is replaced by
// a new HTTP transport with its own cookie jar.
func NewSession(ctx context.Context, cfg Config, transport common.Transport, creds types.Credentials) (*Session, error) {
	s := &Session{
		cfg:       cfg,
		transport: transport,
	}
	if err := s.authenticate(ctx, creds); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) getTransport() common.Transport {
	if s.transport == nil {
		s.transport = common.NewTransport(s.cfg.Timeout, s.cfg.UserAgent)
	}
	return s.transport
}

// Authenticated reports whether the login handshake succeeded.
func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticated
}

func loginForm(cfg Config, creds types.Credentials) url.Values {
	data := url.Values{}
	data.Set("IDToken1", creds.Username)
	data.Set("IDToken2", creds.Password)
	data.Set("SunQueryParamsString", base64.StdEncoding.EncodeToString([]byte("realm="+cfg.Realm)))
	data.Set("encoded", "true")
	data.Set("gx_charset", "UTF-8")
	return data
}

func (s *Session) authenticate(ctx context.Context, creds types.Credentials) error {
	if creds.Username == "" {
		return fmt.Errorf("%w: missing username", ErrInvalidCredentials)
	}
	if creds.Password == "" {
		return fmt.Errorf("%w: missing password", ErrInvalidCredentials)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	log.Ctx(ctx).DebugContext(ctx, "logging in to linky portal", slog.String("username", creds.Username))
	resp, err := s.getTransport().Send(ctx, "POST", s.cfg.LoginURL, loginForm(s.cfg, creds))
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "linky login request failed", slog.Any("error", err))
		return fmt.Errorf("login failed: %w", err)
	}

	// only the cookie matters, the login page answers 200 either way
	if _, ok := resp.Cookies()[s.cfg.SessionCookie]; !ok {
		log.Ctx(ctx).WarnContext(
			ctx,
			"linky login did not set session cookie",
			slog.String("cookie", s.cfg.SessionCookie),
			slog.Int("status", resp.StatusCode),
		)
		return ErrInvalidCredentials
	}
	s.authenticated = true
	log.Ctx(ctx).DebugContext(ctx, "linky login success", slog.String("username", creds.Username))

	// the portal finalizes the session when the home page is loaded
	if _, err := s.getTransport().Send(ctx, "GET", s.cfg.HomeURL, nil); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to load linky home page", slog.Any("error", err))
		return fmt.Errorf("failed to load portal home: %w", err)
	}
	return nil
}

// Do sends a request within the session and returns the response body,
// stripped of headers. A non-nil form makes the request a POST regardless of
// method, which is how the portal expects date windows to be sent.
func (s *Session) Do(ctx context.Context, method, rawURL string, form url.Values) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.authenticated {
		return nil, fmt.Errorf("session is not authenticated")
	}
	if form != nil {
		method = "POST"
	}
	resp, err := s.getTransport().Send(ctx, method, rawURL, form)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}
