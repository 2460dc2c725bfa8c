package common

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

//go:embed VERSION
var version string

type userAgentTransport struct {
	transport http.RoundTripper
	userAgent string
}

// RoundTrip implements http.RoundTripper.
func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Clone the request to avoid modifying the original request's headers
	// which might be shared or reused
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.userAgent)
	return t.transport.RoundTrip(req)
}

// DefaultUserAgent is sent when no other user agent is configured.
func DefaultUserAgent() string {
	return "LinkySync/" + strings.TrimSpace(version)
}

// Response is the result of a single Send. Header holds every Set-Cookie
// line received while following redirects, not only the final response's.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Cookies returns the name/value pairs of every Set-Cookie line in the
// response. Later lines overwrite earlier ones with the same name.
func (r *Response) Cookies() map[string]string {
	cookies := make(map[string]string)
	for _, line := range r.Header.Values("Set-Cookie") {
		pair, _, _ := strings.Cut(line, ";")
		name, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || name == "" {
			continue
		}
		if v, err := url.QueryUnescape(value); err == nil {
			value = v
		}
		cookies[name] = value
	}
	return cookies
}

// Transport sends requests within one cookie session.
type Transport interface {
	// Send issues a request, following redirects. A nil form sends no body;
	// a non-nil form is sent url-encoded.
	Send(ctx context.Context, method, rawURL string, form url.Values) (*Response, error)
}

// TransportError is returned when a request could not complete.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

type setCookieKey struct{}

// setCookieRecorder collects Set-Cookie lines of every hop of a redirect
// chain into the slice stored in the request context.
type setCookieRecorder struct {
	transport http.RoundTripper
}

func (t *setCookieRecorder) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.transport.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if lines, ok := req.Context().Value(setCookieKey{}).(*[]string); ok {
		*lines = append(*lines, resp.Header.Values("Set-Cookie")...)
	}
	return resp, nil
}

// HTTPTransport implements Transport over net/http with a cookie jar shared
// by every request.
type HTTPTransport struct {
	client *http.Client
}

var _ Transport = (*HTTPTransport)(nil)

// NewTransport returns a Transport with its own cookie jar. An empty
// userAgent uses DefaultUserAgent.
func NewTransport(timeout time.Duration, userAgent string) *HTTPTransport {
	if userAgent == "" {
		userAgent = DefaultUserAgent()
	}
	// cookiejar.New only fails on invalid options
	jar, _ := cookiejar.New(nil)
	return &HTTPTransport{
		client: &http.Client{
			Jar: jar,
			Transport: &userAgentTransport{
				transport: &setCookieRecorder{transport: http.DefaultTransport},
				userAgent: userAgent,
			},
			Timeout: timeout,
		},
	}
}

// Send implements Transport.
func (t *HTTPTransport) Send(ctx context.Context, method, rawURL string, form url.Values) (*Response, error) {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	var setCookies []string
	ctx = context.WithValue(ctx, setCookieKey{}, &setCookies)
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, &TransportError{Method: method, URL: rawURL, Err: err}
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, &TransportError{Method: method, URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Method: method, URL: rawURL, Err: fmt.Errorf("failed to read body: %w", err)}
	}

	header := resp.Header.Clone()
	header.Del("Set-Cookie")
	for _, line := range setCookies {
		header.Add("Set-Cookie", line)
	}
	return &Response{
		StatusCode: resp.StatusCode,
		Header:     header,
		Body:       b,
	}, nil
}
