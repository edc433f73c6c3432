// Package api talks to the chat backend over its JSON endpoints.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const defaultTimeout = 10 * time.Second

// DefaultSessionCookie is the cookie name the backend keeps its session in.
const DefaultSessionCookie = "session"

// Client issues requests against one fixed backend origin. The backend keeps
// the joined room and the delta cursor in its session, so the client carries
// a cookie jar across calls.
type Client struct {
	base *url.URL
	http *http.Client
	log  zerolog.Logger

	timeout     time.Duration
	cookieName  string
	cookieValue string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient makes requests through a copy of hc, so its transport is
// shared but hc itself is left untouched. A cookie jar is added to the copy if
// hc has none.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		cp := *hc
		c.http = &cp
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithTimeout bounds every request, whatever HTTP client is in use.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithSession seeds the jar with an already established session cookie.
func WithSession(name, value string) Option {
	return func(c *Client) {
		if name == "" {
			name = DefaultSessionCookie
		}
		c.cookieName, c.cookieValue = name, value
	}
}

// New returns a client for the backend at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("base url %q: missing host", baseURL)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawQuery, u.Fragment = "", ""

	c := &Client{
		base: u,
		http: &http.Client{Timeout: defaultTimeout},
		log:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		c.http.Timeout = c.timeout
	}

	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("cookie jar: %w", err)
		}
		c.http.Jar = jar
	}
	if c.cookieValue != "" {
		c.http.Jar.SetCookies(u, []*http.Cookie{{Name: c.cookieName, Value: c.cookieValue, Path: "/"}})
	}
	return c, nil
}

// BaseURL is the origin every path is resolved against.
func (c *Client) BaseURL() string { return c.base.String() }

func (c *Client) url(path string, query url.Values) string {
	u := *c.base
	u.Path = c.base.Path + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, header http.Header) (*http.Request, *http.Response, error) {
	var rd io.Reader
	var contentType string
	switch b := body.(type) {
	case nil:
	case url.Values:
		rd, contentType = strings.NewReader(b.Encode()), "application/x-www-form-urlencoded"
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, nil, fmt.Errorf("encode %s body: %w", path, err)
		}
		rd, contentType = bytes.NewReader(data), "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path, query), rd)
	if err != nil {
		return nil, nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	reqID := uuid.NewString()
	req.Header.Set("X-Request-ID", reqID)
	for k, vs := range header {
		req.Header[k] = vs
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Str("request_id", reqID).Str("method", method).Str("path", path).Msg("request failed")
		return req, nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	c.log.Debug().
		Str("request_id", reqID).
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("request")
	return req, resp, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	_, resp, err := c.do(ctx, http.MethodGet, path, query, nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if !ok(resp.StatusCode) {
		io.Copy(io.Discard, resp.Body)
		return &StatusError{Method: http.MethodGet, Path: path, Code: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// finalURL is where the request ended up after redirects.
func finalURL(req *http.Request, resp *http.Response) (string, bool) {
	if resp.Request == nil || resp.Request.URL == nil {
		return req.URL.String(), false
	}
	final := resp.Request.URL.String()
	return final, final != req.URL.String()
}

func ok(code int) bool { return code >= 200 && code < 300 }
