// Package airwave is a client for the Aruba Networks AirWave XML API.
//
// A Client logs in once, keeps the session cookie in its own jar and then
// issues read-only requests against the reporting endpoints. Responses are
// returned as-is; use DecodeAPList, DecodeAPDetail and DecodeReport to turn
// the XML bodies into ordered values.
package airwave

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
)

const (
	loginPath = "LOGIN"

	// DefaultTimeout bounds every request when Config.Timeout is zero.
	DefaultTimeout = 30 * time.Second
)

// ErrNoSession is returned by endpoint methods called before Login or after
// Logout.
var ErrNoSession = errors.New("airwave: no active session")

// Observer is notified after every HTTP exchange. statusCode is zero when the
// request failed at the transport level.
type Observer interface {
	ObserveRequest(endpoint string, statusCode int, duration time.Duration, err error)
}

// Config holds everything needed to build a Client.
type Config struct {
	URL      string
	Username string
	Password string

	// InsecureSkipVerify turns off TLS certificate verification. AirWave
	// appliances often run with self-signed certificates; this must be set
	// explicitly for those.
	InsecureSkipVerify bool

	// Timeout applies to each request. Zero means DefaultTimeout.
	Timeout time.Duration

	Logger   Logger
	Observer Observer
}

// Response is a fully read HTTP response from AirWave.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	// URL is the request URL, including the encoded query string.
	URL string
}

// OK reports whether AirWave answered 200.
func (r *Response) OK() bool {
	return r.StatusCode == http.StatusOK
}

// Client talks to a single AirWave instance. It holds at most one session and
// must not be shared between goroutines without external locking.
type Client struct {
	baseURL  string
	username string
	password string
	insecure bool
	timeout  time.Duration
	logger   Logger
	observer Observer

	session *http.Client
}

// NewClient validates cfg and returns a client without a session.
func NewClient(cfg Config) (*Client, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("airwave: invalid URL %q: %w", cfg.URL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("airwave: URL %q must be an absolute http(s) URL", cfg.URL)
	}
	if cfg.Username == "" {
		return nil, errors.New("airwave: username is required")
	}

	c := &Client{
		baseURL:  cfg.URL,
		username: cfg.Username,
		password: cfg.Password,
		insecure: cfg.InsecureSkipVerify,
		timeout:  cfg.Timeout,
		logger:   cfg.Logger,
		observer: cfg.Observer,
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.logger == nil {
		c.logger = nopLogger{}
	}
	return c, nil
}

// BaseURL returns the AirWave URL the client was configured with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// LoggedIn reports whether the client holds a session.
func (c *Client) LoggedIn() bool {
	return c.session != nil
}

// Login posts the credentials to the LOGIN form and keeps the resulting
// session, replacing any previous one. Any HTTP response counts as a session;
// a rejected login shows up only in the returned status and missing cookie.
func (c *Client) Login(ctx context.Context) (*Response, error) {
	session, err := c.newSession()
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("credential_0", c.username)
	form.Set("credential_1", c.password)
	form.Set("login", "Log In")
	form.Set("destination", "/")
	form.Set("next_action", "")

	loginURL := BuildPath(c.baseURL, loginPath)
	c.logger.Debugf("Logging in to AirWave at %s as %s", loginURL, c.username)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, loginURL, strings.NewReader(EncodeParams(form)))
	if err != nil {
		return nil, fmt.Errorf("create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := c.do(session, loginPath, req)
	if err != nil {
		c.logger.Errorf("AirWave login failed: %v", err)
		return nil, fmt.Errorf("airwave login: %w", err)
	}

	if c.session != nil {
		c.session.CloseIdleConnections()
	}
	c.session = session

	if len(session.Jar.Cookies(req.URL)) == 0 {
		c.logger.Warnf("AirWave login returned status %d without a session cookie", res.StatusCode)
	} else {
		c.logger.Infof("Logged in to AirWave at %s", c.baseURL)
	}
	return res, nil
}

// Logout drops the session. It is a no-op without one.
func (c *Client) Logout() {
	if c.session == nil {
		return
	}
	c.session.CloseIdleConnections()
	c.session = nil
	c.logger.Debugf("Closed AirWave session for %s", c.baseURL)
}

func (c *Client) newSession() (*http.Client, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if c.insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in via Config
	}

	return &http.Client{
		Jar:       jar,
		Transport: transport,
		Timeout:   c.timeout,
	}, nil
}

// get issues a GET for endpoint relative to the base URL. rawQuery must
// already be encoded.
func (c *Client) get(ctx context.Context, endpoint, rawQuery string) (*Response, error) {
	u := BuildPath(c.baseURL, endpoint)
	if rawQuery != "" {
		u += "?" + rawQuery
	}
	return c.getURL(ctx, endpoint, u)
}

func (c *Client) getURL(ctx context.Context, endpoint, u string) (*Response, error) {
	if c.session == nil {
		return nil, ErrNoSession
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	res, err := c.do(c.session, endpoint, req)
	if err != nil {
		return nil, fmt.Errorf("airwave %s: %w", endpoint, err)
	}
	c.logger.Debugf("GET %s returned %d (%d bytes)", u, res.StatusCode, len(res.Body))
	return res, nil
}

func (c *Client) do(session *http.Client, endpoint string, req *http.Request) (*Response, error) {
	start := time.Now()

	resp, err := session.Do(req)
	if err != nil {
		c.observe(endpoint, 0, start, err)
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.observe(endpoint, resp.StatusCode, start, err)
		return nil, fmt.Errorf("read response body: %w", err)
	}
	c.observe(endpoint, resp.StatusCode, start, nil)

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
		URL:        req.URL.String(),
	}, nil
}

func (c *Client) observe(endpoint string, statusCode int, start time.Time, err error) {
	if c.observer == nil {
		return
	}
	c.observer.ObserveRequest(endpoint, statusCode, time.Since(start), err)
}
