// Package client talks to the file server's HTTP API: listings, file
// metadata, raw content, and the mutating endpoints behind the browser UI.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ghsbrowse/ghsbrowse/internal/logging"
	"github.com/ghsbrowse/ghsbrowse/internal/metrics"
	"github.com/ghsbrowse/ghsbrowse/pkg/models"
	"github.com/ghsbrowse/ghsbrowse/pkg/pathutil"
	"github.com/ghsbrowse/ghsbrowse/pkg/protocol"
	"github.com/ghsbrowse/ghsbrowse/pkg/retry"
)

// DefaultMaxUploadSize matches the page's drop zone limit (1024 MB).
const DefaultMaxUploadSize int64 = 1024 << 20

// maxErrorBody caps how much of a failed response is kept as the message.
const maxErrorBody = 64 << 10

// Client is an HTTP client for one file server.
type Client struct {
	base          *url.URL
	httpClient    *http.Client
	retryPolicy   retry.Policy
	maxUploadSize int64

	mu       sync.RWMutex
	online   bool
	username string
	password string
}

// Config holds client configuration.
type Config struct {
	BaseURL       string
	Timeout       time.Duration
	RetryPolicy   retry.Policy
	MaxUploadSize int64
	Username      string
	Password      string

	// Transport is the innermost round tripper; logging and metrics are
	// layered on top of it.
	Transport http.RoundTripper
}

// New creates a new client.
func New(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("server url %q: scheme must be http or https", cfg.BaseURL)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RetryPolicy.Attempts == 0 {
		cfg.RetryPolicy = retry.DefaultPolicy()
	}
	if cfg.MaxUploadSize == 0 {
		cfg.MaxUploadSize = DefaultMaxUploadSize
	}

	transport := cfg.Transport
	if transport == nil {
		transport = &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        100,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		}
	}

	return &Client{
		base: base,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: metrics.NewTransport(logging.NewTransport(transport)),
		},
		retryPolicy:   cfg.RetryPolicy,
		maxUploadSize: cfg.MaxUploadSize,
		online:        true,
		username:      cfg.Username,
		password:      cfg.Password,
	}, nil
}

// SetBasicAuth sets the credentials forwarded with every request. An empty
// username disables the header.
func (c *Client) SetBasicAuth(username, password string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.username = username
	c.password = password
}

func (c *Client) applyAuth(req *http.Request) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}
}

// Online reports whether the last request reached the server.
func (c *Client) Online() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.online
}

func (c *Client) setOnline(online bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.online != online {
		if online {
			logging.Info("server is back online", logging.String("server", c.base.Host))
		} else {
			logging.Warn("server is unreachable", logging.String("server", c.base.Host))
		}
	}
	c.online = online
}

// Origin returns scheme://host of the server.
func (c *Client) Origin() string {
	return c.base.Scheme + "://" + c.base.Host
}

// MaxUploadSize returns the per-file upload cap in bytes.
func (c *Client) MaxUploadSize() int64 {
	return c.maxUploadSize
}

// URL returns the absolute, escaped URL of a server path.
func (c *Client) URL(p string) string {
	u := *c.base
	u.Path = pathutil.Clean(pathutil.JoinURL(c.base.Path, p))
	u.RawPath = ""
	u.RawQuery = ""
	return u.String()
}

// APIError is a non-2xx response. Message is the server's text body.
type APIError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s %s: server returned %d", e.Method, e.Path, e.Status)
	}
	return e.Message
}

// AsAPIError checks if an error is an APIError and returns it.
func AsAPIError(err error) (*APIError, bool) {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// ErrTooLarge is returned by Upload before any request when a file exceeds
// the configured cap.
var ErrTooLarge = errors.New("file exceeds the upload size limit")

// readError turns a failed response into an APIError. 5xx responses are
// marked temporary so reads can retry them.
func readError(req *http.Request, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	err := &APIError{
		Method:  req.Method,
		Path:    req.URL.Path,
		Status:  resp.StatusCode,
		Message: strings.TrimSpace(string(body)),
	}
	if resp.StatusCode >= 500 {
		return retry.Temporary(err)
	}
	return err
}

// send performs one request and checks the status. The caller owns the
// response body on success.
func (c *Client) send(ctx context.Context, method, p string, body io.Reader, header http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.URL(p), body)
	if err != nil {
		return nil, err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	c.applyAuth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.setOnline(false)
		return nil, retry.Temporary(fmt.Errorf("%s %s: %w", method, p, err))
	}
	c.setOnline(true)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, readError(req, resp)
	}
	return resp, nil
}

// getJSON issues a retried GET and decodes the JSON body into a T.
func getJSON[T any](ctx context.Context, c *Client, p string) (T, error) {
	return retry.Do(ctx, c.retryPolicy, func(ctx context.Context) (T, error) {
		var out T
		resp, err := c.send(ctx, http.MethodGet, p, nil, http.Header{
			"Accept":        {"application/json"},
			"Cache-Control": {"no-cache"},
		})
		if err != nil {
			return out, err
		}
		defer resp.Body.Close()

		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return out, fmt.Errorf("decode %s: %w", p, err)
		}
		return out, nil
	})
}

// User fetches the current identity. Anonymous sessions yield a zero User.
func (c *Client) User(ctx context.Context) (models.User, error) {
	ret, err := getJSON[*protocol.UserResponse](ctx, c, protocol.PathUser)
	if err != nil || ret == nil {
		return models.User{}, err
	}
	return models.User{Email: ret.Email, Name: ret.Name}, nil
}

// SysInfo fetches the server version.
func (c *Client) SysInfo(ctx context.Context) (*protocol.SysInfoResponse, error) {
	ret, err := getJSON[protocol.SysInfoResponse](ctx, c, protocol.PathSysInfo)
	if err != nil {
		return nil, err
	}
	return &ret, nil
}

// List fetches the directory listing for dir.
func (c *Client) List(ctx context.Context, dir string) (*protocol.ListResponse, error) {
	ret, err := getJSON[protocol.ListResponse](ctx, c, pathutil.JoinURL(protocol.PathJSON, dir))
	if err != nil {
		return nil, err
	}
	if ret.Files == nil {
		ret.Files = []models.FileEntry{}
	}
	return &ret, nil
}

// Info fetches metadata for a single file.
func (c *Client) Info(ctx context.Context, p string) (*protocol.InfoResponse, error) {
	ret, err := getJSON[protocol.InfoResponse](ctx, c, pathutil.JoinURL(protocol.PathInfo, p))
	if err != nil {
		return nil, err
	}
	return &ret, nil
}

// Open streams the raw content of a file. The caller must close the
// reader. The size is -1 when the server does not send a length.
func (c *Client) Open(ctx context.Context, p string) (io.ReadCloser, int64, error) {
	resp, err := retry.Do(ctx, c.retryPolicy, func(ctx context.Context) (*http.Response, error) {
		return c.send(ctx, http.MethodGet, p, nil, http.Header{"Cache-Control": {"no-cache"}})
	})
	if err != nil {
		return nil, 0, err
	}
	return resp.Body, resp.ContentLength, nil
}

// Raw fetches the whole content of a file.
func (c *Client) Raw(ctx context.Context, p string) ([]byte, error) {
	body, _, err := c.Open(ctx, p)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return io.ReadAll(body)
}

// sendForm posts url-encoded form values once; mutations are not retried.
func (c *Client) sendForm(ctx context.Context, method, p string, form url.Values) error {
	_, err := retry.Do(ctx, retry.Once(), func(ctx context.Context) (struct{}, error) {
		resp, err := c.send(ctx, method, p, strings.NewReader(form.Encode()), http.Header{
			"Content-Type": {"application/x-www-form-urlencoded"},
		})
		if err != nil {
			return struct{}{}, err
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return struct{}{}, nil
	})
	return err
}

// Mkdir creates folder name inside dir.
func (c *Client) Mkdir(ctx context.Context, dir, name string) error {
	return c.sendForm(ctx, http.MethodPost, pathutil.JoinURL(protocol.PathMkdir, dir),
		url.Values{protocol.FieldFolderName: {name}})
}

// Edit overwrites a file with content.
func (c *Client) Edit(ctx context.Context, p, content string) error {
	return c.sendForm(ctx, http.MethodPut, p, url.Values{protocol.FieldContent: {content}})
}

// Delete removes a file or directory.
func (c *Client) Delete(ctx context.Context, p string) error {
	_, err := retry.Do(ctx, retry.Once(), func(ctx context.Context) (struct{}, error) {
		resp, err := c.send(ctx, http.MethodDelete, p, nil, nil)
		if err != nil {
			return struct{}{}, err
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return struct{}{}, nil
	})
	return err
}
