package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	pkgerrors "github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

const (
	defaultTimeout   = 15 * time.Second
	defaultCacheTTL  = 1 * time.Minute
	defaultUserAgent = "concrnt-console"
)

var tracer = otel.Tracer("client")

// Client is the only network boundary of the portal.
// A Client bound to a credential attaches it to every request.
type Client struct {
	client     *http.Client
	cache      *cache.Cache
	cacheTTL   time.Duration
	timeout    time.Duration
	userAgent  string
	baseURL    string
	credential string
}

type Options struct {
	Scheme    string
	Timeout   time.Duration
	CacheTTL  time.Duration
	UserAgent string
	Transport http.RoundTripper
}

type roundTripper struct {
	base      http.RoundTripper
	userAgent string
}

func (t *roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", t.userAgent)
	otel.GetTextMapPropagator().Inject(req.Context(), propagation.HeaderCarrier(req.Header))
	return t.base.RoundTrip(req)
}

// New builds a client for the host serving the portal's backend.
// host may be a bare FQDN or a full base URL.
func New(host string, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.CacheTTL == 0 {
		opts.CacheTTL = defaultCacheTTL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.Transport == nil {
		opts.Transport = http.DefaultTransport
	}
	if opts.Scheme == "" {
		opts.Scheme = "https"
	}

	baseURL := strings.TrimRight(host, "/")
	if !strings.Contains(baseURL, "://") {
		baseURL = opts.Scheme + "://" + baseURL
	}

	slog.Info(
		"initialize backend client",
		slog.String("baseURL", baseURL),
		slog.String("module", "client"),
	)

	return &Client{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &roundTripper{
				base:      opts.Transport,
				userAgent: opts.UserAgent,
			},
		},
		cache:     cache.New(opts.CacheTTL, 2*opts.CacheTTL),
		cacheTTL:  opts.CacheTTL,
		timeout:   opts.Timeout,
		userAgent: opts.UserAgent,
		baseURL:   baseURL,
	}
}

// WithCredential returns a copy that authenticates as the given bearer.
// The copy shares the connection pool and the document cache.
func (c *Client) WithCredential(credential string) *Client {
	cp := *c
	cp.credential = credential
	return &cp
}

type envelope struct {
	Status  string          `json:"status"`
	Content json.RawMessage `json:"content"`
}

// decodeContent accepts both `{"status":"ok","content":...}` and bare bodies.
func decodeContent(data []byte, response any) error {
	var env envelope
	if err := json.Unmarshal(data, &env); err == nil && env.Status != "" && len(env.Content) > 0 {
		data = env.Content
	}
	return json.Unmarshal(data, response)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any, header http.Header) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "failed to encode request body")
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to create request")
	}

	for k, values := range header {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.credential != "" {
		req.Header.Set("Authorization", "Bearer "+c.credential)
	}

	return req, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// send performs the request and returns the body of a 2xx answer.
func (c *Client) send(ctx context.Context, method, path string, body any, header http.Header) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.newRequest(ctx, method, path, body, header)
	if err != nil {
		return nil, err
	}

	slog.DebugContext(
		ctx, "backend request",
		slog.String("method", method),
		slog.String("path", path),
		slog.String("module", "client"),
	)

	resp, err := c.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, pkgerrors.Wrap(ErrTimeout, method+" "+path)
		}
		return nil, pkgerrors.Wrap(err, "failed to perform request")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(err) {
			return nil, pkgerrors.Wrap(ErrTimeout, method+" "+path)
		}
		return nil, pkgerrors.Wrap(err, "failed to read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &StatusError{Code: resp.StatusCode}
		var errBody struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &errBody) == nil {
			statusErr.Message = errBody.Error
		}
		slog.InfoContext(
			ctx, "backend returned error",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
			slog.String("module", "client"),
		)
		return nil, statusErr
	}

	return data, nil
}

// HttpRequest sends body as JSON and decodes the answer into response.
func (c *Client) HttpRequest(ctx context.Context, method, path string, body any, response any) error {
	data, err := c.send(ctx, method, path, body, nil)
	if err != nil {
		return err
	}
	if response == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	err = decodeContent(data, response)
	if err != nil {
		return pkgerrors.Wrap(err, "failed to decode response")
	}
	return nil
}

// HttpRequestText fetches a plain text document.
func (c *Client) HttpRequestText(ctx context.Context, method, path string) (string, error) {
	data, err := c.send(ctx, method, path, nil, nil)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (c *Client) cached(key string, fetch func() (any, error)) (any, error) {
	if c.cacheTTL > 0 {
		if x, found := c.cache.Get(key); found {
			return x, nil
		}
	}
	v, err := fetch()
	if err != nil {
		return nil, err
	}
	if c.cacheTTL > 0 {
		c.cache.Set(key, v, cache.DefaultExpiration)
	}
	return v, nil
}
