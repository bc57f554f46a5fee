package chatapi

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/hertz/pkg/app/client"
	"github.com/cloudwego/hertz/pkg/common/config"
	"github.com/cloudwego/hertz/pkg/network/standard"
	"github.com/cloudwego/hertz/pkg/protocol"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-Id"

// TokenSource supplies the bearer token for each request.
type TokenSource interface {
	Token() string
}

// StaticToken is a fixed TokenSource.
type StaticToken string

// Token implements TokenSource.
func (t StaticToken) Token() string { return string(t) }

// Client is a typed client for the messaging REST API.
type Client struct {
	baseURL    string
	httpClient *client.Client
	timeout    time.Duration
	tlsConfig  *tls.Config
	logger     *zap.Logger

	mu     sync.RWMutex
	tokens TokenSource
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom Hertz client.
func WithHTTPClient(httpClient *client.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTLSConfig sets the TLS configuration for https backends, e.g. a
// private root CA. Ignored when WithHTTPClient is also given.
func WithTLSConfig(cfg *tls.Config) Option {
	return func(c *Client) {
		c.tlsConfig = cfg
	}
}

// WithToken sets a fixed bearer token.
func WithToken(token string) Option {
	return func(c *Client) {
		c.tokens = StaticToken(token)
	}
}

// WithTokenSource sets a dynamic bearer token source such as a session.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) {
		c.tokens = ts
	}
}

// WithTimeout bounds each request. Zero disables the client-side bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a client for baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.httpClient == nil {
		httpClient, err := NewHTTPClient(c.tlsConfig)
		if err != nil {
			return nil, fmt.Errorf("create http client: %w", err)
		}
		c.httpClient = httpClient
	}
	return c, nil
}

// NewHTTPClient creates a Hertz client that speaks both http and https.
// The standard dialer is used because the netpoll one has no TLS support.
func NewHTTPClient(cfg *tls.Config) (*client.Client, error) {
	opts := []config.ClientOption{
		client.WithDialTimeout(10 * time.Second),
		client.WithDialer(standard.NewDialer()),
	}
	if cfg != nil {
		opts = append(opts, client.WithTLSConfig(cfg))
	}
	return client.NewClient(opts...)
}

// SetTokenSource swaps the token source, e.g. after login.
func (c *Client) SetTokenSource(ts TokenSource) {
	c.mu.Lock()
	c.tokens = ts
	c.mu.Unlock()
}

func (c *Client) token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.tokens == nil {
		return ""
	}
	return c.tokens.Token()
}

// BaseURL returns the backend root.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) get(ctx context.Context, path string, query url.Values, result any) error {
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	return c.request(ctx, consts.MethodGet, path, nil, result)
}

func (c *Client) post(ctx context.Context, path string, body any, result any) error {
	return c.request(ctx, consts.MethodPost, path, body, result)
}

// request performs one round trip. It returns as soon as ctx is done; a
// response arriving afterwards is discarded.
func (c *Client) request(ctx context.Context, method, path string, body any, result any) error {
	requestID := uuid.NewString()
	op := method + " " + path

	req := &protocol.Request{}
	resp := &protocol.Response{}
	req.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)
	if token := c.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.SetBody(payload)
	}

	start := time.Now()
	if err := c.do(ctx, req, resp); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		c.logger.Warn("request failed", zap.String("op", op), zap.String("request_id", requestID), zap.Error(err))
		return &TransportError{Op: op, Err: err}
	}

	status := resp.StatusCode()
	c.logger.Debug("request done",
		zap.String("op", op),
		zap.String("request_id", requestID),
		zap.Int("status", status),
		zap.Duration("elapsed", time.Since(start)))

	if status < 200 || status > 299 {
		return &HTTPError{Status: status, Message: errorMessage(status, resp.Body()), RequestID: requestID}
	}
	if result == nil || len(resp.Body()) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), result); err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func (c *Client) do(ctx context.Context, req *protocol.Request, resp *protocol.Response) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() {
		if c.timeout > 0 {
			done <- c.httpClient.DoTimeout(ctx, req, resp, c.timeout)
			return
		}
		done <- c.httpClient.Do(ctx, req, resp)
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func errorMessage(status int, body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if len(body) > 0 && json.Unmarshal(body, &payload) == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return "unexpected status"
}
