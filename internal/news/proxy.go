package news

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/cloudwego/hertz/pkg/app/client"
	"github.com/cloudwego/hertz/pkg/common/config"
	"github.com/cloudwego/hertz/pkg/network/standard"
	"github.com/cloudwego/hertz/pkg/protocol"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"go.uber.org/zap"
)

// APIKeyParam is the query parameter carrying the upstream API key.
const APIKeyParam = "apiKey"

// Proxy forwards /api/news queries to a third-party news API and passes
// its status and body back unchanged.
type Proxy struct {
	upstream string
	apiKey   string
	timeout  time.Duration
	client   *client.Client
	logger   *zap.Logger
}

// ProxyOption configures a Proxy.
type ProxyOption func(*proxyOptions)

type proxyOptions struct {
	tlsConfig *tls.Config
}

// WithTLSConfig sets the TLS configuration for an https upstream.
func WithTLSConfig(cfg *tls.Config) ProxyOption {
	return func(o *proxyOptions) {
		o.tlsConfig = cfg
	}
}

// NewProxy creates a proxy for upstream. A zero timeout leaves upstream
// calls bounded only by the incoming request's context.
func NewProxy(upstream, apiKey string, timeout time.Duration, logger *zap.Logger, opts ...ProxyOption) (*Proxy, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var o proxyOptions
	for _, opt := range opts {
		opt(&o)
	}
	// netpoll cannot dial TLS and the usual upstreams are https.
	clientOpts := []config.ClientOption{
		client.WithDialTimeout(10 * time.Second),
		client.WithDialer(standard.NewDialer()),
	}
	if o.tlsConfig != nil {
		clientOpts = append(clientOpts, client.WithTLSConfig(o.tlsConfig))
	}
	c, err := client.NewClient(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create news client: %w", err)
	}
	return &Proxy{
		upstream: upstream,
		apiKey:   apiKey,
		timeout:  timeout,
		client:   c,
		logger:   logger,
	}, nil
}

func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if p.upstream == "" {
		writeError(w, http.StatusServiceUnavailable, "news upstream not configured")
		return
	}
	target, err := p.targetURL(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "invalid news upstream")
		return
	}

	req := &protocol.Request{}
	resp := &protocol.Response{}
	req.SetMethod(consts.MethodGet)
	req.SetRequestURI(target)
	req.Header.Set("Accept", "application/json")

	if err := p.do(r.Context(), req, resp); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		p.logger.Warn("news upstream failed", zap.String("upstream", p.upstream), zap.Error(err))
		writeError(w, http.StatusBadGateway, "news upstream unavailable: "+err.Error())
		return
	}

	if ct := string(resp.Header.ContentType()); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(resp.StatusCode())
	_, _ = w.Write(resp.Body())
}

// targetURL merges the incoming query into the upstream URL and adds the key.
func (p *Proxy) targetURL(query url.Values) (string, error) {
	u, err := url.Parse(p.upstream)
	if err != nil {
		return "", err
	}
	merged := u.Query()
	for k, vs := range query {
		if k == APIKeyParam {
			continue
		}
		merged[k] = vs
	}
	if p.apiKey != "" {
		merged.Set(APIKeyParam, p.apiKey)
	}
	u.RawQuery = merged.Encode()
	return u.String(), nil
}

func (p *Proxy) do(ctx context.Context, req *protocol.Request, resp *protocol.Response) error {
	done := make(chan error, 1)
	go func() {
		if p.timeout > 0 {
			done <- p.client.DoTimeout(ctx, req, resp, p.timeout)
			return
		}
		done <- p.client.Do(ctx, req, resp)
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
