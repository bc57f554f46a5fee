package news

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestProxyForwardsQueryAndKey(t *testing.T) {
	var gotQuery, gotKey string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotKey = r.URL.Query().Get(APIKeyParam)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"status":"ok","articles":[]}`)
	}))
	defer upstream.Close()

	p, err := NewProxy(upstream.URL+"/v2/everything", "k-123", time.Second, nil)
	if err != nil {
		t.Fatal(err)
	}
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/news?q=succession+law&apiKey=client-supplied", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if gotQuery != "succession law" || gotKey != "k-123" {
		t.Errorf("upstream saw q=%q key=%q", gotQuery, gotKey)
	}
	if rec.Body.String() != `{"status":"ok","articles":[]}` {
		t.Errorf("body = %q", rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
}

func TestProxyReachesHTTPSUpstream(t *testing.T) {
	var gotQuery string
	upstream := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"status":"ok","articles":[]}`)
	}))
	defer upstream.Close()

	roots := x509.NewCertPool()
	roots.AddCert(upstream.Certificate())
	p, err := NewProxy(upstream.URL+"/v2/everything", "k", time.Second, nil, WithTLSConfig(&tls.Config{RootCAs: roots}))
	if err != nil {
		t.Fatal(err)
	}
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/news?q=ngo", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if gotQuery != "ngo" {
		t.Errorf("upstream saw q=%q", gotQuery)
	}
}

func TestProxyPassesUpstreamErrorThrough(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"status":"error","code":"rateLimited"}`)
	}))
	defer upstream.Close()

	p, err := NewProxy(upstream.URL, "", 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/news?q=x", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", rec.Code)
	}
	if rec.Body.String() != `{"status":"error","code":"rateLimited"}` {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestProxyUnreachableUpstream(t *testing.T) {
	upstream := httptest.NewServer(http.NotFoundHandler())
	addr := upstream.URL
	upstream.Close()

	p, err := NewProxy(addr, "", time.Second, nil)
	if err != nil {
		t.Fatal(err)
	}
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/news", nil))
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body["error"] == "" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestProxyNotConfigured(t *testing.T) {
	p, err := NewProxy("", "", 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/news", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestTargetURLKeepsUpstreamQuery(t *testing.T) {
	p := &Proxy{upstream: "https://news.example/v2/everything?language=en", apiKey: "k"}
	got, err := p.targetURL(map[string][]string{"q": {"ngo"}})
	if err != nil {
		t.Fatal(err)
	}
	want := "https://news.example/v2/everything?apiKey=k&language=en&q=ngo"
	if got != want {
		t.Errorf("targetURL = %q, want %q", got, want)
	}
}
