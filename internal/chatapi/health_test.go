package chatapi

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"testing"
)

func TestHealth(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthz" {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, "ok")
	})
	if err := c.Health(context.Background()); err != nil {
		t.Fatalf("Health() error = %v", err)
	}
}

func TestNewsPassesQueryAndReturnsRawBody(t *testing.T) {
	var gotQuery string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"status":"ok","articles":[]}`)
	})
	raw, err := c.News(context.Background(), url.Values{"q": {"arbitration"}})
	if err != nil {
		t.Fatal(err)
	}
	if gotQuery != "q=arbitration" {
		t.Errorf("query = %q", gotQuery)
	}
	if string(raw) != `{"status":"ok","articles":[]}` {
		t.Errorf("body = %s", raw)
	}
}

func TestNewsUpstreamErrorIsHTTPError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, `{"error":"news upstream unavailable"}`)
	})
	_, err := c.News(context.Background(), nil)
	if StatusCode(err) != http.StatusBadGateway {
		t.Fatalf("err = %v, want 502", err)
	}
}
