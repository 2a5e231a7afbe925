package httputil

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matzehuels/webgraph/pkg/cache"
)

func TestSourceURL(t *testing.T) {
	score := 0.5
	tests := []struct {
		name     string
		template string
		key      string
		score    *float64
		want     string
	}{
		{"key only", "http://kb/nodes/{key}", "a", nil, "http://kb/nodes/a"},
		{"escaped key", "http://kb/nodes/{key}", "a b/c", nil, "http://kb/nodes/a%20b%2Fc"},
		{"score", "http://kb/{key}?score={score}", "a", &score, "http://kb/a?score=0.5"},
		{"missing score", "http://kb/{key}?score={score}", "a", nil, "http://kb/a?score="},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewSource(tt.template).URL(tt.key, tt.score); got != tt.want {
				t.Errorf("URL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFetchCachesResponses(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/nodes/a" {
			t.Errorf("path = %s, want /nodes/a", r.URL.Path)
		}
		w.Write([]byte(`{"header":"Alpha","content":"first node","footer":"kb"}`))
	}))
	defer srv.Close()

	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	src := NewSource(srv.URL+"/nodes/{key}", WithCache(fc, time.Hour))

	for range 2 {
		box, err := src.Fetch(context.Background(), "a", nil)
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if box.Header != "Alpha" || box.Content != "first node" || box.Footer != "kb" {
			t.Errorf("Fetch() = %+v", box)
		}
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("server hits = %d, want 1", n)
	}
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"header":"ok"}`))
	}))
	defer srv.Close()

	src := NewSource(srv.URL+"/{key}", WithRetry(3, time.Millisecond))
	box, err := src.Fetch(context.Background(), "a", nil)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if box.Header != "ok" {
		t.Errorf("Header = %q, want ok", box.Header)
	}
	if n := hits.Load(); n != 3 {
		t.Errorf("server hits = %d, want 3", n)
	}
}

func TestFetchClientErrorIsFinal(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := NewSource(srv.URL+"/{key}", WithRetry(3, time.Millisecond)).Fetch(context.Background(), "a", nil)
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusNotFound {
		t.Fatalf("Fetch() error = %v, want 404 StatusError", err)
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("server hits = %d, want 1", n)
	}
}

func TestFetchInvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	if _, err := NewSource(srv.URL + "/{key}").Fetch(context.Background(), "a", nil); err == nil {
		t.Error("Fetch() error = nil, want decode error")
	}
}

func TestProviders(t *testing.T) {
	if got := Providers(nil); got != nil {
		t.Errorf("Providers(nil) = %v, want nil", got)
	}
	got := Providers(map[string]string{"person": "http://kb/{key}", "org": "http://kb/org/{key}"})
	if len(got) != 2 || got["person"] == nil || got["org"] == nil {
		t.Errorf("Providers() = %v, want person and org", got)
	}
}
