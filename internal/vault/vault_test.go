package vault

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

const kvBody = `{
  "data": {
    "data": {"xano": "server-token"},
    "metadata": {"created_time": "2026-01-02T03:04:05.000000Z", "deletion_time": "", "destroyed": false, "version": 3}
  }
}`

func TestGetKV_ReadsAndCaches(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/secret/data/barkhaus" {
			http.NotFound(w, r)
			return
		}
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(kvBody))
	}))
	defer srv.Close()

	c, err := New(context.Background(), Options{Address: srv.URL, Token: "root"}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for i := 0; i < 3; i++ {
		got, err := c.GetKV(context.Background(), "secret/barkhaus", "xano", time.Minute)
		if err != nil {
			t.Fatalf("GetKV: %v", err)
		}
		if got != "server-token" {
			t.Fatalf("value = %q", got)
		}
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Fatalf("vault hits = %d, want 1", n)
	}
}

func TestGetKV_MissingKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(kvBody))
	}))
	defer srv.Close()

	c, err := New(context.Background(), Options{Address: srv.URL, Token: "root"}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.GetKV(context.Background(), "secret/barkhaus", "stripe", 0); err == nil {
		t.Fatalf("expected error for missing key")
	}
}

func TestGetKV_RejectsEmptyArgs(t *testing.T) {
	c := &Client{cache: map[string]cached{}}
	if _, err := c.GetKV(context.Background(), "", "k", 0); err == nil {
		t.Fatalf("expected error")
	}
}
