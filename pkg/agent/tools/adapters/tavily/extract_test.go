package tavily

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientExtract_Success(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/extract" {
			t.Fatalf("path=%q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[{"url":"https://e.com/page","title":"Page","raw_content":"BODY"}]}`))
	}))
	defer ts.Close()

	c := NewClient("key", ts.URL, ts.Client())
	out, err := c.Extract(context.Background(), "https://e.com/page")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if out.Content != "BODY" || out.Title != "Page" {
		t.Fatalf("out=%+v", out)
	}
}

func TestClientExtract_FailedResult(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[],"failed_results":[{"url":"https://e.com","error":"blocked"}]}`))
	}))
	defer ts.Close()

	c := NewClient("key", ts.URL, ts.Client())
	if _, err := c.Extract(context.Background(), "https://e.com"); err == nil {
		t.Fatal("expected error")
	}
}

func TestClientExtract_EmptyURL(t *testing.T) {
	c := NewClient("key", "", nil)
	if _, err := c.Extract(context.Background(), "  "); err == nil {
		t.Fatal("expected error")
	}
}
