package darkerdb

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"

	"go.uber.org/zap/zaptest"
)

func newTestServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32, chan *http.Request) {
	t.Helper()
	var hits atomic.Int32
	reqs := make(chan *http.Request, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		reqs <- r
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits, reqs
}

// go test -v --run TestGetMarketQuery
func TestGetMarketQuery(t *testing.T) {
	tests := []struct {
		name     string
		limit    int
		condense bool
		want     string
	}{
		{"defaults", DefaultLimit, DefaultCondense, "1"},
		{"not condensed", 5, false, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, hits, reqs := newTestServer(t, http.StatusOK, `{"body":[]}`)
			client := NewRESTClient(srv.URL, 0, zaptest.NewLogger(t))

			res := client.GetMarket(context.Background(), tt.limit, tt.condense)
			if !res.OK() {
				t.Fatalf("unexpected error: %v", res.Err)
			}
			if got := hits.Load(); got != 1 {
				t.Fatalf("requests = %d, want 1", got)
			}

			r := <-reqs
			if r.Method != http.MethodGet {
				t.Errorf("method = %s, want GET", r.Method)
			}
			if r.URL.Path != "/v1/market" {
				t.Errorf("path = %s, want /v1/market", r.URL.Path)
			}
			q := r.URL.Query()
			if q.Get("condense") != tt.want {
				t.Errorf("condense = %q, want %q", q.Get("condense"), tt.want)
			}
			if q.Get("limit") != strconv.Itoa(tt.limit) {
				t.Errorf("limit = %q, want %d", q.Get("limit"), tt.limit)
			}
		})
	}
}

func TestGetMarketReturnsBody(t *testing.T) {
	body := `{"body":[{"item":"Longsword","price":120}],"pagination":{"count":1}}`
	srv, _, _ := newTestServer(t, http.StatusOK, body)
	client := NewRESTClient(srv.URL, 0, zaptest.NewLogger(t))

	res := client.GetMarket(context.Background(), 1, true)
	if !res.OK() {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if string(res.Snapshot) != body {
		t.Errorf("snapshot = %s, want %s", res.Snapshot, body)
	}
}

func TestGetMarketEmptyDocumentIsSuccess(t *testing.T) {
	srv, _, _ := newTestServer(t, http.StatusOK, `{}`)
	client := NewRESTClient(srv.URL, 0, zaptest.NewLogger(t))

	res := client.GetMarket(context.Background(), DefaultLimit, DefaultCondense)
	if !res.OK() {
		t.Fatalf("empty document treated as failure: %v", res.Err)
	}
	if string(res.Snapshot) != `{}` {
		t.Errorf("snapshot = %s", res.Snapshot)
	}
}

func TestGetMarketHTTPError(t *testing.T) {
	srv, _, _ := newTestServer(t, http.StatusServiceUnavailable, `{"error":"down"}`)
	client := NewRESTClient(srv.URL, 0, zaptest.NewLogger(t))

	res := client.GetMarket(context.Background(), DefaultLimit, DefaultCondense)
	if res.OK() {
		t.Fatal("expected failure for 503")
	}
	var se *StatusError
	if !errors.As(res.Err, &se) || se.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("err = %v, want StatusError 503", res.Err)
	}
	if res.Snapshot != nil {
		t.Errorf("snapshot = %s, want nil", res.Snapshot)
	}
}

func TestGetMarketMalformedBody(t *testing.T) {
	srv, _, _ := newTestServer(t, http.StatusOK, `{"body": [`)
	client := NewRESTClient(srv.URL, 0, zaptest.NewLogger(t))

	res := client.GetMarket(context.Background(), DefaultLimit, DefaultCondense)
	if !errors.Is(res.Err, ErrMalformedBody) {
		t.Fatalf("err = %v, want ErrMalformedBody", res.Err)
	}
}

func TestGetMarketNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewRESTClient(url, 0, zaptest.NewLogger(t))
	res := client.GetMarket(context.Background(), DefaultLimit, DefaultCondense)
	if res.OK() {
		t.Fatal("expected failure for closed server")
	}
}

func TestMarketURL(t *testing.T) {
	got, err := marketURL(DefaultBaseURL, 100, true)
	if err != nil {
		t.Fatalf("marketURL: %v", err)
	}
	want := "https://api.darkerdb.com/v1/market?condense=1&limit=100"
	if got != want {
		t.Errorf("url = %s, want %s", got, want)
	}
}
