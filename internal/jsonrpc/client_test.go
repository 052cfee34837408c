package jsonrpc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/kingrea/commonenv/internal/events"
)

type batchLog struct {
	mu      sync.Mutex
	batches [][]Request
}

func (l *batchLog) add(reqs []Request) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.batches = append(l.batches, reqs)
}

func (l *batchLog) all() [][]Request {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([][]Request(nil), l.batches...)
}

func newRPCServer(t *testing.T) (*httptest.Server, *batchLog) {
	t.Helper()
	log := &batchLog{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		var reqs []Request
		if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.add(reqs)
		var resps []Response
		for _, req := range reqs {
			switch req.Method {
			case "sum":
				total := 0.0
				for _, p := range req.Params {
					total += p.(float64)
				}
				raw, _ := json.Marshal(total)
				resps = append(resps, Response{JSONRPC: "2.0", ID: req.ID, Result: raw})
			case "fail":
				resps = append(resps, Response{JSONRPC: "2.0", ID: req.ID, Error: &Error{Code: -32000, Message: "nope"}})
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resps)
	}))
	t.Cleanup(srv.Close)
	return srv, log
}

func TestSendSettlesBatch(t *testing.T) {
	srv, batches := newRPCServer(t)
	client := NewClient().Init(srv.URL, []string{"sum", "fail", "silent"})

	sum, err := client.Append("sum", 1, 2, 3)
	if err != nil {
		t.Fatalf("append sum: %v", err)
	}
	fail, _ := client.Append("fail")
	silent, _ := client.Append("silent")
	if client.Pending() != 3 {
		t.Fatalf("pending = %d", client.Pending())
	}

	if err := client.Send(context.Background()); err != nil {
		t.Fatalf("send: %v", err)
	}
	if client.Pending() != 0 {
		t.Fatalf("expected a fresh batch after send")
	}
	if seen := batches.all(); len(seen) != 1 || len(seen[0]) != 3 {
		t.Fatalf("server saw %v", seen)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	var total float64
	if err := sum.Decode(ctx, &total); err != nil || total != 6 {
		t.Fatalf("sum = %v, %v", total, err)
	}
	var rpcErr *Error
	if _, err := fail.Wait(ctx); !errors.As(err, &rpcErr) || rpcErr.Code != -32000 {
		t.Fatalf("expected rpc error, got %v", err)
	}
	if _, err := silent.Wait(ctx); !errors.Is(err, ErrNoResponse) {
		t.Fatalf("expected missing response error, got %v", err)
	}
}

func TestAppendValidation(t *testing.T) {
	client := NewClient()
	if _, err := client.Append("sum"); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected not initialized, got %v", err)
	}
	if err := client.Send(context.Background()); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected not initialized on send, got %v", err)
	}
	client.Init("", []string{"sum"})
	if _, err := client.Append("drop_tables"); !errors.Is(err, ErrUnknownMethod) {
		t.Fatalf("expected unknown method, got %v", err)
	}
	call, err := client.Append("sum")
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := client.Send(context.Background()); !errors.Is(err, ErrNoURL) {
		t.Fatalf("expected missing url, got %v", err)
	}
	if _, err := call.Wait(context.Background()); !errors.Is(err, ErrNoURL) {
		t.Fatalf("expected call rejected with missing url, got %v", err)
	}
}

func TestBeforeSendRunsBeforePost(t *testing.T) {
	srv, batches := newRPCServer(t)
	emitter := events.NewEmitter()
	client := NewClient(WithEmitter(emitter)).Init("http://invalid.invalid", []string{"sum"})

	var seen *Client
	if err := client.BeforeSend(func(args ...any) error {
		seen = args[0].(*Client)
		seen.SetURL(srv.URL)
		_, err := seen.Append("sum", 4)
		return err
	}); err != nil {
		t.Fatalf("before send: %v", err)
	}

	if err := client.Send(context.Background()); err != nil {
		t.Fatalf("send: %v", err)
	}
	if seen != client {
		t.Fatalf("handler received %p, want %p", seen, client)
	}
	if got := batches.all(); len(got) != 1 || got[0][0].Method != "sum" {
		t.Fatalf("server saw %v", got)
	}
	if client.URL() != srv.URL {
		t.Fatalf("url = %q", client.URL())
	}
}

func TestHTTPFailureRejectsEveryCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient().Init(srv.URL, []string{"a", "b"})
	first, _ := client.Append("a")
	second, _ := client.Append("b")

	err := client.Send(context.Background())
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected status error, got %v", err)
	}
	for _, call := range []*Call{first, second} {
		if _, err := call.Wait(context.Background()); !errors.As(err, &statusErr) {
			t.Fatalf("call %s: expected status error, got %v", call.Method, err)
		}
	}
}

func TestTransportHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Session") != "abc" || r.Header.Get("Accept") != "application/json" {
			http.Error(w, "missing header", http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	transport := NewHTTPTransport(WithHeader("X-Session", "abc"), WithTimeout(time.Second))
	var out struct {
		OK bool `json:"ok"`
	}
	if err := transport.Do(context.Background(), srv.URL, map[string]int{"n": 1}, &out); err != nil {
		t.Fatalf("do: %v", err)
	}
	if !out.OK {
		t.Fatalf("expected ok response")
	}
}
