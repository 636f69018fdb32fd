package crewboardsdk_test

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"crewboard/internal/activity"
	"crewboard/internal/config"
	"crewboard/internal/db"
	"crewboard/internal/engine"
	"crewboard/internal/migrate"
	"crewboard/internal/server"
	crewboardsdk "crewboard/sdk/go"
)

const testProject = "crewboard"

func newBoardServer(t *testing.T) string {
	t.Helper()
	workspace := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn, config.Default(testProject))
	if _, err := e.InitProject(context.Background(), testProject, "", "tester"); err != nil {
		t.Fatalf("init project: %v", err)
	}
	alog := activity.NewLog(db.ActivityLogPath(workspace))
	handler, err := server.New(server.Config{Engine: e, BasePath: "/v0", ActivityLog: alog})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	t.Cleanup(func() {
		srv.Shutdown(context.Background())
		ln.Close()
	})
	return "http://" + ln.Addr().String()
}

// Round trip against the live API, so response-shape drift between server
// and client shows up here instead of in a consumer.
func TestEventsRoundTrip(t *testing.T) {
	url := newBoardServer(t)
	client := crewboardsdk.New(url, testProject, "agent-a")
	ctx := context.Background()

	it, err := client.CreateItem(ctx, "wired through the client", "feature", nil)
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	if it.StageID != "briefings" {
		t.Fatalf("stage = %s, want briefings", it.StageID)
	}

	events, err := client.Events(ctx, 10)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(events) == 0 {
		t.Fatal("expected audit events after item creation")
	}
	if events[0].Type == "" || events[0].TS == "" {
		t.Fatalf("event fields missing: %+v", events[0])
	}
}

func TestSingleClientErrorIsNotExhaustedRetries(t *testing.T) {
	url := newBoardServer(t)
	client := crewboardsdk.New(url, testProject, "agent-a")

	_, err := client.GetItem(context.Background(), "no-such-item")
	if err == nil {
		t.Fatal("expected error for missing item")
	}
	if errors.Is(err, crewboardsdk.ErrRetriesExhausted) {
		t.Fatalf("single 404 labeled as exhausted retries: %v", err)
	}
	var apiErr *crewboardsdk.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
		t.Fatalf("err = %v, want 404 APIError", err)
	}
	if apiErr.Code != "not_found" {
		t.Fatalf("code = %s, want not_found", apiErr.Code)
	}
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":"bad_request","message":"nope"}}`))
	}))
	defer ts.Close()
	client := crewboardsdk.New(ts.URL, "p", "agent-a")

	_, err := client.GetItem(context.Background(), "x")
	var apiErr *crewboardsdk.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "bad_request" {
		t.Fatalf("err = %v, want bad_request APIError", err)
	}
	if errors.Is(err, crewboardsdk.ErrRetriesExhausted) {
		t.Fatalf("4xx must not be labeled exhausted: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1 (no retries on 4xx)", calls.Load())
	}
}

func TestServerErrorsExhaustRetries(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"code":"internal_error","message":"boom"}}`))
	}))
	defer ts.Close()
	client := crewboardsdk.New(ts.URL, "p", "agent-a")
	client.MaxRetries = 1

	_, err := client.GetItem(context.Background(), "x")
	if !errors.Is(err, crewboardsdk.ErrRetriesExhausted) {
		t.Fatalf("err = %v, want ErrRetriesExhausted", err)
	}
	var apiErr *crewboardsdk.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("err = %v, want wrapped 500 APIError", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("calls = %d, want 2 (initial + one retry)", calls.Load())
	}
}
