package gh

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/go-logr/logr"
	"github.com/google/go-github/v66/github"

	"github.com/Toxicable/github-robot/internal/logging"
)

func newTestReporter(t *testing.T, handler http.HandlerFunc) *StatusReporter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := github.NewClient(srv.Client())
	base, _ := url.Parse(srv.URL + "/")
	client.BaseURL = base
	return NewStatusReporter(client, logging.New(logr.Discard()))
}

func TestStatusReporterSendsOneCall(t *testing.T) {
	var calls int
	var gotPath string
	var gotBody map[string]any
	reporter := newTestReporter(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		gotPath = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": 1}`))
	})

	err := reporter.Set(context.Background(), "angular", "angular", "abc123",
		StatusFailure, "missing required triage labels", "ci/angular: triage")
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected exactly one outbound call, got %d", calls)
	}
	if gotPath != "/repos/angular/angular/statuses/abc123" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotBody["state"] != "failure" || gotBody["context"] != "ci/angular: triage" {
		t.Fatalf("unexpected body %v", gotBody)
	}
}

func TestStatusReporterWrapsFailure(t *testing.T) {
	reporter := newTestReporter(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message": "nope"}`, http.StatusUnprocessableEntity)
	})

	err := reporter.Set(context.Background(), "angular", "angular", "abc123",
		StatusSuccess, "ok", "ci/angular: triage")
	if !IsReportError(err) {
		t.Fatalf("expected ReportError, got %v", err)
	}
}
