package bot

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"

	"github.com/Toxicable/github-robot/internal/config"
	"github.com/Toxicable/github-robot/internal/gh"
	"github.com/Toxicable/github-robot/internal/logging"
	"github.com/Toxicable/github-robot/internal/store"
)

func newTestTriageTask(st *store.Store, reporter *stubReporter) (*TriageTask, *Dispatcher) {
	logger := logging.New(logr.Discard())
	task := NewTask(st, nil, logger, WithReporter(reporter))
	triage := NewTriageTask(task, nil, "ci/angular: triage", logger).
		WithConfigLoader(func(ctx context.Context, owner, repo string) (config.TriageConfig, error) {
			return config.DefaultTriageConfig(), nil
		})
	d := NewDispatcher(logger)
	triage.Register(d)
	return triage, d
}

func TestPullRequestEventSyncsAndReportsStatus(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	reporter := &stubReporter{}
	_, d := newTestTriageTask(st, reporter)

	raw := []byte(`{
		"action": "labeled",
		"number": 7,
		"repository": {"id": 42, "name": "angular", "owner": {"login": "angular"}},
		"pull_request": {
			"id": 5,
			"number": 7,
			"head": {"sha": "abc123"},
			"labels": [{"name": "comp: aio"}, {"name": "type: bug"}]
		}
	}`)
	if err := d.Dispatch(ctx, NewEvent("pull_request", "d-1", raw)); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	record, err := st.PullRequests.Get(ctx, "5")
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if record == nil {
		t.Fatalf("expected synchronized pull request")
	}

	if len(reporter.calls) != 1 {
		t.Fatalf("expected one status post, got %d", len(reporter.calls))
	}
	call := reporter.calls[0]
	if call.state != gh.StatusSuccess || call.sha != "abc123" {
		t.Fatalf("unexpected status %+v", call)
	}

	repoDoc, err := st.Repositories.Get(ctx, "42")
	if err != nil || repoDoc == nil {
		t.Fatalf("expected repository record, got %v (%v)", repoDoc, err)
	}
}

func TestPullRequestEventUntriagedReportsFailure(t *testing.T) {
	ctx := context.Background()
	reporter := &stubReporter{}
	_, d := newTestTriageTask(store.NewMemoryStore(), reporter)

	raw := []byte(`{
		"action": "labeled",
		"number": 7,
		"repository": {"id": 42, "name": "angular", "owner": {"login": "angular"}},
		"pull_request": {
			"id": 5,
			"number": 7,
			"head": {"sha": "abc123"},
			"labels": [{"name": "comp: common"}, {"name": "type: bug"}]
		}
	}`)
	if err := d.Dispatch(ctx, NewEvent("pull_request", "d-2", raw)); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(reporter.calls) != 1 || reporter.calls[0].state != gh.StatusFailure {
		t.Fatalf("expected failure status, got %+v", reporter.calls)
	}
}

func TestCheckRunEventRecoversRecordBySHA(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	reporter := &stubReporter{}
	triage, d := newTestTriageTask(st, reporter)

	// Synchronize first so the sha index can find the record.
	_, err := triage.task.UpdatePR(ctx, "angular", "angular", 7, 42, store.Document{
		"id":     5,
		"head":   map[string]any{"sha": "abc123"},
		"labels": []any{map[string]any{"name": "comp: aio"}, map[string]any{"name": "type: bug"}},
	})
	if err != nil {
		t.Fatalf("seed sync: %v", err)
	}

	raw := []byte(`{
		"action": "created",
		"repository": {"id": 42, "name": "angular", "owner": {"login": "angular"}},
		"check_run": {"head_sha": "abc123"}
	}`)
	if err := d.Dispatch(ctx, NewEvent("check_run", "d-3", raw)); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(reporter.calls) != 1 {
		t.Fatalf("expected one status post, got %d", len(reporter.calls))
	}
	if reporter.calls[0].sha != "abc123" || reporter.calls[0].state != gh.StatusSuccess {
		t.Fatalf("unexpected status %+v", reporter.calls[0])
	}
}

func TestCheckRunEventUnknownSHAIsNoOp(t *testing.T) {
	reporter := &stubReporter{}
	_, d := newTestTriageTask(store.NewMemoryStore(), reporter)

	raw := []byte(`{
		"action": "created",
		"repository": {"id": 42, "name": "angular", "owner": {"login": "angular"}},
		"check_run": {"head_sha": "unseen"}
	}`)
	if err := d.Dispatch(context.Background(), NewEvent("check_run", "d-4", raw)); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(reporter.calls) != 0 {
		t.Fatalf("expected no status post for unknown sha, got %+v", reporter.calls)
	}
}

func TestIssueEventRecordsTriageState(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	reporter := &stubReporter{}
	_, d := newTestTriageTask(st, reporter)

	raw := []byte(`{
		"action": "labeled",
		"repository": {"id": 42, "name": "angular", "owner": {"login": "angular"}},
		"issue": {
			"number": 33,
			"html_url": "https://github.com/angular/angular/issues/33",
			"labels": [{"name": "comp: common/http"}, {"name": "type: bug"}]
		}
	}`)
	if err := d.Dispatch(ctx, NewEvent("issues", "d-5", raw)); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	state, err := st.Admin.Get(ctx, "issueTriage")
	if err != nil {
		t.Fatalf("admin get: %v", err)
	}
	entry, ok := state["angular/angular#33"].(map[string]any)
	if !ok {
		t.Fatalf("expected issue triage entry, got %v", state)
	}
	if entry["triaged"] != true {
		t.Fatalf("expected triaged issue, got %v", entry)
	}
}

func TestCheckRunEventLogsConfigFailureAndUsesDefaults(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	reporter := &stubReporter{}

	var logged []string
	logger := logging.New(funcr.New(func(prefix, args string) {
		logged = append(logged, args)
	}, funcr.Options{}))

	task := NewTask(st, nil, logger, WithReporter(reporter))
	triage := NewTriageTask(task, nil, "ci/angular: triage", logger).
		WithConfigLoader(func(ctx context.Context, owner, repo string) (config.TriageConfig, error) {
			return config.TriageConfig{}, errors.New("contents api unavailable")
		})
	d := NewDispatcher(logger)
	triage.Register(d)

	_, err := task.UpdatePR(ctx, "angular", "angular", 7, 42, store.Document{
		"id":     5,
		"head":   map[string]any{"sha": "abc123"},
		"labels": []any{map[string]any{"name": "comp: aio"}, map[string]any{"name": "type: bug"}},
	})
	if err != nil {
		t.Fatalf("seed sync: %v", err)
	}

	raw := []byte(`{
		"action": "created",
		"repository": {"id": 42, "name": "angular", "owner": {"login": "angular"}},
		"check_run": {"head_sha": "abc123"}
	}`)
	if err := d.Dispatch(ctx, NewEvent("check_run", "d-6", raw)); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	// The defaults still apply, so the status is posted.
	if len(reporter.calls) != 1 || reporter.calls[0].state != gh.StatusSuccess {
		t.Fatalf("expected success status from defaults, got %+v", reporter.calls)
	}
	found := false
	for _, line := range logged {
		if strings.Contains(line, "repo triage config unreadable") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected config failure to be logged, got %v", logged)
	}
}
