// Package bot implements the event-driven core: dispatch, pull-request
// synchronization, sha lookup, status reporting and triage evaluation.
package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/go-github/v66/github"

	"github.com/Toxicable/github-robot/internal/gh"
	"github.com/Toxicable/github-robot/internal/logging"
	"github.com/Toxicable/github-robot/internal/store"
)

var errNoGraphQL = errors.New("graphql client not configured")

// PullRequestFetcher reads the canonical pull-request representation from
// the platform.
type PullRequestFetcher interface {
	FetchPullRequest(ctx context.Context, owner, repo string, number int) (store.Document, error)
}

// StatusSetter posts one commit status per call.
type StatusSetter interface {
	Set(ctx context.Context, owner, repo, sha string, state gh.StatusState, description, statusContext string) error
}

// Task owns the bot's persisted state and its outbound GitHub surface.
// It is the sole writer of the pullRequests and repositories collections.
type Task struct {
	store    *store.Store
	fetcher  PullRequestFetcher
	reporter StatusSetter
	graphql  *gh.GraphQLClient
	logger   logging.Logger
}

type TaskOption func(*Task)

// WithFetcher overrides the remote pull-request fetcher.
func WithFetcher(f PullRequestFetcher) TaskOption {
	return func(t *Task) { t.fetcher = f }
}

// WithReporter overrides the status reporter.
func WithReporter(r StatusSetter) TaskOption {
	return func(t *Task) { t.reporter = r }
}

func NewTask(st *store.Store, client *gh.Client, logger logging.Logger, opts ...TaskOption) *Task {
	t := &Task{store: st, logger: logger.WithName("task")}
	if client != nil {
		t.fetcher = &restFetcher{client: client.REST}
		t.reporter = gh.NewStatusReporter(client.REST, logger)
		t.graphql = client.GraphQL
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Store exposes the task's collections to handlers.
func (t *Task) Store() *store.Store { return t.store }

// UpdatePR synchronizes one pull request into the store and returns the
// full merged document. When newData is nil the canonical representation
// is fetched from GitHub first. The write is a field-level merge keyed by
// the stringified pull-request id; fields absent from newData keep their
// previously stored values. Fetch and write failures are logged and
// re-raised; the record is not durably synchronized on failure.
func (t *Task) UpdatePR(ctx context.Context, owner, repo string, number int, repositoryID int64, newData store.Document) (store.Document, error) {
	if newData == nil {
		fetched, err := t.fetcher.FetchPullRequest(ctx, owner, repo, number)
		if err != nil {
			fe := &gh.FetchError{Owner: owner, Repo: repo, Number: number, Err: err}
			t.logger.Error(fe, "pull request fetch failed")
			return nil, fe
		}
		newData = fetched
	}

	composed := make(store.Document, len(newData)+1)
	for k, v := range newData {
		composed[k] = v
	}
	composed["repository"] = map[string]any{"owner": owner, "name": repo, "id": repositoryID}

	key := documentKey(composed["id"])
	if key == "" {
		return nil, fmt.Errorf("pull request %s/%s#%d has no id", owner, repo, number)
	}

	if err := t.store.PullRequests.MergeSet(ctx, key, composed); err != nil {
		pe := &PersistenceError{Collection: "pullRequests", Key: key, Err: err}
		t.logger.Error(pe, "pull request merge write failed")
		return nil, pe
	}

	merged, err := t.store.PullRequests.Get(ctx, key)
	if err != nil {
		pe := &PersistenceError{Collection: "pullRequests", Key: key, Err: err}
		t.logger.Error(pe, "pull request read-back failed")
		return nil, pe
	}
	return merged, nil
}

// FindPRBySHA looks up a previously synchronized pull request by its head
// sha and owning repository id. Absence is (nil, nil), never an error. A
// record only resolves under its latest sha; once superseded the old sha
// no longer matches. Multiple matches are a data-integrity anomaly: logged,
// recorded in the admin collection, last one returned.
func (t *Task) FindPRBySHA(ctx context.Context, sha string, repositoryID int64) (store.Document, error) {
	matches, err := t.store.PullRequests.Query(ctx, store.Filter{
		"head.sha":      sha,
		"repository.id": strconv.FormatInt(repositoryID, 10),
	})
	if err != nil {
		return nil, fmt.Errorf("querying pullRequests by sha: %w", err)
	}
	if len(matches) == 0 {
		return nil, nil
	}
	if len(matches) > 1 {
		t.recordShaAnomaly(ctx, sha, repositoryID, matches)
	}
	return matches[len(matches)-1].Doc, nil
}

func (t *Task) recordShaAnomaly(ctx context.Context, sha string, repositoryID int64, matches []store.Keyed) {
	keys := make([]string, 0, len(matches))
	for _, m := range matches {
		keys = append(keys, m.Key)
	}
	t.logger.Error(nil, "multiple pull requests share a head sha",
		"sha", sha, "repositoryId", repositoryID, "keys", keys)
	anomaly := store.Document{
		sha: map[string]any{
			"repositoryId": repositoryID,
			"keys":         keys,
			"observedAt":   time.Now().UTC().Format(time.RFC3339),
		},
	}
	if err := t.store.Admin.MergeSet(ctx, "shaAnomalies", anomaly); err != nil {
		t.logger.Error(err, "recording sha anomaly failed")
	}
}

// SetStatus posts one commit status keyed by the triggering event, with
// the sha taken verbatim from the event payload.
func (t *Task) SetStatus(ctx context.Context, evt *Event, state gh.StatusState, description, statusContext string) error {
	sha := evt.HeadSHA()
	if sha == "" {
		return &gh.ReportError{
			Owner: evt.Owner(), Repo: evt.Repo(), Context: statusContext,
			Err: fmt.Errorf("event %s carries no head sha", evt.Name),
		}
	}
	return t.reporter.Set(ctx, evt.Owner(), evt.Repo(), sha, state, description, statusContext)
}

// NodeID resolves the graph node id for a resource URL.
func (t *Task) NodeID(ctx context.Context, resourceURL string) (string, error) {
	if t.graphql == nil {
		return "", &gh.QueryError{Operation: "resolveNodeID", Err: errNoGraphQL}
	}
	return t.graphql.ResolveNodeID(ctx, resourceURL)
}

// QueryPR runs a pull-request graph query with a caller-supplied selection.
func (t *Task) QueryPR(ctx context.Context, owner, repo string, number int, selection []gh.Selection) (json.RawMessage, error) {
	if t.graphql == nil {
		return nil, &gh.QueryError{Operation: "pullRequest", Err: errNoGraphQL}
	}
	return t.graphql.PullRequest(ctx, owner, repo, number, selection)
}

// RecordRepository mirrors the event's repository identity into the
// repositories collection.
func (t *Task) RecordRepository(ctx context.Context, evt *Event) error {
	id := evt.RepoID()
	if id == 0 {
		return nil
	}
	key := strconv.FormatInt(id, 10)
	doc := store.Document{
		"id":    id,
		"owner": evt.Owner(),
		"name":  evt.Repo(),
	}
	if err := t.store.Repositories.MergeSet(ctx, key, doc); err != nil {
		pe := &PersistenceError{Collection: "repositories", Key: key, Err: err}
		t.logger.Error(pe, "repository merge write failed")
		return pe
	}
	return nil
}

// restFetcher fetches pull requests over the REST API.
type restFetcher struct {
	client *github.Client
}

func (f *restFetcher) FetchPullRequest(ctx context.Context, owner, repo string, number int) (store.Document, error) {
	pr, _, err := f.client.PullRequests.Get(ctx, owner, repo, number)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(pr)
	if err != nil {
		return nil, err
	}
	return store.DecodeDocument(raw)
}

// documentKey stringifies a platform-assigned id for use as a store key.
func documentKey(id any) string {
	switch v := id.(type) {
	case json.Number:
		return v.String()
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}
