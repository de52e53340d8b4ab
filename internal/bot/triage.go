package bot

import (
	"context"
	"encoding/json"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/go-github/v66/github"
	"github.com/tidwall/gjson"

	"github.com/Toxicable/github-robot/internal/config"
	"github.com/Toxicable/github-robot/internal/gh"
	"github.com/Toxicable/github-robot/internal/logging"
	"github.com/Toxicable/github-robot/internal/store"
)

// IsTriaged reports whether the label set satisfies every required
// category of the taxonomy. A required category passes when at least one
// label carries its prefix with an acceptable value; categories not marked
// requireAll are informational only. Matching is exact-prefix and
// case-sensitive, label order is irrelevant and duplicates change nothing.
func IsTriaged(cfg config.TriageConfig, labels []string) bool {
	for _, rule := range cfg.Categories {
		if !rule.RequireAll {
			continue
		}
		if !categorySatisfied(rule, labels) {
			return false
		}
	}
	return true
}

func categorySatisfied(rule config.CategoryRule, labels []string) bool {
	for _, label := range labels {
		if !strings.HasPrefix(label, rule.Prefix) {
			continue
		}
		if acceptableValue(strings.TrimPrefix(label, rule.Prefix), rule.GenericValues) {
			return true
		}
	}
	return false
}

// acceptableValue rejects only a bare generic bucket. A "/"-refined value
// like "common/http" counts even when "common" itself is generic.
func acceptableValue(value string, generic []string) bool {
	return !slices.Contains(generic, value)
}

// RepoConfigLoader loads the effective triage taxonomy for a repository.
type RepoConfigLoader func(ctx context.Context, owner, repo string) (config.TriageConfig, error)

// TriageTask keeps pull-request state synchronized and reports the triage
// status of pull requests and issues back to GitHub.
type TriageTask struct {
	task          *Task
	loadConfig    RepoConfigLoader
	statusContext string
	logger        logging.Logger
}

func NewTriageTask(task *Task, client *github.Client, statusContext string, logger logging.Logger) *TriageTask {
	return &TriageTask{
		task: task,
		loadConfig: func(ctx context.Context, owner, repo string) (config.TriageConfig, error) {
			return config.LoadRepoTriageConfig(ctx, client, owner, repo)
		},
		statusContext: statusContext,
		logger:        logger.WithName("triage"),
	}
}

// WithConfigLoader overrides how repository taxonomy config is loaded.
func (t *TriageTask) WithConfigLoader(loader RepoConfigLoader) *TriageTask {
	t.loadConfig = loader
	return t
}

// Register subscribes the task's handlers on the dispatcher.
func (t *TriageTask) Register(d *Dispatcher) {
	d.On(t.handlePullRequest,
		"pull_request.opened",
		"pull_request.reopened",
		"pull_request.synchronize",
		"pull_request.labeled",
		"pull_request.unlabeled",
	)
	d.On(t.handleIssue,
		"issues.opened",
		"issues.reopened",
		"issues.labeled",
		"issues.unlabeled",
	)
	d.On(t.handleCheckEvent,
		"check_run.created",
		"check_run.rerequested",
		"check_suite.requested",
	)
}

// handlePullRequest synchronizes the pull request into the store, then
// evaluates its labels against the repository taxonomy and posts the
// resulting commit status.
func (t *TriageTask) handlePullRequest(ctx context.Context, evt *Event) error {
	owner, repo, number := evt.Owner(), evt.Repo(), evt.Number()

	if err := t.task.RecordRepository(ctx, evt); err != nil {
		return err
	}

	record, err := t.task.UpdatePR(ctx, owner, repo, number, evt.RepoID(), evt.PullRequestDoc())
	if err != nil {
		return err
	}

	cfg, err := t.loadConfig(ctx, owner, repo)
	if err != nil {
		t.logger.Error(err, "repo triage config unreadable, using defaults", "owner", owner, "repo", repo)
		cfg = config.DefaultTriageConfig()
	}

	labels := documentLabels(record)
	state, description := triageStatus(IsTriaged(cfg, labels))
	t.logger.Info("triage evaluated",
		"owner", owner, "repo", repo, "number", number,
		"labels", labels, "state", string(state))
	return t.task.SetStatus(ctx, evt, state, description, t.statusContext)
}

// handleIssue evaluates an issue's labels and records the outcome. The
// issue's graph node id is resolved alongside so follow-up mutations can
// reference it.
func (t *TriageTask) handleIssue(ctx context.Context, evt *Event) error {
	owner, repo := evt.Owner(), evt.Repo()

	cfg, err := t.loadConfig(ctx, owner, repo)
	if err != nil {
		t.logger.Error(err, "repo triage config unreadable, using defaults", "owner", owner, "repo", repo)
		cfg = config.DefaultTriageConfig()
	}

	labels := evt.Labels()
	triaged := IsTriaged(cfg, labels)

	var nodeID string
	if url := evt.ResourceURL(); url != "" {
		nodeID, err = t.task.NodeID(ctx, url)
		if err != nil {
			t.logger.Error(err, "node id resolution failed", "url", url)
		}
	}

	t.logger.Info("issue triage evaluated",
		"owner", owner, "repo", repo, "number", evt.Number(),
		"triaged", triaged, "nodeId", nodeID)

	snapshot := store.Document{
		issueKey(owner, repo, evt.Number()): map[string]any{
			"triaged":   triaged,
			"labels":    labels,
			"nodeId":    nodeID,
			"updatedAt": time.Now().UTC().Format(time.RFC3339),
		},
	}
	if err := t.task.Store().Admin.MergeSet(ctx, "issueTriage", snapshot); err != nil {
		t.logger.Error(err, "recording issue triage state failed")
	}
	return nil
}

// handleCheckEvent only has a commit sha; recover the synchronized pull
// request through the sha index and re-publish its triage status.
func (t *TriageTask) handleCheckEvent(ctx context.Context, evt *Event) error {
	sha := evt.HeadSHA()
	if sha == "" {
		return nil
	}

	record, err := t.task.FindPRBySHA(ctx, sha, evt.RepoID())
	if err != nil {
		return err
	}
	if record == nil {
		t.logger.Debug("no synchronized pull request for sha", "sha", sha)
		return nil
	}

	owner, repo := evt.Owner(), evt.Repo()
	cfg, err := t.loadConfig(ctx, owner, repo)
	if err != nil {
		t.logger.Error(err, "repo triage config unreadable, using defaults", "owner", owner, "repo", repo)
		cfg = config.DefaultTriageConfig()
	}

	state, description := triageStatus(IsTriaged(cfg, documentLabels(record)))
	return t.task.SetStatus(ctx, evt, state, description, t.statusContext)
}

func triageStatus(triaged bool) (gh.StatusState, string) {
	if triaged {
		return gh.StatusSuccess, "all required triage categories are labeled"
	}
	return gh.StatusFailure, "missing required triage labels"
}

func issueKey(owner, repo string, number int) string {
	return owner + "/" + repo + "#" + strconv.Itoa(number)
}

// documentLabels extracts label names from a stored pull-request document.
func documentLabels(doc store.Document) []string {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil
	}
	var names []string
	for _, label := range gjson.GetBytes(raw, "labels.#.name").Array() {
		names = append(names, label.String())
	}
	return names
}
