package gh

import (
	"context"

	"github.com/google/go-github/v66/github"

	"github.com/Toxicable/github-robot/internal/logging"
)

// StatusState is a commit-status state accepted by GitHub.
type StatusState string

const (
	StatusSuccess StatusState = "success"
	StatusFailure StatusState = "failure"
	StatusPending StatusState = "pending"
	StatusError   StatusState = "error"
)

// StatusReporter posts commit statuses. One outbound call per invocation,
// no retries; GitHub treats repeated posts with the same context as an
// update of the existing status.
type StatusReporter struct {
	client *github.Client
	logger logging.Logger
}

func NewStatusReporter(client *github.Client, logger logging.Logger) *StatusReporter {
	return &StatusReporter{client: client, logger: logger.WithName("status")}
}

// Set publishes one commit status for sha. Failure surfaces as a
// ReportError; nothing is published on failure.
func (r *StatusReporter) Set(ctx context.Context, owner, repo, sha string, state StatusState, description, statusContext string) error {
	status := &github.RepoStatus{
		State:       github.String(string(state)),
		Description: github.String(description),
		Context:     github.String(statusContext),
	}
	_, _, err := r.client.Repositories.CreateStatus(ctx, owner, repo, sha, status)
	if err != nil {
		return &ReportError{Owner: owner, Repo: repo, SHA: sha, Context: statusContext, Err: err}
	}
	r.logger.Debug("status posted", "owner", owner, "repo", repo, "sha", sha, "state", string(state))
	return nil
}
