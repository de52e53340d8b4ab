package bot

import (
	"github.com/google/go-github/v66/github"
	"github.com/tidwall/gjson"

	"github.com/Toxicable/github-robot/internal/store"
)

// Event is one delivered webhook event. Known event types carry a decoded
// go-github payload; anything else keeps Payload nil and is served from the
// raw bytes, so unknown shapes never break dispatch.
type Event struct {
	Name       string
	DeliveryID string
	Raw        []byte
	Payload    any
}

// NewEvent decodes the payload for known event types and falls back to a
// raw-only event otherwise.
func NewEvent(name, deliveryID string, raw []byte) *Event {
	payload, err := github.ParseWebHook(name, raw)
	if err != nil {
		payload = nil
	}
	return &Event{Name: name, DeliveryID: deliveryID, Raw: raw, Payload: payload}
}

// Action returns the event's action field ("opened", "labeled", ...).
func (e *Event) Action() string {
	return gjson.GetBytes(e.Raw, "action").String()
}

// Owner returns the owning repository's owner login.
func (e *Event) Owner() string {
	switch p := e.Payload.(type) {
	case *github.PullRequestEvent:
		return p.GetRepo().GetOwner().GetLogin()
	case *github.IssuesEvent:
		return p.GetRepo().GetOwner().GetLogin()
	case *github.CheckRunEvent:
		return p.GetRepo().GetOwner().GetLogin()
	case *github.StatusEvent:
		return p.GetRepo().GetOwner().GetLogin()
	}
	return gjson.GetBytes(e.Raw, "repository.owner.login").String()
}

// Repo returns the owning repository's name.
func (e *Event) Repo() string {
	switch p := e.Payload.(type) {
	case *github.PullRequestEvent:
		return p.GetRepo().GetName()
	case *github.IssuesEvent:
		return p.GetRepo().GetName()
	case *github.CheckRunEvent:
		return p.GetRepo().GetName()
	case *github.StatusEvent:
		return p.GetRepo().GetName()
	}
	return gjson.GetBytes(e.Raw, "repository.name").String()
}

// RepoID returns the owning repository's numeric id, 0 when absent.
func (e *Event) RepoID() int64 {
	switch p := e.Payload.(type) {
	case *github.PullRequestEvent:
		return p.GetRepo().GetID()
	case *github.IssuesEvent:
		return p.GetRepo().GetID()
	case *github.CheckRunEvent:
		return p.GetRepo().GetID()
	case *github.StatusEvent:
		return p.GetRepo().GetID()
	}
	return gjson.GetBytes(e.Raw, "repository.id").Int()
}

// Number returns the pull request or issue number, 0 when absent.
func (e *Event) Number() int {
	switch p := e.Payload.(type) {
	case *github.PullRequestEvent:
		return p.GetNumber()
	case *github.IssuesEvent:
		return p.GetIssue().GetNumber()
	}
	if n := gjson.GetBytes(e.Raw, "number"); n.Exists() {
		return int(n.Int())
	}
	if n := gjson.GetBytes(e.Raw, "pull_request.number"); n.Exists() {
		return int(n.Int())
	}
	return int(gjson.GetBytes(e.Raw, "issue.number").Int())
}

// HeadSHA returns the commit sha carried by the event, verbatim from the
// payload. Empty when the event type carries none.
func (e *Event) HeadSHA() string {
	switch p := e.Payload.(type) {
	case *github.PullRequestEvent:
		return p.GetPullRequest().GetHead().GetSHA()
	case *github.CheckRunEvent:
		return p.GetCheckRun().GetHeadSHA()
	case *github.CheckSuiteEvent:
		return p.GetCheckSuite().GetHeadSHA()
	case *github.StatusEvent:
		return p.GetSHA()
	}
	for _, path := range []string{"pull_request.head.sha", "check_run.head_sha", "check_suite.head_sha", "sha"} {
		if r := gjson.GetBytes(e.Raw, path); r.Exists() {
			return r.String()
		}
	}
	return ""
}

// InstallationID returns the GitHub App installation id, 0 when absent.
func (e *Event) InstallationID() int64 {
	return gjson.GetBytes(e.Raw, "installation.id").Int()
}

// Labels returns the label names on the event's issue or pull request.
func (e *Event) Labels() []string {
	var names []string
	for _, path := range []string{"pull_request.labels.#.name", "issue.labels.#.name"} {
		r := gjson.GetBytes(e.Raw, path)
		if !r.Exists() {
			continue
		}
		for _, label := range r.Array() {
			names = append(names, label.String())
		}
		return names
	}
	return nil
}

// ResourceURL returns the canonical html url of the event's issue or pull
// request, used for graph node-id resolution.
func (e *Event) ResourceURL() string {
	for _, path := range []string{"pull_request.html_url", "issue.html_url"} {
		if r := gjson.GetBytes(e.Raw, path); r.Exists() {
			return r.String()
		}
	}
	return ""
}

// PullRequestDoc returns the event's pull_request object as a document, or
// nil when the event carries none.
func (e *Event) PullRequestDoc() store.Document {
	r := gjson.GetBytes(e.Raw, "pull_request")
	if !r.Exists() || !r.IsObject() {
		return nil
	}
	doc, err := store.DecodeDocument([]byte(r.Raw))
	if err != nil {
		return nil
	}
	return doc
}
