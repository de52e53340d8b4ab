package bot

import (
	"testing"
)

const pullRequestPayload = `{
	"action": "labeled",
	"number": 7,
	"repository": {"id": 42, "name": "angular", "owner": {"login": "angular"}},
	"pull_request": {
		"id": 5,
		"number": 7,
		"html_url": "https://github.com/angular/angular/pull/7",
		"head": {"sha": "abc123"},
		"labels": [{"name": "comp: aio"}, {"name": "type: bug"}]
	},
	"installation": {"id": 777}
}`

func TestEventAccessorsTypedPayload(t *testing.T) {
	evt := NewEvent("pull_request", "d-1", []byte(pullRequestPayload))

	if evt.Payload == nil {
		t.Fatalf("pull_request is a known type, expected a decoded payload")
	}
	if evt.Owner() != "angular" || evt.Repo() != "angular" {
		t.Fatalf("unexpected repo identity %s/%s", evt.Owner(), evt.Repo())
	}
	if evt.RepoID() != 42 {
		t.Fatalf("unexpected repo id %d", evt.RepoID())
	}
	if evt.Number() != 7 {
		t.Fatalf("unexpected number %d", evt.Number())
	}
	if evt.HeadSHA() != "abc123" {
		t.Fatalf("unexpected sha %q", evt.HeadSHA())
	}
	if evt.Action() != "labeled" {
		t.Fatalf("unexpected action %q", evt.Action())
	}
	if evt.InstallationID() != 777 {
		t.Fatalf("unexpected installation id %d", evt.InstallationID())
	}
	if evt.ResourceURL() != "https://github.com/angular/angular/pull/7" {
		t.Fatalf("unexpected resource url %q", evt.ResourceURL())
	}

	labels := evt.Labels()
	if len(labels) != 2 || labels[0] != "comp: aio" || labels[1] != "type: bug" {
		t.Fatalf("unexpected labels %v", labels)
	}

	doc := evt.PullRequestDoc()
	if doc == nil {
		t.Fatalf("expected a pull_request document")
	}
	if doc["html_url"] != "https://github.com/angular/angular/pull/7" {
		t.Fatalf("unexpected document %v", doc)
	}
}

func TestEventUnknownTypeFallsBackToRaw(t *testing.T) {
	raw := []byte(`{
		"action": "completed",
		"repository": {"id": 42, "name": "angular", "owner": {"login": "angular"}},
		"sha": "deadbeef"
	}`)
	evt := NewEvent("made_up_event", "d-2", raw)

	if evt.Payload != nil {
		t.Fatalf("unknown types must not carry a typed payload")
	}
	if evt.Owner() != "angular" || evt.Repo() != "angular" || evt.RepoID() != 42 {
		t.Fatalf("raw fallback accessors failed: %s/%s %d", evt.Owner(), evt.Repo(), evt.RepoID())
	}
	if evt.HeadSHA() != "deadbeef" {
		t.Fatalf("unexpected sha %q", evt.HeadSHA())
	}
}

func TestEventIssuePayload(t *testing.T) {
	raw := []byte(`{
		"action": "labeled",
		"repository": {"id": 42, "name": "angular", "owner": {"login": "angular"}},
		"issue": {
			"number": 33,
			"html_url": "https://github.com/angular/angular/issues/33",
			"labels": [{"name": "comp: common/http"}]
		}
	}`)
	evt := NewEvent("issues", "d-3", raw)

	if evt.Number() != 33 {
		t.Fatalf("unexpected number %d", evt.Number())
	}
	if evt.HeadSHA() != "" {
		t.Fatalf("issues carry no sha, got %q", evt.HeadSHA())
	}
	labels := evt.Labels()
	if len(labels) != 1 || labels[0] != "comp: common/http" {
		t.Fatalf("unexpected labels %v", labels)
	}
	if evt.ResourceURL() != "https://github.com/angular/angular/issues/33" {
		t.Fatalf("unexpected resource url %q", evt.ResourceURL())
	}
}

func TestEventCheckRunSHA(t *testing.T) {
	raw := []byte(`{
		"action": "created",
		"repository": {"id": 42, "name": "angular", "owner": {"login": "angular"}},
		"check_run": {"head_sha": "cafe01"}
	}`)
	evt := NewEvent("check_run", "d-4", raw)
	if evt.HeadSHA() != "cafe01" {
		t.Fatalf("unexpected sha %q", evt.HeadSHA())
	}
}
