package config

import (
	"context"
	"encoding/json"

	"github.com/google/go-github/v66/github"
	"sigs.k8s.io/yaml"

	"github.com/Toxicable/github-robot/internal/store"
)

// CategoryRule describes one label category of the triage taxonomy.
type CategoryRule struct {
	// Prefix identifies labels belonging to this category, e.g. "comp: ".
	Prefix string `json:"prefix"`
	// RequireAll marks the category as mandatory for an issue or PR to
	// count as triaged.
	RequireAll bool `json:"requireAll"`
	// GenericValues lists category values too coarse to count on their
	// own; they need a "/"-delimited refinement, e.g. "common/http".
	GenericValues []string `json:"genericValues,omitempty"`
}

// TriageConfig is the label taxonomy the evaluator runs against. It is
// configuration data: defaults below are merged with each repository's own
// config file on every event.
type TriageConfig struct {
	NeedsTriageLabel string                  `json:"needsTriageLabel"`
	Categories       map[string]CategoryRule `json:"categories"`
}

// DefaultTriageConfig returns the process-wide taxonomy defaults.
func DefaultTriageConfig() TriageConfig {
	return TriageConfig{
		NeedsTriageLabel: "needs triage",
		Categories: map[string]CategoryRule{
			"comp": {Prefix: "comp: ", RequireAll: true, GenericValues: []string{"common"}},
			"type": {Prefix: "type: ", RequireAll: true},
			// Informational categories, never block triage.
			"frequency": {Prefix: "freq", RequireAll: false},
			"severity":  {Prefix: "severity", RequireAll: false},
		},
	}
}

// LoadRepoTriageConfig fetches the repository's config file and merges its
// triage section over the defaults. A missing or unreadable file yields the
// defaults unchanged; the returned error is only set for merge failures.
func LoadRepoTriageConfig(ctx context.Context, client *github.Client, owner, repo string) (TriageConfig, error) {
	defaults := DefaultTriageConfig()

	fc, _, _, err := client.Repositories.GetContents(ctx, owner, repo, RepoConfigPath(), nil)
	if err != nil || fc == nil {
		return defaults, nil
	}
	content, err := fc.GetContent()
	if err != nil {
		return defaults, nil
	}

	var override struct {
		Triage map[string]any `json:"triage"`
	}
	if err := yaml.Unmarshal([]byte(content), &override); err != nil {
		return defaults, nil
	}
	if override.Triage == nil {
		return defaults, nil
	}

	return mergeTriageConfig(defaults, override.Triage)
}

// mergeTriageConfig deep-merges an override map over the default taxonomy.
func mergeTriageConfig(defaults TriageConfig, override map[string]any) (TriageConfig, error) {
	base, err := toDocument(defaults)
	if err != nil {
		return defaults, err
	}
	merged := store.Merge(base, override)
	raw, err := json.Marshal(merged)
	if err != nil {
		return defaults, err
	}
	var out TriageConfig
	if err := json.Unmarshal(raw, &out); err != nil {
		return defaults, err
	}
	return out, nil
}

func toDocument(v any) (store.Document, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc store.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
