package gh

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const defaultGraphQLEndpoint = "https://api.github.com/graphql"

// GraphQLClient issues queries against the GitHub GraphQL endpoint using an
// already-authenticated http client.
type GraphQLClient struct {
	httpClient *http.Client
	endpoint   string
}

func NewGraphQLClient(httpClient *http.Client) *GraphQLClient {
	return &GraphQLClient{httpClient: httpClient, endpoint: defaultGraphQLEndpoint}
}

// Selection describes one field of a GraphQL selection set. The query text
// is assembled here so protocol details stay inside this package.
type Selection struct {
	Field  string
	Nested []Selection
}

// Sel is shorthand for building a Selection.
func Sel(field string, nested ...Selection) Selection {
	return Selection{Field: field, Nested: nested}
}

func renderSelections(b *strings.Builder, sels []Selection) {
	for i, s := range sels {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(s.Field)
		if len(s.Nested) > 0 {
			b.WriteString(" { ")
			renderSelections(b, s.Nested)
			b.WriteString(" }")
		}
	}
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Do executes one query and returns the raw data payload. GraphQL-level
// errors and transport failures both surface as a QueryError.
func (c *GraphQLClient) Do(ctx context.Context, operation, query string, variables map[string]any) (json.RawMessage, error) {
	body, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, &QueryError{Operation: operation, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &QueryError{Operation: operation, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &QueryError{Operation: operation, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &QueryError{Operation: operation, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &QueryError{Operation: operation, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	var decoded graphQLResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, &QueryError{Operation: operation, Err: err}
	}
	if len(decoded.Errors) > 0 {
		messages := make([]string, 0, len(decoded.Errors))
		for _, e := range decoded.Errors {
			messages = append(messages, e.Message)
		}
		return nil, &QueryError{Operation: operation, Messages: messages}
	}
	return decoded.Data, nil
}

// ResolveNodeID returns the graph node id for a resource's canonical URL.
// Needed before any graph mutation; no caching, every call queries anew.
func (c *GraphQLClient) ResolveNodeID(ctx context.Context, resourceURL string) (string, error) {
	const query = `query getResource($url: URI!) {
  resource(url: $url) {
    ... on Node {
      id
    }
  }
}`
	data, err := c.Do(ctx, "resolveNodeID", query, map[string]any{"url": resourceURL})
	if err != nil {
		return "", err
	}
	var decoded struct {
		Resource *struct {
			ID string `json:"id"`
		} `json:"resource"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return "", &QueryError{Operation: "resolveNodeID", Err: err}
	}
	if decoded.Resource == nil || decoded.Resource.ID == "" {
		return "", &QueryError{Operation: "resolveNodeID", Err: fmt.Errorf("no node found for %s", resourceURL)}
	}
	return decoded.Resource.ID, nil
}

// PullRequest queries a single pull request with a caller-supplied
// selection set and returns the selected sub-object.
func (c *GraphQLClient) PullRequest(ctx context.Context, owner, repo string, number int, selection []Selection) (json.RawMessage, error) {
	var b strings.Builder
	b.WriteString("query($owner: String!, $repo: String!, $number: Int!) {\n")
	b.WriteString("  repository(owner: $owner, name: $repo) {\n")
	b.WriteString("    pullRequest(number: $number) { ")
	renderSelections(&b, selection)
	b.WriteString(" }\n  }\n}")

	data, err := c.Do(ctx, "pullRequest", b.String(), map[string]any{
		"owner":  owner,
		"repo":   repo,
		"number": number,
	})
	if err != nil {
		return nil, err
	}
	var decoded struct {
		Repository struct {
			PullRequest json.RawMessage `json:"pullRequest"`
		} `json:"repository"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, &QueryError{Operation: "pullRequest", Err: err}
	}
	if len(decoded.Repository.PullRequest) == 0 || string(decoded.Repository.PullRequest) == "null" {
		return nil, &QueryError{Operation: "pullRequest", Err: fmt.Errorf("pull request %s/%s#%d not found", owner, repo, number)}
	}
	return decoded.Repository.PullRequest, nil
}
