// Package gh wraps the GitHub REST and GraphQL surfaces used by the bot.
package gh

import (
	"context"
	"net/http"
	"time"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v66/github"
	"golang.org/x/oauth2"
)

// Client bundles the REST client with the GraphQL client sharing the same
// authentication.
type Client struct {
	REST    *github.Client
	GraphQL *GraphQLClient
}

// NewTokenClient builds a Client authenticated with a personal access
// token. An empty token yields an unauthenticated client.
func NewTokenClient(token string) *Client {
	var hc *http.Client
	if token == "" {
		hc = &http.Client{Timeout: 30 * time.Second}
	} else {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		hc = oauth2.NewClient(context.Background(), ts)
		hc.Timeout = 30 * time.Second
	}
	return &Client{
		REST:    github.NewClient(hc),
		GraphQL: NewGraphQLClient(hc),
	}
}

// NewAppClient builds a Client authenticated as a GitHub App installation.
func NewAppClient(appID, installationID int64, privateKeyPath string) (*Client, error) {
	itr, err := ghinstallation.NewKeyFromFile(http.DefaultTransport, appID, installationID, privateKeyPath)
	if err != nil {
		return nil, err
	}
	hc := &http.Client{Transport: itr, Timeout: 30 * time.Second}
	return &Client{
		REST:    github.NewClient(hc),
		GraphQL: NewGraphQLClient(hc),
	}, nil
}
