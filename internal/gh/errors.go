package gh

import (
	"errors"
	"fmt"
	"strings"
)

// FetchError indicates a failed read from the GitHub REST API.
type FetchError struct {
	Owner  string
	Repo   string
	Number int
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching pull request %s/%s#%d: %v", e.Owner, e.Repo, e.Number, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsFetchError checks if an error is or wraps a FetchError.
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

// ReportError indicates a failed commit-status post.
type ReportError struct {
	Owner   string
	Repo    string
	SHA     string
	Context string
	Err     error
}

func (e *ReportError) Error() string {
	return fmt.Sprintf("posting status %q for %s/%s@%s: %v", e.Context, e.Owner, e.Repo, e.SHA, e.Err)
}

func (e *ReportError) Unwrap() error { return e.Err }

// IsReportError checks if an error is or wraps a ReportError.
func IsReportError(err error) bool {
	var re *ReportError
	return errors.As(err, &re)
}

// QueryError indicates a failed or malformed GraphQL exchange. Messages
// holds the error list returned by the endpoint, when there is one.
type QueryError struct {
	Operation string
	Messages  []string
	Err       error
}

func (e *QueryError) Error() string {
	if len(e.Messages) > 0 {
		return fmt.Sprintf("graphql %s: %s", e.Operation, strings.Join(e.Messages, "; "))
	}
	return fmt.Sprintf("graphql %s: %v", e.Operation, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// IsQueryError checks if an error is or wraps a QueryError.
func IsQueryError(err error) bool {
	var qe *QueryError
	return errors.As(err, &qe)
}
