// Package store persists bot state as partially-mergeable JSON documents
// grouped into named collections.
package store

import "context"

// Document is a schemaless JSON object as stored in a collection.
type Document = map[string]any

// Keyed pairs a document with its collection key, for scan results.
type Keyed struct {
	Key string
	Doc Document
}

// Filter selects documents whose value at each dotted path (e.g. "head.sha")
// equals the given value, compared by JSON string representation.
type Filter map[string]string

// Collection is a keyed set of documents with merge-write semantics.
// MergeSet updates only the supplied fields, preserving previously stored
// fields absent from the new write.
type Collection interface {
	// Get returns the document stored under key, or (nil, nil) when absent.
	Get(ctx context.Context, key string) (Document, error)

	// MergeSet merge-writes doc under key. Fields present in doc overwrite,
	// fields absent are left untouched on the stored document.
	MergeSet(ctx context.Context, key string, doc Document) error

	// Query scans the collection and returns every document matching the
	// filter. A nil filter matches everything.
	Query(ctx context.Context, filter Filter) ([]Keyed, error)
}

// Store exposes the bot's three logical collections.
type Store struct {
	PullRequests Collection
	Repositories Collection
	Admin        Collection
}
