package vector

import (
	"context"
	"errors"
	"sort"
	"strings"
)

var (
	ErrNotFound          = errors.New("collection not found")
	ErrAlreadyExists     = errors.New("collection already exists")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

type Config struct {
	Persistent bool   `yaml:"persistent"`
	Path       string `yaml:"path"`
	Collection string `yaml:"collection"`
}

// Store manages named collections of embedded documents.
// All documents within one collection share a single embedding dimension.
type Store interface {

	// CreateCollection fails with ErrAlreadyExists if the name is taken.
	CreateCollection(name string, dimension int) (Collection, error)

	// GetCollection fails with ErrNotFound if the collection is absent.
	GetCollection(name string) (Collection, error)

	// GetOrCreateCollection returns the existing collection or creates it.
	GetOrCreateCollection(name string, dimension int) (Collection, error)

	// DropCollection is idempotent and succeeds even if the name is absent.
	DropCollection(name string) error
}

type Collection interface {
	Name() string
	Count() int

	// Upsert inserts new documents and replaces existing ones by ID.
	// A vector whose length differs from the collection dimension fails the
	// whole batch with ErrDimensionMismatch before anything is written.
	// Transport failures of individual documents are collected into an
	// *UpsertError while the rest of the batch proceeds.
	Upsert(ctx context.Context, docs []Document) error

	// Query returns the k most similar documents, ordered by descending
	// similarity with ties broken by ascending document ID. If k exceeds the
	// collection size, all documents are returned.
	Query(ctx context.Context, embedding []float32, k int) ([]Result, error)
}

type Document struct {
	ID        string            `json:"id"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Content   string            `json:"content"`
	Embedding []float32         `json:"embedding,omitempty"`
}

type Result struct {
	Document
	Similarity float32 `json:"similarity"`
}

// SortResults enforces the result ordering contract in place.
func SortResults(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].ID < results[j].ID
	})
}

// UpsertError reports the documents of a batch that could not be written.
type UpsertError struct {
	Failed map[string]error
}

func (e *UpsertError) Error() string {
	return "upsert failed for documents: " + strings.Join(e.IDs(), ", ")
}

// IDs returns the failed document IDs in ascending order.
func (e *UpsertError) IDs() []string {
	ids := make([]string, 0, len(e.Failed))
	for id := range e.Failed {
		ids = append(ids, id)
	}

	sort.Strings(ids)
	return ids
}
