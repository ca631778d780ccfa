package chromem

import (
	"context"
	"fmt"
	"sync"

	"github.com/philippgille/chromem-go"

	"github.com/freshbazaar/assistant/vector"
)

func NewStore(cfg vector.Config) (vector.Store, error) {
	var db *chromem.DB
	if !cfg.Persistent {
		db = chromem.NewDB()
	} else {
		d, err := chromem.NewPersistentDB(cfg.Path, false)
		if err != nil {
			return nil, err
		}

		db = d
	}

	return &store{
		db:   db,
		dims: make(map[string]int),
	}, nil
}

type store struct {
	db *chromem.DB

	// Embedding dimension per collection. Collections reopened from disk
	// start at zero and adopt the dimension of the first vector they see.
	mu   sync.Mutex
	dims map[string]int
}

func (s *store) CreateCollection(name string, dimension int) (vector.Collection, error) {
	if existing := s.db.GetCollection(name, nil); existing != nil {
		return nil, fmt.Errorf("%w: %s", vector.ErrAlreadyExists, name)
	}

	c, err := s.db.CreateCollection(name, nil, nil)
	if err != nil {
		return nil, err
	}

	s.setDimension(name, dimension)

	return &collection{name: name, col: c, store: s}, nil
}

func (s *store) GetCollection(name string) (vector.Collection, error) {
	c := s.db.GetCollection(name, nil)
	if c == nil {
		return nil, fmt.Errorf("%w: %s", vector.ErrNotFound, name)
	}

	return &collection{name: name, col: c, store: s}, nil
}

func (s *store) GetOrCreateCollection(name string, dimension int) (vector.Collection, error) {
	c, err := s.db.GetOrCreateCollection(name, nil, nil)
	if err != nil {
		return nil, err
	}

	if s.dimension(name) == 0 {
		s.setDimension(name, dimension)
	}

	return &collection{name: name, col: c, store: s}, nil
}

func (s *store) DropCollection(name string) error {
	if err := s.db.DeleteCollection(name); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.dims, name)
	s.mu.Unlock()

	return nil
}

func (s *store) dimension(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.dims[name]
}

func (s *store) setDimension(name string, dimension int) {
	if dimension <= 0 {
		return
	}

	s.mu.Lock()
	s.dims[name] = dimension
	s.mu.Unlock()
}

type collection struct {
	name  string
	col   *chromem.Collection
	store *store
}

func (c *collection) Name() string {
	return c.name
}

func (c *collection) Count() int {
	return c.col.Count()
}

func (c *collection) Upsert(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	// Validate the whole batch before writing anything, so a dimension
	// mismatch leaves the collection untouched.
	dim := c.store.dimension(c.name)
	for _, doc := range docs {
		if len(doc.Embedding) == 0 || (dim > 0 && len(doc.Embedding) != dim) {
			return fmt.Errorf("%w: document %s has %d dimensions, collection %s expects %d",
				vector.ErrDimensionMismatch, doc.ID, len(doc.Embedding), c.name, dim)
		}

		if dim == 0 {
			dim = len(doc.Embedding)
		}
	}

	c.store.setDimension(c.name, dim)

	failed := make(map[string]error)
	for _, doc := range docs {
		document := chromem.Document{
			ID:        doc.ID,
			Metadata:  doc.Metadata,
			Embedding: doc.Embedding,
			Content:   doc.Content,
		}

		if err := c.col.AddDocument(ctx, document); err != nil {
			failed[doc.ID] = err
		}
	}

	if len(failed) > 0 {
		return &vector.UpsertError{Failed: failed}
	}

	return nil
}

func (c *collection) Query(ctx context.Context, embedding []float32, k int) ([]vector.Result, error) {
	dim := c.store.dimension(c.name)
	if dim > 0 && len(embedding) != dim {
		return nil, fmt.Errorf("%w: query has %d dimensions, collection %s expects %d",
			vector.ErrDimensionMismatch, len(embedding), c.name, dim)
	}

	count := c.col.Count()
	if count == 0 {
		return nil, nil
	}

	if k > count {
		k = count
	}

	if k <= 0 {
		return nil, nil
	}

	results, err := c.col.QueryEmbedding(ctx, embedding, k, nil, nil)
	if err != nil {
		return nil, err
	}

	out := make([]vector.Result, len(results))
	for i, result := range results {
		out[i] = vector.Result{
			Document: vector.Document{
				ID:        result.ID,
				Metadata:  result.Metadata,
				Embedding: result.Embedding,
				Content:   result.Content,
			},
			Similarity: result.Similarity,
		}
	}

	vector.SortResults(out)

	return out, nil
}
