package assistant

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/freshbazaar/assistant/catalog"
	"github.com/freshbazaar/assistant/persistence/chromem"
	"github.com/freshbazaar/assistant/provider"
	"github.com/freshbazaar/assistant/vector"
)

type fakeEmbedder struct {
	mu           sync.Mutex
	calls        int
	dimension    int
	vectors      map[string][]float32
	failKeywords []string
	err          error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string, mode provider.EmbedMode) ([]float32, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}

	for _, keyword := range f.failKeywords {
		if strings.Contains(text, keyword) {
			return nil, &provider.Error{
				Provider: "embedding",
				Err:      errors.New("rate limited"),
			}
		}
	}

	for keyword, embedding := range f.vectors {
		if strings.Contains(text, keyword) {
			return embedding, nil
		}
	}

	embedding := make([]float32, f.dimension)
	embedding[f.dimension-1] = 1

	return embedding, nil
}

func (f *fakeEmbedder) Dimension() int {
	return f.dimension
}

func (f *fakeEmbedder) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.calls
}

type fakeGenerator struct {
	mu      sync.Mutex
	prompts []string
	answer  string
	err     error
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()

	if f.err != nil {
		return "", f.err
	}

	return f.answer, nil
}

func (f *fakeGenerator) Prompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.prompts...)
}

type fakeSource struct {
	records []catalog.Record
}

func (f *fakeSource) Records(ctx context.Context, offset, limit int) ([]catalog.Record, error) {
	if offset >= len(f.records) {
		return nil, nil
	}

	end := offset + limit
	if end > len(f.records) {
		end = len(f.records)
	}

	return f.records[offset:end], nil
}

func (f *fakeSource) Close() error {
	return nil
}

// countingStore wraps a store so tests can assert how often retrieval
// actually hit the collection.
type countingStore struct {
	inner   vector.Store
	mu      sync.Mutex
	queries int
}

func (s *countingStore) CreateCollection(name string, dimension int) (vector.Collection, error) {
	c, err := s.inner.CreateCollection(name, dimension)
	if err != nil {
		return nil, err
	}

	return &countingCollection{Collection: c, store: s}, nil
}

func (s *countingStore) GetCollection(name string) (vector.Collection, error) {
	c, err := s.inner.GetCollection(name)
	if err != nil {
		return nil, err
	}

	return &countingCollection{Collection: c, store: s}, nil
}

func (s *countingStore) GetOrCreateCollection(name string, dimension int) (vector.Collection, error) {
	c, err := s.inner.GetOrCreateCollection(name, dimension)
	if err != nil {
		return nil, err
	}

	return &countingCollection{Collection: c, store: s}, nil
}

func (s *countingStore) DropCollection(name string) error {
	return s.inner.DropCollection(name)
}

func (s *countingStore) Queries() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.queries
}

type countingCollection struct {
	vector.Collection
	store *countingStore
}

func (c *countingCollection) Query(ctx context.Context, embedding []float32, k int) ([]vector.Result, error) {
	c.store.mu.Lock()
	c.store.queries++
	c.store.mu.Unlock()

	return c.Collection.Query(ctx, embedding, k)
}

type assistantTestSuite struct {
	suite.Suite
	ctx context.Context
}

func (suite *assistantTestSuite) SetupSuite() {
	suite.ctx = context.Background()
}

func (suite *assistantTestSuite) newService(source catalog.Source, embedder *fakeEmbedder, generator *fakeGenerator) (Service, *countingStore) {
	inner, err := chromem.NewStore(vector.Config{Persistent: false})
	if err != nil {
		suite.FailNow(err.Error())
	}

	store := &countingStore{inner: inner}

	cfg := Config{
		Vector: vector.Config{
			Collection: "product_profiles",
		},
	}

	svc, err := NewService(cfg, source, embedder, generator, store)
	if err != nil {
		suite.FailNow(err.Error())
	}

	return svc, store
}

func catalogRecords() []catalog.Record {
	return []catalog.Record{
		{
			ID:        1,
			Name:      "Fresh Tomatoes",
			Price:     50,
			Quantity:  100,
			Available: true,
			Category:  "Vegetables",
			Vendor:    "freshfarms",
		},
		{
			ID:        2,
			Name:      "Truck Tire",
			Price:     5000,
			Quantity:  12,
			Available: true,
			Category:  "Automotive",
			Vendor:    "localmarket",
		},
	}
}

func retrievalVectors() map[string][]float32 {
	return map[string][]float32{
		"Fresh Tomatoes":  {1, 0, 0},
		"Truck Tire":      {0, 1, 0},
		"vegetable price": {0.95, 0.05, 0},
	}
}

func (suite *assistantTestSuite) TestAskEmptyQuery() {
	embedder := &fakeEmbedder{dimension: 3}
	generator := &fakeGenerator{answer: "unused"}

	svc, _ := suite.newService(&fakeSource{}, embedder, generator)

	_, err := svc.Ask(suite.ctx, "   \n ")
	suite.ErrorIs(err, ErrInvalidQuery)

	suite.Zero(embedder.Calls(), "no provider call for an empty query")
	suite.Empty(generator.Prompts())
}

func (suite *assistantTestSuite) TestReindexAndAsk() {
	embedder := &fakeEmbedder{dimension: 3, vectors: retrievalVectors()}
	generator := &fakeGenerator{answer: "  Fresh Tomatoes cost Rs. 50.00 per unit.  \n"}

	svc, _ := suite.newService(&fakeSource{records: catalogRecords()}, embedder, generator)

	summary, err := svc.Reindex(suite.ctx, false)
	if err != nil {
		suite.FailNow(err.Error())
	}

	suite.Equal(2, summary.Processed)
	suite.Equal(2, summary.Indexed)
	suite.Empty(summary.Failed)

	answer, err := svc.Ask(suite.ctx, "vegetable price", 1)
	if err != nil {
		suite.FailNow(err.Error())
	}

	suite.Equal("Fresh Tomatoes cost Rs. 50.00 per unit.", answer)

	prompts := generator.Prompts()
	suite.Len(prompts, 1)
	suite.Contains(prompts[0], "Fresh Tomatoes")
	suite.NotContains(prompts[0], "Truck Tire", "k=1 retrieves only the nearest document")
	suite.Contains(prompts[0], "User question: vegetable price")
}

func (suite *assistantTestSuite) TestReindexIsIdempotent() {
	embedder := &fakeEmbedder{dimension: 3, vectors: retrievalVectors()}
	generator := &fakeGenerator{answer: "ok"}

	svc, store := suite.newService(&fakeSource{records: catalogRecords()}, embedder, generator)

	for i := 0; i < 2; i++ {
		if _, err := svc.Reindex(suite.ctx, false); err != nil {
			suite.FailNow(err.Error())
		}
	}

	collection, err := store.GetCollection("product_profiles")
	if err != nil {
		suite.FailNow(err.Error())
	}

	suite.Equal(2, collection.Count(), "re-indexing must overwrite, not duplicate")
}

func (suite *assistantTestSuite) TestRebuildWithEmptySource() {
	embedder := &fakeEmbedder{dimension: 3}
	generator := &fakeGenerator{answer: "I could not find any products."}

	svc, store := suite.newService(&fakeSource{}, embedder, generator)

	summary, err := svc.Reindex(suite.ctx, true)
	if err != nil {
		suite.FailNow(err.Error())
	}

	suite.Zero(summary.Processed)
	suite.Zero(summary.Indexed)

	collection, err := store.GetCollection("product_profiles")
	if err != nil {
		suite.FailNow(err.Error())
	}

	suite.Zero(collection.Count())

	// Empty collection is a valid state: the question proceeds with an
	// empty context block.
	answer, err := svc.Ask(suite.ctx, "any tomatoes?")
	if err != nil {
		suite.FailNow(err.Error())
	}

	suite.Equal("I could not find any products.", answer)
	suite.Contains(generator.Prompts()[0], "Context:\n\n")
}

func (suite *assistantTestSuite) TestReindexCollectsEmbedFailures() {
	embedder := &fakeEmbedder{
		dimension:    3,
		vectors:      retrievalVectors(),
		failKeywords: []string{"Truck Tire"},
	}
	generator := &fakeGenerator{answer: "ok"}

	svc, store := suite.newService(&fakeSource{records: catalogRecords()}, embedder, generator)

	summary, err := svc.Reindex(suite.ctx, false)
	if err != nil {
		suite.FailNow(err.Error())
	}

	suite.Equal(2, summary.Processed)
	suite.Equal(1, summary.Indexed)
	suite.Equal([]string{"product_2"}, summary.Failed)

	collection, err := store.GetCollection("product_profiles")
	if err != nil {
		suite.FailNow(err.Error())
	}

	suite.Equal(1, collection.Count())
}

func (suite *assistantTestSuite) TestReindexSkipsUnavailableRecords() {
	records := catalogRecords()
	records[1].Available = false

	embedder := &fakeEmbedder{dimension: 3, vectors: retrievalVectors()}
	generator := &fakeGenerator{answer: "ok"}

	svc, _ := suite.newService(&fakeSource{records: records}, embedder, generator)

	summary, err := svc.Reindex(suite.ctx, false)
	if err != nil {
		suite.FailNow(err.Error())
	}

	suite.Equal(2, summary.Processed)
	suite.Equal(1, summary.Indexed)
	suite.Equal(1, summary.Skipped)
	suite.Empty(summary.Failed)
}

func (suite *assistantTestSuite) TestAskEmbedderUnavailable() {
	embedder := &fakeEmbedder{
		dimension: 3,
		err: &provider.Error{
			Provider:  "embedding",
			Retryable: true,
			Err:       context.DeadlineExceeded,
		},
	}
	generator := &fakeGenerator{answer: "unused"}

	svc, _ := suite.newService(&fakeSource{}, embedder, generator)

	_, err := svc.Ask(suite.ctx, "vegetable price")
	suite.ErrorIs(err, ErrRetrievalUnavailable)

	suite.Empty(generator.Prompts(), "no generation without retrieval context")
}

func (suite *assistantTestSuite) TestAskGeneratorTimeout() {
	embedder := &fakeEmbedder{dimension: 3, vectors: retrievalVectors()}
	generator := &fakeGenerator{
		err: &provider.Error{
			Provider:  "generation",
			Retryable: true,
			Err:       context.DeadlineExceeded,
		},
	}

	svc, store := suite.newService(&fakeSource{records: catalogRecords()}, embedder, generator)

	if _, err := svc.Reindex(suite.ctx, false); err != nil {
		suite.FailNow(err.Error())
	}

	_, err := svc.Ask(suite.ctx, "vegetable price")
	suite.ErrorIs(err, ErrGenerationUnavailable)

	var perr *provider.Error
	suite.ErrorAs(err, &perr)
	suite.True(perr.Retryable)

	suite.Equal(1, store.Queries(), "retrieval is attempted exactly once before generation fails")
}

func TestAssistantTestSuite(t *testing.T) {
	suite.Run(t, new(assistantTestSuite))
}
