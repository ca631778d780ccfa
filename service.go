package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/freshbazaar/assistant/catalog"
	"github.com/freshbazaar/assistant/provider"
	"github.com/freshbazaar/assistant/vector"
)

// Service defines the core logic of the catalog assistant.
type Service interface {

	// Close releases the record source connection.
	Close() error

	// Ask answers a free-text question grounded in the indexed catalog.
	// An optional k overrides the configured number of retrieved documents.
	Ask(ctx context.Context, query string, k ...int) (string, error)

	// Reindex rebuilds or refreshes the product collection from the record
	// source. With rebuild the collection is dropped and recreated first.
	Reindex(ctx context.Context, rebuild bool) (IndexSummary, error)
}

type ServiceMiddleware func(Service) Service

// NewService wires the long-lived provider clients, vector store and record
// source into one process-wide service. The collection is resolved eagerly
// so a missing store surfaces at startup, not on the first question.
func NewService(cfg Config, source catalog.Source, embedder provider.Embedder, generator provider.Generator, store vector.Store) (Service, error) {
	log := zap.L().With(
		zap.String("service", "assistant"),
	)

	if store == nil {
		return nil, ErrVectorStoreNotSet
	}

	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}

	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}

	if cfg.Vector.Collection == "" {
		cfg.Vector.Collection = DefaultCollection
	}

	svc := &service{
		cfg:       cfg,
		source:    source,
		embedder:  embedder,
		generator: generator,
		store:     store,
		log:       log,
	}

	collection, err := store.GetOrCreateCollection(cfg.Vector.Collection, embedder.Dimension())
	if err != nil {
		return nil, err
	}

	svc.collection = collection

	return svc, nil
}

type service struct {
	cfg       Config
	source    catalog.Source
	embedder  provider.Embedder
	generator provider.Generator
	store     vector.Store

	// Guards the collection handle, which Reindex swaps on rebuild while
	// questions may be in flight.
	collectionMutex sync.RWMutex
	collection      vector.Collection

	log *zap.Logger
}

func (svc *service) Close() error {
	log := svc.log.With(
		zap.String("action", "close"),
	)

	if svc.source != nil {
		if err := svc.source.Close(); err != nil {
			log.Error(err.Error())
			return err
		}
	}

	log.Info("service closed")
	return nil
}

func (svc *service) Ask(ctx context.Context, query string, k ...int) (string, error) {
	log := svc.log.With(
		zap.String("action", "ask"),
	)

	query = strings.TrimSpace(query)
	if query == "" {
		return "", ErrInvalidQuery
	}

	n := svc.cfg.TopK
	if len(k) > 0 && k[0] > 0 {
		n = k[0]
	}

	embedding, err := svc.embedder.Embed(ctx, query, provider.EmbedModeQuery)
	if err != nil {
		log.Error(err.Error(), zap.String("stage", "embedded"))
		return "", fmt.Errorf("%w: %w", ErrRetrievalUnavailable, err)
	}

	svc.collectionMutex.RLock()
	collection := svc.collection
	svc.collectionMutex.RUnlock()

	results, err := collection.Query(ctx, embedding, n)
	if err != nil {
		log.Error(err.Error(), zap.String("stage", "retrieved"))

		// Structural errors propagate untouched; only transport failures
		// degrade into a retrieval outage.
		if errors.Is(err, vector.ErrDimensionMismatch) || errors.Is(err, vector.ErrNotFound) {
			return "", err
		}

		return "", fmt.Errorf("%w: %w", ErrRetrievalUnavailable, err)
	}

	// An empty collection is a valid state; the question proceeds with an
	// empty context block.
	contents := make([]string, len(results))
	for i, result := range results {
		contents[i] = result.Content
	}

	prompt := fmt.Sprintf(answerPrompt, strings.Join(contents, "\n"), query)

	answer, err := svc.generator.Generate(ctx, prompt)
	if err != nil {
		log.Error(err.Error(), zap.String("stage", "generated"))
		return "", fmt.Errorf("%w: %w", ErrGenerationUnavailable, err)
	}

	log.Debug("question answered", zap.Int("documents", len(results)))

	return strings.TrimSpace(answer), nil
}

func (svc *service) Reindex(ctx context.Context, rebuild bool) (IndexSummary, error) {
	log := svc.log.With(
		zap.String("action", "reindex"),
		zap.Bool("rebuild", rebuild),
	)

	var summary IndexSummary

	if svc.source == nil {
		return summary, ErrRecordSourceNotSet
	}

	name := svc.cfg.Vector.Collection
	dimension := svc.embedder.Dimension()

	var (
		collection vector.Collection
		err        error
	)

	if rebuild {
		if err := svc.store.DropCollection(name); err != nil {
			return summary, err
		}

		collection, err = svc.store.CreateCollection(name, dimension)
	} else {
		collection, err = svc.store.GetOrCreateCollection(name, dimension)
	}

	if err != nil {
		return summary, err
	}

	for offset := 0; ; {
		records, err := svc.source.Records(ctx, offset, svc.cfg.BatchSize)
		if err != nil {
			return summary, err
		}

		if len(records) == 0 {
			break
		}

		offset += len(records)

		docs := make([]vector.Document, 0, len(records))

		for _, record := range records {
			summary.Processed++

			if !record.Available {
				summary.Skipped++
				continue
			}

			doc := RecordToDocument(record)

			embedding, err := svc.embedder.Embed(ctx, doc.Content, provider.EmbedModeDocument)
			if err != nil {
				log.Warn("record skipped",
					zap.String("document_id", doc.ID),
					zap.Error(err),
				)

				summary.Failed = append(summary.Failed, doc.ID)
				continue
			}

			doc.Embedding = embedding
			docs = append(docs, doc)
		}

		if len(docs) == 0 {
			continue
		}

		err = collection.Upsert(ctx, docs)

		var upsertErr *vector.UpsertError
		switch {
		case errors.As(err, &upsertErr):
			summary.Failed = append(summary.Failed, upsertErr.IDs()...)
			summary.Indexed += len(docs) - len(upsertErr.Failed)

		case err != nil:
			// Dimension mismatches and store-level failures abort the run.
			return summary, err

		default:
			summary.Indexed += len(docs)
		}
	}

	svc.collectionMutex.Lock()
	svc.collection = collection
	svc.collectionMutex.Unlock()

	log.Info("reindex completed",
		zap.Int("processed", summary.Processed),
		zap.Int("indexed", summary.Indexed),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", len(summary.Failed)),
	)

	return summary, nil
}
