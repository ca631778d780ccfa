package assistant

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/freshbazaar/assistant/catalog"
	"github.com/freshbazaar/assistant/provider"
	"github.com/freshbazaar/assistant/vector"
)

var (
	ErrInvalidQuery          = errors.New("query is empty")
	ErrRetrievalUnavailable  = errors.New("knowledge base unavailable")
	ErrGenerationUnavailable = errors.New("answer generation unavailable")
	ErrVectorStoreNotSet     = errors.New("vector store not set")
	ErrRecordSourceNotSet    = errors.New("record source not set")
)

type Config struct {
	TopK      int             `yaml:"topK"`
	BatchSize int             `yaml:"batchSize"`
	Catalog   catalog.Config  `yaml:"catalog"`
	Provider  provider.Config `yaml:"provider"`
	Vector    vector.Config   `yaml:"vector"`
}

const (
	DefaultTopK       = 3
	DefaultBatchSize  = 50
	DefaultCollection = "product_profiles"
)

// IndexSummary reports the outcome of one indexing run. A run with failed
// records is still a completed run; Failed carries the document IDs that
// could not be embedded or written.
type IndexSummary struct {
	Processed int      `json:"processed"`
	Indexed   int      `json:"indexed"`
	Skipped   int      `json:"skipped"`
	Failed    []string `json:"failed,omitempty"`
}

const answerPrompt = "You are an e-commerce assistant. " +
	"Using the following context, answer the user's question as helpfully as possible.\n\n" +
	"Context:\n%s\n\nUser question: %s"

const documentIDPrefix = "product_"

// sensitiveField is a denylist over dynamically discovered attribute names.
// The fixed Record fields act as the allow-list; this guards only the
// free-form extras so credentials or contact data never reach a document.
var sensitiveField = regexp.MustCompile(`(?i)password|email|token|hash|secret`)

// RecordToDocument projects a catalog record into its indexable document.
// The projection is deterministic: identical records always produce the
// same ID and text, so re-indexing overwrites instead of duplicating.
func RecordToDocument(record catalog.Record) vector.Document {
	return vector.Document{
		ID:       documentIDPrefix + strconv.FormatInt(record.ID, 10),
		Content:  buildProfile(record),
		Metadata: buildMetadata(record),
	}
}

// buildProfile renders one labeled fact per line. Missing values render as
// explicit placeholders so absence stays a searchable signal.
func buildProfile(record catalog.Record) string {
	var b strings.Builder

	writeFact(&b, "Product Name", orPlaceholder(record.Name, "N/A"))
	writeFact(&b, "Category", orPlaceholder(record.Category, "N/A"))
	writeFact(&b, "Vendor", orPlaceholder(record.Vendor, "N/A"))
	writeFact(&b, "Description", orPlaceholder(record.Description, "N/A"))
	writeFact(&b, "Price", fmt.Sprintf("Rs. %.2f", record.Price))

	if record.Quantity > 0 {
		writeFact(&b, "Stock", fmt.Sprintf("%d units", record.Quantity))
	} else {
		writeFact(&b, "Stock", "Out of stock")
	}

	if record.Rating != nil {
		writeFact(&b, "Average Rating", fmt.Sprintf("%.1f / 5", *record.Rating))
	} else {
		writeFact(&b, "Average Rating", "Not yet rated")
	}

	if len(record.Reviews) > 0 {
		writeFact(&b, "Reviews", strings.Join(record.Reviews, "; "))
	} else {
		writeFact(&b, "Reviews", "No reviews yet")
	}

	for _, key := range extraKeys(record.Extra) {
		writeFact(&b, key, record.Extra[key])
	}

	return strings.TrimSuffix(b.String(), "\n")
}

func buildMetadata(record catalog.Record) map[string]string {
	metadata := map[string]string{
		"name": record.Name,
	}

	if record.Category != "" {
		metadata["category"] = record.Category
	}

	if record.Vendor != "" {
		metadata["vendor"] = record.Vendor
	}

	return metadata
}

func writeFact(b *strings.Builder, label, value string) {
	b.WriteString(label)
	b.WriteString(": ")
	b.WriteString(value)
	b.WriteString("\n")
}

func orPlaceholder(value, placeholder string) string {
	if strings.TrimSpace(value) == "" {
		return placeholder
	}

	return value
}

// extraKeys returns the non-sensitive extra attribute names in sorted order.
func extraKeys(extra map[string]string) []string {
	if len(extra) == 0 {
		return nil
	}

	keys := make([]string, 0, len(extra))
	for key := range extra {
		if sensitiveField.MatchString(key) {
			continue
		}

		keys = append(keys, key)
	}

	sort.Strings(keys)
	return keys
}
