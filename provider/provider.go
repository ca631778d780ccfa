package provider

import (
	"context"
	"encoding/json"
	"time"

	"gopkg.in/yaml.v3"
)

type EmbedMode string

const (
	// EmbedModeDocument marks text being indexed into the knowledge base.
	EmbedModeDocument EmbedMode = "document"

	// EmbedModeQuery marks text used to search the knowledge base.
	// Asymmetric embedding models encode the two sides differently.
	EmbedModeQuery EmbedMode = "query"
)

// Embedder converts text into a fixed-dimension vector.
// Implementations are safe for concurrent use and do not cache.
type Embedder interface {
	Embed(ctx context.Context, text string, mode EmbedMode) ([]float32, error)
	Dimension() int
}

// Generator produces free text from a fully composed prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Error is returned for any transport, auth, rate-limit or timeout failure
// of a remote provider. Retryable reports whether the caller may usefully
// try again; the retry decision itself belongs to the caller.
type Error struct {
	Provider  string
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	return e.Provider + " provider: " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

type Config struct {
	BaseURL        string   `yaml:"baseURL"`
	APIKey         string   `yaml:"apiKey"`
	EmbeddingModel string   `yaml:"embeddingModel"`
	ChatModel      string   `yaml:"chatModel"`
	Dimension      int      `yaml:"dimension"`
	Timeout        Duration `yaml:"timeout"`

	// Instruction prefixes for asymmetric embedding models served through
	// OpenAI-compatible endpoints (e.g. "passage: " / "query: ").
	DocumentPrefix string `yaml:"documentPrefix"`
	QueryPrefix    string `yaml:"queryPrefix"`
}

type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d Duration) MarshalJSON() ([]byte, error) {
	str := d.Duration().String()
	return json.Marshal(str)
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	duration, err := time.ParseDuration(str)
	if err != nil {
		return err
	}

	*d = Duration(duration)
	return nil
}

func (d Duration) MarshalYAML() ([]byte, error) {
	str := d.Duration().String()
	return yaml.Marshal(str)
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var str string
	if err := value.Decode(&str); err != nil {
		return err
	}

	duration, err := time.ParseDuration(str)
	if err != nil {
		return err
	}

	*d = Duration(duration)
	return nil
}
