package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/freshbazaar/assistant/provider"
)

const defaultTimeout = 30 * time.Second

// Client talks to an OpenAI-compatible endpoint and implements both
// provider.Embedder and provider.Generator. It is safe for concurrent use
// and is meant to be constructed once per process.
func NewClient(cfg provider.Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("api key is required")
	}

	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = string(openai.SmallEmbedding3)
	}

	if cfg.ChatModel == "" {
		cfg.ChatModel = openai.GPT4oMini
	}

	if cfg.Timeout.Duration() <= 0 {
		cfg.Timeout = provider.Duration(defaultTimeout)
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &Client{
		api: openai.NewClientWithConfig(clientConfig),
		cfg: cfg,
	}, nil
}

type Client struct {
	api *openai.Client
	cfg provider.Config
}

func (c *Client) Dimension() int {
	return c.cfg.Dimension
}

func (c *Client) Embed(ctx context.Context, text string, mode provider.EmbedMode) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("text is empty")
	}

	switch mode {
	case provider.EmbedModeDocument:
		text = c.cfg.DocumentPrefix + text
	case provider.EmbedModeQuery:
		text = c.cfg.QueryPrefix + text
	default:
		return nil, fmt.Errorf("unknown embed mode: %s", mode)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout.Duration())
	defer cancel()

	req := openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(c.cfg.EmbeddingModel),
	}

	if c.cfg.Dimension > 0 {
		req.Dimensions = c.cfg.Dimension
	}

	resp, err := c.api.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, wrapErr("embedding", err)
	}

	if len(resp.Data) == 0 {
		return nil, wrapErr("embedding", errors.New("empty embedding response"))
	}

	embedding := resp.Data[0].Embedding
	if c.cfg.Dimension > 0 && len(embedding) != c.cfg.Dimension {
		return nil, wrapErr("embedding", fmt.Errorf(
			"model returned %d dimensions, expected %d", len(embedding), c.cfg.Dimension))
	}

	return embedding, nil
}

func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout.Duration())
	defer cancel()

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.cfg.ChatModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	})

	if err != nil {
		return "", wrapErr("generation", err)
	}

	if len(resp.Choices) == 0 {
		return "", wrapErr("generation", errors.New("empty completion response"))
	}

	return resp.Choices[0].Message.Content, nil
}

func wrapErr(name string, err error) error {
	perr := &provider.Error{
		Provider: name,
		Err:      err,
	}

	if errors.Is(err, context.DeadlineExceeded) {
		perr.Retryable = true
		return perr
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		status := apiErr.HTTPStatusCode
		if status == http.StatusTooManyRequests || status >= http.StatusInternalServerError {
			perr.Retryable = true
		}
	}

	return perr
}
