package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

const (
	defaultEmbeddingModel = "text-embedding-004"
	defaultChatModel      = "gemini-1.5-flash-latest"
	defaultMaxAttempts    = 3
	defaultRetryBaseDelay = 500 * time.Millisecond
)

var ErrMissingAPIKey = errors.New("gemini api key is required")

type Config struct {
	APIKey         string
	EmbeddingModel string
	ChatModel      string
	MaxAttempts    int
	RetryBaseDelay time.Duration
}

// Client implements ai.Embedder and ai.Generator against the Gemini API.
// Embedding calls are retried with exponential backoff since the provider
// rate-limits; generation is attempted once and failures surface to the
// caller.
type Client struct {
	client *genai.Client
	cfg    Config
	log    *zap.Logger
}

func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = defaultEmbeddingModel
	}

	if cfg.ChatModel == "" {
		cfg.ChatModel = defaultChatModel
	}

	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = defaultMaxAttempts
	}

	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = defaultRetryBaseDelay
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, err
	}

	log := zap.L().With(
		zap.String("provider", "gemini"),
	)

	return &Client{
		client: client,
		cfg:    cfg,
		log:    log,
	}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	var values []float32

	err := c.withRetry(ctx, "embed", func() error {
		em := c.client.EmbeddingModel(c.cfg.EmbeddingModel)

		res, err := em.EmbedContent(ctx, genai.Text(text))
		if err != nil {
			return err
		}

		if res.Embedding == nil || len(res.Embedding.Values) == 0 {
			return errors.New("empty embedding response")
		}

		values = res.Embedding.Values
		return nil
	})

	return values, err
}

func (c *Client) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var vectors [][]float32

	err := c.withRetry(ctx, "embed_many", func() error {
		em := c.client.EmbeddingModel(c.cfg.EmbeddingModel)

		batch := em.NewBatch()
		for _, text := range texts {
			batch.AddContent(genai.Text(text))
		}

		res, err := em.BatchEmbedContents(ctx, batch)
		if err != nil {
			return err
		}

		if len(res.Embeddings) != len(texts) {
			return fmt.Errorf("expected %d embeddings, got %d", len(texts), len(res.Embeddings))
		}

		vectors = make([][]float32, len(res.Embeddings))
		for i, embedding := range res.Embeddings {
			if embedding == nil || len(embedding.Values) == 0 {
				return fmt.Errorf("empty embedding at index %d", i)
			}

			vectors[i] = embedding.Values
		}

		return nil
	})

	return vectors, err
}

func (c *Client) Generate(ctx context.Context, instruction string, question string) (string, error) {
	model := c.client.GenerativeModel(c.cfg.ChatModel)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(instruction)},
	}

	session := model.StartChat()

	resp, err := session.SendMessage(ctx, genai.Text(question))
	if err != nil {
		return "", err
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("empty model response")
	}

	var answer strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			answer.WriteString(string(text))
		}
	}

	if answer.Len() == 0 {
		return "", errors.New("model response contained no text")
	}

	return answer.String(), nil
}

func (c *Client) withRetry(ctx context.Context, action string, fn func() error) error {
	var err error

	delay := c.cfg.RetryBaseDelay
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}

		if attempt == c.cfg.MaxAttempts {
			break
		}

		c.log.Warn("retrying after provider error",
			zap.String("action", action),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
	}

	return err
}
