package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/notedex/notedex/internal/service"
)

const (
	// DefaultChatModel is the OpenAI model used for answer synthesis
	DefaultChatModel = openai.GPT4oMini
	// DefaultMaxChunkChars caps how much of each chunk goes into the prompt
	DefaultMaxChunkChars = 1500
)

var (
	// ErrEmptyQuestion is returned when the question is empty
	ErrEmptyQuestion = errors.New("question cannot be empty")
	// ErrNoChunks is returned when no source chunks are given
	ErrNoChunks = errors.New("at least one source chunk is required")
)

// ChatAPI defines the interface for chat completion
type ChatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Client turns ranked chunks into answer bullet lines via the OpenAI
// chat API. It implements service.Summarizer.
type Client struct {
	api           ChatAPI
	model         string
	maxChunkChars int
}

type Config struct {
	APIKey        string
	Model         string
	MaxChunkChars int
}

// NewClient creates a new summarization client using defaults.
func NewClient(apiKey string) *Client {
	return NewClientWithConfig(Config{APIKey: apiKey})
}

// NewClientWithConfig creates a new summarization client with explicit configuration.
func NewClientWithConfig(cfg Config) *Client {
	model := cfg.Model
	if model == "" {
		model = DefaultChatModel
	}
	maxChunkChars := cfg.MaxChunkChars
	if maxChunkChars <= 0 {
		maxChunkChars = DefaultMaxChunkChars
	}
	return &Client{
		api:           openai.NewClient(cfg.APIKey),
		model:         model,
		maxChunkChars: maxChunkChars,
	}
}

const systemPrompt = `You summarize internal documentation. Answer the question using ONLY the provided sources. Reply with short bullet lines, one fact per line, each starting with "- ". If the sources do not answer the question, reply with nothing.`

// Summarize asks the model for bullet lines grounded in the given chunks.
func (c *Client) Summarize(ctx context.Context, question string, chunks []service.RankedChunk) ([]string, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuestion
	}
	if len(chunks) == 0 {
		return nil, ErrNoChunks
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: c.buildPrompt(question, chunks)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("no completion choices returned")
	}

	return parseBullets(resp.Choices[0].Message.Content), nil
}

func (c *Client) buildPrompt(question string, chunks []service.RankedChunk) string {
	var b strings.Builder
	b.WriteString("Question: ")
	b.WriteString(question)
	b.WriteString("\n\nSources:\n")
	for i, chunk := range chunks {
		text := chunk.Text
		if len(text) > c.maxChunkChars {
			text = text[:c.maxChunkChars]
		}
		fmt.Fprintf(&b, "[%d] %s#%s\n%s\n\n", i+1, chunk.Path, chunk.Heading, text)
	}
	return b.String()
}

// parseBullets normalizes the completion into "- " prefixed lines,
// dropping blanks.
func parseBullets(content string) []string {
	lines := strings.Split(content, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		line = strings.TrimLeft(line, "-*• ")
		if line == "" {
			continue
		}
		out = append(out, "- "+line)
	}
	return out
}
