// Package openaichat talks to an OpenAI-compatible chat-completions
// endpoint. It performs exactly one outbound call per Complete invocation;
// retry and breaker policy belong to the caller.
package openaichat

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/complyline/assessor/internal/infrastructure/resilience"
)

// ErrMalformedResponse marks an upstream reply that was syntactically
// valid HTTP but missing the expected message content.
var ErrMalformedResponse = errors.New("malformed upstream response")

type Options struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	// Timeout bounds each completion call independently of the caller's
	// own HTTP timeout.
	Timeout time.Duration
	// Executor, when set, wraps each call with retry and breaker policy.
	Executor *resilience.Executor
}

type Client struct {
	opts       Options
	httpClient *http.Client
}

func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 45 * time.Second
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	return &Client{
		opts: opts,
		// Client-level timeout is a backstop; the per-call context
		// deadline in Complete is the operative bound.
		httpClient: &http.Client{Timeout: opts.Timeout + 5*time.Second},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Stream      bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	messages := make([]chatMessage, 0, 2)
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, chatMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: userPrompt})

	request := chatRequest{
		Model:       c.opts.Model,
		Messages:    messages,
		Temperature: c.opts.Temperature,
		MaxTokens:   c.opts.MaxTokens,
	}

	var content string
	call := func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()

		var response chatResponse
		if err := c.postJSON(callCtx, "/v1/chat/completions", request, &response, "complete"); err != nil {
			return err
		}
		if len(response.Choices) == 0 {
			return ErrMalformedResponse
		}
		content = strings.TrimSpace(response.Choices[0].Message.Content)
		if content == "" {
			return ErrMalformedResponse
		}
		return nil
	}

	var err error
	if c.opts.Executor != nil {
		err = c.opts.Executor.Execute(ctx, "llm.complete", call, ClassifyError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return "", err
	}
	return content, nil
}
