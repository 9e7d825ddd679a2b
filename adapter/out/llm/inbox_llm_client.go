// Package llm implements the AI extraction and classification ports on
// OpenAI chat completions.
package llm

import (
	"context"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"

	"inbox_server/pkg/logger"
)

const DefaultModel = "gpt-4o-mini"

type ClientConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
	MaxRetries  int
}

// Client wraps the OpenAI client with a circuit breaker and bounded retries.
// The breaker keeps a dead upstream from absorbing every batch's budget.
type Client struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	timeout     time.Duration
	maxRetries  int
	breaker     *gobreaker.CircuitBreaker
	log         *logger.Logger
}

func NewClient(cfg ClientConfig, log *logger.Logger) *Client {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 2048
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 3
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openai",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("[llm.Client] breaker %s: %s -> %s", name, from, to)
		},
	})

	return &Client{
		client:      openai.NewClient(cfg.APIKey),
		model:       model,
		maxTokens:   maxTokens,
		temperature: float32(cfg.Temperature),
		timeout:     timeout,
		maxRetries:  maxRetries,
		breaker:     breaker,
		log:         log,
	}
}

// CompleteJSON sends a system+user prompt and asks for a JSON object reply.
func (c *Client) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}

		out, err := c.breaker.Execute(func() (interface{}, error) {
			callCtx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()

			resp, err := c.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
				Model:       c.model,
				MaxTokens:   c.maxTokens,
				Temperature: c.temperature,
				Messages: []openai.ChatCompletionMessage{
					{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
					{Role: openai.ChatMessageRoleUser, Content: userPrompt},
				},
				ResponseFormat: &openai.ChatCompletionResponseFormat{
					Type: openai.ChatCompletionResponseFormatTypeJSONObject,
				},
			})
			if err != nil {
				return nil, err
			}
			if len(resp.Choices) == 0 {
				return "{}", nil
			}
			return resp.Choices[0].Message.Content, nil
		})
		if err == nil {
			return out.(string), nil
		}
		lastErr = err
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			// no point hammering an open breaker
			return "", err
		}
		c.log.WithError(err).Warn("[llm.Client] completion attempt %d/%d failed", attempt+1, c.maxRetries)
	}
	return "", lastErr
}

// trimJSONFence strips markdown code fences some models wrap around JSON.
func trimJSONFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// truncate caps prompt payloads so one huge email cannot blow the context.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
