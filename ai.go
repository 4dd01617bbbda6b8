package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/aktagon/llmkit/anthropic/agents"
)

const (
	aiMaxAttempts  = 3
	aiInitialDelay = 5 * time.Second

	// Pacing between consecutive AI calls. This is deliberate request
	// spacing, not error-driven backoff.
	aiPacingDelay = 4 * time.Second

	aiMaxTokens   = 8192
	aiTemperature = 0.2
)

// AIClient wraps the chat agent with fixed pacing between calls and a
// bounded, cancellable retry for transient failures.
type AIClient struct {
	chat       func(prompt string) (string, error)
	pace       time.Duration
	retryDelay time.Duration

	mu       sync.Mutex
	lastCall time.Time
}

// NewAIClient creates a client backed by the Anthropic chat agent.
func NewAIClient(apiKey string) (*AIClient, error) {
	agent, err := agents.New(apiKey)
	if err != nil {
		return nil, fmt.Errorf("creating chat agent: %w", err)
	}

	return &AIClient{
		chat: func(prompt string) (string, error) {
			response, err := agent.Chat(prompt, &agents.ChatOptions{
				MaxTokens:   aiMaxTokens,
				Temperature: aiTemperature,
			})
			if err != nil {
				return "", err
			}
			return response.Text, nil
		},
		pace:       aiPacingDelay,
		retryDelay: aiInitialDelay,
	}, nil
}

// Chat sends a prompt and returns the raw response text. Calls are spaced at
// least the pacing interval apart; transient failures are retried up to
// aiMaxAttempts with exponential backoff. The context cancels both the pacing
// wait and the backoff sleeps.
func (c *AIClient) Chat(ctx context.Context, prompt string) (string, error) {
	if err := c.waitForPace(ctx); err != nil {
		return "", err
	}

	delay := c.retryDelay
	if delay == 0 {
		delay = aiInitialDelay
	}
	var lastErr error
	for attempt := 1; attempt <= aiMaxAttempts; attempt++ {
		text, err := c.chat(prompt)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if attempt < aiMaxAttempts {
			log.Printf("✗ AI call failed (attempt %d/%d): %v, retrying in %s", attempt, aiMaxAttempts, err, delay)
			if err := sleepContext(ctx, delay); err != nil {
				return "", err
			}
			delay *= 2
		}
	}
	return "", fmt.Errorf("AI call failed after %d attempts: %w", aiMaxAttempts, lastErr)
}

func (c *AIClient) waitForPace(ctx context.Context) error {
	c.mu.Lock()
	wait := c.pace - time.Since(c.lastCall)
	c.lastCall = time.Now().Add(wait)
	c.mu.Unlock()

	if wait > 0 {
		return sleepContext(ctx, wait)
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// stripCodeFence unwraps a response that arrived inside a fenced code block.
// Responses without a fence are returned trimmed.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)

	fence := "```json"
	idx := strings.Index(s, fence)
	if idx < 0 {
		fence = "```"
		idx = strings.Index(s, fence)
	}
	if idx < 0 {
		return s
	}

	rest := s[idx+len(fence):]
	if end := strings.Index(rest, "```"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}
