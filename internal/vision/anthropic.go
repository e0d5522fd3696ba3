package vision

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/maintainerd/gatekeeper/internal/types"
)

// AnthropicJudge implements Judge over the Anthropic Messages API.
type AnthropicJudge struct {
	client  *anthropic.Client
	model   string
	timeout time.Duration

	maxRetries     int
	initialBackoff time.Duration
}

var _ Judge = (*AnthropicJudge)(nil)

// JudgeConfig configures the Anthropic-backed judge.
type JudgeConfig struct {
	APIKey  string        // if empty, read from ANTHROPIC_API_KEY
	Model   string        // model identifier
	Timeout time.Duration // per-attempt timeout

	MaxRetries     int           // retries after the first attempt (default: 2)
	InitialBackoff time.Duration // backoff before the first retry (default: 1s)
}

// NewAnthropicJudge creates the Tier-3 judge client.
func NewAnthropicJudge(cfg JudgeConfig) (*AnthropicJudge, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
		}
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("judge model is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 2
	}
	backoff := cfg.InitialBackoff
	if backoff <= 0 {
		backoff = time.Second
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicJudge{
		client:         &client,
		model:          cfg.Model,
		timeout:        timeout,
		maxRetries:     maxRetries,
		initialBackoff: backoff,
	}, nil
}

// AssessPR judges a pull request against the vision document.
func (j *AnthropicJudge) AssessPR(ctx context.Context, pr *types.PullRequest, doc *Document) (*types.AlignmentResult, error) {
	return j.assess(ctx, buildPRPrompt(pr, doc))
}

// AssessIssue judges an issue against the vision document.
func (j *AnthropicJudge) AssessIssue(ctx context.Context, issue *types.Issue, doc *Document) (*types.AlignmentResult, error) {
	return j.assess(ctx, buildIssuePrompt(issue, doc))
}

func (j *AnthropicJudge) assess(ctx context.Context, prompt string) (*types.AlignmentResult, error) {
	var responseText string
	err := j.retryWithBackoff(ctx, func(attemptCtx context.Context) error {
		resp, apiErr := j.client.Messages.New(attemptCtx, anthropic.MessageNewParams{
			Model:     anthropic.Model(j.model),
			MaxTokens: 2048,
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			},
		})
		if apiErr != nil {
			return apiErr
		}
		responseText = ""
		for _, block := range resp.Content {
			if block.Type == "text" {
				responseText += block.Text
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic API call failed: %w", err)
	}

	parsed, err := parseAlignmentResponse(responseText)
	if err != nil {
		return nil, fmt.Errorf("parsing judge response: %w", err)
	}
	return parsed, nil
}

// retryWithBackoff runs fn with per-attempt timeouts and exponential
// backoff. Context cancellation wins over remaining retries.
func (j *AnthropicJudge) retryWithBackoff(ctx context.Context, fn func(context.Context) error) error {
	backoff := j.initialBackoff
	var lastErr error

	for attempt := 0; attempt <= j.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		attemptCtx, cancel := context.WithTimeout(ctx, j.timeout)
		err := fn(attemptCtx)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return fmt.Errorf("all %d attempts failed: %w", j.maxRetries+1, lastErr)
}
