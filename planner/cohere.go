package planner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"

	"slidestudio/types"
)

// Planner produces a plan from a request.
type Planner interface {
	Plan(ctx context.Context, req Request) (*types.PresentationPlan, error)
}

// CompleteFunc sends a prompt to a model and returns its text reply.
type CompleteFunc func(ctx context.Context, prompt string) (string, error)

// CoherePlanner generates plans with Cohere chat.
type CoherePlanner struct {
	complete CompleteFunc
	backoff  Backoff
}

// NewCoherePlanner creates a planner. baseURL overrides the API endpoint when set.
func NewCoherePlanner(apiKey, model, baseURL string) *CoherePlanner {
	httpClient := &http.Client{Timeout: 120 * time.Second}
	client := cohereclient.NewClient(
		cohereclient.WithToken(apiKey),
		cohereclient.WithHTTPClient(httpClient),
	)
	if baseURL != "" {
		client = cohereclient.NewClient(
			cohereclient.WithToken(apiKey),
			cohereclient.WithHTTPClient(httpClient),
			cohereclient.WithBaseURL(baseURL),
		)
	}

	complete := func(ctx context.Context, prompt string) (string, error) {
		resp, err := client.Chat(ctx, &cohere.ChatRequest{
			Message:     prompt,
			Model:       cohere.String(model),
			Temperature: cohere.Float64(0.4),
		})
		if err != nil {
			return "", err
		}
		if resp == nil {
			return "", errors.New("cohere chat returned empty response")
		}
		return resp.Text, nil
	}
	return NewPlannerWith(complete)
}

// NewPlannerWith creates a planner over any completion function.
func NewPlannerWith(complete CompleteFunc) *CoherePlanner {
	return &CoherePlanner{complete: complete, backoff: DefaultBackoff()}
}

// Plan implements Planner. Rate-limited calls are retried with exponential backoff.
func (p *CoherePlanner) Plan(ctx context.Context, req Request) (*types.PresentationPlan, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, errors.New("planner: empty input text")
	}
	req = req.Normalize()
	prompt := BuildPrompt(req)

	var reply string
	err := p.backoff.Retry(ctx, isRateLimited, func() error {
		var err error
		reply, err = p.complete(ctx, prompt)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("plan generation failed: %w", err)
	}

	plan, err := types.ParsePlan([]byte(reply))
	if err != nil {
		return nil, err
	}
	log.Printf("✅ [planner] %q: %d slide(s), tone %s", plan.Theme, len(plan.Slides), req.Tone)
	return plan, nil
}

func isRateLimited(err error) bool {
	var tooMany *cohere.TooManyRequestsError
	if errors.As(err, &tooMany) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(strings.ToLower(msg), "rate limit")
}
