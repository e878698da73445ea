// Package llm provides Groq-backed post classification.
//
// This file implements the Classifier abstraction over the Groq chat
// completions API (OpenAI wire protocol, so the standard OpenAI client works
// with a swapped base URL). Two operations are exposed: Classify, which maps
// raw post content to a niche verdict, and GenerateIcebreakers, which drafts
// short openers for a lead.
//
// Failure policy: the model is advisory. Any transport error, timeout, or
// malformed completion degrades to a safe default rather than an error, so a
// flaky upstream can never stall an ingest batch.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/leadfeed/go-leads-backend/internal/config"
	"github.com/leadfeed/go-leads-backend/internal/domain"
)

// Classification is the model's verdict on a single post.
type Classification struct {
	HasIntent    bool   `json:"has_intent"`
	Niche        string `json:"niche"`
	IsHighSignal bool   `json:"is_high_signal"`
}

// Classifier scores post content and drafts outreach openers.
type Classifier interface {
	Classify(ctx context.Context, content string) Classification
	GenerateIcebreakers(ctx context.Context, content, niche string) []string
}

// FallbackIcebreaker is returned when the model produces no usable openers.
const FallbackIcebreaker = "Hey! Saw your post and would love to help. Let me know if you'd like to chat."

const classifySystemPrompt = `You categorize social media posts by hiring intent.
A post has hiring intent when the author is looking to pay someone for work.
Respond with JSON only, in this exact shape:
{"niche":"writing"|"video"|"dev"|"none","is_high_signal":true|false}
Rules:
- "writing": ghostwriting, copywriting, newsletters, content writing.
- "video": video editing, short-form clips, YouTube production.
- "dev": software, websites, apps, automation, technical work.
- "none": everything else, including people offering services.
- is_high_signal is true only when a budget, rate, or urgency is stated.`

const icebreakerSystemPrompt = `You write short, casual first messages to someone who posted that they are hiring.
The sender works in the "%s" niche. Reference what the post actually asks for.
No emojis, no hashtags, under 200 characters each.
Respond with JSON only: {"icebreakers":["...","...","..."]}`

// GroqClassifier talks to a Groq (or protocol-compatible) endpoint.
type GroqClassifier struct {
	Client  *openai.Client
	Model   string
	Timeout time.Duration
}

// NewGroqClassifier builds a classifier from provider config. BaseURL is
// honored when set, which is how tests point it at a local server.
func NewGroqClassifier(cfg config.GroqConfig) *GroqClassifier {
	cc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		cc.BaseURL = cfg.BaseURL
	}
	return &GroqClassifier{
		Client:  openai.NewClientWithConfig(cc),
		Model:   cfg.Model,
		Timeout: cfg.Timeout,
	}
}

// Classify maps post content to a niche verdict. It never returns an error:
// on any failure the zero-intent default is used, so the post is skipped as
// no-intent rather than failing its batch.
func (g *GroqClassifier) Classify(ctx context.Context, content string) Classification {
	tr := otel.Tracer("llm/GroqClassifier")
	ctx, span := tr.Start(ctx, "Classify",
		trace.WithAttributes(attribute.Int("content.len", len(content))),
	)
	defer span.End()

	safe := Classification{HasIntent: false, Niche: domain.NicheNone, IsHighSignal: false}

	raw, err := g.complete(ctx, classifySystemPrompt, content, 0.1, 100)
	if err != nil {
		span.SetAttributes(attribute.Bool("llm.fallback", true))
		return safe
	}

	var out struct {
		Niche        string `json:"niche"`
		IsHighSignal bool   `json:"is_high_signal"`
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		span.SetAttributes(attribute.Bool("llm.fallback", true))
		return safe
	}

	niche := strings.ToLower(strings.TrimSpace(out.Niche))
	if !domain.ValidNiche(niche) {
		return safe
	}
	return Classification{
		HasIntent:    true,
		Niche:        niche,
		IsHighSignal: out.IsHighSignal,
	}
}

// GenerateIcebreakers drafts up to three openers for a lead. On failure or an
// empty completion it returns a single generic opener.
func (g *GroqClassifier) GenerateIcebreakers(ctx context.Context, content, niche string) []string {
	tr := otel.Tracer("llm/GroqClassifier")
	ctx, span := tr.Start(ctx, "GenerateIcebreakers",
		trace.WithAttributes(attribute.String("lead.niche", niche)),
	)
	defer span.End()

	raw, err := g.complete(ctx, fmt.Sprintf(icebreakerSystemPrompt, niche), content, 0.7, 500)
	if err != nil {
		span.SetAttributes(attribute.Bool("llm.fallback", true))
		return []string{FallbackIcebreaker}
	}

	var out struct {
		Icebreakers []string `json:"icebreakers"`
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		span.SetAttributes(attribute.Bool("llm.fallback", true))
		return []string{FallbackIcebreaker}
	}

	lines := make([]string, 0, len(out.Icebreakers))
	for _, ib := range out.Icebreakers {
		if s := strings.TrimSpace(ib); s != "" {
			lines = append(lines, s)
		}
	}
	if len(lines) == 0 {
		return []string{FallbackIcebreaker}
	}
	if len(lines) > 3 {
		lines = lines[:3]
	}
	return lines
}

// complete issues one chat completion bounded by the configured timeout and
// returns the first choice's content.
func (g *GroqClassifier) complete(ctx context.Context, system, user string, temperature float32, maxTokens int) (string, error) {
	if g.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.Timeout)
		defer cancel()
	}

	resp, err := g.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.Model,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty completion")
	}
	return resp.Choices[0].Message.Content, nil
}
