package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog"

	"github.com/kikiluvv/threadshorts/internal/source"
)

var ErrNoAPIKey = errors.New("openai api key not configured")

// RatingsResponse is the structured answer the model returns
type RatingsResponse struct {
	Ratings []Rating `json:"ratings" jsonschema_description:"One rating per thread, in any order"`
}

type Rating struct {
	ID    string `json:"id" jsonschema_description:"The thread id exactly as given"`
	Score int    `json:"score" jsonschema_description:"Engagement potential from 0 (boring) to 10 (viral)"`
}

// GenerateSchema generates a JSON schema for structured outputs
func GenerateSchema[T any]() interface{} {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

var ratingsSchema = GenerateSchema[RatingsResponse]()

const systemPrompt = `You pick Reddit threads for short narrated videos. Rate how likely each thread title is to hook a viewer in the first seconds: curiosity, emotion and relatability score high; niche, vague or low-effort titles score low. Answer only with the requested JSON.`

type LLMOptions struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
}

// LLMScorer asks a chat model to rate thread titles
type LLMScorer struct {
	logger zerolog.Logger
	client openai.Client
	opts   LLMOptions
}

func NewLLMScorer(logger zerolog.Logger, opts LLMOptions) (*LLMScorer, error) {
	if opts.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	if opts.Model == "" {
		opts.Model = "gpt-4o"
	}
	if opts.Temperature == 0 {
		opts.Temperature = 0.5
	}

	clientOpts := []option.RequestOption{option.WithAPIKey(opts.APIKey)}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}
	return &LLMScorer{
		logger: logger.With().Str("component", "llm-scorer").Logger(),
		client: openai.NewClient(clientOpts...),
		opts:   opts,
	}, nil
}

func (l *LLMScorer) Score(ctx context.Context, threads []source.Thread) ([]float64, error) {
	if len(threads) == 0 {
		return nil, nil
	}

	var b strings.Builder
	b.WriteString("Rate these threads:\n")
	for _, t := range threads {
		fmt.Fprintf(&b, "- id=%s r/%s: %s\n", t.ID, t.Subreddit, t.Title)
	}

	completion, err := l.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(b.String()),
		},
		Model:       l.opts.Model,
		Temperature: openai.Float(l.opts.Temperature),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        "thread_ratings",
					Description: openai.String("Engagement ratings for reddit threads"),
					Schema:      ratingsSchema,
					Strict:      openai.Bool(true),
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return nil, errors.New("model returned no ratings")
	}

	var resp RatingsResponse
	if err := json.Unmarshal([]byte(completion.Choices[0].Message.Content), &resp); err != nil {
		return nil, fmt.Errorf("failed to parse ratings: %w", err)
	}

	byID := make(map[string]int, len(resp.Ratings))
	for _, r := range resp.Ratings {
		byID[r.ID] = min(max(r.Score, 0), 10)
	}

	scores := make([]float64, len(threads))
	missing := 0
	for i, t := range threads {
		s, ok := byID[t.ID]
		if !ok {
			missing++
		}
		scores[i] = float64(s) / 10
	}

	l.logger.Debug().
		Int("threads", len(threads)).
		Int("unrated", missing).
		Msg("rated threads")
	return scores, nil
}

func (l *LLMScorer) Close() error { return nil }
