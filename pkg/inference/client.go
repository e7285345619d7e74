// Package inference maps unknown spreadsheet headers onto canonical field
// names using a Claude model. Callers cache accepted results; the capability
// is idempotent per input string.
package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
)

// Guess is the best candidate for a header, with model confidence.
type Guess struct {
	Field      string  `json:"field"`
	Confidence float64 `json:"confidence"`
}

// Client defines the field-inference operations used by the mapper.
type Client interface {
	// InferField returns the best canonical field candidate for a raw
	// header, or nil when the model matches nothing. A nil Guess is not an
	// error.
	InferField(ctx context.Context, header string, candidates []string) (*Guess, error)
}

const systemPrompt = `You map messy spreadsheet column headers from logistics partners onto canonical field names. Pick the single closest candidate, or "none" if no candidate fits. Respond with a valid JSON object: {"field": "<candidate or none>", "confidence": <0.0-1.0>}`

const userPrompt = `Header: %q

Candidates:
%s`

// Options configures the inference client.
type Options struct {
	Model     string
	MaxTokens int64
}

// sdkClient implements Client using the official anthropic-sdk-go.
type sdkClient struct {
	client    sdk.Client
	model     string
	maxTokens int64
}

// NewClient creates an inference Client backed by the Anthropic SDK.
func NewClient(apiKey string, opts Options) Client {
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 256
	}
	return &sdkClient{
		client:    sdk.NewClient(option.WithAPIKey(apiKey)),
		model:     opts.Model,
		maxTokens: maxTokens,
	}
}

func (c *sdkClient) InferField(ctx context.Context, header string, candidates []string) (*Guess, error) {
	prompt := fmt.Sprintf(userPrompt, header, "- "+strings.Join(candidates, "\n- "))

	msg, err := c.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: c.maxTokens,
		System: []sdk.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(prompt)),
		},
		Temperature: sdk.Float(0),
	})
	if err != nil {
		return nil, eris.Wrap(err, "inference: create message")
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	guess, err := parseGuess(text)
	if err != nil {
		return nil, err
	}
	if guess == nil {
		return nil, nil
	}

	// Reject candidates the model made up.
	for _, cand := range candidates {
		if strings.EqualFold(cand, guess.Field) {
			guess.Field = cand
			return guess, nil
		}
	}
	return nil, nil
}

// parseGuess extracts the JSON object from the model response. Tolerates
// surrounding prose and code fences.
func parseGuess(text string) (*Guess, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, eris.Errorf("inference: no JSON object in response: %.80s", text)
	}

	var g Guess
	if err := json.Unmarshal([]byte(text[start:end+1]), &g); err != nil {
		return nil, eris.Wrap(err, "inference: unmarshal guess")
	}

	if g.Field == "" || strings.EqualFold(g.Field, "none") {
		return nil, nil
	}
	if g.Confidence < 0 {
		g.Confidence = 0
	}
	if g.Confidence > 1 {
		g.Confidence = 1
	}
	return &g, nil
}
