// Package nlp implements the external intent-resolution fallback on top of
// the OpenAI chat-completion API. The model is asked for a strict JSON
// classification; anything that fails to parse is reported as an error and
// the caller degrades to the unknown intent.
package nlp

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/rs/zerolog/log"

	"github.com/jmfuentes/tallyup/internal/intent"
)

// systemPrompt pins the model to the closed intent vocabulary and a strict
// JSON response shape. Messages outside the vocabulary must come back as
// "unknown" rather than a guess.
const systemPrompt = `You classify WhatsApp messages from a small-business owner
using a debt-collection assistant. Reply with ONLY valid JSON, no text outside
it, in exactly this shape:
{"intent":"...","client_name":"","amount":0,"note":"","phone":""}
intent must be one of: add_debt, list_debts, prioritize, remind, mark_paid,
save_phone, pricing, want_pro, help, support, greeting, unknown.
Fill only the fields the intent needs; leave the rest empty. If unsure, use
"unknown". If you break the format the answer is discarded.`

// classification mirrors the JSON shape requested from the model. All fields
// are optional on the wire; missing ones decode to zero values.
type classification struct {
	Intent     string  `json:"intent"`
	ClientName string  `json:"client_name"`
	Amount     float64 `json:"amount"`
	Note       string  `json:"note"`
	Phone      string  `json:"phone"`
}

// Client wraps the OpenAI API as an intent.Fallback.
type Client struct {
	client *openai.Client
	model  string
}

// NewClient constructs the fallback resolver. Model defaults to GPT4oMini
// when empty.
func NewClient(apiKey, model string) *Client {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &Client{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// Classify sends text to the model and maps the JSON verdict onto the closed
// intent set. The caller owns the timeout via ctx.
func (c *Client) Classify(ctx context.Context, text string) (intent.Intent, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	})
	if err != nil {
		return intent.Intent{}, err
	}
	if len(resp.Choices) == 0 {
		return intent.Intent{}, errors.New("nlp: empty choices")
	}

	raw := strings.TrimSpace(resp.Choices[0].Message.Content)
	// Some models wrap JSON in a code fence despite instructions.
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var cls classification
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &cls); err != nil {
		log.Debug().Str("raw", raw).Msg("nlp: unparseable classification")
		return intent.Intent{}, err
	}

	return intent.Intent{
		Kind:       intent.Kind(strings.TrimSpace(cls.Intent)),
		ClientName: strings.TrimSpace(cls.ClientName),
		Amount:     cls.Amount,
		Note:       strings.TrimSpace(cls.Note),
		Phone:      strings.TrimSpace(cls.Phone),
	}, nil
}
