package genai

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	sdk "google.golang.org/genai"
)

// Roles used in conversation contents.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Part is a text fragment of a message.
type Part struct {
	Text string `json:"text"`
}

// Content is one conversation turn.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// TextContent builds a single-part turn.
func TextContent(role, text string) Content {
	return Content{Role: role, Parts: []Part{{Text: text}}}
}

func (c Content) toSDK() *sdk.Content {
	parts := make([]*sdk.Part, len(c.Parts))
	for i, p := range c.Parts {
		parts[i] = &sdk.Part{Text: p.Text}
	}
	return &sdk.Content{Role: c.Role, Parts: parts}
}

// TextRequest is one chat completion.
type TextRequest struct {
	// Contents is the prior conversation followed by the new user turn.
	Contents          []Content
	SystemInstruction string
	Temperature       float64
	MaxOutputTokens   int
}

func (r TextRequest) config() *sdk.GenerateContentConfig {
	cfg := &sdk.GenerateContentConfig{
		Temperature:     sdk.Ptr(float32(r.Temperature)),
		MaxOutputTokens: int32(r.MaxOutputTokens),
	}
	if r.SystemInstruction != "" {
		cfg.SystemInstruction = &sdk.Content{Parts: []*sdk.Part{{Text: r.SystemInstruction}}}
	}
	return cfg
}

// replyText joins the text parts of the first candidate, skipping thoughts.
func replyText(resp *sdk.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p == nil || p.Thought {
			continue
		}
		b.WriteString(p.Text)
	}
	return b.String()
}

// GenerateText returns the model reply. An empty string means the model
// produced no text.
func (c *Client) GenerateText(ctx context.Context, req TextRequest) (_ string, err error) {
	ctx, span := c.startSpan(ctx, "genai.GenerateText",
		attribute.String("genai.model", c.textModel),
		attribute.Int("genai.turns", len(req.Contents)),
	)
	defer func() { endSpan(span, err) }()

	client, err := c.session(ctx)
	if err != nil {
		return "", err
	}
	contents := make([]*sdk.Content, len(req.Contents))
	for i, content := range req.Contents {
		contents[i] = content.toSDK()
	}
	resp, err := client.Models.GenerateContent(ctx, c.textModel, contents, req.config())
	if err != nil {
		return "", wrapError(err, "generate content")
	}
	return replyText(resp), nil
}
