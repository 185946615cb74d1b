// Package llm provides chat model backends for the voice service.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/adiwarman/lantun/domain/entities"
)

const (
	defaultModel      = "gemini-2.0-flash"
	generationRetries = 3
	requestTimeout    = 30 * time.Second
)

// GeminiResponder produces assistant replies with Google's Gemini API.
type GeminiResponder struct {
	client *genai.Client
	logger *zap.Logger
	model  string
}

// NewGeminiResponder creates a Gemini-backed responder. Pass an empty
// model to use the default flash model.
func NewGeminiResponder(ctx context.Context, logger *zap.Logger, apiKey, model string) (*GeminiResponder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if model == "" {
		model = defaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiResponder{
		client: client,
		logger: logger,
		model:  model,
	}, nil
}

// Respond generates a reply to prompt given the conversation so far.
func (g *GeminiResponder) Respond(ctx context.Context, instructions string, history []entities.Message, prompt string) (string, error) {
	contents := historyToContents(instructions, history)
	contents = append(contents, genai.NewContentFromText(prompt, genai.RoleUser))

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	var resp *genai.GenerateContentResponse
	var err error
	for attempt := 0; attempt < generationRetries; attempt++ {
		resp, err = g.client.Models.GenerateContent(ctx, g.model, contents, nil)
		if err == nil {
			break
		}
		g.logger.Warn("Failed to generate reply, retrying",
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(time.Duration(attempt+1) * time.Second):
		}
	}
	if err != nil {
		return "", fmt.Errorf("failed to generate reply: %w", err)
	}

	text := extractText(resp)
	if text == "" {
		return "", fmt.Errorf("model returned no text")
	}
	return text, nil
}

// historyToContents flattens the chat log into the request contents.
// Instructions ride along as a leading user turn since the flash model
// has no dedicated system role here.
func historyToContents(instructions string, history []entities.Message) []*genai.Content {
	var contents []*genai.Content
	if instructions != "" {
		contents = append(contents, genai.NewContentFromText(instructions, genai.RoleUser))
	}
	for _, msg := range history {
		var role genai.Role = genai.RoleUser
		if msg.Role == entities.RoleAssistant {
			role = genai.RoleModel
		}
		if strings.TrimSpace(msg.Content) == "" {
			continue
		}
		contents = append(contents, genai.NewContentFromText(msg.Content, role))
	}
	return contents
}

func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	return b.String()
}
