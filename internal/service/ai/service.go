// Package ai wraps the generation backend behind a single prompt-in,
// text-out call.
package ai

import (
	"context"
	"fmt"
	"log"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/arcwright/gamemaster/internal/config"
)

// Service runs prompts through the configured chat model.
type Service struct {
	chain compose.Runnable[map[string]any, *schema.Message]
}

// NewService builds the model chain once. The chain pairs a system message
// (role instructions) with a user message (the assembled prompt).
func NewService(ctx context.Context, cfg config.AIConfig) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &Service{chain: runnable}, nil
}

// Generate produces narrative text for the given prompt under the given role
// instructions. Failures are turn-scoped; callers surface them to the user.
func (s *Service) Generate(ctx context.Context, userPrompt, instructions string) (string, error) {
	response, err := s.chain.Invoke(ctx, map[string]any{
		"system": instructions,
		"query":  userPrompt,
	})
	if err != nil {
		return "", fmt.Errorf("failed to run generation chain: %w", err)
	}

	log.Printf("[ai] generated response, length=%d", len(response.Content))
	return response.Content, nil
}
