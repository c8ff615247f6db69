package ai

import (
	"context"
	"fmt"
	"log"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/Jose-cardos0/ONLYNEX/internal/model/catalog"
	"github.com/Jose-cardos0/ONLYNEX/internal/model/chat"
)

// ArkResponder generates replies with an LLM through an eino chain instead
// of the webhook.
type ArkResponder struct {
	models  catalog.Store
	prompts *PersonaPromptManager
	chain   compose.Runnable[map[string]any, *schema.Message]
}

// NewArkResponder compiles the prompt -> model chain around chatModel.
func NewArkResponder(ctx context.Context, chatModel model.BaseChatModel, models catalog.Store) (*ArkResponder, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &ArkResponder{
		models:  models,
		prompts: NewPersonaPromptManager(),
		chain:   runnable,
	}, nil
}

func (r *ArkResponder) Respond(ctx context.Context, req ReplyContext) (string, error) {
	response, err := r.chain.Invoke(ctx, r.buildChainInput(req))
	if err != nil {
		return "", fmt.Errorf("failed to run AI chain: %w", err)
	}

	log.Printf("[ai] generated reply model=%s length=%d", req.ModelID, len(response.Content))
	return response.Content, nil
}

func (r *ArkResponder) buildChainInput(req ReplyContext) map[string]any {
	record, ok := r.models.FindByID(req.ModelID)
	if !ok {
		record = catalog.Model{ID: req.ModelID, Name: req.ModelName}
	}

	return map[string]any{
		"system":  r.prompts.BuildSystemPrompt(record, req.UserDisplayName),
		"history": buildHistoryMessages(req.RecentHistory),
		"query":   req.UserMessage,
	}
}

func buildHistoryMessages(messages []chat.Message) []*schema.Message {
	recent := chat.Latest(messages, HistoryLimit)
	if len(recent) == 0 {
		return nil
	}

	history := make([]*schema.Message, 0, len(recent))
	for _, msg := range recent {
		if msg.Text == "" {
			continue
		}
		switch msg.Sender {
		case chat.SenderUser:
			history = append(history, schema.UserMessage(msg.Text))
		case chat.SenderPeer:
			history = append(history, schema.AssistantMessage(msg.Text, nil))
		}
	}
	return history
}
