package ai

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/Jose-cardos0/ONLYNEX/internal/model/catalog"
	"github.com/Jose-cardos0/ONLYNEX/internal/model/chat"
)

type fakeChatModel struct {
	mu    sync.Mutex
	input []*schema.Message
	reply string
}

func (f *fakeChatModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.mu.Lock()
	f.input = input
	f.mu.Unlock()
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeChatModel) Stream(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	f.mu.Lock()
	f.input = input
	f.mu.Unlock()
	return schema.StreamReaderFromArray([]*schema.Message{schema.AssistantMessage(f.reply, nil)}), nil
}

func TestArkResponderBuildsPersonaConversation(t *testing.T) {
	fake := &fakeChatModel{reply: "Oi, amor! 😘"}
	models := catalog.NewMemoryStore(catalog.Seed())

	responder, err := NewArkResponder(context.Background(), fake, models)
	if err != nil {
		t.Fatalf("NewArkResponder err: %v", err)
	}

	req := validContext("tudo bem?")
	req.UserDisplayName = "Ana"
	req.RecentHistory = []chat.Message{
		{ID: 1, Sender: chat.SenderPeer, Kind: chat.KindText, Text: "Oi Ana!"},
		{ID: 2, Sender: chat.SenderUser, Kind: chat.KindText, Text: "oi"},
		{ID: 3, Sender: chat.SenderPeer, Kind: chat.KindCard, Card: &chat.CardRef{ID: "luna-beach"}},
	}

	got, err := responder.Respond(context.Background(), req)
	if err != nil {
		t.Fatalf("Respond err: %v", err)
	}
	if got != "Oi, amor! 😘" {
		t.Fatalf("Respond = %q", got)
	}

	fake.mu.Lock()
	input := fake.input
	fake.mu.Unlock()

	if len(input) != 4 {
		t.Fatalf("expected system + 2 history + query, got %d messages", len(input))
	}
	if input[0].Role != schema.System || !strings.Contains(input[0].Content, "Luna") {
		t.Fatalf("system prompt missing persona: %q", input[0].Content)
	}
	if !strings.Contains(input[0].Content, "Chame o usuário de Ana") {
		t.Fatalf("system prompt missing display name: %q", input[0].Content)
	}
	if input[1].Role != schema.Assistant || input[2].Role != schema.User {
		t.Fatalf("history roles out of order: %s, %s", input[1].Role, input[2].Role)
	}
	if input[3].Role != schema.User || input[3].Content != "tudo bem?" {
		t.Fatalf("unexpected query message: %+v", input[3])
	}
}

func TestBuildSystemPromptUsesCatalogPrompt(t *testing.T) {
	pm := NewPersonaPromptManager()

	record, _ := catalog.NewMemoryStore(catalog.Seed()).FindByID("sofia")
	prompt := pm.BuildSystemPrompt(record, "")

	for _, want := range []string{"Você é Sofia", "Fale pouco", "responde perguntas com outras perguntas", "nunca revele o sobrenome", "misteriosa", "Nunca diga que é uma IA"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
	if strings.Contains(prompt, "Chame o usuário") {
		t.Fatal("prompt must not address an empty display name")
	}
}

func TestBuildSystemPromptWithoutCatalogPrompt(t *testing.T) {
	record, _ := catalog.NewMemoryStore(catalog.Seed()).FindByID("luna")
	prompt := NewPersonaPromptManager().BuildSystemPrompt(record, "Ana")

	if strings.Contains(prompt, "Dicas de personalidade") {
		t.Fatalf("unexpected hints section:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Chame o usuário de Ana.") {
		t.Fatalf("prompt missing display name:\n%s", prompt)
	}
}
