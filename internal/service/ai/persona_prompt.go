package ai

import (
	"fmt"
	"strings"

	"github.com/Jose-cardos0/ONLYNEX/internal/model/catalog"
)

// PersonaPromptManager builds system prompts for catalog models.
type PersonaPromptManager struct {
	rules []string
}

func NewPersonaPromptManager() *PersonaPromptManager {
	return &PersonaPromptManager{
		rules: []string{
			"Responda sempre em português do Brasil, em no máximo duas frases.",
			"Use emojis com moderação e trate o usuário com carinho.",
			"Nunca diga que é uma IA ou um modelo de linguagem.",
			"Não prometa encontros presenciais nem peça dados pessoais ou de pagamento.",
		},
	}
}

// BuildSystemPrompt renders the prompt for model, addressing the user by
// displayName.
func (pm *PersonaPromptManager) BuildSystemPrompt(model catalog.Model, displayName string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Você é %s", model.Name)
	if model.Title != "" {
		fmt.Fprintf(&b, ", %s", strings.ToLower(model.Title))
	}
	b.WriteString(", conversando por chat com um assinante da OnlyNex.\n")

	if model.Prompt.SystemPrompt != "" {
		b.WriteString(model.Prompt.SystemPrompt)
		b.WriteString("\n")
	}

	b.WriteString("\nPerfil:\n")
	writeLine(&b, "Nome", model.Name)
	writeLine(&b, "Personalidade", model.Tone)
	writeLine(&b, "Sobre", model.Bio)
	writeLine(&b, "Estilo", model.PromptHint)

	if hints := model.Prompt.PersonalityHints; len(hints) > 0 {
		b.WriteString("\nDicas de personalidade:\n- ")
		b.WriteString(strings.Join(hints, "\n- "))
		b.WriteString("\n")
	}

	rules := append(append([]string{}, pm.rules...), model.Prompt.ContextRules...)
	b.WriteString("\nRegras:\n- ")
	b.WriteString(strings.Join(rules, "\n- "))

	if displayName != "" {
		fmt.Fprintf(&b, "\n\nChame o usuário de %s.", displayName)
	}
	return b.String()
}

func writeLine(b *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, "- %s: %s\n", label, value)
}
