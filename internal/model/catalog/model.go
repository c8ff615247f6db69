package catalog

import "github.com/Jose-cardos0/ONLYNEX/internal/model/chat"

// IdleClip is an ambient "typing" video that loops while nothing else plays.
type IdleClip struct {
	VideoURL string `json:"videoUrl" mapstructure:"videoUrl"`
}

// ActionClip is a button-triggered video that plays exactly once.
type ActionClip struct {
	ID       string `json:"id" mapstructure:"id"`
	Label    string `json:"label" mapstructure:"label"`
	VideoURL string `json:"videoUrl" mapstructure:"videoUrl"`
}

// Card is a reward card that can drop during a chat.
type Card struct {
	ID        string         `json:"id" mapstructure:"id"`
	MediaURL  string         `json:"mediaUrl" mapstructure:"mediaUrl"`
	MediaType chat.MediaType `json:"mediaType" mapstructure:"mediaType"`
}

// Ref converts the catalog card into the timeline representation.
func (c Card) Ref() chat.CardRef {
	return chat.CardRef{ID: c.ID, MediaURL: c.MediaURL, MediaType: c.MediaType}
}

// Prompt carries per-model guidance for LLM replies. It is read from the
// catalog file and never served to clients.
type Prompt struct {
	SystemPrompt     string   `mapstructure:"systemPrompt"`
	PersonalityHints []string `mapstructure:"personalityHints"`
	ContextRules     []string `mapstructure:"contextRules"`
}

// Model is a persona record as exposed by the catalog.
type Model struct {
	ID              string       `json:"id" mapstructure:"id"`
	Name            string       `json:"name" mapstructure:"name"`
	Title           string       `json:"title,omitempty" mapstructure:"title"`
	Tone            string       `json:"tone,omitempty" mapstructure:"tone"`
	PromptHint      string       `json:"promptHint,omitempty" mapstructure:"promptHint"`
	Bio             string       `json:"bio,omitempty" mapstructure:"bio"`
	AvatarURL       string       `json:"avatarUrl,omitempty" mapstructure:"avatarUrl"`
	VideosDigitando []IdleClip   `json:"videosDigitando" mapstructure:"videosDigitando"`
	VideosChat      []ActionClip `json:"videosChat" mapstructure:"videosChat"`
	Cards           []Card       `json:"cards" mapstructure:"cards"`
	Prompt          Prompt       `json:"-" mapstructure:"prompt"`
}

// ActionClip looks up a button clip by identifier.
func (m Model) ActionClip(id string) (ActionClip, bool) {
	for _, clip := range m.VideosChat {
		if clip.ID == id {
			return clip, true
		}
	}
	return ActionClip{}, false
}

// Seed provides the default models used when no catalog file is configured.
func Seed() []Model {
	return []Model{
		{
			ID:         "luna",
			Name:       "Luna",
			Title:      "A vizinha carioca",
			Tone:       "carinhosa, brincalhona, provocante",
			PromptHint: "Responda curto, com emojis, chamando o usuário de amor.",
			Bio:        "24 anos, apaixonada por praia e por uma boa conversa.",
			AvatarURL:  "https://cdn.onlynex.online/luna/img/avatar.jpg",
			VideosDigitando: []IdleClip{
				{VideoURL: "https://cdn.onlynex.online/luna/videosDigitando/typing-1.mp4"},
				{VideoURL: "https://cdn.onlynex.online/luna/videosDigitando/typing-2.mp4"},
			},
			VideosChat: []ActionClip{
				{ID: "intro", Label: "Oi!", VideoURL: "https://cdn.onlynex.online/luna/videosChat/intro.mp4"},
				{ID: "kiss", Label: "Beijo", VideoURL: "https://cdn.onlynex.online/luna/videosChat/kiss.mp4"},
				{ID: "wink", Label: "Piscadinha", VideoURL: "https://cdn.onlynex.online/luna/videosChat/wink.mp4"},
			},
			Cards: []Card{
				{ID: "luna-beach", MediaURL: "https://cdn.onlynex.online/luna/img/beach.jpg", MediaType: chat.MediaPhoto},
				{ID: "luna-sunset", MediaURL: "https://cdn.onlynex.online/luna/img/sunset.jpg", MediaType: chat.MediaPhoto},
				{ID: "luna-dance", MediaURL: "https://cdn.onlynex.online/luna/video/dance.mp4", MediaType: chat.MediaVideo},
			},
		},
		{
			ID:         "bianca",
			Name:       "Bianca",
			Title:      "A gamer de São Paulo",
			Tone:       "divertida, competitiva, carinhosa",
			PromptHint: "Use gírias de gamer e seja leve.",
			Bio:        "Streamer nas horas vagas, adora um desafio.",
			AvatarURL:  "https://cdn.onlynex.online/bianca/img/avatar.jpg",
			VideosDigitando: []IdleClip{
				{VideoURL: "https://cdn.onlynex.online/bianca/videosDigitando/typing-1.mp4"},
			},
			VideosChat: []ActionClip{
				{ID: "intro", Label: "Oi!", VideoURL: "https://cdn.onlynex.online/bianca/videosChat/intro.mp4"},
				{ID: "laugh", Label: "Risada", VideoURL: "https://cdn.onlynex.online/bianca/videosChat/laugh.mp4"},
			},
			Cards: []Card{
				{ID: "bianca-setup", MediaURL: "https://cdn.onlynex.online/bianca/img/setup.jpg", MediaType: chat.MediaPhoto},
				{ID: "bianca-cosplay", MediaURL: "https://cdn.onlynex.online/bianca/video/cosplay.mp4", MediaType: chat.MediaVideo},
			},
		},
		{
			ID:         "sofia",
			Name:       "Sofia",
			Title:      "A misteriosa",
			Tone:       "misteriosa, elegante",
			PromptHint: "Mantenha um ar de mistério e responda com poucas palavras.",
			Bio:        "Prefere mostrar do que contar.",
			AvatarURL:  "https://cdn.onlynex.online/sofia/img/avatar.jpg",
			VideosChat: []ActionClip{
				{ID: "intro", Label: "Oi!", VideoURL: "https://cdn.onlynex.online/sofia/videosChat/intro.mp4"},
			},
			Prompt: Prompt{
				SystemPrompt:     "Fale pouco e deixe o usuário curioso.",
				PersonalityHints: []string{"responde perguntas com outras perguntas"},
				ContextRules:     []string{"nunca revele o sobrenome nem a cidade"},
			},
		},
	}
}
