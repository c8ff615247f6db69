package response

// Category names, in match order.
const (
	Greetings     = "greetings"
	GoodMorning   = "goodMorning"
	GoodAfternoon = "goodAfternoon"
	GoodNight     = "goodNight"
	HowAreYou     = "howAreYou"
	Compliments   = "compliments"
	Content       = "content"
	PrivateChat   = "privateChat"
	Love          = "love"
	AboutMe       = "aboutMe"
	Goodbye       = "goodbye"
	Thanks        = "thanks"
	Flirty        = "flirty"
)

// DefaultCategories returns the built-in categories in match order.
//
// Greetings come first, so "oi, bom dia" is answered as a greeting, and any
// input containing "ola"/"oi" as a substring is a greeting too.
func DefaultCategories() []Category {
	return []Category{
		{
			Name:     Greetings,
			Keywords: []string{"oi", "olá", "ola", "hey", "eae", "e aí", "e ai", "oie", "oii"},
			Replies: []string{
				"Oi amor! 💕 Que bom te ver por aqui!",
				"Oii! Tudo bem com você? 😘",
				"Hey! Estava esperando você aparecer 💖",
				"Oi lindinho! Como posso te ajudar hoje? 😊",
			},
		},
		{
			Name:     GoodMorning,
			Keywords: []string{"bom dia", "bomdia"},
			Replies: []string{
				"Bom dia, amor! ☀️ Acordou pensando em mim?",
				"Bom diaa! 🌅 Espero que seu dia seja incrível!",
				"Bom dia, lindo! 💕 Já tomou café?",
				"Bom dia! ☕ Que bom começar o dia falando com você!",
			},
		},
		{
			Name:     GoodAfternoon,
			Keywords: []string{"boa tarde", "boatarde"},
			Replies: []string{
				"Boa tarde, amor! 🌤️ Como está sendo seu dia?",
				"Boa tardee! 💕 Que prazer te ver por aqui!",
				"Boa tarde, lindo! O que você aprontou hoje? 😏",
			},
		},
		{
			Name:     GoodNight,
			Keywords: []string{"boa noite", "boanoite"},
			Replies: []string{
				"Boa noite, amor! 🌙 Pronto pra relaxar?",
				"Boa noitee! 💕 Estava com saudades!",
				"Boa noite! ✨ Vim fazer sua noite mais especial!",
			},
		},
		{
			Name:     HowAreYou,
			Keywords: []string{"tudo bem", "como vai", "como você está", "como voce esta", "td bem", "tdb"},
			Replies: []string{
				"Tô ótima, ainda mais agora falando com você! 😊",
				"Super bem! E você, amor? 💕",
				"Maravilhosa! Pronta pra te entreter 😘",
				"Estou muito bem! Adoro quando você aparece! 💖",
			},
		},
		{
			Name:     Compliments,
			Keywords: []string{"linda", "gostosa", "maravilhosa", "perfeita", "bonita", "tesão", "gata"},
			Replies: []string{
				"Aww, que fofo você! 🥰 Obrigada, amor!",
				"Você me deixa sem graça! 😳💕",
				"Obrigada, lindo! Você também é demais! 💖",
				"Awn, assim você me conquista! 😘",
				"Que amor! Fico feliz que você gosta! 🥰",
			},
		},
		{
			Name:     Content,
			Keywords: []string{"foto", "video", "vídeo", "conteudo", "conteúdo", "ver mais", "mais fotos"},
			Replies: []string{
				"Tenho muito conteúdo exclusivo pra você! 📸 Dá uma olhada na minha galeria!",
				"Quer ver mais? 😏 Tenho várias surpresas te esperando!",
				"Vou postar mais conteúdo exclusivo em breve, fica de olho! 💕",
				"Minha galeria está cheia de novidades! Confere lá! 📸✨",
			},
		},
		{
			Name:     PrivateChat,
			Keywords: []string{"camera", "câmera", "privado", "live", "ao vivo", "chamada"},
			Replies: []string{
				"Podemos marcar uma chamada privada! 📹 Me chama inbox!",
				"Adoro fazer lives exclusivas! 💕 Fica de olho nos meus horários!",
				"Câmera privada? 😏 Isso é muito especial pra mim!",
				"Vamos agendar algo especial só pra nós dois? 💖",
			},
		},
		{
			Name:     Love,
			Keywords: []string{"te amo", "amor", "paixão", "apaixonado", "apaixonada", "coração"},
			Replies: []string{
				"Aww, você é muito fofo! 💕",
				"Amor! Você me faz sorrir! 🥰",
				"Que lindo! Adoro nossos momentos juntos! 💖",
				"Você é muito especial pra mim! 😘",
			},
		},
		{
			Name:     AboutMe,
			Keywords: []string{"quantos anos", "idade", "onde mora", "onde você mora", "de onde", "cidade"},
			Replies: []string{
				"Tenho 24 anos, amor! 💕",
				"Sou do Brasil, e você? 🇧🇷",
				"Adoro manter um pouco de mistério... 😏💕",
				"Algumas coisas são segredo! Mas posso te contar mais no privado 😘",
			},
		},
		{
			Name:     Goodbye,
			Keywords: []string{"tchau", "bye", "até", "ate", "fui", "vou indo", "tenho que ir"},
			Replies: []string{
				"Tchau, amor! 💕 Volta logo!",
				"Até mais, lindo! Vou sentir saudades! 😘",
				"Bye! 💖 Não demore pra voltar, tá?",
				"Até breve! Foi ótimo falar com você! 🥰",
			},
		},
		{
			Name:     Thanks,
			Keywords: []string{"obrigado", "obrigada", "valeu", "thanks", "vlw"},
			Replies: []string{
				"De nada, amor! 💕",
				"Imagina! Sempre que precisar! 😘",
				"Por nada, lindo! É um prazer! 💖",
				"Disponha! 🥰",
			},
		},
		{
			Name:     Flirty,
			Keywords: []string{"solteira", "namorando", "namora", "casada", "ficante"},
			Replies: []string{
				"Estou aqui só pra você, amor! 😏💕",
				"Meu coração está disponível... 💖",
				"Depende... você está interessado? 😘",
				"Sou toda sua quando estamos aqui! 🥰",
			},
		},
	}
}

// DefaultReplies is the pool used when no category matches.
func DefaultReplies() []string {
	return []string{
		"Hmm, interessante! Me conta mais, amor! 💕",
		"Adorei falar com você! 😘",
		"Você é muito legal! Continue me contando coisas! 💖",
		"Que papo bom! Adoro conversar com você! 🥰",
		"Me manda uma foto sua! Quero te conhecer melhor! 😊",
		"Você está muito quieto... conta algo sobre você! 💕",
	}
}
