package carddrop

// PhotoCaptions accompany photo cards.
func PhotoCaptions() []string {
	return []string{
		"Tirei essa foto pensando em você 📸💕",
		"Só você vai ver essa, tá? 😘",
		"Um presentinho exclusivo pra você! 🎁",
		"Gostou? Guarda na sua coleção 💖",
	}
}

// VideoCaptions accompany video cards.
func VideoCaptions() []string {
	return []string{
		"Gravei esse vídeo só pra você 🎥😏",
		"Aperta o play, amor! 🔥",
		"Um vídeo exclusivo pra deixar seu dia melhor 💕",
		"Esse aqui é especial... não mostra pra ninguém 🤫",
	}
}
