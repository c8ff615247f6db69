// Package cli holds the chatsim subcommands.
package cli

import (
	"context"
	"io"
	"log"
	"sync"

	"github.com/joho/godotenv"

	"github.com/Jose-cardos0/ONLYNEX/internal/app"
	"github.com/Jose-cardos0/ONLYNEX/internal/config"
)

// loadApp reads .env and the environment and builds the services.
func loadApp(ctx context.Context) (*app.App, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("[cli] no .env loaded: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg)
}

// syncWriter serialises writes from the event printer and the prompt loop.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
