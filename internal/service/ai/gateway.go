// Package ai produces persona replies. A remote responder (webhook or LLM)
// is tried first; the local keyword matcher always backs it up so callers
// get a displayable reply no matter what.
package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/Jose-cardos0/ONLYNEX/internal/analysis/response"
	"github.com/Jose-cardos0/ONLYNEX/internal/model/chat"
)

const (
	// ApologyReply is shown when the remote fails and local fallback is off.
	ApologyReply       = "Ops, tive um probleminha aqui! 😅 Tenta de novo, amor? 💕"
	DefaultDisplayName = "amor"
	HistoryLimit       = 10
	DefaultTimeout     = 20 * time.Second
)

var ErrResponderPanic = errors.New("responder panicked")

// ReplyContext is everything a responder may use to produce a reply.
type ReplyContext struct {
	ModelID         string
	ModelName       string
	UserMessage     string
	UserIdentity    string
	UserDisplayName string
	RecentHistory   []chat.Message
}

func (r ReplyContext) complete() bool {
	return strings.TrimSpace(r.ModelID) != "" &&
		strings.TrimSpace(r.ModelName) != "" &&
		strings.TrimSpace(r.UserMessage) != "" &&
		strings.TrimSpace(r.UserIdentity) != ""
}

// Responder produces a reply remotely. Errors are never shown to users.
type Responder interface {
	Respond(ctx context.Context, req ReplyContext) (string, error)
}

// HealthChecker is implemented by responders that can report their health.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Options configures a Gateway.
type Options struct {
	Responder     Responder
	LocalFallback bool
	Timeout       time.Duration
}

// Gateway resolves replies for chat sessions.
type Gateway struct {
	matcher       *response.Matcher
	responder     Responder
	localFallback bool
	timeout       time.Duration
}

func NewGateway(matcher *response.Matcher, opts Options) *Gateway {
	if matcher == nil {
		matcher = response.NewMatcher(nil, nil, nil)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Gateway{
		matcher:       matcher,
		responder:     opts.Responder,
		localFallback: opts.LocalFallback,
		timeout:       timeout,
	}
}

// Remote reports whether a remote responder is configured.
func (g *Gateway) Remote() bool {
	return g.responder != nil
}

// HealthCheck pings the remote responder. Without one it reports false.
func (g *Gateway) HealthCheck(ctx context.Context) bool {
	if g.responder == nil {
		return false
	}
	checker, ok := g.responder.(HealthChecker)
	if !ok {
		return true
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	if err := checker.HealthCheck(ctx); err != nil {
		log.Printf("[gateway] health check failed: %v", err)
		return false
	}
	return true
}

// GetReply never fails: incomplete requests and a missing remote use the
// matcher directly, remote failures use the matcher or the apology.
func (g *Gateway) GetReply(ctx context.Context, req ReplyContext) string {
	if !req.complete() {
		log.Printf("[gateway] incomplete context model=%q user=%q, using local replies", req.ModelID, req.UserIdentity)
		return g.localReply(req.UserMessage)
	}
	if g.responder == nil {
		return g.localReply(req.UserMessage)
	}

	if strings.TrimSpace(req.UserDisplayName) == "" {
		req.UserDisplayName = DefaultDisplayName
	}
	req.RecentHistory = chat.Latest(req.RecentHistory, HistoryLimit)

	reply, err := g.callRemote(ctx, req)
	if err == nil {
		return reply
	}

	log.Printf("[gateway] remote reply failed model=%s: %v", req.ModelID, err)
	if g.localFallback {
		return g.localReply(req.UserMessage)
	}
	return ApologyReply
}

func (g *Gateway) localReply(input string) string {
	if name, ok := g.matcher.Category(input); ok {
		log.Printf("[gateway] local reply category=%s", name)
	}
	return g.matcher.Match(input)
}

func (g *Gateway) callRemote(ctx context.Context, req ReplyContext) (reply string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrResponderPanic, r)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	reply, err = g.responder.Respond(ctx, req)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(reply) == "" {
		return "", ErrEmptyReply
	}
	return reply, nil
}
