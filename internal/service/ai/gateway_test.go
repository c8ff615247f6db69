package ai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Jose-cardos0/ONLYNEX/internal/analysis/response"
	"github.com/Jose-cardos0/ONLYNEX/internal/model/chat"
)

func newMatcher(seed uint64) *response.Matcher {
	return response.NewMatcher(rand.New(rand.NewPCG(seed, seed)), nil, nil)
}

func validContext(text string) ReplyContext {
	return ReplyContext{
		ModelID:      "luna",
		ModelName:    "Luna",
		UserMessage:  text,
		UserIdentity: "ana@mail.com",
	}
}

func newWebhookServer(t *testing.T, status int, body string) (*httptest.Server, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		captured.set(raw)
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, captured
}

type capturedRequest struct {
	mu   sync.Mutex
	body []byte
}

func (c *capturedRequest) set(b []byte) {
	c.mu.Lock()
	c.body = b
	c.mu.Unlock()
}

func (c *capturedRequest) decode(t *testing.T) map[string]any {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	var payload map[string]any
	if err := json.Unmarshal(c.body, &payload); err != nil {
		t.Fatalf("decode webhook payload: %v", err)
	}
	return payload
}

func TestGetReplyStripsTemplateMarker(t *testing.T) {
	srv, _ := newWebhookServer(t, http.StatusOK, `{"response":"=Olá"}`)
	gw := NewGateway(newMatcher(1), Options{Responder: NewWebhookResponder(srv.URL, nil), LocalFallback: true})

	if got := gw.GetReply(context.Background(), validContext("oi")); got != "Olá" {
		t.Fatalf("GetReply = %q, want %q", got, "Olá")
	}
}

func TestGetReplyFallsBackOnServerError(t *testing.T) {
	srv, _ := newWebhookServer(t, http.StatusInternalServerError, `boom`)
	matcher := newMatcher(2)
	gw := NewGateway(matcher, Options{Responder: NewWebhookResponder(srv.URL, nil), LocalFallback: true})

	got := gw.GetReply(context.Background(), validContext("bom dia"))
	if !matcher.InCategory(response.GoodMorning, got) {
		t.Fatalf("expected a goodMorning fallback, got %q", got)
	}
}

func TestGetReplyApologisesWithoutFallback(t *testing.T) {
	srv, _ := newWebhookServer(t, http.StatusBadGateway, ``)
	gw := NewGateway(newMatcher(3), Options{Responder: NewWebhookResponder(srv.URL, nil), LocalFallback: false})

	if got := gw.GetReply(context.Background(), validContext("oi")); got != ApologyReply {
		t.Fatalf("GetReply = %q, want apology", got)
	}
}

func TestGetReplyWithoutRemoteMatchesLocally(t *testing.T) {
	for _, input := range []string{"oi", "bom dia", "tchau", "", "qualquer coisa"} {
		local := newMatcher(9)
		gw := NewGateway(newMatcher(9), Options{LocalFallback: true})
		if got, want := gw.GetReply(context.Background(), validContext(input)), local.Match(input); got != want {
			t.Fatalf("GetReply(%q) = %q, want matcher reply %q", input, got, want)
		}
	}
	if NewGateway(newMatcher(9), Options{}).Remote() {
		t.Fatal("gateway without responder must not report a remote")
	}
}

func TestGetReplyBypassesRemoteForIncompleteContext(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		io.WriteString(w, `{"response":"remote"}`)
	}))
	defer srv.Close()

	matcher := newMatcher(4)
	gw := NewGateway(matcher, Options{Responder: NewWebhookResponder(srv.URL, nil), LocalFallback: true})

	req := validContext("obrigado")
	req.UserIdentity = ""
	got := gw.GetReply(context.Background(), req)
	if calls != 0 {
		t.Fatalf("remote called %d times for incomplete context", calls)
	}
	if !matcher.InCategory(response.Thanks, got) {
		t.Fatalf("expected a thanks reply, got %q", got)
	}
}

func TestGetReplyUsesRawTextBody(t *testing.T) {
	srv, _ := newWebhookServer(t, http.StatusOK, `=texto puro`)
	gw := NewGateway(newMatcher(5), Options{Responder: NewWebhookResponder(srv.URL, nil), LocalFallback: true})

	if got := gw.GetReply(context.Background(), validContext("oi")); got != "=texto puro" {
		t.Fatalf("GetReply = %q, want raw body", got)
	}
}

func TestGetReplyUnrecognisedShapeFallsBack(t *testing.T) {
	srv, _ := newWebhookServer(t, http.StatusOK, `{"foo":"bar"}`)
	matcher := newMatcher(6)
	gw := NewGateway(matcher, Options{Responder: NewWebhookResponder(srv.URL, nil), LocalFallback: true})

	if got := gw.GetReply(context.Background(), validContext("te amo")); !matcher.InCategory(response.Love, got) {
		t.Fatalf("expected a love reply, got %q", got)
	}
}

func TestWebhookPayload(t *testing.T) {
	srv, captured := newWebhookServer(t, http.StatusOK, `{"message":"ok"}`)
	gw := NewGateway(newMatcher(7), Options{Responder: NewWebhookResponder(srv.URL, nil), LocalFallback: true})

	req := validContext("oi")
	base := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 15; i++ {
		req.RecentHistory = append(req.RecentHistory, chat.Message{
			ID: int64(i + 1), Sender: chat.SenderUser, Kind: chat.KindText,
			Text: "msg", Timestamp: base.Add(time.Duration(i) * time.Second),
		})
	}

	if got := gw.GetReply(context.Background(), req); got != "ok" {
		t.Fatalf("GetReply = %q", got)
	}

	payload := captured.decode(t)
	if payload["modelId"] != "luna" || payload["modelName"] != "Luna" || payload["message"] != "oi" {
		t.Fatalf("unexpected payload identity fields: %v", payload)
	}
	if payload["userId"] != "ana@mail.com" || payload["userName"] != DefaultDisplayName {
		t.Fatalf("unexpected user fields: %v", payload)
	}
	history, ok := payload["history"].([]any)
	if !ok || len(history) != HistoryLimit {
		t.Fatalf("history len = %d, want %d", len(history), HistoryLimit)
	}
	first := history[0].(map[string]any)
	if first["id"].(float64) != 6 {
		t.Fatalf("history must keep the latest entries in order, first id = %v", first["id"])
	}
	if _, err := time.Parse(time.RFC3339Nano, payload["timestamp"].(string)); err != nil {
		t.Fatalf("timestamp not ISO8601: %v", err)
	}
}

func TestGetReplyTimesOut(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	matcher := newMatcher(8)
	gw := NewGateway(matcher, Options{
		Responder:     NewWebhookResponder(srv.URL, nil),
		LocalFallback: true,
		Timeout:       50 * time.Millisecond,
	})

	got := gw.GetReply(context.Background(), validContext("oi"))
	if !matcher.InCategory(response.Greetings, got) {
		t.Fatalf("expected greeting fallback after timeout, got %q", got)
	}
}

type panicResponder struct{}

func (panicResponder) Respond(context.Context, ReplyContext) (string, error) {
	panic("boom")
}

type errResponder struct{ err error }

func (r errResponder) Respond(context.Context, ReplyContext) (string, error) {
	return "", r.err
}

func (r errResponder) HealthCheck(context.Context) error { return r.err }

func TestGetReplyRecoversResponderPanic(t *testing.T) {
	gw := NewGateway(newMatcher(10), Options{Responder: panicResponder{}, LocalFallback: false})
	if got := gw.GetReply(context.Background(), validContext("oi")); got != ApologyReply {
		t.Fatalf("GetReply = %q, want apology", got)
	}
}

func TestHealthCheck(t *testing.T) {
	ok, _ := newWebhookServer(t, http.StatusOK, `{}`)
	down, captured := newWebhookServer(t, http.StatusServiceUnavailable, ``)

	if !NewGateway(nil, Options{Responder: NewWebhookResponder(ok.URL, nil)}).HealthCheck(context.Background()) {
		t.Fatal("expected healthy webhook")
	}
	if NewGateway(nil, Options{Responder: NewWebhookResponder(down.URL, nil)}).HealthCheck(context.Background()) {
		t.Fatal("expected unhealthy webhook")
	}
	if captured.decode(t)["healthCheck"] != true {
		t.Fatal("health check must post healthCheck=true")
	}
	if NewGateway(nil, Options{}).HealthCheck(context.Background()) {
		t.Fatal("no remote means not healthy")
	}
	if NewGateway(nil, Options{Responder: errResponder{err: errors.New("down")}}).HealthCheck(context.Background()) {
		t.Fatal("checker error must report unhealthy")
	}
}
