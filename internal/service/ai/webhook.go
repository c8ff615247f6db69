package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Jose-cardos0/ONLYNEX/internal/model/chat"
)

var (
	ErrEmptyReply        = errors.New("webhook returned an empty body")
	ErrUnrecognizedShape = errors.New("webhook reply has no recognised shape")
)

type webhookRequest struct {
	ModelID   string         `json:"modelId"`
	ModelName string         `json:"modelName"`
	Message   string         `json:"message"`
	UserID    string         `json:"userId"`
	UserName  string         `json:"userName"`
	History   []chat.Message `json:"history"`
	Timestamp string         `json:"timestamp"`
}

// WebhookResponder posts the chat context to an n8n style webhook.
type WebhookResponder struct {
	url        string
	httpClient *http.Client
	now        func() time.Time
}

// NewWebhookResponder returns a responder for url. The per-call deadline
// comes from the caller's context; client may be nil.
func NewWebhookResponder(url string, client *http.Client) *WebhookResponder {
	if client == nil {
		client = &http.Client{}
	}
	return &WebhookResponder{url: url, httpClient: client, now: time.Now}
}

func (w *WebhookResponder) Respond(ctx context.Context, req ReplyContext) (string, error) {
	history := req.RecentHistory
	if history == nil {
		history = []chat.Message{}
	}

	payload := webhookRequest{
		ModelID:   req.ModelID,
		ModelName: req.ModelName,
		Message:   req.UserMessage,
		UserID:    req.UserIdentity,
		UserName:  req.UserDisplayName,
		History:   history,
		Timestamp: w.now().UTC().Format(time.RFC3339Nano),
	}

	respBody, err := w.post(ctx, payload)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(string(respBody)) == "" {
		return "", ErrEmptyReply
	}

	var decoded any
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		// Plain text replies are used verbatim.
		return string(respBody), nil
	}

	reply, ok := ExtractReply(decoded)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnrecognizedShape, truncate(string(respBody), 200))
	}
	return reply, nil
}

// HealthCheck posts {"healthCheck": true} and expects a 2xx answer.
func (w *WebhookResponder) HealthCheck(ctx context.Context) error {
	_, err := w.post(ctx, map[string]bool{"healthCheck": true})
	return err
}

func (w *WebhookResponder) post(ctx context.Context, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("webhook returned %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}
	return respBody, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
