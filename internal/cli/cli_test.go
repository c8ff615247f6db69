package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Jose-cardos0/ONLYNEX/internal/app"
	"github.com/Jose-cardos0/ONLYNEX/internal/config"
	"github.com/Jose-cardos0/ONLYNEX/internal/service/chat"
)

func newApp(t *testing.T) *app.App {
	t.Helper()
	a, err := app.New(context.Background(), &config.Config{
		Webhook:      config.WebhookConfig{LocalFallback: true, Timeout: time.Second},
		Session:      config.SessionConfig{CardDropInterval: time.Hour, CardDropDwell: time.Hour, GreetingDelay: time.Hour, QueueSize: 4},
		Ledger:       config.LedgerConfig{Backend: config.BackendMemory},
		RateLimit:    config.RateLimitConfig{MessagesPerSecond: 10, Burst: 10},
		Subscription: config.SubscriptionConfig{Period: time.Hour, DefaultPassword: "onlynex"},
	})
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestRunChatScript(t *testing.T) {
	a := newApp(t)
	script := strings.Join([]string{
		"/action intro",
		"/ended",
		"/save 999",
		"/save abc",
		"/dance",
		"/snapshot",
		"/quit",
		"never sent",
	}, "\n")

	var out bytes.Buffer
	err := runChat(context.Background(), a, "luna", chat.User{ID: "ana@mail.com", DisplayName: "Ana"}, strings.NewReader(script), &out)
	require.NoError(t, err)

	text := out.String()
	require.Contains(t, text, "Chat with Luna")
	require.Contains(t, text, "▶ playing intro")
	require.Contains(t, text, chat.ErrMessageNotFound.Error())
	require.Contains(t, text, "usage: /save <messageID>")
	require.Contains(t, text, "unknown command /dance")
	require.Contains(t, text, "messages=0")
	require.Contains(t, text, "session closed")
	require.Zero(t, a.Chat.Len())
}

func TestRunChatUnknownModel(t *testing.T) {
	a := newApp(t)
	err := runChat(context.Background(), a, "ghost", chat.User{ID: "ana"}, strings.NewReader(""), &bytes.Buffer{})
	require.ErrorIs(t, err, chat.ErrModelNotFound)
}

func TestPrintCollection(t *testing.T) {
	a := newApp(t)
	ctx := context.Background()

	var out bytes.Buffer
	require.NoError(t, printCollection(ctx, a, "ana@mail.com", "", &out))
	require.Contains(t, out.String(), "has no saved cards")

	_, err := a.Ledger.Claim(ctx, "ana@mail.com", "luna", "luna-dance")
	require.NoError(t, err)
	_, err = a.Ledger.Claim(ctx, "ana@mail.com", "luna", "luna-beach")
	require.NoError(t, err)

	out.Reset()
	require.NoError(t, printCollection(ctx, a, "ana@mail.com", "luna", &out))
	require.Equal(t, "luna: 2 cards\n  - luna-beach\n  - luna-dance\n", out.String())

	out.Reset()
	require.NoError(t, printCollection(ctx, a, "ana@mail.com", "", &out))
	require.Contains(t, out.String(), "ana@mail.com: 2 cards saved\n")
	require.Contains(t, out.String(), "luna: luna-beach, luna-dance")
}
