package chat_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Jose-cardos0/ONLYNEX/internal/analysis/response"
	"github.com/Jose-cardos0/ONLYNEX/internal/model/catalog"
	chatmodel "github.com/Jose-cardos0/ONLYNEX/internal/model/chat"
	"github.com/Jose-cardos0/ONLYNEX/internal/service/ai"
	"github.com/Jose-cardos0/ONLYNEX/internal/service/chat"
	"github.com/Jose-cardos0/ONLYNEX/internal/service/collection"
)

var t0 = time.Date(2025, 2, 14, 21, 0, 0, 0, time.UTC)

var ana = chat.User{ID: "ana@mail.com", DisplayName: "Ana"}

type harness struct {
	svc     *chat.Service
	ticks   chan time.Time
	ledger  *collection.Ledger
	matcher *response.Matcher

	mu       sync.Mutex
	greeters []func()
	delays   []time.Duration

	clockMu sync.Mutex
	clock   time.Time
}

func (h *harness) now() time.Time {
	h.clockMu.Lock()
	defer h.clockMu.Unlock()
	return h.clock
}

func (h *harness) advance(d time.Duration) time.Time {
	h.clockMu.Lock()
	defer h.clockMu.Unlock()
	h.clock = h.clock.Add(d)
	return h.clock
}

type harnessOption func(*harnessConfig)

type harnessConfig struct {
	replier    chat.Replier
	store      collection.Store
	models     []catalog.Model
	maxPerUser int
}

func withReplier(r chat.Replier) harnessOption {
	return func(c *harnessConfig) { c.replier = r }
}

func withStore(s collection.Store) harnessOption {
	return func(c *harnessConfig) { c.store = s }
}

func withModels(models ...catalog.Model) harnessOption {
	return func(c *harnessConfig) { c.models = models }
}

func withMaxPerUser(n int) harnessOption {
	return func(c *harnessConfig) { c.maxPerUser = n }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	hc := harnessConfig{store: collection.NewMemoryStore(), models: catalog.Seed()}
	for _, opt := range opts {
		opt(&hc)
	}

	h := &harness{ticks: make(chan time.Time), clock: t0}
	h.matcher = response.NewMatcher(rand.New(rand.NewPCG(11, 11)), nil, nil)
	if hc.replier == nil {
		hc.replier = ai.NewGateway(h.matcher, ai.Options{LocalFallback: true})
	}
	h.ledger = collection.NewLedger(hc.store).WithClock(func() time.Time { return t0 })

	var seed uint64
	var seedMu sync.Mutex
	cfg := chat.Config{
		Now: h.now,
		Rand: func() *rand.Rand {
			seedMu.Lock()
			defer seedMu.Unlock()
			seed++
			return rand.New(rand.NewPCG(seed, seed))
		},
		Ticks: func(time.Duration) (<-chan time.Time, func()) { return h.ticks, func() {} },
		AfterFunc: func(d time.Duration, f func()) func() bool {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.delays = append(h.delays, d)
			h.greeters = append(h.greeters, f)
			return func() bool { return true }
		},
		GreetingDelay: time.Second,
		IdleTTL:       30 * time.Minute,
		MaxPerUser:    hc.maxPerUser,
	}
	h.svc = chat.NewService(catalog.NewMemoryStore(hc.models), hc.replier, h.ledger, cfg)
	t.Cleanup(h.svc.CloseAll)
	return h
}

func (h *harness) open(t *testing.T, modelID string) (*chat.Session, <-chan chat.Event) {
	t.Helper()
	session, err := h.svc.Open(context.Background(), modelID, ana)
	require.NoError(t, err)
	events, cancel := session.Subscribe(64)
	t.Cleanup(cancel)
	return session, events
}

func waitFor(t *testing.T, events <-chan chat.Event, match func(chat.Event) bool) chat.Event {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				t.Fatal("event stream closed")
			}
			if match(ev) {
				return ev
			}
		case <-timeout:
			t.Fatal("timed out waiting for event")
		}
	}
}

func peerText(ev chat.Event) bool {
	return ev.Type == chat.EventMessage && ev.Message.Sender == chatmodel.SenderPeer && ev.Message.Kind == chatmodel.KindText
}

func cardMessage(ev chat.Event) bool {
	return ev.Type == chat.EventMessage && ev.Message.Kind == chatmodel.KindCard
}

func TestOpenSchedulesGreeting(t *testing.T) {
	h := newHarness(t)
	session, events := h.open(t, "luna")

	h.mu.Lock()
	require.Equal(t, []time.Duration{time.Second}, h.delays)
	greet := h.greeters[0]
	h.mu.Unlock()

	require.Empty(t, session.Snapshot().Messages, "greeting is delayed")
	greet()

	ev := waitFor(t, events, peerText)
	require.Equal(t, "Oi Ana! 💕 Que bom te ver por aqui! Como posso te ajudar hoje?", ev.Message.Text)
	require.Equal(t, chatmodel.PlaybackIdle, session.Snapshot().Playback.Mode)
}

func TestBomDiaGetsGoodMorningReply(t *testing.T) {
	h := newHarness(t)
	session, events := h.open(t, "luna")

	sent, err := session.Submit("bom dia")
	require.NoError(t, err)
	require.Equal(t, chatmodel.SenderUser, sent.Sender)

	ev := waitFor(t, events, peerText)
	require.True(t, h.matcher.InCategory(response.GoodMorning, ev.Message.Text), "reply %q", ev.Message.Text)

	messages := session.Snapshot().Messages
	require.Len(t, messages, 2)
	require.Equal(t, "bom dia", messages[0].Text)
	require.Equal(t, chatmodel.SenderPeer, messages[1].Sender)
	require.True(t, messages[1].Timestamp.After(messages[0].Timestamp))
	require.Greater(t, messages[1].ID, messages[0].ID)
}

func TestSubmitRejectsEmptyText(t *testing.T) {
	h := newHarness(t)
	session, _ := h.open(t, "luna")

	_, err := session.Submit("   ")
	require.ErrorIs(t, err, chat.ErrEmptyMessage)
}

type gatedReplier struct {
	started chan ai.ReplyContext
	release chan string
}

func newGatedReplier() *gatedReplier {
	return &gatedReplier{started: make(chan ai.ReplyContext, 8), release: make(chan string)}
}

func (g *gatedReplier) GetReply(ctx context.Context, req ai.ReplyContext) string {
	g.started <- req
	select {
	case reply := <-g.release:
		return reply
	case <-ctx.Done():
		return "cancelled"
	}
}

func TestTypingLastsForPendingCall(t *testing.T) {
	replier := newGatedReplier()
	h := newHarness(t, withReplier(replier))
	session, events := h.open(t, "luna")

	_, err := session.Submit("oi")
	require.NoError(t, err)

	<-replier.started
	waitFor(t, events, func(ev chat.Event) bool { return ev.Type == chat.EventTyping && *ev.Typing })
	require.True(t, session.Snapshot().Typing)

	replier.release <- "oi amor"
	waitFor(t, events, func(ev chat.Event) bool { return ev.Type == chat.EventTyping && !*ev.Typing })
	ev := waitFor(t, events, peerText)
	require.Equal(t, "oi amor", ev.Message.Text)
	require.False(t, session.Snapshot().Typing)
}

type echoReplier struct{}

func (echoReplier) GetReply(_ context.Context, req ai.ReplyContext) string {
	// later messages answer faster, so completion order would invert
	time.Sleep(time.Duration(10-len(req.RecentHistory)) * time.Millisecond)
	return "re: " + req.UserMessage
}

func TestRepliesFollowSubmissionOrder(t *testing.T) {
	h := newHarness(t, withReplier(echoReplier{}))
	session, events := h.open(t, "luna")

	for i := 0; i < 5; i++ {
		_, err := session.Submit(fmt.Sprintf("msg %d", i))
		require.NoError(t, err)
	}

	var replies []string
	for len(replies) < 5 {
		replies = append(replies, waitFor(t, events, peerText).Message.Text)
	}
	require.Equal(t, []string{"re: msg 0", "re: msg 1", "re: msg 2", "re: msg 3", "re: msg 4"}, replies)

	messages := session.Snapshot().Messages
	for i := 1; i < len(messages); i++ {
		require.True(t, messages[i].Timestamp.After(messages[i-1].Timestamp))
	}
}

func TestHistoryExcludesCurrentMessage(t *testing.T) {
	replier := newGatedReplier()
	h := newHarness(t, withReplier(replier))
	session, events := h.open(t, "luna")

	_, err := session.Submit("primeira")
	require.NoError(t, err)
	first := <-replier.started
	require.Empty(t, first.RecentHistory)
	require.Equal(t, "Ana", first.UserDisplayName)
	require.Equal(t, "Luna", first.ModelName)
	replier.release <- "resposta"
	waitFor(t, events, peerText)

	_, err = session.Submit("segunda")
	require.NoError(t, err)
	second := <-replier.started
	require.Len(t, second.RecentHistory, 2)
	require.Equal(t, "primeira", second.RecentHistory[0].Text)
	require.Equal(t, "resposta", second.RecentHistory[1].Text)
	replier.release <- "ok"
}

func TestReplyAfterCloseIsDiscarded(t *testing.T) {
	replier := newGatedReplier()
	h := newHarness(t, withReplier(replier))
	session, _ := h.open(t, "luna")

	_, err := session.Submit("oi")
	require.NoError(t, err)
	<-replier.started

	require.NoError(t, h.svc.Close(session.ID()))
	require.True(t, session.Closed())
	require.Empty(t, session.Snapshot().Messages)

	_, err = session.Submit("ainda aí?")
	require.ErrorIs(t, err, chat.ErrSessionClosed)
	_, err = h.svc.Get(session.ID())
	require.ErrorIs(t, err, chat.ErrSessionNotFound)
}

type panicReplier struct{}

func (panicReplier) GetReply(context.Context, ai.ReplyContext) string { panic("boom") }

func TestReplyPanicDegradesToApology(t *testing.T) {
	h := newHarness(t, withReplier(panicReplier{}))
	session, events := h.open(t, "luna")

	_, err := session.Submit("oi")
	require.NoError(t, err)
	ev := waitFor(t, events, peerText)
	require.Equal(t, ai.ApologyReply, ev.Message.Text)
}

func TestIntroClipPlaysOnceThenIdle(t *testing.T) {
	h := newHarness(t)
	session, _ := h.open(t, "luna")
	luna, _ := catalog.NewMemoryStore(catalog.Seed()).FindByID("luna")

	state, err := session.TriggerAction("intro")
	require.NoError(t, err)
	require.Equal(t, chatmodel.PlaybackOneShot, state.Mode)
	require.Equal(t, "intro", state.ActiveClipID)
	require.False(t, state.Loop)
	intro, _ := luna.ActionClip("intro")
	require.Equal(t, intro.VideoURL, state.ClipURL)

	state, err = session.PlaybackEnded()
	require.NoError(t, err)
	require.Equal(t, chatmodel.PlaybackIdle, state.Mode)
	require.Empty(t, state.ActiveClipID)
	require.True(t, state.Loop)
	require.True(t, slices.ContainsFunc(luna.VideosDigitando, func(c catalog.IdleClip) bool { return c.VideoURL == state.ClipURL }))

	again, err := session.PlaybackEnded()
	require.NoError(t, err)
	require.Equal(t, state, again, "ended while idle is a no-op")

	_, err = session.TriggerAction("missing")
	require.ErrorIs(t, err, chat.ErrClipNotFound)
	require.Empty(t, session.Snapshot().Messages, "actions add no timeline entries")
}

func singleCardModel() catalog.Model {
	return catalog.Model{
		ID:              "nina",
		Name:            "Nina",
		VideosDigitando: []catalog.IdleClip{{VideoURL: "idle.mp4"}},
		Cards:           []catalog.Card{{ID: "nina-pool", MediaURL: "pool.jpg", MediaType: chatmodel.MediaPhoto}},
	}
}

func TestCardDropAndSave(t *testing.T) {
	store := collection.NewMemoryStore()
	h := newHarness(t, withModels(singleCardModel()), withStore(store))
	session, events := h.open(t, "nina")

	h.ticks <- t0.Add(5 * time.Minute)
	ev := waitFor(t, events, cardMessage)
	require.Equal(t, "nina-pool", ev.Message.Card.ID)
	require.False(t, ev.Message.Saved)
	require.NotEmpty(t, ev.Message.Text)
	require.NotNil(t, session.Snapshot().LastCardEmission)

	saved, err := session.SaveCard(context.Background(), ev.Message.ID)
	require.NoError(t, err)
	require.True(t, saved.Saved)
	require.Equal(t, []string{"nina-pool"}, session.Snapshot().ClaimedCardIDs)

	_, err = session.SaveCard(context.Background(), ev.Message.ID)
	require.NoError(t, err)
	held, err := h.ledger.Query(context.Background(), ana.ID, "nina")
	require.NoError(t, err)
	require.Equal(t, 1, held.Len())

	h.ticks <- t0.Add(10 * time.Minute)
	again := waitFor(t, events, cardMessage)
	require.True(t, again.Message.Saved, "a card already held drops as saved")
}

func TestOpenMarksPreviouslyClaimedCards(t *testing.T) {
	store := collection.NewMemoryStore()
	ledger := collection.NewLedger(store)
	_, err := ledger.Claim(context.Background(), ana.ID, "nina", "nina-pool")
	require.NoError(t, err)

	h := newHarness(t, withModels(singleCardModel()), withStore(store))
	session, events := h.open(t, "nina")
	require.Equal(t, []string{"nina-pool"}, session.Snapshot().ClaimedCardIDs)

	h.ticks <- t0.Add(5 * time.Minute)
	ev := waitFor(t, events, cardMessage)
	require.True(t, ev.Message.Saved)
}

type downStore struct{ *collection.MemoryStore }

func (downStore) Add(context.Context, string, string, string, string, time.Time) (bool, error) {
	return false, errors.New("unavailable")
}

func TestSaveCardFailureLeavesMarkerUnset(t *testing.T) {
	h := newHarness(t, withModels(singleCardModel()), withStore(downStore{collection.NewMemoryStore()}))
	session, events := h.open(t, "nina")

	h.ticks <- t0.Add(5 * time.Minute)
	ev := waitFor(t, events, cardMessage)

	_, err := session.SaveCard(context.Background(), ev.Message.ID)
	require.ErrorIs(t, err, collection.ErrStoreUnavailable)

	snapshot := session.Snapshot()
	require.Empty(t, snapshot.ClaimedCardIDs)
	require.False(t, snapshot.Messages[0].Saved)
}

func TestSaveCardValidation(t *testing.T) {
	h := newHarness(t)
	session, events := h.open(t, "luna")

	msg, err := session.Submit("oi")
	require.NoError(t, err)
	waitFor(t, events, peerText)

	_, err = session.SaveCard(context.Background(), msg.ID)
	require.ErrorIs(t, err, chat.ErrNotACard)
	_, err = session.SaveCard(context.Background(), 999)
	require.ErrorIs(t, err, chat.ErrMessageNotFound)
}

func TestNoDropsWithoutCatalogCards(t *testing.T) {
	h := newHarness(t)
	session, _ := h.open(t, "sofia")

	select {
	case h.ticks <- t0.Add(time.Hour):
		t.Fatal("scheduler must not run for an empty card catalog")
	case <-time.After(50 * time.Millisecond):
	}
	require.Empty(t, session.Snapshot().Messages)
	require.Equal(t, chatmodel.PlaybackNoMedia, session.Snapshot().Playback.Mode)
}

func TestCloseEndsEventStream(t *testing.T) {
	h := newHarness(t)
	session, events := h.open(t, "luna")

	session.Close()
	waitFor(t, events, func(ev chat.Event) bool { return ev.Type == chat.EventClosed })

	select {
	case _, ok := <-events:
		require.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("stream not closed")
	}
	session.Close()
}

func TestServiceRegistry(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.Open(context.Background(), "", ana)
	require.ErrorIs(t, err, chat.ErrModelRequired)
	_, err = h.svc.Open(context.Background(), "ghost", ana)
	require.ErrorIs(t, err, chat.ErrModelNotFound)

	session, err := h.svc.Open(context.Background(), "luna", ana)
	require.NoError(t, err)
	got, err := h.svc.Get(session.ID())
	require.NoError(t, err)
	require.Same(t, session, got)
	require.Equal(t, ana, got.Owner())
	require.Equal(t, 1, h.svc.Len())

	_, err = h.svc.GetFor(session.ID(), "someone-else")
	require.ErrorIs(t, err, chat.ErrSessionNotFound)
	_, err = h.svc.GetFor(session.ID(), ana.ID)
	require.NoError(t, err)

	h.svc.CloseAll()
	require.Equal(t, 0, h.svc.Len())
	require.True(t, session.Closed())
	require.ErrorIs(t, h.svc.Close(session.ID()), chat.ErrSessionNotFound)
}

func TestIdleSessionIsReaped(t *testing.T) {
	h := newHarness(t)
	session, err := h.svc.Open(context.Background(), "luna", ana)
	require.NoError(t, err)
	_, cancel := session.Subscribe(8)
	cancel()

	require.Equal(t, 0, h.svc.Reap(h.advance(29*time.Minute)))
	require.False(t, session.Closed())

	require.Equal(t, 1, h.svc.Reap(h.advance(time.Minute)))
	require.True(t, session.Closed())
	require.Equal(t, 0, h.svc.Len())
	_, err = h.svc.Get(session.ID())
	require.ErrorIs(t, err, chat.ErrSessionNotFound)
}

func TestSubscribedSessionIsNotReaped(t *testing.T) {
	h := newHarness(t)
	session, err := h.svc.Open(context.Background(), "luna", ana)
	require.NoError(t, err)
	_, cancel := session.Subscribe(8)

	require.Equal(t, 0, h.svc.Reap(h.advance(2*time.Hour)))

	// the idle clock starts when the last subscriber leaves
	cancel()
	require.Equal(t, 0, h.svc.Reap(h.advance(29*time.Minute)))
	require.Equal(t, 1, h.svc.Reap(h.advance(time.Minute)))
	require.True(t, session.Closed())
}

func TestActivityRefreshesIdleTimer(t *testing.T) {
	h := newHarness(t)
	session, err := h.svc.Open(context.Background(), "luna", ana)
	require.NoError(t, err)

	h.advance(20 * time.Minute)
	_, err = session.TriggerAction("intro")
	require.NoError(t, err)

	require.Equal(t, 0, h.svc.Reap(h.advance(20*time.Minute)))
	require.Equal(t, 1, h.svc.Reap(h.advance(10*time.Minute)))
}

func TestOpenEvictsLeastActiveSession(t *testing.T) {
	h := newHarness(t, withMaxPerUser(2))
	ctx := context.Background()

	first, err := h.svc.Open(ctx, "luna", ana)
	require.NoError(t, err)
	h.advance(time.Minute)
	second, err := h.svc.Open(ctx, "bianca", ana)
	require.NoError(t, err)
	h.advance(time.Minute)
	_, err = first.TriggerAction("intro")
	require.NoError(t, err)

	bia := chat.User{ID: "bia@mail.com", DisplayName: "Bia"}
	other, err := h.svc.Open(ctx, "luna", bia)
	require.NoError(t, err)

	h.advance(time.Minute)
	third, err := h.svc.Open(ctx, "sofia", ana)
	require.NoError(t, err)

	require.True(t, second.Closed())
	require.False(t, first.Closed())
	require.False(t, third.Closed())
	require.False(t, other.Closed())
	require.Equal(t, 3, h.svc.Len())
}
