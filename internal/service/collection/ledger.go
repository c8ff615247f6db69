// Package collection keeps the per-user, per-model record of claimed reward
// cards. Claims are union-merged: a card once saved is never revoked and
// claiming it again is a successful no-op.
package collection

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

var (
	// ErrStoreUnavailable tags persistence failures. Callers treat it as
	// "not yet confirmed" and may retry the same claim.
	ErrStoreUnavailable = errors.New("collection store unavailable")
	ErrInvalidClaim     = errors.New("user, model and card are required")
)

// Entry is the persisted state for one (user, model) pair.
type Entry struct {
	SavedCards  []string  `json:"savedCards"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// ClaimResult reports the outcome of a claim. Exactly one field is true.
type ClaimResult struct {
	Claimed     bool `json:"claimed"`
	AlreadyHeld bool `json:"alreadyHeld"`
}

// CardSet is the set of card ids a user holds for one model.
type CardSet map[string]struct{}

func NewCardSet(ids ...string) CardSet {
	set := make(CardSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func (s CardSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

func (s CardSet) Len() int { return len(s) }

// Slice returns the ids in ascending order.
func (s CardSet) Slice() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Store is the persistence contract. Add must merge concurrent additions to
// the same (key, model) without losing any of them.
type Store interface {
	// Add inserts cardID and reports whether it was newly added.
	Add(ctx context.Context, key, identity, modelID, cardID string, at time.Time) (bool, error)
	Cards(ctx context.Context, key, modelID string) ([]string, error)
	Entries(ctx context.Context, key string) (map[string]Entry, error)
}

var identityReplacer = strings.NewReplacer(
	".", "_",
	"/", "_",
	"#", "_",
	"$", "_",
	"[", "_",
	"]", "_",
)

// SanitizeIdentity maps an identity (usually an email) to a storage key.
func SanitizeIdentity(identity string) string {
	return identityReplacer.Replace(strings.TrimSpace(identity))
}

// Ledger is the claim/query facade over a Store.
type Ledger struct {
	store Store
	now   func() time.Time
}

func NewLedger(store Store) *Ledger {
	return &Ledger{store: store, now: time.Now}
}

// WithClock replaces the clock used to stamp lastUpdated.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// Claim records cardID as held by user for modelID.
func (l *Ledger) Claim(ctx context.Context, user, modelID, cardID string) (ClaimResult, error) {
	key := SanitizeIdentity(user)
	if key == "" || modelID == "" || cardID == "" {
		return ClaimResult{}, ErrInvalidClaim
	}

	added, err := l.store.Add(ctx, key, strings.TrimSpace(user), modelID, cardID, l.now())
	if err != nil {
		return ClaimResult{}, fmt.Errorf("%w: claim %s/%s: %w", ErrStoreUnavailable, modelID, cardID, err)
	}
	return ClaimResult{Claimed: added, AlreadyHeld: !added}, nil
}

// Query returns the cards user holds for modelID. An unknown pair yields an
// empty set.
func (l *Ledger) Query(ctx context.Context, user, modelID string) (CardSet, error) {
	key := SanitizeIdentity(user)
	if key == "" || modelID == "" {
		return CardSet{}, nil
	}

	ids, err := l.store.Cards(ctx, key, modelID)
	if err != nil {
		return nil, fmt.Errorf("%w: query %s: %w", ErrStoreUnavailable, modelID, err)
	}
	return NewCardSet(ids...), nil
}

// All returns every model entry held by user.
func (l *Ledger) All(ctx context.Context, user string) (map[string]Entry, error) {
	key := SanitizeIdentity(user)
	if key == "" {
		return map[string]Entry{}, nil
	}

	entries, err := l.store.Entries(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%w: list: %w", ErrStoreUnavailable, err)
	}
	return entries, nil
}

// CountCards returns the number of cards held across entries.
func CountCards(entries map[string]Entry) int {
	total := 0
	for _, entry := range entries {
		total += len(entry.SavedCards)
	}
	return total
}
