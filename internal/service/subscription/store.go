package subscription

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"
)

var (
	ErrAccountNotFound      = errors.New("account not found")
	ErrAccountExists        = errors.New("account already exists")
	ErrSubscriptionNotFound = errors.New("subscription not found")
)

// Store persists accounts, subscriptions and payments.
type Store interface {
	FindAccount(ctx context.Context, email string) (Account, error)
	CreateAccount(ctx context.Context, account Account) error
	SetAccountDisabled(ctx context.Context, email string, disabled bool) error

	FindSubscription(ctx context.Context, email string) (Subscription, error)
	SaveSubscription(ctx context.Context, sub Subscription) error
	// ListOverdue returns active subscriptions whose next payment is before now.
	ListOverdue(ctx context.Context, now time.Time) ([]Subscription, error)

	// AddPayment records a payment and reports false when the transaction
	// was already recorded for that email.
	AddPayment(ctx context.Context, payment Payment) (bool, error)
	Payments(ctx context.Context, email string) ([]Payment, error)
}

// MemoryStore implements Store in process memory.
type MemoryStore struct {
	mu            sync.RWMutex
	accounts      map[string]Account
	subscriptions map[string]Subscription
	payments      map[string][]Payment
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:      make(map[string]Account),
		subscriptions: make(map[string]Subscription),
		payments:      make(map[string][]Payment),
	}
}

func (s *MemoryStore) FindAccount(_ context.Context, email string) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[email]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return account, nil
}

func (s *MemoryStore) CreateAccount(_ context.Context, account Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[account.Email]; ok {
		return ErrAccountExists
	}
	s.accounts[account.Email] = account
	return nil
}

func (s *MemoryStore) SetAccountDisabled(_ context.Context, email string, disabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[email]
	if !ok {
		return ErrAccountNotFound
	}
	account.Disabled = disabled
	s.accounts[email] = account
	return nil
}

func (s *MemoryStore) FindSubscription(_ context.Context, email string) (Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.subscriptions[email]
	if !ok {
		return Subscription{}, ErrSubscriptionNotFound
	}
	return sub, nil
}

func (s *MemoryStore) SaveSubscription(_ context.Context, sub Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscriptions[sub.Email] = sub
	return nil
}

func (s *MemoryStore) ListOverdue(_ context.Context, now time.Time) ([]Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Subscription
	for _, sub := range s.subscriptions {
		if sub.Status == StatusActive && sub.NextPaymentDate != nil && sub.NextPaymentDate.Before(now) {
			out = append(out, sub)
		}
	}
	slices.SortFunc(out, func(a, b Subscription) int { return strings.Compare(a.Email, b.Email) })
	return out, nil
}

func (s *MemoryStore) AddPayment(_ context.Context, payment Payment) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.payments[payment.Email] {
		if existing.TransactionID == payment.TransactionID {
			return false, nil
		}
	}
	s.payments[payment.Email] = append(s.payments[payment.Email], payment)
	return true, nil
}

func (s *MemoryStore) Payments(_ context.Context, email string) ([]Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.payments[email]), nil
}
