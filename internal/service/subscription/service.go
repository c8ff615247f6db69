// Package subscription processes payment provider webhooks: paid
// transactions provision or renew access, cancellations suspend it, and a
// periodic sweep expires subscriptions past their renewal date.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var ErrMissingEmail = errors.New("customer email is required")

const (
	DefaultPeriod   = 30 * 24 * time.Hour
	DefaultPassword = "onlynex"
	AccessURL       = "https://onlynex.online"

	eventTransaction   = "transaction"
	eventCartAbandoned = "cart.abandoned"
	statusPaid         = "paid"
	reasonOverdue      = "payment_overdue"
)

var cancellationStatuses = map[string]bool{
	"refused":    true,
	"cancelled":  true,
	"chargeback": true,
	"refunded":   true,
}

// Config controls provisioning.
type Config struct {
	Period          time.Duration
	DefaultPassword string
	BcryptCost      int
	Now             func() time.Time
}

// Service applies webhook events to the store.
type Service struct {
	store Store
	cfg   Config

	// serialises read-modify-write of a subscription record
	mu sync.Mutex
}

func NewService(store Store, cfg Config) *Service {
	if cfg.Period <= 0 {
		cfg.Period = DefaultPeriod
	}
	if cfg.DefaultPassword == "" {
		cfg.DefaultPassword = DefaultPassword
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{store: store, cfg: cfg}
}

// HandleEvent dispatches a webhook payload. Unknown events are acknowledged
// so the provider does not retry them.
func (s *Service) HandleEvent(ctx context.Context, ev Event) (Result, error) {
	switch {
	case ev.Event == eventTransaction && ev.Status == statusPaid:
		return s.handlePaid(ctx, ev)
	case ev.Event == eventTransaction && cancellationStatuses[ev.Status]:
		return s.handleCancelled(ctx, ev)
	case ev.Event == eventCartAbandoned:
		log.Printf("[subscription] cart abandoned by %s", normalizeEmail(ev.Customer.Email))
		return Result{Success: true, Message: "Abandono registrado"}, nil
	default:
		log.Printf("[subscription] unhandled event=%q status=%q", ev.Event, ev.Status)
		return Result{Success: true, Message: "Evento recebido"}, nil
	}
}

func (s *Service) handlePaid(ctx context.Context, ev Event) (Result, error) {
	email := normalizeEmail(ev.Customer.Email)
	if email == "" {
		return Result{}, ErrMissingEmail
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.cfg.Now()
	name := strings.TrimSpace(ev.Customer.Name)
	if name == "" {
		name = "Cliente"
	}
	payment := Payment{
		Email:         email,
		TransactionID: transactionID(ev),
		Amount:        amount(ev),
		Method:        paymentMethod(ev),
		Status:        statusPaid,
		PaidAt:        paidAt(ev, now),
	}
	log.Printf("[subscription] payment from %s amount=R$ %.2f method=%s", email, float64(payment.Amount)/100, payment.Method)

	isNew := false
	account, err := s.store.FindAccount(ctx, email)
	switch {
	case errors.Is(err, ErrAccountNotFound):
		hash, err := bcrypt.GenerateFromPassword([]byte(s.cfg.DefaultPassword), s.cfg.BcryptCost)
		if err != nil {
			return Result{}, fmt.Errorf("hash default password: %w", err)
		}
		account = Account{Email: email, DisplayName: name, PasswordHash: string(hash), CreatedAt: now}
		if err := s.store.CreateAccount(ctx, account); err != nil {
			return Result{}, fmt.Errorf("create account: %w", err)
		}
		isNew = true
		log.Printf("[subscription] provisioned account %s", email)
	case err != nil:
		return Result{}, fmt.Errorf("find account: %w", err)
	case account.Disabled:
		if err := s.store.SetAccountDisabled(ctx, email, false); err != nil {
			return Result{}, fmt.Errorf("re-enable account: %w", err)
		}
		log.Printf("[subscription] access restored for %s", email)
	}

	sub, err := s.store.FindSubscription(ctx, email)
	if errors.Is(err, ErrSubscriptionNotFound) {
		sub = Subscription{Email: email, CreatedAt: now}
	} else if err != nil {
		return Result{}, fmt.Errorf("find subscription: %w", err)
	}

	recorded, err := s.store.AddPayment(ctx, payment)
	if err != nil {
		return Result{}, fmt.Errorf("record payment: %w", err)
	}
	if recorded {
		sub.TotalPaid += payment.Amount
		sub.PaymentCount++
	} else {
		log.Printf("[subscription] transaction %s already recorded for %s", payment.TransactionID, email)
	}

	next := now.Add(s.cfg.Period)
	if recorded || sub.NextPaymentDate == nil {
		paid := now
		sub.LastPaymentDate = &paid
		sub.NextPaymentDate = &next
		sub.LastTransactionID = payment.TransactionID
		sub.LastPaymentMethod = payment.Method
	} else {
		// a replayed transaction keeps the period it already paid for
		next = *sub.NextPaymentDate
	}
	sub.Name = name
	sub.Phone = firstNonEmpty(ev.Customer.PhoneNumber, ev.Customer.Phone)
	sub.Document = ev.Customer.Document
	sub.Status = StatusActive
	sub.SuspendedAt = nil
	sub.SuspendReason = ""
	sub.UpdatedAt = now
	if err := s.store.SaveSubscription(ctx, sub); err != nil {
		return Result{}, fmt.Errorf("save subscription: %w", err)
	}

	result := Result{
		Success:      true,
		IsNewUser:    isNew,
		User:         &ResultUser{Email: email, AccessURL: AccessURL},
		Subscription: &ResultStatus{Status: StatusActive, ExpiresAt: next},
	}
	if isNew {
		result.User.Password = s.cfg.DefaultPassword
		result.Message = fmt.Sprintf("🎉 Obrigado pela compra!\n\n📧 Login: %s\n🔐 Senha: %s\n🌐 Acesse: %s\n\n💡 Recomendamos alterar sua senha após o primeiro acesso.",
			email, s.cfg.DefaultPassword, AccessURL)
	} else {
		result.Message = fmt.Sprintf("🎉 Pagamento confirmado!\n\nSeu acesso foi renovado por mais %d dias.\n🌐 Acesse: %s",
			int(s.cfg.Period.Hours()/24), AccessURL)
	}
	return result, nil
}

func (s *Service) handleCancelled(ctx context.Context, ev Event) (Result, error) {
	email := normalizeEmail(ev.Customer.Email)
	if email == "" {
		return Result{}, ErrMissingEmail
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.SetAccountDisabled(ctx, email, true); err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			log.Printf("[subscription] no account to suspend for %s", email)
			return Result{Success: true, Message: "Usuário não encontrado"}, nil
		}
		return Result{}, fmt.Errorf("disable account: %w", err)
	}

	now := s.cfg.Now()
	sub, err := s.store.FindSubscription(ctx, email)
	if errors.Is(err, ErrSubscriptionNotFound) {
		sub = Subscription{Email: email, CreatedAt: now}
	} else if err != nil {
		return Result{}, fmt.Errorf("find subscription: %w", err)
	}

	sub.Status = StatusSuspended
	if ev.Status == "refunded" {
		sub.Status = StatusRefunded
	}
	sub.SuspendedAt = &now
	sub.SuspendReason = ev.Status
	sub.LastTransactionID = transactionID(ev)
	sub.UpdatedAt = now
	if err := s.store.SaveSubscription(ctx, sub); err != nil {
		return Result{}, fmt.Errorf("save subscription: %w", err)
	}

	log.Printf("[subscription] access suspended for %s (%s)", email, ev.Status)
	return Result{
		Success: true,
		Message: "Acesso suspenso devido a: " + ev.Status,
		User:    &ResultUser{Email: email},
	}, nil
}

// Sweep expires every active subscription whose renewal date is before now
// and disables its account. Per-record failures are logged and skipped.
func (s *Service) Sweep(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	overdue, err := s.store.ListOverdue(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list overdue subscriptions: %w", err)
	}

	expired := 0
	for _, sub := range overdue {
		if err := s.store.SetAccountDisabled(ctx, sub.Email, true); err != nil && !errors.Is(err, ErrAccountNotFound) {
			log.Printf("[subscription] failed to suspend %s: %v", sub.Email, err)
			continue
		}
		at := now
		sub.Status = StatusExpired
		sub.SuspendedAt = &at
		sub.SuspendReason = reasonOverdue
		sub.UpdatedAt = now
		if err := s.store.SaveSubscription(ctx, sub); err != nil {
			log.Printf("[subscription] failed to expire %s: %v", sub.Email, err)
			continue
		}
		expired++
	}

	log.Printf("[subscription] sweep finished: %d of %d overdue subscriptions expired", expired, len(overdue))
	return expired, nil
}

// RunSweeps calls Sweep every interval until ctx ends.
func (s *Service) RunSweeps(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx, s.cfg.Now()); err != nil {
				log.Printf("[subscription] sweep failed: %v", err)
			}
		}
	}
}

// Subscription returns the stored record for email.
func (s *Service) Subscription(ctx context.Context, email string) (Subscription, error) {
	return s.store.FindSubscription(ctx, normalizeEmail(email))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func transactionID(ev Event) string {
	if ev.Transaction != nil && ev.Transaction.ID != "" {
		return ev.Transaction.ID
	}
	if ev.Token != "" {
		return ev.Token
	}
	return uuid.NewString()
}

func amount(ev Event) int64 {
	if ev.Transaction != nil && ev.Transaction.Amount != 0 {
		return ev.Transaction.Amount
	}
	if ev.Offer != nil {
		return ev.Offer.Price
	}
	return 0
}

func paymentMethod(ev Event) string {
	if ev.Method != "" {
		return ev.Method
	}
	if ev.Transaction != nil && ev.Transaction.Method != "" {
		return ev.Transaction.Method
	}
	return "unknown"
}

func paidAt(ev Event, now time.Time) time.Time {
	if ev.PaidAt != "" {
		if t, err := time.Parse(time.RFC3339, ev.PaidAt); err == nil {
			return t.UTC()
		}
	}
	return now
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
