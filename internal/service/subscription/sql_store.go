package subscription

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Jose-cardos0/ONLYNEX/internal/db"
)

// SQLStore implements Store on the shared relational database. Instants
// are stored as unix milliseconds so both drivers scan them the same way.
type SQLStore struct {
	db *db.Database
}

func NewSQLStore(database *db.Database) *SQLStore {
	return &SQLStore{db: database}
}

func (s *SQLStore) FindAccount(ctx context.Context, email string) (Account, error) {
	query := s.db.Rebind(`SELECT email, display_name, password_hash, disabled, created_at FROM accounts WHERE email = ?`)

	var (
		account   Account
		createdAt int64
	)
	err := s.db.Conn.QueryRowContext(ctx, query, email).Scan(
		&account.Email, &account.DisplayName, &account.PasswordHash, &account.Disabled, &createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, ErrAccountNotFound
	}
	if err != nil {
		return Account{}, err
	}
	account.CreatedAt = fromMillis(createdAt)
	return account, nil
}

func (s *SQLStore) CreateAccount(ctx context.Context, account Account) error {
	query := s.db.Rebind(`
        INSERT INTO accounts (email, display_name, password_hash, disabled, created_at)
        VALUES (?, ?, ?, ?, ?)
        ON CONFLICT (email) DO NOTHING`)

	res, err := s.db.Conn.ExecContext(ctx, query,
		account.Email, account.DisplayName, account.PasswordHash, account.Disabled, account.CreatedAt.UnixMilli())
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrAccountExists
	}
	return nil
}

func (s *SQLStore) SetAccountDisabled(ctx context.Context, email string, disabled bool) error {
	query := s.db.Rebind(`UPDATE accounts SET disabled = ? WHERE email = ?`)

	res, err := s.db.Conn.ExecContext(ctx, query, disabled, email)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrAccountNotFound
	}
	return nil
}

const subscriptionColumns = `email, name, phone, document, status, last_payment_at, next_payment_at,
        last_transaction_id, last_payment_method, total_paid, payment_count,
        suspended_at, suspend_reason, created_at, updated_at`

func (s *SQLStore) FindSubscription(ctx context.Context, email string) (Subscription, error) {
	query := s.db.Rebind(`SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE email = ?`)

	sub, err := scanSubscription(s.db.Conn.QueryRowContext(ctx, query, email))
	if errors.Is(err, sql.ErrNoRows) {
		return Subscription{}, ErrSubscriptionNotFound
	}
	return sub, err
}

func (s *SQLStore) SaveSubscription(ctx context.Context, sub Subscription) error {
	query := s.db.Rebind(`
        INSERT INTO subscriptions (` + subscriptionColumns + `)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT (email) DO UPDATE SET
            name = excluded.name,
            phone = excluded.phone,
            document = excluded.document,
            status = excluded.status,
            last_payment_at = excluded.last_payment_at,
            next_payment_at = excluded.next_payment_at,
            last_transaction_id = excluded.last_transaction_id,
            last_payment_method = excluded.last_payment_method,
            total_paid = excluded.total_paid,
            payment_count = excluded.payment_count,
            suspended_at = excluded.suspended_at,
            suspend_reason = excluded.suspend_reason,
            updated_at = excluded.updated_at`)

	_, err := s.db.Conn.ExecContext(ctx, query,
		sub.Email, sub.Name, sub.Phone, sub.Document, string(sub.Status),
		nullMillis(sub.LastPaymentDate), nullMillis(sub.NextPaymentDate),
		sub.LastTransactionID, sub.LastPaymentMethod, sub.TotalPaid, sub.PaymentCount,
		nullMillis(sub.SuspendedAt), sub.SuspendReason,
		sub.CreatedAt.UnixMilli(), sub.UpdatedAt.UnixMilli(),
	)
	return err
}

func (s *SQLStore) ListOverdue(ctx context.Context, now time.Time) ([]Subscription, error) {
	query := s.db.Rebind(`
        SELECT ` + subscriptionColumns + ` FROM subscriptions
        WHERE status = ? AND next_payment_at IS NOT NULL AND next_payment_at < ?
        ORDER BY email`)

	rows, err := s.db.Conn.QueryContext(ctx, query, string(StatusActive), now.UnixMilli())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (s *SQLStore) AddPayment(ctx context.Context, payment Payment) (bool, error) {
	query := s.db.Rebind(`
        INSERT INTO payments (email, transaction_id, amount, method, status, paid_at)
        VALUES (?, ?, ?, ?, ?, ?)
        ON CONFLICT (email, transaction_id) DO NOTHING`)

	res, err := s.db.Conn.ExecContext(ctx, query,
		payment.Email, payment.TransactionID, payment.Amount, payment.Method, payment.Status, payment.PaidAt.UnixMilli())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLStore) Payments(ctx context.Context, email string) ([]Payment, error) {
	query := s.db.Rebind(`
        SELECT email, transaction_id, amount, method, status, paid_at
        FROM payments WHERE email = ? ORDER BY paid_at, transaction_id`)

	rows, err := s.db.Conn.QueryContext(ctx, query, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Payment
	for rows.Next() {
		var (
			p      Payment
			paidAt int64
		)
		if err := rows.Scan(&p.Email, &p.TransactionID, &p.Amount, &p.Method, &p.Status, &paidAt); err != nil {
			return nil, err
		}
		p.PaidAt = fromMillis(paidAt)
		out = append(out, p)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row rowScanner) (Subscription, error) {
	var (
		sub                          Subscription
		status                       string
		lastPaid, nextPay, suspended sql.NullInt64
		createdAt, updatedAt         int64
	)
	err := row.Scan(
		&sub.Email, &sub.Name, &sub.Phone, &sub.Document, &status, &lastPaid, &nextPay,
		&sub.LastTransactionID, &sub.LastPaymentMethod, &sub.TotalPaid, &sub.PaymentCount,
		&suspended, &sub.SuspendReason, &createdAt, &updatedAt,
	)
	if err != nil {
		return Subscription{}, err
	}
	sub.Status = Status(status)
	sub.LastPaymentDate = fromNullMillis(lastPaid)
	sub.NextPaymentDate = fromNullMillis(nextPay)
	sub.SuspendedAt = fromNullMillis(suspended)
	sub.CreatedAt = fromMillis(createdAt)
	sub.UpdatedAt = fromMillis(updatedAt)
	return sub, nil
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func fromNullMillis(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromMillis(v.Int64)
	return &t
}

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}
