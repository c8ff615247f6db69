// Package db opens the relational store shared by the collection ledger and
// the subscription records. Postgres goes through the pgx stdlib driver;
// single-node deployments and tests use the pure Go SQLite driver.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"
)

// Database wraps the pool together with the driver it was opened with.
type Database struct {
	Conn   *sql.DB
	Driver string
}

// NewDatabase opens and pings a pool for the given driver.
func NewDatabase(ctx context.Context, driver, dsn string) (*Database, error) {
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("%s dsn is empty", driver)
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return nil, err
	}

	if driver == DriverSQLite {
		// SQLite allows a single writer; serialise on one connection.
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetMaxOpenConns(25)
		conn.SetMaxIdleConns(25)
		conn.SetConnMaxLifetime(5 * time.Minute)
	}
	return &Database{Conn: conn, Driver: driver}, nil
}

// Close releases the pool.
func (d *Database) Close() error {
	return d.Conn.Close()
}

// Rebind rewrites '?' placeholders into the driver's native form.
func (d *Database) Rebind(query string) string {
	if d.Driver != DriverPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// AutoMigrate creates the tables used by the application.
func (d *Database) AutoMigrate(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS collection_cards (
            user_key TEXT NOT NULL,
            model_id TEXT NOT NULL,
            card_id TEXT NOT NULL,
            saved_at BIGINT NOT NULL,
            PRIMARY KEY (user_key, model_id, card_id)
        )`,

		`CREATE TABLE IF NOT EXISTS accounts (
            email TEXT PRIMARY KEY,
            display_name TEXT NOT NULL,
            password_hash TEXT NOT NULL,
            disabled BOOLEAN NOT NULL DEFAULT FALSE,
            created_at BIGINT NOT NULL
        )`,

		`CREATE TABLE IF NOT EXISTS subscriptions (
            email TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            phone TEXT NOT NULL DEFAULT '',
            document TEXT NOT NULL DEFAULT '',
            status TEXT NOT NULL,
            last_payment_at BIGINT,
            next_payment_at BIGINT,
            last_transaction_id TEXT NOT NULL DEFAULT '',
            last_payment_method TEXT NOT NULL DEFAULT '',
            total_paid BIGINT NOT NULL DEFAULT 0,
            payment_count INTEGER NOT NULL DEFAULT 0,
            suspended_at BIGINT,
            suspend_reason TEXT NOT NULL DEFAULT '',
            created_at BIGINT NOT NULL,
            updated_at BIGINT NOT NULL
        )`,

		`CREATE TABLE IF NOT EXISTS payments (
            email TEXT NOT NULL,
            transaction_id TEXT NOT NULL,
            amount BIGINT NOT NULL DEFAULT 0,
            method TEXT NOT NULL DEFAULT '',
            status TEXT NOT NULL,
            paid_at BIGINT NOT NULL,
            PRIMARY KEY (email, transaction_id)
        )`,
	}

	for _, query := range queries {
		if _, err := d.Conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
