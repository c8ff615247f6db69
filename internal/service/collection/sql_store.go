package collection

import (
	"context"
	"time"

	"github.com/Jose-cardos0/ONLYNEX/internal/db"
)

// SQLStore keeps one row per claimed card. The composite primary key makes
// concurrent inserts of different cards independent and re-claims no-ops.
type SQLStore struct {
	db *db.Database
}

func NewSQLStore(database *db.Database) *SQLStore {
	return &SQLStore{db: database}
}

func (s *SQLStore) Add(ctx context.Context, key, _ string, modelID, cardID string, at time.Time) (bool, error) {
	query := s.db.Rebind(`
        INSERT INTO collection_cards (user_key, model_id, card_id, saved_at)
        VALUES (?, ?, ?, ?)
        ON CONFLICT (user_key, model_id, card_id) DO NOTHING`)

	res, err := s.db.Conn.ExecContext(ctx, query, key, modelID, cardID, at.UnixMilli())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLStore) Cards(ctx context.Context, key, modelID string) ([]string, error) {
	query := s.db.Rebind(`
        SELECT card_id FROM collection_cards
        WHERE user_key = ? AND model_id = ?
        ORDER BY card_id`)

	rows, err := s.db.Conn.QueryContext(ctx, query, key, modelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLStore) Entries(ctx context.Context, key string) (map[string]Entry, error) {
	query := s.db.Rebind(`
        SELECT model_id, card_id, saved_at FROM collection_cards
        WHERE user_key = ?
        ORDER BY model_id, card_id`)

	rows, err := s.db.Conn.QueryContext(ctx, query, key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]Entry)
	for rows.Next() {
		var (
			modelID, cardID string
			savedAt         int64
		)
		if err := rows.Scan(&modelID, &cardID, &savedAt); err != nil {
			return nil, err
		}
		entry := out[modelID]
		entry.SavedCards = append(entry.SavedCards, cardID)
		if ts := time.UnixMilli(savedAt).UTC(); ts.After(entry.LastUpdated) {
			entry.LastUpdated = ts
		}
		out[modelID] = entry
	}
	return out, rows.Err()
}
