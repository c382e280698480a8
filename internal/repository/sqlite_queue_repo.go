package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/linkspool/linkspool/internal/domain"
)

type sqliteQueueRepository struct {
	db *sql.DB
}

// NewSQLiteQueueRepository returns a QueueRepository backed by sqlite.
func NewSQLiteQueueRepository(db *sql.DB) QueueRepository {
	return &sqliteQueueRepository{db: db}
}

func (r *sqliteQueueRepository) Enqueue(ctx context.Context, payload *domain.BookmarkPayload, lastError string, nextAttemptAt int64) (int64, error) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("marshal payload: %w", err)
	}

	now := time.Now().Unix()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO queue_items (payload_json, attempt_count, next_attempt_at, last_error, created_at, updated_at)
		VALUES (?, 0, ?, ?, ?, ?)`,
		string(payloadJSON), nextAttemptAt, lastError, now, now,
	)
	if err != nil {
		return 0, fmt.Errorf("insert queue item: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read queue item id: %w", err)
	}
	return id, nil
}

func (r *sqliteQueueRepository) List(ctx context.Context, limit int) ([]*domain.QueueItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, payload_json, attempt_count, next_attempt_at, last_error
		FROM queue_items
		ORDER BY id ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list queue items: %w", err)
	}
	defer rows.Close()
	return scanItems(rows)
}

func (r *sqliteQueueRepository) DueItems(ctx context.Context, now int64, limit int) ([]*domain.QueueItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, payload_json, attempt_count, next_attempt_at, last_error
		FROM queue_items
		WHERE next_attempt_at <= ?
		ORDER BY next_attempt_at ASC
		LIMIT ?`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("find due items: %w", err)
	}
	defer rows.Close()
	return scanItems(rows)
}

func (r *sqliteQueueRepository) MarkSent(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM queue_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete queue item: %w", err)
	}
	return nil
}

func (r *sqliteQueueRepository) MarkRetry(ctx context.Context, id int64, attemptCount int, nextAttemptAt int64, lastError string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE queue_items
		SET attempt_count = ?, next_attempt_at = ?, last_error = ?, updated_at = ?
		WHERE id = ?`,
		attemptCount, nextAttemptAt, lastError, time.Now().Unix(), id,
	)
	if err != nil {
		return fmt.Errorf("update queue item: %w", err)
	}
	return nil
}

func (r *sqliteQueueRepository) Stats(ctx context.Context) (*domain.QueueStats, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN attempt_count > 0 THEN 1 ELSE 0 END), 0)
		FROM queue_items`)

	stats := &domain.QueueStats{}
	if err := row.Scan(&stats.Pending, &stats.Failed); err != nil {
		return nil, fmt.Errorf("count queue items: %w", err)
	}
	return stats, nil
}

func scanItems(rows *sql.Rows) ([]*domain.QueueItem, error) {
	var items []*domain.QueueItem
	for rows.Next() {
		var (
			item        domain.QueueItem
			payloadJSON string
			lastError   sql.NullString
		)
		if err := rows.Scan(&item.ID, &payloadJSON, &item.AttemptCount, &item.NextAttemptAt, &lastError); err != nil {
			return nil, fmt.Errorf("scan queue item: %w", err)
		}
		if err := json.Unmarshal([]byte(payloadJSON), &item.Payload); err != nil {
			return nil, fmt.Errorf("decode payload for item %d: %w", item.ID, err)
		}
		if lastError.Valid {
			item.LastError = &lastError.String
		}
		items = append(items, &item)
	}
	return items, rows.Err()
}
