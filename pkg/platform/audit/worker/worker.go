// Package worker drains the audit outbox into Kafka.
package worker

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	audit "vigil/pkg/platform/audit"
)

// Sink publishes a single staged audit payload.
type Sink interface {
	Publish(ctx context.Context, category audit.EventCategory, aggregateID string, payload []byte) error
}

// Worker polls the outbox table and publishes unprocessed entries. Rows are
// marked published, not deleted, so the table doubles as a local replay log.
type Worker struct {
	db       *sql.DB
	sink     Sink
	logger   *slog.Logger
	interval time.Duration
	batch    int
}

// New constructs an outbox worker. interval controls poll frequency.
func New(db *sql.DB, sink Sink, logger *slog.Logger, interval time.Duration) *Worker {
	if interval <= 0 {
		interval = time.Second
	}
	return &Worker{db: db, sink: sink, logger: logger, interval: interval, batch: 100}
}

// Run polls until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.drainOnce(ctx); err != nil {
				w.logger.ErrorContext(ctx, "outbox drain failed", "error", err)
			}
		}
	}
}

type outboxRow struct {
	id          int64
	aggregateID string
	payload     []byte
}

func (w *Worker) drainOnce(ctx context.Context) error {
	rows, err := w.db.QueryContext(ctx, `
		SELECT id, aggregate_id, payload
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at ASC
		LIMIT $1
	`, w.batch)
	if err != nil {
		return fmt.Errorf("query outbox: %w", err)
	}

	var pending []outboxRow
	for rows.Next() {
		var r outboxRow
		if err := rows.Scan(&r.id, &r.aggregateID, &r.payload); err != nil {
			rows.Close()
			return fmt.Errorf("scan outbox row: %w", err)
		}
		pending = append(pending, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, r := range pending {
		var envelope struct {
			Category string `json:"Category"`
		}
		if err := json.Unmarshal(r.payload, &envelope); err != nil {
			// Malformed payloads are marked published so they cannot wedge the queue.
			w.logger.ErrorContext(ctx, "skipping malformed outbox payload", "outbox_id", r.id, "error", err)
			if err := w.markPublished(ctx, r.id); err != nil {
				return err
			}
			continue
		}

		if err := w.sink.Publish(ctx, audit.EventCategory(envelope.Category), r.aggregateID, r.payload); err != nil {
			// Leave the row unpublished; next tick retries. Ordering per
			// aggregate is preserved because we stop at the first failure.
			return fmt.Errorf("publish outbox entry %d: %w", r.id, err)
		}
		if err := w.markPublished(ctx, r.id); err != nil {
			return err
		}
	}
	return nil
}

func (w *Worker) markPublished(ctx context.Context, id int64) error {
	_, err := w.db.ExecContext(ctx,
		`UPDATE outbox SET published_at = $1 WHERE id = $2`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("mark outbox entry published: %w", err)
	}
	return nil
}
