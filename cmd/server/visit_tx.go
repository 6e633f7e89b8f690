package main

import (
	"context"
	"database/sql"
	"time"

	dErrors "vigil/pkg/domain-errors"
	txcontext "vigil/pkg/platform/tx"
)

const defaultVisitTxTimeout = 5 * time.Second

// visitPostgresTx runs the cross-resource Deceased write (visit cancel plus
// citizen lifecycle status) in one database transaction. The transaction is
// carried through context so the visit, citizen, and audit stores all write
// through it and a failure rolls every resource back together.
type visitPostgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func newVisitPostgresTx(db *sql.DB) *visitPostgresTx {
	return &visitPostgresTx{db: db}
}

func (t *visitPostgresTx) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultVisitTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		return err
	}

	return tx.Commit()
}
