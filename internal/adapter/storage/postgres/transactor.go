package postgres

import (
	"context"
	"errors"
	"fmt"

	"upi-ledger/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

var errForeignTx = errors.New("unit of work was not opened by the postgres transactor")

// Transactor implements ports.Transactor on top of the connection pool.
type Transactor struct {
	pool Pool
}

// NewTransactor creates a new Transactor wrapping the connection pool.
func NewTransactor(pool Pool) *Transactor {
	return &Transactor{pool: pool}
}

// Begin starts a new database transaction. The returned ports.Tx is a pgx.Tx.
func (t *Transactor) Begin(ctx context.Context) (ports.Tx, error) {
	tx, err := t.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return tx, nil
}

// pgxTx recovers the pgx.Tx behind a unit of work.
func pgxTx(tx ports.Tx) (pgx.Tx, error) {
	ptx, ok := tx.(pgx.Tx)
	if !ok {
		return nil, errForeignTx
	}
	return ptx, nil
}
