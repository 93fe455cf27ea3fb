package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sifan077/LinkRewards/config"
)

// ErrUserNotFound is returned when the ledger has no row for the user.
var ErrUserNotFound = errors.New("ledger user not found")

// Ledger credits user balances held by the host panel.
type Ledger interface {
	AddUserCredits(ctx context.Context, userID int64, amount int) error
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type postgresLedger struct {
	db    execer
	query string
}

// NewPostgresLedger credits balances with a single UPDATE on the configured table.
// A *pgxpool.Pool satisfies db.
func NewPostgresLedger(db execer, cfg config.LedgerConfig) Ledger {
	table := pgx.Identifier(strings.Split(cfg.Table, ".")).Sanitize()
	credits := pgx.Identifier{cfg.CreditsColumn}.Sanitize()
	id := pgx.Identifier{cfg.IDColumn}.Sanitize()

	return &postgresLedger{
		db:    db,
		query: fmt.Sprintf("UPDATE %s SET %s = %s + $1 WHERE %s = $2", table, credits, credits, id),
	}
}

func (l *postgresLedger) AddUserCredits(ctx context.Context, userID int64, amount int) error {
	if amount <= 0 {
		return fmt.Errorf("add credits: non-positive amount %d", amount)
	}

	tag, err := l.db.Exec(ctx, l.query, amount, userID)
	if err != nil {
		return fmt.Errorf("add credits: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}
