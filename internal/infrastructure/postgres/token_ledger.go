package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/Zhima-Mochi/coffeeshop/internal/domain/identity"
	"github.com/Zhima-Mochi/coffeeshop/internal/domain/token"
	"github.com/jmoiron/sqlx"
)

const (
	qSupply           = `SELECT supply::text FROM token_supply WHERE id = 1`
	qSupplyForUpdate  = `SELECT supply::text FROM token_supply WHERE id = 1 FOR UPDATE`
	qSetSupply        = `UPDATE token_supply SET supply = $1::numeric WHERE id = 1`
	qBalance          = `SELECT balance::text FROM token_balances WHERE holder = $1`
	qBalanceForUpdate = `SELECT balance::text FROM token_balances WHERE holder = $1 FOR UPDATE`
	qDebit            = `UPDATE token_balances SET balance = balance - $2::numeric WHERE holder = $1`
	qCredit           = `INSERT INTO token_balances (holder, balance) VALUES ($1, $2::numeric)
ON CONFLICT (holder) DO UPDATE SET balance = token_balances.balance + EXCLUDED.balance`
	qAllowance          = `SELECT amount::text FROM token_allowances WHERE owner = $1 AND spender = $2`
	qAllowanceForUpdate = `SELECT amount::text FROM token_allowances WHERE owner = $1 AND spender = $2 FOR UPDATE`
	qSetAllowance       = `INSERT INTO token_allowances (owner, spender, amount) VALUES ($1, $2, $3::numeric)
ON CONFLICT (owner, spender) DO UPDATE SET amount = EXCLUDED.amount`
)

// TokenLedger keeps balances and allowances in PostgreSQL. Every mutation
// runs in one transaction with the touched rows locked, so checks and writes
// see the same state.
type TokenLedger struct {
	db     *sqlx.DB
	meta   token.Metadata
	minter identity.Address
}

func NewTokenLedger(db *sqlx.DB, meta token.Metadata, minter identity.Address) *TokenLedger {
	return &TokenLedger{db: db, meta: meta, minter: minter}
}

func (l *TokenLedger) Metadata() token.Metadata { return l.meta }

func (l *TokenLedger) TotalSupply(ctx context.Context) (token.Amount, error) {
	a, err := getAmount(ctx, l.db, qSupply)
	if err != nil {
		return 0, fmt.Errorf("postgres ledger: total supply: %w", err)
	}
	return a, nil
}

func (l *TokenLedger) BalanceOf(ctx context.Context, owner identity.Address) (token.Amount, error) {
	a, err := getAmount(ctx, l.db, qBalance, owner.String())
	if err != nil {
		return 0, fmt.Errorf("postgres ledger: balance: %w", err)
	}
	return a, nil
}

func (l *TokenLedger) Allowance(ctx context.Context, owner, spender identity.Address) (token.Amount, error) {
	a, err := getAmount(ctx, l.db, qAllowance, owner.String(), spender.String())
	if err != nil {
		return 0, fmt.Errorf("postgres ledger: allowance: %w", err)
	}
	return a, nil
}

func (l *TokenLedger) Approve(ctx context.Context, owner, spender identity.Address, amount token.Amount) error {
	if owner.IsZero() || spender.IsZero() {
		return token.ErrInvalidAddress
	}
	if _, err := l.db.ExecContext(ctx, qSetAllowance, owner.String(), spender.String(), amountArg(amount)); err != nil {
		return fmt.Errorf("postgres ledger: approve: %w", err)
	}
	return nil
}

func (l *TokenLedger) Transfer(ctx context.Context, from, to identity.Address, amount token.Amount) error {
	if from.IsZero() || to.IsZero() {
		return token.ErrInvalidAddress
	}
	return l.withTx(ctx, "transfer", func(tx *sqlx.Tx) error {
		return move(ctx, tx, from, to, amount)
	})
}

func (l *TokenLedger) TransferFrom(ctx context.Context, spender, from, to identity.Address, amount token.Amount) error {
	if from.IsZero() || to.IsZero() {
		return token.ErrInvalidAddress
	}
	return l.withTx(ctx, "transfer from", func(tx *sqlx.Tx) error {
		allowance, err := getAmount(ctx, tx, qAllowanceForUpdate, from.String(), spender.String())
		if err != nil {
			return err
		}
		if allowance < amount {
			return token.ErrInsufficientAllowance
		}
		if err := move(ctx, tx, from, to, amount); err != nil {
			return err
		}
		if allowance == token.Unlimited {
			return nil
		}
		_, err = tx.ExecContext(ctx, qSetAllowance, from.String(), spender.String(), amountArg(allowance-amount))
		return err
	})
}

func (l *TokenLedger) Mint(ctx context.Context, caller, to identity.Address, amount token.Amount) error {
	if caller != l.minter {
		return token.ErrNotMinter
	}
	if to.IsZero() {
		return token.ErrInvalidAddress
	}
	return l.withTx(ctx, "mint", func(tx *sqlx.Tx) error {
		supply, err := getAmount(ctx, tx, qSupplyForUpdate)
		if err != nil {
			return err
		}
		next, ok := supply.Add(amount)
		if !ok {
			return token.ErrOverflow
		}
		if _, err := tx.ExecContext(ctx, qSetSupply, amountArg(next)); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, qCredit, to.String(), amountArg(amount))
		return err
	})
}

func (l *TokenLedger) withTx(ctx context.Context, op string, fn func(tx *sqlx.Tx) error) error {
	tx, err := l.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres ledger: %s: begin: %w", op, err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		if isLedgerRule(err) {
			return err
		}
		return fmt.Errorf("postgres ledger: %s: %w", op, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres ledger: %s: commit: %w", op, err)
	}
	return nil
}

func move(ctx context.Context, tx *sqlx.Tx, from, to identity.Address, amount token.Amount) error {
	balance, err := getAmount(ctx, tx, qBalanceForUpdate, from.String())
	if err != nil {
		return err
	}
	if balance < amount {
		return token.ErrInsufficientBalance
	}
	if _, err := tx.ExecContext(ctx, qDebit, from.String(), amountArg(amount)); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, qCredit, to.String(), amountArg(amount))
	return err
}

// getAmount reads a single NUMERIC column rendered as text. A missing row is
// a zero amount.
func getAmount(ctx context.Context, q sqlx.QueryerContext, query string, args ...any) (token.Amount, error) {
	var s string
	if err := sqlx.GetContext(ctx, q, &s, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("decode amount %q: %w", s, err)
	}
	return token.Amount(n), nil
}

func amountArg(a token.Amount) string { return strconv.FormatUint(uint64(a), 10) }

func isLedgerRule(err error) bool {
	return errors.Is(err, token.ErrInsufficientBalance) ||
		errors.Is(err, token.ErrInsufficientAllowance) ||
		errors.Is(err, token.ErrOverflow)
}
