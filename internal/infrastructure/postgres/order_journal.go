package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/Zhima-Mochi/coffeeshop/internal/domain/journal"
	"github.com/Zhima-Mochi/coffeeshop/internal/domain/shop"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	qJournalSchema = `
CREATE TABLE IF NOT EXISTS order_journal (
  order_id    NUMERIC(20, 0) PRIMARY KEY,
  customer    CHAR(42) NOT NULL,
  item_id     NUMERIC(20, 0) NOT NULL,
  qty         NUMERIC(20, 0) NOT NULL,
  total       NUMERIC(20, 0) NOT NULL,
  occurred_at TIMESTAMPTZ NOT NULL,
  payload     JSONB NOT NULL
);`
	qJournalInsert = `INSERT INTO order_journal (order_id, customer, item_id, qty, total, occurred_at, payload)
VALUES ($1::numeric, $2, $3::numeric, $4::numeric, $5::numeric, $6, $7)
ON CONFLICT (order_id) DO NOTHING`
	qJournalGet    = `SELECT payload FROM order_journal WHERE order_id = $1::numeric`
	qJournalLastID = `SELECT COALESCE(MAX(order_id), 0)::text FROM order_journal`
)

// pgxConn is the part of *pgxpool.Pool the journal uses.
type pgxConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// OrderJournal stores placed orders through pgx, one row per order id.
type OrderJournal struct {
	conn pgxConn
}

func NewOrderJournal(conn pgxConn) *OrderJournal {
	return &OrderJournal{conn: conn}
}

// OpenOrderJournal connects a pool and makes sure the table exists.
func OpenOrderJournal(ctx context.Context, dsn string) (*OrderJournal, *pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("order journal: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("order journal: ping: %w", err)
	}
	if err := EnsureJournalSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return NewOrderJournal(pool), pool, nil
}

func EnsureJournalSchema(ctx context.Context, conn pgxConn) error {
	if _, err := conn.Exec(ctx, qJournalSchema); err != nil {
		return fmt.Errorf("order journal: ensure schema: %w", err)
	}
	return nil
}

func (j *OrderJournal) Append(ctx context.Context, e shop.OrderPlaced) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("order journal: encode: %w", err)
	}
	tag, err := j.conn.Exec(ctx, qJournalInsert,
		u64(e.OrderID), e.Customer.String(), u64(e.ItemID), u64(e.Qty), u64(uint64(e.Total)), e.OccurredAt, payload)
	if err != nil {
		return fmt.Errorf("order journal: insert %d: %w", e.OrderID, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	existing, err := j.Get(ctx, e.OrderID)
	if err != nil {
		return err
	}
	if existing.Customer != e.Customer || existing.ItemID != e.ItemID ||
		existing.Qty != e.Qty || existing.Total != e.Total {
		return fmt.Errorf("order journal: order %d: %w", e.OrderID, journal.ErrDuplicate)
	}
	return nil
}

func (j *OrderJournal) Get(ctx context.Context, orderID uint64) (shop.OrderPlaced, error) {
	var payload []byte
	if err := j.conn.QueryRow(ctx, qJournalGet, u64(orderID)).Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return shop.OrderPlaced{}, journal.ErrNotFound
		}
		return shop.OrderPlaced{}, fmt.Errorf("order journal: get %d: %w", orderID, err)
	}
	var e shop.OrderPlaced
	if err := json.Unmarshal(payload, &e); err != nil {
		return shop.OrderPlaced{}, fmt.Errorf("order journal: decode %d: %w", orderID, err)
	}
	return e, nil
}

func (j *OrderJournal) LastOrderID(ctx context.Context) (uint64, error) {
	var raw string
	if err := j.conn.QueryRow(ctx, qJournalLastID).Scan(&raw); err != nil {
		return 0, fmt.Errorf("order journal: last order id: %w", err)
	}
	last, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("order journal: last order id %q: %w", raw, err)
	}
	return last, nil
}

func u64(v uint64) string { return strconv.FormatUint(v, 10) }
