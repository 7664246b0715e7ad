package audit

import (
	"context"
	"database/sql"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"paygate/native/gateway"
)

// Store persists an append-only log of committed gateway flows. Rows flagged
// payout_failed form the reconciliation queue for disbursements that did not
// reach their recipient.
type Store struct {
	db *sql.DB
}

// Record is one logged flow.
type Record struct {
	ID           string
	OccurredAt   time.Time
	Flow         string
	PaymentID    uint64
	Business     string
	Counterparty string
	Amount       string
	Fees         string
	PayoutFailed bool
	Memo         string
}

// NewStore opens (or creates) the audit database at the given path.
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) init() error {
	const stmt = `CREATE TABLE IF NOT EXISTS gateway_audit (
        id TEXT PRIMARY KEY,
        occurred_at TIMESTAMP NOT NULL,
        flow TEXT NOT NULL,
        payment_id INTEGER NOT NULL,
        business TEXT NOT NULL,
        counterparty TEXT NOT NULL,
        amount TEXT NOT NULL,
        fees TEXT NOT NULL,
        payout_failed INTEGER NOT NULL,
        memo TEXT
    );`
	_, err := s.db.Exec(stmt)
	return err
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// Record implements gateway.Auditor.
func (s *Store) Record(entry gateway.AuditEntry) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	amount := "0"
	if entry.Amount != nil {
		amount = entry.Amount.String()
	}
	fees := "0"
	if entry.Fees != nil {
		fees = entry.Fees.String()
	}
	const stmt = `INSERT INTO gateway_audit
        (id, occurred_at, flow, payment_id, business, counterparty, amount, fees, payout_failed, memo)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, stmt,
		uuid.NewString(),
		time.Now().UTC(),
		entry.Flow,
		entry.PaymentID,
		hex.EncodeToString(entry.Business[:]),
		hex.EncodeToString(entry.Counterparty[:]),
		amount,
		fees,
		boolInt(entry.PayoutFailed),
		entry.Memo,
	)
	return err
}

// FailedPayouts returns every logged flow whose outbound disbursement failed,
// oldest first. Operators drain this queue when reconciling.
func (s *Store) FailedPayouts(ctx context.Context) ([]Record, error) {
	const query = `SELECT id, occurred_at, flow, payment_id, business, counterparty, amount, fees, payout_failed, memo
        FROM gateway_audit WHERE payout_failed = 1 ORDER BY occurred_at ASC`
	return s.query(ctx, query)
}

// Flows returns every logged entry for the given flow, oldest first.
func (s *Store) Flows(ctx context.Context, flow string) ([]Record, error) {
	const query = `SELECT id, occurred_at, flow, payment_id, business, counterparty, amount, fees, payout_failed, memo
        FROM gateway_audit WHERE flow = ? ORDER BY occurred_at ASC`
	return s.query(ctx, query, flow)
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var failed int
		var memo sql.NullString
		if err := rows.Scan(&rec.ID, &rec.OccurredAt, &rec.Flow, &rec.PaymentID,
			&rec.Business, &rec.Counterparty, &rec.Amount, &rec.Fees, &failed, &memo); err != nil {
			return nil, err
		}
		rec.PayoutFailed = failed != 0
		rec.Memo = memo.String
		out = append(out, rec)
	}
	return out, rows.Err()
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
