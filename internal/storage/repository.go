package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"bilancio/internal/core"
	"bilancio/internal/ledger"
	"bilancio/internal/log"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

// dateLayout is fixed-width UTC so lexical order in SQLite matches time order.
const dateLayout = "2006-01-02T15:04:05.000000000Z"

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping implements the readiness probe.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func tableFor(t core.RecordType) (string, error) {
	switch t {
	case core.Income:
		return "incomes", nil
	case core.Expense:
		return "expenses", nil
	default:
		return "", fmt.Errorf("%w: %q", core.ErrInvalidRecordType, string(t))
	}
}

// Insert implements ledger.Writer. Amounts are stored as cents. Inserting
// an ID that already exists writes nothing and returns the stored row, so
// redelivered events are harmless.
func (r *SQLiteRepository) Insert(ctx context.Context, t core.RecordType, rec core.Record) (core.Record, error) {
	table, err := tableFor(t)
	if err != nil {
		return core.Record{}, err
	}
	if err := rec.Validate(); err != nil {
		return core.Record{}, err
	}
	if rec.ID == "" {
		rec.ID = core.NewRecordID()
	}
	cents := core.ToCents(rec.Amount)
	rec.Amount = core.FromCents(cents)
	rec.Date = rec.Date.UTC()

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO `+table+` (id, owner_id, amount_cents, label, icon, date) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		rec.ID, rec.OwnerID.String(), cents, rec.Label, rec.Icon, rec.Date.Format(dateLayout))
	if err != nil {
		return core.Record{}, fmt.Errorf("insert %s: %w", t, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		slog.DebugContext(ctx, "Record already stored, insert skipped",
			log.FieldComponent, log.ComponentStorage,
			log.FieldRecordID, rec.ID,
			log.FieldRecordType, t)
		return r.get(ctx, t, table, rec.ID)
	}

	slog.InfoContext(ctx, "Record saved to SQLite",
		log.FieldComponent, log.ComponentStorage,
		log.FieldRecordID, rec.ID,
		log.FieldRecordType, t,
		log.FieldOwnerID, rec.OwnerID.String(),
		"amount_cents", cents)

	return rec, nil
}

// Sum implements ledger.Store. The GROUP BY makes an owner without
// records produce no row at all, which is reported as an invalid result.
func (r *SQLiteRepository) Sum(ctx context.Context, q ledger.SumQuery) (decimal.NullDecimal, error) {
	table, err := tableFor(q.Type)
	if err != nil {
		return decimal.NullDecimal{}, err
	}

	var total int64
	err = r.db.QueryRowContext(ctx,
		`SELECT SUM(amount_cents) FROM `+table+` WHERE owner_id = ? GROUP BY owner_id`,
		q.Owner.String()).Scan(&total)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.NullDecimal{}, nil
	}
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("sum %s: %w", q.Type, err)
	}
	return decimal.NullDecimal{Decimal: core.FromCents(total), Valid: true}, nil
}

// List implements ledger.Store.
func (r *SQLiteRepository) List(ctx context.Context, q ledger.ListQuery) ([]core.Record, error) {
	table, err := tableFor(q.Type)
	if err != nil {
		return nil, err
	}

	var (
		sb   strings.Builder
		args = []any{q.Owner.String()}
	)
	sb.WriteString(selectColumns)
	sb.WriteString(table)
	sb.WriteString(` WHERE owner_id = ?`)
	if !q.Since.IsZero() {
		sb.WriteString(` AND date >= ?`)
		args = append(args, q.Since.UTC().Format(dateLayout))
	}
	sb.WriteString(` ORDER BY date DESC, id DESC`)
	if q.Limit > 0 {
		sb.WriteString(` LIMIT ?`)
		args = append(args, q.Limit)
	}

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", q.Type, err)
	}
	defer rows.Close()

	out := make([]core.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows, q.Type)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", q.Type, err)
	}
	return out, nil
}

const selectColumns = `SELECT id, owner_id, amount_cents, label, icon, date FROM `

func (r *SQLiteRepository) get(ctx context.Context, t core.RecordType, table, id string) (core.Record, error) {
	row := r.db.QueryRowContext(ctx, selectColumns+table+` WHERE id = ?`, id)
	rec, err := scanRecord(row, t)
	if err != nil {
		return core.Record{}, fmt.Errorf("get %s %s: %w", t, id, err)
	}
	return rec, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner, t core.RecordType) (core.Record, error) {
	var (
		rec   core.Record
		owner string
		cents int64
		date  string
	)
	if err := sc.Scan(&rec.ID, &owner, &cents, &rec.Label, &rec.Icon, &date); err != nil {
		return core.Record{}, fmt.Errorf("scan %s: %w", t, err)
	}
	var err error
	if rec.OwnerID, err = core.ParseOwnerID(owner); err != nil {
		return core.Record{}, fmt.Errorf("scan %s %s: %w", t, rec.ID, err)
	}
	if rec.Date, err = time.Parse(dateLayout, date); err != nil {
		return core.Record{}, fmt.Errorf("scan %s %s date: %w", t, rec.ID, err)
	}
	rec.Amount = core.FromCents(cents)
	return rec, nil
}
