/*
Package sqlite provides a SQLite-backed implementation of billing.Store.

PURPOSE:
  Persists student profiles, monthly ledger entries with their itemized
  payment records, extra transactions and the advance audit trail.

KEY TABLES:
  students:             billing profile (rent, advance, deposit, joining date)
  ledger_entries:       one row per (student, month); never deleted
  payment_records:      itemized events for a month; replaced with the entry
  extra_transactions:   deposit use/return, refunds, union fees, adjustments
  advance_sources:      why advance exists (append-only)
  advance_applications: where advance was consumed (append-only)

RECORDS TRI-STATE:
  ledger_entries.records_state keeps "unknown" (legacy, never itemized)
  apart from "empty" (itemized, no events). Row count alone cannot tell
  them apart.

CONCURRENCY:
  Writes hold the per-student lock (billing.StudentLocks) so at most one
  commit per student runs at a time. The database handle is limited to a
  single connection so ":memory:" databases are shared by all queries.

MONEY:
  Amounts are stored as decimal strings and parsed with shopspring/decimal.
  A value that fails to parse is an error, never a silent zero. The same
  holds for stored timestamps.

USAGE:
  store, err := sqlite.New("./data/billing.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/rent-billing/billing"
	"github.com/warp/rent-billing/generic"
)

// Store implements billing.Store using SQLite.
type Store struct {
	db    *sql.DB
	locks billing.StudentLocks
}

var _ billing.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the handle for health checks.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS students (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		room TEXT NOT NULL DEFAULT '',
		monthly_rent TEXT NOT NULL,
		total_advance TEXT NOT NULL,
		security_deposit TEXT NOT NULL,
		joining_date TEXT,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS ledger_entries (
		student_id TEXT NOT NULL REFERENCES students(id),
		month TEXT NOT NULL,
		rent_amount TEXT NOT NULL,
		paid_amount TEXT NOT NULL,
		due_amount TEXT NOT NULL,
		advance_applied TEXT NOT NULL,
		status TEXT NOT NULL,
		records_state TEXT NOT NULL DEFAULT 'unknown',
		updated_at TEXT NOT NULL,
		PRIMARY KEY (student_id, month)
	);

	CREATE TABLE IF NOT EXISTS payment_records (
		id TEXT PRIMARY KEY,
		student_id TEXT NOT NULL,
		month TEXT NOT NULL,
		seq INTEGER NOT NULL,
		paid_at TEXT,
		amount TEXT NOT NULL,
		method TEXT NOT NULL DEFAULT '',
		record_type TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		FOREIGN KEY (student_id, month) REFERENCES ledger_entries(student_id, month)
	);

	CREATE INDEX IF NOT EXISTS idx_payment_records_entry
		ON payment_records(student_id, month, seq);

	CREATE TABLE IF NOT EXISTS extra_transactions (
		id TEXT PRIMARY KEY,
		student_id TEXT NOT NULL REFERENCES students(id),
		tx_type TEXT NOT NULL,
		paid_amount TEXT NOT NULL,
		payment_method TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		tx_date TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_extra_transactions_student
		ON extra_transactions(student_id, tx_date);

	CREATE TABLE IF NOT EXISTS advance_sources (
		id TEXT PRIMARY KEY,
		student_id TEXT NOT NULL REFERENCES students(id),
		kind TEXT NOT NULL,
		amount TEXT NOT NULL,
		from_month TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		created_at TEXT
	);

	CREATE TABLE IF NOT EXISTS advance_applications (
		id TEXT PRIMARY KEY,
		student_id TEXT NOT NULL REFERENCES students(id),
		month TEXT NOT NULL,
		amount TEXT NOT NULL,
		due_before TEXT NOT NULL,
		due_after TEXT NOT NULL,
		applied_at TEXT
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// STUDENTS
// =============================================================================

func (s *Store) SaveProfile(ctx context.Context, p billing.Profile) error {
	return s.locks.With(p.StudentID, func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO students (id, name, room, monthly_rent, total_advance, security_deposit, joining_date, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				room = excluded.room,
				monthly_rent = excluded.monthly_rent,
				total_advance = excluded.total_advance,
				security_deposit = excluded.security_deposit,
				joining_date = excluded.joining_date,
				updated_at = excluded.updated_at
		`,
			p.StudentID, p.Name, p.Room,
			p.MonthlyRent.String(), p.TotalAdvance.String(), p.SecurityDeposit.String(),
			formatTime(p.JoiningDate), now(),
		)
		if err != nil {
			return fmt.Errorf("failed to save student: %w", err)
		}
		return nil
	})
}

func (s *Store) GetProfile(ctx context.Context, id generic.StudentID) (billing.Profile, error) {
	return getProfile(ctx, s.db, id)
}

func getProfile(ctx context.Context, db querier, id generic.StudentID) (billing.Profile, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, name, room, monthly_rent, total_advance, security_deposit, joining_date
		FROM students WHERE id = ?`, id)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return billing.Profile{}, generic.ErrStudentNotFound
	}
	return p, err
}

func (s *Store) ListProfiles(ctx context.Context) ([]billing.Profile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, room, monthly_rent, total_advance, security_deposit, joining_date
		FROM students ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	defer rows.Close()

	var out []billing.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProfile(row scanner) (billing.Profile, error) {
	var (
		p                      billing.Profile
		rent, advance, deposit string
		joining                sql.NullString
	)
	if err := row.Scan(&p.StudentID, &p.Name, &p.Room, &rent, &advance, &deposit, &joining); err != nil {
		return p, err
	}
	var err error
	if p.MonthlyRent, err = parseDecimal("monthly_rent", rent); err != nil {
		return p, err
	}
	if p.TotalAdvance, err = parseDecimal("total_advance", advance); err != nil {
		return p, err
	}
	if p.SecurityDeposit, err = parseDecimal("security_deposit", deposit); err != nil {
		return p, err
	}
	if p.JoiningDate, err = parseTime("joining_date", joining); err != nil {
		return p, err
	}
	return p, nil
}

func (s *Store) requireStudent(ctx context.Context, db querier, id generic.StudentID) error {
	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM students WHERE id = ?", id).Scan(&count); err != nil {
		return err
	}
	if count == 0 {
		return generic.ErrStudentNotFound
	}
	return nil
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// LEDGER ENTRIES
// =============================================================================

// PutEntry upserts the month and replaces its itemized records atomically.
// DueAmount and Status are recomputed before writing.
func (s *Store) PutEntry(ctx context.Context, id generic.StudentID, e billing.Entry) error {
	e.Month = e.Month.Canonical()
	e = e.Recompute()

	return s.locks.With(id, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback()

		if err := s.requireStudent(ctx, tx, id); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO ledger_entries
			(student_id, month, rent_amount, paid_amount, due_amount, advance_applied, status, records_state, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(student_id, month) DO UPDATE SET
				rent_amount = excluded.rent_amount,
				paid_amount = excluded.paid_amount,
				due_amount = excluded.due_amount,
				advance_applied = excluded.advance_applied,
				status = excluded.status,
				records_state = excluded.records_state,
				updated_at = excluded.updated_at
		`,
			id, e.Month,
			e.RentAmount.String(), e.PaidAmount.String(), e.DueAmount.String(), e.AdvanceApplied.String(),
			e.Status, e.RecordsState.String(), now(),
		)
		if err != nil {
			return fmt.Errorf("failed to upsert ledger entry: %w", err)
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM payment_records WHERE student_id = ? AND month = ?", id, e.Month); err != nil {
			return fmt.Errorf("failed to replace payment records: %w", err)
		}
		for i, r := range e.Records {
			if r.ID == "" {
				r.ID = generic.RecordID(uuid.NewString())
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO payment_records (id, student_id, month, seq, paid_at, amount, method, record_type, notes)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				r.ID, id, e.Month, i, formatTime(r.Date), r.Amount.String(), r.Method, r.Type, r.Notes,
			)
			if err != nil {
				return fmt.Errorf("failed to insert payment record: %w", err)
			}
		}
		return tx.Commit()
	})
}

func loadEntries(ctx context.Context, db querier, id generic.StudentID) ([]billing.Entry, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT month, rent_amount, paid_amount, due_amount, advance_applied, status, records_state
		FROM ledger_entries WHERE student_id = ? ORDER BY month ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger entries: %w", err)
	}
	defer rows.Close()

	var (
		entries []billing.Entry
		index   = map[generic.Month]int{}
	)
	for rows.Next() {
		var (
			e                              billing.Entry
			rent, paid, due, adv, recState string
		)
		if err := rows.Scan(&e.Month, &rent, &paid, &due, &adv, &e.Status, &recState); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		if e.RentAmount, err = parseDecimal("rent_amount", rent); err != nil {
			return nil, err
		}
		if e.PaidAmount, err = parseDecimal("paid_amount", paid); err != nil {
			return nil, err
		}
		if e.DueAmount, err = parseDecimal("due_amount", due); err != nil {
			return nil, err
		}
		if e.AdvanceApplied, err = parseDecimal("advance_applied", adv); err != nil {
			return nil, err
		}
		e.RecordsState = parseRecordsState(recState)
		index[e.Month] = len(entries)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	recRows, err := db.QueryContext(ctx, `
		SELECT id, month, paid_at, amount, method, record_type, notes
		FROM payment_records WHERE student_id = ? ORDER BY month ASC, seq ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query payment records: %w", err)
	}
	defer recRows.Close()

	for recRows.Next() {
		var (
			r      billing.PaymentRecord
			month  generic.Month
			paidAt sql.NullString
			amount string
		)
		if err := recRows.Scan(&r.ID, &month, &paidAt, &amount, &r.Method, &r.Type, &r.Notes); err != nil {
			return nil, fmt.Errorf("failed to scan payment record: %w", err)
		}
		if r.Amount, err = parseDecimal("payment_records.amount", amount); err != nil {
			return nil, err
		}
		if r.Date, err = parseTime("payment_records.paid_at", paidAt); err != nil {
			return nil, err
		}
		if i, ok := index[month]; ok {
			entries[i].Records = append(entries[i].Records, r)
		}
	}
	return entries, recRows.Err()
}

// =============================================================================
// EXTRAS AND ADVANCE AUDIT (append-only)
// =============================================================================

func (s *Store) AppendExtra(ctx context.Context, id generic.StudentID, x billing.ExtraTransaction) error {
	if x.ID == "" {
		x.ID = generic.RecordID(uuid.NewString())
	}
	return s.appendRow(ctx, id, `
		INSERT INTO extra_transactions (id, student_id, tx_type, paid_amount, payment_method, notes, tx_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		x.ID, id, x.Type, x.PaidAmount.String(), x.PaymentMethod, x.Notes, formatTime(x.Date), now(),
	)
}

func (s *Store) AppendAdvanceSource(ctx context.Context, id generic.StudentID, src billing.AdvanceSource) error {
	if src.ID == "" {
		src.ID = uuid.NewString()
	}
	return s.appendRow(ctx, id, `
		INSERT INTO advance_sources (id, student_id, kind, amount, from_month, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		src.ID, id, src.Kind, src.Amount.String(), src.FromMonth.Canonical(), src.Description, formatTime(src.CreatedAt),
	)
}

func (s *Store) AppendAdvanceApplication(ctx context.Context, id generic.StudentID, app billing.AdvanceApplication) error {
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	return s.appendRow(ctx, id, `
		INSERT INTO advance_applications (id, student_id, month, amount, due_before, due_after, applied_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		app.ID, id, app.Month.Canonical(), app.Amount.String(), app.DueBefore.String(), app.DueAfter.String(), formatTime(app.AppliedAt),
	)
}

func (s *Store) appendRow(ctx context.Context, id generic.StudentID, query string, args ...any) error {
	return s.locks.With(id, func() error {
		if err := s.requireStudent(ctx, s.db, id); err != nil {
			return err
		}
		if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to append row: %w", err)
		}
		return nil
	})
}

func loadExtras(ctx context.Context, db querier, id generic.StudentID) ([]billing.ExtraTransaction, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, tx_type, paid_amount, payment_method, notes, tx_date
		FROM extra_transactions WHERE student_id = ? ORDER BY tx_date ASC, created_at ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query extras: %w", err)
	}
	defer rows.Close()

	var out []billing.ExtraTransaction
	for rows.Next() {
		var (
			x      billing.ExtraTransaction
			amount string
			date   sql.NullString
		)
		if err := rows.Scan(&x.ID, &x.Type, &amount, &x.PaymentMethod, &x.Notes, &date); err != nil {
			return nil, fmt.Errorf("failed to scan extra: %w", err)
		}
		if x.PaidAmount, err = parseDecimal("extra_transactions.paid_amount", amount); err != nil {
			return nil, err
		}
		if x.Date, err = parseTime("extra_transactions.tx_date", date); err != nil {
			return nil, err
		}
		out = append(out, x)
	}
	return out, rows.Err()
}

func loadAudit(ctx context.Context, db querier, id generic.StudentID) (billing.AdvanceAudit, error) {
	var audit billing.AdvanceAudit

	rows, err := db.QueryContext(ctx, `
		SELECT id, kind, amount, from_month, description, created_at
		FROM advance_sources WHERE student_id = ? ORDER BY created_at ASC`, id)
	if err != nil {
		return audit, fmt.Errorf("failed to query advance sources: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			src       billing.AdvanceSource
			amount    string
			createdAt sql.NullString
		)
		if err := rows.Scan(&src.ID, &src.Kind, &amount, &src.FromMonth, &src.Description, &createdAt); err != nil {
			return audit, fmt.Errorf("failed to scan advance source: %w", err)
		}
		if src.Amount, err = parseDecimal("advance_sources.amount", amount); err != nil {
			return audit, err
		}
		if src.CreatedAt, err = parseTime("advance_sources.created_at", createdAt); err != nil {
			return audit, err
		}
		audit.Sources = append(audit.Sources, src)
	}
	if err := rows.Err(); err != nil {
		return audit, err
	}

	appRows, err := db.QueryContext(ctx, `
		SELECT id, month, amount, due_before, due_after, applied_at
		FROM advance_applications WHERE student_id = ? ORDER BY applied_at ASC, month ASC`, id)
	if err != nil {
		return audit, fmt.Errorf("failed to query advance applications: %w", err)
	}
	defer appRows.Close()
	for appRows.Next() {
		var (
			app                   billing.AdvanceApplication
			amount, before, after string
			appliedAt             sql.NullString
		)
		if err := appRows.Scan(&app.ID, &app.Month, &amount, &before, &after, &appliedAt); err != nil {
			return audit, fmt.Errorf("failed to scan advance application: %w", err)
		}
		if app.Amount, err = parseDecimal("advance_applications.amount", amount); err != nil {
			return audit, err
		}
		if app.DueBefore, err = parseDecimal("advance_applications.due_before", before); err != nil {
			return audit, err
		}
		if app.DueAfter, err = parseDecimal("advance_applications.due_after", after); err != nil {
			return audit, err
		}
		if app.AppliedAt, err = parseTime("advance_applications.applied_at", appliedAt); err != nil {
			return audit, err
		}
		audit.Applications = append(audit.Applications, app)
	}
	return audit, appRows.Err()
}

// Snapshot loads everything for one student inside a single transaction,
// so no write lands between the profile and the rows read after it.
func (s *Store) Snapshot(ctx context.Context, id generic.StudentID) (billing.Snapshot, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return billing.Snapshot{}, fmt.Errorf("failed to begin snapshot: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	profile, err := getProfile(ctx, tx, id)
	if err != nil {
		return billing.Snapshot{}, err
	}
	entries, err := loadEntries(ctx, tx, id)
	if err != nil {
		return billing.Snapshot{}, err
	}
	extras, err := loadExtras(ctx, tx, id)
	if err != nil {
		return billing.Snapshot{}, err
	}
	audit, err := loadAudit(ctx, tx, id)
	if err != nil {
		return billing.Snapshot{}, err
	}
	return billing.Snapshot{Profile: profile, Entries: entries, Extras: extras, Audit: audit}, nil
}

// Helper functions

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func formatTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

// parseTime treats NULL as "no date". Anything else must be RFC 3339.
func parseTime(column string, s sql.NullString) (time.Time, error) {
	if !s.Valid || s.String == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s.String)
	if err != nil {
		return time.Time{}, fmt.Errorf("corrupt %s %q: %w", column, s.String, err)
	}
	return t, nil
}

func parseDecimal(column, value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("corrupt %s %q: %w", column, value, err)
	}
	return d, nil
}

func parseRecordsState(s string) billing.RecordsState {
	switch s {
	case "empty":
		return billing.RecordsEmpty
	case "populated":
		return billing.RecordsPopulated
	default:
		return billing.RecordsUnknown
	}
}
