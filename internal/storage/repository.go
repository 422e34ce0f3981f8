package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"wealthpillar/internal/core"
	"wealthpillar/internal/log"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
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

// GetPerson loads a person with periods ordered by start date and
// exceptions ordered by trigger date.
func (r *SQLiteRepository) GetPerson(ctx context.Context, id string) (*core.Person, error) {
	p := core.Person{ID: id}

	err := r.db.QueryRowContext(ctx,
		"SELECT name, cycle_start_day FROM persons WHERE id = ?", id,
	).Scan(&p.Name, &p.CycleStartDay)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("person %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get person %s: %w", id, err)
	}

	p.Periods, err = r.periodsForPerson(ctx, id)
	if err != nil {
		return nil, err
	}

	p.Exceptions, err = r.exceptionsForPerson(ctx, id)
	if err != nil {
		return nil, err
	}

	return &p, nil
}

func (r *SQLiteRepository) periodsForPerson(ctx context.Context, personID string) ([]core.Period, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT start_date, end_date, is_completed FROM periods WHERE person_id = ? ORDER BY start_date",
		personID)
	if err != nil {
		return nil, fmt.Errorf("list periods for %s: %w", personID, err)
	}
	defer rows.Close()

	var periods []core.Period
	for rows.Next() {
		var (
			start     string
			end       sql.NullString
			completed bool
		)
		if err := rows.Scan(&start, &end, &completed); err != nil {
			return nil, fmt.Errorf("scan period: %w", err)
		}

		startDate, err := core.ParseDate(start)
		if err != nil {
			return nil, fmt.Errorf("parse period start %q: %w", start, err)
		}

		if !completed {
			periods = append(periods, core.NewOpenPeriod(startDate))
			continue
		}

		endDate, err := core.ParseDate(end.String)
		if err != nil {
			return nil, fmt.Errorf("parse period end %q: %w", end.String, err)
		}
		periods = append(periods, core.NewClosedPeriod(startDate, endDate))
	}
	return periods, rows.Err()
}

func (r *SQLiteRepository) exceptionsForPerson(ctx context.Context, personID string) ([]core.Exception, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, trigger_date, reason, created_at FROM exceptions WHERE person_id = ? ORDER BY trigger_date",
		personID)
	if err != nil {
		return nil, fmt.Errorf("list exceptions for %s: %w", personID, err)
	}
	defer rows.Close()

	var exceptions []core.Exception
	for rows.Next() {
		var (
			e         core.Exception
			trigger   string
			createdAt string
		)
		if err := rows.Scan(&e.ID, &trigger, &e.Reason, &createdAt); err != nil {
			return nil, fmt.Errorf("scan exception: %w", err)
		}

		e.TriggerDate, err = core.ParseDate(trigger)
		if err != nil {
			return nil, fmt.Errorf("parse trigger date %q: %w", trigger, err)
		}
		e.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse exception created_at %q: %w", createdAt, err)
		}
		exceptions = append(exceptions, e)
	}
	return exceptions, rows.Err()
}

// SavePerson persists the full person aggregate in one transaction. Periods
// and exceptions are rewritten wholesale; the engine always hands back the
// complete slices.
func (r *SQLiteRepository) SavePerson(ctx context.Context, p core.Person) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("save person %s: %w", p.ID, err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO persons (id, name, cycle_start_day) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, cycle_start_day = excluded.cycle_start_day`,
		p.ID, p.Name, p.CycleStartDay)
	if err != nil {
		return fmt.Errorf("upsert person %s: %w", p.ID, err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM periods WHERE person_id = ?", p.ID); err != nil {
		return fmt.Errorf("clear periods for %s: %w", p.ID, err)
	}
	for _, period := range p.Periods {
		var end any
		if !period.IsOpen() {
			end = period.End.String()
		}
		_, err := tx.ExecContext(ctx,
			"INSERT INTO periods (person_id, start_date, end_date, is_completed) VALUES (?, ?, ?, ?)",
			p.ID, period.Start.String(), end, !period.IsOpen())
		if err != nil {
			return fmt.Errorf("insert period %s for %s: %w", period.Start, p.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM exceptions WHERE person_id = ?", p.ID); err != nil {
		return fmt.Errorf("clear exceptions for %s: %w", p.ID, err)
	}
	for _, e := range p.Exceptions {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO exceptions (id, person_id, trigger_date, reason, created_at) VALUES (?, ?, ?, ?, ?)",
			e.ID, p.ID, e.TriggerDate.String(), e.Reason, e.CreatedAt.UTC().Format(time.RFC3339))
		if err != nil {
			return fmt.Errorf("insert exception %s for %s: %w", e.ID, p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit person %s: %w", p.ID, err)
	}

	slog.DebugContext(ctx, "Person saved",
		log.FieldComponent, log.ComponentStorage,
		log.FieldOperation, log.OpUpdate,
		log.FieldPersonID, p.ID,
		"periods", len(p.Periods),
		"exceptions", len(p.Exceptions))
	return nil
}

func (r *SQLiteRepository) ListPersonIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id FROM persons ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list person ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan person id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *SQLiteRepository) GetBudget(ctx context.Context, id string) (*core.Budget, error) {
	b := core.Budget{ID: id}

	err := r.db.QueryRowContext(ctx,
		"SELECT description, amount_cents, owner_person_id FROM budgets WHERE id = ?", id,
	).Scan(&b.Description, &b.Amount.Cents, &b.OwnerPersonID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("budget %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get budget %s: %w", id, err)
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT category FROM budget_categories WHERE budget_id = ? ORDER BY category", id)
	if err != nil {
		return nil, fmt.Errorf("list budget categories for %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan budget category: %w", err)
		}
		b.Categories = append(b.Categories, c)
	}
	return &b, rows.Err()
}

func (r *SQLiteRepository) SaveBudget(ctx context.Context, b core.Budget) error {
	if err := b.Validate(); err != nil {
		return fmt.Errorf("save budget %s: %w", b.ID, err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO budgets (id, description, amount_cents, owner_person_id) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET description = excluded.description,
			amount_cents = excluded.amount_cents, owner_person_id = excluded.owner_person_id`,
		b.ID, b.Description, b.Amount.Cents, b.OwnerPersonID)
	if err != nil {
		return fmt.Errorf("upsert budget %s: %w", b.ID, err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM budget_categories WHERE budget_id = ?", b.ID); err != nil {
		return fmt.Errorf("clear budget categories for %s: %w", b.ID, err)
	}
	for _, c := range b.Categories {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO budget_categories (budget_id, category) VALUES (?, ?)", b.ID, c); err != nil {
			return fmt.Errorf("insert budget category %s: %w", c, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit budget %s: %w", b.ID, err)
	}
	return nil
}

// TransactionsInWindow returns transactions dated within [start, end]
// inclusive, ordered by date.
func (r *SQLiteRepository) TransactionsInWindow(ctx context.Context, start, end core.Date) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, date, description, category, amount_cents, kind, account_id, is_reconciled, remaining_cents
		FROM transactions WHERE date >= ? AND date <= ? ORDER BY date, id`,
		start.String(), end.String())
	if err != nil {
		return nil, fmt.Errorf("list transactions in window: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		var (
			t    core.Transaction
			date string
			kind string
		)
		if err := rows.Scan(&t.ID, &date, &t.Description, &t.Category,
			&t.Amount.Cents, &kind, &t.AccountID, &t.IsReconciled, &t.RemainingAmount.Cents); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Date, err = core.ParseDate(date)
		if err != nil {
			return nil, fmt.Errorf("parse transaction date %q: %w", date, err)
		}
		t.Kind = core.TransactionKind(kind)
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func (r *SQLiteRepository) SaveTransaction(ctx context.Context, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("save transaction %s: %w", t.ID, err)
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (id, date, description, category, amount_cents, kind, account_id, is_reconciled, remaining_cents)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET date = excluded.date, description = excluded.description,
			category = excluded.category, amount_cents = excluded.amount_cents, kind = excluded.kind,
			account_id = excluded.account_id, is_reconciled = excluded.is_reconciled,
			remaining_cents = excluded.remaining_cents`,
		t.ID, t.Date.String(), t.Description, t.Category, t.Amount.Cents,
		string(t.Kind), t.AccountID, t.IsReconciled, t.RemainingAmount.Cents)
	if err != nil {
		return fmt.Errorf("upsert transaction %s: %w", t.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) SaveAccount(ctx context.Context, a core.Account) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO accounts (id, name) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name`, a.ID, a.Name)
	if err != nil {
		return fmt.Errorf("upsert account %s: %w", a.ID, err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM account_members WHERE account_id = ?", a.ID); err != nil {
		return fmt.Errorf("clear account members for %s: %w", a.ID, err)
	}
	for _, pid := range a.MemberIDs {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO account_members (account_id, person_id) VALUES (?, ?)", a.ID, pid); err != nil {
			return fmt.Errorf("insert account member %s: %w", pid, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit account %s: %w", a.ID, err)
	}
	return nil
}

// AccountMemberships returns the person ids sharing each account.
func (r *SQLiteRepository) AccountMemberships(ctx context.Context) (map[string][]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT account_id, person_id FROM account_members ORDER BY account_id, person_id")
	if err != nil {
		return nil, fmt.Errorf("list account memberships: %w", err)
	}
	defer rows.Close()

	members := make(map[string][]string)
	for rows.Next() {
		var accountID, personID string
		if err := rows.Scan(&accountID, &personID); err != nil {
			return nil, fmt.Errorf("scan account membership: %w", err)
		}
		members[accountID] = append(members[accountID], personID)
	}
	return members, rows.Err()
}
