package debt

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// Repository persists debts and their payments. Every operation is scoped
// to the owning user; a miss on the (id, owner) predicate is ErrNotFound.
type Repository interface {
	Create(ctx context.Context, d *Debt) error
	ListByOwner(ctx context.Context, userID uuid.UUID) ([]Debt, error)
	Update(ctx context.Context, d *Debt) error
	Delete(ctx context.Context, debtID, userID uuid.UUID) error
	RecordPayment(ctx context.Context, p *Payment) (*Debt, error)
	ListPayments(ctx context.Context, debtID, userID uuid.UUID) ([]Payment, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, d *Debt) error {
	query := `INSERT INTO debts (id, user_id, name, type, total_amount, current_balance, interest_rate, min_payment, due_date, description, status, created_at, updated_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.db.ExecContext(ctx, query,
		d.ID,
		d.UserID,
		d.Name,
		d.Type,
		d.TotalAmount,
		d.CurrentBalance,
		d.InterestRate,
		d.MinPayment,
		d.DueDate,
		nullableText(d.Description),
		d.Status,
		d.CreatedAt,
		d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting debt: %w", err)
	}
	return nil
}

func (r *repository) ListByOwner(ctx context.Context, userID uuid.UUID) ([]Debt, error) {
	query := `SELECT id, user_id, name, type, total_amount, current_balance, interest_rate, min_payment, due_date, COALESCE(description, ''), status, created_at, updated_at
              FROM debts
              WHERE user_id = $1
              ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("querying debts: %w", err)
	}
	defer rows.Close()

	var debts []Debt
	for rows.Next() {
		d, err := scanDebt(rows)
		if err != nil {
			return nil, err
		}
		debts = append(debts, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.attachPayments(ctx, userID, debts); err != nil {
		return nil, err
	}
	if err := r.attachReceipts(ctx, userID, debts); err != nil {
		return nil, err
	}

	return debts, nil
}

func (r *repository) attachPayments(ctx context.Context, userID uuid.UUID, debts []Debt) error {
	if len(debts) == 0 {
		return nil
	}

	query := `SELECT id, debt_id, user_id, amount, payment_date, COALESCE(description, ''), created_at
              FROM debt_payments
              WHERE user_id = $1
              ORDER BY payment_date DESC, created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("querying payments: %w", err)
	}
	defer rows.Close()

	byDebt := make(map[uuid.UUID][]Payment)
	for rows.Next() {
		var p Payment
		err := rows.Scan(&p.ID, &p.DebtID, &p.UserID, &p.Amount, &p.PaymentDate, &p.Description, &p.CreatedAt)
		if err != nil {
			return err
		}
		byDebt[p.DebtID] = append(byDebt[p.DebtID], p)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for i := range debts {
		debts[i].Payments = byDebt[debts[i].ID]
	}
	return nil
}

func (r *repository) attachReceipts(ctx context.Context, userID uuid.UUID, debts []Debt) error {
	if len(debts) == 0 {
		return nil
	}

	query := `SELECT id, debt_id, user_id, file_name, file_url, created_at
              FROM debt_receipts
              WHERE user_id = $1
              ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("querying receipts: %w", err)
	}
	defer rows.Close()

	byDebt := make(map[uuid.UUID][]Receipt)
	for rows.Next() {
		var rc Receipt
		err := rows.Scan(&rc.ID, &rc.DebtID, &rc.UserID, &rc.FileName, &rc.FileURL, &rc.CreatedAt)
		if err != nil {
			return err
		}
		byDebt[rc.DebtID] = append(byDebt[rc.DebtID], rc)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for i := range debts {
		debts[i].Receipts = byDebt[debts[i].ID]
	}
	return nil
}

func (r *repository) Update(ctx context.Context, d *Debt) error {
	query := `UPDATE debts
              SET name = $3, type = $4, total_amount = $5, current_balance = $6, interest_rate = $7, min_payment = $8, due_date = $9, description = $10, status = $11, updated_at = $12
              WHERE id = $1 AND user_id = $2
              RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query,
		d.ID,
		d.UserID,
		d.Name,
		d.Type,
		d.TotalAmount,
		d.CurrentBalance,
		d.InterestRate,
		d.MinPayment,
		d.DueDate,
		nullableText(d.Description),
		d.Status,
		d.UpdatedAt,
	).Scan(&d.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("debt: %w", ErrNotFound)
		}
		return fmt.Errorf("updating debt: %w", err)
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, debtID, userID uuid.UUID) error {
	query := `DELETE FROM debts WHERE id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, query, debtID, userID)
	if err != nil {
		return fmt.Errorf("deleting debt: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("debt: %w", ErrNotFound)
	}
	return nil
}

// RecordPayment inserts the payment and decrements the debt balance in one
// transaction. The debt row is locked for the duration so concurrent
// payments serialize their read-modify-write.
func (r *repository) RecordPayment(ctx context.Context, p *Payment) (*Debt, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	lock := `SELECT id, user_id, name, type, total_amount, current_balance, interest_rate, min_payment, due_date, COALESCE(description, ''), status, created_at, updated_at
             FROM debts
             WHERE id = $1 AND user_id = $2
             FOR UPDATE`

	d, err := scanDebt(tx.QueryRowContext(ctx, lock, p.DebtID, p.UserID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("debt: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("locking debt: %w", err)
	}

	insert := `INSERT INTO debt_payments (id, debt_id, user_id, amount, payment_date, description, created_at)
               VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err = tx.ExecContext(ctx, insert, p.ID, p.DebtID, p.UserID, p.Amount, p.PaymentDate, nullableText(p.Description), p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting payment: %w", err)
	}

	d.CurrentBalance, d.Status = settle(d.CurrentBalance, p.Amount, d.Status)
	d.UpdatedAt = p.CreatedAt

	update := `UPDATE debts SET current_balance = $3, status = $4, updated_at = $5 WHERE id = $1 AND user_id = $2`
	_, err = tx.ExecContext(ctx, update, d.ID, d.UserID, d.CurrentBalance, d.Status, d.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("updating balance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return d, nil
}

func (r *repository) ListPayments(ctx context.Context, debtID, userID uuid.UUID) ([]Payment, error) {
	query := `SELECT id, debt_id, user_id, amount, payment_date, COALESCE(description, ''), created_at
              FROM debt_payments
              WHERE debt_id = $1 AND user_id = $2
              ORDER BY payment_date DESC, created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, debtID, userID)
	if err != nil {
		return nil, fmt.Errorf("querying payments: %w", err)
	}
	defer rows.Close()

	var payments []Payment
	for rows.Next() {
		var p Payment
		err := rows.Scan(&p.ID, &p.DebtID, &p.UserID, &p.Amount, &p.PaymentDate, &p.Description, &p.CreatedAt)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}

	return payments, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDebt(row rowScanner) (*Debt, error) {
	var d Debt
	var dueDate sql.NullTime
	err := row.Scan(
		&d.ID,
		&d.UserID,
		&d.Name,
		&d.Type,
		&d.TotalAmount,
		&d.CurrentBalance,
		&d.InterestRate,
		&d.MinPayment,
		&dueDate,
		&d.Description,
		&d.Status,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if dueDate.Valid {
		d.DueDate = &dueDate.Time
	}
	return &d, nil
}

func nullableText(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
