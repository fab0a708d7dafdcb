package debt

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/asharma/debt-tracker/auth"
	"github.com/asharma/debt-tracker/user"
)

// ViewPath is the view whose cached rendering goes stale after a mutation.
const ViewPath = "/debts"

// Notifier receives the side effects of successful mutations: a staleness
// signal for the tracker view and a typed audit event.
type Notifier interface {
	Invalidate(path string)
	Record(eventType string, data map[string]string)
}

// Result is the uniform envelope returned by every write operation. Callers
// inspect Success instead of relying on raised failures.
type Result struct {
	Success bool     `json:"success"`
	Debt    *Debt    `json:"debt,omitempty"`
	Payment *Payment `json:"payment,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// Service is the debt ledger: authenticated, owner-scoped operations over
// debts and their payments.
type Service struct {
	repo     Repository
	users    user.Directory
	notifier Notifier
}

func NewService(repo Repository, users user.Directory, notifier Notifier) *Service {
	return &Service{repo: repo, users: users, notifier: notifier}
}

// caller resolves the request identity to the internal user record.
func (s *Service) caller(ctx context.Context) (*user.User, error) {
	identity, ok := auth.CallerIdentity(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}

	id, err := uuid.Parse(identity.Subject)
	if err != nil {
		return nil, fmt.Errorf("user: %w", ErrNotFound)
	}

	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("looking up user: %w", err)
	}
	if u == nil {
		return nil, fmt.Errorf("user: %w", ErrNotFound)
	}
	return u, nil
}

func (s *Service) CreateDebt(ctx context.Context, in DebtInput) Result {
	u, err := s.caller(ctx)
	if err != nil {
		return s.failure("creating debt", err)
	}

	d, err := NewDebt(u.ID, in)
	if err != nil {
		return s.failure("creating debt", err)
	}

	if err := s.repo.Create(ctx, d); err != nil {
		return s.failure("creating debt", err)
	}

	s.notifier.Invalidate(ViewPath)
	s.notifier.Record("debt.created", map[string]string{
		"debt_id": d.ID.String(),
		"user_id": u.ID.String(),
	})

	return Result{Success: true, Debt: d}
}

// GetDebts lists the caller's debts newest-created first, payments attached
// newest-payment-date first. Fail-soft: any error yields an empty list.
func (s *Service) GetDebts(ctx context.Context) []Debt {
	u, err := s.caller(ctx)
	if err != nil {
		slog.Error("failed to fetch debts", "error", err)
		return []Debt{}
	}

	debts, err := s.repo.ListByOwner(ctx, u.ID)
	if err != nil {
		slog.Error("failed to fetch debts", "error", err)
		return []Debt{}
	}
	if debts == nil {
		debts = []Debt{}
	}
	return debts
}

func (s *Service) UpdateDebt(ctx context.Context, debtID string, in DebtInput) Result {
	u, err := s.caller(ctx)
	if err != nil {
		return s.failure("updating debt", err)
	}

	id, err := uuid.Parse(debtID)
	if err != nil {
		return s.failure("updating debt", fmt.Errorf("debt: %w", ErrNotFound))
	}

	d, err := ReviseDebt(id, u.ID, in)
	if err != nil {
		return s.failure("updating debt", err)
	}

	if err := s.repo.Update(ctx, d); err != nil {
		return s.failure("updating debt", err)
	}

	s.notifier.Invalidate(ViewPath)
	s.notifier.Record("debt.updated", map[string]string{
		"debt_id": d.ID.String(),
		"user_id": u.ID.String(),
	})

	return Result{Success: true, Debt: d}
}

func (s *Service) DeleteDebt(ctx context.Context, debtID string) Result {
	u, err := s.caller(ctx)
	if err != nil {
		return s.failure("deleting debt", err)
	}

	id, err := uuid.Parse(debtID)
	if err != nil {
		return s.failure("deleting debt", fmt.Errorf("debt: %w", ErrNotFound))
	}

	if err := s.repo.Delete(ctx, id, u.ID); err != nil {
		return s.failure("deleting debt", err)
	}

	s.notifier.Invalidate(ViewPath)
	s.notifier.Record("debt.deleted", map[string]string{
		"debt_id": id.String(),
		"user_id": u.ID.String(),
	})

	return Result{Success: true}
}

// CreateDebtPayment records a payment and atomically decrements the debt
// balance, clamping at zero and flipping the status to PAID_OFF when the
// balance runs out. The result carries the updated debt so the view can
// reconcile directly.
func (s *Service) CreateDebtPayment(ctx context.Context, in PaymentInput) Result {
	u, err := s.caller(ctx)
	if err != nil {
		return s.failure("recording payment", err)
	}

	debtID, err := uuid.Parse(in.DebtID)
	if err != nil {
		return s.failure("recording payment", fmt.Errorf("debt: %w", ErrNotFound))
	}

	p, err := NewPayment(u.ID, debtID, in)
	if err != nil {
		return s.failure("recording payment", err)
	}

	updated, err := s.repo.RecordPayment(ctx, p)
	if err != nil {
		return s.failure("recording payment", err)
	}

	s.notifier.Invalidate(ViewPath)
	s.notifier.Record("payment.recorded", map[string]string{
		"payment_id": p.ID.String(),
		"debt_id":    debtID.String(),
		"user_id":    u.ID.String(),
		"amount":     p.Amount.String(),
	})

	return Result{Success: true, Payment: p, Debt: updated}
}

// GetDebtPayments lists payments for one of the caller's debts, newest
// payment date first. Fail-soft like GetDebts.
func (s *Service) GetDebtPayments(ctx context.Context, debtID string) []Payment {
	u, err := s.caller(ctx)
	if err != nil {
		slog.Error("failed to fetch payments", "error", err)
		return []Payment{}
	}

	id, err := uuid.Parse(debtID)
	if err != nil {
		slog.Error("failed to fetch payments", "error", err)
		return []Payment{}
	}

	payments, err := s.repo.ListPayments(ctx, id, u.ID)
	if err != nil {
		slog.Error("failed to fetch payments", "error", err)
		return []Payment{}
	}
	if payments == nil {
		payments = []Payment{}
	}
	return payments
}

func (s *Service) failure(op string, err error) Result {
	slog.Error("failed "+op, "error", err)
	return Result{Success: false, Error: err.Error()}
}
