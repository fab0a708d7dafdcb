package debt

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// memoryRepository is an in-memory Repository. The single mutex gives the
// same serialization guarantee the Postgres row lock provides for
// RecordPayment, which makes it a faithful stand-in for tests.
type memoryRepository struct {
	mu       sync.Mutex
	debts    map[uuid.UUID]*Debt
	order    []uuid.UUID // newest first
	payments map[uuid.UUID][]Payment
	receipts map[uuid.UUID][]Receipt
}

func NewMemoryRepository() *memoryRepository {
	return &memoryRepository{
		debts:    make(map[uuid.UUID]*Debt),
		payments: make(map[uuid.UUID][]Payment),
		receipts: make(map[uuid.UUID][]Receipt),
	}
}

func (m *memoryRepository) Create(ctx context.Context, d *Debt) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *d
	stored.Payments = nil
	stored.Receipts = nil
	m.debts[d.ID] = &stored
	m.order = append([]uuid.UUID{d.ID}, m.order...)
	return nil
}

// AddReceipt links an uploaded receipt to a debt. Receipt creation is out
// of this module's scope; the hook exists so listings can be exercised.
func (m *memoryRepository) AddReceipt(r Receipt) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.receipts[r.DebtID] = append(m.receipts[r.DebtID], r)
}

func (m *memoryRepository) ListByOwner(ctx context.Context, userID uuid.UUID) ([]Debt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var debts []Debt
	for _, id := range m.order {
		d := m.debts[id]
		if d.UserID != userID {
			continue
		}
		out := *d
		out.Payments = m.paymentsOf(id)
		out.Receipts = append([]Receipt(nil), m.receipts[id]...)
		debts = append(debts, out)
	}
	return debts, nil
}

func (m *memoryRepository) Update(ctx context.Context, d *Debt) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.debts[d.ID]
	if !ok || existing.UserID != d.UserID {
		return fmt.Errorf("debt: %w", ErrNotFound)
	}

	d.CreatedAt = existing.CreatedAt
	stored := *d
	stored.Payments = nil
	stored.Receipts = nil
	m.debts[d.ID] = &stored
	return nil
}

func (m *memoryRepository) Delete(ctx context.Context, debtID, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.debts[debtID]
	if !ok || existing.UserID != userID {
		return fmt.Errorf("debt: %w", ErrNotFound)
	}

	delete(m.debts, debtID)
	delete(m.payments, debtID)
	delete(m.receipts, debtID)
	for i, id := range m.order {
		if id == debtID {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *memoryRepository) RecordPayment(ctx context.Context, p *Payment) (*Debt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.debts[p.DebtID]
	if !ok || d.UserID != p.UserID {
		return nil, fmt.Errorf("debt: %w", ErrNotFound)
	}

	m.payments[p.DebtID] = append(m.payments[p.DebtID], *p)
	d.CurrentBalance, d.Status = settle(d.CurrentBalance, p.Amount, d.Status)
	d.UpdatedAt = p.CreatedAt

	out := *d
	out.Payments = m.paymentsOf(d.ID)
	return &out, nil
}

func (m *memoryRepository) ListPayments(ctx context.Context, debtID, userID uuid.UUID) ([]Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.debts[debtID]
	if !ok || d.UserID != userID {
		return nil, nil
	}
	return m.paymentsOf(debtID), nil
}

// paymentsOf returns a copy ordered newest-payment-date first. Callers must
// hold the mutex.
func (m *memoryRepository) paymentsOf(debtID uuid.UUID) []Payment {
	stored := m.payments[debtID]
	if len(stored) == 0 {
		return nil
	}

	out := make([]Payment, len(stored))
	// reverse insertion order so same-date payments come newest first
	for i, p := range stored {
		out[len(stored)-1-i] = p
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PaymentDate.After(out[j].PaymentDate)
	})
	return out
}
