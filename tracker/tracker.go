// Package tracker is the client-side state holder of the debt view. It is
// seeded once from the page-load snapshot and reconciled against operation
// results through pure reducers: every Apply returns a new State and never
// mutates the old one. Derived totals are recomputed per render.
package tracker

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/asharma/debt-tracker/debt"
)

type State struct {
	debts   []debt.Debt
	pending map[string]bool
}

// Seed builds the initial state from a snapshot of the caller's debts.
func Seed(debts []debt.Debt) State {
	s := State{
		debts:   make([]debt.Debt, len(debts)),
		pending: make(map[string]bool),
	}
	copy(s.debts, debts)
	return s
}

func (s State) Debts() []debt.Debt {
	out := make([]debt.Debt, len(s.debts))
	copy(out, s.debts)
	return out
}

func (s State) Len() int {
	return len(s.debts)
}

// ApplyCreate prepends the debt returned by a successful create, keeping
// newest-created-first order.
func (s State) ApplyCreate(d debt.Debt) State {
	next := s.clone()
	next.debts = append([]debt.Debt{d}, next.debts...)
	return next
}

// ApplyUpdate replaces the matching debt by identity. Unknown identities
// leave the state untouched.
func (s State) ApplyUpdate(d debt.Debt) State {
	next := s.clone()
	for i := range next.debts {
		if next.debts[i].ID == d.ID {
			next.debts[i] = d
			break
		}
	}
	return next
}

func (s State) ApplyDelete(id uuid.UUID) State {
	next := s.clone()
	kept := next.debts[:0]
	for _, d := range next.debts {
		if d.ID != id {
			kept = append(kept, d)
		}
	}
	next.debts = kept
	return next
}

// ApplyPayment reconciles the updated debt returned by a payment, instead
// of forcing a full snapshot reload.
func (s State) ApplyPayment(updated debt.Debt) State {
	return s.ApplyUpdate(updated)
}

// Begin marks a form as having an operation in flight. It reports false,
// leaving the state unchanged, when that form is already pending; one
// submission per form at a time.
func (s State) Begin(form string) (State, bool) {
	if s.pending[form] {
		return s, false
	}
	next := s.clone()
	next.pending[form] = true
	return next, true
}

func (s State) Finish(form string) State {
	next := s.clone()
	delete(next.pending, form)
	return next
}

func (s State) Pending(form string) bool {
	return s.pending[form]
}

func (s State) clone() State {
	next := State{
		debts:   make([]debt.Debt, len(s.debts)),
		pending: make(map[string]bool, len(s.pending)),
	}
	copy(next.debts, s.debts)
	for k, v := range s.pending {
		next.pending[k] = v
	}
	return next
}

// Summary holds the aggregate values shown above the debt list.
type Summary struct {
	TotalBalance decimal.Decimal `json:"total_balance"`
	TotalPaid    decimal.Decimal `json:"total_paid"`
	ActiveCount  int             `json:"active_count"`
}

func (s State) Summary() Summary {
	totalBalance := decimal.Zero
	totalOriginal := decimal.Zero
	active := 0
	for _, d := range s.debts {
		totalBalance = totalBalance.Add(d.CurrentBalance)
		totalOriginal = totalOriginal.Add(d.TotalAmount)
		if d.Status == debt.StatusActive {
			active++
		}
	}
	return Summary{
		TotalBalance: totalBalance,
		TotalPaid:    totalOriginal.Sub(totalBalance),
		ActiveCount:  active,
	}
}

// PaidPercent is the per-debt progress value: (total - balance) / total * 100.
func PaidPercent(d debt.Debt) decimal.Decimal {
	if d.TotalAmount.Sign() <= 0 {
		return decimal.Zero
	}
	paid := d.TotalAmount.Sub(d.CurrentBalance)
	return paid.Div(d.TotalAmount).Mul(decimal.NewFromInt(100))
}
