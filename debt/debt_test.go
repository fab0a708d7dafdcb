package debt_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asharma/debt-tracker/debt"
)

func validDebtInput() debt.DebtInput {
	return debt.DebtInput{
		Name:           "Card A",
		Type:           "CREDIT_CARD",
		TotalAmount:    "10000",
		CurrentBalance: "10000",
	}
}

func TestNewDebt(t *testing.T) {
	userID := uuid.New()

	t.Run("valid input", func(t *testing.T) {
		in := validDebtInput()
		in.InterestRate = "42.5"
		in.MinPayment = "250"
		in.DueDate = "2026-09-15"
		in.Description = "visa"

		d, err := debt.NewDebt(userID, in)
		require.NoError(t, err)

		assert.Equal(t, userID, d.UserID)
		assert.Equal(t, "Card A", d.Name)
		assert.Equal(t, debt.TypeCreditCard, d.Type)
		assert.Equal(t, debt.StatusActive, d.Status)
		assert.True(t, d.TotalAmount.Equal(decimal.NewFromInt(10000)))
		assert.True(t, d.CurrentBalance.Equal(decimal.NewFromInt(10000)))
		require.True(t, d.InterestRate.Valid)
		assert.True(t, d.InterestRate.Decimal.Equal(decimal.RequireFromString("42.5")))
		require.NotNil(t, d.DueDate)
		assert.Equal(t, "2026-09-15", d.DueDate.Format("2006-01-02"))
		assert.NotEqual(t, uuid.Nil, d.ID)
	})

	t.Run("optional fields omitted", func(t *testing.T) {
		d, err := debt.NewDebt(userID, validDebtInput())
		require.NoError(t, err)

		assert.False(t, d.InterestRate.Valid)
		assert.False(t, d.MinPayment.Valid)
		assert.Nil(t, d.DueDate)
		assert.Empty(t, d.Description)
	})

	invalid := []struct {
		name   string
		mutate func(*debt.DebtInput)
	}{
		{"missing name", func(in *debt.DebtInput) { in.Name = "  " }},
		{"unknown type", func(in *debt.DebtInput) { in.Type = "MORTGAGE" }},
		{"missing total", func(in *debt.DebtInput) { in.TotalAmount = "" }},
		{"malformed total", func(in *debt.DebtInput) { in.TotalAmount = "ten grand" }},
		{"zero total", func(in *debt.DebtInput) { in.TotalAmount = "0" }},
		{"negative balance", func(in *debt.DebtInput) { in.CurrentBalance = "-1" }},
		{"malformed balance", func(in *debt.DebtInput) { in.CurrentBalance = "1,000" }},
		{"malformed interest", func(in *debt.DebtInput) { in.InterestRate = "abc" }},
		{"negative interest", func(in *debt.DebtInput) { in.InterestRate = "-3" }},
		{"negative min payment", func(in *debt.DebtInput) { in.MinPayment = "-50" }},
		{"malformed due date", func(in *debt.DebtInput) { in.DueDate = "next tuesday" }},
	}

	for _, tc := range invalid {
		t.Run(tc.name, func(t *testing.T) {
			in := validDebtInput()
			tc.mutate(&in)

			_, err := debt.NewDebt(userID, in)
			assert.ErrorIs(t, err, debt.ErrValidation)
		})
	}
}

func TestReviseDebt(t *testing.T) {
	debtID, userID := uuid.New(), uuid.New()

	t.Run("status defaults to active when omitted", func(t *testing.T) {
		d, err := debt.ReviseDebt(debtID, userID, validDebtInput())
		require.NoError(t, err)
		assert.Equal(t, debt.StatusActive, d.Status)
		assert.Equal(t, debtID, d.ID)
		assert.Equal(t, userID, d.UserID)
	})

	t.Run("explicit status kept", func(t *testing.T) {
		in := validDebtInput()
		in.Status = "PAUSED"

		d, err := debt.ReviseDebt(debtID, userID, in)
		require.NoError(t, err)
		assert.Equal(t, debt.StatusPaused, d.Status)
	})

	t.Run("unknown status rejected", func(t *testing.T) {
		in := validDebtInput()
		in.Status = "CLOSED"

		_, err := debt.ReviseDebt(debtID, userID, in)
		assert.ErrorIs(t, err, debt.ErrValidation)
	})
}

func TestNewPayment(t *testing.T) {
	userID, debtID := uuid.New(), uuid.New()

	t.Run("valid", func(t *testing.T) {
		p, err := debt.NewPayment(userID, debtID, debt.PaymentInput{
			Amount:      "2500.50",
			PaymentDate: "2026-08-01",
			Description: "extra payment",
		})
		require.NoError(t, err)
		assert.True(t, p.Amount.Equal(decimal.RequireFromString("2500.50")))
		assert.Equal(t, debtID, p.DebtID)
		assert.Equal(t, userID, p.UserID)
	})

	invalid := []struct {
		name string
		in   debt.PaymentInput
	}{
		{"missing amount", debt.PaymentInput{PaymentDate: "2026-08-01"}},
		{"malformed amount", debt.PaymentInput{Amount: "lots", PaymentDate: "2026-08-01"}},
		{"zero amount", debt.PaymentInput{Amount: "0", PaymentDate: "2026-08-01"}},
		{"negative amount", debt.PaymentInput{Amount: "-100", PaymentDate: "2026-08-01"}},
		{"missing date", debt.PaymentInput{Amount: "100"}},
		{"malformed date", debt.PaymentInput{Amount: "100", PaymentDate: "01/08/2026"}},
	}

	for _, tc := range invalid {
		t.Run(tc.name, func(t *testing.T) {
			_, err := debt.NewPayment(userID, debtID, tc.in)
			assert.ErrorIs(t, err, debt.ErrValidation)
		})
	}
}
