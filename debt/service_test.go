package debt_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asharma/debt-tracker/auth"
	"github.com/asharma/debt-tracker/debt"
	"github.com/asharma/debt-tracker/user"
)

type stubDirectory struct {
	users map[uuid.UUID]*user.User
}

func (s *stubDirectory) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	return s.users[id], nil
}

func (s *stubDirectory) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return nil, nil
}

func (s *stubDirectory) Register(ctx context.Context, name, email, password string) (*user.User, error) {
	return nil, nil
}

func (s *stubDirectory) VerifyPassword(hashedPassword, password string) error {
	return nil
}

type recordingNotifier struct {
	mu          sync.Mutex
	invalidated []string
	events      []string
}

func (n *recordingNotifier) Invalidate(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.invalidated = append(n.invalidated, path)
}

func (n *recordingNotifier) Record(eventType string, data map[string]string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, eventType)
}

type fixture struct {
	service  *debt.Service
	notifier *recordingNotifier
	dir      *stubDirectory
	repo     interface {
		debt.Repository
		AddReceipt(debt.Receipt)
	}
}

func newFixture() *fixture {
	n := &recordingNotifier{}
	dir := &stubDirectory{users: make(map[uuid.UUID]*user.User)}
	repo := debt.NewMemoryRepository()
	return &fixture{
		service:  debt.NewService(repo, dir, n),
		notifier: n,
		dir:      dir,
		repo:     repo,
	}
}

// newCaller registers a user in the directory and returns a context carrying
// their resolved identity.
func (f *fixture) newCaller() (context.Context, uuid.UUID) {
	id := uuid.New()
	f.dir.users[id] = &user.User{ID: id, Email: id.String() + "@example.com"}
	ctx := auth.WithIdentity(context.Background(), auth.Identity{Subject: id.String()})
	return ctx, id
}

func createDebt(t *testing.T, f *fixture, ctx context.Context, in debt.DebtInput) *debt.Debt {
	t.Helper()
	result := f.service.CreateDebt(ctx, in)
	require.True(t, result.Success, "create failed: %s", result.Error)
	require.NotNil(t, result.Debt)
	return result.Debt
}

func TestCreateDebtAndList(t *testing.T) {
	f := newFixture()
	ctx, userID := f.newCaller()

	created := createDebt(t, f, ctx, debt.DebtInput{
		Name:           "Card A",
		Type:           "CREDIT_CARD",
		TotalAmount:    "10000",
		CurrentBalance: "10000",
	})

	debts := f.service.GetDebts(ctx)
	require.Len(t, debts, 1)
	got := debts[0]
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "Card A", got.Name)
	assert.Equal(t, debt.TypeCreditCard, got.Type)
	assert.Equal(t, debt.StatusActive, got.Status)
	assert.Equal(t, userID, got.UserID)
	assert.True(t, got.CurrentBalance.Equal(decimal.NewFromInt(10000)))

	assert.Contains(t, f.notifier.invalidated, debt.ViewPath)
	assert.Contains(t, f.notifier.events, "debt.created")
}

func TestGetDebtsOrdering(t *testing.T) {
	f := newFixture()
	ctx, _ := f.newCaller()

	createDebt(t, f, ctx, debt.DebtInput{Name: "oldest", Type: "OTHER", TotalAmount: "100", CurrentBalance: "100"})
	createDebt(t, f, ctx, debt.DebtInput{Name: "middle", Type: "OTHER", TotalAmount: "100", CurrentBalance: "100"})
	createDebt(t, f, ctx, debt.DebtInput{Name: "newest", Type: "OTHER", TotalAmount: "100", CurrentBalance: "100"})

	debts := f.service.GetDebts(ctx)
	require.Len(t, debts, 3)
	assert.Equal(t, "newest", debts[0].Name)
	assert.Equal(t, "middle", debts[1].Name)
	assert.Equal(t, "oldest", debts[2].Name)

	// idempotent read: no intervening mutation, identical ordered results
	again := f.service.GetDebts(ctx)
	require.Len(t, again, 3)
	for i := range debts {
		assert.Equal(t, debts[i].ID, again[i].ID)
	}
}

func TestCreateDebtValidation(t *testing.T) {
	f := newFixture()
	ctx, _ := f.newCaller()

	result := f.service.CreateDebt(ctx, debt.DebtInput{
		Name:           "Card A",
		Type:           "CREDIT_CARD",
		TotalAmount:    "not-a-number",
		CurrentBalance: "10000",
	})
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "not a number")

	assert.Empty(t, f.service.GetDebts(ctx))
	assert.Empty(t, f.notifier.events)
}

func TestUpdateDebt(t *testing.T) {
	f := newFixture()
	ctx, _ := f.newCaller()

	created := createDebt(t, f, ctx, debt.DebtInput{
		Name: "Car loan", Type: "CAR_LOAN", TotalAmount: "300000", CurrentBalance: "250000",
	})

	result := f.service.UpdateDebt(ctx, created.ID.String(), debt.DebtInput{
		Name: "Car loan (refinanced)", Type: "CAR_LOAN", TotalAmount: "300000", CurrentBalance: "240000", Status: "PAUSED",
	})
	require.True(t, result.Success, result.Error)
	assert.Equal(t, "Car loan (refinanced)", result.Debt.Name)
	assert.Equal(t, debt.StatusPaused, result.Debt.Status)

	debts := f.service.GetDebts(ctx)
	require.Len(t, debts, 1)
	assert.Equal(t, "Car loan (refinanced)", debts[0].Name)
	assert.Equal(t, created.CreatedAt, debts[0].CreatedAt)
	assert.Contains(t, f.notifier.events, "debt.updated")
}

func TestUpdateDebtNonexistent(t *testing.T) {
	f := newFixture()
	ctx, _ := f.newCaller()

	result := f.service.UpdateDebt(ctx, uuid.NewString(), debt.DebtInput{
		Name: "ghost", Type: "OTHER", TotalAmount: "1", CurrentBalance: "1",
	})
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "not found")

	assert.Empty(t, f.service.GetDebts(ctx))
}

func TestDeleteDebt(t *testing.T) {
	f := newFixture()
	ctx, _ := f.newCaller()

	created := createDebt(t, f, ctx, debt.DebtInput{
		Name: "EMI", Type: "EMI", TotalAmount: "5000", CurrentBalance: "5000",
	})

	result := f.service.DeleteDebt(ctx, created.ID.String())
	require.True(t, result.Success, result.Error)
	assert.Empty(t, f.service.GetDebts(ctx))
	assert.Contains(t, f.notifier.events, "debt.deleted")

	// second delete finds nothing
	result = f.service.DeleteDebt(ctx, created.ID.String())
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "not found")
}

func TestCreateDebtPayment(t *testing.T) {
	f := newFixture()
	ctx, _ := f.newCaller()

	created := createDebt(t, f, ctx, debt.DebtInput{
		Name: "Card A", Type: "CREDIT_CARD", TotalAmount: "10000", CurrentBalance: "10000",
	})

	t.Run("partial payment decrements exactly", func(t *testing.T) {
		result := f.service.CreateDebtPayment(ctx, debt.PaymentInput{
			DebtID: created.ID.String(), Amount: "4000", PaymentDate: "2026-08-01",
		})
		require.True(t, result.Success, result.Error)
		require.NotNil(t, result.Payment)
		require.NotNil(t, result.Debt, "result carries the updated debt")
		assert.True(t, result.Debt.CurrentBalance.Equal(decimal.NewFromInt(6000)))
		assert.Equal(t, debt.StatusActive, result.Debt.Status)
	})

	t.Run("exact payoff flips status", func(t *testing.T) {
		result := f.service.CreateDebtPayment(ctx, debt.PaymentInput{
			DebtID: created.ID.String(), Amount: "6000", PaymentDate: "2026-08-02",
		})
		require.True(t, result.Success, result.Error)
		assert.True(t, result.Debt.CurrentBalance.IsZero())
		assert.Equal(t, debt.StatusPaidOff, result.Debt.Status)
	})

	assert.Contains(t, f.notifier.events, "payment.recorded")
}

func TestCreateDebtPaymentOverpaymentClamps(t *testing.T) {
	f := newFixture()
	ctx, _ := f.newCaller()

	created := createDebt(t, f, ctx, debt.DebtInput{
		Name: "Loan", Type: "PERSONAL_LOAN", TotalAmount: "5000", CurrentBalance: "5000",
	})

	result := f.service.CreateDebtPayment(ctx, debt.PaymentInput{
		DebtID: created.ID.String(), Amount: "7000", PaymentDate: "2026-08-01",
	})
	require.True(t, result.Success, result.Error)
	assert.True(t, result.Debt.CurrentBalance.IsZero(), "balance clamps to zero, never negative")
	assert.Equal(t, debt.StatusPaidOff, result.Debt.Status)

	debts := f.service.GetDebts(ctx)
	require.Len(t, debts, 1)
	assert.True(t, debts[0].CurrentBalance.IsZero())
}

func TestCreateDebtPaymentValidation(t *testing.T) {
	f := newFixture()
	ctx, _ := f.newCaller()

	created := createDebt(t, f, ctx, debt.DebtInput{
		Name: "Card", Type: "CREDIT_CARD", TotalAmount: "1000", CurrentBalance: "1000",
	})

	for _, amount := range []string{"0", "-500", "much"} {
		result := f.service.CreateDebtPayment(ctx, debt.PaymentInput{
			DebtID: created.ID.String(), Amount: amount, PaymentDate: "2026-08-01",
		})
		assert.False(t, result.Success, "amount %q must fail validation", amount)
	}

	// nothing was inserted and the balance is untouched
	assert.Empty(t, f.service.GetDebtPayments(ctx, created.ID.String()))
	debts := f.service.GetDebts(ctx)
	require.Len(t, debts, 1)
	assert.True(t, debts[0].CurrentBalance.Equal(decimal.NewFromInt(1000)))
}

func TestCreateDebtPaymentUnknownDebt(t *testing.T) {
	f := newFixture()
	ctx, _ := f.newCaller()

	result := f.service.CreateDebtPayment(ctx, debt.PaymentInput{
		DebtID: uuid.NewString(), Amount: "100", PaymentDate: "2026-08-01",
	})
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "not found")
}

func TestGetDebtPaymentsOrdering(t *testing.T) {
	f := newFixture()
	ctx, _ := f.newCaller()

	created := createDebt(t, f, ctx, debt.DebtInput{
		Name: "Card", Type: "CREDIT_CARD", TotalAmount: "10000", CurrentBalance: "10000",
	})

	for _, date := range []string{"2026-06-01", "2026-08-01", "2026-07-01"} {
		result := f.service.CreateDebtPayment(ctx, debt.PaymentInput{
			DebtID: created.ID.String(), Amount: "100", PaymentDate: date,
		})
		require.True(t, result.Success, result.Error)
	}

	payments := f.service.GetDebtPayments(ctx, created.ID.String())
	require.Len(t, payments, 3)
	assert.Equal(t, "2026-08-01", payments[0].PaymentDate.Format("2006-01-02"))
	assert.Equal(t, "2026-07-01", payments[1].PaymentDate.Format("2006-01-02"))
	assert.Equal(t, "2026-06-01", payments[2].PaymentDate.Format("2006-01-02"))

	// the listing also rides along on GetDebts
	debts := f.service.GetDebts(ctx)
	require.Len(t, debts, 1)
	require.Len(t, debts[0].Payments, 3)
	assert.Equal(t, payments[0].ID, debts[0].Payments[0].ID)
}

func TestGetDebtsAttachesReceipts(t *testing.T) {
	f := newFixture()
	ctx, userID := f.newCaller()

	created := createDebt(t, f, ctx, debt.DebtInput{
		Name: "Card", Type: "CREDIT_CARD", TotalAmount: "1000", CurrentBalance: "1000",
	})
	f.repo.AddReceipt(debt.Receipt{
		ID:       uuid.New(),
		DebtID:   created.ID,
		UserID:   userID,
		FileName: "august.pdf",
		FileURL:  "/uploads/august.pdf",
	})

	debts := f.service.GetDebts(ctx)
	require.Len(t, debts, 1)
	require.Len(t, debts[0].Receipts, 1)
	assert.Equal(t, "august.pdf", debts[0].Receipts[0].FileName)
}

func TestOwnershipIsolation(t *testing.T) {
	f := newFixture()
	ownerCtx, _ := f.newCaller()
	strangerCtx, _ := f.newCaller()

	created := createDebt(t, f, ownerCtx, debt.DebtInput{
		Name: "Private", Type: "OTHER", TotalAmount: "100", CurrentBalance: "100",
	})

	assert.Empty(t, f.service.GetDebts(strangerCtx))
	assert.Empty(t, f.service.GetDebtPayments(strangerCtx, created.ID.String()))

	update := f.service.UpdateDebt(strangerCtx, created.ID.String(), debt.DebtInput{
		Name: "Hijacked", Type: "OTHER", TotalAmount: "100", CurrentBalance: "0",
	})
	assert.False(t, update.Success)
	assert.Contains(t, update.Error, "not found")

	del := f.service.DeleteDebt(strangerCtx, created.ID.String())
	assert.False(t, del.Success)
	assert.Contains(t, del.Error, "not found")

	pay := f.service.CreateDebtPayment(strangerCtx, debt.PaymentInput{
		DebtID: created.ID.String(), Amount: "100", PaymentDate: "2026-08-01",
	})
	assert.False(t, pay.Success)
	assert.Contains(t, pay.Error, "not found")

	// owner's debt untouched by any of it
	debts := f.service.GetDebts(ownerCtx)
	require.Len(t, debts, 1)
	assert.Equal(t, "Private", debts[0].Name)
	assert.True(t, debts[0].CurrentBalance.Equal(decimal.NewFromInt(100)))
}

func TestUnauthenticatedCaller(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	result := f.service.CreateDebt(ctx, debt.DebtInput{
		Name: "x", Type: "OTHER", TotalAmount: "1", CurrentBalance: "1",
	})
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "unauthorized")

	// reads are fail-soft: empty list, not an error
	assert.Empty(t, f.service.GetDebts(ctx))
	assert.Empty(t, f.service.GetDebtPayments(ctx, uuid.NewString()))
}

func TestIdentityWithoutUserRecord(t *testing.T) {
	f := newFixture()
	ctx := auth.WithIdentity(context.Background(), auth.Identity{Subject: uuid.NewString()})

	result := f.service.CreateDebt(ctx, debt.DebtInput{
		Name: "x", Type: "OTHER", TotalAmount: "1", CurrentBalance: "1",
	})
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "not found")

	assert.Empty(t, f.service.GetDebts(ctx))
}

func TestConcurrentPaymentsSerialize(t *testing.T) {
	f := newFixture()
	ctx, _ := f.newCaller()

	created := createDebt(t, f, ctx, debt.DebtInput{
		Name: "Card", Type: "CREDIT_CARD", TotalAmount: "5000", CurrentBalance: "5000",
	})

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result := f.service.CreateDebtPayment(ctx, debt.PaymentInput{
				DebtID: created.ID.String(), Amount: "3000", PaymentDate: "2026-08-01",
			})
			assert.True(t, result.Success, result.Error)
		}()
	}
	wg.Wait()

	// whichever order they ran, the second must have read the first's
	// balance: 5000 -> 2000 -> clamp at 0, never -1000
	debts := f.service.GetDebts(ctx)
	require.Len(t, debts, 1)
	assert.True(t, debts[0].CurrentBalance.IsZero(), "got %s", debts[0].CurrentBalance)
	assert.Equal(t, debt.StatusPaidOff, debts[0].Status)
	require.Len(t, debts[0].Payments, 2)
}
