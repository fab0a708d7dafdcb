package debt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Type string

const (
	TypeCreditCard    Type = "CREDIT_CARD"
	TypePersonalLoan  Type = "PERSONAL_LOAN"
	TypeHomeLoan      Type = "HOME_LOAN"
	TypeCarLoan       Type = "CAR_LOAN"
	TypeEducationLoan Type = "EDUCATION_LOAN"
	TypeEMI           Type = "EMI"
	TypeOther         Type = "OTHER"
)

type Status string

const (
	StatusActive  Status = "ACTIVE"
	StatusPaidOff Status = "PAID_OFF"
	StatusOverdue Status = "OVERDUE"
	StatusPaused  Status = "PAUSED"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("invalid input")
)

const dateLayout = "2006-01-02"

type Debt struct {
	ID             uuid.UUID           `json:"id"`
	UserID         uuid.UUID           `json:"user_id"`
	Name           string              `json:"name"`
	Type           Type                `json:"type"`
	TotalAmount    decimal.Decimal     `json:"total_amount"`
	CurrentBalance decimal.Decimal     `json:"current_balance"`
	InterestRate   decimal.NullDecimal `json:"interest_rate"`
	MinPayment     decimal.NullDecimal `json:"min_payment"`
	DueDate        *time.Time          `json:"due_date,omitempty"`
	Description    string              `json:"description,omitempty"`
	Status         Status              `json:"status"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
	Payments       []Payment           `json:"payments,omitempty"`
	Receipts       []Receipt           `json:"receipts,omitempty"`
}

// Receipt is an uploaded proof-of-payment document linked to a debt. This
// module only reads receipts; uploading lives elsewhere.
type Receipt struct {
	ID        uuid.UUID `json:"id"`
	DebtID    uuid.UUID `json:"debt_id"`
	UserID    uuid.UUID `json:"user_id"`
	FileName  string    `json:"file_name"`
	FileURL   string    `json:"file_url"`
	CreatedAt time.Time `json:"created_at"`
}

type Payment struct {
	ID          uuid.UUID       `json:"id"`
	DebtID      uuid.UUID       `json:"debt_id"`
	UserID      uuid.UUID       `json:"user_id"`
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate time.Time       `json:"payment_date"`
	Description string          `json:"description,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// DebtInput carries the raw form fields of a create/update request. All
// values are text; parsing and validation happen here, never silently.
type DebtInput struct {
	Name           string
	Type           string
	TotalAmount    string
	CurrentBalance string
	InterestRate   string
	MinPayment     string
	DueDate        string
	Description    string
	Status         string
}

type PaymentInput struct {
	DebtID      string
	Amount      string
	PaymentDate string
	Description string
}

func ParseType(s string) (Type, error) {
	switch Type(s) {
	case TypeCreditCard, TypePersonalLoan, TypeHomeLoan, TypeCarLoan, TypeEducationLoan, TypeEMI, TypeOther:
		return Type(s), nil
	}
	return "", fmt.Errorf("%w: type: unknown debt type %q", ErrValidation, s)
}

// ParseStatus accepts an explicit status; the empty string defaults to
// ACTIVE, matching the update contract.
func ParseStatus(s string) (Status, error) {
	if s == "" {
		return StatusActive, nil
	}
	switch Status(s) {
	case StatusActive, StatusPaidOff, StatusOverdue, StatusPaused:
		return Status(s), nil
	}
	return "", fmt.Errorf("%w: status: unknown status %q", ErrValidation, s)
}

// NewDebt validates the form input and builds a Debt owned by userID with
// status ACTIVE.
func NewDebt(userID uuid.UUID, in DebtInput) (*Debt, error) {
	fields, err := parseDebtFields(in)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	d := &Debt{
		ID:        uuid.New(),
		UserID:    userID,
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	fields.applyTo(d)
	return d, nil
}

// ReviseDebt validates the form input of an update and builds the full
// replacement row for debtID. Status defaults to ACTIVE when omitted.
func ReviseDebt(debtID, userID uuid.UUID, in DebtInput) (*Debt, error) {
	fields, err := parseDebtFields(in)
	if err != nil {
		return nil, err
	}

	status, err := ParseStatus(in.Status)
	if err != nil {
		return nil, err
	}

	d := &Debt{
		ID:        debtID,
		UserID:    userID,
		Status:    status,
		UpdatedAt: time.Now().UTC(),
	}
	fields.applyTo(d)
	return d, nil
}

func NewPayment(userID, debtID uuid.UUID, in PaymentInput) (*Payment, error) {
	amount, err := requiredDecimal("amount", in.Amount)
	if err != nil {
		return nil, err
	}
	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}

	if strings.TrimSpace(in.PaymentDate) == "" {
		return nil, fmt.Errorf("%w: paymentDate is required", ErrValidation)
	}
	paymentDate, err := time.Parse(dateLayout, in.PaymentDate)
	if err != nil {
		return nil, fmt.Errorf("%w: paymentDate: %q is not a date", ErrValidation, in.PaymentDate)
	}

	return &Payment{
		ID:          uuid.New(),
		DebtID:      debtID,
		UserID:      userID,
		Amount:      amount,
		PaymentDate: paymentDate,
		Description: strings.TrimSpace(in.Description),
		CreatedAt:   time.Now().UTC(),
	}, nil
}

type debtFields struct {
	name           string
	typ            Type
	totalAmount    decimal.Decimal
	currentBalance decimal.Decimal
	interestRate   decimal.NullDecimal
	minPayment     decimal.NullDecimal
	dueDate        *time.Time
	description    string
}

func (f debtFields) applyTo(d *Debt) {
	d.Name = f.name
	d.Type = f.typ
	d.TotalAmount = f.totalAmount
	d.CurrentBalance = f.currentBalance
	d.InterestRate = f.interestRate
	d.MinPayment = f.minPayment
	d.DueDate = f.dueDate
	d.Description = f.description
}

func parseDebtFields(in DebtInput) (debtFields, error) {
	var f debtFields

	f.name = strings.TrimSpace(in.Name)
	if f.name == "" {
		return f, fmt.Errorf("%w: name is required", ErrValidation)
	}

	typ, err := ParseType(in.Type)
	if err != nil {
		return f, err
	}
	f.typ = typ

	if f.totalAmount, err = requiredDecimal("totalAmount", in.TotalAmount); err != nil {
		return f, err
	}
	if f.totalAmount.Sign() <= 0 {
		return f, fmt.Errorf("%w: totalAmount must be positive", ErrValidation)
	}

	if f.currentBalance, err = requiredDecimal("currentBalance", in.CurrentBalance); err != nil {
		return f, err
	}
	if f.currentBalance.Sign() < 0 {
		return f, fmt.Errorf("%w: currentBalance can't be negative", ErrValidation)
	}

	if f.interestRate, err = optionalDecimal("interestRate", in.InterestRate); err != nil {
		return f, err
	}
	if f.minPayment, err = optionalDecimal("minPayment", in.MinPayment); err != nil {
		return f, err
	}

	if s := strings.TrimSpace(in.DueDate); s != "" {
		due, err := time.Parse(dateLayout, s)
		if err != nil {
			return f, fmt.Errorf("%w: dueDate: %q is not a date", ErrValidation, s)
		}
		f.dueDate = &due
	}

	f.description = strings.TrimSpace(in.Description)
	return f, nil
}

func requiredDecimal(field, value string) (decimal.Decimal, error) {
	s := strings.TrimSpace(value)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: %s is required", ErrValidation, field)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s: %q is not a number", ErrValidation, field, s)
	}
	return d, nil
}

func optionalDecimal(field, value string) (decimal.NullDecimal, error) {
	s := strings.TrimSpace(value)
	if s == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("%w: %s: %q is not a number", ErrValidation, field, s)
	}
	if d.Sign() < 0 {
		return decimal.NullDecimal{}, fmt.Errorf("%w: %s can't be negative", ErrValidation, field)
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}, nil
}

// settle applies a payment to a balance: the result clamps at zero and the
// status flips to PAID_OFF exactly when the balance reaches zero.
func settle(balance, amount decimal.Decimal, status Status) (decimal.Decimal, Status) {
	newBalance := balance.Sub(amount)
	if newBalance.Sign() <= 0 {
		return decimal.Zero, StatusPaidOff
	}
	return newBalance, status
}
