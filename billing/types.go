/*
Package billing implements rent reconciliation and statement generation.

PURPOSE:
  For each student the engine answers three questions consistently:
    1. How much is due now, and for how many consecutive months?
    2. Which future months will existing advance credit pay, and by how much?
    3. How much money was actually received, as opposed to moved between
       internal buckets (advance, security deposit, refunds)?

COMPONENTS (leaves first):
  ledger.go:     MonthlyLedgerEntry normalization and status derivation
  due.go:        DueClassifier - consecutive due streak and risk tier
  projection.go: AdvanceProjector - non-committing forecast of advance coverage
  reconcile.go:  CashReconciler - cash received vs internal adjustments
  statement.go:  StatementBuilder - student ledger statement
  checkout.go:   StatementBuilder - checkout settlement
  report.go:     StatementBuilder - collection report across students
  audit.go:      Cross-checks against server payloads and the advance audit trail

CONCURRENCY:
  Every function here is pure over its inputs. Callers may run them
  concurrently for different students without coordination. Writers
  (see Store) must serialize commits per student.

SEE ALSO:
  - generic/: money, month keys, errors
  - store/: Store implementations
*/
package billing

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/rent-billing/generic"
)

// =============================================================================
// LEDGER ENTRY - One month of rent for one student
// =============================================================================

type Status string

const (
	StatusPaid    Status = "paid"
	StatusPartial Status = "partial"
	StatusUnpaid  Status = "unpaid"
)

// RecordsState tells apart legacy entries that never itemized their payments
// from entries that are known to have no payments.
type RecordsState int

const (
	RecordsUnknown   RecordsState = iota // legacy: only the aggregate PaidAmount exists
	RecordsEmpty                         // itemized, and there are no events
	RecordsPopulated                     // itemized events present
)

func (s RecordsState) String() string {
	switch s {
	case RecordsEmpty:
		return "empty"
	case RecordsPopulated:
		return "populated"
	default:
		return "unknown"
	}
}

// MethodAdjustment marks an internal transfer rather than money received.
const MethodAdjustment = "adjustment"

// PaymentRecord is one payment event posted against a month.
type PaymentRecord struct {
	ID     generic.RecordID
	Date   time.Time
	Amount decimal.Decimal
	Method string // cash, bank, upi, adjustment, ...
	Type   string // payment, advance, deposit, adjustment, ...
	Notes  string
}

// IsAdjustment reports whether the record moved already-counted money.
func (r PaymentRecord) IsAdjustment() bool {
	return isAdjustment(r.Type, r.Method)
}

func isAdjustment(txType, method string) bool {
	return strings.EqualFold(strings.TrimSpace(txType), MethodAdjustment) ||
		strings.EqualFold(strings.TrimSpace(method), MethodAdjustment)
}

// Entry is the canonical per-student, per-month ledger record.
type Entry struct {
	Month          generic.Month
	RentAmount     decimal.Decimal
	PaidAmount     decimal.Decimal
	DueAmount      decimal.Decimal
	AdvanceApplied decimal.Decimal
	Status         Status
	RecordsState   RecordsState
	Records        []PaymentRecord
}

// Ledger is a chronologically ordered list of entries for one student.
type Ledger []Entry

// =============================================================================
// STUDENT PROFILE
// =============================================================================

// Profile carries the billing fields of a student.
type Profile struct {
	StudentID       generic.StudentID
	Name            string
	Room            string
	MonthlyRent     decimal.Decimal
	TotalAdvance    decimal.Decimal
	SecurityDeposit decimal.Decimal
	JoiningDate     time.Time
}

// Validate rejects negative balances.
func (p Profile) Validate() error {
	if err := generic.CheckNonNegative("monthlyRent", "", p.MonthlyRent); err != nil {
		return err
	}
	if err := generic.CheckNonNegative("totalAdvance", "", p.TotalAdvance); err != nil {
		return err
	}
	return generic.CheckNonNegative("securityDeposit", "", p.SecurityDeposit)
}

// =============================================================================
// EXTRA TRANSACTION - Movements outside the monthly rent ledger
// =============================================================================

type ExtraType string

const (
	ExtraSecurityDepositUse    ExtraType = "security_deposit_use"
	ExtraSecurityDepositReturn ExtraType = "security_deposit_return"
	ExtraRefund                ExtraType = "refund"
	ExtraAdjustment            ExtraType = "adjustment"
	ExtraUnionFee              ExtraType = "union_fee"
)

type ExtraTransaction struct {
	ID            generic.RecordID
	Type          ExtraType
	PaidAmount    decimal.Decimal
	PaymentMethod string
	Notes         string
	Date          time.Time
}

// IsRefund reports whether the transaction is money paid back out.
func (x ExtraTransaction) IsRefund() bool {
	return strings.EqualFold(string(x.Type), string(ExtraRefund))
}

// IsAdjustment reports whether the transaction is an internal transfer.
func (x ExtraTransaction) IsAdjustment() bool {
	return isAdjustment(string(x.Type), x.PaymentMethod)
}

// =============================================================================
// ADVANCE AUDIT TRAIL - Read-only annotation maintained elsewhere
// =============================================================================

type AdvanceSourceKind string

const (
	SourcePrepayment  AdvanceSourceKind = "prepayment"
	SourceOverpayment AdvanceSourceKind = "overpayment"
)

// AdvanceSource records why advance credit exists.
type AdvanceSource struct {
	ID          string
	Kind        AdvanceSourceKind
	Amount      decimal.Decimal
	FromMonth   generic.Month // set for overpayment spillover
	CreatedAt   time.Time
	Description string
}

// AdvanceApplication records advance consumed against a month.
type AdvanceApplication struct {
	ID        string
	Month     generic.Month
	Amount    decimal.Decimal
	DueBefore decimal.Decimal
	DueAfter  decimal.Decimal
	AppliedAt time.Time
}

// AdvanceAudit is the audit trail as returned by the payment service.
type AdvanceAudit struct {
	Sources      []AdvanceSource
	Applications []AdvanceApplication
}
