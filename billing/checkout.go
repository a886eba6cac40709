package billing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/rent-billing/generic"
)

// =============================================================================
// CHECKOUT SETTLEMENT
// =============================================================================
// Outstanding due is offset by the security deposit first, then by the
// advance. What is left of each pool is returned. Due that neither pool can
// cover stays owed; it is never waived.
//
//   depositUsed     = min(deposit, due)          (or the requested amount)
//   advanceUsed     = min(advance, due - depositUsed)
//   depositReturned = deposit - depositUsed
//   advanceReturned = advance - advanceUsed
//   refund          = depositReturned + advanceReturned
//   remainingDue    = due - depositUsed - advanceUsed

// Settlement is the money side of a checkout.
type Settlement struct {
	SecurityDeposit            decimal.Decimal
	TotalAdvance               decimal.Decimal
	TotalOutstandingDue        decimal.Decimal
	SecurityDepositUsedForDues decimal.Decimal
	SecurityDepositReturned    decimal.Decimal
	AdvanceUsedForDues         decimal.Decimal
	AdvanceReturned            decimal.Decimal
	TotalRefundAmount          decimal.Decimal
	RemainingDueOwed           decimal.Decimal
}

// Settle computes the checkout settlement. depositForDues overrides the
// default deposit offset; it must not exceed the deposit or the due.
func Settle(deposit, advance, due decimal.Decimal, depositForDues *decimal.Decimal) (Settlement, error) {
	for _, c := range []struct {
		field string
		v     decimal.Decimal
	}{{"securityDeposit", deposit}, {"totalAdvance", advance}, {"totalOutstandingDue", due}} {
		if err := generic.CheckNonNegative(c.field, "", c.v); err != nil {
			return Settlement{}, err
		}
	}

	used := generic.Min(deposit, due)
	if depositForDues != nil {
		requested := *depositForDues
		if err := generic.CheckNonNegative("securityDepositUsedForDues", "", requested); err != nil {
			return Settlement{}, err
		}
		if requested.GreaterThan(deposit) {
			return Settlement{}, &generic.InsufficientBalanceError{Pool: "security_deposit", Available: deposit, Requested: requested}
		}
		if requested.GreaterThan(due) {
			return Settlement{}, fmt.Errorf("%w: deposit offset %s exceeds outstanding due %s",
				generic.ErrBillingDataInvalid, requested, due)
		}
		used = requested
	}

	left := due.Sub(used)
	advanceUsed := generic.Min(advance, left)

	s := Settlement{
		SecurityDeposit:            deposit,
		TotalAdvance:               advance,
		TotalOutstandingDue:        due,
		SecurityDepositUsedForDues: used,
		SecurityDepositReturned:    deposit.Sub(used),
		AdvanceUsedForDues:         advanceUsed,
		AdvanceReturned:            advance.Sub(advanceUsed),
		RemainingDueOwed:           left.Sub(advanceUsed),
	}
	s.TotalRefundAmount = s.SecurityDepositReturned.Add(s.AdvanceReturned)
	return s, nil
}

// CheckoutInput is the snapshot a checkout statement is built from.
type CheckoutInput struct {
	Profile      Profile
	Entries      []Entry
	Extras       []ExtraTransaction
	CheckoutDate time.Time

	// DepositForDues optionally fixes how much deposit offsets dues.
	DepositForDues *decimal.Decimal
}

type CheckoutStatement struct {
	ID           string
	StudentID    generic.StudentID
	StudentName  string
	Room         string
	CheckoutDate time.Time

	Settlement
	Reconciliation Reconciliation

	PrecisionDegraded bool
	Discrepancies     []Discrepancy
}

// Checkout builds the checkout settlement statement.
func (b *Builder) Checkout(in CheckoutInput) (*CheckoutStatement, error) {
	if err := in.Profile.Validate(); err != nil {
		return nil, err
	}
	ledger, drift, err := Normalize(in.Entries)
	if err != nil {
		return nil, err
	}
	rec, err := ledger.Reconcile(in.Extras)
	if err != nil {
		return nil, err
	}
	settlement, err := Settle(in.Profile.SecurityDeposit, in.Profile.TotalAdvance, rec.TotalOutstandingDue, in.DepositForDues)
	if err != nil {
		return nil, err
	}

	date := in.CheckoutDate
	if date.IsZero() {
		date = time.Now().UTC()
	}

	stmt := &CheckoutStatement{
		ID:                b.id(),
		StudentID:         in.Profile.StudentID,
		StudentName:       in.Profile.Name,
		Room:              in.Profile.Room,
		CheckoutDate:      date,
		Settlement:        settlement,
		Reconciliation:    rec,
		PrecisionDegraded: rec.PrecisionDegraded,
	}
	stmt.Discrepancies = append(stmt.Discrepancies, drift...)
	stmt.Discrepancies = append(stmt.Discrepancies, rec.Drift...)
	return stmt, nil
}
