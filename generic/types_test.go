package generic_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/rent-billing/generic"
)

func TestParseMoney(t *testing.T) {
	d, err := generic.ParseMoney("5000.50")
	require.NoError(t, err)
	assert.Equal(t, "5000.5", d.String())

	zero, err := generic.ParseMoney("")
	require.NoError(t, err)
	assert.True(t, zero.IsZero())

	_, err = generic.ParseMoney("5,000")
	assert.Error(t, err, "garbage never becomes zero")
}

func TestMoneyHelpers(t *testing.T) {
	a, b := generic.MustMoney("10.25"), generic.MustMoney("3.75")

	assert.True(t, generic.MustMoney("14").Equal(generic.Sum(a, b)))
	assert.True(t, generic.Sum().IsZero())
	assert.True(t, b.Equal(generic.Min(a, b)))
	assert.True(t, a.Equal(generic.Max(a, b)))
	assert.True(t, generic.NonNegative(b.Sub(a)).IsZero())
	assert.True(t, generic.MustMoney("6.5").Equal(generic.NonNegative(a.Sub(b))))
	assert.Equal(t, "10.25", generic.FormatMoney(a))
	assert.Equal(t, "5000.00", generic.FormatMoney(generic.MustMoney("5000")))
}

func TestMustMoney_Panics(t *testing.T) {
	assert.Panics(t, func() { generic.MustMoney("abc") })
}

func TestErrors(t *testing.T) {
	amountErr := generic.CheckNonNegative("paidAmount", "2024-01", generic.MustMoney("-1"))
	require.Error(t, amountErr)
	assert.ErrorIs(t, amountErr, generic.ErrBillingDataInvalid)
	assert.Contains(t, amountErr.Error(), "paidAmount for 2024-01")
	assert.True(t, generic.IsClientError(amountErr))
	assert.NoError(t, generic.CheckNonNegative("paidAmount", "", generic.Zero))

	balErr := &generic.InsufficientBalanceError{Pool: "advance", Available: generic.MustMoney("100"), Requested: generic.MustMoney("250")}
	assert.ErrorIs(t, balErr, generic.ErrInsufficientBalance)
	assert.Contains(t, balErr.Error(), "shortfall 150")
	assert.True(t, generic.IsClientError(balErr))

	assert.True(t, generic.IsNotFound(generic.ErrStudentNotFound))
	assert.False(t, generic.IsClientError(errors.New("disk full")))
	assert.False(t, generic.IsNotFound(generic.ErrInvalidMonth))
}
