package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func TestValidateRange(t *testing.T) {
	assert.NoError(t, ValidateRange(date(2025, 1, 1), date(2025, 1, 31)))
	assert.NoError(t, ValidateRange(date(2025, 1, 1), date(2025, 1, 1)))
	assert.ErrorIs(t, ValidateRange(date(2025, 1, 31), date(2025, 1, 1)), ErrInvalidRange)
}

func TestCheckOverlap(t *testing.T) {
	existing := []*SalesPeriod{
		{ID: 1, PeriodStart: date(2025, 1, 1), PeriodEnd: date(2025, 1, 31), Status: PeriodStatusConfirmed},
		{ID: 2, PeriodStart: date(2025, 3, 1), PeriodEnd: date(2025, 3, 31), Status: PeriodStatusConfirmed},
	}

	// February sits cleanly between the two.
	assert.NoError(t, CheckOverlap(date(2025, 2, 1), date(2025, 2, 28), existing))

	// Interior overlap.
	assert.ErrorIs(t, CheckOverlap(date(2025, 1, 15), date(2025, 2, 15), existing), ErrPeriodOverlap)

	// Touching an existing endpoint counts as overlap: ranges are closed.
	assert.ErrorIs(t, CheckOverlap(date(2025, 1, 31), date(2025, 2, 27), existing), ErrPeriodOverlap)
	assert.ErrorIs(t, CheckOverlap(date(2025, 2, 2), date(2025, 3, 1), existing), ErrPeriodOverlap)

	// A candidate that swallows an existing period entirely.
	assert.ErrorIs(t, CheckOverlap(date(2024, 12, 1), date(2025, 4, 30), existing), ErrPeriodOverlap)

	// Voided periods do not collide.
	voided := []*SalesPeriod{
		{ID: 3, PeriodStart: date(2025, 1, 1), PeriodEnd: date(2025, 1, 31), Status: PeriodStatusVoided},
	}
	assert.NoError(t, CheckOverlap(date(2025, 1, 1), date(2025, 1, 31), voided))
}

func TestCheckContractWindow(t *testing.T) {
	contractStart := date(2024, 1, 1)
	contractEnd := date(2026, 12, 31)

	assert.Nil(t, CheckContractWindow(date(2025, 1, 1), date(2025, 1, 31), contractStart, contractEnd))

	w := CheckContractWindow(date(2023, 12, 1), date(2023, 12, 31), contractStart, contractEnd)
	require.NotNil(t, w)
	assert.Equal(t, WarningOutsideContractWindow, w.Code)

	// Straddling the contract end still warns.
	w = CheckContractWindow(date(2026, 12, 1), date(2027, 1, 15), contractStart, contractEnd)
	require.NotNil(t, w)
	assert.Equal(t, WarningOutsideContractWindow, w.Code)
}

func TestCheckFrequencyLength(t *testing.T) {
	monthly := FrequencyBand{MinDays: 28, MaxDays: 31, NominalDays: 30}

	// A calendar month is fine.
	assert.Nil(t, CheckFrequencyLength(date(2025, 1, 1), date(2025, 1, 31), monthly))
	assert.Nil(t, CheckFrequencyLength(date(2025, 2, 1), date(2025, 2, 28), monthly))

	// Ten days on a monthly contract draws a warning with a suggested end.
	w := CheckFrequencyLength(date(2025, 1, 1), date(2025, 1, 10), monthly)
	require.NotNil(t, w)
	assert.Equal(t, WarningUnexpectedDayCount, w.Code)
	require.NotNil(t, w.SuggestedEnd)
	assert.Equal(t, date(2025, 1, 30), *w.SuggestedEnd)

	// A quarter on a monthly contract warns too.
	w = CheckFrequencyLength(date(2025, 1, 1), date(2025, 3, 31), monthly)
	require.NotNil(t, w)
	assert.Equal(t, WarningUnexpectedDayCount, w.Code)
}

func TestDayCount(t *testing.T) {
	assert.Equal(t, 1, DayCount(date(2025, 1, 1), date(2025, 1, 1)))
	assert.Equal(t, 31, DayCount(date(2025, 1, 1), date(2025, 1, 31)))
	assert.Equal(t, 365, DayCount(date(2025, 1, 1), date(2025, 12, 31)))
}
