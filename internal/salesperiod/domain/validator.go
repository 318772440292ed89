package domain

import (
	"errors"
	"fmt"
	"time"
)

const (
	WarningOutsideContractWindow = "period_outside_contract_window"
	WarningUnexpectedDayCount    = "period_length_unexpected"
)

// Warning is a non-blocking validation finding. The period is still
// accepted; callers surface warnings to the operator.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`

	// SuggestedEnd is set on day-count warnings: the end date the configured
	// nominal length would give for this start date.
	SuggestedEnd *time.Time `json:"suggested_end,omitempty"`
}

var (
	ErrInvalidRange  = errors.New("invalid_period_range")
	ErrPeriodOverlap = errors.New("period_overlap")
)

// FrequencyBand is the accepted inclusive day-count range for the contract's
// reporting frequency, plus the nominal length used for suggestions.
type FrequencyBand struct {
	MinDays     int
	MaxDays     int
	NominalDays int
}

// ValidateRange rejects ranges where the end precedes the start.
func ValidateRange(start, end time.Time) error {
	if end.Before(start) {
		return fmt.Errorf("%w: end %s precedes start %s",
			ErrInvalidRange, end.Format("2006-01-02"), start.Format("2006-01-02"))
	}
	return nil
}

// CheckOverlap compares a candidate range against existing periods and
// returns ErrPeriodOverlap naming the first collision. Voided periods do not
// collide.
func CheckOverlap(start, end time.Time, existing []*SalesPeriod) error {
	for _, p := range existing {
		if p.Status == PeriodStatusVoided {
			continue
		}
		if Overlaps(start, end, p.PeriodStart, p.PeriodEnd) {
			return fmt.Errorf("%w: collides with period %s (%s to %s)",
				ErrPeriodOverlap, p.ID,
				p.PeriodStart.Format("2006-01-02"), p.PeriodEnd.Format("2006-01-02"))
		}
	}
	return nil
}

// CheckContractWindow warns when any part of the candidate range falls
// outside the contract's effective dates.
func CheckContractWindow(start, end, contractStart, contractEnd time.Time) *Warning {
	if !start.Before(contractStart) && !end.After(contractEnd) {
		return nil
	}
	return &Warning{
		Code: WarningOutsideContractWindow,
		Message: fmt.Sprintf("period %s to %s extends outside the contract window %s to %s",
			start.Format("2006-01-02"), end.Format("2006-01-02"),
			contractStart.Format("2006-01-02"), contractEnd.Format("2006-01-02")),
	}
}

// CheckFrequencyLength warns when the range's day count falls outside the
// configured band for the contract's reporting frequency, suggesting the end
// date a nominal-length period would have.
func CheckFrequencyLength(start, end time.Time, band FrequencyBand) *Warning {
	days := DayCount(start, end)
	if days >= band.MinDays && days <= band.MaxDays {
		return nil
	}
	suggested := start.AddDate(0, 0, band.NominalDays-1)
	return &Warning{
		Code: WarningUnexpectedDayCount,
		Message: fmt.Sprintf("period spans %d days, expected %d to %d for this reporting frequency",
			days, band.MinDays, band.MaxDays),
		SuggestedEnd: &suggested,
	}
}
