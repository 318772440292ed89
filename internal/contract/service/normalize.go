package service

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/smallbiznis/regalia/internal/contract/domain"
)

// Extraction output is free text. These helpers normalize what extraction
// produced into the stored representation, failing rather than guessing when
// a value is ambiguous.

var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
}

func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("%w: empty date", domain.ErrInvalidDates)
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unparseable date %q", domain.ErrInvalidDates, value)
}

// parseMoneyCents accepts "$50,000", "50000", "1,250.50" and the like.
// Empty means zero; anything else unparseable is an error, never a silent
// zero.
func parseMoneyCents(value string) (int64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}

	cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(value)
	cleaned = strings.TrimPrefix(cleaned, "USD")
	if cleaned == "" {
		return 0, fmt.Errorf("%w: amount %q", domain.ErrInvalidAmount, value)
	}

	amount, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: amount %q", domain.ErrInvalidAmount, value)
	}
	if amount < 0 || math.IsInf(amount, 0) || math.IsNaN(amount) {
		return 0, fmt.Errorf("%w: amount %q", domain.ErrInvalidAmount, value)
	}
	return int64(math.Floor(amount*100 + 0.5)), nil
}

var frequencyAliases = map[string]domain.ReportingFrequency{
	"monthly":      domain.FrequencyMonthly,
	"month":        domain.FrequencyMonthly,
	"quarterly":    domain.FrequencyQuarterly,
	"quarter":      domain.FrequencyQuarterly,
	"semi-annual":  domain.FrequencySemiAnnual,
	"semi annual":  domain.FrequencySemiAnnual,
	"semi_annual":  domain.FrequencySemiAnnual,
	"semiannual":   domain.FrequencySemiAnnual,
	"twice yearly": domain.FrequencySemiAnnual,
	"annual":       domain.FrequencyAnnual,
	"annually":     domain.FrequencyAnnual,
	"yearly":       domain.FrequencyAnnual,
}

func parseFrequency(value string) (domain.ReportingFrequency, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if f, ok := frequencyAliases[normalized]; ok {
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", domain.ErrInvalidFrequency, value)
}

func parseGuaranteePeriod(value string) (domain.GuaranteePeriod, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "":
		return "", nil
	case "monthly", "month", "per month":
		return domain.GuaranteeMonthly, nil
	case "quarterly", "quarter", "per quarter":
		return domain.GuaranteeQuarterly, nil
	case "annual", "annually", "yearly", "per year":
		return domain.GuaranteeAnnual, nil
	}
	return "", fmt.Errorf("%w: %q", domain.ErrInvalidGuarantee, value)
}

func parseRoyaltyBase(value string) domain.RoyaltyBase {
	if strings.Contains(strings.ToLower(value), "gross") {
		return domain.RoyaltyBaseGross
	}
	return domain.RoyaltyBaseNet
}
