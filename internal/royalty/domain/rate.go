// Package domain defines the royalty rate model and its evaluation.
package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

type RateKind string

const (
	RateKindFlat     RateKind = "flat"
	RateKindTiered   RateKind = "tiered"
	RateKindCategory RateKind = "category"
)

// RateModel is the strict tagged union of supported rate structures.
// Exactly one variant is populated, selected by Kind. Instances are only
// produced by ParseRate; call sites never pattern-match raw rate JSON.
type RateModel struct {
	Kind RateKind

	FlatRate   float64
	Tiers      []RateTier
	Categories map[string]float64
}

// RateTier is one band of a progressive tier ladder. Bounds are in cents of
// sales; MaxCents == nil marks the open-ended top tier.
type RateTier struct {
	MinCents int64   `json:"min_cents"`
	MaxCents *int64  `json:"max_cents"`
	Rate     float64 `json:"rate"`
}

// SalesInput is the declared sales of one reporting period.
// NetSalesCents drives flat and tiered rates; CategorySalesCents drives
// category rates.
type SalesInput struct {
	NetSalesCents      int64
	CategorySalesCents map[string]int64
}

var (
	ErrMalformedRateStructure = errors.New("malformed_rate_structure")
	ErrUnknownCategory        = errors.New("unknown_category")
	ErrNegativeSales          = errors.New("negative_sales")
)

// rateDocument is the stored wire shape of a tagged rate object.
type rateDocument struct {
	Type  string             `json:"type"`
	Rate  *float64           `json:"rate,omitempty"`
	Tiers []rateTierDocument `json:"tiers,omitempty"`
	Rates map[string]float64 `json:"rates,omitempty"`
}

type rateTierDocument struct {
	MinCents int64   `json:"min_cents"`
	MaxCents *int64  `json:"max_cents"`
	Rate     float64 `json:"rate"`
}

// ParseRate converts a stored rate document into a RateModel. It is total
// over the shapes permissive upstream extraction historically produced: a
// bare number (rate fraction), a legacy percentage string ("7.5%"), or a
// tagged object. Anything else is rejected with ErrMalformedRateStructure.
func ParseRate(raw []byte) (RateModel, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return RateModel{}, fmt.Errorf("%w: empty rate", ErrMalformedRateStructure)
	}

	var number float64
	if err := json.Unmarshal(raw, &number); err == nil {
		return flatRate(number)
	}

	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return parseLegacyPercentage(str)
	}

	var doc rateDocument
	decoder := json.NewDecoder(strings.NewReader(trimmed))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&doc); err != nil {
		return RateModel{}, fmt.Errorf("%w: %v", ErrMalformedRateStructure, err)
	}

	switch strings.ToLower(strings.TrimSpace(doc.Type)) {
	case string(RateKindFlat):
		if doc.Rate == nil {
			return RateModel{}, fmt.Errorf("%w: flat rate missing value", ErrMalformedRateStructure)
		}
		return flatRate(*doc.Rate)
	case string(RateKindTiered):
		return tieredRate(doc.Tiers)
	case string(RateKindCategory):
		return categoryRate(doc.Rates)
	default:
		return RateModel{}, fmt.Errorf("%w: unknown rate type %q", ErrMalformedRateStructure, doc.Type)
	}
}

// Document renders the model back to its canonical stored form: always the
// tagged object, whatever legacy shape it was parsed from. Storing the
// tagged object keeps the column textual on every dialect; a bare numeric
// rate would take numeric affinity on sqlite and come back unreadable.
func (r RateModel) Document() ([]byte, error) {
	doc := rateDocument{Type: string(r.Kind)}
	switch r.Kind {
	case RateKindFlat:
		rate := r.FlatRate
		doc.Rate = &rate
	case RateKindTiered:
		for _, t := range r.Tiers {
			doc.Tiers = append(doc.Tiers, rateTierDocument{MinCents: t.MinCents, MaxCents: t.MaxCents, Rate: t.Rate})
		}
	case RateKindCategory:
		doc.Rates = r.Categories
	default:
		return nil, fmt.Errorf("%w: no rate kind", ErrMalformedRateStructure)
	}
	return json.Marshal(doc)
}

func flatRate(rate float64) (RateModel, error) {
	if err := validRateValue(rate); err != nil {
		return RateModel{}, err
	}
	return RateModel{Kind: RateKindFlat, FlatRate: rate}, nil
}

func parseLegacyPercentage(value string) (RateModel, error) {
	value = strings.TrimSpace(value)
	if !strings.HasSuffix(value, "%") {
		return RateModel{}, fmt.Errorf("%w: string rate %q is not a percentage", ErrMalformedRateStructure, value)
	}
	number, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(value, "%")), 64)
	if err != nil {
		return RateModel{}, fmt.Errorf("%w: string rate %q", ErrMalformedRateStructure, value)
	}
	return flatRate(number / 100)
}

func tieredRate(docs []rateTierDocument) (RateModel, error) {
	if len(docs) == 0 {
		return RateModel{}, fmt.Errorf("%w: tiered rate has no tiers", ErrMalformedRateStructure)
	}

	tiers := make([]RateTier, 0, len(docs))
	for _, d := range docs {
		tiers = append(tiers, RateTier{MinCents: d.MinCents, MaxCents: d.MaxCents, Rate: d.Rate})
	}

	if !sort.SliceIsSorted(tiers, func(i, j int) bool { return tiers[i].MinCents < tiers[j].MinCents }) {
		return RateModel{}, fmt.Errorf("%w: tiers not sorted ascending", ErrMalformedRateStructure)
	}

	for i, tier := range tiers {
		if err := validRateValue(tier.Rate); err != nil {
			return RateModel{}, err
		}
		if tier.MinCents < 0 {
			return RateModel{}, fmt.Errorf("%w: tier %d has negative lower bound", ErrMalformedRateStructure, i)
		}
		if tier.MaxCents != nil && *tier.MaxCents <= tier.MinCents {
			return RateModel{}, fmt.Errorf("%w: tier %d has empty range", ErrMalformedRateStructure, i)
		}
		if tier.MaxCents == nil && i != len(tiers)-1 {
			return RateModel{}, fmt.Errorf("%w: open-ended tier %d is not the top tier", ErrMalformedRateStructure, i)
		}
		if i > 0 {
			prev := tiers[i-1]
			if prev.MaxCents == nil || *prev.MaxCents != tier.MinCents {
				return RateModel{}, fmt.Errorf("%w: tiers %d and %d are not contiguous", ErrMalformedRateStructure, i-1, i)
			}
		}
	}

	return RateModel{Kind: RateKindTiered, Tiers: tiers}, nil
}

func categoryRate(rates map[string]float64) (RateModel, error) {
	if len(rates) == 0 {
		return RateModel{}, fmt.Errorf("%w: category rate has no entries", ErrMalformedRateStructure)
	}
	normalized := make(map[string]float64, len(rates))
	for name, rate := range rates {
		name = strings.TrimSpace(name)
		if name == "" {
			return RateModel{}, fmt.Errorf("%w: empty category name", ErrMalformedRateStructure)
		}
		if err := validRateValue(rate); err != nil {
			return RateModel{}, err
		}
		normalized[name] = rate
	}
	return RateModel{Kind: RateKindCategory, Categories: normalized}, nil
}

func validRateValue(rate float64) error {
	if math.IsNaN(rate) || math.IsInf(rate, 0) || rate < 0 || rate > 1 {
		return fmt.Errorf("%w: rate %v outside [0, 1]", ErrMalformedRateStructure, rate)
	}
	return nil
}

// Evaluate computes the royalty due on the given sales, in cents.
func (r RateModel) Evaluate(input SalesInput) (int64, error) {
	switch r.Kind {
	case RateKindFlat:
		if input.NetSalesCents < 0 {
			return 0, ErrNegativeSales
		}
		return roundCents(float64(input.NetSalesCents) * r.FlatRate), nil

	case RateKindTiered:
		if input.NetSalesCents < 0 {
			return 0, ErrNegativeSales
		}
		var total int64
		for _, tier := range r.Tiers {
			upper := input.NetSalesCents
			if tier.MaxCents != nil && *tier.MaxCents < upper {
				upper = *tier.MaxCents
			}
			slice := upper - tier.MinCents
			if slice <= 0 {
				continue
			}
			total += roundCents(float64(slice) * tier.Rate)
		}
		return total, nil

	case RateKindCategory:
		var total int64
		// Each category is rated independently; there is deliberately no
		// blended-rate path here.
		for category, salesCents := range input.CategorySalesCents {
			if salesCents < 0 {
				return 0, ErrNegativeSales
			}
			rate, ok := r.Categories[category]
			if !ok {
				return 0, fmt.Errorf("%w: %s", ErrUnknownCategory, category)
			}
			total += roundCents(float64(salesCents) * rate)
		}
		return total, nil

	default:
		return 0, fmt.Errorf("%w: unknown kind %q", ErrMalformedRateStructure, r.Kind)
	}
}

func roundCents(raw float64) int64 {
	return int64(math.Floor(raw + 0.5))
}
