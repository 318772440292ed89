package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64ptr(v int64) *int64 { return &v }

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func TestParseRate_BareNumber(t *testing.T) {
	model, err := ParseRate([]byte(`0.075`))
	require.NoError(t, err)
	assert.Equal(t, RateKindFlat, model.Kind)
	assert.Equal(t, 0.075, model.FlatRate)
}

func TestParseRate_LegacyPercentageString(t *testing.T) {
	model, err := ParseRate([]byte(`"7.5%"`))
	require.NoError(t, err)
	assert.Equal(t, RateKindFlat, model.Kind)
	assert.InDelta(t, 0.075, model.FlatRate, 1e-12)
}

func TestParseRate_TaggedFlat(t *testing.T) {
	model, err := ParseRate([]byte(`{"type":"flat","rate":0.05}`))
	require.NoError(t, err)
	assert.Equal(t, RateKindFlat, model.Kind)
	assert.Equal(t, 0.05, model.FlatRate)
}

func TestParseRate_TaggedTiered(t *testing.T) {
	model, err := ParseRate([]byte(`{
		"type": "tiered",
		"tiers": [
			{"min_cents": 0, "max_cents": 1000000, "rate": 0.05},
			{"min_cents": 1000000, "rate": 0.08}
		]
	}`))
	require.NoError(t, err)
	require.Equal(t, RateKindTiered, model.Kind)
	require.Len(t, model.Tiers, 2)
	assert.Nil(t, model.Tiers[1].MaxCents)
}

func TestParseRate_TaggedCategory(t *testing.T) {
	model, err := ParseRate([]byte(`{"type":"category","rates":{"apparel":0.06,"accessories":0.09}}`))
	require.NoError(t, err)
	require.Equal(t, RateKindCategory, model.Kind)
	assert.Equal(t, 0.06, model.Categories["apparel"])
}

func TestParseRate_Malformed(t *testing.T) {
	cases := map[string]string{
		"empty":             ``,
		"null":              `null`,
		"bool":              `true`,
		"plain string":      `"seven percent"`,
		"negative":          `-0.05`,
		"above one":         `1.5`,
		"unknown type":      `{"type":"sliding","rate":0.05}`,
		"flat without rate": `{"type":"flat"}`,
		"unknown field":     `{"type":"flat","rate":0.05,"cap":100}`,
		"tiered empty":      `{"type":"tiered","tiers":[]}`,
		"category empty":    `{"type":"category","rates":{}}`,
		"tiers with gap": `{"type":"tiered","tiers":[
			{"min_cents":0,"max_cents":500,"rate":0.05},
			{"min_cents":600,"rate":0.08}]}`,
		"open tier not last": `{"type":"tiered","tiers":[
			{"min_cents":0,"rate":0.05},
			{"min_cents":1000,"rate":0.08}]}`,
		"tiers unsorted": `{"type":"tiered","tiers":[
			{"min_cents":1000,"max_cents":2000,"rate":0.08},
			{"min_cents":0,"max_cents":1000,"rate":0.05}]}`,
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseRate([]byte(raw))
			assert.ErrorIs(t, err, ErrMalformedRateStructure)
		})
	}
}

func TestRateDocument_CanonicalForm(t *testing.T) {
	// Legacy shapes render back as the tagged object, so what lands in the
	// rate column is always textual JSON.
	legacy, err := ParseRate([]byte(`"7.5%"`))
	require.NoError(t, err)
	doc, err := legacy.Document()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"flat","rate":0.075}`, string(doc))

	tiered, err := ParseRate([]byte(`{"type":"tiered","tiers":[{"min_cents":0,"max_cents":1000000,"rate":0.05},{"min_cents":1000000,"rate":0.08}]}`))
	require.NoError(t, err)
	doc, err = tiered.Document()
	require.NoError(t, err)
	reparsed, err := ParseRate(doc)
	require.NoError(t, err)
	assert.Equal(t, tiered, reparsed)
}

func TestEvaluate_Flat(t *testing.T) {
	model := RateModel{Kind: RateKindFlat, FlatRate: 0.075}

	got, err := model.Evaluate(SalesInput{NetSalesCents: 1000000})
	require.NoError(t, err)
	assert.Equal(t, int64(75000), got)

	got, err = model.Evaluate(SalesInput{NetSalesCents: 0})
	require.NoError(t, err)
	assert.Equal(t, int64(0), got)

	_, err = model.Evaluate(SalesInput{NetSalesCents: -1})
	assert.ErrorIs(t, err, ErrNegativeSales)
}

func TestEvaluate_TieredProgressive(t *testing.T) {
	model := RateModel{Kind: RateKindTiered, Tiers: []RateTier{
		{MinCents: 0, MaxCents: int64ptr(1000000), Rate: 0.05},
		{MinCents: 1000000, Rate: 0.08},
	}}

	// 15,000.00 of sales: first 10,000.00 at 5%, remaining 5,000.00 at 8%.
	got, err := model.Evaluate(SalesInput{NetSalesCents: 1500000})
	require.NoError(t, err)
	assert.Equal(t, int64(90000), got)

	// Sales inside the first tier never touch the second.
	got, err = model.Evaluate(SalesInput{NetSalesCents: 400000})
	require.NoError(t, err)
	assert.Equal(t, int64(20000), got)

	// Exactly on the boundary belongs entirely to the first tier.
	got, err = model.Evaluate(SalesInput{NetSalesCents: 1000000})
	require.NoError(t, err)
	assert.Equal(t, int64(50000), got)
}

func TestEvaluate_Category(t *testing.T) {
	model := RateModel{Kind: RateKindCategory, Categories: map[string]float64{
		"apparel":     0.06,
		"accessories": 0.09,
	}}

	got, err := model.Evaluate(SalesInput{CategorySalesCents: map[string]int64{
		"apparel":     200000,
		"accessories": 100000,
	}})
	require.NoError(t, err)
	assert.Equal(t, int64(21000), got)

	_, err = model.Evaluate(SalesInput{CategorySalesCents: map[string]int64{
		"footwear": 100000,
	}})
	assert.ErrorIs(t, err, ErrUnknownCategory)

	_, err = model.Evaluate(SalesInput{CategorySalesCents: map[string]int64{
		"apparel": -5,
	}})
	assert.ErrorIs(t, err, ErrNegativeSales)
}

func TestEvaluate_RoundingHalfUp(t *testing.T) {
	model := RateModel{Kind: RateKindFlat, FlatRate: 0.005}

	// 101 * 0.005 = 0.505 rounds up to 1 cent.
	got, err := model.Evaluate(SalesInput{NetSalesCents: 101})
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)

	// 99 * 0.005 = 0.495 rounds down.
	got, err = model.Evaluate(SalesInput{NetSalesCents: 99})
	require.NoError(t, err)
	assert.Equal(t, int64(0), got)
}

func TestContractYearWindow(t *testing.T) {
	start := date(2024, 3, 15)

	first := ContractYearWindow(start, date(2024, 3, 15))
	assert.Equal(t, 1, first.Index)
	assert.Equal(t, date(2024, 3, 15), first.Start)
	assert.Equal(t, date(2025, 3, 14), first.End)

	stillFirst := ContractYearWindow(start, date(2025, 3, 14))
	assert.Equal(t, 1, stillFirst.Index)

	second := ContractYearWindow(start, date(2025, 3, 15))
	assert.Equal(t, 2, second.Index)
	assert.Equal(t, date(2025, 3, 15), second.Start)
	assert.Equal(t, date(2026, 3, 14), second.End)

	// Before the contract starts, clamp to year one.
	clamped := ContractYearWindow(start, date(2023, 1, 1))
	assert.Equal(t, 1, clamped.Index)
}
