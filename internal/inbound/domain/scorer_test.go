package domain

import (
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPolicy = MatchPolicy{MinNameLength: 4, MaxCandidates: 5}

func contractRefs() []*ContractRef {
	return []*ContractRef{
		{ID: 101, LicenseeName: "Acme Toys", LicenseeEmail: "royalty@acmetoys.com", AgreementNumber: "AGR-2024-001"},
		{ID: 102, LicenseeName: "Northwind Apparel", LicenseeEmail: "finance@northwind.example", AgreementNumber: "AGR-2024-002"},
		{ID: 103, LicenseeName: "Acme Home", LicenseeEmail: "reports@acmehome.example", AgreementNumber: "AGR-2024-003"},
	}
}

func TestScore_ExactEmailIsHigh(t *testing.T) {
	outcome := Score(Envelope{
		SenderEmail: "Royalty@AcmeToys.com",
		Subject:     "Q2 report",
	}, contractRefs(), testPolicy)

	assert.Equal(t, ConfidenceHigh, outcome.Confidence)
	require.NotNil(t, outcome.ContractID)
	assert.Equal(t, snowflake.ID(101), *outcome.ContractID)
	assert.Empty(t, outcome.Candidates)
}

func TestScore_AgreementNumberIsHigh(t *testing.T) {
	outcome := Score(Envelope{
		SenderEmail: "someone@gmail.com",
		Subject:     "Sales report for agr-2024-002",
	}, contractRefs(), testPolicy)

	assert.Equal(t, ConfidenceHigh, outcome.Confidence)
	require.NotNil(t, outcome.ContractID)
	assert.Equal(t, snowflake.ID(102), *outcome.ContractID)
}

func TestScore_AgreementNumberInBody(t *testing.T) {
	outcome := Score(Envelope{
		SenderEmail: "someone@gmail.com",
		Subject:     "Monthly sales",
		Body:        "Attached please find the report under AGR-2024-003.",
	}, contractRefs(), testPolicy)

	assert.Equal(t, ConfidenceHigh, outcome.Confidence)
	require.NotNil(t, outcome.ContractID)
	assert.Equal(t, snowflake.ID(103), *outcome.ContractID)
}

func TestScore_NameSubstringIsMediumWithCandidates(t *testing.T) {
	outcome := Score(Envelope{
		SenderEmail: "bob@gmail.com",
		SenderName:  "Bob (Acme Toys accounting)",
	}, contractRefs(), testPolicy)

	assert.Equal(t, ConfidenceMedium, outcome.Confidence)
	assert.Nil(t, outcome.ContractID)
	assert.Equal(t, []snowflake.ID{101}, outcome.Candidates)
}

func TestScore_SenderDomainIsMedium(t *testing.T) {
	// Different mailbox on the licensee's domain: no exact-email hit, but
	// the condensed name matches the domain label.
	outcome := Score(Envelope{
		SenderEmail: "assistant@acmetoys.com",
		Subject:     "Q2 numbers",
	}, contractRefs(), testPolicy)

	assert.Equal(t, ConfidenceMedium, outcome.Confidence)
	assert.Equal(t, []snowflake.ID{101}, outcome.Candidates)
}

func TestScore_NameInBodyIsMedium(t *testing.T) {
	outcome := Score(Envelope{
		SenderEmail: "agent@gmail.com",
		Subject:     "Monthly sales",
		Body:        "Per our license for Northwind Apparel, totals attached.",
	}, contractRefs(), testPolicy)

	assert.Equal(t, ConfidenceMedium, outcome.Confidence)
	assert.Equal(t, []snowflake.ID{102}, outcome.Candidates)
}

func TestScore_MultipleNameHits(t *testing.T) {
	outcome := Score(Envelope{
		SenderEmail: "agent@gmail.com",
		Subject:     "Acme Toys and Acme Home combined statement",
	}, contractRefs(), testPolicy)

	assert.Equal(t, ConfidenceMedium, outcome.Confidence)
	assert.ElementsMatch(t, []snowflake.ID{101, 103}, outcome.Candidates)
}

func TestScore_CandidateListCapped(t *testing.T) {
	contracts := []*ContractRef{
		{ID: 1, LicenseeName: "Brightline"},
		{ID: 2, LicenseeName: "Brightline East"},
		{ID: 3, LicenseeName: "Brightline West"},
	}
	outcome := Score(Envelope{
		SenderEmail: "x@gmail.com",
		Subject:     "brightline east and brightline west",
	}, contracts, MatchPolicy{MinNameLength: 4, MaxCandidates: 2})

	assert.Equal(t, ConfidenceMedium, outcome.Confidence)
	assert.Len(t, outcome.Candidates, 2)
}

func TestScore_ShortNamesIgnored(t *testing.T) {
	contracts := []*ContractRef{{ID: 1, LicenseeName: "Co"}}
	outcome := Score(Envelope{
		SenderEmail: "x@gmail.com",
		Subject:     "co report",
	}, contracts, testPolicy)

	assert.Equal(t, ConfidenceNone, outcome.Confidence)
}

func TestScore_NoSignalIsNone(t *testing.T) {
	outcome := Score(Envelope{
		SenderEmail: "stranger@gmail.com",
		SenderName:  "A Stranger",
		Subject:     "hello",
	}, contractRefs(), testPolicy)

	assert.Equal(t, ConfidenceNone, outcome.Confidence)
	assert.Nil(t, outcome.ContractID)
	assert.Empty(t, outcome.Candidates)
}
