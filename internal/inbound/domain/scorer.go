package domain

import (
	"strings"

	"github.com/bwmarrin/snowflake"
)

// ContractRef is the slice of a contract the scorer needs. Callers build it
// from the org's active contracts.
type ContractRef struct {
	ID              snowflake.ID
	LicenseeName    string
	LicenseeEmail   string
	AgreementNumber string
}

// Envelope is the identifying surface of an inbound email.
type Envelope struct {
	SenderEmail string
	SenderName  string
	Subject     string
	Body        string
}

// MatchOutcome is what the scorer concluded. A high-confidence outcome names
// exactly one contract; a medium one names candidates for operator review; a
// none outcome names nothing. The scorer never invents a contract.
type MatchOutcome struct {
	Confidence MatchConfidence
	ContractID *snowflake.ID
	Candidates []snowflake.ID
	Reason     string
}

// MatchPolicy bounds the scorer. MinNameLength drops short name tokens that
// would match half the corpus; MaxCandidates caps the review list.
type MatchPolicy struct {
	MinNameLength int
	MaxCandidates int
}

// Score matches an envelope against the given contracts. Signals in order of
// strength: exact sender email, agreement number quoted in the subject or
// body, licensee name appearing in the sender, sender domain, subject, or
// body. The first high signal ends the search; name hits accumulate into a
// medium candidate list.
func Score(env Envelope, contracts []*ContractRef, policy MatchPolicy) MatchOutcome {
	senderEmail := strings.ToLower(strings.TrimSpace(env.SenderEmail))
	haystack := strings.ToLower(env.SenderName + " " + env.Subject + " " + env.Body)
	textual := strings.ToLower(env.Subject + " " + env.Body)
	domainToken := senderDomainToken(senderEmail)

	var candidates []snowflake.ID

	for _, c := range contracts {
		if senderEmail != "" && senderEmail == strings.ToLower(strings.TrimSpace(c.LicenseeEmail)) {
			id := c.ID
			return MatchOutcome{
				Confidence: ConfidenceHigh,
				ContractID: &id,
				Reason:     "sender email matches licensee email",
			}
		}

		if number := strings.ToLower(strings.TrimSpace(c.AgreementNumber)); number != "" && strings.Contains(textual, number) {
			id := c.ID
			return MatchOutcome{
				Confidence: ConfidenceHigh,
				ContractID: &id,
				Reason:     "agreement number quoted in message",
			}
		}

		name := strings.ToLower(strings.TrimSpace(c.LicenseeName))
		if len(name) < policy.MinNameLength {
			continue
		}
		// The sender domain drops spaces: "Acme Toys" reporting from
		// someone@acmetoys.example still surfaces as a candidate.
		condensed := strings.ReplaceAll(name, " ", "")
		if strings.Contains(haystack, name) ||
			(domainToken != "" && strings.Contains(domainToken, condensed)) {
			candidates = append(candidates, c.ID)
		}
	}

	if len(candidates) > 0 {
		if policy.MaxCandidates > 0 && len(candidates) > policy.MaxCandidates {
			candidates = candidates[:policy.MaxCandidates]
		}
		return MatchOutcome{
			Confidence: ConfidenceMedium,
			Candidates: candidates,
			Reason:     "licensee name found in message",
		}
	}

	return MatchOutcome{Confidence: ConfidenceNone}
}

// senderDomainToken extracts the registrable label of the sender's address:
// "reports@acmetoys.example" yields "acmetoys".
func senderDomainToken(email string) string {
	_, domain, ok := strings.Cut(email, "@")
	if !ok {
		return ""
	}
	label, _, _ := strings.Cut(domain, ".")
	return strings.TrimSpace(label)
}
