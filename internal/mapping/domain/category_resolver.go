package domain

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnresolvedCategories = errors.New("unresolved_categories")

// CategoryAssignment is a saved or suggested target for a raw term: either
// a canonical category or an exclusion.
type CategoryAssignment struct {
	Category string `json:"category,omitempty"`
	Excluded bool   `json:"excluded"`
}

// CategoryResolution is the outcome of resolving the raw terms of a sheet
// against a contract's canonical categories.
type CategoryResolution struct {
	Mappings   []CategoryMapping `json:"mappings"`
	Unresolved []string          `json:"unresolved,omitempty"`
}

// ResolveCategories maps each raw term. Stages in order of precedence:
// exact match against a canonical category, saved per-org preference, AI
// suggestion constrained to the canonical set, unresolved. An exclusion is
// terminal: the term's sales are dropped from rating. Unresolved terms block
// ingestion; the caller surfaces them for operator review.
func ResolveCategories(rawTerms, canonical []string, saved map[string]CategoryAssignment, suggestions map[string]string) CategoryResolution {
	canonicalByNorm := make(map[string]string, len(canonical))
	for _, c := range canonical {
		canonicalByNorm[Normalize(c)] = c
	}

	seen := make(map[string]bool, len(rawTerms))
	var resolution CategoryResolution

	for _, term := range rawTerms {
		trimmed := strings.TrimSpace(term)
		if trimmed == "" {
			continue
		}
		normalized := Normalize(trimmed)
		if seen[normalized] {
			continue
		}
		seen[normalized] = true

		mapping := CategoryMapping{RawTerm: trimmed, Source: SourceUnresolved}

		if category, ok := canonicalByNorm[normalized]; ok {
			mapping.Category = category
			mapping.Source = SourceExact
		} else if pref, ok := saved[normalized]; ok {
			if pref.Excluded {
				mapping.Excluded = true
				mapping.Source = SourceSaved
			} else if category, ok := canonicalByNorm[Normalize(pref.Category)]; ok {
				mapping.Category = category
				mapping.Source = SourceSaved
			}
		}

		// AI suggestions only count when they land on a canonical category;
		// a suggestion outside the set is as good as no suggestion.
		if !mapping.Resolved() {
			if suggested, ok := suggestions[normalized]; ok {
				if category, ok := canonicalByNorm[Normalize(suggested)]; ok {
					mapping.Category = category
					mapping.Source = SourceAI
				}
			}
		}

		if !mapping.Resolved() {
			resolution.Unresolved = append(resolution.Unresolved, trimmed)
		}
		resolution.Mappings = append(resolution.Mappings, mapping)
	}

	return resolution
}

// RequireResolved turns leftover unresolved terms into the blocking error
// ingestion reports to the operator.
func RequireResolved(r CategoryResolution) error {
	if len(r.Unresolved) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnresolvedCategories, strings.Join(r.Unresolved, ", "))
}
