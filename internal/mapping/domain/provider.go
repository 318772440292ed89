package domain

import "context"

// Suggester proposes roles for unrecognized headers and canonical categories
// for unrecognized terms. Implementations may decline by returning empty
// maps; resolution then falls through to the next stage.
type Suggester interface {
	SuggestColumns(ctx context.Context, headers []string) (map[string]ColumnSuggestion, error)
	SuggestCategories(ctx context.Context, terms, canonical []string) (map[string]string, error)
}

// NopSuggester is the Suggester used when no extraction backend is
// configured.
type NopSuggester struct{}

func (NopSuggester) SuggestColumns(ctx context.Context, headers []string) (map[string]ColumnSuggestion, error) {
	return nil, nil
}

func (NopSuggester) SuggestCategories(ctx context.Context, terms, canonical []string) (map[string]string, error) {
	return nil, nil
}
