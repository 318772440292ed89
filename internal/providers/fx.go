package providers

import (
	"github.com/smallbiznis/regalia/internal/providers/email"
	"github.com/smallbiznis/regalia/internal/providers/extraction"
	"github.com/smallbiznis/regalia/internal/providers/pdf"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	email.Module,
	fx.Provide(pdf.New),
	fx.Provide(extraction.NewSuggester),
	fx.Provide(extraction.NewTermsExtractor),
)
