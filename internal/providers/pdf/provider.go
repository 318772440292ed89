// Package pdf renders royalty statements.
package pdf

import (
	"context"
	"io"
)

type Provider interface {
	GenerateStatement(ctx context.Context, data StatementData) (io.Reader, error)
}

type NoOpProvider struct{}

func (p *NoOpProvider) GenerateStatement(ctx context.Context, data StatementData) (io.Reader, error) {
	return nil, nil
}
