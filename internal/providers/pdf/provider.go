package pdf

import (
	"context"
	"errors"

	"github.com/smallbiznis/bizadmin/internal/config"
	"github.com/smallbiznis/bizadmin/internal/invoice/render"
	"go.uber.org/fx"
)

var ErrDisabled = errors.New("pdf_backend_disabled")

var Module = fx.Module("providers.pdf",
	fx.Provide(NewFromConfig),
)

// Provider turns a composed invoice document into PDF bytes.
type Provider interface {
	Generate(ctx context.Context, doc render.Document) ([]byte, error)
}

// DisabledProvider always fails so callers take the HTML fallback.
type DisabledProvider struct{}

func (DisabledProvider) Generate(context.Context, render.Document) ([]byte, error) {
	return nil, ErrDisabled
}

func NewFromConfig(cfg config.Config) Provider {
	if !cfg.PDF.Enabled {
		return DisabledProvider{}
	}
	return New()
}
