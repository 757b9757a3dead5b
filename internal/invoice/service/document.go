package service

import (
	"errors"

	"github.com/smallbiznis/bizadmin/internal/cache"
	"github.com/smallbiznis/bizadmin/internal/config"
	invoicedomain "github.com/smallbiznis/bizadmin/internal/invoice/domain"
	"github.com/smallbiznis/bizadmin/internal/invoice/render"
	obsmetrics "github.com/smallbiznis/bizadmin/internal/observability/metrics"
	"github.com/smallbiznis/bizadmin/internal/providers/email"
	"github.com/smallbiznis/bizadmin/internal/providers/pdf"
	"github.com/smallbiznis/bizadmin/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errRendererNotConfigured = errors.New("renderer_not_configured")
	errEmailNotConfigured    = errors.New("email_not_configured")
)

type DocumentParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Repo     invoicedomain.Repository
	Renderer render.Renderer

	PDF          pdf.Provider                  `optional:"true"`
	Email        email.Provider                `optional:"true"`
	Cache        *cache.DocumentCache          `optional:"true"`
	Limiter      *ratelimit.DocumentLimiter    `optional:"true"`
	InvoicingCfg *config.InvoicingConfigHolder `optional:"true"`
	Metrics      *obsmetrics.Metrics           `optional:"true"`
}

// DocumentService renders stored invoices and delivers them as files or
// email attachments.
type DocumentService struct {
	db  *gorm.DB
	log *zap.Logger

	repo     invoicedomain.Repository
	renderer render.Renderer
	pdf      pdf.Provider
	email    email.Provider
	cache    *cache.DocumentCache
	limiter  *ratelimit.DocumentLimiter

	invoicingCfg *config.InvoicingConfigHolder
	metrics      *obsmetrics.Metrics
}

func NewDocumentService(p DocumentParam) invoicedomain.DocumentService {
	return newDocumentService(p)
}

func newDocumentService(p DocumentParam) *DocumentService {
	pdfProvider := p.PDF
	if pdfProvider == nil {
		pdfProvider = pdf.DisabledProvider{}
	}
	return &DocumentService{
		db:           p.DB,
		log:          p.Log.Named("invoice.document"),
		repo:         p.Repo,
		renderer:     p.Renderer,
		pdf:          pdfProvider,
		email:        p.Email,
		cache:        p.Cache,
		limiter:      p.Limiter,
		invoicingCfg: p.InvoicingCfg,
		metrics:      p.Metrics,
	}
}
