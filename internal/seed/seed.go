package seed

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	apikeydomain "github.com/smallbiznis/bizadmin/internal/apikey/domain"
	clientdomain "github.com/smallbiznis/bizadmin/internal/client/domain"
	companydomain "github.com/smallbiznis/bizadmin/internal/companysettings/domain"
	"github.com/smallbiznis/bizadmin/internal/config"
	"github.com/smallbiznis/bizadmin/internal/invoice/calc"
	invoicedomain "github.com/smallbiznis/bizadmin/internal/invoice/domain"
	"github.com/smallbiznis/bizadmin/internal/ownercontext"
	projectdomain "github.com/smallbiznis/bizadmin/internal/project/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	MessageCreated       = "Sample data created successfully"
	MessageAlreadyExists = "Sample data already exists for this user"

	bootstrapKeyName = "bootstrap"
)

var ErrInvalidOwner = errors.New("invalid_owner")

type Result struct {
	Created bool   `json:"success"`
	Message string `json:"message"`
}

type Service interface {
	// SeedSampleData creates a demo data set for the owner in ctx unless the
	// owner already has clients.
	SeedSampleData(ctx context.Context) (Result, error)
}

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	ClientRepo clientdomain.Repository
	Clients    clientdomain.Service
	Projects   projectdomain.Service
	Invoices   invoicedomain.Service
	Settings   companydomain.Service
}

type service struct {
	db         *gorm.DB
	log        *zap.Logger
	clientRepo clientdomain.Repository
	clients    clientdomain.Service
	projects   projectdomain.Service
	invoices   invoicedomain.Service
	settings   companydomain.Service
}

func NewService(p Params) Service {
	return &service{
		db:         p.DB,
		log:        p.Log.Named("seed.service"),
		clientRepo: p.ClientRepo,
		clients:    p.Clients,
		projects:   p.Projects,
		invoices:   p.Invoices,
		settings:   p.Settings,
	}
}

func (s *service) SeedSampleData(ctx context.Context) (Result, error) {
	ownerID, ok := ownercontext.OwnerIDFromContext(ctx)
	if !ok {
		return Result{}, ErrInvalidOwner
	}

	count, err := s.clientRepo.Count(ctx, s.db, ownerID)
	if err != nil {
		return Result{}, err
	}
	if count > 0 {
		return Result{Created: false, Message: MessageAlreadyExists}, nil
	}

	if _, err := s.settings.Upsert(ctx, sampleCompany()); err != nil {
		return Result{}, err
	}

	clientIDs := make([]string, 0, len(sampleClients))
	for _, req := range sampleClients {
		client, err := s.clients.Create(ctx, req)
		if err != nil {
			return Result{}, err
		}
		clientIDs = append(clientIDs, client.ID.String())
	}

	projectIDs := make([]string, 0, len(sampleProjects))
	for _, p := range sampleProjects {
		req := p.req
		req.ClientID = clientIDs[p.client]
		project, err := s.projects.Create(ctx, req)
		if err != nil {
			return Result{}, err
		}
		projectIDs = append(projectIDs, project.ID.String())
	}

	for _, inv := range sampleInvoices {
		items := make([]invoicedomain.LineItemInput, 0, len(inv.items))
		for _, item := range inv.items {
			items = append(items, invoicedomain.LineItemInput{
				ProjectID:   projectIDs[inv.project],
				Description: item.description,
				Quantity:    calc.Amount(item.quantity),
				UnitPrice:   calc.Amount(item.unitPrice),
			})
		}
		vat := 21.0
		if _, err := s.invoices.Create(ctx, invoicedomain.CreateInvoiceRequest{
			ClientID:      clientIDs[inv.client],
			InvoiceNumber: inv.number,
			InvoiceDate:   inv.date,
			VATPercent:    &vat,
			IsPaid:        inv.paid,
			Items:         items,
		}); err != nil {
			return Result{}, err
		}
	}

	s.log.Info("sample data created",
		zap.String("owner_id", ownerID.String()),
		zap.Int("clients", len(clientIDs)),
		zap.Int("projects", len(projectIDs)),
		zap.Int("invoices", len(sampleInvoices)),
	)
	return Result{Created: true, Message: MessageCreated}, nil
}

// Bootstrap registers the configured API key for the default owner so a
// fresh deployment can be reached without issuing a key first.
func Bootstrap(lc fx.Lifecycle, cfg config.Config, keys apikeydomain.Service, log *zap.Logger) {
	ownerID := snowflake.ID(cfg.Bootstrap.OwnerID)
	raw := strings.TrimSpace(cfg.Bootstrap.APIKey)
	if ownerID == 0 || raw == "" {
		return
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := keys.EnsureKey(ctx, ownerID, raw, bootstrapKeyName, cfg.Bootstrap.Role); err != nil {
				return err
			}
			log.Info("bootstrap api key ensured",
				zap.String("owner_id", ownerID.String()),
				zap.String("role", cfg.Bootstrap.Role),
			)
			return nil
		},
	})
}
