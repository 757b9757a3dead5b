package service

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bizadmin/internal/companysettings/domain"
	"github.com/smallbiznis/bizadmin/internal/ownercontext"
	"github.com/smallbiznis/bizadmin/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	store repository.Repository[domain.CompanySettings]
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("companysettings.service"),
		genID: p.GenID,
		store: repository.ProvideStore[domain.CompanySettings](p.DB),
	}
}

func (s *Service) Get(ctx context.Context) (domain.CompanySettings, error) {
	ownerID, ok := ownercontext.OwnerIDFromContext(ctx)
	if !ok {
		return domain.CompanySettings{}, domain.ErrInvalidOwner
	}

	item, err := s.store.FindOne(ctx, &domain.CompanySettings{OwnerID: ownerID})
	if err != nil {
		return domain.CompanySettings{}, err
	}
	if item == nil {
		return domain.CompanySettings{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) Upsert(ctx context.Context, req domain.UpsertRequest) (domain.CompanySettings, error) {
	ownerID, ok := ownercontext.OwnerIDFromContext(ctx)
	if !ok {
		return domain.CompanySettings{}, domain.ErrInvalidOwner
	}

	next, err := normalize(req)
	if err != nil {
		return domain.CompanySettings{}, err
	}

	var saved domain.CompanySettings
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		store := s.store.WithTrx(tx)
		existing, err := store.FindOne(ctx, &domain.CompanySettings{OwnerID: ownerID})
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		next.OwnerID = ownerID
		next.UpdatedAt = now
		if existing == nil {
			next.ID = s.genID.Generate()
			next.CreatedAt = now
			if err := store.Create(ctx, &next); err != nil {
				return err
			}
			saved = next
			return nil
		}

		next.ID = existing.ID
		next.CreatedAt = existing.CreatedAt
		// Map-based update so cleared fields are written as empty strings.
		if err := store.Update(ctx, existing.ID.String(), map[string]any{
			"company_name":  next.CompanyName,
			"address":       next.Address,
			"kvk_number":    next.KvKNumber,
			"btw_number":    next.BTWNumber,
			"iban":          next.IBAN,
			"phone":         next.Phone,
			"email":         next.Email,
			"vat_default":   next.VATDefault,
			"payment_terms": next.PaymentTerms,
			"updated_at":    next.UpdatedAt,
		}); err != nil {
			return err
		}
		saved = next
		return nil
	})
	if err != nil {
		return domain.CompanySettings{}, err
	}

	s.log.Info("company settings saved", zap.String("owner_id", ownerID.String()))
	return saved, nil
}

func normalize(req domain.UpsertRequest) (domain.CompanySettings, error) {
	name := strings.TrimSpace(req.CompanyName)
	if name == "" {
		return domain.CompanySettings{}, domain.ErrInvalidCompanyName
	}

	vat := domain.DefaultVATPercent
	if req.VATDefault != nil {
		vat = *req.VATDefault
	}
	if math.IsNaN(vat) || vat < 0 || vat > 100 {
		return domain.CompanySettings{}, domain.ErrInvalidVATDefault
	}

	email := strings.TrimSpace(req.Email)
	if email != "" && !strings.Contains(email, "@") {
		return domain.CompanySettings{}, domain.ErrInvalidEmail
	}

	return domain.CompanySettings{
		CompanyName:  name,
		Address:      strings.TrimSpace(req.Address),
		KvKNumber:    strings.TrimSpace(req.KvKNumber),
		BTWNumber:    strings.TrimSpace(req.BTWNumber),
		IBAN:         strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(req.IBAN), " ", "")),
		Phone:        strings.TrimSpace(req.Phone),
		Email:        email,
		VATDefault:   vat,
		PaymentTerms: strings.TrimSpace(req.PaymentTerms),
	}, nil
}
