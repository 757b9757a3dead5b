package service

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bizadmin/internal/clock"
	"github.com/smallbiznis/bizadmin/internal/config"
	"github.com/smallbiznis/bizadmin/internal/invoice/calc"
	invoicedomain "github.com/smallbiznis/bizadmin/internal/invoice/domain"
	obsmetrics "github.com/smallbiznis/bizadmin/internal/observability/metrics"
	"github.com/smallbiznis/bizadmin/internal/ownercontext"
	"github.com/smallbiznis/bizadmin/pkg/db"
	"github.com/smallbiznis/bizadmin/pkg/db/option"
	"github.com/smallbiznis/bizadmin/pkg/db/pagination"
	"github.com/smallbiznis/bizadmin/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const defaultVATPercent = 21.0

type ServiceParam struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Repo         invoicedomain.Repository
	Clock        clock.Clock                   `optional:"true"`
	InvoicingCfg *config.InvoicingConfigHolder `optional:"true"`
	Metrics      *obsmetrics.Metrics           `optional:"true"`
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID        *snowflake.Node
	repo         invoicedomain.Repository
	itemrepo     repository.Repository[invoicedomain.LineItem]
	clock        clock.Clock
	invoicingCfg *config.InvoicingConfigHolder
	metrics      *obsmetrics.Metrics
}

func NewService(p ServiceParam) invoicedomain.Service {
	return newService(p)
}

func newService(p ServiceParam) *Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("invoice.service"),
		genID: p.GenID,

		repo:         p.Repo,
		itemrepo:     repository.ProvideStore[invoicedomain.LineItem](p.DB),
		clock:        clk,
		invoicingCfg: p.InvoicingCfg,
		metrics:      p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req invoicedomain.CreateInvoiceRequest) (invoicedomain.Invoice, error) {
	ownerID, err := s.ownerIDFromContext(ctx)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	clientID, err := s.resolveClient(ctx, s.db, ownerID, req.ClientID)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	invoiceDate, err := s.parseInvoiceDate(req.InvoiceDate)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	vatPercent, err := s.resolveVATPercent(ctx, ownerID, req.VATPercent)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	now := s.clock.Now().UTC()
	invoice := invoicedomain.Invoice{
		ID:            s.genID.Generate(),
		OwnerID:       ownerID,
		ClientID:      clientID,
		InvoiceNumber: strings.TrimSpace(req.InvoiceNumber),
		InvoiceDate:   datatypes.Date(invoiceDate),
		VATPercent:    vatPercent,
		IsPaid:        req.IsPaid,
		Notes:         strings.TrimSpace(req.Notes),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	items, err := s.buildLineItems(ctx, s.db, &invoice, req.Items, now)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	if err := applyTotals(&invoice, items); err != nil {
		return invoicedomain.Invoice{}, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if invoice.InvoiceNumber == "" {
			number, err := s.generateInvoiceNumber(ctx, tx, ownerID, invoiceDate)
			if err != nil {
				return err
			}
			invoice.InvoiceNumber = number
		} else if err := s.ensureNumberFree(ctx, tx, ownerID, invoice.InvoiceNumber, 0); err != nil {
			return err
		}

		if err := s.repo.Insert(ctx, tx, &invoice); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return invoicedomain.ErrDuplicateNumber
			}
			return err
		}
		return s.itemrepo.WithTrx(tx).BatchCreate(ctx, toPointers(items))
	})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	s.metrics.RecordInvoiceSaved(ctx, "create")
	s.log.Info("invoice created",
		zap.String("owner_id", ownerID.String()),
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.Int("items", len(items)),
	)

	return s.load(ctx, s.db, ownerID, invoice.ID)
}

func (s *Service) Update(ctx context.Context, req invoicedomain.UpdateInvoiceRequest) (invoicedomain.Invoice, error) {
	ownerID, err := s.ownerIDFromContext(ctx)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	id, err := parseID(req.ID, invoicedomain.ErrInvalidID)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	if req.VATPercent != nil {
		if err := validateVATPercent(*req.VATPercent); err != nil {
			return invoicedomain.Invoice{}, err
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.repo.FindByID(ctx, tx, ownerID, id)
		if err != nil {
			return err
		}
		if invoice == nil {
			return invoicedomain.ErrNotFound
		}

		if req.ClientID != nil {
			clientID, err := s.resolveClient(ctx, tx, ownerID, *req.ClientID)
			if err != nil {
				return err
			}
			invoice.ClientID = clientID
		}
		if req.InvoiceDate != nil {
			date, err := s.parseInvoiceDate(*req.InvoiceDate)
			if err != nil {
				return err
			}
			invoice.InvoiceDate = datatypes.Date(date)
		}
		if req.InvoiceNumber != nil {
			number := strings.TrimSpace(*req.InvoiceNumber)
			if number == "" {
				return invoicedomain.ErrInvalidInvoiceNumber
			}
			if err := s.ensureNumberFree(ctx, tx, ownerID, number, invoice.ID); err != nil {
				return err
			}
			invoice.InvoiceNumber = number
		}
		if req.VATPercent != nil {
			invoice.VATPercent = *req.VATPercent
		}
		if req.IsPaid != nil {
			invoice.IsPaid = *req.IsPaid
		}
		if req.Notes != nil {
			invoice.Notes = strings.TrimSpace(*req.Notes)
		}

		now := s.clock.Now().UTC()
		invoice.UpdatedAt = now

		itemrepo := s.itemrepo.WithTrx(tx)
		var items []invoicedomain.LineItem
		if req.Items != nil {
			items, err = s.buildLineItems(ctx, tx, invoice, *req.Items, now)
			if err != nil {
				return err
			}
			if _, err := itemrepo.DeleteWhere(ctx, &invoicedomain.LineItem{OwnerID: ownerID, InvoiceID: invoice.ID}); err != nil {
				return err
			}
			if err := itemrepo.BatchCreate(ctx, toPointers(items)); err != nil {
				return err
			}
		} else {
			items, err = s.listItems(ctx, tx, ownerID, invoice.ID)
			if err != nil {
				return err
			}
		}

		if err := applyTotals(invoice, items); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, tx, invoice); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return invoicedomain.ErrDuplicateNumber
			}
			return err
		}
		return nil
	})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	s.metrics.RecordInvoiceSaved(ctx, "update")
	return s.load(ctx, s.db, ownerID, id)
}

func (s *Service) Delete(ctx context.Context, rawID string) error {
	ownerID, err := s.ownerIDFromContext(ctx)
	if err != nil {
		return err
	}

	id, err := parseID(rawID, invoicedomain.ErrInvalidID)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		deleted, err := s.repo.Delete(ctx, tx, ownerID, id)
		if err != nil {
			return err
		}
		if deleted == 0 {
			return invoicedomain.ErrNotFound
		}
		return nil
	})
}

func (s *Service) GetByID(ctx context.Context, rawID string) (invoicedomain.Invoice, error) {
	ownerID, err := s.ownerIDFromContext(ctx)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	id, err := parseID(rawID, invoicedomain.ErrInvalidID)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	return s.load(ctx, s.db, ownerID, id)
}

func (s *Service) List(ctx context.Context, req invoicedomain.ListInvoiceRequest) (invoicedomain.ListInvoiceResponse, error) {
	ownerID, err := s.ownerIDFromContext(ctx)
	if err != nil {
		return invoicedomain.ListInvoiceResponse{}, err
	}

	filter := invoicedomain.ListInvoiceFilter{
		IsPaid:   req.IsPaid,
		DateFrom: req.DateFrom,
		DateTo:   req.DateTo,
	}
	if strings.TrimSpace(req.ClientID) != "" {
		clientID, err := parseID(req.ClientID, invoicedomain.ErrInvalidClient)
		if err != nil {
			return invoicedomain.ListInvoiceResponse{}, err
		}
		filter.ClientID = clientID
	}

	pageSize := pagination.NormalizeSize(req.PageSize)

	items, err := s.repo.List(ctx, s.db, ownerID, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return invoicedomain.ListInvoiceResponse{}, err
	}

	items, pageInfo := pagination.Page(items, pageSize, func(invoice *invoicedomain.Invoice) pagination.Cursor {
		return pagination.NewCursor(invoice.ID.String(), invoice.CreatedAt)
	})

	clientIDs := make([]snowflake.ID, 0, len(items))
	for _, item := range items {
		if item != nil {
			clientIDs = append(clientIDs, item.ClientID)
		}
	}
	clients, err := s.repo.ClientRefs(ctx, s.db, ownerID, uniqueIDs(clientIDs))
	if err != nil {
		return invoicedomain.ListInvoiceResponse{}, err
	}

	invoices := make([]invoicedomain.Invoice, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		if ref, ok := clients[item.ClientID]; ok {
			ref := ref
			item.Client = &ref
		}
		invoices = append(invoices, *item)
	}

	return invoicedomain.ListInvoiceResponse{PageInfo: pageInfo, Invoices: invoices}, nil
}

func (s *Service) MarkPaid(ctx context.Context, rawID string, paid bool) (invoicedomain.Invoice, error) {
	ownerID, err := s.ownerIDFromContext(ctx)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	id, err := parseID(rawID, invoicedomain.ErrInvalidID)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	updated, err := s.repo.UpdatePaid(ctx, s.db, ownerID, id, paid, s.clock.Now().UTC())
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	if updated == 0 {
		return invoicedomain.Invoice{}, invoicedomain.ErrNotFound
	}

	s.log.Info("invoice payment status changed",
		zap.String("owner_id", ownerID.String()),
		zap.String("invoice_id", id.String()),
		zap.Bool("is_paid", paid),
	)
	return s.load(ctx, s.db, ownerID, id)
}

func (s *Service) PreviewTotals(req invoicedomain.PreviewTotalsRequest) (invoicedomain.PreviewTotalsResponse, error) {
	totals := calc.ComputeTotals(req.Items, req.VATPercent)
	if !calc.Storable(req.Items, totals) {
		return invoicedomain.PreviewTotalsResponse{}, invoicedomain.ErrInvalidAmount
	}

	lineTotals := make([]float64, 0, len(req.Items))
	for _, item := range req.Items {
		lineTotals = append(lineTotals, calc.LineTotal(item))
	}
	return invoicedomain.PreviewTotalsResponse{
		Totals:     totals,
		LineTotals: lineTotals,
	}, nil
}

// load returns the invoice with its client reference and ordered items.
func (s *Service) load(ctx context.Context, tx *gorm.DB, ownerID, id snowflake.ID) (invoicedomain.Invoice, error) {
	invoice, err := s.repo.FindByID(ctx, tx, ownerID, id)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	if invoice == nil {
		return invoicedomain.Invoice{}, invoicedomain.ErrNotFound
	}

	clients, err := s.repo.ClientRefs(ctx, tx, ownerID, []snowflake.ID{invoice.ClientID})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	if ref, ok := clients[invoice.ClientID]; ok {
		invoice.Client = &ref
	}

	items, err := s.listItems(ctx, tx, ownerID, invoice.ID)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	invoice.Items = items
	return *invoice, nil
}

func (s *Service) listItems(ctx context.Context, tx *gorm.DB, ownerID, invoiceID snowflake.ID) ([]invoicedomain.LineItem, error) {
	rows, err := s.itemrepo.WithTrx(tx).Find(ctx,
		&invoicedomain.LineItem{OwnerID: ownerID, InvoiceID: invoiceID},
		option.WithSortBy(option.WithQuerySortBy("position", "asc", map[string]bool{"position": true})),
	)
	if err != nil {
		return nil, err
	}

	projectIDs := make([]snowflake.ID, 0, len(rows))
	for _, row := range rows {
		if row.ProjectID != nil {
			projectIDs = append(projectIDs, *row.ProjectID)
		}
	}
	projects, err := s.repo.ProjectRefs(ctx, tx, ownerID, uniqueIDs(projectIDs))
	if err != nil {
		return nil, err
	}

	items := make([]invoicedomain.LineItem, 0, len(rows))
	for _, row := range rows {
		if row == nil {
			continue
		}
		if row.ProjectID != nil {
			if ref, ok := projects[*row.ProjectID]; ok {
				ref := ref
				row.Project = &ref
			}
		}
		items = append(items, *row)
	}
	return items, nil
}

// buildLineItems validates the inputs and recomputes every line total.
func (s *Service) buildLineItems(ctx context.Context, tx *gorm.DB, invoice *invoicedomain.Invoice, inputs []invoicedomain.LineItemInput, now time.Time) ([]invoicedomain.LineItem, error) {
	projectIDs := make([]snowflake.ID, 0, len(inputs))
	parsed := make([]*snowflake.ID, len(inputs))
	for i, input := range inputs {
		if strings.TrimSpace(input.ProjectID) == "" {
			continue
		}
		projectID, err := parseID(input.ProjectID, invoicedomain.ErrInvalidProject)
		if err != nil {
			return nil, err
		}
		parsed[i] = &projectID
		projectIDs = append(projectIDs, projectID)
	}

	projects, err := s.repo.ProjectRefs(ctx, tx, invoice.OwnerID, uniqueIDs(projectIDs))
	if err != nil {
		return nil, err
	}
	for _, projectID := range projectIDs {
		if _, ok := projects[projectID]; !ok {
			return nil, invoicedomain.ErrInvalidProject
		}
	}

	items := make([]invoicedomain.LineItem, 0, len(inputs))
	for i, input := range inputs {
		item := calc.Item{Quantity: input.Quantity, UnitPrice: input.UnitPrice}
		items = append(items, invoicedomain.LineItem{
			ID:          s.genID.Generate(),
			OwnerID:     invoice.OwnerID,
			InvoiceID:   invoice.ID,
			ProjectID:   parsed[i],
			Description: strings.TrimSpace(input.Description),
			Quantity:    item.Quantity.Float64(),
			UnitPrice:   item.UnitPrice.Float64(),
			Total:       calc.LineTotal(item),
			Position:    i,
			CreatedAt:   now,
		})
	}
	return items, nil
}

// applyTotals sets the three stored totals from items. Amounts that would
// not fit their columns fail with ErrInvalidAmount.
func applyTotals(invoice *invoicedomain.Invoice, items []invoicedomain.LineItem) error {
	inputs := make([]calc.Item, 0, len(items))
	for _, item := range items {
		inputs = append(inputs, calc.Item{
			Quantity:  calc.Amount(item.Quantity),
			UnitPrice: calc.Amount(item.UnitPrice),
		})
	}
	totals := calc.ComputeTotals(inputs, invoice.VATPercent)
	if !calc.Storable(inputs, totals) {
		return invoicedomain.ErrInvalidAmount
	}
	invoice.TotalExclVAT = totals.Subtotal
	invoice.VATAmount = totals.VATAmount
	invoice.TotalInclVAT = totals.Total
	return nil
}

func (s *Service) resolveClient(ctx context.Context, tx *gorm.DB, ownerID snowflake.ID, raw string) (snowflake.ID, error) {
	clientID, err := parseID(raw, invoicedomain.ErrInvalidClient)
	if err != nil {
		return 0, err
	}
	refs, err := s.repo.ClientRefs(ctx, tx, ownerID, []snowflake.ID{clientID})
	if err != nil {
		return 0, err
	}
	if _, ok := refs[clientID]; !ok {
		return 0, invoicedomain.ErrClientNotFound
	}
	return clientID, nil
}

func (s *Service) parseInvoiceDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		y, m, d := s.clock.Now().UTC().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	date, err := time.ParseInLocation(invoicedomain.DateLayout, raw, time.UTC)
	if err != nil {
		return time.Time{}, invoicedomain.ErrInvalidInvoiceDate
	}
	return date, nil
}

type vatDefaultRow struct {
	VATDefault *float64
}

func (s *Service) resolveVATPercent(ctx context.Context, ownerID snowflake.ID, requested *float64) (float64, error) {
	if requested != nil {
		if err := validateVATPercent(*requested); err != nil {
			return 0, err
		}
		return *requested, nil
	}

	var row vatDefaultRow
	err := s.db.WithContext(ctx).Raw(
		`SELECT vat_default FROM company_settings WHERE owner_id = ?`,
		ownerID,
	).Scan(&row).Error
	if err != nil {
		return 0, err
	}
	if row.VATDefault == nil {
		return defaultVATPercent, nil
	}
	return *row.VATDefault, nil
}

func (s *Service) ensureNumberFree(ctx context.Context, tx *gorm.DB, ownerID snowflake.ID, number string, excludeID snowflake.ID) error {
	taken, err := s.repo.NumberExists(ctx, tx, ownerID, number, excludeID)
	if err != nil {
		return err
	}
	if taken {
		return invoicedomain.ErrDuplicateNumber
	}
	return nil
}

func validateVATPercent(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > 100 {
		return invoicedomain.ErrInvalidVATPercent
	}
	return nil
}

func (s *Service) ownerIDFromContext(ctx context.Context) (snowflake.ID, error) {
	ownerID, ok := ownercontext.OwnerIDFromContext(ctx)
	if !ok {
		return 0, invoicedomain.ErrInvalidOwner
	}
	return ownerID, nil
}

func parseID(raw string, invalid error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return 0, invalid
	}
	return id, nil
}

func uniqueIDs(ids []snowflake.ID) []snowflake.ID {
	seen := make(map[snowflake.ID]struct{}, len(ids))
	out := make([]snowflake.ID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func toPointers(items []invoicedomain.LineItem) []*invoicedomain.LineItem {
	out := make([]*invoicedomain.LineItem, 0, len(items))
	for i := range items {
		out = append(out, &items[i])
	}
	return out
}
