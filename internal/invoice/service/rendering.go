package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	invoicedomain "github.com/smallbiznis/bizadmin/internal/invoice/domain"
	"github.com/smallbiznis/bizadmin/internal/invoice/render"
	"github.com/smallbiznis/bizadmin/internal/ownercontext"
	"gorm.io/gorm"
)

// renderSource is everything a document is built from, plus the newest
// modification time across the records involved.
type renderSource struct {
	invoice   *invoicedomain.Invoice
	input     render.RenderInput
	updatedAt time.Time
}

func (s *DocumentService) RenderHTML(ctx context.Context, rawID string) (string, error) {
	src, err := s.loadRenderSource(ctx, rawID)
	if err != nil {
		return "", err
	}
	if s.renderer == nil {
		return "", errRendererNotConfigured
	}

	html, err := s.renderer.RenderHTML(src.input)
	if err != nil {
		return "", err
	}
	s.metrics.RecordDocumentRendered(ctx, string(invoicedomain.FormatHTML), false)
	return html, nil
}

func (s *DocumentService) loadRenderSource(ctx context.Context, rawID string) (renderSource, error) {
	ownerID, ok := ownercontext.OwnerIDFromContext(ctx)
	if !ok {
		return renderSource{}, invoicedomain.ErrInvalidOwner
	}

	id, err := parseID(rawID, invoicedomain.ErrInvalidID)
	if err != nil {
		return renderSource{}, err
	}

	invoice, err := s.repo.FindByID(ctx, s.db, ownerID, id)
	if err != nil {
		return renderSource{}, err
	}
	if invoice == nil {
		return renderSource{}, invoicedomain.ErrNotFound
	}

	client, err := s.loadClient(ctx, s.db, ownerID, invoice.ClientID)
	if err != nil {
		return renderSource{}, err
	}

	company, err := s.loadCompany(ctx, s.db, ownerID)
	if err != nil {
		return renderSource{}, err
	}

	items, err := s.listItemRows(ctx, s.db, ownerID, invoice.ID)
	if err != nil {
		return renderSource{}, err
	}

	updatedAt := invoice.UpdatedAt
	if client.UpdatedAt.After(updatedAt) {
		updatedAt = client.UpdatedAt
	}
	for _, item := range items {
		if item.ProjectUpdatedAt != nil && item.ProjectUpdatedAt.After(updatedAt) {
			updatedAt = *item.ProjectUpdatedAt
		}
	}

	input := render.RenderInput{
		Invoice: buildInvoiceView(invoice),
		Client:  buildClientView(client),
		Items:   buildLineItemViews(items),
	}
	if company != nil {
		input.Company = buildCompanyView(company)
		if company.UpdatedAt.After(updatedAt) {
			updatedAt = company.UpdatedAt
		}
	}

	return renderSource{invoice: invoice, input: input, updatedAt: updatedAt}, nil
}

type clientRow struct {
	ID        snowflake.ID
	Name      string
	Email     string
	Address   string
	KvKNumber string
	BTWNumber string
	UpdatedAt time.Time
}

func (s *DocumentService) loadClient(ctx context.Context, db *gorm.DB, ownerID, clientID snowflake.ID) (*clientRow, error) {
	var client clientRow
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, email, address, kvk_number, btw_number, updated_at
		 FROM clients
		 WHERE owner_id = ? AND id = ?`,
		ownerID,
		clientID,
	).Scan(&client).Error
	if err != nil {
		return nil, err
	}
	if client.ID == 0 {
		return nil, invoicedomain.ErrClientNotFound
	}
	return &client, nil
}

type companyRow struct {
	ID           snowflake.ID
	CompanyName  string
	Address      string
	Phone        string
	Email        string
	KvKNumber    string
	BTWNumber    string
	IBAN         string
	VATDefault   float64
	PaymentTerms string
	UpdatedAt    time.Time
}

// loadCompany returns nil when the owner has not saved settings yet; the
// renderer substitutes placeholders.
func (s *DocumentService) loadCompany(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) (*companyRow, error) {
	var company companyRow
	err := db.WithContext(ctx).Raw(
		`SELECT id, company_name, address, phone, email, kvk_number, btw_number, iban,
		        vat_default, payment_terms, updated_at
		 FROM company_settings
		 WHERE owner_id = ?`,
		ownerID,
	).Scan(&company).Error
	if err != nil {
		return nil, err
	}
	if company.ID == 0 {
		return nil, nil
	}
	return &company, nil
}

type itemRow struct {
	Description      string
	Quantity         float64
	UnitPrice        float64
	Total            float64
	ProjectNumber    *string
	ProjectUpdatedAt *time.Time
}

func (s *DocumentService) listItemRows(ctx context.Context, db *gorm.DB, ownerID, invoiceID snowflake.ID) ([]itemRow, error) {
	var items []itemRow
	err := db.WithContext(ctx).Raw(
		`SELECT ii.description, ii.quantity, ii.unit_price, ii.total, p.project_number,
		        p.updated_at AS project_updated_at
		 FROM invoice_items ii
		 LEFT JOIN projects p ON p.id = ii.project_id AND p.owner_id = ii.owner_id
		 WHERE ii.owner_id = ? AND ii.invoice_id = ?
		 ORDER BY ii.position ASC, ii.id ASC`,
		ownerID,
		invoiceID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func buildInvoiceView(invoice *invoicedomain.Invoice) *render.InvoiceView {
	subtotal, vat, total := invoice.TotalExclVAT, invoice.VATAmount, invoice.TotalInclVAT
	return &render.InvoiceView{
		Number:       invoice.InvoiceNumber,
		Date:         invoice.Date(),
		VATPercent:   invoice.VATPercent,
		IsPaid:       invoice.IsPaid,
		TotalExclVAT: &subtotal,
		VATAmount:    &vat,
		TotalInclVAT: &total,
	}
}

func buildClientView(client *clientRow) *render.ClientView {
	return &render.ClientView{
		Name:      client.Name,
		Address:   client.Address,
		KvKNumber: client.KvKNumber,
		BTWNumber: client.BTWNumber,
	}
}

func buildCompanyView(company *companyRow) *render.CompanyView {
	return &render.CompanyView{
		CompanyName:  company.CompanyName,
		Address:      company.Address,
		Phone:        company.Phone,
		Email:        company.Email,
		KvKNumber:    company.KvKNumber,
		BTWNumber:    company.BTWNumber,
		IBAN:         company.IBAN,
		VATDefault:   company.VATDefault,
		PaymentTerms: company.PaymentTerms,
	}
}

func buildLineItemViews(items []itemRow) []render.LineItemView {
	views := make([]render.LineItemView, 0, len(items))
	for _, item := range items {
		quantity, unitPrice, total := item.Quantity, item.UnitPrice, item.Total
		view := render.LineItemView{
			Description: item.Description,
			Quantity:    &quantity,
			UnitPrice:   &unitPrice,
			Total:       &total,
		}
		if item.ProjectNumber != nil {
			view.ProjectNumber = *item.ProjectNumber
		}
		views = append(views, view)
	}
	return views
}
