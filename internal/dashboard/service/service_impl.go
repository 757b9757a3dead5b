package service

import (
	"context"
	"sort"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bizadmin/internal/clock"
	dashboarddomain "github.com/smallbiznis/bizadmin/internal/dashboard/domain"
	"github.com/smallbiznis/bizadmin/internal/invoice/format"
	"github.com/smallbiznis/bizadmin/internal/ownercontext"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock `optional:"true"`
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
}

func NewService(p Params) dashboarddomain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("dashboard.service"),
		clock: clk,
	}
}

type countsRow struct {
	Clients  int64 `gorm:"column:clients"`
	Projects int64 `gorm:"column:projects"`
	Invoices int64 `gorm:"column:invoices"`
	Settings int64 `gorm:"column:settings"`
}

type invoiceRow struct {
	ID            snowflake.ID `gorm:"column:id"`
	InvoiceNumber string       `gorm:"column:invoice_number"`
	InvoiceDate   time.Time    `gorm:"column:invoice_date"`
	ClientID      snowflake.ID `gorm:"column:client_id"`
	ClientName    string       `gorm:"column:client_name"`
	TotalInclVAT  float64      `gorm:"column:total_incl_vat"`
	IsPaid        bool         `gorm:"column:is_paid"`
}

type clientRevenueRow struct {
	ClientID     snowflake.ID `gorm:"column:client_id"`
	Name         string       `gorm:"column:name"`
	Revenue      float64      `gorm:"column:revenue"`
	InvoiceCount int64        `gorm:"column:invoice_count"`
}

func (s *Service) Summary(ctx context.Context) (dashboarddomain.Summary, error) {
	ownerID, ok := ownercontext.OwnerIDFromContext(ctx)
	if !ok {
		return dashboarddomain.Summary{}, dashboarddomain.ErrInvalidOwner
	}
	db := s.db.WithContext(ctx)
	today := truncateDay(s.clock.Now())

	var counts countsRow
	if err := db.Raw(
		`SELECT
		   (SELECT COUNT(1) FROM clients WHERE owner_id = ?) AS clients,
		   (SELECT COUNT(1) FROM projects WHERE owner_id = ?) AS projects,
		   (SELECT COUNT(1) FROM invoices WHERE owner_id = ?) AS invoices,
		   (SELECT COUNT(1) FROM company_settings WHERE owner_id = ?) AS settings`,
		ownerID, ownerID, ownerID, ownerID,
	).Scan(&counts).Error; err != nil {
		return dashboarddomain.Summary{}, err
	}

	summary := dashboarddomain.Summary{
		ClientCount:        counts.Clients,
		ProjectCount:       counts.Projects,
		InvoiceCount:       counts.Invoices,
		HasCompanySettings: counts.Settings > 0,
	}

	recent, err := s.listInvoices(ctx, ownerID, nil, "i.created_at DESC, i.id DESC", dashboarddomain.RecentInvoiceLimit)
	if err != nil {
		return dashboarddomain.Summary{}, err
	}
	summary.RecentInvoices = toSummaries(recent)

	unpaid := false
	open, err := s.listInvoices(ctx, ownerID, &unpaid, "i.invoice_date ASC, i.id ASC", 0)
	if err != nil {
		return dashboarddomain.Summary{}, err
	}
	summary.UpcomingPayments = make([]dashboarddomain.UpcomingPayment, 0, dashboarddomain.UpcomingLimit)
	for _, row := range open {
		summary.OutstandingAmount += row.TotalInclVAT
		payment := upcoming(row, today)
		if payment.Overdue {
			summary.OverdueAmount += row.TotalInclVAT
		}
		if len(summary.UpcomingPayments) < dashboarddomain.UpcomingLimit {
			summary.UpcomingPayments = append(summary.UpcomingPayments, payment)
		}
	}

	start := firstOfMonth(today).AddDate(0, -(dashboarddomain.RevenueMonths - 1), 0)
	paid := true
	paidRows, err := s.listInvoices(ctx, ownerID, &paid, "i.invoice_date ASC, i.id ASC", 0)
	if err != nil {
		return dashboarddomain.Summary{}, err
	}
	summary.MonthlyRevenue = monthlyRevenue(paidRows, start, dashboarddomain.RevenueMonths)
	for _, row := range paidRows {
		summary.TotalRevenue += row.TotalInclVAT
	}

	top, err := s.topClients(ctx, ownerID)
	if err != nil {
		return dashboarddomain.Summary{}, err
	}
	summary.TopClients = top

	return summary, nil
}

// listInvoices loads invoices with their client name. A limit of 0 means
// no limit.
func (s *Service) listInvoices(ctx context.Context, ownerID snowflake.ID, paid *bool, order string, limit int) ([]invoiceRow, error) {
	stmt := s.db.WithContext(ctx).
		Table("invoices AS i").
		Select("i.id, i.invoice_number, i.invoice_date, i.client_id, c.name AS client_name, i.total_incl_vat, i.is_paid").
		Joins("LEFT JOIN clients c ON c.id = i.client_id AND c.owner_id = i.owner_id").
		Where("i.owner_id = ?", ownerID)
	if paid != nil {
		stmt = stmt.Where("i.is_paid = ?", *paid)
	}
	stmt = stmt.Order(order)
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}

	var rows []invoiceRow
	if err := stmt.Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Service) topClients(ctx context.Context, ownerID snowflake.ID) ([]dashboarddomain.ClientRevenue, error) {
	var rows []clientRevenueRow
	err := s.db.WithContext(ctx).Raw(
		`SELECT c.id AS client_id,
		        c.name AS name,
		        COALESCE(SUM(i.total_incl_vat), 0) AS revenue,
		        COUNT(i.id) AS invoice_count
		 FROM clients c
		 JOIN invoices i ON i.client_id = c.id AND i.owner_id = c.owner_id
		 WHERE c.owner_id = ?
		 GROUP BY c.id, c.name
		 ORDER BY revenue DESC, c.name ASC
		 LIMIT ?`,
		ownerID,
		dashboarddomain.TopClientLimit,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]dashboarddomain.ClientRevenue, 0, len(rows))
	for _, row := range rows {
		out = append(out, dashboarddomain.ClientRevenue{
			ClientID:     row.ClientID,
			Name:         row.Name,
			Revenue:      row.Revenue,
			InvoiceCount: row.InvoiceCount,
		})
	}
	return out, nil
}

func toSummaries(rows []invoiceRow) []dashboarddomain.InvoiceSummary {
	out := make([]dashboarddomain.InvoiceSummary, 0, len(rows))
	for _, row := range rows {
		out = append(out, toSummary(row))
	}
	return out
}

func toSummary(row invoiceRow) dashboarddomain.InvoiceSummary {
	return dashboarddomain.InvoiceSummary{
		ID:            row.ID,
		InvoiceNumber: row.InvoiceNumber,
		InvoiceDate:   truncateDay(row.InvoiceDate),
		ClientID:      row.ClientID,
		ClientName:    row.ClientName,
		TotalInclVAT:  row.TotalInclVAT,
		IsPaid:        row.IsPaid,
	}
}

func upcoming(row invoiceRow, today time.Time) dashboarddomain.UpcomingPayment {
	due := format.DueDate(truncateDay(row.InvoiceDate))
	days := int(due.Sub(today).Hours() / 24)
	return dashboarddomain.UpcomingPayment{
		InvoiceSummary: toSummary(row),
		DueDate:        due,
		DaysUntilDue:   days,
		Overdue:        days < 0,
	}
}

// monthlyRevenue buckets paid totals by invoice month. Months without
// revenue are present with zero so the series has a fixed length.
func monthlyRevenue(rows []invoiceRow, start time.Time, months int) []dashboarddomain.MonthRevenue {
	buckets := make(map[string]float64, months)
	keys := make([]string, 0, months)
	for i := 0; i < months; i++ {
		key := start.AddDate(0, i, 0).Format("2006-01")
		buckets[key] = 0
		keys = append(keys, key)
	}

	for _, row := range rows {
		key := row.InvoiceDate.UTC().Format("2006-01")
		if _, ok := buckets[key]; ok {
			buckets[key] += row.TotalInclVAT
		}
	}

	sort.Strings(keys)
	out := make([]dashboarddomain.MonthRevenue, 0, months)
	for _, key := range keys {
		out = append(out, dashboarddomain.MonthRevenue{Month: key, Revenue: buckets[key]})
	}
	return out
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func firstOfMonth(t time.Time) time.Time {
	y, m, _ := t.UTC().Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}
