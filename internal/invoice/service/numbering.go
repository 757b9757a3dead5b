package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	invoicedomain "github.com/smallbiznis/bizadmin/internal/invoice/domain"
	invoiceformat "github.com/smallbiznis/bizadmin/internal/invoice/format"
	"gorm.io/gorm"
)

const maxNumberAttempts = 20

// generateInvoiceNumber claims sequence values until the formatted number is
// free. Manually entered numbers can occupy a slot the sequence would hand
// out, hence the retry.
func (s *Service) generateInvoiceNumber(ctx context.Context, tx *gorm.DB, ownerID snowflake.ID, invoiceDate time.Time) (string, error) {
	template := invoiceformat.DefaultInvoiceNumberTemplate
	if s.invoicingCfg != nil {
		if tpl := strings.TrimSpace(s.invoicingCfg.Get().NumberTemplate); tpl != "" {
			template = tpl
		}
	}

	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		seq, err := s.repo.NextSequence(ctx, tx, ownerID, s.clock.Now().UTC())
		if err != nil {
			return "", err
		}
		number, err := invoiceformat.FormatInvoiceNumber(template, invoiceDate, seq)
		if err != nil {
			return "", err
		}
		taken, err := s.repo.NumberExists(ctx, tx, ownerID, number, 0)
		if err != nil {
			return "", err
		}
		if !taken {
			return number, nil
		}
	}
	return "", invoicedomain.ErrDuplicateNumber
}
