package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/mail"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/smallbiznis/bizadmin/internal/cache"
	"github.com/smallbiznis/bizadmin/internal/config"
	invoicedomain "github.com/smallbiznis/bizadmin/internal/invoice/domain"
	"github.com/smallbiznis/bizadmin/internal/invoice/format"
	"github.com/smallbiznis/bizadmin/internal/ownercontext"
	"github.com/smallbiznis/bizadmin/internal/providers/email"
	"github.com/smallbiznis/bizadmin/internal/providers/pdf"
	"github.com/smallbiznis/bizadmin/pkg/telemetry/correlation"
	"go.uber.org/zap"
)

const (
	contentTypePDF  = "application/pdf"
	contentTypeHTML = "text/html; charset=utf-8"
)

func (s *DocumentService) Export(ctx context.Context, rawID string, docFormat invoicedomain.DocumentFormat) (invoicedomain.ExportedDocument, error) {
	doc, _, err := s.export(ctx, rawID, docFormat)
	return doc, err
}

func (s *DocumentService) export(ctx context.Context, rawID string, docFormat invoicedomain.DocumentFormat) (invoicedomain.ExportedDocument, renderSource, error) {
	switch docFormat {
	case invoicedomain.FormatPDF, invoicedomain.FormatHTML:
	case "":
		docFormat = invoicedomain.FormatPDF
	default:
		return invoicedomain.ExportedDocument{}, renderSource{}, invoicedomain.ErrInvalidFormat
	}

	src, err := s.loadRenderSource(ctx, rawID)
	if err != nil {
		return invoicedomain.ExportedDocument{}, renderSource{}, err
	}
	if s.renderer == nil {
		return invoicedomain.ExportedDocument{}, src, errRendererNotConfigured
	}

	if docFormat == invoicedomain.FormatPDF {
		doc, ok, err := s.exportPDF(ctx, src)
		if err != nil {
			return invoicedomain.ExportedDocument{}, src, err
		}
		if ok {
			return doc, src, nil
		}
	}

	doc, err := s.exportHTML(ctx, src)
	if err != nil {
		return invoicedomain.ExportedDocument{}, src, err
	}
	doc.Fallback = docFormat == invoicedomain.FormatPDF
	return doc, src, nil
}

// exportPDF reports ok=false when the PDF backend failed and the caller
// should fall back to HTML. Only renderer precondition errors are returned.
func (s *DocumentService) exportPDF(ctx context.Context, src renderSource) (invoicedomain.ExportedDocument, bool, error) {
	doc := invoicedomain.ExportedDocument{
		Filename:    documentFilename(src.invoice.InvoiceNumber, invoicedomain.FormatPDF),
		ContentType: contentTypePDF,
		Format:      invoicedomain.FormatPDF,
	}

	key := cache.DocumentKey(src.invoice.ID.String(), string(invoicedomain.FormatPDF), src.updatedAt)
	if body, ok := s.cache.Get(ctx, key); ok {
		doc.Body = body
		s.metrics.RecordDocumentRendered(ctx, string(doc.Format), true)
		return doc, true, nil
	}

	page, err := s.renderer.Compose(src.input)
	if err != nil {
		return invoicedomain.ExportedDocument{}, false, err
	}

	body, err := s.pdf.Generate(ctx, page)
	if err != nil || len(body) == 0 {
		s.log.Warn("pdf generation failed, falling back to html",
			zap.String("invoice_id", src.invoice.ID.String()),
			zap.Error(err),
		)
		s.metrics.RecordExportFallback(ctx, fallbackReason(err))
		return invoicedomain.ExportedDocument{}, false, nil
	}

	s.cache.Set(ctx, key, body, s.cacheTTL())
	s.metrics.RecordDocumentRendered(ctx, string(doc.Format), false)
	doc.Body = body
	return doc, true, nil
}

func (s *DocumentService) exportHTML(ctx context.Context, src renderSource) (invoicedomain.ExportedDocument, error) {
	doc := invoicedomain.ExportedDocument{
		Filename:    documentFilename(src.invoice.InvoiceNumber, invoicedomain.FormatHTML),
		ContentType: contentTypeHTML,
		Format:      invoicedomain.FormatHTML,
	}

	key := cache.DocumentKey(src.invoice.ID.String(), string(invoicedomain.FormatHTML), src.updatedAt)
	if body, ok := s.cache.Get(ctx, key); ok {
		doc.Body = body
		s.metrics.RecordDocumentRendered(ctx, string(doc.Format), true)
		return doc, nil
	}

	out, err := s.renderer.RenderHTML(src.input)
	if err != nil {
		return invoicedomain.ExportedDocument{}, err
	}

	doc.Body = []byte(out)
	s.cache.Set(ctx, key, doc.Body, s.cacheTTL())
	s.metrics.RecordDocumentRendered(ctx, string(doc.Format), false)
	return doc, nil
}

func (s *DocumentService) Send(ctx context.Context, req invoicedomain.SendInvoiceRequest) (invoicedomain.SendInvoiceResponse, error) {
	ownerID, ok := ownercontext.OwnerIDFromContext(ctx)
	if !ok {
		return invoicedomain.SendInvoiceResponse{}, invoicedomain.ErrInvalidOwner
	}

	to, err := mail.ParseAddress(strings.TrimSpace(req.To))
	if err != nil {
		return invoicedomain.SendInvoiceResponse{}, invoicedomain.ErrInvalidRecipient
	}
	if s.email == nil {
		return invoicedomain.SendInvoiceResponse{}, errEmailNotConfigured
	}

	release, acquired := s.limiter.AcquireSend(ctx, ownerID.String(), strings.TrimSpace(req.ID))
	if !acquired {
		return invoicedomain.SendInvoiceResponse{}, invoicedomain.ErrSendInProgress
	}
	defer release()

	doc, src, err := s.export(ctx, req.ID, invoicedomain.FormatPDF)
	if err != nil {
		return invoicedomain.SendInvoiceResponse{}, err
	}

	subject := strings.TrimSpace(req.Subject)
	if subject == "" {
		subject = "Factuur " + src.invoice.InvoiceNumber
	}

	ctx, _ = correlation.Ensure(ctx)
	err = s.email.Send(ctx, email.Message{
		To:       []string{to.Address},
		Subject:  subject,
		HTMLBody: messageBody(req.Message, src),
		Headers:  correlation.Headers(ctx),
		Attachments: []email.Attachment{{
			Filename:    doc.Filename,
			ContentType: doc.ContentType,
			Body:        doc.Body,
		}},
	})
	if err != nil {
		s.metrics.RecordEmailSent(ctx, "failed")
		s.log.Error("invoice email failed",
			zap.String("invoice_id", src.invoice.ID.String()),
			zap.Error(err),
		)
		return invoicedomain.SendInvoiceResponse{}, err
	}

	s.metrics.RecordEmailSent(ctx, "sent")
	s.log.Info("invoice emailed",
		zap.String("owner_id", ownerID.String()),
		zap.String("invoice_id", src.invoice.ID.String()),
		zap.String("format", string(doc.Format)),
	)

	return invoicedomain.SendInvoiceResponse{
		To:       to.Address,
		Filename: doc.Filename,
		Format:   string(doc.Format),
	}, nil
}

func (s *DocumentService) cacheTTL() time.Duration {
	exportCfg := config.DefaultInvoicingConfig().Export
	if s.invoicingCfg != nil {
		exportCfg = s.invoicingCfg.Get().Export
	}
	return time.Duration(exportCfg.CacheTTLSeconds) * time.Second
}

// messageBody escapes the user's text and keeps its line breaks.
func messageBody(message string, src renderSource) string {
	message = strings.TrimSpace(message)
	if message == "" {
		total := format.Currency(src.invoice.TotalInclVAT)
		message = fmt.Sprintf(
			"Beste %s,\n\nIn de bijlage vindt u factuur %s ter hoogte van %s.\n\nMet vriendelijke groet",
			src.input.Client.Name, src.invoice.InvoiceNumber, total,
		)
	}
	escaped := html.EscapeString(message)
	return "<p>" + strings.ReplaceAll(escaped, "\n", "<br>") + "</p>"
}

func documentFilename(number string, docFormat invoicedomain.DocumentFormat) string {
	name := slug.Make("factuur-" + number)
	if name == "" {
		name = "factuur"
	}
	return name + "." + string(docFormat)
}

func fallbackReason(err error) string {
	if err == nil {
		return "empty_output"
	}
	if errors.Is(err, pdf.ErrDisabled) {
		return "disabled"
	}
	return "generate_failed"
}
