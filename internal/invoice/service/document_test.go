package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/smallbiznis/bizadmin/internal/cache"
	companydomain "github.com/smallbiznis/bizadmin/internal/companysettings/domain"
	invoicedomain "github.com/smallbiznis/bizadmin/internal/invoice/domain"
	"github.com/smallbiznis/bizadmin/internal/invoice/render"
	"github.com/smallbiznis/bizadmin/internal/invoice/repository"
	projectdomain "github.com/smallbiznis/bizadmin/internal/project/domain"
	projectrepo "github.com/smallbiznis/bizadmin/internal/project/repository"
	"github.com/smallbiznis/bizadmin/internal/providers/email"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type pdfProviderMock struct {
	mock.Mock
}

func (m *pdfProviderMock) Generate(ctx context.Context, doc render.Document) ([]byte, error) {
	args := m.Called(ctx, doc)
	body, _ := args.Get(0).([]byte)
	return body, args.Error(1)
}

type emailProviderMock struct {
	mock.Mock
}

func (m *emailProviderMock) Send(ctx context.Context, msg email.Message) error {
	return m.Called(ctx, msg).Error(0)
}

func newDocumentFixture(t *testing.T, pdf *pdfProviderMock, mailer *emailProviderMock) (*fixture, *DocumentService, invoicedomain.Invoice) {
	t.Helper()
	f := newFixture(t)

	invoice, err := f.svc.Create(f.ctx, invoicedomain.CreateInvoiceRequest{
		ClientID:    f.client.ID.String(),
		InvoiceDate: "2023-01-31",
		VATPercent:  vat(21),
		Items: []invoicedomain.LineItemInput{
			{ProjectID: f.project.ID.String(), Description: "Maandelijks onderhoud <Vondelpark>", Quantity: 80, UnitPrice: 43.75},
		},
	})
	require.NoError(t, err)

	p := DocumentParam{
		DB:       f.db,
		Log:      zap.NewNop(),
		Repo:     repository.Provide(),
		Renderer: render.NewRenderer(),
	}
	if pdf != nil {
		p.PDF = pdf
	}
	if mailer != nil {
		p.Email = mailer
	}
	return f, newDocumentService(p), invoice
}

func TestRenderHTMLUsesDefaultCompanyWithoutSettings(t *testing.T) {
	f, docs, invoice := newDocumentFixture(t, nil, nil)

	html, err := docs.RenderHTML(f.ctx, invoice.ID.String())
	require.NoError(t, err)

	assert.Contains(t, html, "Your Company Name")
	assert.Contains(t, html, "FY2023-01-001")
	assert.Contains(t, html, "PRJ-2023-001")
	assert.Contains(t, html, "Maandelijks onderhoud &lt;Vondelpark&gt;")
	assert.Contains(t, html, "3.500,00")
	assert.Contains(t, html, "4.235,00")
	assert.Contains(t, html, "14-02-2023")
}

func TestRenderHTMLUsesCompanySettings(t *testing.T) {
	f, docs, invoice := newDocumentFixture(t, nil, nil)
	now := time.Now().UTC()
	require.NoError(t, f.db.Create(&companydomain.CompanySettings{
		ID:          f.node.Generate(),
		OwnerID:     f.ownerID,
		CompanyName: "Yohannes Hoveniersbedrijf B.V.",
		IBAN:        "NL91ABNA0417164300",
		VATDefault:  21,
		CreatedAt:   now,
		UpdatedAt:   now,
	}).Error)

	html, err := docs.RenderHTML(f.ctx, invoice.ID.String())
	require.NoError(t, err)
	assert.Contains(t, html, "Yohannes Hoveniersbedrijf B.V.")
	assert.NotContains(t, html, "Your Company Name")
}

func TestRenderHTMLUnknownInvoice(t *testing.T) {
	f, docs, _ := newDocumentFixture(t, nil, nil)

	_, err := docs.RenderHTML(f.ctx, f.node.Generate().String())
	assert.ErrorIs(t, err, invoicedomain.ErrNotFound)

	_, err = docs.RenderHTML(f.ctx, "not-an-id")
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidID)
}

func TestExportPDF(t *testing.T) {
	pdf := new(pdfProviderMock)
	pdf.On("Generate", mock.Anything, mock.MatchedBy(func(doc render.Document) bool {
		return doc.Heading == "FACTUUR" && len(doc.Items.Rows) == 1
	})).Return([]byte("%PDF-1.3 test"), nil)

	f, docs, invoice := newDocumentFixture(t, pdf, nil)

	doc, err := docs.Export(f.ctx, invoice.ID.String(), invoicedomain.FormatPDF)
	require.NoError(t, err)

	assert.Equal(t, "factuur-fy2023-01-001.pdf", doc.Filename)
	assert.Equal(t, "application/pdf", doc.ContentType)
	assert.Equal(t, invoicedomain.FormatPDF, doc.Format)
	assert.False(t, doc.Fallback)
	assert.Equal(t, []byte("%PDF-1.3 test"), doc.Body)
	pdf.AssertExpectations(t)
}

func TestExportFallsBackToHTMLWhenPDFFails(t *testing.T) {
	pdf := new(pdfProviderMock)
	pdf.On("Generate", mock.Anything, mock.Anything).Return(nil, errors.New("font missing"))

	f, docs, invoice := newDocumentFixture(t, pdf, nil)

	doc, err := docs.Export(f.ctx, invoice.ID.String(), invoicedomain.FormatPDF)
	require.NoError(t, err)

	assert.True(t, doc.Fallback)
	assert.Equal(t, invoicedomain.FormatHTML, doc.Format)
	assert.Equal(t, "factuur-fy2023-01-001.html", doc.Filename)
	assert.True(t, strings.HasPrefix(doc.ContentType, "text/html"))
	assert.Contains(t, string(doc.Body), "FACTUUR")
}

func TestExportWithoutPDFBackendFallsBack(t *testing.T) {
	f, docs, invoice := newDocumentFixture(t, nil, nil)

	doc, err := docs.Export(f.ctx, invoice.ID.String(), invoicedomain.FormatPDF)
	require.NoError(t, err)
	assert.True(t, doc.Fallback)
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	f, docs, invoice := newDocumentFixture(t, nil, nil)

	_, err := docs.Export(f.ctx, invoice.ID.String(), "docx")
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidFormat)
}

func TestSendAttachesDocument(t *testing.T) {
	pdf := new(pdfProviderMock)
	pdf.On("Generate", mock.Anything, mock.Anything).Return([]byte("%PDF-1.3"), nil)

	mailer := new(emailProviderMock)
	mailer.On("Send", mock.Anything, mock.MatchedBy(func(msg email.Message) bool {
		return len(msg.To) == 1 &&
			msg.To[0] == "info@amsterdam.nl" &&
			msg.Subject == "Factuur FY2023-01-001" &&
			strings.Contains(msg.HTMLBody, "Gemeente Amsterdam") &&
			msg.Headers["X-Correlation-Id"] != "" &&
			len(msg.Attachments) == 1 &&
			msg.Attachments[0].Filename == "factuur-fy2023-01-001.pdf"
	})).Return(nil)

	f, docs, invoice := newDocumentFixture(t, pdf, mailer)

	resp, err := docs.Send(f.ctx, invoicedomain.SendInvoiceRequest{
		ID: invoice.ID.String(),
		To: "Gemeente <info@amsterdam.nl>",
	})
	require.NoError(t, err)

	assert.Equal(t, "info@amsterdam.nl", resp.To)
	assert.Equal(t, "pdf", resp.Format)
	mailer.AssertExpectations(t)
}

func TestSendRejectsBadRecipient(t *testing.T) {
	f, docs, invoice := newDocumentFixture(t, nil, new(emailProviderMock))

	_, err := docs.Send(f.ctx, invoicedomain.SendInvoiceRequest{ID: invoice.ID.String(), To: "nobody"})
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidRecipient)
}

func TestMessageBodyEscapesInput(t *testing.T) {
	src := renderSource{
		invoice: &invoicedomain.Invoice{InvoiceNumber: "X-1"},
		input:   render.RenderInput{Client: &render.ClientView{Name: "C"}},
	}
	assert.Equal(t, "<p>a &lt;b&gt;<br>c</p>", messageBody("a <b>\nc", src))
	assert.Contains(t, messageBody("", src), "factuur X-1")
}

func TestDocumentCacheKeyFollowsProjectChanges(t *testing.T) {
	f, docs, invoice := newDocumentFixture(t, nil, nil)

	before, err := docs.loadRenderSource(f.ctx, invoice.ID.String())
	require.NoError(t, err)
	keyBefore := cache.DocumentKey(invoice.ID.String(), string(invoicedomain.FormatHTML), before.updatedAt)

	renamedAt := before.updatedAt.Add(time.Minute)
	require.NoError(t, f.db.Model(&projectdomain.Project{}).
		Where("id = ?", f.project.ID).
		Updates(map[string]any{"project_number": "PRJ-2023-009", "updated_at": renamedAt}).Error)

	after, err := docs.loadRenderSource(f.ctx, invoice.ID.String())
	require.NoError(t, err)
	assert.True(t, after.updatedAt.Equal(renamedAt))
	assert.NotEqual(t, keyBefore, cache.DocumentKey(invoice.ID.String(), string(invoicedomain.FormatHTML), after.updatedAt))
	assert.Equal(t, "PRJ-2023-009", after.input.Items[0].ProjectNumber)

	deletedAt := renamedAt.Add(time.Minute)
	_, err = projectrepo.Provide().Delete(context.Background(), f.db, f.ownerID, f.project.ID, deletedAt)
	require.NoError(t, err)

	detached, err := docs.loadRenderSource(f.ctx, invoice.ID.String())
	require.NoError(t, err)
	assert.True(t, detached.updatedAt.Equal(deletedAt))
	assert.Empty(t, detached.input.Items[0].ProjectNumber)
}
