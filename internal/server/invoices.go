package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	invoicedomain "github.com/smallbiznis/bizadmin/internal/invoice/domain"
	"github.com/smallbiznis/bizadmin/pkg/db/pagination"
)

type markPaidRequest struct {
	IsPaid *bool `json:"is_paid"`
}

func (s *Server) CreateInvoice(c *gin.Context) {
	var req invoicedomain.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.invoiceSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListInvoices(c *gin.Context) {
	var query struct {
		pagination.Pagination
		ClientID string `form:"client_id"`
		IsPaid   string `form:"is_paid"`
		DateFrom string `form:"date_from"`
		DateTo   string `form:"date_to"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	isPaid, err := queryBool(query.IsPaid)
	if err != nil {
		AbortWithError(c, newValidationError("is_paid", "invalid_is_paid", "invalid is_paid"))
		return
	}

	dateFrom, err := queryDate(query.DateFrom, false)
	if err != nil {
		AbortWithError(c, newValidationError("date_from", "invalid_date_from", "invalid date_from"))
		return
	}

	dateTo, err := queryDate(query.DateTo, true)
	if err != nil {
		AbortWithError(c, newValidationError("date_to", "invalid_date_to", "invalid date_to"))
		return
	}

	resp, err := s.invoiceSvc.List(c.Request.Context(), invoicedomain.ListInvoiceRequest{
		PageToken: query.PageToken,
		PageSize:  int32(query.PageSize),
		ClientID:  strings.TrimSpace(query.ClientID),
		IsPaid:    isPaid,
		DateFrom:  dateFrom,
		DateTo:    dateTo,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":      resp.Invoices,
		"page_info": resp.PageInfo,
	})
}

func (s *Server) GetInvoiceByID(c *gin.Context) {
	resp, err := s.invoiceSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateInvoice(c *gin.Context) {
	var req invoicedomain.UpdateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ID = strings.TrimSpace(c.Param("id"))

	resp, err := s.invoiceSvc.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteInvoice(c *gin.Context) {
	if err := s.invoiceSvc.Delete(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// MarkInvoicePaid sets the paid flag; an empty body marks the invoice paid.
func (s *Server) MarkInvoicePaid(c *gin.Context) {
	var req markPaidRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}
	paid := true
	if req.IsPaid != nil {
		paid = *req.IsPaid
	}

	resp, err := s.invoiceSvc.MarkPaid(c.Request.Context(), strings.TrimSpace(c.Param("id")), paid)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// PreviewInvoiceTotals computes totals for unsaved form data.
func (s *Server) PreviewInvoiceTotals(c *gin.Context) {
	var req invoicedomain.PreviewTotalsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.invoiceSvc.PreviewTotals(req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isInvoiceValidationError(err error) bool {
	switch err {
	case invoicedomain.ErrInvalidID,
		invoicedomain.ErrInvalidClient,
		invoicedomain.ErrClientNotFound,
		invoicedomain.ErrInvalidProject,
		invoicedomain.ErrInvalidInvoiceDate,
		invoicedomain.ErrInvalidVATPercent,
		invoicedomain.ErrInvalidInvoiceNumber,
		invoicedomain.ErrInvalidFormat,
		invoicedomain.ErrInvalidRecipient,
		invoicedomain.ErrInvalidAmount:
		return true
	default:
		return false
	}
}
