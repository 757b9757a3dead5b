package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	invoicedomain "github.com/smallbiznis/bizadmin/internal/invoice/domain"
)

// PreviewInvoice renders the printable HTML page inline.
func (s *Server) PreviewInvoice(c *gin.Context) {
	html, err := s.documentSvc.RenderHTML(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}

// DownloadInvoiceDocument serves the invoice as an attachment. A PDF request
// may be answered with HTML when the PDF backend fails; X-Document-Fallback
// reports that.
func (s *Server) DownloadInvoiceDocument(c *gin.Context) {
	format := invoicedomain.DocumentFormat(strings.ToLower(strings.TrimSpace(c.Query("format"))))

	doc, err := s.documentSvc.Export(c.Request.Context(), strings.TrimSpace(c.Param("id")), format)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, doc.Filename))
	c.Header("X-Document-Format", string(doc.Format))
	if doc.Fallback {
		c.Header("X-Document-Fallback", "true")
	}
	c.Data(http.StatusOK, doc.ContentType, doc.Body)
}

func (s *Server) SendInvoice(c *gin.Context) {
	var req invoicedomain.SendInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ID = strings.TrimSpace(c.Param("id"))

	resp, err := s.documentSvc.Send(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
