package render

import (
	"embed"
	"html/template"
	"strings"
)

//go:embed templates/invoice.html
var templateFS embed.FS

var invoiceTemplate = template.Must(template.ParseFS(templateFS, "templates/invoice.html"))

// HTMLRenderer writes a composed Document through the embedded invoice
// template. html/template escapes every client supplied value.
type HTMLRenderer struct {
	tpl *template.Template
}

func NewRenderer() Renderer {
	return &HTMLRenderer{tpl: invoiceTemplate}
}

func (r *HTMLRenderer) Compose(input RenderInput) (Document, error) {
	return Compose(input)
}

func (r *HTMLRenderer) RenderHTML(input RenderInput) (string, error) {
	doc, err := Compose(input)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	if err := r.tpl.ExecuteTemplate(&sb, "invoice.html", doc); err != nil {
		return "", err
	}
	return sb.String(), nil
}
