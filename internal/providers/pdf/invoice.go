package pdf

import (
	"context"
	"strings"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/smallbiznis/bizadmin/internal/invoice/render"
)

const (
	lineHeight  = 4.5
	bodySize    = 9.0
	headingSize = 10.0
	titleSize   = 20.0
)

// columnWidths follows render.Columns on a 12 column grid.
var columnWidths = []int{2, 4, 2, 2, 2}

type MarotoProvider struct{}

func New() Provider {
	return &MarotoProvider{}
}

func (p *MarotoProvider) Generate(ctx context.Context, doc render.Document) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: pageFooter(doc.Footer),
			Place:   props.Bottom,
			Size:    8,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(sectionHeight(doc.Company),
		sectionCol(6, doc.Company, headingSize),
		text.NewCol(6, doc.Heading, props.Text{
			Size:  titleSize,
			Style: fontstyle.Bold,
			Align: align.Right,
		}),
	)

	m.AddRow(maxHeight(doc.Meta, doc.Client),
		sectionCol(6, doc.Meta, headingSize),
		sectionCol(6, doc.Client, headingSize),
	)

	m.AddRow(10, text.NewCol(12, doc.Items.Heading, props.Text{
		Size:  headingSize,
		Style: fontstyle.Bold,
		Top:   3,
	}))
	m.AddRow(7, tableRow(doc.Items.Columns, fontstyle.Bold)...)
	for _, row := range doc.Items.Rows {
		m.AddRow(rowHeight(row.Description), tableRow(row.Cells(), fontstyle.Normal)...)
	}

	for i, total := range doc.Totals {
		style := fontstyle.Normal
		top := 0.0
		if total.Emphasis {
			style = fontstyle.Bold
		}
		if i == 0 {
			top = 3
		}
		m.AddRow(6+top,
			col.New(6),
			text.NewCol(3, total.Label, props.Text{Size: bodySize, Style: style, Top: top}),
			text.NewCol(3, total.Value, props.Text{Size: bodySize, Style: style, Top: top, Align: align.Right}),
		)
	}

	m.AddRow(6)
	m.AddRow(sectionHeight(doc.Payment), sectionCol(12, doc.Payment, headingSize))

	out, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return out.GetBytes(), nil
}

func pageFooter(company string) string {
	company = strings.TrimSpace(company)
	if company == "" {
		return "Pagina {current} van {total}"
	}
	return company + " - Pagina {current} van {total}"
}

func sectionCol(size int, section render.Section, headingPt float64) core.Col {
	c := col.New(size)
	c.Add(text.New(section.Heading, props.Text{Size: headingPt, Style: fontstyle.Bold}))
	for i, line := range section.Lines {
		c.Add(text.New(line, props.Text{
			Size: bodySize,
			Top:  float64(i+1)*lineHeight + 1,
		}))
	}
	return c
}

func tableRow(cells []string, style fontstyle.Type) []core.Col {
	cols := make([]core.Col, 0, len(cells))
	for i, cell := range cells {
		width := 2
		if i < len(columnWidths) {
			width = columnWidths[i]
		}
		textAlign := align.Left
		if i >= 2 {
			textAlign = align.Right
		}
		cols = append(cols, text.NewCol(width, cell, props.Text{
			Size:  bodySize,
			Style: style,
			Align: textAlign,
		}))
	}
	return cols
}

func sectionHeight(section render.Section) float64 {
	return float64(len(section.Lines)+1)*lineHeight + 4
}

func maxHeight(a, b render.Section) float64 {
	ha, hb := sectionHeight(a), sectionHeight(b)
	if ha > hb {
		return ha
	}
	return hb
}

// rowHeight grows with long descriptions, which wrap in the 4 column cell.
func rowHeight(description string) float64 {
	lines := len(description)/40 + 1
	return float64(lines)*lineHeight + 2
}
