package report

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

const (
	pageWidth   = 190.0 // A4 width minus margins
	bodySize    = 9.0
	tableSize   = 8.0
	lineHeight  = 5.0
	chartImage  = "price_chart"
	chartHeight = 70.0
)

// markdownToPDF parses markdown with goldmark and walks the AST into an A4
// document. chartPNG, when set, is placed below the title.
func markdownToPDF(markdown, title string, chartPNG []byte) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 10)
	pdf.SetTitle(title, true)
	pdf.AddPage()
	pdf.SetFont("Arial", "", bodySize)

	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	source := []byte(markdown)
	doc := md.Parser().Parse(text.NewReader(source))

	r := &pdfRenderer{
		pdf:    pdf,
		source: source,
		tr:     pdf.UnicodeTranslatorFromDescriptor(""),
		chart:  chartPNG,
	}
	if err := ast.Walk(doc, r.walk); err != nil {
		return nil, fmt.Errorf("failed to render PDF: %w", err)
	}
	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("failed to render PDF: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	return buf.Bytes(), nil
}

type pdfRenderer struct {
	pdf       *fpdf.Fpdf
	source    []byte
	tr        func(string) string // UTF-8 to the core font code page
	chart     []byte
	bold      bool
	italic    bool
	listLevel int
}

func (r *pdfRenderer) updateFont() {
	style := ""
	if r.bold {
		style += "B"
	}
	if r.italic {
		style += "I"
	}
	r.pdf.SetFont("Arial", style, bodySize)
}

func (r *pdfRenderer) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node := n.(type) {
	case *ast.Heading:
		r.heading(node, entering)
	case *ast.Paragraph:
		if !entering {
			r.pdf.Ln(lineHeight + 2)
		}
	case *ast.Text:
		if entering {
			r.pdf.Write(lineHeight, r.tr(string(node.Segment.Value(r.source))))
			if node.SoftLineBreak() || node.HardLineBreak() {
				r.pdf.Ln(lineHeight)
			}
		}
	case *ast.Emphasis:
		if node.Level == 2 {
			r.bold = entering
		} else {
			r.italic = entering
		}
		r.updateFont()
	case *ast.List:
		if entering {
			r.listLevel++
		} else {
			r.listLevel--
			if r.listLevel == 0 {
				r.pdf.Ln(lineHeight)
			}
		}
	case *ast.ListItem:
		if entering {
			r.pdf.Ln(lineHeight)
			r.pdf.SetX(12 + float64(r.listLevel)*5)
			r.pdf.Write(lineHeight, "- ")
		}
	case *ast.ThematicBreak:
		if entering {
			r.pdf.Ln(2)
			r.pdf.Line(10, r.pdf.GetY(), 200, r.pdf.GetY())
			r.pdf.Ln(2)
		}
	case *extast.Table:
		if entering {
			r.table(node)
			return ast.WalkSkipChildren, nil
		}
	}
	return ast.WalkContinue, nil
}

func (r *pdfRenderer) heading(n *ast.Heading, entering bool) {
	if entering {
		r.pdf.Ln(4)
		size := 10.0
		switch n.Level {
		case 1:
			size = 16
		case 2:
			size = 12
		case 3:
			size = 10.5
		}
		r.pdf.SetFont("Arial", "B", size)
		return
	}
	r.pdf.Ln(lineHeight + 2)
	r.updateFont()

	if n.Level == 1 && r.chart != nil {
		r.image()
	}
}

// image embeds the price chart once, at the current position.
func (r *pdfRenderer) image() {
	opts := fpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
	r.pdf.RegisterImageOptionsReader(chartImage, opts, bytes.NewReader(r.chart))
	r.pdf.ImageOptions(chartImage, 10, r.pdf.GetY(), pageWidth, chartHeight, false, opts, 0, "")
	r.pdf.SetY(r.pdf.GetY() + chartHeight + 2)
	r.chart = nil
}

func (r *pdfRenderer) table(n *extast.Table) {
	var rows [][]string
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		switch row := child.(type) {
		case *extast.TableHeader:
			rows = append(rows, r.cells(row))
		case *extast.TableRow:
			rows = append(rows, r.cells(row))
		}
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return
	}

	widths := r.columnWidths(rows)
	rowHeight := lineHeight + 1
	for i, row := range rows {
		style, fill := "", false
		if i == 0 {
			style, fill = "B", true
		}
		r.pdf.SetFont("Arial", style, tableSize)
		r.pdf.SetFillColor(230, 230, 230)
		for j, w := range widths {
			cell := ""
			if j < len(row) {
				cell = row[j]
			}
			r.pdf.CellFormat(w, rowHeight, cell, "1", 0, "L", fill, 0, "")
		}
		r.pdf.Ln(rowHeight)
	}
	r.pdf.Ln(3)
	r.updateFont()
}

func (r *pdfRenderer) cells(row ast.Node) []string {
	var out []string
	for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
		if _, ok := cell.(*extast.TableCell); ok {
			out = append(out, r.tr(string(cell.Text(r.source))))
		}
	}
	return out
}

// columnWidths sizes columns to their widest cell, scaled to fit the page.
func (r *pdfRenderer) columnWidths(rows [][]string) []float64 {
	widths := make([]float64, len(rows[0]))
	r.pdf.SetFont("Arial", "B", tableSize)
	for _, row := range rows {
		for j, cell := range row {
			if j >= len(widths) {
				break
			}
			if w := r.pdf.GetStringWidth(cell) + 4; w > widths[j] {
				widths[j] = w
			}
		}
	}
	total := 0.0
	for i := range widths {
		if widths[i] < 15 {
			widths[i] = 15
		}
		total += widths[i]
	}
	if total > pageWidth {
		for i := range widths {
			widths[i] *= pageWidth / total
		}
	}
	return widths
}
