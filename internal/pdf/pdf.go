// Package pdf renders billing documents (quotes and invoices) as PDF files.
package pdf

import (
	"io"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
)

// LineRow is a rendered line item.
type LineRow struct {
	Name        string
	Description string
	UnitCost    decimal.Decimal
	Quantity    uint
	Amount      decimal.Decimal
}

// Document is everything needed to render a billing document. Handlers build
// one from a model so this package stays free of persistence concerns.
type Document struct {
	Kind   string // "Quote", "Invoice", "Receipt", ...
	Code   string // public encoded id
	Date   string
	Party  string
	Email  string
	Notes  string
	Rows   []LineRow
	Total  decimal.Decimal
	Status string // payment status line, empty to omit
}

const (
	marginLeft = 15.0
	rowHeight  = 8.0
)

// Render writes the document as an A4 PDF.
func Render(w io.Writer, doc Document) error {
	p := gofpdf.New("P", "mm", "A4", "")
	p.SetMargins(marginLeft, 20, 15)
	p.AddPage()

	p.SetFont("Helvetica", "B", 20)
	p.CellFormat(0, 12, doc.Kind+" "+doc.Code, "", 1, "L", false, 0, "")

	p.SetFont("Helvetica", "", 11)
	p.CellFormat(0, 6, "Date: "+doc.Date, "", 1, "L", false, 0, "")
	p.CellFormat(0, 6, "Billed to: "+doc.Party, "", 1, "L", false, 0, "")
	if doc.Email != "" {
		p.CellFormat(0, 6, doc.Email, "", 1, "L", false, 0, "")
	}
	p.Ln(6)

	// Table header
	p.SetFont("Helvetica", "B", 10)
	p.SetFillColor(235, 235, 235)
	p.CellFormat(60, rowHeight, "Item", "1", 0, "L", true, 0, "")
	p.CellFormat(60, rowHeight, "Description", "1", 0, "L", true, 0, "")
	p.CellFormat(20, rowHeight, "Qty", "1", 0, "R", true, 0, "")
	p.CellFormat(20, rowHeight, "Unit", "1", 0, "R", true, 0, "")
	p.CellFormat(20, rowHeight, "Amount", "1", 1, "R", true, 0, "")

	p.SetFont("Helvetica", "", 10)
	for _, row := range doc.Rows {
		p.CellFormat(60, rowHeight, row.Name, "1", 0, "L", false, 0, "")
		p.CellFormat(60, rowHeight, row.Description, "1", 0, "L", false, 0, "")
		p.CellFormat(20, rowHeight, decimal.NewFromInt(int64(row.Quantity)).String(), "1", 0, "R", false, 0, "")
		p.CellFormat(20, rowHeight, row.UnitCost.StringFixed(2), "1", 0, "R", false, 0, "")
		p.CellFormat(20, rowHeight, row.Amount.StringFixed(2), "1", 1, "R", false, 0, "")
	}

	p.SetFont("Helvetica", "B", 11)
	p.CellFormat(160, rowHeight, "Total", "1", 0, "R", false, 0, "")
	p.CellFormat(20, rowHeight, doc.Total.StringFixed(2), "1", 1, "R", false, 0, "")

	if doc.Status != "" {
		p.Ln(4)
		p.SetFont("Helvetica", "I", 10)
		p.CellFormat(0, 6, "Payment status: "+doc.Status, "", 1, "L", false, 0, "")
	}
	if doc.Notes != "" {
		p.Ln(4)
		p.SetFont("Helvetica", "", 10)
		p.MultiCell(0, 5, "Notes: "+doc.Notes, "", "L", false)
	}
	return p.Output(w)
}
