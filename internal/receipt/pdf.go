// Package receipt renders sale receipts as PDF documents with go-pdf/fpdf and mails them over SMTP.
package receipt

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"shopdesk/internal/model"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

// Line is one printed item row
type Line struct {
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
}

func (l Line) Amount() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Receipt holds everything printed on a receipt
type Receipt struct {
	ShopName      string
	Address       string
	Phone         string
	Footer        string
	InvoiceNumber string
	Date          time.Time
	CustomerName  string
	CustomerPhone string
	Lines         []Line
	Total         decimal.Decimal
	Paid          decimal.Decimal
	Status        string
}

// Remaining is the unpaid part, never negative
func (r Receipt) Remaining() decimal.Decimal {
	rest := r.Total.Sub(r.Paid)
	if rest.IsNegative() {
		return decimal.Zero
	}
	return rest
}

// FromInvoice builds a receipt from the shop owner's profile and a persisted invoice
func FromInvoice(shop *model.User, inv *model.Invoice) Receipt {
	r := Receipt{
		ShopName:      shop.ShopName,
		Address:       shop.Address,
		Phone:         shop.Phone,
		Footer:        shop.FooterMessage,
		InvoiceNumber: inv.InvoiceNumber,
		Date:          inv.CreatedAt,
		CustomerName:  inv.CustomerName,
		CustomerPhone: inv.CustomerPhone,
		Total:         inv.TotalAmount,
		Paid:          inv.AmountPaid,
		Status:        inv.Status,
	}
	for _, item := range inv.Items {
		r.Lines = append(r.Lines, Line{Name: item.Name, Quantity: item.Quantity, UnitPrice: item.UnitPrice})
	}
	return r
}

// money prints an amount rounded to the unit with space-grouped thousands
func money(d decimal.Decimal) string {
	s := d.Round(0).String()
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	var b strings.Builder
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(c)
	}
	if neg {
		return "-" + b.String() + " F"
	}
	return b.String() + " F"
}

// Render lays the receipt out on an A5 page and returns the PDF bytes
func Render(r Receipt) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A5", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 10)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 20

	// header
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(contentW, 7, tr(strings.ToUpper(r.ShopName)), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	if r.Address != "" {
		pdf.CellFormat(contentW, 4, tr(r.Address), "", 1, "C", false, 0, "")
	}
	if r.Phone != "" {
		pdf.CellFormat(contentW, 4, tr("Tel: "+r.Phone), "", 1, "C", false, 0, "")
	}
	pdf.Ln(3)

	// customer and invoice boxes
	half := contentW/2 - 2
	y := pdf.GetY()
	pdf.Rect(10, y, half, 12, "D")
	pdf.Rect(10+half+4, y, half, 12, "D")
	pdf.SetXY(12, y+1)
	pdf.SetFont("Helvetica", "B", 7)
	pdf.CellFormat(half-4, 4, "CLIENT", "", 2, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(half-4, 5, tr(strings.ToUpper(r.CustomerName)), "", 0, "L", false, 0, "")
	pdf.SetXY(12+half+4, y+1)
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(half-4, 4, "Date: "+r.Date.Format("02/01/2006 15:04"), "", 2, "L", false, 0, "")
	pdf.SetFont("Helvetica", "B", 8)
	pdf.CellFormat(half-4, 5, tr("No: "+r.InvoiceNumber), "", 0, "L", false, 0, "")
	pdf.SetXY(10, y+15)

	// items
	colQty, colPrice, colAmount := 12.0, 25.0, 28.0
	colName := contentW - colQty - colPrice - colAmount
	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Helvetica", "B", 8)
	pdf.CellFormat(colQty, 6, "Qty", "1", 0, "C", true, 0, "")
	pdf.CellFormat(colName, 6, "Item", "1", 0, "C", true, 0, "")
	pdf.CellFormat(colPrice, 6, "Unit", "1", 0, "C", true, 0, "")
	pdf.CellFormat(colAmount, 6, "Amount", "1", 1, "C", true, 0, "")

	pdf.SetFont("Helvetica", "", 8)
	for _, l := range r.Lines {
		name := strings.ToUpper(l.Name)
		if len(name) > 40 {
			name = name[:39] + "."
		}
		pdf.CellFormat(colQty, 5, fmt.Sprintf("%d", l.Quantity), "1", 0, "C", false, 0, "")
		pdf.CellFormat(colName, 5, tr(name), "1", 0, "L", false, 0, "")
		pdf.CellFormat(colPrice, 5, money(l.UnitPrice), "1", 0, "R", false, 0, "")
		pdf.CellFormat(colAmount, 5, money(l.Amount()), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(3)

	// totals
	boxW := 55.0
	boxX := pageW - 10 - boxW
	rows := []struct {
		label string
		value decimal.Decimal
		style string
	}{
		{"Total:", r.Total, "B"},
		{"Paid:", r.Paid, ""},
		{"Remaining:", r.Remaining(), "B"},
	}
	for _, row := range rows {
		pdf.SetX(boxX)
		pdf.SetFont("Helvetica", row.style, 8)
		pdf.CellFormat(boxW/2, 5, row.label, "", 0, "L", false, 0, "")
		pdf.CellFormat(boxW/2, 5, money(row.value), "", 1, "R", false, 0, "")
	}
	if r.Status == model.StatusDebt {
		pdf.SetX(boxX)
		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(boxW, 6, "UNPAID BALANCE", "1", 1, "C", false, 0, "")
	}

	footer := r.Footer
	if footer == "" {
		footer = "Thank you for your business!"
	}
	pdf.Ln(4)
	pdf.SetFont("Helvetica", "I", 7)
	pdf.CellFormat(contentW, 4, tr(footer), "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf: render receipt: %w", err)
	}
	return buf.Bytes(), nil
}
