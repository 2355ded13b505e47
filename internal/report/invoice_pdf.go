// Package report renders printable documents.
package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf/v2"
	"github.com/shopspring/decimal"

	"github.com/garageos/api/internal/database"
	"github.com/garageos/api/internal/service"
)

// InvoiceDocument is everything printed on an invoice.
type InvoiceDocument struct {
	Invoice  database.InvoiceDetail
	Services []database.Service
	Parts    []database.PartUsage
	Payments []database.Payment
	// PartNames maps inventory item IDs to display names; missing entries
	// fall back to the item ID.
	PartNames   map[string]string
	GeneratedAt time.Time
}

func money(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n-3] + "..."
	}
	return s
}

// RenderInvoicePDF renders an invoice with its line items and payment history.
func RenderInvoicePDF(doc InvoiceDocument) ([]byte, error) {
	inv := doc.Invoice

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetTitle(inv.InvoiceNumber, false)
	pdf.AddPage()

	// Header
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(190, 10, fmt.Sprintf("Invoice %s", inv.InvoiceNumber), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(190, 6, inv.LocationName, "", 1, "C", false, 0, "")
	pdf.CellFormat(190, 6, fmt.Sprintf("Issued: %s", inv.CreatedAt.Format("02-Jan-2006")), "", 1, "C", false, 0, "")
	pdf.Ln(5)

	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(190, 8, "Repair Order", "1", 1, "L", true, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(95, 7, fmt.Sprintf("Customer: %s %s", inv.CustomerFirstName, inv.CustomerLastName), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Order: %s", inv.OrderNumber), "RB", 1, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Vehicle: %d %s %s", inv.VehicleYear, inv.VehicleMake, inv.VehicleModel), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Status: %s", inv.Status), "RB", 1, "L", false, 0, "")
	pdf.CellFormat(190, 7, truncate(inv.OrderDescription, 90), "1", 1, "L", false, 0, "")
	pdf.Ln(5)

	// Line items
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(200, 200, 200)
	pdf.CellFormat(100, 7, "Item", "1", 0, "C", true, 0, "")
	pdf.CellFormat(20, 7, "Qty", "1", 0, "C", true, 0, "")
	pdf.CellFormat(35, 7, "Unit Price", "1", 0, "C", true, 0, "")
	pdf.CellFormat(35, 7, "Line Total", "1", 1, "C", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	for _, s := range doc.Services {
		price := service.NumericToDecimal(s.Price)
		pdf.CellFormat(100, 6, truncate("Labor: "+s.Name, 50), "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 6, "1", "1", 0, "C", false, 0, "")
		pdf.CellFormat(35, 6, money(price), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, money(price), "1", 1, "R", false, 0, "")
	}
	for _, p := range doc.Parts {
		name, ok := doc.PartNames[p.InventoryItemID.String()]
		if !ok {
			name = p.InventoryItemID.String()
		}
		price := service.NumericToDecimal(p.Price)
		pdf.CellFormat(100, 6, truncate("Part: "+name, 50), "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 6, fmt.Sprintf("%d", p.Quantity), "1", 0, "C", false, 0, "")
		pdf.CellFormat(35, 6, money(price), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, money(price.Mul(decimal.NewFromInt32(p.Quantity))), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(3)

	// Totals
	amount := service.NumericToDecimal(inv.Amount)
	tax := service.NumericToDecimal(inv.Tax)
	total := service.NumericToDecimal(inv.Total)
	paid := service.NumericToDecimal(inv.PaidAmount)

	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(155, 7, "Subtotal", "", 0, "R", false, 0, "")
	pdf.CellFormat(35, 7, money(amount), "", 1, "R", false, 0, "")
	pdf.CellFormat(155, 7, fmt.Sprintf("Tax (%s%%)", service.TaxRate.Shift(2).String()), "", 0, "R", false, 0, "")
	pdf.CellFormat(35, 7, money(tax), "", 1, "R", false, 0, "")
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(155, 7, "Total", "", 0, "R", false, 0, "")
	pdf.CellFormat(35, 7, money(total), "", 1, "R", false, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(155, 7, "Paid", "", 0, "R", false, 0, "")
	pdf.CellFormat(35, 7, money(paid), "", 1, "R", false, 0, "")
	pdf.Ln(2)

	balance := total.Sub(paid)
	if balance.IsPositive() {
		pdf.SetFillColor(255, 200, 200)
	} else {
		pdf.SetFillColor(200, 255, 200)
	}
	pdf.SetFont("Arial", "B", 14)
	balanceText := fmt.Sprintf("Balance Due: %s", money(balance))
	if !balance.IsPositive() {
		balanceText = "PAID IN FULL"
	}
	pdf.CellFormat(190, 10, balanceText, "1", 1, "C", true, 0, "")

	if len(doc.Payments) > 0 {
		pdf.Ln(5)
		pdf.SetFont("Arial", "B", 12)
		pdf.SetFillColor(240, 240, 240)
		pdf.CellFormat(190, 8, "Payment History", "1", 1, "L", true, 0, "")

		pdf.SetFont("Arial", "B", 10)
		pdf.SetFillColor(200, 200, 200)
		pdf.CellFormat(45, 7, "Date", "1", 0, "C", true, 0, "")
		pdf.CellFormat(40, 7, "Method", "1", 0, "C", true, 0, "")
		pdf.CellFormat(65, 7, "Reference", "1", 0, "C", true, 0, "")
		pdf.CellFormat(40, 7, "Amount", "1", 1, "C", true, 0, "")

		pdf.SetFont("Arial", "", 10)
		for _, p := range doc.Payments {
			pdf.CellFormat(45, 6, p.CreatedAt.Format("02-Jan-2006"), "1", 0, "C", false, 0, "")
			pdf.CellFormat(40, 6, p.Method, "1", 0, "C", false, 0, "")
			pdf.CellFormat(65, 6, truncate(p.Reference.String, 30), "1", 0, "L", false, 0, "")
			pdf.CellFormat(40, 6, money(service.NumericToDecimal(p.Amount)), "1", 1, "R", false, 0, "")
		}
	}

	generated := doc.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}
	pdf.Ln(5)
	pdf.SetFont("Arial", "I", 8)
	pdf.CellFormat(190, 5, fmt.Sprintf("Generated %s", generated.Format("02-Jan-2006 03:04 PM")), "", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render invoice pdf: %w", err)
	}
	return buf.Bytes(), nil
}
