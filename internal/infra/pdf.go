package infra

import (
	"bytes"
	"fmt"
	"time"

	"salesdesk/internal/service"

	"github.com/go-pdf/fpdf"
)

// ReceiptPDF renders a printable A5 receipt for one sale. Dates are shown in loc.
func ReceiptPDF(sale service.SaleResponse, loc *time.Location) ([]byte, error) {
	if loc == nil {
		loc = time.UTC
	}

	pdf := fpdf.New("P", "mm", "A5", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 10)
	pdf.AddPage()

	// core fonts are cp1252; accents in names and labels need translating
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 20

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(contentW, 8, tr("REÇU DE VENTE"), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(contentW, 6, sale.ReceiptNumber, "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(contentW, 5, sale.CreatedAt.In(loc).Format("02/01/2006 15:04"), "", 1, "C", false, 0, "")
	pdf.Ln(3)

	// ── Buyer ────────────────────────────────────────────────────────────────
	labelW := contentW * 0.3
	field := func(label, value string) {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(labelW, 5, tr(label), "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		pdf.CellFormat(contentW-labelW, 5, tr(value), "", 1, "L", false, 0, "")
	}
	field("Nom :", sale.BuyerLastName)
	field("Prénom :", sale.BuyerFirstName)
	field("Matricule :", sale.BuyerMatricule)
	field("Grade :", sale.BuyerGrade)
	pdf.Ln(2)

	// ── Items ────────────────────────────────────────────────────────────────
	col1 := contentW * 0.46
	col2 := contentW * 0.12
	col3 := contentW * 0.21
	col4 := contentW * 0.21

	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(col1, 6, "Produit", "1", 0, "L", true, 0, "")
	pdf.CellFormat(col2, 6, tr("Qté"), "1", 0, "C", true, 0, "")
	pdf.CellFormat(col3, 6, "Prix unitaire", "1", 0, "R", true, 0, "")
	pdf.CellFormat(col4, 6, "Montant", "1", 1, "R", true, 0, "")

	pdf.SetFont("Helvetica", "", 8)
	for _, item := range sale.Items {
		name := item.ProductName
		if item.ProductWeight != "" {
			name += " " + item.ProductWeight
		}
		pdf.CellFormat(col1, 6, tr(name), "1", 0, "L", false, 0, "")
		pdf.CellFormat(col2, 6, fmt.Sprintf("%d", item.Quantity), "1", 0, "C", false, 0, "")
		pdf.CellFormat(col3, 6, FormatFCFA(item.UnitPrice), "1", 0, "R", false, 0, "")
		pdf.CellFormat(col4, 6, FormatFCFA(item.LineTotal), "1", 1, "R", false, 0, "")
	}

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(col1+col2+col3, 7, "TOTAL", "1", 0, "R", false, 0, "")
	pdf.CellFormat(col4, 7, FormatFCFA(sale.TotalAmount), "1", 1, "R", false, 0, "")
	pdf.Ln(4)

	// ── Status ───────────────────────────────────────────────────────────────
	field("Statut :", StatusLabel(sale.Status))
	field("Agent :", sale.AgentName)
	if sale.ValidatedAt != nil {
		field("Validé par :", sale.ValidatorName)
		field("Le :", sale.ValidatedAt.In(loc).Format("02/01/2006 15:04"))
	}
	if sale.CancelledAt != nil {
		reason := ""
		if sale.CancellationReason != nil {
			reason = ReasonLabel(*sale.CancellationReason)
		}
		field("Motif :", reason)
		if sale.CancellationNote != nil {
			field("Note :", *sale.CancellationNote)
		}
	}

	// ── Footer ───────────────────────────────────────────────────────────────
	pdf.Ln(4)
	pdf.SetFont("Helvetica", "I", 7)
	pdf.CellFormat(contentW, 4, tr("Présentez ce reçu au contrôleur pour le retrait."), "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf: render receipt: %w", err)
	}
	return buf.Bytes(), nil
}
