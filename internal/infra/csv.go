package infra

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"salesdesk/internal/service"
)

// utf8BOM makes spreadsheet tools open the file as UTF-8.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var csvHeader = []string{
	"N° Reçu", "Date", "Nom", "Prénom", "Matricule", "Grade",
	"Montant (FCFA)", "Statut", "Agent", "Validé par", "Date validation",
}

// WriteSalesCSV writes one row per sale, dates in loc.
func WriteSalesCSV(w io.Writer, sales []service.SaleResponse, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("csv: write bom: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}

	for _, s := range sales {
		validatedAt := ""
		if s.ValidatedAt != nil {
			validatedAt = s.ValidatedAt.In(loc).Format("02/01/2006 15:04")
		}
		row := []string{
			s.ReceiptNumber,
			s.CreatedAt.In(loc).Format("02/01/2006 15:04"),
			safeCell(s.BuyerLastName),
			safeCell(s.BuyerFirstName),
			safeCell(s.BuyerMatricule),
			s.BuyerGrade,
			strconv.FormatInt(s.TotalAmount, 10),
			StatusLabel(s.Status),
			safeCell(s.AgentName),
			safeCell(s.ValidatorName),
			validatedAt,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("csv: write row %s: %w", s.ReceiptNumber, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// safeCell quotes free text that a spreadsheet would otherwise evaluate as a formula.
func safeCell(v string) string {
	if v == "" {
		return v
	}
	switch v[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + v
	}
	return v
}
