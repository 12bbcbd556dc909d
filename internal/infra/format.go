package infra

import (
	"strconv"
	"strings"

	"salesdesk/internal/model"
)

// StatusLabel is the French label printed for a sale status.
func StatusLabel(status string) string {
	switch model.SaleStatus(status) {
	case model.SaleStatusPending:
		return "En attente"
	case model.SaleStatusValidated:
		return "Validée"
	case model.SaleStatusCancelled:
		return "Annulée"
	default:
		return status
	}
}

// ReasonLabel is the French label of a cancellation reason.
func ReasonLabel(reason string) string {
	switch model.CancellationReason(reason) {
	case model.ReasonStockUnavailable:
		return "Stock indisponible"
	case model.ReasonNotEligible:
		return "Acheteur non éligible"
	case model.ReasonOther:
		return "Autre"
	default:
		return reason
	}
}

// FormatFCFA groups thousands with a space: 24750 -> "24 750 FCFA".
func FormatFCFA(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	digits := strconv.FormatInt(amount, 10)

	var b strings.Builder
	b.WriteString(sign)
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(d)
	}
	b.WriteString(" FCFA")
	return b.String()
}
