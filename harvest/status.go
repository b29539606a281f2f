package harvest

import "strings"

// PayStatus classifies the payment-state column of an expense row.
type PayStatus string

const (
	StatusPaid    PayStatus = "pagado"
	StatusUnpaid  PayStatus = "debido"
	StatusUnknown PayStatus = "desconocido"
)

// NormalizePayStatus maps the displayed payment state to a PayStatus:
// - pagado -> paid
// - debido/pendiente -> unpaid
// - else -> unknown (treated as unpaid downstream, never downloaded)
func NormalizePayStatus(v string) PayStatus {
	s := strings.ToLower(strings.TrimSpace(v))
	switch s {
	case "pagado":
		return StatusPaid
	case "debido", "pendiente":
		return StatusUnpaid
	default:
		return StatusUnknown
	}
}

// ExtractPayStatus scans a row's cells for a recognizable payment state.
// Unknown when no cell matches.
func ExtractPayStatus(cells []string) PayStatus {
	for _, c := range cells {
		if st := NormalizePayStatus(c); st != StatusUnknown {
			return st
		}
	}
	return StatusUnknown
}

// RowVoided reports whether any cell marks the document as voided.
func RowVoided(cells []string) bool {
	for _, c := range cells {
		if strings.Contains(strings.ToLower(c), "anulada") {
			return true
		}
	}
	return false
}
