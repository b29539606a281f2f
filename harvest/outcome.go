package harvest

import "fmt"

// OutcomeKind classifies what happened to a single row.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeAlreadyDone
	OutcomeIgnored
	OutcomeVoided
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "exitoso"
	case OutcomeAlreadyDone:
		return "ya_descargado"
	case OutcomeIgnored:
		return "ignorado"
	case OutcomeVoided:
		return "anulado"
	case OutcomeFailed:
		return "fallido"
	}
	return fmt.Sprintf("OutcomeKind(%d)", int(k))
}

// Outcome is the verdict for one processed row. Exactly one kind applies;
// Reason is set for Ignored and Failed.
type Outcome struct {
	Kind   OutcomeKind
	Reason string
}

func Succeeded() Outcome           { return Outcome{Kind: OutcomeSuccess} }
func Voided() Outcome              { return Outcome{Kind: OutcomeVoided} }
func Failed(reason string) Outcome { return Outcome{Kind: OutcomeFailed, Reason: reason} }

// DocType names one of the three document listings the collector drives.
type DocType string

const (
	DocInvoices   DocType = "facturas"
	DocExpenses   DocType = "gastos"
	DocRemissions DocType = "remisiones"
)

// IdentifierField is the JSON tag under which this type's row identifier is
// reported in failure and voided reports.
func (d DocType) IdentifierField() string {
	switch d {
	case DocExpenses:
		return "codigo"
	case DocRemissions:
		return "correlativo"
	default:
		return "dte"
	}
}

// Flow selects how the print window is reached for this type.
type Flow int

const (
	// FlowDetail opens the row detail view and prints from there
	// (invoices, remissions).
	FlowDetail Flow = iota
	// FlowDirect prints straight from the row action menu (expenses).
	FlowDirect
)
