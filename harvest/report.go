package harvest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FailureRecord captures one row that exhausted its retries. Date is the
// row's displayed date when one was visible.
type FailureRecord struct {
	Position   int
	Identifier string
	Page       int
	Reason     string
	Date       string
	At         time.Time
}

// VoidedRecord captures a row recognized as a cancelled document.
type VoidedRecord struct {
	Position   int
	Identifier string
	Page       int
	At         time.Time
}

// WriteFailureReport serializes the accumulated failures into a timestamped
// report in dir. No file is written when the list is empty; the returned
// path is "" in that case.
func WriteFailureReport(dir string, docType DocType, failures []FailureRecord) (string, error) {
	if len(failures) == 0 {
		return "", nil
	}
	field := docType.IdentifierField()
	registros := make([]map[string]any, 0, len(failures))
	for _, f := range failures {
		r := map[string]any{
			"posicion":  f.Position,
			field:       f.Identifier,
			"error":     f.Reason,
			"timestamp": f.At.Format(time.RFC3339),
		}
		if f.Page > 0 {
			r["pagina"] = f.Page
		}
		if f.Date != "" {
			r["fecha"] = f.Date
		} else {
			r["fecha"] = "desconocida"
		}
		registros = append(registros, r)
	}

	report := map[string]any{
		"fecha_reporte":  time.Now().Format(time.RFC3339),
		"total_fallidos": len(failures),
		"registros":      registros,
	}
	path := filepath.Join(dir, fmt.Sprintf("reporte_fallidos_%s.json", time.Now().Format("20060102_150405")))
	if err := writeJSON(path, report); err != nil {
		return "", err
	}
	return path, nil
}

// WriteVoidedReport serializes the voided-document list. Like failures, an
// empty list writes nothing.
func WriteVoidedReport(dir string, docType DocType, voided []VoidedRecord) (string, error) {
	if len(voided) == 0 {
		return "", nil
	}
	field := docType.IdentifierField()
	registros := make([]map[string]any, 0, len(voided))
	for _, v := range voided {
		r := map[string]any{
			"posicion":  v.Position,
			field:       v.Identifier,
			"timestamp": v.At.Format(time.RFC3339),
		}
		if v.Page > 0 {
			r["pagina"] = v.Page
		}
		registros = append(registros, r)
	}

	report := map[string]any{
		"fecha_reporte":  time.Now().Format(time.RFC3339),
		"total_anuladas": len(voided),
		"registros":      registros,
	}
	path := filepath.Join(dir, fmt.Sprintf("reporte_anuladas_%s.json", time.Now().Format("20060102_150405")))
	if err := writeJSON(path, report); err != nil {
		return "", err
	}
	return path, nil
}

func writeJSON(path string, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
