// Package dupes finds duplicate and inconsistent downloads: JSON documents
// grouped by control number and content-compared, and PDF files grouped by
// their counter-suffix-normalized names.
package dupes

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// CanonicalJSON renders parsed JSON data with sorted object keys, so key
// ordering in the source file never causes a false mismatch.
func CanonicalJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("canonical render: %w", err)
	}
	return string(b), nil
}

// HashContent is the canonical form's sha256, used as the comparison key.
func HashContent(v any) (string, error) {
	c, err := CanonicalJSON(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(c))
	return hex.EncodeToString(sum[:]), nil
}

// ControlNumber pulls identificacion.numeroControl out of a parsed
// document. "" when absent.
func ControlNumber(doc map[string]any) string {
	ident, ok := doc["identificacion"].(map[string]any)
	if !ok {
		return ""
	}
	num, _ := ident["numeroControl"].(string)
	return strings.TrimSpace(num)
}

// Collector bookkeeping lives next to the documents and is never part of
// any analysis.
var skipMarkers = []string{
	"ultimo_",
	"01descargados",
	"02ignorados",
	"reporte_",
	"registros_fallidos",
	"duplicados",
	"sin_correlacion",
}

func isBookkeepingFile(name string) bool {
	for _, marker := range skipMarkers {
		if strings.Contains(name, marker) {
			return true
		}
	}
	return false
}
