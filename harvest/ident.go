package harvest

import (
	"fmt"
	"strings"
)

// ExtractIdentifier derives the stable identifier for a row of the given
// document type from its cell texts. Returns "" when no cell carries a
// recognizable identifier.
func ExtractIdentifier(docType DocType, cells []string) string {
	switch docType {
	case DocExpenses, DocRemissions:
		// Expense codes and remission correlatives are UUID-shaped,
		// e.g. D54375A9-1E4A-A65F-BC54-80CA4EE8D85C.
		for _, c := range cells {
			c = strings.TrimSpace(c)
			if len(c) == 36 && strings.Count(c, "-") == 4 {
				return c
			}
		}
	default:
		// Tax documents carry a full DTE number in one cell,
		// e.g. DTE-03-S002P001-000000000000686.
		for _, c := range cells {
			c = strings.TrimSpace(c)
			if strings.Contains(c, "DTE-") {
				return c
			}
		}
	}
	return ""
}

// expenseDocNumberColumn is the position of the document-number column in
// the expense listing (fecha, sucursal, proveedor, tipo, número).
const expenseDocNumberColumn = 4

// ExtractDocumentNumber returns the human-facing document number shown in
// the expense listing, or "" when the row is too short.
func ExtractDocumentNumber(cells []string) string {
	if len(cells) <= expenseDocNumberColumn {
		return ""
	}
	return strings.TrimSpace(cells[expenseDocNumberColumn])
}

// SanitizeFilename replaces characters that are invalid in filenames on
// common filesystems with underscores.
func SanitizeFilename(name string) string {
	const invalid = `<>:"/\|?*`
	cleaned := strings.TrimSpace(name)
	for _, ch := range invalid {
		cleaned = strings.ReplaceAll(cleaned, string(ch), "_")
	}
	return cleaned
}

// IDFromDownloadURL pulls the server-side document id out of a download
// link, used as a naming fallback when the row has no identifier.
// Returns "" when the URL does not carry the expected segment.
func IDFromDownloadURL(url string, kind DownloadKind) string {
	marker := "/" + string(kind) + "/"
	i := strings.LastIndex(url, marker)
	if i < 0 {
		return ""
	}
	id := url[i+len(marker):]
	if j := strings.IndexAny(id, "?#"); j >= 0 {
		id = id[:j]
	}
	return id
}

// FallbackName builds a positional download base name for rows whose
// identifier could not be determined. Position is 1-based.
func FallbackName(docType DocType, position int) string {
	switch docType {
	case DocExpenses:
		return fmt.Sprintf("gasto_%d", position)
	case DocRemissions:
		return fmt.Sprintf("remision_%d", position)
	default:
		return fmt.Sprintf("factura_%d", position)
	}
}
