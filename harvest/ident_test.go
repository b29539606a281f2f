package harvest

import "testing"

func TestExtractIdentifier_Invoice(t *testing.T) {
	cells := []string{"01/08/2026", "Sucursal Centro", "DTE-03-S002P001-000000000000686", "$12.50"}
	if got := ExtractIdentifier(DocInvoices, cells); got != "DTE-03-S002P001-000000000000686" {
		t.Fatalf("got %q", got)
	}
}

func TestExtractIdentifier_ExpenseCode(t *testing.T) {
	cells := []string{"02/08/2026", "Proveedor X", "Factura", "AE6B49E7-62FA-505E-BFF0-2503F4C6E932", "Pagado"}
	if got := ExtractIdentifier(DocExpenses, cells); got != "AE6B49E7-62FA-505E-BFF0-2503F4C6E932" {
		t.Fatalf("got %q", got)
	}
}

func TestExtractIdentifier_RemissionCorrelative(t *testing.T) {
	cells := []string{"  D54375A9-1E4A-A65F-BC54-80CA4EE8D85C  ", "ok"}
	if got := ExtractIdentifier(DocRemissions, cells); got != "D54375A9-1E4A-A65F-BC54-80CA4EE8D85C" {
		t.Fatalf("got %q", got)
	}
	// Dashes in a shorter token must not match.
	if got := ExtractIdentifier(DocRemissions, []string{"a-b-c-d-e"}); got != "" {
		t.Fatalf("expected no identifier, got %q", got)
	}
}

func TestExtractIdentifier_Absent(t *testing.T) {
	if got := ExtractIdentifier(DocInvoices, []string{"01/08/2026", "sin documento"}); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}

func TestExtractDocumentNumber(t *testing.T) {
	cells := []string{"01/08/2026", "Centro", "Proveedor", "Factura", "F-000123"}
	if got := ExtractDocumentNumber(cells); got != "F-000123" {
		t.Fatalf("got %q", got)
	}
	if got := ExtractDocumentNumber([]string{"too", "short"}); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}

func TestSanitizeFilename(t *testing.T) {
	if got := SanitizeFilename(` a/b\c:d*e?f"g<h>i|j `); got != "a_b_c_d_e_f_g_h_i_j" {
		t.Fatalf("got %q", got)
	}
}

func TestIDFromDownloadURL(t *testing.T) {
	if got := IDFromDownloadURL("https://erp.example/sells/pdf/98431?inline=1", DownloadPDF); got != "98431" {
		t.Fatalf("got %q", got)
	}
	if got := IDFromDownloadURL("https://erp.example/sells/view/98431", DownloadPDF); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}

func TestFallbackName(t *testing.T) {
	cases := map[DocType]string{
		DocInvoices:   "factura_7",
		DocExpenses:   "gasto_7",
		DocRemissions: "remision_7",
	}
	for docType, want := range cases {
		if got := FallbackName(docType, 7); got != want {
			t.Errorf("%s: got %q, want %q", docType, got, want)
		}
	}
}
