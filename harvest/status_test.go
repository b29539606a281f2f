package harvest

import "testing"

func TestNormalizePayStatus(t *testing.T) {
	cases := map[string]PayStatus{
		"Pagado":    StatusPaid,
		" pagado ":  StatusPaid,
		"Debido":    StatusUnpaid,
		"Pendiente": StatusUnpaid,
		"":          StatusUnknown,
		"Otro":      StatusUnknown,
	}
	for in, want := range cases {
		if got := NormalizePayStatus(in); got != want {
			t.Errorf("NormalizePayStatus(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestExtractPayStatus(t *testing.T) {
	cells := []string{"05/08/2026", "Centro", "Prov", "Factura", "F-9", "Pagado"}
	if got := ExtractPayStatus(cells); got != StatusPaid {
		t.Fatalf("got %v", got)
	}
	if got := ExtractPayStatus([]string{"05/08/2026", "Centro"}); got != StatusUnknown {
		t.Fatalf("got %v", got)
	}
}

func TestRowVoided(t *testing.T) {
	if !RowVoided([]string{"ok", "Debido (Anulada)"}) {
		t.Fatal("expected voided")
	}
	if RowVoided([]string{"ok", "Pagado"}) {
		t.Fatal("unexpected voided")
	}
}
