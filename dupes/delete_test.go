package dupes

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDeleteFromReport_PDF(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "factura_123.pdf", "factura_123 (1).pdf", "factura_123 (2).pdf")

	res, err := AnalyzePDF(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.ReportPath == "" {
		t.Fatal("expected a report")
	}

	// Remove one duplicate beforehand: it must be counted, not fatal.
	if err := os.Remove(filepath.Join(dir, "factura_123 (2).pdf")); err != nil {
		t.Fatal(err)
	}

	del, err := DeleteFromReport(res.ReportPath, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if del.Deleted != 1 || del.Missing != 1 || del.Errors != 0 {
		t.Fatalf("result %+v", del)
	}
	// The canonical file always survives.
	if _, err := os.Stat(filepath.Join(dir, "factura_123.pdf")); err != nil {
		t.Fatal("canonical file was deleted:", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "factura_123 (1).pdf")); !os.IsNotExist(err) {
		t.Fatal("duplicate not deleted")
	}
}

func TestDeleteFromReport_JSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.json", `{"identificacion":{"numeroControl":"C-1"},"x":1}`)
	writeFile(t, dir, "b.json", `{"identificacion":{"numeroControl":"C-1"},"x":1}`)

	res, err := AnalyzeJSON(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.DuplicateReportPath == "" {
		t.Fatal("expected a duplicates report")
	}

	del, err := DeleteFromReport(res.DuplicateReportPath, dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	if del.Deleted != 1 {
		t.Fatalf("result %+v", del)
	}
	// archivo1 goes, archivo2 stays.
	if _, err := os.Stat(filepath.Join(dir, "a.json")); !os.IsNotExist(err) {
		t.Fatal("a.json should be gone")
	}
	if _, err := os.Stat(filepath.Join(dir, "b.json")); err != nil {
		t.Fatal("b.json must survive:", err)
	}
}

func TestDeleteFromReport_EmptyReport(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "reporte.json", `{"duplicados":[]}`)
	if _, err := DeleteFromReport(filepath.Join(dir, "reporte.json"), dir, nil); err == nil {
		t.Fatal("expected an error for an empty report")
	}
}

func TestRenameByControlNumber(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "descarga (3).json", `{"identificacion":{"numeroControl":"DTE-01-M0010001-000000000000042"}}`)
	writeFile(t, dir, "hermaco-YA.json", `{"identificacion":{"numeroControl":"YA"}}`)
	writeFile(t, dir, "sin_control.json", `{"resumen":{}}`)
	writeFile(t, dir, "01descargados.json", `{"registros":[]}`)

	res, err := RenameByControlNumber(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 3 {
		t.Fatalf("total %d", res.Total)
	}
	if res.Renamed != 1 || res.Skipped != 2 || res.Errors != 0 {
		t.Fatalf("result %+v", res)
	}
	if _, err := os.Stat(filepath.Join(dir, "hermaco-DTE-01-M0010001-000000000000042.json")); err != nil {
		t.Fatal("renamed file missing:", err)
	}
}

func TestRenameByControlNumber_CollisionSkipped(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "x.json", `{"identificacion":{"numeroControl":"C-1"}}`)
	writeFile(t, dir, "hermaco-C-1.json", `{"identificacion":{"numeroControl":"C-1"}}`)

	res, err := RenameByControlNumber(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Renamed != 0 || res.Skipped != 2 {
		t.Fatalf("result %+v", res)
	}
	if _, err := os.Stat(filepath.Join(dir, "x.json")); err != nil {
		t.Fatal("collision source must stay:", err)
	}
}
