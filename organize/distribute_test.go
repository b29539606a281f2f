package organize

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestDistribute_Move(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeFiles(t, src,
		"DTE-01-M0030001-000000000000029.pdf",
		"DTE-01-M0010005-000000000000011.json",
		"DTE-05-M0010005-000000000000011.pdf",
		"sin_patron.pdf",
	)

	stats, err := Distribute(src, dst, ModeMove, nil)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Total != 4 {
		t.Fatalf("total %d", stats.Total)
	}
	if stats.Buckets[BucketSanSalvador] != 1 || stats.Buckets[BucketSantaAna] != 1 || stats.Buckets[BucketCreditNotes] != 1 {
		t.Fatalf("buckets %+v", stats.Buckets)
	}
	if len(stats.Unclassified) != 1 || stats.Unclassified[0] != "sin_patron.pdf" {
		t.Fatalf("unclassified %v", stats.Unclassified)
	}

	if _, err := os.Stat(filepath.Join(dst, "SS", "DTE-01-M0030001-000000000000029.pdf")); err != nil {
		t.Fatal("SS file not moved:", err)
	}
	if _, err := os.Stat(filepath.Join(dst, "notas_de_credito", "DTE-05-M0010005-000000000000011.pdf")); err != nil {
		t.Fatal("credit note not moved:", err)
	}
	// Moved files leave the source; unclassified files stay.
	if _, err := os.Stat(filepath.Join(src, "DTE-01-M0030001-000000000000029.pdf")); !os.IsNotExist(err) {
		t.Fatal("moved file still in source")
	}
	if _, err := os.Stat(filepath.Join(src, "sin_patron.pdf")); err != nil {
		t.Fatal("unclassified file must stay:", err)
	}
	if stats.ReportPath == "" {
		t.Fatal("expected a report path")
	}
}

func TestDistribute_CopyKeepsSource(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeFiles(t, src, "DTE-01-S0010001-000000000000001.pdf")

	if _, err := Distribute(src, dst, ModeCopy, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(src, "DTE-01-S0010001-000000000000001.pdf")); err != nil {
		t.Fatal("copy mode removed the source:", err)
	}
	if _, err := os.Stat(filepath.Join(dst, "SS", "DTE-01-S0010001-000000000000001.pdf")); err != nil {
		t.Fatal("copy missing in destination:", err)
	}
}

func TestDistribute_ReportTouchesNothing(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeFiles(t, src, "DTE-01-S0010001-000000000000001.pdf")

	stats, err := Distribute(src, dst, ModeReport, nil)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Buckets[BucketSanSalvador] != 1 {
		t.Fatalf("buckets %+v", stats.Buckets)
	}
	entries, err := os.ReadDir(dst)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("report mode created %v", entries)
	}
	raw, err := os.ReadFile(stats.ReportPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), "San Salvador (SS): 1") {
		t.Fatalf("report content:\n%s", raw)
	}
}

func TestDistribute_SkipsBookkeepingFiles(t *testing.T) {
	src := t.TempDir()
	writeFiles(t, src,
		"ultimo_exitoso.json",
		"01descargados.json",
		"02ignorados.json",
		"reporte_fallidos_20260901_120000.json",
		"duplicados_20260901.json",
	)

	stats, err := Distribute(src, t.TempDir(), ModeMove, nil)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Total != 0 {
		t.Fatalf("total %d, bookkeeping files must be skipped", stats.Total)
	}
}

func TestMoveFileToDir_AvoidsNameCollision(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeFiles(t, src, "a.pdf")
	writeFiles(t, dst, "a.pdf")

	moved, err := MoveFileToDir(filepath.Join(src, "a.pdf"), dst)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(moved) == "a.pdf" {
		t.Fatalf("expected a suffixed name, got %s", moved)
	}
	if !strings.HasPrefix(filepath.Base(moved), "a-") || !strings.HasSuffix(moved, ".pdf") {
		t.Fatalf("unexpected collision name %s", moved)
	}
}
