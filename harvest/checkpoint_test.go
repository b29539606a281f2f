package harvest

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCheckpointStore_SaveLoadRoundtrip(t *testing.T) {
	dir := t.TempDir()
	s := &CheckpointStore{Dir: dir, DocType: DocInvoices}

	if err := s.Save("DTE-01-M0010001-000000000000042", 3); err != nil {
		t.Fatal(err)
	}
	cp := s.Load()
	if cp == nil {
		t.Fatal("expected a checkpoint")
	}
	if cp.Identifier != "DTE-01-M0010001-000000000000042" {
		t.Fatalf("identifier %q", cp.Identifier)
	}
	if cp.Page != 3 {
		t.Fatalf("page %d", cp.Page)
	}
}

func TestCheckpointStore_LoadMissing(t *testing.T) {
	s := &CheckpointStore{Dir: t.TempDir(), DocType: DocInvoices}
	if cp := s.Load(); cp != nil {
		t.Fatalf("expected nil, got %+v", cp)
	}
}

func TestCheckpointStore_MostRecentWins(t *testing.T) {
	dir := t.TempDir()

	// A legacy per-run checkpoint alongside the canonical file: the most
	// recently modified one is authoritative.
	old := filepath.Join(dir, "ultimo_codigo_exitoso_20250101.json")
	if err := os.WriteFile(old, []byte(`{"fecha_actualizacion":"2025-01-01T10:00:00Z","ultimo_codigo":"OLD"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(old, past, past); err != nil {
		t.Fatal(err)
	}

	s := &CheckpointStore{Dir: dir, DocType: DocExpenses}
	if err := s.Save("NEW", 0); err != nil {
		t.Fatal(err)
	}

	cp := s.Load()
	if cp == nil || cp.Identifier != "NEW" {
		t.Fatalf("got %+v, want identifier NEW", cp)
	}
}

func TestCheckpointStore_UnparsableIsAbsent(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "ultimo_exitoso.json"), []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := &CheckpointStore{Dir: dir, DocType: DocRemissions}
	if cp := s.Load(); cp != nil {
		t.Fatalf("expected nil for unparsable file, got %+v", cp)
	}
}

func TestCheckpointStore_MarkChecked(t *testing.T) {
	dir := t.TempDir()
	s := &CheckpointStore{Dir: dir, DocType: DocRemissions}
	if err := s.Save("D54375A9-1E4A-A65F-BC54-80CA4EE8D85C", 0); err != nil {
		t.Fatal(err)
	}
	if err := s.MarkChecked("D54375A9-1E4A-A65F-BC54-80CA4EE8D85C", 0); err != nil {
		t.Fatal(err)
	}
	cp := s.Load()
	if cp == nil {
		t.Fatal("expected a checkpoint")
	}
	if cp.Identifier != "D54375A9-1E4A-A65F-BC54-80CA4EE8D85C" {
		t.Fatalf("identifier %q", cp.Identifier)
	}
	if cp.State != stateNothingNew {
		t.Fatalf("state %q", cp.State)
	}
}

func TestCheckpointStore_SaveIdempotent(t *testing.T) {
	dir := t.TempDir()
	s := &CheckpointStore{Dir: dir, DocType: DocInvoices}
	if err := s.Save("DTE-X", 1); err != nil {
		t.Fatal(err)
	}
	first := s.Load()
	if err := s.Save("DTE-X", 1); err != nil {
		t.Fatal(err)
	}
	second := s.Load()
	if first.Identifier != second.Identifier || first.Page != second.Page {
		t.Fatalf("repeated save changed content: %+v vs %+v", first, second)
	}
}
