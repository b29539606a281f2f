package harvest

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"
)

func newTestRun(t *testing.T, s Surface, docType DocType, flow Flow) (*Run, string) {
	t.Helper()
	dir := t.TempDir()
	r := NewRun(s, RunConfig{
		DocType:           docType,
		Flow:              flow,
		Policy:            ScanSinglePage,
		Dir:               dir,
		MaxAttempts:       3,
		FinalAttemptPause: time.Nanosecond,
		Log:               slog.Default(),
	}, nil)
	r.proc.Sleep = func(time.Duration) {}
	return r, dir
}

func TestRun_ProcessesOldestFirstAndCheckpointsNewest(t *testing.T) {
	f := singlePageSurface(
		&fakeRow{cells: []string{"01/09/2026", "DTE-3"}},
		&fakeRow{cells: []string{"31/08/2026", "DTE-2"}},
		&fakeRow{cells: []string{"30/08/2026", "DTE-1"}},
	)
	r, dir := newTestRun(t, f, DocInvoices, FlowDetail)

	rc, err := r.Execute(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if rc.Succeeded != 3 {
		t.Fatalf("succeeded %d", rc.Succeeded)
	}
	cp := (&CheckpointStore{Dir: dir, DocType: DocInvoices}).Load()
	if cp == nil || cp.Identifier != "DTE-3" {
		t.Fatalf("checkpoint %+v, want newest row", cp)
	}
}

func TestRun_CheckpointSkipsFailedRow(t *testing.T) {
	f := singlePageSurface(
		&fakeRow{cells: []string{"01/09/2026", "DTE-3"}},
		&fakeRow{cells: []string{"31/08/2026", "DTE-2"}, actionsFails: 99},
		&fakeRow{cells: []string{"30/08/2026", "DTE-1"}},
	)
	r, dir := newTestRun(t, f, DocInvoices, FlowDetail)

	rc, err := r.Execute(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if rc.Succeeded != 2 || len(rc.Failures) != 1 {
		t.Fatalf("succeeded %d, failures %d", rc.Succeeded, len(rc.Failures))
	}
	fr := rc.Failures[0]
	if fr.Identifier != "DTE-2" || fr.Position != 2 {
		t.Fatalf("failure record %+v", fr)
	}
	if fr.Date != "31/08/2026" {
		t.Fatalf("failure date %q", fr.Date)
	}
	// The checkpoint reflects the last confirmed success, not the failed
	// row in between.
	cp := (&CheckpointStore{Dir: dir, DocType: DocInvoices}).Load()
	if cp == nil || cp.Identifier != "DTE-3" {
		t.Fatalf("checkpoint %+v", cp)
	}
	if rc.FailureReportPath == "" {
		t.Fatal("expected a failure report on disk")
	}
	matches, _ := filepath.Glob(filepath.Join(dir, "reporte_fallidos_*.json"))
	if len(matches) != 1 {
		t.Fatalf("failure reports on disk: %v", matches)
	}
}

func TestRun_OutcomesAreMutuallyExclusive(t *testing.T) {
	f := singlePageSurface(
		&fakeRow{cells: []string{"DTE-4"}},
		&fakeRow{cells: []string{"DTE-3", "Anulada"}, printMissing: true},
		&fakeRow{cells: []string{"DTE-2"}, windowFails: 99},
		&fakeRow{cells: []string{"DTE-1"}},
	)
	r, _ := newTestRun(t, f, DocInvoices, FlowDetail)

	rc, err := r.Execute(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	total := rc.Succeeded + rc.AlreadyDone + len(rc.Failures) + len(rc.Ignored) + len(rc.Voided)
	if total != 4 {
		t.Fatalf("outcomes %d (s=%d a=%d f=%d i=%d v=%d), want one per row",
			total, rc.Succeeded, rc.AlreadyDone, len(rc.Failures), len(rc.Ignored), len(rc.Voided))
	}
	if rc.Succeeded != 2 || len(rc.Failures) != 1 || len(rc.Voided) != 1 {
		t.Fatalf("unexpected split: %+v", rc)
	}
}

func TestRun_ExpenseUnpaidIsIgnored(t *testing.T) {
	code := "AE6B49E7-62FA-505E-BFF0-2503F4C6E932"
	f := singlePageSurface(
		&fakeRow{cells: []string{"05/08/2026", "Centro", "Prov", "Factura", "F-9", code, "Debido"}},
	)
	r, dir := newTestRun(t, f, DocExpenses, FlowDirect)

	rc, err := r.Execute(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if rc.Succeeded != 0 || len(rc.Ignored) != 1 {
		t.Fatalf("rc %+v", rc)
	}
	ig := rc.Ignored[0]
	if ig.Code != code || ig.DocumentNumber != "F-9" || ig.Reason != reasonUnpaid {
		t.Fatalf("ignored record %+v", ig)
	}
	saved := (&Tracking{Dir: dir}).LoadIgnored()
	if len(saved) != 1 || saved[0].Code != code {
		t.Fatalf("persisted ignored list %+v", saved)
	}
	if len(f.downloads) != 0 {
		t.Fatalf("unpaid row must not download, got %v", f.downloads)
	}
}

func TestRun_ExpenseRevisitDownloadsNowPaid(t *testing.T) {
	code := "AE6B49E7-62FA-505E-BFF0-2503F4C6E932"
	f := singlePageSurface(
		&fakeRow{cells: []string{"05/08/2026", "Centro", "Prov", "Factura", "F-9", code, "Pagado"}},
	)
	r, dir := newTestRun(t, f, DocExpenses, FlowDirect)

	// The row was ignored on a previous run and its code is the
	// checkpoint, so the main pass has nothing new.
	tr := &Tracking{Dir: dir}
	if err := tr.SaveIgnored([]IgnoredRecord{{
		DocumentNumber: "F-9", Code: code, Position: 1,
		IgnoredAt: time.Now().Format(time.RFC3339), Reason: reasonUnpaid,
	}}); err != nil {
		t.Fatal(err)
	}
	if err := (&CheckpointStore{Dir: dir, DocType: DocExpenses}).Save(code, 0); err != nil {
		t.Fatal(err)
	}

	rc, err := r.Execute(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if rc.Revisited != 1 || rc.Succeeded != 1 {
		t.Fatalf("rc %+v", rc)
	}
	if got := tr.LoadIgnored(); len(got) != 0 {
		t.Fatalf("ignored list should be empty, got %+v", got)
	}
	dl := tr.LoadDownloaded()
	if len(dl) != 1 || dl[0].Origin != "verificacion_ignorados" {
		t.Fatalf("downloaded list %+v", dl)
	}
}

func TestRun_AlreadyDownloadedExpenseSkipped(t *testing.T) {
	code := "AE6B49E7-62FA-505E-BFF0-2503F4C6E932"
	f := singlePageSurface(
		&fakeRow{cells: []string{"05/08/2026", "Centro", "Prov", "Factura", "F-9", code, "Pagado"}},
	)
	r, dir := newTestRun(t, f, DocExpenses, FlowDirect)

	tr := &Tracking{Dir: dir}
	if err := tr.SaveDownloaded([]DownloadedRecord{{
		DocumentNumber: "F-9", Code: code, DownloadedAt: time.Now().Format(time.RFC3339),
	}}); err != nil {
		t.Fatal(err)
	}

	rc, err := r.Execute(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if rc.AlreadyDone != 1 || rc.Succeeded != 0 {
		t.Fatalf("rc %+v", rc)
	}
	if len(f.downloads) != 0 {
		t.Fatalf("no downloads expected, got %v", f.downloads)
	}
}

func TestRun_NothingNewMarksChecked(t *testing.T) {
	f := singlePageSurface(
		&fakeRow{cells: []string{"DTE-2"}},
		&fakeRow{cells: []string{"DTE-1"}},
	)
	r, dir := newTestRun(t, f, DocInvoices, FlowDetail)

	store := &CheckpointStore{Dir: dir, DocType: DocInvoices}
	if err := store.Save("DTE-2", 0); err != nil {
		t.Fatal(err)
	}

	rc, err := r.Execute(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if rc.Succeeded != 0 {
		t.Fatalf("rc %+v", rc)
	}
	cp := store.Load()
	if cp == nil || cp.State != stateNothingNew {
		t.Fatalf("checkpoint %+v, want nothing-new state", cp)
	}
	if cp.Identifier != "DTE-2" {
		t.Fatalf("checkpoint identifier %q must survive", cp.Identifier)
	}
}

func TestRun_VoidedRemissionReported(t *testing.T) {
	corr := "D54375A9-1E4A-A65F-BC54-80CA4EE8D85C"
	f := singlePageSurface(
		&fakeRow{cells: []string{corr, "Debido (Anulada)"}},
	)
	r, dir := newTestRun(t, f, DocRemissions, FlowDetail)

	rc, err := r.Execute(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(rc.Voided) != 1 || rc.Voided[0].Identifier != corr {
		t.Fatalf("rc %+v", rc)
	}
	if len(f.downloads) != 0 {
		t.Fatalf("voided row must not download, got %v", f.downloads)
	}
	matches, _ := filepath.Glob(filepath.Join(dir, "reporte_anuladas_*.json"))
	if len(matches) != 1 {
		t.Fatalf("voided reports on disk: %v", matches)
	}
}
