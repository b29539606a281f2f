package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"dte-collector/browser"
	"dte-collector/harvest"
)

func loadConfig() (*harvest.FileConfig, error) {
	cfg, err := harvest.LoadConfig(flagConfig)
	if err != nil {
		return nil, err
	}
	if cfg.Debug && !flagDebug {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
		slog.SetDefault(logger)
	}
	return cfg, nil
}

func newCollectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Descarga documentos desde el portal",
	}
	for _, dt := range []harvest.DocType{harvest.DocInvoices, harvest.DocExpenses, harvest.DocRemissions} {
		docType := dt
		cmd.AddCommand(&cobra.Command{
			Use:   string(docType),
			Short: fmt.Sprintf("Descarga %s pendientes", docType),
			RunE: func(cmd *cobra.Command, args []string) error {
				return collectTypes(docType)
			},
		})
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "all",
		Short: "Descarga los tres tipos de documento en secuencia",
		RunE: func(cmd *cobra.Command, args []string) error {
			return collectTypes(harvest.DocInvoices, harvest.DocExpenses, harvest.DocRemissions)
		},
	})
	return cmd
}

// collectTypes runs one browser session over the given document types in
// order. An interrupt lets the current run flush its reports before exit.
func collectTypes(docTypes ...harvest.DocType) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var ledger *harvest.Ledger
	if cfg.LedgerDB != "" {
		db, err := harvest.OpenLedger(cfg.LedgerDB)
		if err != nil {
			return fmt.Errorf("abriendo historial: %w", err)
		}
		ledger = harvest.NewLedger(db)
	}

	var errs []error
	var results []jobResult
	for _, docType := range docTypes {
		if ctx.Err() != nil {
			break
		}
		start := time.Now()
		rc, err := collectOne(ctx, cfg, ledger, docType)
		results = append(results, jobResult{
			docType:  docType,
			duration: time.Since(start),
			rc:       rc,
			err:      err,
		})
		if err != nil {
			logger.Error("run failed", "type", docType, "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", docType, err))
		}
	}
	if len(docTypes) > 1 {
		fmt.Print(finalSummary(results))
	}
	return errors.Join(errs...)
}

// jobResult is one sequenced job's outcome, kept for the final summary.
type jobResult struct {
	docType  harvest.DocType
	duration time.Duration
	rc       *harvest.RunContext
	err      error
}

func finalSummary(results []jobResult) string {
	var b strings.Builder
	b.WriteString("\n=== RESUMEN FINAL ===\n")
	var newFiles, failed int
	for _, r := range results {
		status := "OK"
		if r.err != nil {
			status = "ERROR"
		}
		var succ, fall int
		if r.rc != nil {
			succ = r.rc.Succeeded
			fall = len(r.rc.Failures)
		}
		fmt.Fprintf(&b, "%-12s %-6s %8s  nuevos: %-4d fallidos: %d\n",
			r.docType, status, r.duration.Round(time.Second), succ, fall)
		newFiles += succ
		failed += fall
	}
	fmt.Fprintf(&b, "Total nuevos: %d, fallidos: %d\n", newFiles, failed)
	return b.String()
}

// openSession starts a browser routed at downloadDir with the configured
// credentials.
func openSession(ctx context.Context, cfg *harvest.FileConfig, downloadDir string) (*browser.Session, error) {
	headless := true
	if cfg.Session.Headless != nil {
		headless = *cfg.Session.Headless
	}
	return browser.NewSession(ctx, browser.Config{
		BaseURL:     cfg.Session.BaseURL,
		Username:    cfg.Session.Username,
		Password:    cfg.Session.Password,
		Headless:    headless,
		DownloadDir: downloadDir,
		PageSize:    cfg.Session.PageSize,
		DateFilter:  cfg.Session.DateFilter,
		Log:         logger,
	})
}

func collectOne(ctx context.Context, cfg *harvest.FileConfig, ledger *harvest.Ledger, docType harvest.DocType) (*harvest.RunContext, error) {
	job := cfg.Job(docType)
	if err := os.MkdirAll(job.Dir, 0o755); err != nil {
		return nil, err
	}

	sess, err := openSession(ctx, cfg, job.Dir)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	if err := sess.Login(ctx); err != nil {
		return nil, err
	}
	surface, err := sess.OpenListing(ctx, docType)
	if err != nil {
		return nil, err
	}

	run := harvest.NewRun(surface, harvest.RunConfig{
		DocType:           docType,
		Flow:              flowFor(docType),
		Policy:            policyFor(docType),
		Dir:               job.Dir,
		MaxAttempts:       job.MaxAttempts,
		FinalAttemptPause: job.FinalAttemptPause,
		Log:               logger,
	}, ledger)

	rc, err := run.Execute(ctx)
	printRunSummary(docType, rc)
	return rc, err
}

// Expenses print straight from the row menu and page server-side; the
// other two listings open a detail modal and fit on one page.
func flowFor(docType harvest.DocType) harvest.Flow {
	if docType == harvest.DocExpenses {
		return harvest.FlowDirect
	}
	return harvest.FlowDetail
}

func policyFor(docType harvest.DocType) harvest.ScanPolicy {
	if docType == harvest.DocExpenses {
		return harvest.ScanPaged
	}
	return harvest.ScanSinglePage
}

func printRunSummary(docType harvest.DocType, rc *harvest.RunContext) {
	if rc == nil {
		return
	}
	fmt.Printf("\n=== Resumen %s ===\n", docType)
	fmt.Printf("Descargados:      %d\n", rc.Succeeded)
	fmt.Printf("Ya descargados:   %d\n", rc.AlreadyDone)
	fmt.Printf("Fallidos:         %d\n", len(rc.Failures))
	if len(rc.Voided) > 0 {
		fmt.Printf("Anulados:         %d\n", len(rc.Voided))
	}
	if len(rc.Ignored) > 0 {
		fmt.Printf("Ignorados:        %d\n", len(rc.Ignored))
	}
	if rc.Revisited > 0 {
		fmt.Printf("Recuperados:      %d\n", rc.Revisited)
	}
	if rc.FailureReportPath != "" {
		fmt.Printf("Reporte fallidos: %s\n", rc.FailureReportPath)
	}
	if rc.VoidedReportPath != "" {
		fmt.Printf("Reporte anuladas: %s\n", rc.VoidedReportPath)
	}
	if rc.Interrupted {
		fmt.Println("Ejecucion interrumpida; progreso guardado.")
	}
}
