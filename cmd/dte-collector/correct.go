package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"dte-collector/harvest"
)

func newCorrectCmd() *cobra.Command {
	var reportPath string
	cmd := &cobra.Command{
		Use:   "correct <facturas|gastos|remisiones>",
		Short: "Reintenta los documentos de un reporte de fallidos",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			docType := harvest.DocType(args[0])
			switch docType {
			case harvest.DocInvoices, harvest.DocExpenses, harvest.DocRemissions:
			default:
				return fmt.Errorf("tipo de documento desconocido %q", args[0])
			}
			return correctFailed(docType, reportPath)
		},
	}
	cmd.Flags().StringVarP(&reportPath, "report", "r", "", "reporte de fallidos a procesar (por defecto el mas reciente)")
	return cmd
}

func correctFailed(docType harvest.DocType, reportPath string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	job := cfg.Job(docType)

	if reportPath == "" {
		reportPath, err = harvest.LatestFailureReport(job.Dir)
		if err != nil {
			return err
		}
		if reportPath == "" {
			fmt.Println("No hay reportes de fallidos que procesar.")
			return nil
		}
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

	sess, err := openSession(ctx, cfg, job.Dir)
	if err != nil {
		return err
	}
	defer sess.Close()

	if err := sess.Login(ctx); err != nil {
		return err
	}
	surface, err := sess.OpenListing(ctx, docType)
	if err != nil {
		return err
	}

	corrector := &harvest.Corrector{
		Surface: surface,
		DocType: docType,
		Dir:     job.Dir,
		Proc: &harvest.RowProcessor{
			Surface:           surface,
			Flow:              flowFor(docType),
			DocType:           docType,
			MaxAttempts:       job.MaxAttempts,
			FinalAttemptPause: job.FinalAttemptPause,
			Log:               logger,
		},
		Ledger: ledger,
		Log:    logger,
	}

	res, err := corrector.Execute(ctx, reportPath)
	if err != nil {
		return err
	}
	fmt.Printf("\n=== Correccion %s ===\n", docType)
	fmt.Printf("Pendientes:    %d\n", res.Pending)
	fmt.Printf("Corregidos:    %d\n", res.Corrected)
	fmt.Printf("Aun fallidos:  %d\n", res.StillFailed)
	if res.ReportPath != "" {
		fmt.Printf("Reporte:       %s\n", res.ReportPath)
	}
	return nil
}
