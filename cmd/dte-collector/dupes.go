package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"dte-collector/dupes"
)

func newDupesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dupes",
		Short: "Detecta y elimina documentos duplicados",
	}
	cmd.AddCommand(newDupesJSONCmd(), newDupesPDFCmd(), newDupesDeleteCmd())
	return cmd
}

func newDupesJSONCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "json <carpeta>",
		Short: "Compara documentos JSON con el mismo numero de control",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := dupes.AnalyzeJSON(args[0], logger)
			if err != nil {
				return err
			}
			fmt.Printf("Archivos analizados:   %d\n", res.Total)
			fmt.Printf("Duplicados completos:  %d\n", len(res.Duplicates))
			fmt.Printf("Sin correlacion:       %d\n", len(res.Inconsistent))
			if len(res.Skipped) > 0 {
				fmt.Printf("Omitidos:              %d\n", len(res.Skipped))
			}
			if res.DuplicateReportPath != "" {
				fmt.Printf("Reporte duplicados:    %s\n", res.DuplicateReportPath)
			}
			if res.InconsistentReportPath != "" {
				fmt.Printf("Reporte inconsistencias: %s\n", res.InconsistentReportPath)
			}
			return nil
		},
	}
}

func newDupesPDFCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pdf <carpeta>",
		Short: "Busca archivos PDF con sufijo de copia, p. ej. factura (1).pdf",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := dupes.AnalyzePDF(args[0], logger)
			if err != nil {
				return err
			}
			fmt.Printf("Archivos PDF:        %d\n", res.Total)
			fmt.Printf("Nombres unicos:      %d\n", res.UniqueNames)
			fmt.Printf("Con numero de copia: %d\n", len(res.Numbered))
			fmt.Printf("Duplicados:          %d\n", len(res.Duplicates))
			if res.ReportPath != "" {
				fmt.Printf("Reporte:             %s\n", res.ReportPath)
			}
			return nil
		},
	}
}

func newDupesDeleteCmd() *cobra.Command {
	var dir string
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <reporte.json>",
		Short: "Elimina los duplicados listados en un reporte de analisis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes && !confirm("Se eliminaran los archivos duplicados del reporte. Continuar?") {
				fmt.Println("Operacion cancelada.")
				return nil
			}
			res, err := dupes.DeleteFromReport(args[0], dir, logger)
			if err != nil {
				return err
			}
			fmt.Printf("Procesados: %d\n", res.Processed)
			fmt.Printf("Eliminados: %d\n", res.Deleted)
			if res.Missing > 0 {
				fmt.Printf("No encontrados: %d\n", res.Missing)
			}
			if res.Errors > 0 {
				fmt.Printf("Errores: %d\n", res.Errors)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "carpeta de los archivos (por defecto la del reporte)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "no pedir confirmacion")
	return cmd
}

func newRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <carpeta>",
		Short: "Renombra los JSON segun su numero de control",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := dupes.RenameByControlNumber(args[0], logger)
			if err != nil {
				return err
			}
			fmt.Printf("Archivos:   %d\n", res.Total)
			fmt.Printf("Renombrados: %d\n", res.Renamed)
			fmt.Printf("Omitidos:   %d\n", res.Skipped)
			if res.Errors > 0 {
				fmt.Printf("Errores:    %d\n", res.Errors)
			}
			return nil
		},
	}
}
