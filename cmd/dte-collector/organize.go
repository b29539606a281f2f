package main

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"dte-collector/organize"
)

// confirm asks a yes/no question on stdin; only "s"/"si" proceeds.
func confirm(prompt string) bool {
	fmt.Printf("%s (S/N): ", prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "s" || answer == "si"
}

func newOrganizeCmd() *cobra.Command {
	var mode string
	var yes bool
	cmd := &cobra.Command{
		Use:   "organize <origen> <destino>",
		Short: "Clasifica los documentos por sucursal y los reparte en carpetas",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			srcDir, dstBase := args[0], args[1]
			m := organize.Mode(mode)
			switch m {
			case organize.ModeMove, organize.ModeCopy, organize.ModeReport:
			default:
				return fmt.Errorf("modo desconocido %q (mover, copiar o reporte)", mode)
			}

			if m == organize.ModeMove && !yes {
				if !confirm(fmt.Sprintf("Se moveran los archivos de %s a %s. Continuar?", srcDir, dstBase)) {
					fmt.Println("Operacion cancelada.")
					return nil
				}
			}

			stats, err := organize.Distribute(srcDir, dstBase, m, logger)
			if err != nil {
				return err
			}
			printOrganizeStats(stats)
			return nil
		},
	}
	cmd.Flags().StringVarP(&mode, "mode", "m", string(organize.ModeReport), "mover, copiar o reporte")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "no pedir confirmacion")
	return cmd
}

func printOrganizeStats(stats *organize.Stats) {
	fmt.Printf("\nArchivos procesados: %d\n", stats.Total)
	buckets := make([]string, 0, len(stats.Buckets))
	for b := range stats.Buckets {
		buckets = append(buckets, b)
	}
	sort.Strings(buckets)
	for _, b := range buckets {
		fmt.Printf("  %-20s %d\n", b+":", stats.Buckets[b])
	}
	if len(stats.Unclassified) > 0 {
		fmt.Printf("Sin clasificar: %d\n", len(stats.Unclassified))
	}
	if stats.Errors > 0 {
		fmt.Printf("Errores: %d\n", stats.Errors)
	}
	if stats.ReportPath != "" {
		fmt.Printf("Reporte: %s\n", stats.ReportPath)
	}
}
