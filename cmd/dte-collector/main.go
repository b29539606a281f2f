// dte-collector downloads electronic tax documents from the ERP portal,
// files them per branch office and keeps the download folders free of
// duplicates.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	flagConfig string
	flagDebug  bool

	logger *slog.Logger
)

func main() {
	root := &cobra.Command{
		Use:          "dte-collector",
		Short:        "Descarga y organiza documentos tributarios electronicos",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if flagDebug {
				level = slog.LevelDebug
			}
			logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
			slog.SetDefault(logger)
		},
	}
	root.PersistentFlags().StringVarP(&flagConfig, "config", "c", "config.yaml", "ruta del archivo de configuracion")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "registro detallado")

	root.AddCommand(
		newCollectCmd(),
		newCorrectCmd(),
		newOrganizeCmd(),
		newDupesCmd(),
		newRenameCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
