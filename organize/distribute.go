package organize

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Mode selects what Distribute does with each classified file.
type Mode string

const (
	ModeMove   Mode = "mover"
	ModeCopy   Mode = "copiar"
	ModeReport Mode = "reporte"
)

// Stats is the accounting of one distribution pass.
type Stats struct {
	Total           int
	Buckets         map[string]int
	Unclassified    []string
	UnknownPrefixes map[string]int
	Errors          int
	ReportPath      string
}

// Bookkeeping files produced by the collector live next to the documents
// and must never be distributed.
var skipMarkers = []string{
	"ultimo_",
	"01descargados",
	"02ignorados",
	"reporte_",
	"registros_fallidos",
	"duplicados",
	"sin_correlacion",
}

func isBookkeepingFile(name string) bool {
	for _, marker := range skipMarkers {
		if strings.Contains(name, marker) {
			return true
		}
	}
	return false
}

// Distribute classifies every PDF and JSON under srcDir and moves or
// copies it into dstBase/<bucket folder>, per mode. ModeReport touches
// nothing. An unclassifiable file is counted and listed, never fatal.
// A text report is written into srcDir afterwards.
func Distribute(srcDir, dstBase string, mode Mode, log *slog.Logger) (*Stats, error) {
	if log == nil {
		log = slog.Default()
	}
	if _, err := os.Stat(srcDir); err != nil {
		return nil, fmt.Errorf("source dir: %w", err)
	}

	var files []string
	for _, pattern := range []string{"*.pdf", "*.json"} {
		matches, err := filepath.Glob(filepath.Join(srcDir, pattern))
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			if !isBookkeepingFile(filepath.Base(m)) {
				files = append(files, m)
			}
		}
	}
	sort.Strings(files)

	stats := &Stats{
		Total:           len(files),
		Buckets:         map[string]int{},
		UnknownPrefixes: map[string]int{},
	}

	for _, path := range files {
		name := filepath.Base(path)
		bucket, branch := Classify(name)
		if bucket == "" {
			stats.Unclassified = append(stats.Unclassified, name)
			if branch != "" {
				stats.UnknownPrefixes[branch]++
			}
			log.Warn("unclassified file", "file", name, "prefix", branch)
			continue
		}

		dstDir := filepath.Join(dstBase, FolderNames[bucket])
		var err error
		switch mode {
		case ModeMove:
			_, err = MoveFileToDir(path, dstDir)
		case ModeCopy:
			_, err = CopyFileToDir(path, dstDir)
		case ModeReport:
			// accounting only
		}
		if err != nil {
			stats.Errors++
			log.Error("distribution failed", "file", name, "bucket", bucket, "err", err)
			continue
		}
		stats.Buckets[bucket]++
		log.Info("classified", "file", name, "bucket", bucket, "branch", branch, "mode", mode)
	}

	path, err := writeReport(srcDir, mode, stats)
	if err != nil {
		log.Error("writing distribution report", "err", err)
	} else {
		stats.ReportPath = path
	}
	return stats, nil
}

func writeReport(dir string, mode Mode, stats *Stats) (string, error) {
	var b strings.Builder
	rule := strings.Repeat("=", 80)
	line := strings.Repeat("-", 80)

	fmt.Fprintf(&b, "%s\nREPORTE DE DISTRIBUCION DE ARCHIVOS\n%s\n", rule, rule)
	fmt.Fprintf(&b, "Fecha: %s\n", time.Now().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Modo: %s\n", strings.ToUpper(string(mode)))
	fmt.Fprintf(&b, "Carpeta origen: %s\n%s\n\n", dir, line)

	fmt.Fprintf(&b, "ESTADISTICAS:\n%s\n", line)
	fmt.Fprintf(&b, "Total de archivos procesados: %d\n", stats.Total)
	fmt.Fprintf(&b, "  - San Salvador (SS): %d\n", stats.Buckets[BucketSanSalvador])
	fmt.Fprintf(&b, "  - Santa Ana (SA): %d\n", stats.Buckets[BucketSantaAna])
	fmt.Fprintf(&b, "  - San Miguel (SM): %d\n", stats.Buckets[BucketSanMiguel])
	fmt.Fprintf(&b, "  - Notas de credito: %d\n", stats.Buckets[BucketCreditNotes])
	fmt.Fprintf(&b, "  - Sin clasificar: %d\n", len(stats.Unclassified))
	fmt.Fprintf(&b, "  - Errores: %d\n\n", stats.Errors)

	if len(stats.UnknownPrefixes) > 0 {
		fmt.Fprintf(&b, "PREFIJOS NO RECONOCIDOS:\n%s\n", line)
		prefixes := make([]string, 0, len(stats.UnknownPrefixes))
		for p := range stats.UnknownPrefixes {
			prefixes = append(prefixes, p)
		}
		sort.Strings(prefixes)
		for _, p := range prefixes {
			fmt.Fprintf(&b, "  - %s: %d archivo(s)\n", p, stats.UnknownPrefixes[p])
		}
		b.WriteString("\n")
	}

	if len(stats.Unclassified) > 0 {
		fmt.Fprintf(&b, "ARCHIVOS SIN CLASIFICAR:\n%s\n", line)
		for _, name := range stats.Unclassified {
			fmt.Fprintf(&b, "  - %s\n", name)
		}
		b.WriteString("\n")
	}

	path := filepath.Join(dir, fmt.Sprintf("reporte_distribucion_%s.txt", time.Now().Format("20060102_150405")))
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", err
	}
	return path, nil
}
