package dupes

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// DeleteResult is the accounting of one deletion pass.
type DeleteResult struct {
	Processed int
	Deleted   int
	Missing   int
	Errors    int
}

// deleteEntry accepts both report shapes: JSON duplicates carry
// archivo1/archivo2, PDF duplicates carry archivo_original/archivo_duplicado.
type deleteEntry struct {
	ControlNumber string `json:"numeroControl"`
	File1         string `json:"archivo1"`
	File2         string `json:"archivo2"`
	BaseName      string `json:"nombre_base"`
	Original      string `json:"archivo_original"`
	Duplicate     string `json:"archivo_duplicado"`
	Type          string `json:"tipo"`
}

type duplicatesReport struct {
	AnalyzedDir string        `json:"carpeta_analizada"`
	Duplicates  []deleteEntry `json:"duplicados"`
}

// DeleteFromReport removes every file a duplicates report marks as
// redundant, never the kept file. Missing files are counted, not fatal.
// dir overrides the report's own directory when non-empty. The caller is
// expected to have confirmed the deletion with the user.
func DeleteFromReport(reportPath, dir string, log *slog.Logger) (*DeleteResult, error) {
	if log == nil {
		log = slog.Default()
	}
	raw, err := os.ReadFile(reportPath)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	var report duplicatesReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, fmt.Errorf("parse report: %w", err)
	}
	if len(report.Duplicates) == 0 {
		return nil, fmt.Errorf("%s: no duplicates listed", reportPath)
	}

	if dir == "" {
		dir = report.AnalyzedDir
	}
	if dir == "" {
		return nil, fmt.Errorf("no target directory: pass one or use a report with carpeta_analizada")
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("target dir: %w", err)
	}

	res := &DeleteResult{}
	for _, entry := range report.Duplicates {
		var victim, kept string
		if entry.Type == typePDFDuplicate {
			victim, kept = entry.Duplicate, entry.Original
		} else {
			victim, kept = entry.File1, entry.File2
		}
		if victim == "" {
			log.Warn("report entry without a duplicate file", "entry", entry)
			continue
		}
		res.Processed++

		path := filepath.Join(dir, victim)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			log.Warn("duplicate already gone", "file", victim)
			res.Missing++
			continue
		}
		if err := os.Remove(path); err != nil {
			log.Error("delete failed", "file", victim, "err", err)
			res.Errors++
			continue
		}
		res.Deleted++
		log.Info("deleted duplicate", "file", victim, "kept", kept)
	}
	return res, nil
}
