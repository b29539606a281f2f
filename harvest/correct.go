package harvest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// CorrectionResult summarizes one pass over a failure report.
type CorrectionResult struct {
	// Pending is how many uncorrected entries the report held.
	Pending     int
	Corrected   int
	StillFailed int
	ReportPath  string
}

// Corrector re-attempts the rows recorded in an earlier failure report.
// Entries that download successfully are marked corrected in the failure
// report itself, so a later pass skips them.
type Corrector struct {
	Surface Surface
	DocType DocType
	// Dir receives the correction report.
	Dir    string
	Proc   *RowProcessor
	Ledger *Ledger
	Log    *slog.Logger
}

// LatestFailureReport returns the most recently modified failure report in
// dir, or "" when there is none.
func LatestFailureReport(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "reporte_fallidos_*.json"))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", nil
	}
	sort.Slice(matches, func(i, j int) bool {
		fi, erri := os.Stat(matches[i])
		fj, errj := os.Stat(matches[j])
		if erri != nil || errj != nil {
			return matches[i] < matches[j]
		}
		return fi.ModTime().Before(fj.ModTime())
	})
	return matches[len(matches)-1], nil
}

// Execute walks every uncorrected entry of the report at reportPath:
// locates the row by its identifier, re-runs the full download sequence,
// and on success flags the entry corrected in the report file. A
// correction report with both lists is written at the end. Entries left
// unvisited by a cancelled context stay pending for the next pass.
func (c *Corrector) Execute(ctx context.Context, reportPath string) (*CorrectionResult, error) {
	log := c.Log
	if log == nil {
		log = slog.Default()
	}
	field := c.DocType.IdentifierField()

	report, err := readFailureReport(reportPath)
	if err != nil {
		return nil, err
	}

	var pending []string
	for _, entry := range report.entries() {
		if corrected, _ := entry["corregido"].(bool); corrected {
			continue
		}
		if id, _ := entry[field].(string); id != "" {
			pending = append(pending, id)
		}
	}
	res := &CorrectionResult{Pending: len(pending)}
	if len(pending) == 0 {
		log.Info("no pending entries in failure report", "report", reportPath)
		return res, nil
	}
	log.Info("correcting failed documents", "report", reportPath, "pending", len(pending))

	var corrected, stillFailed []map[string]any
	for _, id := range pending {
		if ctx.Err() != nil {
			break
		}
		idx, err := c.Surface.LocateRow(ctx, id)
		if err != nil || idx < 0 {
			reason := "no encontrado en la tabla"
			if err != nil {
				reason = err.Error()
			}
			stillFailed = append(stillFailed, map[string]any{
				field:       id,
				"error":     reason,
				"timestamp": time.Now().Format(time.RFC3339),
			})
			continue
		}

		outcome := c.Proc.Process(ctx, idx, SanitizeFilename(id))
		if outcome.Kind != OutcomeSuccess {
			stillFailed = append(stillFailed, map[string]any{
				field:       id,
				"error":     outcome.Reason,
				"timestamp": time.Now().Format(time.RFC3339),
			})
			continue
		}

		if err := markCorrected(reportPath, field, id); err != nil {
			log.Warn("marking entry corrected", "identifier", id, "err", err)
		}
		corrected = append(corrected, map[string]any{
			field:           id,
			"descargado_en": time.Now().Format(time.RFC3339),
		})
		if err := c.Ledger.RecordDownload(nil, DocumentRecord{
			DocType:    string(c.DocType),
			Identifier: id,
			Position:   idx + 1,
		}); err != nil {
			log.Warn("ledger record failed", "identifier", id, "err", err)
		}
		log.Info("document corrected", "identifier", id)
	}

	res.Corrected = len(corrected)
	res.StillFailed = len(stillFailed)

	path := filepath.Join(c.Dir, fmt.Sprintf("reporte_correccion_%s.json", time.Now().Format("20060102_150405")))
	if err := writeJSON(path, map[string]any{
		"fecha_correccion":   time.Now().Format(time.RFC3339),
		"total_corregidos":   len(corrected),
		"total_aun_fallidos": len(stillFailed),
		"corregidos":         emptyNotNull(corrected),
		"aun_fallidos":       emptyNotNull(stillFailed),
	}); err != nil {
		return res, err
	}
	res.ReportPath = path
	return res, nil
}

// failureReport is a decoded reporte_fallidos file. The envelope is kept
// as-is so a rewrite preserves fields this pass does not understand.
type failureReport map[string]any

func (r failureReport) entries() []map[string]any {
	raw, _ := r["registros"].([]any)
	out := make([]map[string]any, 0, len(raw))
	for _, e := range raw {
		if m, ok := e.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func readFailureReport(path string) (failureReport, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var report failureReport
	if err := json.Unmarshal(b, &report); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return report, nil
}

// markCorrected flags the entry for id in the failure report and rewrites
// the file, so an interrupted pass never retries an already-corrected row.
func markCorrected(path, field, id string) error {
	report, err := readFailureReport(path)
	if err != nil {
		return err
	}
	found := false
	for _, entry := range report.entries() {
		if v, _ := entry[field].(string); v == id {
			entry["corregido"] = true
			found = true
		}
	}
	if !found {
		return fmt.Errorf("entry %s not present in %s", id, filepath.Base(path))
	}
	return writeJSON(path, map[string]any(report))
}

func emptyNotNull(recs []map[string]any) []map[string]any {
	if recs == nil {
		return []map[string]any{}
	}
	return recs
}
