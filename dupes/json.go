package dupes

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/go-cmp/cmp"
)

// DuplicatePair is two files with the same control number and identical
// canonical content.
type DuplicatePair struct {
	ControlNumber string `json:"numeroControl"`
	File1         string `json:"archivo1"`
	File2         string `json:"archivo2"`
	Type          string `json:"tipo"`
}

// FieldDiff names one field whose values differ between two files that
// share a control number.
type FieldDiff struct {
	Field  string `json:"campo"`
	Value1 any    `json:"valor_archivo1"`
	Value2 any    `json:"valor_archivo2"`
}

// InconsistentPair is two files sharing a control number whose content
// differs: a data anomaly to triage, never auto-resolved.
type InconsistentPair struct {
	ControlNumber string      `json:"numeroControl"`
	File1         string      `json:"archivo1"`
	File2         string      `json:"archivo2"`
	Type          string      `json:"tipo"`
	Differences   []FieldDiff `json:"diferencias"`
}

const (
	typeFullDuplicate = "duplicado_completo"
	typeInconsistent  = "sin_correlacion"
	maxFieldDiffs     = 10
)

// JSONAnalysis is the result of one pass over a directory's JSON files.
type JSONAnalysis struct {
	Total        int
	Skipped      []string
	Duplicates   []DuplicatePair
	Inconsistent []InconsistentPair

	DuplicateReportPath    string
	InconsistentReportPath string
}

// comparedFields are the named fields reported when same-key files differ.
var comparedFields = [][2]string{
	{"identificacion", "codigoGeneracion"},
	{"identificacion", "fecEmi"},
	{"identificacion", "horEmi"},
	{"resumen", "totalPagar"},
	{"resumen", "montoTotalOperacion"},
	{"emisor", "nombre"},
	{"receptor", "nombre"},
}

// FindDifferences compares the triage fields of two parsed documents plus
// the line-item count, capped at maxFieldDiffs entries.
func FindDifferences(a, b map[string]any) []FieldDiff {
	var diffs []FieldDiff
	for _, fp := range comparedFields {
		section, field := fp[0], fp[1]
		va := nestedValue(a, section, field)
		vb := nestedValue(b, section, field)
		if !valuesEqual(va, vb) {
			diffs = append(diffs, FieldDiff{
				Field:  section + "." + field,
				Value1: va,
				Value2: vb,
			})
		}
	}

	itemsA := lineItemCount(a)
	itemsB := lineItemCount(b)
	if itemsA != itemsB {
		diffs = append(diffs, FieldDiff{
			Field:  "cuerpoDocumento.cantidad",
			Value1: itemsA,
			Value2: itemsB,
		})
	}

	if len(diffs) > maxFieldDiffs {
		diffs = diffs[:maxFieldDiffs]
	}
	return diffs
}

func nestedValue(doc map[string]any, section, field string) any {
	m, ok := doc[section].(map[string]any)
	if !ok {
		return nil
	}
	return m[field]
}

func valuesEqual(a, b any) bool {
	return cmp.Equal(a, b)
}

func lineItemCount(doc map[string]any) int {
	items, _ := doc["cuerpoDocumento"].([]any)
	return len(items)
}

// AnalyzeJSON groups every JSON file in dir by control number and compares
// each group's pairs. Files without a control number are listed as skipped,
// not errors. Two timestamped reports are written into dir when non-empty.
func AnalyzeJSON(dir string, log *slog.Logger) (*JSONAnalysis, error) {
	if log == nil {
		log = slog.Default()
	}
	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}

	res := &JSONAnalysis{}
	byControl := map[string][]string{}
	contents := map[string]map[string]any{}

	for _, path := range matches {
		name := filepath.Base(path)
		if isBookkeepingFile(name) {
			continue
		}
		res.Total++

		raw, err := os.ReadFile(path)
		if err != nil {
			log.Warn("unreadable file", "file", name, "err", err)
			res.Skipped = append(res.Skipped, name)
			continue
		}
		var doc map[string]any
		if err := json.Unmarshal(raw, &doc); err != nil {
			log.Warn("unparsable file", "file", name, "err", err)
			res.Skipped = append(res.Skipped, name)
			continue
		}
		control := ControlNumber(doc)
		if control == "" {
			log.Warn("file without control number", "file", name)
			res.Skipped = append(res.Skipped, name)
			continue
		}
		byControl[control] = append(byControl[control], name)
		contents[name] = doc
	}

	controls := make([]string, 0, len(byControl))
	for c := range byControl {
		controls = append(controls, c)
	}
	sort.Strings(controls)

	for _, control := range controls {
		files := byControl[control]
		if len(files) < 2 {
			continue
		}
		sort.Strings(files)
		for i := 0; i < len(files); i++ {
			for j := i + 1; j < len(files); j++ {
				a, b := files[i], files[j]
				if cmp.Equal(contents[a], contents[b]) {
					if h, err := HashContent(contents[a]); err == nil {
						log.Debug("full duplicate", "control", control, "hash", h)
					}
					res.Duplicates = append(res.Duplicates, DuplicatePair{
						ControlNumber: control,
						File1:         a,
						File2:         b,
						Type:          typeFullDuplicate,
					})
				} else {
					res.Inconsistent = append(res.Inconsistent, InconsistentPair{
						ControlNumber: control,
						File1:         a,
						File2:         b,
						Type:          typeInconsistent,
						Differences:   FindDifferences(contents[a], contents[b]),
					})
				}
			}
		}
	}

	stamp := time.Now().Format("20060102_150405")
	if len(res.Duplicates) > 0 {
		path := filepath.Join(dir, fmt.Sprintf("duplicados_%s.json", stamp))
		err := writeReport(path, map[string]any{
			"fecha_analisis":   time.Now().Format(time.RFC3339),
			"total_duplicados": len(res.Duplicates),
			"duplicados":       res.Duplicates,
		})
		if err != nil {
			return res, err
		}
		res.DuplicateReportPath = path
	}
	if len(res.Inconsistent) > 0 {
		path := filepath.Join(dir, fmt.Sprintf("sin_correlacion_%s.json", stamp))
		err := writeReport(path, map[string]any{
			"fecha_analisis":       time.Now().Format(time.RFC3339),
			"total_sin_correlacion": len(res.Inconsistent),
			"sin_correlacion":      res.Inconsistent,
		})
		if err != nil {
			return res, err
		}
		res.InconsistentReportPath = path
	}
	return res, nil
}

func writeReport(path string, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
