package dupes

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

// A trailing parenthesized counter marks a browser re-download:
// "factura_123 (1).pdf" is the same document as "factura_123.pdf".
var (
	counterSuffix     = regexp.MustCompile(`\s*\(\d+\)$`)
	counterSuffixName = regexp.MustCompile(`\s*\(\d+\)\.pdf$`)
)

const typePDFDuplicate = "duplicado_pdf"

// PDFDuplicate maps one redundant file to the file kept as canonical.
type PDFDuplicate struct {
	BaseName  string `json:"nombre_base"`
	Original  string `json:"archivo_original"`
	Duplicate string `json:"archivo_duplicado"`
	Type      string `json:"tipo"`
}

// NumberedFile is any file carrying a counter suffix, listed for
// information regardless of duplicate status.
type NumberedFile struct {
	Original string `json:"nombre_original"`
	BaseName string `json:"nombre_base"`
	Type     string `json:"tipo"`
}

// PDFAnalysis is the result of one pass over a directory's PDF files.
type PDFAnalysis struct {
	Dir          string
	Total        int
	UniqueNames  int
	Duplicates   []PDFDuplicate
	Numbered     []NumberedFile
	ReportPath   string
}

// NormalizePDFName strips the extension and any trailing counter suffix.
func NormalizePDFName(name string) string {
	base := strings.TrimSuffix(name, ".pdf")
	return counterSuffix.ReplaceAllString(base, "")
}

// HasCounterSuffix reports whether the filename carries a "(n)" counter.
func HasCounterSuffix(name string) bool {
	return counterSuffixName.MatchString(name)
}

// AnalyzePDF groups dir's PDFs by normalized name and, within each group,
// keeps one canonical file: an unsuffixed one when present (lexicographically
// first among several), otherwise the lexicographically first suffixed one.
// Everything else is a duplicate of the canonical file.
func AnalyzePDF(dir string, log *slog.Logger) (*PDFAnalysis, error) {
	if log == nil {
		log = slog.Default()
	}
	matches, err := filepath.Glob(filepath.Join(dir, "*.pdf"))
	if err != nil {
		return nil, err
	}

	res := &PDFAnalysis{Dir: dir, Total: len(matches)}
	byBase := map[string][]string{}
	for _, path := range matches {
		name := filepath.Base(path)
		base := NormalizePDFName(name)
		byBase[base] = append(byBase[base], name)
	}
	res.UniqueNames = len(byBase)

	bases := make([]string, 0, len(byBase))
	for b := range byBase {
		bases = append(bases, b)
	}
	sort.Strings(bases)

	for _, base := range bases {
		files := byBase[base]

		var plain, numbered []string
		for _, name := range files {
			if HasCounterSuffix(name) {
				numbered = append(numbered, name)
				if len(files) > 1 {
					res.Numbered = append(res.Numbered, NumberedFile{
						Original: name,
						BaseName: base,
						Type:     "archivo_numerado",
					})
				}
			} else {
				plain = append(plain, name)
			}
		}
		if len(files) < 2 {
			continue
		}
		sort.Strings(plain)
		sort.Strings(numbered)

		canonical := ""
		if len(plain) > 0 {
			canonical = plain[0]
		} else {
			canonical = numbered[0]
		}
		log.Info("duplicate group", "base", base, "files", len(files), "canonical", canonical)

		for _, name := range numbered {
			if name != canonical {
				res.Duplicates = append(res.Duplicates, PDFDuplicate{
					BaseName: base, Original: canonical, Duplicate: name, Type: typePDFDuplicate,
				})
			}
		}
		if len(plain) > 1 {
			for _, name := range plain[1:] {
				res.Duplicates = append(res.Duplicates, PDFDuplicate{
					BaseName: base, Original: canonical, Duplicate: name, Type: typePDFDuplicate,
				})
			}
		}
	}

	if len(res.Duplicates) > 0 {
		path := filepath.Join(dir, fmt.Sprintf("duplicados_pdf_%s.json", time.Now().Format("20060102_150405")))
		err := writeReport(path, map[string]any{
			"fecha_analisis":             time.Now().Format(time.RFC3339),
			"carpeta_analizada":          dir,
			"total_duplicados":           len(res.Duplicates),
			"total_archivos_con_numero":  len(res.Numbered),
			"duplicados":                 res.Duplicates,
			"archivos_con_numero":        res.Numbered,
		})
		if err != nil {
			return res, err
		}
		res.ReportPath = path
	}
	return res, nil
}
