// Package organize routes downloaded documents into per-branch folders
// based on the branch prefix embedded in their filenames.
package organize

import "regexp"

// Bucket keys. Every classified file lands in exactly one of these.
const (
	BucketSanSalvador = "SS"
	BucketSantaAna    = "SA"
	BucketSanMiguel   = "SM"
	BucketCreditNotes = "notas_credito"
)

// A DTE filename carries its branch token between the type marker and the
// next separator: DTE-01-M0030001-000000000000029.pdf -> M0030001.
var prefixPattern = regexp.MustCompile(`DTE-\d{2}-([MS][^-]+)-`)

// Credit notes issued by the M001 branch get their own bucket regardless
// of the generic branch routing.
var creditNotePattern = regexp.MustCompile(`DTE-05-M001`)

// branchRules maps 4-character branch prefixes to buckets. The trailing
// digits of the full prefix vary per document and are irrelevant.
var branchRules = map[string]string{
	"M001": BucketSantaAna,
	"S001": BucketSanSalvador,
	"S002": BucketSanMiguel,
	"M002": BucketSanMiguel,
	"M003": BucketSanSalvador,
}

// FolderNames maps bucket keys to destination folder names.
var FolderNames = map[string]string{
	BucketSanSalvador: "SS",
	BucketSantaAna:    "SA",
	BucketSanMiguel:   "SM",
	BucketCreditNotes: "notas_de_credito",
}

// FullPrefix extracts the branch+sequence token from a filename, or ""
// when the name does not follow the DTE pattern.
func FullPrefix(filename string) string {
	m := prefixPattern.FindStringSubmatch(filename)
	if m == nil {
		return ""
	}
	return m[1]
}

// BranchPrefix truncates a full prefix to its 4-character branch part.
func BranchPrefix(fullPrefix string) string {
	if len(fullPrefix) < 4 {
		return ""
	}
	return fullPrefix[:4]
}

// IsCreditNote reports whether the filename matches the credit-note
// override pattern.
func IsCreditNote(filename string) bool {
	return creditNotePattern.MatchString(filename)
}

// Classify resolves a filename to its destination bucket. The credit-note
// check takes priority over the branch lookup. Returns "" for files with
// no extractable prefix or an unknown branch; branch carries whatever
// prefix was extracted, for the unrecognized-prefix accounting.
func Classify(filename string) (bucket, branch string) {
	full := FullPrefix(filename)
	if full == "" {
		return "", ""
	}
	if IsCreditNote(filename) {
		return BucketCreditNotes, BranchPrefix(full)
	}
	branch = BranchPrefix(full)
	if branch == "" {
		return "", full
	}
	return branchRules[branch], branch
}
