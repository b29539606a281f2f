package harvest

import (
	"errors"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

// RunRecord is one ingestion run, opened at start and closed at the end
// with its tallies.
type RunRecord struct {
	ID          uint      `gorm:"primaryKey"`
	DocType     string    `gorm:"index;size:16"` // facturas, gastos, remisiones
	StartedAt   time.Time `gorm:"index"`
	FinishedAt  *time.Time
	Succeeded   int
	Failed      int
	Ignored     int
	Voided      int
	AlreadyDone int
	Interrupted bool
	LastError   string `gorm:"type:text"`
}

// DocumentRecord is one successfully downloaded document. The identifier is
// unique per document type, so a later run can recognize rows it already
// handled without rescanning the download directory.
type DocumentRecord struct {
	ID             uint   `gorm:"primaryKey"`
	DocType        string `gorm:"uniqueIndex:uniq_type_ident;size:16"`
	Identifier     string `gorm:"uniqueIndex:uniq_type_ident;size:128"`
	DocumentNumber string `gorm:"size:64"`
	Page           int
	Position       int
	RunID          uint      `gorm:"index"`
	DownloadedAt   time.Time `gorm:"index"`
}

// OpenLedger opens (and migrates) the run ledger at path.
func OpenLedger(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&RunRecord{}, &DocumentRecord{}); err != nil {
		return nil, err
	}
	return db, nil
}

// Ledger records run and document history. A nil *Ledger is valid and does
// nothing, so the ingestion run works without a database.
type Ledger struct {
	db *gorm.DB
}

func NewLedger(db *gorm.DB) *Ledger { return &Ledger{db: db} }

func (l *Ledger) BeginRun(docType DocType) (*RunRecord, error) {
	if l == nil || l.db == nil {
		return nil, nil
	}
	rec := &RunRecord{DocType: string(docType), StartedAt: time.Now()}
	if err := l.db.Create(rec).Error; err != nil {
		return nil, err
	}
	return rec, nil
}

func (l *Ledger) FinishRun(rec *RunRecord) error {
	if l == nil || l.db == nil || rec == nil {
		return nil
	}
	now := time.Now()
	rec.FinishedAt = &now
	return l.db.Save(rec).Error
}

// Seen reports whether the identifier was already downloaded in any run.
func (l *Ledger) Seen(docType DocType, identifier string) (bool, error) {
	if l == nil || l.db == nil || identifier == "" {
		return false, nil
	}
	var rec DocumentRecord
	err := l.db.Where("doc_type = ? AND identifier = ?", string(docType), identifier).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// RecordDownload stores a successful download. Replaying an identifier is
// harmless: the existing record is kept.
func (l *Ledger) RecordDownload(run *RunRecord, doc DocumentRecord) error {
	if l == nil || l.db == nil {
		return nil
	}
	if run != nil {
		doc.RunID = run.ID
	}
	if doc.DownloadedAt.IsZero() {
		doc.DownloadedAt = time.Now()
	}
	err := l.db.Create(&doc).Error
	if err != nil && (errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err)) {
		return nil
	}
	return err
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint") || strings.Contains(msg, "constraint failed")
}
