package harvest

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// DownloadedRecord is one entry of the downloaded-documents tracking list
// (01descargados.json). Only the expense run maintains this list; the other
// types rely on the checkpoint alone.
type DownloadedRecord struct {
	DocumentNumber string `json:"numero_documento"`
	Code           string `json:"codigo"`
	DownloadedAt   string `json:"fecha_descarga"`
	Origin         string `json:"origen,omitempty"`
}

// IgnoredRecord is one entry of the skipped-rows tracking list
// (02ignorados.json): an expense left undownloaded because of its payment
// state, revisited on later runs.
type IgnoredRecord struct {
	DocumentNumber string `json:"numero_documento"`
	Code           string `json:"codigo"`
	Page           int    `json:"pagina"`
	Position       int    `json:"posicion"`
	IgnoredAt      string `json:"fecha_ignorado"`
	Reason         string `json:"razon"`
}

const reasonUnpaid = "Estado de pago 'Debido'"

type trackingEnvelope struct {
	UpdatedAt string          `json:"fecha_actualizacion"`
	Total     int             `json:"total_registros"`
	Type      string          `json:"tipo"`
	Records   json.RawMessage `json:"registros"`
}

// Tracking reads and writes the per-directory tracking lists. Read errors
// are logged and yield an empty list; a missing file is not an error.
type Tracking struct {
	Dir string
	Log *slog.Logger
}

func (t *Tracking) logger() *slog.Logger {
	if t.Log != nil {
		return t.Log
	}
	return slog.Default()
}

func (t *Tracking) downloadedPath() string { return filepath.Join(t.Dir, "01descargados.json") }
func (t *Tracking) ignoredPath() string    { return filepath.Join(t.Dir, "02ignorados.json") }

func (t *Tracking) load(path string, into any) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			t.logger().Warn("tracking file unreadable", "path", path, "err", err)
		}
		return
	}
	var env trackingEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.logger().Warn("tracking file unparsable", "path", path, "err", err)
		return
	}
	if len(env.Records) == 0 {
		return
	}
	if err := json.Unmarshal(env.Records, into); err != nil {
		t.logger().Warn("tracking records unparsable", "path", path, "err", err)
	}
}

func (t *Tracking) save(path, kind string, records any, total int) error {
	raw, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("marshal %s records: %w", kind, err)
	}
	env := trackingEnvelope{
		UpdatedAt: time.Now().Format(time.RFC3339),
		Total:     total,
		Type:      kind,
		Records:   raw,
	}
	out, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s envelope: %w", kind, err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func (t *Tracking) LoadDownloaded() []DownloadedRecord {
	var recs []DownloadedRecord
	t.load(t.downloadedPath(), &recs)
	return recs
}

func (t *Tracking) SaveDownloaded(recs []DownloadedRecord) error {
	return t.save(t.downloadedPath(), "descargados", recs, len(recs))
}

func (t *Tracking) LoadIgnored() []IgnoredRecord {
	var recs []IgnoredRecord
	t.load(t.ignoredPath(), &recs)
	return recs
}

func (t *Tracking) SaveIgnored(recs []IgnoredRecord) error {
	return t.save(t.ignoredPath(), "ignorados", recs, len(recs))
}
