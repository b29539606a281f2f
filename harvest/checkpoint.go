package harvest

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Checkpoint is the last-successfully-processed marker for one document
// type. Page is 0 for unpaginated listings.
type Checkpoint struct {
	Identifier string
	Page       int
	UpdatedAt  time.Time
	State      string
}

const (
	stateNewDownloads = "Todo actualizado - nuevas descargas"
	stateNothingNew   = "Todo actualizado - nada nuevo"
)

// checkpointFile is the on-disk shape. The identifier key varies per
// document type; legacy files may carry any of the three.
type checkpointFile struct {
	LastRun         string `json:"ultima_ejecucion,omitempty"`
	UpdatedAt       string `json:"fecha_actualizacion"`
	LastDTE         string `json:"ultimo_dte,omitempty"`
	LastCode        string `json:"ultimo_codigo,omitempty"`
	LastCorrelative string `json:"ultimo_correlativo,omitempty"`
	Page            int    `json:"pagina,omitempty"`
	State           string `json:"estado,omitempty"`
}

func (f *checkpointFile) identifier() string {
	for _, v := range []string{f.LastDTE, f.LastCode, f.LastCorrelative} {
		if v != "" {
			return v
		}
	}
	return ""
}

// CheckpointStore reads and writes the checkpoint files of one document
// type's download directory.
type CheckpointStore struct {
	Dir     string
	DocType DocType
	Log     *slog.Logger
}

func (s *CheckpointStore) logger() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return slog.Default()
}

// path is the canonical checkpoint file; Load also accepts legacy
// per-run variants (ultimo_codigo_exitoso_*.json and the like).
func (s *CheckpointStore) path() string {
	return filepath.Join(s.Dir, "ultimo_exitoso.json")
}

// Load returns the most recently modified checkpoint, or nil when none
// exists. An unparsable file is logged and treated as absent.
func (s *CheckpointStore) Load() *Checkpoint {
	candidates, err := filepath.Glob(filepath.Join(s.Dir, "ultimo_*.json"))
	if err != nil || len(candidates) == 0 {
		return nil
	}

	var newest string
	var newestMod time.Time
	for _, p := range candidates {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestMod) {
			newest = p
			newestMod = info.ModTime()
		}
	}
	if newest == "" {
		return nil
	}

	raw, err := os.ReadFile(newest)
	if err != nil {
		s.logger().Warn("checkpoint unreadable", "path", newest, "err", err)
		return nil
	}
	var f checkpointFile
	if err := json.Unmarshal(raw, &f); err != nil {
		s.logger().Warn("checkpoint unparsable", "path", newest, "err", err)
		return nil
	}
	id := f.identifier()
	if id == "" {
		s.logger().Warn("checkpoint carries no identifier", "path", newest)
		return nil
	}

	cp := &Checkpoint{Identifier: id, Page: f.Page, State: f.State}
	if t, err := time.Parse(time.RFC3339, f.UpdatedAt); err == nil {
		cp.UpdatedAt = t
	} else {
		cp.UpdatedAt = newestMod
	}
	return cp
}

// Save overwrites the checkpoint with the given identifier. Must be called
// right after a row's downloads are confirmed, before moving on.
func (s *CheckpointStore) Save(identifier string, page int) error {
	return s.write(identifier, page, stateNewDownloads)
}

// MarkChecked records that a run completed with nothing new, preserving
// the identifier it resumed from.
func (s *CheckpointStore) MarkChecked(identifier string, page int) error {
	return s.write(identifier, page, stateNothingNew)
}

func (s *CheckpointStore) write(identifier string, page int, state string) error {
	now := time.Now()
	f := checkpointFile{
		LastRun:   now.Format("2006-01-02 15:04:05"),
		UpdatedAt: now.Format(time.RFC3339),
		Page:      page,
		State:     state,
	}
	switch s.DocType {
	case DocExpenses:
		f.LastCode = identifier
	case DocRemissions:
		f.LastCorrelative = identifier
	default:
		f.LastDTE = identifier
	}

	raw, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}
	if err := os.WriteFile(s.path(), raw, 0o644); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	return nil
}
