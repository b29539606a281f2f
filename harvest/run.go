package harvest

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
)

// RunConfig fixes the per-document-type behavior of an ingestion run.
type RunConfig struct {
	DocType DocType
	Flow    Flow
	Policy  ScanPolicy

	// Dir holds this type's downloads, checkpoint, tracking lists and
	// reports.
	Dir string

	MaxAttempts       int
	FinalAttemptPause time.Duration

	Log *slog.Logger
}

// RunContext accumulates everything one run produced. Lists are flushed to
// disk once at run end, never incrementally.
type RunContext struct {
	Succeeded   int
	AlreadyDone int
	Failures    []FailureRecord
	Voided      []VoidedRecord
	Ignored     []IgnoredRecord
	Downloaded  []DownloadedRecord
	Revisited   int
	Interrupted bool

	FailureReportPath string
	VoidedReportPath  string
}

// Run is one end-to-end ingestion job for a single document type.
type Run struct {
	surface     Surface
	cfg         RunConfig
	checkpoints *CheckpointStore
	tracking    *Tracking
	ledger      *Ledger
	proc        *RowProcessor
	log         *slog.Logger
}

func NewRun(surface Surface, cfg RunConfig, ledger *Ledger) *Run {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	return &Run{
		surface:     surface,
		cfg:         cfg,
		checkpoints: &CheckpointStore{Dir: cfg.Dir, DocType: cfg.DocType, Log: log},
		tracking:    &Tracking{Dir: cfg.Dir, Log: log},
		ledger:      ledger,
		proc: &RowProcessor{
			Surface:           surface,
			Flow:              cfg.Flow,
			DocType:           cfg.DocType,
			MaxAttempts:       cfg.MaxAttempts,
			FinalAttemptPause: cfg.FinalAttemptPause,
			Log:               log,
		},
		log: log,
	}
}

// Execute drives the whole run: resume from the checkpoint, process every
// candidate row, revisit previously ignored expenses, then flush reports
// and tracking lists. Per-row errors never abort the run; only context
// cancellation does, and even then the reports are flushed first.
func (r *Run) Execute(ctx context.Context) (*RunContext, error) {
	rc := &RunContext{}

	runRec, err := r.ledger.BeginRun(r.cfg.DocType)
	if err != nil {
		r.log.Warn("run ledger unavailable", "err", err)
	}

	cp := r.checkpoints.Load()
	if cp != nil {
		r.log.Info("resuming from checkpoint",
			"identifier", cp.Identifier, "page", cp.Page, "updated_at", cp.UpdatedAt)
	}

	downloaded := r.tracking.LoadDownloaded()
	downloadedSet := make(map[string]bool, len(downloaded))
	for _, d := range downloaded {
		downloadedSet[d.Code] = true
	}
	ignoredBefore := r.tracking.LoadIgnored()
	ignoredSet := make(map[string]bool, len(ignoredBefore))
	for _, ig := range ignoredBefore {
		ignoredSet[ig.Code] = true
	}

	scanner := &Scanner{Surface: r.surface, Policy: r.cfg.Policy, Log: r.log}
	scanErr := func() error {
		_, err := scanner.Run(ctx, cp, func(ctx context.Context, page, index int) error {
			r.processRow(ctx, rc, runRec, downloadedSet, ignoredSet, page, index)
			return ctx.Err()
		})
		return err
	}()

	interrupted := scanErr != nil && (errors.Is(scanErr, context.Canceled) || errors.Is(scanErr, context.DeadlineExceeded))
	rc.Interrupted = interrupted

	stillIgnored := ignoredBefore
	if r.cfg.DocType == DocExpenses && scanErr == nil {
		stillIgnored = r.revisitIgnored(ctx, rc, runRec, ignoredBefore)
	}

	r.flush(rc, cp, downloaded, stillIgnored)

	if runRec != nil {
		runRec.Succeeded = rc.Succeeded
		runRec.Failed = len(rc.Failures)
		runRec.Ignored = len(rc.Ignored)
		runRec.Voided = len(rc.Voided)
		runRec.AlreadyDone = rc.AlreadyDone
		runRec.Interrupted = interrupted
		if scanErr != nil {
			runRec.LastError = scanErr.Error()
		}
		if err := r.ledger.FinishRun(runRec); err != nil {
			r.log.Warn("closing run record", "err", err)
		}
	}

	if scanErr != nil && !interrupted {
		return rc, scanErr
	}
	if interrupted {
		r.log.Warn("run interrupted, partial results flushed")
		return rc, scanErr
	}
	return rc, nil
}

func (r *Run) processRow(ctx context.Context, rc *RunContext, runRec *RunRecord, downloadedSet, ignoredSet map[string]bool, page, index int) {
	cells, err := r.surface.RowCells(ctx, index)
	if err != nil {
		rc.Failures = append(rc.Failures, FailureRecord{
			Position:   index + 1,
			Identifier: FallbackName(r.cfg.DocType, index+1),
			Page:       page,
			Reason:     "row cells unreadable: " + err.Error(),
			At:         time.Now(),
		})
		return
	}

	id := ExtractIdentifier(r.cfg.DocType, cells)
	docNumber := ""
	if r.cfg.DocType == DocExpenses {
		docNumber = ExtractDocumentNumber(cells)
	}

	if id != "" {
		if downloadedSet[id] {
			rc.AlreadyDone++
			return
		}
		seen, err := r.ledger.Seen(r.cfg.DocType, id)
		if err != nil {
			r.log.Warn("ledger lookup failed", "identifier", id, "err", err)
		}
		if seen {
			rc.AlreadyDone++
			return
		}
	}

	// Cancelled remissions carry no downloadable artifacts at all.
	if r.cfg.DocType == DocRemissions && RowVoided(cells) {
		rc.Voided = append(rc.Voided, VoidedRecord{
			Position: index + 1, Identifier: r.identOrFallback(id, index), Page: page, At: time.Now(),
		})
		return
	}

	if r.cfg.DocType == DocExpenses {
		if st := ExtractPayStatus(cells); st != StatusPaid {
			if id != "" && ignoredSet[id] {
				// Already on the ignored list from an earlier run.
				return
			}
			rec := IgnoredRecord{
				DocumentNumber: docNumber,
				Code:           r.identOrFallback(id, index),
				Page:           page,
				Position:       index + 1,
				IgnoredAt:      time.Now().Format(time.RFC3339),
				Reason:         reasonUnpaid,
			}
			rc.Ignored = append(rc.Ignored, rec)
			if id != "" {
				ignoredSet[id] = true
			}
			return
		}
	}

	baseName := ""
	if id != "" {
		baseName = SanitizeFilename(id)
	}
	outcome := r.proc.Process(ctx, index, baseName)

	switch outcome.Kind {
	case OutcomeSuccess:
		rc.Succeeded++
		if id != "" {
			if err := r.checkpoints.Save(id, page); err != nil {
				r.log.Warn("checkpoint save failed", "identifier", id, "err", err)
			}
			downloadedSet[id] = true
		}
		if r.cfg.DocType == DocExpenses {
			rc.Downloaded = append(rc.Downloaded, DownloadedRecord{
				DocumentNumber: docNumber,
				Code:           r.identOrFallback(id, index),
				DownloadedAt:   time.Now().Format(time.RFC3339),
			})
		}
		if err := r.ledger.RecordDownload(runRec, DocumentRecord{
			DocType:        string(r.cfg.DocType),
			Identifier:     r.identOrFallback(id, index),
			DocumentNumber: docNumber,
			Page:           page,
			Position:       index + 1,
		}); err != nil {
			r.log.Warn("ledger record failed", "identifier", id, "err", err)
		}
	case OutcomeVoided:
		rc.Voided = append(rc.Voided, VoidedRecord{
			Position: index + 1, Identifier: r.identOrFallback(id, index), Page: page, At: time.Now(),
		})
	default:
		rc.Failures = append(rc.Failures, FailureRecord{
			Position:   index + 1,
			Identifier: r.identOrFallback(id, index),
			Page:       page,
			Reason:     outcome.Reason,
			Date:       extractRowDate(cells),
			At:         time.Now(),
		})
	}
}

// revisitIgnored re-checks every previously ignored expense: rows that have
// since been paid are downloaded and leave the ignored list; the rest stay.
func (r *Run) revisitIgnored(ctx context.Context, rc *RunContext, runRec *RunRecord, ignored []IgnoredRecord) []IgnoredRecord {
	if len(ignored) == 0 {
		return ignored
	}
	r.log.Info("revisiting ignored records", "count", len(ignored))

	var still []IgnoredRecord
	for _, rec := range ignored {
		if ctx.Err() != nil {
			still = append(still, rec)
			continue
		}
		key := rec.Code
		if key == "" {
			key = rec.DocumentNumber
		}
		idx, err := r.surface.LocateRow(ctx, key)
		if err != nil || idx < 0 {
			still = append(still, rec)
			continue
		}
		cells, err := r.surface.RowCells(ctx, idx)
		if err != nil || ExtractPayStatus(cells) != StatusPaid {
			still = append(still, rec)
			continue
		}

		outcome := r.proc.Process(ctx, idx, SanitizeFilename(rec.Code))
		if outcome.Kind != OutcomeSuccess {
			still = append(still, rec)
			continue
		}
		rc.Succeeded++
		rc.Revisited++
		rc.Downloaded = append(rc.Downloaded, DownloadedRecord{
			DocumentNumber: rec.DocumentNumber,
			Code:           rec.Code,
			DownloadedAt:   time.Now().Format(time.RFC3339),
			Origin:         "verificacion_ignorados",
		})
		if err := r.checkpoints.Save(rec.Code, rec.Page); err != nil {
			r.log.Warn("checkpoint save failed", "identifier", rec.Code, "err", err)
		}
		if err := r.ledger.RecordDownload(runRec, DocumentRecord{
			DocType:        string(r.cfg.DocType),
			Identifier:     rec.Code,
			DocumentNumber: rec.DocumentNumber,
			Page:           rec.Page,
			Position:       rec.Position,
		}); err != nil {
			r.log.Warn("ledger record failed", "identifier", rec.Code, "err", err)
		}
	}
	return still
}

// flush writes the end-of-run artifacts: failure and voided reports, the
// tracking lists, and the "nothing new" checkpoint touch.
func (r *Run) flush(rc *RunContext, cp *Checkpoint, downloadedBefore []DownloadedRecord, stillIgnored []IgnoredRecord) {
	if path, err := WriteFailureReport(r.cfg.Dir, r.cfg.DocType, rc.Failures); err != nil {
		r.log.Error("writing failure report", "err", err)
	} else if path != "" {
		rc.FailureReportPath = path
		r.log.Info("failure report written", "path", path, "failures", len(rc.Failures))
	}

	if path, err := WriteVoidedReport(r.cfg.Dir, r.cfg.DocType, rc.Voided); err != nil {
		r.log.Error("writing voided report", "err", err)
	} else if path != "" {
		rc.VoidedReportPath = path
	}

	if r.cfg.DocType == DocExpenses {
		if len(rc.Downloaded) > 0 {
			all := append(append([]DownloadedRecord{}, downloadedBefore...), rc.Downloaded...)
			if err := r.tracking.SaveDownloaded(all); err != nil {
				r.log.Error("writing downloaded list", "err", err)
			}
		}
		all := append(append([]IgnoredRecord{}, stillIgnored...), rc.Ignored...)
		if len(all) > 0 || rc.Revisited > 0 {
			if err := r.tracking.SaveIgnored(all); err != nil {
				r.log.Error("writing ignored list", "err", err)
			}
		}
	}

	if rc.Succeeded == 0 && cp != nil && !rc.Interrupted {
		if err := r.checkpoints.MarkChecked(cp.Identifier, cp.Page); err != nil {
			r.log.Warn("marking checkpoint checked", "err", err)
		}
	}
}

func (r *Run) identOrFallback(id string, index int) string {
	if id != "" {
		return id
	}
	return FallbackName(r.cfg.DocType, index+1)
}

func extractRowDate(cells []string) string {
	for _, c := range cells {
		c = strings.TrimSpace(c)
		if strings.Contains(c, "/") && strings.ContainsAny(c, "0123456789") {
			return c
		}
	}
	return ""
}
