package harvest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// RowProcessor executes the per-row download sequence with bounded retries:
// open the action menu, reach the print affordance (through the detail view
// or directly, per Flow), switch to the print window, trigger both
// downloads, then close everything. The secondary window and any open
// detail view are cleaned up on every exit path.
type RowProcessor struct {
	Surface Surface
	Flow    Flow
	DocType DocType

	// MaxAttempts defaults to 3. Before the final attempt a pause of
	// FinalAttemptPause (default 1s) is inserted; the target system needs
	// the breathing room.
	MaxAttempts       int
	FinalAttemptPause time.Duration

	// Sleep is swappable in tests. Defaults to time.Sleep.
	Sleep func(time.Duration)

	Log *slog.Logger
}

func (p *RowProcessor) attempts() int {
	if p.MaxAttempts > 0 {
		return p.MaxAttempts
	}
	return 3
}

func (p *RowProcessor) pause() time.Duration {
	if p.FinalAttemptPause > 0 {
		return p.FinalAttemptPause
	}
	return time.Second
}

func (p *RowProcessor) sleep(d time.Duration) {
	if p.Sleep != nil {
		p.Sleep(d)
		return
	}
	time.Sleep(d)
}

func (p *RowProcessor) logger() *slog.Logger {
	if p.Log != nil {
		return p.Log
	}
	return slog.Default()
}

// Process runs the state machine for one row. The row counts as successful
// only when both the PDF and the JSON download were triggered. A detail-flow
// row whose print affordance was never found on any attempt gets a voided
// check before being declared failed: cancelled documents have no print
// affordance at all.
func (p *RowProcessor) Process(ctx context.Context, index int, baseName string) Outcome {
	attempts := p.attempts()
	var lastErr error
	foundPrint := false

	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt == attempts && attempts > 1 {
			p.sleep(p.pause())
		}
		found, err := p.attempt(ctx, index, baseName)
		if found {
			foundPrint = true
		}
		if err == nil {
			return Succeeded()
		}
		lastErr = err
		p.logger().Warn("row attempt failed",
			"row", index, "attempt", attempt, "of", attempts, "err", err)
		if ctx.Err() != nil {
			break
		}
	}

	if p.Flow == FlowDetail && !foundPrint {
		if cells, err := p.Surface.RowCells(ctx, index); err == nil && RowVoided(cells) {
			return Voided()
		}
	}
	return Failed(lastErr.Error())
}

// attempt performs one full pass of the sequence. Cleanup always runs, even
// when the attempt's context is already cancelled.
func (p *RowProcessor) attempt(ctx context.Context, index int, baseName string) (foundPrint bool, err error) {
	cleanupCtx := context.WithoutCancel(ctx)
	defer func() {
		if cerr := p.Surface.CloseSecondaryWindows(cleanupCtx); cerr != nil {
			p.logger().Warn("closing secondary windows", "err", cerr)
		}
		if derr := p.Surface.DismissDetail(cleanupCtx); derr != nil {
			p.logger().Warn("dismissing detail view", "err", derr)
		}
	}()

	if err := p.Surface.OpenRowActions(ctx, index); err != nil {
		return false, fmt.Errorf("open actions: %w", err)
	}

	switch p.Flow {
	case FlowDirect:
		if err := p.Surface.TriggerPrintFromActions(ctx, index); err != nil {
			return !errors.Is(err, ErrPrintAffordanceMissing), fmt.Errorf("print from actions: %w", err)
		}
	default:
		if err := p.Surface.OpenRowDetail(ctx, index); err != nil {
			return false, fmt.Errorf("open detail: %w", err)
		}
		if err := p.Surface.TriggerPrintFromDetail(ctx); err != nil {
			return !errors.Is(err, ErrPrintAffordanceMissing), fmt.Errorf("print from detail: %w", err)
		}
	}

	if err := p.Surface.WaitSecondaryWindow(ctx); err != nil {
		return true, fmt.Errorf("secondary window: %w", err)
	}

	// Rows without an identifier fall back to the id embedded in the
	// download link, then to a positional name.
	if baseName == "" {
		if url, err := p.Surface.DownloadURL(ctx, DownloadPDF); err == nil {
			if id := IDFromDownloadURL(url, DownloadPDF); id != "" {
				baseName = SanitizeFilename(id)
			}
		}
		if baseName == "" {
			baseName = FallbackName(p.DocType, index+1)
		}
	}

	triggered := 0
	for _, kind := range []DownloadKind{DownloadPDF, DownloadJSON} {
		if err := p.Surface.TriggerDownload(ctx, kind, baseName); err != nil {
			p.logger().Warn("download trigger failed", "kind", kind, "err", err)
			continue
		}
		triggered++
	}
	if triggered < 2 {
		return true, fmt.Errorf("only %d of 2 downloads triggered", triggered)
	}
	return true, nil
}
