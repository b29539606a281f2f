package harvest

import (
	"context"
	"fmt"
	"log/slog"
)

// ScanPolicy selects how the table is traversed.
type ScanPolicy int

const (
	// ScanSinglePage walks one unpaginated table from its oldest row
	// (highest index) toward the newest (index 0).
	ScanSinglePage ScanPolicy = iota
	// ScanPaged jumps to the last page first, walks it oldest-to-newest,
	// then moves to the previous page until page one is exhausted.
	ScanPaged
)

// RowVisit is called for each candidate row, oldest first. Page is 0 on
// unpaginated tables. Returning an error aborts the scan.
type RowVisit func(ctx context.Context, page, index int) error

// ScanResult summarizes one traversal.
type ScanResult struct {
	// Resumed is true when the checkpointed identifier was located and the
	// scan started just past it.
	Resumed bool
	// Visited is the number of rows handed to the visit callback.
	Visited int
}

// Scanner walks a document listing and decides where to resume from a
// loaded checkpoint. A checkpoint that cannot be located anywhere downgrades
// to a full-range scan with a warning, never a failed run.
type Scanner struct {
	Surface Surface
	Policy  ScanPolicy
	Log     *slog.Logger
}

func (s *Scanner) logger() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return slog.Default()
}

func (s *Scanner) Run(ctx context.Context, cp *Checkpoint, visit RowVisit) (ScanResult, error) {
	var res ScanResult
	var err error
	switch s.Policy {
	case ScanPaged:
		res, err = s.runPaged(ctx, cp, visit)
	default:
		res, err = s.runSinglePage(ctx, cp, visit)
	}
	if err == nil && cp != nil && !res.Resumed {
		s.logger().Warn("checkpoint identifier not found in visible range, processed everything",
			"identifier", cp.Identifier)
	}
	return res, err
}

func (s *Scanner) runSinglePage(ctx context.Context, cp *Checkpoint, visit RowVisit) (ScanResult, error) {
	var res ScanResult
	count, err := s.Surface.RowCount(ctx)
	if err != nil {
		return res, fmt.Errorf("row count: %w", err)
	}
	start := count - 1
	if cp != nil {
		idx, err := s.Surface.LocateRow(ctx, cp.Identifier)
		if err != nil {
			return res, fmt.Errorf("locate checkpoint row: %w", err)
		}
		if idx >= 0 {
			start = idx - 1
			res.Resumed = true
		}
	}
	for i := start; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := visit(ctx, 0, i); err != nil {
			return res, err
		}
		res.Visited++
	}
	return res, nil
}

func (s *Scanner) runPaged(ctx context.Context, cp *Checkpoint, visit RowVisit) (ScanResult, error) {
	var res ScanResult
	page, err := s.Surface.GoToLastPage(ctx)
	if err != nil {
		return res, fmt.Errorf("go to last page: %w", err)
	}

	for {
		count, err := s.Surface.RowCount(ctx)
		if err != nil {
			return res, fmt.Errorf("row count on page %d: %w", page, err)
		}
		start := count - 1
		if cp != nil && !res.Resumed {
			idx, err := s.Surface.LocateRow(ctx, cp.Identifier)
			if err != nil {
				return res, fmt.Errorf("locate checkpoint row on page %d: %w", page, err)
			}
			if idx >= 0 {
				start = idx - 1
				res.Resumed = true
			}
		}
		for i := start; i >= 0; i-- {
			if err := ctx.Err(); err != nil {
				return res, err
			}
			if err := visit(ctx, page, i); err != nil {
				return res, err
			}
			res.Visited++
		}

		ok, err := s.Surface.GoToPreviousPage(ctx)
		if err != nil {
			return res, fmt.Errorf("previous page from %d: %w", page, err)
		}
		if !ok {
			return res, nil
		}
		// The pager can reshape mid-run; trust the page it reports, not a
		// decremented counter.
		page, _, err = s.Surface.CurrentPage(ctx)
		if err != nil {
			return res, fmt.Errorf("current page: %w", err)
		}
	}
}
