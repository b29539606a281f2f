package harvest

import (
	"context"
	"errors"
)

// DownloadKind selects one of the two per-document download affordances.
type DownloadKind string

const (
	DownloadPDF  DownloadKind = "pdf"
	DownloadJSON DownloadKind = "json"
)

var (
	// ErrNoSecondaryWindow means the print window did not appear within the
	// surface's bounded wait.
	ErrNoSecondaryWindow = errors.New("secondary window did not open")
	// ErrPrintAffordanceMissing means no print button could be located with
	// any known strategy. For the detail flow this may indicate a voided
	// document rather than a transient failure.
	ErrPrintAffordanceMissing = errors.New("print affordance not found")
	// ErrRowGone means the row index is no longer present in the table.
	ErrRowGone = errors.New("row no longer available")
)

// Surface is the UI automation surface the ingestion protocol drives.
// Implementations own every browser-specific concern: element lookup,
// clicking, keyboard search, window handles and the download directory.
// Every method performs its own bounded wait and returns an error on
// timeout; none of them hang.
type Surface interface {
	// RowCount reports the number of rows currently displayed.
	RowCount(ctx context.Context) (int, error)
	// RowCells returns the trimmed cell texts of row index.
	RowCells(ctx context.Context, index int) ([]string, error)
	// LocateRow searches the displayed table for a row whose identifier
	// matches and returns its index, or -1 when absent from this page.
	LocateRow(ctx context.Context, identifier string) (int, error)

	// OpenRowActions opens the row's action menu.
	OpenRowActions(ctx context.Context, index int) error
	// OpenRowDetail opens the detail view from an open action menu.
	OpenRowDetail(ctx context.Context, index int) error
	// TriggerPrintFromDetail clicks the print affordance inside an open
	// detail view. Returns ErrPrintAffordanceMissing when no strategy finds
	// one.
	TriggerPrintFromDetail(ctx context.Context) error
	// TriggerPrintFromActions clicks the print affordance directly in the
	// row's open action menu (expense flow).
	TriggerPrintFromActions(ctx context.Context, index int) error

	// WaitSecondaryWindow waits for the print window to open and moves the
	// command focus to it. Returns ErrNoSecondaryWindow on timeout.
	WaitSecondaryWindow(ctx context.Context) error
	// DownloadURL reports the target URL of a download affordance in the
	// secondary window, used for fallback naming. May return "".
	DownloadURL(ctx context.Context, kind DownloadKind) (string, error)
	// TriggerDownload clicks one download affordance in the secondary
	// window and arranges for the saved file to carry baseName plus the
	// kind's extension.
	TriggerDownload(ctx context.Context, kind DownloadKind, baseName string) error

	// CloseSecondaryWindows closes every non-primary window and returns the
	// command focus to the primary one. Safe to call when none are open.
	CloseSecondaryWindows(ctx context.Context) error
	// DismissDetail closes a still-open detail view on the primary window.
	// Safe to call when none is open.
	DismissDetail(ctx context.Context) error

	// CurrentPage reports the active page number; paged is false when the
	// table has no pager.
	CurrentPage(ctx context.Context) (page int, paged bool, err error)
	// GoToLastPage navigates to the highest-numbered page and returns its
	// number.
	GoToLastPage(ctx context.Context) (int, error)
	// GoToPreviousPage navigates one page back; ok is false when there is
	// no previous page.
	GoToPreviousPage(ctx context.Context) (ok bool, err error)
}
