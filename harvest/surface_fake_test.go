package harvest

import (
	"context"
	"fmt"
	"strings"
)

// fakeRow is one table row with scripted failure behavior.
type fakeRow struct {
	cells []string

	printMissing  bool // no print affordance on any attempt
	windowFails   int  // attempts on which the print window never opens
	pdfFails      int  // attempts on which the pdf trigger errors
	jsonFails     int  // attempts on which the json trigger errors
	actionsFails  int  // transient open-actions failures before succeeding
	downloadURLID string
}

type fakePage struct {
	rows []*fakeRow
}

// fakeSurface is an in-memory Surface. Pages are numbered 1..N with the
// newest rows on page 1 at index 0.
type fakeSurface struct {
	pages []*fakePage
	cur   int // 0-based page index
	paged bool

	lastRow     int
	windowOpen  bool
	detailOpen  bool
	actionsOpen bool

	downloads    []string // "<base>.<kind>"
	openActions  int
	windowCloses int
	dismissals   int
}

func newFakeSurface(paged bool, pages ...*fakePage) *fakeSurface {
	return &fakeSurface{pages: pages, paged: paged}
}

func singlePageSurface(rows ...*fakeRow) *fakeSurface {
	return newFakeSurface(false, &fakePage{rows: rows})
}

func (f *fakeSurface) page() *fakePage { return f.pages[f.cur] }

func (f *fakeSurface) RowCount(ctx context.Context) (int, error) {
	return len(f.page().rows), nil
}

func (f *fakeSurface) RowCells(ctx context.Context, index int) ([]string, error) {
	rows := f.page().rows
	if index < 0 || index >= len(rows) {
		return nil, ErrRowGone
	}
	return rows[index].cells, nil
}

func (f *fakeSurface) LocateRow(ctx context.Context, identifier string) (int, error) {
	for i, r := range f.page().rows {
		for _, c := range r.cells {
			if strings.Contains(c, identifier) {
				return i, nil
			}
		}
	}
	return -1, nil
}

func (f *fakeSurface) OpenRowActions(ctx context.Context, index int) error {
	f.openActions++
	rows := f.page().rows
	if index < 0 || index >= len(rows) {
		return ErrRowGone
	}
	f.lastRow = index
	if rows[index].actionsFails > 0 {
		rows[index].actionsFails--
		return fmt.Errorf("actions button not clickable")
	}
	f.actionsOpen = true
	return nil
}

func (f *fakeSurface) OpenRowDetail(ctx context.Context, index int) error {
	if !f.actionsOpen {
		return fmt.Errorf("actions menu not open")
	}
	f.detailOpen = true
	return nil
}

func (f *fakeSurface) TriggerPrintFromDetail(ctx context.Context) error {
	if !f.detailOpen {
		return fmt.Errorf("detail view not open")
	}
	if f.page().rows[f.lastRow].printMissing {
		return ErrPrintAffordanceMissing
	}
	return nil
}

func (f *fakeSurface) TriggerPrintFromActions(ctx context.Context, index int) error {
	if !f.actionsOpen {
		return fmt.Errorf("actions menu not open")
	}
	if f.page().rows[index].printMissing {
		return ErrPrintAffordanceMissing
	}
	return nil
}

func (f *fakeSurface) WaitSecondaryWindow(ctx context.Context) error {
	row := f.page().rows[f.lastRow]
	if row.windowFails > 0 {
		row.windowFails--
		return ErrNoSecondaryWindow
	}
	f.windowOpen = true
	return nil
}

func (f *fakeSurface) DownloadURL(ctx context.Context, kind DownloadKind) (string, error) {
	row := f.page().rows[f.lastRow]
	if row.downloadURLID == "" {
		return "", nil
	}
	return fmt.Sprintf("https://erp.example/%s/%s", kind, row.downloadURLID), nil
}

func (f *fakeSurface) TriggerDownload(ctx context.Context, kind DownloadKind, baseName string) error {
	if !f.windowOpen {
		return fmt.Errorf("no active download window")
	}
	row := f.page().rows[f.lastRow]
	switch kind {
	case DownloadPDF:
		if row.pdfFails > 0 {
			row.pdfFails--
			return fmt.Errorf("pdf link not clickable")
		}
	case DownloadJSON:
		if row.jsonFails > 0 {
			row.jsonFails--
			return fmt.Errorf("json link not clickable")
		}
	}
	f.downloads = append(f.downloads, baseName+"."+string(kind))
	return nil
}

func (f *fakeSurface) CloseSecondaryWindows(ctx context.Context) error {
	f.windowCloses++
	f.windowOpen = false
	return nil
}

func (f *fakeSurface) DismissDetail(ctx context.Context) error {
	f.dismissals++
	f.detailOpen = false
	f.actionsOpen = false
	return nil
}

func (f *fakeSurface) CurrentPage(ctx context.Context) (int, bool, error) {
	if !f.paged {
		return 0, false, nil
	}
	return f.cur + 1, true, nil
}

func (f *fakeSurface) GoToLastPage(ctx context.Context) (int, error) {
	f.cur = len(f.pages) - 1
	return f.cur + 1, nil
}

func (f *fakeSurface) GoToPreviousPage(ctx context.Context) (bool, error) {
	if f.cur == 0 {
		return false, nil
	}
	f.cur--
	return true, nil
}

var _ Surface = (*fakeSurface)(nil)
