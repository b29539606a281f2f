package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"

	"dte-collector/harvest"
)

var _ harvest.Surface = (*listing)(nil)

// secondaryTab is one print window opened from a row.
type secondaryTab struct {
	id     target.ID
	ctx    context.Context
	cancel context.CancelFunc
}

// listing drives one document table. The command focus starts on the
// primary tab and moves to the newest print window after
// WaitSecondaryWindow; CloseSecondaryWindows moves it back.
type listing struct {
	sess    *Session
	layout  listingLayout
	docType harvest.DocType

	secondary []secondaryTab
	active    *secondaryTab
}

// rowsJS selects the data rows of the listing table, skipping the
// placeholder row DataTables renders for an empty result.
func (l *listing) rowsJS() string {
	return fmt.Sprintf(
		`Array.from(document.querySelectorAll("#%s tbody tr")).filter(r => r.cells && r.cells.length > 0 && !r.querySelector("td.dataTables_empty"))`,
		l.layout.tableID)
}

func (l *listing) eval(ctx context.Context, expr string, out any) error {
	return l.sess.run(ctx, chromedp.Evaluate(expr, out))
}

func (l *listing) RowCount(ctx context.Context) (int, error) {
	var n int
	if err := l.eval(ctx, fmt.Sprintf(`(%s).length`, l.rowsJS()), &n); err != nil {
		return 0, fmt.Errorf("browser: count rows: %w", err)
	}
	return n, nil
}

func (l *listing) RowCells(ctx context.Context, index int) ([]string, error) {
	var cells []string
	expr := fmt.Sprintf(`(() => {
		const rows = %s;
		if (%d < 0 || %d >= rows.length) return null;
		return Array.from(rows[%d].cells).map(c => c.innerText.trim());
	})()`, l.rowsJS(), index, index, index)
	if err := l.eval(ctx, expr, &cells); err != nil {
		return nil, fmt.Errorf("browser: read row %d: %w", index, err)
	}
	if cells == nil {
		return nil, harvest.ErrRowGone
	}
	return cells, nil
}

func (l *listing) LocateRow(ctx context.Context, identifier string) (int, error) {
	var index int
	expr := fmt.Sprintf(`(() => {
		const rows = %s;
		const needle = %q;
		for (let i = 0; i < rows.length; i++) {
			for (const c of rows[i].cells) {
				if (c.innerText.includes(needle)) return i;
			}
		}
		return -1;
	})()`, l.rowsJS(), identifier)
	if err := l.eval(ctx, expr, &index); err != nil {
		return -1, fmt.Errorf("browser: locate row: %w", err)
	}
	return index, nil
}

// clickInRow runs a click against a selector scoped to row index and
// reports whether a matching element was found.
func (l *listing) clickInRow(ctx context.Context, index int, selector string) (bool, error) {
	var clicked bool
	expr := fmt.Sprintf(`(() => {
		const rows = %s;
		if (%d >= rows.length) return false;
		const el = rows[%d].querySelector(%q);
		if (!el) return false;
		el.scrollIntoView({block: "center"});
		el.click();
		return true;
	})()`, l.rowsJS(), index, index, selector)
	if err := l.eval(ctx, expr, &clicked); err != nil {
		return false, err
	}
	return clicked, nil
}

// clickInRowByText is clickInRow for anchors matched on their visible text.
func (l *listing) clickInRowByText(ctx context.Context, index int, selector, text string) (bool, error) {
	var clicked bool
	expr := fmt.Sprintf(`(() => {
		const rows = %s;
		if (%d >= rows.length) return false;
		const el = Array.from(rows[%d].querySelectorAll(%q)).find(a => a.innerText.includes(%q));
		if (!el) return false;
		el.scrollIntoView({block: "center"});
		el.click();
		return true;
	})()`, l.rowsJS(), index, index, selector, text)
	if err := l.eval(ctx, expr, &clicked); err != nil {
		return false, err
	}
	return clicked, nil
}

func (l *listing) OpenRowActions(ctx context.Context, index int) error {
	ok, err := l.clickInRow(ctx, index, `.btn-actions`)
	if err != nil {
		return fmt.Errorf("browser: open actions for row %d: %w", index, err)
	}
	if !ok {
		return harvest.ErrRowGone
	}
	// Let the dropdown render before the next lookup.
	return l.sess.run(ctx, chromedp.Sleep(500*time.Millisecond))
}

func (l *listing) OpenRowDetail(ctx context.Context, index int) error {
	err := harvest.TryStrategies(ctx, l.sess.log, "open detail", []harvest.Strategy{
		{Name: "modal link with label", Try: func(ctx context.Context) error {
			ok, err := l.clickInRowByText(ctx, index, `a.btn-modal`, "Ver")
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no labelled modal link in row %d", index)
			}
			return nil
		}},
		{Name: "any modal link", Try: func(ctx context.Context) error {
			ok, err := l.clickInRow(ctx, index, `a.btn-modal`)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no modal link in row %d", index)
			}
			return nil
		}},
	})
	if err != nil {
		return err
	}
	// Modal fade-in.
	return l.sess.run(ctx, chromedp.Sleep(time.Second))
}

func (l *listing) TriggerPrintFromDetail(ctx context.Context) error {
	var clicked bool
	expr := `(() => {
		const modal = document.querySelector(".modal.show, .modal.in, .modal[style*='display: block']") || document;
		const el = modal.querySelector("a.print-invoice") ||
			Array.from(modal.querySelectorAll("a[onclick]")).find(a => a.getAttribute("onclick").includes("openDteUrl"));
		if (!el) return false;
		el.click();
		return true;
	})()`
	if err := l.eval(ctx, expr, &clicked); err != nil {
		return fmt.Errorf("browser: print from detail: %w", err)
	}
	if !clicked {
		return harvest.ErrPrintAffordanceMissing
	}
	return nil
}

func (l *listing) TriggerPrintFromActions(ctx context.Context, index int) error {
	var clicked bool
	expr := fmt.Sprintf(`(() => {
		const rows = %s;
		if (%d >= rows.length) return false;
		const row = rows[%d];
		const el = row.querySelector("a.print-invoice") ||
			Array.from(row.querySelectorAll("a[onclick]")).find(a => a.getAttribute("onclick").includes("openDteUrl"));
		if (!el) return false;
		el.click();
		return true;
	})()`, l.rowsJS(), index, index)
	if err := l.eval(ctx, expr, &clicked); err != nil {
		return fmt.Errorf("browser: print from actions: %w", err)
	}
	if !clicked {
		return harvest.ErrPrintAffordanceMissing
	}
	return nil
}

func (l *listing) mainTargetID() target.ID {
	if c := chromedp.FromContext(l.sess.tab); c != nil && c.Target != nil {
		return c.Target.TargetID
	}
	return ""
}

func (l *listing) tracked(id target.ID) bool {
	for _, t := range l.secondary {
		if t.id == id {
			return true
		}
	}
	return false
}

func (l *listing) WaitSecondaryWindow(ctx context.Context) error {
	mainID := l.mainTargetID()
	deadline := time.Now().Add(l.sess.cfg.timeout())
	for {
		infos, err := chromedp.Targets(l.sess.tab)
		if err != nil {
			return fmt.Errorf("browser: list windows: %w", err)
		}
		for _, info := range infos {
			if info.Type != "page" || info.TargetID == mainID || l.tracked(info.TargetID) {
				continue
			}
			tabCtx, cancel := chromedp.NewContext(l.sess.tab, chromedp.WithTargetID(info.TargetID))
			tab := secondaryTab{id: info.TargetID, ctx: tabCtx, cancel: cancel}
			l.secondary = append(l.secondary, tab)
			l.active = &l.secondary[len(l.secondary)-1]
			// Give the print page time to render its download bar.
			_ = chromedp.Run(tabCtx, runWithDeadline(ctx, chromedp.Sleep(time.Second)))
			return nil
		}
		if time.Now().After(deadline) {
			return harvest.ErrNoSecondaryWindow
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(300 * time.Millisecond):
		}
	}
}

// downloadLinkJS locates the download anchor for kind inside the print
// window and returns its href, or "".
func downloadLinkJS(kind harvest.DownloadKind) string {
	return fmt.Sprintf(`(() => {
		const el = Array.from(document.querySelectorAll("a.btn-download-action"))
			.find(a => (a.getAttribute("href") || "").includes("/%s/"));
		return el ? el.href : "";
	})()`, kind)
}

func (l *listing) DownloadURL(ctx context.Context, kind harvest.DownloadKind) (string, error) {
	if l.active == nil {
		return "", harvest.ErrNoSecondaryWindow
	}
	var href string
	err := chromedp.Run(l.active.ctx, runWithDeadline(ctx, chromedp.Evaluate(downloadLinkJS(kind), &href)))
	if err != nil {
		return "", fmt.Errorf("browser: %s download link: %w", kind, err)
	}
	return href, nil
}

func (l *listing) TriggerDownload(ctx context.Context, kind harvest.DownloadKind, baseName string) error {
	if l.active == nil {
		return harvest.ErrNoSecondaryWindow
	}
	before, err := snapshotDir(l.sess.cfg.DownloadDir)
	if err != nil {
		return fmt.Errorf("browser: snapshot download dir: %w", err)
	}

	var clicked bool
	expr := strings.Replace(downloadLinkJS(kind), "return el ? el.href : \"\";",
		"if (!el) return false; el.click(); return true;", 1)
	err = chromedp.Run(l.active.ctx, runWithDeadline(ctx, chromedp.Evaluate(expr, &clicked)))
	if err != nil {
		return fmt.Errorf("browser: click %s download: %w", kind, err)
	}
	if !clicked {
		return fmt.Errorf("browser: no %s download link in print window", kind)
	}

	finalName := ""
	if baseName != "" {
		finalName = baseName + "." + string(kind)
	}
	waitCtx, cancel := context.WithTimeout(ctx, l.sess.cfg.timeout())
	defer cancel()
	saved, err := waitForDownload(waitCtx, l.sess.cfg.DownloadDir, before, finalName)
	if err != nil {
		return fmt.Errorf("browser: %s download did not complete: %w", kind, err)
	}
	l.sess.log.Debug("download saved", "kind", kind, "file", saved)
	return nil
}

func (l *listing) CloseSecondaryWindows(ctx context.Context) error {
	for _, tab := range l.secondary {
		_ = chromedp.Run(tab.ctx, runWithDeadline(ctx, page.Close()))
		tab.cancel()
	}
	l.secondary = nil
	l.active = nil
	return nil
}

func (l *listing) DismissDetail(ctx context.Context) error {
	var clicked bool
	expr := `(() => {
		const el = document.querySelector("button.close.no-print[data-dismiss='modal']") ||
			document.querySelector(".modal.show button.close, .modal.in button.close");
		if (!el) return false;
		el.click();
		return true;
	})()`
	if err := l.eval(ctx, expr, &clicked); err != nil {
		return fmt.Errorf("browser: dismiss detail: %w", err)
	}
	if clicked {
		// Modal fade-out.
		return l.sess.run(ctx, chromedp.Sleep(500*time.Millisecond))
	}
	return nil
}

func (l *listing) CurrentPage(ctx context.Context) (int, bool, error) {
	var state struct {
		Paged bool `json:"paged"`
		Page  int  `json:"page"`
	}
	expr := fmt.Sprintf(`(() => {
		const p = document.querySelector("#%s_paginate");
		if (!p) return {paged: false, page: 0};
		const nums = Array.from(p.querySelectorAll("li.paginate_button"))
			.filter(li => !li.classList.contains("previous") && !li.classList.contains("next"));
		if (nums.length < 2) return {paged: false, page: 0};
		const act = p.querySelector("li.paginate_button.active a");
		const page = act ? parseInt(act.innerText.trim(), 10) || 0 : 0;
		return {paged: true, page: page};
	})()`, l.layout.tableID)
	if err := l.eval(ctx, expr, &state); err != nil {
		return 0, false, fmt.Errorf("browser: read pager: %w", err)
	}
	return state.Page, state.Paged, nil
}

func (l *listing) GoToLastPage(ctx context.Context) (int, error) {
	var clicked bool
	expr := fmt.Sprintf(`(() => {
		const p = document.querySelector("#%s_paginate");
		if (!p) return false;
		const nums = Array.from(p.querySelectorAll("li.paginate_button"))
			.filter(li => !li.classList.contains("previous") && !li.classList.contains("next") &&
				!li.classList.contains("disabled"))
			.map(li => ({li: li, n: parseInt(li.innerText.trim(), 10)}))
			.filter(x => !isNaN(x.n));
		if (!nums.length) return false;
		nums.sort((a, b) => b.n - a.n);
		nums[0].li.querySelector("a").click();
		return true;
	})()`, l.layout.tableID)
	if err := l.eval(ctx, expr, &clicked); err != nil {
		return 0, fmt.Errorf("browser: go to last page: %w", err)
	}
	if !clicked {
		return 0, fmt.Errorf("browser: pager has no numbered pages")
	}
	if err := l.settle(ctx); err != nil {
		return 0, err
	}
	page, _, err := l.CurrentPage(ctx)
	return page, err
}

func (l *listing) GoToPreviousPage(ctx context.Context) (bool, error) {
	var clicked bool
	expr := fmt.Sprintf(`(() => {
		const prev = document.querySelector("#%s_previous");
		if (!prev || prev.classList.contains("disabled")) return false;
		prev.querySelector("a").click();
		return true;
	})()`, l.layout.tableID)
	if err := l.eval(ctx, expr, &clicked); err != nil {
		return false, fmt.Errorf("browser: go to previous page: %w", err)
	}
	if !clicked {
		return false, nil
	}
	return true, l.settle(ctx)
}

// settle waits for the table to redraw after a pager click.
func (l *listing) settle(ctx context.Context) error {
	return l.sess.run(ctx, chromedp.Sleep(1500*time.Millisecond))
}
