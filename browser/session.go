// Package browser drives the ERP web UI with chromedp and exposes each
// document listing as a harvest.Surface.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/chromedp"

	"dte-collector/harvest"
)

// Config holds everything a browser session needs.
type Config struct {
	BaseURL     string
	Username    string
	Password    string
	Headless    bool
	DownloadDir string
	// PageSize requested from the listing length control; -1 asks for all
	// rows at once.
	PageSize int
	// DateFilter is the label of the date-range preset to click, e.g.
	// "Hoy" or "Este mes". Empty leaves the default range.
	DateFilter string
	// ActionTimeout bounds every UI wait. Defaults to 20s.
	ActionTimeout time.Duration

	Log *slog.Logger
}

func (c *Config) timeout() time.Duration {
	if c.ActionTimeout > 0 {
		return c.ActionTimeout
	}
	return 20 * time.Second
}

// Session is one logged-in browser with a single primary tab. It is not
// safe for concurrent use; the collector is strictly sequential.
type Session struct {
	cfg Config
	log *slog.Logger

	allocCancel context.CancelFunc
	tabCancel   context.CancelFunc
	tab         context.Context
}

// NewSession starts the browser and routes downloads to cfg.DownloadDir.
func NewSession(parent context.Context, cfg Config) (*Session, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("browser: base URL is required")
	}
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.WindowSize(1600, 1000),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	s := &Session{
		cfg:         cfg,
		log:         log,
		allocCancel: allocCancel,
		tabCancel:   tabCancel,
		tab:         tabCtx,
	}

	err := chromedp.Run(tabCtx,
		browser.SetDownloadBehavior(browser.SetDownloadBehaviorBehaviorAllow).
			WithDownloadPath(cfg.DownloadDir).
			WithEventsEnabled(true),
	)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("browser: start: %w", err)
	}
	return s, nil
}

// Close tears the whole browser down. Safe to call more than once.
func (s *Session) Close() {
	if s.tabCancel != nil {
		s.tabCancel()
		s.tabCancel = nil
	}
	if s.allocCancel != nil {
		s.allocCancel()
		s.allocCancel = nil
	}
}

func (s *Session) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.timeout())
}

// run executes actions on the primary tab under the session's bounded wait.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	bctx, cancel := s.bounded(ctx)
	defer cancel()
	select {
	case <-bctx.Done():
		return bctx.Err()
	default:
	}
	return chromedp.Run(s.tab, runWithDeadline(bctx, actions...))
}

// runWithDeadline applies an outer context's deadline to a chromedp action
// list running on a different (tab) context.
func runWithDeadline(outer context.Context, actions ...chromedp.Action) chromedp.Action {
	return chromedp.ActionFunc(func(tabCtx context.Context) error {
		done := make(chan error, 1)
		go func() {
			done <- chromedp.Run(tabCtx, actions...)
		}()
		select {
		case err := <-done:
			return err
		case <-outer.Done():
			return outer.Err()
		}
	})
}

// Login walks the public landing page through the credential form. A
// failure here is fatal for the whole run.
func (s *Session) Login(ctx context.Context) error {
	s.log.Info("logging in", "url", s.cfg.BaseURL)
	loginURL := strings.TrimRight(s.cfg.BaseURL, "/") + "/login"

	if err := s.run(ctx,
		chromedp.Navigate(s.cfg.BaseURL),
		chromedp.Click(fmt.Sprintf(`a[href=%q]`, loginURL), chromedp.ByQuery),
	); err != nil {
		// Some deployments land straight on the form.
		if err := s.run(ctx, chromedp.Navigate(loginURL)); err != nil {
			return fmt.Errorf("browser: reach login page: %w", err)
		}
	}

	err := s.run(ctx,
		chromedp.WaitVisible(`#username`, chromedp.ByID),
		chromedp.SendKeys(`#username`, s.cfg.Username, chromedp.ByID),
		chromedp.SendKeys(`#password`, s.cfg.Password, chromedp.ByID),
		chromedp.Click(`button[type="submit"]`, chromedp.ByQuery),
		chromedp.WaitNotPresent(`#password`, chromedp.ByID),
	)
	if err != nil {
		return fmt.Errorf("browser: login: %w", err)
	}
	s.log.Info("logged in")
	return nil
}

// listingLayout fixes the per-document-type selectors.
type listingLayout struct {
	path         string
	tableID      string
	dateFilterID string
}

func layoutFor(docType harvest.DocType) listingLayout {
	switch docType {
	case harvest.DocExpenses:
		return listingLayout{path: "/expenses", tableID: "expense_table", dateFilterID: "expense_date_range"}
	case harvest.DocRemissions:
		return listingLayout{path: "/remission-notes", tableID: "remission_notes_table", dateFilterID: "remission_date_filter"}
	default:
		return listingLayout{path: "/sells", tableID: "sell_table", dateFilterID: "sell_date_filter"}
	}
}

// OpenListing navigates to a document listing, applies the date filter and
// page size, and returns it as a Surface. A missing page-size control is
// fatal; the run cannot bound its scan without it.
func (s *Session) OpenListing(ctx context.Context, docType harvest.DocType) (harvest.Surface, error) {
	layout := layoutFor(docType)
	url := strings.TrimRight(s.cfg.BaseURL, "/") + layout.path
	s.log.Info("opening listing", "type", docType, "url", url)

	if err := s.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitVisible("#"+layout.tableID, chromedp.ByID),
	); err != nil {
		return nil, fmt.Errorf("browser: open %s listing: %w", docType, err)
	}

	if s.cfg.DateFilter != "" {
		if err := s.applyDateFilter(ctx, layout); err != nil {
			s.log.Warn("date filter not applied", "err", err)
		}
	}
	if err := s.applyPageSize(ctx, layout); err != nil {
		return nil, fmt.Errorf("browser: page size control: %w", err)
	}

	return &listing{sess: s, layout: layout, docType: docType}, nil
}

func (s *Session) applyDateFilter(ctx context.Context, layout listingLayout) error {
	label := s.cfg.DateFilter
	return harvest.TryStrategies(ctx, s.log, "date filter", []harvest.Strategy{
		{Name: "preset item", Try: func(ctx context.Context) error {
			return s.run(ctx,
				chromedp.Click("#"+layout.dateFilterID, chromedp.ByID),
				chromedp.Click(
					fmt.Sprintf(`//li[contains(text(), %q)] | //a[contains(text(), %q)] | //span[contains(text(), %q)]`, label, label, label),
					chromedp.BySearch),
			)
		}},
	})
}

func (s *Session) applyPageSize(ctx context.Context, layout listingLayout) error {
	sel := fmt.Sprintf(`select[name=%q]`, layout.tableID+"_length")
	value := "-1"
	if s.cfg.PageSize > 0 {
		value = fmt.Sprintf("%d", s.cfg.PageSize)
	}
	var ok bool
	err := s.run(ctx,
		chromedp.WaitVisible(sel, chromedp.ByQuery),
		chromedp.Evaluate(fmt.Sprintf(`(() => {
			const sel = document.querySelector(%q);
			if (!sel) return false;
			const values = Array.from(sel.options).map(o => o.value);
			let v = %q;
			if (!values.includes(v)) {
				const nums = values.filter(x => /^\d+$/.test(x)).map(Number);
				if (values.includes("all")) v = "all";
				else if (nums.length) v = String(Math.max(...nums));
				else return false;
			}
			sel.value = v;
			sel.dispatchEvent(new Event("change", {bubbles: true}));
			return true;
		})()`, sel, value), &ok),
	)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no usable page-size option")
	}
	// DataTables re-renders after a length change.
	return s.run(ctx, chromedp.Sleep(2*time.Second))
}
