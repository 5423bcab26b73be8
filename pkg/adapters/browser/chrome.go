// Package browser drives a running Chrome over the DevTools protocol. It is
// the privileged side of the extension: tabs, windows, screenshots and the
// in-page sidebar.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/DenQuizon/comet-collections-extension/pkg/core/domain"
	"github.com/DenQuizon/comet-collections-extension/pkg/ports"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
)

const thumbnailQuality = 50

var ErrTabGone = errors.New("tab no longer exists")

type tabEntry struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// Chrome implements ports.Browser and ports.SidebarHost.
type Chrome struct {
	ctx      context.Context
	cancel   context.CancelFunc
	ownID    target.ID
	panelURL string
	cssURL   string
	log      *slog.Logger

	mu   sync.Mutex
	tabs map[target.ID]tabEntry
}

// Connect attaches to the browser listening at cdpURL, a ws:// debugger URL
// or an http:// DevTools endpoint. baseURL is where the server serves the
// sidebar panel and stylesheet.
func Connect(ctx context.Context, cdpURL, baseURL string, logger *slog.Logger) (*Chrome, error) {
	if logger == nil {
		logger = slog.Default()
	}

	allocCtx, cancelAlloc := chromedp.NewRemoteAllocator(ctx, cdpURL)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	cancel := func() {
		cancelBrowser()
		cancelAlloc()
	}

	if err := chromedp.Run(browserCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("connect to browser at %s: %w", cdpURL, err)
	}

	base := strings.TrimRight(baseURL, "/")
	c := &Chrome{
		ctx:      browserCtx,
		cancel:   cancel,
		ownID:    chromedp.FromContext(browserCtx).Target.TargetID,
		panelURL: base + "/sidebar",
		cssURL:   base + "/sidebar.css",
		log:      logger,
		tabs:     map[target.ID]tabEntry{},
	}
	logger.Info("connected to browser", "cdp_url", cdpURL)
	return c, nil
}

// Close drops the connection. Cached tab contexts go with it.
func (c *Chrome) Close() {
	c.cancel()
}

// browserExec routes cdproto commands to the browser endpoint instead of a tab.
func (c *Chrome) browserExec(ctx context.Context) context.Context {
	return cdp.WithExecutor(ctx, chromedp.FromContext(c.ctx).Browser)
}

func (c *Chrome) pageTargets() ([]*target.Info, error) {
	infos, err := chromedp.Targets(c.ctx)
	if err != nil {
		return nil, fmt.Errorf("list targets: %w", err)
	}
	pages := make([]*target.Info, 0, len(infos))
	for _, info := range infos {
		if info.Type == "page" && info.TargetID != c.ownID {
			pages = append(pages, info)
		}
	}
	return pages, nil
}

func toTab(info *target.Info) domain.Tab {
	return domain.Tab{ID: string(info.TargetID), Title: info.Title, URL: info.URL}
}

// ActiveTab returns the most recently used page. DevTools lists page targets
// in activation order, so that is the first one.
func (c *Chrome) ActiveTab(ctx context.Context) (*domain.Tab, error) {
	pages, err := c.pageTargets()
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, nil
	}
	tab := toTab(pages[0])
	return &tab, nil
}

func (c *Chrome) Tabs(ctx context.Context) ([]domain.Tab, error) {
	pages, err := c.pageTargets()
	if err != nil {
		return nil, err
	}
	tabs := make([]domain.Tab, 0, len(pages))
	for _, info := range pages {
		tabs = append(tabs, toTab(info))
	}
	return tabs, nil
}

// tabContext returns a chromedp context attached to the tab, reusing it
// across calls. Cancelling such a context would close the tab, so entries
// are only dropped when the tab has disappeared.
func (c *Chrome) tabContext(id string) context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()

	tid := target.ID(id)
	if entry, ok := c.tabs[tid]; ok && entry.ctx.Err() == nil {
		return entry.ctx
	}
	ctx, cancel := chromedp.NewContext(c.ctx, chromedp.WithTargetID(tid))
	c.tabs[tid] = tabEntry{ctx: ctx, cancel: cancel}
	return ctx
}

func (c *Chrome) forgetTab(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tabs, target.ID(id))
}

// runInTab runs actions in the tab, bounded by the caller's context.
func (c *Chrome) runInTab(ctx context.Context, tab domain.Tab, actions ...chromedp.Action) error {
	tabCtx := c.tabContext(tab.ID)

	done := make(chan error, 1)
	go func() { done <- chromedp.Run(tabCtx, actions...) }()

	select {
	case err := <-done:
		if err != nil && tabCtx.Err() != nil {
			c.forgetTab(tab.ID)
			return ErrTabGone
		}
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Chrome) CaptureVisibleTab(ctx context.Context) ([]byte, error) {
	tab, err := c.ActiveTab(ctx)
	if err != nil {
		return nil, err
	}
	if tab == nil {
		return nil, errors.New("no active tab to capture")
	}

	var img []byte
	err = c.runInTab(ctx, *tab, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		img, err = page.CaptureScreenshot().
			WithFormat(page.CaptureScreenshotFormatJpeg).
			WithQuality(thumbnailQuality).
			Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("capture screenshot: %w", err)
	}
	return img, nil
}

// CreateTab opens spec.URL. Tabs for an incognito window are created in that
// window's browser context. Target.createTarget cannot address a window, so
// any other tab lands in whichever window has focus; a window just opened
// with Focused set is that window.
func (c *Chrome) CreateTab(ctx context.Context, spec ports.TabSpec) error {
	if _, err := tabTarget(spec).Do(c.browserExec(ctx)); err != nil {
		return fmt.Errorf("create tab %s: %w", spec.URL, err)
	}
	return nil
}

func tabTarget(spec ports.TabSpec) *target.CreateTargetParams {
	params := target.CreateTarget(spec.URL).WithBackground(!spec.Active)
	if spec.Window != nil && spec.Window.BrowserContextID != "" {
		params = params.WithBrowserContextID(cdp.BrowserContextID(spec.Window.BrowserContextID))
	}
	return params
}

func (c *Chrome) CreateWindow(ctx context.Context, spec ports.WindowSpec) (*domain.WindowRef, error) {
	exec := c.browserExec(ctx)
	ref := &domain.WindowRef{Incognito: spec.Incognito}

	params := target.CreateTarget(spec.URL).
		WithNewWindow(true).
		WithBackground(!spec.Focused)
	if spec.Incognito {
		id, err := target.CreateBrowserContext().Do(exec)
		if err != nil {
			return nil, fmt.Errorf("create incognito context: %w", err)
		}
		params = params.WithBrowserContextID(id)
		ref.BrowserContextID = string(id)
	}

	id, err := params.Do(exec)
	if err != nil {
		return nil, fmt.Errorf("create window: %w", err)
	}
	ref.ID = string(id)
	c.log.Debug("window created", "target", id, "incognito", spec.Incognito)
	return ref, nil
}

var (
	_ ports.Browser     = (*Chrome)(nil)
	_ ports.SidebarHost = (*Chrome)(nil)
)
