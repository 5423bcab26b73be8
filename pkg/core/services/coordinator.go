package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/DenQuizon/comet-collections-extension/pkg/core/domain"
	"github.com/DenQuizon/comet-collections-extension/pkg/ports"
)

// DefaultInjectDelay gives a freshly injected panel time to initialize
// before the first toggle.
const DefaultInjectDelay = 100 * time.Millisecond

var ErrNoBrowser = errors.New("no browser connected")

// Coordinator performs the privileged browser actions on behalf of the panel.
type Coordinator struct {
	store       ports.DocumentStore
	browser     ports.Browser
	sidebar     ports.SidebarHost
	entitlement *EntitlementService
	log         *slog.Logger

	InjectDelay time.Duration
}

// NewCoordinator wires the coordinator. browser and sidebar may be nil when
// no browser is attached; browser actions then fail with ErrNoBrowser.
func NewCoordinator(store ports.DocumentStore, browser ports.Browser, sidebar ports.SidebarHost, entitlement *EntitlementService, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		store:       store,
		browser:     browser,
		sidebar:     sidebar,
		entitlement: entitlement,
		log:         logger,
		InjectDelay: DefaultInjectDelay,
	}
}

// Install runs on first start and after upgrades: it seeds an empty
// collection list and applies pending migrations.
func (c *Coordinator) Install(ctx context.Context) error {
	ok, err := c.store.Has(ctx, KeyCollections)
	if err != nil {
		return fmt.Errorf("check storage: %w", err)
	}
	if !ok {
		if err := c.store.Set(ctx, KeyCollections, []domain.Collection{}); err != nil {
			return fmt.Errorf("initialize storage: %w", err)
		}
		c.log.Info("storage initialized with empty collections")
	}

	version, err := Migrate(ctx, c.store, Migrations, c.log)
	if err != nil {
		return err
	}
	c.log.Info("collections ready", "schema_version", version)
	return nil
}

// Dispatch handles one request and always produces a reply.
func (c *Coordinator) Dispatch(ctx context.Context, req domain.Request) domain.Response {
	c.log.Debug("message received", "action", req.Action())

	switch r := req.(type) {
	case domain.ToggleSidebar:
		c.ToggleSidebar(ctx)
		return domain.OK(nil)

	case domain.GetCurrentTab:
		if c.browser == nil {
			return domain.Fail(ErrNoBrowser)
		}
		tab, err := c.browser.ActiveTab(ctx)
		if err != nil {
			c.log.Error("getting current tab", "err", err)
			return domain.Fail(err)
		}
		if tab == nil {
			return domain.Fail(ErrNoActiveTab)
		}
		return domain.OK(domain.CurrentTabResult{Tab: tab})

	case domain.GetAllTabs:
		if c.browser == nil {
			return domain.Fail(ErrNoBrowser)
		}
		tabs, err := c.browser.Tabs(ctx)
		if err != nil {
			c.log.Error("listing tabs", "err", err)
			return domain.Fail(err)
		}
		return domain.OK(domain.AllTabsResult{Tabs: tabs})

	case domain.CaptureThumbnail:
		return domain.OK(domain.ThumbnailResult{Thumbnail: c.captureThumbnail(ctx)})

	case domain.OpenTab:
		if c.browser == nil {
			return domain.Fail(ErrNoBrowser)
		}
		if err := c.browser.CreateTab(ctx, ports.TabSpec{URL: r.URL, Active: true}); err != nil {
			c.log.Error("opening tab", "url", r.URL, "err", err)
			return domain.Fail(err)
		}
		return domain.OK(nil)

	case domain.OpenAllPages:
		if err := c.openAll(ctx, r.URLs, r.Mode); err != nil {
			c.log.Error("opening pages", "mode", r.Mode, "err", err)
			return domain.Fail(err)
		}
		return domain.OK(nil)

	case domain.CheckPremiumStatus:
		return domain.OK(domain.PremiumResult{Premium: c.entitlement.Check(ctx)})

	case domain.InitiatePurchase:
		if err := c.entitlement.Purchase(ctx, r.SKU); err != nil {
			c.log.Error("starting purchase", "err", err)
			return domain.Fail(err)
		}
		return domain.OK(nil)
	}

	return domain.Fail(fmt.Errorf("%w: %s", domain.ErrUnknownAction, req.Action()))
}

// ToggleSidebar shows or hides the panel on the active tab, injecting it
// first when the page doesn't have it yet. Every failure is logged only.
func (c *Coordinator) ToggleSidebar(ctx context.Context) {
	if c.browser == nil || c.sidebar == nil {
		c.log.Warn("toggle ignored", "err", ErrNoBrowser)
		return
	}

	tab, err := c.browser.ActiveTab(ctx)
	if err != nil {
		c.log.Error("toggling sidebar", "err", err)
		return
	}
	if tab == nil || domain.IsRestrictedURL(tab.URL) {
		return
	}

	if c.sidebar.Ping(ctx, *tab) {
		if err := c.sidebar.Toggle(ctx, *tab); err != nil {
			c.log.Warn("toggle failed", "url", tab.URL, "err", err)
		}
		return
	}

	if err := c.sidebar.Inject(ctx, *tab); err != nil {
		c.log.Warn("cannot inject sidebar", "url", tab.URL, "err", err)
		return
	}

	timer := time.NewTimer(c.InjectDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		return
	}

	if err := c.sidebar.Toggle(ctx, *tab); err != nil {
		c.log.Warn("failed to toggle after injection", "url", tab.URL, "err", err)
		return
	}
	c.log.Info("sidebar injected and toggled", "url", tab.URL)
}

// captureThumbnail returns a data URL of the visible tab, or nil.
func (c *Coordinator) captureThumbnail(ctx context.Context) *string {
	if c.browser == nil {
		return nil
	}
	tab, err := c.browser.ActiveTab(ctx)
	if err != nil || tab == nil {
		c.log.Warn("thumbnail capture requested, but no active tab found", "err", err)
		return nil
	}
	img, err := c.browser.CaptureVisibleTab(ctx)
	if err != nil {
		c.log.Error("capturing thumbnail", "err", err)
		return nil
	}
	dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(img)
	return &dataURL
}

// openAll opens urls as background tabs of the current window, or in one new
// (optionally incognito) window whose first tab is urls[0]. The window is
// opened focused: outside incognito the browser places tabs 2..n by focus,
// not by the returned WindowRef.
func (c *Coordinator) openAll(ctx context.Context, urls []string, mode domain.OpenMode) error {
	if c.browser == nil {
		return ErrNoBrowser
	}
	if len(urls) == 0 {
		return nil
	}

	switch mode {
	case domain.OpenNewWindow, domain.OpenIncognito:
		win, err := c.browser.CreateWindow(ctx, ports.WindowSpec{
			URL:       urls[0],
			Incognito: mode == domain.OpenIncognito,
			Focused:   true,
		})
		if err != nil {
			return err
		}
		for _, u := range urls[1:] {
			if err := c.browser.CreateTab(ctx, ports.TabSpec{URL: u, Window: win}); err != nil {
				return err
			}
		}
	default:
		for _, u := range urls {
			if err := c.browser.CreateTab(ctx, ports.TabSpec{URL: u}); err != nil {
				return err
			}
		}
	}
	return nil
}

var _ ports.Dispatcher = (*Coordinator)(nil)
