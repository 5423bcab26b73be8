package browser

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/DenQuizon/comet-collections-extension/pkg/core/domain"
	"github.com/chromedp/chromedp"
)

const (
	pingScript   = `typeof window.__cometSidebar === "object"`
	toggleScript = `window.__cometSidebar.toggle()`
)

// injectScript mounts the panel iframe and its stylesheet and registers the
// toggle hook. Running it twice is harmless.
const injectScript = `(() => {
  if (window.__cometSidebar) return true;
  const css = document.createElement("link");
  css.rel = "stylesheet";
  css.href = %s;
  document.head.appendChild(css);
  const frame = document.createElement("iframe");
  frame.id = "comet-sidebar-frame";
  frame.src = %s;
  frame.style.display = "none";
  document.documentElement.appendChild(frame);
  window.__cometSidebar = {
    toggle() {
      frame.style.display = frame.style.display === "none" ? "block" : "none";
      return frame.style.display === "block";
    },
  };
  return true;
})()`

// InjectScript renders the injection script for the given asset URLs.
func InjectScript(cssURL, panelURL string) string {
	quote := func(s string) string {
		b, _ := json.Marshal(s)
		return string(b)
	}
	return fmt.Sprintf(injectScript, quote(cssURL), quote(panelURL))
}

// Ping reports whether the panel is already present in the tab.
func (c *Chrome) Ping(ctx context.Context, tab domain.Tab) bool {
	var present bool
	if err := c.runInTab(ctx, tab, chromedp.Evaluate(pingScript, &present)); err != nil {
		c.log.Debug("sidebar ping failed", "url", tab.URL, "err", err)
		return false
	}
	return present
}

func (c *Chrome) Toggle(ctx context.Context, tab domain.Tab) error {
	var visible bool
	if err := c.runInTab(ctx, tab, chromedp.Evaluate(toggleScript, &visible)); err != nil {
		return fmt.Errorf("toggle sidebar: %w", err)
	}
	c.log.Debug("sidebar toggled", "url", tab.URL, "visible", visible)
	return nil
}

func (c *Chrome) Inject(ctx context.Context, tab domain.Tab) error {
	var ok bool
	script := InjectScript(c.cssURL, c.panelURL)
	if err := c.runInTab(ctx, tab, chromedp.Evaluate(script, &ok)); err != nil {
		return fmt.Errorf("inject sidebar: %w", err)
	}
	return nil
}
