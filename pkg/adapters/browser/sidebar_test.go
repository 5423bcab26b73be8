package browser

import (
	"testing"

	"github.com/chromedp/cdproto/target"
	"github.com/stretchr/testify/assert"
)

func TestInjectScript(t *testing.T) {
	script := InjectScript("http://localhost:8080/sidebar.css", `http://localhost:8080/sidebar?x="y"`)

	assert.Contains(t, script, `css.href = "http://localhost:8080/sidebar.css";`)
	assert.Contains(t, script, `frame.src = "http://localhost:8080/sidebar?x=\"y\"";`)
	assert.Contains(t, script, "window.__cometSidebar = {")
}

func TestToTab(t *testing.T) {
	tab := toTab(&target.Info{TargetID: "T1", Type: "page", Title: "Go", URL: "https://go.dev"})
	assert.Equal(t, "T1", tab.ID)
	assert.Equal(t, "Go", tab.Title)
	assert.Equal(t, "https://go.dev", tab.URL)
}
