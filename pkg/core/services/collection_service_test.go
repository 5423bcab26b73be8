package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/DenQuizon/comet-collections-extension/pkg/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, browser *fakeBrowser) (*CollectionService, *memStore) {
	t.Helper()
	store := newMemStore()
	coordinator := NewCoordinator(store, browser, &fakeSidebar{}, NewEntitlementService(store, nil, browser, "", nil), nil)
	return NewCollectionService(store, coordinator, nil), store
}

func TestCreateCollection(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, &fakeBrowser{})

	first, err := svc.CreateCollection(ctx, "  Research  ", "")
	require.NoError(t, err)
	second, err := svc.CreateCollection(ctx, "Work", "#ef4444")
	require.NoError(t, err)

	assert.Equal(t, "Research", first.Name)
	assert.Equal(t, domain.PresetColors[0], first.Color)
	assert.Empty(t, first.Pages)
	assert.NotEqual(t, first.ID, second.ID)

	stored := store.collections()
	require.Len(t, stored, 2)
	assert.Equal(t, "Work", stored[0].Name, "new collections go first")
	assert.NotNil(t, stored[1].Pages)

	_, err = svc.CreateCollection(ctx, "   ", "")
	assert.ErrorIs(t, err, domain.ErrEmptyName)
	_, err = svc.CreateCollection(ctx, "Bad", "red")
	assert.ErrorIs(t, err, domain.ErrInvalidColor)
}

func TestRenameAndDeleteCollection(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, &fakeBrowser{})

	c, err := svc.CreateCollection(ctx, "Old", "")
	require.NoError(t, err)

	renamed, err := svc.RenameCollection(ctx, c.ID, "New")
	require.NoError(t, err)
	assert.Equal(t, "New", renamed.Name)

	_, err = svc.RenameCollection(ctx, "missing", "x")
	assert.ErrorIs(t, err, domain.ErrCollectionNotFound)

	svc.ToggleExpanded(c.ID)
	svc.ToggleSelected(c.ID)
	require.True(t, svc.State().Expanded[c.ID])

	removed, err := svc.DeleteCollection(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, removed.ID)
	assert.Empty(t, store.collections())
	assert.NotContains(t, svc.State().Expanded, c.ID)
	assert.NotContains(t, svc.State().Selected, c.ID)

	_, err = svc.DeleteCollection(ctx, c.ID)
	assert.ErrorIs(t, err, domain.ErrCollectionNotFound)
}

func TestAddCurrentPage(t *testing.T) {
	ctx := context.Background()
	browser := &fakeBrowser{
		active:     &domain.Tab{Title: "Virtual Tour of Rome", URL: "https://example.com/rome"},
		screenshot: []byte("jpeg"),
	}
	svc, store := newTestService(t, browser)
	c, err := svc.CreateCollection(ctx, "Trips", "")
	require.NoError(t, err)

	page, err := svc.AddCurrentPage(ctx, c.ID, true)
	require.NoError(t, err)
	assert.Equal(t, "Tour of Rome", page.Title)
	assert.Equal(t, "https://example.com/rome", page.URL)
	assert.Equal(t, "data:image/jpeg;base64,anBlZw==", page.Thumbnail)
	assert.Contains(t, page.Favicon, "example.com")

	t.Run("duplicate leaves collection unchanged", func(t *testing.T) {
		_, err := svc.AddCurrentPage(ctx, c.ID, false)
		assert.ErrorIs(t, err, domain.ErrDuplicatePage)
		assert.Len(t, store.collections()[0].Pages, 1)
	})

	t.Run("capture failure still saves the page", func(t *testing.T) {
		browser.active = &domain.Tab{Title: "", URL: "https://example.com/paris"}
		browser.captureErr = errors.New("capture denied")
		page, err := svc.AddCurrentPage(ctx, c.ID, true)
		require.NoError(t, err)
		assert.Empty(t, page.Thumbnail)
		assert.Equal(t, "Example", page.Title)
	})

	t.Run("restricted page is rejected", func(t *testing.T) {
		browser.active = &domain.Tab{Title: "Settings", URL: "chrome://settings"}
		_, err := svc.AddCurrentPage(ctx, c.ID, false)
		assert.ErrorIs(t, err, domain.ErrInvalidURL)
	})
}

func TestAddURL(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, &fakeBrowser{})
	c, err := svc.CreateCollection(ctx, "Links", "")
	require.NoError(t, err)

	page, err := svc.AddURL(ctx, c.ID, "https://go.dev/doc", "")
	require.NoError(t, err)
	assert.Equal(t, "Go", page.Title)
	assert.Empty(t, page.Thumbnail)

	_, err = svc.AddURL(ctx, c.ID, "ftp://go.dev", "")
	assert.ErrorIs(t, err, domain.ErrInvalidURL)
	_, err = svc.AddURL(ctx, c.ID, "https://go.dev/doc", "again")
	assert.ErrorIs(t, err, domain.ErrDuplicatePage)
}

func TestAddAllTabs(t *testing.T) {
	ctx := context.Background()
	browser := &fakeBrowser{tabs: []domain.Tab{
		{Title: "A", URL: "https://a.example"},
		{Title: "Extensions", URL: "chrome://extensions"},
		{Title: "B", URL: "https://b.example"},
		{Title: "A again", URL: "https://a.example"},
	}}
	svc, _ := newTestService(t, browser)

	target, added, err := svc.AddAllTabs(ctx, "", "")
	require.NoError(t, err)
	assert.Equal(t, 2, added)
	assert.Equal(t, "All Current Tabs", target.Name)
	assert.Len(t, target.Pages, 2)

	_, added, err = svc.AddAllTabs(ctx, target.ID, "")
	require.NoError(t, err)
	assert.Zero(t, added)

	browser.tabs = []domain.Tab{{URL: "about:blank"}}
	_, _, err = svc.AddAllTabs(ctx, "", "Nothing")
	assert.ErrorIs(t, err, ErrNoValidTabs)
}

func TestRemovePage(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, &fakeBrowser{})
	c, _ := svc.CreateCollection(ctx, "Links", "")
	page, err := svc.AddURL(ctx, c.ID, "https://go.dev", "Go")
	require.NoError(t, err)

	require.NoError(t, svc.RemovePage(ctx, c.ID, page.ID))
	assert.Empty(t, store.collections()[0].Pages)
	assert.ErrorIs(t, svc.RemovePage(ctx, c.ID, page.ID), domain.ErrPageNotFound)
}

func TestReorderCollection(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, &fakeBrowser{})
	c, _ := svc.CreateCollection(ctx, "C", "")
	b, _ := svc.CreateCollection(ctx, "B", "")
	a, _ := svc.CreateCollection(ctx, "A", "")

	// [A B C] -> drag A onto C -> [B C A]
	require.NoError(t, svc.ReorderCollection(ctx, a.ID, c.ID))
	names := func() []string {
		var out []string
		for _, col := range store.collections() {
			out = append(out, col.Name)
		}
		return out
	}
	assert.Equal(t, []string{"B", "C", "A"}, names())

	// drag A back onto B -> A takes B's index
	require.NoError(t, svc.ReorderCollection(ctx, a.ID, b.ID))
	assert.Equal(t, []string{"A", "B", "C"}, names())

	assert.ErrorIs(t, svc.ReorderCollection(ctx, a.ID, "missing"), domain.ErrCollectionNotFound)
}

func TestReorderPage(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, &fakeBrowser{})
	c, _ := svc.CreateCollection(ctx, "Links", "")
	for _, u := range []string{"https://1.example", "https://2.example", "https://3.example"} {
		_, err := svc.AddURL(ctx, c.ID, u, "")
		require.NoError(t, err)
	}

	require.NoError(t, svc.ReorderPage(ctx, c.ID, "https://3.example", "https://1.example"))
	pages := store.collections()[0].Pages
	assert.Equal(t, "https://3.example", pages[0].URL)
	assert.Equal(t, "https://1.example", pages[1].URL)
}

func TestOpenAll(t *testing.T) {
	ctx := context.Background()
	browser := &fakeBrowser{}
	svc, _ := newTestService(t, browser)
	c, _ := svc.CreateCollection(ctx, "Links", "")

	require.NoError(t, svc.OpenAll(ctx, c.ID, domain.OpenCurrent))
	assert.Empty(t, browser.createdTabs, "empty collection opens nothing")

	_, _ = svc.AddURL(ctx, c.ID, "https://1.example", "")
	_, _ = svc.AddURL(ctx, c.ID, "https://2.example", "")
	require.NoError(t, svc.OpenAll(ctx, c.ID, domain.OpenCurrent))
	assert.Len(t, browser.createdTabs, 2)

	browser.createErr = errors.New("window closed")
	assert.ErrorIs(t, svc.OpenAll(ctx, c.ID, domain.OpenCurrent), ErrCoordinatorReply)
}

func TestExportImport(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, &fakeBrowser{})
	_, _ = svc.CreateCollection(ctx, "Empty", "")
	c, _ := svc.CreateCollection(ctx, "Research", "")
	_, _ = svc.AddURL(ctx, c.ID, "https://go.dev", "Go")

	file := svc.Export(ctx)
	assert.Equal(t, domain.ExportVersion, file.Version)
	data, err := json.Marshal(file)
	require.NoError(t, err)

	t.Run("replace restores the exported list", func(t *testing.T) {
		_, _ = svc.CreateCollection(ctx, "Scratch", "")
		n, err := svc.Import(ctx, data, domain.ImportReplace)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		got := store.collections()
		require.Len(t, got, 2)
		assert.Equal(t, project(file.Collections), project(got))
		assert.Equal(t, file.Collections[0].ID, got[0].ID)
		assert.Equal(t, file.Collections[1].ID, got[1].ID)
	})

	t.Run("merge appends renamed copies", func(t *testing.T) {
		before := store.collections()
		n, err := svc.Import(ctx, data, domain.ImportMerge)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		got := store.collections()
		require.Len(t, got, 4)
		assert.Equal(t, before, got[:2])

		want := project(file.Collections)
		for i := range want {
			want[i].Name += " (Imported)"
		}
		assert.Equal(t, want, project(got[2:]))
		assert.Equal(t, "Research (Imported)", got[2].Name)
		assert.NotEqual(t, got[0].ID, got[2].ID)
		assert.NotEqual(t, got[1].ID, got[3].ID)
	})

	t.Run("invalid file leaves storage untouched", func(t *testing.T) {
		_, err := svc.Import(ctx, []byte(`{"collections": {}}`), domain.ImportReplace)
		assert.ErrorIs(t, err, domain.ErrInvalidImport)
		assert.Len(t, store.collections(), 4)
	})
}

type projectedPage struct {
	URL   string
	Title string
}

type projectedCollection struct {
	Name  string
	Color string
	Pages []projectedPage
}

// project keeps the fields an export round trip must preserve.
func project(collections []domain.Collection) []projectedCollection {
	out := make([]projectedCollection, 0, len(collections))
	for _, c := range collections {
		pc := projectedCollection{Name: c.Name, Color: c.Color, Pages: []projectedPage{}}
		for _, p := range c.Pages {
			pc.Pages = append(pc.Pages, projectedPage{URL: p.URL, Title: p.Title})
		}
		out = append(out, pc)
	}
	return out
}

func TestExportSelected(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, &fakeBrowser{})
	a, _ := svc.CreateCollection(ctx, "A", "")
	_, _ = svc.CreateCollection(ctx, "B", "")

	_, err := svc.ExportSelected(ctx)
	assert.ErrorIs(t, err, ErrNothingSelected)

	svc.ToggleSelected(a.ID)
	file, err := svc.ExportSelected(ctx)
	require.NoError(t, err)
	require.Len(t, file.Collections, 1)
	assert.Equal(t, "A", file.Collections[0].Name)

	svc.SelectAll()
	assert.Len(t, svc.State().Selected, 2)
	svc.ClearSelection()
	assert.Empty(t, svc.State().Selected)
}

func TestSetSearchExpandsPageMatches(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, &fakeBrowser{})
	docs, _ := svc.CreateCollection(ctx, "Docs", "")
	golang, _ := svc.CreateCollection(ctx, "Golang", "")
	_, _ = svc.AddURL(ctx, docs.ID, "https://go.dev/doc", "Effective Go")

	svc.SetSearch("  GO ")
	state := svc.State()
	assert.Equal(t, "go", state.Search)
	assert.True(t, state.Expanded[docs.ID])
	assert.False(t, state.Expanded[golang.ID], "name matches are not expanded")

	svc.ClearSearch()
	assert.Empty(t, svc.State().Search)
}

func TestSaveFailureKeepsChange(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, &fakeBrowser{})
	store.setErr = errors.New("quota exceeded")

	c, err := svc.CreateCollection(ctx, "Unsaved", "")
	require.NoError(t, err)
	assert.Equal(t, c.ID, svc.Collections()[0].ID)
}
