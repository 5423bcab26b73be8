package view

import (
	"fmt"
	"testing"

	"github.com/DenQuizon/comet-collections-extension/pkg/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pages(n int) []domain.Page {
	out := make([]domain.Page, n)
	for i := range out {
		out[i] = domain.Page{
			ID:    fmt.Sprintf("p%d", i),
			Title: fmt.Sprintf("Page %d", i),
			URL:   fmt.Sprintf("https://site%d.example/path/", i),
		}
	}
	return out
}

func TestBuildPreview(t *testing.T) {
	collections := []domain.Collection{
		{ID: "a", Name: "reading", Color: "#FF6B6B", Pages: pages(7)},
		{ID: "b", Name: "Work", Color: "#4ECDC4", Pages: pages(2)},
	}
	state := domain.NewUIState()
	state.Expanded["a"] = true

	model := Build(collections, state)
	require.Len(t, model.Cards, 2)
	assert.False(t, model.Empty)
	assert.Empty(t, model.Banner)

	first := model.Cards[0]
	assert.Equal(t, "R", first.Initial)
	assert.Equal(t, 7, first.PageCount)
	assert.Len(t, first.Preview, PreviewLimit)
	assert.Equal(t, "+2 more pages", first.MoreLabel())
	assert.Equal(t, "site0.example/path", first.Preview[0].CleanURL)
	assert.Equal(t, ImagePlaceholder, first.Preview[0].ImageKind)

	second := model.Cards[1]
	assert.False(t, second.Expanded)
	assert.Empty(t, second.Preview)
	assert.Empty(t, second.MoreLabel())
}

func TestBuildSearch(t *testing.T) {
	collections := []domain.Collection{
		{ID: "a", Name: "Recipes", Pages: []domain.Page{
			{ID: "1", Title: "Golang Pasta", URL: "https://food.example/pasta"},
			{ID: "2", Title: "Soup", URL: "https://food.example/soup"},
		}},
		{ID: "b", Name: "Go Links", Pages: []domain.Page{}},
		{ID: "c", Name: "Music", Pages: []domain.Page{{ID: "3", Title: "Jazz", URL: "https://radio.example"}}},
	}
	state := domain.NewUIState()
	state.Search = "GO"
	state.Expanded["a"] = true

	model := Build(collections, state)
	require.Len(t, model.Cards, 2)
	assert.Equal(t, "a", model.Cards[0].ID)
	assert.Equal(t, "b", model.Cards[1].ID)
	require.Len(t, model.Cards[0].Preview, 1)
	assert.Equal(t, "Golang Pasta", model.Cards[0].Preview[0].Title)
	assert.Equal(t, `Found 2 collections and 1 pages matching "go"`, model.Banner)
}

func TestBuildEmpty(t *testing.T) {
	model := Build(nil, domain.NewUIState())
	assert.True(t, model.Empty)
	assert.NotNil(t, model.Cards)
}

func TestPageImage(t *testing.T) {
	assert.Equal(t, ImageThumbnail, pageItem(domain.Page{Thumbnail: "data:image/jpeg;base64,x", Favicon: "f"}).ImageKind)
	assert.Equal(t, ImageFavicon, pageItem(domain.Page{Favicon: "f"}).ImageKind)
}

func TestDeletePrompt(t *testing.T) {
	prompt := DeletePrompt(domain.Collection{Name: "Trips", Pages: pages(3)})
	assert.Equal(t, `Are you sure you want to delete "Trips"? This will also delete all 3 pages in it.`, prompt.Message)

	actions := []string{}
	for _, item := range ContextMenu() {
		actions = append(actions, item.Action)
	}
	assert.Equal(t, []string{"rename", "open-all", "delete"}, actions)
}
