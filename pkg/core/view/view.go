// Package view turns the collection list and panel state into the data the
// sidebar template renders. Nothing here touches storage or the browser.
package view

import (
	"fmt"
	"strings"

	"github.com/DenQuizon/comet-collections-extension/pkg/core/domain"
	"github.com/samber/lo"
)

// PreviewLimit is the number of pages shown in an expanded card.
const PreviewLimit = 5

// ImageKind says what the page row shows on its left.
type ImageKind string

const (
	ImageThumbnail   ImageKind = "thumbnail"
	ImageFavicon     ImageKind = "favicon"
	ImagePlaceholder ImageKind = "placeholder"
)

type PageItem struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	CleanURL  string    `json:"cleanUrl"`
	Image     string    `json:"image"`
	ImageKind ImageKind `json:"imageKind"`
}

type Card struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Color     string     `json:"color"`
	Initial   string     `json:"initial"`
	PageCount int        `json:"pageCount"`
	Expanded  bool       `json:"expanded"`
	Selected  bool       `json:"selected"`
	Preview   []PageItem `json:"preview"`
	More      int        `json:"more"`
}

// MoreLabel is the truncation indicator, empty when nothing is hidden.
func (c Card) MoreLabel() string {
	if c.More <= 0 {
		return ""
	}
	return fmt.Sprintf("+%d more pages", c.More)
}

type Model struct {
	Cards    []Card `json:"cards"`
	Empty    bool   `json:"empty"`
	Banner   string `json:"banner"`
	Search   string `json:"search"`
	Selected int    `json:"selected"`
}

// Build renders every collection that passes the search filter. Expanded
// cards carry up to PreviewLimit pages; while searching only matching pages
// are previewed.
func Build(collections []domain.Collection, state domain.UIState) Model {
	term := strings.ToLower(strings.TrimSpace(state.Search))
	model := Model{
		Cards:  []Card{},
		Empty:  len(collections) == 0,
		Search: term,
	}

	matchedPages := 0
	for i := range collections {
		c := &collections[i]
		pages := c.Pages
		if term != "" {
			pages = lo.Filter(c.Pages, func(p domain.Page, _ int) bool { return p.Matches(term) })
			if !c.NameMatches(term) && len(pages) == 0 {
				continue
			}
			matchedPages += len(pages)
		}

		card := Card{
			ID:        c.ID,
			Name:      c.Name,
			Color:     c.Color,
			Initial:   c.Initial(),
			PageCount: len(c.Pages),
			Expanded:  state.Expanded[c.ID],
			Selected:  state.Selected[c.ID],
		}
		if card.Expanded {
			shown := pages[:min(len(pages), PreviewLimit)]
			card.Preview = lo.Map(shown, func(p domain.Page, _ int) PageItem { return pageItem(p) })
			card.More = len(pages) - len(shown)
		}
		if card.Selected {
			model.Selected++
		}
		model.Cards = append(model.Cards, card)
	}

	if term != "" {
		model.Banner = fmt.Sprintf("Found %d collections and %d pages matching %q", len(model.Cards), matchedPages, term)
	}
	return model
}

func pageItem(p domain.Page) PageItem {
	item := PageItem{
		ID:       p.ID,
		Title:    p.Title,
		URL:      p.URL,
		CleanURL: domain.CleanURL(p.URL),
	}
	switch {
	case p.Thumbnail != "":
		item.Image, item.ImageKind = p.Thumbnail, ImageThumbnail
	case p.Favicon != "":
		item.Image, item.ImageKind = p.Favicon, ImageFavicon
	default:
		item.ImageKind = ImagePlaceholder
	}
	return item
}

type MenuItem struct {
	Action string `json:"action"`
	Label  string `json:"label"`
	Danger bool   `json:"danger"`
}

// ContextMenu lists the actions offered on a collection card.
func ContextMenu() []MenuItem {
	return []MenuItem{
		{Action: "rename", Label: "Rename"},
		{Action: "open-all", Label: "Open all"},
		{Action: "delete", Label: "Delete", Danger: true},
	}
}

type Prompt struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Confirm string `json:"confirm"`
}

func DeletePrompt(c domain.Collection) Prompt {
	return Prompt{
		Title:   "Delete Collection",
		Message: fmt.Sprintf("Are you sure you want to delete %q? This will also delete all %d pages in it.", c.Name, len(c.Pages)),
		Confirm: "Delete",
	}
}
