package domain

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

var (
	ErrEmptyName          = errors.New("collection name is required")
	ErrInvalidColor       = errors.New("invalid collection color")
	ErrInvalidURL         = errors.New("please enter a valid http or https URL")
	ErrDuplicatePage      = errors.New("page already exists in this collection")
	ErrCollectionNotFound = errors.New("collection not found")
	ErrPageNotFound       = errors.New("page not found")
)

// PresetColors is the palette offered when creating a collection.
var PresetColors = []string{
	"#FF6B6B", "#4ECDC4", "#45B7D1", "#96CEB4", "#FFEAA7",
	"#DDA0DD", "#98D8C8", "#F7DC6F", "#BB8FCE", "#85C1E9",
}

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Collection represents a named, colored, ordered group of saved pages
type Collection struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	Pages     []Page    `json:"pages"`
	CreatedAt time.Time `json:"createdAt"`
}

// Page is a saved URL inside a collection
type Page struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	Favicon   string    `json:"favicon,omitempty"`
	Thumbnail string    `json:"thumbnail,omitempty"` // data URL, only for captured pages
	AddedAt   time.Time `json:"addedAt"`
}

// HasURL reports whether a page with the given URL is already in the collection.
func (c *Collection) HasURL(url string) bool {
	for _, p := range c.Pages {
		if p.URL == url {
			return true
		}
	}
	return false
}

// PageIndex returns the index of the page with the given id, or -1.
func (c *Collection) PageIndex(pageID string) int {
	for i, p := range c.Pages {
		if p.ID == pageID {
			return i
		}
	}
	return -1
}

// Matches is the case-insensitive search predicate over title and URL.
// term must already be lower-cased.
func (p Page) Matches(term string) bool {
	return strings.Contains(strings.ToLower(p.Title), term) || strings.Contains(strings.ToLower(p.URL), term)
}

// NameMatches reports whether the collection name contains the lower-cased term.
func (c *Collection) NameMatches(term string) bool {
	return strings.Contains(strings.ToLower(c.Name), term)
}

// Initial is the letter shown on the collection icon.
func (c *Collection) Initial() string {
	for _, r := range c.Name {
		return strings.ToUpper(string(r))
	}
	return ""
}

// NormalizeColor resolves an empty color to the first preset and validates
// anything else as a hex color.
func NormalizeColor(color string) (string, error) {
	color = strings.TrimSpace(color)
	if color == "" {
		return PresetColors[0], nil
	}
	if !hexColor.MatchString(color) {
		return "", ErrInvalidColor
	}
	return color, nil
}

// Normalize replaces nil page lists with empty ones so the stored document
// never carries a null pages field.
func Normalize(collections []Collection) []Collection {
	if collections == nil {
		return []Collection{}
	}
	for i := range collections {
		if collections[i].Pages == nil {
			collections[i].Pages = []Page{}
		}
	}
	return collections
}

// IndexOf returns the index of the collection with the given id, or -1.
func IndexOf(collections []Collection, id string) int {
	for i := range collections {
		if collections[i].ID == id {
			return i
		}
	}
	return -1
}
