package ports

import (
	"context"
	"errors"

	"github.com/DenQuizon/comet-collections-extension/pkg/core/domain"
)

// ErrKeyNotFound is returned by DocumentStore.Get for absent keys.
var ErrKeyNotFound = errors.New("key not found")

// DocumentStore is the shared persistent key/value storage. Values are JSON
// documents; every write replaces the whole value.
type DocumentStore interface {
	Get(ctx context.Context, key string, dst any) error
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, key string) error
	Has(ctx context.Context, key string) (bool, error)
	Close() error
}

// TabSpec describes a tab to open. A nil Window means the current window.
type TabSpec struct {
	URL    string
	Active bool
	Window *domain.WindowRef
}

// WindowSpec describes a window to open with its first URL.
type WindowSpec struct {
	URL       string
	Incognito bool
	Focused   bool
}

// Browser performs the tab and window operations only the coordinator may.
type Browser interface {
	ActiveTab(ctx context.Context) (*domain.Tab, error) // nil, nil when there is none
	Tabs(ctx context.Context) ([]domain.Tab, error)
	CaptureVisibleTab(ctx context.Context) ([]byte, error)
	CreateTab(ctx context.Context, spec TabSpec) error
	CreateWindow(ctx context.Context, spec WindowSpec) (*domain.WindowRef, error)
}

// SidebarHost talks to the panel living inside a page.
type SidebarHost interface {
	Ping(ctx context.Context, tab domain.Tab) bool
	Toggle(ctx context.Context, tab domain.Tab) error
	Inject(ctx context.Context, tab domain.Tab) error
}

// Dispatcher is the request/response channel from the UI to the coordinator.
type Dispatcher interface {
	Dispatch(ctx context.Context, req domain.Request) domain.Response
}

// LicenseVerifier queries the remote entitlement endpoint.
type LicenseVerifier interface {
	Verify(ctx context.Context) (*domain.License, error)
}

// CollectionService defines the operations of the sidebar controller
type CollectionService interface {
	Load(ctx context.Context) []domain.Collection
	CreateCollection(ctx context.Context, name, color string) (*domain.Collection, error)
	RenameCollection(ctx context.Context, id, name string) (*domain.Collection, error)
	DeleteCollection(ctx context.Context, id string) (*domain.Collection, error)
	AddCurrentPage(ctx context.Context, collectionID string, withThumbnail bool) (*domain.Page, error)
	AddURL(ctx context.Context, collectionID, rawURL, title string) (*domain.Page, error)
	AddAllTabs(ctx context.Context, collectionID, newName string) (*domain.Collection, int, error)
	RemovePage(ctx context.Context, collectionID, pageID string) error
	ReorderCollection(ctx context.Context, draggedID, targetID string) error
	ReorderPage(ctx context.Context, collectionID, draggedURL, targetURL string) error
	OpenAll(ctx context.Context, collectionID string, mode domain.OpenMode) error
	Export(ctx context.Context) domain.ExportFile
	ExportSelected(ctx context.Context) (domain.ExportFile, error)
	Import(ctx context.Context, data []byte, mode domain.ImportMode) (int, error)

	ToggleExpanded(id string)
	SetSearch(term string)
	ClearSearch()
	ToggleSelected(id string)
	SelectAll()
	ClearSelection()
	State() domain.UIState
	Collections() []domain.Collection
}
