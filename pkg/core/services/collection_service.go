package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/DenQuizon/comet-collections-extension/pkg/core/domain"
	"github.com/DenQuizon/comet-collections-extension/pkg/ports"
	"github.com/samber/lo"
)

// Storage keys shared by the controller, the coordinator and the CLI.
const (
	KeyCollections      = "collections"
	KeySchemaVersion    = "schema_version"
	KeyPremiumStatus    = "premium_status"
	KeyPremiumLastKnown = "premium_last_known"
)

const (
	importedSuffix  = " (Imported)"
	defaultTabsName = "All Current Tabs"
)

var (
	ErrNoActiveTab      = errors.New("no active tab")
	ErrNoValidTabs      = errors.New("no valid tabs to add")
	ErrNothingSelected  = errors.New("no collections selected")
	ErrCoordinatorReply = errors.New("coordinator request failed")
)

// CollectionService is the sidebar controller. It owns the collection list
// and the panel state; every mutation reloads the stored document, applies
// the change and writes the whole document back.
type CollectionService struct {
	store      ports.DocumentStore
	dispatcher ports.Dispatcher
	log        *slog.Logger
	now        func() time.Time

	mu          sync.Mutex
	collections []domain.Collection
	ui          domain.UIState
}

func NewCollectionService(store ports.DocumentStore, dispatcher ports.Dispatcher, logger *slog.Logger) *CollectionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CollectionService{
		store:       store,
		dispatcher:  dispatcher,
		log:         logger,
		now:         func() time.Time { return time.Now().UTC() },
		collections: []domain.Collection{},
		ui:          domain.NewUIState(),
	}
}

// load refreshes the in-memory list. A failed read keeps the previous list.
func (s *CollectionService) load(ctx context.Context) {
	var collections []domain.Collection
	err := s.store.Get(ctx, KeyCollections, &collections)
	switch {
	case errors.Is(err, ports.ErrKeyNotFound):
		s.collections = []domain.Collection{}
	case err != nil:
		s.log.Error("loading collections", "err", err)
	default:
		s.collections = domain.Normalize(collections)
	}
}

// save writes the list back. Failures are logged and the in-memory change
// stays applied.
func (s *CollectionService) save(ctx context.Context) {
	if err := s.store.Set(ctx, KeyCollections, s.collections); err != nil {
		s.log.Error("saving collections", "err", err)
	}
}

func (s *CollectionService) find(id string) (*domain.Collection, error) {
	i := domain.IndexOf(s.collections, id)
	if i < 0 {
		return nil, domain.ErrCollectionNotFound
	}
	return &s.collections[i], nil
}

// uniqueID mints an id not used by any collection or page.
func (s *CollectionService) uniqueID() string {
	for {
		id := newID(s.now())
		taken := lo.ContainsBy(s.collections, func(c domain.Collection) bool {
			return c.ID == id || c.PageIndex(id) >= 0
		})
		if !taken {
			return id
		}
	}
}

func (s *CollectionService) Load(ctx context.Context) []domain.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load(ctx)
	return cloneAll(s.collections)
}

// Collections returns the last loaded list without touching storage.
func (s *CollectionService) Collections() []domain.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.collections)
}

func (s *CollectionService) State() domain.UIState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ui.Clone()
}

func (s *CollectionService) CreateCollection(ctx context.Context, name, color string) (*domain.Collection, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrEmptyName
	}
	color, err := domain.NormalizeColor(color)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.load(ctx)

	collection := domain.Collection{
		ID:        s.uniqueID(),
		Name:      name,
		Color:     color,
		Pages:     []domain.Page{},
		CreatedAt: s.now(),
	}
	s.collections = slices.Insert(s.collections, 0, collection)
	s.save(ctx)

	s.log.Info("collection created", "id", collection.ID, "name", collection.Name)
	return clone(collection), nil
}

func (s *CollectionService) RenameCollection(ctx context.Context, id, name string) (*domain.Collection, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrEmptyName
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.load(ctx)

	collection, err := s.find(id)
	if err != nil {
		return nil, err
	}
	if collection.Name != name {
		collection.Name = name
		s.save(ctx)
	}
	return clone(*collection), nil
}

// DeleteCollection removes the collection and forgets its panel state. The
// removed collection is returned so callers can report the lost pages.
func (s *CollectionService) DeleteCollection(ctx context.Context, id string) (*domain.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load(ctx)

	i := domain.IndexOf(s.collections, id)
	if i < 0 {
		return nil, domain.ErrCollectionNotFound
	}
	removed := s.collections[i]
	s.collections = slices.Delete(s.collections, i, i+1)
	delete(s.ui.Expanded, id)
	delete(s.ui.Selected, id)
	s.save(ctx)

	s.log.Info("collection deleted", "id", id, "pages", len(removed.Pages))
	return clone(removed), nil
}

// AddCurrentPage saves the active tab, optionally with a screenshot.
func (s *CollectionService) AddCurrentPage(ctx context.Context, collectionID string, withThumbnail bool) (*domain.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load(ctx)

	collection, err := s.find(collectionID)
	if err != nil {
		return nil, err
	}

	resp := s.dispatcher.Dispatch(ctx, domain.GetCurrentTab{})
	if !resp.Success {
		return nil, fmt.Errorf("%w: %s", ErrCoordinatorReply, resp.Error)
	}
	result, ok := resp.Data.(domain.CurrentTabResult)
	if !ok || result.Tab == nil {
		return nil, ErrNoActiveTab
	}
	tab := result.Tab

	pageURL, err := domain.ValidateWebURL(tab.URL)
	if err != nil {
		return nil, err
	}
	if collection.HasURL(pageURL) {
		return nil, domain.ErrDuplicatePage
	}

	var thumbnail string
	if withThumbnail {
		thumbnail = s.captureThumbnail(ctx)
	}

	favicon := tab.FavIconURL
	if favicon == "" {
		favicon = domain.FaviconURL(pageURL)
	}
	page := domain.Page{
		ID:        s.uniqueID(),
		Title:     domain.SanitizeTitle(tab.Title, pageURL),
		URL:       pageURL,
		Favicon:   favicon,
		Thumbnail: thumbnail,
		AddedAt:   s.now(),
	}
	collection.Pages = append(collection.Pages, page)
	s.save(ctx)

	s.log.Info("page added", "collection", collection.Name, "url", page.URL, "thumbnail", thumbnail != "")
	return &page, nil
}

func (s *CollectionService) captureThumbnail(ctx context.Context) string {
	resp := s.dispatcher.Dispatch(ctx, domain.CaptureThumbnail{})
	if !resp.Success {
		s.log.Warn("thumbnail capture failed", "err", resp.Error)
		return ""
	}
	result, ok := resp.Data.(domain.ThumbnailResult)
	if !ok || result.Thumbnail == nil {
		return ""
	}
	return *result.Thumbnail
}

// AddURL saves an arbitrary http(s) URL without a thumbnail.
func (s *CollectionService) AddURL(ctx context.Context, collectionID, rawURL, title string) (*domain.Page, error) {
	pageURL, err := domain.ValidateWebURL(rawURL)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.load(ctx)

	collection, err := s.find(collectionID)
	if err != nil {
		return nil, err
	}
	if collection.HasURL(pageURL) {
		return nil, domain.ErrDuplicatePage
	}

	page := domain.Page{
		ID:      s.uniqueID(),
		Title:   domain.SanitizeTitle(title, pageURL),
		URL:     pageURL,
		Favicon: domain.FaviconURL(pageURL),
		AddedAt: s.now(),
	}
	collection.Pages = append(collection.Pages, page)
	s.save(ctx)
	return &page, nil
}

// AddAllTabs saves every open web tab. With an empty collectionID a new
// collection is created, named newName or "All Current Tabs". Returns the
// target collection and how many pages were added.
func (s *CollectionService) AddAllTabs(ctx context.Context, collectionID, newName string) (*domain.Collection, int, error) {
	resp := s.dispatcher.Dispatch(ctx, domain.GetAllTabs{})
	if !resp.Success {
		return nil, 0, fmt.Errorf("%w: %s", ErrCoordinatorReply, resp.Error)
	}
	result, _ := resp.Data.(domain.AllTabsResult)
	tabs := lo.Filter(result.Tabs, func(t domain.Tab, _ int) bool {
		_, err := domain.ValidateWebURL(t.URL)
		return err == nil && !domain.IsRestrictedURL(t.URL)
	})
	if len(tabs) == 0 {
		return nil, 0, ErrNoValidTabs
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.load(ctx)

	var target *domain.Collection
	if collectionID == "" {
		name := strings.TrimSpace(newName)
		if name == "" {
			name = defaultTabsName
		}
		s.collections = slices.Insert(s.collections, 0, domain.Collection{
			ID:        s.uniqueID(),
			Name:      name,
			Color:     randomPreset(),
			Pages:     []domain.Page{},
			CreatedAt: s.now(),
		})
		target = &s.collections[0]
	} else {
		var err error
		if target, err = s.find(collectionID); err != nil {
			return nil, 0, err
		}
	}

	added := 0
	for _, tab := range tabs {
		pageURL, _ := domain.ValidateWebURL(tab.URL)
		if target.HasURL(pageURL) {
			continue
		}
		favicon := tab.FavIconURL
		if favicon == "" {
			favicon = domain.FaviconURL(pageURL)
		}
		target.Pages = append(target.Pages, domain.Page{
			ID:      s.uniqueID(),
			Title:   domain.SanitizeTitle(tab.Title, pageURL),
			URL:     pageURL,
			Favicon: favicon,
			AddedAt: s.now(),
		})
		added++
	}
	s.save(ctx)

	s.log.Info("tabs added", "collection", target.Name, "added", added, "offered", len(tabs))
	return clone(*target), added, nil
}

func (s *CollectionService) RemovePage(ctx context.Context, collectionID, pageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load(ctx)

	collection, err := s.find(collectionID)
	if err != nil {
		return err
	}
	i := collection.PageIndex(pageID)
	if i < 0 {
		return domain.ErrPageNotFound
	}
	collection.Pages = slices.Delete(collection.Pages, i, i+1)
	s.save(ctx)
	return nil
}

// ReorderCollection moves the dragged collection to the target's index.
func (s *CollectionService) ReorderCollection(ctx context.Context, draggedID, targetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load(ctx)

	from := domain.IndexOf(s.collections, draggedID)
	to := domain.IndexOf(s.collections, targetID)
	if from < 0 || to < 0 {
		return domain.ErrCollectionNotFound
	}
	if from == to {
		return nil
	}
	s.collections = move(s.collections, from, to)
	s.save(ctx)
	return nil
}

// ReorderPage moves a page to the target page's index inside one collection.
// Pages are addressed by URL, which is unique within a collection.
func (s *CollectionService) ReorderPage(ctx context.Context, collectionID, draggedURL, targetURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load(ctx)

	collection, err := s.find(collectionID)
	if err != nil {
		return err
	}
	from := slices.IndexFunc(collection.Pages, func(p domain.Page) bool { return p.URL == draggedURL })
	to := slices.IndexFunc(collection.Pages, func(p domain.Page) bool { return p.URL == targetURL })
	if from < 0 || to < 0 {
		return domain.ErrPageNotFound
	}
	if from == to {
		return nil
	}
	collection.Pages = move(collection.Pages, from, to)
	s.save(ctx)
	return nil
}

// OpenAll asks the coordinator to open every page of the collection.
func (s *CollectionService) OpenAll(ctx context.Context, collectionID string, mode domain.OpenMode) error {
	s.mu.Lock()
	s.load(ctx)
	collection, err := s.find(collectionID)
	var urls []string
	if err == nil {
		urls = lo.Map(collection.Pages, func(p domain.Page, _ int) string { return p.URL })
	}
	s.mu.Unlock()

	if err != nil {
		return err
	}
	if len(urls) == 0 {
		return nil
	}

	resp := s.dispatcher.Dispatch(ctx, domain.OpenAllPages{URLs: urls, Mode: mode})
	if !resp.Success {
		return fmt.Errorf("%w: %s", ErrCoordinatorReply, resp.Error)
	}
	s.log.Info("opened collection", "id", collectionID, "pages", len(urls), "mode", mode)
	return nil
}

func (s *CollectionService) Export(ctx context.Context) domain.ExportFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load(ctx)
	return domain.NewExportFile(cloneAll(s.collections), s.now())
}

func (s *CollectionService) ExportSelected(ctx context.Context) (domain.ExportFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load(ctx)

	selected := lo.Filter(s.collections, func(c domain.Collection, _ int) bool {
		return s.ui.Selected[c.ID]
	})
	if len(selected) == 0 {
		return domain.ExportFile{}, ErrNothingSelected
	}
	return domain.NewExportFile(cloneAll(selected), s.now()), nil
}

// Import reads an export file. Replace adopts the imported list as is; merge
// appends every imported collection under a new id with a marked name.
// Returns the number of imported collections.
func (s *CollectionService) Import(ctx context.Context, data []byte, mode domain.ImportMode) (int, error) {
	file, err := domain.ParseExportFile(data)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.load(ctx)

	switch mode {
	case domain.ImportReplace:
		s.collections = file.Collections
		s.ui = domain.NewUIState()
	case domain.ImportMerge:
		for _, imported := range file.Collections {
			imported.ID = s.uniqueID()
			imported.Name += importedSuffix
			s.collections = append(s.collections, imported)
		}
	default:
		return 0, fmt.Errorf("unknown import mode %q", mode)
	}
	s.save(ctx)

	s.log.Info("collections imported", "mode", mode, "count", len(file.Collections))
	return len(file.Collections), nil
}

func (s *CollectionService) ToggleExpanded(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ui.Expanded[id] {
		delete(s.ui.Expanded, id)
	} else {
		s.ui.Expanded[id] = true
	}
}

// SetSearch applies a filter term. Collections that match only through their
// pages are expanded so the matching pages are visible.
func (s *CollectionService) SetSearch(term string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ui.Search = strings.ToLower(strings.TrimSpace(term))
	if s.ui.Search == "" {
		return
	}
	for _, c := range s.collections {
		if !c.NameMatches(s.ui.Search) && lo.ContainsBy(c.Pages, func(p domain.Page) bool {
			return p.Matches(s.ui.Search)
		}) {
			s.ui.Expanded[c.ID] = true
		}
	}
}

func (s *CollectionService) ClearSearch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ui.Search = ""
}

func (s *CollectionService) ToggleSelected(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ui.Selected[id] {
		delete(s.ui.Selected, id)
	} else {
		s.ui.Selected[id] = true
	}
}

func (s *CollectionService) SelectAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.collections {
		s.ui.Selected[c.ID] = true
	}
}

func (s *CollectionService) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ui.Selected = map[string]bool{}
}

func move[T any](items []T, from, to int) []T {
	item := items[from]
	items = slices.Delete(items, from, from+1)
	return slices.Insert(items, to, item)
}

func randomPreset() string {
	s, err := randomString(1)
	if err != nil {
		return domain.PresetColors[0]
	}
	return domain.PresetColors[strings.IndexByte(charset, s[0])%len(domain.PresetColors)]
}

func clone(c domain.Collection) *domain.Collection {
	c.Pages = slices.Clone(c.Pages)
	if c.Pages == nil {
		c.Pages = []domain.Page{}
	}
	return &c
}

func cloneAll(collections []domain.Collection) []domain.Collection {
	return lo.Map(collections, func(c domain.Collection, _ int) domain.Collection { return *clone(c) })
}

var _ ports.CollectionService = (*CollectionService)(nil)
