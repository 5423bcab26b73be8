package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/DenQuizon/comet-collections-extension/pkg/core/domain"
	"github.com/DenQuizon/comet-collections-extension/pkg/ports"
)

type memStore struct {
	mu     sync.Mutex
	data   map[string][]byte
	setErr error
}

func newMemStore() *memStore {
	return &memStore{data: map[string][]byte{}}
}

func (m *memStore) Get(_ context.Context, key string, dst any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.data[key]
	if !ok {
		return ports.ErrKeyNotFound
	}
	return json.Unmarshal(raw, dst)
}

func (m *memStore) Set(_ context.Context, key string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = raw
	return nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memStore) Has(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok, nil
}

func (m *memStore) Close() error { return nil }

func (m *memStore) collections() []domain.Collection {
	var out []domain.Collection
	_ = m.Get(context.Background(), KeyCollections, &out)
	return out
}

type dispatchFunc func(ctx context.Context, req domain.Request) domain.Response

func (f dispatchFunc) Dispatch(ctx context.Context, req domain.Request) domain.Response {
	return f(ctx, req)
}

type fakeBrowser struct {
	active     *domain.Tab
	tabs       []domain.Tab
	screenshot []byte
	captureErr error
	createErr  error

	createdTabs    []ports.TabSpec
	createdWindows []ports.WindowSpec
}

func (b *fakeBrowser) ActiveTab(context.Context) (*domain.Tab, error) { return b.active, nil }

func (b *fakeBrowser) Tabs(context.Context) ([]domain.Tab, error) { return b.tabs, nil }

func (b *fakeBrowser) CaptureVisibleTab(context.Context) ([]byte, error) {
	return b.screenshot, b.captureErr
}

func (b *fakeBrowser) CreateTab(_ context.Context, spec ports.TabSpec) error {
	if b.createErr != nil {
		return b.createErr
	}
	b.createdTabs = append(b.createdTabs, spec)
	return nil
}

func (b *fakeBrowser) CreateWindow(_ context.Context, spec ports.WindowSpec) (*domain.WindowRef, error) {
	b.createdWindows = append(b.createdWindows, spec)
	return &domain.WindowRef{ID: "win-1", Incognito: spec.Incognito}, nil
}

type fakeSidebar struct {
	present   bool
	injectErr error
	calls     []string
}

func (s *fakeSidebar) Ping(context.Context, domain.Tab) bool {
	s.calls = append(s.calls, "ping")
	return s.present
}

func (s *fakeSidebar) Toggle(context.Context, domain.Tab) error {
	s.calls = append(s.calls, "toggle")
	return nil
}

func (s *fakeSidebar) Inject(context.Context, domain.Tab) error {
	s.calls = append(s.calls, "inject")
	if s.injectErr != nil {
		return s.injectErr
	}
	s.present = true
	return nil
}

type fakeVerifier struct {
	license *domain.License
	err     error
	calls   int
}

func (v *fakeVerifier) Verify(context.Context) (*domain.License, error) {
	v.calls++
	return v.license, v.err
}

var errOffline = errors.New("offline")
