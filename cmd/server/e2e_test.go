package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DenQuizon/comet-collections-extension/pkg/adapters/handler"
	"github.com/DenQuizon/comet-collections-extension/pkg/adapters/repository/sqlite"
	"github.com/DenQuizon/comet-collections-extension/pkg/config"
	"github.com/DenQuizon/comet-collections-extension/pkg/core/domain"
	"github.com/DenQuizon/comet-collections-extension/pkg/core/services"
	"github.com/DenQuizon/comet-collections-extension/pkg/ports"
)

type stubBrowser struct {
	opened []string
}

func (b *stubBrowser) ActiveTab(context.Context) (*domain.Tab, error) {
	return &domain.Tab{ID: "1", Title: "Virtual Go Tour", URL: "https://go.dev/tour/"}, nil
}

func (b *stubBrowser) Tabs(context.Context) ([]domain.Tab, error) {
	return []domain.Tab{
		{ID: "1", Title: "Go Tour", URL: "https://go.dev/tour/"},
		{ID: "2", Title: "New Tab", URL: "chrome://newtab"},
		{ID: "3", Title: "", URL: "https://pkg.go.dev"},
	}, nil
}

func (b *stubBrowser) CaptureVisibleTab(context.Context) ([]byte, error) {
	return []byte{0xff, 0xd8, 0xff}, nil
}

func (b *stubBrowser) CreateTab(_ context.Context, spec ports.TabSpec) error {
	b.opened = append(b.opened, spec.URL)
	return nil
}

func (b *stubBrowser) CreateWindow(_ context.Context, spec ports.WindowSpec) (*domain.WindowRef, error) {
	b.opened = append(b.opened, spec.URL)
	return &domain.WindowRef{ID: "w1"}, nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func TestIntegration(t *testing.T) {
	ctx := context.Background()

	// 1. Setup DB
	repo, err := sqlite.NewSQLiteRepository("file:e2e?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("Failed to init db: %v", err)
	}
	defer repo.Close()

	// 2. Setup Services
	stub := &stubBrowser{}
	entitlement := services.NewEntitlementService(repo, nil, stub, "", nil)
	coordinator := services.NewCoordinator(repo, stub, nil, entitlement, nil)
	if err := coordinator.Install(ctx); err != nil {
		t.Fatalf("Install failed: %v", err)
	}
	collections := services.NewCollectionService(repo, coordinator, nil)

	// 3. Setup Router without Google sign-in
	cfg := &config.Config{JWTSecret: "test"}
	server := httptest.NewServer(handler.NewRouter(cfg, collections, coordinator, nil, nil))
	defer server.Close()

	client := server.Client()
	call := func(method, path string, body any) (*http.Response, envelope) {
		t.Helper()
		var reader io.Reader
		if body != nil {
			data, _ := json.Marshal(body)
			reader = bytes.NewReader(data)
		}
		req, _ := http.NewRequest(method, server.URL+path, reader)
		req.Header.Set("Content-Type", "application/json")
		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("%s %s: %v", method, path, err)
		}
		defer resp.Body.Close()
		var env envelope
		_ = json.NewDecoder(resp.Body).Decode(&env)
		return resp, env
	}

	// TEST 1: Create Collection
	resp, env := call("POST", "/api/v1/collections", map[string]string{"name": "Reading"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201, got %d (%s)", resp.StatusCode, env.Error)
	}
	var created domain.Collection
	_ = json.Unmarshal(env.Data, &created)
	if created.ID == "" || created.Name != "Reading" {
		t.Fatalf("Unexpected collection: %+v", created)
	}

	// TEST 2: Add Current Page with thumbnail
	resp, env = call("POST", "/api/v1/collections/"+created.ID+"/pages/current", map[string]bool{"thumbnail": true})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Add current page expected 201, got %d (%s)", resp.StatusCode, env.Error)
	}
	var page domain.Page
	_ = json.Unmarshal(env.Data, &page)
	if page.Title != "Go Tour" {
		t.Errorf("Expected sanitized title, got %q", page.Title)
	}
	if !strings.HasPrefix(page.Thumbnail, "data:image/jpeg;base64,") {
		t.Errorf("Expected thumbnail data URL, got %q", page.Thumbnail)
	}

	// TEST 3: Duplicate is rejected
	resp, _ = call("POST", "/api/v1/collections/"+created.ID+"/pages/current", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("Duplicate expected 409, got %d", resp.StatusCode)
	}

	// TEST 4: Save all tabs into a new collection
	resp, env = call("POST", "/api/v1/collections/new/tabs", map[string]string{"name": "Session"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Add tabs expected 200, got %d (%s)", resp.StatusCode, env.Error)
	}
	var tabs struct {
		Added int `json:"added"`
	}
	_ = json.Unmarshal(env.Data, &tabs)
	if tabs.Added != 2 {
		t.Errorf("Expected 2 tabs added, got %d", tabs.Added)
	}

	// TEST 5: Open all in a new window
	resp, _ = call("POST", "/api/v1/collections/"+created.ID+"/open", map[string]string{"mode": "new-window"})
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("Open all expected 204, got %d", resp.StatusCode)
	}
	if len(stub.opened) != 1 || stub.opened[0] != "https://go.dev/tour/" {
		t.Errorf("Unexpected opened urls: %v", stub.opened)
	}

	// TEST 6: Add an arbitrary URL with a title
	resp, env = call("POST", "/api/v1/collections/"+created.ID+"/pages", map[string]string{"url": "https://pkg.go.dev/net/http", "title": "net/http"})
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("Add URL expected 201, got %d (%s)", resp.StatusCode, env.Error)
	}
	resp, _ = call("POST", "/api/v1/collections/"+created.ID+"/pages", map[string]string{"url": "javascript:alert(1)"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Invalid URL expected 400, got %d", resp.StatusCode)
	}

	// TEST 7: Export then merge import doubles the list
	exportResp, err := client.Get(server.URL + "/api/v1/export")
	if err != nil {
		t.Fatal(err)
	}
	exported, _ := io.ReadAll(exportResp.Body)
	exportResp.Body.Close()
	if !strings.Contains(exportResp.Header.Get("Content-Disposition"), "comet-collections-") {
		t.Errorf("Missing export filename: %q", exportResp.Header.Get("Content-Disposition"))
	}

	importResp, err := client.Post(server.URL+"/api/v1/import?mode=merge", "application/json", bytes.NewReader(exported))
	if err != nil {
		t.Fatal(err)
	}
	importResp.Body.Close()
	if importResp.StatusCode != http.StatusOK {
		t.Errorf("Import expected 200, got %d", importResp.StatusCode)
	}

	_, env = call("GET", "/api/v1/collections", nil)
	var list []domain.Collection
	_ = json.Unmarshal(env.Data, &list)
	if len(list) != 4 {
		t.Errorf("Expected 4 collections after merge, got %d", len(list))
	}

	// TEST 8: Message channel
	msgResp, err := client.Post(server.URL+"/api/v1/messages", "application/json", strings.NewReader(`{"action":"checkPremiumStatus"}`))
	if err != nil {
		t.Fatal(err)
	}
	var reply domain.Response
	_ = json.NewDecoder(msgResp.Body).Decode(&reply)
	msgResp.Body.Close()
	if !reply.Success || reply.RequestID == "" {
		t.Errorf("Unexpected premium reply: %+v", reply)
	}

	msgResp, err = client.Post(server.URL+"/api/v1/messages", "application/json", strings.NewReader(`{"action":"self-destruct"}`))
	if err != nil {
		t.Fatal(err)
	}
	msgResp.Body.Close()
	if msgResp.StatusCode != http.StatusBadRequest {
		t.Errorf("Unknown action expected 400, got %d", msgResp.StatusCode)
	}

	// TEST 9: Sidebar renders
	sidebarResp, err := client.Get(server.URL + "/sidebar")
	if err != nil {
		t.Fatal(err)
	}
	html, _ := io.ReadAll(sidebarResp.Body)
	sidebarResp.Body.Close()
	if sidebarResp.StatusCode != http.StatusOK || !strings.Contains(string(html), "Reading") {
		t.Errorf("Sidebar did not render collections (status %d)", sidebarResp.StatusCode)
	}
}
