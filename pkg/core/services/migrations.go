package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/DenQuizon/comet-collections-extension/pkg/core/domain"
	"github.com/DenQuizon/comet-collections-extension/pkg/ports"
)

// Migration rewrites the stored collections once. Apply must be idempotent.
type Migration struct {
	Version int
	Name    string
	Apply   func(collections []domain.Collection) int // returns pages changed
	// LegacyFlag is the boolean key older builds wrote after running it.
	LegacyFlag string
}

// Migrations are applied in order against the stored schema version.
var Migrations = []Migration{
	{
		Version:    1,
		Name:       "sanitize-titles",
		LegacyFlag: "titleCleanupDone",
		Apply: func(collections []domain.Collection) int {
			return rewriteTitles(collections, func(p domain.Page) string {
				return domain.SanitizeTitle(p.Title, p.URL)
			})
		},
	},
	{
		Version:    2,
		Name:       "fill-untitled",
		LegacyFlag: "untitledMigrationDone",
		Apply: func(collections []domain.Collection) int {
			return rewriteTitles(collections, func(p domain.Page) string {
				if domain.NeedsTitle(p.Title) {
					return domain.FallbackTitle(p.URL)
				}
				return p.Title
			})
		},
	},
}

func rewriteTitles(collections []domain.Collection, title func(domain.Page) string) int {
	changed := 0
	for i := range collections {
		for j := range collections[i].Pages {
			page := &collections[i].Pages[j]
			if t := title(*page); t != page.Title {
				page.Title = t
				changed++
			}
		}
	}
	return changed
}

// Migrate brings the stored document up to the latest migration and returns
// the resulting schema version.
func Migrate(ctx context.Context, store ports.DocumentStore, migrations []Migration, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = slog.Default()
	}

	current, err := schemaVersion(ctx, store, migrations)
	if err != nil {
		return 0, err
	}

	var pending []Migration
	for _, m := range migrations {
		if m.Version > current {
			pending = append(pending, m)
		}
	}
	if len(pending) == 0 {
		return current, nil
	}

	var collections []domain.Collection
	if err := store.Get(ctx, KeyCollections, &collections); err != nil && !errors.Is(err, ports.ErrKeyNotFound) {
		return current, fmt.Errorf("load collections: %w", err)
	}
	collections = domain.Normalize(collections)

	for _, m := range pending {
		changed := m.Apply(collections)
		logger.Info("migration applied", "version", m.Version, "name", m.Name, "changed", changed)
		current = m.Version
	}

	if err := store.Set(ctx, KeyCollections, collections); err != nil {
		return 0, fmt.Errorf("save collections: %w", err)
	}
	if err := store.Set(ctx, KeySchemaVersion, current); err != nil {
		return 0, fmt.Errorf("save schema version: %w", err)
	}
	return current, nil
}

// schemaVersion reads the stored version. Without one, the legacy flags of
// consecutive migrations count as applied.
func schemaVersion(ctx context.Context, store ports.DocumentStore, migrations []Migration) (int, error) {
	var version int
	err := store.Get(ctx, KeySchemaVersion, &version)
	if err == nil {
		return version, nil
	}
	if !errors.Is(err, ports.ErrKeyNotFound) {
		return 0, fmt.Errorf("load schema version: %w", err)
	}

	for _, m := range migrations {
		if m.LegacyFlag == "" {
			break
		}
		var done bool
		if err := store.Get(ctx, m.LegacyFlag, &done); err != nil || !done {
			break
		}
		version = m.Version
	}
	return version, nil
}
