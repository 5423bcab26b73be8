package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/DenQuizon/comet-collections-extension/pkg/ports"
	_ "github.com/lib/pq"                                // Postgres driver
	_ "github.com/tursodatabase/libsql-client-go/libsql" // Turso driver
	_ "modernc.org/sqlite"                               // Local SQLite driver
)

// SQLiteRepository keeps every document in one key/value table. The name is
// historical: the same table works on libsql and Postgres.
type SQLiteRepository struct {
	db       *sql.DB
	postgres bool
}

func NewSQLiteRepository(dbURL string) (*SQLiteRepository, error) {
	driverName := driverFor(dbURL)

	db, err := sql.Open(driverName, dbURL)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	r := &SQLiteRepository{db: db, postgres: driverName == "postgres"}
	if err := r.migrate(); err != nil {
		return nil, err
	}

	return r, nil
}

func driverFor(dbURL string) string {
	switch {
	case strings.HasPrefix(dbURL, "postgres://"), strings.HasPrefix(dbURL, "postgresql://"):
		return "postgres"
	case strings.Contains(dbURL, "libsql://"), strings.Contains(dbURL, "wss://"):
		return "libsql"
	}
	return "sqlite"
}

func (r *SQLiteRepository) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS storage (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`
	_, err := r.db.Exec(query)
	return err
}

// rebind rewrites ? placeholders as $n for Postgres.
func (r *SQLiteRepository) rebind(query string) string {
	if !r.postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

func (r *SQLiteRepository) Get(ctx context.Context, key string, dst any) error {
	query := r.rebind(`SELECT value FROM storage WHERE key = ?`)

	var value string
	err := r.db.QueryRowContext(ctx, query, key).Scan(&value)
	if err == sql.ErrNoRows {
		return ports.ErrKeyNotFound
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(value), dst); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (r *SQLiteRepository) Set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	query := r.rebind(`INSERT INTO storage (key, value, updated_at) VALUES (?, ?, ?)
			  ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`)
	_, err = r.db.ExecContext(ctx, query, key, string(data), time.Now().UTC())
	return err
}

func (r *SQLiteRepository) Delete(ctx context.Context, key string) error {
	query := r.rebind(`DELETE FROM storage WHERE key = ?`)
	_, err := r.db.ExecContext(ctx, query, key)
	return err
}

func (r *SQLiteRepository) Has(ctx context.Context, key string) (bool, error) {
	query := r.rebind(`SELECT COUNT(1) FROM storage WHERE key = ?`)

	var n int
	if err := r.db.QueryRowContext(ctx, query, key).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// Keys lists stored keys, used by the CLI for diagnostics.
func (r *SQLiteRepository) Keys(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key FROM storage ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// Ensure interface compliance
var _ ports.DocumentStore = (*SQLiteRepository)(nil)
