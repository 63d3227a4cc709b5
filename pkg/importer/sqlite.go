// CLAUDE:SUMMARY SQLite name source running a configured query that yields (name, id) rows.
package importer

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	_ "modernc.org/sqlite"
)

func init() {
	Register(&sqliteAdapter{})
}

type sqliteAdapter struct{}

func (a *sqliteAdapter) Kind() string        { return "sqlite" }
func (a *sqliteAdapter) Description() string { return "SQLite database queried for (name, id) rows" }

func (a *sqliteAdapter) Read(ctx context.Context, spec *Spec, path string, emit func(Record) error) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("sqlite source: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return fmt.Errorf("open sqlite source: %w", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, spec.Query)
	if err != nil {
		return fmt.Errorf("query %s: %w", spec.Name, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("columns: %w", err)
	}
	if len(cols) != 2 {
		return fmt.Errorf("query %s: want 2 columns (name, id), got %d", spec.Name, len(cols))
	}

	for rows.Next() {
		var name sql.NullString
		var id any
		if err := rows.Scan(&name, &id); err != nil {
			return fmt.Errorf("scan row: %w", err)
		}
		if !name.Valid || strings.TrimSpace(name.String) == "" || id == nil {
			continue
		}
		rec := Record{Name: name.String, ID: formatID(id)}
		if err := emit(rec); err != nil {
			return err
		}
	}
	return rows.Err()
}

func formatID(v any) string {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}
