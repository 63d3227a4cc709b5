package importer

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SourceStatus is the last known state of one configured source.
type SourceStatus struct {
	Name         string  `json:"name"`
	Kind         string  `json:"kind"`
	Path         string  `json:"path"`
	LastCheck    *int64  `json:"last_check,omitempty"`
	LastStatus   *int    `json:"last_status,omitempty"`
	LastError    *string `json:"last_error,omitempty"`
	LastIngest   *int64  `json:"last_ingest,omitempty"`
	LastIndexed  *int    `json:"last_indexed,omitempty"`
	LastRejected *int    `json:"last_rejected,omitempty"`
	UpdatedAt    int64   `json:"updated_at"`
}

// StatusDB keeps source availability and ingest history in SQLite.
// The name directory itself is never stored.
type StatusDB struct {
	db *sql.DB
}

// OpenStatusDB opens (or creates) the database at path.
func OpenStatusDB(path string) (*StatusDB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open status db: %w", err)
	}

	const ddl = `CREATE TABLE IF NOT EXISTS source_status (
		name          TEXT PRIMARY KEY,
		kind          TEXT NOT NULL,
		path          TEXT NOT NULL,
		last_check    INTEGER,
		last_status   INTEGER,
		last_error    TEXT,
		last_ingest   INTEGER,
		last_indexed  INTEGER,
		last_rejected INTEGER,
		updated_at    INTEGER NOT NULL
	)`
	if _, err := db.Exec(ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("create source_status table: %w", err)
	}
	return &StatusDB{db: db}, nil
}

func (s *StatusDB) Close() error {
	return s.db.Close()
}

// Sync registers the configured specs. Rows of known sources keep their
// history; a changed kind or path is updated.
func (s *StatusDB) Sync(specs []Spec) error {
	const q = `INSERT INTO source_status (name, kind, path, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET kind = excluded.kind, path = excluded.path, updated_at = excluded.updated_at
		WHERE kind <> excluded.kind OR path <> excluded.path`

	now := time.Now().Unix()
	for _, spec := range specs {
		if _, err := s.db.Exec(q, spec.Name, spec.Kind, spec.Path, now); err != nil {
			return fmt.Errorf("sync %s: %w", spec.Name, err)
		}
	}
	return nil
}

// RecordCheck persists the result of an availability check.
func (s *StatusDB) RecordCheck(name string, status int, checkErr string) error {
	_, err := s.db.Exec(
		`UPDATE source_status SET last_check = ?, last_status = ?, last_error = ? WHERE name = ?`,
		time.Now().Unix(), status, nullable(checkErr), name,
	)
	if err != nil {
		return fmt.Errorf("record check for %s: %w", name, err)
	}
	return nil
}

// RecordIngest persists an ingest outcome. A failed ingest keeps the
// previous counts unless res is non-nil.
func (s *StatusDB) RecordIngest(spec Spec, res *Result, ingestErr error) error {
	var (
		indexed, rejected *int
		msg               string
	)
	if res != nil {
		indexed, rejected = &res.Indexed, &res.Rejected
	}
	if ingestErr != nil {
		msg = ingestErr.Error()
	}
	_, err := s.db.Exec(
		`UPDATE source_status SET last_ingest = ?, last_indexed = COALESCE(?, last_indexed),
			last_rejected = COALESCE(?, last_rejected), last_error = ? WHERE name = ?`,
		time.Now().Unix(), indexed, rejected, nullable(msg), spec.Name,
	)
	if err != nil {
		return fmt.Errorf("record ingest for %s: %w", spec.Name, err)
	}
	return nil
}

// List returns every source ordered by name.
func (s *StatusDB) List() ([]SourceStatus, error) {
	rows, err := s.db.Query(`SELECT name, kind, path, last_check, last_status, last_error,
		last_ingest, last_indexed, last_rejected, updated_at
		FROM source_status ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var out []SourceStatus
	for rows.Next() {
		var st SourceStatus
		if err := rows.Scan(&st.Name, &st.Kind, &st.Path, &st.LastCheck, &st.LastStatus, &st.LastError,
			&st.LastIngest, &st.LastIndexed, &st.LastRejected, &st.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
