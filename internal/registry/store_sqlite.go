package registry

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/mediabridge/mediabridge/internal/db"
)

const DefaultSQLiteFileName = "registry.db"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS processed (
    id TEXT NOT NULL,
    last_modified TEXT NOT NULL,
    processed_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
    PRIMARY KEY (id, last_modified)
);
`

type processedRow struct {
	ID           string `db:"id"`
	LastModified string `db:"last_modified"`
}

// SQLiteStore appends one row per key; sqlite's journal provides durability.
type SQLiteStore struct {
	db *sqlx.DB
}

func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	conn, err := db.Open(db.WithPath(path))
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(sqliteSchema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("registry: init schema: %w", err)
	}

	return &SQLiteStore{db: conn}, nil
}

func (s *SQLiteStore) Load() ([]Key, error) {
	var rows []processedRow
	if err := s.db.Select(&rows, "SELECT id, last_modified FROM processed"); err != nil {
		return nil, err
	}

	keys := make([]Key, 0, len(rows))
	for _, row := range rows {
		keys = append(keys, NewKey(row.ID, row.LastModified))
	}
	return keys, nil
}

func (s *SQLiteStore) Save(key Key, _ []Key) error {
	_, err := s.db.NamedExec(
		`INSERT OR IGNORE INTO processed (id, last_modified) VALUES (:id, :last_modified)`,
		processedRow{ID: key.ID, LastModified: key.LastModified},
	)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
