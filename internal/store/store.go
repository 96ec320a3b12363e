// Package store archives finished era runs and caches artist tags in a
// SQLite database.
package store

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// ErrRunNotFound is returned when no archived run has the requested id.
var ErrRunNotFound = errors.New("run not found")

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

const createRunTables = `
CREATE TABLE IF NOT EXISTS Run (
  id TEXT PRIMARY KEY,
  created DATETIME NOT NULL,
  source TEXT,
  status TEXT NOT NULL,
  threshold REAL,
  min_weeks INTEGER,
  min_ms INTEGER,
  total_tracks INTEGER,
  total_artists INTEGER,
  total_ms INTEGER,
  first_listen DATETIME,
  last_listen DATETIME
);

CREATE TABLE IF NOT EXISTS Era (
  run TEXT NOT NULL,
  id INTEGER NOT NULL,
  title TEXT,
  summary TEXT,
  start_date DATETIME NOT NULL,
  end_date DATETIME NOT NULL,
  total_ms INTEGER,
  FOREIGN KEY (run) REFERENCES Run(id) ON DELETE CASCADE,
  PRIMARY KEY (run, id)
);

CREATE TABLE IF NOT EXISTS EraArtist (
  run TEXT NOT NULL,
  era INTEGER NOT NULL,
  rank INTEGER NOT NULL,
  name TEXT NOT NULL,
  plays INTEGER,
  FOREIGN KEY (run, era) REFERENCES Era(run, id) ON DELETE CASCADE,
  PRIMARY KEY (run, era, rank)
);

CREATE TABLE IF NOT EXISTS EraTrack (
  run TEXT NOT NULL,
  era INTEGER NOT NULL,
  rank INTEGER NOT NULL,
  track TEXT NOT NULL,
  artist TEXT NOT NULL,
  plays INTEGER,
  FOREIGN KEY (run, era) REFERENCES Era(run, id) ON DELETE CASCADE,
  PRIMARY KEY (run, era, rank)
);
`

const createTagTables = `
CREATE TABLE IF NOT EXISTS Artist (
  name TEXT PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS Tag (
  name TEXT PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS ArtistTag (
  artist TEXT,
  tag TEXT,
  count INTEGER,
  FOREIGN KEY (artist) REFERENCES Artist(name),
  FOREIGN KEY (tag) REFERENCES Tag(name),
  PRIMARY KEY (artist, tag)
);
`

func createTables(db *sql.DB) error {
	if _, err := db.Exec(createRunTables); err != nil {
		return fmt.Errorf("creating run tables: %w", err)
	}
	if _, err := db.Exec(createTagTables); err != nil {
		return fmt.Errorf("creating tag tables: %w", err)
	}
	return nil
}

func ensureSchema(db *sql.DB) error {
	// Artist.tags_last_updated
	if err := addColumnIfNotExists(db, "Artist", "tags_last_updated", "DATETIME"); err != nil {
		return err
	}
	return nil
}

func addColumnIfNotExists(db *sql.DB, table, column, typeDef string) error {
	exists, err := columnExists(db, table, column)
	if err != nil {
		return fmt.Errorf("checking column %s.%s: %w", table, column, err)
	}
	if !exists {
		query := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, typeDef)
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("adding column %s.%s: %w", table, column, err)
		}
	}
	return nil
}

func columnExists(db *sql.DB, tableName string, columnName string) (bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", tableName))
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name string
		var ctype string
		var notnull int
		var dfltValue any
		var pk int
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			return false, err
		}
		if name == columnName {
			return true, nil
		}
	}
	return false, rows.Err()
}
