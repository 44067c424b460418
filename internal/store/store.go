package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/ademuri/taste-genealogy/internal/analysis"
)

// ErrNoGenres is returned by LoadTaxonomy before any genres have been seeded.
// It wraps analysis.ErrNoTaxonomy.
var ErrNoGenres = fmt.Errorf("no genres in database: %w", analysis.ErrNoTaxonomy)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection, so a :memory: database is the same across queries.
	db.SetMaxOpenConns(1)

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

const createSQL = `
CREATE TABLE IF NOT EXISTS User (
  name TEXT PRIMARY KEY,
  created_at DATETIME
);

CREATE TABLE IF NOT EXISTS Track (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user TEXT NOT NULL,
  title TEXT NOT NULL DEFAULT '',
  artist TEXT NOT NULL DEFAULT '',
  tempo REAL,
  energy REAL,
  valence REAL,
  genre_tag TEXT NOT NULL DEFAULT '',
  musical_key TEXT NOT NULL DEFAULT '',
  play_count INTEGER NOT NULL DEFAULT 0,
  rating INTEGER NOT NULL DEFAULT 0,
  source TEXT NOT NULL DEFAULT 'upload',
  duration_seconds REAL NOT NULL DEFAULT 0,
  imported_at DATETIME,
  FOREIGN KEY (user) REFERENCES User(name)
);

CREATE INDEX IF NOT EXISTS TrackUser ON Track (user, source);

CREATE TABLE IF NOT EXISTS Genre (
  id INTEGER PRIMARY KEY,
  name TEXT NOT NULL,
  slug TEXT NOT NULL UNIQUE,
  parent_id INTEGER,
  era_start INTEGER NOT NULL DEFAULT 0,
  era_end INTEGER NOT NULL DEFAULT 0,
  tempo_min REAL NOT NULL,
  tempo_max REAL NOT NULL,
  energy_min REAL NOT NULL,
  energy_max REAL NOT NULL,
  origin_location TEXT NOT NULL DEFAULT '',
  cultural_context TEXT NOT NULL DEFAULT '',
  description TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS GenealogyCache (
  user TEXT NOT NULL,
  mode TEXT NOT NULL,
  granularity TEXT NOT NULL,
  content_hash TEXT NOT NULL,
  computed_at DATETIME NOT NULL,
  payload BLOB NOT NULL,
  PRIMARY KEY (user, mode, granularity)
);

CREATE TABLE IF NOT EXISTS AnalysisHistory (
  run_id TEXT PRIMARY KEY,
  user TEXT NOT NULL,
  mode TEXT NOT NULL,
  granularity TEXT NOT NULL,
  track_count INTEGER NOT NULL,
  avg_tempo REAL NOT NULL DEFAULT 0,
  avg_energy REAL NOT NULL DEFAULT 0,
  primary_genre TEXT NOT NULL DEFAULT '',
  coherence REAL NOT NULL DEFAULT 0,
  created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS AnalysisHistoryUser ON AnalysisHistory (user, created_at);
`

func createTables(db *sql.DB) error {
	if _, err := db.Exec(createSQL); err != nil {
		return fmt.Errorf("executing schema: %w", err)
	}
	return nil
}

// ensureSchema adds columns introduced after the first schema version.
func ensureSchema(db *sql.DB) error {
	// Perceived tempo for half-time material.
	if err := addColumnIfNotExists(db, "Track", "effective_tempo", "REAL"); err != nil {
		return err
	}
	if err := addColumnIfNotExists(db, "Track", "enriched_valence", "REAL"); err != nil {
		return err
	}
	// Set when enrich-tags filled genre_tag from last.fm.
	if err := addColumnIfNotExists(db, "Track", "tag_source", "TEXT NOT NULL DEFAULT ''"); err != nil {
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
		var (
			cid     int
			name    string
			ctype   string
			notnull int
			dflt    interface{}
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return false, err
		}
		if name == columnName {
			return true, nil
		}
	}
	return false, rows.Err()
}

// isBusy reports whether err is a transient SQLite lock error worth retrying.
func isBusy(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked
	}
	return false
}
