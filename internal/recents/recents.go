// Package recents persists a small MRU index of recently connected
// hosts, used to add a recency boost on top of internal/catalog's
// search scoring. It is additive ranking data, not part of the
// catalog's own correctness invariants: a missing or corrupt recents
// database degrades gracefully to "no boost", never to an error the
// caller must surface.
package recents

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps the recents database. A nil *Store (construction failed)
// is valid to call Boosts/Touch on; both become no-ops.
type Store struct {
	db *sql.DB
}

const recencyBoostMax = 40

// OpenDefault opens (creating if absent) the recents database at the
// fixed path $HOME/.csh/recents.db and applies any pending migrations.
func OpenDefault() (*Store, error) {
	path, err := dbPath()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create recents dir: %w", err)
	}
	return Open(path)
}

// Open opens the recents database at dsn (a file path, or ":memory:"
// for tests) and applies any pending migrations.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open recents db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate recents db: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version TEXT PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, f := range files {
		var applied int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_migrations WHERE version = ?", f).Scan(&applied); err != nil {
			return fmt.Errorf("check migration %s: %w", f, err)
		}
		if applied > 0 {
			continue
		}
		content, err := migrationsFS.ReadFile("migrations/" + f)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", f, err)
		}
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin tx for %s: %w", f, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("exec migration %s: %w", f, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", f); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %s: %w", f, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", f, err)
		}
	}
	return nil
}

// Touch records a successful connection to hostName now, incrementing
// its visit count. A nil Store is a silent no-op.
func (s *Store) Touch(hostName string) error {
	if s == nil || s.db == nil {
		return nil
	}
	_, err := s.db.Exec(`INSERT INTO recents (host_name, visit_count, last_connected)
		VALUES (?, 1, ?)
		ON CONFLICT(host_name) DO UPDATE SET
			visit_count = visit_count + 1,
			last_connected = excluded.last_connected`,
		hostName, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("touch recent %q: %w", hostName, err)
	}
	return nil
}

// Boosts returns a host-name -> additive score map for every host ever
// touched (the 50 most recent), ranked by last connection time only —
// visit count does not affect the score — with the most recent highest,
// capped at
// recencyBoostMax. internal/tui adds a boost only to the score of a host
// that already matches the query; query results keep tree order, so the
// boost changes neither which hosts are shown nor their order. A nil
// Store, or any query failure, returns an empty map rather than an
// error: recency is a nice-to-have, not a dependency the rest of the
// search path should fail on.
func (s *Store) Boosts() map[string]int {
	if s == nil || s.db == nil {
		return nil
	}
	rows, err := s.db.Query(`SELECT host_name, visit_count, last_connected FROM recents
		ORDER BY last_connected DESC LIMIT 50`)
	if err != nil {
		return nil
	}
	defer rows.Close()

	out := make(map[string]int)
	rank := 0
	for rows.Next() {
		var name string
		var visits int
		var lastConnected time.Time
		if err := rows.Scan(&name, &visits, &lastConnected); err != nil {
			continue
		}
		boost := recencyBoostMax - rank
		if boost < 1 {
			boost = 1
		}
		out[name] = boost
		rank++
	}
	return out
}

func dbPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".csh", "recents.db"), nil
}
