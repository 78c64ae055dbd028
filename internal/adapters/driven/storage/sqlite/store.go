package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/parley/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/parley/internal/core/domain"
	"github.com/custodia-labs/parley/internal/core/ports/driven"
)

// Verify interface compliance.
var _ driven.TranscriptStore = (*Store)(nil)

// DefaultFileName is the database file created inside the data directory.
const DefaultFileName = "transcripts.db"

// Store is a SQLite-backed TranscriptStore.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store in the specified data directory.
// If dataDir is empty, defaults to ~/.parley/data.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".parley", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DefaultFileName)

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending up migrations in version order.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	pending, err := migrations.Up(fsys)
	if err != nil {
		return err
	}

	for _, m := range pending {
		if m.Version <= currentVersion {
			continue
		}
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("starting migration %s: %w", m.Name, err)
		}
		if _, err := tx.Exec(m.SQL); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("executing migration %s: %w", m.Name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %s: %w", m.Name, err)
		}
	}

	return nil
}

// SchemaVersion returns the highest applied migration.
func (s *Store) SchemaVersion() (int, error) {
	var version int
	err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	return version, err
}

// Record saves one completed turn. Re-recording an id replaces the entry.
func (s *Store) Record(ctx context.Context, entry domain.TranscriptEntry) error {
	if entry.ID == "" || entry.SessionID == "" {
		return fmt.Errorf("%w: transcript entry needs an id and a session id", domain.ErrInvalidInput)
	}

	sources := entry.Sources
	if sources == nil {
		sources = []domain.SourceRef{}
	}
	sourcesJSON, err := json.Marshal(sources)
	if err != nil {
		return fmt.Errorf("marshalling sources: %w", err)
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO transcript_entries (id, session_id, query, answer, tool, fell_back, sources, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			session_id = excluded.session_id,
			query = excluded.query,
			answer = excluded.answer,
			tool = excluded.tool,
			fell_back = excluded.fell_back,
			sources = excluded.sources,
			created_at = excluded.created_at
	`, entry.ID, entry.SessionID, entry.Query, entry.Answer, string(entry.Tool),
		boolToInt(entry.FellBack), string(sourcesJSON), entry.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("saving transcript entry: %w", err)
	}
	return nil
}

// ListSession returns a session's turns, oldest first.
func (s *Store) ListSession(ctx context.Context, sessionID string) ([]domain.TranscriptEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, query, answer, tool, fell_back, sources, created_at
		FROM transcript_entries
		WHERE session_id = ?
		ORDER BY created_at, rowid
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying transcript: %w", err)
	}
	defer rows.Close()

	var entries []domain.TranscriptEntry
	for rows.Next() {
		var (
			entry       domain.TranscriptEntry
			tool        string
			fellBack    int
			sourcesJSON string
			createdAt   int64
		)
		if err := rows.Scan(&entry.ID, &entry.SessionID, &entry.Query, &entry.Answer,
			&tool, &fellBack, &sourcesJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning transcript entry: %w", err)
		}
		if err := json.Unmarshal([]byte(sourcesJSON), &entry.Sources); err != nil {
			return nil, fmt.Errorf("unmarshalling sources: %w", err)
		}
		if len(entry.Sources) == 0 {
			entry.Sources = nil
		}
		entry.Tool = domain.RoutingTool(tool)
		entry.FellBack = fellBack != 0
		entry.CreatedAt = time.UnixMilli(createdAt)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// ListSessions returns up to limit sessions, most recently active first.
func (s *Store) ListSessions(ctx context.Context, limit int) ([]domain.SessionSummary, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, COUNT(*), MIN(created_at), MAX(created_at)
		FROM transcript_entries
		GROUP BY session_id
		ORDER BY MAX(created_at) DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.SessionSummary
	for rows.Next() {
		var (
			summary       domain.SessionSummary
			first, latest int64
		)
		if err := rows.Scan(&summary.ID, &summary.Turns, &first, &latest); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		summary.StartedAt = time.UnixMilli(first)
		summary.LastAt = time.UnixMilli(latest)
		sessions = append(sessions, summary)
	}
	return sessions, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
