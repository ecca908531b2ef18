// Package sqlite implements the resume ledger on an embedded SQLite
// database. The database lives next to the other per-user state under
// the application directory and is migrated in place on open.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/narrata-labs/narrata-cli/internal/adapters/driven/state/sqlite/migrations"
	"github.com/narrata-labs/narrata-cli/internal/core/domain"
	"github.com/narrata-labs/narrata-cli/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.RunStore = (*Store)(nil)

// Store is the SQLite-backed run ledger.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (or creates) the ledger database in dataDir.
// If dataDir is empty, defaults to ~/.narrata/data.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".narrata", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "runs.db")

	// WAL mode keeps concurrent chapter updates from blocking reads.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{db: db, path: dbPath}
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

// FindRun returns the run recorded for an output path.
func (s *Store) FindRun(ctx context.Context, outputPath string) (*domain.Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, output_path, book_title, chapter_count, created_at, completed_at
		FROM runs WHERE output_path = ?
	`, outputPath)

	var (
		run         domain.Run
		completedAt sql.NullTime
	)
	err := row.Scan(&run.ID, &run.OutputPath, &run.BookTitle, &run.ChapterCount, &run.CreatedAt, &completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run for %s: %w", outputPath, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying run: %w", err)
	}
	if completedAt.Valid {
		t := completedAt.Time
		run.CompletedAt = &t
	}
	return &run, nil
}

// CreateRun persists a new run.
func (s *Store) CreateRun(ctx context.Context, run domain.Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, output_path, book_title, chapter_count, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, NULL)
	`, run.ID, run.OutputPath, run.BookTitle, run.ChapterCount, run.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}
	return nil
}

// DeleteRun removes a run; its chapter rows go with it via the
// foreign key cascade.
func (s *Store) DeleteRun(ctx context.Context, runID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, runID)
	if err != nil {
		return fmt.Errorf("deleting run: %w", err)
	}
	return nil
}

// MarkChapterDone records a finished chapter. Re-recording the same
// chapter overwrites the previous row.
func (s *Store) MarkChapterDone(ctx context.Context, runID string, status domain.ChapterStatus) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO run_chapters (run_id, chapter, path, duration)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (run_id, chapter) DO UPDATE SET path = excluded.path, duration = excluded.duration
	`, runID, status.Chapter, status.Path, status.Duration)
	if err != nil {
		return fmt.Errorf("recording chapter %d: %w", status.Chapter, err)
	}
	return nil
}

// ChapterStatuses returns a run's finished chapters in index order.
func (s *Store) ChapterStatuses(ctx context.Context, runID string) ([]domain.ChapterStatus, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT chapter, path, duration FROM run_chapters
		WHERE run_id = ? ORDER BY chapter
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying chapters: %w", err)
	}
	defer rows.Close()

	var statuses []domain.ChapterStatus
	for rows.Next() {
		var st domain.ChapterStatus
		if err := rows.Scan(&st.Chapter, &st.Path, &st.Duration); err != nil {
			return nil, fmt.Errorf("scanning chapter row: %w", err)
		}
		statuses = append(statuses, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chapter rows: %w", err)
	}
	return statuses, nil
}

// CompleteRun stamps a run as successfully packaged.
func (s *Store) CompleteRun(ctx context.Context, runID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET completed_at = ? WHERE id = ?
	`, time.Now().UTC(), runID)
	if err != nil {
		return fmt.Errorf("completing run: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("completing run: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("run %s: %w", runID, domain.ErrNotFound)
	}
	return nil
}

// migrate applies embedded up migrations newer than the current
// schema version.
func (s *Store) migrate(fsys embed.FS) error {
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

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}
	return nil
}
