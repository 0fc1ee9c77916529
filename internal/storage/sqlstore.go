package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lehigh-university-libraries/partident/internal/models"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

// SQLStore persists sessions, their images and matches, and the parts catalog in SQLite.
type SQLStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLStore opens (or creates) the database at path and applies the schema.
// Use ":memory:" for a throwaway database.
func OpenSQLStore(ctx context.Context, path string) (*SQLStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	// a single connection serializes writers and keeps ":memory:" databases shared
	db.SetMaxOpenConns(1)

	store := NewSQLStore(db)
	if err := store.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLStore wraps an already opened database. Call Migrate before use.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, now: time.Now}
}

// Migrate applies the embedded schema. It is idempotent.
func (s *SQLStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// CreateSession inserts a new session row and returns its id.
func (s *SQLStore) CreateSession(ctx context.Context, summary string, totalMatches int) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO recognition_sessions (id, created_at, summary, total_matches) VALUES (?, ?, ?, ?)`,
		id, s.now().UTC().UnixNano(), summary, totalMatches)
	if err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	slog.Debug("Created session", "session_id", id, "total_matches", totalMatches)
	return id, nil
}

// RecordImage links a stored image to a session.
func (s *SQLStore) RecordImage(ctx context.Context, sessionID, imageURL, angleLabel string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO captured_images (session_id, image_url, angle_label) VALUES (?, ?, ?)`,
		sessionID, imageURL, angleLabel)
	if err != nil {
		return fmt.Errorf("failed to record image for session %s: %w", sessionID, err)
	}
	return nil
}

// RecordMatches writes all matches of a session in one transaction.
func (s *SQLStore) RecordMatches(ctx context.Context, sessionID string, matches []models.AutoPart) error {
	if len(matches) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO recognition_matches
  (session_id, part_number, part_name, station, model, color, match_percentage, description, category)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare match insert: %w", err)
	}
	defer stmt.Close()

	for _, m := range matches {
		if _, err := stmt.ExecContext(ctx, sessionID, m.PartNumber, m.PartName, m.Station, m.Model, m.Color, m.MatchPercentage, m.Description, m.Category); err != nil {
			return fmt.Errorf("failed to record match %s for session %s: %w", m.PartNumber, sessionID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit matches: %w", err)
	}
	return nil
}

// ListRecentSessions returns sessions newest first with their images and matches.
// limit is clamped to models.HistoryLimit.
func (s *SQLStore) ListRecentSessions(ctx context.Context, limit int) ([]models.Session, error) {
	if limit <= 0 || limit > models.HistoryLimit {
		limit = models.HistoryLimit
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, created_at, summary, total_matches
FROM recognition_sessions
ORDER BY created_at DESC, rowid DESC
LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	var sessions []models.Session
	for rows.Next() {
		var (
			session models.Session
			created int64
		)
		if err := rows.Scan(&session.ID, &created, &session.Summary, &session.TotalMatches); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		session.CreatedAt = time.Unix(0, created).UTC()
		sessions = append(sessions, session)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}

	// rows must be closed before these queries when the pool holds one connection
	for i := range sessions {
		if sessions[i].Images, err = s.sessionImages(ctx, sessions[i].ID); err != nil {
			return nil, err
		}
		if sessions[i].Matches, err = s.sessionMatches(ctx, sessions[i].ID); err != nil {
			return nil, err
		}
	}

	return sessions, nil
}

func (s *SQLStore) sessionImages(ctx context.Context, sessionID string) ([]models.CapturedImage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT image_url, angle_label FROM captured_images WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list images for session %s: %w", sessionID, err)
	}
	defer rows.Close()

	images := []models.CapturedImage{}
	for rows.Next() {
		var img models.CapturedImage
		if err := rows.Scan(&img.ImageURL, &img.AngleLabel); err != nil {
			return nil, fmt.Errorf("failed to scan image: %w", err)
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

func (s *SQLStore) sessionMatches(ctx context.Context, sessionID string) ([]models.AutoPart, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT part_number, part_name, station, model, color, match_percentage, description, category
FROM recognition_matches WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches for session %s: %w", sessionID, err)
	}
	defer rows.Close()

	matches := []models.AutoPart{}
	for rows.Next() {
		var m models.AutoPart
		if err := rows.Scan(&m.PartNumber, &m.PartName, &m.Station, &m.Model, &m.Color, &m.MatchPercentage, &m.Description, &m.Category); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// UpsertCatalogRows inserts or overwrites catalog rows keyed by part number.
// Later rows in the same batch win over earlier ones.
func (s *SQLStore) UpsertCatalogRows(ctx context.Context, rows []models.CatalogItem) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO parts_catalog (part_number, part_name, station, updated_at) VALUES (?, ?, ?, ?)
ON CONFLICT(part_number) DO UPDATE SET
  part_name = excluded.part_name,
  station = excluded.station,
  updated_at = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("failed to prepare catalog upsert: %w", err)
	}
	defer stmt.Close()

	now := s.now().UTC().UnixNano()
	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row.PartNumber, row.PartName, row.Station, now); err != nil {
			return fmt.Errorf("failed to upsert catalog row %s: %w", row.PartNumber, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit catalog rows: %w", err)
	}
	slog.Debug("Upserted catalog rows", "count", len(rows))
	return nil
}

// ListCatalog returns the full catalog ordered by part number.
func (s *SQLStore) ListCatalog(ctx context.Context) ([]models.CatalogItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT part_number, part_name, station FROM parts_catalog ORDER BY part_number`)
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog: %w", err)
	}
	defer rows.Close()

	items := []models.CatalogItem{}
	for rows.Next() {
		var item models.CatalogItem
		if err := rows.Scan(&item.PartNumber, &item.PartName, &item.Station); err != nil {
			return nil, fmt.Errorf("failed to scan catalog row: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
