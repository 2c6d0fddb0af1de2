// Package store keeps recordings as ordered binary chunks in sqlite, the way a
// recorder appends media segments while capture is running.
package store

import (
	"bytes"
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/keagan/tabreel/internal/media"
	"github.com/keagan/tabreel/pkg/util"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ChunkSize is the slice size Import splits a stream into
const ChunkSize = 1 << 20

// ErrNotFound is returned for unknown recording ids
var ErrNotFound = media.ErrNotFound

// Recording is the metadata written before chunks arrive
type Recording struct {
	Name     string
	MIMEType string
	Duration float64
	Width    int
	Height   int
}

type Store struct {
	conn   *sql.DB
	logger zerolog.Logger
}

// Open creates or opens the database at path and applies migrations
func Open(path string, logger zerolog.Logger) (*Store, error) {
	if err := util.EnsureDir(filepath.Dir(path)); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}

	s := &Store{conn: conn, logger: logger.With().Str("component", "store").Logger()}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) migrate() error {
	migrations, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}

	for _, m := range migrations {
		if m.IsDir() {
			continue
		}
		name := m.Name()
		if s.isMigrationApplied(name) {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		if _, err := s.conn.Exec(string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", name, err)
		}
		if _, err := s.conn.Exec("INSERT INTO _migrations (name) VALUES (?)", name); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", name, err)
		}
		s.logger.Debug().Str("name", name).Msg("applied migration")
	}
	return nil
}

func (s *Store) isMigrationApplied(name string) bool {
	var applied int
	err := s.conn.QueryRow("SELECT 1 FROM _migrations WHERE name = ?", name).Scan(&applied)
	return err == nil && applied == 1
}

// CreateRecording registers a recording and returns its id
func (s *Store) CreateRecording(ctx context.Context, rec Recording) (string, error) {
	if rec.Name == "" {
		return "", errors.New("recording name is required")
	}
	if rec.MIMEType == "" {
		rec.MIMEType = "video/webm"
	}
	id := uuid.NewString()
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO recordings (id, name, mime_type, duration, width, height) VALUES (?, ?, ?, ?, ?, ?)`,
		id, rec.Name, rec.MIMEType, rec.Duration, rec.Width, rec.Height)
	if err != nil {
		return "", fmt.Errorf("failed to create recording: %w", err)
	}
	return id, nil
}

// AppendChunk adds the next chunk of a recording
func (s *Store) AppendChunk(ctx context.Context, id string, data []byte) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var one int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM recordings WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return err
	}

	var next int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq) + 1, 0) FROM chunks WHERE recording_id = ?`, id).Scan(&next)
	if err != nil {
		return fmt.Errorf("failed to read chunk sequence: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO chunks (recording_id, seq, data) VALUES (?, ?, ?)`, id, next, data); err != nil {
		return fmt.Errorf("failed to append chunk: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE recordings SET size = size + ? WHERE id = ?`, len(data), id); err != nil {
		return fmt.Errorf("failed to update size: %w", err)
	}
	return tx.Commit()
}

// SetMetadata updates probed duration and dimensions
func (s *Store) SetMetadata(ctx context.Context, id string, duration float64, width, height int) error {
	res, err := s.conn.ExecContext(ctx,
		`UPDATE recordings SET duration = ?, width = ?, height = ? WHERE id = ?`,
		duration, width, height, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Import stores r as a new recording split into ChunkSize chunks
func (s *Store) Import(ctx context.Context, rec Recording, r io.Reader) (string, error) {
	id, err := s.CreateRecording(ctx, rec)
	if err != nil {
		return "", err
	}

	buf := make([]byte, ChunkSize)
	for {
		n, readErr := io.ReadFull(r, buf)
		if n > 0 {
			if err := s.AppendChunk(ctx, id, append([]byte(nil), buf[:n]...)); err != nil {
				_ = s.Delete(ctx, id)
				return "", err
			}
		}
		if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
			break
		}
		if readErr != nil {
			_ = s.Delete(ctx, id)
			return "", fmt.Errorf("failed to read recording: %w", readErr)
		}
	}

	s.logger.Info().Str("id", id).Str("name", rec.Name).Msg("recording imported")
	return id, nil
}

// ListMedia returns every recording, newest first
func (s *Store) ListMedia(ctx context.Context) ([]media.Entry, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, name, mime_type, duration, width, height, size, created_at FROM recordings ORDER BY created_at DESC, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []media.Entry
	for rows.Next() {
		var e media.Entry
		var created string
		if err := rows.Scan(&e.ID, &e.Name, &e.MIMEType, &e.Duration, &e.Width, &e.Height, &e.Size, &created); err != nil {
			return nil, err
		}
		e.CreatedAt, _ = time.Parse("2006-01-02T15:04:05.999Z", created)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Get returns one recording's metadata
func (s *Store) Get(ctx context.Context, id string) (media.Entry, error) {
	var e media.Entry
	var created string
	err := s.conn.QueryRowContext(ctx,
		`SELECT id, name, mime_type, duration, width, height, size, created_at FROM recordings WHERE id = ?`, id).
		Scan(&e.ID, &e.Name, &e.MIMEType, &e.Duration, &e.Width, &e.Height, &e.Size, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return e, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return e, err
	}
	e.CreatedAt, _ = time.Parse("2006-01-02T15:04:05.999Z", created)
	return e, nil
}

// GetMediaBytes concatenates a recording's chunks in order
func (s *Store) GetMediaBytes(ctx context.Context, id string) ([]byte, error) {
	if !s.exists(ctx, id) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	rows, err := s.conn.QueryContext(ctx,
		`SELECT data FROM chunks WHERE recording_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var buf bytes.Buffer
	for rows.Next() {
		var chunk []byte
		if err := rows.Scan(&chunk); err != nil {
			return nil, err
		}
		buf.Write(chunk)
	}
	return buf.Bytes(), rows.Err()
}

// Delete removes a recording and its chunks
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.conn.ExecContext(ctx, `DELETE FROM recordings WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func (s *Store) exists(ctx context.Context, id string) bool {
	var one int
	err := s.conn.QueryRowContext(ctx, `SELECT 1 FROM recordings WHERE id = ?`, id).Scan(&one)
	return err == nil
}
