package store

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "recordings.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_CreatesTables(t *testing.T) {
	s := openTestStore(t)

	for _, table := range []string{"recordings", "chunks", "_migrations"} {
		var name string
		err := s.conn.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}

	var journalMode string
	if err := s.conn.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("PRAGMA journal_mode error = %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("journal_mode = %s, want wal", journalMode)
	}
}

func TestOpen_MigrationsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recordings.db")
	s1, err := Open(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("first Open() error = %v", err)
	}
	s1.Close()

	s2, err := Open(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("second Open() error = %v", err)
	}
	defer s2.Close()

	var count int
	if err := s2.conn.QueryRow("SELECT COUNT(*) FROM _migrations").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("migration count = %d, want 1", count)
	}
}

func TestChunksRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.CreateRecording(ctx, Recording{Name: "tab-1.webm", Width: 1280, Height: 720, Duration: 3})
	if err != nil {
		t.Fatal(err)
	}
	for _, chunk := range []string{"abc", "def", "g"} {
		if err := s.AppendChunk(ctx, id, []byte(chunk)); err != nil {
			t.Fatalf("AppendChunk error = %v", err)
		}
	}

	data, err := s.GetMediaBytes(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "abcdefg" {
		t.Errorf("GetMediaBytes = %q, want abcdefg", data)
	}

	entries, err := s.ListMedia(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Size != 7 || entries[0].MIMEType != "video/webm" || entries[0].Width != 1280 {
		t.Errorf("unexpected entries %+v", entries)
	}
	if entries[0].CreatedAt.IsZero() {
		t.Error("expected created_at to parse")
	}
}

func TestImportSplitsChunks(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	payload := bytes.Repeat([]byte{7}, ChunkSize+10)
	id, err := s.Import(ctx, Recording{Name: "big.webm"}, bytes.NewReader(payload))
	if err != nil {
		t.Fatal(err)
	}

	var chunks int
	if err := s.conn.QueryRow("SELECT COUNT(*) FROM chunks WHERE recording_id = ?", id).Scan(&chunks); err != nil {
		t.Fatal(err)
	}
	if chunks != 2 {
		t.Errorf("expected 2 chunks, got %d", chunks)
	}

	data, _ := s.GetMediaBytes(ctx, id)
	if !bytes.Equal(data, payload) {
		t.Error("imported bytes differ")
	}
}

func TestUnknownRecording(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.GetMediaBytes(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetMediaBytes error = %v, want ErrNotFound", err)
	}
	if err := s.AppendChunk(ctx, "nope", []byte("x")); !errors.Is(err, ErrNotFound) {
		t.Errorf("AppendChunk error = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete error = %v, want ErrNotFound", err)
	}
}

func TestDeleteCascades(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, _ := s.Import(ctx, Recording{Name: "a.webm"}, bytes.NewReader([]byte("data")))
	if err := s.Delete(ctx, id); err != nil {
		t.Fatal(err)
	}
	var chunks int
	_ = s.conn.QueryRow("SELECT COUNT(*) FROM chunks").Scan(&chunks)
	if chunks != 0 {
		t.Errorf("expected chunks removed, got %d", chunks)
	}
}

func TestDuplicateName(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	if _, err := s.CreateRecording(ctx, Recording{Name: "same.webm"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateRecording(ctx, Recording{Name: "same.webm"}); err == nil {
		t.Error("expected unique name violation")
	}
}
