// Package store persists ContinuationState blobs outside the process (spec
// §6: "a continuation blob is a portable artifact" — the spec stops at the
// wire format and leaves where it lives between processes unaddressed).
// Grounded on the teacher's pkg/pdo: a Driver selected by DSN prefix, with a
// per-engine DSN builder, generalized from "drive arbitrary SQL for a PHP
// PDO object" down to the one operation this module actually needs —
// key/blob persistence of serialized continuations.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by Load when no record matches the given key.
var ErrNotFound = errors.New("store: continuation not found")

// Record is one persisted continuation: its serialized form (however
// serialize.BinaryCodec/JSONCodec produced it), the codec that produced it,
// the outermost entry point's method token (so a host can re-dispatch
// without deserializing first), and bookkeeping timestamps.
type Record struct {
	Key         string
	MethodToken int32
	Format      string // "binary" or "json", matching serialize's codecs
	Data        []byte
	UpdatedAt   time.Time
}

// ContinuationStore persists and retrieves Records by an opaque caller-chosen
// key (spec-full supplement: a ScriptInstance's ExternalID is a natural
// choice, but the store itself is agnostic to what the key means).
type ContinuationStore interface {
	Save(ctx context.Context, rec Record) error
	Load(ctx context.Context, key string) (Record, error)
	Delete(ctx context.Context, key string) error
	Close() error
}

// sqlStore implements ContinuationStore over database/sql, with the
// engine-specific differences (placeholder style, schema DDL) isolated in
// dialect.
type sqlStore struct {
	db      *sql.DB
	dialect dialect
}

// dialect captures the handful of ways the three engines differ for this
// package's one table, mirroring how pkg/pdo isolates per-engine DSN
// construction rather than per-engine query construction — here the query
// shape is identical across engines, only placeholder syntax and the
// CREATE TABLE statement differ.
type dialect struct {
	name        string
	createTable string
	placeholder func(n int) string // n is the 1-based parameter position
}

func (s *sqlStore) Save(ctx context.Context, rec Record) error {
	var query string
	switch s.dialect.name {
	case "mysql":
		query = "INSERT INTO continuum_states (`key`, method_token, format, data, updated_at)" +
			" VALUES (?, ?, ?, ?, ?)" +
			" ON DUPLICATE KEY UPDATE method_token = VALUES(method_token)," +
			" format = VALUES(format), data = VALUES(data), updated_at = VALUES(updated_at)"
	default: // postgres, sqlite
		col := keyColumn(s.dialect.name)
		query = fmt.Sprintf(
			`INSERT INTO continuum_states (%s, method_token, format, data, updated_at)
			 VALUES (%s, %s, %s, %s, %s)
			 ON CONFLICT (%s) DO UPDATE SET
			   method_token = excluded.method_token,
			   format = excluded.format,
			   data = excluded.data,
			   updated_at = excluded.updated_at`,
			col,
			s.dialect.placeholder(1), s.dialect.placeholder(2), s.dialect.placeholder(3),
			s.dialect.placeholder(4), s.dialect.placeholder(5),
			col,
		)
	}

	updatedAt := rec.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, query, rec.Key, rec.MethodToken, rec.Format, rec.Data, updatedAt)
	if err != nil {
		return fmt.Errorf("store: save %q: %w", rec.Key, err)
	}
	return nil
}

func (s *sqlStore) Load(ctx context.Context, key string) (Record, error) {
	query := fmt.Sprintf(
		`SELECT method_token, format, data, updated_at FROM continuum_states WHERE %s = %s`,
		keyColumn(s.dialect.name), s.dialect.placeholder(1),
	)
	var rec Record
	rec.Key = key
	row := s.db.QueryRowContext(ctx, query, key)
	if err := row.Scan(&rec.MethodToken, &rec.Format, &rec.Data, &rec.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, fmt.Errorf("%w: %q", ErrNotFound, key)
		}
		return Record{}, fmt.Errorf("store: load %q: %w", key, err)
	}
	return rec, nil
}

func (s *sqlStore) Delete(ctx context.Context, key string) error {
	query := fmt.Sprintf(`DELETE FROM continuum_states WHERE %s = %s`,
		keyColumn(s.dialect.name), s.dialect.placeholder(1))
	_, err := s.db.ExecContext(ctx, query, key)
	if err != nil {
		return fmt.Errorf("store: delete %q: %w", key, err)
	}
	return nil
}

func (s *sqlStore) Close() error {
	return s.db.Close()
}

// keyColumn quotes the reserved word "key" for engines that need it.
func keyColumn(engine string) string {
	switch engine {
	case "mysql":
		return "`key`"
	case "postgres":
		return `"key"`
	default:
		return "key"
	}
}
