// Package store persists subscription records in an embedded sqlite
// database: one durable key-value region mapping feed URLs to opaque binary
// records.
package store

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/Shadow3301/rssbot/internal/application/usecase"
	"github.com/Shadow3301/rssbot/internal/domain/subscription"
)

const schema = `
CREATE TABLE IF NOT EXISTS subscriptions (
	url    TEXT PRIMARY KEY,
	record BLOB NOT NULL
);`

// Store is a sqlite-backed usecase.Repository. Writes are write-through:
// once Put or Remove returns, the change has been committed to disk. A
// single connection serializes access, so a reader never observes a
// half-written record.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

// Open opens (creating if needed) the store at path. An error here is
// expected to be fatal to the process; the store is foundational state.
func Open(path string, log *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, &usecase.StoreError{Op: "open", Err: err}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=synchronous(FULL)")
	if err != nil {
		return nil, &usecase.StoreError{Op: "open", Err: err}
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, &usecase.StoreError{Op: "open", Err: err}
	}
	return &Store{db: db, log: log}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the record stored for url, or (nil, nil) when there is none.
func (s *Store) Get(ctx context.Context, url string) (*subscription.Subscription, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT record FROM subscriptions WHERE url = ?`, url).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &usecase.StoreError{Op: "get", Key: url, Err: err}
	}
	sub, err := subscription.Decode(blob)
	if err != nil {
		return nil, &usecase.StoreError{Op: "get", Key: url, Err: err}
	}
	return sub, nil
}

// Put stores sub under url, replacing any previous record atomically.
func (s *Store) Put(ctx context.Context, url string, sub *subscription.Subscription) error {
	blob, err := sub.Encode()
	if err != nil {
		return &usecase.StoreError{Op: "put", Key: url, Err: err}
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO subscriptions (url, record) VALUES (?, ?)
		 ON CONFLICT(url) DO UPDATE SET record = excluded.record`, url, blob)
	if err != nil {
		return &usecase.StoreError{Op: "put", Key: url, Err: err}
	}
	return nil
}

// Remove deletes the record stored for url. Removing an absent key is not
// an error.
func (s *Store) Remove(ctx context.Context, url string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE url = ?`, url); err != nil {
		return &usecase.StoreError{Op: "remove", Key: url, Err: err}
	}
	return nil
}

// List returns a fresh snapshot of every stored subscription. A record that
// fails to decode is logged with its key and skipped, so one corrupt row
// cannot take down a whole sweep.
func (s *Store) List(ctx context.Context) ([]usecase.StoreEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT url, record FROM subscriptions ORDER BY url`)
	if err != nil {
		return nil, &usecase.StoreError{Op: "list", Err: err}
	}
	defer func() { _ = rows.Close() }()

	var entries []usecase.StoreEntry
	for rows.Next() {
		var url string
		var blob []byte
		if err := rows.Scan(&url, &blob); err != nil {
			return nil, &usecase.StoreError{Op: "list", Err: err}
		}
		sub, err := subscription.Decode(blob)
		if err != nil {
			s.log.Error("skipping undecodable subscription record",
				slog.String("url", url),
				slog.Any("error", err),
			)
			continue
		}
		entries = append(entries, usecase.StoreEntry{URL: url, Subscription: sub})
	}
	if err := rows.Err(); err != nil {
		return nil, &usecase.StoreError{Op: "list", Err: err}
	}
	return entries, nil
}
