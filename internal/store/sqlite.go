package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mintchat/mintchat/internal/nft"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS mints (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		image TEXT NOT NULL,
		prompt TEXT NOT NULL,
		wallet TEXT NOT NULL,
		tx_hash TEXT NOT NULL,
		minted_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_mints_minted_at ON mints(minted_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}

const walletKey = "wallet_address"

// Wallet returns the saved wallet address, or "" when none is saved.
func (s *SQLiteStore) Wallet(ctx context.Context) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, walletKey).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query wallet: %w", err)
	}
	return value, nil
}

// SaveWallet stores the wallet address, replacing any previous one.
func (s *SQLiteStore) SaveWallet(ctx context.Context, address string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		walletKey, address, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("save wallet: %w", err)
	}
	return nil
}

// RecordMint appends a completed mint to the local log.
func (s *SQLiteStore) RecordMint(ctx context.Context, d nft.Descriptor) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO mints (image, prompt, wallet, tx_hash, minted_at) VALUES (?, ?, ?, ?, ?)`,
		d.Image, d.Prompt, d.Wallet, d.Hash, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("record mint: %w", err)
	}
	return nil
}

// Mints returns all recorded mints, most recent first.
func (s *SQLiteStore) Mints(ctx context.Context) ([]MintRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT image, prompt, wallet, tx_hash, minted_at FROM mints ORDER BY minted_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query mints: %w", err)
	}
	defer rows.Close()

	var records []MintRecord
	for rows.Next() {
		var rec MintRecord
		if err := rows.Scan(&rec.Descriptor.Image, &rec.Descriptor.Prompt,
			&rec.Descriptor.Wallet, &rec.Descriptor.Hash, &rec.MintedAt); err != nil {
			return nil, fmt.Errorf("scan mint row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mint rows: %w", err)
	}
	return records, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
