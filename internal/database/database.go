package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"

	"github.com/Mahbub143625/telegram-booking-bot/internal/models"
)

// DB wraps the sqlite connection shared by the catalog, ledger and session
// store. The database is the single point of coordination between front-end
// processes, so every check-then-write goes through a transaction here.
type DB struct {
	*sql.DB
	logger *zerolog.Logger
}

var (
	// ErrNotFound is returned when a booking, service or resource id does
	// not exist.
	ErrNotFound = errors.New("not found")
	// ErrCapacityExceeded is the expected outcome of creating a booking on
	// a slot that filled up between listing and confirmation. Callers
	// prompt the user to pick again; it is not logged as an error.
	ErrCapacityExceeded = errors.New("capacity exceeded")
	// ErrStateConflict marks an action on a booking in a terminal or
	// incompatible state.
	ErrStateConflict = errors.New("state conflict")
)

// New opens (and if needed creates) the database at path.
func New(path string, logger *zerolog.Logger) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// WAL for concurrent readers, busy timeout for competing writers and
	// immediate transactions so the capacity check-then-insert serializes
	// at BEGIN rather than failing at COMMIT.
	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on&_txlock=immediate"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	instance := &DB{DB: db, logger: logger}

	if err := instance.createTables(); err != nil {
		return nil, fmt.Errorf("create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("database initialized")
	return instance, nil
}

func (db *DB) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL UNIQUE,
			full_name TEXT,
			username TEXT
		)`,

		`CREATE TABLE IF NOT EXISTS services (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			duration_min INTEGER NOT NULL DEFAULT 30,
			price INTEGER NOT NULL DEFAULT 0,
			step_min INTEGER NOT NULL DEFAULT 15,
			active BOOLEAN NOT NULL DEFAULT 1
		)`,

		`CREATE TABLE IF NOT EXISTS resources (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			service_id INTEGER NOT NULL REFERENCES services(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			capacity INTEGER NOT NULL DEFAULT 1,
			open_time TEXT NOT NULL DEFAULT '10:00',
			close_time TEXT NOT NULL DEFAULT '18:00',
			active BOOLEAN NOT NULL DEFAULT 1,
			UNIQUE(service_id, name)
		)`,

		`CREATE TABLE IF NOT EXISTS bookings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			service_id INTEGER NOT NULL REFERENCES services(id) ON DELETE CASCADE,
			resource_id INTEGER NOT NULL REFERENCES resources(id) ON DELETE CASCADE,
			user_id INTEGER NOT NULL,
			user_name TEXT,
			starts_at DATETIME NOT NULL,
			ends_at DATETIME NOT NULL,
			amount INTEGER NOT NULL,
			payment_method TEXT,
			payment_ref TEXT,
			status TEXT NOT NULL DEFAULT 'pending',
			token TEXT,
			expires_at DATETIME,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		// Admin dashboard extension: per-booking flags.
		`CREATE TABLE IF NOT EXISTS booking_meta (
			booking_id INTEGER PRIMARY KEY REFERENCES bookings(id) ON DELETE CASCADE,
			service_done BOOLEAN NOT NULL DEFAULT 0
		)`,

		// Generic keyed session table: admin reply, group reply and rating
		// windows all live here, namespaced by kind.
		`CREATE TABLE IF NOT EXISTS sessions (
			kind TEXT NOT NULL,
			owner_id INTEGER NOT NULL,
			subject_id INTEGER NOT NULL,
			remaining INTEGER NOT NULL,
			expires_at DATETIME NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (kind, owner_id)
		)`,

		`CREATE TABLE IF NOT EXISTS auto_qa (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			patterns_json TEXT NOT NULL,
			answer TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_bookings_time ON bookings(resource_id, starts_at, ends_at)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings(status)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_user ON bookings(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_resources_service ON resources(service_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sessions(expires_at)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("exec %q: %w", query[:40], err)
		}
	}
	return nil
}

// UpsertUser records or refreshes a chat user's display data.
func (db *DB) UpsertUser(ctx context.Context, userID int64, fullName, username string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO users (user_id, full_name, username)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET full_name = excluded.full_name, username = excluded.username`,
		userID, fullName, username,
	)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// GetUser returns the stored display data for a chat user, ErrNotFound when
// the user has never talked to the bot.
func (db *DB) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	var u models.User
	err := db.QueryRowContext(ctx, `
		SELECT id, user_id, COALESCE(full_name, ''), COALESCE(username, '')
		FROM users WHERE user_id = ?`, userID,
	).Scan(&u.ID, &u.UserID, &u.FullName, &u.Username)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (db *DB) Close() error {
	return db.DB.Close()
}
