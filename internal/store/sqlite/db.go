package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Open opens a SQLite database with the given DSN.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return db, nil
}

// Migrate runs database migrations. A simple, idempotent set of
// CREATE TABLE / CREATE INDEX statements.
func Migrate(db *sql.DB) error {
	stmts := []string{
		// Users table
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY,
			username VARCHAR(50) UNIQUE NOT NULL,
			is_online BOOLEAN DEFAULT FALSE,
			connection_id TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			last_seen DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		// Messages: room messages have room set, direct messages have
		// recipient_id set. Reactions and read sets are JSON documents.
		`CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY,
			sender_id INTEGER NOT NULL,
			sender_name VARCHAR(50) NOT NULL,
			content TEXT NOT NULL,
			room TEXT DEFAULT NULL,
			recipient_id INTEGER DEFAULT NULL,
			type VARCHAR(10) NOT NULL DEFAULT 'text',
			file_url TEXT DEFAULT NULL,
			created_at DATETIME NOT NULL,
			reactions TEXT NOT NULL DEFAULT '{}',
			read_by TEXT NOT NULL DEFAULT '[]',
			FOREIGN KEY (sender_id) REFERENCES users(id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_users_username ON users(username);`,
		`CREATE INDEX IF NOT EXISTS idx_users_is_online ON users(is_online);`,
		`CREATE INDEX IF NOT EXISTS idx_users_connection ON users(connection_id);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_room_created ON messages(room, created_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_recipient ON messages(recipient_id);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_created_at ON messages(created_at DESC);`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	return nil
}
