package db

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"skillswap-service/internal/logger"
)

// Connect initializes the database connection and runs migrations.
func Connect(driver, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	if driver == "sqlite3" {
		// in-memory sqlite databases are per connection
		db.SetMaxOpenConns(1)
	}

	if err := Migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

// Migrate creates the schema if it does not exist yet.
func Migrate(db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL,
            email TEXT NOT NULL DEFAULT '',
            bio TEXT NOT NULL DEFAULT '',
            avatar_url TEXT NOT NULL DEFAULT '',
            skills_to_teach TEXT NOT NULL DEFAULT '[]',
            skills_to_learn TEXT NOT NULL DEFAULT '[]',
            created_at TIMESTAMP NOT NULL,
            updated_at TIMESTAMP NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS swap_requests (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            from_user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            to_user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            from_skill TEXT NOT NULL,
            to_skill TEXT NOT NULL,
            message TEXT NOT NULL DEFAULT '',
            status TEXT NOT NULL DEFAULT 'pending',
            responded_at TIMESTAMP,
            completed_at TIMESTAMP,
            created_at TIMESTAMP NOT NULL,
            updated_at TIMESTAMP NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS idx_swap_requests_parties ON swap_requests (from_user_id, to_user_id);`,
		`CREATE INDEX IF NOT EXISTS idx_swap_requests_status ON swap_requests (status);`,
		`CREATE TABLE IF NOT EXISTS chats (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            user1_id INTEGER NOT NULL,
            user2_id INTEGER NOT NULL,
            pair_key TEXT NOT NULL UNIQUE,
            swap_request_id INTEGER REFERENCES swap_requests(id) ON DELETE SET NULL,
            last_message TEXT NOT NULL DEFAULT '',
            last_message_time TIMESTAMP NOT NULL,
            last_message_sender_id INTEGER,
            created_at TIMESTAMP NOT NULL,
            updated_at TIMESTAMP NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS idx_chats_user1 ON chats (user1_id);`,
		`CREATE INDEX IF NOT EXISTS idx_chats_user2 ON chats (user2_id);`,
		`CREATE TABLE IF NOT EXISTS messages (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            chat_id INTEGER NOT NULL REFERENCES chats(id) ON DELETE CASCADE,
            sender_id INTEGER NOT NULL,
            content TEXT NOT NULL,
            is_read BOOLEAN NOT NULL DEFAULT FALSE,
            read_at TIMESTAMP,
            created_at TIMESTAMP NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS idx_messages_chat_created ON messages (chat_id, created_at);`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(dialect(db.DriverName(), m)); err != nil {
			return err
		}
	}
	logger.Get().Info().Str("driver", db.DriverName()).Msg("database migrations applied")
	return nil
}

// dialect rewrites the sqlite flavoured DDL for postgres.
func dialect(driver, stmt string) string {
	if driver != "postgres" {
		return stmt
	}
	stmt = strings.ReplaceAll(stmt, "INTEGER PRIMARY KEY AUTOINCREMENT", "SERIAL PRIMARY KEY")
	return strings.ReplaceAll(stmt, "TIMESTAMP", "TIMESTAMPTZ")
}
