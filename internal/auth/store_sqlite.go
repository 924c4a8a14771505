package auth

import (
	"database/sql"
	"fmt"
	"time"
	"tradebot/internal/core"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore persists session tokens across restarts.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and if needed initializes) the session database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Enable WAL mode for crash recovery
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	schema := `CREATE TABLE IF NOT EXISTS sessions (
		account_ref        INTEGER PRIMARY KEY,
		session_id         TEXT NOT NULL,
		login_token        TEXT NOT NULL,
		login_token_secure TEXT NOT NULL,
		api_key            TEXT NOT NULL,
		valid_since        INTEGER NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Save upserts the session for an account atomically.
func (s *SQLiteStore) Save(accountRef uint64, session core.Session) error {
	query := `INSERT OR REPLACE INTO sessions
		(account_ref, session_id, login_token, login_token_secure, api_key, valid_since)
		VALUES (?, ?, ?, ?, ?, ?)`
	_, err := s.db.Exec(query,
		int64(accountRef),
		session.SessionID,
		session.LoginToken,
		session.LoginTokenSecure,
		session.APIKey,
		session.ValidSince.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to write session to db: %w", err)
	}
	return nil
}

// Load returns the persisted session for an account, or nil when none exists.
func (s *SQLiteStore) Load(accountRef uint64) (*core.Session, error) {
	query := `SELECT session_id, login_token, login_token_secure, api_key, valid_since
		FROM sessions WHERE account_ref = ?`

	var session core.Session
	var validSince int64
	err := s.db.QueryRow(query, int64(accountRef)).Scan(
		&session.SessionID,
		&session.LoginToken,
		&session.LoginTokenSecure,
		&session.APIKey,
		&validSince,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read session from db: %w", err)
	}

	session.ValidSince = time.Unix(0, validSince)
	return &session, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
