package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // Postgres driver ("pgx")
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

// SQLStore is the persistence gateway over the users and chats tables.
// Every method commits independently; nothing spans calls.
//
// Queries are written with ? placeholders; sqlx rebinds them to $n when the
// driver is pgx.
type SQLStore struct {
	db      *sqlx.DB
	dialect string
}

func NewSQLStore(ctx context.Context, dialect, dataSourceName string) (*SQLStore, error) {
	driverName, err := driverFor(dialect)
	if err != nil {
		return nil, err
	}
	db, err := sqlx.Open(driverName, dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dialect == DialectSQLite {
		// SQLite allows a single writer; serialise through one connection.
		db.SetMaxOpenConns(1)
	}
	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLStore{db: db, dialect: dialect}
	if err = store.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func driverFor(dialect string) (string, error) {
	switch dialect {
	case DialectSQLite:
		return "sqlite3", nil
	case DialectPostgres:
		return "pgx", nil
	default:
		return "", fmt.Errorf("unsupported database dialect %q", dialect)
	}
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) initSchema(ctx context.Context) error {
	schema := sqliteSchema
	if s.dialect == DialectPostgres {
		schema = postgresSchema
	}
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// The users table keeps the camel-case "userId" and the "timestamp" column of
// the existing production database, so both must stay quoted.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
        "userId" TEXT PRIMARY KEY,
        name TEXT NOT NULL,
        email TEXT NOT NULL,
        "timestamp" DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
    )`,
	`CREATE TABLE IF NOT EXISTS chats (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        user_id TEXT NOT NULL,
        message TEXT NOT NULL,
        reply TEXT NOT NULL,
        created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
    )`,
	`CREATE INDEX IF NOT EXISTS idx_chats_user_id ON chats (user_id)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
        "userId" TEXT PRIMARY KEY,
        name TEXT NOT NULL,
        email TEXT NOT NULL,
        "timestamp" TIMESTAMP NOT NULL DEFAULT now()
    )`,
	`CREATE TABLE IF NOT EXISTS chats (
        id SERIAL PRIMARY KEY,
        user_id TEXT NOT NULL,
        message TEXT NOT NULL,
        reply TEXT NOT NULL,
        created_at TIMESTAMP NOT NULL DEFAULT now()
    )`,
	`CREATE INDEX IF NOT EXISTS idx_chats_user_id ON chats (user_id)`,
}

// User methods

// FindUser returns nil, nil when no user has the given id.
func (s *SQLStore) FindUser(ctx context.Context, userID string) (*User, error) {
	var user User
	err := s.db.GetContext(ctx, &user,
		s.db.Rebind(`SELECT "userId", name, email, "timestamp" FROM users WHERE "userId" = ?`), userID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &user, nil
}

func (s *SQLStore) CreateUser(ctx context.Context, userID, name, email string) error {
	_, err := s.db.ExecContext(ctx,
		s.db.Rebind(`INSERT INTO users ("userId", name, email, "timestamp") VALUES (?, ?, ?, ?)`),
		userID, name, email, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// Chat methods

func (s *SQLStore) CreateChat(ctx context.Context, userID, message, reply string) (*ChatRecord, error) {
	now := time.Now().UTC()
	record := &ChatRecord{UserID: userID, Message: message, Reply: reply, CreatedAt: now}

	err := s.db.QueryRowxContext(ctx,
		s.db.Rebind("INSERT INTO chats (user_id, message, reply, created_at) VALUES (?, ?, ?, ?) RETURNING id"),
		userID, message, reply, now,
	).Scan(&record.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert chat: %w", err)
	}
	return record, nil
}

// FindChatsByUser returns the user's records in insertion order. The slice is
// empty, never nil, when the user has no chats.
func (s *SQLStore) FindChatsByUser(ctx context.Context, userID string) ([]ChatRecord, error) {
	chats := []ChatRecord{}
	err := s.db.SelectContext(ctx, &chats,
		s.db.Rebind("SELECT id, user_id, message, reply, created_at FROM chats WHERE user_id = ? ORDER BY id ASC"), userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query chats: %w", err)
	}
	return chats, nil
}
