package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/piloted/finsync/internal/models"
)

// UserDirectory is the identity collaborator: a small shared database
// of registered users. It holds no financial state; everything scoped
// to a user lives in that user's own store file.
type UserDirectory struct {
	db *sqlx.DB
}

const createUsersTable = `
	CREATE TABLE IF NOT EXISTS users (
		id          TEXT PRIMARY KEY,
		email       TEXT NOT NULL UNIQUE,
		name        TEXT NOT NULL,
		password    TEXT NOT NULL,
		created_at  TIMESTAMP NOT NULL
	)
`

// OpenUserDirectory opens (or creates) the shared users database inside
// the data directory.
func OpenUserDirectory(dataDir string) (*UserDirectory, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	path := filepath.Join(dataDir, "users.db")
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_loc=UTC", path)
	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open user directory: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createUsersTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("create users table: %w", err)
	}
	return &UserDirectory{db: db}, nil
}

// CreateUser registers a new user. The id is generated when absent.
func (d *UserDirectory) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, password, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, user.ID, user.Email, user.Name, user.Password, user.CreatedAt)
	return err
}

// GetUserByEmail returns the user with the given email, or nil.
func (d *UserDirectory) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := d.db.GetContext(ctx, &user, `SELECT * FROM users WHERE email = ?`, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// GetUserByID returns the user with the given id, or nil.
func (d *UserDirectory) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := d.db.GetContext(ctx, &user, `SELECT * FROM users WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// Close closes the directory database.
func (d *UserDirectory) Close() error {
	return d.db.Close()
}
