package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cabao-quiz-service/internal/domain"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	nickname   TEXT PRIMARY KEY,
	data       TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS current_user (
	device TEXT PRIMARY KEY,
	data   TEXT NOT NULL
);`

// DB is the local profile database shared by every device on this node.
type DB struct {
	db    *sql.DB
	clock func() time.Time
}

// Open creates the database file if needed and applies the schema.
func Open(path string) (*DB, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?cache=shared&_busy_timeout=5000", filepath.ToSlash(path))
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply sqlite pragma %q: %w", stmt, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}
	return &DB{db: db, clock: time.Now}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

// ForDevice returns the app.UserStore view for one device.
func (d *DB) ForDevice(device string) *UserStore {
	return &UserStore{db: d, device: device}
}

// UserStore is a SQLite-backed implementation of app.UserStore.
type UserStore struct {
	db     *DB
	device string
}

func (s *UserStore) LoadCurrentUser(ctx context.Context) (domain.User, bool, error) {
	var raw string
	err := s.db.db.QueryRowContext(ctx, `SELECT data FROM current_user WHERE device = ?`, s.device).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, false, nil
	}
	if err != nil {
		return domain.User{}, false, fmt.Errorf("load current user: %w", err)
	}
	user, err := decodeUser(raw)
	if err != nil {
		return domain.User{}, false, err
	}
	return user, true, nil
}

func (s *UserStore) SaveCurrentUser(ctx context.Context, user domain.User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	_, err = s.db.db.ExecContext(ctx, `
		INSERT INTO current_user (device, data) VALUES (?, ?)
		ON CONFLICT(device) DO UPDATE SET data = excluded.data`,
		s.device, string(raw))
	if err != nil {
		return fmt.Errorf("save current user: %w", err)
	}
	return nil
}

func (s *UserStore) ClearCurrentUser(ctx context.Context) error {
	if _, err := s.db.db.ExecContext(ctx, `DELETE FROM current_user WHERE device = ?`, s.device); err != nil {
		return fmt.Errorf("clear current user: %w", err)
	}
	return nil
}

func (s *UserStore) LoadAllUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := s.db.db.QueryContext(ctx, `SELECT data FROM users ORDER BY nickname`)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		user, err := decodeUser(raw)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// SaveAllUsers upserts every user by nickname in one transaction. A stored
// score is never lowered.
func (s *UserStore) SaveAllUsers(ctx context.Context, users []domain.User) error {
	tx, err := s.db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := s.db.clock().UTC()
	for _, u := range users {
		u.Nickname = domain.NormalizeNickname(u.Nickname)
		stored, err := storedScore(ctx, tx, u.Nickname)
		if err != nil {
			return err
		}
		if stored > u.Score {
			u.Score = stored
		}
		raw, err := json.Marshal(u)
		if err != nil {
			return fmt.Errorf("encode user %s: %w", u.Nickname, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO users (nickname, data, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(nickname) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
			u.Nickname, string(raw), now)
		if err != nil {
			return fmt.Errorf("save user %s: %w", u.Nickname, err)
		}
	}
	return tx.Commit()
}

func storedScore(ctx context.Context, tx *sql.Tx, nickname string) (int, error) {
	var raw string
	err := tx.QueryRowContext(ctx, `SELECT data FROM users WHERE nickname = ?`, nickname).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load user %s: %w", nickname, err)
	}
	u, err := decodeUser(raw)
	if err != nil {
		return 0, err
	}
	return u.Score, nil
}

func decodeUser(raw string) (domain.User, error) {
	var user domain.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return domain.User{}, fmt.Errorf("decode user: %w", err)
	}
	if user.SeenQuestionIDs == nil {
		user.SeenQuestionIDs = domain.NewIDSet()
	}
	return user, nil
}
