package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"sockchat/internal/domain"
)

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

var _ domain.UserRepository = (*UserRepo)(nil)

const userColumns = `id, username, is_online, connection_id, created_at, last_seen`

func (r *UserRepo) FindOrCreate(ctx context.Context, username string) (*domain.User, error) {
	u, err := r.getByUsername(ctx, username)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	query := `
		INSERT INTO users (username, is_online, created_at, last_seen)
		VALUES (?, FALSE, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	`
	if _, err := r.db.ExecContext(ctx, query, username); err != nil {
		// A concurrent insert may have won on the unique username; fall
		// through to the lookup either way.
		if u, lookupErr := r.getByUsername(ctx, username); lookupErr == nil {
			return u, nil
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return r.getByUsername(ctx, username)
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	return r.scanUser(ctx, query, id)
}

func (r *UserRepo) getByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = ?`
	return r.scanUser(ctx, query, username)
}

func (r *UserRepo) ListOnline(ctx context.Context) ([]*domain.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE is_online = 1
		ORDER BY last_seen DESC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list online users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		u := &domain.User{}
		if err := rows.Scan(
			&u.ID,
			&u.Username,
			&u.IsOnline,
			&u.ConnectionID,
			&u.CreatedAt,
			&u.LastSeen,
		); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *UserRepo) SetOnline(ctx context.Context, id int64, connectionID string) error {
	query := `
		UPDATE users
		SET is_online = 1, connection_id = ?, last_seen = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	if _, err := r.db.ExecContext(ctx, query, connectionID, id); err != nil {
		return fmt.Errorf("set online: %w", err)
	}
	return nil
}

func (r *UserRepo) SetOfflineByConnection(ctx context.Context, connectionID string) (*domain.User, error) {
	if connectionID == "" {
		return nil, nil
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE connection_id = ?`
	u, err := r.scanUser(ctx, query, connectionID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	update := `
		UPDATE users
		SET is_online = 0, connection_id = '', last_seen = CURRENT_TIMESTAMP
		WHERE id = ? AND connection_id = ?
	`
	if _, err := r.db.ExecContext(ctx, update, u.ID, connectionID); err != nil {
		return nil, fmt.Errorf("set offline: %w", err)
	}
	u.IsOnline = false
	u.ConnectionID = ""
	return u, nil
}

func (r *UserRepo) scanUser(ctx context.Context, query string, args ...any) (*domain.User, error) {
	u := &domain.User{}
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&u.ID,
		&u.Username,
		&u.IsOnline,
		&u.ConnectionID,
		&u.CreatedAt,
		&u.LastSeen,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}
