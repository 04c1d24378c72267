package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/wetty/chat-backend/internal/models"
)

type UserStore struct {
	db Querier
}

func NewUserStore(db Querier) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) Create(ctx context.Context, username, passwordHash string) (*models.User, error) {
	query := `
		INSERT INTO users (username, password_hash)
		VALUES ($1, $2)
		RETURNING uid`

	u := models.User{Username: username, PasswordHash: passwordHash}
	if err := s.db.QueryRow(ctx, query, username, passwordHash).Scan(&u.UID); err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return &u, nil
}

func (s *UserStore) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `
		SELECT uid, username, password_hash
		FROM users
		WHERE username = $1`

	var u models.User
	err := s.db.QueryRow(ctx, query, username).Scan(&u.UID, &u.Username, &u.PasswordHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by username: %w", err)
	}
	return &u, nil
}

func (s *UserStore) Exists(ctx context.Context, uid int32) (bool, error) {
	// EXISTS stops at the first matching row, which matters on the add-
	// member hot path.
	query := `
		SELECT EXISTS (
			SELECT 1 FROM users WHERE uid = $1
		)`

	var exists bool
	if err := s.db.QueryRow(ctx, query, uid).Scan(&exists); err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}
	return exists, nil
}
