package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/wetty/chat-backend/internal/models"
)

type MembershipStore struct {
	db Querier
}

func NewMembershipStore(db Querier) *MembershipStore {
	return &MembershipStore{db: db}
}

func (s *MembershipStore) Add(ctx context.Context, m models.Membership) error {
	query := `
		INSERT INTO chat_members (chat_id, uid, role, joined_at)
		VALUES ($1, $2, $3, $4)`

	_, err := s.db.Exec(ctx, query, int64(m.ChatID), m.UID, m.Role, m.JoinedAt)
	if err != nil {
		return fmt.Errorf("insert membership: %w", err)
	}
	return nil
}

func (s *MembershipStore) Remove(ctx context.Context, chatID models.ID, uid int32) error {
	// DELETE of an absent row affects zero rows; leaving twice is fine.
	query := `
		DELETE FROM chat_members
		WHERE chat_id = $1 AND uid = $2`

	_, err := s.db.Exec(ctx, query, int64(chatID), uid)
	if err != nil {
		return fmt.Errorf("remove membership: %w", err)
	}
	return nil
}

func (s *MembershipStore) List(ctx context.Context, chatID models.ID) ([]models.Member, error) {
	query := `
		SELECT gm.uid, gm.role, gm.joined_at, u.username
		FROM chat_members gm
		INNER JOIN users u ON u.uid = gm.uid
		WHERE gm.chat_id = $1`

	rows, err := s.db.Query(ctx, query, int64(chatID))
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	members := make([]models.Member, 0)
	for rows.Next() {
		var (
			m        models.Member
			username string
		)
		if err := rows.Scan(&m.UID, &m.Role, &m.JoinedAt, &username); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		m.Username = &username
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return members, nil
}

func (s *MembershipStore) ListUIDs(ctx context.Context, chatID models.ID) ([]int32, error) {
	query := `
		SELECT uid FROM chat_members
		WHERE chat_id = $1`

	rows, err := s.db.Query(ctx, query, int64(chatID))
	if err != nil {
		return nil, fmt.Errorf("list member uids: %w", err)
	}
	defer rows.Close()

	uids := make([]int32, 0)
	for rows.Next() {
		var uid int32
		if err := rows.Scan(&uid); err != nil {
			return nil, fmt.Errorf("scan member uid: %w", err)
		}
		uids = append(uids, uid)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate member uids: %w", err)
	}
	return uids, nil
}

func (s *MembershipStore) GetMember(ctx context.Context, chatID models.ID, uid int32) (*models.Member, error) {
	query := `
		SELECT gm.uid, gm.role, gm.joined_at, u.username
		FROM chat_members gm
		INNER JOIN users u ON u.uid = gm.uid
		WHERE gm.chat_id = $1 AND gm.uid = $2`

	var (
		m        models.Member
		username string
	)
	err := s.db.QueryRow(ctx, query, int64(chatID), uid).Scan(&m.UID, &m.Role, &m.JoinedAt, &username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get member: %w", err)
	}
	m.Username = &username
	return &m, nil
}

func (s *MembershipStore) GetRole(ctx context.Context, chatID models.ID, uid int32) (string, error) {
	query := `
		SELECT role FROM chat_members
		WHERE chat_id = $1 AND uid = $2`

	var role string
	err := s.db.QueryRow(ctx, query, int64(chatID), uid).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("get member role: %w", err)
	}
	return role, nil
}

func (s *MembershipStore) UpdateRole(ctx context.Context, chatID models.ID, uid int32, role string) error {
	query := `
		UPDATE chat_members
		SET role = $3
		WHERE chat_id = $1 AND uid = $2`

	_, err := s.db.Exec(ctx, query, int64(chatID), uid, role)
	if err != nil {
		return fmt.Errorf("update member role: %w", err)
	}
	return nil
}
