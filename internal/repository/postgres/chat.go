package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/wetty/chat-backend/internal/models"
	"github.com/wetty/chat-backend/internal/pagination"
	"github.com/wetty/chat-backend/internal/repository"
)

type ChatStore struct {
	db Querier
}

func NewChatStore(db Querier) *ChatStore {
	return &ChatStore{db: db}
}

func (s *ChatStore) Create(ctx context.Context, chat *models.Chat) error {
	query := `
		INSERT INTO chats (id, name, description, avatar, visibility, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := s.db.Exec(ctx, query,
		int64(chat.ID),
		chat.Name,
		chat.Description,
		chat.Avatar,
		chat.Visibility,
		chat.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert chat: %w", err)
	}
	return nil
}

func (s *ChatStore) GetByID(ctx context.Context, chatID models.ID) (*models.Chat, error) {
	query := `
		SELECT id, name, description, avatar, visibility, created_at
		FROM chats
		WHERE id = $1`

	var (
		ch models.Chat
		id int64
	)
	err := s.db.QueryRow(ctx, query, int64(chatID)).Scan(
		&id,
		&ch.Name,
		&ch.Description,
		&ch.Avatar,
		&ch.Visibility,
		&ch.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get chat: %w", err)
	}
	ch.ID = models.ID(id)
	return &ch, nil
}

func (s *ChatStore) UpdateMetadata(ctx context.Context, chatID models.ID, upd repository.ChatUpdate) error {
	// COALESCE keeps any field whose parameter is NULL, so a PATCH only
	// touches what it sends.
	query := `
		UPDATE chats
		SET name = COALESCE($2, name),
		    description = COALESCE($3, description),
		    avatar = COALESCE($4, avatar),
		    visibility = COALESCE($5, visibility)
		WHERE id = $1`

	_, err := s.db.Exec(ctx, query,
		int64(chatID),
		upd.Name,
		upd.Description,
		upd.Avatar,
		upd.Visibility,
	)
	if err != nil {
		return fmt.Errorf("update chat: %w", err)
	}
	return nil
}

// last_message_at is resolved per chat with a correlated subquery against
// messages; chats with no messages get NULL and NULLS LAST pushes them to
// the end of the listing.
const chatListSelect = `
		SELECT g.id, g.name,
		       (SELECT max(m.created_at) FROM messages m WHERE m.chat_id = g.id) AS last_message_at
		FROM chats g
		INNER JOIN chat_members gm ON gm.chat_id = g.id AND gm.uid = $1`

func (s *ChatStore) ListForUser(ctx context.Context, uid int32, fetchLimit int) ([]models.ChatListItem, error) {
	query := chatListSelect + `
		ORDER BY last_message_at DESC NULLS LAST, g.id DESC
		LIMIT $2`

	rows, err := s.db.Query(ctx, query, uid, fetchLimit)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	defer rows.Close()

	return scanChatList(rows)
}

func (s *ChatStore) ListForUserAfter(ctx context.Context, uid int32, cursor pagination.ChatKey, fetchLimit int) ([]models.ChatListItem, error) {
	// The epoch sentinel makes the composite row comparison total when
	// either side has no activity timestamp, matching NULLS LAST order.
	query := `
		WITH ordered AS (` + chatListSelect + `
		)
		SELECT id, name, last_message_at
		FROM ordered
		WHERE (COALESCE(last_message_at, '1970-01-01'::timestamptz), id)
		    < (COALESCE($2, '1970-01-01'::timestamptz), $3)
		ORDER BY last_message_at DESC NULLS LAST, id DESC
		LIMIT $4`

	rows, err := s.db.Query(ctx, query, uid, cursor.LastMessageAt, int64(cursor.ID), fetchLimit)
	if err != nil {
		return nil, fmt.Errorf("list chats after cursor: %w", err)
	}
	defer rows.Close()

	return scanChatList(rows)
}

func (s *ChatStore) GetListCursor(ctx context.Context, uid int32, chatID models.ID) (*pagination.ChatKey, error) {
	// Membership is part of the lookup: a cursor pointing at a chat the
	// user has left resolves to nothing, which the caller turns into an
	// empty page rather than an error.
	query := `
		SELECT (SELECT max(m.created_at) FROM messages m WHERE m.chat_id = g.id) AS last_message_at,
		       g.id
		FROM chats g
		INNER JOIN chat_members gm ON gm.chat_id = g.id AND gm.uid = $1
		WHERE g.id = $2`

	var (
		lastMessageAt *time.Time
		id            int64
	)
	err := s.db.QueryRow(ctx, query, uid, int64(chatID)).Scan(&lastMessageAt, &id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("resolve chat cursor: %w", err)
	}
	return &pagination.ChatKey{LastMessageAt: lastMessageAt, ID: models.ID(id)}, nil
}

func scanChatList(rows pgx.Rows) ([]models.ChatListItem, error) {
	items := make([]models.ChatListItem, 0)
	for rows.Next() {
		var (
			id            int64
			name          string
			lastMessageAt *time.Time
		)
		if err := rows.Scan(&id, &name, &lastMessageAt); err != nil {
			return nil, fmt.Errorf("scan chat row: %w", err)
		}
		item := models.ChatListItem{ID: models.ID(id), LastMessageAt: lastMessageAt}
		if name != "" {
			item.Name = &name
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat rows: %w", err)
	}
	return items, nil
}
