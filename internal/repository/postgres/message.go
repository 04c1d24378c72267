package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/wetty/chat-backend/internal/models"
)

type MessageStore struct {
	db Querier
}

func NewMessageStore(db Querier) *MessageStore {
	return &MessageStore{db: db}
}

const messageColumns = `id, message, message_type, reply_to_id, reply_root_id,
		client_generated_id, sender_uid, chat_id, created_at, updated_at,
		deleted_at, has_attachments`

func (s *MessageStore) Insert(ctx context.Context, msg *models.Message) error {
	query := `
		INSERT INTO messages (` + messageColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := s.db.Exec(ctx, query,
		int64(msg.ID),
		msg.Body,
		msg.Type,
		idPtr(msg.ReplyToID),
		idPtr(msg.ReplyRootID),
		msg.ClientGeneratedID,
		msg.SenderUID,
		int64(msg.ChatID),
		msg.CreatedAt,
		msg.UpdatedAt,
		msg.DeletedAt,
		msg.HasAttachments,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (s *MessageStore) GetByID(ctx context.Context, chatID, messageID models.ID) (*models.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE id = $1 AND chat_id = $2`

	msg, err := scanMessage(s.db.QueryRow(ctx, query, int64(messageID), int64(chatID)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get message: %w", err)
	}
	return msg, nil
}

func (s *MessageStore) GetByIDs(ctx context.Context, ids []models.ID) ([]models.Message, error) {
	if len(ids) == 0 {
		return []models.Message{}, nil
	}

	raw := make([]int64, len(ids))
	for i, id := range ids {
		raw[i] = int64(id)
	}

	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE id = ANY($1)`

	rows, err := s.db.Query(ctx, query, raw)
	if err != nil {
		return nil, fmt.Errorf("get messages by ids: %w", err)
	}
	defer rows.Close()

	return collectMessages(rows)
}

func (s *MessageStore) UpdateBody(ctx context.Context, messageID models.ID, body string, updatedAt time.Time) error {
	query := `
		UPDATE messages
		SET message = $2, updated_at = $3
		WHERE id = $1`

	_, err := s.db.Exec(ctx, query, int64(messageID), body, updatedAt)
	if err != nil {
		return fmt.Errorf("update message body: %w", err)
	}
	return nil
}

func (s *MessageStore) SoftDelete(ctx context.Context, messageID models.ID, deletedAt time.Time) error {
	query := `
		UPDATE messages
		SET deleted_at = $2
		WHERE id = $1`

	_, err := s.db.Exec(ctx, query, int64(messageID), deletedAt)
	if err != nil {
		return fmt.Errorf("soft delete message: %w", err)
	}
	return nil
}

func (s *MessageStore) ListByChat(ctx context.Context, chatID models.ID, before *models.ID, fetchLimit int) ([]models.Message, error) {
	// Message ids are time-ordered, so id DESC is recency order and the
	// cursor is a plain "id <" bound.
	var query string
	var args []any

	if before != nil {
		query = `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE chat_id = $1 AND id < $2
		ORDER BY id DESC
		LIMIT $3`
		args = []any{int64(chatID), int64(*before), fetchLimit}
	} else {
		query = `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE chat_id = $1
		ORDER BY id DESC
		LIMIT $2`
		args = []any{int64(chatID), fetchLimit}
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	return collectMessages(rows)
}

func idPtr(id *models.ID) *int64 {
	if id == nil {
		return nil
	}
	v := int64(*id)
	return &v
}

func scanMessage(row pgx.Row) (*models.Message, error) {
	var (
		msg       models.Message
		id        int64
		chatID    int64
		replyTo   *int64
		replyRoot *int64
	)
	err := row.Scan(
		&id,
		&msg.Body,
		&msg.Type,
		&replyTo,
		&replyRoot,
		&msg.ClientGeneratedID,
		&msg.SenderUID,
		&chatID,
		&msg.CreatedAt,
		&msg.UpdatedAt,
		&msg.DeletedAt,
		&msg.HasAttachments,
	)
	if err != nil {
		return nil, err
	}
	msg.ID = models.ID(id)
	msg.ChatID = models.ID(chatID)
	if replyTo != nil {
		v := models.ID(*replyTo)
		msg.ReplyToID = &v
	}
	if replyRoot != nil {
		v := models.ID(*replyRoot)
		msg.ReplyRootID = &v
	}
	return &msg, nil
}

func collectMessages(rows pgx.Rows) ([]models.Message, error) {
	messages := make([]models.Message, 0)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, *msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return messages, nil
}
