package repository

import (
	"context"
	"time"

	"github.com/wetty/chat-backend/internal/models"
	"github.com/wetty/chat-backend/internal/pagination"
)

// Repositories return nil, nil for single-row lookups that find nothing;
// callers decide whether that is a NotFound, a Forbidden, or an empty page.
// Every method takes a context so cancelled requests stop their queries.

// ChatRepository handles chat rows and the activity-ordered chat listing.
type ChatRepository interface {
	// Create inserts a chat with a caller-assigned id.
	Create(ctx context.Context, chat *models.Chat) error

	// GetByID returns a single chat. Returns nil, nil if not found.
	GetByID(ctx context.Context, chatID models.ID) (*models.Chat, error)

	// UpdateMetadata sets only the non-nil fields and leaves the rest.
	UpdateMetadata(ctx context.Context, chatID models.ID, upd ChatUpdate) error

	// ListForUser returns the first page of the uid's chats ordered by
	// (last_message_at DESC NULLS LAST, id DESC), at most fetchLimit rows.
	ListForUser(ctx context.Context, uid int32, fetchLimit int) ([]models.ChatListItem, error)

	// ListForUserAfter returns rows strictly past the cursor key under the
	// same ordering.
	ListForUserAfter(ctx context.Context, uid int32, cursor pagination.ChatKey, fetchLimit int) ([]models.ChatListItem, error)

	// GetListCursor resolves a cursor chat id to its current sort key,
	// confirming the uid's membership. Returns nil, nil when the chat does
	// not exist for this uid (deleted or left since the cursor was issued).
	GetListCursor(ctx context.Context, uid int32, chatID models.ID) (*pagination.ChatKey, error)
}

// ChatUpdate carries the metadata fields a PATCH may set. Nil means
// "leave unchanged".
type ChatUpdate struct {
	Name        *string
	Description *string
	Avatar      *string
	Visibility  *string
}

// MembershipRepository handles who belongs to which chat.
type MembershipRepository interface {
	// Add inserts a membership row. The (chat, uid) pair is unique.
	Add(ctx context.Context, m models.Membership) error

	// Remove deletes a membership. No-op if not a member.
	Remove(ctx context.Context, chatID models.ID, uid int32) error

	// List returns all members of a chat with usernames.
	List(ctx context.Context, chatID models.ID) ([]models.Member, error)

	// ListUIDs returns just the member uids, for event fan-out.
	ListUIDs(ctx context.Context, chatID models.ID) ([]int32, error)

	// GetMember returns one membership with username. nil, nil if absent.
	GetMember(ctx context.Context, chatID models.ID, uid int32) (*models.Member, error)

	// GetRole returns the uid's role in the chat, or "" if not a member.
	GetRole(ctx context.Context, chatID models.ID, uid int32) (string, error)

	// UpdateRole changes an existing member's role.
	UpdateRole(ctx context.Context, chatID models.ID, uid int32, role string) error
}

// MessageRepository handles message persistence. Deletes are soft: rows are
// never removed, DeletedAt is set instead.
type MessageRepository interface {
	// Insert persists a message with a caller-assigned id.
	Insert(ctx context.Context, msg *models.Message) error

	// GetByID returns the message with that id in that chat. nil, nil if absent.
	GetByID(ctx context.Context, chatID, messageID models.ID) (*models.Message, error)

	// GetByIDs batch-resolves messages by id, for reply previews.
	GetByIDs(ctx context.Context, ids []models.ID) ([]models.Message, error)

	// UpdateBody replaces the body and sets updated_at.
	UpdateBody(ctx context.Context, messageID models.ID, body string, updatedAt time.Time) error

	// SoftDelete sets deleted_at. The row and body are retained.
	SoftDelete(ctx context.Context, messageID models.ID, deletedAt time.Time) error

	// ListByChat returns messages ordered by id descending, at most
	// fetchLimit rows, strictly older than before when it is non-nil.
	ListByChat(ctx context.Context, chatID models.ID, before *models.ID, fetchLimit int) ([]models.Message, error)
}

// UserRepository handles account rows.
type UserRepository interface {
	// Create inserts a user and returns it with the uid populated.
	Create(ctx context.Context, username, passwordHash string) (*models.User, error)

	// GetByUsername returns a user by name. nil, nil if not found.
	GetByUsername(ctx context.Context, username string) (*models.User, error)

	// Exists reports whether a uid is a known user.
	Exists(ctx context.Context, uid int32) (bool, error)
}
