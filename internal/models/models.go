package models

import (
	"time"
)

// Roles a chat member can hold.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Visibility values a chat can have.
const (
	VisibilityPublic  = "public"
	VisibilityPrivate = "private"
)

// User is an authenticated account. PasswordHash never leaves the server.
type User struct {
	UID          int32  `json:"uid"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
}

// Chat is a group conversation. The name is optional; a chat created
// without one shows up with name null in listings.
type Chat struct {
	ID          ID        `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	Avatar      *string   `json:"avatar"`
	Visibility  string    `json:"visibility"`
	CreatedAt   time.Time `json:"created_at"`
}

// Membership associates a user with a chat. A (chat, uid) pair appears
// at most once.
type Membership struct {
	ChatID   ID        `json:"chat_id"`
	UID      int32     `json:"uid"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

// Member is a membership row joined with the user's username, as returned
// by the members listing.
type Member struct {
	UID      int32     `json:"uid"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
	Username *string   `json:"username"`
}

// Message is a single chat message. Body is nullable: non-text message
// types (stickers, attachment-only messages) carry no body. Deletion is a
// soft delete — DeletedAt is set, the row stays.
type Message struct {
	ID                ID         `json:"id"`
	Body              *string    `json:"message"`
	Type              string     `json:"message_type"`
	ReplyToID         *ID        `json:"reply_to_id"`
	ReplyRootID       *ID        `json:"reply_root_id"`
	ClientGeneratedID string     `json:"client_generated_id"`
	SenderUID         int32      `json:"sender_uid"`
	ChatID            ID         `json:"chat_id"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         *time.Time `json:"updated_at"`
	DeletedAt         *time.Time `json:"deleted_at"`
	HasAttachments    bool       `json:"has_attachments"`
}

// Deleted reports whether the message has been soft-deleted.
func (m *Message) Deleted() bool { return m.DeletedAt != nil }

// ReplyPreview is the compact shape of a replied-to message embedded in
// listings and events.
type ReplyPreview struct {
	ID        ID         `json:"id"`
	Body      *string    `json:"message"`
	SenderUID int32      `json:"sender_uid"`
	DeletedAt *time.Time `json:"deleted_at"`
}

// MessageView is a message plus its resolved reply preview, if any.
type MessageView struct {
	Message
	ReplyToMessage *ReplyPreview `json:"reply_to_message"`
}

// ChatListItem is one row of the chat listing, ordered by most-recent
// activity. LastMessageAt is nil for chats with no messages; such chats
// sort after every chat that has at least one message.
type ChatListItem struct {
	ID            ID         `json:"id"`
	Name          *string    `json:"name"`
	LastMessageAt *time.Time `json:"last_message_at"`
}
