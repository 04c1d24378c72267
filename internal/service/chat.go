package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wetty/chat-backend/internal/errs"
	"github.com/wetty/chat-backend/internal/ids"
	"github.com/wetty/chat-backend/internal/models"
	"github.com/wetty/chat-backend/internal/pagination"
	"github.com/wetty/chat-backend/internal/repository"
)

// ChatService handles chat creation, metadata, and the activity-ordered
// chat listing.
type ChatService struct {
	chats   repository.ChatRepository
	members repository.MembershipRepository
	idGen   ids.Generator
	logger  *zap.Logger

	now func() time.Time
}

func NewChatService(
	chats repository.ChatRepository,
	members repository.MembershipRepository,
	idGen ids.Generator,
	logger *zap.Logger,
) *ChatService {
	return &ChatService{
		chats:   chats,
		members: members,
		idGen:   idGen,
		logger:  logger,
		now:     time.Now,
	}
}

// ChatPage is one page of the chat listing.
type ChatPage struct {
	Chats      []models.ChatListItem `json:"chats"`
	NextCursor *models.ID            `json:"next_cursor"`
}

// Create makes a new chat and adds the creator as its admin.
func (s *ChatService) Create(ctx context.Context, creatorUID int32, name *string) (*models.Chat, error) {
	id, err := s.idGen.NextID()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrIDGeneration, err)
	}

	trimmed := ""
	if name != nil {
		trimmed = strings.TrimSpace(*name)
	}

	chat := models.Chat{
		ID:         models.ID(id),
		Name:       trimmed,
		Visibility: models.VisibilityPublic,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.chats.Create(ctx, &chat); err != nil {
		return nil, storage("insert chat", err)
	}
	err = s.members.Add(ctx, models.Membership{
		ChatID:   chat.ID,
		UID:      creatorUID,
		Role:     models.RoleAdmin,
		JoinedAt: chat.CreatedAt,
	})
	if err != nil {
		return nil, storage("insert creator membership", err)
	}
	return &chat, nil
}

// Get returns chat details.
func (s *ChatService) Get(ctx context.Context, chatID models.ID) (*models.Chat, error) {
	chat, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		return nil, storage("get chat", err)
	}
	if chat == nil {
		return nil, errs.ErrNotFound
	}
	return chat, nil
}

// UpdateMetadata applies the provided fields and returns the re-read chat.
func (s *ChatService) UpdateMetadata(ctx context.Context, chatID models.ID, upd repository.ChatUpdate) (*models.Chat, error) {
	if upd.Visibility != nil &&
		*upd.Visibility != models.VisibilityPublic &&
		*upd.Visibility != models.VisibilityPrivate {
		return nil, fmt.Errorf("visibility %q: %w", *upd.Visibility, errs.ErrInvalidInput)
	}

	if err := s.chats.UpdateMetadata(ctx, chatID, upd); err != nil {
		return nil, storage("update chat", err)
	}
	chat, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		return nil, storage("reread chat", err)
	}
	if chat == nil {
		return nil, errs.ErrNotFound
	}
	return chat, nil
}

// List returns one keyset page of the uid's chats ordered by most recent
// activity. A cursor naming a chat the uid can no longer see (left or
// deleted since the cursor was issued) yields an empty final page, not an
// error.
func (s *ChatService) List(ctx context.Context, uid int32, limit int, after *models.ID) (*ChatPage, error) {
	limit = pagination.Clamp(limit, pagination.MaxChatsLimit)

	var rows []models.ChatListItem
	if after == nil {
		var err error
		rows, err = s.chats.ListForUser(ctx, uid, pagination.FetchLimit(limit))
		if err != nil {
			return nil, storage("list chats", err)
		}
	} else {
		cursor, err := s.chats.GetListCursor(ctx, uid, *after)
		if err != nil {
			return nil, storage("resolve chat cursor", err)
		}
		if cursor == nil {
			return &ChatPage{Chats: []models.ChatListItem{}}, nil
		}
		rows, err = s.chats.ListForUserAfter(ctx, uid, *cursor, pagination.FetchLimit(limit))
		if err != nil {
			return nil, storage("list chats after cursor", err)
		}
	}

	items, hasMore := pagination.Trim(rows, limit)
	return &ChatPage{
		Chats: items,
		NextCursor: pagination.NextCursor(items, hasMore, func(c models.ChatListItem) models.ID {
			return c.ID
		}),
	}, nil
}
