// Package service holds the domain logic between the HTTP handlers and the
// repositories: the message lifecycle, chat listings, and membership rules.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wetty/chat-backend/internal/errs"
	"github.com/wetty/chat-backend/internal/events"
	"github.com/wetty/chat-backend/internal/ids"
	"github.com/wetty/chat-backend/internal/models"
	"github.com/wetty/chat-backend/internal/pagination"
	"github.com/wetty/chat-backend/internal/repository"
)

// storage tags a repository failure so handlers can map it uniformly.
func storage(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, errs.ErrStorageUnavailable, err)
}

// MessageService is the message lifecycle coordinator: it serializes
// create/edit/soft-delete transitions against storage and, once a write is
// acknowledged, fans the freshly re-read row out to every current member.
//
// The fan-out is deliberately outside any transaction: a message counts as
// sent once persisted, and a failed or partial broadcast is logged, never
// retried, and never reported to the writer.
type MessageService struct {
	messages    repository.MessageRepository
	members     repository.MembershipRepository
	idGen       ids.Generator
	broadcaster events.Broadcaster
	logger      *zap.Logger

	now func() time.Time
}

func NewMessageService(
	messages repository.MessageRepository,
	members repository.MembershipRepository,
	idGen ids.Generator,
	broadcaster events.Broadcaster,
	logger *zap.Logger,
) *MessageService {
	return &MessageService{
		messages:    messages,
		members:     members,
		idGen:       idGen,
		broadcaster: broadcaster,
		logger:      logger,
		now:         time.Now,
	}
}

// CreateMessageInput is everything a send request carries. The client
// supplies ClientGeneratedID as its idempotency token; it is stored and
// echoed back but not enforced as unique — retries that resend it produce
// duplicate rows, which clients dedupe on their side.
type CreateMessageInput struct {
	ChatID            models.ID
	SenderUID         int32
	Body              *string
	Type              string
	ClientGeneratedID string
	ReplyToID         *models.ID
	ReplyRootID       *models.ID
}

// MessagePage is one page of the message listing, newest first.
type MessagePage struct {
	Messages   []models.MessageView `json:"messages"`
	NextCursor *models.ID           `json:"next_cursor"`
}

// Create persists a new message and pushes a "message" event to all
// current chat members. Membership of the sender must already have been
// checked by the caller.
func (s *MessageService) Create(ctx context.Context, in CreateMessageInput) (*models.MessageView, error) {
	id, err := s.idGen.NextID()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrIDGeneration, err)
	}

	msg := models.Message{
		ID:                models.ID(id),
		Body:              in.Body,
		Type:              in.Type,
		ReplyToID:         in.ReplyToID,
		ReplyRootID:       in.ReplyRootID,
		ClientGeneratedID: in.ClientGeneratedID,
		SenderUID:         in.SenderUID,
		ChatID:            in.ChatID,
		CreatedAt:         s.now().UTC(),
	}
	if err := s.messages.Insert(ctx, &msg); err != nil {
		return nil, storage("insert message", err)
	}

	view := models.MessageView{Message: msg}
	if in.ReplyToID != nil {
		// Preview resolution is best-effort: a dangling reply id leaves
		// the preview null rather than failing the send.
		parent, err := s.messages.GetByID(ctx, in.ChatID, *in.ReplyToID)
		if err != nil {
			s.logger.Warn("resolve reply preview", zap.Error(err))
		} else if parent != nil {
			view.ReplyToMessage = replyPreview(parent)
		}
	}

	s.fanOut(ctx, in.ChatID, events.TypeMessage, &view)
	return &view, nil
}

// Edit replaces the body of a message. Only the original sender may edit,
// deleted messages reject edits, and the pushed event carries the re-read
// row so concurrent edits are reflected faithfully.
func (s *MessageService) Edit(ctx context.Context, chatID, messageID models.ID, requesterUID int32, newBody string) (*models.MessageView, error) {
	msg, err := s.messages.GetByID(ctx, chatID, messageID)
	if err != nil {
		return nil, storage("get message", err)
	}
	if msg == nil {
		return nil, errs.ErrNotFound
	}
	if msg.SenderUID != requesterUID {
		return nil, fmt.Errorf("edit not by sender: %w", errs.ErrForbidden)
	}
	if msg.Deleted() {
		return nil, fmt.Errorf("edit of deleted message: %w", errs.ErrInvalidState)
	}
	if strings.TrimSpace(newBody) == "" {
		return nil, fmt.Errorf("empty message body: %w", errs.ErrInvalidInput)
	}

	if err := s.messages.UpdateBody(ctx, messageID, newBody, s.now().UTC()); err != nil {
		return nil, storage("update message body", err)
	}
	updated, err := s.messages.GetByID(ctx, chatID, messageID)
	if err != nil || updated == nil {
		return nil, storage("reread updated message", err)
	}

	view := models.MessageView{Message: *updated}
	s.fanOut(ctx, chatID, events.TypeMessageUpdated, &view)
	return &view, nil
}

// Delete soft-deletes a message: deleted_at is set, the row and body stay.
// Deleted is a terminal state; a second delete fails.
func (s *MessageService) Delete(ctx context.Context, chatID, messageID models.ID, requesterUID int32) (*models.MessageView, error) {
	msg, err := s.messages.GetByID(ctx, chatID, messageID)
	if err != nil {
		return nil, storage("get message", err)
	}
	if msg == nil {
		return nil, errs.ErrNotFound
	}
	if msg.SenderUID != requesterUID {
		return nil, fmt.Errorf("delete not by sender: %w", errs.ErrForbidden)
	}
	if msg.Deleted() {
		return nil, errs.ErrAlreadyDeleted
	}

	if err := s.messages.SoftDelete(ctx, messageID, s.now().UTC()); err != nil {
		return nil, storage("soft delete message", err)
	}
	deleted, err := s.messages.GetByID(ctx, chatID, messageID)
	if err != nil || deleted == nil {
		return nil, storage("reread deleted message", err)
	}

	view := models.MessageView{Message: *deleted}
	s.fanOut(ctx, chatID, events.TypeMessageDeleted, &view)
	return &view, nil
}

// List returns one keyset page of a chat's messages, newest first, with
// reply previews batch-resolved in a single follow-up lookup.
func (s *MessageService) List(ctx context.Context, chatID models.ID, limit int, before *models.ID) (*MessagePage, error) {
	limit = pagination.Clamp(limit, pagination.MaxMessagesLimit)

	rows, err := s.messages.ListByChat(ctx, chatID, before, pagination.FetchLimit(limit))
	if err != nil {
		return nil, storage("list messages", err)
	}
	items, hasMore := pagination.Trim(rows, limit)

	previews, err := s.resolveReplyPreviews(ctx, items)
	if err != nil {
		return nil, err
	}

	views := make([]models.MessageView, 0, len(items))
	for _, m := range items {
		view := models.MessageView{Message: m}
		if m.ReplyToID != nil {
			view.ReplyToMessage = previews[*m.ReplyToID]
		}
		views = append(views, view)
	}

	return &MessagePage{
		Messages: views,
		NextCursor: pagination.NextCursor(views, hasMore, func(v models.MessageView) models.ID {
			return v.ID
		}),
	}, nil
}

// resolveReplyPreviews fetches the distinct set of replied-to messages in
// one query. Never one lookup per message.
func (s *MessageService) resolveReplyPreviews(ctx context.Context, msgs []models.Message) (map[models.ID]*models.ReplyPreview, error) {
	seen := make(map[models.ID]struct{})
	distinct := make([]models.ID, 0)
	for _, m := range msgs {
		if m.ReplyToID == nil {
			continue
		}
		if _, ok := seen[*m.ReplyToID]; ok {
			continue
		}
		seen[*m.ReplyToID] = struct{}{}
		distinct = append(distinct, *m.ReplyToID)
	}
	if len(distinct) == 0 {
		return nil, nil
	}

	parents, err := s.messages.GetByIDs(ctx, distinct)
	if err != nil {
		return nil, storage("resolve reply previews", err)
	}
	previews := make(map[models.ID]*models.ReplyPreview, len(parents))
	for i := range parents {
		previews[parents[i].ID] = replyPreview(&parents[i])
	}
	return previews, nil
}

// fanOut pushes an event to every current member's live connections. Any
// failure here is absorbed: persistence has already succeeded and delivery
// is best-effort.
func (s *MessageService) fanOut(ctx context.Context, chatID models.ID, eventType string, payload *models.MessageView) {
	uids, err := s.members.ListUIDs(ctx, chatID)
	if err != nil {
		s.logger.Warn("list members for fan-out",
			zap.Int64("chat_id", chatID.Int64()),
			zap.Error(err),
		)
		return
	}
	body, err := events.Marshal(eventType, payload)
	if err != nil {
		s.logger.Error("marshal event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return
	}
	s.broadcaster.Broadcast(uids, body)
}

func replyPreview(m *models.Message) *models.ReplyPreview {
	return &models.ReplyPreview{
		ID:        m.ID,
		Body:      m.Body,
		SenderUID: m.SenderUID,
		DeletedAt: m.DeletedAt,
	}
}
