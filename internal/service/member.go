package service

import (
	"context"
	"fmt"
	"time"

	"github.com/wetty/chat-backend/internal/errs"
	"github.com/wetty/chat-backend/internal/models"
	"github.com/wetty/chat-backend/internal/repository"
)

// MemberService handles chat membership and doubles as the authorization
// collaborator: handlers call RequireMember/RequireAdmin before touching
// messages or chat details.
type MemberService struct {
	members repository.MembershipRepository
	users   repository.UserRepository

	now func() time.Time
}

func NewMemberService(members repository.MembershipRepository, users repository.UserRepository) *MemberService {
	return &MemberService{
		members: members,
		users:   users,
		now:     time.Now,
	}
}

// RequireMember fails with ErrForbidden unless uid belongs to the chat.
func (s *MemberService) RequireMember(ctx context.Context, chatID models.ID, uid int32) error {
	role, err := s.members.GetRole(ctx, chatID, uid)
	if err != nil {
		return storage("check membership", err)
	}
	if role == "" {
		return fmt.Errorf("not a member of chat %d: %w", chatID, errs.ErrForbidden)
	}
	return nil
}

// RequireAdmin fails with ErrForbidden unless uid is an admin of the chat.
func (s *MemberService) RequireAdmin(ctx context.Context, chatID models.ID, uid int32) error {
	role, err := s.members.GetRole(ctx, chatID, uid)
	if err != nil {
		return storage("check admin role", err)
	}
	if role != models.RoleAdmin {
		return fmt.Errorf("admin role required in chat %d: %w", chatID, errs.ErrForbidden)
	}
	return nil
}

// List returns all members of the chat.
func (s *MemberService) List(ctx context.Context, chatID models.ID) ([]models.Member, error) {
	members, err := s.members.List(ctx, chatID)
	if err != nil {
		return nil, storage("list members", err)
	}
	return members, nil
}

// Add puts a user in the chat. The target must exist and must not already
// be a member; an empty role defaults to "member".
func (s *MemberService) Add(ctx context.Context, chatID models.ID, targetUID int32, role string) (*models.Member, error) {
	if role == "" {
		role = models.RoleMember
	}
	if role != models.RoleAdmin && role != models.RoleMember {
		return nil, fmt.Errorf("role %q: %w", role, errs.ErrInvalidInput)
	}

	exists, err := s.users.Exists(ctx, targetUID)
	if err != nil {
		return nil, storage("check user exists", err)
	}
	if !exists {
		return nil, fmt.Errorf("user %d: %w", targetUID, errs.ErrNotFound)
	}

	existing, err := s.members.GetRole(ctx, chatID, targetUID)
	if err != nil {
		return nil, storage("check existing membership", err)
	}
	if existing != "" {
		return nil, fmt.Errorf("uid %d already in chat %d: %w", targetUID, chatID, errs.ErrConflict)
	}

	err = s.members.Add(ctx, models.Membership{
		ChatID:   chatID,
		UID:      targetUID,
		Role:     role,
		JoinedAt: s.now().UTC(),
	})
	if err != nil {
		return nil, storage("insert membership", err)
	}

	member, err := s.members.GetMember(ctx, chatID, targetUID)
	if err != nil || member == nil {
		return nil, storage("reread member", err)
	}
	return member, nil
}

// Remove takes a user out of the chat.
func (s *MemberService) Remove(ctx context.Context, chatID models.ID, targetUID int32) error {
	existing, err := s.members.GetRole(ctx, chatID, targetUID)
	if err != nil {
		return storage("check member exists", err)
	}
	if existing == "" {
		return fmt.Errorf("uid %d not in chat %d: %w", targetUID, chatID, errs.ErrNotFound)
	}
	if err := s.members.Remove(ctx, chatID, targetUID); err != nil {
		return storage("remove membership", err)
	}
	return nil
}

// UpdateRole changes an existing member's role.
func (s *MemberService) UpdateRole(ctx context.Context, chatID models.ID, targetUID int32, role string) (*models.Member, error) {
	if role != models.RoleAdmin && role != models.RoleMember {
		return nil, fmt.Errorf("role %q: %w", role, errs.ErrInvalidInput)
	}

	existing, err := s.members.GetRole(ctx, chatID, targetUID)
	if err != nil {
		return nil, storage("check member exists", err)
	}
	if existing == "" {
		return nil, fmt.Errorf("uid %d not in chat %d: %w", targetUID, chatID, errs.ErrNotFound)
	}

	if err := s.members.UpdateRole(ctx, chatID, targetUID, role); err != nil {
		return nil, storage("update member role", err)
	}
	member, err := s.members.GetMember(ctx, chatID, targetUID)
	if err != nil || member == nil {
		return nil, storage("reread member", err)
	}
	return member, nil
}
