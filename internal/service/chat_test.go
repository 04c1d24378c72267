package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wetty/chat-backend/internal/errs"
	"github.com/wetty/chat-backend/internal/models"
	"github.com/wetty/chat-backend/internal/repository"
)

func newChatFixture() (*ChatService, *fakeChatRepo, *fakeMembershipRepo) {
	chats := newFakeChatRepo()
	members := newFakeMembershipRepo()
	svc := NewChatService(chats, members, &seqIDGen{next: 100}, zap.NewNop())
	return svc, chats, members
}

// seedChat puts a chat into the fakes with uid as a member and the given
// activity timestamp (nil means no messages yet).
func seedChat(chats *fakeChatRepo, id models.ID, uid int32, name string, lastMsg *time.Time) {
	chats.chats[id] = &models.Chat{ID: id, Name: name, Visibility: models.VisibilityPublic, CreatedAt: time.Now()}
	chats.addMember(id, uid)
	chats.lastMsg[id] = lastMsg
}

func timeptr(t time.Time) *time.Time { return &t }

func TestCreateChatAddsCreatorAsAdmin(t *testing.T) {
	svc, chats, members := newChatFixture()

	chat, err := svc.Create(context.Background(), 10, strptr("  team room  "))
	require.NoError(t, err)
	assert.Equal(t, "team room", chat.Name)
	assert.Equal(t, models.VisibilityPublic, chat.Visibility)

	stored, err := chats.GetByID(context.Background(), chat.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)

	role, err := members.GetRole(context.Background(), chat.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, role)
}

func TestGetMissingChatIsNotFound(t *testing.T) {
	svc, _, _ := newChatFixture()

	_, err := svc.Get(context.Background(), models.ID(5555))
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestUpdateChatRejectsUnknownVisibility(t *testing.T) {
	svc, chats, _ := newChatFixture()
	seedChat(chats, 1, 10, "room", nil)

	_, err := svc.UpdateMetadata(context.Background(), 1, repository.ChatUpdate{
		Visibility: strptr("secret"),
	})
	require.ErrorIs(t, err, errs.ErrInvalidInput)
}

func TestUpdateChatAppliesOnlyProvidedFields(t *testing.T) {
	svc, chats, _ := newChatFixture()
	seedChat(chats, 1, 10, "room", nil)

	updated, err := svc.UpdateMetadata(context.Background(), 1, repository.ChatUpdate{
		Description: strptr("weekly sync"),
	})
	require.NoError(t, err)
	assert.Equal(t, "room", updated.Name)
	require.NotNil(t, updated.Description)
	assert.Equal(t, "weekly sync", *updated.Description)
}

func TestListOrdersByActivityWithQuietChatsLast(t *testing.T) {
	svc, chats, _ := newChatFixture()
	base := time.Now().UTC()

	seedChat(chats, 1, 10, "old", timeptr(base.Add(-time.Hour)))
	seedChat(chats, 2, 10, "busy", timeptr(base))
	seedChat(chats, 3, 10, "quiet", nil) // no messages yet

	page, err := svc.List(context.Background(), 10, 50, nil)
	require.NoError(t, err)
	require.Len(t, page.Chats, 3)
	assert.Equal(t, models.ID(2), page.Chats[0].ID)
	assert.Equal(t, models.ID(1), page.Chats[1].ID)
	assert.Equal(t, models.ID(3), page.Chats[2].ID)
	assert.Nil(t, page.NextCursor)
}

func TestListQuietChatsTieBreakOnID(t *testing.T) {
	svc, chats, _ := newChatFixture()

	seedChat(chats, 7, 10, "a", nil)
	seedChat(chats, 9, 10, "b", nil)

	page, err := svc.List(context.Background(), 10, 50, nil)
	require.NoError(t, err)
	require.Len(t, page.Chats, 2)
	assert.Equal(t, models.ID(9), page.Chats[0].ID)
	assert.Equal(t, models.ID(7), page.Chats[1].ID)
}

func TestListCursorWalkVisitsEveryChatOnce(t *testing.T) {
	svc, chats, _ := newChatFixture()
	base := time.Now().UTC()

	for i := 1; i <= 7; i++ {
		var ts *time.Time
		if i%2 == 0 {
			ts = timeptr(base.Add(time.Duration(i) * time.Minute))
		}
		seedChat(chats, models.ID(i), 10, "c", ts)
	}

	seen := make(map[models.ID]int)
	var after *models.ID
	for {
		page, err := svc.List(context.Background(), 10, 3, after)
		require.NoError(t, err)
		for _, item := range page.Chats {
			seen[item.ID]++
		}
		if page.NextCursor == nil {
			break
		}
		after = page.NextCursor
	}

	require.Len(t, seen, 7)
	for id, count := range seen {
		assert.Equal(t, 1, count, "chat %d visited %d times", id, count)
	}
}

func TestListNextCursorOnlyWhenMoreRows(t *testing.T) {
	svc, chats, _ := newChatFixture()
	base := time.Now().UTC()

	seedChat(chats, 1, 10, "a", timeptr(base.Add(-time.Minute)))
	seedChat(chats, 2, 10, "b", timeptr(base))
	seedChat(chats, 3, 10, "c", nil)

	page, err := svc.List(context.Background(), 10, 2, nil)
	require.NoError(t, err)
	require.Len(t, page.Chats, 2)
	require.NotNil(t, page.NextCursor)
	assert.Equal(t, models.ID(1), *page.NextCursor)

	page, err = svc.List(context.Background(), 10, 2, page.NextCursor)
	require.NoError(t, err)
	require.Len(t, page.Chats, 1)
	assert.Equal(t, models.ID(3), page.Chats[0].ID)
	assert.Nil(t, page.NextCursor)
}

func TestListStaleCursorYieldsEmptyPage(t *testing.T) {
	svc, chats, _ := newChatFixture()
	seedChat(chats, 1, 10, "a", nil)

	// uid 10 was never in chat 404, or left since the cursor was issued.
	stale := models.ID(404)
	page, err := svc.List(context.Background(), 10, 10, &stale)
	require.NoError(t, err)
	assert.Empty(t, page.Chats)
	assert.Nil(t, page.NextCursor)
}

func TestListExcludesChatsTheUserIsNotIn(t *testing.T) {
	svc, chats, _ := newChatFixture()

	seedChat(chats, 1, 10, "mine", nil)
	seedChat(chats, 2, 99, "theirs", nil)

	page, err := svc.List(context.Background(), 10, 50, nil)
	require.NoError(t, err)
	require.Len(t, page.Chats, 1)
	assert.Equal(t, models.ID(1), page.Chats[0].ID)
}
