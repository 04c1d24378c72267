package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/wetty/chat-backend/internal/models"
	"github.com/wetty/chat-backend/internal/pagination"
	"github.com/wetty/chat-backend/internal/repository"
)

// In-memory fakes backing the service tests. They model the same contracts
// as the postgres stores, including nil-nil for missing rows.

type fakeMessageRepo struct {
	rows      map[models.ID]*models.Message
	insertErr error
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{rows: make(map[models.ID]*models.Message)}
}

func (f *fakeMessageRepo) Insert(_ context.Context, msg *models.Message) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	stored := *msg
	f.rows[msg.ID] = &stored
	return nil
}

func (f *fakeMessageRepo) GetByID(_ context.Context, chatID, messageID models.ID) (*models.Message, error) {
	msg, ok := f.rows[messageID]
	if !ok || msg.ChatID != chatID {
		return nil, nil
	}
	out := *msg
	return &out, nil
}

func (f *fakeMessageRepo) GetByIDs(_ context.Context, ids []models.ID) ([]models.Message, error) {
	var out []models.Message
	for _, id := range ids {
		if msg, ok := f.rows[id]; ok {
			out = append(out, *msg)
		}
	}
	return out, nil
}

func (f *fakeMessageRepo) UpdateBody(_ context.Context, messageID models.ID, body string, updatedAt time.Time) error {
	msg, ok := f.rows[messageID]
	if !ok {
		return errors.New("no such row")
	}
	b := body
	msg.Body = &b
	t := updatedAt
	msg.UpdatedAt = &t
	return nil
}

func (f *fakeMessageRepo) SoftDelete(_ context.Context, messageID models.ID, deletedAt time.Time) error {
	msg, ok := f.rows[messageID]
	if !ok {
		return errors.New("no such row")
	}
	t := deletedAt
	msg.DeletedAt = &t
	return nil
}

func (f *fakeMessageRepo) ListByChat(_ context.Context, chatID models.ID, before *models.ID, fetchLimit int) ([]models.Message, error) {
	var ids []models.ID
	for id, msg := range f.rows {
		if msg.ChatID != chatID {
			continue
		}
		if before != nil && id >= *before {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
	if len(ids) > fetchLimit {
		ids = ids[:fetchLimit]
	}
	out := make([]models.Message, 0, len(ids))
	for _, id := range ids {
		out = append(out, *f.rows[id])
	}
	return out, nil
}

type fakeMembershipRepo struct {
	rows        map[models.ID]map[int32]models.Membership
	listUIDsErr error
}

func newFakeMembershipRepo() *fakeMembershipRepo {
	return &fakeMembershipRepo{rows: make(map[models.ID]map[int32]models.Membership)}
}

func (f *fakeMembershipRepo) Add(_ context.Context, m models.Membership) error {
	if f.rows[m.ChatID] == nil {
		f.rows[m.ChatID] = make(map[int32]models.Membership)
	}
	f.rows[m.ChatID][m.UID] = m
	return nil
}

func (f *fakeMembershipRepo) Remove(_ context.Context, chatID models.ID, uid int32) error {
	delete(f.rows[chatID], uid)
	return nil
}

func (f *fakeMembershipRepo) List(_ context.Context, chatID models.ID) ([]models.Member, error) {
	var out []models.Member
	for _, m := range f.rows[chatID] {
		out = append(out, models.Member{UID: m.UID, Role: m.Role, JoinedAt: m.JoinedAt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UID < out[j].UID })
	return out, nil
}

func (f *fakeMembershipRepo) ListUIDs(_ context.Context, chatID models.ID) ([]int32, error) {
	if f.listUIDsErr != nil {
		return nil, f.listUIDsErr
	}
	var out []int32
	for uid := range f.rows[chatID] {
		out = append(out, uid)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (f *fakeMembershipRepo) GetMember(_ context.Context, chatID models.ID, uid int32) (*models.Member, error) {
	m, ok := f.rows[chatID][uid]
	if !ok {
		return nil, nil
	}
	return &models.Member{UID: m.UID, Role: m.Role, JoinedAt: m.JoinedAt}, nil
}

func (f *fakeMembershipRepo) GetRole(_ context.Context, chatID models.ID, uid int32) (string, error) {
	m, ok := f.rows[chatID][uid]
	if !ok {
		return "", nil
	}
	return m.Role, nil
}

func (f *fakeMembershipRepo) UpdateRole(_ context.Context, chatID models.ID, uid int32, role string) error {
	m, ok := f.rows[chatID][uid]
	if !ok {
		return errors.New("no such member")
	}
	m.Role = role
	f.rows[chatID][uid] = m
	return nil
}

type fakeChatRepo struct {
	chats   map[models.ID]*models.Chat
	members map[models.ID]map[int32]bool
	lastMsg map[models.ID]*time.Time
}

func newFakeChatRepo() *fakeChatRepo {
	return &fakeChatRepo{
		chats:   make(map[models.ID]*models.Chat),
		members: make(map[models.ID]map[int32]bool),
		lastMsg: make(map[models.ID]*time.Time),
	}
}

func (f *fakeChatRepo) addMember(chatID models.ID, uid int32) {
	if f.members[chatID] == nil {
		f.members[chatID] = make(map[int32]bool)
	}
	f.members[chatID][uid] = true
}

func (f *fakeChatRepo) Create(_ context.Context, chat *models.Chat) error {
	stored := *chat
	f.chats[chat.ID] = &stored
	return nil
}

func (f *fakeChatRepo) GetByID(_ context.Context, chatID models.ID) (*models.Chat, error) {
	chat, ok := f.chats[chatID]
	if !ok {
		return nil, nil
	}
	out := *chat
	return &out, nil
}

func (f *fakeChatRepo) UpdateMetadata(_ context.Context, chatID models.ID, upd repository.ChatUpdate) error {
	chat, ok := f.chats[chatID]
	if !ok {
		return nil
	}
	if upd.Name != nil {
		chat.Name = *upd.Name
	}
	if upd.Description != nil {
		chat.Description = upd.Description
	}
	if upd.Avatar != nil {
		chat.Avatar = upd.Avatar
	}
	if upd.Visibility != nil {
		chat.Visibility = *upd.Visibility
	}
	return nil
}

func (f *fakeChatRepo) itemsFor(uid int32) []models.ChatListItem {
	var out []models.ChatListItem
	for id, chat := range f.chats {
		if !f.members[id][uid] {
			continue
		}
		item := models.ChatListItem{ID: id, LastMessageAt: f.lastMsg[id]}
		if chat.Name != "" {
			name := chat.Name
			item.Name = &name
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		a := pagination.ChatKey{LastMessageAt: out[i].LastMessageAt, ID: out[i].ID}
		b := pagination.ChatKey{LastMessageAt: out[j].LastMessageAt, ID: out[j].ID}
		return a.SortsBefore(b)
	})
	return out
}

func (f *fakeChatRepo) ListForUser(_ context.Context, uid int32, fetchLimit int) ([]models.ChatListItem, error) {
	items := f.itemsFor(uid)
	if len(items) > fetchLimit {
		items = items[:fetchLimit]
	}
	return items, nil
}

func (f *fakeChatRepo) ListForUserAfter(_ context.Context, uid int32, cursor pagination.ChatKey, fetchLimit int) ([]models.ChatListItem, error) {
	var out []models.ChatListItem
	for _, item := range f.itemsFor(uid) {
		key := pagination.ChatKey{LastMessageAt: item.LastMessageAt, ID: item.ID}
		if !pagination.AfterCursor(key, cursor) {
			continue
		}
		out = append(out, item)
		if len(out) == fetchLimit {
			break
		}
	}
	return out, nil
}

func (f *fakeChatRepo) GetListCursor(_ context.Context, uid int32, chatID models.ID) (*pagination.ChatKey, error) {
	if _, ok := f.chats[chatID]; !ok || !f.members[chatID][uid] {
		return nil, nil
	}
	return &pagination.ChatKey{LastMessageAt: f.lastMsg[chatID], ID: chatID}, nil
}

type fakeUserRepo struct {
	users map[int32]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int32]*models.User)}
}

func (f *fakeUserRepo) Create(_ context.Context, username, passwordHash string) (*models.User, error) {
	uid := int32(len(f.users) + 1)
	u := &models.User{UID: uid, Username: username, PasswordHash: passwordHash}
	f.users[uid] = u
	return u, nil
}

func (f *fakeUserRepo) GetByUsername(_ context.Context, username string) (*models.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			out := *u
			return &out, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) Exists(_ context.Context, uid int32) (bool, error) {
	_, ok := f.users[uid]
	return ok, nil
}

// seqIDGen hands out sequential ids so tests can predict ordering.
type seqIDGen struct {
	next int64
	err  error
}

func (g *seqIDGen) NextID() (int64, error) {
	if g.err != nil {
		return 0, g.err
	}
	g.next++
	return g.next, nil
}

// captureBroadcaster records every fan-out instead of delivering it.
type captureBroadcaster struct {
	calls []broadcastCall
}

type broadcastCall struct {
	uids    []int32
	payload []byte
}

func (c *captureBroadcaster) Broadcast(uids []int32, payload []byte) {
	c.calls = append(c.calls, broadcastCall{uids: uids, payload: payload})
}
