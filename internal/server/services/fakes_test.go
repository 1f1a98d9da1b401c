package services

import (
	"context"
	"database/sql"
	"iter"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/dbx"
	"github.com/dmitrijs2005/gophchat/internal/llm"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
	chatsrepo "github.com/dmitrijs2005/gophchat/internal/server/repositories/chats"
	messagesrepo "github.com/dmitrijs2005/gophchat/internal/server/repositories/messages"
	usersrepo "github.com/dmitrijs2005/gophchat/internal/server/repositories/users"
)

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

// --- users ---

type fakeUsersRepo struct {
	mu        sync.Mutex
	byName    map[string]*models.User
	ensureErr error
	getErr    error
	ensures   int
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{byName: map[string]*models.User{}}
}

func (f *fakeUsersRepo) GetUserByUsername(ctx context.Context, userName string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.byName[userName]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return u, nil
}

func (f *fakeUsersRepo) EnsureUserByUsername(ctx context.Context, userName string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensures++
	if f.ensureErr != nil {
		return nil, f.ensureErr
	}
	if u, ok := f.byName[userName]; ok {
		return u, nil
	}
	u := &models.User{ID: "id-" + userName, UserName: userName, CreatedAt: time.Now()}
	f.byName[userName] = u
	return u, nil
}

func (f *fakeUsersRepo) DeleteByUsername(ctx context.Context, userName string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byName[userName]
	if !ok {
		return nil, common.ErrorNotFound
	}
	delete(f.byName, userName)
	return u, nil
}

// --- chats ---

type fakeChatsRepo struct {
	byID      map[string]*models.Chat
	createErr error
}

func newFakeChatsRepo() *fakeChatsRepo {
	return &fakeChatsRepo{byID: map[string]*models.Chat{}}
}

func (f *fakeChatsRepo) Create(ctx context.Context, chat *models.Chat) (*models.Chat, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	c := *chat
	f.byID[chat.ID] = &c
	return chat, nil
}

func (f *fakeChatsRepo) GetByID(ctx context.Context, id string) (*models.Chat, error) {
	c, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return c, nil
}

func (f *fakeChatsRepo) UpdateVisibility(ctx context.Context, id string, v models.Visibility) error {
	c, ok := f.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	c.Visibility = v
	return nil
}

func (f *fakeChatsRepo) DeleteByUserID(ctx context.Context, userID string) (int64, error) {
	var n int64
	for id, c := range f.byID {
		if c.UserID == userID {
			delete(f.byID, id)
			n++
		}
	}
	return n, nil
}

// --- messages ---

type fakeMessagesRepo struct {
	list    []*models.Message
	count   int
	saveErr error
	clock   time.Time
}

func (f *fakeMessagesRepo) Save(ctx context.Context, msg *models.Message) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.clock = f.clock.Add(time.Second)
	msg.CreatedAt = f.clock
	m := *msg
	f.list = append(f.list, &m)
	return nil
}

func (f *fakeMessagesRepo) GetByID(ctx context.Context, id string) (*models.Message, error) {
	for _, m := range f.list {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeMessagesRepo) ListByChatID(ctx context.Context, chatID string) ([]*models.Message, error) {
	var out []*models.Message
	for _, m := range f.list {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMessagesRepo) DeleteByChatIDAfterTimestamp(ctx context.Context, chatID string, ts time.Time) (int64, error) {
	var n int64
	kept := f.list[:0]
	for _, m := range f.list {
		if m.ChatID == chatID && !m.CreatedAt.Before(ts) {
			n++
			continue
		}
		kept = append(kept, m)
	}
	f.list = kept
	return n, nil
}

func (f *fakeMessagesRepo) CountByUserSince(ctx context.Context, userID string, since time.Time) (int, error) {
	return f.count, nil
}

// --- manager ---

type fakeRepoManager struct {
	u *fakeUsersRepo
	c *fakeChatsRepo
	m *fakeMessagesRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{u: newFakeUsersRepo(), c: newFakeChatsRepo(), m: &fakeMessagesRepo{}}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository       { return m.u }
func (m *fakeRepoManager) Chats(db dbx.DBTX) chatsrepo.Repository       { return m.c }
func (m *fakeRepoManager) Messages(db dbx.DBTX) messagesrepo.Repository { return m.m }

// --- llm ---

type fakeStreamer struct {
	replies map[string][]llm.Delta
	err     error
	prompts map[string][]llm.Message
}

func newFakeStreamer() *fakeStreamer {
	return &fakeStreamer{replies: map[string][]llm.Delta{}, prompts: map[string][]llm.Message{}}
}

func (f *fakeStreamer) Stream(ctx context.Context, modelID string, msgs []llm.Message) iter.Seq2[llm.Delta, error] {
	f.prompts[modelID] = msgs
	return func(yield func(llm.Delta, error) bool) {
		for _, d := range f.replies[modelID] {
			if !yield(d, nil) {
				return
			}
		}
		if f.err != nil {
			yield(llm.Delta{}, f.err)
		}
	}
}

func (f *fakeStreamer) StreamText(ctx context.Context, modelID string, msgs []llm.Message) iter.Seq2[string, error] {
	deltas := f.Stream(ctx, modelID, msgs)
	return func(yield func(string, error) bool) {
		for d, err := range deltas {
			if err != nil {
				yield("", err)
				return
			}
			if d.Type == llm.DeltaText && !yield(d.Text, nil) {
				return
			}
		}
	}
}

func textDeltas(parts ...string) []llm.Delta {
	out := make([]llm.Delta, 0, len(parts))
	for _, p := range parts {
		out = append(out, llm.Delta{Type: llm.DeltaText, Text: p})
	}
	return out
}
