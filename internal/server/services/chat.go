package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"slices"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/llm"
	"github.com/dmitrijs2005/gophchat/internal/logging"
	"github.com/dmitrijs2005/gophchat/internal/server/auth"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

const (
	titlePrompt = `- you will generate a short title based on the first message a user begins a conversation with
- ensure it is not more than 80 characters long
- the title should be a summary of the user's message
- do not use quotes or colons`

	regularPrompt = "You are a friendly assistant! Keep your responses concise and helpful."
)

// Streamer produces model output as typed deltas.
type Streamer interface {
	Stream(ctx context.Context, modelID string, msgs []llm.Message) iter.Seq2[llm.Delta, error]
	StreamText(ctx context.Context, modelID string, msgs []llm.Message) iter.Seq2[string, error]
}

type ChatService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	llm         Streamer
	log         logging.Logger
	now         func() time.Time
}

func NewChatService(db *sql.DB, m repomanager.RepositoryManager, streamer Streamer, log logging.Logger) *ChatService {
	return &ChatService{
		db:          db,
		repomanager: m,
		llm:         streamer,
		log:         log.With("module", "chat"),
		now:         time.Now,
	}
}

// GenerateTitleFromUserMessage asks the title model for a short title and
// returns the concatenated stream.
func (s *ChatService) GenerateTitleFromUserMessage(ctx context.Context, text string) (string, error) {
	var b strings.Builder
	for chunk, err := range s.llm.StreamText(ctx, llm.TitleModelID, []llm.Message{
		{Role: string(models.RoleSystem), Content: titlePrompt},
		{Role: string(models.RoleUser), Content: text},
	}) {
		if err != nil {
			return "", fmt.Errorf("error generating title: %w", err)
		}
		b.WriteString(chunk)
	}
	return strings.TrimSpace(b.String()), nil
}

// DeleteTrailingMessages removes the message and everything after it in its
// chat. Only the chat owner may do this.
func (s *ChatService) DeleteTrailingMessages(ctx context.Context, userID, messageID string) (int64, error) {
	msg, err := s.repomanager.Messages(s.db).GetByID(ctx, messageID)
	if err != nil {
		return 0, err
	}
	if _, err := s.ownedChat(ctx, userID, msg.ChatID); err != nil {
		return 0, err
	}
	return s.repomanager.Messages(s.db).DeleteByChatIDAfterTimestamp(ctx, msg.ChatID, msg.CreatedAt)
}

func (s *ChatService) UpdateChatVisibility(ctx context.Context, userID, chatID string, visibility models.Visibility) error {
	if _, err := s.ownedChat(ctx, userID, chatID); err != nil {
		return err
	}
	return s.repomanager.Chats(s.db).UpdateVisibility(ctx, chatID, visibility)
}

func (s *ChatService) ownedChat(ctx context.Context, userID, chatID string) (*models.Chat, error) {
	chat, err := s.repomanager.Chats(s.db).GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if chat.UserID != userID {
		return nil, common.ErrorForbidden
	}
	return chat, nil
}

// ReplyRequest is one user turn.
type ReplyRequest struct {
	ChatID     string
	UserID     string
	UserType   auth.UserType
	ModelID    string
	Visibility models.Visibility
	Message    models.Message
}

// Reply checks entitlements, persists the user message (creating the chat on
// first use) and returns the model's streamed answer. The assistant message
// is stored once the stream completes.
func (s *ChatService) Reply(ctx context.Context, req ReplyRequest) (iter.Seq2[llm.Delta, error], error) {
	if req.ModelID == "" {
		req.ModelID = DefaultChatModel
	}
	if err := uuid.Validate(req.ChatID); err != nil {
		return nil, fmt.Errorf("%w: chat id", common.ErrorValidation)
	}
	text := req.Message.Text()
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty message", common.ErrorValidation)
	}

	ent := EntitlementsFor(req.UserType)
	if !slices.Contains(ent.AvailableChatModelIDs, req.ModelID) {
		return nil, common.ErrorForbidden
	}

	count, err := s.repomanager.Messages(s.db).CountByUserSince(ctx, req.UserID, s.now().Add(-24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("error counting messages: %w", err)
	}
	if count > ent.MaxMessagesPerDay {
		return nil, common.ErrorQuotaExceeded
	}

	chat, err := s.repomanager.Chats(s.db).GetByID(ctx, req.ChatID)
	switch {
	case errors.Is(err, common.ErrorNotFound):
		title, err := s.GenerateTitleFromUserMessage(ctx, text)
		if err != nil {
			return nil, err
		}
		visibility := req.Visibility
		if visibility == "" {
			visibility = models.VisibilityPrivate
		}
		if _, err := s.repomanager.Chats(s.db).Create(ctx, &models.Chat{
			ID: req.ChatID, UserID: req.UserID, Title: title, Visibility: visibility,
		}); err != nil {
			return nil, fmt.Errorf("error creating chat: %w", err)
		}
	case err != nil:
		return nil, err
	case chat.UserID != req.UserID:
		return nil, common.ErrorForbidden
	}

	userMsg := req.Message
	userMsg.ChatID = req.ChatID
	userMsg.Role = models.RoleUser
	if userMsg.ID == "" {
		userMsg.ID = uuid.NewString()
	}
	if err := s.repomanager.Messages(s.db).Save(ctx, &userMsg); err != nil {
		return nil, fmt.Errorf("error saving message: %w", err)
	}

	history, err := s.repomanager.Messages(s.db).ListByChatID(ctx, req.ChatID)
	if err != nil {
		return nil, fmt.Errorf("error loading history: %w", err)
	}

	prompt := make([]llm.Message, 0, len(history)+1)
	prompt = append(prompt, llm.Message{Role: string(models.RoleSystem), Content: regularPrompt})
	for _, m := range history {
		prompt = append(prompt, llm.Message{Role: string(m.Role), Content: m.Text()})
	}

	deltas := s.llm.Stream(ctx, req.ModelID, prompt)
	return func(yield func(llm.Delta, error) bool) {
		var answer strings.Builder
		for d, err := range deltas {
			if err != nil {
				yield(llm.Delta{}, err)
				return
			}
			if d.Type == llm.DeltaText {
				answer.WriteString(d.Text)
			}
			if !yield(d, nil) {
				return
			}
		}

		assistant := &models.Message{
			ID:     uuid.NewString(),
			ChatID: req.ChatID,
			Role:   models.RoleAssistant,
			Parts:  []models.Part{{Type: "text", Text: answer.String()}},
		}
		if err := s.repomanager.Messages(s.db).Save(context.WithoutCancel(ctx), assistant); err != nil {
			s.log.Error(ctx, "failed to save assistant message", "chat_id", req.ChatID, "error", err)
			yield(llm.Delta{}, fmt.Errorf("error saving reply: %w", err))
		}
	}, nil
}
