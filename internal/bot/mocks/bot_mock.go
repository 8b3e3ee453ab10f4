// Package mocks provides mock implementations for testing bot handlers.
package mocks

import (
	"context"
	"io"
	"sync"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// TelegramAPI defines the interface for Telegram bot operations.
// This interface is defined here to avoid import cycles between bot and mocks packages.
type TelegramAPI interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	EditMessageText(ctx context.Context, params *bot.EditMessageTextParams) (*models.Message, error)
	AnswerCallbackQuery(ctx context.Context, params *bot.AnswerCallbackQueryParams) (bool, error)
	SendPhoto(ctx context.Context, params *bot.SendPhotoParams) (*models.Message, error)
	SendMediaGroup(ctx context.Context, params *bot.SendMediaGroupParams) ([]*models.Message, error)
	SendDocument(ctx context.Context, params *bot.SendDocumentParams) (*models.Message, error)
}

// SentMessage captures a message sent via MockBot.
type SentMessage struct {
	ChatID      any
	Text        string
	ParseMode   models.ParseMode
	ReplyMarkup models.ReplyMarkup
}

// EditedMessage captures an edited message via MockBot.
type EditedMessage struct {
	ChatID      any
	MessageID   int
	Text        string
	ParseMode   models.ParseMode
	ReplyMarkup models.ReplyMarkup
}

// AnsweredCallback captures a callback query answer via MockBot.
type AnsweredCallback struct {
	CallbackQueryID string
	Text            string
	ShowAlert       bool
}

// SentPhoto captures a photo sent via MockBot.
type SentPhoto struct {
	ChatID   any
	FileID   string
	Filename string
	Caption  string
}

// SentMediaGroup captures an album sent via MockBot.
type SentMediaGroup struct {
	ChatID  any
	FileIDs []string
	Caption string
}

// SentDocument captures a document sent via MockBot.
type SentDocument struct {
	ChatID   any
	Filename string
	Caption  string
	Data     []byte
}

// Compile-time check that MockBot implements TelegramAPI.
var _ TelegramAPI = (*MockBot)(nil)

// MockBot simulates Telegram bot operations for testing.
type MockBot struct {
	mu sync.RWMutex

	SentMessages      []SentMessage
	EditedMessages    []EditedMessage
	AnsweredCallbacks []AnsweredCallback
	SentPhotos        []SentPhoto
	SentMediaGroups   []SentMediaGroup
	SentDocuments     []SentDocument

	// SendMessageError allows simulating SendMessage failures.
	SendMessageError error
	// EditMessageError allows simulating EditMessageText failures.
	EditMessageError error
	// SendPhotoError allows simulating SendPhoto failures.
	SendPhotoError error
	// ChatErrors fails sends to specific chats, e.g. with bot.ErrorForbidden
	// for a user who blocked the bot.
	ChatErrors map[int64]error

	// NextMessageID is auto-incremented for each sent message.
	NextMessageID int
}

// NewMockBot creates a new MockBot instance.
func NewMockBot() *MockBot {
	return &MockBot{
		SentMessages:      make([]SentMessage, 0),
		EditedMessages:    make([]EditedMessage, 0),
		AnsweredCallbacks: make([]AnsweredCallback, 0),
		SentPhotos:        make([]SentPhoto, 0),
		SentMediaGroups:   make([]SentMediaGroup, 0),
		SentDocuments:     make([]SentDocument, 0),
		ChatErrors:        make(map[int64]error),
		NextMessageID:     1000,
	}
}

func (m *MockBot) nextID() int {
	id := m.NextMessageID
	m.NextMessageID++
	return id
}

// SendMessage simulates sending a message.
func (m *MockBot) SendMessage(_ context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SendMessageError != nil {
		return nil, m.SendMessageError
	}
	if err := m.ChatErrors[chatIDToInt64(params.ChatID)]; err != nil {
		return nil, err
	}

	m.SentMessages = append(m.SentMessages, SentMessage{
		ChatID:      params.ChatID,
		Text:        params.Text,
		ParseMode:   params.ParseMode,
		ReplyMarkup: params.ReplyMarkup,
	})

	return &models.Message{
		ID: m.nextID(),
		Chat: models.Chat{
			ID: chatIDToInt64(params.ChatID),
		},
		Text: params.Text,
	}, nil
}

// EditMessageText simulates editing a message.
func (m *MockBot) EditMessageText(_ context.Context, params *bot.EditMessageTextParams) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.EditMessageError != nil {
		return nil, m.EditMessageError
	}

	m.EditedMessages = append(m.EditedMessages, EditedMessage{
		ChatID:      params.ChatID,
		MessageID:   params.MessageID,
		Text:        params.Text,
		ParseMode:   params.ParseMode,
		ReplyMarkup: params.ReplyMarkup,
	})

	return &models.Message{
		ID: params.MessageID,
		Chat: models.Chat{
			ID: chatIDToInt64(params.ChatID),
		},
		Text: params.Text,
	}, nil
}

// AnswerCallbackQuery simulates answering a callback query.
func (m *MockBot) AnswerCallbackQuery(_ context.Context, params *bot.AnswerCallbackQueryParams) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.AnsweredCallbacks = append(m.AnsweredCallbacks, AnsweredCallback{
		CallbackQueryID: params.CallbackQueryID,
		Text:            params.Text,
		ShowAlert:       params.ShowAlert,
	})

	return true, nil
}

// SendPhoto records a photo sent by file ID or upload.
func (m *MockBot) SendPhoto(_ context.Context, params *bot.SendPhotoParams) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SendPhotoError != nil {
		return nil, m.SendPhotoError
	}
	if err := m.ChatErrors[chatIDToInt64(params.ChatID)]; err != nil {
		return nil, err
	}

	sent := SentPhoto{ChatID: params.ChatID, Caption: params.Caption}
	switch p := params.Photo.(type) {
	case *models.InputFileString:
		sent.FileID = p.Data
	case *models.InputFileUpload:
		sent.Filename = p.Filename
	}
	m.SentPhotos = append(m.SentPhotos, sent)

	return &models.Message{
		ID:      m.nextID(),
		Chat:    models.Chat{ID: chatIDToInt64(params.ChatID)},
		Caption: params.Caption,
	}, nil
}

// SendMediaGroup records an album of photos.
func (m *MockBot) SendMediaGroup(_ context.Context, params *bot.SendMediaGroupParams) ([]*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ChatErrors[chatIDToInt64(params.ChatID)]; err != nil {
		return nil, err
	}

	group := SentMediaGroup{ChatID: params.ChatID}
	msgs := make([]*models.Message, 0, len(params.Media))
	for _, media := range params.Media {
		if photo, ok := media.(*models.InputMediaPhoto); ok {
			group.FileIDs = append(group.FileIDs, photo.Media)
			if photo.Caption != "" {
				group.Caption = photo.Caption
			}
		}
		msgs = append(msgs, &models.Message{ID: m.nextID(), Chat: models.Chat{ID: chatIDToInt64(params.ChatID)}})
	}
	m.SentMediaGroups = append(m.SentMediaGroups, group)

	return msgs, nil
}

// SendDocument sends a document and records it.
func (m *MockBot) SendDocument(_ context.Context, params *bot.SendDocumentParams) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sent := SentDocument{ChatID: params.ChatID, Caption: params.Caption}
	if upload, ok := params.Document.(*models.InputFileUpload); ok {
		sent.Filename = upload.Filename
		if upload.Data != nil {
			sent.Data, _ = io.ReadAll(upload.Data)
		}
	}
	m.SentDocuments = append(m.SentDocuments, sent)

	return &models.Message{
		ID:      m.nextID(),
		Chat:    models.Chat{ID: chatIDToInt64(params.ChatID)},
		Caption: params.Caption,
		Document: &models.Document{
			FileID:   "mock_file_id",
			FileName: sent.Filename,
		},
	}, nil
}

// Reset clears all recorded interactions.
func (m *MockBot) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SentMessages = make([]SentMessage, 0)
	m.EditedMessages = make([]EditedMessage, 0)
	m.AnsweredCallbacks = make([]AnsweredCallback, 0)
	m.SentPhotos = make([]SentPhoto, 0)
	m.SentMediaGroups = make([]SentMediaGroup, 0)
	m.SentDocuments = make([]SentDocument, 0)
	m.SendMessageError = nil
	m.EditMessageError = nil
	m.SendPhotoError = nil
	m.ChatErrors = make(map[int64]error)
}

// LastSentMessage returns the most recently sent message, or nil if none.
func (m *MockBot) LastSentMessage() *SentMessage {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.SentMessages) == 0 {
		return nil
	}
	return &m.SentMessages[len(m.SentMessages)-1]
}

// MessagesTo returns the messages sent to chatID, in order.
func (m *MockBot) MessagesTo(chatID int64) []SentMessage {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []SentMessage
	for _, msg := range m.SentMessages {
		if chatIDToInt64(msg.ChatID) == chatID {
			out = append(out, msg)
		}
	}
	return out
}

// LastEditedMessage returns the most recently edited message, or nil if none.
func (m *MockBot) LastEditedMessage() *EditedMessage {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.EditedMessages) == 0 {
		return nil
	}
	return &m.EditedMessages[len(m.EditedMessages)-1]
}

// LastAnsweredCallback returns the most recent callback answer, or nil if none.
func (m *MockBot) LastAnsweredCallback() *AnsweredCallback {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.AnsweredCallbacks) == 0 {
		return nil
	}
	return &m.AnsweredCallbacks[len(m.AnsweredCallbacks)-1]
}

// SentMessageCount returns the number of messages sent.
func (m *MockBot) SentMessageCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.SentMessages)
}

// SentPhotoCount returns the number of photos sent.
func (m *MockBot) SentPhotoCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.SentPhotos)
}

// chatIDToInt64 converts a ChatID to int64.
func chatIDToInt64(chatID any) int64 {
	switch v := chatID.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	default:
		return 0
	}
}
