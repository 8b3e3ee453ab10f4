package mocks

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/require"
)

func TestMockBot_SendMessage(t *testing.T) {
	t.Parallel()

	t.Run("captures sent message", func(t *testing.T) {
		t.Parallel()

		mockBot := NewMockBot()
		ctx := context.Background()

		msg, err := mockBot.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    int64(12345),
			Text:      "Hello, World!",
			ParseMode: models.ParseModeHTML,
		})

		require.NoError(t, err)
		require.NotNil(t, msg)
		require.Equal(t, 1000, msg.ID)
		require.Equal(t, int64(12345), msg.Chat.ID)

		require.Equal(t, 1, mockBot.SentMessageCount())
		last := mockBot.LastSentMessage()
		require.NotNil(t, last)
		require.Equal(t, int64(12345), last.ChatID)
		require.Equal(t, "Hello, World!", last.Text)
		require.Equal(t, models.ParseModeHTML, last.ParseMode)
	})

	t.Run("returns error when configured", func(t *testing.T) {
		t.Parallel()

		mockBot := NewMockBot()
		mockBot.SendMessageError = errors.New("send failed")

		_, err := mockBot.SendMessage(context.Background(), &bot.SendMessageParams{
			ChatID: int64(123),
			Text:   "test",
		})

		require.Error(t, err)
		require.Equal(t, "send failed", err.Error())
		require.Equal(t, 0, mockBot.SentMessageCount())
	})

	t.Run("increments message ID", func(t *testing.T) {
		t.Parallel()

		mockBot := NewMockBot()
		ctx := context.Background()

		msg1, err := mockBot.SendMessage(ctx, &bot.SendMessageParams{ChatID: int64(1), Text: "a"})
		require.NoError(t, err)
		msg2, err := mockBot.SendMessage(ctx, &bot.SendMessageParams{ChatID: int64(1), Text: "b"})
		require.NoError(t, err)

		require.Equal(t, 1000, msg1.ID)
		require.Equal(t, 1001, msg2.ID)
	})
}

func TestMockBot_EditMessageText(t *testing.T) {
	t.Parallel()

	t.Run("captures edited message", func(t *testing.T) {
		t.Parallel()

		mockBot := NewMockBot()
		ctx := context.Background()

		keyboard := &models.InlineKeyboardMarkup{
			InlineKeyboard: [][]models.InlineKeyboardButton{
				{{Text: "Button", CallbackData: "data"}},
			},
		}

		msg, err := mockBot.EditMessageText(ctx, &bot.EditMessageTextParams{
			ChatID:      int64(12345),
			MessageID:   100,
			Text:        "Updated text",
			ParseMode:   models.ParseModeHTML,
			ReplyMarkup: keyboard,
		})

		require.NoError(t, err)
		require.NotNil(t, msg)
		require.Equal(t, 100, msg.ID)

		last := mockBot.LastEditedMessage()
		require.NotNil(t, last)
		require.Equal(t, int64(12345), last.ChatID)
		require.Equal(t, 100, last.MessageID)
		require.Equal(t, "Updated text", last.Text)
		require.NotNil(t, last.ReplyMarkup)
	})

	t.Run("returns error when configured", func(t *testing.T) {
		t.Parallel()

		mockBot := NewMockBot()
		mockBot.EditMessageError = errors.New("edit failed")

		_, err := mockBot.EditMessageText(context.Background(), &bot.EditMessageTextParams{
			ChatID:    int64(123),
			MessageID: 1,
			Text:      "test",
		})

		require.Error(t, err)
	})
}

func TestMockBot_AnswerCallbackQuery(t *testing.T) {
	t.Parallel()

	mockBot := NewMockBot()

	ok, err := mockBot.AnswerCallbackQuery(context.Background(), &bot.AnswerCallbackQueryParams{
		CallbackQueryID: "query-123",
		Text:            "Done!",
		ShowAlert:       true,
	})

	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, mockBot.AnsweredCallbacks, 1)
	require.Equal(t, "query-123", mockBot.AnsweredCallbacks[0].CallbackQueryID)
	require.Equal(t, "Done!", mockBot.AnsweredCallbacks[0].Text)
	require.True(t, mockBot.AnsweredCallbacks[0].ShowAlert)
}

func TestMockBot_SendPhoto(t *testing.T) {
	t.Parallel()

	t.Run("records file id photos", func(t *testing.T) {
		t.Parallel()

		mockBot := NewMockBot()
		_, err := mockBot.SendPhoto(context.Background(), &bot.SendPhotoParams{
			ChatID:  int64(5),
			Photo:   &models.InputFileString{Data: "file-1"},
			Caption: "caption",
		})

		require.NoError(t, err)
		require.Equal(t, 1, mockBot.SentPhotoCount())
		require.Equal(t, "file-1", mockBot.SentPhotos[0].FileID)
		require.Equal(t, "caption", mockBot.SentPhotos[0].Caption)
	})

	t.Run("records uploads", func(t *testing.T) {
		t.Parallel()

		mockBot := NewMockBot()
		_, err := mockBot.SendPhoto(context.Background(), &bot.SendPhotoParams{
			ChatID: int64(5),
			Photo:  &models.InputFileUpload{Filename: "chart.png", Data: bytes.NewReader([]byte("png"))},
		})

		require.NoError(t, err)
		require.Equal(t, "chart.png", mockBot.SentPhotos[0].Filename)
	})
}

func TestMockBot_SendMediaGroup(t *testing.T) {
	t.Parallel()

	mockBot := NewMockBot()
	msgs, err := mockBot.SendMediaGroup(context.Background(), &bot.SendMediaGroupParams{
		ChatID: int64(-100),
		Media: []models.InputMedia{
			&models.InputMediaPhoto{Media: "a", Caption: "proof"},
			&models.InputMediaPhoto{Media: "b"},
		},
	})

	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Len(t, mockBot.SentMediaGroups, 1)
	require.Equal(t, []string{"a", "b"}, mockBot.SentMediaGroups[0].FileIDs)
	require.Equal(t, "proof", mockBot.SentMediaGroups[0].Caption)
}

func TestMockBot_SendDocument(t *testing.T) {
	t.Parallel()

	mockBot := NewMockBot()
	_, err := mockBot.SendDocument(context.Background(), &bot.SendDocumentParams{
		ChatID:   int64(1),
		Document: &models.InputFileUpload{Filename: "report.csv", Data: bytes.NewReader([]byte("a,b"))},
	})

	require.NoError(t, err)
	require.Len(t, mockBot.SentDocuments, 1)
	require.Equal(t, "report.csv", mockBot.SentDocuments[0].Filename)
	require.Equal(t, []byte("a,b"), mockBot.SentDocuments[0].Data)
}

func TestMockBot_ChatErrors(t *testing.T) {
	t.Parallel()

	mockBot := NewMockBot()
	mockBot.ChatErrors[2] = bot.ErrorForbidden
	ctx := context.Background()

	_, err := mockBot.SendMessage(ctx, &bot.SendMessageParams{ChatID: int64(1), Text: "a"})
	require.NoError(t, err)
	_, err = mockBot.SendMessage(ctx, &bot.SendMessageParams{ChatID: int64(2), Text: "a"})
	require.ErrorIs(t, err, bot.ErrorForbidden)

	require.Len(t, mockBot.MessagesTo(1), 1)
	require.Empty(t, mockBot.MessagesTo(2))
}

func TestMockBot_Reset(t *testing.T) {
	t.Parallel()

	mockBot := NewMockBot()
	ctx := context.Background()

	_, _ = mockBot.SendMessage(ctx, &bot.SendMessageParams{ChatID: int64(1), Text: "a"})
	_, _ = mockBot.EditMessageText(ctx, &bot.EditMessageTextParams{ChatID: int64(1), MessageID: 1, Text: "b"})
	mockBot.SendMessageError = errors.New("error")

	mockBot.ChatErrors[1] = errors.New("blocked")

	mockBot.Reset()

	require.Empty(t, mockBot.SentMessages)
	require.Empty(t, mockBot.ChatErrors)
	require.Empty(t, mockBot.EditedMessages)
	require.NoError(t, mockBot.SendMessageError)
}

func TestMockBot_LastSentMessage_Empty(t *testing.T) {
	t.Parallel()

	mockBot := NewMockBot()
	require.Nil(t, mockBot.LastSentMessage())
}

func TestMockBot_LastEditedMessage_Empty(t *testing.T) {
	t.Parallel()

	mockBot := NewMockBot()
	require.Nil(t, mockBot.LastEditedMessage())
}

func TestChatIDToInt64(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    any
		expected int64
	}{
		{"int64", int64(12345), 12345},
		{"int", 12345, 12345},
		{"string", "12345", 0},
		{"nil", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			result := chatIDToInt64(tt.input)
			require.Equal(t, tt.expected, result)
		})
	}
}
