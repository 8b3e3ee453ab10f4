package bot

import (
	"context"
	"os"
	"testing"

	tgmodels "github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/contest-bot/internal/bot/mocks"
	"gitlab.com/yelinaung/contest-bot/internal/logger"
)

func TestMain(m *testing.M) {
	logger.InitHashSaltForTesting("bot-test-salt-0123456789abcdef0123")
	os.Exit(m.Run())
}

func TestExtractUserID(t *testing.T) {
	t.Parallel()

	t.Run("extracts from message", func(t *testing.T) {
		t.Parallel()
		update := &tgmodels.Update{
			Message: &tgmodels.Message{
				From: &tgmodels.User{ID: 12345},
			},
		}
		require.Equal(t, int64(12345), extractUserID(update))
	})

	t.Run("extracts from callback query", func(t *testing.T) {
		t.Parallel()
		update := &tgmodels.Update{
			CallbackQuery: &tgmodels.CallbackQuery{
				From: tgmodels.User{ID: 67890},
			},
		}
		require.Equal(t, int64(67890), extractUserID(update))
	})

	t.Run("returns zero for empty update", func(t *testing.T) {
		t.Parallel()
		update := &tgmodels.Update{}
		require.Equal(t, int64(0), extractUserID(update))
	})

	t.Run("returns zero for message without from", func(t *testing.T) {
		t.Parallel()
		update := &tgmodels.Update{
			Message: &tgmodels.Message{Text: "hello"},
		}
		require.Equal(t, int64(0), extractUserID(update))
	})
}

func TestBot_IsAdmin(t *testing.T) {
	t.Parallel()
	b := newBot(testConfig(), nil)

	require.True(t, b.isAdmin(&tgmodels.User{ID: testAdminID}))
	require.False(t, b.isAdmin(&tgmodels.User{ID: 1}))
	require.False(t, b.isAdmin(nil))
}

func TestDefaultHandler(t *testing.T) {
	t.Run("unknown text without a flow gets a hint", func(t *testing.T) {
		b, mockBot := setupTestBot(t)

		b.defaultHandlerCore(context.Background(), mockBot, mocks.MessageUpdate(7001, 7001, "hello"))

		require.Equal(t, 1, mockBot.SentMessageCount())
		require.Contains(t, mockBot.LastSentMessage().Text, "/help")
	})

	t.Run("menu button runs its command", func(t *testing.T) {
		b, mockBot := setupTestBot(t)
		createTestUser(t, b, 7002, 12000)

		b.defaultHandlerCore(context.Background(), mockBot, mocks.MessageUpdate(7002, 7002, btnBalance))

		msg := mockBot.LastSentMessage()
		require.NotNil(t, msg)
		require.Contains(t, msg.Text, "12000 UZS")
	})

	t.Run("ignores messages without sender", func(t *testing.T) {
		b, mockBot := setupTestBot(t)

		b.defaultHandlerCore(context.Background(), mockBot, &tgmodels.Update{Message: &tgmodels.Message{Text: "x"}})

		require.Zero(t, mockBot.SentMessageCount())
	})
}
