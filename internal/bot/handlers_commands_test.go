package bot

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/contest-bot/internal/bot/mocks"
	appmodels "gitlab.com/yelinaung/contest-bot/internal/models"
)

func TestHandleHelp(t *testing.T) {
	b := newBot(testConfig(), nil)

	t.Run("users see no admin section", func(t *testing.T) {
		mockBot := mocks.NewMockBot()
		b.handleHelpCore(context.Background(), mockBot, mocks.CommandUpdate(1, 1, "/help"))

		text := mockBot.LastSentMessage().Text
		require.Contains(t, text, "/vote")
		require.NotContains(t, text, "/broadcast")
	})

	t.Run("admins see admin commands", func(t *testing.T) {
		mockBot := mocks.NewMockBot()
		b.handleHelpCore(context.Background(), mockBot, mocks.CommandUpdate(testAdminID, testAdminID, "/help"))

		require.Contains(t, mockBot.LastSentMessage().Text, "/broadcast")
	})
}

func TestHandleBalance(t *testing.T) {
	t.Run("shows totals and referral payload", func(t *testing.T) {
		b, mockBot := setupTestBot(t)
		user := createTestUser(t, b, 7101, 15000)

		b.handleBalanceCore(context.Background(), mockBot, mocks.CommandUpdate(7101, 7101, "/balance"))

		text := mockBot.LastSentMessage().Text
		require.Contains(t, text, "Available: <b>15000 UZS</b>")
		require.Contains(t, text, "Total earned: 15000 UZS")
		require.Contains(t, text, "/start ref_"+user.ReferralCode)
	})

	t.Run("uses a deep link when the username is known", func(t *testing.T) {
		b, mockBot := setupTestBot(t)
		b.username = "contest_bot"
		user := createTestUser(t, b, 7102, 0)

		b.handleBalanceCore(context.Background(), mockBot, mocks.CommandUpdate(7102, 7102, "/balance"))

		require.Contains(t, mockBot.LastSentMessage().Text, "https://t.me/contest_bot?start=ref_"+user.ReferralCode)
	})

	t.Run("unregistered", func(t *testing.T) {
		b, mockBot := setupTestBot(t)

		b.handleBalanceCore(context.Background(), mockBot, mocks.CommandUpdate(7103, 7103, "/balance"))

		require.Contains(t, mockBot.LastSentMessage().Text, "not registered")
	})
}

func TestHandleHistory(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		b, mockBot := setupTestBot(t)
		createTestUser(t, b, 7201, 0)

		b.handleHistoryCore(context.Background(), mockBot, mocks.CommandUpdate(7201, 7201, "/history"))

		require.Contains(t, mockBot.LastSentMessage().Text, "No balance changes yet.")
	})

	t.Run("lists entries", func(t *testing.T) {
		b, mockBot := setupTestBot(t)
		createTestUser(t, b, 7202, 12000)

		b.handleHistoryCore(context.Background(), mockBot, mocks.CommandUpdate(7202, 7202, "/history"))

		text := mockBot.LastSentMessage().Text
		require.Contains(t, text, "+12000 UZS")
		require.Contains(t, text, "seed")
		require.Contains(t, text, "(approved)")
	})
}

func TestHandleNews(t *testing.T) {
	t.Run("no news", func(t *testing.T) {
		b, mockBot := setupTestBot(t)
		createTestUser(t, b, 7301, 0)

		b.handleNewsCore(context.Background(), mockBot, mocks.CommandUpdate(7301, 7301, "/news"))

		require.Contains(t, mockBot.LastSentMessage().Text, "No news yet.")
	})

	t.Run("latest in the user's language", func(t *testing.T) {
		b, mockBot := setupTestBot(t)
		ctx := context.Background()
		createTestUser(t, b, 7302, 0)
		require.NoError(t, b.catalog.CreateAnnouncement(ctx, &appmodels.Announcement{
			Title: "Yangiliklar", Content: "uz", Language: "uz", CreatedBy: testAdminID,
		}))
		require.NoError(t, b.catalog.CreateAnnouncement(ctx, &appmodels.Announcement{
			Title: "Round <2>", Content: "Voting opens", Language: "en", CreatedBy: testAdminID,
		}))

		b.handleNewsCore(ctx, mockBot, mocks.CommandUpdate(7302, 7302, "/news"))

		text := mockBot.LastSentMessage().Text
		require.Contains(t, text, "Round &lt;2&gt;")
		require.NotContains(t, text, "Yangiliklar")
	})
}
