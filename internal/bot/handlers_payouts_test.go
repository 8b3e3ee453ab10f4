package bot

import (
	"context"
	"testing"

	tgmodels "github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/contest-bot/internal/bot/mocks"
	"gitlab.com/yelinaung/contest-bot/internal/callback"
	appmodels "gitlab.com/yelinaung/contest-bot/internal/models"
)

func TestHandleWithdrawals(t *testing.T) {
	t.Run("lists open requests with their buttons", func(t *testing.T) {
		b, mockBot := setupTestBot(t)
		createTestUser(t, b, 9901, 25000)
		createTestUser(t, b, 9902, 30000)
		first := requestWithdrawal(t, b, mockBot, 9901, appmodels.MethodCard, "8600123456789012")
		second := requestWithdrawal(t, b, mockBot, 9902, appmodels.MethodPhone, "+998901234567")
		pressButton(t, b, mockBot, testChannelID, testAdminID, callback.WithdrawApprove(second.ID).Encode())

		b.handleWithdrawalsCore(context.Background(), mockBot, mocks.CommandUpdate(testAdminID, testAdminID, "/withdrawals"))

		buttons := map[string]bool{}
		for _, m := range mockBot.MessagesTo(testAdminID) {
			if markup, ok := m.ReplyMarkup.(*tgmodels.InlineKeyboardMarkup); ok {
				buttons[markup.InlineKeyboard[0][0].CallbackData] = true
			}
		}
		require.True(t, buttons[callback.WithdrawApprove(first.ID).Encode()])
		require.True(t, buttons[callback.WithdrawComplete(second.ID).Encode()])
	})

	t.Run("nothing open", func(t *testing.T) {
		b, mockBot := setupTestBot(t)

		b.handleWithdrawalsCore(context.Background(), mockBot, mocks.CommandUpdate(testAdminID, testAdminID, "/withdrawals"))

		require.Contains(t, mockBot.LastSentMessage().Text, "No open withdrawal requests")
	})
}

func TestHandleExport(t *testing.T) {
	b, mockBot := setupTestBot(t)
	createTestUser(t, b, 9911, 25000)
	requestWithdrawal(t, b, mockBot, 9911, appmodels.MethodCard, "8600123456789012")

	b.handleExportCore(context.Background(), mockBot, mocks.CommandUpdate(testAdminID, testAdminID, "/export"))

	require.Len(t, mockBot.SentDocuments, 1)
	doc := mockBot.SentDocuments[0]
	require.Equal(t, "withdrawals_2026-03-15.csv", doc.Filename)
	require.Contains(t, string(doc.Data), "8600123456789012")
	require.Contains(t, string(doc.Data), "25000,500,24500")
}

func TestHandleStats(t *testing.T) {
	t.Run("summary and chart", func(t *testing.T) {
		b, mockBot := setupTestBot(t)
		ctx := context.Background()
		createTestUser(t, b, 9921, 0)
		createTestUser(t, b, 9922, 0)
		park, err := b.catalog.CreateProject(ctx, "Park", "https://example.com/park", testAdminID)
		require.NoError(t, err)
		require.NoError(t, b.votes.RegisterVote(ctx, 9921, park.Ref, 0))
		require.NoError(t, b.votes.RegisterVote(ctx, 9922, park.Ref, 0))

		b.handleStatsCore(ctx, mockBot, mocks.CommandUpdate(testAdminID, testAdminID, "/stats"))

		text := mockBot.MessagesTo(testAdminID)[0].Text
		require.Contains(t, text, "Statistics")
		require.Contains(t, text, "1. Park: 2")

		require.Equal(t, 1, mockBot.SentPhotoCount())
		require.Equal(t, "votes_season_0_2026-03-15.png", mockBot.SentPhotos[0].Filename)
	})

	t.Run("no votes sends no chart", func(t *testing.T) {
		b, mockBot := setupTestBot(t)

		b.handleStatsCore(context.Background(), mockBot, mocks.CommandUpdate(testAdminID, testAdminID, "/stats"))

		require.Contains(t, mockBot.LastSentMessage().Text, "No votes yet.")
		require.Zero(t, mockBot.SentPhotoCount())
	})
}
