package bot

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/contest-bot/internal/bot/mocks"
	"gitlab.com/yelinaung/contest-bot/internal/config"
	"gitlab.com/yelinaung/contest-bot/internal/database"
	appmodels "gitlab.com/yelinaung/contest-bot/internal/models"
)

const (
	testAdminID   int64 = 900001
	testChannelID int64 = -1009000
)

// testNow is the fixed clock of test bots.
var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func testConfig() *config.Config {
	return &config.Config{
		TelegramBotToken:   "test-token",
		DatabaseURL:        "test-url",
		AdminUserIDs:       []int64{testAdminID},
		AdminChannelID:     testChannelID,
		ReferralBonus:      decimal.NewFromInt(5000),
		VoteBonus:          decimal.NewFromInt(10000),
		MinWithdrawal:      decimal.NewFromInt(20000),
		CommissionRate:     decimal.RequireFromString("0.02"),
		MaxVotesPerSeason:  3,
		SupportedLanguages: []string{"uz", "ru", "en"},
		SessionTTL:         30 * time.Minute,
	}
}

// setupTestBot creates a Bot over a per-test transaction with a MockBot as
// its message sender.
func setupTestBot(t *testing.T) (*Bot, *mocks.MockBot) {
	t.Helper()

	b := newBot(testConfig(), database.TestTx(t))
	mockBot := mocks.NewMockBot()
	b.messageSender = mockBot
	b.now = func() time.Time { return testNow }

	return b, mockBot
}

// createTestUser registers a user directly and credits balance when positive.
func createTestUser(t *testing.T, b *Bot, id, balance int64) *appmodels.User {
	t.Helper()
	ctx := context.Background()

	user := &appmodels.User{
		ID:           id,
		FirstName:    "Test",
		Phone:        "+998901234567",
		Region:       appmodels.Regions[0],
		Language:     "en",
		ReferralCode: newReferralCode(),
	}
	require.NoError(t, b.userRepo.Create(ctx, user))

	if balance > 0 {
		require.NoError(t, b.ledger.Credit(ctx, id, decimal.NewFromInt(balance), appmodels.KindVoteBonus, "seed"))
	}
	return user
}

// mustGetUser reloads a user from storage.
func mustGetUser(t *testing.T, b *Bot, id int64) *appmodels.User {
	t.Helper()
	user, err := b.userRepo.GetByID(context.Background(), id)
	require.NoError(t, err)
	return user
}

// pressButton delivers a callback query from userID and returns its answer.
func pressButton(t *testing.T, b *Bot, mockBot *mocks.MockBot, chatID, userID int64, data string) *mocks.AnsweredCallback {
	t.Helper()
	before := len(mockBot.AnsweredCallbacks)
	b.handleCallbackCore(context.Background(), mockBot, mocks.CallbackQueryUpdate(chatID, userID, 500, data))
	require.Len(t, mockBot.AnsweredCallbacks, before+1, "every callback is answered exactly once")
	return mockBot.LastAnsweredCallback()
}

// requireDecimal compares decimals by value.
func requireDecimal(t *testing.T, want int64, got decimal.Decimal) {
	t.Helper()
	require.True(t, decimal.NewFromInt(want).Equal(got), "want %d, got %s", want, got)
}
