package bot

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"gitlab.com/yelinaung/contest-bot/internal/logger"
	appmodels "gitlab.com/yelinaung/contest-bot/internal/models"
)

// handleStats handles the /stats command.
func (b *Bot) handleStats(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleStatsCore(ctx, tgBot, update)
}

// handleStatsCore is the testable implementation of handleStats. It sends a
// text summary and, when the season has votes, a pie chart.
func (b *Bot) handleStatsCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if !b.requireAdmin(ctx, tg, update) {
		return
	}
	adminID, chatID := update.Message.From.ID, update.Message.Chat.ID

	users, err := b.userRepo.Stats(ctx)
	if err != nil {
		b.fail(ctx, tg, adminID, chatID, "user stats", err)
		return
	}
	submissions, err := b.votes.SubmissionCounts(ctx)
	if err != nil {
		b.fail(ctx, tg, adminID, chatID, "submission stats", err)
		return
	}
	seasonID, _, err := b.currentSeason(ctx)
	if err != nil {
		b.fail(ctx, tg, adminID, chatID, "current season", err)
		return
	}
	tally, err := b.votes.Tally(ctx, seasonID)
	if err != nil {
		b.fail(ctx, tg, adminID, chatID, "vote tally", err)
		return
	}

	var sb strings.Builder
	sb.WriteString("📊 <b>Statistics</b>\n\n")
	fmt.Fprintf(&sb, "Users: %d (active %d)\n", users.Users, users.ActiveUsers)
	fmt.Fprintf(&sb, "Balances: %s\n", formatMoney(users.TotalBalance))
	fmt.Fprintf(&sb, "Pending payouts: %s\n", formatMoney(users.TotalPending))
	fmt.Fprintf(&sb, "Earned: %s\n", formatMoney(users.TotalEarned))
	fmt.Fprintf(&sb, "Withdrawn: %s\n\n", formatMoney(users.TotalWithdrawn))
	fmt.Fprintf(&sb, "Proofs: %d pending, %d approved, %d rejected\n\n",
		submissions[appmodels.SubmissionPending],
		submissions[appmodels.SubmissionApproved],
		submissions[appmodels.SubmissionRejected])
	fmt.Fprintf(&sb, "<b>Votes (season %d)</b>\n", seasonID)
	if len(tally) == 0 {
		sb.WriteString("No votes yet.")
	} else {
		sb.WriteString(tallyLines(tally))
	}

	b.send(ctx, tg, chatID, sb.String())

	if len(tally) == 0 {
		return
	}

	chartData, err := GenerateVoteChart(tally, fmt.Sprintf("Votes - season %d", seasonID))
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to generate vote chart")
		return
	}

	_, err = tg.SendPhoto(ctx, &bot.SendPhotoParams{
		ChatID: chatID,
		Photo:  &models.InputFileUpload{Filename: generateChartFilename(seasonID, b.now()), Data: bytes.NewReader(chartData)},
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to send vote chart")
	}
}
