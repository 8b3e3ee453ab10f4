package bot

import (
	"bytes"
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"gitlab.com/yelinaung/contest-bot/internal/logger"
	"gitlab.com/yelinaung/contest-bot/internal/withdrawal"
)

// exportLimit caps the rows of a CSV export.
const exportLimit = 1000

// handleWithdrawals handles the /withdrawals command.
func (b *Bot) handleWithdrawals(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleWithdrawalsCore(ctx, tgBot, update)
}

// handleWithdrawalsCore is the testable implementation of handleWithdrawals.
// Each open request gets its own message with the buttons legal for it.
func (b *Bot) handleWithdrawalsCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if !b.requireAdmin(ctx, tg, update) {
		return
	}
	chatID := update.Message.Chat.ID

	requests, err := b.withdrawals.ListOpen(ctx, withdrawal.DefaultListLimit)
	if err != nil {
		b.fail(ctx, tg, update.Message.From.ID, chatID, "list withdrawals", err)
		return
	}
	if len(requests) == 0 {
		b.send(ctx, tg, chatID, "✅ No open withdrawal requests.")
		return
	}

	b.send(ctx, tg, chatID, fmt.Sprintf("💸 <b>%d open withdrawal request(s)</b>", len(requests)))
	for i := range requests {
		req := &requests[i]
		b.sendWithMarkup(ctx, tg, chatID, formatWithdrawal(req, fmt.Sprintf("id %d", req.UserID)), withdrawalReviewKeyboard(req))
	}
}

// handleExport handles the /export command.
func (b *Bot) handleExport(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleExportCore(ctx, tgBot, update)
}

// handleExportCore is the testable implementation of handleExport.
func (b *Bot) handleExportCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if !b.requireAdmin(ctx, tg, update) {
		return
	}
	chatID := update.Message.Chat.ID

	requests, err := b.withdrawals.ListOpen(ctx, exportLimit)
	if err != nil {
		b.fail(ctx, tg, update.Message.From.ID, chatID, "export withdrawals", err)
		return
	}
	if len(requests) == 0 {
		b.send(ctx, tg, chatID, "✅ No open withdrawal requests to export.")
		return
	}

	data, err := GenerateWithdrawalsCSV(requests)
	if err != nil {
		b.fail(ctx, tg, update.Message.From.ID, chatID, "generate csv", err)
		return
	}

	_, err = tg.SendDocument(ctx, &bot.SendDocumentParams{
		ChatID:    chatID,
		Document:  &models.InputFileUpload{Filename: generateExportFilename(b.now()), Data: bytes.NewReader(data)},
		Caption:   fmt.Sprintf("📄 <b>Open withdrawals</b>\n\nCount: %d", len(requests)),
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to send withdrawals export")
		b.send(ctx, tg, chatID, "❌ Failed to send the export. Please try again.")
	}
}
