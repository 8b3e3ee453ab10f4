package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/contest-bot/internal/callback"
	"gitlab.com/yelinaung/contest-bot/internal/logger"
	appmodels "gitlab.com/yelinaung/contest-bot/internal/models"
)

// Main menu button labels.
const (
	btnVote     = "🗳 Vote"
	btnBalance  = "💰 Balance"
	btnWithdraw = "💸 Withdraw"
	btnNews     = "📰 News"
	btnHistory  = "📜 History"
	btnHelp     = "❓ Help"
)

// menuCommands maps main menu buttons to the command they stand for.
var menuCommands = map[string]string{
	btnVote:     "/vote",
	btnBalance:  "/balance",
	btnWithdraw: "/withdraw",
	btnNews:     "/news",
	btnHistory:  "/history",
	btnHelp:     "/help",
}

const msgGenericFailure = "❌ Something went wrong. Please try again later."

var languageNames = map[string]string{
	"uz": "🇺🇿 O'zbekcha",
	"ru": "🇷🇺 Русский",
	"en": "🇬🇧 English",
}

func mainMenuKeyboard() *models.ReplyKeyboardMarkup {
	return &models.ReplyKeyboardMarkup{
		Keyboard: [][]models.KeyboardButton{
			{{Text: btnVote}, {Text: btnBalance}},
			{{Text: btnWithdraw}, {Text: btnNews}},
			{{Text: btnHistory}, {Text: btnHelp}},
		},
		ResizeKeyboard: true,
	}
}

func phoneKeyboard() *models.ReplyKeyboardMarkup {
	return &models.ReplyKeyboardMarkup{
		Keyboard: [][]models.KeyboardButton{
			{{Text: "📱 Share phone number", RequestContact: true}},
		},
		ResizeKeyboard:  true,
		OneTimeKeyboard: true,
	}
}

func button(text string, a callback.Action) models.InlineKeyboardButton {
	return models.InlineKeyboardButton{Text: text, CallbackData: a.Encode()}
}

func inlineKeyboard(rows ...[]models.InlineKeyboardButton) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func languageKeyboard(languages []string) *models.InlineKeyboardMarkup {
	row := make([]models.InlineKeyboardButton, 0, len(languages))
	for _, lang := range languages {
		name, ok := languageNames[lang]
		if !ok {
			name = strings.ToUpper(lang)
		}
		row = append(row, button(name, callback.Language(lang)))
	}
	return inlineKeyboard(row)
}

// regionKeyboard lays the regions out two per row.
func regionKeyboard() *models.InlineKeyboardMarkup {
	var rows [][]models.InlineKeyboardButton
	for i := 0; i < len(appmodels.Regions); i += 2 {
		row := []models.InlineKeyboardButton{button(appmodels.Regions[i], callback.Region(i))}
		if i+1 < len(appmodels.Regions) {
			row = append(row, button(appmodels.Regions[i+1], callback.Region(i+1)))
		}
		rows = append(rows, row)
	}
	return inlineKeyboard(rows...)
}

func cancelKeyboard() *models.InlineKeyboardMarkup {
	return inlineKeyboard([]models.InlineKeyboardButton{button("✖️ Cancel", callback.Cancel)})
}

func previewKeyboard() *models.InlineKeyboardMarkup {
	return inlineKeyboard([]models.InlineKeyboardButton{
		button("✅ Approve", callback.Confirm),
		button("🗑 Discard", callback.Discard),
	})
}

func projectKeyboard(projects []appmodels.VoteableProject, action func(appmodels.ProjectRef) callback.Action) *models.InlineKeyboardMarkup {
	rows := make([][]models.InlineKeyboardButton, 0, len(projects)+1)
	for i := range projects {
		rows = append(rows, []models.InlineKeyboardButton{button(projects[i].Name, action(projects[i].Ref))})
	}
	rows = append(rows, []models.InlineKeyboardButton{button("✖️ Cancel", callback.Cancel)})
	return inlineKeyboard(rows...)
}

func methodKeyboard() *models.InlineKeyboardMarkup {
	return inlineKeyboard(
		[]models.InlineKeyboardButton{
			button("💳 Card", callback.WithdrawMethod(appmodels.MethodCard)),
			button("📱 Phone", callback.WithdrawMethod(appmodels.MethodPhone)),
		},
		[]models.InlineKeyboardButton{button("✖️ Cancel", callback.Cancel)},
	)
}

func voteReviewKeyboard(submissionID int) *models.InlineKeyboardMarkup {
	return inlineKeyboard([]models.InlineKeyboardButton{
		button("✅ Approve", callback.VoteApprove(submissionID)),
		button("❌ Reject", callback.VoteReject(submissionID)),
	})
}

// withdrawalReviewKeyboard offers the transitions legal from the request's
// current status. Terminal requests get no buttons.
func withdrawalReviewKeyboard(req *appmodels.WithdrawalRequest) models.ReplyMarkup {
	switch req.Status {
	case appmodels.WithdrawalPending:
		return inlineKeyboard([]models.InlineKeyboardButton{
			button("✅ Approve", callback.WithdrawApprove(req.ID)),
			button("❌ Reject", callback.WithdrawReject(req.ID)),
		})
	case appmodels.WithdrawalApproved:
		return inlineKeyboard([]models.InlineKeyboardButton{
			button("💸 Mark paid", callback.WithdrawComplete(req.ID)),
			button("❌ Reject", callback.WithdrawReject(req.ID)),
		})
	default:
		return nil
	}
}

// formatMoney renders an amount in whole sums.
func formatMoney(d decimal.Decimal) string {
	return d.StringFixed(0) + " UZS"
}

// escapeHTML escapes special HTML characters for Telegram messages.
func escapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

// displayName returns the best human label for a Telegram user.
func displayName(u *models.User) string {
	if u == nil {
		return "unknown"
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return fmt.Sprintf("id %d", u.ID)
	}
	return name
}

// send sends an HTML message, logging failures.
func (b *Bot) send(ctx context.Context, tg TelegramAPI, chatID int64, text string) {
	b.sendWithMarkup(ctx, tg, chatID, text, nil)
}

// sendWithMarkup sends an HTML message with an optional keyboard.
func (b *Bot) sendWithMarkup(ctx context.Context, tg TelegramAPI, chatID int64, text string, markup models.ReplyMarkup) {
	params := &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	}
	if markup != nil {
		params.ReplyMarkup = markup
	}
	if _, err := tg.SendMessage(ctx, params); err != nil {
		logger.Log.Error().Err(err).Str("chat_hash", logger.HashChatID(chatID)).Msg("Failed to send message")
	}
}

// editMessage replaces the text of a message the bot sent earlier.
func (b *Bot) editMessage(ctx context.Context, tg TelegramAPI, msg *models.Message, text string, markup models.ReplyMarkup) {
	if msg == nil {
		return
	}
	params := &bot.EditMessageTextParams{
		ChatID:    msg.Chat.ID,
		MessageID: msg.ID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	}
	if markup != nil {
		params.ReplyMarkup = markup
	}
	if _, err := tg.EditMessageText(ctx, params); err != nil {
		logger.Log.Error().Err(err).Int("message_id", msg.ID).Msg("Failed to edit message")
	}
}

// fail logs a storage or unexpected error and returns the user to the main
// menu with a generic message. Any open flow is dropped.
func (b *Bot) fail(ctx context.Context, tg TelegramAPI, userID, chatID int64, op string, err error) {
	logger.Log.Error().Err(err).
		Str("user_hash", logger.HashUserID(userID)).
		Str("op", op).
		Msg("Operation failed")
	b.sessions.Delete(userID)
	b.sendWithMarkup(ctx, tg, chatID, msgGenericFailure, mainMenuKeyboard())
}
