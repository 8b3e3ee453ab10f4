package bot

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"gitlab.com/yelinaung/contest-bot/internal/callback"
	"gitlab.com/yelinaung/contest-bot/internal/logger"
)

const msgAdminsOnly = "⛔ Admins only."

// handleCallback handles every inline button press.
func (b *Bot) handleCallback(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleCallbackCore(ctx, tgBot, update)
}

// handleCallbackCore is the testable implementation of handleCallback. The
// payload is decoded once here and every query is answered exactly once.
func (b *Bot) handleCallbackCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	q := update.CallbackQuery
	if q == nil {
		return
	}

	answer := b.routeCallback(ctx, tg, q)

	if _, err := tg.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: q.ID,
		Text:            answer,
	}); err != nil {
		logger.Log.Error().Err(err).Msg("Failed to answer callback query")
	}
}

// routeCallback runs the action behind q and returns the answer text.
func (b *Bot) routeCallback(ctx context.Context, tg TelegramAPI, q *models.CallbackQuery) string {
	a, err := callback.Decode(q.Data)
	if err != nil {
		logger.Log.Warn().Err(err).
			Str("user_hash", logger.HashUserID(q.From.ID)).
			Msg("Malformed callback data")
		return "Unknown action."
	}

	switch a.Kind {
	case callback.KindLanguage:
		return b.onLanguage(ctx, tg, q, a)
	case callback.KindRegion:
		return b.onRegion(ctx, tg, q, a)
	case callback.KindVote:
		return b.onVote(ctx, tg, q, a)
	case callback.KindWithdrawMethod:
		return b.onWithdrawMethod(ctx, tg, q, a)
	case callback.KindCancel:
		return b.onCancel(ctx, tg, q)
	}

	if !b.isAdmin(&q.From) {
		return msgAdminsOnly
	}

	switch a.Kind {
	case callback.KindVoteApprove, callback.KindVoteReject:
		return b.onVoteDecision(ctx, tg, q, a)
	case callback.KindWithdrawApprove, callback.KindWithdrawComplete, callback.KindWithdrawReject:
		return b.onWithdrawDecision(ctx, tg, q, a)
	case callback.KindEdit, callback.KindDelete:
		return b.onProjectChosen(ctx, tg, q, a)
	case callback.KindConfirm:
		return b.onConfirm(ctx, tg, q)
	case callback.KindDiscard:
		return b.onDiscard(ctx, tg, q)
	}
	return ""
}

// onCancel ends whatever flow the user has open.
func (b *Bot) onCancel(ctx context.Context, tg TelegramAPI, q *models.CallbackQuery) string {
	if _, ok := b.sessions.Get(q.From.ID); !ok {
		return "Nothing to cancel."
	}
	b.sessions.Delete(q.From.ID)
	b.sendWithMarkup(ctx, tg, q.From.ID, "✖️ Cancelled.", mainMenuKeyboard())
	return "Cancelled"
}
