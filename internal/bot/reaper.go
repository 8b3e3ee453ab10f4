package bot

import (
	"context"
	"time"

	tgbot "github.com/go-telegram/bot"
	"gitlab.com/yelinaung/contest-bot/internal/logger"
)

// ReaperNotifyTimeout is the maximum time spent telling users about expired
// sessions after one reap.
const ReaperNotifyTimeout = 30 * time.Second

// startSessionReaper drops idle sessions every reapInterval until ctx is
// done.
func (b *Bot) startSessionReaper(ctx context.Context) {
	logger.Log.Info().
		Dur("ttl", b.cfg.SessionTTL).
		Dur("interval", reapInterval).
		Msg("Session reaper loop started")

	b.sessions.RunReaper(ctx, reapInterval, b.cfg.SessionTTL, func(userIDs []int64) {
		b.notifyExpiredSessions(ctx, userIDs)
	})

	logger.Log.Info().Msg("Session reaper loop stopped")
}

// notifyExpiredSessions tells each user that their abandoned flow was
// dropped.
func (b *Bot) notifyExpiredSessions(ctx context.Context, userIDs []int64) {
	logger.Log.Info().Int("count", len(userIDs)).Msg("Reaped idle sessions")

	notifyCtx, cancel := context.WithTimeout(ctx, ReaperNotifyTimeout)
	defer cancel()

	for _, id := range userIDs {
		_, err := b.messageSender.SendMessage(notifyCtx, &tgbot.SendMessageParams{
			ChatID:      id,
			Text:        "⌛ Your previous action expired. Start again from the menu.",
			ReplyMarkup: mainMenuKeyboard(),
		})
		if err != nil {
			logger.Log.Warn().Err(err).Str("user_hash", logger.HashUserID(id)).Msg("Failed to send session expiry notice")
		}
	}
}
