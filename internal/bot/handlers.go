package bot

import (
	"context"

	"github.com/go-telegram/bot/models"
	"gitlab.com/yelinaung/contest-bot/internal/session"
)

// handleSessionInputCore feeds a message to the sender's open flow. It
// returns false when no flow is open.
func (b *Bot) handleSessionInputCore(ctx context.Context, tg TelegramAPI, update *models.Update) bool {
	msg := update.Message
	sess, ok := b.sessions.Get(msg.From.ID)
	if !ok {
		return false
	}

	switch sess.Flow {
	case session.FlowRegistration:
		b.handleRegistrationInput(ctx, tg, msg, sess)
	case session.FlowVote:
		b.handleProofInput(ctx, tg, msg, sess)
	case session.FlowWithdrawal:
		b.handleWithdrawalInput(ctx, tg, msg, sess)
	case session.FlowAddProject, session.FlowAddSeasonProject, session.FlowEditProject,
		session.FlowDeleteProject, session.FlowBroadcast, session.FlowNews:
		if !b.isAdmin(msg.From) {
			b.sessions.Delete(msg.From.ID)
			return false
		}
		b.handleAuthoringInput(ctx, tg, msg, sess)
	default:
		b.sessions.Delete(msg.From.ID)
		return false
	}
	return true
}
