package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"gitlab.com/yelinaung/contest-bot/internal/callback"
	"gitlab.com/yelinaung/contest-bot/internal/logger"
	appmodels "gitlab.com/yelinaung/contest-bot/internal/models"
	"gitlab.com/yelinaung/contest-bot/internal/session"
	"gitlab.com/yelinaung/contest-bot/internal/withdrawal"
)

var accountPrompts = map[appmodels.WithdrawalMethod]string{
	appmodels.MethodCard:  "💳 Send your 16-digit card number.",
	appmodels.MethodPhone: "📱 Send the phone number in <code>+998XXXXXXXXX</code> format.",
}

// handleWithdraw handles the /withdraw command.
func (b *Bot) handleWithdraw(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleWithdrawCore(ctx, tgBot, update)
}

// handleWithdrawCore is the testable implementation of handleWithdraw.
func (b *Bot) handleWithdrawCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID

	user, ok := b.loadUser(ctx, tg, update)
	if !ok {
		return
	}

	if err := b.withdrawals.CheckEligible(user.Balance); err != nil {
		b.sendWithMarkup(ctx, tg, chatID,
			fmt.Sprintf("⚠️ The minimum withdrawal is %s. Your balance is %s.",
				formatMoney(b.withdrawals.Minimum()), formatMoney(user.Balance)),
			mainMenuKeyboard())
		return
	}

	commission, net := b.withdrawals.QuoteFor(user.Balance)
	b.sessions.Start(user.ID, session.FlowWithdrawal, session.StateChoosingMethod, session.Data{})

	b.sendWithMarkup(ctx, tg, chatID, fmt.Sprintf(`💸 <b>Withdrawal</b>

Amount: %s
Commission: %s
You receive: <b>%s</b>

Choose how to receive the money:`,
		formatMoney(user.Balance), formatMoney(commission), formatMoney(net)),
		methodKeyboard())
}

// onWithdrawMethod records the payout method and asks for the account.
func (b *Bot) onWithdrawMethod(ctx context.Context, tg TelegramAPI, q *models.CallbackQuery, a callback.Action) string {
	sess, ok := b.sessions.Get(q.From.ID)
	if !ok || sess.Flow != session.FlowWithdrawal || sess.State != session.StateChoosingMethod {
		return "This step has expired."
	}

	sess.Data.Method = a.Method
	sess.State = session.StateEnteringAccount
	b.sessions.Save(sess)

	b.sendWithMarkup(ctx, tg, q.From.ID, accountPrompts[a.Method], cancelKeyboard())
	return ""
}

// handleWithdrawalInput takes the payout account and creates the request.
// An invalid account re-prompts in the same state.
func (b *Bot) handleWithdrawalInput(ctx context.Context, tg TelegramAPI, msg *models.Message, sess *session.Session) {
	if sess.State != session.StateEnteringAccount {
		b.sendWithMarkup(ctx, tg, msg.Chat.ID, "Choose how to receive the money:", methodKeyboard())
		return
	}

	req, err := b.withdrawals.Create(ctx, msg.From.ID, sess.Data.Method, msg.Text)
	switch {
	case errors.Is(err, withdrawal.ErrInvalidAccount):
		b.sendWithMarkup(ctx, tg, msg.Chat.ID, "⚠️ Invalid account. "+accountPrompts[sess.Data.Method], cancelKeyboard())
		return
	case errors.Is(err, withdrawal.ErrBelowMinimum):
		b.sessions.Delete(msg.From.ID)
		b.sendWithMarkup(ctx, tg, msg.Chat.ID,
			fmt.Sprintf("⚠️ The minimum withdrawal is %s.", formatMoney(b.withdrawals.Minimum())),
			mainMenuKeyboard())
		return
	case errors.Is(err, withdrawal.ErrOpenRequest):
		b.sessions.Delete(msg.From.ID)
		b.sendWithMarkup(ctx, tg, msg.Chat.ID,
			"⚠️ You already have a withdrawal in review. Wait for it to be settled.",
			mainMenuKeyboard())
		return
	case err != nil:
		b.fail(ctx, tg, msg.From.ID, msg.Chat.ID, "create withdrawal", err)
		return
	}
	b.sessions.Delete(msg.From.ID)

	logger.Log.Info().
		Str("user_hash", logger.HashUserID(msg.From.ID)).
		Int("request_id", req.ID).
		Str("account", logger.MaskAccount(req.AccountDetails)).
		Msg("Withdrawal requested")

	b.sendWithMarkup(ctx, tg, msg.Chat.ID, fmt.Sprintf(
		"✅ Withdrawal request #%d created.\n\nYou will receive %s to %s once an admin processes it.",
		req.ID, formatMoney(req.NetAmount), escapeHTML(logger.MaskAccount(req.AccountDetails))),
		mainMenuKeyboard())

	b.sendWithMarkup(ctx, tg, b.cfg.AdminChannelID, formatWithdrawal(req, displayName(msg.From)), withdrawalReviewKeyboard(req))
}

// formatWithdrawal renders a request for admins, full account included.
func formatWithdrawal(req *appmodels.WithdrawalRequest, who string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "💸 <b>Withdrawal #%d</b>\n\n", req.ID)
	fmt.Fprintf(&sb, "User: %s (<code>%d</code>)\n", escapeHTML(who), req.UserID)
	fmt.Fprintf(&sb, "Amount: %s\n", formatMoney(req.Amount))
	fmt.Fprintf(&sb, "Commission: %s\n", formatMoney(req.Commission))
	fmt.Fprintf(&sb, "Net: <b>%s</b>\n", formatMoney(req.NetAmount))
	fmt.Fprintf(&sb, "Method: %s\n", req.Method)
	fmt.Fprintf(&sb, "Account: <code>%s</code>\n", escapeHTML(req.AccountDetails))
	fmt.Fprintf(&sb, "Status: <b>%s</b>", req.Status)
	return sb.String()
}

// onWithdrawDecision applies an admin transition to a withdrawal request.
func (b *Bot) onWithdrawDecision(ctx context.Context, tg TelegramAPI, q *models.CallbackQuery, a callback.Action) string {
	var (
		req *appmodels.WithdrawalRequest
		err error
	)
	switch a.Kind {
	case callback.KindWithdrawApprove:
		req, err = b.withdrawals.Approve(ctx, a.ID)
	case callback.KindWithdrawComplete:
		req, err = b.withdrawals.Complete(ctx, a.ID)
	default:
		req, err = b.withdrawals.Reject(ctx, a.ID)
	}
	switch {
	case errors.Is(err, withdrawal.ErrRequestNotFound):
		return "Request not found."
	case errors.Is(err, withdrawal.ErrInvalidTransition):
		return "This action is no longer available for this request."
	case err != nil:
		logger.Log.Error().Err(err).Int("request_id", a.ID).Msg("Failed to update withdrawal")
		return msgGenericFailure
	}

	logger.Log.Info().
		Int("request_id", req.ID).
		Str("status", string(req.Status)).
		Str("admin_hash", logger.HashUserID(q.From.ID)).
		Msg("Withdrawal updated")

	if q.Message.Message != nil {
		text := formatWithdrawal(req, fmt.Sprintf("id %d", req.UserID)) +
			fmt.Sprintf("\nUpdated by %s", escapeHTML(displayName(&q.From)))
		b.editMessage(ctx, tg, q.Message.Message, text, withdrawalReviewKeyboard(req))
	}

	switch req.Status {
	case appmodels.WithdrawalApproved:
		b.send(ctx, tg, req.UserID, fmt.Sprintf("👍 Withdrawal #%d was approved. The payment is on its way.", req.ID))
	case appmodels.WithdrawalCompleted:
		b.send(ctx, tg, req.UserID, fmt.Sprintf("💸 Withdrawal #%d is paid: %s sent to %s.",
			req.ID, formatMoney(req.NetAmount), escapeHTML(logger.MaskAccount(req.AccountDetails))))
	case appmodels.WithdrawalRejected:
		b.send(ctx, tg, req.UserID, fmt.Sprintf("❌ Withdrawal #%d was rejected. %s was returned to your balance.",
			req.ID, formatMoney(req.Amount)))
	}
	return string(req.Status)
}
