package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"gitlab.com/yelinaung/contest-bot/internal/catalog"
	"gitlab.com/yelinaung/contest-bot/internal/ledger"
	appmodels "gitlab.com/yelinaung/contest-bot/internal/models"
	"gitlab.com/yelinaung/contest-bot/internal/repository"
)

// extractCommandArgs strips the /command prefix (and optional @botname suffix)
// from a message and returns the remaining trimmed arguments.
func extractCommandArgs(text, command string) string {
	args := strings.TrimSpace(strings.TrimPrefix(text, command))
	if strings.HasPrefix(args, "@") {
		if spaceIdx := strings.Index(args, " "); spaceIdx != -1 {
			args = strings.TrimSpace(args[spaceIdx:])
		} else {
			args = ""
		}
	}
	return args
}

// loadUser fetches the registered sender of update. Unregistered users are
// told to /start and get ok=false.
func (b *Bot) loadUser(ctx context.Context, tg TelegramAPI, update *models.Update) (*appmodels.User, bool) {
	msg := update.Message
	user, err := b.userRepo.GetByID(ctx, msg.From.ID)
	if errors.Is(err, repository.ErrNotFound) {
		b.send(ctx, tg, msg.Chat.ID, "👋 You are not registered yet. Send /start to join.")
		return nil, false
	}
	if err != nil {
		b.fail(ctx, tg, msg.From.ID, msg.Chat.ID, "load user", err)
		return nil, false
	}
	return user, true
}

// handleHelp handles the /help command.
func (b *Bot) handleHelp(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleHelpCore(ctx, tgBot, update)
}

// handleHelpCore is the testable implementation of handleHelp.
func (b *Bot) handleHelpCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}

	text := fmt.Sprintf(`📚 <b>Available Commands</b>

<b>Earning:</b>
• <code>/vote</code> - Vote for a project and send %d screenshots as proof
• Invite friends with your referral link from <code>/balance</code>

<b>Your Money:</b>
• <code>/balance</code> - Balance, pending payouts and referral link
• <code>/history</code> - Recent balance changes
• <code>/withdraw</code> - Withdraw to a card or phone number

<b>Other:</b>
• <code>/news</code> - Latest announcement
• <code>/cancel</code> - Cancel the current action`, appmodels.ProofScreenshots)

	if b.isAdmin(update.Message.From) {
		text += `

<b>Admin:</b>
• <code>/addproject</code>, <code>/addseasonproject</code> - Add a project
• <code>/editproject</code>, <code>/deleteproject</code> - Manage projects
• <code>/newseason &lt;name&gt; &lt;YYYY-MM-DD&gt; &lt;YYYY-MM-DD&gt; &lt;max votes&gt;</code> - Start a season
• <code>/broadcast</code>, <code>/addnews</code> - Message all users
• <code>/withdrawals</code>, <code>/export</code> - Payout requests
• <code>/stats</code> - Totals and vote chart`
	}

	b.sendWithMarkup(ctx, tg, update.Message.Chat.ID, text, mainMenuKeyboard())
}

// handleCancel handles the /cancel command.
func (b *Bot) handleCancel(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleCancelCore(ctx, tgBot, update)
}

// handleCancelCore is the testable implementation of handleCancel.
func (b *Bot) handleCancelCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	_, open := b.sessions.Get(update.Message.From.ID)
	b.sessions.Delete(update.Message.From.ID)

	text := "Nothing to cancel."
	if open {
		text = "✖️ Cancelled."
	}
	b.sendWithMarkup(ctx, tg, update.Message.Chat.ID, text, mainMenuKeyboard())
}

// handleBalance handles the /balance command.
func (b *Bot) handleBalance(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleBalanceCore(ctx, tgBot, update)
}

// handleBalanceCore is the testable implementation of handleBalance.
func (b *Bot) handleBalanceCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	user, ok := b.loadUser(ctx, tg, update)
	if !ok {
		return
	}

	var sb strings.Builder
	sb.WriteString("💰 <b>Your Balance</b>\n\n")
	fmt.Fprintf(&sb, "Available: <b>%s</b>\n", formatMoney(user.Balance))
	fmt.Fprintf(&sb, "Pending withdrawal: %s\n", formatMoney(user.PendingBalance))
	fmt.Fprintf(&sb, "Total earned: %s\n", formatMoney(user.TotalEarned))
	fmt.Fprintf(&sb, "Total withdrawn: %s\n\n", formatMoney(user.TotalWithdrawn))
	fmt.Fprintf(&sb, "👥 Invite friends and earn %s each:\n", formatMoney(b.cfg.ReferralBonus))
	sb.WriteString(b.referralLink(user.ReferralCode))

	b.sendWithMarkup(ctx, tg, update.Message.Chat.ID, sb.String(), mainMenuKeyboard())
}

// referralLink returns a deep link carrying code, or the raw /start payload
// when the bot username is unknown.
func (b *Bot) referralLink(code string) string {
	payload := appmodels.ReferralPayloadPrefix + code
	if b.username == "" {
		return "<code>/start " + payload + "</code>"
	}
	return fmt.Sprintf("https://t.me/%s?start=%s", b.username, payload)
}

// handleHistory handles the /history command.
func (b *Bot) handleHistory(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleHistoryCore(ctx, tgBot, update)
}

// handleHistoryCore is the testable implementation of handleHistory.
func (b *Bot) handleHistoryCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	user, ok := b.loadUser(ctx, tg, update)
	if !ok {
		return
	}

	entries, err := b.ledger.History(ctx, user.ID, ledger.DefaultHistoryLimit)
	if err != nil {
		b.fail(ctx, tg, user.ID, update.Message.Chat.ID, "history", err)
		return
	}

	if len(entries) == 0 {
		b.send(ctx, tg, update.Message.Chat.ID, "📜 No balance changes yet.")
		return
	}

	var sb strings.Builder
	sb.WriteString("📜 <b>Recent Balance Changes</b>\n\n")
	for i := range entries {
		e := &entries[i]
		sign := "+"
		if e.Amount.IsNegative() {
			sign = ""
		}
		fmt.Fprintf(&sb, "%s %s%s · %s <i>(%s)</i>\n",
			e.CreatedAt.Format("2006-01-02"),
			sign, formatMoney(e.Amount),
			escapeHTML(e.Description),
			e.Status,
		)
	}

	b.send(ctx, tg, update.Message.Chat.ID, sb.String())
}

// handleNews handles the /news command.
func (b *Bot) handleNews(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleNewsCore(ctx, tgBot, update)
}

// handleNewsCore is the testable implementation of handleNews.
func (b *Bot) handleNewsCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	user, ok := b.loadUser(ctx, tg, update)
	if !ok {
		return
	}

	a, err := b.catalog.LatestAnnouncement(ctx, user.Language)
	if errors.Is(err, catalog.ErrNoAnnouncement) {
		b.send(ctx, tg, update.Message.Chat.ID, "📰 No news yet.")
		return
	}
	if err != nil {
		b.fail(ctx, tg, user.ID, update.Message.Chat.ID, "news", err)
		return
	}

	b.send(ctx, tg, update.Message.Chat.ID, formatAnnouncement(a))
}

func formatAnnouncement(a *appmodels.Announcement) string {
	return fmt.Sprintf("📰 <b>%s</b>\n\n%s", escapeHTML(a.Title), escapeHTML(a.Content))
}
