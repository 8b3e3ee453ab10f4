package bot

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"gitlab.com/yelinaung/contest-bot/internal/callback"
	"gitlab.com/yelinaung/contest-bot/internal/logger"
	appmodels "gitlab.com/yelinaung/contest-bot/internal/models"
	"gitlab.com/yelinaung/contest-bot/internal/session"
)

// formatGreeting returns a greeting suffix with the user's name.
func formatGreeting(firstName string) string {
	if firstName == "" {
		return ""
	}
	return ", " + escapeHTML(firstName)
}

// handleStart handles the /start command.
func (b *Bot) handleStart(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleStartCore(ctx, tgBot, update)
}

// handleStartCore is the testable implementation of handleStart. Known users
// go straight to the main menu; everyone else enters registration.
func (b *Bot) handleStartCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}
	from := msg.From

	exists, err := b.userRepo.Exists(ctx, from.ID)
	if err != nil {
		b.fail(ctx, tg, from.ID, msg.Chat.ID, "start", err)
		return
	}

	if exists {
		b.sessions.Delete(from.ID)
		if err := b.userRepo.UpdateIdentity(ctx, from.ID, from.Username, from.FirstName, from.LastName); err != nil {
			logger.Log.Warn().Err(err).Str("user_hash", logger.HashUserID(from.ID)).Msg("Failed to refresh user identity")
		}
		if err := b.userRepo.Reactivate(ctx, from.ID); err != nil {
			logger.Log.Warn().Err(err).Str("user_hash", logger.HashUserID(from.ID)).Msg("Failed to reactivate user")
		}
		b.sendWithMarkup(ctx, tg, msg.Chat.ID,
			fmt.Sprintf("👋 Welcome back%s! Choose an option from the menu.", formatGreeting(from.FirstName)),
			mainMenuKeyboard())
		return
	}

	code := referralCodeFromPayload(extractCommandArgs(msg.Text, "/start"))
	b.sessions.Start(from.ID, session.FlowRegistration, session.StateChoosingLanguage, session.Data{ReferralCode: code})

	b.sendWithMarkup(ctx, tg, msg.Chat.ID,
		fmt.Sprintf("👋 Welcome%s!\n\nVote for projects, send proof and earn rewards.\n\nPlease choose your language:",
			formatGreeting(from.FirstName)),
		languageKeyboard(b.cfg.SupportedLanguages))
}

// onLanguage handles a language button for registration and news authoring.
func (b *Bot) onLanguage(ctx context.Context, tg TelegramAPI, q *models.CallbackQuery, a callback.Action) string {
	sess, ok := b.sessions.Get(q.From.ID)
	if !ok || sess.State != session.StateChoosingLanguage {
		return "This step has expired."
	}
	if !b.cfg.IsSupportedLanguage(a.Language) {
		return "Unsupported language."
	}
	sess.Data.Language = a.Language

	switch sess.Flow {
	case session.FlowRegistration:
		sess.State = session.StateEnteringPhone
		b.sessions.Save(sess)
		b.sendWithMarkup(ctx, tg, q.From.ID,
			"📱 Share your phone number with the button below, or type it, e.g. <code>+998901234567</code>.",
			phoneKeyboard())
	case session.FlowNews:
		sess.State = session.StateCollectTitle
		b.sessions.Save(sess)
		b.sendWithMarkup(ctx, tg, q.From.ID, "📰 Send the news title.", cancelKeyboard())
	default:
		return "This step has expired."
	}
	return ""
}

// onRegion handles a region button for registration and season projects.
func (b *Bot) onRegion(ctx context.Context, tg TelegramAPI, q *models.CallbackQuery, a callback.Action) string {
	sess, ok := b.sessions.Get(q.From.ID)
	if !ok {
		return "This step has expired."
	}

	switch {
	case sess.Flow == session.FlowRegistration && sess.State == session.StateEnteringRegion:
		sess.Data.Region = appmodels.Regions[a.Region]
		b.finishRegistration(ctx, tg, &q.From, q.From.ID, sess)
	case sess.Flow == session.FlowAddSeasonProject && sess.State == session.StateCollectRegion:
		sess.Data.Region = appmodels.Regions[a.Region]
		sess.State = session.StateCollectBudget
		b.sessions.Save(sess)
		b.sendWithMarkup(ctx, tg, q.From.ID, "💵 Send the project budget in UZS, e.g. <code>150000000</code>.", cancelKeyboard())
	default:
		return "This step has expired."
	}
	return ""
}

// handleRegistrationInput advances registration with a typed message.
func (b *Bot) handleRegistrationInput(ctx context.Context, tg TelegramAPI, msg *models.Message, sess *session.Session) {
	switch sess.State {
	case session.StateChoosingLanguage:
		b.sendWithMarkup(ctx, tg, msg.Chat.ID, "Please choose your language:", languageKeyboard(b.cfg.SupportedLanguages))

	case session.StateEnteringPhone:
		var phone string
		if msg.Contact != nil {
			if msg.Contact.UserID != 0 && msg.Contact.UserID != msg.From.ID {
				b.sendWithMarkup(ctx, tg, msg.Chat.ID, "⚠️ Please share your own phone number.", phoneKeyboard())
				return
			}
			phone = normalizePhone(msg.Contact.PhoneNumber)
		} else {
			phone = normalizePhone(msg.Text)
		}
		if phone == "" {
			b.sendWithMarkup(ctx, tg, msg.Chat.ID,
				"⚠️ That doesn't look like a phone number. Try again, e.g. <code>+998901234567</code>.",
				phoneKeyboard())
			return
		}
		sess.Data.Phone = phone
		sess.State = session.StateEnteringRegion
		b.sessions.Save(sess)
		b.sendWithMarkup(ctx, tg, msg.Chat.ID, "📍 Choose your region:", regionKeyboard())

	case session.StateEnteringRegion:
		i, ok := matchRegion(msg.Text)
		if !ok {
			b.sendWithMarkup(ctx, tg, msg.Chat.ID, "⚠️ Please pick your region from the list:", regionKeyboard())
			return
		}
		sess.Data.Region = appmodels.Regions[i]
		b.finishRegistration(ctx, tg, msg.From, msg.Chat.ID, sess)
	}
}

// finishRegistration stores the user collected by sess and pays referral
// bonuses when a valid code was used.
func (b *Bot) finishRegistration(ctx context.Context, tg TelegramAPI, from *models.User, chatID int64, sess *session.Session) {
	user := &appmodels.User{
		ID:        from.ID,
		Username:  from.Username,
		FirstName: from.FirstName,
		LastName:  from.LastName,
		Phone:     sess.Data.Phone,
		Region:    sess.Data.Region,
		Language:  sess.Data.Language,
	}

	referrer, err := b.register(ctx, user, sess.Data.ReferralCode)
	if err != nil {
		b.fail(ctx, tg, from.ID, chatID, "register", err)
		return
	}
	b.sessions.Delete(from.ID)

	logger.Log.Info().
		Str("user_hash", logger.HashUserID(user.ID)).
		Bool("referred", referrer != nil).
		Msg("User registered")

	text := "✅ Registration complete! Use the menu below to vote and earn."
	if referrer != nil {
		text += fmt.Sprintf("\n\n🎁 You received a referral bonus of %s.", formatMoney(b.cfg.ReferralBonus))
	}
	b.sendWithMarkup(ctx, tg, chatID, text, mainMenuKeyboard())

	if referrer != nil {
		b.send(ctx, tg, referrer.ID,
			fmt.Sprintf("🎉 A friend joined with your link! You earned %s.", formatMoney(b.cfg.ReferralBonus)))
	}
}
