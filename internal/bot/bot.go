// Package bot provides the Telegram bot initialization and the conversation
// engine that drives registration, voting, withdrawals and admin authoring.
package bot

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"gitlab.com/yelinaung/contest-bot/internal/broadcast"
	"gitlab.com/yelinaung/contest-bot/internal/catalog"
	"gitlab.com/yelinaung/contest-bot/internal/config"
	"gitlab.com/yelinaung/contest-bot/internal/database"
	"gitlab.com/yelinaung/contest-bot/internal/ledger"
	"gitlab.com/yelinaung/contest-bot/internal/logger"
	"gitlab.com/yelinaung/contest-bot/internal/repository"
	"gitlab.com/yelinaung/contest-bot/internal/session"
	"gitlab.com/yelinaung/contest-bot/internal/votes"
	"gitlab.com/yelinaung/contest-bot/internal/withdrawal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	// pollTimeout is the long-polling timeout passed to the HTTP client.
	pollTimeout = time.Minute
	// reapInterval is how often idle sessions are swept.
	reapInterval = time.Minute
)

// Bot wraps the Telegram bot with application dependencies.
type Bot struct {
	bot           *bot.Bot
	cfg           *config.Config
	messageSender TelegramAPI
	username      string

	db          database.DB
	userRepo    *repository.UserRepository
	ledger      *ledger.Ledger
	votes       *votes.Registry
	withdrawals *withdrawal.Workflow
	catalog     *catalog.Catalog
	broadcaster *broadcast.Dispatcher
	sessions    *session.Store

	now func() time.Time
}

// newBot wires the services shared by production and tests.
func newBot(cfg *config.Config, db database.DB) *Bot {
	l := ledger.New(db)
	return &Bot{
		cfg:         cfg,
		db:          db,
		userRepo:    repository.NewUserRepository(db),
		ledger:      l,
		votes:       votes.NewRegistry(db, l, cfg.VoteBonus),
		withdrawals: withdrawal.NewWorkflow(db, l, cfg.MinWithdrawal, cfg.CommissionRate),
		catalog:     catalog.New(db),
		broadcaster: broadcast.NewDispatcher(cfg.BroadcastDelay),
		sessions:    session.NewStore(),
		now:         time.Now,
	}
}

// New creates a new Bot instance.
func New(cfg *config.Config, db database.DB) (*Bot, error) {
	b := newBot(cfg, db)

	httpClient := &http.Client{
		Timeout:   pollTimeout + 10*time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	opts := []bot.Option{
		bot.WithMiddlewares(b.loggingMiddleware),
		bot.WithDefaultHandler(b.defaultHandler),
		bot.WithHTTPClient(pollTimeout, httpClient),
	}

	telegramBot, err := bot.New(cfg.TelegramBotToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b.bot = telegramBot
	b.messageSender = telegramBot
	b.registerHandlers()

	return b, nil
}

// Start begins polling for updates and sweeping idle sessions.
func (b *Bot) Start(ctx context.Context) {
	if me, err := b.bot.GetMe(ctx); err != nil {
		logger.Log.Warn().Err(err).Msg("Failed to get bot username, referral links fall back to /start payloads")
	} else {
		b.username = me.Username
	}

	go b.startSessionReaper(ctx)

	logger.Log.Info().Msg("Bot started polling")
	b.bot.Start(ctx)
}

// registerHandlers sets up command and callback handlers.
func (b *Bot) registerHandlers() {
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypePrefix, b.handleStart)
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/newseason", bot.MatchTypePrefix, b.handleNewSeason)

	exact := map[string]bot.HandlerFunc{
		"/help":             b.handleHelp,
		"/cancel":           b.handleCancel,
		"/balance":          b.handleBalance,
		"/history":          b.handleHistory,
		"/news":             b.handleNews,
		"/vote":             b.handleVote,
		"/withdraw":         b.handleWithdraw,
		"/addproject":       b.handleAddProject,
		"/addseasonproject": b.handleAddSeasonProject,
		"/editproject":      b.handleEditProject,
		"/deleteproject":    b.handleDeleteProject,
		"/broadcast":        b.handleBroadcast,
		"/addnews":          b.handleAddNews,
		"/withdrawals":      b.handleWithdrawals,
		"/export":           b.handleExport,
		"/stats":            b.handleStats,
	}
	for command, handler := range exact {
		b.bot.RegisterHandler(bot.HandlerTypeMessageText, command, bot.MatchTypeExact, handler)
	}

	b.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "", bot.MatchTypePrefix, b.handleCallback)
}

// loggingMiddleware drops updates without a sender and logs the rest with
// hashed identifiers.
func (b *Bot) loggingMiddleware(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
		userID := extractUserID(update)
		if userID == 0 {
			return
		}
		logUserAction(userID, update)
		next(ctx, tgBot, update)
	}
}

// logUserAction logs the user's input/action.
func logUserAction(userID int64, update *models.Update) {
	switch {
	case update.Message != nil:
		msg := update.Message
		event := logger.Log.Info().
			Str("user_hash", logger.HashUserID(userID)).
			Str("chat_hash", logger.HashChatID(msg.Chat.ID))

		switch {
		case len(msg.Photo) > 0:
			event = event.Str("type", "photo")
		case msg.Contact != nil:
			event = event.Str("type", "contact")
		case msg.Text != "":
			event = event.Str("text", logger.SanitizeText(msg.Text))
		}
		event.Msg("User input")

	case update.CallbackQuery != nil:
		logger.Log.Info().
			Str("user_hash", logger.HashUserID(userID)).
			Str("data", update.CallbackQuery.Data).
			Msg("Callback query")
	}
}

// extractUserID gets the user ID from various update types.
func extractUserID(update *models.Update) int64 {
	if update.Message != nil && update.Message.From != nil {
		return update.Message.From.ID
	}
	if update.CallbackQuery != nil {
		return update.CallbackQuery.From.ID
	}
	return 0
}

// isAdmin reports whether the sender of update is on the admin allow-list.
func (b *Bot) isAdmin(from *models.User) bool {
	return from != nil && b.cfg.IsAdmin(from.ID, from.Username)
}

// defaultHandler handles every message no command matched: flow input,
// main menu buttons and anything else.
func (b *Bot) defaultHandler(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.defaultHandlerCore(ctx, tgBot, update)
}

// defaultHandlerCore is the testable implementation of defaultHandler.
func (b *Bot) defaultHandlerCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.CallbackQuery != nil {
		b.handleCallbackCore(ctx, tg, update)
		return
	}
	if update.Message == nil || update.Message.From == nil {
		return
	}

	// Menu buttons take precedence over flow input.
	if command, ok := menuCommands[update.Message.Text]; ok {
		b.dispatchMenuCommand(ctx, tg, update, command)
		return
	}

	if b.handleSessionInputCore(ctx, tg, update) {
		return
	}

	b.send(ctx, tg, update.Message.Chat.ID, "I didn't understand that. Use /help to see what I can do.")
}

// dispatchMenuCommand runs the command a main menu button stands for.
func (b *Bot) dispatchMenuCommand(ctx context.Context, tg TelegramAPI, update *models.Update, command string) {
	switch command {
	case "/vote":
		b.handleVoteCore(ctx, tg, update)
	case "/balance":
		b.handleBalanceCore(ctx, tg, update)
	case "/withdraw":
		b.handleWithdrawCore(ctx, tg, update)
	case "/news":
		b.handleNewsCore(ctx, tg, update)
	case "/history":
		b.handleHistoryCore(ctx, tg, update)
	case "/help":
		b.handleHelpCore(ctx, tg, update)
	}
}
