package bot

import (
	tgbot "github.com/go-telegram/bot"
	"gitlab.com/yelinaung/contest-bot/internal/bot/mocks"
	"gitlab.com/yelinaung/contest-bot/internal/broadcast"
)

// TelegramAPI is an alias to the interface defined in mocks package.
// The interface is defined in mocks to avoid import cycles.
type TelegramAPI = mocks.TelegramAPI

// Compile-time checks that the real bot satisfies the interfaces.
var (
	_ TelegramAPI      = (*tgbot.Bot)(nil)
	_ broadcast.Sender = (TelegramAPI)(nil)
)
