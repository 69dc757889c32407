package telegram

import (
	"context"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// BotConfig configuration of the bot
type BotConfig struct {
	Token          string
	Debug          bool
	UpdatesTimeout int
}

// API is the part of the Telegram Bot API the bot uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// CommandHandler answers command messages.
type CommandHandler interface {
	HandleCommand(ctx context.Context, text string) (reply string, ok bool, err error)
}

// Bot telegram interaction client
type Bot struct {
	API      API
	Config   BotConfig
	Commands CommandHandler
	// Username is the bot account name, used to recognize "/ex@Username".
	Username string
}

// Message a telegram message struct
type Message struct {
	ChatID    int64
	MessageID int
	Text      string
}
