package telegram

import (
	"context"
	"exchange-telegram-bot/lib/helpers"
	"exchange-telegram-bot/lib/translation"
	"github.com/davecgh/go-spew/spew"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"strings"
	"unicode"
)

// NewBot creates new telegram bot
func NewBot(c BotConfig, commands CommandHandler) (*Bot, error) {
	bot, err := tgbotapi.NewBotAPI(c.Token)
	if err != nil {
		return nil, errors.Wrap(err, "could not create telegram bot")
	}

	bot.Debug = c.Debug
	log.Infof("authorized on account %s", bot.Self.UserName)

	return &Bot{
		API:      bot,
		Config:   c,
		Commands: commands,
		Username: bot.Self.UserName,
	}, nil
}

// GetUpdatesChannel gets new updates updates
func (b *Bot) GetUpdatesChannel() tgbotapi.UpdatesChannel {
	updatesConfig := tgbotapi.NewUpdate(0)
	if b.Config.UpdatesTimeout > 0 {
		updatesConfig.Timeout = b.Config.UpdatesTimeout
	}
	return b.API.GetUpdatesChan(updatesConfig)
}

// Stop stops long polling; the updates channel is closed afterwards.
func (b *Bot) Stop() {
	b.API.StopReceivingUpdates()
}

// RegisterCommands publishes the command tokens in the Telegram command menu.
func (b *Bot) RegisterCommands(tokens []string) error {
	botCommands := make([]tgbotapi.BotCommand, 0, len(tokens))
	for _, token := range tokens {
		botCommands = append(botCommands, tgbotapi.BotCommand{
			Command:     strings.TrimPrefix(token, "/"),
			Description: translation.Translate("Convert currencies, e.g. 99USD=TWD"),
		})
	}

	_, err := b.API.Request(tgbotapi.NewSetMyCommands(botCommands...))
	return errors.Wrap(err, "could not register bot commands")
}

// SendMessage sends a telegram message. Text Telegram cannot parse as
// MarkdownV2 is sent again as plain text.
func (b *Bot) SendMessage(m Message) error {
	msg := tgbotapi.NewMessage(m.ChatID, m.Text)
	msg.ReplyToMessageID = m.MessageID
	msg.DisableWebPagePreview = true
	msg.ParseMode = tgbotapi.ModeMarkdownV2

	_, err := b.API.Send(msg)
	if isParseError(err) {
		log.Warnf("message rejected as markdown, sending plain text: %v", err)
		msg.ParseMode = ""
		_, err = b.API.Send(msg)
	}
	return errors.Wrapf(err, "could not send message: %v", m)
}

// HandleUpdate answers a message update. ok is false when the message is
// not a recognized command and nothing should be sent.
func (b *Bot) HandleUpdate(ctx context.Context, u tgbotapi.Update) (string, bool) {
	if u.Message == nil {
		return "", false
	}
	if log.IsLevelEnabled(log.TraceLevel) {
		log.Tracef("received update: %s", spew.Sdump(u))
	}

	text, ok, err := b.Commands.HandleCommand(ctx, b.stripMention(u.Message.Text))
	if !ok {
		return "", false
	}
	if err != nil {
		log.Errorf("command %q failed: %v", u.Message.Text, err)
		return helpers.EscapeMarkdownV2(translation.Translate("Exchange service is unavailable, please try again later.")), true
	}
	return text, true
}

// stripMention removes the "@Username" suffix Telegram adds to commands in
// group chats when it names this bot. Other mentions are left untouched.
func (b *Bot) stripMention(text string) string {
	if b.Username == "" {
		return text
	}

	token, rest := text, ""
	if i := strings.IndexFunc(text, unicode.IsSpace); i >= 0 {
		token, rest = text[:i], text[i:]
	}

	command, mention, found := strings.Cut(token, "@")
	if !found || !strings.EqualFold(mention, b.Username) {
		return text
	}
	return command + rest
}

func isParseError(err error) bool {
	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return strings.Contains(apiErr.Message, "can't parse entities")
}
