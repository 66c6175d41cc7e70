// Package alert pushes moderation and ban events to the operators'
// Telegram chat. Alerting is best effort: failures are logged, never
// propagated into the user-facing flow.
package alert

import (
	"fmt"
	"os"
	"strconv"

	"anonchat/backend/internal/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Notifier receives operational events worth a human look.
type Notifier interface {
	FlaggedMessage(roomID, source, reason, content string)
	BanCreated(ip, reason string)
	AppealSubmitted(ip string)
}

// Nop discards every event.
type Nop struct{}

func (Nop) FlaggedMessage(string, string, string, string) {}
func (Nop) BanCreated(string, string)                     {}
func (Nop) AppealSubmitted(string)                        {}

// Telegram forwards events as bot messages to a fixed admin chat.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegram connects the bot.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to start telegram bot: %w", err)
	}
	logger.Log.Infof("Telegram alerts enabled for @%s", bot.Self.UserName)
	return &Telegram{bot: bot, chatID: chatID}, nil
}

// NewFromEnv builds a Telegram notifier from TELEGRAM_BOT_TOKEN and
// TELEGRAM_ADMIN_CHAT, or a Nop when either is missing.
func NewFromEnv() Notifier {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	chat := os.Getenv("TELEGRAM_ADMIN_CHAT")
	if token == "" || chat == "" {
		return Nop{}
	}
	chatID, err := strconv.ParseInt(chat, 10, 64)
	if err != nil {
		logger.Log.Warnf("Invalid TELEGRAM_ADMIN_CHAT %q, alerts disabled", chat)
		return Nop{}
	}
	t, err := NewTelegram(token, chatID)
	if err != nil {
		logger.Log.Warnf("Telegram alerts disabled: %v", err)
		return Nop{}
	}
	return t
}

func (t *Telegram) send(text string) {
	if _, err := t.bot.Send(tgbotapi.NewMessage(t.chatID, text)); err != nil {
		logger.Log.Warnf("Failed to send telegram alert: %v", err)
	}
}

func (t *Telegram) FlaggedMessage(roomID, source, reason, content string) {
	if len(content) > 200 {
		content = content[:200] + "…"
	}
	t.send(fmt.Sprintf("Flagged message (%s)\nroom: %s\nsource: %s\n\n%s", reason, roomID, source, content))
}

func (t *Telegram) BanCreated(ip, reason string) {
	t.send(fmt.Sprintf("New ban: %s\nreason: %s", ip, reason))
}

func (t *Telegram) AppealSubmitted(ip string) {
	t.send(fmt.Sprintf("New ban appeal from %s", ip))
}
