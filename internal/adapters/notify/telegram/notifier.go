// Package telegram delivers account notifications through the Telegram Bot
// API. Account ids are Telegram chat ids in decimal form.
package telegram

import (
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/sergeyzhinskiy/telegramvpnbot/internal/domain"
	"github.com/sergeyzhinskiy/telegramvpnbot/internal/ports"
)

// sender is the slice of the bot API the notifier needs.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Notifier struct {
	api sender
}

var _ ports.Notifier = (*Notifier)(nil)

// New wires a notifier against a live bot. NewWithSender exists for tests.
func New(token string) (*Notifier, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	return &Notifier{api: api}, nil
}

func NewWithSender(api sender) *Notifier {
	return &Notifier{api: api}
}

func (n *Notifier) Send(ctx context.Context, to domain.AccountID, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	chatID, err := strconv.ParseInt(string(to), 10, 64)
	if err != nil {
		return fmt.Errorf("account %s is not a telegram chat id: %w", to, err)
	}

	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := n.api.Send(msg); err != nil {
		return fmt.Errorf("send to %s: %w", to, err)
	}
	return nil
}
