package error_notificator

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type Infra struct {
	bot         *tgbotapi.BotAPI
	adminChatID int64
}

// NewInfra читает ALERT_BOT_TOKEN / ALERT_CHAT_ID. Без токена алерты
// выключены: Notify становится no-op, сервер работает дальше.
func NewInfra() *Infra {
	token := os.Getenv("ALERT_BOT_TOKEN")
	if token == "" {
		log.Printf("[error_notificator] ALERT_BOT_TOKEN not set, alerts disabled")
		return &Infra{}
	}

	chatID, err := strconv.ParseInt(os.Getenv("ALERT_CHAT_ID"), 10, 64)
	if err != nil {
		log.Printf("[error_notificator] bad ALERT_CHAT_ID, alerts disabled: %v", err)
		return &Infra{}
	}

	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		log.Printf("[error_notificator] bot init failed, alerts disabled: %v", err)
		return &Infra{}
	}

	return &Infra{bot: bot, adminChatID: chatID}
}

func (i *Infra) Notify(ctx context.Context, err error, details string) error {
	if i.bot == nil {
		return nil
	}

	text := fmt.Sprintf(
		"❗ Ошибка в salescoach\n\nОшибка: %v\n\nДетали: %s",
		err,
		details,
	)

	msg := tgbotapi.NewMessage(i.adminChatID, text)

	_, sendErr := i.bot.Send(msg)
	if sendErr != nil {
		log.Printf("[error_notificator] send fail: %v", sendErr)
		return sendErr
	}

	return nil
}
