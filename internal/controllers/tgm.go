package controllers

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"
)

const sendWait = 30 * time.Second

type TgmController struct {
	tgmBot  *tgbotapi.BotAPI
	chatID  int64
	limiter *rate.Limiter
}

// NewTgmController sends at most perSecond messages per second to chatID.
// Telegram rejects bursts above roughly one message per second per chat.
func NewTgmController(
	tgmBot *tgbotapi.BotAPI,
	chatID int64,
	perSecond float64,
) *TgmController {
	if perSecond <= 0 {
		perSecond = 1
	}

	return &TgmController{
		tgmBot:  tgmBot,
		chatID:  chatID,
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
	}
}

func (c *TgmController) Send(text string) error {
	ctx, cancel := context.WithTimeout(context.Background(), sendWait)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	if _, err := c.tgmBot.Send(msg); err != nil {
		return err
	}

	return nil
}

func (c *TgmController) CheckChatID(chatID int64) bool {
	return c.chatID == chatID
}

func (c *TgmController) GetUpdates() tgbotapi.UpdatesChannel {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	return c.tgmBot.GetUpdatesChan(u)
}

func (c *TgmController) Stop() {
	c.tgmBot.StopReceivingUpdates()
}
