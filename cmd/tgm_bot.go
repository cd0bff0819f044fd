package main

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (a *App) initTgBot() error {
	if a.Config.Telegram.APIToken == "" {
		a.Logger.Info("telegram disabled")
		return nil
	}

	bot, err := tgbotapi.NewBotAPI(a.Config.Telegram.APIToken)
	if err != nil {
		return err
	}
	bot.Debug = false

	a.TGM = bot

	return nil
}
