package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (a *App) handleUpdate(update tgbotapi.Update) {
	if update.Message == nil {
		return
	}

	if update.Message.IsCommand() {
		switch update.Message.Command() {
		case "start":
			a.handleStart(update.Message)
		}
	}
}

// handleStart greets the user with a button opening the Mini App.
func (a *App) handleStart(msg *tgbotapi.Message) {
	reply := tgbotapi.NewMessage(msg.Chat.ID,
		"Press the button to open the Mini App!")
	reply.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("Open", a.cfg.WebAppURL()),
		),
	)

	if _, err := a.bot.Send(reply); err != nil {
		a.log.Error().Err(err).Int64("chat_id", msg.Chat.ID).Msg("Failed to send start reply")
	}
}
