package notifier

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/studio_booking/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

type messageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// Telegram отправляет сообщения в личный чат ученика
type Telegram struct {
	bot messageSender
}

func NewTelegram(b *bot.Bot) *Telegram {
	return &Telegram{bot: b}
}

func (t *Telegram) Send(ctx context.Context, student *model.Student, msg Message) error {
	if student.TelegramChatID == 0 {
		return ErrNoRecipient
	}

	_, text, err := Render(msg)
	if err != nil {
		return err
	}

	_, err = t.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: student.TelegramChatID,
		Text:   text,
	})
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}

	return nil
}
