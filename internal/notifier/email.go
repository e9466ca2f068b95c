package notifier

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/studio_booking/internal/model"
	"github.com/resend/resend-go/v2"
)

// Email отправляет письма через Resend
type Email struct {
	emails resend.EmailsSvc
	from   string
}

func NewEmail(apiKey, from string) *Email {
	return &Email{
		emails: resend.NewClient(apiKey).Emails,
		from:   from,
	}
}

func (e *Email) Send(ctx context.Context, student *model.Student, msg Message) error {
	if student.Email == "" {
		return ErrNoRecipient
	}

	subject, text, err := Render(msg)
	if err != nil {
		return err
	}

	_, err = e.emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    e.from,
		To:      []string{student.Email},
		Subject: subject,
		Text:    text,
	})
	if err != nil {
		return fmt.Errorf("resend send failed: %w", err)
	}

	return nil
}
