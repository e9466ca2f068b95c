// Package notifier доставляет ученикам шаблонные сообщения.
// Ошибки доставки возвращаются вызывающему, который их логирует и не прерывает операцию.
package notifier

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"text/template"

	"github.com/Freeeeeet/studio_booking/internal/model"
	"go.uber.org/zap"
)

// ErrNoRecipient - у ученика нет контакта для этого канала
var ErrNoRecipient = errors.New("student has no contact for this channel")

type Template string

const (
	TemplateQuotaAlmostUsed Template = "quota_almost_used"
	TemplateQuotaExhausted  Template = "quota_exhausted"
	TemplateUnpaidReminder  Template = "unpaid_reminder"
	TemplateClosurePosted   Template = "closure_posted"
	TemplateBookingClosed   Template = "booking_closed"
)

// Data - параметры шаблона, даты уже отформатированы
type Data struct {
	Name       string
	Date       string
	Time       string
	CycleStart string
	CycleEnd   string
	Reason     string
}

type Message struct {
	Template Template
	Data     Data
}

// Sender отправляет сообщение ученику по своему каналу
type Sender interface {
	Send(ctx context.Context, student *model.Student, msg Message) error
}

type textTemplate struct {
	subject string
	body    *template.Template
}

var templates = map[Template]textTemplate{
	TemplateQuotaAlmostUsed: {
		subject: "Остаётся одно занятие",
		body: template.Must(template.New("quota_almost_used").Parse(
			"{{.Name}}, в абонементе с {{.CycleStart}} по {{.CycleEnd}} осталось одно занятие.")),
	},
	TemplateQuotaExhausted: {
		subject: "Абонемент закончился",
		body: template.Must(template.New("quota_exhausted").Parse(
			"{{.Name}}, прошлый абонемент использован полностью. Новый цикл начался {{.CycleStart}} и ещё не оплачен.")),
	},
	TemplateUnpaidReminder: {
		subject: "Напоминание об оплате",
		body: template.Must(template.New("unpaid_reminder").Parse(
			"{{.Name}}, напоминаем: абонемент с {{.CycleStart}} по {{.CycleEnd}} ещё не оплачен.")),
	},
	TemplateClosurePosted: {
		subject: "Студия закрыта",
		body: template.Must(template.New("closure_posted").Parse(
			"{{.Name}}, студия закрыта {{.Date}}{{if .Time}} ({{.Time}}){{end}}.{{if .Reason}} Причина: {{.Reason}}.{{end}}")),
	},
	TemplateBookingClosed: {
		subject: "Занятие отменено студией",
		body: template.Must(template.New("booking_closed").Parse(
			"{{.Name}}, занятие {{.Date}} в {{.Time}} отменено студией. Вы можете записаться на отработку.")),
	},
}

// Render возвращает тему и текст сообщения
func Render(msg Message) (string, string, error) {
	tpl, ok := templates[msg.Template]
	if !ok {
		return "", "", fmt.Errorf("unknown template %q", msg.Template)
	}

	var buf bytes.Buffer
	if err := tpl.body.Execute(&buf, msg.Data); err != nil {
		return "", "", fmt.Errorf("render %s: %w", msg.Template, err)
	}

	return tpl.subject, buf.String(), nil
}

// Multi отправляет сообщение во все каналы. Каналы без контакта пропускаются,
// возвращается первая настоящая ошибка.
type Multi struct {
	senders []Sender
}

func NewMulti(senders ...Sender) *Multi {
	return &Multi{senders: senders}
}

func (m *Multi) Send(ctx context.Context, student *model.Student, msg Message) error {
	var (
		firstErr  error
		delivered bool
	)
	for _, s := range m.senders {
		err := s.Send(ctx, student, msg)
		switch {
		case err == nil:
			delivered = true
		case errors.Is(err, ErrNoRecipient):
		case firstErr == nil:
			firstErr = err
		}
	}

	if firstErr != nil {
		return firstErr
	}
	if !delivered {
		return ErrNoRecipient
	}
	return nil
}

// Noop пишет сообщение в лог вместо отправки
type Noop struct {
	logger *zap.Logger
}

func NewNoop(logger *zap.Logger) *Noop {
	return &Noop{logger: logger}
}

func (n *Noop) Send(_ context.Context, student *model.Student, msg Message) error {
	_, text, err := Render(msg)
	if err != nil {
		return err
	}
	n.logger.Info("Notification (not delivered)",
		zap.Int64("student_id", student.ID),
		zap.String("template", string(msg.Template)),
		zap.String("text", text),
	)
	return nil
}
