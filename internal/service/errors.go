package service

import (
	"errors"
)

// Kind - класс ошибки: от него зависит, как вызывающий отвечает пользователю
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindBusinessRule
	KindAuthorization
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindBusinessRule:
		return "business_rule"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	}
	return "internal"
}

// Error - отказ операции с текстом для пользователя
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Code
}

func newError(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

var (
	ErrInvalidDate    = newError(KindValidation, "invalid date", "Некорректная дата")
	ErrInvalidKind    = newError(KindValidation, "invalid booking kind", "Неизвестный тип записи")
	ErrInvalidMode    = newError(KindValidation, "invalid cancellation mode", "Неизвестный вид отмены")
	ErrInvalidBlock   = newError(KindValidation, "invalid blocked seats count", "Число закрытых мест должно быть от 0 до вместимости слота")
	ErrWrongWeekday   = newError(KindValidation, "slot does not run on this weekday", "В этот день недели такого занятия нет")
	ErrInvalidRange   = newError(KindValidation, "invalid date range", "Некорректный период")
	ErrInvalidClosure = newError(KindValidation, "invalid closure", "Некорректное закрытие: проверьте вид и время")

	ErrForbidden = newError(KindAuthorization, "forbidden", "Нельзя изменять чужие записи")
	ErrAdminOnly = newError(KindAuthorization, "admin only", "Операция доступна только администратору")

	ErrSlotNotFound    = newError(KindNotFound, "slot not found", "Занятие не найдено")
	ErrStudentNotFound = newError(KindNotFound, "student not found", "Ученик не найден")
	ErrBookingNotFound = newError(KindNotFound, "booking not found", "Запись не найдена")
	ErrClosureNotFound = newError(KindNotFound, "closure not found", "Закрытие не найдено")

	ErrNoActiveCycle        = newError(KindBusinessRule, "no active cycle", "Нет активного абонемента на эту дату")
	ErrLevelMismatch        = newError(KindBusinessRule, "level mismatch", "Занятие другого уровня")
	ErrSlotClosed           = newError(KindBusinessRule, "slot closed", "Студия закрыта в это время")
	ErrAlreadyBooked        = newError(KindBusinessRule, "already booked", "Вы уже записаны на это занятие")
	ErrTemporarilyCancelled = newError(KindBusinessRule, "date cancelled by student", "Вы отменили это занятие; вернуть его можно только как отработку")
	ErrNoCapacity           = newError(KindBusinessRule, "no capacity", "Свободных мест нет")
	ErrQuotaExhausted       = newError(KindBusinessRule, "quota exhausted", "Абонемент на этот цикл исчерпан")
	ErrWeeklyQuota          = newError(KindBusinessRule, "weekly quota exhausted", "На этой неделе лимит занятий исчерпан")
	ErrCycleCompleted       = newError(KindBusinessRule, "cycle completed", "Абонемент уже использован, отработка недоступна")
	ErrOutsideCycle         = newError(KindBusinessRule, "date outside cycle window", "Дата за пределами текущего абонемента")
	ErrTurnElapsed          = newError(KindBusinessRule, "turn already started", "Занятие уже началось")
	ErrBookingCutoff        = newError(KindBusinessRule, "booking cutoff", "Записаться можно не позже чем за час до начала")
	ErrCancelCutoff         = newError(KindBusinessRule, "cancellation cutoff", "Отменить можно не позже чем за два часа до начала")
	ErrNoRecoveryCredits    = newError(KindBusinessRule, "no recovery credits", "Нет доступных отработок")
	ErrNotCancellable       = newError(KindBusinessRule, "booking not cancellable", "Эту запись нельзя отменить")
)

// KindOf возвращает класс ошибки; неизвестные ошибки - внутренние
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// UserMessage возвращает текст для пользователя
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "Что-то пошло не так, попробуйте позже"
}
