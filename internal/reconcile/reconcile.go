// Package reconcile решает судьбу одной ячейки (ученик, слот, дата), когда
// сходятся закрытие студией, отмена учеником и еженедельная генерация.
// Закрытие студией всегда побеждает; ячейка никогда не даёт две отработки.
package reconcile

import (
	"github.com/Freeeeeet/studio_booking/internal/model"
)

// Intent - что инициировало пересчёт ячейки
type Intent int

const (
	IntentGenerate        Intent = iota // еженедельная генерация постоянных мест
	IntentCancelTemporary               // ученик отменяет одну дату
	IntentCancelPermanent               // ученик отказывается от места
	IntentClosure                       // студия закрыла ячейку
)

func (i Intent) String() string {
	switch i {
	case IntentGenerate:
		return "generate"
	case IntentCancelTemporary:
		return "cancel_temporary"
	case IntentCancelPermanent:
		return "cancel_permanent"
	case IntentClosure:
		return "closure"
	}
	return "unknown"
}

type Action int

const (
	ActionNone           Action = iota
	ActionCreateReserved        // создать обычную запись (если есть место)
	ActionCreateClosed          // создать запись "закрыто студией"
	ActionMarkClosed            // перевести существующую запись в "закрыто студией"
	ActionMarkCancelled         // отменить существующую запись
	ActionDelete                // удалить запись (отработка/разовое)
)

func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionCreateReserved:
		return "create_reserved"
	case ActionCreateClosed:
		return "create_closed"
	case ActionMarkClosed:
		return "mark_closed"
	case ActionMarkCancelled:
		return "mark_cancelled"
	case ActionDelete:
		return "delete"
	}
	return "unknown"
}

// Decision - итог для ячейки
type Decision struct {
	Action Action
	Reason string
}

func none(reason string) Decision {
	return Decision{Action: ActionNone, Reason: reason}
}

// Decide возвращает единственное действие для ячейки.
// existing - текущая запись ячейки или nil, closed - закрыта ли ячейка сейчас.
func Decide(existing *model.Booking, closed bool, intent Intent) Decision {
	switch intent {
	case IntentGenerate:
		return decideGenerate(existing, closed)
	case IntentCancelTemporary, IntentCancelPermanent:
		return decideCancel(existing, closed, intent)
	case IntentClosure:
		return decideClosure(existing)
	}
	return none("unknown intent")
}

func decideGenerate(existing *model.Booking, closed bool) Decision {
	if closed {
		switch {
		case existing == nil:
			return Decision{Action: ActionCreateClosed, Reason: "cell closed"}
		case existing.IsClosed():
			return none("already closed")
		case existing.IsOrdinary && existing.IsTemporarilyCancelled():
			// та же строка, чтобы не было двух отработок за одну ячейку
			return Decision{Action: ActionMarkClosed, Reason: "self-cancelled cell closed"}
		case existing.IsOrdinary && existing.State == model.BookingStateReserved:
			return Decision{Action: ActionMarkClosed, Reason: "reserved cell closed"}
		}
		return none("existing record kept")
	}

	switch {
	case existing == nil:
		return Decision{Action: ActionCreateReserved, Reason: "fixed slot"}
	case existing.IsTemporarilyCancelled():
		return none("student cancelled this date")
	}
	return none("record exists")
}

func decideCancel(existing *model.Booking, closed bool, intent Intent) Decision {
	if existing == nil {
		return none("nothing to cancel")
	}

	// временную отмену можно сделать постоянной, чтобы освободить место
	if intent == IntentCancelPermanent && existing.IsOrdinary && existing.IsTemporarilyCancelled() {
		if closed {
			return Decision{Action: ActionMarkClosed, Reason: "cell closed by studio"}
		}
		return Decision{Action: ActionMarkCancelled, Reason: "temporary cancel made permanent"}
	}

	if existing.State != model.BookingStateReserved {
		return none("nothing to cancel")
	}

	switch existing.Kind {
	case model.BookingKindRecovery, model.BookingKindDropIn:
		return Decision{Action: ActionDelete, Reason: "one-off booking"}
	case model.BookingKindOrdinary:
		if closed {
			return Decision{Action: ActionMarkClosed, Reason: "cell closed by studio"}
		}
		return Decision{Action: ActionMarkCancelled, Reason: "cancelled by student"}
	}
	return none("unknown kind")
}

func decideClosure(existing *model.Booking) Decision {
	if existing == nil {
		return none("no record")
	}

	switch existing.Kind {
	case model.BookingKindRecovery, model.BookingKindDropIn:
		if existing.State == model.BookingStateReserved {
			return Decision{Action: ActionDelete, Reason: "one-off booking on closed cell"}
		}
		return none("one-off booking finished")
	case model.BookingKindOrdinary:
		switch {
		case existing.IsClosed():
			return none("already closed")
		case existing.State == model.BookingStateReserved, existing.IsTemporarilyCancelled():
			return Decision{Action: ActionMarkClosed, Reason: "cell closed by studio"}
		}
		return none("permanently cancelled")
	}
	return none("unknown kind")
}
