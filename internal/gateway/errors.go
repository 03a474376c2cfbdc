package gateway

import (
	"errors"
	"fmt"
	"strings"
)

// Kind классифицирует исход вызова Telegram API. Каждый вызов шлюза
// возвращает типизированную ошибку, чтобы вызывающий код (особенно цикл
// проверки грантов) сам решал, что логировать и что изолировать.
type Kind int

const (
	KindTransient    Kind = iota // Сеть, rate limit — можно повторить позже
	KindNotFound                 // Чат, сообщение или заявка не найдены
	KindConflict                 // Действие уже выполнено
	KindForbidden                // Бот заблокирован или не хватает прав
	KindPrecondition             // Условие не выполнено до каких-либо изменений
)

// String возвращает имя категории
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindForbidden:
		return "forbidden"
	case KindPrecondition:
		return "precondition_failed"
	default:
		return "transient"
	}
}

// Error типизированная ошибка вызова шлюза
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError создаёт типизированную ошибку
func NewError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf создаёт типизированную ошибку из формата
func Errorf(kind Kind, op, format string, a ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, a...)}
}

// KindOf возвращает категорию ошибки. Нетипизированные ошибки считаются
// транзиентными — это безопасный дефолт для повторов.
func KindOf(err error) Kind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return KindTransient
}

// IsNotFound проверяет категорию not_found
func IsNotFound(err error) bool { return is(err, KindNotFound) }

// IsConflict проверяет категорию conflict
func IsConflict(err error) bool { return is(err, KindConflict) }

// IsForbidden проверяет категорию forbidden
func IsForbidden(err error) bool { return is(err, KindForbidden) }

// IsPrecondition проверяет категорию precondition_failed
func IsPrecondition(err error) bool { return is(err, KindPrecondition) }

// IsTransient проверяет категорию transient
func IsTransient(err error) bool {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind == KindTransient
	}
	return err != nil
}

func is(err error, kind Kind) bool {
	var ge *Error
	return errors.As(err, &ge) && ge.Kind == kind
}

// classify превращает сырую ошибку Telegram API в типизированную.
// Telegram не отдаёт машиночитаемых кодов кроме HTTP-статуса в тексте,
// поэтому категория определяется по описанию.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	text := strings.ToLower(err.Error())
	switch {
	case strings.Contains(text, "not found"),
		strings.Contains(text, "hide_requester_missing"),
		strings.Contains(text, "user_id_invalid"):
		return NewError(KindNotFound, op, err)
	case strings.Contains(text, "already"),
		strings.Contains(text, "not modified"):
		return NewError(KindConflict, op, err)
	case strings.Contains(text, "forbidden"),
		strings.Contains(text, "blocked"),
		strings.Contains(text, "kicked"),
		strings.Contains(text, "not enough rights"),
		strings.Contains(text, "chat_admin_required"):
		return NewError(KindForbidden, op, err)
	default:
		return NewError(KindTransient, op, err)
	}
}
