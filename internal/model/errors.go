package model

import (
	"errors"
	"fmt"
)

// Code identifies why a request was turned down.  Codes are stable and
// are sent to clients verbatim in the "error" field.
type Code string

const (
	CodeInvalidQuantity               Code = "INVALID_QUANTITY"
	CodeNegativePrice                 Code = "NEGATIVE_PRICE"
	CodeEventNotFound                 Code = "EVENT_NOT_FOUND"
	CodeEventInactive                 Code = "EVENT_INACTIVE"
	CodeEventExpired                  Code = "EVENT_EXPIRED"
	CodeEventUnavailable              Code = "EVENT_UNAVAILABLE"
	CodeInsufficientCapacity          Code = "INSUFFICIENT_CAPACITY"
	CodeDuplicateActiveReservation    Code = "DUPLICATE_ACTIVE_RESERVATION"
	CodeActiveReservationLimitReached Code = "ACTIVE_RESERVATION_LIMIT_REACHED"
	CodeReservationNotFound           Code = "RESERVATION_NOT_FOUND"
	CodeInvalidStateTransition        Code = "INVALID_STATE_TRANSITION"
	CodeForbidden                     Code = "FORBIDDEN"
)

// Rejection is an expected business outcome, never an infrastructure
// failure.  Requested/Available are filled for capacity rejections and
// Estado for state-transition rejections.
type Rejection struct {
	Code      Code
	Message   string
	Requested int
	Available int
	Estado    EstadoReserva
}

func (r *Rejection) Error() string {
	if r.Message != "" {
		return r.Message
	}
	return string(r.Code)
}

// Is matches any rejection with the same code, so callers can write
// errors.Is(err, model.ErrInsufficientCapacity).
func (r *Rejection) Is(target error) bool {
	t, ok := target.(*Rejection)
	return ok && t.Code == r.Code
}

// Sentinels for errors.Is comparisons.
var (
	ErrInvalidQuantity               = &Rejection{Code: CodeInvalidQuantity}
	ErrNegativePrice                 = &Rejection{Code: CodeNegativePrice}
	ErrEventNotFound                 = &Rejection{Code: CodeEventNotFound}
	ErrEventInactive                 = &Rejection{Code: CodeEventInactive}
	ErrEventExpired                  = &Rejection{Code: CodeEventExpired}
	ErrEventUnavailable              = &Rejection{Code: CodeEventUnavailable}
	ErrInsufficientCapacity          = &Rejection{Code: CodeInsufficientCapacity}
	ErrDuplicateActiveReservation    = &Rejection{Code: CodeDuplicateActiveReservation}
	ErrActiveReservationLimitReached = &Rejection{Code: CodeActiveReservationLimitReached}
	ErrReservationNotFound           = &Rejection{Code: CodeReservationNotFound}
	ErrInvalidStateTransition        = &Rejection{Code: CodeInvalidStateTransition}
	ErrForbidden                     = &Rejection{Code: CodeForbidden}
)

// Reject builds a rejection with a formatted message.
func Reject(code Code, format string, args ...any) *Rejection {
	return &Rejection{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CuposInsuficientes builds the capacity rejection with both counts.
func CuposInsuficientes(solicitados, disponibles int) *Rejection {
	return &Rejection{
		Code:      CodeInsufficientCapacity,
		Message:   fmt.Sprintf("cupos insuficientes: solicitados %d, disponibles %d", solicitados, disponibles),
		Requested: solicitados,
		Available: disponibles,
	}
}

// TransicionInvalida builds the state-machine rejection.
func TransicionInvalida(desde, hacia EstadoReserva) *Rejection {
	return &Rejection{
		Code:    CodeInvalidStateTransition,
		Message: fmt.Sprintf("transición inválida: la reserva está %s y no puede pasar a %s", desde, hacia),
		Estado:  desde,
	}
}

// AsRejection unwraps err into a *Rejection when it is one.
func AsRejection(err error) (*Rejection, bool) {
	var r *Rejection
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}
