package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/event-reservation/internal/model"
)

func TestStatusFor(t *testing.T) {
	cases := map[model.Code]int{
		model.CodeInvalidQuantity:               http.StatusBadRequest,
		model.CodeNegativePrice:                 http.StatusBadRequest,
		model.CodeEventNotFound:                 http.StatusNotFound,
		model.CodeReservationNotFound:           http.StatusNotFound,
		model.CodeForbidden:                     http.StatusForbidden,
		model.CodeEventInactive:                 http.StatusConflict,
		model.CodeEventExpired:                  http.StatusConflict,
		model.CodeEventUnavailable:              http.StatusConflict,
		model.CodeInsufficientCapacity:          http.StatusConflict,
		model.CodeDuplicateActiveReservation:    http.StatusConflict,
		model.CodeActiveReservationLimitReached: http.StatusConflict,
		model.CodeInvalidStateTransition:        http.StatusConflict,
	}
	for code, want := range cases {
		assert.Equal(t, want, statusFor(code), code)
	}
}

func newContext() (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	rec := httptest.NewRecorder()
	return e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec), rec
}

func TestRespondError_Rejection(t *testing.T) {
	c, rec := newContext()
	require.NoError(t, respondError(c, zap.NewNop(), "op", model.CuposInsuficientes(4, 0)))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"status":409,"error":"INSUFFICIENT_CAPACITY","message":"cupos insuficientes: solicitados 4, disponibles 0","requested":4,"available":0}`, rec.Body.String())
}

func TestRespondError_HidesInfrastructureErrors(t *testing.T) {
	c, rec := newContext()
	require.NoError(t, respondError(c, zap.NewNop(), "op", errors.New("dial tcp 10.0.0.1:3306: connection refused")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"status":500,"error":"INTERNAL","message":"internal server error"}`, rec.Body.String())
}

func TestErrorHandler_HTTPError(t *testing.T) {
	c, rec := newContext()
	ErrorHandler(zap.NewNop())(echo.ErrMethodNotAllowed, c)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error":"METHOD_NOT_ALLOWED"`)
}

func TestValidator(t *testing.T) {
	v := NewValidator()

	err := v.Validate(&registerReq{Email: "nope", Password: "12345678"})
	require.Error(t, err)
	assert.Equal(t, "email must be a valid email", err.Error())

	err = v.Validate(&registerReq{Email: "a@b.co", Password: "short"})
	require.Error(t, err)
	assert.Equal(t, "password must be at least 8", err.Error())

	err = v.Validate(&crearEventoReq{Nombre: "x", Fecha: time.Now().Add(-time.Minute)})
	require.Error(t, err)
	assert.Equal(t, "fecha must be in the future", err.Error())

	capacidad := -1
	err = v.Validate(&crearEventoReq{Nombre: "x", Fecha: time.Now().Add(time.Hour), CapacidadMaxima: &capacidad})
	require.Error(t, err)
	assert.Equal(t, "capacidadMaxima must be at least 0", err.Error())

	assert.NoError(t, v.Validate(&crearReservaReq{EventoID: 1}))
	assert.Error(t, v.Validate(&crearReservaReq{}))
}
