package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/event-reservation/internal/config"
	"github.com/iliyamo/event-reservation/internal/handler"
	"github.com/iliyamo/event-reservation/internal/model"
	"github.com/iliyamo/event-reservation/internal/repository"
	"github.com/iliyamo/event-reservation/internal/service"
	"github.com/iliyamo/event-reservation/internal/utils"
)

const secret = "test-secret"

const (
	admin      = uint64(1)
	cliente    = uint64(10)
	otroClient = uint64(11)
	productor  = uint64(20)
	otroProd   = uint64(21)
)

type api struct {
	t *testing.T
	e *echo.Echo
}

func newAPI(t *testing.T) *api {
	t.Helper()
	mem := repository.NewMemoryRepository()
	auth := repository.NewMemoryAuthRepository()
	svc := service.NewReservaService(mem, nil, zap.NewNop(), nil)
	cfg := config.Config{JWTSecret: secret, AccessTTLMin: 5, RefreshTTLDays: 1, BcryptCost: bcrypt.MinCost}

	e := New(Deps{
		JWTSecret:    secret,
		Auth:         handler.NewAuthHandler(cfg, auth, auth, zap.NewNop()),
		Eventos:      handler.NewEventoHandler(mem, svc, zap.NewNop()),
		Reservas:     handler.NewReservaHandler(svc, zap.NewNop()),
		Estadisticas: handler.NewEstadisticasHandler(svc, zap.NewNop()),
		Checks:       map[string]handler.Check{},
		Log:          zap.NewNop(),
	})
	return &api{t: t, e: e}
}

// as returns an access token for the given identity.
func (a *api) as(id uint64, rol model.Rol) string {
	tok, err := utils.NewAccessToken(secret, id, rol, 5)
	require.NoError(a.t, err)
	return tok.Token
}

func (a *api) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	body := decode[map[string]any](t, rec)
	assert.EqualValues(t, rec.Code, body["status"])
	code, _ := body["error"].(string)
	return code
}

func (a *api) crearEvento(capacidad int) model.Evento {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/v1/eventos", map[string]any{
		"nombre":          "Concierto",
		"ubicacion":       "Teatro",
		"fecha":           time.Now().Add(72 * time.Hour).UTC().Format(time.RFC3339),
		"capacidadMaxima": capacidad,
		"precioEntrada":   "10.50",
	}, a.as(productor, model.RolProductor))
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[model.Evento](a.t, rec)
}

func path(format string, id uint64) string {
	return format + strconv.FormatUint(id, 10)
}

func TestAuthFlow(t *testing.T) {
	a := newAPI(t)

	rec := a.do(http.MethodPost, "/v1/auth/register", map[string]any{
		"email": "Ana@Example.com", "password": "supersecret", "nombre": "Ana",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	reg := decode[map[string]map[string]any](t, rec)
	assert.Equal(t, "ana@example.com", reg["user"]["email"])
	assert.Equal(t, "CLIENTE", reg["user"]["rol"])

	rec = a.do(http.MethodPost, "/v1/auth/register", map[string]any{"email": "ana@example.com", "password": "supersecret"}, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "EMAIL_EXISTS", errorCode(t, rec))

	rec = a.do(http.MethodPost, "/v1/auth/register", map[string]any{"email": "x@example.com", "password": "supersecret", "rol": "ADMINISTRADOR"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(t, rec))

	rec = a.do(http.MethodPost, "/v1/auth/login", map[string]any{"email": "ana@example.com", "password": "wrong-password"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", errorCode(t, rec))

	rec = a.do(http.MethodPost, "/v1/auth/login", map[string]any{"email": "ana@example.com", "password": "supersecret"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	login := decode[map[string]map[string]any](t, rec)
	access := login["access"]["token"].(string)
	refresh := login["refresh"]["token"].(string)

	rec = a.do(http.MethodGet, "/v1/me", nil, access)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Ana", decode[map[string]any](t, rec)["nombre"])

	rec = a.do(http.MethodPost, "/v1/auth/refresh", map[string]any{"refresh_token": refresh}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	rotated := decode[map[string]map[string]any](t, rec)["refresh"]["token"].(string)
	assert.NotEqual(t, refresh, rotated)

	// the old refresh token was revoked by the rotation
	rec = a.do(http.MethodPost, "/v1/auth/refresh", map[string]any{"refresh_token": refresh}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_REFRESH", errorCode(t, rec))

	rec = a.do(http.MethodPost, "/v1/auth/logout", map[string]any{"refresh_token": rotated}, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = a.do(http.MethodPost, "/v1/auth/refresh-access", map[string]any{"refresh_token": rotated}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestReservaLifecycleOverHTTP(t *testing.T) {
	a := newAPI(t)
	ev := a.crearEvento(3)
	c1 := a.as(cliente, model.RolCliente)
	c2 := a.as(otroClient, model.RolCliente)

	rec := a.do(http.MethodPost, "/v1/reservas", map[string]any{"eventoId": ev.ID, "cantidad": 2}, c1)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	r := decode[model.Reserva](t, rec)
	assert.Equal(t, cliente, r.UsuarioID)
	assert.Equal(t, model.EstadoReservada, r.Estado)
	assert.Equal(t, "21.00", r.PrecioTotal.StringFixed(2))

	rec = a.do(http.MethodGet, path("/v1/eventos/", ev.ID)+"/cupos", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	d := decode[model.Disponibilidad](t, rec)
	require.NotNil(t, d.CuposDisponibles)
	assert.Equal(t, 1, *d.CuposDisponibles)
	assert.Equal(t, 2, d.CantidadReservasActivas)

	rec = a.do(http.MethodPost, "/v1/reservas", map[string]any{"eventoId": ev.ID, "cantidad": 2}, c2)
	assert.Equal(t, http.StatusConflict, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "INSUFFICIENT_CAPACITY", body["error"])
	assert.EqualValues(t, 2, body["requested"])
	assert.EqualValues(t, 1, body["available"])

	rec = a.do(http.MethodPost, "/v1/reservas", map[string]any{"eventoId": ev.ID, "cantidad": 1}, c1)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "DUPLICATE_ACTIVE_RESERVATION", errorCode(t, rec))

	rec = a.do(http.MethodPost, "/v1/reservas", map[string]any{"eventoId": ev.ID}, c2)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_QUANTITY", errorCode(t, rec))

	rec = a.do(http.MethodPost, "/v1/reservas", map[string]any{"eventoId": 999, "cantidad": 1}, c2)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "EVENT_NOT_FOUND", errorCode(t, rec))

	// a cliente cannot book for someone else
	rec = a.do(http.MethodPost, "/v1/reservas", map[string]any{"eventoId": ev.ID, "cantidad": 1, "usuarioId": cliente}, c2)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	reservaPath := path("/v1/reservas/", r.ID)

	rec = a.do(http.MethodPatch, reservaPath, map[string]any{"cantidad": 3}, c1)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "31.50", decode[model.Reserva](t, rec).PrecioTotal.StringFixed(2))

	rec = a.do(http.MethodPatch, reservaPath, map[string]any{"cantidad": 0}, c1)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_QUANTITY", errorCode(t, rec))

	rec = a.do(http.MethodGet, reservaPath, nil, c2)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = a.do(http.MethodGet, reservaPath, nil, a.as(productor, model.RolProductor))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(http.MethodPost, reservaPath+"/cancelar", nil, c2)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", errorCode(t, rec))

	rec = a.do(http.MethodPost, reservaPath+"/cancelar", nil, c1)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.EstadoCancelada, decode[model.Reserva](t, rec).Estado)

	rec = a.do(http.MethodPost, reservaPath+"/cancelar", nil, c1)
	assert.Equal(t, http.StatusConflict, rec.Code)
	body = decode[map[string]any](t, rec)
	assert.Equal(t, "INVALID_STATE_TRANSITION", body["error"])
	assert.Equal(t, "CANCELADA", body["estado"])

	rec = a.do(http.MethodPost, reservaPath+"/reactivar", nil, c1)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(http.MethodPost, reservaPath+"/reactivar", nil, a.as(admin, model.RolAdministrador))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, model.EstadoReservada, decode[model.Reserva](t, rec).Estado)

	rec = a.do(http.MethodGet, "/v1/mis-reservas", nil, c1)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[map[string][]model.Reserva](t, rec)["items"], 1)

	rec = a.do(http.MethodDelete, reservaPath, nil, a.as(admin, model.RolAdministrador))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = a.do(http.MethodGet, reservaPath, nil, c1)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "RESERVATION_NOT_FOUND", errorCode(t, rec))
}

func TestEventosOverHTTP(t *testing.T) {
	a := newAPI(t)

	rec := a.do(http.MethodPost, "/v1/eventos", map[string]any{"nombre": "x", "fecha": time.Now().Add(time.Hour)}, a.as(cliente, model.RolCliente))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(http.MethodPost, "/v1/eventos", map[string]any{"nombre": "x", "fecha": time.Now().Add(-time.Hour)}, a.as(productor, model.RolProductor))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(t, rec))

	rec = a.do(http.MethodPost, "/v1/eventos", map[string]any{"nombre": "x", "fecha": time.Now().Add(time.Hour), "precioEntrada": "-1"}, a.as(productor, model.RolProductor))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "NEGATIVE_PRICE", errorCode(t, rec))

	ev := a.crearEvento(5)
	assert.Equal(t, productor, ev.ProductorID)

	rec = a.do(http.MethodGet, "/v1/eventos", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[struct {
		Items []model.Evento `json:"items"`
	}](t, rec)
	require.Len(t, page.Items, 1)
	assert.Equal(t, ev.ID, page.Items[0].ID)

	rec = a.do(http.MethodGet, path("/v1/eventos/", ev.ID), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	detalle := decode[map[string]any](t, rec)
	disp := detalle["disponibilidad"].(map[string]any)
	assert.EqualValues(t, 5, disp["cuposDisponibles"])
	assert.Equal(t, true, disp["disponible"])

	rec = a.do(http.MethodGet, path("/v1/eventos/", ev.ID)+"/reservas", nil, a.as(cliente, model.RolCliente))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = a.do(http.MethodGet, path("/v1/eventos/", ev.ID)+"/reservas", nil, a.as(otroProd, model.RolProductor))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(http.MethodDelete, path("/v1/eventos/", ev.ID), nil, a.as(otroProd, model.RolProductor))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = a.do(http.MethodDelete, path("/v1/eventos/", ev.ID), nil, a.as(productor, model.RolProductor))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = a.do(http.MethodGet, path("/v1/eventos/", ev.ID), nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "EVENT_NOT_FOUND", errorCode(t, rec))

	rec = a.do(http.MethodPost, "/v1/reservas", map[string]any{"eventoId": ev.ID, "cantidad": 1}, a.as(cliente, model.RolCliente))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "EVENT_INACTIVE", errorCode(t, rec))
}

func TestEstadisticasOverHTTP(t *testing.T) {
	a := newAPI(t)
	ev := a.crearEvento(10)
	for _, u := range []uint64{cliente, otroClient} {
		rec := a.do(http.MethodPost, "/v1/reservas", map[string]any{"eventoId": ev.ID, "cantidad": 2}, a.as(u, model.RolCliente))
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := a.do(http.MethodGet, "/v1/estadisticas", nil, a.as(cliente, model.RolCliente))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[model.Estadisticas](t, rec).Total)

	rec = a.do(http.MethodGet, "/v1/estadisticas?usuarioId=11", nil, a.as(cliente, model.RolCliente))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(http.MethodGet, path("/v1/estadisticas?eventoId=", ev.ID), nil, a.as(productor, model.RolProductor))
	require.Equal(t, http.StatusOK, rec.Code)
	st := decode[model.Estadisticas](t, rec)
	assert.Equal(t, 2, st.Total)
	assert.Equal(t, 4, st.EntradasReservadas)
	assert.Equal(t, "42.00", st.SumaPrecioTotal.StringFixed(2))
}

func TestProbesAndUnknownRoutes(t *testing.T) {
	a := newAPI(t)

	rec := a.do(http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = a.do(http.MethodGet, "/readyz", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(http.MethodGet, "/v1/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", errorCode(t, rec))

	rec = a.do(http.MethodPost, "/v1/reservas", map[string]any{"eventoId": 1, "cantidad": 1}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}
