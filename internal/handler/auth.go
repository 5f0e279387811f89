package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/event-reservation/internal/config"
	"github.com/iliyamo/event-reservation/internal/middleware"
	"github.com/iliyamo/event-reservation/internal/model"
	"github.com/iliyamo/event-reservation/internal/repository"
	"github.com/iliyamo/event-reservation/internal/utils"
)

const authTimeout = 5 * time.Second

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  repository.UsuarioStore
	Tokens repository.TokenStore
	Log    *zap.Logger
}

func NewAuthHandler(cfg config.Config, u repository.UsuarioStore, t repository.TokenStore, log *zap.Logger) *AuthHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t, Log: log}
}

// ----- DTOs -----

// registerReq only lets callers pick CLIENTE or PRODUCTOR; administradores
// are provisioned out of band.
type registerReq struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Nombre   string `json:"nombre" validate:"max=120"`
	Rol      string `json:"rol" validate:"omitempty,oneof=CLIENTE PRODUCTOR"`
}

type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type userPart struct {
	ID     uint64    `json:"id"`
	Email  string    `json:"email"`
	Nombre string    `json:"nombre"`
	Rol    model.Rol `json:"rol"`
}

type authResp struct {
	User    userPart  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

func toUserPart(u *model.Usuario) userPart {
	return userPart{ID: u.ID, Email: u.Email, Nombre: u.Nombre, Rol: u.Rol}
}

// Register creates the usuario and returns a token pair right away.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bind(c, &req); err != nil {
		return validationFailed(c, err)
	}

	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return fail(c, http.StatusBadRequest, codeValidationFailed, err.Error())
	}
	now := time.Now().UTC()
	u := &model.Usuario{
		Email:        req.Email,
		PasswordHash: hash,
		Nombre:       strings.TrimSpace(req.Nombre),
		Rol:          model.ParseRol(req.Rol),
		Auditoria:    model.NuevaAuditoria(now),
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), authTimeout)
	defer cancel()

	if err := h.Users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return fail(c, http.StatusConflict, codeEmailExists, "email already exists")
		}
		return respondError(c, h.Log, "create usuario", err)
	}

	resp, err := h.issuePair(ctx, u)
	if err != nil {
		return respondError(c, h.Log, "issue tokens", err)
	}
	return c.JSON(http.StatusCreated, resp)
}

// Login verifies credentials and returns a new pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return validationFailed(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), authTimeout)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrUsuarioNotFound) {
		return fail(c, http.StatusUnauthorized, codeInvalidCredentials, "invalid credentials")
	}
	if err != nil {
		return respondError(c, h.Log, "load usuario", err)
	}
	if !u.Activo || !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return fail(c, http.StatusUnauthorized, codeInvalidCredentials, "invalid credentials")
	}

	resp, err := h.issuePair(ctx, u)
	if err != nil {
		return respondError(c, h.Log, "issue tokens", err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Refresh validates the refresh token, revokes it and issues a new pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := bind(c, &req); err != nil {
		return validationFailed(c, err)
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := context.WithTimeout(c.Request().Context(), authTimeout)
	defer cancel()

	u, err := h.refreshOwner(ctx, hash)
	if err != nil {
		return h.refreshFailed(c, err)
	}
	if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
		return respondError(c, h.Log, "revoke refresh", err)
	}

	resp, err := h.issuePair(ctx, u)
	if err != nil {
		return respondError(c, h.Log, "issue tokens", err)
	}
	return c.JSON(http.StatusOK, resp)
}

// RefreshAccess returns a new access token without rotating the refresh
// token.
func (h *AuthHandler) RefreshAccess(c echo.Context) error {
	var req refreshReq
	if err := bind(c, &req); err != nil {
		return validationFailed(c, err)
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := context.WithTimeout(c.Request().Context(), authTimeout)
	defer cancel()

	u, err := h.refreshOwner(ctx, hash)
	if err != nil {
		return h.refreshFailed(c, err)
	}
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Rol, h.Cfg.AccessTTLMin)
	if err != nil {
		return respondError(c, h.Log, "issue access", err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"access": tokenPart{Token: access.Token, Expires: access.Exp},
	})
}

// Logout revokes the refresh token in the body.  Without one, a valid
// bearer token revokes every session of its usuario.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)
	raw := strings.TrimSpace(req.RefreshToken)

	ctx, cancel := context.WithTimeout(c.Request().Context(), authTimeout)
	defer cancel()

	if raw != "" {
		hash := utils.HashRefreshRaw(raw)
		if _, err := h.Tokens.ValidateRefresh(ctx, hash); err != nil {
			return h.refreshFailed(c, err)
		}
		if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
			return respondError(c, h.Log, "revoke refresh", err)
		}
		return c.NoContent(http.StatusNoContent)
	}

	bearer := c.Request().Header.Get(echo.HeaderAuthorization)
	if !strings.HasPrefix(bearer, "Bearer ") {
		return fail(c, http.StatusBadRequest, codeValidationFailed, "provide Authorization header or refresh_token")
	}
	claims, err := utils.ParseAccessToken(h.Cfg.JWTSecret, strings.TrimPrefix(bearer, "Bearer "))
	if err != nil {
		return fail(c, http.StatusUnauthorized, codeUnauthorized, "invalid token")
	}
	actor, err := claims.Actor()
	if err != nil {
		return fail(c, http.StatusUnauthorized, codeUnauthorized, "invalid token")
	}
	if err := h.Tokens.RevokeAllForUser(ctx, actor.UsuarioID); err != nil {
		return respondError(c, h.Log, "revoke all refresh", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the authenticated usuario.
func (h *AuthHandler) Me(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, codeUnauthorized, "authentication required")
	}
	u, err := h.Users.GetByID(c.Request().Context(), actor.UsuarioID)
	if errors.Is(err, repository.ErrUsuarioNotFound) {
		return fail(c, http.StatusUnauthorized, codeUnauthorized, "usuario no longer exists")
	}
	if err != nil {
		return respondError(c, h.Log, "load usuario", err)
	}
	return c.JSON(http.StatusOK, toUserPart(u))
}

func (h *AuthHandler) issuePair(ctx context.Context, u *model.Usuario) (authResp, error) {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Rol, h.Cfg.AccessTTLMin)
	if err != nil {
		return authResp{}, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return authResp{}, err
	}
	if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return authResp{}, err
	}
	return authResp{
		User:    toUserPart(u),
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw back to client
	}, nil
}

// refreshOwner resolves a refresh token hash to its active usuario.
func (h *AuthHandler) refreshOwner(ctx context.Context, hash string) (*model.Usuario, error) {
	id, err := h.Tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		return nil, err
	}
	u, err := h.Users.GetByID(ctx, id)
	if errors.Is(err, repository.ErrUsuarioNotFound) || (err == nil && !u.Activo) {
		return nil, repository.ErrTokenInvalid
	}
	return u, err
}

func (h *AuthHandler) refreshFailed(c echo.Context, err error) error {
	if errors.Is(err, repository.ErrTokenInvalid) {
		return fail(c, http.StatusUnauthorized, codeInvalidRefresh, "invalid refresh token")
	}
	return respondError(c, h.Log, "validate refresh", err)
}
