package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/event-reservation/internal/model"
)

// errorBody is the JSON shape of every non-2xx response.  Requested and
// Available are only set for capacity rejections, Estado for state
// transition rejections.
type errorBody struct {
	Status    int    `json:"status"`
	Error     string `json:"error"`
	Message   string `json:"message"`
	Requested *int   `json:"requested,omitempty"`
	Available *int   `json:"available,omitempty"`
	Estado    string `json:"estado,omitempty"`
}

// Codes for failures that are not engine rejections.
const (
	codeInvalidBody        = "INVALID_BODY"
	codeValidationFailed   = "VALIDATION_FAILED"
	codeUnauthorized       = "UNAUTHORIZED"
	codeInvalidCredentials = "INVALID_CREDENTIALS"
	codeInvalidRefresh     = "INVALID_REFRESH"
	codeEmailExists        = "EMAIL_EXISTS"
	codeInternal           = "INTERNAL"
)

// statusFor maps a rejection code to its HTTP status.
func statusFor(code model.Code) int {
	switch code {
	case model.CodeInvalidQuantity, model.CodeNegativePrice:
		return http.StatusBadRequest
	case model.CodeEventNotFound, model.CodeReservationNotFound:
		return http.StatusNotFound
	case model.CodeForbidden:
		return http.StatusForbidden
	}
	return http.StatusConflict
}

func fail(c echo.Context, status int, code, message string) error {
	return c.JSON(status, errorBody{Status: status, Error: code, Message: message})
}

// reject writes a rejection with its context fields.
func reject(c echo.Context, rej *model.Rejection) error {
	status := statusFor(rej.Code)
	body := errorBody{Status: status, Error: string(rej.Code), Message: rej.Error()}
	if rej.Code == model.CodeInsufficientCapacity {
		body.Requested = &rej.Requested
		body.Available = &rej.Available
	}
	if rej.Estado != "" {
		body.Estado = string(rej.Estado)
	}
	return c.JSON(status, body)
}

// respondError writes err as a rejection when it is one and as a generic
// 500 otherwise.  Internal details never reach the client.
func respondError(c echo.Context, log *zap.Logger, op string, err error) error {
	if rej, ok := model.AsRejection(err); ok {
		return reject(c, rej)
	}
	log.Error(op+" failed", zap.Error(err))
	return fail(c, http.StatusInternalServerError, codeInternal, "internal server error")
}

// validationFailed reports a bind or validation error as 400.
func validationFailed(c echo.Context, err error) error {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return fail(c, http.StatusBadRequest, codeInvalidBody, "invalid request body")
	}
	return fail(c, http.StatusBadRequest, codeValidationFailed, err.Error())
}

// paramID parses a positive numeric path parameter.
func paramID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

func invalidID(c echo.Context, what string) error {
	return fail(c, http.StatusBadRequest, codeValidationFailed, "invalid "+what+" id")
}

// ErrorHandler renders errors that escape handlers (unknown routes,
// wrong methods, bind failures) in the API's error shape.
func ErrorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		if rej, ok := model.AsRejection(err); ok {
			_ = reject(c, rej)
			return
		}
		var he *echo.HTTPError
		if errors.As(err, &he) {
			msg, _ := he.Message.(string)
			if msg == "" {
				msg = http.StatusText(he.Code)
			}
			_ = fail(c, he.Code, httpCode(he.Code), msg)
			return
		}
		log.Error("unhandled error", zap.Error(err))
		_ = fail(c, http.StatusInternalServerError, codeInternal, "internal server error")
	}
}

func httpCode(status int) string {
	switch status {
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case http.StatusUnauthorized:
		return codeUnauthorized
	case http.StatusForbidden:
		return string(model.CodeForbidden)
	case http.StatusBadRequest:
		return codeInvalidBody
	}
	if status >= 500 {
		return codeInternal
	}
	return "ERROR"
}
