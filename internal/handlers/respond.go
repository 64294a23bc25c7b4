package handlers

import (
	"errors"
	"net/http"

	"github.com/chamsedd0/neighbor/internal/gateway"
	"github.com/chamsedd0/neighbor/internal/middleware"
	"github.com/chamsedd0/neighbor/internal/stores"
	apperrors "github.com/chamsedd0/neighbor/pkg/errors"
	"github.com/gin-gonic/gin"
)

// respond writes body plus any toasts the request's stores raised.
func respond(c *gin.Context, status int, body gin.H) {
	if toasts := middleware.GetToasts(c); len(toasts) > 0 {
		body["toasts"] = toasts
	}
	c.JSON(status, body)
}

// fail attaches err for ErrorHandlerMiddleware to render.
func fail(c *gin.Context, err error) {
	_ = c.Error(storeError(err))
	c.Abort()
}

// storeError maps store and gateway failures to HTTP errors. Messages of
// known failures are user-facing already.
func storeError(err error) *apperrors.AppError {
	if appErr, ok := apperrors.As(err); ok {
		return appErr
	}
	code := http.StatusInternalServerError
	switch {
	case stores.IsPrecondition(err), errors.Is(err, stores.ErrInvalidCredentials):
		code = http.StatusUnauthorized
	case errors.Is(err, stores.ErrNotOwner):
		code = http.StatusForbidden
	case errors.Is(err, gateway.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, stores.ErrEmailInUse),
		errors.Is(err, stores.ErrInvalidTransition),
		errors.Is(err, stores.ErrTooManyConflicts),
		errors.Is(err, gateway.ErrConflict):
		code = http.StatusConflict
	case errors.Is(err, stores.ErrInvalidRole),
		errors.Is(err, stores.ErrInvalidStatus),
		errors.Is(err, stores.ErrInvalidDates),
		errors.Is(err, stores.ErrInvalidConversation),
		errors.Is(err, gateway.ErrInvalidQuery):
		code = http.StatusBadRequest
	default:
		return apperrors.Wrap(code, "Internal server error", err)
	}
	return apperrors.Wrap(code, err.Error(), err)
}

func badRequest(c *gin.Context, msg string) {
	fail(c, apperrors.BadRequest(msg))
}

func session(c *gin.Context) *stores.Session {
	return middleware.GetSession(c)
}

// list keeps empty results rendering as [] rather than null.
func list[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
