package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/geocoder89/notehub/internal/http/middlewares"
	"github.com/geocoder89/notehub/internal/observability"
	"github.com/gin-gonic/gin"
)

// storeContext bounds a repository call. Request values (trace, request id)
// survive, client cancellation does not.
func storeContext(ctx *gin.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx.Request.Context()), d)
}

type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
	Details   any    `json:"details,omitempty"`
}

// requestIDFrom prefers the id RequestID stored on the request context.
func requestIDFrom(ctx *gin.Context) string {
	if id, ok := observability.RequestIDFromContext(ctx.Request.Context()); ok {
		return id
	}
	if id := ctx.GetString(middlewares.CtxRequestID); id != "" {
		return id
	}
	return ctx.GetHeader("X-Request-Id")
}

func RespondError(ctx *gin.Context, status int, code, message string, details any) {
	ctx.JSON(status, gin.H{
		"error": APIError{
			Code:      code,
			Message:   message,
			RequestID: requestIDFrom(ctx),
			Details:   details,
		},
	})
}

func RespondBadRequest(ctx *gin.Context, message string, details any) {
	RespondError(ctx, http.StatusBadRequest, "invalid_request", message, details)
}

func RespondNotFound(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusNotFound, "not_found", message, nil)
}

func RespondInternal(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusInternalServerError, "internal_error", message, nil)
}

func RespondUnAuthorized(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusUnauthorized, code, message, nil)
}

// RespondFieldErrors reports validation failures found after binding, such as
// unique constraint violations, in the same shape BindJSON uses.
func RespondFieldErrors(ctx *gin.Context, fields ...FieldError) {
	RespondBadRequest(ctx, "Invalid request body", gin.H{"fields": fields})
}
