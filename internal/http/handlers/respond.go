package handlers

import (
	"net/http"

	"github.com/saarfitness/gymhub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

func requestIDFrom(ctx *gin.Context) string {
	v, ok := ctx.Get(middlewares.CtxRequestID)

	if ok {
		s, ok := v.(string)
		if ok && s != "" {
			return s
		}
	}

	// fallback header
	return ctx.GetHeader("X-Request-Id")
}

// Every error body is {ok:false, error, code, requestId, details?}; success
// bodies are {ok:true, ...}. Status codes follow the taxonomy: 401
// unauthenticated, 403 forbidden, 404 not found, 400 validation, 409
// conflict, 500 internal.
func RespondError(ctx *gin.Context, status int, code, message string, details interface{}) {
	body := gin.H{
		"ok":        false,
		"error":     message,
		"code":      code,
		"requestId": requestIDFrom(ctx),
	}

	if details != nil {
		body["details"] = details
	}

	ctx.JSON(status, body)
}

func RespondBadRequest(ctx *gin.Context, message string, details interface{}) {
	RespondError(ctx, http.StatusBadRequest, "invalid_request", message, details)
}

func RespondUnAuthorized(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusUnauthorized, code, message, nil)
}

func RespondForbidden(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusForbidden, "forbidden", message, nil)
}

func RespondNotFound(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusNotFound, "not_found", message, nil)
}

func RespondInternal(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusInternalServerError, "internal_error", message, nil)
}

func RespondConflict(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusConflict, code, message, nil)
}

// RespondGuard writes a guard denial without interpreting it.
func RespondGuard(ctx *gin.Context, status int, message string) {
	code := "forbidden"

	if status == http.StatusUnauthorized {
		code = "unauthorized"
	}

	RespondError(ctx, status, code, message, nil)
}
