package web

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"discord-party-bot/internal/apperrors"
)

const (
	msgLoginRequired = "로그인이 필요합니다."
	msgUnavailable   = "저장소에 일시적으로 접근할 수 없습니다. 잠시 후 다시 시도해주세요."
	msgInternal      = "서버 오류가 발생했습니다."
)

func errorBody(msg string) gin.H {
	return gin.H{"success": false, "error": msg}
}

// handleServiceError maps an error kind to its HTTP status and writes the
// error body.
func handleServiceError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	msg := msgInternal

	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperrors.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, apperrors.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, apperrors.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, apperrors.ErrUnavailable):
		status = http.StatusServiceUnavailable
		msg = msgUnavailable
	}

	if status < http.StatusInternalServerError {
		msg = err.Error()
		log.Debug().Err(err).Str("path", c.Request.URL.Path).Int("status", status).Msg("Request rejected")
	} else {
		log.Error().Err(err).
			Str("request_id", c.GetString("request_id")).
			Str("path", c.Request.URL.Path).
			Msg("Request failed")
	}

	c.JSON(status, errorBody(msg))
}
