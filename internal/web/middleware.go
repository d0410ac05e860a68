package web

import (
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"discord-party-bot/internal/apperrors"
	"discord-party-bot/internal/model"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

const roleKey = "role"

// RequestID assigns every request an id, reusing the caller's when present.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Writer.Header().Set(RequestIDHeader, id)
		c.Next()
	}
}

// Logger writes one access log line per request.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		status := c.Writer.Status()
		evt := log.Info()
		switch {
		case status >= 500:
			evt = log.Error()
		case status >= 400:
			evt = log.Warn()
		}

		evt = evt.
			Str("request_id", c.GetString("request_id")).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("query", query).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("ip", c.ClientIP())
		if id, ok := currentIdentity(c); ok {
			evt = evt.Str("user_id", id.UserID)
		}
		evt.Msg("HTTP request")
	}
}

// CORS allows the configured origins. An empty list allows any origin
// without credentials.
func CORS(origins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		h := c.Writer.Header()
		switch {
		case len(origins) == 0:
			h.Set("Access-Control-Allow-Origin", "*")
		case origin != "" && slices.Contains(origins, origin):
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Add("Vary", "Origin")
		}
		h.Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		h.Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// Recovery turns a panic into a 500 response.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().
					Interface("panic", r).
					Str("request_id", c.GetString("request_id")).
					Str("path", c.Request.URL.Path).
					Str("method", c.Request.Method).
					Msg("Panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, errorBody(msgInternal))
			}
		}()
		c.Next()
	}
}

// loadSession attaches the identity of a valid session token, if any.
func (s *Server) loadSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := sessionToken(c); token != "" {
			id, err := s.tokens.ParseToken(token)
			if err == nil {
				c.Set(identityKey, id)
			} else {
				log.Debug().Err(err).Str("ip", c.ClientIP()).Msg("Session token rejected")
			}
		}
		c.Next()
	}
}

// requireAuth rejects requests without a session with 401.
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := currentIdentity(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody(msgLoginRequired))
			return
		}
		c.Next()
	}
}

// requireRole rejects users whose role is below required.
func (s *Server) requireRole(required model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := currentIdentity(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody(msgLoginRequired))
			return
		}
		role, err := s.guard.Require(c.Request.Context(), id.UserID, required)
		if err != nil {
			handleServiceError(c, err)
			c.Abort()
			return
		}
		c.Set(roleKey, role)
		c.Next()
	}
}

// checkPagePermission guards a page by its configured minimum role.
// Visitors without a session are checked as guests and asked to log in
// when that is not enough.
func (s *Server) checkPagePermission(path string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := currentIdentity(c)
		if !ok {
			allowed, err := s.guard.GuestCanAccessPage(c.Request.Context(), path)
			if err != nil {
				handleServiceError(c, err)
				c.Abort()
				return
			}
			if !allowed {
				c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody(msgLoginRequired))
				return
			}
			c.Next()
			return
		}
		allowed, err := s.guard.CanAccessPage(c.Request.Context(), id.UserID, path)
		if err != nil {
			handleServiceError(c, err)
			c.Abort()
			return
		}
		if !allowed {
			log.Warn().Str("user_id", id.UserID).Str("page", path).Msg("Page access denied")
			handleServiceError(c, apperrors.ErrForbiddenPage)
			c.Abort()
			return
		}
		c.Next()
	}
}
