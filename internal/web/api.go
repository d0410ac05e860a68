package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"discord-party-bot/internal/apperrors"
	"discord-party-bot/internal/model"
)

// Index describes the dashboard to anonymous and logged-in visitors.
func (s *Server) Index(c *gin.Context) {
	body := gin.H{
		"name":          s.cfg.Bot.Name,
		"authenticated": false,
		"role":          model.RoleGuest,
	}

	if id, ok := currentIdentity(c); ok {
		role, err := s.roles.RoleOf(c.Request.Context(), id.UserID)
		if err != nil {
			handleServiceError(c, err)
			return
		}
		body["authenticated"] = true
		body["user"] = id
		body["role"] = role
	}

	if parties, err := s.parties.ListActive(c.Request.Context()); err == nil {
		body["activeParties"] = len(parties)
	}
	c.JSON(http.StatusOK, body)
}

// Page returns the context a dashboard page renders with.
func (s *Server) Page(path string) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := s.pageContext(c, path)
		if err != nil {
			handleServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, body)
	}
}

// PartyPage returns the context of the page a party announcement links to.
func (s *Server) PartyPage(c *gin.Context) {
	body, err := s.pageContext(c, "/party/"+c.Param("partyId"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	view, err := s.parties.Get(c.Request.Context(), c.Param("partyId"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	body["party"] = view
	c.JSON(http.StatusOK, body)
}

// pageContext describes the viewer of a page. Visitors without a session are guests.
func (s *Server) pageContext(c *gin.Context, path string) (gin.H, error) {
	role := model.RoleGuest
	var user *Identity
	if id, ok := currentIdentity(c); ok {
		var err error
		if role, err = s.roles.RoleOf(c.Request.Context(), id.UserID); err != nil {
			return nil, err
		}
		user = &id
	}
	return gin.H{
		"page":     path,
		"user":     user,
		"role":     role,
		"isAdmin":  role == model.RoleAdmin,
		"isMember": role.Rank() >= model.RoleMember.Rank(),
	}, nil
}

// Health reports liveness and whether the record store is reachable.
func (s *Server) Health(c *gin.Context) {
	status, code := "ok", http.StatusOK
	if err := s.store.Ping(c.Request.Context()); err != nil {
		log.Error().Err(err).Msg("Health check failed")
		status, code = "degraded", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Me returns the caller's identity, role and statistics.
func (s *Server) Me(c *gin.Context) {
	ctx := c.Request.Context()
	id, _ := currentIdentity(c)

	role, err := s.roles.RoleOf(ctx, id.UserID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	stats, err := s.stats.GetStats(ctx, id.UserID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	ok(c, gin.H{"user": id, "role": role, "stats": stats})
}

// UserStats returns the statistics of a user. Users may read only their own
// unless they are admins.
func (s *Server) UserStats(c *gin.Context) {
	ctx := c.Request.Context()
	id, _ := currentIdentity(c)
	target := c.Param("userId")

	if target != id.UserID {
		if _, err := s.guard.Require(ctx, id.UserID, model.RoleAdmin); err != nil {
			handleServiceError(c, err)
			return
		}
	}

	stats, err := s.stats.GetStats(ctx, target)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	ok(c, gin.H{"userId": target, "stats": stats})
}

// Ranking returns the points leaderboard. ?limit defaults to 10, at most 100.
func (s *Server) Ranking(c *gin.Context) {
	limit := 10
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			handleServiceError(c, apperrors.ErrInvalidRequest)
			return
		}
		limit = n
	}

	ranked, err := s.stats.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	ok(c, gin.H{"ranking": ranked})
}

// StoreStats reports record store and role statistics.
func (s *Server) StoreStats(c *gin.Context) {
	ctx := c.Request.Context()

	data, err := s.store.Stats(ctx)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	roles, err := s.roles.Stats(ctx)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	ok(c, gin.H{
		"data":   data,
		"roles":  roles,
		"uptime": time.Since(s.startedAt).Round(time.Second).Seconds(),
	})
}
