package web

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"discord-party-bot/internal/apperrors"
	"discord-party-bot/internal/model"
	"discord-party-bot/internal/service"
)

type setRoleRequest struct {
	UserID string `json:"userId" validate:"required,snowflake"`
	Role   string `json:"role" validate:"required,role"`
}

type setPageRequest struct {
	Path string `json:"path" validate:"required,startswith=/,max=128"`
	Role string `json:"role" validate:"required,role"`
}

type recordMatchRequest struct {
	PartyID string `json:"partyId" validate:"omitempty,numeric"`
	Won     bool   `json:"won"`
	Kills   int    `json:"kills" validate:"gte=0"`
}

// backuper is implemented by store backends that can snapshot their records.
type backuper interface {
	Backup(ctx context.Context) (string, error)
}

var errBackupUnsupported = &apperrors.Error{Kind: apperrors.ErrValidation, Msg: "백업은 파일 저장소에서만 지원됩니다."}

// PermissionOverview lists page permissions, users with roles and role counts.
func (s *Server) PermissionOverview(c *gin.Context) {
	ctx := c.Request.Context()

	pages, err := s.roles.PagePermissions(ctx)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	users, err := s.roles.ListUsers(ctx)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	stats, err := s.roles.Stats(ctx)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	ok(c, gin.H{
		"pagePermissions": pages,
		"users":           users,
		"stats":           stats,
		"roles":           model.Roles(),
	})
}

// SetUserRole assigns a role to another user.
func (s *Server) SetUserRole(c *gin.Context) {
	var req setRoleRequest
	if !bindJSON(c, &req) {
		return
	}

	id, _ := currentIdentity(c)
	if req.UserID == id.UserID {
		handleServiceError(c, apperrors.ErrSelfRoleChange)
		return
	}

	if err := s.roles.SetRole(c.Request.Context(), req.UserID, model.Role(req.Role)); err != nil {
		handleServiceError(c, err)
		return
	}
	log.Info().Str("admin", id.Username).Str("user_id", req.UserID).Str("role", req.Role).Msg("User role changed")
	ok(c, nil)
}

// SetPagePermission sets the minimum role of a page.
func (s *Server) SetPagePermission(c *gin.Context) {
	var req setPageRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := s.roles.SetPagePermission(c.Request.Context(), req.Path, model.Role(req.Role)); err != nil {
		handleServiceError(c, err)
		return
	}
	id, _ := currentIdentity(c)
	log.Info().Str("admin", id.Username).Str("page", req.Path).Str("role", req.Role).Msg("Page permission changed")
	ok(c, nil)
}

// RecordMatch adds a match result to a user's statistics.
func (s *Server) RecordMatch(c *gin.Context) {
	var req recordMatchRequest
	if !bindJSON(c, &req) {
		return
	}

	stats, err := s.stats.RecordMatch(c.Request.Context(), c.Param("userId"), service.MatchInput{
		PartyID: req.PartyID,
		Won:     req.Won,
		Kills:   req.Kills,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}
	ok(c, gin.H{"stats": stats})
}

// Backup snapshots the record store. Only the file backend supports it.
func (s *Server) Backup(c *gin.Context) {
	b, supported := s.store.Backend().(backuper)
	if !supported {
		handleServiceError(c, errBackupUnsupported)
		return
	}

	dir, err := b.Backup(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}
	ok(c, gin.H{"dir": dir})
}
