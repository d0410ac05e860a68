package web

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"discord-party-bot/internal/apperrors"
	"discord-party-bot/internal/model"
	"discord-party-bot/internal/service"
	"discord-party-bot/internal/validation"
)

type createPartyRequest struct {
	Type         string `json:"type" validate:"required"`
	Title        string `json:"title" validate:"required,max=100"`
	Description  string `json:"description" validate:"max=1000"`
	StartTime    string `json:"startTime" validate:"required"`
	Requirements string `json:"requirements" validate:"max=500"`
	MinScore     int    `json:"minScore" validate:"gte=0"`
}

type joinPartyRequest struct {
	SelectedClass  string `json:"selectedClass" validate:"max=64"`
	SelectedNation string `json:"selectedNation" validate:"max=64"`
}

type moveRequest struct {
	Team *int `json:"team" validate:"required"`
}

// bindJSON decodes and validates the request body into dst. An empty body
// leaves dst zero.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		log.Debug().Err(err).Str("path", c.Request.URL.Path).Msg("Malformed request body")
		handleServiceError(c, apperrors.ErrInvalidRequest)
		return false
	}
	if err := validation.ValidateStruct(dst); err != nil {
		handleServiceError(c, err)
		return false
	}
	return true
}

func ok(c *gin.Context, extra gin.H) {
	body := gin.H{"success": true}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

// ListParties returns the recruiting parties, newest first.
func (s *Server) ListParties(c *gin.Context) {
	parties, err := s.parties.ListActive(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}
	ok(c, gin.H{"parties": parties})
}

// GetParty returns one party split into teams.
func (s *Server) GetParty(c *gin.Context) {
	view, err := s.parties.Get(c.Request.Context(), c.Param("partyId"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	id, _ := currentIdentity(c)
	ok(c, gin.H{
		"party":       view.Party,
		"partyType":   view.Type,
		"teams":       view.Teams,
		"waitingRoom": view.WaitingRoom,
		"isCreator":   view.Party.CreatedBy == id.UserID,
		"isMember":    view.Party.IsMember(id.UserID),
	})
}

// PartyConfig returns the party types, classes and nations.
func (s *Server) PartyConfig(c *gin.Context) {
	ok(c, gin.H{
		"types":   model.PartyTypes(),
		"classes": model.Classes(),
		"nations": model.Nations(),
	})
}

// CreateParty creates a party owned by the caller.
func (s *Server) CreateParty(c *gin.Context) {
	var req createPartyRequest
	if !bindJSON(c, &req) {
		return
	}

	id, _ := currentIdentity(c)
	partyID, err := s.parties.Create(c.Request.Context(), service.CreatePartyInput{
		CreatorID:    id.UserID,
		CreatorName:  id.Username,
		Type:         req.Type,
		Title:        req.Title,
		Description:  req.Description,
		StartTime:    req.StartTime,
		Requirements: req.Requirements,
		MinScore:     req.MinScore,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}
	ok(c, gin.H{"partyId": partyID})
}

// JoinParty adds the caller to the waiting room.
func (s *Server) JoinParty(c *gin.Context) {
	var req joinPartyRequest
	if !bindJSON(c, &req) {
		return
	}

	id, _ := currentIdentity(c)
	err := s.parties.Join(c.Request.Context(), service.JoinPartyInput{
		PartyID:        c.Param("partyId"),
		UserID:         id.UserID,
		Username:       id.Username,
		SelectedClass:  req.SelectedClass,
		SelectedNation: req.SelectedNation,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}
	ok(c, nil)
}

// MoveParty moves the caller to another team.
func (s *Server) MoveParty(c *gin.Context) {
	var req moveRequest
	if !bindJSON(c, &req) {
		return
	}

	id, _ := currentIdentity(c)
	if err := s.parties.Move(c.Request.Context(), c.Param("partyId"), id.UserID, *req.Team); err != nil {
		handleServiceError(c, err)
		return
	}
	ok(c, nil)
}

// LeaveParty removes the caller from a party.
func (s *Server) LeaveParty(c *gin.Context) {
	id, _ := currentIdentity(c)
	if err := s.parties.Leave(c.Request.Context(), c.Param("partyId"), id.UserID); err != nil {
		handleServiceError(c, err)
		return
	}
	ok(c, nil)
}

// CancelParty cancels a party. Only its creator may do so.
func (s *Server) CancelParty(c *gin.Context) {
	id, _ := currentIdentity(c)
	if err := s.parties.Cancel(c.Request.Context(), c.Param("partyId"), id.UserID); err != nil {
		handleServiceError(c, err)
		return
	}
	ok(c, nil)
}
