// Package web provides the dashboard HTTP server built on gin.
package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"discord-party-bot/internal/config"
	"discord-party-bot/internal/model"
	"discord-party-bot/internal/service"
	"discord-party-bot/internal/store"
)

// Dependencies holds everything the server needs.
type Dependencies struct {
	Config  *config.Config
	Store   *store.Store
	Parties *service.PartyService
	Stats   *service.StatsService
	Roles   *service.RoleService
	Guard   *service.AccessGuard
}

// Server is the dashboard HTTP server.
type Server struct {
	cfg     *config.Config
	store   *store.Store
	parties *service.PartyService
	stats   *service.StatsService
	roles   *service.RoleService
	guard   *service.AccessGuard

	tokens        *TokenManager
	oauth         *oauth2.Config
	discordAPI    string
	secureCookies bool
	startedAt     time.Time

	engine *gin.Engine
	http   *http.Server
}

// NewServer creates a Server and registers its routes.
func NewServer(deps Dependencies) *Server {
	cfg := deps.Config
	s := &Server{
		cfg:           cfg,
		store:         deps.Store,
		parties:       deps.Parties,
		stats:         deps.Stats,
		roles:         deps.Roles,
		guard:         deps.Guard,
		tokens:        NewTokenManager(cfg.Web.SessionSecret, cfg.Web.SessionTTL),
		oauth:         newOAuthConfig(cfg.OAuth),
		discordAPI:    discordAPIBase,
		secureCookies: strings.HasPrefix(cfg.Web.URL, "https://"),
		startedAt:     time.Now(),
	}

	s.engine = gin.New()
	s.engine.Use(RequestID(), Logger(), Recovery(), Metrics(), CORS(cfg.Web.CORSOrigins), s.loadSession())
	s.registerRoutes()

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Web.Port),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) registerRoutes() {
	r := s.engine

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/auth/discord", s.Login)
	r.GET("/auth/discord/callback", s.Callback)
	r.GET("/logout", s.Logout)

	r.GET("/", s.Index)
	for _, page := range []string{"/dashboard", "/servers", "/party", "/party/create", "/admin/permissions", "/admin/party", "/logs", "/settings"} {
		r.GET(page, s.checkPagePermission(page), s.Page(page))
	}
	r.GET("/party/:partyId", s.checkPagePermission("/party"), s.PartyPage)

	party := r.Group("/party/api")
	party.Use(s.requireAuth(), s.requireRole(model.RoleMember))
	{
		party.GET("/list", s.ListParties)
		party.GET("/config", s.PartyConfig)
		party.POST("/create", s.CreateParty)
		party.POST("/join/:partyId", s.JoinParty)
		party.POST("/move/:partyId", s.MoveParty)
		party.POST("/leave/:partyId", s.LeaveParty)
		party.POST("/cancel/:partyId", s.CancelParty)
		party.GET("/:partyId", s.GetParty)
	}

	api := r.Group("/api")
	api.GET("/health", s.Health)

	authed := api.Group("")
	authed.Use(s.requireAuth())
	{
		authed.GET("/me", s.Me)
		authed.GET("/users/:userId/stats", s.UserStats)
		authed.GET("/stats", s.StoreStats)
		authed.GET("/ranking", s.Ranking)
	}

	admin := api.Group("/admin")
	admin.Use(s.requireAuth(), s.requireRole(model.RoleAdmin))
	{
		admin.GET("/permissions", s.PermissionOverview)
		admin.POST("/permissions/user", s.SetUserRole)
		admin.POST("/permissions/page", s.SetPagePermission)
		admin.POST("/users/:userId/matches", s.RecordMatch)
		admin.POST("/backup", s.Backup)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, errorBody("페이지를 찾을 수 없습니다."))
	})
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves HTTP until Shutdown is called.
func (s *Server) Start() error {
	log.Info().Str("addr", s.http.Addr).Str("url", s.cfg.Web.URL).Msg("Web server starting")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve http: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown web server: %w", err)
	}
	log.Info().Msg("Web server stopped")
	return nil
}
