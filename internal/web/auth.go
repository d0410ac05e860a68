package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"discord-party-bot/internal/config"
	"discord-party-bot/internal/model"
)

const (
	discordAPIBase = "https://discord.com/api"

	stateCookie    = "oauth_state"
	returnToCookie = "oauth_return_to"
	loginCookieTTL = 10 * time.Minute
)

// discordUser is the subset of GET /users/@me the dashboard uses.
type discordUser struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name"`
	Avatar     string `json:"avatar"`
}

func (u discordUser) displayName() string {
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

func (u discordUser) avatarURL() string {
	if u.Avatar == "" {
		return ""
	}
	return fmt.Sprintf("https://cdn.discordapp.com/avatars/%s/%s.png", u.ID, u.Avatar)
}

func newOAuthConfig(cfg config.OAuthConfig) *oauth2.Config {
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{"identify"}
	}
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.CallbackURL,
		Scopes:       scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   "https://discord.com/oauth2/authorize",
			TokenURL:  discordAPIBase + "/oauth2/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// safeReturnTo accepts only local absolute paths.
func safeReturnTo(path string) string {
	if !strings.HasPrefix(path, "/") || strings.HasPrefix(path, "//") || strings.Contains(path, `\`) {
		return ""
	}
	return path
}

func (s *Server) setLoginCookie(c *gin.Context, name, value string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(loginCookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// Login redirects to the Discord consent screen.
func (s *Server) Login(c *gin.Context) {
	state := uuid.NewString()
	s.setLoginCookie(c, stateCookie, state)
	if returnTo := safeReturnTo(c.Query("returnTo")); returnTo != "" {
		s.setLoginCookie(c, returnToCookie, returnTo)
	}

	log.Info().Str("ip", c.ClientIP()).Msg("Discord OAuth2 login started")
	c.Redirect(http.StatusFound, s.oauth.AuthCodeURL(state))
}

// Callback completes the OAuth2 flow, records the user and opens a session.
func (s *Server) Callback(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		log.Error().Msg("OAuth2 callback without code")
		c.Redirect(http.StatusFound, "/?error=no_code")
		return
	}

	state, err := c.Cookie(stateCookie)
	s.clearCookie(c, stateCookie)
	if err != nil || state == "" || state != c.Query("state") {
		log.Warn().Str("ip", c.ClientIP()).Msg("OAuth2 state mismatch")
		c.Redirect(http.StatusFound, "/?error=auth_failed")
		return
	}

	ctx := c.Request.Context()
	user, err := s.fetchDiscordUser(ctx, code)
	if err != nil {
		log.Error().Err(err).Msg("OAuth2 authentication failed")
		c.Redirect(http.StatusFound, "/?error=auth_failed")
		return
	}

	id := Identity{UserID: user.ID, Username: user.displayName(), Avatar: user.avatarURL()}
	if err := s.stats.TouchIdentity(ctx, id.UserID, id.Username, id.Avatar); err != nil {
		log.Error().Err(err).Str("user_id", id.UserID).Msg("Failed to save user identity")
	}
	if err := s.roles.EnsureKnown(ctx, id.UserID); err != nil {
		log.Error().Err(err).Str("user_id", id.UserID).Msg("Failed to record user role")
	}

	token, err := s.tokens.GenerateToken(id)
	if err != nil {
		handleServiceError(c, fmt.Errorf("failed to sign session: %w", err))
		return
	}
	s.setSessionCookie(c, token)

	log.Info().Str("user_id", id.UserID).Str("username", id.Username).Msg("Web login")

	if returnTo, err := c.Cookie(returnToCookie); err == nil && safeReturnTo(returnTo) != "" {
		s.clearCookie(c, returnToCookie)
		c.Redirect(http.StatusFound, returnTo)
		return
	}
	c.Redirect(http.StatusFound, s.landingPage(ctx, id.UserID))
}

// landingPage picks the post-login page by role.
func (s *Server) landingPage(ctx context.Context, userID string) string {
	role, err := s.roles.RoleOf(ctx, userID)
	if err != nil {
		return "/"
	}
	switch role {
	case model.RoleAdmin:
		return "/dashboard"
	case model.RoleMember:
		return "/party"
	}
	return "/"
}

func (s *Server) fetchDiscordUser(ctx context.Context, code string) (discordUser, error) {
	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return discordUser{}, fmt.Errorf("failed to exchange code: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.discordAPI+"/users/@me", nil)
	if err != nil {
		return discordUser{}, fmt.Errorf("failed to build user request: %w", err)
	}
	resp, err := s.oauth.Client(ctx, token).Do(req)
	if err != nil {
		return discordUser{}, fmt.Errorf("failed to fetch user: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return discordUser{}, fmt.Errorf("failed to fetch user: status %d", resp.StatusCode)
	}

	var user discordUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return discordUser{}, fmt.Errorf("failed to decode user: %w", err)
	}
	if user.ID == "" {
		return discordUser{}, fmt.Errorf("failed to fetch user: empty id")
	}
	return user, nil
}

// Logout drops the session.
func (s *Server) Logout(c *gin.Context) {
	username := "Unknown"
	if id, ok := currentIdentity(c); ok {
		username = id.Username
	}
	s.clearCookie(c, SessionCookie)
	log.Info().Str("username", username).Msg("Web logout")
	c.Redirect(http.StatusFound, "/")
}
