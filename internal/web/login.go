package web

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	lf "github.com/bigredeye/notmanyjudges/internal/logfield"
)

type loginService struct {
	*Server
}

func setupLoginService(server *Server, r *gin.Engine) {
	s := loginService{server}

	r.GET(server.config.Endpoints.Login, s.login)
	r.GET(server.config.Endpoints.OauthCallback, s.oauth)
	r.GET(server.config.Endpoints.Logout, s.logout)
}

func (s loginService) login(c *gin.Context) {
	session := sessions.Default(c)

	oauthState := uuid.New().String()
	session.Set(sessionKeyOAuthState, oauthState)
	s.saveSession(session)

	s.logger.Info("Login", zap.String("oauth_state", oauthState))
	c.Redirect(http.StatusTemporaryRedirect, s.auth.LoginURL(oauthState))
}

func (s loginService) oauth(c *gin.Context) {
	oauthState := c.Query("state")
	session := sessions.Default(c)
	if v := session.Get(sessionKeyOAuthState); v == nil || v != oauthState {
		s.logger.Info("Mismatched oauth state", zap.String("query", oauthState))
		c.String(http.StatusBadRequest, "Login expired, try again")
		return
	}
	session.Delete(sessionKeyOAuthState)

	ctx, cancel := context.WithTimeout(c, time.Second*5)
	defer cancel()
	token, err := s.auth.Exchange(ctx, c.Query("code"))
	if err != nil {
		s.logger.Error("Failed to exchange tokens", zap.Error(err))
		c.String(http.StatusBadGateway, "Failed to log in with GitLab")
		return
	}

	user, err := s.auth.CurrentUser(ctx, token)
	if err != nil {
		s.logger.Error("Failed to get gitlab user", zap.Error(err))
		c.String(http.StatusBadGateway, "Failed to log in with GitLab")
		return
	}
	s.logger.Info("Fetched gitlab user", lf.AdminLogin(user.Login), zap.Int("id", user.ID))

	if !contains(s.config.Admin.Logins, user.Login) {
		s.saveSession(session)
		c.String(http.StatusForbidden, "%s is not an organizer", user.Login)
		return
	}

	session.Set(sessionKeyAdmin, AdminSession{Login: user.Login})
	s.saveSession(session)
	c.Redirect(http.StatusTemporaryRedirect, s.config.Endpoints.Home)
}

func (s loginService) logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Delete(sessionKeyAdmin)
	s.saveSession(session)

	c.Redirect(http.StatusTemporaryRedirect, s.config.Endpoints.Home)
}
