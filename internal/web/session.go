package web

import (
	"encoding/gob"
	"encoding/hex"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/securecookie"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/bigredeye/notmanyjudges/api"
	lf "github.com/bigredeye/notmanyjudges/internal/logfield"
	"github.com/bigredeye/notmanyjudges/internal/models"
)

const (
	sessionKeyJudge      = "judge"
	sessionKeyAdmin      = "admin"
	sessionKeyOAuthState = "oauth_state"

	contextKeyJudge = "judge_session"
	contextKeyAdmin = "admin_session"

	tokenHeader = "Token"
)

// JudgeSession identifies the jury panel a browser acts for.
type JudgeSession struct {
	EventID  uint
	Panel    models.PanelSlot
	JuryName string
}

type AdminSession struct {
	Login string
}

func init() {
	gob.Register(JudgeSession{})
	gob.Register(AdminSession{})
}

func decodeKey(name, value string, log *zap.Logger) ([]byte, error) {
	if value == "" {
		log.Warn("Cookie key is not configured, generating a random one; sessions will not survive restarts", zap.String("key", name))
		return securecookie.GenerateRandomKey(32), nil
	}
	key, err := hex.DecodeString(value)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to decode hex %s", name)
	}
	return key, nil
}

func setupAuth(s *Server, r *gin.Engine) error {
	authKey, err := decodeKey("authenticationKey", s.config.Server.Cookies.AuthenticationKey, s.logger)
	if err != nil {
		return err
	}
	encryptKey, err := decodeKey("encryptionKey", s.config.Server.Cookies.EncryptionKey, s.logger)
	if err != nil {
		return err
	}
	store := cookie.NewStore(authKey, encryptKey)
	store.Options(sessions.Options{
		Path:     "/",
		Secure:   !s.config.Server.Cookies.Insecure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions("session", store))
	r.Use(s.loadSessions)
	return nil
}

// loadSessions copies typed sessions from the cookie into the gin context.
func (s *Server) loadSessions(c *gin.Context) {
	session := sessions.Default(c)
	if v, ok := session.Get(sessionKeyJudge).(JudgeSession); ok && v.Panel.Valid() {
		c.Set(contextKeyJudge, v)
	}
	if v, ok := session.Get(sessionKeyAdmin).(AdminSession); ok && v.Login != "" {
		c.Set(contextKeyAdmin, v)
	}
	c.Next()
}

func judgeFrom(c *gin.Context) (JudgeSession, bool) {
	v, ok := c.Get(contextKeyJudge)
	if !ok {
		return JudgeSession{}, false
	}
	return v.(JudgeSession), true
}

func adminFrom(c *gin.Context) (AdminSession, bool) {
	v, ok := c.Get(contextKeyAdmin)
	if !ok {
		return AdminSession{}, false
	}
	return v.(AdminSession), true
}

func (s *Server) requireJudge(c *gin.Context) {
	if _, ok := judgeFrom(c); !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, &api.Status{Error: "jury login required"})
		return
	}
	c.Next()
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}

// requireAdmin accepts an organizer session or an automation token.
func (s *Server) requireAdmin(c *gin.Context) {
	if token := c.GetHeader(tokenHeader); token != "" {
		if contains(s.config.Admin.Tokens, token) {
			c.Set(contextKeyAdmin, AdminSession{Login: "token"})
			c.Next()
			return
		}
		s.logger.Warn("Unknown token", lf.Token(token))
		c.AbortWithStatusJSON(http.StatusUnauthorized, &api.Status{Error: "Invalid or expired token"})
		return
	}

	admin, ok := adminFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, &api.Status{Error: "admin login required"})
		return
	}
	if !contains(s.config.Admin.Logins, admin.Login) {
		s.logger.Warn("Rejected non-admin login", lf.AdminLogin(admin.Login))
		c.AbortWithStatusJSON(http.StatusForbidden, &api.Status{Error: "not an organizer"})
		return
	}
	c.Next()
}

func (s *Server) saveSession(session sessions.Session) {
	if err := session.Save(); err != nil {
		s.logger.Error("Failed to save session", zap.Error(err))
	}
}
