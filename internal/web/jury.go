package web

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/bigredeye/notmanyjudges/api"
	lf "github.com/bigredeye/notmanyjudges/internal/logfield"
	"github.com/bigredeye/notmanyjudges/internal/store"
)

type juryService struct {
	*Server
}

func setupJuryService(server *Server, r *gin.Engine) {
	s := juryService{server}

	r.POST("/api/jury/login", s.login)
	r.POST("/api/jury/logout", s.logout)
	r.GET("/api/jury/me", server.requireJudge, s.me)

	r.GET("/api/events/:event/teams", s.teams)
	r.GET("/api/events/:event/criteria", s.criteria)
}

func (s juryService) login(c *gin.Context) {
	req := api.JuryLoginRequest{}
	if err := c.ShouldBind(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	jury, err := s.Repository.FindJuryByAccessCode(c.Request.Context(), strings.TrimSpace(req.AccessCode))
	if store.IsNotFound(err) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, &api.Status{Error: "unknown access code"})
		return
	} else if err != nil {
		s.fail(c, err)
		return
	}

	judge := JudgeSession{EventID: jury.EventID, Panel: jury.Panel, JuryName: jury.Name}
	session := sessions.Default(c)
	session.Set(sessionKeyJudge, judge)
	s.saveSession(session)

	s.logger.Info("Jury logged in", lf.EventID(jury.EventID), lf.Panel(int(jury.Panel)), lf.JuryID(jury.ID))
	c.JSON(http.StatusOK, &api.JuryLoginResponse{
		Status:  api.Status{Ok: true},
		Session: judgeView(judge),
	})
}

func judgeView(judge JudgeSession) *api.JurySession {
	return &api.JurySession{EventID: judge.EventID, Panel: judge.Panel, JuryName: judge.JuryName}
}

func (s juryService) logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Delete(sessionKeyJudge)
	s.saveSession(session)
	c.JSON(http.StatusOK, &api.Status{Ok: true})
}

func (s juryService) me(c *gin.Context) {
	judge, _ := judgeFrom(c)
	c.JSON(http.StatusOK, &api.JuryLoginResponse{
		Status:  api.Status{Ok: true},
		Session: judgeView(judge),
	})
}

func (s juryService) teams(c *gin.Context) {
	eventID, ok := s.idParam(c, "event")
	if !ok {
		return
	}
	if _, err := s.Repository.FindEvent(c.Request.Context(), eventID); err != nil {
		s.fail(c, err)
		return
	}
	teams, err := s.Repository.ListTeams(c.Request.Context(), eventID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, &api.TeamsResponse{Status: api.Status{Ok: true}, Teams: teams})
}

func (s juryService) criteria(c *gin.Context) {
	eventID, ok := s.idParam(c, "event")
	if !ok {
		return
	}
	if _, err := s.Repository.FindEvent(c.Request.Context(), eventID); err != nil {
		s.fail(c, err)
		return
	}

	list := s.Repository.ListCriteria
	if active := c.Query("active"); active == "1" || active == "true" {
		list = s.Repository.ListActiveCriteria
	}
	criteria, err := list(c.Request.Context(), eventID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, &api.CriteriaResponse{Status: api.Status{Ok: true}, Criteria: criteria})
}
