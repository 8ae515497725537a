package web

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bigredeye/notmanyjudges/api"
	"github.com/bigredeye/notmanyjudges/internal/feedback"
	lf "github.com/bigredeye/notmanyjudges/internal/logfield"
	"github.com/bigredeye/notmanyjudges/internal/models"
	"github.com/bigredeye/notmanyjudges/internal/scoring"
	"github.com/bigredeye/notmanyjudges/internal/store"
)

type scoresService struct {
	*Server
}

func setupScoresService(server *Server, r *gin.Engine) {
	s := scoresService{server}

	r.POST("/api/teams/:team/scores", server.requireJudge, s.submit)
	r.POST("/api/feedback", server.requireJudge, s.preview)
	r.GET("/api/teams/:team/scores", server.requireAdmin, s.scores)
}

func (s scoresService) submit(c *gin.Context) {
	judge, _ := judgeFrom(c)
	teamID, ok := s.idParam(c, "team")
	if !ok {
		return
	}

	req := api.SubmitScoreRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	team, err := s.Repository.FindTeam(c.Request.Context(), teamID)
	if err != nil {
		s.fail(c, err)
		return
	}
	if team.EventID != judge.EventID {
		c.AbortWithStatusJSON(http.StatusForbidden, &api.Status{Error: "team belongs to another event"})
		return
	}

	res, err := s.Aggregator.SubmitPanelScore(c.Request.Context(), teamID, judge.Panel, &req)
	if err != nil {
		resp := &api.SubmitScoreResponse{Status: api.Status{Error: err.Error()}}
		var verr *scoring.ValidationError
		switch {
		case errors.As(err, &verr):
			resp.Problems = verr.Problems
			c.AbortWithStatusJSON(http.StatusBadRequest, resp)
		case scoring.IsPartialFailure(err):
			resp.Partial = true
			c.AbortWithStatusJSON(http.StatusInternalServerError, resp)
		default:
			s.fail(c, err)
		}
		return
	}

	resp := &api.SubmitScoreResponse{
		Status: api.Status{Ok: true},
		Scores: res.Aggregate,
	}
	if res.FeedbackErr != nil {
		resp.FeedbackError = res.FeedbackErr.Error()
	}
	s.logger.Info("Accepted panel score", lf.TeamID(teamID), lf.Panel(int(judge.Panel)), zap.String("jury", judge.JuryName))
	c.JSON(http.StatusOK, resp)
}

func (s scoresService) preview(c *gin.Context) {
	if s.Feedback == nil {
		s.fail(c, feedback.ErrDisabled)
		return
	}

	req := api.FeedbackRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	text, err := s.Feedback.GenerateFeedback(c.Request.Context(), req.Scores, req.Remarks)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, &api.FeedbackResponse{Status: api.Status{Ok: true}, Feedback: text})
}

func (s scoresService) scores(c *gin.Context) {
	teamID, ok := s.idParam(c, "team")
	if !ok {
		return
	}
	if _, err := s.Repository.FindTeam(c.Request.Context(), teamID); err != nil {
		s.fail(c, err)
		return
	}

	agg, err := s.Repository.GetAggregate(c.Request.Context(), teamID)
	if store.IsNotFound(err) {
		agg = &models.TeamScores{TeamID: teamID}
	} else if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, &api.TeamScoresResponse{Status: api.Status{Ok: true}, Scores: agg})
}
