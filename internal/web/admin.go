package web

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bigredeye/notmanyjudges/api"
	"github.com/bigredeye/notmanyjudges/internal/feedback"
	"github.com/bigredeye/notmanyjudges/internal/live"
	lf "github.com/bigredeye/notmanyjudges/internal/logfield"
	"github.com/bigredeye/notmanyjudges/internal/models"
	"github.com/bigredeye/notmanyjudges/internal/rubric"
	"github.com/bigredeye/notmanyjudges/pkg/slug"
)

const maxRubricBody = 1 << 20

type adminService struct {
	*Server
}

func setupAdminService(server *Server, r *gin.Engine) {
	s := adminService{server}

	g := r.Group("/api/admin", server.requireAdmin)
	g.GET("/events", s.listEvents)
	g.POST("/events", s.createEvent)
	g.DELETE("/events/:event", s.deleteEvent)
	g.POST("/events/:event/teams", s.createTeam)
	g.DELETE("/teams/:team", s.deleteTeam)
	g.POST("/events/:event/criteria", s.createCriterion)
	g.POST("/criteria/:criterion/active", s.setCriterionActive)
	g.POST("/events/:event/criteria/import", s.importCriteria)
	g.POST("/events/:event/criteria/parse", s.parseCriteria)
	g.GET("/events/:event/juries", s.listJuries)
	g.POST("/events/:event/juries", s.createJury)
	g.POST("/teams/:team/consolidate", s.consolidate)
	g.POST("/teams/:team/recompute", s.recompute)
}

func (s adminService) listEvents(c *gin.Context) {
	events, err := s.Repository.ListEvents(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, &api.EventsResponse{Status: api.Status{Ok: true}, Events: events})
}

func (s adminService) createEvent(c *gin.Context) {
	req := api.CreateEventRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	ctx := c.Request.Context()

	event := &models.Event{Name: strings.TrimSpace(req.Name), Description: req.Description}
	if err := s.Repository.CreateEvent(ctx, event); err != nil {
		s.fail(c, err)
		return
	}
	s.logger.Info("Created event", lf.EventID(event.ID), zap.String("name", event.Name))

	resp := &api.EventResponse{Status: api.Status{Ok: true}, Event: event}
	if s.Rubrics != nil && !req.SkipDefaultRubric {
		if defaults := s.Rubrics.Current(); defaults != nil {
			criteria, err := s.createCriteria(c, event.ID, defaults)
			if err != nil {
				s.fail(c, err)
				return
			}
			resp.Criteria = criteria
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (s adminService) deleteEvent(c *gin.Context) {
	eventID, ok := s.idParam(c, "event")
	if !ok {
		return
	}
	if err := s.Repository.DeleteEvent(c.Request.Context(), eventID); err != nil {
		s.fail(c, err)
		return
	}
	s.Aggregator.InvalidateCriteria(eventID)
	s.Board.Invalidate(eventID)
	s.logger.Info("Deleted event", lf.EventID(eventID))
	c.JSON(http.StatusOK, &api.Status{Ok: true})
}

func (s adminService) createTeam(c *gin.Context) {
	eventID, ok := s.idParam(c, "event")
	if !ok {
		return
	}
	req := api.CreateTeamRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	name := strings.TrimSpace(req.Name)
	team := &models.Team{
		EventID:     eventID,
		Name:        name,
		ProjectName: strings.TrimSpace(req.ProjectName),
		Slug:        slug.Make(name),
	}
	if err := s.Repository.CreateTeam(c.Request.Context(), team); err != nil {
		s.fail(c, err)
		return
	}
	s.Board.Invalidate(eventID)
	s.logger.Info("Created team", lf.EventID(eventID), lf.TeamID(team.ID), lf.TeamName(team.Name))
	c.JSON(http.StatusOK, &api.TeamResponse{Status: api.Status{Ok: true}, Team: team})
}

func (s adminService) deleteTeam(c *gin.Context) {
	teamID, ok := s.idParam(c, "team")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	team, err := s.Repository.FindTeam(ctx, teamID)
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := s.Repository.DeleteTeam(ctx, teamID); err != nil {
		s.fail(c, err)
		return
	}
	s.Hub.Publish(live.Event{Kind: live.KindTeamDeleted, EventID: team.EventID, TeamID: teamID})
	s.logger.Info("Deleted team", lf.TeamID(teamID), lf.TeamName(team.Name))
	c.JSON(http.StatusOK, &api.Status{Ok: true})
}

func (s adminService) createCriterion(c *gin.Context) {
	eventID, ok := s.idParam(c, "event")
	if !ok {
		return
	}
	req := api.CreateCriterionRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	draft := &rubric.Rubric{Criteria: []rubric.Criterion{{
		Name:        req.Name,
		Description: req.Description,
		MaxScore:    req.MaxScore,
		Active:      req.Active,
	}}}
	if err := draft.Validate(); err != nil {
		s.badRequest(c, err)
		return
	}

	criteria, err := s.createCriteria(c, eventID, draft)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, &api.CriterionResponse{Status: api.Status{Ok: true}, Criterion: &criteria[0]})
}

func (s adminService) createCriteria(c *gin.Context, eventID uint, r *rubric.Rubric) ([]models.Criterion, error) {
	defer s.Aggregator.InvalidateCriteria(eventID)

	criteria := r.Models(eventID)
	for i := range criteria {
		if err := s.Repository.CreateCriterion(c.Request.Context(), &criteria[i]); err != nil {
			return nil, err
		}
		s.logger.Info("Created criterion", lf.EventID(eventID), lf.Criterion(criteria[i].Name))
	}
	return criteria, nil
}

func (s adminService) setCriterionActive(c *gin.Context) {
	criterionID, ok := s.idParam(c, "criterion")
	if !ok {
		return
	}
	req := api.SetActiveRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	ctx := c.Request.Context()

	criterion, err := s.Repository.FindCriterion(ctx, criterionID)
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := s.Repository.SetCriterionActive(ctx, criterionID, req.Active); err != nil {
		s.fail(c, err)
		return
	}
	s.Aggregator.InvalidateCriteria(criterion.EventID)
	criterion.Active = req.Active
	c.JSON(http.StatusOK, &api.CriterionResponse{Status: api.Status{Ok: true}, Criterion: criterion})
}

func (s adminService) importCriteria(c *gin.Context) {
	eventID, ok := s.idParam(c, "event")
	if !ok {
		return
	}
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxRubricBody))
	if err != nil {
		s.badRequest(c, err)
		return
	}
	r, err := rubric.Parse(body)
	if err != nil {
		s.badRequest(c, err)
		return
	}
	if _, err := s.Repository.FindEvent(c.Request.Context(), eventID); err != nil {
		s.fail(c, err)
		return
	}

	criteria, err := s.createCriteria(c, eventID, r)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, &api.CriteriaResponse{Status: api.Status{Ok: true}, Criteria: criteria})
}

func (s adminService) parseCriteria(c *gin.Context) {
	if _, ok := s.idParam(c, "event"); !ok {
		return
	}
	if s.Feedback == nil {
		s.fail(c, feedback.ErrDisabled)
		return
	}
	req := api.ParseCriteriaRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	drafts, err := s.Feedback.ParseCriteria(c.Request.Context(), req.Text)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, &api.ParseCriteriaResponse{Status: api.Status{Ok: true}, Drafts: drafts})
}

func (s adminService) listJuries(c *gin.Context) {
	eventID, ok := s.idParam(c, "event")
	if !ok {
		return
	}
	juries, err := s.Repository.ListJuries(c.Request.Context(), eventID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, &api.JuriesResponse{Status: api.Status{Ok: true}, Juries: juries})
}

func (s adminService) createJury(c *gin.Context) {
	eventID, ok := s.idParam(c, "event")
	if !ok {
		return
	}
	req := api.CreateJuryRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	if !req.Panel.Valid() {
		s.badRequest(c, errInvalidPanel)
		return
	}

	jury := &models.Jury{
		EventID:    eventID,
		Panel:      req.Panel,
		Name:       strings.TrimSpace(req.Name),
		AccessCode: uuid.New().String(),
	}
	if err := s.Repository.CreateJury(c.Request.Context(), jury); err != nil {
		s.fail(c, err)
		return
	}
	s.logger.Info("Created jury", lf.EventID(eventID), lf.JuryID(jury.ID), lf.Panel(int(jury.Panel)))
	c.JSON(http.StatusOK, &api.JuryResponse{Status: api.Status{Ok: true}, Jury: jury})
}

func (s adminService) consolidate(c *gin.Context) {
	teamID, ok := s.idParam(c, "team")
	if !ok {
		return
	}
	agg, err := s.Aggregator.ConsolidateFeedback(c.Request.Context(), teamID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, &api.TeamScoresResponse{Status: api.Status{Ok: true}, Scores: agg})
}

func (s adminService) recompute(c *gin.Context) {
	teamID, ok := s.idParam(c, "team")
	if !ok {
		return
	}
	agg, err := s.Aggregator.RecomputeAndPublish(c.Request.Context(), teamID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, &api.TeamScoresResponse{Status: api.Status{Ok: true}, Scores: agg})
}
