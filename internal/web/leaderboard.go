package web

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bigredeye/notmanyjudges/api"
	"github.com/bigredeye/notmanyjudges/internal/live"
	lf "github.com/bigredeye/notmanyjudges/internal/logfield"
)

type leaderboardService struct {
	*Server
}

func setupLeaderboardService(server *Server, r *gin.Engine) {
	s := leaderboardService{server}

	r.GET("/api/events/:event/leaderboard", s.standings)
	r.GET("/api/events/:event/leaderboard/stream", s.stream)

	r.GET(server.config.Endpoints.Home, s.renderEvents)
	r.GET("/events/:event", s.renderStandings)
}

func (s leaderboardService) standings(c *gin.Context) {
	eventID, ok := s.idParam(c, "event")
	if !ok {
		return
	}
	standings, err := s.Board.Standings(c.Request.Context(), eventID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, &api.StandingsResponse{Status: api.Status{Ok: true}, Standings: standings})
}

// stream pushes the standings as server-sent events: once on connect and
// again after every change in the event.
func (s leaderboardService) stream(c *gin.Context) {
	eventID, ok := s.idParam(c, "event")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	standings, err := s.Board.Standings(ctx, eventID)
	if err != nil {
		s.fail(c, err)
		return
	}

	changed := make(chan struct{}, 1)
	unsubscribe := s.Hub.Subscribe(live.ForEvent(eventID), func(e live.Event) {
		// Invalidate here as well so the rebuild below never races the
		// board's own subscription.
		s.Board.Invalidate(e.EventID)
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	s.logger.Debug("Leaderboard stream opened", lf.EventID(eventID), lf.Subscribers(s.Hub.Subscribers()))
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("standings", standings)
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case <-changed:
			standings, err := s.Board.Standings(ctx, eventID)
			if err != nil {
				s.logger.Warn("Failed to rebuild standings for stream", lf.EventID(eventID), zap.Error(err))
				c.SSEvent("error", err.Error())
				return false
			}
			c.SSEvent("standings", standings)
			return true
		}
	})
}

func (s leaderboardService) renderEvents(c *gin.Context) {
	events, err := s.Repository.ListEvents(c.Request.Context())
	if err != nil {
		s.logger.Error("Failed to list events", zap.Error(err))
		c.String(http.StatusInternalServerError, "Failed to list events")
		return
	}
	_, isAdmin := adminFrom(c)
	c.HTML(http.StatusOK, "events.tmpl", gin.H{
		"Events":  events,
		"IsAdmin": isAdmin,
		"Config":  s.config,
	})
}

func (s leaderboardService) renderStandings(c *gin.Context) {
	eventID, ok := s.idParam(c, "event")
	if !ok {
		return
	}
	standings, err := s.Board.Standings(c.Request.Context(), eventID)
	if err != nil {
		code := statusOf(err)
		c.String(code, http.StatusText(code))
		return
	}
	c.HTML(http.StatusOK, "leaderboard.tmpl", gin.H{
		"Standings": standings,
	})
}
