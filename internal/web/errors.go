package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bigredeye/notmanyjudges/api"
	"github.com/bigredeye/notmanyjudges/internal/feedback"
	"github.com/bigredeye/notmanyjudges/internal/scoring"
	"github.com/bigredeye/notmanyjudges/internal/store"
)

func statusOf(err error) int {
	switch {
	case errors.Is(err, scoring.ErrAlreadyScored), errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict
	case scoring.IsValidationError(err), errors.Is(err, scoring.ErrInvalidSlot), errors.Is(err, feedback.ErrEmptyRubric):
		return http.StatusBadRequest
	case errors.Is(err, scoring.ErrTeamNotFound), store.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, scoring.ErrNothingToConsolidate):
		return http.StatusConflict
	case errors.Is(err, scoring.ErrFeedbackDisabled), errors.Is(err, feedback.ErrDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as a JSON status envelope with the matching HTTP code.
func (s *Server) fail(c *gin.Context, err error) {
	code := statusOf(err)
	if code >= http.StatusInternalServerError {
		s.logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
	} else {
		s.logger.Info("Request rejected", zap.String("path", c.FullPath()), zap.Int("code", code), zap.Error(err))
	}
	c.AbortWithStatusJSON(code, &api.Status{Error: err.Error()})
}

func (s *Server) badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, &api.Status{Error: err.Error()})
}

func (s *Server) idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, &api.Status{Error: "invalid " + name + " id"})
		return 0, false
	}
	return uint(id), true
}

var errInvalidPanel = scoring.ErrInvalidSlot
