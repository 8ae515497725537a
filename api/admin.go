package api

import (
	"github.com/bigredeye/notmanyjudges/internal/models"
	"github.com/bigredeye/notmanyjudges/internal/rubric"
)

type CreateEventRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	// SkipDefaultRubric leaves the new event without criteria.
	SkipDefaultRubric bool `json:"skip_default_rubric"`
}

type EventResponse struct {
	Status

	Event    *models.Event      `json:"event,omitempty"`
	Criteria []models.Criterion `json:"criteria,omitempty"`
}

type EventsResponse struct {
	Status

	Events []models.Event `json:"events,omitempty"`
}

type CreateTeamRequest struct {
	Name        string `json:"name" binding:"required"`
	ProjectName string `json:"project_name"`
}

type TeamResponse struct {
	Status

	Team *models.Team `json:"team,omitempty"`
}

type CreateCriterionRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	MaxScore    int    `json:"max_score"`
	Active      *bool  `json:"active"`
}

type CriterionResponse struct {
	Status

	Criterion *models.Criterion `json:"criterion,omitempty"`
}

type SetActiveRequest struct {
	Active bool `json:"active"`
}

type ParseCriteriaRequest struct {
	Text string `json:"text" binding:"required"`
}

type ParseCriteriaResponse struct {
	Status

	Drafts []rubric.Criterion `json:"drafts,omitempty"`
}

type CreateJuryRequest struct {
	Name  string           `json:"name" binding:"required"`
	Panel models.PanelSlot `json:"panel" binding:"required"`
}

type JuryResponse struct {
	Status

	Jury *models.Jury `json:"jury,omitempty"`
}

type JuriesResponse struct {
	Status

	Juries []models.Jury `json:"juries,omitempty"`
}
