package api

import "github.com/bigredeye/notmanyjudges/internal/models"

type JuryLoginRequest struct {
	AccessCode string `json:"access_code" form:"access_code" binding:"required"`
}

type JurySession struct {
	EventID  uint             `json:"event_id"`
	Panel    models.PanelSlot `json:"panel"`
	JuryName string           `json:"jury_name"`
}

type JuryLoginResponse struct {
	Status

	Session *JurySession `json:"session,omitempty"`
}

type TeamsResponse struct {
	Status

	Teams []models.Team `json:"teams,omitempty"`
}

type CriteriaResponse struct {
	Status

	Criteria []models.Criterion `json:"criteria,omitempty"`
}
