package api

import (
	"github.com/bigredeye/notmanyjudges/internal/models"
	"github.com/bigredeye/notmanyjudges/internal/scoring"
)

type SubmitScoreRequest = scoring.Submission

type SubmitScoreResponse struct {
	Status

	// Partial is set when the panel score is stored but the team average
	// could not be updated.
	Partial bool `json:"partial,omitempty"`
	// FeedbackError explains why requested feedback is missing.
	FeedbackError string `json:"feedback_error,omitempty"`
	// Problems lists validation failures.
	Problems []string `json:"problems,omitempty"`

	Scores *models.TeamScores `json:"scores,omitempty"`
}

type TeamScoresResponse struct {
	Status

	Scores *models.TeamScores `json:"scores,omitempty"`
}

type FeedbackRequest struct {
	Scores  map[string]int `json:"scores" binding:"required"`
	Remarks string         `json:"remarks"`
}

type FeedbackResponse struct {
	Status

	Feedback string `json:"feedback,omitempty"`
}
