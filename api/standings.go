package api

import "github.com/bigredeye/notmanyjudges/internal/leaderboard"

type StandingsResponse struct {
	Status

	Standings *leaderboard.Standings `json:"Standings,omitempty"`
}
