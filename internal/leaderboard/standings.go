package leaderboard

import (
	"sort"
	"time"

	"github.com/bigredeye/notmanyjudges/internal/models"
)

type Entry struct {
	// Rank is 0 for teams no panel has scored yet.
	Rank int

	TeamID      uint
	TeamName    string
	ProjectName string
	Slug        string

	AvgScore *float64
	// Totals holds the panel totals in slot order, nil for empty slots.
	Totals [models.PanelCount]*int
	Scored int

	ConsolidatedFeedback *string
}

func (e *Entry) Ranked() bool {
	return e.Rank > 0
}

type Standings struct {
	Event   models.Event
	Entries []*Entry
	BuiltAt time.Time
}

// Rank orders the teams of an event by average, highest first. Teams without
// an average go last in name order and stay unranked. Equal averages share a
// rank and the next rank is skipped.
func Rank(event models.Event, teams []models.Team, aggregates []models.TeamScores) *Standings {
	byTeam := make(map[uint]*models.TeamScores, len(aggregates))
	for i := range aggregates {
		byTeam[aggregates[i].TeamID] = &aggregates[i]
	}

	entries := make([]*Entry, 0, len(teams))
	for _, team := range teams {
		entry := &Entry{
			TeamID:      team.ID,
			TeamName:    team.Name,
			ProjectName: team.ProjectName,
			Slug:        team.Slug,
		}
		if agg, found := byTeam[team.ID]; found {
			entry.ConsolidatedFeedback = agg.ConsolidatedFeedback
			for i, slot := range models.PanelSlots {
				if panel := agg.Slot(slot); panel != nil {
					total := panel.Total
					entry.Totals[i] = &total
					entry.Scored++
				}
			}
			if entry.Scored > 0 && agg.AvgScore != nil {
				avg := *agg.AvgScore
				entry.AvgScore = &avg
			}
		}
		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		left, right := entries[i], entries[j]
		if (left.AvgScore == nil) != (right.AvgScore == nil) {
			return left.AvgScore != nil
		}
		if left.AvgScore != nil && *left.AvgScore != *right.AvgScore {
			return *left.AvgScore > *right.AvgScore
		}
		return left.TeamName < right.TeamName
	})

	for i, entry := range entries {
		if entry.AvgScore == nil {
			break
		}
		if i > 0 && *entries[i-1].AvgScore == *entry.AvgScore {
			entry.Rank = entries[i-1].Rank
		} else {
			entry.Rank = i + 1
		}
	}

	return &Standings{Event: event, Entries: entries, BuiltAt: time.Now()}
}
