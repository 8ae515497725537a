// Package store defines the storage contract shared by the scoring core, the
// leaderboard and the web layer. Implementations live in internal/database
// (PostgreSQL) and internal/store/memory.
package store

import (
	"context"

	"github.com/bigredeye/notmanyjudges/internal/models"
)

// Patch is a partial update of a team aggregate. Nil fields are left intact.
type Patch struct {
	// Panel is written into its slot. Slots are create-only: if the slot is
	// already populated the whole patch is rejected with ErrSlotTaken.
	Panel *models.PanelScore

	AvgScore             *float64
	ConsolidatedFeedback *string

	// IfVersion makes the merge conditional on the aggregate version observed
	// by the caller. A missing aggregate has version 0.
	IfVersion *int64
}

func (p *Patch) Empty() bool {
	return p == nil || (p.Panel == nil && p.AvgScore == nil && p.ConsolidatedFeedback == nil)
}

type Aggregates interface {
	// GetAggregate returns ErrNotFound if nothing was ever merged for the team.
	GetAggregate(ctx context.Context, teamID uint) (*models.TeamScores, error)
	// MergeAggregate applies the patch atomically and bumps the version.
	MergeAggregate(ctx context.Context, teamID uint, patch *Patch) error
}

// Store is what the score aggregator needs.
type Store interface {
	Aggregates

	FindTeam(ctx context.Context, teamID uint) (*models.Team, error)
	ListActiveCriteria(ctx context.Context, eventID uint) ([]models.Criterion, error)
}

// Source is what the leaderboard needs.
type Source interface {
	FindEvent(ctx context.Context, eventID uint) (*models.Event, error)
	ListTeams(ctx context.Context, eventID uint) ([]models.Team, error)
	ListEventAggregates(ctx context.Context, eventID uint) ([]models.TeamScores, error)
}

type Repository interface {
	Store
	Source

	CreateEvent(ctx context.Context, event *models.Event) error
	ListEvents(ctx context.Context) ([]models.Event, error)
	DeleteEvent(ctx context.Context, eventID uint) error

	CreateTeam(ctx context.Context, team *models.Team) error
	DeleteTeam(ctx context.Context, teamID uint) error

	CreateCriterion(ctx context.Context, criterion *models.Criterion) error
	ListCriteria(ctx context.Context, eventID uint) ([]models.Criterion, error)
	FindCriterion(ctx context.Context, criterionID uint) (*models.Criterion, error)
	SetCriterionActive(ctx context.Context, criterionID uint, active bool) error

	CreateJury(ctx context.Context, jury *models.Jury) error
	ListJuries(ctx context.Context, eventID uint) ([]models.Jury, error)
	FindJuryByAccessCode(ctx context.Context, code string) (*models.Jury, error)
}
