// Package memory is an in-process document store. It backs the "memory"
// storage mode, the stress tool and most tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/bigredeye/notmanyjudges/internal/models"
	"github.com/bigredeye/notmanyjudges/internal/store"
)

var _ store.Repository = (*Store)(nil)

type Store struct {
	mu     sync.RWMutex
	lastID uint

	events     map[uint]*models.Event
	teams      map[uint]*models.Team
	criteria   map[uint]*models.Criterion
	juries     map[uint]*models.Jury
	aggregates map[uint]*models.TeamScores

	now func() time.Time
}

func New() *Store {
	return &Store{
		events:     make(map[uint]*models.Event),
		teams:      make(map[uint]*models.Team),
		criteria:   make(map[uint]*models.Criterion),
		juries:     make(map[uint]*models.Jury),
		aggregates: make(map[uint]*models.TeamScores),
		now:        time.Now,
	}
}

func (s *Store) nextID() uint {
	s.lastID++
	return s.lastID
}

func sortedValues[T any](m map[uint]*T, keep func(*T) bool) []T {
	ids := make([]uint, 0, len(m))
	for id, v := range m {
		if keep == nil || keep(v) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	res := make([]T, len(ids))
	for i, id := range ids {
		res[i] = *m[id]
	}
	return res
}

////////////////////////////////////////////////////////////////////////////////

func (s *Store) GetAggregate(ctx context.Context, teamID uint) (*models.TeamScores, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	agg, found := s.aggregates[teamID]
	if !found {
		return nil, store.ErrNotFound
	}
	return agg.Clone(), nil
}

func (s *Store) MergeAggregate(ctx context.Context, teamID uint, patch *store.Patch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if patch.Empty() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, found := s.teams[teamID]; !found {
		return errors.Wrapf(store.ErrNotFound, "team %d", teamID)
	}

	agg, found := s.aggregates[teamID]
	if !found {
		agg = &models.TeamScores{TeamID: teamID}
	}

	if patch.IfVersion != nil && *patch.IfVersion != agg.Version {
		return store.ErrVersionConflict
	}

	next := agg.Clone()
	if patch.Panel != nil {
		if next.Slot(patch.Panel.Panel) != nil {
			return store.ErrSlotTaken
		}
		panel := patch.Panel.Clone()
		panel.TeamID = teamID
		if panel.CreatedAt.IsZero() {
			panel.CreatedAt = s.now()
		}
		next.Panels = append(next.Panels, *panel)
	}
	if patch.AvgScore != nil {
		avg := *patch.AvgScore
		next.AvgScore = &avg
	}
	if patch.ConsolidatedFeedback != nil {
		text := *patch.ConsolidatedFeedback
		next.ConsolidatedFeedback = &text
	}
	next.Version++
	next.UpdatedAt = s.now()

	s.aggregates[teamID] = next
	return nil
}

func (s *Store) ListEventAggregates(ctx context.Context, eventID uint) ([]models.TeamScores, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res := make([]models.TeamScores, 0)
	for _, team := range sortedValues(s.teams, func(t *models.Team) bool { return t.EventID == eventID }) {
		if agg, found := s.aggregates[team.ID]; found {
			res = append(res, *agg.Clone())
		}
	}
	return res, nil
}

////////////////////////////////////////////////////////////////////////////////

func (s *Store) CreateEvent(ctx context.Context, event *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, other := range s.events {
		if other.Name == event.Name {
			return errors.Wrapf(store.ErrDuplicate, "event %q", event.Name)
		}
	}
	event.ID = s.nextID()
	event.CreatedAt = s.now()
	stored := *event
	s.events[event.ID] = &stored
	return nil
}

func (s *Store) FindEvent(ctx context.Context, eventID uint) (*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	event, found := s.events[eventID]
	if !found {
		return nil, store.ErrNotFound
	}
	res := *event
	return &res, nil
}

func (s *Store) ListEvents(ctx context.Context) ([]models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedValues(s.events, nil), nil
}

func (s *Store) DeleteEvent(ctx context.Context, eventID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, found := s.events[eventID]; !found {
		return store.ErrNotFound
	}
	delete(s.events, eventID)
	for id, team := range s.teams {
		if team.EventID == eventID {
			delete(s.teams, id)
			delete(s.aggregates, id)
		}
	}
	for id, criterion := range s.criteria {
		if criterion.EventID == eventID {
			delete(s.criteria, id)
		}
	}
	for id, jury := range s.juries {
		if jury.EventID == eventID {
			delete(s.juries, id)
		}
	}
	return nil
}

////////////////////////////////////////////////////////////////////////////////

func (s *Store) CreateTeam(ctx context.Context, team *models.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, found := s.events[team.EventID]; !found {
		return errors.Wrapf(store.ErrNotFound, "event %d", team.EventID)
	}
	for _, other := range s.teams {
		if other.EventID == team.EventID && other.Name == team.Name {
			return errors.Wrapf(store.ErrDuplicate, "team %q", team.Name)
		}
	}
	team.ID = s.nextID()
	team.CreatedAt = s.now()
	stored := *team
	s.teams[team.ID] = &stored
	return nil
}

func (s *Store) FindTeam(ctx context.Context, teamID uint) (*models.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	team, found := s.teams[teamID]
	if !found {
		return nil, store.ErrNotFound
	}
	res := *team
	return &res, nil
}

func (s *Store) ListTeams(ctx context.Context, eventID uint) ([]models.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedValues(s.teams, func(t *models.Team) bool { return t.EventID == eventID }), nil
}

func (s *Store) DeleteTeam(ctx context.Context, teamID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, found := s.teams[teamID]; !found {
		return store.ErrNotFound
	}
	delete(s.teams, teamID)
	delete(s.aggregates, teamID)
	return nil
}

////////////////////////////////////////////////////////////////////////////////

func (s *Store) CreateCriterion(ctx context.Context, criterion *models.Criterion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, found := s.events[criterion.EventID]; !found {
		return errors.Wrapf(store.ErrNotFound, "event %d", criterion.EventID)
	}
	for _, other := range s.criteria {
		if other.EventID == criterion.EventID && other.Name == criterion.Name {
			return errors.Wrapf(store.ErrDuplicate, "criterion %q", criterion.Name)
		}
	}
	criterion.ID = s.nextID()
	stored := *criterion
	s.criteria[criterion.ID] = &stored
	return nil
}

func (s *Store) ListCriteria(ctx context.Context, eventID uint) ([]models.Criterion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedValues(s.criteria, func(c *models.Criterion) bool { return c.EventID == eventID }), nil
}

func (s *Store) ListActiveCriteria(ctx context.Context, eventID uint) ([]models.Criterion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedValues(s.criteria, func(c *models.Criterion) bool {
		return c.EventID == eventID && c.Active
	}), nil
}

func (s *Store) FindCriterion(ctx context.Context, criterionID uint) (*models.Criterion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	criterion, found := s.criteria[criterionID]
	if !found {
		return nil, store.ErrNotFound
	}
	res := *criterion
	return &res, nil
}

func (s *Store) SetCriterionActive(ctx context.Context, criterionID uint, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	criterion, found := s.criteria[criterionID]
	if !found {
		return store.ErrNotFound
	}
	criterion.Active = active
	return nil
}

////////////////////////////////////////////////////////////////////////////////

func (s *Store) CreateJury(ctx context.Context, jury *models.Jury) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, found := s.events[jury.EventID]; !found {
		return errors.Wrapf(store.ErrNotFound, "event %d", jury.EventID)
	}
	for _, other := range s.juries {
		if other.AccessCode == jury.AccessCode {
			return errors.Wrap(store.ErrDuplicate, "jury access code")
		}
		if other.EventID == jury.EventID && other.Panel == jury.Panel {
			return errors.Wrapf(store.ErrDuplicate, "panel %d already has a jury", jury.Panel)
		}
	}
	jury.ID = s.nextID()
	jury.CreatedAt = s.now()
	stored := *jury
	s.juries[jury.ID] = &stored
	return nil
}

func (s *Store) ListJuries(ctx context.Context, eventID uint) ([]models.Jury, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedValues(s.juries, func(j *models.Jury) bool { return j.EventID == eventID }), nil
}

func (s *Store) FindJuryByAccessCode(ctx context.Context, code string) (*models.Jury, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, jury := range s.juries {
		if jury.AccessCode == code {
			res := *jury
			return &res, nil
		}
	}
	return nil, store.ErrNotFound
}
