// Package storetest runs the store.Repository contract against any
// implementation.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigredeye/notmanyjudges/internal/models"
	"github.com/bigredeye/notmanyjudges/internal/store"
)

// Open returns a repository for a single subtest. Event names are unique per
// call, so implementations may share state between subtests.
type Open func(t *testing.T) store.Repository

func Run(t *testing.T, open Open) {
	tests := []struct {
		name string
		run  func(t *testing.T, s store.Repository)
	}{
		{"MergeDoesNotClobberSiblings", mergeDoesNotClobberSiblings},
		{"SlotIsCreateOnly", slotIsCreateOnly},
		{"ConditionalMerge", conditionalMerge},
		{"ConcurrentSlotWrites", concurrentSlotWrites},
		{"ReturnedAggregateIsACopy", returnedAggregateIsACopy},
		{"MergeUnknownTeam", mergeUnknownTeam},
		{"DeleteTeamDropsAggregate", deleteTeamDropsAggregate},
		{"Duplicates", duplicates},
		{"OneJuryPerPanel", oneJuryPerPanel},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			tc.run(t, open(t))
		})
	}
}

func seedTeam(t *testing.T, s store.Repository) *models.Team {
	t.Helper()
	ctx := context.Background()
	event := &models.Event{Name: fmt.Sprintf("%s-%d", t.Name(), time.Now().UnixNano())}
	require.NoError(t, s.CreateEvent(ctx, event))
	team := &models.Team{EventID: event.ID, Name: "Null Pointers"}
	require.NoError(t, s.CreateTeam(ctx, team))
	return team
}

func floatp(v float64) *float64 { return &v }
func int64p(v int64) *int64     { return &v }

func mergeDoesNotClobberSiblings(t *testing.T, s store.Repository) {
	ctx := context.Background()
	team := seedTeam(t, s)

	_, err := s.GetAggregate(ctx, team.ID)
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.MergeAggregate(ctx, team.ID, &store.Patch{
		Panel: &models.PanelScore{Panel: models.Panel1, Scores: map[string]int{"ux": 7}, Total: 7},
	}))
	require.NoError(t, s.MergeAggregate(ctx, team.ID, &store.Patch{AvgScore: floatp(7)}))
	require.NoError(t, s.MergeAggregate(ctx, team.ID, &store.Patch{
		Panel: &models.PanelScore{Panel: models.Panel3, Scores: map[string]int{"ux": 5}, Total: 5},
	}))

	agg, err := s.GetAggregate(ctx, team.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), agg.Version)
	assert.Equal(t, []int{7, 5}, agg.Totals())
	assert.Equal(t, map[string]int{"ux": 5}, agg.Slot(models.Panel3).Scores)
	require.NotNil(t, agg.AvgScore)
	assert.Equal(t, 7.0, *agg.AvgScore)
	assert.Nil(t, agg.Slot(models.Panel2))

	feedback := "solid demo"
	require.NoError(t, s.MergeAggregate(ctx, team.ID, &store.Patch{ConsolidatedFeedback: &feedback}))
	agg, err = s.GetAggregate(ctx, team.ID)
	require.NoError(t, err)
	require.NotNil(t, agg.ConsolidatedFeedback)
	assert.Equal(t, feedback, *agg.ConsolidatedFeedback)
	assert.Equal(t, 7.0, *agg.AvgScore)
	assert.Len(t, agg.Populated(), 2)
}

func slotIsCreateOnly(t *testing.T, s store.Repository) {
	ctx := context.Background()
	team := seedTeam(t, s)

	first := &store.Patch{Panel: &models.PanelScore{Panel: models.Panel2, Total: 30}}
	require.NoError(t, s.MergeAggregate(ctx, team.ID, first))

	second := &store.Patch{
		Panel:    &models.PanelScore{Panel: models.Panel2, Total: 12},
		AvgScore: floatp(12),
	}
	require.ErrorIs(t, s.MergeAggregate(ctx, team.ID, second), store.ErrSlotTaken)

	agg, err := s.GetAggregate(ctx, team.ID)
	require.NoError(t, err)
	assert.Equal(t, 30, agg.Slot(models.Panel2).Total)
	assert.Nil(t, agg.AvgScore)
	assert.Equal(t, int64(1), agg.Version)
}

func conditionalMerge(t *testing.T, s store.Repository) {
	ctx := context.Background()
	team := seedTeam(t, s)

	require.NoError(t, s.MergeAggregate(ctx, team.ID, &store.Patch{
		Panel:     &models.PanelScore{Panel: models.Panel1, Total: 40},
		IfVersion: int64p(0),
	}))
	err := s.MergeAggregate(ctx, team.ID, &store.Patch{AvgScore: floatp(1), IfVersion: int64p(0)})
	require.ErrorIs(t, err, store.ErrVersionConflict)
	require.NoError(t, s.MergeAggregate(ctx, team.ID, &store.Patch{AvgScore: floatp(40), IfVersion: int64p(1)}))

	agg, err := s.GetAggregate(ctx, team.ID)
	require.NoError(t, err)
	assert.Equal(t, 40.0, *agg.AvgScore)
	assert.Equal(t, int64(2), agg.Version)
}

func concurrentSlotWrites(t *testing.T, s store.Repository) {
	ctx := context.Background()
	team := seedTeam(t, s)

	const writers = 8
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.MergeAggregate(ctx, team.ID, &store.Patch{
				Panel: &models.PanelScore{Panel: models.Panel1, Total: 10 + i},
			})
		}(i)
	}
	wg.Wait()

	stored := 0
	for _, err := range errs {
		if err == nil {
			stored++
			continue
		}
		assert.ErrorIs(t, err, store.ErrSlotTaken)
	}
	assert.Equal(t, 1, stored)

	agg, err := s.GetAggregate(ctx, team.ID)
	require.NoError(t, err)
	assert.Len(t, agg.Populated(), 1)
	assert.Equal(t, int64(1), agg.Version)
}

func returnedAggregateIsACopy(t *testing.T, s store.Repository) {
	ctx := context.Background()
	team := seedTeam(t, s)

	require.NoError(t, s.MergeAggregate(ctx, team.ID, &store.Patch{
		Panel: &models.PanelScore{Panel: models.Panel1, Scores: map[string]int{"ux": 7}, Total: 7},
	}))
	agg, err := s.GetAggregate(ctx, team.ID)
	require.NoError(t, err)
	agg.Panels[0].Scores["ux"] = 1

	again, err := s.GetAggregate(ctx, team.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, again.Panels[0].Scores["ux"])
}

func mergeUnknownTeam(t *testing.T, s store.Repository) {
	err := s.MergeAggregate(context.Background(), 1<<30, &store.Patch{AvgScore: floatp(1)})
	require.ErrorIs(t, err, store.ErrNotFound)
}

func deleteTeamDropsAggregate(t *testing.T, s store.Repository) {
	ctx := context.Background()
	team := seedTeam(t, s)
	require.NoError(t, s.MergeAggregate(ctx, team.ID, &store.Patch{AvgScore: floatp(3)}))

	require.NoError(t, s.DeleteTeam(ctx, team.ID))
	_, err := s.GetAggregate(ctx, team.ID)
	require.ErrorIs(t, err, store.ErrNotFound)

	aggs, err := s.ListEventAggregates(ctx, team.EventID)
	require.NoError(t, err)
	assert.Empty(t, aggs)
}

func duplicates(t *testing.T, s store.Repository) {
	ctx := context.Background()
	team := seedTeam(t, s)

	err := s.CreateTeam(ctx, &models.Team{EventID: team.EventID, Name: team.Name})
	require.ErrorIs(t, err, store.ErrDuplicate)

	code := fmt.Sprintf("code-%d", time.Now().UnixNano())
	jury := &models.Jury{EventID: team.EventID, Panel: models.Panel1, AccessCode: code}
	require.NoError(t, s.CreateJury(ctx, jury))
	err = s.CreateJury(ctx, &models.Jury{EventID: team.EventID, Panel: models.Panel2, AccessCode: code})
	require.ErrorIs(t, err, store.ErrDuplicate)

	found, err := s.FindJuryByAccessCode(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, models.Panel1, found.Panel)
}

func oneJuryPerPanel(t *testing.T, s store.Repository) {
	ctx := context.Background()
	team := seedTeam(t, s)
	prefix := fmt.Sprintf("panel-%d", time.Now().UnixNano())

	require.NoError(t, s.CreateJury(ctx, &models.Jury{EventID: team.EventID, Panel: models.Panel2, AccessCode: prefix + "-a"}))
	err := s.CreateJury(ctx, &models.Jury{EventID: team.EventID, Panel: models.Panel2, AccessCode: prefix + "-b"})
	require.ErrorIs(t, err, store.ErrDuplicate)

	require.NoError(t, s.CreateJury(ctx, &models.Jury{EventID: team.EventID, Panel: models.Panel3, AccessCode: prefix + "-c"}))

	juries, err := s.ListJuries(ctx, team.EventID)
	require.NoError(t, err)
	assert.Len(t, juries, 2)
}
