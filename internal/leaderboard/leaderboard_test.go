package leaderboard

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/bigredeye/notmanyjudges/internal/live"
	"github.com/bigredeye/notmanyjudges/internal/models"
	"github.com/bigredeye/notmanyjudges/internal/store"
	"github.com/bigredeye/notmanyjudges/internal/store/memory"
)

type countingSource struct {
	store.Source
	builds atomic.Int64
}

func (s *countingSource) FindEvent(ctx context.Context, eventID uint) (*models.Event, error) {
	s.builds.Inc()
	return s.Source.FindEvent(ctx, eventID)
}

func TestBoardCachesUntilInvalidated(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	event := &models.Event{Name: "summer-hack"}
	require.NoError(t, s.CreateEvent(ctx, event))
	team := &models.Team{EventID: event.ID, Name: "Off By One"}
	require.NoError(t, s.CreateTeam(ctx, team))

	source := &countingSource{Source: s}
	board := NewBoard(source, zap.NewNop())
	defer board.Stop()

	hub := live.NewHub(zap.NewNop())
	detach := board.Attach(hub)
	defer detach()

	first, err := board.Standings(ctx, event.ID)
	require.NoError(t, err)
	require.Len(t, first.Entries, 1)
	assert.False(t, first.Entries[0].Ranked())

	_, err = board.Standings(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), source.builds.Load())

	avg := 27.0
	require.NoError(t, s.MergeAggregate(ctx, team.ID, &store.Patch{
		Panel:    &models.PanelScore{Panel: models.Panel1, Total: 27},
		AvgScore: &avg,
	}))
	hub.Publish(live.Event{Kind: live.KindPanelSubmitted, EventID: event.ID, TeamID: team.ID, Panel: models.Panel1})

	second, err := board.Standings(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), source.builds.Load())
	require.NotNil(t, second.Entries[0].AvgScore)
	assert.Equal(t, 27.0, *second.Entries[0].AvgScore)
	assert.Equal(t, 1, second.Entries[0].Rank)
}

func TestBoardUnknownEvent(t *testing.T) {
	board := NewBoard(memory.New(), zap.NewNop())
	defer board.Stop()

	_, err := board.Standings(context.Background(), 42)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

type stallingSource struct {
	store.Source
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *stallingSource) ListTeams(ctx context.Context, eventID uint) ([]models.Team, error) {
	s.once.Do(func() { close(s.started) })
	<-s.release
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Source.ListTeams(ctx, eventID)
}

func TestBoardBuildSurvivesStarterCancel(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	event := &models.Event{Name: "winter-hack"}
	require.NoError(t, s.CreateEvent(ctx, event))
	require.NoError(t, s.CreateTeam(ctx, &models.Team{EventID: event.ID, Name: "Null Pointers"}))

	source := &stallingSource{Source: s, started: make(chan struct{}), release: make(chan struct{})}
	board := NewBoard(source, zap.NewNop())
	defer board.Stop()

	starterCtx, cancel := context.WithCancel(ctx)
	starterErr := make(chan error, 1)
	go func() {
		_, err := board.Standings(starterCtx, event.ID)
		starterErr <- err
	}()
	<-source.started

	type result struct {
		standings *Standings
		err       error
	}
	waiter := make(chan result, 1)
	go func() {
		standings, err := board.Standings(ctx, event.ID)
		waiter <- result{standings, err}
	}()

	cancel()
	assert.ErrorIs(t, <-starterErr, context.Canceled)

	time.Sleep(20 * time.Millisecond)
	close(source.release)

	res := <-waiter
	require.NoError(t, res.err)
	require.Len(t, res.standings.Entries, 1)
	assert.Equal(t, "Null Pointers", res.standings.Entries[0].TeamName)
}

func TestBoardCallerDeadline(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	event := &models.Event{Name: "autumn-hack"}
	require.NoError(t, s.CreateEvent(ctx, event))

	source := &stallingSource{Source: s, started: make(chan struct{}), release: make(chan struct{})}
	board := NewBoard(source, zap.NewNop())
	defer board.Stop()
	defer close(source.release)

	callerCtx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	_, err := board.Standings(callerCtx, event.ID)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
