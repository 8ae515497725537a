package main

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/bigredeye/notmanyjudges/internal/database"
	"github.com/bigredeye/notmanyjudges/internal/models"
	"github.com/bigredeye/notmanyjudges/internal/scoring"
	"github.com/bigredeye/notmanyjudges/internal/store"
	"github.com/bigredeye/notmanyjudges/internal/store/memory"
)

var log *zap.Logger

func check(err error) {
	if err != nil {
		panic(err)
	}
}

func unwrap[T any](value T, err error) T {
	check(err)
	return value
}

var (
	args struct {
		DSN       string
		Teams     int
		Criteria  int
		Parallel  int64
		Duplicate int
		Seed      int64
	}

	RootCmd = &cobra.Command{
		Use:   "stress",
		Short: "Submit panel scores concurrently and verify team averages",
		RunE: func(cmd *cobra.Command, _args []string) error {
			return Stress(cmd.Context())
		},
	}
)

type stats struct {
	accepted  atomic.Int64
	duplicate atomic.Int64
	partial   atomic.Int64
}

func openStore() (store.Repository, error) {
	if args.DSN == "" {
		return memory.New(), nil
	}
	return database.OpenDataBase(log, args.DSN)
}

func seedEvent(ctx context.Context, repo store.Repository) ([]models.Team, []string, error) {
	event := &models.Event{Name: fmt.Sprintf("stress-%d", time.Now().UnixNano())}
	if err := repo.CreateEvent(ctx, event); err != nil {
		return nil, nil, err
	}

	criteria := make([]string, 0, args.Criteria)
	for i := 0; i < args.Criteria; i++ {
		name := fmt.Sprintf("criterion-%d", i+1)
		err := repo.CreateCriterion(ctx, &models.Criterion{
			EventID:  event.ID,
			Name:     name,
			Active:   true,
			MaxScore: models.DefaultCriterionMaxScore,
		})
		if err != nil {
			return nil, nil, err
		}
		criteria = append(criteria, name)
	}

	teams := make([]models.Team, 0, args.Teams)
	for i := 0; i < args.Teams; i++ {
		team := &models.Team{EventID: event.ID, Name: fmt.Sprintf("team-%d", i+1)}
		if err := repo.CreateTeam(ctx, team); err != nil {
			return nil, nil, err
		}
		teams = append(teams, *team)
	}

	log.Info("Seeded event",
		zap.Uint("event_id", event.ID),
		zap.Int("num_teams", len(teams)),
		zap.Int("num_criteria", len(criteria)),
	)
	return teams, criteria, nil
}

func randomSubmission(rng *rand.Rand, criteria []string) *scoring.Submission {
	scores := make(map[string]int, len(criteria))
	for _, name := range criteria {
		scores[name] = 1 + rng.Intn(models.DefaultCriterionMaxScore)
	}
	return &scoring.Submission{Scores: scores, Remarks: "Generated by the stress tool"}
}

func Stress(ctx context.Context) error {
	repo, err := openStore()
	if err != nil {
		return err
	}
	teams, criteria, err := seedEvent(ctx, repo)
	if err != nil {
		return err
	}

	aggregator := scoring.NewAggregator(repo, log)
	rng := rand.New(rand.NewSource(args.Seed))

	s := semaphore.NewWeighted(args.Parallel)
	g := errgroup.Group{}
	st := &stats{}
	started := time.Now()

	for _, team := range teams {
		for _, slot := range models.PanelSlots {
			for attempt := 0; attempt <= args.Duplicate; attempt++ {
				teamID, slot := team.ID, slot
				sub := randomSubmission(rng, criteria)
				g.Go(func() error {
					if err := s.Acquire(ctx, 1); err != nil {
						return err
					}
					defer s.Release(1)
					return submit(ctx, aggregator, st, teamID, slot, sub)
				})
			}
		}
	}

	if err := g.Wait(); err != nil {
		return err
	}

	log.Info("Submissions finished",
		zap.Duration("elapsed", time.Since(started)),
		zap.Int64("accepted", st.accepted.Load()),
		zap.Int64("duplicate", st.duplicate.Load()),
		zap.Int64("partial", st.partial.Load()),
	)

	return verify(ctx, repo, aggregator, teams, st)
}

func submit(ctx context.Context, aggregator *scoring.Aggregator, st *stats, teamID uint, slot models.PanelSlot, sub *scoring.Submission) error {
	_, err := aggregator.SubmitPanelScore(ctx, teamID, slot, sub)
	var partial *scoring.PartialFailure
	switch {
	case err == nil:
		st.accepted.Inc()
	case errors.Is(err, scoring.ErrAlreadyScored):
		st.duplicate.Inc()
	case errors.As(err, &partial):
		st.partial.Inc()
		log.Warn("Average left stale", zap.Uint("team_id", teamID), zap.Error(err))
	default:
		return errors.Wrapf(err, "team %d %s", teamID, slot.Key())
	}
	return nil
}

func verify(ctx context.Context, repo store.Repository, aggregator *scoring.Aggregator, teams []models.Team, st *stats) error {
	if want := int64(len(teams) * models.PanelCount); st.accepted.Load()+st.partial.Load() != want {
		return errors.Errorf("expected %d stored panels, got %d", want, st.accepted.Load()+st.partial.Load())
	}

	for _, team := range teams {
		agg, err := repo.GetAggregate(ctx, team.ID)
		if err != nil {
			return err
		}
		if st.partial.Load() > 0 {
			if agg, err = aggregator.Recompute(ctx, team.ID); err != nil {
				return err
			}
		}
		if len(agg.Populated()) != models.PanelCount {
			return errors.Errorf("team %d has %d panels", team.ID, len(agg.Populated()))
		}
		want, _ := scoring.AverageOf(agg)
		if agg.AvgScore == nil || math.Abs(*agg.AvgScore-want) > 1e-9 {
			return errors.Errorf("team %d: average %v, expected %.4f", team.ID, agg.AvgScore, want)
		}
	}

	log.Info("All averages are consistent", zap.Int("num_teams", len(teams)))
	return nil
}

func initLogging() {
	config := zap.NewDevelopmentConfig()
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	config.EncoderConfig.ConsoleSeparator = " "
	config.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(time.StampMilli)
	log = unwrap(config.Build())
}

func initCommands() {
	RootCmd.Flags().StringVar(&args.DSN, "dsn", "", "Postgres DSN, in-memory storage when empty")
	RootCmd.Flags().IntVar(&args.Teams, "teams", 100, "Number of teams")
	RootCmd.Flags().IntVar(&args.Criteria, "criteria", 5, "Number of criteria")
	RootCmd.Flags().Int64Var(&args.Parallel, "parallel", 32, "Concurrent submissions")
	RootCmd.Flags().IntVar(&args.Duplicate, "duplicate", 1, "Extra submissions per panel slot")
	RootCmd.Flags().Int64Var(&args.Seed, "seed", 1, "Random seed")
}

func init() {
	initLogging()
	initCommands()
}

func main() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Command failed: %s", err.Error())
		os.Exit(1)
	}
}
