package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/karlseguin/ccache/v2"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	_ "github.com/joho/godotenv/autoload"

	"github.com/bigredeye/notmanyjudges/internal/config"
	"github.com/bigredeye/notmanyjudges/internal/database"
	"github.com/bigredeye/notmanyjudges/internal/feedback"
	"github.com/bigredeye/notmanyjudges/internal/leaderboard"
	"github.com/bigredeye/notmanyjudges/internal/live"
	"github.com/bigredeye/notmanyjudges/internal/metrics"
	"github.com/bigredeye/notmanyjudges/internal/rubric"
	"github.com/bigredeye/notmanyjudges/internal/scoring"
	"github.com/bigredeye/notmanyjudges/internal/store"
	"github.com/bigredeye/notmanyjudges/internal/store/memory"
	"github.com/bigredeye/notmanyjudges/internal/tgbot"
	"github.com/bigredeye/notmanyjudges/internal/web"
	zlog "github.com/bigredeye/notmanyjudges/pkg/log"
)

const rubricReloadInterval = 10 * time.Minute

func openRepository(conf *config.Config, logger *zap.Logger) (store.Repository, error) {
	switch conf.Storage.Mode {
	case config.StorageModeMemory:
		logger.Warn("Using in-memory storage, scores are lost on restart")
		return memory.New(), nil
	default:
		db, err := database.OpenDataBase(logger, conf.DataBaseDSN())
		if err != nil {
			return nil, errors.Wrap(err, "Failed to open database")
		}
		return db, nil
	}
}

func run(ctx context.Context, configPath string) error {
	conf, err := config.ParseConfig(configPath)
	if err != nil {
		return err
	}

	logger := zlog.InitWithFile(conf.Log.Development, zlog.FileOptions{
		Path:       conf.Log.File,
		MaxSizeMB:  conf.Log.MaxSizeMB,
		MaxBackups: conf.Log.MaxBackups,
		MaxAgeDays: conf.Log.MaxAgeDays,
	})
	defer zlog.Sync()

	repo, err := openRepository(conf, logger)
	if err != nil {
		return err
	}

	hub := live.NewHub(logger)
	defer hub.Close()

	m := metrics.New()
	hub.OnSubscribersChanged(m.SetSubscribers)

	criteriaCache := ccache.New(ccache.Configure().MaxSize(conf.Cache.MaxEntries))
	defer criteriaCache.Stop()

	options := []scoring.Option{
		scoring.WithRules(scoring.Rules{
			MinScore:         conf.Judging.MinScore,
			MaxScore:         conf.Judging.MaxScore,
			RemarksMinLength: conf.Judging.RemarksMinLength,
		}),
		scoring.WithPublisher(hub),
		scoring.WithObserver(m),
		scoring.WithRecomputeTimeout(conf.Judging.RecomputeTimeout),
		scoring.WithCriteriaCache(criteriaCache, conf.Cache.CriteriaTTL),
	}

	service, err := feedback.NewServiceFromConfig(conf, logger)
	switch {
	case errors.Is(err, feedback.ErrDisabled):
		logger.Info("Feedback generation is disabled")
	case err != nil:
		return errors.Wrap(err, "Failed to init feedback provider")
	default:
		options = append(options, scoring.WithFeedback(service), scoring.WithConsolidator(service))
	}
	aggregator := scoring.NewAggregator(repo, logger, options...)

	board := leaderboard.NewBoard(repo, logger,
		leaderboard.WithTTL(conf.Cache.LeaderboardTTL),
		leaderboard.WithMaxEntries(conf.Cache.MaxEntries),
		leaderboard.WithBuildTimeout(conf.Cache.BuildTimeout),
		leaderboard.WithBuildObserver(m.ObserveLeaderboardBuild),
	)
	defer board.Stop()
	defer board.Attach(hub)()

	g, ctx := errgroup.WithContext(ctx)

	var rubrics *rubric.Fetcher
	if conf.Judging.DefaultRubricURL != "" {
		rubrics = rubric.NewFetcher(conf.Judging.DefaultRubricURL, logger)
		if err := rubrics.Reload(ctx); err != nil {
			logger.Error("Failed to load default rubric", zap.Error(err))
		}
		g.Go(func() error {
			rubrics.Run(ctx, rubricReloadInterval)
			return nil
		})
	}

	if conf.Telegram.BotToken != "" {
		bot, err := tgbot.NewBot(conf, logger, repo, board)
		if err != nil {
			return errors.Wrap(err, "Failed to start telegram bot")
		}
		defer bot.Attach(hub)()
		g.Go(func() error {
			bot.Run(ctx)
			return nil
		})
	}

	deps := web.Deps{
		Repository: repo,
		Aggregator: aggregator,
		Board:      board,
		Hub:        hub,
		Feedback:   service,
		Rubrics:    rubrics,
		Metrics:    m,
	}
	server, err := web.NewServer(conf, logger, deps)
	if err != nil {
		return errors.Wrap(err, "Failed to init server")
	}
	g.Go(func() error {
		return errors.Wrap(server.Run(ctx), "Server failed")
	})

	return g.Wait()
}

func main() {
	var configPath string
	cmd := &cobra.Command{
		Use:   "nmj-web",
		Short: "Hackathon judging server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to the config file")

	if err := cmd.Execute(); err != nil {
		log.Fatalf("%+v\n", err)
	}
}
