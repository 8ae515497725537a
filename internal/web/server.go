package web

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/bigredeye/notmanyjudges/internal/config"
	"github.com/bigredeye/notmanyjudges/internal/feedback"
	"github.com/bigredeye/notmanyjudges/internal/gitlab"
	"github.com/bigredeye/notmanyjudges/internal/leaderboard"
	"github.com/bigredeye/notmanyjudges/internal/live"
	"github.com/bigredeye/notmanyjudges/internal/metrics"
	"github.com/bigredeye/notmanyjudges/internal/rubric"
	"github.com/bigredeye/notmanyjudges/internal/scoring"
	"github.com/bigredeye/notmanyjudges/internal/store"
	static "github.com/bigredeye/notmanyjudges/web"
)

// Deps are the collaborators the HTTP layer drives. Feedback, Rubrics and
// Metrics are optional.
type Deps struct {
	Repository store.Repository
	Aggregator *scoring.Aggregator
	Board      *leaderboard.Board
	Hub        *live.Hub
	Feedback   *feedback.Service
	Rubrics    *rubric.Fetcher
	Metrics    *metrics.Metrics
}

type Server struct {
	config *config.Config
	logger *zap.Logger

	auth *gitlab.AuthClient
	Deps

	engine *gin.Engine
}

func NewServer(config *config.Config, logger *zap.Logger, deps Deps) (*Server, error) {
	s := &Server{
		config: config,
		logger: logger.Named("web"),
		auth:   gitlab.NewAuthClient(config),
		Deps:   deps,
	}
	if err := s.setupEngine(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func buildHTMLTemplates(funcMap template.FuncMap) (*template.Template, error) {
	tmpl, err := template.New("").Funcs(funcMap).ParseFS(static.StaticTemplates, "*.tmpl")
	if err != nil {
		return nil, errors.Wrap(err, "Failed to collect html templates")
	}
	return tmpl, nil
}

func (s *Server) setupEngine() error {
	funcs := template.FuncMap{
		"inc": func(i int) int {
			return i + 1
		},
		"avg": func(avg *float64) string {
			if avg == nil {
				return "-"
			}
			return fmt.Sprintf("%.2f", *avg)
		},
		"total": func(total *int) string {
			if total == nil {
				return "-"
			}
			return fmt.Sprint(*total)
		},
	}
	tmpl, err := buildHTMLTemplates(funcs)
	if err != nil {
		return err
	}

	r := gin.New()
	r.Use(ginzap.Ginzap(s.logger, time.RFC3339, true))
	r.Use(ginzap.RecoveryWithZap(s.logger, true))
	r.SetHTMLTemplate(tmpl)

	if err := setupAuth(s, r); err != nil {
		return err
	}
	setupLoginService(s, r)
	setupJuryService(s, r)
	setupScoresService(s, r)
	setupLeaderboardService(s, r)
	setupAdminService(s, r)

	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong "+fmt.Sprint(time.Now().Unix()))
	})
	if s.Metrics != nil {
		r.GET("/metrics", gin.WrapH(s.Metrics.Handler()))
	}
	r.StaticFS("/static", http.FS(static.StaticContent))

	s.engine = r
	return nil
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Server.ListenAddress,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("Starting server", zap.String("bind_address", s.config.Server.ListenAddress))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return errors.Wrap(err, "Server failed")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("Shutting down server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "Failed to shut down server")
	}
	return nil
}
