// Package feedback turns jury scores into written feedback with an LLM.
package feedback

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/bigredeye/notmanyjudges/internal/config"
	lf "github.com/bigredeye/notmanyjudges/internal/logfield"
	"github.com/bigredeye/notmanyjudges/internal/models"
	"github.com/bigredeye/notmanyjudges/internal/rubric"
)

type Service struct {
	provider Provider
	limiter  *rate.Limiter
	log      *zap.Logger

	timeout    time.Duration
	maxRetries uint64
}

type Option func(s *Service)

// WithRatePerMinute limits provider calls. Zero disables the limit.
func WithRatePerMinute(perMin int) Option {
	return func(s *Service) {
		if perMin <= 0 {
			s.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		s.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMin)), 1)
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(s *Service) { s.timeout = timeout }
}

func WithMaxRetries(retries uint64) Option {
	return func(s *Service) { s.maxRetries = retries }
}

func NewService(provider Provider, log *zap.Logger, options ...Option) *Service {
	s := &Service{
		provider:   provider,
		limiter:    rate.NewLimiter(rate.Inf, 0),
		log:        log.Named("feedback").With(lf.Provider(provider.Name())),
		timeout:    30 * time.Second,
		maxRetries: 2,
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// NewServiceFromConfig returns ErrDisabled when no provider is configured.
func NewServiceFromConfig(conf *config.Config, log *zap.Logger) (*Service, error) {
	provider, err := NewProvider(ProviderConfig{
		Provider:    conf.LLM.Provider,
		APIKey:      conf.LLM.APIKey,
		Model:       conf.LLM.Model,
		BaseURL:     conf.LLM.BaseURL,
		Timeout:     conf.LLM.Timeout,
		MaxTokens:   conf.LLM.MaxTokens,
		Temperature: conf.LLM.Temperature,
	})
	if err != nil {
		return nil, err
	}
	return NewService(provider, log,
		WithRatePerMinute(conf.LLM.RatePerMin),
		WithTimeout(conf.LLM.Timeout),
		WithMaxRetries(conf.LLM.MaxRetries),
	), nil
}

func (s *Service) complete(ctx context.Context, system, prompt string) (string, error) {
	var answer string
	attempt := 0

	op := func() error {
		attempt++
		if err := s.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		text, err := s.provider.Complete(callCtx, system, prompt)
		if err != nil {
			if !retryable(ctx, err) {
				return backoff.Permanent(err)
			}
			s.log.Warn("Provider call failed, retrying", zap.Int("attempt", attempt), zap.Error(err))
			return err
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return ErrEmptyResponse
		}
		answer = text
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, s.maxRetries), ctx))
	if err != nil {
		return "", err
	}
	return answer, nil
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(err, ErrEmptyAPIKey) {
		return false
	}
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.Temporary()
	}
	return true
}

// GenerateFeedback writes feedback for a single panel's evaluation.
func (s *Service) GenerateFeedback(ctx context.Context, scores map[string]int, remarks string) (string, error) {
	prompt, err := render(feedbackTemplate, feedbackInput{Scores: scores, Remarks: remarks})
	if err != nil {
		return "", pkgerrors.Wrap(err, "failed to render feedback prompt")
	}
	text, err := s.complete(ctx, systemPrompt, prompt)
	if err != nil {
		return "", pkgerrors.Wrap(err, "failed to generate feedback")
	}
	return text, nil
}

// Consolidate summarises the given panels. Callers pass only panels that
// have submitted.
func (s *Service) Consolidate(ctx context.Context, panels []*models.PanelScore) (string, error) {
	if len(panels) == 0 {
		return "", errors.New("nothing to consolidate")
	}
	prompt, err := render(consolidateTemplate, panels)
	if err != nil {
		return "", pkgerrors.Wrap(err, "failed to render consolidation prompt")
	}
	text, err := s.complete(ctx, systemPrompt, prompt)
	if err != nil {
		return "", pkgerrors.Wrap(err, "failed to consolidate feedback")
	}
	return text, nil
}

// ParseCriteria converts a free-form rubric into criteria drafts.
func (s *Service) ParseCriteria(ctx context.Context, text string) ([]rubric.Criterion, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyRubric
	}
	prompt, err := render(criteriaTemplate, text)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to render criteria prompt")
	}
	answer, err := s.complete(ctx, "You convert documents into strict JSON.", prompt)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to parse criteria")
	}
	return decodeCriteria(answer)
}

func decodeCriteria(answer string) ([]rubric.Criterion, error) {
	answer = stripCodeFence(answer)
	if start, end := strings.Index(answer, "["), strings.LastIndex(answer, "]"); start >= 0 && end > start {
		answer = answer[start : end+1]
	}

	criteria := []rubric.Criterion{}
	if err := json.Unmarshal([]byte(answer), &criteria); err != nil {
		return nil, pkgerrors.Wrap(err, "model returned malformed criteria")
	}
	if len(criteria) == 0 {
		return nil, ErrEmptyRubric
	}

	draft := &rubric.Rubric{Criteria: criteria}
	if err := draft.Validate(); err != nil {
		return nil, pkgerrors.Wrap(err, "model returned invalid criteria")
	}
	return draft.Criteria, nil
}

func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if newline := strings.IndexByte(text, '\n'); newline >= 0 {
		text = text[newline+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), "```"))
}
