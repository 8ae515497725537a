package scoring

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/karlseguin/ccache/v2"
	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/bigredeye/notmanyjudges/internal/live"
	lf "github.com/bigredeye/notmanyjudges/internal/logfield"
	"github.com/bigredeye/notmanyjudges/internal/models"
	"github.com/bigredeye/notmanyjudges/internal/store"
)

type FeedbackGenerator interface {
	GenerateFeedback(ctx context.Context, scores map[string]int, remarks string) (string, error)
}

type Consolidator interface {
	// Consolidate receives only the populated panels, in slot order.
	Consolidate(ctx context.Context, panels []*models.PanelScore) (string, error)
}

type Publisher interface {
	Publish(e live.Event)
}

const (
	ResultOK            = "ok"
	ResultAlreadyScored = "already_scored"
	ResultInvalid       = "invalid"
	ResultPartial       = "partial"
	ResultError         = "error"
)

type Observer interface {
	ObserveSubmission(result string)
	ObserveRecomputeConflict()
	ObserveFeedbackFailure()
}

type nopObserver struct{}

func (nopObserver) ObserveSubmission(string)   {}
func (nopObserver) ObserveRecomputeConflict() {}
func (nopObserver) ObserveFeedbackFailure()   {}

type nopPublisher struct{}

func (nopPublisher) Publish(live.Event) {}

type Option func(a *Aggregator)

func WithRules(rules Rules) Option {
	return func(a *Aggregator) { a.rules = rules }
}

func WithFeedback(generator FeedbackGenerator) Option {
	return func(a *Aggregator) { a.feedback = generator }
}

func WithConsolidator(consolidator Consolidator) Option {
	return func(a *Aggregator) { a.consolidator = consolidator }
}

func WithPublisher(publisher Publisher) Option {
	return func(a *Aggregator) { a.publisher = publisher }
}

func WithObserver(observer Observer) Option {
	return func(a *Aggregator) { a.observer = observer }
}

// WithRecomputeTimeout bounds the time spent retrying conflicting average
// writes for a single call.
func WithRecomputeTimeout(timeout time.Duration) Option {
	return func(a *Aggregator) { a.recomputeTimeout = timeout }
}

// WithCriteriaCache caches active criteria per event for ttl.
func WithCriteriaCache(cache *ccache.Cache, ttl time.Duration) Option {
	return func(a *Aggregator) {
		a.criteria = cache
		a.criteriaTTL = ttl
	}
}

// Aggregator maintains every team's avgScore as a function of the populated
// panel totals. Each slot is written at most once.
type Aggregator struct {
	store store.Store
	log   *zap.Logger
	rules Rules

	feedback     FeedbackGenerator
	consolidator Consolidator
	publisher    Publisher
	observer     Observer

	recomputeTimeout time.Duration

	criteria    *ccache.Cache
	criteriaTTL time.Duration
}

func NewAggregator(s store.Store, log *zap.Logger, options ...Option) *Aggregator {
	a := &Aggregator{
		store:            s,
		log:              log.Named("scoring"),
		rules:            DefaultRules(),
		publisher:        nopPublisher{},
		observer:         nopObserver{},
		recomputeTimeout: 5 * time.Second,
	}
	for _, option := range options {
		option(a)
	}
	return a
}

func (a *Aggregator) Rules() Rules {
	return a.rules
}

type Result struct {
	Aggregate *models.TeamScores
	// FeedbackErr is set when AI feedback was requested but could not be
	// generated. The panel score is stored without it.
	FeedbackErr error
}

// SubmitPanelScore stores a panel's evaluation of a team and recomputes the
// team's average. It returns ErrAlreadyScored without writing anything if the
// slot is taken, and *PartialFailure if only the average write failed.
func (a *Aggregator) SubmitPanelScore(ctx context.Context, teamID uint, slot models.PanelSlot, sub *Submission) (*Result, error) {
	log := a.log.With(lf.TeamID(teamID), lf.Panel(int(slot)))

	result, err := a.submit(ctx, log, teamID, slot, sub)
	switch {
	case err == nil:
		a.observer.ObserveSubmission(ResultOK)
	case errors.Is(err, ErrAlreadyScored):
		a.observer.ObserveSubmission(ResultAlreadyScored)
		log.Info("Rejected duplicate panel submission")
	case IsValidationError(err) || errors.Is(err, ErrInvalidSlot):
		a.observer.ObserveSubmission(ResultInvalid)
		log.Info("Rejected invalid panel submission", zap.Error(err))
	case IsPartialFailure(err):
		a.observer.ObserveSubmission(ResultPartial)
		log.Error("Panel score stored but average is stale", zap.Error(err))
	default:
		a.observer.ObserveSubmission(ResultError)
		log.Error("Failed to submit panel score", zap.Error(err))
	}
	return result, err
}

func (a *Aggregator) submit(ctx context.Context, log *zap.Logger, teamID uint, slot models.PanelSlot, sub *Submission) (*Result, error) {
	if !slot.Valid() {
		return nil, ErrInvalidSlot
	}

	team, err := a.store.FindTeam(ctx, teamID)
	if store.IsNotFound(err) {
		return nil, ErrTeamNotFound
	} else if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to find team")
	}

	active, err := a.activeCriteria(ctx, team.EventID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to list active criteria")
	}
	if err = a.rules.Validate(sub, active); err != nil {
		return nil, err
	}

	current, err := a.store.GetAggregate(ctx, teamID)
	if err != nil && !store.IsNotFound(err) {
		return nil, pkgerrors.Wrap(err, "failed to read team scores")
	}
	if current.Slot(slot) != nil {
		return nil, ErrAlreadyScored
	}

	result := &Result{}
	panel := &models.PanelScore{
		Panel:      slot,
		Scores:     make(map[string]int, len(sub.Scores)),
		Remarks:    strings.TrimSpace(sub.Remarks),
		AIFeedback: sub.AIFeedback,
	}
	for name, value := range sub.Scores {
		panel.Scores[name] = value
	}
	panel.Total = sumScores(panel.Scores)

	if panel.AIFeedback == nil && sub.GenerateFeedback {
		text, err := a.generateFeedback(ctx, panel)
		if err != nil {
			a.observer.ObserveFeedbackFailure()
			log.Warn("Failed to generate feedback, storing score without it", zap.Error(err))
			result.FeedbackErr = err
		} else {
			panel.AIFeedback = &text
		}
	}

	err = a.store.MergeAggregate(ctx, teamID, &store.Patch{Panel: panel})
	if errors.Is(err, store.ErrSlotTaken) {
		return nil, ErrAlreadyScored
	} else if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to store panel score")
	}
	log.Info("Stored panel score", lf.Total(panel.Total))

	fresh, err := a.Recompute(ctx, teamID)
	event := live.Event{
		Kind:      live.KindPanelSubmitted,
		EventID:   team.EventID,
		TeamID:    teamID,
		Panel:     slot,
		Aggregate: fresh,
	}
	a.publisher.Publish(event)
	if err != nil {
		return nil, &PartialFailure{TeamID: teamID, Panel: slot, Err: err}
	}

	result.Aggregate = fresh
	return result, nil
}

func (a *Aggregator) generateFeedback(ctx context.Context, panel *models.PanelScore) (string, error) {
	if a.feedback == nil {
		return "", ErrFeedbackDisabled
	}
	return a.feedback.GenerateFeedback(ctx, panel.Scores, panel.Remarks)
}

func (a *Aggregator) activeCriteria(ctx context.Context, eventID uint) ([]models.Criterion, error) {
	if a.criteria == nil {
		return a.store.ListActiveCriteria(ctx, eventID)
	}
	item, err := a.criteria.Fetch(criteriaKey(eventID), a.criteriaTTL, func() (interface{}, error) {
		return a.store.ListActiveCriteria(ctx, eventID)
	})
	if err != nil {
		return nil, err
	}
	return item.Value().([]models.Criterion), nil
}

// InvalidateCriteria drops the cached active criteria of an event. Call it
// after criteria are created or toggled.
func (a *Aggregator) InvalidateCriteria(eventID uint) {
	if a.criteria != nil {
		a.criteria.Delete(criteriaKey(eventID))
	}
}

func criteriaKey(eventID uint) string {
	return fmt.Sprintf("criteria/%d", eventID)
}

func (a *Aggregator) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 5 * time.Millisecond
	b.MaxInterval = 250 * time.Millisecond
	b.MaxElapsedTime = a.recomputeTimeout
	b.Reset()
	return backoff.WithContext(b, ctx)
}

// Recompute rewrites avgScore from a fresh read of all slots. The write is
// conditional on the version that was read, so a recompute based on a stale
// read can never overwrite a newer one; conflicts are retried.
func (a *Aggregator) Recompute(ctx context.Context, teamID uint) (*models.TeamScores, error) {
	var fresh *models.TeamScores

	op := func() error {
		agg, err := a.store.GetAggregate(ctx, teamID)
		if store.IsNotFound(err) {
			fresh = &models.TeamScores{TeamID: teamID}
			return nil
		} else if err != nil {
			return backoff.Permanent(pkgerrors.Wrap(err, "failed to read team scores"))
		}

		avg, ok := AverageOf(agg)
		if !ok || (agg.AvgScore != nil && *agg.AvgScore == avg) {
			fresh = agg
			return nil
		}

		version := agg.Version
		err = a.store.MergeAggregate(ctx, teamID, &store.Patch{AvgScore: &avg, IfVersion: &version})
		if errors.Is(err, store.ErrVersionConflict) {
			a.observer.ObserveRecomputeConflict()
			a.log.Debug("Average recompute raced with another write, retrying",
				lf.TeamID(teamID), lf.Version(version))
			return err
		} else if err != nil {
			return backoff.Permanent(pkgerrors.Wrap(err, "failed to store average"))
		}

		agg.AvgScore = &avg
		agg.Version = version + 1
		fresh = agg
		a.log.Debug("Recomputed average", lf.TeamID(teamID), lf.AvgScore(avg), lf.Version(agg.Version))
		return nil
	}

	if err := backoff.Retry(op, a.newBackOff(ctx)); err != nil {
		return nil, err
	}
	return fresh, nil
}

// RecomputeAndPublish is the manual repair entry point.
func (a *Aggregator) RecomputeAndPublish(ctx context.Context, teamID uint) (*models.TeamScores, error) {
	team, err := a.store.FindTeam(ctx, teamID)
	if store.IsNotFound(err) {
		return nil, ErrTeamNotFound
	} else if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to find team")
	}

	fresh, err := a.Recompute(ctx, teamID)
	if err != nil {
		return nil, err
	}
	a.publisher.Publish(live.Event{
		Kind:      live.KindAverageRecomputed,
		EventID:   team.EventID,
		TeamID:    teamID,
		Aggregate: fresh,
	})
	return fresh, nil
}

// ConsolidateFeedback asks the consolidator to summarise the populated panels
// and stores its answer verbatim.
func (a *Aggregator) ConsolidateFeedback(ctx context.Context, teamID uint) (*models.TeamScores, error) {
	if a.consolidator == nil {
		return nil, ErrFeedbackDisabled
	}

	team, err := a.store.FindTeam(ctx, teamID)
	if store.IsNotFound(err) {
		return nil, ErrTeamNotFound
	} else if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to find team")
	}

	agg, err := a.store.GetAggregate(ctx, teamID)
	if err != nil && !store.IsNotFound(err) {
		return nil, pkgerrors.Wrap(err, "failed to read team scores")
	}
	panels := agg.Populated()
	if len(panels) == 0 {
		return nil, ErrNothingToConsolidate
	}

	text, err := a.consolidator.Consolidate(ctx, panels)
	if err != nil {
		a.observer.ObserveFeedbackFailure()
		return nil, pkgerrors.Wrap(err, "failed to consolidate feedback")
	}

	err = a.store.MergeAggregate(ctx, teamID, &store.Patch{ConsolidatedFeedback: &text})
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to store consolidated feedback")
	}

	fresh, err := a.store.GetAggregate(ctx, teamID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to read team scores")
	}
	a.log.Info("Stored consolidated feedback", lf.TeamID(teamID), zap.Int("panels", len(panels)))
	a.publisher.Publish(live.Event{
		Kind:      live.KindFeedbackConsolidated,
		EventID:   team.EventID,
		TeamID:    teamID,
		Aggregate: fresh,
	})
	return fresh, nil
}
