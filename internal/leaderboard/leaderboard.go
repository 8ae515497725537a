// Package leaderboard builds per-event standings from team aggregates and
// keeps them cached until a live update says otherwise.
package leaderboard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/karlseguin/ccache/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/bigredeye/notmanyjudges/internal/live"
	lf "github.com/bigredeye/notmanyjudges/internal/logfield"
	"github.com/bigredeye/notmanyjudges/internal/store"
)

type Option func(b *Board)

func WithTTL(ttl time.Duration) Option {
	return func(b *Board) { b.ttl = ttl }
}

func WithMaxEntries(size int64) Option {
	return func(b *Board) { b.cache = ccache.New(ccache.Configure().MaxSize(size)) }
}

func WithBuildTimeout(timeout time.Duration) Option {
	return func(b *Board) { b.buildTimeout = timeout }
}

func WithBuildObserver(observe func(time.Duration)) Option {
	return func(b *Board) { b.observe = observe }
}

type Board struct {
	source store.Source
	log    *zap.Logger

	cache   *ccache.Cache
	ttl     time.Duration
	group   singleflight.Group
	observe func(time.Duration)

	buildTimeout time.Duration

	mu          sync.Mutex
	generations map[uint]uint64
}

func NewBoard(source store.Source, log *zap.Logger, options ...Option) *Board {
	b := &Board{
		source:  source,
		log:     log.Named("leaderboard"),
		cache:   ccache.New(ccache.Configure().MaxSize(256)),
		ttl:     30 * time.Second,
		observe: func(time.Duration) {},

		buildTimeout: 10 * time.Second,

		generations: make(map[uint]uint64),
	}
	for _, option := range options {
		option(b)
	}
	return b
}

func cacheKey(eventID uint) string {
	return fmt.Sprintf("standings/%d", eventID)
}

// Standings returns the cached standings of an event, building them on a
// miss. The result is shared between callers and must not be modified.
func (b *Board) Standings(ctx context.Context, eventID uint) (*Standings, error) {
	key := cacheKey(eventID)
	if item := b.cache.Get(key); item != nil && !item.Expired() {
		return item.Value().(*Standings), nil
	}

	// Shared by every waiter on key, detached from the starter's cancellation.
	buildCtx := context.WithoutCancel(ctx)
	ch := b.group.DoChan(key, func() (interface{}, error) {
		buildCtx, cancel := context.WithTimeout(buildCtx, b.buildTimeout)
		defer cancel()

		generation := b.generation(eventID)
		standings, err := b.build(buildCtx, eventID)
		if err != nil {
			return nil, err
		}
		// Standings built from data that changed mid-build are returned but
		// not cached.
		if b.generation(eventID) == generation {
			b.cache.Set(key, standings, b.ttl)
		}
		return standings, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Standings), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (b *Board) build(ctx context.Context, eventID uint) (*Standings, error) {
	start := time.Now()
	defer func() { b.observe(time.Since(start)) }()

	event, err := b.source.FindEvent(ctx, eventID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find event")
	}
	teams, err := b.source.ListTeams(ctx, eventID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list teams")
	}
	aggregates, err := b.source.ListEventAggregates(ctx, eventID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list team scores")
	}

	standings := Rank(*event, teams, aggregates)
	b.log.Debug("Built standings", lf.EventID(eventID), zap.Int("teams", len(standings.Entries)))
	return standings, nil
}

func (b *Board) generation(eventID uint) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.generations[eventID]
}

func (b *Board) Invalidate(eventID uint) {
	b.mu.Lock()
	b.generations[eventID]++
	b.mu.Unlock()

	b.cache.Delete(cacheKey(eventID))
	b.group.Forget(cacheKey(eventID))
}

// Attach drops cached standings whenever something in the event changes.
func (b *Board) Attach(hub *live.Hub) (detach func()) {
	return hub.Subscribe(live.All(), func(e live.Event) {
		b.Invalidate(e.EventID)
	})
}

func (b *Board) Stop() {
	b.cache.Stop()
}
