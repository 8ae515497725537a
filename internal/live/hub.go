// Package live fans out aggregate changes to in-process subscribers: the
// leaderboard cache, SSE streams and the Telegram notifier.
package live

import (
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	lf "github.com/bigredeye/notmanyjudges/internal/logfield"
	"github.com/bigredeye/notmanyjudges/internal/models"
)

type Kind string

const (
	KindPanelSubmitted       Kind = "panel_submitted"
	KindAverageRecomputed    Kind = "average_recomputed"
	KindFeedbackConsolidated Kind = "feedback_consolidated"
	KindTeamDeleted          Kind = "team_deleted"
)

type Event struct {
	Kind      Kind               `json:"kind"`
	EventID   uint               `json:"eventId"`
	TeamID    uint               `json:"teamId"`
	Panel     models.PanelSlot   `json:"panel,omitempty"`
	Aggregate *models.TeamScores `json:"aggregate,omitempty"`
}

type Filter func(e *Event) bool

func All() Filter {
	return func(*Event) bool { return true }
}

func ForTeam(teamID uint) Filter {
	return func(e *Event) bool { return e.TeamID == teamID }
}

func ForEvent(eventID uint) Filter {
	return func(e *Event) bool { return e.EventID == eventID }
}

// Callback is invoked synchronously from Publish and must not block.
type Callback func(e Event)

type subscription struct {
	filter   Filter
	callback Callback
}

type Hub struct {
	log *zap.Logger

	mu     sync.RWMutex
	subs   map[uint64]*subscription
	lastID atomic.Uint64
	closed atomic.Bool

	onCountChange func(count int)
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		log:  log.Named("live"),
		subs: make(map[uint64]*subscription),
	}
}

// OnSubscribersChanged registers a hook for the current subscriber count.
func (h *Hub) OnSubscribersChanged(hook func(count int)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onCountChange = hook
}

// Subscribe registers callback for events accepted by filter. The returned
// function unsubscribes; calling it more than once is harmless.
func (h *Hub) Subscribe(filter Filter, callback Callback) (unsubscribe func()) {
	if filter == nil {
		filter = All()
	}
	if h.closed.Load() {
		return func() {}
	}

	id := h.lastID.Inc()

	h.mu.Lock()
	h.subs[id] = &subscription{filter: filter, callback: callback}
	count := len(h.subs)
	hook := h.onCountChange
	h.mu.Unlock()

	if hook != nil {
		hook(count)
	}

	var once sync.Once
	return func() {
		once.Do(func() { h.remove(id) })
	}
}

func (h *Hub) remove(id uint64) {
	h.mu.Lock()
	delete(h.subs, id)
	count := len(h.subs)
	hook := h.onCountChange
	h.mu.Unlock()

	if hook != nil {
		hook(count)
	}
}

func (h *Hub) Publish(e Event) {
	if h.closed.Load() {
		return
	}

	h.mu.RLock()
	targets := make([]Callback, 0, len(h.subs))
	for _, sub := range h.subs {
		if sub.filter(&e) {
			targets = append(targets, sub.callback)
		}
	}
	h.mu.RUnlock()

	h.log.Debug("Publishing live event",
		zap.String("kind", string(e.Kind)),
		lf.EventID(e.EventID),
		lf.TeamID(e.TeamID),
		lf.Subscribers(len(targets)),
	)

	for _, callback := range targets {
		callback(e)
	}
}

func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close drops every subscriber; later Publish and Subscribe calls are no-ops.
func (h *Hub) Close() {
	h.closed.Store(true)

	h.mu.Lock()
	h.subs = make(map[uint64]*subscription)
	hook := h.onCountChange
	h.mu.Unlock()

	if hook != nil {
		hook(0)
	}
}
