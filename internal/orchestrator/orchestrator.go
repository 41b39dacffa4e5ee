package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/fyrsmithlabs/sovereign/internal/events"
	"github.com/fyrsmithlabs/sovereign/internal/logging"
	"go.uber.org/zap"
)

// Orchestrator runs commands through plan, dispatch and self-repair.
//
// Sessions are independent: each Process call keeps its own subtask list
// and output log. Two things are shared across sessions: the active goals
// history and the provider gate, which serializes every provider call
// unless WithConcurrentProviders is set.
type Orchestrator struct {
	providers Providers
	logger    *logging.Logger
	publisher events.Publisher
	gate      sync.Locker

	mu          sync.RWMutex
	activeGoals []string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithPublisher sets the session event publisher.
func WithPublisher(p events.Publisher) Option {
	return func(o *Orchestrator) {
		if p != nil {
			o.publisher = p
		}
	}
}

// WithConcurrentProviders lets provider calls from different sessions run
// in parallel.
func WithConcurrentProviders() Option {
	return func(o *Orchestrator) {
		o.gate = noopLocker{}
	}
}

// New creates an orchestrator over the given providers.
func New(providers Providers, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		providers:   providers,
		logger:      logging.NewNop(),
		publisher:   events.NopPublisher{},
		gate:        &sync.Mutex{},
		activeGoals: []string{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ActiveGoals returns a copy of every command submitted so far, oldest first.
func (o *Orchestrator) ActiveGoals() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()

	goals := make([]string, len(o.activeGoals))
	copy(goals, o.activeGoals)
	return goals
}

func (o *Orchestrator) appendGoal(command string) {
	o.mu.Lock()
	o.activeGoals = append(o.activeGoals, command)
	o.mu.Unlock()
}

// call runs fn while holding the provider gate. A panicking provider is
// reported as an error.
func (o *Orchestrator) call(fn func() error) (err error) {
	o.gate.Lock()
	defer o.gate.Unlock()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("provider panic: %v", r)
		}
	}()
	return fn()
}

func (o *Orchestrator) publish(ctx context.Context, ev events.Event) {
	if err := o.publisher.Publish(ctx, ev); err != nil {
		o.logger.Debug(ctx, "event publish failed",
			zap.String("event", string(ev.Type)),
			zap.Error(err),
		)
	}
}

type noopLocker struct{}

func (noopLocker) Lock()   {}
func (noopLocker) Unlock() {}
