// Package sim drives every agent, ability and effect from a single owner.
// One Step advances the whole world by one tick in a fixed order, so no
// ability or tree ever runs on a timer of its own.
package sim

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/agent"
	"github.com/cory-johannsen/skirmish/internal/game/clock"
	"github.com/cory-johannsen/skirmish/internal/game/world"
	"github.com/cory-johannsen/skirmish/internal/observability"
)

// Stats summarizes the loop's progress.
type Stats struct {
	Steps      uint64
	AgentTicks uint64
	Deaths     int
	Expired    int
	SimTime    time.Duration
}

// Loop owns the simulation step.
//
// Invariant: Step is never re-entered; all agents and abilities are advanced
// only from Step.
type Loop struct {
	world    *world.World
	clock    clock.Clock
	interval time.Duration
	logger   *zap.Logger
	metrics  *observability.Metrics

	mu     sync.Mutex
	agents []*agent.Agent
	dead   map[*agent.Agent]bool
	start  time.Time
	stats  Stats
}

// NewLoop creates a Loop stepping every interval.
//
// Precondition: w, clk and logger must not be nil; interval must be > 0.
func NewLoop(w *world.World, clk clock.Clock, interval time.Duration, logger *zap.Logger) *Loop {
	if w == nil || clk == nil || logger == nil {
		panic("sim.NewLoop: world, clock and logger must not be nil")
	}
	if interval <= 0 {
		panic("sim.NewLoop: interval must be > 0")
	}
	return &Loop{
		world:    w,
		clock:    clk,
		interval: interval,
		logger:   logger,
		dead:     make(map[*agent.Agent]bool),
	}
}

// SetMetrics attaches m. A nil m disables metrics.
func (l *Loop) SetMetrics(m *observability.Metrics) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.metrics = m
}

// Add registers a in tick order.
//
// Precondition: a has a tree.
func (l *Loop) Add(a *agent.Agent) {
	if a == nil || a.Tree() == nil {
		panic("sim.Loop.Add: agent must not be nil and must have a tree")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.agents = append(l.agents, a)
}

// Agents returns the registered agents in tick order.
func (l *Loop) Agents() []*agent.Agent {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*agent.Agent, len(l.agents))
	copy(out, l.agents)
	return out
}

// Interval returns the configured step interval.
func (l *Loop) Interval() time.Duration { return l.interval }

// Stats returns a snapshot of the loop counters.
func (l *Loop) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}

// Step advances the world to now: expire effects, tick every living agent's
// tree in registration order, advance every ability, then reset the trees of
// agents that died.
func (l *Loop) Step(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	began := time.Now()
	if l.stats.Steps == 0 {
		l.start = now
	}

	l.stats.Expired += l.world.ExpireEffects(now)
	for _, a := range l.agents {
		if !a.Alive() {
			continue
		}
		st := a.Tick(now)
		l.stats.AgentTicks++
		l.logger.Debug("agent ticked",
			zap.String("agent", a.Entity().Name()),
			zap.Stringer("status", st),
		)
	}
	for _, a := range l.agents {
		a.Abilities().AdvanceAll(now)
	}
	for _, a := range l.agents {
		if a.Alive() || l.dead[a] {
			continue
		}
		l.dead[a] = true
		l.stats.Deaths++
		a.Reset()
		l.logger.Info("agent died", zap.String("agent", a.Entity().Name()), zap.String("team", a.Entity().Team()))
	}

	l.stats.Steps++
	l.stats.SimTime = now.Sub(l.start)
	l.metrics.StepTook(time.Since(began))
}

// Winner returns the only team with living agents. ok is false while two or
// more teams are still standing, or when nobody is.
func (l *Loop) Winner() (team string, ok bool) {
	teams := l.LivingTeams()
	if len(teams) != 1 {
		return "", false
	}
	return teams[0], true
}

// LivingTeams returns the sorted teams that still have a living agent.
func (l *Loop) LivingTeams() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	seen := make(map[string]struct{})
	for _, a := range l.agents {
		if a.Alive() {
			seen[a.Entity().Team()] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Run steps on a wall-clock ticker until ctx is cancelled.
//
// Postcondition: returns nil when ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	l.logger.Info("simulation loop started", zap.Duration("interval", l.interval))
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("simulation loop stopped", zap.Uint64("steps", l.Stats().Steps))
			return nil
		case <-ticker.C:
			l.Step(l.clock.Now())
		}
	}
}

// ErrStepLimit is returned by Simulate when maxSteps elapse with two or more
// teams still standing.
var ErrStepLimit = errors.New("sim: step limit reached without a winner")

// Simulate runs up to maxSteps steps on virtual time, advancing clk by the
// loop interval before each step. It stops early once a single team remains.
//
// Precondition: clk is the clock the loop and its abilities read.
// Postcondition: returns the winning team, or ErrStepLimit, or ctx.Err().
func (l *Loop) Simulate(ctx context.Context, clk *clock.Manual, maxSteps int) (string, error) {
	if maxSteps <= 0 {
		return "", fmt.Errorf("sim.Loop.Simulate: maxSteps must be > 0, got %d", maxSteps)
	}
	for i := 0; i < maxSteps; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if team, ok := l.Winner(); ok {
			return team, nil
		}
		l.Step(clk.Advance(l.interval))
	}
	if team, ok := l.Winner(); ok {
		return team, nil
	}
	return "", ErrStepLimit
}
