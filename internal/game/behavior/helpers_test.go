package behavior_test

import "github.com/cory-johannsen/skirmish/internal/game/behavior"

// scripted is a leaf that replays a fixed list of statuses and counts ticks.
// Once the list is exhausted it repeats the last entry.
type scripted struct {
	name   string
	seq    []behavior.Status
	ticks  int
	resets int
}

func newScripted(name string, seq ...behavior.Status) *scripted {
	return &scripted{name: name, seq: seq}
}

func (s *scripted) Name() string { return s.name }

func (s *scripted) Tick(*behavior.Context) behavior.Status {
	i := s.ticks
	if i >= len(s.seq) {
		i = len(s.seq) - 1
	}
	s.ticks++
	return s.seq[i]
}

func (s *scripted) Reset() { s.resets++ }

// counter returns an Action that records its tick count in ctx under key.
func counter(name, key string, st behavior.Status) *behavior.Action {
	return behavior.NewAction(name, func(ctx *behavior.Context) (behavior.Status, error) {
		n, _ := ctx.Int(key)
		ctx.Set(key, n+1)
		return st, nil
	})
}
