package agent

import (
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/ability"
	"github.com/cory-johannsen/skirmish/internal/game/behavior"
)

// DefaultSpeed is the movement speed in meters per second used by
// move_to_target and flee when no speed arg is given.
const DefaultSpeed = 5.0

// Leaves returns a LeafRegistry whose factories are bound to a.
//
// Conditions: has_target, target_in_range, ability_ready, health_below, is_stunned.
// Actions: use_ability, move_to_target, flee, idle.
func (a *Agent) Leaves() *behavior.LeafRegistry {
	reg := behavior.NewLeafRegistry()
	mustRegister(reg.RegisterCondition("has_target", a.hasTarget))
	mustRegister(reg.RegisterCondition("target_in_range", a.targetInRange))
	mustRegister(reg.RegisterCondition("ability_ready", a.abilityReady))
	mustRegister(reg.RegisterCondition("health_below", a.healthBelow))
	mustRegister(reg.RegisterCondition("is_stunned", a.isStunned))
	mustRegister(reg.RegisterAction("use_ability", a.useAbility))
	mustRegister(reg.RegisterAction("move_to_target", a.moveToTarget))
	mustRegister(reg.RegisterAction("flee", a.flee))
	mustRegister(reg.RegisterAction("idle", idle))
	return reg
}

func mustRegister(err error) {
	if err != nil {
		panic("agent.Leaves: " + err.Error())
	}
}

// hasTarget keeps a still-valid selection, else picks the nearest living
// enemy within the optional range arg. It writes target.id and target.distance.
func (a *Agent) hasTarget(args map[string]string) (behavior.Predicate, error) {
	maxRange, err := floatArg(args, "range", 0)
	if err != nil {
		return nil, err
	}
	return func(ctx *behavior.Context) (bool, error) {
		if sel := a.world.SelectedEntity(a.entity.ID()); sel != nil && sel.Alive() && a.entity.HostileTo(sel) {
			d := a.entity.DistanceTo(sel)
			if maxRange <= 0 || d <= maxRange {
				ctx.Set(KeyTargetID, sel.ID())
				ctx.Set(KeyTargetDist, d)
				return true, nil
			}
		}
		best, d := a.world.NearestHostile(a.entity, maxRange)
		if best == nil {
			ctx.Delete(KeyTargetID)
			ctx.Delete(KeyTargetDist)
			return false, nil
		}
		ctx.Set(KeyTargetID, best.ID())
		ctx.Set(KeyTargetDist, d)
		return true, nil
	}, nil
}

// targetInRange compares the distance to target.id against the range arg,
// or against the range of the ability arg.
func (a *Agent) targetInRange(args map[string]string) (behavior.Predicate, error) {
	maxRange, err := floatArg(args, "range", 0)
	if err != nil {
		return nil, err
	}
	if id := args["ability"]; id != "" {
		ex, ok := a.abilities.Get(id)
		if !ok {
			return nil, fmt.Errorf("target_in_range: unknown ability %q", id)
		}
		maxRange = ex.Def().Range
	}
	if maxRange <= 0 {
		return nil, fmt.Errorf("target_in_range: requires range > 0 or an ability with a range")
	}
	return func(ctx *behavior.Context) (bool, error) {
		t := a.target(ctx)
		if t == nil {
			return false, nil
		}
		d := a.entity.DistanceTo(t)
		ctx.Set(KeyTargetDist, d)
		return d <= maxRange, nil
	}, nil
}

// abilityReady reports CanUse against the current target and records the
// rejection reason at ability.<id>.reason.
func (a *Agent) abilityReady(args map[string]string) (behavior.Predicate, error) {
	ex, err := a.abilityArg("ability_ready", args)
	if err != nil {
		return nil, err
	}
	key := "ability." + ex.Def().ID + ".reason"
	return func(ctx *behavior.Context) (bool, error) {
		var v ability.Verdict
		if t := a.target(ctx); t != nil {
			v = ex.CanUse(t)
		} else {
			v = ex.CanUse(nil)
		}
		if v.OK {
			ctx.Delete(key)
			return true, nil
		}
		ctx.Set(key, v.Reason)
		return false, nil
	}, nil
}

func (a *Agent) healthBelow(args map[string]string) (behavior.Predicate, error) {
	pct, err := floatArg(args, "percent", -1)
	if err != nil {
		return nil, err
	}
	if pct < 0 || pct > 100 {
		return nil, fmt.Errorf("health_below: percent must be within 0-100")
	}
	return func(*behavior.Context) (bool, error) {
		return a.entity.Resources().HealthFraction()*100 < pct, nil
	}, nil
}

func (a *Agent) isStunned(map[string]string) (behavior.Predicate, error) {
	return func(*behavior.Context) (bool, error) {
		return a.entity.Stunned(), nil
	}, nil
}

// useAbility starts the ability against target.id (or lets it resolve its own
// target) and reports Running until the execution finishes.
func (a *Agent) useAbility(args map[string]string) (behavior.ActionFunc, error) {
	ex, err := a.abilityArg("use_ability", args)
	if err != nil {
		return nil, err
	}
	id := ex.Def().ID
	return func(ctx *behavior.Context) (behavior.Status, error) {
		if x := a.pending[id]; x != nil {
			if !x.Finished() {
				return behavior.Running, nil
			}
			delete(a.pending, id)
			return finished(x), nil
		}
		var x *ability.Execution
		if t := a.target(ctx); t != nil {
			x = ex.Execute(t)
		} else {
			x = ex.Execute(nil)
		}
		if !x.Finished() {
			a.pending[id] = x
			return behavior.Running, nil
		}
		if !x.Result() {
			ctx.Set("ability."+id+".reason", x.Reason())
			a.logger.Debug("ability rejected", zap.String("ability", id), zap.String("reason", x.Reason()))
		}
		return finished(x), nil
	}, nil
}

func finished(x *ability.Execution) behavior.Status {
	if x.Result() {
		return behavior.Success
	}
	return behavior.Failure
}

// moveToTarget walks toward target.id at speed until within stop meters.
func (a *Agent) moveToTarget(args map[string]string) (behavior.ActionFunc, error) {
	stop, err := floatArg(args, "stop", 1)
	if err != nil {
		return nil, err
	}
	speed, err := floatArg(args, "speed", DefaultSpeed)
	if err != nil {
		return nil, err
	}
	if stop < 0 || speed <= 0 {
		return nil, fmt.Errorf("move_to_target: stop must be >= 0 and speed > 0")
	}
	return func(ctx *behavior.Context) (behavior.Status, error) {
		t := a.target(ctx)
		if t == nil {
			return behavior.Failure, nil
		}
		d := a.entity.DistanceTo(t)
		if d <= stop {
			ctx.Set(KeyTargetDist, d)
			return behavior.Success, nil
		}
		step := speed * a.dt().Seconds()
		if gap := d - stop; step > gap {
			step = gap
		}
		a.entity.SetPosition(a.entity.Position().MoveToward(t.Position(), step))
		d = a.entity.DistanceTo(t)
		ctx.Set(KeyTargetDist, d)
		if d <= stop+1e-9 {
			return behavior.Success, nil
		}
		return behavior.Running, nil
	}, nil
}

// flee moves directly away from the nearest enemy until at least distance
// meters separate them. With no enemy left it succeeds.
func (a *Agent) flee(args map[string]string) (behavior.ActionFunc, error) {
	distance, err := floatArg(args, "distance", 10)
	if err != nil {
		return nil, err
	}
	speed, err := floatArg(args, "speed", DefaultSpeed)
	if err != nil {
		return nil, err
	}
	if distance <= 0 || speed <= 0 {
		return nil, fmt.Errorf("flee: distance and speed must be > 0")
	}
	return func(*behavior.Context) (behavior.Status, error) {
		threat, d := a.world.NearestHostile(a.entity, 0)
		if threat == nil || d >= distance {
			return behavior.Success, nil
		}
		pos := a.entity.Position()
		away := pos.Sub(threat.Position())
		if away.Len() == 0 {
			away.X = 1
		}
		step := speed * a.dt().Seconds()
		a.entity.SetPosition(pos.Add(away.Scale(step / away.Len())))
		if a.entity.DistanceTo(threat) >= distance {
			return behavior.Success, nil
		}
		return behavior.Running, nil
	}, nil
}

func idle(map[string]string) (behavior.ActionFunc, error) {
	return behavior.Returns(behavior.Success), nil
}

func (a *Agent) abilityArg(leaf string, args map[string]string) (*ability.Executor, error) {
	id := args["ability"]
	if id == "" {
		return nil, fmt.Errorf("%s: ability arg is required", leaf)
	}
	ex, ok := a.abilities.Get(id)
	if !ok {
		return nil, fmt.Errorf("%s: agent %q has no ability %q", leaf, a.entity.Name(), id)
	}
	return ex, nil
}

func floatArg(args map[string]string, key string, def float64) (float64, error) {
	s, ok := args[key]
	if !ok || s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("arg %q: %w", key, err)
	}
	return v, nil
}
