package pipeline

import (
	"context"
	"time"

	"github.com/ketram/parley/pkg/domain"
)

// waitPollInterval is how often a waiting condition re-reads the state store.
const waitPollInterval = 10 * time.Millisecond

// Always is the default start condition: the component runs every turn.
func Always(context.Context, *domain.Context, *Pipeline) bool { return true }

// ServiceFinished requires the component at path to have finished this turn.
//
// With wait set, the condition polls until the dependency leaves the NOT_RUN
// and RUNNING states, so a component in a concurrent group can start as soon
// as its dependency completes. The wait is unbounded; cancelling ctx stops
// it and yields false. Without wait, the dependency's state is read once at
// dispatch time.
func ServiceFinished(path string, wait bool) StartCondition {
	return func(ctx context.Context, dc *domain.Context, p *Pipeline) bool {
		states := dc.FrameworkData.ServiceStates
		st := states.Get(path)
		if wait {
			ticker := time.NewTicker(waitPollInterval)
			defer ticker.Stop()
			for st == domain.StateNotRun || st == domain.StateRunning {
				select {
				case <-ctx.Done():
					return false
				case <-ticker.C:
					st = states.Get(path)
				}
			}
		}
		return st == domain.StateFinished
	}
}

// Not inverts a condition.
func Not(cond StartCondition) StartCondition {
	return func(ctx context.Context, dc *domain.Context, p *Pipeline) bool {
		return !cond(ctx, dc, p)
	}
}

// Aggregate combines conditions with a custom reducer over their results.
// Conditions are evaluated in order, all of them.
func Aggregate(reduce func(results []bool) bool, conds ...StartCondition) StartCondition {
	return func(ctx context.Context, dc *domain.Context, p *Pipeline) bool {
		results := make([]bool, len(conds))
		for i, cond := range conds {
			results[i] = cond(ctx, dc, p)
		}
		return reduce(results)
	}
}

// All passes when every condition passes.
func All(conds ...StartCondition) StartCondition {
	return Aggregate(func(results []bool) bool {
		for _, r := range results {
			if !r {
				return false
			}
		}
		return true
	}, conds...)
}

// Any passes when at least one condition passes.
func Any(conds ...StartCondition) StartCondition {
	return Aggregate(func(results []bool) bool {
		for _, r := range results {
			if r {
				return true
			}
		}
		return false
	}, conds...)
}
