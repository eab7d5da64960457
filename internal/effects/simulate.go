package effects

import (
	"github.com/prohmpiriya/eventic-admission/internal/domain"
)

// SimulationResult counts draw outcomes over repeated first grants
type SimulationResult struct {
	Trials  int
	Golden  int
	Effects map[domain.EffectType]int
	// Rule is the rule that matched the event, empty if none did
	Rule string
}

// Simulate runs n independent first-grant draws for the event
func Simulate(engine Engine, event *domain.Event, n int) SimulationResult {
	res := SimulationResult{Trials: n, Effects: make(map[domain.EffectType]int)}
	for i := 0; i < n; i++ {
		a := engine.Assign(event, &domain.Ticket{})
		if a.Golden {
			res.Golden++
		}
		if a.Effect != nil {
			res.Effects[a.Effect.Type]++
		}
		res.Rule = a.Rule
	}
	return res
}
