package effects

import (
	"github.com/prohmpiriya/eventic-admission/internal/domain"
)

// Engine draws the golden ticket flag and the thematic effect for a ticket's
// first grant. It never reads or writes storage.
type Engine interface {
	Assign(event *domain.Event, ticket *domain.Ticket) domain.EffectAssignment
	// Assigner binds the engine to an event for TicketRepository.Admit
	Assigner(event *domain.Event) domain.AssignFunc
	Table() *Table
}

// EngineConfig holds the engine dependencies
type EngineConfig struct {
	Table *Table
	Rand  Rand
	// GoldenProbability applies when the event sets none
	GoldenProbability float64
}

type engine struct {
	table  *Table
	rng    Rand
	golden float64
}

// NewEngine creates an engine, falling back to the built-in table and a
// crypto-seeded source
func NewEngine(cfg *EngineConfig) Engine {
	if cfg == nil {
		cfg = &EngineConfig{}
	}

	e := &engine{
		table:  cfg.Table,
		rng:    cfg.Rand,
		golden: cfg.GoldenProbability,
	}
	if e.table == nil {
		e.table = MustDefaultTable()
	}
	if e.rng == nil {
		e.rng = NewRand(0)
	}
	if e.golden < 0 || e.golden > 1 {
		e.golden = 0
	}
	return e
}

// Assign performs both draws. The golden draw happens first, so for a fixed
// source the golden trial always consumes the first value.
func (e *engine) Assign(event *domain.Event, ticket *domain.Ticket) domain.EffectAssignment {
	var out domain.EffectAssignment
	if event == nil {
		return out
	}

	if event.GoldenTicketEnabled && (ticket == nil || !ticket.IsGoldenTicket) {
		out.Golden = e.draw(e.goldenProbability(event))
	}

	if event.SpecialEffectsEnabled && (ticket == nil || ticket.SpecialEffect == nil) {
		rule, ok := e.table.Match(event)
		if ok {
			out.Rule = rule.Name
			if e.draw(rule.Probability) {
				out.Effect = rule.effectFor(event)
			}
		}
	}

	return out
}

func (e *engine) Assigner(event *domain.Event) domain.AssignFunc {
	return func(t *domain.Ticket) domain.EffectAssignment {
		return e.Assign(event, t)
	}
}

func (e *engine) Table() *Table {
	return e.table
}

func (e *engine) goldenProbability(event *domain.Event) float64 {
	if p := event.GoldenTicketProbability; p != nil && *p >= 0 && *p <= 1 {
		return *p
	}
	return e.golden
}

func (e *engine) draw(p float64) bool {
	if p <= 0 {
		return false
	}
	return e.rng.Float64() < p
}
