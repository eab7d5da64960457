package effects

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prohmpiriya/eventic-admission/internal/domain"
)

// ConditionKind tags the variant of a rule condition
type ConditionKind string

const (
	ConditionDate         ConditionKind = "date"
	ConditionNameContains ConditionKind = "name_contains"
	ConditionAlways       ConditionKind = "always"
)

var (
	ErrInvalidRule        = errors.New("invalid effect rule")
	ErrInvalidProbability = errors.New("probability must be in (0, 1]")
)

// Condition decides whether a rule applies to an event. Only the fields of
// the tagged kind are read.
type Condition struct {
	Kind ConditionKind `yaml:"kind"`
	// Date is MM-DD, compared with the event start date in UTC
	Date     string   `yaml:"date,omitempty"`
	Keywords []string `yaml:"keywords,omitempty"`
}

// Matches evaluates the condition against an event
func (c Condition) Matches(event *domain.Event) bool {
	switch c.Kind {
	case ConditionDate:
		return event.StartsAt.UTC().Format("01-02") == c.Date
	case ConditionNameContains:
		name := strings.ToLower(event.Name)
		for _, kw := range c.Keywords {
			if kw != "" && strings.Contains(name, strings.ToLower(kw)) {
				return true
			}
		}
		return false
	case ConditionAlways:
		return true
	}
	return false
}

func (c Condition) validate() error {
	switch c.Kind {
	case ConditionDate:
		if _, err := time.Parse("01-02", c.Date); err != nil {
			return fmt.Errorf("%w: bad date %q", ErrInvalidRule, c.Date)
		}
	case ConditionNameContains:
		if len(c.Keywords) == 0 {
			return fmt.Errorf("%w: name_contains needs keywords", ErrInvalidRule)
		}
	case ConditionAlways:
	default:
		return fmt.Errorf("%w: unknown condition %q", ErrInvalidRule, c.Kind)
	}
	return nil
}

func (c Condition) String() string {
	switch c.Kind {
	case ConditionDate:
		return "date " + c.Date
	case ConditionNameContains:
		return "name contains " + strings.Join(c.Keywords, "/")
	default:
		return string(c.Kind)
	}
}

// Rule is one row of the thematic effect table
type Rule struct {
	Name        string            `yaml:"name"`
	Effect      domain.EffectType `yaml:"effect"`
	Priority    int               `yaml:"priority"`
	Condition   Condition         `yaml:"condition"`
	Probability float64           `yaml:"probability"`
	// Colors, when present, holds twelve pairs indexed by event month
	Colors []domain.ColorPair `yaml:"colors,omitempty"`
}

// Validate checks the rule is usable
func (r Rule) Validate() error {
	if r.Name == "" || r.Effect == "" {
		return fmt.Errorf("%w: name and effect are required", ErrInvalidRule)
	}
	if r.Probability <= 0 || r.Probability > 1 {
		return fmt.Errorf("%w: rule %s: %w", ErrInvalidRule, r.Name, ErrInvalidProbability)
	}
	if len(r.Colors) != 0 && len(r.Colors) != 12 {
		return fmt.Errorf("%w: rule %s needs 12 colour pairs, got %d", ErrInvalidRule, r.Name, len(r.Colors))
	}
	if err := r.Condition.validate(); err != nil {
		return fmt.Errorf("rule %s: %w", r.Name, err)
	}
	return nil
}

// effectFor renders the won effect for an event
func (r Rule) effectFor(event *domain.Event) *domain.SpecialEffect {
	effect := &domain.SpecialEffect{Type: r.Effect}
	if len(r.Colors) == 12 {
		pair := r.Colors[int(event.StartsAt.UTC().Month())-1]
		effect.Colors = &pair
	}
	return effect
}
