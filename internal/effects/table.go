package effects

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/prohmpiriya/eventic-admission/internal/domain"
)

// monthlyColors are the palette of the fallback rule, January first
var monthlyColors = []domain.ColorPair{
	{Primary: "#1E3A8A", Secondary: "#E0E7FF"},
	{Primary: "#BE185D", Secondary: "#FCE7F3"},
	{Primary: "#15803D", Secondary: "#DCFCE7"},
	{Primary: "#A855F7", Secondary: "#F3E8FF"},
	{Primary: "#F59E0B", Secondary: "#FEF3C7"},
	{Primary: "#0EA5E9", Secondary: "#E0F2FE"},
	{Primary: "#DC2626", Secondary: "#FEE2E2"},
	{Primary: "#EA580C", Secondary: "#FFEDD5"},
	{Primary: "#65A30D", Secondary: "#ECFCCB"},
	{Primary: "#92400E", Secondary: "#FDE68A"},
	{Primary: "#7C2D12", Secondary: "#FED7AA"},
	{Primary: "#0F766E", Secondary: "#CCFBF1"},
}

// DefaultRules returns the built-in thematic table
func DefaultRules() []Rule {
	colors := make([]domain.ColorPair, len(monthlyColors))
	copy(colors, monthlyColors)

	return []Rule{
		{Name: "nice-day", Effect: domain.EffectNice, Priority: 100, Probability: 1.0 / 69,
			Condition: Condition{Kind: ConditionDate, Date: "06-09"}},
		{Name: "pride", Effect: domain.EffectRainbow, Priority: 90, Probability: 1.0 / 100,
			Condition: Condition{Kind: ConditionNameContains, Keywords: []string{"pride", "rainbow"}}},
		{Name: "valentines", Effect: domain.EffectHearts, Priority: 80, Probability: 1.0 / 14,
			Condition: Condition{Kind: ConditionDate, Date: "02-14"}},
		{Name: "halloween", Effect: domain.EffectSpooky, Priority: 80, Probability: 1.0 / 88,
			Condition: Condition{Kind: ConditionDate, Date: "10-31"}},
		{Name: "christmas", Effect: domain.EffectSnowflakes, Priority: 80, Probability: 1.0 / 25,
			Condition: Condition{Kind: ConditionDate, Date: "12-25"}},
		{Name: "new-year", Effect: domain.EffectFireworks, Priority: 80, Probability: 1.0 / 365,
			Condition: Condition{Kind: ConditionDate, Date: "01-01"}},
		{Name: "party", Effect: domain.EffectConfetti, Priority: 70, Probability: 1.0 / 100,
			Condition: Condition{Kind: ConditionNameContains, Keywords: []string{"party"}}},
		{Name: "monthly", Effect: domain.EffectMonthly, Priority: 10, Probability: 1.0 / 30,
			Condition: Condition{Kind: ConditionAlways}, Colors: colors},
	}
}

// Table is a validated rule list ordered by descending priority. Rules of
// equal priority keep their declared order.
type Table struct {
	rules []Rule
}

// NewTable validates and orders rules
func NewTable(rules []Rule) (*Table, error) {
	sorted := make([]Rule, len(rules))
	copy(sorted, rules)

	seen := make(map[string]struct{}, len(sorted))
	for _, r := range sorted {
		if err := r.Validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[r.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate rule name %s", ErrInvalidRule, r.Name)
		}
		seen[r.Name] = struct{}{}
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority > sorted[j].Priority
	})
	return &Table{rules: sorted}, nil
}

// MustDefaultTable returns the built-in table
func MustDefaultTable() *Table {
	t, err := NewTable(DefaultRules())
	if err != nil {
		panic(err)
	}
	return t
}

// Rules returns the ordered rules
func (t *Table) Rules() []Rule {
	out := make([]Rule, len(t.rules))
	copy(out, t.rules)
	return out
}

// Match returns the single candidate rule for an event: the highest priority
// rule whose condition holds. Lower rules are never consulted after a match.
func (t *Table) Match(event *domain.Event) (Rule, bool) {
	for _, r := range t.rules {
		if r.Condition.Matches(event) {
			return r, true
		}
	}
	return Rule{}, false
}

type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}

// ParseRules decodes a YAML rule document
func ParseRules(data []byte) ([]Rule, error) {
	var f ruleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse effect rules: %w", err)
	}
	if len(f.Rules) == 0 {
		return nil, fmt.Errorf("%w: rule file has no rules", ErrInvalidRule)
	}
	return f.Rules, nil
}

// LoadTable reads a YAML rule file. An empty path yields the built-in table.
func LoadTable(path string) (*Table, error) {
	if path == "" {
		return NewTable(DefaultRules())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read effect rules: %w", err)
	}
	rules, err := ParseRules(data)
	if err != nil {
		return nil, err
	}
	return NewTable(rules)
}

// MarshalRules renders rules as YAML, the format LoadTable reads
func MarshalRules(rules []Rule) ([]byte, error) {
	return yaml.Marshal(&ruleFile{Rules: rules})
}
