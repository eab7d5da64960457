package domain

// EffectType names a cosmetic effect rendered on a validated ticket
type EffectType string

const (
	EffectNice       EffectType = "nice"
	EffectRainbow    EffectType = "rainbow"
	EffectHearts     EffectType = "hearts"
	EffectSpooky     EffectType = "spooky"
	EffectSnowflakes EffectType = "snowflakes"
	EffectFireworks  EffectType = "fireworks"
	EffectConfetti   EffectType = "confetti"
	EffectMonthly    EffectType = "monthly"
)

// ColorPair is the palette carried by colour-keyed effects
type ColorPair struct {
	Primary   string `json:"primary" yaml:"primary"`
	Secondary string `json:"secondary" yaml:"secondary"`
}

// SpecialEffect is the effect stored on a ticket
type SpecialEffect struct {
	Type   EffectType `json:"type"`
	Colors *ColorPair `json:"colors,omitempty"`
}

// EffectAssignment is the result of a first-grant draw
type EffectAssignment struct {
	Golden bool
	Effect *SpecialEffect
	// Rule is the matched rule name, empty when no thematic rule matched
	Rule string
}
