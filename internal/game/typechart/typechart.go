// Package typechart holds the static element effectiveness table used by the
// battle engine. It has no state.
package typechart

// Element is the elemental type of a move or species.
type Element string

const (
	Normal   Element = "normal"
	Fire     Element = "fire"
	Water    Element = "water"
	Grass    Element = "grass"
	Electric Element = "electric"
	Earth    Element = "earth"
	Wind     Element = "wind"
	Shadow   Element = "shadow"
	Light    Element = "light"
)

// Multipliers for the two-tier chart.
const (
	SuperEffective   = 1.5
	Neutral          = 1.0
	NotVeryEffective = 0.75
)

// Effectiveness classifies a multiplier for display.
type Effectiveness int

const (
	EffectNeutral Effectiveness = iota
	EffectStrong
	EffectWeak
)

// String returns a human-readable effectiveness label.
func (e Effectiveness) String() string {
	switch e {
	case EffectStrong:
		return "strong"
	case EffectWeak:
		return "weak"
	default:
		return "neutral"
	}
}

type matchup struct {
	strong []Element
	weak   []Element
}

// chart maps an attacking element to the defending elements it hits hard and
// the ones that resist it. Pairs not listed are neutral.
var chart = map[Element]matchup{
	Fire:     {strong: []Element{Grass, Wind}, weak: []Element{Water, Earth}},
	Water:    {strong: []Element{Fire, Earth}, weak: []Element{Grass, Electric}},
	Grass:    {strong: []Element{Water, Earth}, weak: []Element{Fire, Wind}},
	Electric: {strong: []Element{Water, Wind}, weak: []Element{Earth, Grass}},
	Earth:    {strong: []Element{Electric, Fire}, weak: []Element{Grass, Wind}},
	Wind:     {strong: []Element{Grass, Earth}, weak: []Element{Electric}},
	Shadow:   {strong: []Element{Light}, weak: []Element{Shadow}},
	Light:    {strong: []Element{Shadow}, weak: []Element{Light}},
}

// Elements returns every known element in declaration order.
func Elements() []Element {
	return []Element{Normal, Fire, Water, Grass, Electric, Earth, Wind, Shadow, Light}
}

// Valid reports whether e is a known element.
func Valid(e Element) bool {
	for _, known := range Elements() {
		if known == e {
			return true
		}
	}
	return false
}

// Classify returns the effectiveness tier of attack against defend.
//
// Postcondition: Returns EffectNeutral for unknown elements.
func Classify(attack, defend Element) Effectiveness {
	m, ok := chart[attack]
	if !ok {
		return EffectNeutral
	}
	for _, e := range m.strong {
		if e == defend {
			return EffectStrong
		}
	}
	for _, e := range m.weak {
		if e == defend {
			return EffectWeak
		}
	}
	return EffectNeutral
}

// Multiplier returns the damage multiplier of attack against defend.
//
// Postcondition: Returns one of SuperEffective, Neutral, NotVeryEffective.
func Multiplier(attack, defend Element) float64 {
	switch Classify(attack, defend) {
	case EffectStrong:
		return SuperEffective
	case EffectWeak:
		return NotVeryEffective
	default:
		return Neutral
	}
}

// Describe returns the battle note for an off-neutral multiplier, or "" when
// the multiplier is neutral.
func Describe(multiplier float64) string {
	switch {
	case multiplier > Neutral:
		return "Super effective!"
	case multiplier < Neutral:
		return "Not very effective..."
	default:
		return ""
	}
}
