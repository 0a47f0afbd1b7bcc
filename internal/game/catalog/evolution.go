package catalog

import "fmt"

// EvolutionMethod discriminates the EvolutionRule variants.
type EvolutionMethod string

const (
	MethodLevel      EvolutionMethod = "level"
	MethodFriendship EvolutionMethod = "friendship"
	MethodUseItem    EvolutionMethod = "useItem"
	MethodRegion     EvolutionMethod = "region"
	MethodTimed      EvolutionMethod = "timed"
)

// Parity restricts a timed evolution to odd or even levels.
type Parity string

const (
	ParityAny  Parity = ""
	ParityOdd  Parity = "odd"
	ParityEven Parity = "even"
)

// EvolutionRule describes how a species evolves. Method selects which of the
// remaining fields apply:
//
//	level:      AtLevel
//	friendship: FriendshipLevel, MinLevel (default 1)
//	useItem:    ItemID, MinLevel (default 1)
//	region:     AtLevel, MapIDs
//	timed:      AtLevel, StoryFlag, Parity
type EvolutionRule struct {
	Method          EvolutionMethod `yaml:"method"`
	To              string          `yaml:"to"`
	AtLevel         int             `yaml:"at_level"`
	FriendshipLevel int             `yaml:"friendship_level"`
	MinLevel        int             `yaml:"min_level"`
	ItemID          string          `yaml:"item_id"`
	MapIDs          []string        `yaml:"map_ids"`
	StoryFlag       string          `yaml:"story_flag"`
	Parity          Parity          `yaml:"parity"`
}

// EffectiveMinLevel returns MinLevel, defaulting to 1.
func (r *EvolutionRule) EffectiveMinLevel() int {
	return max(r.MinLevel, 1)
}

// Validate checks that the fields required by Method are present.
func (r *EvolutionRule) Validate() error {
	if r.To == "" {
		return fmt.Errorf("evolution: to must not be empty")
	}
	switch r.Method {
	case MethodLevel:
		if r.AtLevel < 1 {
			return fmt.Errorf("evolution %s: at_level must be >= 1", r.Method)
		}
	case MethodFriendship:
		if r.FriendshipLevel < 1 {
			return fmt.Errorf("evolution %s: friendship_level must be >= 1", r.Method)
		}
	case MethodUseItem:
		if r.ItemID == "" {
			return fmt.Errorf("evolution %s: item_id must not be empty", r.Method)
		}
	case MethodRegion:
		if r.AtLevel < 1 {
			return fmt.Errorf("evolution %s: at_level must be >= 1", r.Method)
		}
		if len(r.MapIDs) == 0 {
			return fmt.Errorf("evolution %s: map_ids must not be empty", r.Method)
		}
	case MethodTimed:
		if r.AtLevel < 1 {
			return fmt.Errorf("evolution %s: at_level must be >= 1", r.Method)
		}
		if r.StoryFlag == "" {
			return fmt.Errorf("evolution %s: story_flag must not be empty", r.Method)
		}
		switch r.Parity {
		case ParityAny, ParityOdd, ParityEven:
		default:
			return fmt.Errorf("evolution %s: parity must be odd, even or empty, got %q", r.Method, r.Parity)
		}
	default:
		return fmt.Errorf("evolution: unknown method %q", r.Method)
	}
	return nil
}
