package effect

import (
	"errors"
	"fmt"

	"github.com/Dreyzab/grenzwanderer-sub000/pkg/player"
)

// Kind discriminates effect payloads.
type Kind string

const (
	KindSetStat     Kind = "set_stat"     // set attribute to Value
	KindAddStat     Kind = "add_stat"     // add Value to attribute, floor-clamped at 0
	KindAddSkill    Kind = "add_skill"    // add Value to a skill, floor-clamped at 0
	KindAddItem     Kind = "add_item"     // merge Quantity into inventory
	KindRemoveItem  Kind = "remove_item"  // remove Quantity, clamp at 0 and drop entry
	KindSetFlag     Kind = "set_flag"     // set quest variable Flag to To
	KindAddRelation Kind = "add_relation" // adjust standing with Character (may go negative)
)

// ErrUnknownKind marks an effect payload with an unrecognized kind.
// The single effect is skipped; the rest of the list still applies.
var ErrUnknownKind = errors.New("unknown effect kind")

// Effect is one mutation of player state. Effects apply in list order.
type Effect struct {
	Kind Kind `json:"kind"`

	// KindSetStat / KindAddStat / KindAddSkill
	Stat  string  `json:"stat,omitempty"`
	Value float64 `json:"value,omitempty"`
	// AllowNegative disables the floor clamp for add_stat.
	AllowNegative bool `json:"allow_negative,omitempty"`

	// KindAddItem / KindRemoveItem
	Item     string `json:"item,omitempty"`
	Quantity int    `json:"quantity,omitempty"` // 0 means 1

	// KindSetFlag
	Flag string `json:"flag,omitempty"`
	To   string `json:"to,omitempty"`

	// KindAddRelation
	Character string `json:"character,omitempty"`
}

// Apply computes a new player snapshot with all effects applied in
// order. The input snapshot is never mutated. An empty list returns a
// copy equal by value to the input.
//
// Unknown kinds are skipped; each skip is reported in the returned
// warning slice (wrapping ErrUnknownKind) so the caller can log it.
func Apply(effects []Effect, ps *player.State) (*player.State, []error) {
	out := ps.Clone()
	var warnings []error

	for i, e := range effects {
		switch e.Kind {
		case KindSetStat:
			out.Attributes[e.Stat] = e.Value

		case KindAddStat:
			v := out.Attributes[e.Stat] + e.Value
			if v < 0 && !e.AllowNegative {
				v = 0
			}
			out.Attributes[e.Stat] = v

		case KindAddSkill:
			v := out.Skills[e.Stat] + int(e.Value)
			if v < 0 {
				v = 0
			}
			out.Skills[e.Stat] = v

		case KindAddItem:
			out.Inventory[e.Item] += quantity(e)

		case KindRemoveItem:
			v := out.Inventory[e.Item] - quantity(e)
			if v <= 0 {
				delete(out.Inventory, e.Item)
			} else {
				out.Inventory[e.Item] = v
			}

		case KindSetFlag:
			out.Flags[e.Flag] = e.To

		case KindAddRelation:
			out.Relationships[e.Character] += int(e.Value)

		default:
			warnings = append(warnings, fmt.Errorf("%w: %q at index %d", ErrUnknownKind, e.Kind, i))
		}
	}

	return out, warnings
}

func quantity(e Effect) int {
	if e.Quantity <= 0 {
		return 1
	}
	return e.Quantity
}
