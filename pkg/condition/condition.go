package condition

import (
	"errors"
	"fmt"

	"github.com/Dreyzab/grenzwanderer-sub000/pkg/player"
)

// Kind discriminates condition payloads.
type Kind string

const (
	KindStat   Kind = "stat"   // numeric comparison on an attribute or skill
	KindItem   Kind = "item"   // inventory contains item with quantity >= n
	KindFlag   Kind = "flag"   // quest variable equals a value
	KindCustom Kind = "custom" // Lua expression, see script.go
)

// Operator is a comparison operator for stat conditions.
type Operator string

const (
	OpGT  Operator = ">"
	OpLT  Operator = "<"
	OpEQ  Operator = "="
	OpGTE Operator = ">="
	OpLTE Operator = "<="
	OpNEQ Operator = "!="
)

// ErrUnknownKind is returned when a condition payload has an
// unrecognized kind or operator. The condition evaluates to false
// (fail closed); callers log and carry on.
var ErrUnknownKind = errors.New("unknown condition kind")

// Condition is a single predicate over a player snapshot. A nil
// *Condition always holds.
type Condition struct {
	Kind Kind `json:"kind"`

	// KindStat
	Stat     string   `json:"stat,omitempty"`
	Operator Operator `json:"operator,omitempty"`
	Value    float64  `json:"value,omitempty"`

	// KindItem
	Item     string `json:"item,omitempty"`
	Quantity int    `json:"quantity,omitempty"` // minimum count; 0 means 1

	// KindFlag
	Flag   string `json:"flag,omitempty"`
	Equals string `json:"equals,omitempty"`

	// KindCustom
	Script string `json:"script,omitempty"`
}

// Evaluate reports whether cond holds for the given player snapshot.
// It is pure: no side effects, and the same inputs always produce the
// same result. Unknown kinds evaluate to false and return
// ErrUnknownKind so the caller can surface a warning.
func Evaluate(cond *Condition, ps *player.State) (bool, error) {
	if cond == nil {
		return true, nil
	}

	switch cond.Kind {
	case KindStat:
		return evaluateStat(cond, ps)

	case KindItem:
		min := cond.Quantity
		if min <= 0 {
			min = 1
		}
		return ps.ItemCount(cond.Item) >= min, nil

	case KindFlag:
		return ps.Flag(cond.Flag) == cond.Equals, nil

	case KindCustom:
		return evaluateScript(cond.Script, ps)

	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownKind, cond.Kind)
	}
}

func evaluateStat(cond *Condition, ps *player.State) (bool, error) {
	// A stat that does not exist yet compares as zero, so content can
	// gate on stats before anything has granted them.
	actual, _ := ps.Stat(cond.Stat)

	switch cond.Operator {
	case OpGT:
		return actual > cond.Value, nil
	case OpLT:
		return actual < cond.Value, nil
	case OpEQ:
		return actual == cond.Value, nil
	case OpGTE:
		return actual >= cond.Value, nil
	case OpLTE:
		return actual <= cond.Value, nil
	case OpNEQ:
		return actual != cond.Value, nil
	default:
		return false, fmt.Errorf("%w: stat operator %q", ErrUnknownKind, cond.Operator)
	}
}
