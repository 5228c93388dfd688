package effect

import (
	"errors"
	"reflect"
	"testing"

	"github.com/Dreyzab/grenzwanderer-sub000/pkg/player"
)

func TestApplyEmptyListIsNoOp(t *testing.T) {
	ps := player.NewState()
	ps.Attributes["energy"] = 7
	ps.Inventory["scrap"] = 2

	out, warnings := Apply(nil, ps)
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if !reflect.DeepEqual(out, ps) {
		t.Error("empty effect list must return a state equal by value")
	}
	if out == ps {
		t.Error("Apply must return a new snapshot, not the input")
	}
}

func TestApplyNeverMutatesInput(t *testing.T) {
	ps := player.NewState()
	ps.Attributes["energy"] = 7
	ps.Inventory["scrap"] = 2

	effects := []Effect{
		{Kind: KindSetStat, Stat: "energy", Value: 1},
		{Kind: KindRemoveItem, Item: "scrap", Quantity: 2},
		{Kind: KindSetFlag, Flag: "done", To: "yes"},
	}
	_, _ = Apply(effects, ps)

	if ps.Attributes["energy"] != 7 {
		t.Error("input attributes were mutated")
	}
	if ps.Inventory["scrap"] != 2 {
		t.Error("input inventory was mutated")
	}
	if _, ok := ps.Flags["done"]; ok {
		t.Error("input flags were mutated")
	}
}

func TestApplyOrderSensitive(t *testing.T) {
	ps := player.NewState()

	setThenAdd := []Effect{
		{Kind: KindSetStat, Stat: "x", Value: 5},
		{Kind: KindAddStat, Stat: "x", Value: 3},
	}
	out, _ := Apply(setThenAdd, ps)
	if got := out.Attributes["x"]; got != 8 {
		t.Errorf("set then add: x = %v, want 8", got)
	}

	addThenSet := []Effect{
		{Kind: KindAddStat, Stat: "x", Value: 3},
		{Kind: KindSetStat, Stat: "x", Value: 5},
	}
	out, _ = Apply(addThenSet, ps)
	if got := out.Attributes["x"]; got != 5 {
		t.Errorf("add then set: x = %v, want 5", got)
	}
}

func TestApplyStatClamping(t *testing.T) {
	ps := player.NewState()
	ps.Attributes["energy"] = 3

	out, _ := Apply([]Effect{{Kind: KindAddStat, Stat: "energy", Value: -10}}, ps)
	if got := out.Attributes["energy"]; got != 0 {
		t.Errorf("clamped stat = %v, want 0", got)
	}

	out, _ = Apply([]Effect{{Kind: KindAddStat, Stat: "energy", Value: -10, AllowNegative: true}}, ps)
	if got := out.Attributes["energy"]; got != -7 {
		t.Errorf("allow_negative stat = %v, want -7", got)
	}
}

func TestApplyItems(t *testing.T) {
	ps := player.NewState()
	ps.Inventory["scrap"] = 2

	tests := []struct {
		name    string
		effects []Effect
		item    string
		want    int
		gone    bool
	}{
		{"grant merges by id", []Effect{{Kind: KindAddItem, Item: "scrap", Quantity: 3}}, "scrap", 5, false},
		{"grant default quantity", []Effect{{Kind: KindAddItem, Item: "toolkit"}}, "toolkit", 1, false},
		{"remove partial", []Effect{{Kind: KindRemoveItem, Item: "scrap"}}, "scrap", 1, false},
		{"remove below zero clamps and drops entry", []Effect{{Kind: KindRemoveItem, Item: "scrap", Quantity: 10}}, "scrap", 0, true},
		{"remove missing item is a no-op entry", []Effect{{Kind: KindRemoveItem, Item: "artifact"}}, "artifact", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, warnings := Apply(tt.effects, ps)
			if len(warnings) != 0 {
				t.Fatalf("unexpected warnings: %v", warnings)
			}
			got, ok := out.Inventory[tt.item]
			if tt.gone {
				if ok {
					t.Errorf("expected %q entry to be removed, found %d", tt.item, got)
				}
				return
			}
			if got != tt.want {
				t.Errorf("inventory[%q] = %d, want %d", tt.item, got, tt.want)
			}
		})
	}
}

func TestApplySkillAndRelation(t *testing.T) {
	ps := player.NewState()
	ps.Skills["mechanics"] = 1
	ps.Relationships["craftsman"] = 0

	out, _ := Apply([]Effect{
		{Kind: KindAddSkill, Stat: "mechanics", Value: 2},
		{Kind: KindAddRelation, Character: "craftsman", Value: -3},
	}, ps)

	if got := out.Skills["mechanics"]; got != 3 {
		t.Errorf("skill = %d, want 3", got)
	}
	if got := out.Relationships["craftsman"]; got != -3 {
		t.Errorf("relationship = %d, want -3 (relations may go negative)", got)
	}

	// Skills clamp at zero.
	out, _ = Apply([]Effect{{Kind: KindAddSkill, Stat: "mechanics", Value: -5}}, ps)
	if got := out.Skills["mechanics"]; got != 0 {
		t.Errorf("clamped skill = %d, want 0", got)
	}
}

func TestApplyFlags(t *testing.T) {
	ps := player.NewState()
	out, _ := Apply([]Effect{{Kind: KindSetFlag, Flag: "met_trader", To: "true"}}, ps)
	if got := out.Flags["met_trader"]; got != "true" {
		t.Errorf("flag = %q, want %q", got, "true")
	}
}

func TestApplyUnknownKindSkipped(t *testing.T) {
	ps := player.NewState()

	effects := []Effect{
		{Kind: KindSetStat, Stat: "x", Value: 1},
		{Kind: "teleport"},
		{Kind: KindAddStat, Stat: "x", Value: 1},
	}
	out, warnings := Apply(effects, ps)

	if got := out.Attributes["x"]; got != 2 {
		t.Errorf("remaining effects must still apply: x = %v, want 2", got)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(warnings))
	}
	if !errors.Is(warnings[0], ErrUnknownKind) {
		t.Errorf("expected ErrUnknownKind, got %v", warnings[0])
	}
}
