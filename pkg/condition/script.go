package condition

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/Dreyzab/grenzwanderer-sub000/pkg/player"
)

// evaluateScript runs a custom condition as a Lua expression in a
// throwaway VM. The expression sees a read-only view of the player
// snapshot through the `player` global:
//
//	player.attributes.energy >= 5 and player.inventory.toolkit ~= nil
//
// The VM opens no standard libraries, so scripts stay deterministic.
// Any load or runtime error evaluates to false.
func evaluateScript(script string, ps *player.State) (bool, error) {
	if script == "" {
		return false, fmt.Errorf("%w: empty custom script", ErrUnknownKind)
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()

	L.SetGlobal("player", playerTable(L, ps))

	if err := L.DoString("return (" + script + ")"); err != nil {
		return false, fmt.Errorf("custom condition script: %w", err)
	}

	ret := L.Get(-1)
	L.Pop(1)

	b, ok := ret.(lua.LBool)
	if !ok {
		return false, fmt.Errorf("custom condition script: non-boolean result %s", ret.Type())
	}
	return bool(b), nil
}

func playerTable(L *lua.LState, ps *player.State) *lua.LTable {
	root := L.NewTable()
	if ps == nil {
		return root
	}

	attrs := L.NewTable()
	for k, v := range ps.Attributes {
		attrs.RawSetString(k, lua.LNumber(v))
	}
	root.RawSetString("attributes", attrs)

	skills := L.NewTable()
	for k, v := range ps.Skills {
		skills.RawSetString(k, lua.LNumber(v))
	}
	root.RawSetString("skills", skills)

	inv := L.NewTable()
	for k, v := range ps.Inventory {
		inv.RawSetString(k, lua.LNumber(v))
	}
	root.RawSetString("inventory", inv)

	rel := L.NewTable()
	for k, v := range ps.Relationships {
		rel.RawSetString(k, lua.LNumber(v))
	}
	root.RawSetString("relationships", rel)

	flags := L.NewTable()
	for k, v := range ps.Flags {
		flags.RawSetString(k, lua.LString(v))
	}
	root.RawSetString("flags", flags)

	return root
}
