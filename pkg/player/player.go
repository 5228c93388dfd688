package player

// Default starting values for a fresh session.
const (
	DefaultHealth = 100
	DefaultEnergy = 10
	DefaultMoney  = 0
)

// Well-known attribute names. Scene content may reference others;
// the engine treats attribute names as opaque keys.
const (
	AttrHealth = "health"
	AttrEnergy = "energy"
	AttrMoney  = "money"
)

// State is a snapshot of everything about a player that conditions read
// and effects write. Mutation always goes through a Clone; a State that
// has been handed out is never written again.
type State struct {
	Attributes    map[string]float64 `json:"attributes,omitempty"`
	Skills        map[string]int     `json:"skills,omitempty"`
	Inventory     map[string]int     `json:"inventory,omitempty"` // item id -> quantity
	Relationships map[string]int     `json:"relationships,omitempty"`
	Flags         map[string]string  `json:"flags,omitempty"` // quest variables
}

// NewState returns a fresh player snapshot with default attributes.
func NewState() *State {
	return &State{
		Attributes: map[string]float64{
			AttrHealth: DefaultHealth,
			AttrEnergy: DefaultEnergy,
			AttrMoney:  DefaultMoney,
		},
		Skills:        make(map[string]int),
		Inventory:     make(map[string]int),
		Relationships: make(map[string]int),
		Flags:         make(map[string]string),
	}
}

// Clone returns a deep copy of the snapshot.
func (s *State) Clone() *State {
	if s == nil {
		return NewState()
	}
	out := &State{
		Attributes:    make(map[string]float64, len(s.Attributes)),
		Skills:        make(map[string]int, len(s.Skills)),
		Inventory:     make(map[string]int, len(s.Inventory)),
		Relationships: make(map[string]int, len(s.Relationships)),
		Flags:         make(map[string]string, len(s.Flags)),
	}
	for k, v := range s.Attributes {
		out.Attributes[k] = v
	}
	for k, v := range s.Skills {
		out.Skills[k] = v
	}
	for k, v := range s.Inventory {
		out.Inventory[k] = v
	}
	for k, v := range s.Relationships {
		out.Relationships[k] = v
	}
	for k, v := range s.Flags {
		out.Flags[k] = v
	}
	return out
}

// Stat returns the named attribute, falling back to skills when no
// attribute with that name exists. The second return reports whether
// the name resolved at all.
func (s *State) Stat(name string) (float64, bool) {
	if s == nil {
		return 0, false
	}
	if v, ok := s.Attributes[name]; ok {
		return v, true
	}
	if v, ok := s.Skills[name]; ok {
		return float64(v), true
	}
	return 0, false
}

// ItemCount returns the quantity of an item in the inventory.
func (s *State) ItemCount(itemID string) int {
	if s == nil {
		return 0
	}
	return s.Inventory[itemID]
}

// Flag returns the value of a quest variable, or "" if unset.
func (s *State) Flag(name string) string {
	if s == nil {
		return ""
	}
	return s.Flags[name]
}
