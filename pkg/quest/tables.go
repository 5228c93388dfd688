package quest

// TransitionTable maps (state, action) to the next state. Absence
// means the action has no effect in that state, which is a valid
// ignored outcome, not an error.
type TransitionTable map[State]map[Action]State

// Next looks up the transition for (from, action).
func (t TransitionTable) Next(from State, action Action) (State, bool) {
	byAction, ok := t[from]
	if !ok {
		return "", false
	}
	to, ok := byAction[action]
	return to, ok
}

// MarkerTable maps each state to the set of map markers that must be
// visible while the player is in it.
type MarkerTable map[State][]string

// Visible returns the marker set for a state.
func (m MarkerTable) Visible(s State) map[string]bool {
	set := make(map[string]bool, len(m[s]))
	for _, id := range m[s] {
		set[id] = true
	}
	return set
}

// Marker identifiers referenced by the default tables.
const (
	MarkerTrainingCamp = "training_camp"
	MarkerTrader       = "trader"
	MarkerCraftsman    = "craftsman"
	MarkerArtifactSite = "artifact_site"
	MarkerQuestBoard   = "quest_board"
)

// DefaultTransitions returns the transition table for the delivery
// storyline.
func DefaultTransitions() TransitionTable {
	return TransitionTable{
		StateRegistered: {
			ActionStartGame:          StateCharacterCreation,
			ActionStartDeliveryQuest: StateDeliveryStarted,
		},
		StateCharacterCreation: {
			ActionConfirmCharacter: StateTrainingMission,
		},
		StateTrainingMission: {
			ActionCompleteTraining: StateDeliveryStarted,
		},
		StateDeliveryStarted: {
			ActionTakeParts: StatePartsCollected,
		},
		StatePartsCollected: {
			ActionAcceptArtifactQuest:  StateArtifactHunt,
			ActionDeclineArtifactQuest: StateQuestCompletion,
		},
		StateArtifactHunt: {
			ActionScanQR: StateArtifactFound,
		},
		StateArtifactFound: {
			ActionReturnToCraftsman: StateQuestCompletion,
		},
		StateQuestCompletion: {
			ActionCompleteDeliveryQuest: StateFreeRoam,
		},
		// StateFreeRoam is terminal.
	}
}

// DefaultMarkers returns the marker visibility table for the delivery
// storyline.
func DefaultMarkers() MarkerTable {
	return MarkerTable{
		StateRegistered:        {},
		StateCharacterCreation: {},
		StateTrainingMission:   {MarkerTrainingCamp},
		StateDeliveryStarted:   {MarkerTrader, MarkerCraftsman},
		StatePartsCollected:    {MarkerCraftsman},
		StateArtifactHunt:      {MarkerCraftsman, MarkerArtifactSite},
		StateArtifactFound:     {MarkerCraftsman},
		StateQuestCompletion:   {MarkerQuestBoard},
		StateFreeRoam:          {MarkerQuestBoard, MarkerTrader},
	}
}
