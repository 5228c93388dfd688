package quest

// State is the stage of story progression for a player. Exactly one
// state is active at a time; only Machine.Dispatch commits a change.
type State string

const (
	StateRegistered        State = "registered"
	StateCharacterCreation State = "character_creation"
	StateTrainingMission   State = "training_mission"
	StateDeliveryStarted   State = "delivery_started"
	StatePartsCollected    State = "parts_collected"
	StateArtifactHunt      State = "artifact_hunt"
	StateArtifactFound     State = "artifact_found"
	StateQuestCompletion   State = "quest_completion"
	StateFreeRoam          State = "free_roam"
)

// States lists all quest states in narrative order. StateRegistered is
// the initial state; StateFreeRoam is terminal (no outgoing
// transitions are defined for it, which is not an error).
var States = []State{
	StateRegistered,
	StateCharacterCreation,
	StateTrainingMission,
	StateDeliveryStarted,
	StatePartsCollected,
	StateArtifactHunt,
	StateArtifactFound,
	StateQuestCompletion,
	StateFreeRoam,
}

// Valid reports whether s is a known quest state.
func (s State) Valid() bool {
	for _, known := range States {
		if s == known {
			return true
		}
	}
	return false
}

// Action is a trigger that may cause a state transition. Actions come
// from QR decodes, dialogue choice resolution, or explicit UI intent.
type Action string

const (
	ActionStartGame             Action = "start_game"
	ActionConfirmCharacter      Action = "confirm_character"
	ActionCompleteTraining      Action = "complete_training"
	ActionScanQR                Action = "scan_qr"
	ActionStartDeliveryQuest    Action = "start_delivery_quest"
	ActionTakeParts             Action = "take_parts"
	ActionAcceptArtifactQuest   Action = "accept_artifact_quest"
	ActionDeclineArtifactQuest  Action = "decline_artifact_quest"
	ActionReturnToCraftsman     Action = "return_to_craftsman"
	ActionCompleteDeliveryQuest Action = "complete_delivery_quest"
)
