package scene

import (
	"context"
	"errors"

	"github.com/Dreyzab/grenzwanderer-sub000/pkg/condition"
	"github.com/Dreyzab/grenzwanderer-sub000/pkg/effect"
	"github.com/Dreyzab/grenzwanderer-sub000/pkg/quest"
)

// ErrNotFound is returned by a Source when no scene exists for an id.
var ErrNotFound = errors.New("scene not found")

// Source supplies scenes by identifier. Implementations may be a
// static table, a filesystem data dir, or a remote document store;
// the engine does not care which.
type Source interface {
	Load(ctx context.Context, sceneID string) (*Scene, error)
}

// DialogLine is one utterance within a scene.
type DialogLine struct {
	Speaker string `json:"speaker,omitempty"`
	Text    string `json:"text"`
}

// Choice is a selectable option within a scene. Resolution order and
// side-effect rules live in the dialogue package.
//
// Exactly one of NextSceneID / Exit is the terminal outcome; a choice
// with neither is treated as an implicit exit.
type Choice struct {
	Text string `json:"text"`

	// Condition gates the choice. Feedback is shown to the player
	// when the gate fails.
	Condition *condition.Condition `json:"condition,omitempty"`
	Feedback  string               `json:"feedback,omitempty"`

	// Effects apply in order after the gate passes.
	Effects []effect.Effect `json:"effects,omitempty"`

	// QuestAction, when set, is dispatched into the quest machine
	// with StepID after effects apply.
	QuestAction quest.Action `json:"quest_action,omitempty"`
	StepID      string       `json:"step_id,omitempty"`

	NextSceneID string `json:"next_scene_id,omitempty"`
	Exit        bool   `json:"exit,omitempty"`
}

// Scene is a unit of narrative content. Scenes are immutable once
// loaded; navigating produces a new Scene, never a mutation.
type Scene struct {
	ID         string       `json:"id"`
	Title      string       `json:"title,omitempty"`
	Background string       `json:"background,omitempty"`
	Character  string       `json:"character,omitempty"`
	Music      string       `json:"music,omitempty"`
	Lines      []DialogLine `json:"lines,omitempty"`
	Choices    []Choice     `json:"choices,omitempty"`
}
