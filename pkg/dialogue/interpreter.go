// Package dialogue resolves player choices against the condition
// evaluator, effect applier, and quest machine.
package dialogue

import (
	"errors"
	"log/slog"

	"github.com/Dreyzab/grenzwanderer-sub000/pkg/condition"
	"github.com/Dreyzab/grenzwanderer-sub000/pkg/effect"
	"github.com/Dreyzab/grenzwanderer-sub000/pkg/marker"
	"github.com/Dreyzab/grenzwanderer-sub000/pkg/player"
	"github.com/Dreyzab/grenzwanderer-sub000/pkg/quest"
	"github.com/Dreyzab/grenzwanderer-sub000/pkg/scene"
)

// OutcomeKind classifies the result of resolving a choice.
type OutcomeKind string

const (
	// OutcomeBlocked means the choice's condition failed. Nothing was
	// applied or dispatched; Reason carries the choice's feedback text.
	OutcomeBlocked OutcomeKind = "blocked"
	// OutcomeAdvance means the dialogue continues at NextSceneID.
	OutcomeAdvance OutcomeKind = "advance"
	// OutcomeExit means the dialogue ends.
	OutcomeExit OutcomeKind = "exit"
)

// Outcome is the definite result of resolving a choice. The
// interpreter never leaves the caller without one.
type Outcome struct {
	Kind        OutcomeKind `json:"kind"`
	Reason      string      `json:"reason,omitempty"`
	NextSceneID string      `json:"next_scene_id,omitempty"`
}

// Quest is the slice of the quest machine the interpreter needs.
type Quest interface {
	Dispatch(action quest.Action, stepID string) (quest.Result, []marker.Event)
}

// Interpreter orchestrates choice resolution. It is stateless; all
// state lives in the player snapshot and the quest machine.
type Interpreter struct {
	logger *slog.Logger
}

func NewInterpreter(logger *slog.Logger) *Interpreter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Interpreter{logger: logger}
}

// Resolve runs a choice through the gate-then-apply pipeline:
//
//  1. Evaluate the condition. If it fails, return OutcomeBlocked
//     immediately: no effects, no quest dispatch, no scene change.
//  2. Apply effects in order, producing a new player snapshot.
//  3. Dispatch the choice's quest action, if any.
//  4. Exit takes priority over NextSceneID; a choice with neither is
//     an implicit exit.
//
// The returned player snapshot is the input snapshot itself when the
// choice is blocked, a new snapshot otherwise. The marker events come
// from the quest dispatch in step 3.
func (i *Interpreter) Resolve(c scene.Choice, ps *player.State, qm Quest) (Outcome, *player.State, []marker.Event) {
	ok, err := condition.Evaluate(c.Condition, ps)
	if err != nil {
		// Fail closed: an unevaluable condition blocks the choice.
		if errors.Is(err, condition.ErrUnknownKind) {
			i.logger.Warn("condition not evaluable, blocking choice", "error", err)
		} else {
			i.logger.Warn("custom condition failed, blocking choice", "error", err)
		}
		ok = false
	}
	if !ok {
		return Outcome{Kind: OutcomeBlocked, Reason: c.Feedback}, ps, nil
	}

	next, warnings := effect.Apply(c.Effects, ps)
	for _, w := range warnings {
		i.logger.Warn("effect skipped", "error", w)
	}

	var events []marker.Event
	if c.QuestAction != "" && qm != nil {
		var res quest.Result
		res, events = qm.Dispatch(c.QuestAction, c.StepID)
		if !res.Committed {
			i.logger.Debug("choice quest action had no transition",
				"action", c.QuestAction,
				"state", res.From)
		}
	}

	switch {
	case c.Exit:
		return Outcome{Kind: OutcomeExit}, next, events
	case c.NextSceneID != "":
		return Outcome{Kind: OutcomeAdvance, NextSceneID: c.NextSceneID}, next, events
	default:
		// No declared terminal outcome; treat as exit.
		return Outcome{Kind: OutcomeExit}, next, events
	}
}
