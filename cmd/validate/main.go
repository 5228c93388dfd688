package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Dreyzab/grenzwanderer-sub000/pkg/condition"
	"github.com/Dreyzab/grenzwanderer-sub000/pkg/effect"
	"github.com/Dreyzab/grenzwanderer-sub000/pkg/quest"
	"github.com/Dreyzab/grenzwanderer-sub000/pkg/scene"
)

// Validates a scenes directory before it ships: dangling scene
// references, choices with contradictory outcomes, unknown condition
// and effect kinds, and marker table coverage for every reachable
// quest state.
func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <scenes-dir>\n", os.Args[0])
		os.Exit(1)
	}

	v := &SceneValidator{}
	if err := v.validateDir(os.Args[1]); err != nil {
		fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
		os.Exit(1)
	}
	if len(v.errors) > 0 {
		for _, e := range v.errors {
			fmt.Fprintf(os.Stderr, "  - %s\n", e)
		}
		fmt.Fprintf(os.Stderr, "%d problem(s) found\n", len(v.errors))
		os.Exit(1)
	}

	fmt.Println("Scene content is valid!")
}

type SceneValidator struct {
	errors []string
}

func (v *SceneValidator) errorf(format string, args ...interface{}) {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
}

var sceneIDPattern = regexp.MustCompile(`^[a-z0-9]+(_[a-z0-9]+)*$`)

func (v *SceneValidator) validateDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read scenes directory: %w", err)
	}

	scenes := make(map[string]*scene.Scene)
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		id := strings.TrimSuffix(entry.Name(), ".json")
		if !sceneIDPattern.MatchString(id) {
			v.errorf("scene filename %q must be lowercase snake_case", entry.Name())
		}

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", entry.Name(), err)
		}
		if !json.Valid(data) {
			v.errorf("%s: invalid JSON", entry.Name())
			continue
		}

		var s scene.Scene
		if err := json.Unmarshal(data, &s); err != nil {
			v.errorf("%s: %v", entry.Name(), err)
			continue
		}
		s.ID = id
		scenes[id] = &s
	}

	if len(scenes) == 0 {
		return fmt.Errorf("no scene files found in %s", dir)
	}

	for id, s := range scenes {
		v.validateScene(id, s, scenes)
	}
	v.validateTables()

	fmt.Printf("Checked %d scene(s)\n", len(scenes))
	return nil
}

func (v *SceneValidator) validateScene(id string, s *scene.Scene, all map[string]*scene.Scene) {
	if len(s.Lines) == 0 {
		v.errorf("%s: scene has no dialogue lines", id)
	}

	for i, c := range s.Choices {
		where := fmt.Sprintf("%s choice %d", id, i)

		if strings.TrimSpace(c.Text) == "" {
			v.errorf("%s: empty choice text", where)
		}
		if c.Exit && c.NextSceneID != "" {
			v.errorf("%s: both exit and next_scene_id set", where)
		}
		if c.NextSceneID != "" {
			if _, ok := all[c.NextSceneID]; !ok {
				v.errorf("%s: next_scene_id %q has no scene file", where, c.NextSceneID)
			}
		}
		if c.QuestAction != "" && !knownAction(c.QuestAction) {
			v.errorf("%s: unknown quest action %q", where, c.QuestAction)
		}
		v.validateCondition(where, c.Condition)
		v.validateEffects(where, c.Effects)
	}
}

func (v *SceneValidator) validateCondition(where string, c *condition.Condition) {
	if c == nil {
		return
	}
	switch c.Kind {
	case condition.KindStat:
		switch c.Operator {
		case condition.OpGT, condition.OpLT, condition.OpEQ,
			condition.OpGTE, condition.OpLTE, condition.OpNEQ:
		default:
			v.errorf("%s: unknown stat operator %q", where, c.Operator)
		}
		if c.Stat == "" {
			v.errorf("%s: stat condition without stat name", where)
		}
	case condition.KindItem:
		if c.Item == "" {
			v.errorf("%s: item condition without item id", where)
		}
	case condition.KindFlag:
		if c.Flag == "" {
			v.errorf("%s: flag condition without flag name", where)
		}
	case condition.KindCustom:
		if strings.TrimSpace(c.Script) == "" {
			v.errorf("%s: custom condition without script", where)
		}
	default:
		v.errorf("%s: unknown condition kind %q", where, c.Kind)
	}
}

func (v *SceneValidator) validateEffects(where string, effects []effect.Effect) {
	for i, e := range effects {
		switch e.Kind {
		case effect.KindSetStat, effect.KindAddStat, effect.KindAddSkill:
			if e.Stat == "" {
				v.errorf("%s effect %d: %s without stat name", where, i, e.Kind)
			}
		case effect.KindAddItem, effect.KindRemoveItem:
			if e.Item == "" {
				v.errorf("%s effect %d: %s without item id", where, i, e.Kind)
			}
		case effect.KindSetFlag:
			if e.Flag == "" {
				v.errorf("%s effect %d: set_flag without flag name", where, i)
			}
		case effect.KindAddRelation:
			if e.Character == "" {
				v.errorf("%s effect %d: add_relation without character", where, i)
			}
		default:
			v.errorf("%s effect %d: unknown effect kind %q", where, i, e.Kind)
		}
	}
}

// validateTables checks the built-in quest tables: every transition
// source and target must carry a marker visibility entry.
func (v *SceneValidator) validateTables() {
	transitions := quest.DefaultTransitions()
	markers := quest.DefaultMarkers()

	for from, byAction := range transitions {
		if _, ok := markers[from]; !ok {
			v.errorf("marker table: no entry for state %q", from)
		}
		for action, to := range byAction {
			if _, ok := markers[to]; !ok {
				v.errorf("marker table: no entry for state %q (target of %s + %s)", to, from, action)
			}
		}
	}
}

func knownAction(a quest.Action) bool {
	switch a {
	case quest.ActionStartGame, quest.ActionConfirmCharacter,
		quest.ActionCompleteTraining, quest.ActionScanQR,
		quest.ActionStartDeliveryQuest, quest.ActionTakeParts,
		quest.ActionAcceptArtifactQuest, quest.ActionDeclineArtifactQuest,
		quest.ActionReturnToCraftsman, quest.ActionCompleteDeliveryQuest:
		return true
	}
	return false
}
