// Package qr maps scanned QR payloads to quest actions. Unrecognized
// codes never reach the quest machine.
package qr

import (
	"errors"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/Dreyzab/grenzwanderer-sub000/pkg/quest"
)

// ErrUnknownCode is returned for payloads with no binding. The caller
// surfaces it to the UI; no action is dispatched.
var ErrUnknownCode = errors.New("unknown code")

// Binding ties a recognized code to a quest action, an optional step
// identifier, and an optional scene to open after the dispatch.
type Binding struct {
	Action  quest.Action `json:"action"`
	StepID  string       `json:"step_id,omitempty"`
	SceneID string       `json:"scene_id,omitempty"`
}

// Table maps normalized code payloads to bindings.
type Table map[string]Binding

// Normalize canonicalizes a scanned payload: NFKC normalization, case
// folding, and trimmed whitespace. Codes printed on physical signage
// get scanned with inconsistent case and width variants.
func Normalize(code string) string {
	folded := cases.Fold().String(norm.NFKC.String(code))
	return strings.TrimSpace(folded)
}

// Lookup resolves a scanned payload against the table.
func (t Table) Lookup(code string) (Binding, error) {
	b, ok := t[Normalize(code)]
	if !ok {
		return Binding{}, ErrUnknownCode
	}
	return b, nil
}

// DefaultTable returns the code bindings for the delivery storyline.
// Keys must already be in normalized form.
func DefaultTable() Table {
	return Table{
		"gw-register": {
			Action:  quest.ActionStartGame,
			StepID:  "registered_at_board",
			SceneID: "character_creation",
		},
		"gw-delivery-start": {
			Action:  quest.ActionStartDeliveryQuest,
			StepID:  "delivery_accepted",
			SceneID: "trader_meeting",
		},
		"gw-parts-crate": {
			Action:  quest.ActionTakeParts,
			StepID:  "parts_taken",
			SceneID: "craftsman_handover",
		},
		"gw-artifact-cache": {
			Action:  quest.ActionScanQR,
			StepID:  "artifact_located",
			SceneID: "artifact_cache",
		},
	}
}
