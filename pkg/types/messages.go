// Package types is the wire protocol shared by the draft server and its clients.
package types

import (
	"encoding/json"
	"fmt"

	"github.com/DoyleJ11/ti4-draft-backend/internal/engine"
)

type MessageType string

const (
	// Client -> Server
	MsgJoinDraft  MessageType = "joinDraft"
	MsgLeaveDraft MessageType = "leaveDraft"
	MsgIntent     MessageType = "intent"
	// Both directions: a proposed state from a client, an accepted state from the server.
	MsgSyncDraft MessageType = "syncDraft"

	// Server -> Client
	MsgResult MessageType = "result"
	MsgError  MessageType = "error"
)

type ClientMessage struct {
	Type      MessageType `json:"type"`
	RequestID string      `json:"requestId,omitempty"`

	// joinDraft
	DraftID  string           `json:"draftId,omitempty"`
	PlayerID *engine.PlayerID `json:"playerId,omitempty"`

	// intent
	Intent             *IntentMessage `json:"intent,omitempty"`
	ExpectedSelections *int           `json:"expectedSelections,omitempty"`
	PickForAnyone      bool           `json:"pickForAnyone,omitempty"`

	// syncDraft
	Version int           `json:"version,omitempty"`
	Draft   *engine.Draft `json:"draft,omitempty"`

	AdminSecret string `json:"adminSecret,omitempty"`
}

type IntentType string

const (
	IntentPick                  IntentType = "pick"
	IntentStage                 IntentType = "stageSimultaneousPick"
	IntentStagePriorityValue    IntentType = "stagePriorityValue"
	IntentStageHomeSystem       IntentType = "stageHomeSystem"
	IntentUndoStagedPick        IntentType = "undoStagedPick"
	IntentForceCommit           IntentType = "forceCommit"
	IntentUndoLastPick          IntentType = "undoLastPick"
	IntentUndoSimultaneousPhase IntentType = "undoSimultaneousPhase"
)

type IntentMessage struct {
	Type IntentType `json:"type"`
	// Selection uses the same tagged envelope as the persisted log.
	Selection json.RawMessage                       `json:"selection,omitempty"`
	Phase     engine.SimultaneousPhase              `json:"phase,omitempty"`
	PlayerID  engine.PlayerID                       `json:"playerId,omitempty"`
	Value     engine.StagedPick                     `json:"value"`
	Values    map[engine.PlayerID]engine.StagedPick `json:"values,omitempty"`
	// DryRun validates without committing, for a confirmation step in the UI.
	DryRun bool `json:"dryRun,omitempty"`
}

func (m IntentMessage) ToIntent() (engine.Intent, error) {
	switch m.Type {
	case IntentPick:
		sel, err := engine.UnmarshalSelection(m.Selection)
		if err != nil {
			return nil, err
		}
		return engine.Pick{Selection: sel}, nil
	case IntentStage:
		return engine.Stage{Phase: m.Phase, Player: m.PlayerID, Value: m.Value}, nil
	case IntentStagePriorityValue:
		return engine.Stage{Phase: engine.SimPriorityValue, Player: m.PlayerID, Value: m.Value}, nil
	case IntentStageHomeSystem:
		return engine.Stage{Phase: engine.SimHomeSystem, Player: m.PlayerID, Value: m.Value}, nil
	case IntentUndoStagedPick:
		return engine.Unstage{Phase: m.Phase, Player: m.PlayerID}, nil
	case IntentForceCommit:
		return engine.ForceCommit{Phase: m.Phase, Values: m.Values}, nil
	case IntentUndoLastPick:
		return engine.UndoLastPick{}, nil
	case IntentUndoSimultaneousPhase:
		return engine.UndoSimultaneousPhase{Phase: m.Phase}, nil
	default:
		return nil, fmt.Errorf("%w: intent %q", engine.ErrUnsupportedCommand, m.Type)
	}
}

// Command wraps the intent with the actor and the capabilities the transport
// granted.
func (m IntentMessage) Command(actor engine.PlayerID, expected *int, caps engine.Caps) (engine.Command, error) {
	in, err := m.ToIntent()
	if err != nil {
		return engine.Command{}, err
	}
	return engine.Command{Intent: in, Actor: actor, Caps: caps, ExpectedSelections: expected}, nil
}

// PickIntent builds a pick message for sel.
func PickIntent(sel engine.Selection) (IntentMessage, error) {
	raw, err := engine.MarshalSelection(sel)
	if err != nil {
		return IntentMessage{}, err
	}
	return IntentMessage{Type: IntentPick, Selection: raw}, nil
}

// CreateDraftRequest is the body of POST /drafts.
type CreateDraftRequest struct {
	Settings               engine.Settings    `json:"settings"`
	Players                []engine.Player    `json:"players"`
	Slices                 []engine.Slice     `json:"slices"`
	Map                    engine.Map         `json:"map"`
	AvailableFactions      []string           `json:"availableFactions"`
	AvailableMinorFactions []string           `json:"availableMinorFactions"`
	Texas                  *engine.TexasSetup `json:"texas,omitempty"`
}

// IntentRequest is the body of POST /drafts/{id}/intents.
type IntentRequest struct {
	Actor              engine.PlayerID `json:"actor"`
	Intent             IntentMessage   `json:"intent"`
	ExpectedSelections *int            `json:"expectedSelections,omitempty"`
	PickForAnyone      bool            `json:"pickForAnyone,omitempty"`
}
