package engine

import (
	"errors"
	"fmt"
	"slices"
)

var ErrWrongTurn = errors.New("invalid turn")
var ErrWrongPhase = errors.New("wrong phase")
var ErrIllegalSelection = errors.New("illegal selection")
var ErrValueClaimed = errors.New("value already claimed")
var ErrUnknownValue = errors.New("unknown value")
var ErrUnknownSelection = errors.New("unknown selection type")
var ErrUnknownPlayer = errors.New("unknown player")
var ErrUnsupportedCommand = errors.New("unsupported command")
var ErrDraftFinished = errors.New("draft already finished")
var ErrEmptyLog = errors.New("nothing to undo")
var ErrStagingInProgress = errors.New("simultaneous phase staging in progress")
var ErrNotStaged = errors.New("player has not staged")
var ErrPhaseAdvanced = errors.New("phase already advanced")
var ErrStaleClient = errors.New("stale client state")
var ErrAdminRequired = errors.New("admin privilege required")
var ErrNoFallbackValue = errors.New("no unclaimed value left")
var ErrMissingForcedValue = errors.New("missing admin-specified value")
var ErrIncompleteBlock = errors.New("incomplete simultaneous block")

// Intent is a requested mutation. The set of implementations is closed.
type Intent interface{ isIntent() }

// Pick commits one sequential selection.
type Pick struct {
	Selection Selection
}

// Stage records a player's pending value for the live simultaneous phase.
type Stage struct {
	Phase  SimultaneousPhase
	Player PlayerID
	Value  StagedPick
}

// Unstage withdraws a staged value. It is also the undo for a single staged pick.
type Unstage struct {
	Phase  SimultaneousPhase
	Player PlayerID
}

// ForceCommit resolves the live simultaneous phase with partial staging.
// Values supplies picks for players that never staged.
type ForceCommit struct {
	Phase  SimultaneousPhase
	Values map[PlayerID]StagedPick
}

type UndoLastPick struct{}

type UndoSimultaneousPhase struct {
	Phase SimultaneousPhase
}

func (Pick) isIntent()                  {}
func (Stage) isIntent()                 {}
func (Unstage) isIntent()               {}
func (ForceCommit) isIntent()           {}
func (UndoLastPick) isIntent()          {}
func (UndoSimultaneousPhase) isIntent() {}

type Command struct {
	Intent Intent
	Actor  PlayerID
	Caps   Caps
	// ExpectedSelections, when set, is the log length the client based the
	// intent on.
	ExpectedSelections *int
}

type EventType string

const (
	EvtSelectionCommitted EventType = "SelectionCommitted"
	EvtStaged             EventType = "Staged"
	EvtUnstaged           EventType = "Unstaged"
	EvtPhaseCommitted     EventType = "PhaseCommitted"
	EvtStagingCleared     EventType = "StagingCleared"
	EvtSelectionsUndone   EventType = "SelectionsUndone"
	EvtDraftFinished      EventType = "DraftFinished"
)

type Event struct {
	Type   EventType
	Player PlayerID
	Kind   SelectionKind
	Phase  SimultaneousPhase
	Count  int
}

// Apply runs one command against d. On error the returned draft is d itself
// and the log and staging are untouched.
func Apply(d Draft, cmd Command) ([]Event, Draft, error) {
	if cmd.ExpectedSelections != nil && *cmd.ExpectedSelections != len(d.Selections) {
		return nil, d, fmt.Errorf("%w: based on %d selections, draft has %d",
			ErrStaleClient, *cmd.ExpectedSelections, len(d.Selections))
	}

	next := d.Clone()
	var (
		events []Event
		err    error
	)
	switch in := cmd.Intent.(type) {
	case Pick:
		events, err = applyPick(&next, cmd, in)
	case Stage:
		events, err = applyStage(&next, cmd, in)
	case Unstage:
		events, err = applyUnstage(&next, cmd, in)
	case ForceCommit:
		events, err = applyForceCommit(&next, cmd, in)
	case UndoLastPick:
		events, err = applyUndoLastPick(&next, cmd)
	case UndoSimultaneousPhase:
		events, err = applyUndoPhase(&next, cmd, in)
	default:
		return nil, d, ErrUnsupportedCommand
	}
	if err != nil {
		return nil, d, err
	}

	if len(next.Selections) > len(d.Selections) && next.Finished() {
		events = append(events, Event{Type: EvtDraftFinished})
	}
	return events, next, nil
}

// Validate dry-runs cmd and reports why it would be rejected.
func Validate(d Draft, cmd Command) error {
	_, _, err := Apply(d, cmd)
	return err
}

func applyPick(d *Draft, cmd Command, in Pick) ([]Event, error) {
	sel := in.Selection
	if sel == nil {
		return nil, ErrUnknownSelection
	}
	phase := d.Phase()
	switch phase.Kind {
	case PhaseFinished:
		return nil, ErrDraftFinished
	case PhaseSimultaneous:
		return nil, fmt.Errorf("%w: %s is simultaneous", ErrWrongPhase, phase.Simultaneous)
	}

	if sel.Player() != phase.ActivePlayer {
		return nil, fmt.Errorf("%w: player %d is up", ErrWrongTurn, phase.ActivePlayer)
	}
	if !CanCommit(phase, cmd.Actor, cmd.Caps) {
		return nil, fmt.Errorf("%w: player %d is up", ErrWrongTurn, phase.ActivePlayer)
	}
	if !slices.Contains(nextKinds(*d, sel.Player(), phase), sel.Kind()) {
		return nil, fmt.Errorf("%w: %s not open for player %d", ErrIllegalSelection, sel.Kind(), sel.Player())
	}
	if err := checkSelection(*d, sel); err != nil {
		return nil, err
	}

	d.Selections = append(d.Selections, sel)
	return []Event{{Type: EvtSelectionCommitted, Player: sel.Player(), Kind: sel.Kind()}}, nil
}

func canActFor(cmd Command, player PlayerID) bool {
	return cmd.Actor == player || cmd.Caps.any()
}
