package engine

import "fmt"

func blockPhase(kind SelectionKind) (SimultaneousPhase, bool) {
	switch kind {
	case KindSelectPriorityValue:
		return SimPriorityValue, true
	case KindSelectHomeSystem:
		return SimHomeSystem, true
	default:
		return "", false
	}
}

// tailBlock returns the size of the block one commit of sp left at the end of
// the log. The block must be contiguous, carry the phase's kind, and sit
// exactly on the phase's run of markers.
func tailBlock(d Draft, sp SimultaneousPhase) (int, error) {
	marker, ok := phaseMarker(sp)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrWrongPhase, sp)
	}
	n := d.Selections.tailRun(phaseKind(sp))
	if n == 0 {
		return 0, fmt.Errorf("%w: log does not end with %s", ErrPhaseAdvanced, sp)
	}

	first := len(d.Selections) - n - d.banCount()
	if first < 0 {
		return 0, fmt.Errorf("%w: %s block overlaps bans", ErrPhaseAdvanced, sp)
	}
	if first > 0 && d.PickOrder[first-1].Marker == marker {
		return 0, fmt.Errorf("%w: %s block starts mid phase", ErrIncompleteBlock, sp)
	}
	if markerRun(d.PickOrder, first, marker) != n {
		return 0, fmt.Errorf("%w: %s block does not match its markers", ErrIncompleteBlock, sp)
	}
	return n, nil
}

func applyUndoLastPick(d *Draft, cmd Command) ([]Event, error) {
	if len(d.Selections) == 0 {
		return nil, ErrEmptyLog
	}
	if d.Staging != nil {
		return nil, ErrStagingInProgress
	}

	last := d.Selections[len(d.Selections)-1]
	n := 1
	if sp, ok := blockPhase(last.Kind()); ok {
		size, err := tailBlock(*d, sp)
		if err != nil {
			return nil, err
		}
		if !cmd.Caps.any() {
			return nil, fmt.Errorf("%w: undoing %s", ErrAdminRequired, sp)
		}
		n = size
	} else if !canActFor(cmd, last.Player()) {
		return nil, fmt.Errorf("%w: last pick belongs to player %d", ErrWrongTurn, last.Player())
	}

	d.Selections = d.Selections[:len(d.Selections)-n]
	return []Event{{Type: EvtSelectionsUndone, Player: last.Player(), Kind: last.Kind(), Count: n}}, nil
}

func applyUndoPhase(d *Draft, cmd Command, in UndoSimultaneousPhase) ([]Event, error) {
	if _, ok := phaseMarker(in.Phase); !ok {
		return nil, fmt.Errorf("%w: %q", ErrWrongPhase, in.Phase)
	}
	if !cmd.Caps.any() {
		return nil, fmt.Errorf("%w: undoing %s", ErrAdminRequired, in.Phase)
	}

	if d.Staging != nil {
		if d.Staging.Phase != in.Phase {
			return nil, fmt.Errorf("%w: %s is staging", ErrPhaseAdvanced, d.Staging.Phase)
		}
		d.Staging = nil
		return []Event{{Type: EvtStagingCleared, Phase: in.Phase}}, nil
	}
	if d.Phase().IsSimultaneous(in.Phase) {
		return nil, fmt.Errorf("%w: nothing staged for %s", ErrNotStaged, in.Phase)
	}

	n, err := tailBlock(*d, in.Phase)
	if err != nil {
		return nil, err
	}
	d.Selections = d.Selections[:len(d.Selections)-n]
	return []Event{{Type: EvtSelectionsUndone, Phase: in.Phase, Kind: phaseKind(in.Phase), Count: n}}, nil
}
