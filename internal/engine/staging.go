package engine

import (
	"fmt"
	"hash/fnv"
	"maps"
	"math/rand/v2"
	"slices"
)

// requiredPlayers lists, in ascending id order, the players that still owe a
// value for sp.
func requiredPlayers(d Draft, sp SimultaneousPhase) []PlayerID {
	kind := phaseKind(sp)
	var ids []PlayerID
	for _, p := range d.Players {
		if !d.Selections.Has(p.ID, kind) {
			ids = append(ids, p.ID)
		}
	}
	slices.Sort(ids)
	return ids
}

func stagedSelection(sp SimultaneousPhase, player PlayerID, v StagedPick) Selection {
	if sp == SimHomeSystem {
		return SelectHomeSystem{PlayerID: player, FactionID: v.Faction}
	}
	return SelectPriorityValue{PlayerID: player, Value: v.Priority}
}

// stagingDomain lists every candidate value of sp in fallback order.
func stagingDomain(d Draft, sp SimultaneousPhase) []StagedPick {
	var out []StagedPick
	if sp == SimHomeSystem {
		for _, f := range d.AvailableFactions {
			out = append(out, StagedPick{Faction: f})
		}
		return out
	}
	for v := 1; v <= len(d.Players); v++ {
		out = append(out, StagedPick{Priority: v})
	}
	return out
}

// checkStaged validates v for player against the log and the values other
// players have pending.
func checkStaged(d Draft, sp SimultaneousPhase, player PlayerID, v StagedPick, pending map[PlayerID]StagedPick) error {
	switch sp {
	case SimPriorityValue:
		if v.Priority < 1 || v.Priority > len(d.Players) {
			return fmt.Errorf("%w: priority value %d", ErrUnknownValue, v.Priority)
		}
		if claimed(d.Selections, SelectPriorityValue{PlayerID: player, Value: v.Priority}) {
			return fmt.Errorf("%w: priority value %d", ErrValueClaimed, v.Priority)
		}
		for id, other := range pending {
			if id != player && other.Priority == v.Priority {
				return fmt.Errorf("%w: priority value %d staged by player %d", ErrValueClaimed, v.Priority, id)
			}
		}
	case SimHomeSystem:
		if err := checkFaction(d, v.Faction, player); err != nil {
			return err
		}
		for id, other := range pending {
			if id != player && other.Faction == v.Faction {
				return fmt.Errorf("%w: home system %q staged by player %d", ErrValueClaimed, v.Faction, id)
			}
		}
	default:
		return fmt.Errorf("%w: %q", ErrWrongPhase, sp)
	}
	return nil
}

func applyStage(d *Draft, cmd Command, in Stage) ([]Event, error) {
	phase := d.Phase()
	if !phase.IsSimultaneous(in.Phase) {
		return nil, fmt.Errorf("%w: cannot stage %s now", ErrWrongPhase, in.Phase)
	}
	if d.Staging != nil && d.Staging.Phase != in.Phase {
		return nil, ErrStagingInProgress
	}
	if _, ok := d.seat(in.Player); !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPlayer, in.Player)
	}
	if !slices.Contains(requiredPlayers(*d, in.Phase), in.Player) {
		return nil, fmt.Errorf("%w: player %d already committed %s", ErrIllegalSelection, in.Player, in.Phase)
	}
	if !canActFor(cmd, in.Player) {
		return nil, fmt.Errorf("%w: cannot stage for player %d", ErrWrongTurn, in.Player)
	}

	var pending map[PlayerID]StagedPick
	if d.Staging != nil {
		pending = d.Staging.Values
	}
	if err := checkStaged(*d, in.Phase, in.Player, in.Value, pending); err != nil {
		return nil, err
	}

	if d.Staging == nil {
		d.Staging = &Staging{Phase: in.Phase, Values: map[PlayerID]StagedPick{}}
	}
	d.Staging.Values[in.Player] = in.Value
	events := []Event{{Type: EvtStaged, Player: in.Player, Phase: in.Phase}}

	more, err := commitIfReady(d)
	if err != nil {
		return nil, err
	}
	return append(events, more...), nil
}

// commitIfReady commits the staging map once every required player staged.
func commitIfReady(d *Draft) ([]Event, error) {
	if d.Staging == nil {
		return nil, nil
	}
	required := requiredPlayers(*d, d.Staging.Phase)
	for _, id := range required {
		if _, ok := d.Staging.Values[id]; !ok {
			return nil, nil
		}
	}
	return commitStaged(d, d.Staging.Phase, required, d.Staging.Values)
}

// commitStaged appends one selection per player in ascending id order and
// clears staging.
func commitStaged(d *Draft, sp SimultaneousPhase, players []PlayerID, values map[PlayerID]StagedPick) ([]Event, error) {
	phase := d.Phase()
	marker, _ := phaseMarker(sp)
	if markerRun(d.PickOrder, phase.Slot, marker) < len(players) {
		return nil, fmt.Errorf("%w: %d players for %s", ErrIncompleteBlock, len(players), sp)
	}
	for _, id := range players {
		d.Selections = append(d.Selections, stagedSelection(sp, id, values[id]))
	}
	d.Staging = nil
	return []Event{{Type: EvtPhaseCommitted, Phase: sp, Count: len(players)}}, nil
}

// markerRun counts consecutive marker slots starting at from.
func markerRun(order []PickSlot, from int, m Marker) int {
	n := 0
	for i := from; i >= 0 && i < len(order) && order[i].Marker == m; i++ {
		n++
	}
	return n
}

func applyUnstage(d *Draft, cmd Command, in Unstage) ([]Event, error) {
	if d.Staging == nil || d.Staging.Phase != in.Phase {
		return nil, fmt.Errorf("%w: no %s staging", ErrNotStaged, in.Phase)
	}
	if _, ok := d.Staging.Values[in.Player]; !ok {
		return nil, fmt.Errorf("%w: player %d", ErrNotStaged, in.Player)
	}
	if !canActFor(cmd, in.Player) {
		return nil, fmt.Errorf("%w: cannot unstage for player %d", ErrWrongTurn, in.Player)
	}
	delete(d.Staging.Values, in.Player)
	if len(d.Staging.Values) == 0 {
		d.Staging = nil
	}
	return []Event{{Type: EvtUnstaged, Player: in.Player, Phase: in.Phase}}, nil
}

func applyForceCommit(d *Draft, cmd Command, in ForceCommit) ([]Event, error) {
	if !cmd.Caps.Admin {
		return nil, ErrAdminRequired
	}
	if !d.Phase().IsSimultaneous(in.Phase) {
		return nil, fmt.Errorf("%w: %s is not live", ErrWrongPhase, in.Phase)
	}

	values := map[PlayerID]StagedPick{}
	if d.Staging != nil {
		values = maps.Clone(d.Staging.Values)
	}
	required := requiredPlayers(*d, in.Phase)

	var missing []PlayerID
	for _, id := range required {
		if _, ok := values[id]; ok {
			continue
		}
		if v, ok := in.Values[id]; ok {
			if err := checkStaged(*d, in.Phase, id, v, values); err != nil {
				return nil, fmt.Errorf("player %d: %w", id, err)
			}
			values[id] = v
			continue
		}
		missing = append(missing, id)
	}

	policy := d.Settings.fallback()
	var rng *rand.Rand
	if policy == FallbackSeededRandom {
		rng = seededRand(d.ID, len(d.Selections))
	}
	for _, id := range missing {
		if policy == FallbackAdminSpecified {
			return nil, fmt.Errorf("%w: player %d", ErrMissingForcedValue, id)
		}
		var candidates []StagedPick
		for _, v := range stagingDomain(*d, in.Phase) {
			if checkStaged(*d, in.Phase, id, v, values) == nil {
				candidates = append(candidates, v)
			}
		}
		if len(candidates) == 0 {
			return nil, fmt.Errorf("%w: player %d", ErrNoFallbackValue, id)
		}
		pick := candidates[0]
		if rng != nil {
			pick = candidates[rng.IntN(len(candidates))]
		}
		values[id] = pick
	}

	return commitStaged(d, in.Phase, required, values)
}

// seededRand is reproducible for a given draft and log position.
func seededRand(draftID string, logLen int) *rand.Rand {
	h := fnv.New64a()
	_, _ = h.Write([]byte(draftID))
	return rand.New(rand.NewPCG(h.Sum64(), uint64(logLen)))
}
