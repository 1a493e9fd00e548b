package engine

import (
	"fmt"
	"slices"
)

func banned(log Log, faction string) bool {
	for _, s := range log {
		if b, ok := s.(BanFaction); ok && b.FactionID == faction {
			return true
		}
	}
	return false
}

// factionOwner returns who holds faction, either by drafting it or by taking
// its home system.
func factionOwner(log Log, faction string) (PlayerID, bool) {
	for _, s := range log {
		switch v := s.(type) {
		case SelectFaction:
			if v.FactionID == faction {
				return v.PlayerID, true
			}
		case SelectTexasFaction:
			if v.FactionID == faction {
				return v.PlayerID, true
			}
		case SelectHomeSystem:
			if v.FactionID == faction {
				return v.PlayerID, true
			}
		}
	}
	return 0, false
}

// claimed reports whether another entry of the same kind already holds the
// value carried by sel.
func claimed(log Log, sel Selection) bool {
	for _, s := range log {
		if s.Kind() != sel.Kind() {
			continue
		}
		switch v := s.(type) {
		case SelectSlice:
			if v.SliceIdx == sel.(SelectSlice).SliceIdx {
				return true
			}
		case SelectSpeakerOrder:
			if v.SpeakerOrder == sel.(SelectSpeakerOrder).SpeakerOrder {
				return true
			}
		case SelectSeat:
			if v.SeatIdx == sel.(SelectSeat).SeatIdx {
				return true
			}
		case SelectPlayerColor:
			if v.Color == sel.(SelectPlayerColor).Color {
				return true
			}
		case SelectMinorFaction:
			if v.MinorFactionID == sel.(SelectMinorFaction).MinorFactionID {
				return true
			}
		case SelectPriorityValue:
			if v.Value == sel.(SelectPriorityValue).Value {
				return true
			}
		case TexasTilePick:
			if v.TileID == sel.(TexasTilePick).TileID {
				return true
			}
		case TexasTilePlacement:
			p := sel.(TexasTilePlacement)
			if v.TileID == p.TileID || v.Position == p.Position {
				return true
			}
		}
	}
	return false
}

func (d Draft) numSlices() int {
	if len(d.Slices) > 0 {
		return len(d.Slices)
	}
	return d.Settings.NumSlices
}

// checkSelection validates the payload of a sequential selection against the
// draft resources and the log.
func checkSelection(d Draft, sel Selection) error {
	switch v := sel.(type) {
	case SelectFaction:
		return checkFaction(d, v.FactionID, v.PlayerID)
	case BanFaction:
		if !slices.Contains(d.AvailableFactions, v.FactionID) {
			return fmt.Errorf("%w: faction %q", ErrUnknownValue, v.FactionID)
		}
		if banned(d.Selections, v.FactionID) {
			return fmt.Errorf("%w: faction %q already banned", ErrValueClaimed, v.FactionID)
		}
		if _, ok := factionOwner(d.Selections, v.FactionID); ok {
			return fmt.Errorf("%w: faction %q", ErrValueClaimed, v.FactionID)
		}
		return nil
	case SelectSlice:
		if v.SliceIdx < 0 || v.SliceIdx >= d.numSlices() {
			return fmt.Errorf("%w: slice %d", ErrUnknownValue, v.SliceIdx)
		}
	case SelectSpeakerOrder:
		if v.SpeakerOrder < 0 || v.SpeakerOrder >= len(d.Players) {
			return fmt.Errorf("%w: speaker order %d", ErrUnknownValue, v.SpeakerOrder)
		}
	case SelectSeat:
		if v.SeatIdx < 0 || v.SeatIdx >= len(d.Players) {
			return fmt.Errorf("%w: seat %d", ErrUnknownValue, v.SeatIdx)
		}
	case SelectPlayerColor:
		if !slices.Contains(d.Settings.palette(), v.Color) {
			return fmt.Errorf("%w: color %q", ErrUnknownValue, v.Color)
		}
	case SelectMinorFaction:
		if !slices.Contains(d.AvailableMinorFactions, v.MinorFactionID) {
			return fmt.Errorf("%w: minor faction %q", ErrUnknownValue, v.MinorFactionID)
		}
	case SelectTexasFaction:
		if d.Texas == nil || !slices.Contains(d.Texas.FactionOffers[v.PlayerID], v.FactionID) {
			return fmt.Errorf("%w: faction %q not offered", ErrUnknownValue, v.FactionID)
		}
		return checkFaction(d, v.FactionID, v.PlayerID)
	case TexasTilePick:
		if !slices.Contains(handInFront(d, v.PlayerID), v.TileID) {
			return fmt.Errorf("%w: tile %d not in hand", ErrUnknownValue, v.TileID)
		}
	case TexasTilePlacement:
		if !slices.Contains(unplacedTiles(d, v.PlayerID), v.TileID) {
			return fmt.Errorf("%w: tile %d not held", ErrUnknownValue, v.TileID)
		}
		if !d.Map.open(v.Position) {
			return fmt.Errorf("%w: position %d", ErrUnknownValue, v.Position)
		}
	case SelectPriorityValue, SelectHomeSystem:
		return ErrWrongPhase
	default:
		return fmt.Errorf("%w: %T", ErrUnknownSelection, sel)
	}
	if claimed(d.Selections, sel) {
		return ErrValueClaimed
	}
	return nil
}

func checkFaction(d Draft, faction string, player PlayerID) error {
	if !slices.Contains(d.AvailableFactions, faction) {
		return fmt.Errorf("%w: faction %q", ErrUnknownValue, faction)
	}
	if banned(d.Selections, faction) {
		return fmt.Errorf("%w: faction %q is banned", ErrValueClaimed, faction)
	}
	if owner, ok := factionOwner(d.Selections, faction); ok && owner != player {
		return fmt.Errorf("%w: faction %q held by player %d", ErrValueClaimed, faction, owner)
	}
	return nil
}
