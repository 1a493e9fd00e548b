package engine

import "slices"

// Caps are per-intent privileges. They widen what the coordinators accept
// without changing who the intent is acting for.
type Caps struct {
	Admin         bool `json:"admin,omitempty"`
	PickForAnyone bool `json:"pickForAnyone,omitempty"`
}

func (c Caps) any() bool { return c.Admin || c.PickForAnyone }

// CanCommit reports whether proposer may commit a sequential pick now.
func CanCommit(phase Phase, proposer PlayerID, caps Caps) bool {
	if phase.Kind != PhaseSequential {
		return false
	}
	return proposer == phase.ActivePlayer || caps.any()
}

// Categories lists the sequential selection kinds each player takes once in
// a milty or heisen draft, in the order rounds are laid out.
func Categories(s Settings) []SelectionKind {
	cats := []SelectionKind{KindSelectSlice, KindSelectFaction}
	if s.Format == FormatMilty && s.DraftSpeaker {
		cats = append(cats, KindSelectSpeakerOrder)
	}
	if s.DraftSeats {
		cats = append(cats, KindSelectSeat)
	}
	if s.DraftPlayerColors {
		cats = append(cats, KindSelectPlayerColor)
	}
	if s.DraftMinorFactions {
		cats = append(cats, KindSelectMinorFaction)
	}
	return cats
}

// BuildPickOrder lays out the pick slots for a fresh draft.
func BuildPickOrder(s Settings, players []Player) []PickSlot {
	switch s.Format {
	case FormatHeisen:
		order := snake(players, len(Categories(s)))
		for range players {
			order = append(order, MarkerSlot(MarkerPriorityValue))
		}
		for range players {
			order = append(order, MarkerSlot(MarkerHomeSystem))
		}
		return order
	case FormatTexas:
		// faction round, hand-passing tile rounds, then snake placement
		order := rounds(players, 1+s.TexasHandSize)
		return append(order, snake(players, s.TexasHandSize)...)
	default:
		return snake(players, len(Categories(s)))
	}
}

func snake(players []Player, n int) []PickSlot {
	order := make([]PickSlot, 0, n*len(players))
	for r := 0; r < n; r++ {
		round := make([]PickSlot, 0, len(players))
		for _, p := range players {
			round = append(round, PlayerSlot(p.ID))
		}
		if r%2 == 1 {
			slices.Reverse(round)
		}
		order = append(order, round...)
	}
	return order
}

func rounds(players []Player, n int) []PickSlot {
	order := make([]PickSlot, 0, n*len(players))
	for r := 0; r < n; r++ {
		for _, p := range players {
			order = append(order, PlayerSlot(p.ID))
		}
	}
	return order
}

// nextKinds returns which selection kinds player may commit on their turn.
func nextKinds(d Draft, player PlayerID, phase Phase) []SelectionKind {
	if phase.Ban {
		return []SelectionKind{KindBanFaction}
	}
	if d.Settings.Format == FormatTexas {
		switch {
		case !d.Selections.Has(player, KindSelectTexasFaction):
			return []SelectionKind{KindSelectTexasFaction}
		case d.Selections.Count(player, KindTexasTilePick) < d.Settings.TexasHandSize:
			return []SelectionKind{KindTexasTilePick}
		default:
			return []SelectionKind{KindTexasTilePlacement}
		}
	}
	var open []SelectionKind
	for _, k := range Categories(d.Settings) {
		if !d.Selections.Has(player, k) {
			open = append(open, k)
		}
	}
	return open
}
