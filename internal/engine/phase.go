package engine

type PhaseKind string

const (
	PhaseSequential   PhaseKind = "sequential"
	PhaseSimultaneous PhaseKind = "simultaneous"
	PhaseFinished     PhaseKind = "finished"
)

type SimultaneousPhase string

const (
	SimPriorityValue SimultaneousPhase = "priority-value"
	SimHomeSystem    SimultaneousPhase = "home-system"
)

// Phase describes what the draft is waiting for. It is always derived from
// the pick order and the log length, never stored.
type Phase struct {
	Kind         PhaseKind         `json:"kind"`
	ActivePlayer PlayerID          `json:"activePlayerId,omitempty"`
	Simultaneous SimultaneousPhase `json:"simultaneousPhase,omitempty"`
	Ban          bool              `json:"ban,omitempty"`
	// Slot is the pickOrder index of the current slot, -1 during bans.
	Slot int `json:"slot"`
}

func (p Phase) IsSimultaneous(sp SimultaneousPhase) bool {
	return p.Kind == PhaseSimultaneous && p.Simultaneous == sp
}

// ResolvePhase maps pick order and committed count to the current phase.
// A configured ban prefix wins over any pick order lookup.
func ResolvePhase(order []PickSlot, selections int, settings Settings, players []Player) Phase {
	bans := 0
	if settings.BanModifier != nil && len(players) > 0 {
		bans = settings.BanModifier.NumFactions * len(players)
	}
	if selections < bans {
		return Phase{
			Kind:         PhaseSequential,
			ActivePlayer: players[selections%len(players)].ID,
			Ban:          true,
			Slot:         -1,
		}
	}

	idx := selections - bans
	if idx >= len(order) {
		return Phase{Kind: PhaseFinished, Slot: len(order)}
	}

	slot := order[idx]
	if !slot.IsMarker() {
		return Phase{Kind: PhaseSequential, ActivePlayer: slot.Player, Slot: idx}
	}
	return Phase{Kind: PhaseSimultaneous, Simultaneous: markerPhase(slot.Marker), Slot: idx}
}

func markerPhase(m Marker) SimultaneousPhase {
	switch m {
	case MarkerPriorityValue:
		return SimPriorityValue
	case MarkerHomeSystem:
		return SimHomeSystem
	default:
		panic("engine: unknown marker " + string(m))
	}
}

func phaseMarker(sp SimultaneousPhase) (Marker, bool) {
	switch sp {
	case SimPriorityValue:
		return MarkerPriorityValue, true
	case SimHomeSystem:
		return MarkerHomeSystem, true
	default:
		return "", false
	}
}

func phaseKind(sp SimultaneousPhase) SelectionKind {
	switch sp {
	case SimPriorityValue:
		return KindSelectPriorityValue
	case SimHomeSystem:
		return KindSelectHomeSystem
	default:
		return ""
	}
}
