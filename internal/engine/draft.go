package engine

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
)

type PlayerID int

type Format string

const (
	FormatMilty  Format = "milty"
	FormatHeisen Format = "heisen"
	FormatTexas  Format = "texas"
)

// FallbackPolicy decides what a force commit assigns to players that never staged.
type FallbackPolicy string

const (
	FallbackFirstUnclaimed FallbackPolicy = "first-unclaimed"
	FallbackSeededRandom   FallbackPolicy = "seeded-random"
	FallbackAdminSpecified FallbackPolicy = "admin-specified"
)

var DefaultColors = []string{"red", "blue", "green", "yellow", "purple", "black", "orange", "pink"}

type Player struct {
	ID   PlayerID `json:"id"`
	Name string   `json:"name"`
}

type BanModifier struct {
	NumFactions int `json:"numFactions"`
}

type Settings struct {
	Format              Format         `json:"format"`
	NumSlices           int            `json:"numSlices"`
	DraftSpeaker        bool           `json:"draftSpeaker"`
	DraftSeats          bool           `json:"draftSeats"`
	DraftPlayerColors   bool           `json:"draftPlayerColors"`
	DraftMinorFactions  bool           `json:"draftMinorFactions"`
	Colors              []string       `json:"colors,omitempty"`
	BanModifier         *BanModifier   `json:"banModifier,omitempty"`
	ForceCommitFallback FallbackPolicy `json:"forceCommitFallback,omitempty"`
	TexasHandSize       int            `json:"texasHandSize,omitempty"`
}

func (s Settings) palette() []string {
	if len(s.Colors) > 0 {
		return s.Colors
	}
	return DefaultColors
}

func (s Settings) fallback() FallbackPolicy {
	if s.ForceCommitFallback == "" {
		return FallbackFirstUnclaimed
	}
	return s.ForceCommitFallback
}

// Marker identifies a simultaneous checkpoint inside the pick order.
type Marker string

const (
	MarkerPriorityValue Marker = "PRIORITY_VALUE"
	MarkerHomeSystem    Marker = "HOME_SYSTEM"
)

// PickSlot is either a concrete player turn or a phase marker. On the wire a
// player slot is a number and a marker is a string.
type PickSlot struct {
	Player PlayerID
	Marker Marker
}

func PlayerSlot(id PlayerID) PickSlot { return PickSlot{Player: id} }
func MarkerSlot(m Marker) PickSlot    { return PickSlot{Marker: m} }

func (s PickSlot) IsMarker() bool { return s.Marker != "" }

func (s PickSlot) MarshalJSON() ([]byte, error) {
	if s.IsMarker() {
		return json.Marshal(string(s.Marker))
	}
	return json.Marshal(int(s.Player))
}

func (s *PickSlot) UnmarshalJSON(b []byte) error {
	var id int
	if err := json.Unmarshal(b, &id); err == nil {
		*s = PlayerSlot(PlayerID(id))
		return nil
	}
	var m string
	if err := json.Unmarshal(b, &m); err != nil {
		return fmt.Errorf("pick slot: %w", err)
	}
	switch Marker(m) {
	case MarkerPriorityValue, MarkerHomeSystem:
		*s = MarkerSlot(Marker(m))
		return nil
	default:
		return fmt.Errorf("pick slot: unknown marker %q", m)
	}
}

type Slice struct {
	Tiles []int `json:"tiles"`
}

// MapPosition is a hex on the board. TileID 0 marks an open position.
type MapPosition struct {
	Index  int `json:"index"`
	TileID int `json:"tileId"`
}

type Map struct {
	Positions []MapPosition `json:"positions"`
}

func (m Map) open(index int) bool {
	for _, p := range m.Positions {
		if p.Index == index {
			return p.TileID == 0
		}
	}
	return false
}

// TexasSetup holds the dealt resources of a texas draft. Hands are indexed by
// seat (position in Draft.Players).
type TexasSetup struct {
	Hands         [][]int               `json:"hands"`
	FactionOffers map[PlayerID][]string `json:"factionOffers"`
}

// StagedPick is one player's pending value in a simultaneous phase.
type StagedPick struct {
	Priority int    `json:"priority,omitempty"`
	Faction  string `json:"faction,omitempty"`
}

type Staging struct {
	Phase  SimultaneousPhase       `json:"phase"`
	Values map[PlayerID]StagedPick `json:"values"`
}

type Draft struct {
	ID                     string      `json:"id"`
	Settings               Settings    `json:"settings"`
	Players                []Player    `json:"players"`
	PickOrder              []PickSlot  `json:"pickOrder"`
	Selections             Log         `json:"selections"`
	Slices                 []Slice     `json:"slices"`
	Map                    Map         `json:"map"`
	AvailableFactions      []string    `json:"availableFactions"`
	AvailableMinorFactions []string    `json:"availableMinorFactions"`
	Texas                  *TexasSetup `json:"texas,omitempty"`
	Staging                *Staging    `json:"staging,omitempty"`
}

// Clone copies the parts of the draft Apply mutates.
func (d Draft) Clone() Draft {
	out := d
	out.Selections = slices.Clone(d.Selections)
	if d.Staging != nil {
		out.Staging = &Staging{Phase: d.Staging.Phase, Values: maps.Clone(d.Staging.Values)}
	}
	return out
}

// Phase resolves the current phase from the log.
func (d Draft) Phase() Phase {
	return ResolvePhase(d.PickOrder, len(d.Selections), d.Settings, d.Players)
}

func (d Draft) Finished() bool {
	return d.Phase().Kind == PhaseFinished
}

func (d Draft) seat(id PlayerID) (int, bool) {
	for i, p := range d.Players {
		if p.ID == id {
			return i, true
		}
	}
	return 0, false
}

func (d Draft) banCount() int {
	if d.Settings.BanModifier == nil {
		return 0
	}
	return d.Settings.BanModifier.NumFactions * len(d.Players)
}

// Redacted hides other players' staged values from viewer. Admins see everything.
func (d Draft) Redacted(viewer PlayerID, admin bool) Draft {
	if d.Staging == nil || admin {
		return d
	}
	out := d.Clone()
	for id := range out.Staging.Values {
		if id != viewer {
			out.Staging.Values[id] = StagedPick{}
		}
	}
	return out
}
