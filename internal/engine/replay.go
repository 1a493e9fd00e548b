package engine

import (
	"fmt"
	"slices"
)

type Placement struct {
	TileID   int `json:"tileId"`
	Position int `json:"position"`
}

// PlayerView is everything a player holds at a point in the log.
type PlayerView struct {
	ID            PlayerID    `json:"id"`
	Name          string      `json:"name"`
	Faction       string      `json:"faction,omitempty"`
	Slice         *int        `json:"slice,omitempty"`
	SpeakerOrder  *int        `json:"speakerOrder,omitempty"`
	Seat          *int        `json:"seat,omitempty"`
	Color         string      `json:"color,omitempty"`
	MinorFaction  string      `json:"minorFaction,omitempty"`
	PriorityValue *int        `json:"priorityValue,omitempty"`
	HomeSystem    string      `json:"homeSystem,omitempty"`
	Tiles         []int       `json:"tiles,omitempty"`
	Placements    []Placement `json:"placements,omitempty"`
}

// View is the hydrated draft at one log index.
type View struct {
	Index          int           `json:"index"`
	Total          int           `json:"total"`
	Phase          Phase         `json:"phase"`
	Players        []PlayerView  `json:"players"`
	BannedFactions []string      `json:"bannedFactions"`
	Map            []MapPosition `json:"map"`
}

func intPtr(v int) *int { return &v }

// Hydrate folds selections[0:index) onto the draft's static resources.
// index is clamped to the log bounds.
func Hydrate(d Draft, index int) View {
	index = max(0, min(index, len(d.Selections)))

	players := make([]PlayerView, len(d.Players))
	seats := make(map[PlayerID]int, len(d.Players))
	for i, p := range d.Players {
		players[i] = PlayerView{ID: p.ID, Name: p.Name}
		seats[p.ID] = i
	}
	board := slices.Clone(d.Map.Positions)
	banned := []string{}

	for _, s := range d.Selections[:index] {
		i, ok := seats[s.Player()]
		if !ok {
			continue
		}
		pv := &players[i]
		switch v := s.(type) {
		case SelectFaction:
			pv.Faction = v.FactionID
		case SelectTexasFaction:
			pv.Faction = v.FactionID
		case SelectSlice:
			pv.Slice = intPtr(v.SliceIdx)
		case SelectSpeakerOrder:
			pv.SpeakerOrder = intPtr(v.SpeakerOrder)
		case SelectSeat:
			pv.Seat = intPtr(v.SeatIdx)
		case SelectPlayerColor:
			pv.Color = v.Color
		case SelectMinorFaction:
			pv.MinorFaction = v.MinorFactionID
		case BanFaction:
			banned = append(banned, v.FactionID)
		case SelectPriorityValue:
			pv.PriorityValue = intPtr(v.Value)
		case SelectHomeSystem:
			pv.HomeSystem = v.FactionID
		case TexasTilePick:
			pv.Tiles = append(pv.Tiles, v.TileID)
		case TexasTilePlacement:
			pv.Placements = append(pv.Placements, Placement{TileID: v.TileID, Position: v.Position})
			for j := range board {
				if board[j].Index == v.Position {
					board[j].TileID = v.TileID
				}
			}
		default:
			panic(fmt.Sprintf("engine: unknown selection %T", s))
		}
	}
	slices.Sort(banned)
	for i := range players {
		slices.Sort(players[i].Tiles)
	}

	return View{
		Index:          index,
		Total:          len(d.Selections),
		Phase:          ResolvePhase(d.PickOrder, index, d.Settings, d.Players),
		Players:        players,
		BannedFactions: banned,
		Map:            board,
	}
}

// Cursor walks a finished (or live) draft's log without touching it.
type Cursor struct {
	draft Draft
	index int
	view  View
}

// NewCursor starts at the beginning of the log.
func NewCursor(d Draft) *Cursor {
	c := &Cursor{draft: d}
	c.seek(0)
	return c
}

func (c *Cursor) seek(i int) {
	c.index = max(0, min(i, len(c.draft.Selections)))
	c.view = Hydrate(c.draft, c.index)
}

func (c *Cursor) Index() int { return c.index }
func (c *Cursor) View() View { return c.view }
func (c *Cursor) Len() int   { return len(c.draft.Selections) }

func (c *Cursor) JumpToStart() { c.seek(0) }
func (c *Cursor) JumpToEnd()   { c.seek(len(c.draft.Selections)) }

// StepForward reports false when already at the end.
func (c *Cursor) StepForward() bool {
	if c.index >= len(c.draft.Selections) {
		return false
	}
	c.seek(c.index + 1)
	return true
}

func (c *Cursor) StepBackward() bool {
	if c.index == 0 {
		return false
	}
	c.seek(c.index - 1)
	return true
}

func (c *Cursor) Seek(i int) error {
	if i < 0 || i > len(c.draft.Selections) {
		return fmt.Errorf("replay index %d out of range [0,%d]", i, len(c.draft.Selections))
	}
	c.seek(i)
	return nil
}

// Rebuild replays log from an empty history on top of base's resources and
// returns the resulting draft. Every entry goes through the same checks as a
// live intent, so an illegal or reordered log is rejected.
func Rebuild(base Draft, log Log) (Draft, error) {
	d := base.Clone()
	d.Selections = Log{}
	d.Staging = nil
	admin := Caps{Admin: true}

	for i, s := range log {
		var cmd Command
		if sp, ok := blockPhase(s.Kind()); ok {
			cmd = Command{Intent: Stage{Phase: sp, Player: s.Player(), Value: stagedValue(s)}, Actor: s.Player(), Caps: admin}
		} else {
			cmd = Command{Intent: Pick{Selection: s}, Actor: s.Player(), Caps: admin}
		}
		_, next, err := Apply(d, cmd)
		if err != nil {
			return base, fmt.Errorf("selection %d (%s): %w", i, s.Kind(), err)
		}
		d = next
	}
	if d.Staging != nil {
		return base, fmt.Errorf("%w: %s", ErrIncompleteBlock, d.Staging.Phase)
	}
	// Commits reorder a block by player id; the result must match what was proposed.
	for i := range log {
		if d.Selections[i] != log[i] {
			return base, fmt.Errorf("%w: selection %d out of order", ErrIncompleteBlock, i)
		}
	}
	return d, nil
}

func stagedValue(s Selection) StagedPick {
	switch v := s.(type) {
	case SelectPriorityValue:
		return StagedPick{Priority: v.Value}
	case SelectHomeSystem:
		return StagedPick{Faction: v.FactionID}
	default:
		return StagedPick{}
	}
}

// Extend applies tail after d's log as live picks made by actor with caps.
// Simultaneous selections are rejected; their values only enter through
// staging.
func Extend(d Draft, tail Log, actor PlayerID, caps Caps) (Draft, error) {
	next := d
	for i, s := range tail {
		at := len(d.Selections) + i
		if _, ok := blockPhase(s.Kind()); ok {
			return d, fmt.Errorf("selection %d (%s): %w: simultaneous values must be staged", at, s.Kind(), ErrWrongPhase)
		}
		_, n, err := Apply(next, Command{Intent: Pick{Selection: s}, Actor: actor, Caps: caps})
		if err != nil {
			return d, fmt.Errorf("selection %d (%s): %w", at, s.Kind(), err)
		}
		next = n
	}
	return next, nil
}
