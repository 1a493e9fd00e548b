package engine

import (
	"encoding/json"
	"fmt"
)

type SelectionKind string

const (
	KindSelectFaction       SelectionKind = "select-faction"
	KindSelectSlice         SelectionKind = "select-slice"
	KindSelectSpeakerOrder  SelectionKind = "select-speaker-order"
	KindSelectMinorFaction  SelectionKind = "select-minor-faction"
	KindSelectPlayerColor   SelectionKind = "select-player-color"
	KindSelectSeat          SelectionKind = "select-seat"
	KindBanFaction          SelectionKind = "ban-faction"
	KindSelectPriorityValue SelectionKind = "select-priority-value"
	KindSelectHomeSystem    SelectionKind = "select-home-system"
	KindSelectTexasFaction  SelectionKind = "select-texas-faction"
	KindTexasTilePick       SelectionKind = "texas-tile-pick"
	KindTexasTilePlacement  SelectionKind = "texas-tile-placement"
)

// Selection is one committed entry of the draft log. The set of
// implementations is closed; every switch over it ends in a default that
// reports the unknown variant.
type Selection interface {
	Kind() SelectionKind
	Player() PlayerID
	isSelection()
}

type SelectFaction struct {
	PlayerID  PlayerID `json:"playerId"`
	FactionID string   `json:"factionId"`
}

type SelectSlice struct {
	PlayerID PlayerID `json:"playerId"`
	SliceIdx int      `json:"sliceIdx"`
}

type SelectSpeakerOrder struct {
	PlayerID     PlayerID `json:"playerId"`
	SpeakerOrder int      `json:"speakerOrder"`
}

type SelectMinorFaction struct {
	PlayerID       PlayerID `json:"playerId"`
	MinorFactionID string   `json:"minorFactionId"`
}

type SelectPlayerColor struct {
	PlayerID PlayerID `json:"playerId"`
	Color    string   `json:"color"`
}

type SelectSeat struct {
	PlayerID PlayerID `json:"playerId"`
	SeatIdx  int      `json:"seatIdx"`
}

type BanFaction struct {
	PlayerID  PlayerID `json:"playerId"`
	FactionID string   `json:"factionId"`
}

type SelectPriorityValue struct {
	PlayerID PlayerID `json:"playerId"`
	Value    int      `json:"value"`
}

// SelectHomeSystem claims the home system of FactionID for the player.
type SelectHomeSystem struct {
	PlayerID  PlayerID `json:"playerId"`
	FactionID string   `json:"factionId"`
}

type SelectTexasFaction struct {
	PlayerID  PlayerID `json:"playerId"`
	FactionID string   `json:"factionId"`
}

type TexasTilePick struct {
	PlayerID PlayerID `json:"playerId"`
	TileID   int      `json:"tileId"`
}

type TexasTilePlacement struct {
	PlayerID PlayerID `json:"playerId"`
	TileID   int      `json:"tileId"`
	Position int      `json:"position"`
}

func (s SelectFaction) Kind() SelectionKind       { return KindSelectFaction }
func (s SelectSlice) Kind() SelectionKind         { return KindSelectSlice }
func (s SelectSpeakerOrder) Kind() SelectionKind  { return KindSelectSpeakerOrder }
func (s SelectMinorFaction) Kind() SelectionKind  { return KindSelectMinorFaction }
func (s SelectPlayerColor) Kind() SelectionKind   { return KindSelectPlayerColor }
func (s SelectSeat) Kind() SelectionKind          { return KindSelectSeat }
func (s BanFaction) Kind() SelectionKind          { return KindBanFaction }
func (s SelectPriorityValue) Kind() SelectionKind { return KindSelectPriorityValue }
func (s SelectHomeSystem) Kind() SelectionKind    { return KindSelectHomeSystem }
func (s SelectTexasFaction) Kind() SelectionKind  { return KindSelectTexasFaction }
func (s TexasTilePick) Kind() SelectionKind       { return KindTexasTilePick }
func (s TexasTilePlacement) Kind() SelectionKind  { return KindTexasTilePlacement }

func (s SelectFaction) Player() PlayerID       { return s.PlayerID }
func (s SelectSlice) Player() PlayerID         { return s.PlayerID }
func (s SelectSpeakerOrder) Player() PlayerID  { return s.PlayerID }
func (s SelectMinorFaction) Player() PlayerID  { return s.PlayerID }
func (s SelectPlayerColor) Player() PlayerID   { return s.PlayerID }
func (s SelectSeat) Player() PlayerID          { return s.PlayerID }
func (s BanFaction) Player() PlayerID          { return s.PlayerID }
func (s SelectPriorityValue) Player() PlayerID { return s.PlayerID }
func (s SelectHomeSystem) Player() PlayerID    { return s.PlayerID }
func (s SelectTexasFaction) Player() PlayerID  { return s.PlayerID }
func (s TexasTilePick) Player() PlayerID       { return s.PlayerID }
func (s TexasTilePlacement) Player() PlayerID  { return s.PlayerID }

func (SelectFaction) isSelection()       {}
func (SelectSlice) isSelection()         {}
func (SelectSpeakerOrder) isSelection()  {}
func (SelectMinorFaction) isSelection()  {}
func (SelectPlayerColor) isSelection()   {}
func (SelectSeat) isSelection()          {}
func (BanFaction) isSelection()          {}
func (SelectPriorityValue) isSelection() {}
func (SelectHomeSystem) isSelection()    {}
func (SelectTexasFaction) isSelection()  {}
func (TexasTilePick) isSelection()       {}
func (TexasTilePlacement) isSelection()  {}

// Log is the ordered, append-only history of a draft.
type Log []Selection

type selectionEnvelope struct {
	Type SelectionKind   `json:"type"`
	Data json.RawMessage `json:"data"`
}

func MarshalSelection(s Selection) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil selection", ErrUnknownSelection)
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return json.Marshal(selectionEnvelope{Type: s.Kind(), Data: data})
}

func UnmarshalSelection(b []byte) (Selection, error) {
	var env selectionEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, err
	}
	s, err := newSelection(env.Type)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(env.Data, s); err != nil {
		return nil, fmt.Errorf("decode %s: %w", env.Type, err)
	}
	return derefSelection(s), nil
}

// newSelection returns a pointer to a zero value of the variant named by kind.
func newSelection(kind SelectionKind) (any, error) {
	switch kind {
	case KindSelectFaction:
		return &SelectFaction{}, nil
	case KindSelectSlice:
		return &SelectSlice{}, nil
	case KindSelectSpeakerOrder:
		return &SelectSpeakerOrder{}, nil
	case KindSelectMinorFaction:
		return &SelectMinorFaction{}, nil
	case KindSelectPlayerColor:
		return &SelectPlayerColor{}, nil
	case KindSelectSeat:
		return &SelectSeat{}, nil
	case KindBanFaction:
		return &BanFaction{}, nil
	case KindSelectPriorityValue:
		return &SelectPriorityValue{}, nil
	case KindSelectHomeSystem:
		return &SelectHomeSystem{}, nil
	case KindSelectTexasFaction:
		return &SelectTexasFaction{}, nil
	case KindTexasTilePick:
		return &TexasTilePick{}, nil
	case KindTexasTilePlacement:
		return &TexasTilePlacement{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSelection, kind)
	}
}

func derefSelection(p any) Selection {
	switch v := p.(type) {
	case *SelectFaction:
		return *v
	case *SelectSlice:
		return *v
	case *SelectSpeakerOrder:
		return *v
	case *SelectMinorFaction:
		return *v
	case *SelectPlayerColor:
		return *v
	case *SelectSeat:
		return *v
	case *BanFaction:
		return *v
	case *SelectPriorityValue:
		return *v
	case *SelectHomeSystem:
		return *v
	case *SelectTexasFaction:
		return *v
	case *TexasTilePick:
		return *v
	case *TexasTilePlacement:
		return *v
	default:
		panic(fmt.Sprintf("engine: unknown selection type %T", p))
	}
}

func (l Log) MarshalJSON() ([]byte, error) {
	out := make([]json.RawMessage, 0, len(l))
	for i, s := range l {
		b, err := MarshalSelection(s)
		if err != nil {
			return nil, fmt.Errorf("selection %d: %w", i, err)
		}
		out = append(out, b)
	}
	return json.Marshal(out)
}

func (l *Log) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	log := make(Log, 0, len(raw))
	for i, r := range raw {
		s, err := UnmarshalSelection(r)
		if err != nil {
			return fmt.Errorf("selection %d: %w", i, err)
		}
		log = append(log, s)
	}
	*l = log
	return nil
}

// Count returns how many entries of kind the player holds.
func (l Log) Count(player PlayerID, kind SelectionKind) int {
	n := 0
	for _, s := range l {
		if s.Player() == player && s.Kind() == kind {
			n++
		}
	}
	return n
}

func (l Log) Has(player PlayerID, kind SelectionKind) bool {
	return l.Count(player, kind) > 0
}

// tailRun is the number of trailing entries of the given kind.
func (l Log) tailRun(kind SelectionKind) int {
	n := 0
	for i := len(l) - 1; i >= 0 && l[i].Kind() == kind; i-- {
		n++
	}
	return n
}
