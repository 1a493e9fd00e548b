package engine

import (
	"errors"
	"testing"
)

var testFactions = []string{"sol", "hacan", "xxcha", "jolnar", "letnev", "mentak", "naalu", "yssaril", "winnu"}

func players(n int) []Player {
	out := make([]Player, n)
	for i := range out {
		out[i] = Player{ID: PlayerID(i + 1), Name: string(rune('a' + i))}
	}
	return out
}

func newTestDraft(t *testing.T, s Settings, n int) Draft {
	t.Helper()
	d, err := NewDraft("draft-1", s, players(n))
	if err != nil {
		t.Fatalf("new draft: %v", err)
	}
	d.AvailableFactions = testFactions
	d.AvailableMinorFactions = []string{"vuilraith", "nomad", "argent"}
	d.Slices = make([]Slice, n)
	return d
}

func newMilty(t *testing.T) Draft {
	return newTestDraft(t, Settings{Format: FormatMilty, DraftSpeaker: true}, 6)
}

func newHeisen(t *testing.T) Draft {
	return newTestDraft(t, Settings{Format: FormatHeisen}, 6)
}

// candidates lists every value a player could try for kind.
func candidates(d Draft, p PlayerID, kind SelectionKind) []Selection {
	var out []Selection
	switch kind {
	case KindSelectSlice:
		for i := 0; i < d.numSlices(); i++ {
			out = append(out, SelectSlice{PlayerID: p, SliceIdx: i})
		}
	case KindSelectFaction:
		for _, f := range d.AvailableFactions {
			out = append(out, SelectFaction{PlayerID: p, FactionID: f})
		}
	case KindBanFaction:
		for _, f := range d.AvailableFactions {
			out = append(out, BanFaction{PlayerID: p, FactionID: f})
		}
	case KindSelectSpeakerOrder:
		for i := range d.Players {
			out = append(out, SelectSpeakerOrder{PlayerID: p, SpeakerOrder: i})
		}
	case KindSelectSeat:
		for i := range d.Players {
			out = append(out, SelectSeat{PlayerID: p, SeatIdx: i})
		}
	case KindSelectPlayerColor:
		for _, c := range d.Settings.palette() {
			out = append(out, SelectPlayerColor{PlayerID: p, Color: c})
		}
	case KindSelectMinorFaction:
		for _, m := range d.AvailableMinorFactions {
			out = append(out, SelectMinorFaction{PlayerID: p, MinorFactionID: m})
		}
	case KindSelectTexasFaction:
		for _, f := range d.Texas.FactionOffers[p] {
			out = append(out, SelectTexasFaction{PlayerID: p, FactionID: f})
		}
	case KindTexasTilePick:
		for _, tile := range handInFront(d, p) {
			out = append(out, TexasTilePick{PlayerID: p, TileID: tile})
		}
	case KindTexasTilePlacement:
		for _, tile := range unplacedTiles(d, p) {
			for _, pos := range d.Map.Positions {
				out = append(out, TexasTilePlacement{PlayerID: p, TileID: tile, Position: pos.Index})
			}
		}
	}
	return out
}

// pickFirstLegal commits the first legal sequential pick for the active player.
func pickFirstLegal(t *testing.T, d Draft) Draft {
	t.Helper()
	phase := d.Phase()
	if phase.Kind != PhaseSequential {
		t.Fatalf("expected sequential phase, got %+v", phase)
	}
	p := phase.ActivePlayer
	for _, kind := range nextKinds(d, p, phase) {
		for _, sel := range candidates(d, p, kind) {
			_, next, err := Apply(d, Command{Intent: Pick{Selection: sel}, Actor: p})
			if err == nil {
				return next
			}
		}
	}
	t.Fatalf("no legal pick for player %d at %d selections", p, len(d.Selections))
	return d
}

func TestPickOutOfTurnIsRejected(t *testing.T) {
	d := newMilty(t)

	cases := []struct {
		name    string
		cmd     Command
		wantErr error
	}{
		{
			name:    "player 2 picks on player 1's turn",
			cmd:     Command{Intent: Pick{Selection: SelectSlice{PlayerID: 2, SliceIdx: 0}}, Actor: 2},
			wantErr: ErrWrongTurn,
		},
		{
			name:    "player 2 picks for player 1 without privilege",
			cmd:     Command{Intent: Pick{Selection: SelectSlice{PlayerID: 1, SliceIdx: 0}}, Actor: 2},
			wantErr: ErrWrongTurn,
		},
		{
			name:    "pick-for-anyone may pick for player 1",
			cmd:     Command{Intent: Pick{Selection: SelectSlice{PlayerID: 1, SliceIdx: 0}}, Actor: 2, Caps: Caps{PickForAnyone: true}},
			wantErr: nil,
		},
		{
			name:    "admin still cannot commit a selection for the wrong player",
			cmd:     Command{Intent: Pick{Selection: SelectSlice{PlayerID: 3, SliceIdx: 0}}, Actor: 3, Caps: Caps{Admin: true}},
			wantErr: ErrWrongTurn,
		},
		{
			name:    "active player picks",
			cmd:     Command{Intent: Pick{Selection: SelectFaction{PlayerID: 1, FactionID: "sol"}}, Actor: 1},
			wantErr: nil,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			events, next, err := Apply(d, tc.cmd)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("want %v, got %v", tc.wantErr, err)
				}
				if len(next.Selections) != 0 {
					t.Fatalf("rejected pick must not touch the log")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if len(next.Selections) != 1 || !ContainsEvent(events, EvtSelectionCommitted) {
				t.Fatalf("expected one committed selection, got %+v", next.Selections)
			}
			if len(d.Selections) != 0 {
				t.Fatalf("apply mutated its input")
			}
		})
	}
}

func TestPickLegality(t *testing.T) {
	d := newMilty(t)
	_, d, err := Apply(d, Command{Intent: Pick{Selection: SelectFaction{PlayerID: 1, FactionID: "sol"}}, Actor: 1})
	if err != nil {
		t.Fatalf("seed pick: %v", err)
	}

	cases := []struct {
		name    string
		sel     Selection
		wantErr error
	}{
		{"faction already held", SelectFaction{PlayerID: 2, FactionID: "sol"}, ErrValueClaimed},
		{"unknown faction", SelectFaction{PlayerID: 2, FactionID: "muaat"}, ErrUnknownValue},
		{"slice out of range", SelectSlice{PlayerID: 2, SliceIdx: 6}, ErrUnknownValue},
		{"seat not drafted in this format", SelectSeat{PlayerID: 2, SeatIdx: 0}, ErrIllegalSelection},
		{"simultaneous value through a pick", SelectPriorityValue{PlayerID: 2, Value: 1}, ErrIllegalSelection},
		{"legal speaker order", SelectSpeakerOrder{PlayerID: 2, SpeakerOrder: 0}, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(d, Command{Intent: Pick{Selection: tc.sel}, Actor: 2})
			if tc.wantErr == nil && err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Fatalf("want %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestPlayerCannotTakeSameCategoryTwice(t *testing.T) {
	d := newTestDraft(t, Settings{Format: FormatMilty}, 2)
	// order: 1 2 2 1
	steps := []Selection{
		SelectSlice{PlayerID: 1, SliceIdx: 0},
		SelectSlice{PlayerID: 2, SliceIdx: 1},
	}
	for _, s := range steps {
		var err error
		_, d, err = Apply(d, Command{Intent: Pick{Selection: s}, Actor: s.Player()})
		if err != nil {
			t.Fatalf("pick %+v: %v", s, err)
		}
	}
	err := Validate(d, Command{Intent: Pick{Selection: SelectSlice{PlayerID: 2, SliceIdx: 0}}, Actor: 2})
	if !errors.Is(err, ErrIllegalSelection) {
		t.Fatalf("want ErrIllegalSelection, got %v", err)
	}
}

func TestMiltySixPlayersFinishesAfterEighteenPicks(t *testing.T) {
	d := newMilty(t)
	if len(d.PickOrder) != 18 {
		t.Fatalf("want 18 pick slots, got %d", len(d.PickOrder))
	}
	for i := 0; i < 18; i++ {
		d = pickFirstLegal(t, d)
	}
	if got := d.Phase(); got.Kind != PhaseFinished {
		t.Fatalf("want finished, got %+v", got)
	}
	_, _, err := Apply(d, Command{Intent: Pick{Selection: SelectSlice{PlayerID: 1}}, Actor: 1})
	if !errors.Is(err, ErrDraftFinished) {
		t.Fatalf("want ErrDraftFinished, got %v", err)
	}
}

func TestLastPickEmitsFinished(t *testing.T) {
	d := newTestDraft(t, Settings{Format: FormatMilty}, 1)
	_, d, err := Apply(d, Command{Intent: Pick{Selection: SelectSlice{PlayerID: 1, SliceIdx: 0}}, Actor: 1})
	if err != nil {
		t.Fatalf("slice: %v", err)
	}
	events, _, err := Apply(d, Command{Intent: Pick{Selection: SelectFaction{PlayerID: 1, FactionID: "winnu"}}, Actor: 1})
	if err != nil {
		t.Fatalf("faction: %v", err)
	}
	if !ContainsEvent(events, EvtDraftFinished) {
		t.Fatalf("expected %s in %+v", EvtDraftFinished, events)
	}
}

func TestStaleClientIsRejected(t *testing.T) {
	d := pickFirstLegal(t, newMilty(t))
	stale := 0
	_, next, err := Apply(d, Command{
		Intent:             Pick{Selection: SelectSlice{PlayerID: 2, SliceIdx: 3}},
		Actor:              2,
		ExpectedSelections: &stale,
	})
	if !errors.Is(err, ErrStaleClient) {
		t.Fatalf("want ErrStaleClient, got %v", err)
	}
	if len(next.Selections) != 1 {
		t.Fatalf("stale intent changed the log")
	}
}

func TestUnsupportedIntent(t *testing.T) {
	_, _, err := Apply(newMilty(t), Command{})
	if !errors.Is(err, ErrUnsupportedCommand) {
		t.Fatalf("want ErrUnsupportedCommand, got %v", err)
	}
}

func TestNewDraftRejectsBadSetup(t *testing.T) {
	cases := []struct {
		name     string
		settings Settings
		players  []Player
	}{
		{"no players", Settings{Format: FormatMilty}, nil},
		{"duplicate ids", Settings{Format: FormatMilty}, []Player{{ID: 1}, {ID: 1}}},
		{"unknown format", Settings{Format: "auction"}, players(2)},
		{"texas without hand size", Settings{Format: FormatTexas}, players(2)},
		{"negative bans", Settings{Format: FormatMilty, BanModifier: &BanModifier{NumFactions: -1}}, players(2)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewDraft("x", tc.settings, tc.players); !errors.Is(err, ErrInvalidSetup) {
				t.Fatalf("want ErrInvalidSetup, got %v", err)
			}
		})
	}
}
