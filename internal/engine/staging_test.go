package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// heisenAtPriority plays the snake rounds of a six player heisen draft.
func heisenAtPriority(t *testing.T) Draft {
	t.Helper()
	d := newHeisen(t)
	for i := 0; i < 12; i++ {
		d = pickFirstLegal(t, d)
	}
	require.True(t, d.Phase().IsSimultaneous(SimPriorityValue))
	return d
}

func stage(t *testing.T, d Draft, sp SimultaneousPhase, p PlayerID, v StagedPick) (Draft, []Event) {
	t.Helper()
	events, next, err := Apply(d, Command{Intent: Stage{Phase: sp, Player: p, Value: v}, Actor: p})
	require.NoError(t, err, "stage player %d", p)
	return next, events
}

func TestPriorityPhaseCommitsWhenAllStaged(t *testing.T) {
	d := heisenAtPriority(t)
	before := d.Phase()

	for _, p := range []PlayerID{6, 5, 4, 3, 2} {
		var events []Event
		d, events = stage(t, d, SimPriorityValue, p, StagedPick{Priority: int(7 - p)})
		assert.False(t, ContainsEvent(events, EvtPhaseCommitted))
	}
	require.Len(t, d.Selections, 12, "five of six staged must not commit")
	assert.Equal(t, before, d.Phase())
	assert.Len(t, d.Staging.Values, 5)

	d, events := stage(t, d, SimPriorityValue, 1, StagedPick{Priority: 6})
	require.True(t, ContainsEvent(events, EvtPhaseCommitted))
	require.Len(t, d.Selections, 18)
	assert.Nil(t, d.Staging)
	for i, s := range d.Selections[12:] {
		assert.Equal(t, PlayerID(i+1), s.Player(), "block must be in ascending player order")
		assert.Equal(t, SelectPriorityValue{PlayerID: PlayerID(i + 1), Value: 6 - i}, s)
	}
	assert.Equal(t, before.Slot+6, d.Phase().Slot)
	assert.True(t, d.Phase().IsSimultaneous(SimHomeSystem))
}

func TestStageLastWriteWins(t *testing.T) {
	d := heisenAtPriority(t)
	d, _ = stage(t, d, SimPriorityValue, 3, StagedPick{Priority: 1})
	d, _ = stage(t, d, SimPriorityValue, 3, StagedPick{Priority: 4})
	assert.Equal(t, map[PlayerID]StagedPick{3: {Priority: 4}}, d.Staging.Values)

	// 1 is free again once player 3 moved off it
	d, _ = stage(t, d, SimPriorityValue, 2, StagedPick{Priority: 1})
	assert.Len(t, d.Staging.Values, 2)
}

func TestStageRejections(t *testing.T) {
	d := heisenAtPriority(t)
	d, _ = stage(t, d, SimPriorityValue, 1, StagedPick{Priority: 2})

	cases := []struct {
		name    string
		cmd     Command
		wantErr error
	}{
		{"value staged by another player", Command{Intent: Stage{Phase: SimPriorityValue, Player: 2, Value: StagedPick{Priority: 2}}, Actor: 2}, ErrValueClaimed},
		{"value out of range", Command{Intent: Stage{Phase: SimPriorityValue, Player: 2, Value: StagedPick{Priority: 7}}, Actor: 2}, ErrUnknownValue},
		{"wrong phase type", Command{Intent: Stage{Phase: SimHomeSystem, Player: 2, Value: StagedPick{Faction: "winnu"}}, Actor: 2}, ErrWrongPhase},
		{"stage for someone else", Command{Intent: Stage{Phase: SimPriorityValue, Player: 2, Value: StagedPick{Priority: 3}}, Actor: 3}, ErrWrongTurn},
		{"unknown player", Command{Intent: Stage{Phase: SimPriorityValue, Player: 9, Value: StagedPick{Priority: 3}}, Actor: 9}, ErrUnknownPlayer},
		{"sequential pick during simultaneous phase", Command{Intent: Pick{Selection: SelectSeat{PlayerID: 1}}, Actor: 1}, ErrWrongPhase},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, next, err := Apply(d, tc.cmd)
			require.ErrorIs(t, err, tc.wantErr)
			assert.Equal(t, d, next)
		})
	}
}

func TestStageRejectsFactionHeldByAnotherPlayer(t *testing.T) {
	d := Draft{
		ID:                "sol-conflict",
		Settings:          Settings{Format: FormatHeisen},
		Players:           players(6),
		AvailableFactions: testFactions,
		PickOrder: []PickSlot{
			PlayerSlot(5),
			MarkerSlot(MarkerHomeSystem), MarkerSlot(MarkerHomeSystem), MarkerSlot(MarkerHomeSystem),
			MarkerSlot(MarkerHomeSystem), MarkerSlot(MarkerHomeSystem), MarkerSlot(MarkerHomeSystem),
		},
		Selections: Log{SelectFaction{PlayerID: 5, FactionID: "sol"}},
	}
	d, _ = stage(t, d, SimHomeSystem, 3, StagedPick{Faction: "hacan"})
	staged := d.Staging.Values

	_, next, err := Apply(d, Command{Intent: Stage{Phase: SimHomeSystem, Player: 2, Value: StagedPick{Faction: "sol"}}, Actor: 2})
	require.ErrorIs(t, err, ErrValueClaimed)
	assert.Equal(t, staged, next.Staging.Values)
	assert.Len(t, next.Selections, 1)

	// the holder may take its own faction's home system
	_, _, err = Apply(d, Command{Intent: Stage{Phase: SimHomeSystem, Player: 5, Value: StagedPick{Faction: "sol"}}, Actor: 5})
	require.NoError(t, err)
}

func TestUnstage(t *testing.T) {
	d := heisenAtPriority(t)
	d, _ = stage(t, d, SimPriorityValue, 4, StagedPick{Priority: 1})

	_, _, err := Apply(d, Command{Intent: Unstage{Phase: SimPriorityValue, Player: 2}, Actor: 2})
	require.ErrorIs(t, err, ErrNotStaged)

	events, next, err := Apply(d, Command{Intent: Unstage{Phase: SimPriorityValue, Player: 4}, Actor: 4})
	require.NoError(t, err)
	assert.True(t, ContainsEvent(events, EvtUnstaged))
	assert.Nil(t, next.Staging)
	assert.Len(t, next.Selections, 12)
}

func TestForceCommit(t *testing.T) {
	partial := func(t *testing.T) Draft {
		d := heisenAtPriority(t)
		d, _ = stage(t, d, SimPriorityValue, 2, StagedPick{Priority: 1})
		d, _ = stage(t, d, SimPriorityValue, 5, StagedPick{Priority: 3})
		return d
	}

	t.Run("requires admin", func(t *testing.T) {
		d := partial(t)
		_, _, err := Apply(d, Command{Intent: ForceCommit{Phase: SimPriorityValue}, Actor: 1, Caps: Caps{PickForAnyone: true}})
		require.ErrorIs(t, err, ErrAdminRequired)
	})

	t.Run("first unclaimed", func(t *testing.T) {
		d := partial(t)
		events, next, err := Apply(d, Command{Intent: ForceCommit{Phase: SimPriorityValue}, Caps: Caps{Admin: true}})
		require.NoError(t, err)
		assert.True(t, ContainsEvent(events, EvtPhaseCommitted))
		want := []int{2, 1, 4, 5, 3, 6}
		for i, s := range next.Selections[12:] {
			assert.Equal(t, SelectPriorityValue{PlayerID: PlayerID(i + 1), Value: want[i]}, s)
		}
		assert.Nil(t, next.Staging)
	})

	t.Run("admin values fill the gaps first", func(t *testing.T) {
		d := partial(t)
		_, next, err := Apply(d, Command{
			Intent: ForceCommit{Phase: SimPriorityValue, Values: map[PlayerID]StagedPick{6: {Priority: 2}}},
			Caps:   Caps{Admin: true},
		})
		require.NoError(t, err)
		assert.Equal(t, SelectPriorityValue{PlayerID: 6, Value: 2}, next.Selections[17])
		assert.Equal(t, SelectPriorityValue{PlayerID: 1, Value: 4}, next.Selections[12])
	})

	t.Run("admin specified policy", func(t *testing.T) {
		d := partial(t)
		d.Settings.ForceCommitFallback = FallbackAdminSpecified
		_, _, err := Apply(d, Command{Intent: ForceCommit{Phase: SimPriorityValue}, Caps: Caps{Admin: true}})
		require.ErrorIs(t, err, ErrMissingForcedValue)

		_, next, err := Apply(d, Command{
			Intent: ForceCommit{Phase: SimPriorityValue, Values: map[PlayerID]StagedPick{
				1: {Priority: 6}, 3: {Priority: 5}, 4: {Priority: 4}, 6: {Priority: 2},
			}},
			Caps: Caps{Admin: true},
		})
		require.NoError(t, err)
		assert.Len(t, next.Selections, 18)
	})

	t.Run("seeded random is reproducible", func(t *testing.T) {
		d := partial(t)
		d.Settings.ForceCommitFallback = FallbackSeededRandom
		cmd := Command{Intent: ForceCommit{Phase: SimPriorityValue}, Caps: Caps{Admin: true}}
		_, a, err := Apply(d, cmd)
		require.NoError(t, err)
		_, b, err := Apply(d, cmd)
		require.NoError(t, err)
		assert.Equal(t, a.Selections, b.Selections)

		seen := map[int]bool{}
		for _, s := range a.Selections[12:] {
			v := s.(SelectPriorityValue).Value
			assert.False(t, seen[v], "value %d assigned twice", v)
			seen[v] = true
		}
		assert.Equal(t, SelectPriorityValue{PlayerID: 2, Value: 1}, a.Selections[13])
	})

	t.Run("not live", func(t *testing.T) {
		_, _, err := Apply(newHeisen(t), Command{Intent: ForceCommit{Phase: SimPriorityValue}, Caps: Caps{Admin: true}})
		require.ErrorIs(t, err, ErrWrongPhase)
	})
}

func TestRedactedHidesOtherStagedValues(t *testing.T) {
	d := heisenAtPriority(t)
	d, _ = stage(t, d, SimPriorityValue, 1, StagedPick{Priority: 4})
	d, _ = stage(t, d, SimPriorityValue, 2, StagedPick{Priority: 5})

	r := d.Redacted(1, false)
	assert.Equal(t, StagedPick{Priority: 4}, r.Staging.Values[1])
	assert.Equal(t, StagedPick{}, r.Staging.Values[2])
	assert.Equal(t, StagedPick{Priority: 5}, d.Staging.Values[2], "redaction must not leak into the source")
	assert.Equal(t, d, d.Redacted(1, true))
}
