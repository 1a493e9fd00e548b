package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func finishedHeisen(t *testing.T) Draft {
	t.Helper()
	d := commitPriority(t, heisenAtPriority(t))
	for _, p := range d.Players {
		// each player takes the home system of the faction they drafted
		var faction string
		for _, s := range d.Selections {
			if f, ok := s.(SelectFaction); ok && f.PlayerID == p.ID {
				faction = f.FactionID
			}
		}
		d, _ = stage(t, d, SimHomeSystem, p.ID, StagedPick{Faction: faction})
	}
	require.True(t, d.Finished())
	return d
}

func TestHydrateIsIdempotent(t *testing.T) {
	d := finishedHeisen(t)
	for i := 0; i <= len(d.Selections); i++ {
		a, err := json.Marshal(Hydrate(d, i))
		require.NoError(t, err)
		b, err := json.Marshal(Hydrate(d, i))
		require.NoError(t, err)
		assert.Equal(t, a, b, "index %d", i)
	}
}

func TestHydrateFoldsSelections(t *testing.T) {
	d := finishedHeisen(t)
	end := Hydrate(d, len(d.Selections))
	assert.Equal(t, PhaseFinished, end.Phase.Kind)
	for _, pv := range end.Players {
		assert.NotEmpty(t, pv.Faction)
		assert.Equal(t, pv.Faction, pv.HomeSystem)
		require.NotNil(t, pv.Slice)
		require.NotNil(t, pv.PriorityValue)
		assert.Equal(t, int(pv.ID), *pv.PriorityValue)
	}

	start := Hydrate(d, 0)
	assert.Equal(t, 0, start.Index)
	assert.Equal(t, len(d.Selections), start.Total)
	for _, pv := range start.Players {
		assert.Empty(t, pv.Faction)
		assert.Nil(t, pv.Slice)
	}
	assert.Equal(t, d.Phase(), Hydrate(d, 99).Phase, "index is clamped to the log")
}

func TestCursorNavigation(t *testing.T) {
	d := finishedHeisen(t)
	c := NewCursor(d)
	assert.Equal(t, 0, c.Index())
	assert.False(t, c.StepBackward())

	require.True(t, c.StepForward())
	require.True(t, c.StepForward())
	assert.Equal(t, Hydrate(d, 2), c.View())
	require.True(t, c.StepBackward())
	assert.Equal(t, 1, c.Index())

	c.JumpToEnd()
	assert.Equal(t, len(d.Selections), c.Index())
	assert.False(t, c.StepForward())
	assert.Equal(t, Hydrate(d, len(d.Selections)), c.View())

	c.JumpToStart()
	assert.Equal(t, Hydrate(d, 0), c.View())

	require.NoError(t, c.Seek(10))
	assert.Equal(t, Hydrate(d, 10), c.View())
	assert.Error(t, c.Seek(-1))
	assert.Error(t, c.Seek(c.Len()+1))

	assert.Len(t, d.Selections, c.Len(), "cursor never mutates the log")
}

func TestRebuild(t *testing.T) {
	d := finishedHeisen(t)

	t.Run("replays a legal log", func(t *testing.T) {
		got, err := Rebuild(d, d.Selections)
		require.NoError(t, err)
		assert.Equal(t, d.Selections, got.Selections)
		assert.True(t, got.Finished())
	})

	t.Run("rejects a reordered block", func(t *testing.T) {
		log := append(Log{}, d.Selections...)
		log[12], log[13] = log[13], log[12]
		_, err := Rebuild(d, log)
		require.ErrorIs(t, err, ErrIncompleteBlock)
	})

	t.Run("rejects a partial block", func(t *testing.T) {
		_, err := Rebuild(d, d.Selections[:15])
		require.ErrorIs(t, err, ErrIncompleteBlock)
	})

	t.Run("rejects an illegal entry", func(t *testing.T) {
		log := append(Log{}, d.Selections[:2]...)
		log = append(log, SelectFaction{PlayerID: 3, FactionID: "mahact"})
		_, err := Rebuild(d, log)
		require.ErrorIs(t, err, ErrUnknownValue)
	})
}

func TestExtend(t *testing.T) {
	d := finishedHeisen(t)
	empty, err := Rebuild(d, Log{})
	require.NoError(t, err)
	first := d.Selections[0].Player()

	t.Run("appends the actor's own pick", func(t *testing.T) {
		got, err := Extend(empty, d.Selections[:1], first, Caps{})
		require.NoError(t, err)
		assert.Equal(t, d.Selections[:1], got.Selections)
	})

	t.Run("rejects another player's pick", func(t *testing.T) {
		got, err := Extend(empty, d.Selections[:2], first, Caps{})
		require.ErrorIs(t, err, ErrWrongTurn)
		assert.Empty(t, got.Selections)
	})

	t.Run("pick for anyone may play every seat", func(t *testing.T) {
		got, err := Extend(empty, d.Selections[:2], first, Caps{PickForAnyone: true})
		require.NoError(t, err)
		assert.Len(t, got.Selections, 2)
	})

	t.Run("rejects simultaneous values", func(t *testing.T) {
		at := heisenAtPriority(t)
		p := at.Players[0].ID
		_, err := Extend(at, Log{SelectPriorityValue{PlayerID: p, Value: 1}}, p, Caps{PickForAnyone: true})
		require.ErrorIs(t, err, ErrWrongPhase)
	})
}
