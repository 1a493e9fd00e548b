package engine

import "slices"

// handInFront returns the tiles still in the hand the player is holding. Hands
// pass one seat per tile round, so in round r the player at seat p holds hand
// (p+r) mod n.
func handInFront(d Draft, player PlayerID) []int {
	if d.Texas == nil || len(d.Texas.Hands) == 0 {
		return nil
	}
	seat, ok := d.seat(player)
	if !ok {
		return nil
	}
	round := d.Selections.Count(player, KindTexasTilePick)
	hand := d.Texas.Hands[(seat+round)%len(d.Texas.Hands)]

	var left []int
	for _, tile := range hand {
		if !tilePicked(d.Selections, tile) {
			left = append(left, tile)
		}
	}
	return left
}

func tilePicked(log Log, tile int) bool {
	for _, s := range log {
		if p, ok := s.(TexasTilePick); ok && p.TileID == tile {
			return true
		}
	}
	return false
}

// unplacedTiles lists tiles the player picked but has not placed yet.
func unplacedTiles(d Draft, player PlayerID) []int {
	var held []int
	for _, s := range d.Selections {
		switch v := s.(type) {
		case TexasTilePick:
			if v.PlayerID == player {
				held = append(held, v.TileID)
			}
		case TexasTilePlacement:
			if v.PlayerID == player {
				held = slices.DeleteFunc(held, func(t int) bool { return t == v.TileID })
			}
		}
	}
	return held
}
