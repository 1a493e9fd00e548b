package engine

import (
	"errors"
	"fmt"
)

var ErrInvalidSetup = errors.New("invalid draft setup")

// NewDraft builds a fresh draft with its pick order laid out for the format.
func NewDraft(id string, settings Settings, players []Player) (Draft, error) {
	if len(players) == 0 {
		return Draft{}, fmt.Errorf("%w: no players", ErrInvalidSetup)
	}
	seen := make(map[PlayerID]bool, len(players))
	for _, p := range players {
		if seen[p.ID] {
			return Draft{}, fmt.Errorf("%w: duplicate player id %d", ErrInvalidSetup, p.ID)
		}
		seen[p.ID] = true
	}

	switch settings.Format {
	case FormatMilty, FormatHeisen:
	case FormatTexas:
		if settings.TexasHandSize <= 0 {
			return Draft{}, fmt.Errorf("%w: texas hand size must be positive", ErrInvalidSetup)
		}
	case "":
		settings.Format = FormatMilty
	default:
		return Draft{}, fmt.Errorf("%w: unknown format %q", ErrInvalidSetup, settings.Format)
	}
	if settings.BanModifier != nil && settings.BanModifier.NumFactions < 0 {
		return Draft{}, fmt.Errorf("%w: negative ban count %d", ErrInvalidSetup, settings.BanModifier.NumFactions)
	}
	if settings.ForceCommitFallback == "" {
		settings.ForceCommitFallback = FallbackFirstUnclaimed
	}

	return Draft{
		ID:         id,
		Settings:   settings,
		Players:    players,
		PickOrder:  BuildPickOrder(settings, players),
		Selections: Log{},
	}, nil
}

// Validate checks the dealt resources NewDraft does not see. A texas draft
// needs one hand per seat, each holding at least TexasHandSize distinct
// tiles, and a faction offer for every player.
func (d Draft) Validate() error {
	if b := d.Settings.BanModifier; b != nil && b.NumFactions < 0 {
		return fmt.Errorf("%w: negative ban count %d", ErrInvalidSetup, b.NumFactions)
	}
	if d.Settings.Format != FormatTexas {
		return nil
	}
	if d.Texas == nil {
		return fmt.Errorf("%w: texas draft without dealt hands", ErrInvalidSetup)
	}
	if len(d.Texas.Hands) != len(d.Players) {
		return fmt.Errorf("%w: %d hands for %d players", ErrInvalidSetup, len(d.Texas.Hands), len(d.Players))
	}
	seen := make(map[int]bool)
	for i, hand := range d.Texas.Hands {
		if len(hand) < d.Settings.TexasHandSize {
			return fmt.Errorf("%w: hand %d has %d tiles, need %d", ErrInvalidSetup, i, len(hand), d.Settings.TexasHandSize)
		}
		for _, tile := range hand {
			if seen[tile] {
				return fmt.Errorf("%w: tile %d dealt twice", ErrInvalidSetup, tile)
			}
			seen[tile] = true
		}
	}
	for _, p := range d.Players {
		if len(d.Texas.FactionOffers[p.ID]) == 0 {
			return fmt.Errorf("%w: no faction offer for player %d", ErrInvalidSetup, p.ID)
		}
	}
	return nil
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

// Grew reports whether events appended to the log.
func Grew(events []Event) bool {
	return ContainsEvent(events, EvtSelectionCommitted) || ContainsEvent(events, EvtPhaseCommitted)
}
