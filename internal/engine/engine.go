// Package engine defines the contracts the bridge expects from a running
// game session. The engine owns all game state and decides which actions are
// legal; the bridge only reads state, forwards actions and listens for events.
package engine

// Tile is a single tile instance. Two instances may share a name (four copies
// of each face exist), so callers must keep the instance returned by the
// engine when handing a tile back to an action method.
type Tile interface {
	Name() string
}

// Discard is one entry of a player's discard pile.
type Discard struct {
	Tile Tile
	// TakenAway is set once another player claimed the tile with a call.
	TakenAway bool
}

// Meld is a group of tiles claimed together by pon, chii or kan.
type Meld []Tile

// State is the read-only view the bridge queries on demand.
// Player indices are in [0, Players()).
type State interface {
	// Hand returns the current hand in the engine's order.
	Hand() []Tile
	// LastDrawn returns the most recently drawn tile, or nil.
	LastDrawn() Tile
	// Players returns the number of seats at the table.
	Players() int
	Reached(player int) bool
	RoundDirection() string
	SeatDirection(player int) string
	Discards(player int) []Discard
	Dora() []Tile
	Melds(player int) []Meld
}

// Actions are the mutating operations the bridge forwards. The engine is
// free to emit further events synchronously from inside any of them.
type Actions interface {
	Discard(t Tile) error
	Reach(t Tile) error
	Pass() error
	Pon(a, b Tile) error
	Minkan() error
	Chii(a, b Tile) error
	Ankan(t Tile) error
	Chakan(t Tile) error
	Ron() error
	Tsumo() error
	Ryuukyoku() error
	Nuku() error
}

// Engine is everything the bridge needs from a game session.
type Engine interface {
	State
	Actions
	Events() *Bus
}

// TileNames returns the names of tiles in order.
func TileNames(tiles []Tile) []string {
	names := make([]string, len(tiles))
	for i, t := range tiles {
		names[i] = t.Name()
	}
	return names
}
