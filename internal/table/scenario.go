// Package table is an in-memory, scripted engine. It plays a fixed scenario
// (starting hand, table state and a script of draws and opponent discards)
// and applies the agent's actions with light rule checks. It backs the
// probe command and the bridge tests.
package table

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultNukiTile is the tile set aside by nuku when the scenario names none.
const DefaultNukiTile = "north"

// Scenario describes a table and the events to play against the agent.
type Scenario struct {
	// Round is the round wind answered to "direction 0".
	Round string `yaml:"round"`
	// Seat is the local player's index.
	Seat int `yaml:"seat"`
	// Nuki is the tile name nuku sets aside.
	Nuki    string       `yaml:"nuki,omitempty"`
	Players []PlayerSpec `yaml:"players"`
	Hand    []string     `yaml:"hand"`
	Dora    []string     `yaml:"dora,omitempty"`
	Script  []Step       `yaml:"script"`
}

// PlayerSpec is the starting state of one seat.
type PlayerSpec struct {
	Direction string        `yaml:"direction"`
	Reached   bool          `yaml:"reached,omitempty"`
	Discards  []DiscardSpec `yaml:"discards,omitempty"`
	Melds     [][]string    `yaml:"melds,omitempty"`
}

// DiscardSpec is one pre-existing discard.
type DiscardSpec struct {
	Tile  string `yaml:"tile"`
	Taken bool   `yaml:"taken,omitempty"`
}

// Step is one scripted event: exactly one of Draw or Discard is set.
type Step struct {
	// Draw gives the named tile to the local player.
	Draw string `yaml:"draw,omitempty"`
	// Discard has an opponent discard a tile, owing the agent a decision.
	Discard *OpponentDiscard `yaml:"discard,omitempty"`
}

// OpponentDiscard is a scripted discard by another seat.
type OpponentDiscard struct {
	Player int    `yaml:"player"`
	Tile   string `yaml:"tile"`
}

// ErrInvalidScenario wraps every scenario validation failure.
var ErrInvalidScenario = errors.New("invalid scenario")

// LoadScenario reads a YAML scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates YAML scenario data.
func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Validate checks the scenario for structural errors.
func (sc *Scenario) Validate() error {
	if len(sc.Players) == 0 {
		return fmt.Errorf("%w: no players", ErrInvalidScenario)
	}
	if sc.Seat < 0 || sc.Seat >= len(sc.Players) {
		return fmt.Errorf("%w: seat %d out of range", ErrInvalidScenario, sc.Seat)
	}
	for i, st := range sc.Script {
		switch {
		case st.Draw != "" && st.Discard != nil:
			return fmt.Errorf("%w: step %d has both draw and discard", ErrInvalidScenario, i)
		case st.Draw == "" && st.Discard == nil:
			return fmt.Errorf("%w: step %d is empty", ErrInvalidScenario, i)
		case st.Discard != nil:
			p := st.Discard.Player
			if p < 0 || p >= len(sc.Players) || p == sc.Seat {
				return fmt.Errorf("%w: step %d: bad discarding player %d", ErrInvalidScenario, i, p)
			}
			if st.Discard.Tile == "" {
				return fmt.Errorf("%w: step %d: discard without tile", ErrInvalidScenario, i)
			}
		}
	}
	return nil
}
