package table

import (
	"errors"
	"fmt"
	"sync"

	"github.com/standardbeagle/mjbridge/internal/engine"
)

var (
	// ErrIllegal is returned for an action the current table state forbids.
	ErrIllegal = errors.New("illegal action")
	// ErrFinished is returned for any action after the round ended.
	ErrFinished = errors.New("round finished")
)

// Tile is one physical tile. Identity is the pointer.
type Tile struct {
	name string
	id   int
}

// Name returns the tile face name.
func (t *Tile) Name() string { return t.name }

// ID returns the tile's unique instance number.
func (t *Tile) ID() int { return t.id }

func (t *Tile) String() string { return fmt.Sprintf("%s#%d", t.name, t.id) }

// Record is one action the agent took, in the order applied.
type Record struct {
	Verb  string
	Tiles []string
}

// Outcome is how the round ended.
type Outcome string

const (
	OutcomeNone      Outcome = ""
	OutcomeRon       Outcome = "ron"
	OutcomeTsumo     Outcome = "tsumo"
	OutcomeRyuukyoku Outcome = "ryuukyoku"
	OutcomeExhausted Outcome = "exhausted"
)

type seat struct {
	direction string
	reached   bool
	discards  []engine.Discard
	melds     []engine.Meld
}

// Table is a scripted engine.Engine.
//
// State and action methods assume the caller holds Locker(): the bridge does
// so when given WithEngineLock(t.Locker()). Actions may emit further events
// synchronously.
type Table struct {
	mu  sync.Mutex
	bus *engine.Bus

	round   string
	self    int
	nuki    string
	seats   []*seat
	hand    []engine.Tile
	dora    []engine.Tile
	set     []engine.Tile
	last    engine.Tile
	script  []Step
	next    int
	pending *pendingCall
	records []Record
	outcome Outcome
	nextID  int
}

// pendingCall is an opponent discard awaiting the agent's decision.
type pendingCall struct {
	from  int
	index int // position in the discarder's pile
	tile  engine.Tile
}

// New builds a table from a validated scenario.
func New(sc *Scenario) (*Table, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	t := &Table{
		bus:    engine.NewBus(),
		round:  sc.Round,
		self:   sc.Seat,
		nuki:   sc.Nuki,
		script: append([]Step(nil), sc.Script...),
	}
	if t.nuki == "" {
		t.nuki = DefaultNukiTile
	}
	for _, ps := range sc.Players {
		s := &seat{direction: ps.Direction, reached: ps.Reached}
		for _, d := range ps.Discards {
			s.discards = append(s.discards, engine.Discard{Tile: t.tile(d.Tile), TakenAway: d.Taken})
		}
		for _, m := range ps.Melds {
			s.melds = append(s.melds, t.tiles(m))
		}
		t.seats = append(t.seats, s)
	}
	t.hand = t.tiles(sc.Hand)
	t.dora = t.tiles(sc.Dora)
	return t, nil
}

func (t *Table) tile(name string) engine.Tile {
	t.nextID++
	return &Tile{name: name, id: t.nextID}
}

func (t *Table) tiles(names []string) []engine.Tile {
	out := make([]engine.Tile, len(names))
	for i, n := range names {
		out[i] = t.tile(n)
	}
	return out
}

// Locker returns the lock guarding the table's state.
func (t *Table) Locker() sync.Locker { return &t.mu }

// Events returns the table's event bus.
func (t *Table) Events() *engine.Bus { return t.bus }

// Begin plays the first scripted step. It takes the table lock itself.
func (t *Table) Begin() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.advance()
}

// advance plays the next scripted step, or ends the round when the script
// is exhausted.
func (t *Table) advance() {
	if t.outcome != OutcomeNone {
		return
	}
	if t.next >= len(t.script) {
		t.finish(OutcomeExhausted)
		return
	}
	st := t.script[t.next]
	t.next++

	if st.Draw != "" {
		tile := t.tile(st.Draw)
		t.hand = append(t.hand, tile)
		t.last = tile
		t.bus.EmitDraw(tile)
		return
	}

	d := st.Discard
	tile := t.tile(d.Tile)
	s := t.seats[d.Player]
	s.discards = append(s.discards, engine.Discard{Tile: tile})
	t.pending = &pendingCall{from: d.Player, index: len(s.discards) - 1, tile: tile}
	t.bus.EmitWait(tile, d.Player)
}

func (t *Table) finish(o Outcome) {
	t.outcome = o
	t.pending = nil
	t.bus.EmitClose()
}

func (t *Table) record(verb string, tiles ...engine.Tile) {
	t.records = append(t.records, Record{Verb: verb, Tiles: engine.TileNames(tiles)})
}

// Records returns a copy of the actions applied so far.
func (t *Table) Records() []Record {
	return append([]Record(nil), t.records...)
}

// Outcome returns how the round ended, or OutcomeNone while it is running.
func (t *Table) Outcome() Outcome { return t.outcome }

// NukiPile returns the tiles set aside by nuku.
func (t *Table) NukiPile() []engine.Tile { return append([]engine.Tile(nil), t.set...) }

// State

func (t *Table) Hand() []engine.Tile        { return append([]engine.Tile(nil), t.hand...) }
func (t *Table) LastDrawn() engine.Tile     { return t.last }
func (t *Table) Players() int               { return len(t.seats) }
func (t *Table) Reached(p int) bool         { return t.seats[p].reached }
func (t *Table) RoundDirection() string     { return t.round }
func (t *Table) SeatDirection(p int) string { return t.seats[p].direction }
func (t *Table) Dora() []engine.Tile        { return append([]engine.Tile(nil), t.dora...) }

func (t *Table) Discards(p int) []engine.Discard {
	return append([]engine.Discard(nil), t.seats[p].discards...)
}

func (t *Table) Melds(p int) []engine.Meld {
	return append([]engine.Meld(nil), t.seats[p].melds...)
}

// hand helpers

func (t *Table) handIndex(tile engine.Tile) int {
	for i, h := range t.hand {
		if h == tile {
			return i
		}
	}
	return -1
}

func (t *Table) removeFromHand(tiles ...engine.Tile) error {
	for _, tile := range tiles {
		if tile == nil || t.handIndex(tile) < 0 {
			return fmt.Errorf("%w: tile not in hand", ErrIllegal)
		}
	}
	for _, tile := range tiles {
		i := t.handIndex(tile)
		t.hand = append(t.hand[:i], t.hand[i+1:]...)
	}
	if t.last != nil && t.handIndex(t.last) < 0 {
		t.last = nil
	}
	return nil
}

func (t *Table) countNamed(name string) []engine.Tile {
	var out []engine.Tile
	for _, h := range t.hand {
		if h.Name() == name {
			out = append(out, h)
		}
	}
	return out
}

func (t *Table) checkRunning() error {
	if t.outcome != OutcomeNone {
		return ErrFinished
	}
	return nil
}

func (t *Table) takePending(verb string) (*pendingCall, error) {
	if t.pending == nil {
		return nil, fmt.Errorf("%w: %s without a pending discard", ErrIllegal, verb)
	}
	pc := t.pending
	t.pending = nil
	t.seats[pc.from].discards[pc.index].TakenAway = true
	return pc, nil
}

// Actions

// Discard moves a hand tile to the local discard pile and plays on.
func (t *Table) Discard(tile engine.Tile) error {
	if err := t.checkRunning(); err != nil {
		return err
	}
	if t.pending != nil {
		return fmt.Errorf("%w: decision owed on %s", ErrIllegal, t.pending.tile.Name())
	}
	if err := t.removeFromHand(tile); err != nil {
		return err
	}
	s := t.seats[t.self]
	s.discards = append(s.discards, engine.Discard{Tile: tile})
	t.last = nil
	t.record("discard", tile)
	t.advance()
	return nil
}

// Reach declares ready and discards tile.
func (t *Table) Reach(tile engine.Tile) error {
	if err := t.checkRunning(); err != nil {
		return err
	}
	if t.pending != nil {
		return fmt.Errorf("%w: decision owed on %s", ErrIllegal, t.pending.tile.Name())
	}
	if t.seats[t.self].reached {
		return fmt.Errorf("%w: already reached", ErrIllegal)
	}
	if t.handIndex(tile) < 0 {
		return fmt.Errorf("%w: tile not in hand", ErrIllegal)
	}
	t.seats[t.self].reached = true
	t.record("reach", tile)
	return t.Discard(tile)
}

// Pass declines the pending discard.
func (t *Table) Pass() error {
	if err := t.checkRunning(); err != nil {
		return err
	}
	if t.pending == nil {
		return fmt.Errorf("%w: nothing to pass on", ErrIllegal)
	}
	t.pending = nil
	t.record("pass")
	t.advance()
	return nil
}

// Pon claims the pending discard with two matching hand tiles.
func (t *Table) Pon(a, b engine.Tile) error {
	return t.claim("pon", a, b, func(called engine.Tile) error {
		if a == b || a.Name() != called.Name() || b.Name() != called.Name() {
			return fmt.Errorf("%w: pon needs two distinct %s", ErrIllegal, called.Name())
		}
		return nil
	})
}

// Chii claims the pending discard as part of a sequence.
func (t *Table) Chii(a, b engine.Tile) error {
	return t.claim("chii", a, b, func(engine.Tile) error {
		if a == b {
			return fmt.Errorf("%w: chii needs two distinct tiles", ErrIllegal)
		}
		return nil
	})
}

func (t *Table) claim(verb string, a, b engine.Tile, check func(called engine.Tile) error) error {
	if err := t.checkRunning(); err != nil {
		return err
	}
	if t.pending == nil {
		return fmt.Errorf("%w: %s without a pending discard", ErrIllegal, verb)
	}
	if a == nil || b == nil {
		return fmt.Errorf("%w: %s needs two tiles", ErrIllegal, verb)
	}
	if err := check(t.pending.tile); err != nil {
		return err
	}
	if err := t.removeFromHand(a, b); err != nil {
		return err
	}
	pc, _ := t.takePending(verb)
	s := t.seats[t.self]
	s.melds = append(s.melds, engine.Meld{a, b, pc.tile})
	t.record(verb, a, b)
	// The caller discards next; no step is played
	return nil
}

// Minkan claims the pending discard with three matching hand tiles.
func (t *Table) Minkan() error {
	if err := t.checkRunning(); err != nil {
		return err
	}
	if t.pending == nil {
		return fmt.Errorf("%w: minkan without a pending discard", ErrIllegal)
	}
	same := t.countNamed(t.pending.tile.Name())
	if len(same) < 3 {
		return fmt.Errorf("%w: minkan needs three %s", ErrIllegal, t.pending.tile.Name())
	}
	same = same[:3]
	if err := t.removeFromHand(same...); err != nil {
		return err
	}
	pc, _ := t.takePending("minkan")
	s := t.seats[t.self]
	s.melds = append(s.melds, append(engine.Meld(same), pc.tile))
	t.record("minkan")
	// Replacement draw
	t.advance()
	return nil
}

// Ankan declares a concealed quad of tile's name.
func (t *Table) Ankan(tile engine.Tile) error {
	if err := t.checkRunning(); err != nil {
		return err
	}
	if tile == nil {
		return fmt.Errorf("%w: ankan needs a tile", ErrIllegal)
	}
	same := t.countNamed(tile.Name())
	if len(same) < 4 {
		return fmt.Errorf("%w: ankan needs four %s", ErrIllegal, tile.Name())
	}
	same = same[:4]
	if err := t.removeFromHand(same...); err != nil {
		return err
	}
	s := t.seats[t.self]
	s.melds = append(s.melds, engine.Meld(same))
	t.record("ankan", tile)
	t.advance()
	return nil
}

// Chakan adds tile to an open triplet of the same name.
func (t *Table) Chakan(tile engine.Tile) error {
	if err := t.checkRunning(); err != nil {
		return err
	}
	if tile == nil {
		return fmt.Errorf("%w: chakan needs a tile", ErrIllegal)
	}
	s := t.seats[t.self]
	for i, m := range s.melds {
		if len(m) == 3 && m[0].Name() == tile.Name() && m[1].Name() == tile.Name() && m[2].Name() == tile.Name() {
			if err := t.removeFromHand(tile); err != nil {
				return err
			}
			s.melds[i] = append(m, tile)
			t.record("chakan", tile)
			t.advance()
			return nil
		}
	}
	return fmt.Errorf("%w: no pon of %s to extend", ErrIllegal, tile.Name())
}

// Ron wins on the pending discard.
func (t *Table) Ron() error {
	if err := t.checkRunning(); err != nil {
		return err
	}
	if _, err := t.takePending("ron"); err != nil {
		return err
	}
	t.record("ron")
	t.finish(OutcomeRon)
	return nil
}

// Tsumo wins on the tile just drawn.
func (t *Table) Tsumo() error {
	if err := t.checkRunning(); err != nil {
		return err
	}
	if t.last == nil {
		return fmt.Errorf("%w: tsumo without a drawn tile", ErrIllegal)
	}
	t.record("tsumo")
	t.finish(OutcomeTsumo)
	return nil
}

// Ryuukyoku ends the round as an abortive draw.
func (t *Table) Ryuukyoku() error {
	if err := t.checkRunning(); err != nil {
		return err
	}
	t.record("ryuukyoku")
	t.finish(OutcomeRyuukyoku)
	return nil
}

// Nuku sets aside one nuki tile from the hand and draws a replacement.
func (t *Table) Nuku() error {
	if err := t.checkRunning(); err != nil {
		return err
	}
	same := t.countNamed(t.nuki)
	if len(same) == 0 {
		return fmt.Errorf("%w: no %s to set aside", ErrIllegal, t.nuki)
	}
	if err := t.removeFromHand(same[0]); err != nil {
		return err
	}
	t.set = append(t.set, same[0])
	t.record("nuku", same[0])
	t.advance()
	return nil
}

var _ engine.Engine = (*Table)(nil)
