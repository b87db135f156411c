package bridge

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/standardbeagle/mjbridge/internal/engine"
	"github.com/standardbeagle/mjbridge/internal/protocol"
)

type fakeTile struct{ name string }

func (f *fakeTile) Name() string { return f.name }

func tiles(names ...string) []engine.Tile {
	out := make([]engine.Tile, len(names))
	for i, n := range names {
		out[i] = &fakeTile{name: n}
	}
	return out
}

type call struct {
	verb  string
	tiles []engine.Tile
}

// fakeEngine records every action call and serves canned state.
type fakeEngine struct {
	bus *engine.Bus

	hand      []engine.Tile
	last      engine.Tile
	reached   []bool
	round     string
	seats     []string
	discards  [][]engine.Discard
	dora      []engine.Tile
	melds     [][]engine.Meld
	actionErr error

	calls []call

	// onAction runs inside every action, to emulate re-entrant events.
	onAction func(verb string)
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		bus:      engine.NewBus(),
		reached:  make([]bool, 4),
		round:    "east",
		seats:    []string{"east", "south", "west", "north"},
		discards: make([][]engine.Discard, 4),
		melds:    make([][]engine.Meld, 4),
	}
}

func (f *fakeEngine) Events() *engine.Bus             { return f.bus }
func (f *fakeEngine) Hand() []engine.Tile             { return append([]engine.Tile(nil), f.hand...) }
func (f *fakeEngine) LastDrawn() engine.Tile          { return f.last }
func (f *fakeEngine) Players() int                    { return len(f.seats) }
func (f *fakeEngine) Reached(p int) bool              { return f.reached[p] }
func (f *fakeEngine) RoundDirection() string          { return f.round }
func (f *fakeEngine) SeatDirection(p int) string      { return f.seats[p] }
func (f *fakeEngine) Discards(p int) []engine.Discard { return f.discards[p] }
func (f *fakeEngine) Dora() []engine.Tile             { return f.dora }
func (f *fakeEngine) Melds(p int) []engine.Meld       { return f.melds[p] }

func (f *fakeEngine) act(verb string, ts ...engine.Tile) error {
	f.calls = append(f.calls, call{verb: verb, tiles: ts})
	if f.onAction != nil {
		f.onAction(verb)
	}
	return f.actionErr
}

func (f *fakeEngine) Discard(t engine.Tile) error { return f.act("discard", t) }
func (f *fakeEngine) Reach(t engine.Tile) error   { return f.act("reach", t) }
func (f *fakeEngine) Pass() error                 { return f.act("pass") }
func (f *fakeEngine) Pon(a, b engine.Tile) error  { return f.act("pon", a, b) }
func (f *fakeEngine) Minkan() error               { return f.act("minkan") }
func (f *fakeEngine) Chii(a, b engine.Tile) error { return f.act("chii", a, b) }
func (f *fakeEngine) Ankan(t engine.Tile) error   { return f.act("ankan", t) }
func (f *fakeEngine) Chakan(t engine.Tile) error  { return f.act("chakan", t) }
func (f *fakeEngine) Ron() error                  { return f.act("ron") }
func (f *fakeEngine) Tsumo() error                { return f.act("tsumo") }
func (f *fakeEngine) Ryuukyoku() error            { return f.act("ryuukyoku") }
func (f *fakeEngine) Nuku() error                 { return f.act("nuku") }

var _ engine.Engine = (*fakeEngine)(nil)

// syncBuffer is a goroutine safe bytes.Buffer.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *syncBuffer) Lines() []string {
	s := strings.TrimSuffix(b.String(), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// attachBuffer wires a session to an in-memory agent input without spawning
// a process, the way Start would after a successful launch.
func attachBuffer(t *testing.T, s *Session) *syncBuffer {
	t.Helper()
	out := &syncBuffer{}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = true
	s.running.Store(true)
	s.writer = protocol.NewWriter(out)
	s.sub = s.eng.Events().Subscribe(&translator{s: s})
	return out
}

// failingWriter fails every write with err.
type failingWriter struct{ err error }

func (w failingWriter) Write([]byte) (int, error) { return 0, w.err }

var errBoom = errors.New("boom")

func names(ts []engine.Tile) string {
	return fmt.Sprint(engine.TileNames(ts))
}
