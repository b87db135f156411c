package bridge

import (
	"errors"
	"strconv"

	"github.com/standardbeagle/mjbridge/internal/engine"
	"github.com/standardbeagle/mjbridge/internal/protocol"
)

// queryFunc reads engine state and returns the response body.
type queryFunc func(st engine.State, l protocol.Line) (string, error)

// actionFunc resolves the line's arguments and invokes one engine action.
// Resolution failures are *ProtocolViolation; anything else came from the engine.
type actionFunc func(eng engine.Engine, l protocol.Line) error

var queries = map[string]queryFunc{
	protocol.VerbHand:      queryHand,
	protocol.VerbReached:   queryReached,
	protocol.VerbDirection: queryDirection,
	protocol.VerbGraveyard: queryGraveyard,
	protocol.VerbDora:      queryDora,
	protocol.VerbFuuro:     queryFuuro,
	protocol.VerbFuurosuu:  queryFuurosuu,
}

var actions = map[string]actionFunc{
	protocol.VerbDiscard:   actDiscard,
	protocol.VerbTsumokiri: actTsumokiri,
	protocol.VerbReach:     actReach,
	protocol.VerbPass:      func(eng engine.Engine, _ protocol.Line) error { return eng.Pass() },
	protocol.VerbPon:       actPon,
	protocol.VerbMinkan:    func(eng engine.Engine, _ protocol.Line) error { return eng.Minkan() },
	protocol.VerbChii:      actChii,
	protocol.VerbAnkan:     actAnkan,
	protocol.VerbChakan:    actChakan,
	protocol.VerbRon:       func(eng engine.Engine, _ protocol.Line) error { return eng.Ron() },
	protocol.VerbTsumo:     func(eng engine.Engine, _ protocol.Line) error { return eng.Tsumo() },
	protocol.VerbRyuukyoku: func(eng engine.Engine, _ protocol.Line) error { return eng.Ryuukyoku() },
	protocol.VerbNuku:      func(eng engine.Engine, _ protocol.Line) error { return eng.Nuku() },
}

// handleLine dispatches one record read from the agent.
// Output still buffered in the pipe after Stop is dropped.
func (s *Session) handleLine(raw string) {
	if !s.attached() {
		s.log.Debug().Str("line", raw).Msg("dropping agent output after stop")
		return
	}
	l, ok := protocol.ParseLine(raw)
	if !ok {
		return
	}
	s.metrics.LinesIn.Inc()

	if q, ok := queries[l.Verb]; ok {
		var body string
		err := s.withEngine(func() (err error) {
			body, err = q(s.eng, l)
			return err
		})
		if err != nil {
			s.reject(l, raw, err)
			return
		}
		s.respond(body)
		return
	}

	if a, ok := actions[l.Verb]; ok {
		err := s.withEngine(func() error { return a(s.eng, l) })
		if err != nil {
			s.reject(l, raw, err)
		}
		return
	}

	s.metrics.Ignored.Inc()
	s.log.Debug().Str("line", raw).Msg("ignoring unknown command")
}

// withEngine runs fn under the engine lock unless the session stopped while
// waiting for it.
func (s *Session) withEngine(fn func() error) error {
	s.engineMu.Lock()
	defer s.engineMu.Unlock()
	if !s.running.Load() {
		return errStopped
	}
	return fn()
}

func (s *Session) reject(l protocol.Line, raw string, err error) {
	if errors.Is(err, errStopped) {
		s.log.Debug().Str("line", raw).Msg("dropping agent command after stop")
		return
	}
	if errors.Is(err, ErrProtocolViolation) {
		s.metrics.Violations.Inc()
		s.log.Warn().Err(err).Str("line", raw).Msg("dropping agent command")
		return
	}
	s.metrics.ActionErrors.Inc()
	s.log.Warn().Err(err).Str("verb", l.Verb).Str("line", raw).Msg("engine rejected action")
}

// Argument resolution

func playerArg(st engine.State, l protocol.Line, i int) (int, error) {
	v, ok := l.Arg(i)
	if !ok {
		return 0, violationf(l.Verb, "missing player index")
	}
	p, err := strconv.Atoi(v)
	if err != nil {
		return 0, violationf(l.Verb, "invalid player index %q", v)
	}
	if p < 0 || p >= st.Players() {
		return 0, violationf(l.Verb, "player index %d out of range", p)
	}
	return p, nil
}

// findTile returns the position of the first tile named name, or -1.
func findTile(tiles []engine.Tile, name string) int {
	for i, t := range tiles {
		if t.Name() == name {
			return i
		}
	}
	return -1
}

func tileArg(hand []engine.Tile, l protocol.Line, i int) (engine.Tile, error) {
	name, ok := l.Arg(i)
	if !ok {
		return nil, violationf(l.Verb, "missing tile name")
	}
	idx := findTile(hand, name)
	if idx < 0 {
		return nil, violationf(l.Verb, "no tile %q in hand", name)
	}
	return hand[idx], nil
}

// tilePair resolves two hand tiles. The first match is taken out of a
// working copy before the second lookup, so two equal names resolve to two
// distinct instances. The engine's hand is left untouched.
func tilePair(hand []engine.Tile, l protocol.Line) (engine.Tile, engine.Tile, error) {
	name, ok := l.Arg(0)
	if !ok {
		return nil, nil, violationf(l.Verb, "missing tile name")
	}
	idx := findTile(hand, name)
	if idx < 0 {
		return nil, nil, violationf(l.Verb, "no tile %q in hand", name)
	}
	first := hand[idx]

	rest := make([]engine.Tile, 0, len(hand)-1)
	rest = append(rest, hand[:idx]...)
	rest = append(rest, hand[idx+1:]...)

	second, err := tileArg(rest, l, 1)
	if err != nil {
		return nil, nil, err
	}
	return first, second, nil
}

// Queries

func queryHand(st engine.State, _ protocol.Line) (string, error) {
	return protocol.FormatTiles(engine.TileNames(st.Hand())), nil
}

func queryReached(st engine.State, l protocol.Line) (string, error) {
	p, err := playerArg(st, l, 0)
	if err != nil {
		return "", err
	}
	return protocol.FormatBool(st.Reached(p)), nil
}

// queryDirection answers the round wind for "direction 0" and otherwise the
// seat wind of the player named by the second argument.
func queryDirection(st engine.State, l protocol.Line) (string, error) {
	sel, ok := l.Arg(0)
	if !ok {
		return "", violationf(l.Verb, "missing selector")
	}
	if sel == protocol.DirectionRound {
		return st.RoundDirection(), nil
	}
	p, err := playerArg(st, l, 1)
	if err != nil {
		return "", err
	}
	return st.SeatDirection(p), nil
}

func queryGraveyard(st engine.State, l protocol.Line) (string, error) {
	p, err := playerArg(st, l, 0)
	if err != nil {
		return "", err
	}
	flag, _ := l.Arg(1)
	excludeTaken := flag == protocol.GraveyardExcludeTaken

	var names []string
	for _, d := range st.Discards(p) {
		if excludeTaken && d.TakenAway {
			continue
		}
		names = append(names, d.Tile.Name())
	}
	return protocol.FormatTiles(names), nil
}

func queryDora(st engine.State, _ protocol.Line) (string, error) {
	return protocol.FormatTiles(engine.TileNames(st.Dora())), nil
}

func queryFuuro(st engine.State, l protocol.Line) (string, error) {
	p, err := playerArg(st, l, 0)
	if err != nil {
		return "", err
	}
	melds := st.Melds(p)
	groups := make([][]string, len(melds))
	for i, m := range melds {
		groups[i] = engine.TileNames(m)
	}
	return protocol.FormatGroups(groups), nil
}

func queryFuurosuu(st engine.State, l protocol.Line) (string, error) {
	p, err := playerArg(st, l, 0)
	if err != nil {
		return "", err
	}
	return protocol.FormatCount(len(st.Melds(p))), nil
}

// Actions

func actDiscard(eng engine.Engine, l protocol.Line) error {
	t, err := tileArg(eng.Hand(), l, 0)
	if err != nil {
		return err
	}
	return eng.Discard(t)
}

func actTsumokiri(eng engine.Engine, l protocol.Line) error {
	t := eng.LastDrawn()
	if t == nil {
		return violationf(l.Verb, "no drawn tile")
	}
	return eng.Discard(t)
}

func actReach(eng engine.Engine, l protocol.Line) error {
	t, err := tileArg(eng.Hand(), l, 0)
	if err != nil {
		return err
	}
	return eng.Reach(t)
}

func actPon(eng engine.Engine, l protocol.Line) error {
	a, b, err := tilePair(eng.Hand(), l)
	if err != nil {
		return err
	}
	return eng.Pon(a, b)
}

func actChii(eng engine.Engine, l protocol.Line) error {
	a, b, err := tilePair(eng.Hand(), l)
	if err != nil {
		return err
	}
	return eng.Chii(a, b)
}

func actAnkan(eng engine.Engine, l protocol.Line) error {
	t, err := tileArg(eng.Hand(), l, 0)
	if err != nil {
		return err
	}
	return eng.Ankan(t)
}

func actChakan(eng engine.Engine, l protocol.Line) error {
	t, err := tileArg(eng.Hand(), l, 0)
	if err != nil {
		return err
	}
	return eng.Chakan(t)
}
