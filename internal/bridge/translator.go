package bridge

import (
	"strconv"

	"github.com/standardbeagle/mjbridge/internal/engine"
	"github.com/standardbeagle/mjbridge/internal/protocol"
)

// translator turns engine events into protocol lines.
type translator struct {
	s *Session
}

var _ engine.Listener = (*translator)(nil)

func (t *translator) OnDraw(tile engine.Tile) {
	t.s.send(protocol.VerbDraw, tile.Name())
}

func (t *translator) OnWait(tile engine.Tile, from int) {
	t.s.send(protocol.VerbWait, tile.Name(), strconv.Itoa(from))
}

// OnClose ends the session; it writes nothing.
func (t *translator) OnClose() {
	t.s.Stop()
}
