// Package protocol defines the line-based text protocol spoken with the agent
// process over its standard streams.
//
// Every record is a single line terminated by "\n". A line is a sequence of
// whitespace separated tokens: the first is the verb, the rest are positional
// arguments. There is no quoting or escaping, so arguments never contain
// whitespace.
package protocol

// Line represents one parsed protocol record.
type Line struct {
	Verb string   // Command name (hand, discard, draw, ...)
	Args []string // Positional arguments
}

// Arg returns the i-th argument and whether it was present.
func (l Line) Arg(i int) (string, bool) {
	if i < 0 || i >= len(l.Args) {
		return "", false
	}
	return l.Args[i], true
}

// Event verbs (bridge -> agent)
const (
	VerbDraw = "draw"
	VerbWait = "wait"
)

// Query verbs (agent -> bridge, answered with exactly one line)
const (
	VerbHand      = "hand"
	VerbReached   = "reached"
	VerbDirection = "direction"
	VerbGraveyard = "graveyard"
	VerbDora      = "dora"
	VerbFuuro     = "fuuro"
	VerbFuurosuu  = "fuurosuu"
)

// Action verbs (agent -> bridge, no response)
const (
	VerbDiscard   = "discard"
	VerbTsumokiri = "tsumokiri"
	VerbReach     = "reach"
	VerbPass      = "pass"
	VerbPon       = "pon"
	VerbMinkan    = "minkan"
	VerbChii      = "chii"
	VerbAnkan     = "ankan"
	VerbChakan    = "chakan"
	VerbRon       = "ron"
	VerbTsumo     = "tsumo"
	VerbRyuukyoku = "ryuukyoku"
	VerbNuku      = "nuku"
)

// Argument values with protocol meaning.
const (
	// DirectionRound selects the round wind in a direction query.
	DirectionRound = "0"
	// GraveyardExcludeTaken filters called tiles out of a graveyard query.
	GraveyardExcludeTaken = "1"
)
