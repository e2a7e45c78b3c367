package events

import "github.com/dshills/eventscript/internal/event"

// Block event types. Block events share the handler list declared on
// TypeBlock.
var (
	// TypeBlock is the abstract parent of block events.
	TypeBlock = event.NewType("host.event.block.BlockEvent", event.Root,
		event.Abstract(),
		event.WithHandlerList())

	// TypeBlockBreak is called when a player breaks a block.
	TypeBlockBreak = event.NewType("host.event.block.BlockBreakEvent", TypeBlock,
		event.WithFactory(newBlockChange))

	// TypeBlockPlace is called when a player places a block.
	TypeBlockPlace = event.NewType("host.event.block.BlockPlaceEvent", TypeBlock,
		event.WithFactory(newBlockChange))
)

// Position is a block coordinate.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// BlockChange is the payload of block break and place events.
type BlockChange struct {
	base
	event.Cancellation

	Player   string   `json:"player"`
	Block    string   `json:"block"`
	Position Position `json:"position"`
}

func newBlockChange(t *event.Type) event.Event {
	return &BlockChange{base: newBase(t)}
}

// NewBlockBreak creates a block break event.
func NewBlockBreak(player, block string, pos Position) *BlockChange {
	return &BlockChange{base: newBase(TypeBlockBreak), Player: player, Block: block, Position: pos}
}

// NewBlockPlace creates a block place event.
func NewBlockPlace(player, block string, pos Position) *BlockChange {
	return &BlockChange{base: newBase(TypeBlockPlace), Player: player, Block: block, Position: pos}
}
