package hub

import (
	"github.com/teslashibe/go-companion/pkg/engine"
	"github.com/teslashibe/go-companion/pkg/protocol"
)

// Renderer streams engine snapshots to hub clients as params messages.
type Renderer struct {
	Hub *Hub
}

// Render implements engine.Renderer. Called on the tick goroutine; it never
// blocks.
func (r Renderer) Render(s engine.Snapshot) {
	if r.Hub == nil || r.Hub.ClientCount() == 0 {
		return
	}
	msg, err := protocol.NewParamsMessage(s.Seq, s.Params, s.Tag, s.Speaking, s.Blinking)
	if err != nil {
		r.Hub.log.Warn("encode params", "error", err)
		return
	}
	_ = r.Hub.BroadcastJSON(msg)
}
