// Package hub provides a thread-safe websocket broadcast hub
// using the idiomatic Go channel-based fan-out pattern.
package hub

import "github.com/teslashibe/go-companion/pkg/protocol"

// Message is one encoded frame queued for broadcast.
type Message struct {
	// Kind is the protocol type, used for per-client topic filtering.
	Kind protocol.MessageType
	Data []byte
}

// Topics is a client's subscription set. An empty set receives everything.
type Topics map[protocol.MessageType]bool

// NewTopics builds a subscription set.
func NewTopics(kinds ...protocol.MessageType) Topics {
	t := make(Topics, len(kinds))
	for _, k := range kinds {
		t[k] = true
	}
	return t
}

func (t Topics) wants(kind protocol.MessageType) bool {
	return len(t) == 0 || t[kind]
}
