package web

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/teslashibe/go-companion/pkg/adapter"
	"github.com/teslashibe/go-companion/pkg/protocol"
)

// Producer describes a connected signal source (camera analyser, voice
// classifier, chat front end).
type Producer struct {
	ID        string    `json:"id"`
	Connected time.Time `json:"connected"`
	LastSeen  time.Time `json:"last_seen"`
	Messages  uint64    `json:"messages"`
	Rejected  uint64    `json:"rejected"`
}

type producer struct {
	id        string
	connected time.Time
	lastSeen  atomic.Int64
	messages  atomic.Uint64
	rejected  atomic.Uint64
}

func (p *producer) info() Producer {
	return Producer{
		ID:        p.id,
		Connected: p.connected,
		LastSeen:  time.Unix(0, p.lastSeen.Load()),
		Messages:  p.messages.Load(),
		Rejected:  p.rejected.Load(),
	}
}

type producers struct {
	mu   sync.RWMutex
	byID map[string]*producer
}

func newProducers() *producers {
	return &producers{byID: make(map[string]*producer)}
}

func (ps *producers) add(id string) *producer {
	now := time.Now()
	p := &producer{id: id, connected: now}
	p.lastSeen.Store(now.UnixNano())
	ps.mu.Lock()
	ps.byID[id] = p
	ps.mu.Unlock()
	return p
}

func (ps *producers) remove(p *producer) {
	ps.mu.Lock()
	if ps.byID[p.id] == p {
		delete(ps.byID, p.id)
	}
	ps.mu.Unlock()
}

func (ps *producers) count() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.byID)
}

func (ps *producers) list() []Producer {
	ps.mu.RLock()
	out := make([]Producer, 0, len(ps.byID))
	for _, p := range ps.byID {
		out = append(out, p.info())
	}
	ps.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Server) registerSignalRoutes(app *fiber.App) {
	app.Use("/ws/signals", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/signals", websocket.New(s.handleSignalsWS))
	app.Get("/ws/signals/:id", websocket.New(s.handleSignalsWS))
}

// handleSignalsWS reads protocol messages from a producer and feeds them to
// the engine. Rejected messages are answered with an error message.
func (s *Server) handleSignalsWS(c *websocket.Conn) {
	id := c.Params("id")
	if id == "" {
		id = uuid.NewString()
	}
	p := s.producers.add(id)
	log := s.log.With("producer", id)
	log.Info("producer connected", "producers", s.producers.count())

	defer func() {
		s.producers.remove(p)
		log.Info("producer disconnected", "producers", s.producers.count())
	}()

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			log.Debug("producer read ended", "error", err)
			return
		}
		p.lastSeen.Store(time.Now().UnixNano())
		p.messages.Add(1)

		reply := s.handleProducerMessage(p, data)
		if reply == nil {
			continue
		}
		if err := c.WriteMessage(websocket.TextMessage, reply); err != nil {
			log.Debug("producer write failed", "error", err)
			return
		}
	}
}

func (s *Server) handleProducerMessage(p *producer, data []byte) []byte {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		p.rejected.Add(1)
		return errorReply("", err)
	}
	if msg.Type == protocol.TypePing {
		return pong(msg)
	}
	if err := adapter.Dispatch(s.engine, msg); err != nil {
		p.rejected.Add(1)
		s.log.Debug("signal rejected", "producer", p.id, "type", msg.Type, "error", err)
		return errorReply(msg.Type, err)
	}
	return nil
}

func errorReply(t protocol.MessageType, err error) []byte {
	msg, mErr := protocol.NewErrorMessage(t, err)
	if mErr != nil {
		return nil
	}
	b, _ := msg.Bytes()
	return b
}
