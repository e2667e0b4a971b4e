package web

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-companion/pkg/hub"
	"github.com/teslashibe/go-companion/pkg/protocol"
)

func (s *Server) registerParamsRoutes(app *fiber.App) {
	if s.paramsHub == nil {
		return
	}
	app.Use("/ws/params", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/params", websocket.New(s.handleParamsWS))
}

// handleParamsWS streams params (and, on request, haptic) messages to a
// renderer. ?topics=params,haptic narrows the stream.
func (s *Server) handleParamsWS(c *websocket.Conn) {
	client := hub.NewClient(s.paramsHub, c, parseTopics(c.Query("topics")), s.answerPing)
	if client == nil {
		return
	}
	client.Run()
}

// answerPing replies to ping messages; anything else is ignored.
func (s *Server) answerPing(data []byte) []byte {
	msg, err := protocol.ParseMessage(data)
	if err != nil || msg.Type != protocol.TypePing {
		return nil
	}
	return pong(msg)
}

func pong(msg *protocol.Message) []byte {
	ping, err := msg.GetPingData()
	if err != nil {
		return nil
	}
	if ping.Timestamp == 0 {
		ping.Timestamp = msg.Timestamp
	}
	reply, err := protocol.NewPongMessage(*ping)
	if err != nil {
		return nil
	}
	b, _ := reply.Bytes()
	return b
}

func parseTopics(q string) hub.Topics {
	if q == "" {
		return nil
	}
	var kinds []protocol.MessageType
	for _, k := range strings.Split(q, ",") {
		if k = strings.TrimSpace(k); k != "" {
			kinds = append(kinds, protocol.MessageType(k))
		}
	}
	return hub.NewTopics(kinds...)
}
