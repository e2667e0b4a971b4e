package web

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-companion/pkg/adapter"
	"github.com/teslashibe/go-companion/pkg/affect"
	"github.com/teslashibe/go-companion/pkg/engine"
	"github.com/teslashibe/go-companion/pkg/protocol"
)

// MoodResponse is the body of GET /api/mood.
type MoodResponse struct {
	Session     string             `json:"session"`
	Mood        affect.Mood        `json:"mood"`
	Personality affect.Personality `json:"personality"`
	Tag         affect.Tag         `json:"tag"`
	PAD         affect.PAD         `json:"pad"`
}

// StatsResponse is the body of GET /api/stats.
type StatsResponse struct {
	Engine        engine.Stats `json:"engine"`
	ParamsClients int          `json:"params_clients"`
	HubDropped    uint64       `json:"hub_dropped"`
	Producers     int          `json:"producers"`
}

// handleState returns the latest snapshot
func (s *Server) handleState(c *fiber.Ctx) error {
	snap, ok := s.engine.Latest()
	if !ok {
		return fiber.NewError(fiber.StatusServiceUnavailable, "engine has not ticked yet")
	}
	return c.JSON(snap)
}

// handleMood returns the long-term state
func (s *Server) handleMood(c *fiber.Ctx) error {
	resp := MoodResponse{
		Session:     s.engine.Session(),
		Personality: s.engine.Personality(),
		Mood:        affect.DefaultMood(),
	}
	if snap, ok := s.engine.Latest(); ok {
		resp.Mood, resp.Tag, resp.PAD = snap.Mood, snap.Tag, snap.PAD
	}
	return c.JSON(resp)
}

// handleStats returns engine and transport counters
func (s *Server) handleStats(c *fiber.Ctx) error {
	resp := StatsResponse{
		Engine:    s.engine.Stats(),
		Producers: s.producers.count(),
	}
	if s.paramsHub != nil {
		resp.ParamsClients = s.paramsHub.ClientCount()
		resp.HubDropped = s.paramsHub.Dropped()
	}
	return c.JSON(resp)
}

// handleProducers lists connected signal producers
func (s *Server) handleProducers(c *fiber.Ctx) error {
	return c.JSON(s.producers.list())
}

// handleSignal applies one signal; the body is the message data for :kind
func (s *Server) handleSignal(c *fiber.Ctx) error {
	msg := &protocol.Message{
		Type: protocol.MessageType(c.Params("kind")),
		Data: append([]byte(nil), c.Body()...),
	}
	if len(msg.Data) == 0 {
		msg.Data = nil
	}
	if err := adapter.Dispatch(s.engine, msg); err != nil {
		return signalError(err)
	}
	return c.SendStatus(fiber.StatusAccepted)
}

// handleResetMood restores the default mood
func (s *Server) handleResetMood(c *fiber.Ctx) error {
	if err := s.engine.ResetMood(); err != nil {
		return signalError(err)
	}
	return c.SendStatus(fiber.StatusAccepted)
}

// signalError maps engine and adapter errors onto HTTP statuses.
func signalError(err error) error {
	switch {
	case errors.Is(err, adapter.ErrUnsupported):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, affect.ErrInvalidSignal),
		errors.Is(err, affect.ErrUnknownTag),
		errors.Is(err, affect.ErrUnknownMovement):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, engine.ErrMailboxFull):
		return fiber.NewError(fiber.StatusTooManyRequests, err.Error())
	case errors.Is(err, engine.ErrClosed):
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	default:
		return err
	}
}
