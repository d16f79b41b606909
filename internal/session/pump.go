package session

import (
	"bufio"
	"context"
	"errors"
	"net"

	"uoproxy/internal/command"
	"uoproxy/internal/downstream"
	"uoproxy/internal/walk"
	"uoproxy/internal/wire"
	"uoproxy/logging"
)

// conn adapts a net.Conn into the downstream.Writer interface endpoints
// need, framing each outbound packet as a single TCP write.
type conn struct {
	net.Conn
}

func (c conn) WritePacket(buf []byte) error {
	_, err := c.Write(buf)
	return err
}

// RunDownstream drives one attached client's socket for as long as the
// connection stays open: commands are intercepted and answered locally,
// walk requests go through the coordinator, everything else is forwarded
// upstream verbatim (§7 "unknown opcode: forward verbatim").
func (s *Session) RunDownstream(ctx context.Context, ep *downstream.Endpoint, nc net.Conn, coordinator *walk.Coordinator, channel *command.Channel) {
	reader := bufio.NewReader(nc)
	for {
		buf, err := wire.ReadPacket(reader)
		if err != nil {
			s.onDownstreamSocketError(ctx, ep, coordinator, err)
			return
		}

		op := wire.Opcode(buf[0])
		switch op {
		case wire.OpSpeak:
			s.handleDownstreamSpeak(buf, channel)
		case wire.OpWalk:
			s.handleDownstreamWalk(ep.ID, buf, coordinator)
		default:
			s.ForwardUpstream(buf)
		}
	}
}

func (s *Session) handleDownstreamSpeak(buf []byte, channel *command.Channel) {
	speak, err := wire.ParseSpeak(buf)
	if err != nil {
		s.logMalformed(wire.OpSpeak, err)
		return
	}
	if channel == nil || !command.IsCommand(speak.Text) {
		s.ForwardUpstream(buf)
		return
	}
	reply, _ := channel.Dispatch(s, speak.Text)
	if reply != "" {
		s.SpeakConsole(reply)
	}
}

// handleDownstreamWalk predicts the destination tile the same way the
// client already has (one step from whatever position this session's
// mirror last confirmed) and hands it to the coordinator alongside the
// request; Ack later applies that prediction to the world when the
// server confirms it.
func (s *Session) handleDownstreamWalk(clientID string, buf []byte, coordinator *walk.Coordinator) {
	req, err := wire.ParseWalk(buf)
	if err != nil {
		s.logMalformed(wire.OpWalk, err)
		return
	}
	x, y := s.currentPlayerPosition()
	nx, ny := walk.Step(x, y, req.Direction)
	coordinator.Request(clientID, req, nx, ny, req.Direction)
}

// currentPlayerPosition reads the world mirror's best-known player tile,
// preferring the mobile-update snapshot since it is kept current by every
// movement path, falling back to the player-start packet.
func (s *Session) currentPlayerPosition() (uint16, uint16) {
	amb := s.world.Ambient
	if amb.HasMobileUpdate {
		return amb.MobileUpdate.X, amb.MobileUpdate.Y
	}
	if amb.HasStart {
		return amb.Start.X, amb.Start.Y
	}
	return 0, 0
}

func (s *Session) onDownstreamSocketError(ctx context.Context, ep *downstream.Endpoint, coordinator *walk.Coordinator, err error) {
	ep.Dispose()
	s.endpoints.Remove(ep.ID)
	if coordinator != nil {
		coordinator.ServerRemoved(ep.ID)
	}
	if !errors.Is(err, net.ErrClosed) {
		s.logger.Publish(ctx, logging.Event{
			Type:     "session.downstream_socket_error",
			Actor:    s.actor,
			Severity: logging.SeverityInfo,
			Category: logging.CategorySession,
			Payload:  map[string]any{"endpoint": ep.ID, "err": err.Error()},
		})
	}
}

// RunUpstream drives the single upstream connection: every packet
// mirrors into the world and/or the walk coordinator, then broadcasts
// to every attached downstream whose declared revision matches.
func (s *Session) RunUpstream(ctx context.Context, nc net.Conn, coordinator *walk.Coordinator, onDisconnect func(error)) {
	reader := bufio.NewReader(nc)
	for {
		buf, err := wire.ReadPacket(reader)
		if err != nil {
			if onDisconnect != nil {
				onDisconnect(err)
			}
			return
		}
		s.applyUpstreamPacket(buf, coordinator)
	}
}

func (s *Session) applyUpstreamPacket(buf []byte, coordinator *walk.Coordinator) {
	op := wire.Opcode(buf[0])
	w := s.world

	switch op {
	case wire.OpWorldItem:
		if p, err := wire.ParseWorldItem(buf); err == nil {
			w.UpsertWorldItem(p)
			s.Broadcast(6, buf)
			s.Broadcast(7, wire.EncodeWorldItem7(wire.ToRev7(p)))
			return
		}
	case wire.OpWorldItem7:
		if p, err := wire.ParseWorldItem7(buf); err == nil {
			w.UpsertWorldItem7(p)
			s.Broadcast(7, buf)
			s.Broadcast(6, wire.EncodeWorldItem(wire.ToRev6(p)))
			return
		}
	case wire.OpEquip:
		if p, err := wire.ParseEquip(buf); err == nil {
			w.UpsertEquip(p)
		}
	case wire.OpContainerOpen:
		if p, err := wire.ParseContainerOpen(buf); err == nil {
			w.OpenContainer(p)
			s.Broadcast(6, buf)
			s.Broadcast(7, wire.EncodeContainerOpen7(wire.ToContainerOpen7(p)))
			return
		}
	case wire.OpContainerOpen7:
		if p, err := wire.ParseContainerOpen7(buf); err == nil {
			w.OpenContainer7(p)
			s.Broadcast(7, buf)
			s.Broadcast(6, wire.EncodeContainerOpen(wire.ToContainerOpen(p)))
			return
		}
	case wire.OpContainerUpdate:
		if p, err := wire.ParseContainerUpdate(buf); err == nil {
			w.UpsertContainerUpdate(p)
		}
	case wire.OpContainerContent:
		if p, err := wire.ParseContainerContent(buf); err == nil {
			if len(p.Items) > 0 {
				w.ReplaceContainerContent(p.Items[0].Parent, p.Items)
			}
		}
	case wire.OpMobileIncoming:
		if p, err := wire.ParseMobileIncoming(buf); err == nil {
			w.UpsertMobileIncoming(p)
		}
	case wire.OpMobileStatus:
		if p, err := wire.ParseMobileStatus(buf); err == nil {
			w.UpsertMobileStatus(p)
		}
	case wire.OpMobileUpdate:
		if p, err := wire.ParseMobileUpdate(buf); err == nil {
			w.UpdateMobileUpdate(p)
		}
	case wire.OpMobileMoving:
		if p, err := wire.ParseMobileMoving(buf); err == nil {
			w.UpdateMobileMoving(p)
		}
	case wire.OpZoneChange:
		if p, err := wire.ParseZoneChange(buf); err == nil {
			w.ZoneChange(p)
		}
	case wire.OpWalkAck:
		// Routed to the owning client by the coordinator, never broadcast.
		if p, err := wire.ParseWalkAck(buf); err == nil && coordinator != nil {
			coordinator.Ack(p)
		} else if err != nil {
			s.logMalformed(op, err)
		}
		return
	case wire.OpWalkCancel:
		if p, err := wire.ParseWalkCancel(buf); err == nil && coordinator != nil {
			coordinator.Cancel(p)
		} else if err != nil {
			s.logMalformed(op, err)
		}
		return
	case wire.OpStart:
		if p, err := wire.ParseStart(buf); err == nil {
			w.SetStart(p)
		}
	case wire.OpMapChange:
		w.SetMapChange(buf)
	case wire.OpMapPatches:
		w.SetMapPatches(buf)
	case wire.OpSeason:
		w.SetSeason(buf)
	case wire.OpWarMode:
		w.SetWarMode(buf)
	case wire.OpTarget:
		w.SetTarget(buf)
	case wire.OpLightLevelGlobal:
		w.SetGlobalLight(buf)
	case wire.OpLightLevelPersonal:
		w.SetPersonalLight(buf)
	}

	s.Broadcast(world7, buf)
	s.Broadcast(world6, buf)
}

const (
	world6 = 6
	world7 = 7
)

func (s *Session) logMalformed(op wire.Opcode, err error) {
	s.logger.Publish(context.Background(), logging.Event{
		Type:     "session.malformed_packet",
		Actor:    s.actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryProtocol,
		Payload:  map[string]any{"opcode": byte(op), "err": err.Error()},
	})
}

// NewEndpointConn wraps a raw downstream socket as a downstream.Writer.
func NewEndpointConn(nc net.Conn) downstream.Writer {
	return conn{nc}
}

// netUpstream adapts a raw net.Conn to the Upstream interface Session
// needs, so dial/redial code in internal/app doesn't have to know about
// Session's internals.
type netUpstream struct {
	net.Conn
}

func (u netUpstream) Send(buf []byte) error {
	_, err := u.Write(buf)
	return err
}

// NewUpstreamConn wraps a dialed upstream socket as a Session's Upstream.
func NewUpstreamConn(nc net.Conn) Upstream {
	return netUpstream{nc}
}
