package server

import (
	"net"

	"go.uber.org/zap"

	"github.com/robot-control/rcd/internal/metrics"
	"github.com/robot-control/rcd/internal/protocol"
	"github.com/robot-control/rcd/internal/telemetry"
)

// handleConn serves one client until it disconnects or the server stops.
func (s *Server) handleConn(id uint64, conn net.Conn) {
	client := conn.RemoteAddr().String()
	logger := s.logger.With(zap.Uint64("conn", id), zap.String("client", client))
	logger.Info("client connected")

	metrics.ActiveConnections.Inc()
	defer metrics.ActiveConnections.Dec()
	s.publishConnEvent(telemetry.EventConnectionOpened, client)
	defer s.publishConnEvent(telemetry.EventConnectionClosed, client)

	if s.banner != "" {
		if _, err := conn.Write([]byte(s.banner)); err != nil {
			logger.Warn("banner write failed", zap.Error(err))
			return
		}
	}

	scanner := protocol.NewFrameScanner(conn)
	for scanner.Scan() {
		cmd, err := protocol.Decode(scanner.Bytes())

		var resp protocol.Response
		switch {
		case err != nil:
			resp = protocol.ErrorResponse(err.Error())
		case cmd == nil:
			// Blank line, nothing to answer.
			continue
		default:
			resp = s.exec.Execute(s.ctx, client, cmd)
		}

		frame, err := protocol.Encode(resp)
		if err != nil {
			logger.Error("response encoding failed", zap.Error(err))
			continue
		}
		// One Write per frame so concurrent responses never interleave.
		if _, err := conn.Write(frame); err != nil {
			logger.Warn("response write failed", zap.Error(err))
			return
		}
	}

	if err := scanner.Err(); err != nil && s.ctx.Err() == nil {
		logger.Warn("read failed", zap.Error(err))
	}
	logger.Info("client disconnected")
}

func (s *Server) publishConnEvent(eventType, client string) {
	if s.events == nil {
		return
	}
	s.events.Publish(telemetry.Event{
		Type: eventType,
		Data: map[string]interface{}{"client": client},
	})
}
