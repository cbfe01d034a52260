// Package wsdemo demonstrates the frame-envelope wire contract over a real
// WebSocket transport, standing in for a "WebSocket transport receiving
// frames" collaborator that runs outside this process. No command or test
// in this module imports it, and the pipeline does not use it.
package wsdemo

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/adverant/nexus/riskcore/internal/transport"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1 << 20,
	WriteBufferSize: 1 << 16,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// FrameHandler receives one decoded frame envelope per WebSocket message.
type FrameHandler func(deviceID string, frame transport.DecodedFrame)

// Server upgrades incoming HTTP connections to WebSocket and decodes each
// binary or text message as a frame envelope.
type Server struct {
	log     *logrus.Entry
	handler FrameHandler
}

// NewServer builds a wsdemo Server.
func NewServer(log *logrus.Logger, handler FrameHandler) *Server {
	if log == nil {
		log = logrus.New()
	}
	return &Server{log: log.WithField("component", "wsdemo"), handler: handler}
}

// ServeHTTP implements http.Handler, upgrading the connection and reading
// frame envelopes until the client disconnects.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	deviceID := r.URL.Query().Get("device_id")
	if deviceID == "" {
		http.Error(w, "missing device_id query parameter", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	// One uuid v4 per upgraded connection identifies this connection in the
	// log fields; a reconnect gets a new id.
	sessionID := uuid.New().String()
	sessionLog := s.log.WithFields(logrus.Fields{"device_id": deviceID, "session_id": sessionID})

	sessionLog.Info("device connected")
	defer sessionLog.Info("device disconnected")

	for {
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}

		decoded, err := transport.DecodeEnvelope(payload)
		if err != nil {
			sessionLog.WithError(err).Warn("dropping malformed frame envelope")
			continue
		}
		if s.handler != nil {
			s.handler(deviceID, decoded)
		}
	}
}

// DialAndSend is a client-side helper: it connects to a
// wsdemo Server and sends one binary frame envelope in the standard wire
// format.
func DialAndSend(url string, captureIntervalMS uint32, jpeg []byte) error {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return fmt.Errorf("wsdemo: dial failed: %w", err)
	}
	defer conn.Close()

	payload := make([]byte, 4+len(jpeg))
	payload[0] = byte(captureIntervalMS)
	payload[1] = byte(captureIntervalMS >> 8)
	payload[2] = byte(captureIntervalMS >> 16)
	payload[3] = byte(captureIntervalMS >> 24)
	copy(payload[4:], jpeg)

	return conn.WriteMessage(websocket.BinaryMessage, payload)
}
