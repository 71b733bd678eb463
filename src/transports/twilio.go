// Package transports accepts carrier media-stream websockets and
// feeds them into call sessions.
package transports

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/sonara-labs/dialtone/src/logger"
	"github.com/sonara-labs/dialtone/src/session"
)

// StreamHandler consumes the decoded frames of one media stream.
// *session.CallSession is the production implementation.
type StreamHandler interface {
	HandleMessage(msg *session.Message)
	Shutdown()
}

// SessionFactory builds the handler for one accepted media
// connection.
type SessionFactory func(conn session.Conn) StreamHandler

// MediaServerConfig holds configuration for the media websocket
// server.
type MediaServerConfig struct {
	Addr string // listen address, e.g. ":8080"
	Path string // websocket path, default "/media"
}

// MediaServer listens for Twilio media-stream websocket connections.
// Each connection gets its own session; the server only shuttles
// frames.
type MediaServer struct {
	addr       string
	path       string
	newSession SessionFactory
	upgrader   websocket.Upgrader
	server     *http.Server
	log        *logger.Logger

	mu       sync.Mutex
	sessions map[StreamHandler]struct{}
}

// NewMediaServer creates a media server. The factory is called once
// per accepted connection.
func NewMediaServer(config MediaServerConfig, factory SessionFactory) *MediaServer {
	if config.Path == "" {
		config.Path = "/media"
	}
	if config.Addr == "" {
		config.Addr = ":8080"
	}
	return &MediaServer{
		addr:       config.Addr,
		path:       config.Path,
		newSession: factory,
		upgrader: websocket.Upgrader{
			// Carrier webhooks carry no browser origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log:      logger.WithPrefix("MediaServer"),
		sessions: make(map[StreamHandler]struct{}),
	}
}

// Start begins listening. It returns immediately; serve errors other
// than a clean shutdown are logged.
func (s *MediaServer) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc(s.path, s.handleWebSocket)

	s.server = &http.Server{Addr: s.addr, Handler: mux}

	go func() {
		s.log.Info("Listening on %s%s", s.addr, s.path)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("Server error: %v", err)
		}
	}()
	return nil
}

// Stop shuts down active sessions and the listener.
func (s *MediaServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	for sess := range s.sessions {
		sess.Shutdown()
	}
	s.sessions = make(map[StreamHandler]struct{})
	s.mu.Unlock()

	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// SessionCount reports the number of live sessions.
func (s *MediaServer) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *MediaServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("Upgrade failed for %s: %v", r.RemoteAddr, err)
		return
	}
	s.log.Info("Media connection from %s", r.RemoteAddr)

	conn := &wsConn{ws: ws}
	sess := s.newSession(conn)

	s.mu.Lock()
	s.sessions[sess] = struct{}{}
	s.mu.Unlock()

	go s.readPump(conn, sess)
}

// readPump decodes inbound frames until the socket dies, then tears
// the session down.
func (s *MediaServer) readPump(conn *wsConn, sess StreamHandler) {
	defer func() {
		sess.Shutdown()
		conn.Close()
		s.mu.Lock()
		delete(s.sessions, sess)
		s.mu.Unlock()
	}()

	for {
		_, data, err := conn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) {
				s.log.Warn("Read error: %v", err)
			}
			return
		}

		msg, err := session.DecodeMessage(data)
		if err != nil {
			s.log.Debug("Skipping undecodable frame: %v", err)
			continue
		}
		sess.HandleMessage(msg)
	}
}

// wsConn adapts a gorilla websocket to the session's Conn. Gorilla
// allows one concurrent writer, so writes are serialized here.
type wsConn struct {
	writeMu sync.Mutex
	ws      *websocket.Conn
}

func (c *wsConn) WriteMessage(msg *session.Message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.WriteJSON(msg); err != nil {
		return fmt.Errorf("writing %s frame: %w", msg.Event, err)
	}
	return nil
}

func (c *wsConn) Close() error {
	return c.ws.Close()
}
