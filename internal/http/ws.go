package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/example/guilda/internal/apperr"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	wsReadLimit = 4096
	wsPongWait  = 60 * time.Second
)

// handleWS attaches a socket to the caller's user id. Browsers cannot set
// headers on a websocket handshake, so the token may come as ?token=.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if s.WS == nil {
		http.Error(w, "realtime disabled", http.StatusServiceUnavailable)
		return
	}
	token := r.URL.Query().Get("token")
	if token == "" {
		token = bearerToken(r)
	}
	sess, err := s.Auth.Session(r.Context(), token)
	if err != nil {
		s.writeError(w, r, apperr.ErrUnauthorized)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("ws upgrade failed", "error", err)
		return
	}
	remove := s.WS.Add(sess.User.ID, conn)
	s.logger.Info("ws connected", "user_id", sess.User.ID)

	go func() {
		defer func() {
			remove()
			conn.Close()
			s.logger.Info("ws disconnected", "user_id", sess.User.ID)
		}()
		conn.SetReadLimit(wsReadLimit)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error { return conn.SetReadDeadline(time.Now().Add(wsPongWait)) })
		for {
			// clients only send keepalives
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
			_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		}
	}()
}
