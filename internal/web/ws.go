package web

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// handleWS streams a state frame on every robot state change. Run status
// changes that do not touch the robot are picked up by the periodic refresh.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer func() { _ = conn.Close() }()

	updates, unsubscribe := s.coord.Store().Subscribe()
	defer unsubscribe()

	// Reads only detect the peer going away; clients send nothing.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	refresh := time.NewTicker(s.refreshPeriod())
	defer refresh.Stop()

	for {
		select {
		case <-closed:
			return
		case state, ok := <-updates:
			if !ok {
				return
			}
			if err := s.writeFrame(conn, s.frame(state)); err != nil {
				return
			}
		case <-refresh.C:
			if err := s.writeFrame(conn, s.frame(s.coord.Store().Snapshot())); err != nil {
				return
			}
		}
	}
}

func (s *Server) refreshPeriod() time.Duration {
	return (s.writeWait * 9) / 10
}

func (s *Server) writeFrame(conn *websocket.Conn, f Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(s.writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Debug().Err(err).Msg("websocket write failed")
		return err
	}
	return nil
}
