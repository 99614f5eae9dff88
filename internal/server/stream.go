package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"pbv-lab/internal/feed"
	"pbv-lab/internal/profile"
)

const (
	streamReadLimit    = 4096
	streamWriteTimeout = 10 * time.Second
)

// handleStream answers every tick with the histogram of the trailing
// window, or null until the window has filled. Parameters come from the
// query string; mode and n are ignored.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	p, _, err := queryParams(r.URL.Query(), s.deps.Defaults, s.limits)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rolling, err := profile.NewRolling(p.Params)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("Failed to upgrade connection")
		return
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-s.shutdown:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(time.Second))
			conn.Close()
		case <-done:
		}
	}()
	defer conn.Close()

	if s.deps.Metrics != nil {
		s.deps.Metrics.StreamOpened()
		defer s.deps.Metrics.StreamClosed()
	}

	log := s.log.WithFields(logrus.Fields{
		"remote": r.RemoteAddr,
		"window": p.WindowSize,
		"bins":   p.Bins,
	})
	log.Debug("stream opened")

	conn.SetReadLimit(streamReadLimit)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).Debug("stream closed")
			}
			return
		}

		t, err := feed.DecodeTick(data)
		if err != nil {
			closeWith(conn, websocket.CloseInvalidFramePayloadData, feed.ErrMalformedTick.Error())
			return
		}
		if s.deps.Metrics != nil {
			s.deps.Metrics.RecordTick()
		}

		h, err := rolling.Push(t.Price, t.Volume)
		if err != nil {
			log.WithError(err).Error("rolling histogram failed")
			closeWith(conn, websocket.CloseInternalServerErr, fmt.Sprintf("histogram: %v", err))
			return
		}

		_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
		if err := conn.WriteJSON(h); err != nil {
			log.WithError(err).Debug("stream write failed")
			return
		}
	}
}

func closeWith(conn *websocket.Conn, code int, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(time.Second))
}
