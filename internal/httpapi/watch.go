package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// handleProgressWatch streams progress events over a websocket so the
// admin analytics view updates live as students toggle topics.
func (s *Server) handleProgressWatch(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // same-origin policy is the deployment's concern
	})
	if err != nil {
		slog.Error("websocket accept failed", "error", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	events, cancel := s.broadcast.Subscribe()
	defer cancel()

	slog.Info("progress watch connected")
	ctx := r.Context()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := wsjson.Write(ctx, conn, event); err != nil {
				slog.Debug("progress watch write failed", "error", err)
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
