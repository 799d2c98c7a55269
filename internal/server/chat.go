package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsRequest is the incoming WebSocket message format.
type wsRequest struct {
	Type     string `json:"type"` // "message"
	Content  string `json:"content"`
	Language string `json:"language"`
}

// wsResponse is the outgoing WebSocket message format.
type wsResponse struct {
	Type          string `json:"type"` // "response" or "error"
	Content       string `json:"content"`
	ContentHTML   string `json:"content_html,omitempty"`
	HasPDFContext bool   `json:"has_pdf_context,omitempty"`
	Language      string `json:"language,omitempty"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade", zap.Error(err))
		return
	}
	defer conn.Close()
	// The hijacked connection keeps the server's write deadline.
	_ = conn.NetConn().SetDeadline(time.Time{})

	user := userID(r)
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read", zap.String("user_id", user), zap.Error(err))
			}
			return
		}

		var req wsRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			s.sendWS(conn, wsResponse{Type: "error", Content: "invalid message format"})
			continue
		}

		switch req.Type {
		case "message":
			s.handleWSMessage(conn, r, user, req)
		default:
			s.sendWS(conn, wsResponse{Type: "error", Content: "unknown message type: " + req.Type})
		}
	}
}

func (s *Server) handleWSMessage(conn *websocket.Conn, r *http.Request, user string, req wsRequest) {
	ctx, cancel := contextWithTimeout(r, s.cfg.RequestTimeout)
	defer cancel()

	reply, err := s.deps.Engine.Respond(ctx, user, req.Content, req.Language)
	if err != nil {
		_, msg := errorStatus(err)
		s.sendWS(conn, wsResponse{Type: "error", Content: msg})
		return
	}

	html, _ := s.deps.Renderer.Markdown(reply.Answer)
	s.sendWS(conn, wsResponse{
		Type:          "response",
		Content:       reply.Answer,
		ContentHTML:   html,
		HasPDFContext: reply.HasDocument(),
		Language:      reply.Language,
	})
}

func (s *Server) sendWS(conn *websocket.Conn, resp wsResponse) {
	if err := conn.WriteJSON(resp); err != nil {
		s.logger.Warn("websocket write", zap.Error(err))
	}
}
