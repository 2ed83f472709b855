package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"nhooyr.io/websocket" //nolint:staticcheck // TODO: migrate to github.com/coder/websocket
	"nhooyr.io/websocket/wsjson"

	"github.com/scrypster/recall/internal/session"
)

// socketReply is one server-to-client frame on the chat socket.
type socketReply struct {
	Answer string `json:"answer,omitempty"`
	Error  string `json:"error,omitempty"`
	Code   string `json:"code,omitempty"`
}

// handleChatSocket runs a chat loop over a WebSocket: each text frame is
// a question, each reply frame carries the answer or an error. The
// session outlives the socket; reconnecting resumes the conversation.
func (s *Server) handleChatSocket(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found", "SESSION_NOT_FOUND")
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{
			fmt.Sprintf("localhost:%d", s.cfg.Server.Port),
			fmt.Sprintf("127.0.0.1:%d", s.cfg.Server.Port),
		},
	})
	if err != nil {
		log.Printf("ERROR: WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "closing")

	log.Printf("WebSocket chat opened for session %s", sess.ID)

	for {
		_, data, err := conn.Read(r.Context())
		if err != nil {
			// Connection closed by the client or the server shutting down.
			return
		}

		question := strings.TrimSpace(string(data))
		if question == "" {
			s.writeSocket(r.Context(), conn, socketReply{Error: "question is required", Code: "MISSING_QUESTION"})
			continue
		}

		answer, err := sess.Chat(r.Context(), question)
		if err != nil {
			reply := socketReply{Error: "chat turn failed", Code: "CHAT_FAILED"}
			if errors.Is(err, session.ErrTurnInProgress) {
				reply = socketReply{Error: "a turn is already in progress", Code: "TURN_IN_PROGRESS"}
			} else {
				log.Printf("ERROR: chat turn failed for session %s: %v", sess.ID, err)
			}
			s.writeSocket(r.Context(), conn, reply)
			continue
		}

		s.writeSocket(r.Context(), conn, socketReply{Answer: answer})
	}
}

func (s *Server) writeSocket(ctx context.Context, conn *websocket.Conn, reply socketReply) {
	writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := wsjson.Write(writeCtx, conn, reply); err != nil {
		log.Printf("ERROR: WebSocket write failed: %v", err)
	}
}
