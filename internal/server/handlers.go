package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/scrypster/recall/internal/session"
	"github.com/scrypster/recall/pkg/types"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ERROR: failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, errorResponse{Error: message, Code: code})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"sessions": s.sessions.Count(),
	}
	if s.ingestor != nil {
		count, err := s.ingestor.IndexedPassages(r.Context())
		if err != nil {
			log.Printf("WARNING: failed to count indexed passages: %v", err)
		} else {
			resp["indexed_passages"] = count
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Create()
	if err != nil {
		log.Printf("ERROR: failed to create session: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create session", "SESSION_CREATE_FAILED")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"session_id": sess.ID,
		"created_at": sess.CreatedAt.Format(time.RFC3339),
	})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	ids := s.sessions.IDs()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": ids,
		"count":    len(ids),
	})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(r.PathValue("id")); err != nil {
		writeError(w, http.StatusNotFound, "session not found", "SESSION_NOT_FOUND")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.sessions.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found", "SESSION_NOT_FOUND")
		return nil, false
	}
	return sess, true
}

type chatRequest struct {
	Question string `json:"question"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.getSession(w, r)
	if !ok {
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "INVALID_BODY")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "question is required", "MISSING_QUESTION")
		return
	}

	answer, err := sess.Chat(r.Context(), req.Question)
	if err != nil {
		if errors.Is(err, session.ErrTurnInProgress) {
			writeError(w, http.StatusConflict, "a turn is already in progress", "TURN_IN_PROGRESS")
			return
		}
		log.Printf("ERROR: chat turn failed for session %s: %v", sess.ID, err)
		writeError(w, http.StatusBadGateway, "chat turn failed", "CHAT_FAILED")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"answer": answer,
		"stats":  sess.Stats(),
	})
}

func (s *Server) handleSessionStats(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.getSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Stats())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.getSession(w, r)
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer", "INVALID_LIMIT")
			return
		}
		limit = n
	}

	messages := sess.History(limit)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"messages": messages,
		"count":    len(messages),
	})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.getSession(w, r)
	if !ok {
		return
	}
	sess.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if s.ingestor == nil {
		writeError(w, http.StatusNotImplemented, "ingestion is not configured", "INGEST_DISABLED")
		return
	}

	var passage types.RetrievedPassage
	if err := json.NewDecoder(r.Body).Decode(&passage); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "INVALID_BODY")
		return
	}
	if passage.ID == "" || strings.TrimSpace(passage.Content) == "" {
		writeError(w, http.StatusBadRequest, "id and content are required", "INVALID_PASSAGE")
		return
	}
	if !passage.DocType.Valid() {
		writeError(w, http.StatusBadRequest, "unknown doc_type", "INVALID_PASSAGE")
		return
	}

	if err := s.ingestor.Ingest(r.Context(), passage); err != nil {
		log.Printf("ERROR: failed to ingest passage %s: %v", passage.ID, err)
		writeError(w, http.StatusBadGateway, "ingestion failed", "INGEST_FAILED")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": passage.ID})
}
