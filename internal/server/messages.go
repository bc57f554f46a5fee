package server

import (
	"net/http"
	"strings"

	"github.com/matheus3301/lexchat/internal/chatapi"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

func (s *Server) listMessages(w http.ResponseWriter, r *http.Request) {
	conversationID, ok := pathID(r, "id")
	if !ok {
		s.writeError(w, http.StatusBadRequest, "invalid conversation id")
		return
	}
	userID, ok := queryInt64(r, "requestingUserId")
	if !ok {
		s.writeError(w, http.StatusBadRequest, "requestingUserId is required")
		return
	}
	if !s.actingAs(w, r, userID) || !s.requireMember(w, r, conversationID, userID) {
		return
	}
	limit := queryInt(r, "limit", defaultPageSize)
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}
	offset := queryInt(r, "offset", 0)

	msgs, err := s.db.ListMessages(conversationID, limit, offset)
	if err != nil {
		s.internalError(w, r, "list messages", err)
		return
	}
	out := make([]chatapi.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageRecord(m))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request) {
	conversationID, ok := pathID(r, "id")
	if !ok {
		s.writeError(w, http.StatusBadRequest, "invalid conversation id")
		return
	}
	var req chatapi.SendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !s.actingAs(w, r, req.SenderUserID) || !s.requireMember(w, r, conversationID, req.SenderUserID) {
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		s.writeError(w, http.StatusBadRequest, "content is required")
		return
	}
	if len(req.Content) > chatapi.MaxContentLength {
		s.writeError(w, http.StatusBadRequest, "content is too long")
		return
	}
	if req.MessageType == "" {
		req.MessageType = chatapi.MessageTypeText
	}

	m, err := s.db.InsertMessage(conversationID, req.SenderUserID, req.Content, req.MessageType)
	if err != nil {
		s.internalError(w, r, "insert message", err)
		return
	}
	s.writeJSON(w, http.StatusCreated, messageRecord(*m))
}
