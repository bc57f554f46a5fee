package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/matheus3301/lexchat/internal/chatapi"
	"github.com/matheus3301/lexchat/internal/store"
	"go.uber.org/zap"
)

func (s *Server) listConversations(w http.ResponseWriter, r *http.Request) {
	userID, ok := queryInt64(r, "userId")
	if !ok {
		s.writeError(w, http.StatusBadRequest, "userId is required")
		return
	}
	if !s.actingAs(w, r, userID) {
		return
	}
	convs, err := s.db.ListConversationsForUser(userID)
	if err != nil {
		s.internalError(w, r, "list conversations", err)
		return
	}
	out := make([]chatapi.Conversation, 0, len(convs))
	for _, c := range convs {
		ps, err := s.db.ListParticipants(c.ID)
		if err != nil {
			s.internalError(w, r, "list participants", err)
			return
		}
		out = append(out, conversationRecord(c, ps))
	}
	s.writeJSON(w, http.StatusOK, out)
}

// conversationFor writes the conversation as seen by userID.
func (s *Server) conversationFor(w http.ResponseWriter, r *http.Request, status int, conversationID, userID int64) {
	c, err := s.db.GetConversationForUser(conversationID, userID)
	if err != nil {
		s.internalError(w, r, "load conversation", err)
		return
	}
	if c == nil {
		s.writeError(w, http.StatusNotFound, "conversation not found")
		return
	}
	ps, err := s.db.ListParticipants(conversationID)
	if err != nil {
		s.internalError(w, r, "list participants", err)
		return
	}
	s.writeJSON(w, status, conversationRecord(*c, ps))
}

func (s *Server) createConversation(w http.ResponseWriter, r *http.Request) {
	var req chatapi.CreateConversationRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !s.actingAs(w, r, req.CreatorUserID) {
		return
	}
	members := make([]int64, 0, len(req.ParticipantUserIDs))
	for _, id := range req.ParticipantUserIDs {
		if id != req.CreatorUserID {
			members = append(members, id)
		}
	}
	if len(members) == 0 {
		s.writeError(w, http.StatusBadRequest, "participantUserIds must name at least one other user")
		return
	}
	if !s.usersExist(w, r, members) {
		return
	}

	isGroup := len(members) > 1
	if req.IsGroup != nil {
		isGroup = *req.IsGroup
	}
	title := ""
	if req.Title != nil {
		title = strings.TrimSpace(*req.Title)
	}
	if !isGroup && len(members) == 1 {
		existing, err := s.db.FindDirect(req.CreatorUserID, members[0])
		if err != nil {
			s.internalError(w, r, "find direct conversation", err)
			return
		}
		if existing != 0 {
			s.conversationFor(w, r, http.StatusOK, existing, req.CreatorUserID)
			return
		}
	}

	id, err := s.db.CreateConversation(req.CreatorUserID, members, title, isGroup)
	if err != nil {
		s.internalError(w, r, "create conversation", err)
		return
	}
	s.logger.Info("conversation created",
		zap.Int64("conversation_id", id),
		zap.Int64("creator_id", req.CreatorUserID),
		zap.Bool("group", isGroup))
	s.conversationFor(w, r, http.StatusCreated, id, req.CreatorUserID)
}

func (s *Server) findOrCreateDirect(w http.ResponseWriter, r *http.Request) {
	var req chatapi.DirectConversationRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !s.actingAs(w, r, req.RequestingUserID) {
		return
	}
	if req.OtherUserID <= 0 || req.OtherUserID == req.RequestingUserID {
		s.writeError(w, http.StatusBadRequest, "otherUserId must name another user")
		return
	}
	if !s.usersExist(w, r, []int64{req.OtherUserID}) {
		return
	}

	id, err := s.db.FindDirect(req.RequestingUserID, req.OtherUserID)
	if err != nil {
		s.internalError(w, r, "find direct conversation", err)
		return
	}
	status := http.StatusOK
	if id == 0 {
		id, err = s.db.CreateConversation(req.RequestingUserID, []int64{req.OtherUserID}, "", false)
		if err != nil {
			s.internalError(w, r, "create conversation", err)
			return
		}
		status = http.StatusCreated
	}
	s.conversationFor(w, r, status, id, req.RequestingUserID)
}

func (s *Server) markRead(w http.ResponseWriter, r *http.Request) {
	conversationID, ok := pathID(r, "id")
	if !ok {
		s.writeError(w, http.StatusBadRequest, "invalid conversation id")
		return
	}
	var req chatapi.MarkReadRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !s.actingAs(w, r, req.UserID) {
		return
	}
	err := s.db.MarkRead(conversationID, req.UserID)
	if errors.Is(err, store.ErrNotParticipant) {
		s.writeError(w, http.StatusNotFound, "conversation not found")
		return
	}
	if err != nil {
		s.internalError(w, r, "mark read", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) addParticipant(w http.ResponseWriter, r *http.Request) {
	conversationID, ok := pathID(r, "id")
	if !ok {
		s.writeError(w, http.StatusBadRequest, "invalid conversation id")
		return
	}
	var req chatapi.AddParticipantRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !s.actingAs(w, r, req.PerformingUserID) || !s.requireMember(w, r, conversationID, req.PerformingUserID) {
		return
	}
	if !s.usersExist(w, r, []int64{req.UserIDToAdd}) {
		return
	}
	c, err := s.db.GetConversationForUser(conversationID, req.PerformingUserID)
	if err != nil {
		s.internalError(w, r, "load conversation", err)
		return
	}
	if c == nil {
		s.writeError(w, http.StatusNotFound, "conversation not found")
		return
	}
	if !c.IsGroup {
		s.writeError(w, http.StatusBadRequest, "participants can only be added to group conversations")
		return
	}
	added, err := s.db.AddParticipant(conversationID, req.UserIDToAdd)
	if err != nil {
		s.internalError(w, r, "add participant", err)
		return
	}
	if !added {
		s.writeJSON(w, http.StatusOK, chatapi.AddParticipantResponse{Message: "user is already a participant"})
		return
	}
	s.writeJSON(w, http.StatusOK, chatapi.AddParticipantResponse{Message: "participant added"})
}

func (s *Server) listParticipants(w http.ResponseWriter, r *http.Request) {
	conversationID, ok := pathID(r, "id")
	if !ok {
		s.writeError(w, http.StatusBadRequest, "invalid conversation id")
		return
	}
	if !s.requireMember(w, r, conversationID, UserID(r.Context())) {
		return
	}
	ps, err := s.db.ListParticipants(conversationID)
	if err != nil {
		s.internalError(w, r, "list participants", err)
		return
	}
	out := make([]flatParticipant, 0, len(ps))
	for _, p := range ps {
		out = append(out, flatParticipantRecord(p))
	}
	s.writeJSON(w, http.StatusOK, out)
}

// requireMember answers 404 unless userID belongs to the conversation.
func (s *Server) requireMember(w http.ResponseWriter, r *http.Request, conversationID, userID int64) bool {
	ok, err := s.db.IsParticipant(conversationID, userID)
	if err != nil {
		s.internalError(w, r, "check participant", err)
		return false
	}
	if !ok {
		s.writeError(w, http.StatusNotFound, "conversation not found")
		return false
	}
	return true
}

func (s *Server) usersExist(w http.ResponseWriter, r *http.Request, ids []int64) bool {
	for _, id := range ids {
		u, err := s.db.GetUser(id)
		if err != nil {
			s.internalError(w, r, "load user", err)
			return false
		}
		if u == nil {
			s.writeError(w, http.StatusBadRequest, "unknown user")
			return false
		}
	}
	return true
}
