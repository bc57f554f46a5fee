package server

import (
	"net/http"
	"strings"

	"github.com/matheus3301/lexchat/internal/chatapi"
)

func (s *Server) searchUsers(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		s.writeJSON(w, http.StatusOK, []chatapi.UserSummary{})
		return
	}
	users, err := s.db.SearchUsers(q, queryInt(r, "limit", 20))
	if err != nil {
		s.internalError(w, r, "search users", err)
		return
	}
	out := make([]chatapi.UserSummary, 0, len(users))
	for i := range users {
		out = append(out, userSummary(&users[i]))
	}
	s.writeJSON(w, http.StatusOK, out)
}
