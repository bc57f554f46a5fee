package server

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"github.com/matheus3301/lexchat/internal/auth"
	"github.com/matheus3301/lexchat/internal/chatapi"
	"github.com/matheus3301/lexchat/internal/store"
	"go.uber.org/zap"
)

const minPasswordLen = 8

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req chatapi.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.TrimSpace(req.Email)
	if req.FullName == "" {
		s.writeError(w, http.StatusBadRequest, "full_name is required")
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		s.writeError(w, http.StatusBadRequest, "a valid email is required")
		return
	}
	if len(req.Password) < minPasswordLen {
		s.writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.internalError(w, r, "hash password", err)
		return
	}
	user, err := s.db.CreateUser(req.FullName, req.Email, hash, "")
	if errors.Is(err, store.ErrDuplicateEmail) {
		s.writeError(w, http.StatusConflict, "email already registered")
		return
	}
	if err != nil {
		s.internalError(w, r, "create user", err)
		return
	}
	s.logger.Info("user registered", zap.Int64("user_id", user.ID))
	s.issueToken(w, r, http.StatusCreated, user)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req chatapi.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	user, err := s.db.GetUserByEmail(req.Email)
	if err != nil {
		s.internalError(w, r, "load user", err)
		return
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		s.writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	s.issueToken(w, r, http.StatusOK, user)
}

func (s *Server) issueToken(w http.ResponseWriter, r *http.Request, status int, user *store.User) {
	token, err := auth.GenerateToken(user.ID, user.Email, s.secret, s.ttl)
	if err != nil {
		s.internalError(w, r, "generate token", err)
		return
	}
	s.writeJSON(w, status, chatapi.LoginResponse{Token: token, User: userSummary(user)})
}
