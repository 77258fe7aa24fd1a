package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"adinsight/auth"
)

type userKey struct{}

type user struct {
	Name  string
	Admin bool
}

func userFrom(ctx context.Context) user {
	u, _ := ctx.Value(userKey{}).(user)
	return u
}

func (s *Server) requireJWT(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name, admin, err := auth.ExtractUserAndAdminFromJWT(r, s.State().Config.JWT.Secret)
		if err != nil {
			writeError(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), userKey{}, user{Name: name, Admin: admin})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) LoginHandler(w http.ResponseWriter, r *http.Request) {
	st := s.State()
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "JSON invalide", http.StatusBadRequest)
		s.logs.Login.Info("login failed", zap.String("reason", "bad json"))
		return
	}
	isAdmin, err := st.Auth.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			s.logs.Login.Error("login failed", zap.String("user", req.Username), zap.Error(err))
		} else {
			s.logs.Login.Info("login failed", zap.String("user", req.Username))
		}
		writeError(w, err)
		return
	}
	tokenString, err := auth.GenerateJWT(st.Config.JWT.Secret, req.Username, isAdmin, st.Config.JWT.ExpirationMinutes)
	if err != nil {
		s.logs.Login.Error("jwt", zap.String("user", req.Username), zap.Error(err))
		writeError(w, err)
		return
	}
	s.logs.Login.Info("login ok", zap.String("user", req.Username), zap.Bool("admin", isAdmin))
	writeJSON(w, http.StatusOK, map[string]string{"token": tokenString})
}
