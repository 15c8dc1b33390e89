package server

import (
	"net/http"

	"leadcrm/internal/services"
)

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var body services.RegisterPayload
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := s.auth.Register(r.Context(), &body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusCreated, user)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var body services.LoginPayload
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := s.auth.Login(r.Context(), &body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, result)
}
