// internal/handlers/lobby.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/guesshole/guesshole/internal/game"
	"github.com/guesshole/guesshole/internal/lobby"
)

// LobbyHandlers serves the lobby REST surface: creation and join-code
// resolution.
type LobbyHandlers struct {
	Service *lobby.Service
	Log     *logrus.Logger
}

type createLobbyRequest struct {
	Name    string `json:"name"`
	Privacy string `json:"privacy"`
}

// CreateLobbyHandler handles POST /lobby/create.
func (h *LobbyHandlers) CreateLobbyHandler(w http.ResponseWriter, r *http.Request) {
	var req createLobbyRequest
	if r.Body != nil {
		// An empty body is a valid request for a default lobby.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	l, err := h.Service.Create(r.Context(), req.Name, req.Privacy)
	if err != nil {
		h.Log.Errorf("create lobby: %v", err)
		http.Error(w, "could not create lobby", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(l); err != nil {
		h.Log.Warnf("encode lobby response: %v", err)
	}
}

// LobbyByCodeHandler handles GET /lobby/by-code/{code}.
func (h *LobbyHandlers) LobbyByCodeHandler(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	if code == "" {
		http.Error(w, "missing join code", http.StatusBadRequest)
		return
	}

	l, err := h.Service.ByCode(r.Context(), code)
	if errors.Is(err, game.ErrNotFound) {
		http.Error(w, "no lobby with that code", http.StatusNotFound)
		return
	}
	if err != nil {
		h.Log.Errorf("lookup lobby by code %q: %v", code, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(l); err != nil {
		h.Log.Warnf("encode lobby response: %v", err)
	}
}
