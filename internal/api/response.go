package api

import (
	"encoding/json"
	"net/http"

	"github.com/kameshai/premier-auction/internal/auction"
	"github.com/kameshai/premier-auction/internal/store"
)

// JSON writes a JSON response.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// NoContent writes a 204 No Content response.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// State is the full dashboard state returned by GET /api/state.
type State struct {
	Players    []store.Player      `json:"players"`
	Franchises []auction.Franchise `json:"franchises"`
	Auction    auction.Snapshot    `json:"auction"`
}

// LoginResponse is returned after a successful login.
type LoginResponse struct {
	Token string `json:"token"`
	Email string `json:"email"`
	Admin bool   `json:"admin"`
}
