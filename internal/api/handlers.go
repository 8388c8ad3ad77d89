package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/kameshai/premier-auction/internal/auction"
	"github.com/kameshai/premier-auction/internal/authn"
	"github.com/kameshai/premier-auction/internal/media"
	"github.com/kameshai/premier-auction/internal/store"
)

const maxUploadBytes = 10 << 20

// Handler serves the dashboard API. Reads are open to any valid
// session; privileged writes silently no-op for non-admin sessions so
// that a stale viewer UI never surfaces errors for buttons it should
// not have shown.
type Handler struct {
	engine *auction.Engine
	auth   *authn.Service
	media  media.Store
}

// NewHandler creates the API handler.
func NewHandler(engine *auction.Engine, auth *authn.Service, mediaStore media.Store) *Handler {
	return &Handler{
		engine: engine,
		auth:   auth,
		media:  mediaStore,
	}
}

func (h *Handler) isAdmin(r *http.Request) bool {
	return h.auth.IsAdmin(GetSession(r.Context()))
}

// Login handles POST /api/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}
	if req.Email == "" || req.Password == "" {
		WriteError(w, NewInvalidRequestError("email and password are required"))
		return
	}

	session, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		WriteError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "session",
		Value:    session.Token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	JSON(w, http.StatusOK, LoginResponse{
		Token: session.Token,
		Email: session.Email,
		Admin: h.auth.IsAdmin(session),
	})
}

// GuestLogin handles POST /api/guest. Viewers get a read-only session;
// privileged handlers treat them as no-ops.
func (h *Handler) GuestLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	session, err := h.auth.GuestLogin(r.Context(), req.Email)
	if err != nil {
		WriteError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "session",
		Value:    session.Token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	JSON(w, http.StatusOK, LoginResponse{
		Token: session.Token,
		Email: session.Email,
		Admin: false,
	})
}

// Logout handles POST /api/logout.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context(), GetSession(r.Context()).Token); err != nil {
		WriteError(w, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:   "session",
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	NoContent(w)
}

// GetState handles GET /api/state. Returns 503 until load-time
// reconciliation has completed.
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	if !h.engine.Ready() {
		WriteError(w, auction.ErrNotReady)
		return
	}
	JSON(w, http.StatusOK, State{
		Players:    h.engine.Players(),
		Franchises: h.engine.Franchises(),
		Auction:    h.engine.Session(),
	})
}

// GetAuction handles GET /api/auction. Returns 503 until load-time
// reconciliation has completed, same as GetState.
func (h *Handler) GetAuction(w http.ResponseWriter, r *http.Request) {
	if !h.engine.Ready() {
		WriteError(w, auction.ErrNotReady)
		return
	}
	JSON(w, http.StatusOK, h.engine.Session())
}

// StartAuction handles POST /api/auction/start.
func (h *Handler) StartAuction(w http.ResponseWriter, r *http.Request) {
	if !h.isAdmin(r) {
		JSON(w, http.StatusOK, h.engine.Session())
		return
	}
	var req struct {
		PlayerID string `json:"playerId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}
	snap, err := h.engine.StartAuction(r.Context(), req.PlayerID)
	if err != nil {
		WriteError(w, err)
		return
	}
	JSON(w, http.StatusOK, snap)
}

// RaiseBid handles POST /api/auction/raise.
func (h *Handler) RaiseBid(w http.ResponseWriter, r *http.Request) {
	if !h.isAdmin(r) {
		JSON(w, http.StatusOK, h.engine.Session())
		return
	}
	JSON(w, http.StatusOK, h.engine.RaiseBid(r.Context()))
}

// LowerBid handles POST /api/auction/lower.
func (h *Handler) LowerBid(w http.ResponseWriter, r *http.Request) {
	if !h.isAdmin(r) {
		JSON(w, http.StatusOK, h.engine.Session())
		return
	}
	JSON(w, http.StatusOK, h.engine.LowerBid(r.Context()))
}

// SelectBidder handles POST /api/auction/bidder.
func (h *Handler) SelectBidder(w http.ResponseWriter, r *http.Request) {
	if !h.isAdmin(r) {
		JSON(w, http.StatusOK, h.engine.Session())
		return
	}
	var req struct {
		FranchiseID string `json:"franchiseId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}
	JSON(w, http.StatusOK, h.engine.SelectBidder(r.Context(), req.FranchiseID))
}

// ConfirmSale handles POST /api/auction/confirm.
func (h *Handler) ConfirmSale(w http.ResponseWriter, r *http.Request) {
	if !h.isAdmin(r) {
		JSON(w, http.StatusOK, h.engine.Session())
		return
	}
	snap, err := h.engine.ConfirmSale(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	JSON(w, http.StatusOK, snap)
}

// CreatePlayer handles POST /api/players. The body is multipart form
// data; the image file is required and uploaded before the record is
// created.
func (h *Handler) CreatePlayer(w http.ResponseWriter, r *http.Request) {
	if !h.isAdmin(r) {
		NoContent(w)
		return
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		WriteError(w, NewInvalidRequestError("invalid multipart form"))
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		WriteError(w, NewInvalidRequestError("player image is required"))
		return
	}
	defer file.Close()

	basePrice, _ := strconv.Atoi(r.FormValue("basePrice"))
	rating, _ := strconv.Atoi(r.FormValue("rating"))

	imageURL, err := h.media.UploadPlayerImage(r.Context(), header.Filename, file)
	if err != nil {
		WriteError(w, err)
		return
	}

	player, err := h.engine.RegisterPlayer(r.Context(), store.Player{
		ID:        r.FormValue("id"),
		Name:      r.FormValue("name"),
		Club:      r.FormValue("club"),
		Type:      r.FormValue("type"),
		BasePrice: basePrice,
		Rating:    rating,
		Image:     imageURL,
	})
	if err != nil {
		WriteError(w, err)
		return
	}
	JSON(w, http.StatusCreated, player)
}

// DeletePlayer handles DELETE /api/players/{id}.
func (h *Handler) DeletePlayer(w http.ResponseWriter, r *http.Request) {
	if !h.isAdmin(r) {
		NoContent(w)
		return
	}
	if err := h.engine.DeletePlayer(r.Context(), mux.Vars(r)["id"]); err != nil {
		WriteError(w, err)
		return
	}
	NoContent(w)
}

// CreateFranchise handles POST /api/franchises. The logo file is
// required and is stored under the new franchise's id, so the id is
// derived before the upload.
func (h *Handler) CreateFranchise(w http.ResponseWriter, r *http.Request) {
	if !h.isAdmin(r) {
		NoContent(w)
		return
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		WriteError(w, NewInvalidRequestError("invalid multipart form"))
		return
	}

	file, _, err := r.FormFile("logo")
	if err != nil {
		WriteError(w, NewInvalidRequestError("franchise logo is required"))
		return
	}
	defer file.Close()

	budget, _ := strconv.Atoi(r.FormValue("budget"))

	id := h.engine.NewFranchiseID()
	logoURL, err := h.media.UploadFranchiseLogo(r.Context(), id, file)
	if err != nil {
		WriteError(w, err)
		return
	}

	franchise, err := h.engine.RegisterFranchise(r.Context(), id, r.FormValue("name"), budget, r.FormValue("color"), logoURL)
	if err != nil {
		WriteError(w, err)
		return
	}
	JSON(w, http.StatusCreated, franchise)
}

// DeleteFranchise handles DELETE /api/franchises/{id}.
func (h *Handler) DeleteFranchise(w http.ResponseWriter, r *http.Request) {
	if !h.isAdmin(r) {
		NoContent(w)
		return
	}
	if err := h.engine.DeleteFranchise(r.Context(), mux.Vars(r)["id"]); err != nil {
		WriteError(w, err)
		return
	}
	NoContent(w)
}

// ReleasePlayer handles POST /api/franchises/{id}/release.
func (h *Handler) ReleasePlayer(w http.ResponseWriter, r *http.Request) {
	if !h.isAdmin(r) {
		NoContent(w)
		return
	}
	var req struct {
		PlayerID string `json:"playerId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}
	if err := h.engine.ReleasePlayer(r.Context(), mux.Vars(r)["id"], req.PlayerID); err != nil {
		WriteError(w, err)
		return
	}
	NoContent(w)
}

// ResetAuction handles POST /api/reset.
func (h *Handler) ResetAuction(w http.ResponseWriter, r *http.Request) {
	if !h.isAdmin(r) {
		NoContent(w)
		return
	}
	if err := h.engine.ResetAll(r.Context()); err != nil {
		WriteError(w, err)
		return
	}
	NoContent(w)
}
