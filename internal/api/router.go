package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/kameshai/premier-auction/internal/auction"
	"github.com/kameshai/premier-auction/internal/authn"
	"github.com/kameshai/premier-auction/internal/media"
)

// RouterConfig holds the dependencies of the API router.
type RouterConfig struct {
	Logger *slog.Logger
	Engine *auction.Engine
	Auth   *authn.Service
	Media  media.Store
}

// NewRouter builds the API router. Login is open; everything else
// requires a session, and privileged writes are further gated inside
// the handlers.
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()
	h := NewHandler(cfg.Engine, cfg.Auth, cfg.Media)

	authMiddleware := Auth(cfg.Auth)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(Recovery(cfg.Logger))
	api.Use(Logging(cfg.Logger))

	api.HandleFunc("/login", h.Login).Methods(http.MethodPost)
	api.HandleFunc("/guest", h.GuestLogin).Methods(http.MethodPost)

	protected := api.NewRoute().Subrouter()
	protected.Use(authMiddleware)

	protected.HandleFunc("/logout", h.Logout).Methods(http.MethodPost)
	protected.HandleFunc("/state", h.GetState).Methods(http.MethodGet)

	protected.HandleFunc("/players", h.CreatePlayer).Methods(http.MethodPost)
	protected.HandleFunc("/players/{id}", h.DeletePlayer).Methods(http.MethodDelete)

	protected.HandleFunc("/franchises", h.CreateFranchise).Methods(http.MethodPost)
	protected.HandleFunc("/franchises/{id}", h.DeleteFranchise).Methods(http.MethodDelete)
	protected.HandleFunc("/franchises/{id}/release", h.ReleasePlayer).Methods(http.MethodPost)

	protected.HandleFunc("/auction", h.GetAuction).Methods(http.MethodGet)
	protected.HandleFunc("/auction/start", h.StartAuction).Methods(http.MethodPost)
	protected.HandleFunc("/auction/raise", h.RaiseBid).Methods(http.MethodPost)
	protected.HandleFunc("/auction/lower", h.LowerBid).Methods(http.MethodPost)
	protected.HandleFunc("/auction/bidder", h.SelectBidder).Methods(http.MethodPost)
	protected.HandleFunc("/auction/confirm", h.ConfirmSale).Methods(http.MethodPost)

	protected.HandleFunc("/reset", h.ResetAuction).Methods(http.MethodPost)

	return r
}
