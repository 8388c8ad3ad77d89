package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kameshai/premier-auction/internal/auction"
	"github.com/kameshai/premier-auction/internal/authn"
)

// APIError is the error body returned to clients.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

const (
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeNotReady           = "NOT_READY"
	CodePlayerNotFound     = "PLAYER_NOT_FOUND"
	CodeFranchiseNotFound  = "FRANCHISE_NOT_FOUND"
	CodeNoAuction          = "NO_AUCTION"
	CodeNoBidder           = "NO_BIDDER"
	CodeNotOnRoster        = "NOT_ON_ROSTER"
	CodeBidderIneligible   = "BIDDER_INELIGIBLE"
	CodeGatewayFailure     = "GATEWAY_FAILURE"
	CodeInternalError      = "INTERNAL_ERROR"
)

type httpError struct {
	status   int
	apiError APIError
}

func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError maps err to a status code and writes the error body.
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	switch {
	case errors.Is(err, auction.ErrNotReady):
		return &httpError{http.StatusServiceUnavailable, APIError{CodeNotReady, "Auction data is still loading"}}
	case errors.Is(err, auction.ErrPlayerNotFound):
		return &httpError{http.StatusUnprocessableEntity, APIError{CodePlayerNotFound, "ID not recognized or player already sold"}}
	case errors.Is(err, auction.ErrFranchiseNotFound):
		return &httpError{http.StatusUnprocessableEntity, APIError{CodeFranchiseNotFound, "Franchise not found"}}
	case errors.Is(err, auction.ErrNoAuction):
		return &httpError{http.StatusUnprocessableEntity, APIError{CodeNoAuction, "No auction in progress"}}
	case errors.Is(err, auction.ErrNoBidder):
		return &httpError{http.StatusUnprocessableEntity, APIError{CodeNoBidder, "Select a franchise before confirming the sale"}}
	case errors.Is(err, auction.ErrBidderIneligible):
		return &httpError{http.StatusUnprocessableEntity, APIError{CodeBidderIneligible, "Highest bidder can no longer cover the bid or has a full roster"}}
	case errors.Is(err, auction.ErrNotOnRoster):
		return &httpError{http.StatusUnprocessableEntity, APIError{CodeNotOnRoster, "Player is not on this franchise's roster"}}
	case errors.Is(err, auction.ErrInvalidInput):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, err.Error()}}
	case errors.Is(err, authn.ErrInvalidCredentials):
		return &httpError{http.StatusUnauthorized, APIError{CodeInvalidCredentials, "Invalid email or password"}}
	case errors.Is(err, authn.ErrSessionNotFound):
		return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Invalid or expired session"}}
	default:
		// Anything else is a failed write to the persistence gateway or
		// an unexpected internal fault.
		return &httpError{http.StatusBadGateway, APIError{CodeGatewayFailure, "Upstream write failed; no changes were applied"}}
	}
}

// NewInvalidRequestError creates a 400 error with a message.
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewUnauthorizedError creates a 401 error.
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Authentication required"}}
}

// NewInternalError creates a 500 error.
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
