package auction

import "github.com/kameshai/premier-auction/internal/store"

// Status is the auction session lifecycle state.
type Status string

const (
	StatusIdle    Status = "IDLE"
	StatusBidding Status = "BIDDING"
	StatusSold    Status = "SOLD"
)

// session tracks the single player currently up for bid. It owns
// currentBid and highestBidderID for its lifetime; once a sale commits,
// the resulting facts are copied onto the player and franchise records
// and the session is reset. All mutation happens under the Engine lock.
type session struct {
	player          *store.Player
	currentBid      int
	highestBidderID string
	status          Status
	scoutReport     string

	// epoch increments on every start/reset so that late timer and
	// scout-report callbacks can detect they are stale.
	epoch uint64
}

func newSession() *session {
	return &session{status: StatusIdle}
}

// start enters BIDDING for the given player. The bid opens at the
// player's base price and any previously selected bidder is cleared.
func (s *session) start(p *store.Player, pendingReport string) {
	cp := *p
	s.player = &cp
	s.currentBid = p.BasePrice
	s.highestBidderID = ""
	s.status = StatusBidding
	s.scoutReport = pendingReport
	s.epoch++
}

// raise bumps the bid by step. No-op outside BIDDING.
func (s *session) raise(step int) {
	if s.status != StatusBidding {
		return
	}
	s.currentBid += step
}

// lower drops the bid by step, refusing to go below the base price.
func (s *session) lower(step int) {
	if s.status != StatusBidding || s.player == nil {
		return
	}
	if s.currentBid-step < s.player.BasePrice {
		return
	}
	s.currentBid -= step
}

// selectBidder replaces the current highest bidder. Eligibility is
// checked by the Engine, which knows budgets and roster sizes.
func (s *session) selectBidder(franchiseID string) {
	if s.status != StatusBidding {
		return
	}
	s.highestBidderID = franchiseID
}

// markSold flips the session to SOLD after a committed sale.
func (s *session) markSold() {
	s.status = StatusSold
}

// reset returns the session to IDLE, clearing everything.
func (s *session) reset() {
	s.player = nil
	s.currentBid = 0
	s.highestBidderID = ""
	s.status = StatusIdle
	s.scoutReport = ""
	s.epoch++
}

// Snapshot is a point-in-time copy of the session for API responses.
type Snapshot struct {
	CurrentPlayer   *store.Player `json:"currentPlayer"`
	CurrentBid      int           `json:"currentBid"`
	HighestBidderID string        `json:"highestBidderId,omitempty"`
	Status          Status        `json:"status"`
	ScoutReport     string        `json:"scoutReport"`
}

func (s *session) snapshot() Snapshot {
	snap := Snapshot{
		CurrentBid:      s.currentBid,
		HighestBidderID: s.highestBidderID,
		Status:          s.status,
		ScoutReport:     s.scoutReport,
	}
	if s.player != nil {
		cp := *s.player
		snap.CurrentPlayer = &cp
	}
	return snap
}
