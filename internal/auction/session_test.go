package auction

import (
	"testing"

	"github.com/kameshai/premier-auction/internal/store"
)

func TestSessionBidBounds(t *testing.T) {
	s := newSession()
	p := &store.Player{ID: "p1", Name: "Test", BasePrice: 50}
	s.start(p, "pending")

	if s.currentBid != 50 {
		t.Fatalf("bid should open at base price, got %d", s.currentBid)
	}

	s.raise(50)
	s.raise(50)
	if s.currentBid != 150 {
		t.Errorf("expected bid 150 after two raises, got %d", s.currentBid)
	}

	s.lower(50)
	s.lower(50)
	if s.currentBid != 50 {
		t.Errorf("expected bid back at base, got %d", s.currentBid)
	}

	// Lowering at the base price is a no-op.
	s.lower(50)
	if s.currentBid != 50 {
		t.Errorf("bid dropped below base price: %d", s.currentBid)
	}
}

func TestSessionIgnoresBidsOutsideBidding(t *testing.T) {
	s := newSession()
	s.raise(50)
	s.lower(50)
	s.selectBidder("t1")
	if s.currentBid != 0 || s.highestBidderID != "" {
		t.Errorf("idle session mutated: bid=%d bidder=%q", s.currentBid, s.highestBidderID)
	}

	p := &store.Player{ID: "p1", BasePrice: 100}
	s.start(p, "pending")
	s.markSold()
	s.raise(50)
	if s.currentBid != 100 {
		t.Errorf("sold session accepted a raise: %d", s.currentBid)
	}
}

func TestSessionStartClearsPreviousState(t *testing.T) {
	s := newSession()
	s.start(&store.Player{ID: "p1", BasePrice: 50}, "pending")
	s.raise(50)
	s.selectBidder("t1")

	s.start(&store.Player{ID: "p2", BasePrice: 200}, "pending")
	if s.currentBid != 200 {
		t.Errorf("expected bid reset to new base price, got %d", s.currentBid)
	}
	if s.highestBidderID != "" {
		t.Errorf("expected bidder cleared, got %q", s.highestBidderID)
	}
	if s.player.ID != "p2" {
		t.Errorf("expected player p2, got %q", s.player.ID)
	}
}

func TestSessionEpochAdvances(t *testing.T) {
	s := newSession()
	before := s.epoch
	s.start(&store.Player{ID: "p1", BasePrice: 50}, "pending")
	if s.epoch == before {
		t.Error("start must advance the epoch")
	}
	mid := s.epoch
	s.reset()
	if s.epoch == mid {
		t.Error("reset must advance the epoch")
	}
}

func TestSnapshotCopiesPlayer(t *testing.T) {
	s := newSession()
	p := &store.Player{ID: "p1", Name: "Original", BasePrice: 50}
	s.start(p, "pending")

	snap := s.snapshot()
	snap.CurrentPlayer.Name = "Mutated"
	if s.player.Name != "Original" {
		t.Error("snapshot must not share the session's player")
	}
}
