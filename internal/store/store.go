package store

import (
	"context"
	"time"
)

// PlayerTypes enumerates the valid player roles.
var PlayerTypes = []string{
	"Batsman", "Bowler", "All-rounder",
	"Forward", "Midfielder", "Defender", "Goalkeeper",
}

// ValidPlayerType reports whether t is a known player role.
func ValidPlayerType(t string) bool {
	for _, v := range PlayerTypes {
		if v == t {
			return true
		}
	}
	return false
}

// Player is a catalog record. The sold-* fields are set only while
// IsSold is true.
type Player struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Club      string    `db:"club" json:"club"`
	Type      string    `db:"type" json:"type"`
	BasePrice int       `db:"base_price" json:"basePrice"`
	Rating    int       `db:"rating" json:"rating"`
	Image     string    `db:"image_url" json:"image"`
	IsSold    bool      `db:"is_sold" json:"isSold"`
	SoldToID   *string  `db:"sold_to_id" json:"soldToId,omitempty"`
	SoldToName *string  `db:"sold_to_name" json:"soldToName,omitempty"`
	SoldPrice  *int     `db:"sold_price" json:"soldPrice,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"-"`
	UpdatedAt time.Time `db:"updated_at" json:"-"`
}

// Franchise is a stored franchise record. RemainingBudget and
// PlayersCount are denormalized mirrors kept for the benefit of other
// readers of the database; the engine recomputes both from the player
// catalog on load and never trusts them.
type Franchise struct {
	ID              string    `db:"id" json:"id"`
	Name            string    `db:"name" json:"name"`
	Logo            string    `db:"logo_url" json:"logo"`
	Color           string    `db:"color" json:"color"`
	InitialBudget   int       `db:"initial_budget" json:"initialBudget"`
	RemainingBudget int       `db:"remaining_budget" json:"-"`
	PlayersCount    int       `db:"players_count" json:"-"`
	CreatedAt       time.Time `db:"created_at" json:"-"`
	UpdatedAt       time.Time `db:"updated_at" json:"-"`
}

// Sale carries the fields stamped onto a player when it is sold.
type Sale struct {
	FranchiseID   string
	FranchiseName string
	Price         int
}

// PlayerRepository defines catalog persistence operations.
type PlayerRepository interface {
	// Put creates or replaces a player record by id.
	Put(ctx context.Context, p *Player) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]Player, error)
	// MarkSold stamps the sold-state fields onto a player.
	MarkSold(ctx context.Context, id string, sale Sale) error
	// ClearSale resets a player's sold-state fields, returning it to
	// the unsold pool.
	ClearSale(ctx context.Context, id string) error
	// ResetSales clears the sold-state of every player.
	ResetSales(ctx context.Context) error
}

// FranchiseRepository defines franchise persistence operations.
type FranchiseRepository interface {
	Put(ctx context.Context, f *Franchise) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]Franchise, error)
	// ApplySale decrements the franchise's remaining budget by the sold
	// price and bumps the roster count.
	ApplySale(ctx context.Context, id string, price int) error
	// RevertSale restores the budget consumed by a released player.
	RevertSale(ctx context.Context, id string, price int) error
	// ResetBudgets restores every franchise to its initial budget.
	ResetBudgets(ctx context.Context) error
}
