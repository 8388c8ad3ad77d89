package event

import (
	"encoding/json"
	"time"
)

// Type identifies an event kind.
type Type string

const (
	PlayerRegistered    Type = "player.registered"
	PlayerDeleted       Type = "player.deleted"
	PlayerSold          Type = "player.sold"
	PlayerReleased      Type = "player.released"
	FranchiseRegistered Type = "franchise.registered"
	FranchiseDeleted    Type = "franchise.deleted"
	AuctionReset        Type = "auction.reset"
)

// Event is a single entry in the audit log. AggregateID is the player
// or franchise the entry is about.
type Event struct {
	ID          string          `json:"id" db:"id"`
	AggregateID string          `json:"aggregate_id" db:"aggregate_id"`
	Type        Type            `json:"type" db:"type"`
	Data        json.RawMessage `json:"data" db:"data"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// PlayerSoldData is the payload for PlayerSold events.
type PlayerSoldData struct {
	FranchiseID   string `json:"franchise_id"`
	FranchiseName string `json:"franchise_name"`
	Price         int    `json:"price"`
}

// PlayerReleasedData is the payload for PlayerReleased events.
type PlayerReleasedData struct {
	FranchiseID string `json:"franchise_id"`
	Refund      int    `json:"refund"`
}

// PlayerRegisteredData is the payload for PlayerRegistered events.
type PlayerRegisteredData struct {
	Name      string `json:"name"`
	Club      string `json:"club"`
	Type      string `json:"type"`
	BasePrice int    `json:"base_price"`
}

// FranchiseRegisteredData is the payload for FranchiseRegistered events.
type FranchiseRegisteredData struct {
	Name          string `json:"name"`
	InitialBudget int    `json:"initial_budget"`
}
