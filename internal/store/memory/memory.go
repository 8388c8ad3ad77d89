// Package memory provides in-memory repositories. They back the
// "memory" store driver for local development and are used directly by
// tests that need a real repository without a database.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/kameshai/premier-auction/internal/config"
	"github.com/kameshai/premier-auction/internal/event"
	"github.com/kameshai/premier-auction/internal/store"
)

func init() {
	store.Register("memory", func(ctx context.Context, cfg config.DatabaseConfig, clk clockwork.Clock) (*store.Repositories, error) {
		return &store.Repositories{
			Players:    NewPlayerRepository(clk),
			Franchises: NewFranchiseRepository(clk),
			Events:     NewEventStore(clk),
			Ping:       func(ctx context.Context) error { return nil },
		}, nil
	})
}

// PlayerRepository keeps players in a mutex-guarded map.
type PlayerRepository struct {
	mu      sync.Mutex
	players map[string]store.Player
	clock   clockwork.Clock
}

// NewPlayerRepository creates an empty in-memory player repository.
func NewPlayerRepository(clk clockwork.Clock) *PlayerRepository {
	return &PlayerRepository{
		players: map[string]store.Player{},
		clock:   clk,
	}
}

func (r *PlayerRepository) Put(ctx context.Context, p *store.Player) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.clock.Now()
	cp := *p
	if existing, ok := r.players[p.ID]; ok {
		cp.CreatedAt = existing.CreatedAt
	} else {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	r.players[p.ID] = cp
	return nil
}

func (r *PlayerRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.players, id)
	return nil
}

func (r *PlayerRepository) List(ctx context.Context) ([]store.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]store.Player, 0, len(r.players))
	for _, p := range r.players {
		out = append(out, p)
	}
	return out, nil
}

func (r *PlayerRepository) MarkSold(ctx context.Context, id string, sale store.Sale) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[id]
	if !ok {
		return fmt.Errorf("player %s not found", id)
	}
	p.IsSold = true
	p.SoldToID = &sale.FranchiseID
	p.SoldToName = &sale.FranchiseName
	p.SoldPrice = &sale.Price
	p.UpdatedAt = r.clock.Now()
	r.players[id] = p
	return nil
}

func (r *PlayerRepository) ClearSale(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[id]
	if !ok {
		return fmt.Errorf("player %s not found", id)
	}
	p.IsSold = false
	p.SoldToID = nil
	p.SoldToName = nil
	p.SoldPrice = nil
	p.UpdatedAt = r.clock.Now()
	r.players[id] = p
	return nil
}

func (r *PlayerRepository) ResetSales(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.clock.Now()
	for id, p := range r.players {
		p.IsSold = false
		p.SoldToID = nil
		p.SoldToName = nil
		p.SoldPrice = nil
		p.UpdatedAt = now
		r.players[id] = p
	}
	return nil
}

// FranchiseRepository keeps franchises in a mutex-guarded map.
type FranchiseRepository struct {
	mu         sync.Mutex
	franchises map[string]store.Franchise
	clock      clockwork.Clock
}

// NewFranchiseRepository creates an empty in-memory franchise repository.
func NewFranchiseRepository(clk clockwork.Clock) *FranchiseRepository {
	return &FranchiseRepository{
		franchises: map[string]store.Franchise{},
		clock:      clk,
	}
}

func (r *FranchiseRepository) Put(ctx context.Context, f *store.Franchise) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.clock.Now()
	cp := *f
	if existing, ok := r.franchises[f.ID]; ok {
		cp.CreatedAt = existing.CreatedAt
	} else {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	r.franchises[f.ID] = cp
	return nil
}

func (r *FranchiseRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.franchises, id)
	return nil
}

func (r *FranchiseRepository) List(ctx context.Context) ([]store.Franchise, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]store.Franchise, 0, len(r.franchises))
	for _, f := range r.franchises {
		out = append(out, f)
	}
	return out, nil
}

func (r *FranchiseRepository) ApplySale(ctx context.Context, id string, price int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.franchises[id]
	if !ok {
		return fmt.Errorf("franchise %s not found", id)
	}
	f.RemainingBudget -= price
	f.PlayersCount++
	f.UpdatedAt = r.clock.Now()
	r.franchises[id] = f
	return nil
}

func (r *FranchiseRepository) RevertSale(ctx context.Context, id string, price int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.franchises[id]
	if !ok {
		return fmt.Errorf("franchise %s not found", id)
	}
	f.RemainingBudget += price
	f.PlayersCount--
	f.UpdatedAt = r.clock.Now()
	r.franchises[id] = f
	return nil
}

func (r *FranchiseRepository) ResetBudgets(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.clock.Now()
	for id, f := range r.franchises {
		f.RemainingBudget = f.InitialBudget
		f.PlayersCount = 0
		f.UpdatedAt = now
		r.franchises[id] = f
	}
	return nil
}

// EventStore keeps audit events in an append-only slice.
type EventStore struct {
	mu     sync.Mutex
	events []event.Event
	nextID int
	clock  clockwork.Clock
}

// NewEventStore creates an empty in-memory event store.
func NewEventStore(clk clockwork.Clock) *EventStore {
	return &EventStore{clock: clk}
}

func (s *EventStore) Append(ctx context.Context, events ...event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	for _, e := range events {
		s.nextID++
		e.ID = fmt.Sprintf("%d", s.nextID)
		e.CreatedAt = now
		s.events = append(s.events, e)
	}
	return nil
}

func (s *EventStore) Load(ctx context.Context, aggregateID string) ([]event.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []event.Event
	for _, e := range s.events {
		if e.AggregateID == aggregateID {
			out = append(out, e)
		}
	}
	return out, nil
}
