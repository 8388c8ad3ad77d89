package auction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kameshai/premier-auction/internal/config"
	"github.com/kameshai/premier-auction/internal/event"
	"github.com/kameshai/premier-auction/internal/scout"
	"github.com/kameshai/premier-auction/internal/store"
)

// Errors returned by engine operations.
var (
	ErrNotReady          = errors.New("auction data is still loading")
	ErrNoAuction         = errors.New("no auction in progress")
	ErrNoBidder          = errors.New("select a franchise before confirming the sale")
	ErrPlayerNotFound    = errors.New("id not recognized or player already sold")
	ErrFranchiseNotFound = errors.New("franchise not found")
	ErrNotOnRoster       = errors.New("player is not on this franchise's roster")
	ErrBidderIneligible  = errors.New("highest bidder can no longer cover the bid or has a full roster")
	ErrInvalidInput      = errors.New("invalid input")
)

// Franchise is the working, reconciled view of a franchise: the stored
// record joined with its roster, with the budget recomputed from the
// roster rather than read from the remote mirror.
type Franchise struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Logo          string         `json:"logo"`
	Color         string         `json:"color"`
	InitialBudget int            `json:"initialBudget"`
	Budget        int            `json:"budget"`
	Players       []store.Player `json:"players"`
}

// Engine owns the full application state: the player catalog, the
// franchise rosters and the single auction session. Every mutation is
// mirrored to the persistence gateway before local state is updated, so
// a failed remote write leaves local state untouched.
type Engine struct {
	mu         sync.RWMutex
	franchises []*Franchise
	players    []*store.Player
	session    *session
	ready      bool

	cfg        config.AuctionConfig
	playerRepo store.PlayerRepository
	franchRepo store.FranchiseRepository
	events     event.Store
	scout      scout.Reporter
	logger     *slog.Logger
	tracer     trace.Tracer
	clock      clockwork.Clock
}

// NewEngine creates a new Engine. Load must be called before the engine
// is ready to serve state.
func NewEngine(
	cfg config.AuctionConfig,
	players store.PlayerRepository,
	franchises store.FranchiseRepository,
	events event.Store,
	reporter scout.Reporter,
	logger *slog.Logger,
	tp trace.TracerProvider,
	clk clockwork.Clock,
) *Engine {
	return &Engine{
		session:    newSession(),
		cfg:        cfg,
		playerRepo: players,
		franchRepo: franchises,
		events:     events,
		scout:      reporter,
		logger:     logger,
		tracer:     tp.Tracer("github.com/kameshai/premier-auction/internal/auction"),
		clock:      clk,
	}
}

// Load fetches the player catalog and franchise list from the
// persistence gateway and reconstructs each franchise's roster and
// budget from the catalog. The stored remaining-budget mirror is
// distrusted and overwritten. The engine reports ready only after both
// fetches have resolved.
func (e *Engine) Load(ctx context.Context) error {
	ctx, span := e.tracer.Start(ctx, "Engine.Load")
	defer span.End()

	players, err := e.playerRepo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading players: %w", err)
	}
	records, err := e.franchRepo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading franchises: %w", err)
	}

	franchises := make([]*Franchise, 0, len(records))
	for _, rec := range records {
		f := &Franchise{
			ID:            rec.ID,
			Name:          rec.Name,
			Logo:          rec.Logo,
			Color:         rec.Color,
			InitialBudget: rec.InitialBudget,
			Budget:        rec.InitialBudget,
			Players:       []store.Player{},
		}
		for _, p := range players {
			if p.IsSold && p.SoldToID != nil && *p.SoldToID == rec.ID {
				f.Players = append(f.Players, p)
				if p.SoldPrice != nil {
					f.Budget -= *p.SoldPrice
				}
			}
		}
		franchises = append(franchises, f)
	}

	e.mu.Lock()
	e.players = make([]*store.Player, 0, len(players))
	for i := range players {
		p := players[i]
		e.players = append(e.players, &p)
	}
	e.franchises = franchises
	e.ready = true
	e.mu.Unlock()

	e.logger.InfoContext(ctx, "auction state loaded",
		slog.Int("players", len(players)),
		slog.Int("franchises", len(franchises)),
	)
	return nil
}

// Ready reports whether load-time reconciliation has completed.
func (e *Engine) Ready() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ready
}

// Franchises returns a copy of the reconciled franchise list.
func (e *Engine) Franchises() []Franchise {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Franchise, 0, len(e.franchises))
	for _, f := range e.franchises {
		cp := *f
		cp.Players = append([]store.Player(nil), f.Players...)
		out = append(out, cp)
	}
	return out
}

// Players returns a copy of the player catalog.
func (e *Engine) Players() []store.Player {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]store.Player, 0, len(e.players))
	for _, p := range e.players {
		out = append(out, *p)
	}
	return out
}

// Session returns a snapshot of the current auction session.
func (e *Engine) Session() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.session.snapshot()
}

// StartAuction puts a player up for bid. The id match is exact but
// case-insensitive and considers unsold players only; selecting a sold
// or unknown id returns ErrPlayerNotFound with no state change. The
// scout report is fetched asynchronously and never blocks bidding.
func (e *Engine) StartAuction(ctx context.Context, playerID string) (Snapshot, error) {
	ctx, span := e.tracer.Start(ctx, "Engine.StartAuction",
		trace.WithAttributes(attribute.String("player.id", playerID)),
	)
	defer span.End()

	want := strings.ToLower(strings.TrimSpace(playerID))

	e.mu.Lock()
	var found *store.Player
	for _, p := range e.players {
		if !p.IsSold && strings.ToLower(p.ID) == want {
			found = p
			break
		}
	}
	if found == nil {
		snap := e.session.snapshot()
		e.mu.Unlock()
		return snap, ErrPlayerNotFound
	}

	e.session.start(found, scout.PendingReport)
	epoch := e.session.epoch
	player := *found
	snap := e.session.snapshot()
	e.mu.Unlock()

	go e.fetchScoutReport(player, epoch)

	e.logger.InfoContext(ctx, "auction started",
		slog.String("player_id", player.ID),
		slog.String("player", player.Name),
		slog.Int("base_price", player.BasePrice),
	)
	return snap, nil
}

func (e *Engine) fetchScoutReport(p store.Player, epoch uint64) {
	report, err := e.scout.Report(context.Background(), p)
	if err != nil {
		e.logger.Warn("scout report unavailable, using fallback",
			slog.String("player_id", p.ID),
			slog.Any("error", err),
		)
		report = scout.FallbackReport
	}

	e.mu.Lock()
	if e.session.epoch == epoch {
		e.session.scoutReport = report
	}
	e.mu.Unlock()
}

// RaiseBid bumps the current bid by the configured step.
func (e *Engine) RaiseBid(ctx context.Context) Snapshot {
	_, span := e.tracer.Start(ctx, "Engine.RaiseBid")
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()
	e.session.raise(e.cfg.BidStep)
	return e.session.snapshot()
}

// LowerBid drops the current bid by the configured step; it refuses to
// go below the player's base price.
func (e *Engine) LowerBid(ctx context.Context) Snapshot {
	_, span := e.tracer.Start(ctx, "Engine.LowerBid")
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()
	e.session.lower(e.cfg.BidStep)
	return e.session.snapshot()
}

// SelectBidder marks a franchise as the highest bidder, replacing any
// previous selection. The selection is silently ignored when the
// franchise is unknown, its roster is full, or its budget cannot cover
// the current bid.
func (e *Engine) SelectBidder(ctx context.Context, franchiseID string) Snapshot {
	_, span := e.tracer.Start(ctx, "Engine.SelectBidder",
		trace.WithAttributes(attribute.String("franchise.id", franchiseID)),
	)
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()

	f := e.franchiseByID(franchiseID)
	if f == nil {
		return e.session.snapshot()
	}
	if len(f.Players) >= e.cfg.RosterCap {
		return e.session.snapshot()
	}
	if f.Budget < e.session.currentBid {
		return e.session.snapshot()
	}
	e.session.selectBidder(franchiseID)
	return e.session.snapshot()
}

// ConfirmSale commits the sale to the highest bidder. Both remote
// mutations (player sold-state, franchise budget and roster) happen
// before any local state changes; a remote failure aborts the commit
// with local state untouched. On success the session flips to SOLD and
// resets to IDLE after the configured delay.
func (e *Engine) ConfirmSale(ctx context.Context) (Snapshot, error) {
	ctx, span := e.tracer.Start(ctx, "Engine.ConfirmSale")
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.session
	if s.status != StatusBidding || s.player == nil {
		return s.snapshot(), ErrNoAuction
	}
	if s.highestBidderID == "" {
		return s.snapshot(), ErrNoBidder
	}

	winner := e.franchiseByID(s.highestBidderID)
	if winner == nil {
		return s.snapshot(), ErrFranchiseNotFound
	}
	price := s.currentBid

	// Eligibility is checked again: the bid may have risen since the
	// bidder was selected.
	if len(winner.Players) >= e.cfg.RosterCap || winner.Budget < price {
		return s.snapshot(), ErrBidderIneligible
	}

	sale := store.Sale{
		FranchiseID:   winner.ID,
		FranchiseName: winner.Name,
		Price:         price,
	}
	if err := e.playerRepo.MarkSold(ctx, s.player.ID, sale); err != nil {
		return s.snapshot(), fmt.Errorf("persisting sale: %w", err)
	}
	if err := e.franchRepo.ApplySale(ctx, winner.ID, price); err != nil {
		return s.snapshot(), fmt.Errorf("updating franchise after sale: %w", err)
	}

	p := e.playerByID(s.player.ID)
	if p != nil {
		soldTo := winner.ID
		soldToName := winner.Name
		soldPrice := price
		p.IsSold = true
		p.SoldToID = &soldTo
		p.SoldToName = &soldToName
		p.SoldPrice = &soldPrice
		winner.Budget -= price
		winner.Players = append(winner.Players, *p)
	}

	s.markSold()
	epoch := s.epoch
	e.clock.AfterFunc(e.cfg.SoldResetDelay, func() {
		e.resetAfterSold(epoch)
	})

	e.appendAudit(ctx, event.Event{
		AggregateID: s.player.ID,
		Type:        event.PlayerSold,
		Data: mustJSON(event.PlayerSoldData{
			FranchiseID:   winner.ID,
			FranchiseName: winner.Name,
			Price:         price,
		}),
	})

	e.logger.InfoContext(ctx, "player sold",
		slog.String("player_id", s.player.ID),
		slog.String("franchise_id", winner.ID),
		slog.Int("price", price),
	)
	return s.snapshot(), nil
}

// resetAfterSold returns the session to IDLE once the SOLD display
// delay elapses, unless a new session has started in the meantime.
func (e *Engine) resetAfterSold(epoch uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session.epoch == epoch && e.session.status == StatusSold {
		e.session.reset()
	}
}

// ReleasePlayer reverses a committed sale: the player returns to the
// unsold pool and the franchise's budget is restored by the recorded
// sold price. Remote mutations happen first; local roster, budget and
// catalog updates apply together only after both succeed.
func (e *Engine) ReleasePlayer(ctx context.Context, franchiseID, playerID string) error {
	ctx, span := e.tracer.Start(ctx, "Engine.ReleasePlayer",
		trace.WithAttributes(
			attribute.String("franchise.id", franchiseID),
			attribute.String("player.id", playerID),
		),
	)
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()

	f := e.franchiseByID(franchiseID)
	if f == nil {
		return ErrFranchiseNotFound
	}
	idx := -1
	for i, p := range f.Players {
		if p.ID == playerID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrNotOnRoster
	}

	refund := 0
	if f.Players[idx].SoldPrice != nil {
		refund = *f.Players[idx].SoldPrice
	}

	if err := e.franchRepo.RevertSale(ctx, franchiseID, refund); err != nil {
		return fmt.Errorf("reverting franchise sale: %w", err)
	}
	if err := e.playerRepo.ClearSale(ctx, playerID); err != nil {
		return fmt.Errorf("clearing player sale: %w", err)
	}

	f.Budget += refund
	f.Players = append(f.Players[:idx], f.Players[idx+1:]...)
	if p := e.playerByID(playerID); p != nil {
		p.IsSold = false
		p.SoldToID = nil
		p.SoldToName = nil
		p.SoldPrice = nil
	}

	e.appendAudit(ctx, event.Event{
		AggregateID: playerID,
		Type:        event.PlayerReleased,
		Data: mustJSON(event.PlayerReleasedData{
			FranchiseID: franchiseID,
			Refund:      refund,
		}),
	})

	e.logger.InfoContext(ctx, "player released",
		slog.String("player_id", playerID),
		slog.String("franchise_id", franchiseID),
		slog.Int("refund", refund),
	)
	return nil
}

// RegisterPlayer validates and stores a new catalog entry. The image
// URL must already exist: uploads happen before the create is attempted
// so a failed upload blocks the player entirely.
func (e *Engine) RegisterPlayer(ctx context.Context, p store.Player) (store.Player, error) {
	ctx, span := e.tracer.Start(ctx, "Engine.RegisterPlayer",
		trace.WithAttributes(attribute.String("player.id", p.ID)),
	)
	defer span.End()

	if p.ID == "" || p.Name == "" || p.Club == "" || p.Type == "" {
		return store.Player{}, fmt.Errorf("%w: id, name, club and type are required", ErrInvalidInput)
	}
	if !store.ValidPlayerType(p.Type) {
		return store.Player{}, fmt.Errorf("%w: unknown player type %q", ErrInvalidInput, p.Type)
	}
	if p.Image == "" {
		return store.Player{}, fmt.Errorf("%w: player image is required", ErrInvalidInput)
	}
	if p.BasePrice <= 0 {
		p.BasePrice = e.cfg.DefaultBasePrice
	}
	if p.Rating <= 0 {
		p.Rating = 80
	}
	p.IsSold = false
	p.SoldToID = nil
	p.SoldToName = nil
	p.SoldPrice = nil

	e.mu.Lock()
	defer e.mu.Unlock()

	// A sold player's id cannot be reused: overwriting it would strip
	// the sale while the winning franchise still carries the roster
	// entry and the spent budget. Release the player first.
	if existing := e.playerByID(p.ID); existing != nil && existing.IsSold {
		return store.Player{}, fmt.Errorf("%w: player %s is on a roster; release it before re-registering", ErrInvalidInput, p.ID)
	}

	if err := e.playerRepo.Put(ctx, &p); err != nil {
		return store.Player{}, fmt.Errorf("creating player: %w", err)
	}

	replaced := false
	for i, existing := range e.players {
		if existing.ID == p.ID {
			cp := p
			e.players[i] = &cp
			replaced = true
			break
		}
	}
	if !replaced {
		cp := p
		e.players = append(e.players, &cp)
	}

	e.appendAudit(ctx, event.Event{
		AggregateID: p.ID,
		Type:        event.PlayerRegistered,
		Data: mustJSON(event.PlayerRegisteredData{
			Name:      p.Name,
			Club:      p.Club,
			Type:      p.Type,
			BasePrice: p.BasePrice,
		}),
	})

	e.logger.InfoContext(ctx, "player registered",
		slog.String("player_id", p.ID),
		slog.String("player", p.Name),
	)
	return p, nil
}

// NewFranchiseID derives a fresh franchise id from the clock. Callers
// that upload a logo keyed by franchise id use this before registering.
func (e *Engine) NewFranchiseID() string {
	return fmt.Sprintf("t%d", e.clock.Now().UnixMilli())
}

// RegisterFranchise validates and stores a new franchise. An empty id
// gets a clock-derived one. The logo URL must already exist for the
// same reason as player images.
func (e *Engine) RegisterFranchise(ctx context.Context, id, name string, budget int, color, logo string) (Franchise, error) {
	ctx, span := e.tracer.Start(ctx, "Engine.RegisterFranchise",
		trace.WithAttributes(attribute.String("franchise.name", name)),
	)
	defer span.End()

	if name == "" {
		return Franchise{}, fmt.Errorf("%w: franchise name is required", ErrInvalidInput)
	}
	if logo == "" {
		return Franchise{}, fmt.Errorf("%w: franchise logo is required", ErrInvalidInput)
	}
	if budget <= 0 {
		budget = e.cfg.DefaultBudget
	}
	if id == "" {
		id = e.NewFranchiseID()
	}

	rec := &store.Franchise{
		ID:              id,
		Name:            name,
		Logo:            logo,
		Color:           color,
		InitialBudget:   budget,
		RemainingBudget: budget,
	}
	if err := e.franchRepo.Put(ctx, rec); err != nil {
		return Franchise{}, fmt.Errorf("creating franchise: %w", err)
	}

	f := &Franchise{
		ID:            rec.ID,
		Name:          rec.Name,
		Logo:          rec.Logo,
		Color:         rec.Color,
		InitialBudget: budget,
		Budget:        budget,
		Players:       []store.Player{},
	}
	e.mu.Lock()
	e.franchises = append(e.franchises, f)
	e.mu.Unlock()

	e.appendAudit(ctx, event.Event{
		AggregateID: rec.ID,
		Type:        event.FranchiseRegistered,
		Data: mustJSON(event.FranchiseRegisteredData{
			Name:          name,
			InitialBudget: budget,
		}),
	})

	e.logger.InfoContext(ctx, "franchise registered",
		slog.String("franchise_id", rec.ID),
		slog.String("franchise", name),
		slog.Int("budget", budget),
	)
	return *f, nil
}

// DeletePlayer removes a player from the catalog, remotely first.
func (e *Engine) DeletePlayer(ctx context.Context, id string) error {
	ctx, span := e.tracer.Start(ctx, "Engine.DeletePlayer",
		trace.WithAttributes(attribute.String("player.id", id)),
	)
	defer span.End()

	if err := e.playerRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting player: %w", err)
	}

	e.mu.Lock()
	for i, p := range e.players {
		if p.ID == id {
			e.players = append(e.players[:i], e.players[i+1:]...)
			break
		}
	}
	e.mu.Unlock()

	e.appendAudit(ctx, event.Event{AggregateID: id, Type: event.PlayerDeleted, Data: json.RawMessage(`{}`)})
	return nil
}

// DeleteFranchise removes a franchise, remotely first.
func (e *Engine) DeleteFranchise(ctx context.Context, id string) error {
	ctx, span := e.tracer.Start(ctx, "Engine.DeleteFranchise",
		trace.WithAttributes(attribute.String("franchise.id", id)),
	)
	defer span.End()

	if err := e.franchRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting franchise: %w", err)
	}

	e.mu.Lock()
	for i, f := range e.franchises {
		if f.ID == id {
			e.franchises = append(e.franchises[:i], e.franchises[i+1:]...)
			break
		}
	}
	e.mu.Unlock()

	e.appendAudit(ctx, event.Event{AggregateID: id, Type: event.FranchiseDeleted, Data: json.RawMessage(`{}`)})
	return nil
}

// ResetAll clears every sale and restores every budget, remotely first,
// then rebuilds local state and returns the session to IDLE.
func (e *Engine) ResetAll(ctx context.Context) error {
	ctx, span := e.tracer.Start(ctx, "Engine.ResetAll")
	defer span.End()

	if err := e.playerRepo.ResetSales(ctx); err != nil {
		return fmt.Errorf("resetting player sales: %w", err)
	}
	if err := e.franchRepo.ResetBudgets(ctx); err != nil {
		return fmt.Errorf("resetting franchise budgets: %w", err)
	}

	e.mu.Lock()
	for _, p := range e.players {
		p.IsSold = false
		p.SoldToID = nil
		p.SoldToName = nil
		p.SoldPrice = nil
	}
	for _, f := range e.franchises {
		f.Budget = f.InitialBudget
		f.Players = []store.Player{}
	}
	e.session.reset()
	e.mu.Unlock()

	e.appendAudit(ctx, event.Event{AggregateID: "auction", Type: event.AuctionReset, Data: json.RawMessage(`{}`)})

	e.logger.InfoContext(ctx, "auction reset")
	return nil
}

// franchiseByID must be called with the lock held.
func (e *Engine) franchiseByID(id string) *Franchise {
	for _, f := range e.franchises {
		if f.ID == id {
			return f
		}
	}
	return nil
}

// playerByID must be called with the lock held.
func (e *Engine) playerByID(id string) *store.Player {
	for _, p := range e.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// appendAudit records an audit event. Audit failures are logged, never
// surfaced: the sale itself has already committed.
func (e *Engine) appendAudit(ctx context.Context, evt event.Event) {
	if e.events == nil {
		return
	}
	if err := e.events.Append(ctx, evt); err != nil {
		e.logger.ErrorContext(ctx, "failed to append audit event",
			slog.String("type", string(evt.Type)),
			slog.Any("error", err),
		)
	}
}

func mustJSON(v any) json.RawMessage {
	data, _ := json.Marshal(v)
	return data
}
