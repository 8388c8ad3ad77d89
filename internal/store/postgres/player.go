package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/jonboulle/clockwork"

	"github.com/kameshai/premier-auction/internal/store"
)

// PlayerRepo implements store.PlayerRepository with sqlx.
type PlayerRepo struct {
	db    *sqlx.DB
	clock clockwork.Clock
}

// NewPlayerRepo returns a new PlayerRepo.
func NewPlayerRepo(db *sqlx.DB, clk clockwork.Clock) *PlayerRepo {
	return &PlayerRepo{db: db, clock: clk}
}

func (r *PlayerRepo) Put(ctx context.Context, p *store.Player) error {
	query := `INSERT INTO players (id, name, club, type, base_price, rating, image_url, is_sold, sold_to_id, sold_to_name, sold_price, created_at, updated_at)
	           VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)
	           ON CONFLICT (id) DO UPDATE SET
	             name = EXCLUDED.name,
	             club = EXCLUDED.club,
	             type = EXCLUDED.type,
	             base_price = EXCLUDED.base_price,
	             rating = EXCLUDED.rating,
	             image_url = EXCLUDED.image_url,
	             is_sold = EXCLUDED.is_sold,
	             sold_to_id = EXCLUDED.sold_to_id,
	             sold_to_name = EXCLUDED.sold_to_name,
	             sold_price = EXCLUDED.sold_price,
	             updated_at = EXCLUDED.updated_at`
	now := r.clock.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.Name, p.Club, p.Type, p.BasePrice, p.Rating, p.Image,
		p.IsSold, p.SoldToID, p.SoldToName, p.SoldPrice, now,
	)
	if err != nil {
		return fmt.Errorf("upserting player: %w", err)
	}
	return nil
}

func (r *PlayerRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM players WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting player: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("player %s not found", id)
	}
	return nil
}

func (r *PlayerRepo) List(ctx context.Context) ([]store.Player, error) {
	var players []store.Player
	err := r.db.SelectContext(ctx, &players, `SELECT * FROM players ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing players: %w", err)
	}
	return players, nil
}

func (r *PlayerRepo) MarkSold(ctx context.Context, id string, sale store.Sale) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE players SET is_sold = TRUE, sold_to_id = $1, sold_to_name = $2, sold_price = $3, updated_at = $4 WHERE id = $5`,
		sale.FranchiseID, sale.FranchiseName, sale.Price, r.clock.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("marking player sold: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("player %s not found", id)
	}
	return nil
}

func (r *PlayerRepo) ClearSale(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE players SET is_sold = FALSE, sold_to_id = NULL, sold_to_name = NULL, sold_price = NULL, updated_at = $1 WHERE id = $2`,
		r.clock.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("clearing player sale: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("player %s not found", id)
	}
	return nil
}

func (r *PlayerRepo) ResetSales(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE players SET is_sold = FALSE, sold_to_id = NULL, sold_to_name = NULL, sold_price = NULL, updated_at = $1`,
		r.clock.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("resetting player sales: %w", err)
	}
	return nil
}
