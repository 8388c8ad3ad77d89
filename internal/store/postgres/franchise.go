package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/jonboulle/clockwork"

	"github.com/kameshai/premier-auction/internal/store"
)

// FranchiseRepo implements store.FranchiseRepository with sqlx.
type FranchiseRepo struct {
	db    *sqlx.DB
	clock clockwork.Clock
}

// NewFranchiseRepo returns a new FranchiseRepo.
func NewFranchiseRepo(db *sqlx.DB, clk clockwork.Clock) *FranchiseRepo {
	return &FranchiseRepo{db: db, clock: clk}
}

func (r *FranchiseRepo) Put(ctx context.Context, f *store.Franchise) error {
	query := `INSERT INTO franchises (id, name, logo_url, color, initial_budget, remaining_budget, players_count, created_at, updated_at)
	           VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
	           ON CONFLICT (id) DO UPDATE SET
	             name = EXCLUDED.name,
	             logo_url = EXCLUDED.logo_url,
	             color = EXCLUDED.color,
	             initial_budget = EXCLUDED.initial_budget,
	             remaining_budget = EXCLUDED.remaining_budget,
	             players_count = EXCLUDED.players_count,
	             updated_at = EXCLUDED.updated_at`
	now := r.clock.Now().UTC()
	f.CreatedAt = now
	f.UpdatedAt = now
	_, err := r.db.ExecContext(ctx, query,
		f.ID, f.Name, f.Logo, f.Color, f.InitialBudget, f.RemainingBudget, f.PlayersCount, now,
	)
	if err != nil {
		return fmt.Errorf("upserting franchise: %w", err)
	}
	return nil
}

func (r *FranchiseRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM franchises WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting franchise: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("franchise %s not found", id)
	}
	return nil
}

func (r *FranchiseRepo) List(ctx context.Context) ([]store.Franchise, error) {
	var franchises []store.Franchise
	err := r.db.SelectContext(ctx, &franchises, `SELECT * FROM franchises ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing franchises: %w", err)
	}
	return franchises, nil
}

func (r *FranchiseRepo) ApplySale(ctx context.Context, id string, price int) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE franchises SET remaining_budget = remaining_budget - $1, players_count = players_count + 1, updated_at = $2 WHERE id = $3`,
		price, r.clock.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("applying sale: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("franchise %s not found", id)
	}
	return nil
}

func (r *FranchiseRepo) RevertSale(ctx context.Context, id string, price int) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE franchises SET remaining_budget = remaining_budget + $1, players_count = players_count - 1, updated_at = $2 WHERE id = $3`,
		price, r.clock.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("reverting sale: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("franchise %s not found", id)
	}
	return nil
}

func (r *FranchiseRepo) ResetBudgets(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE franchises SET remaining_budget = initial_budget, players_count = 0, updated_at = $1`,
		r.clock.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("resetting budgets: %w", err)
	}
	return nil
}
