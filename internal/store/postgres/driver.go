package postgres

import (
	"context"

	"github.com/jonboulle/clockwork"
	_ "github.com/lib/pq"

	"github.com/kameshai/premier-auction/internal/config"
	"github.com/kameshai/premier-auction/internal/store"
)

func init() {
	store.Register("postgres", open)
}

func open(ctx context.Context, cfg config.DatabaseConfig, clk clockwork.Clock) (*store.Repositories, error) {
	db, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &store.Repositories{
		Players:    NewPlayerRepo(db, clk),
		Franchises: NewFranchiseRepo(db, clk),
		Events:     NewEventStore(db),
		Closer:     db,
		Ping:       db.PingContext,
	}, nil
}
