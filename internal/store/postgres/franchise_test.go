package postgres_test

import (
	"context"
	"testing"

	"github.com/jonboulle/clockwork"

	"github.com/kameshai/premier-auction/internal/store"
	"github.com/kameshai/premier-auction/internal/store/postgres"
)

func seedFranchise(t *testing.T, repo *postgres.FranchiseRepo, id, name string) {
	t.Helper()
	err := repo.Put(context.Background(), &store.Franchise{
		ID: id, Name: name, Logo: "/media/teams/" + id + ".png", Color: "#ff0000",
		InitialBudget: 6000, RemainingBudget: 6000,
	})
	if err != nil {
		t.Fatalf("seeding franchise %s: %v", id, err)
	}
}

func TestFranchiseRepoSaleBookkeeping(t *testing.T) {
	db := newTestDB(t)
	repo := postgres.NewFranchiseRepo(db, clockwork.NewRealClock())
	ctx := context.Background()

	seedFranchise(t, repo, "t1", "Falcons")

	if err := repo.ApplySale(ctx, "t1", 150); err != nil {
		t.Fatalf("ApplySale returned error: %v", err)
	}
	franchises, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	f := franchises[0]
	if f.RemainingBudget != 5850 || f.PlayersCount != 1 {
		t.Errorf("expected budget 5850 and count 1, got %d/%d", f.RemainingBudget, f.PlayersCount)
	}

	if err := repo.RevertSale(ctx, "t1", 150); err != nil {
		t.Fatalf("RevertSale returned error: %v", err)
	}
	franchises, _ = repo.List(ctx)
	f = franchises[0]
	if f.RemainingBudget != 6000 || f.PlayersCount != 0 {
		t.Errorf("expected budget 6000 and count 0 after revert, got %d/%d", f.RemainingBudget, f.PlayersCount)
	}

	if err := repo.ApplySale(ctx, "t999", 1); err == nil {
		t.Error("expected error applying sale to unknown franchise")
	}
}

func TestFranchiseRepoResetBudgets(t *testing.T) {
	db := newTestDB(t)
	repo := postgres.NewFranchiseRepo(db, clockwork.NewRealClock())
	ctx := context.Background()

	seedFranchise(t, repo, "t1", "Falcons")
	seedFranchise(t, repo, "t2", "Sharks")
	if err := repo.ApplySale(ctx, "t1", 500); err != nil {
		t.Fatalf("ApplySale returned error: %v", err)
	}

	if err := repo.ResetBudgets(ctx); err != nil {
		t.Fatalf("ResetBudgets returned error: %v", err)
	}
	franchises, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	for _, f := range franchises {
		if f.RemainingBudget != f.InitialBudget || f.PlayersCount != 0 {
			t.Errorf("franchise %s not reset: %+v", f.ID, f)
		}
	}
}

func TestFranchiseRepoDelete(t *testing.T) {
	db := newTestDB(t)
	repo := postgres.NewFranchiseRepo(db, clockwork.NewRealClock())
	ctx := context.Background()

	seedFranchise(t, repo, "t1", "Falcons")
	if err := repo.Delete(ctx, "t1"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if err := repo.Delete(ctx, "t1"); err == nil {
		t.Error("expected error deleting missing franchise")
	}
}
