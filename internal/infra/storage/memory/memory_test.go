package memory

import (
	"context"
	"testing"
	"time"

	"github.com/vietddude/mailsift/internal/core/domain"
)

func TestResultRepoUpsert(t *testing.T) {
	repo := NewResultRepo(NewMemoryStorage())
	ctx := context.Background()

	item := domain.Item{ExternalID: "m1", Sender: "a@b.c", Subject: "hi"}
	hash := item.ContentHash()

	first := domain.Result{Category: domain.CategoryWork, Priority: domain.PriorityHigh, Source: "provider:x"}
	if err := repo.Save(ctx, hash, item, &first); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	second := domain.Result{Category: domain.CategorySpam, Priority: domain.PriorityLow, Source: "rule"}
	if err := repo.Save(ctx, hash, item, &second); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := repo.GetByHash(ctx, hash)
	if err != nil {
		t.Fatalf("GetByHash failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected a stored result")
	}
	if got.Category != domain.CategorySpam {
		t.Errorf("category = %s, want spam (upsert replaces)", got.Category)
	}
}

func TestResultRepoMiss(t *testing.T) {
	repo := NewResultRepo(NewMemoryStorage())

	got, err := repo.GetByHash(context.Background(), "nope")
	if err != nil {
		t.Fatalf("GetByHash failed: %v", err)
	}
	if got != nil {
		t.Error("expected nil on miss")
	}
}

func TestResultRepoStats(t *testing.T) {
	store := NewMemoryStorage()
	repo := NewResultRepo(store)
	ctx := context.Background()

	save := func(id string, cat domain.Category, prio domain.Priority) {
		item := domain.Item{ExternalID: id, Sender: "a@b.c", Subject: id}
		r := domain.Result{Category: cat, Priority: prio}
		if err := repo.Save(ctx, item.ContentHash(), item, &r); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}
	save("1", domain.CategoryWork, domain.PriorityHigh)
	save("2", domain.CategoryWork, domain.PriorityLow)
	save("3", domain.CategorySpam, domain.PriorityLow)

	stats, err := repo.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Total != 3 {
		t.Errorf("total = %d, want 3", stats.Total)
	}
	if stats.ByCategory["work"] != 2 {
		t.Errorf("work = %d, want 2", stats.ByCategory["work"])
	}
	if stats.ByPriority["low"] != 2 {
		t.Errorf("low = %d, want 2", stats.ByPriority["low"])
	}
	if stats.DistinctCategories != 2 {
		t.Errorf("distinct = %d, want 2", stats.DistinctCategories)
	}
}

func TestOverrideRepoLastWriteWins(t *testing.T) {
	repo := NewOverrideRepo(NewMemoryStorage())
	ctx := context.Background()

	if err := repo.Upsert(ctx, &domain.Override{ItemID: "i1", UserID: "u1", Category: domain.CategoryWork}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := repo.Upsert(ctx, &domain.Override{ItemID: "i1", UserID: "u1", Category: domain.CategorySpam}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	got, err := repo.Get(ctx, "i1", "u1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got == nil || got.Category != domain.CategorySpam {
		t.Error("last write must win per (item, user)")
	}

	// Different user pair is untouched.
	other, err := repo.Get(ctx, "i1", "u2")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if other != nil {
		t.Error("override leaked across users")
	}
}

func TestOverrideRepoDelete(t *testing.T) {
	repo := NewOverrideRepo(NewMemoryStorage())
	ctx := context.Background()

	if err := repo.Upsert(ctx, &domain.Override{ItemID: "i1", UserID: "u1", Category: domain.CategoryWork}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := repo.Delete(ctx, "i1", "u1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	got, err := repo.Get(ctx, "i1", "u1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != nil {
		t.Error("override still present after delete")
	}
}

func TestOverrideRepoDeleteExpired(t *testing.T) {
	repo := NewOverrideRepo(NewMemoryStorage())
	ctx := context.Background()

	old := &domain.Override{
		ItemID: "old", UserID: "u1", Category: domain.CategoryWork,
		CreatedAt: time.Now().Add(-40 * 24 * time.Hour),
	}
	fresh := &domain.Override{
		ItemID: "fresh", UserID: "u1", Category: domain.CategoryWork,
		CreatedAt: time.Now(),
	}
	if err := repo.Upsert(ctx, old); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := repo.Upsert(ctx, fresh); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	deleted, err := repo.DeleteExpired(ctx, time.Now().Add(-domain.OverrideRetention))
	if err != nil {
		t.Fatalf("DeleteExpired failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}

	if got, _ := repo.Get(ctx, "fresh", "u1"); got == nil {
		t.Error("fresh override must survive pruning")
	}
	if got, _ := repo.Get(ctx, "old", "u1"); got != nil {
		t.Error("expired override must be pruned")
	}
}
