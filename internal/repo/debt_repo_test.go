package repo

import (
	"context"
	"testing"
	"time"

	"github.com/jmfuentes/tallyup/internal/domain"
)

func TestUpsertClient_CaseInsensitive(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	a, err := UpsertClient(ctx, db, "+1", "Maria")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	b, err := UpsertClient(ctx, db, "+1", "  maria ")
	if err != nil {
		t.Fatalf("re-upsert: %v", err)
	}
	if a.ID != b.ID {
		t.Fatalf("casing variants created distinct clients")
	}
	// Same name under another owner is a different client.
	c, err := UpsertClient(ctx, db, "+2", "maria")
	if err != nil {
		t.Fatal(err)
	}
	if c.ID == a.ID {
		t.Fatalf("client leaked across owners")
	}
}

func TestSetClientPhone(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	c, err := UpsertClient(ctx, db, "+1", "maria")
	if err != nil {
		t.Fatal(err)
	}
	if err := SetClientPhone(ctx, db, "+1", c.ID, " +50688881234 "); err != nil {
		t.Fatalf("set phone: %v", err)
	}
	got, err := GetClientByName(ctx, db, "+1", "maria")
	if err != nil {
		t.Fatal(err)
	}
	if got.Phone != "+50688881234" {
		t.Fatalf("phone = %q", got.Phone)
	}
	if err := SetClientPhone(ctx, db, "+2", c.ID, "x"); err != ErrNotFound {
		t.Fatalf("cross-owner update err = %v; want ErrNotFound", err)
	}
}

func TestDebtLifecycle(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	c, err := UpsertClient(ctx, db, "+1", "maria")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := CreateDebt(ctx, db, "+1", c.ID, 50, "groceries"); err != nil {
		t.Fatalf("create debt: %v", err)
	}
	if _, err := CreateDebt(ctx, db, "+1", c.ID, 25.50, ""); err != nil {
		t.Fatal(err)
	}

	total, count, err := OpenDebtTotal(ctx, db, "+1", c.ID)
	if err != nil {
		t.Fatalf("total: %v", err)
	}
	if count != 2 || total != 75.50 {
		t.Fatalf("total=%v count=%d; want 75.50 / 2", total, count)
	}

	open, err := ListOpenDebts(ctx, db, "+1")
	if err != nil {
		t.Fatal(err)
	}
	if len(open) != 2 {
		t.Fatalf("open debts = %d; want 2", len(open))
	}
	if open[0].Client.Name != "maria" {
		t.Fatalf("client not preloaded")
	}

	closed, err := MarkDebtsPaid(ctx, db, "+1", c.ID)
	if err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if closed != 2 {
		t.Fatalf("closed = %d; want 2", closed)
	}
	total, count, err = OpenDebtTotal(ctx, db, "+1", c.ID)
	if err != nil || count != 0 || total != 0 {
		t.Fatalf("after settle: total=%v count=%d err=%v", total, count, err)
	}
	// Settling again closes nothing.
	closed, err = MarkDebtsPaid(ctx, db, "+1", c.ID)
	if err != nil || closed != 0 {
		t.Fatalf("re-settle: closed=%d err=%v", closed, err)
	}
}

func TestListOpenDebtsByAge_OldestFirst(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	c, err := UpsertClient(ctx, db, "+1", "maria")
	if err != nil {
		t.Fatal(err)
	}
	old, err := CreateDebt(ctx, db, "+1", c.ID, 10, "oldest")
	if err != nil {
		t.Fatal(err)
	}
	// Backdate the first debt so ordering does not depend on insert timing.
	if err := db.Model(&domain.Debt{}).
		Where("id = ?", old.ID).
		Update("created_at", time.Now().Add(-48*time.Hour)).Error; err != nil {
		t.Fatal(err)
	}
	if _, err := CreateDebt(ctx, db, "+1", c.ID, 20, "newest"); err != nil {
		t.Fatal(err)
	}

	got, err := ListOpenDebtsByAge(ctx, db, "+1", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != old.ID {
		t.Fatalf("oldest-first order broken")
	}
}
