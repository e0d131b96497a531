// internal/app/store/badges/badgestore_test.go
package badgestore_test

import (
	"errors"
	"testing"

	badgestore "github.com/scouthq/troophub/internal/app/store/badges"
	scoutstore "github.com/scouthq/troophub/internal/app/store/scouts"
	"github.com/scouthq/troophub/internal/domain/models"
	"github.com/scouthq/troophub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestCreateBadgeAndDuplicates(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := badgestore.New(db)
	b, err := store.CreateBadge(ctx, models.MeritBadge{
		Name:          " First Aid ",
		Category:      "Health",
		EagleRequired: true,
	})
	if err != nil {
		t.Fatalf("CreateBadge: %v", err)
	}
	if b.Name != "First Aid" {
		t.Errorf("name not trimmed: %q", b.Name)
	}
	if b.NameCI != "first aid" {
		t.Errorf("NameCI = %q, want %q", b.NameCI, "first aid")
	}

	if _, err := store.CreateBadge(ctx, models.MeritBadge{Name: "FIRST AID"}); !errors.Is(err, badgestore.ErrDuplicateBadge) {
		t.Errorf("err = %v, want ErrDuplicateBadge", err)
	}
}

func TestUpsertBadgeIsIdempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := badgestore.New(db)
	badge := models.MeritBadge{Name: "Camping", Category: "Outdoor", EagleRequired: true}
	for i := 0; i < 3; i++ {
		if err := store.UpsertBadge(ctx, badge); err != nil {
			t.Fatalf("UpsertBadge round %d: %v", i, err)
		}
	}

	n, err := store.CountCatalog(ctx)
	if err != nil {
		t.Fatalf("CountCatalog: %v", err)
	}
	if n != 1 {
		t.Errorf("catalog size = %d, want 1", n)
	}
}

func TestListCatalogFiltersByCategory(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := badgestore.New(db)
	seed := []models.MeritBadge{
		{Name: "Swimming", Category: "Aquatics"},
		{Name: "Cooking", Category: "Outdoor"},
		{Name: "Camping", Category: "Outdoor"},
	}
	for _, b := range seed {
		if _, err := store.CreateBadge(ctx, b); err != nil {
			t.Fatalf("seed %s: %v", b.Name, err)
		}
	}

	all, err := store.ListCatalog(ctx, "")
	if err != nil {
		t.Fatalf("ListCatalog: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d badges, want 3", len(all))
	}
	if all[0].Name != "Camping" {
		t.Errorf("expected name sort, first = %q", all[0].Name)
	}

	outdoor, err := store.ListCatalog(ctx, "Outdoor")
	if err != nil {
		t.Fatalf("ListCatalog outdoor: %v", err)
	}
	if len(outdoor) != 2 {
		t.Errorf("got %d outdoor badges, want 2", len(outdoor))
	}
}

func TestStartAndCompleteBadge(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	troop := fx.CreateTroop(ctx, "201", "Lakeside")
	scouts := scoutstore.New(db)
	sc, err := scouts.Create(ctx, models.Scout{TroopID: troop.ID, FirstName: "Rae", LastName: "Kim"})
	if err != nil {
		t.Fatalf("create scout: %v", err)
	}

	store := badgestore.New(db)
	badge, err := store.CreateBadge(ctx, models.MeritBadge{Name: "Swimming", Category: "Aquatics"})
	if err != nil {
		t.Fatalf("create badge: %v", err)
	}

	smb, err := store.StartBadge(ctx, sc.ID, badge.ID, nil)
	if err != nil {
		t.Fatalf("StartBadge: %v", err)
	}
	if smb.Status != models.BadgeInProgress {
		t.Errorf("status = %q, want %q", smb.Status, models.BadgeInProgress)
	}

	if _, err := store.StartBadge(ctx, sc.ID, badge.ID, nil); !errors.Is(err, badgestore.ErrAlreadyStarted) {
		t.Errorf("second start: err = %v, want ErrAlreadyStarted", err)
	}
	if _, err := store.StartBadge(ctx, primitive.NewObjectID(), badge.ID, nil); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("missing scout: err = %v, want ErrNoDocuments", err)
	}
	if _, err := store.StartBadge(ctx, sc.ID, primitive.NewObjectID(), nil); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("missing badge: err = %v, want ErrNoDocuments", err)
	}

	done, err := store.CompleteBadge(ctx, sc.ID, badge.ID)
	if err != nil {
		t.Fatalf("CompleteBadge: %v", err)
	}
	if done.Status != models.BadgeCompleted {
		t.Errorf("status = %q, want %q", done.Status, models.BadgeCompleted)
	}
	if done.CompletedAt == nil {
		t.Error("CompletedAt should be set")
	}

	if _, err := store.CompleteBadge(ctx, sc.ID, primitive.NewObjectID()); !errors.Is(err, badgestore.ErrNotStarted) {
		t.Errorf("unstarted badge: err = %v, want ErrNotStarted", err)
	}
}

func TestListForScout(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	troop := fx.CreateTroop(ctx, "202", "Hilltop")
	scouts := scoutstore.New(db)
	sc, err := scouts.Create(ctx, models.Scout{TroopID: troop.ID, FirstName: "Ben", LastName: "Ngo"})
	if err != nil {
		t.Fatalf("create scout: %v", err)
	}

	store := badgestore.New(db)
	camping, err := store.CreateBadge(ctx, models.MeritBadge{Name: "Camping", Category: "Outdoor"})
	if err != nil {
		t.Fatalf("create camping: %v", err)
	}
	cooking, err := store.CreateBadge(ctx, models.MeritBadge{Name: "Cooking", Category: "Outdoor"})
	if err != nil {
		t.Fatalf("create cooking: %v", err)
	}

	if _, err := store.StartBadge(ctx, sc.ID, camping.ID, nil); err != nil {
		t.Fatalf("start camping: %v", err)
	}
	if _, err := store.StartBadge(ctx, sc.ID, cooking.ID, nil); err != nil {
		t.Fatalf("start cooking: %v", err)
	}
	if _, err := store.CompleteBadge(ctx, sc.ID, camping.ID); err != nil {
		t.Fatalf("complete camping: %v", err)
	}

	rows, err := store.ListForScout(ctx, sc.ID)
	if err != nil {
		t.Fatalf("ListForScout: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	for _, row := range rows {
		if row.Badge.Name == "" {
			t.Errorf("badge not joined for progress %s", row.Progress.ID.Hex())
		}
	}

	n, err := store.CompletedCountForScout(ctx, sc.ID)
	if err != nil {
		t.Fatalf("CompletedCountForScout: %v", err)
	}
	if n != 1 {
		t.Errorf("completed = %d, want 1", n)
	}
}
