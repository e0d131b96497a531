// internal/app/store/scouts/scoutstore_test.go
package scoutstore_test

import (
	"errors"
	"testing"
	"time"

	scoutstore "github.com/scouthq/troophub/internal/app/store/scouts"
	troopstore "github.com/scouthq/troophub/internal/app/store/troops"
	"github.com/scouthq/troophub/internal/domain/models"
	"github.com/scouthq/troophub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestCreateDefaultsAndNormalization(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	troop := fx.CreateTroop(ctx, "101", "Eagle Ridge")

	store := scoutstore.New(db)
	sc, err := store.Create(ctx, models.Scout{
		TroopID:   troop.ID,
		FirstName: "  Tommy ",
		LastName:  " Harper ",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if sc.FirstName != "Tommy" || sc.LastName != "Harper" {
		t.Errorf("names not trimmed: %q %q", sc.FirstName, sc.LastName)
	}
	if sc.FullNameCI != "tommy harper" {
		t.Errorf("FullNameCI = %q, want %q", sc.FullNameCI, "tommy harper")
	}
	if sc.Rank != models.RankScout {
		t.Errorf("Rank = %q, want %q", sc.Rank, models.RankScout)
	}
	if !sc.Active {
		t.Error("new scout should be active")
	}
	if sc.JoinedAt.IsZero() {
		t.Error("JoinedAt should default to now")
	}
}

func TestCreateValidation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	troop := fx.CreateTroop(ctx, "102", "River Bend")
	store := scoutstore.New(db)

	if _, err := store.Create(ctx, models.Scout{TroopID: troop.ID, FirstName: "A", LastName: "B", Rank: "WEBELO"}); err == nil {
		t.Error("invalid rank should be rejected")
	}
	if _, err := store.Create(ctx, models.Scout{TroopID: troop.ID, FirstName: "A", LastName: "B", Gender: "OTHER"}); err == nil {
		t.Error("invalid gender should be rejected")
	}
	if _, err := store.Create(ctx, models.Scout{TroopID: primitive.NewObjectID(), FirstName: "A", LastName: "B"}); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("missing troop: err = %v, want ErrNoDocuments", err)
	}
}

func TestCreateRespectsSizeLimit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	troops := troopstore.New(db)
	troop, err := troops.Create(ctx, models.Troop{TroopNumber: "103", Name: "Small Troop", SizeLimit: 2})
	if err != nil {
		t.Fatalf("create troop: %v", err)
	}

	store := scoutstore.New(db)
	for i, name := range []string{"One", "Two"} {
		if _, err := store.Create(ctx, models.Scout{TroopID: troop.ID, FirstName: name, LastName: "Scout"}); err != nil {
			t.Fatalf("scout %d: %v", i, err)
		}
	}
	if _, err := store.Create(ctx, models.Scout{TroopID: troop.ID, FirstName: "Three", LastName: "Scout"}); !errors.Is(err, scoutstore.ErrTroopFull) {
		t.Errorf("err = %v, want ErrTroopFull", err)
	}
}

func TestListByTroopAndParent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	troop := fx.CreateTroop(ctx, "104", "Oak Hollow")
	parent := fx.CreateUser(ctx, "Pat", "Harper", "pat@example.com")

	store := scoutstore.New(db)
	for _, first := range []string{"Zed", "Amy"} {
		if _, err := store.Create(ctx, models.Scout{
			TroopID:   troop.ID,
			ParentID:  &parent.ID,
			FirstName: first,
			LastName:  "Harper",
		}); err != nil {
			t.Fatalf("create %s: %v", first, err)
		}
	}

	byTroop, err := store.ListByTroop(ctx, troop.ID)
	if err != nil {
		t.Fatalf("ListByTroop: %v", err)
	}
	if len(byTroop) != 2 {
		t.Fatalf("got %d scouts, want 2", len(byTroop))
	}
	if byTroop[0].FirstName != "Amy" {
		t.Errorf("expected name sort, first = %q", byTroop[0].FirstName)
	}

	byParent, err := store.ListByParent(ctx, parent.ID)
	if err != nil {
		t.Fatalf("ListByParent: %v", err)
	}
	if len(byParent) != 2 {
		t.Errorf("got %d scouts for parent, want 2", len(byParent))
	}
}

func TestRecordAdvancement(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	troop := fx.CreateTroop(ctx, "105", "Cedar Point")
	store := scoutstore.New(db)

	sc, err := store.Create(ctx, models.Scout{TroopID: troop.ID, FirstName: "Drew", LastName: "Lee"})
	if err != nil {
		t.Fatalf("create scout: %v", err)
	}

	adv, err := store.RecordAdvancement(ctx, models.RankAdvancement{
		ScoutID: sc.ID,
		Rank:    "tenderfoot",
		Notes:   "Board of review 3/12",
	})
	if err != nil {
		t.Fatalf("RecordAdvancement: %v", err)
	}
	if adv.Rank != models.RankTenderfoot {
		t.Errorf("rank = %q, want %q", adv.Rank, models.RankTenderfoot)
	}

	got, err := store.GetByID(ctx, sc.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Rank != models.RankTenderfoot {
		t.Errorf("scout rank = %q, want %q", got.Rank, models.RankTenderfoot)
	}

	if _, err := store.RecordAdvancement(ctx, models.RankAdvancement{ScoutID: sc.ID, Rank: "GRANDMASTER"}); err == nil {
		t.Error("invalid rank should be rejected")
	}
	if _, err := store.RecordAdvancement(ctx, models.RankAdvancement{ScoutID: primitive.NewObjectID(), Rank: models.RankStar}); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("missing scout: err = %v, want ErrNoDocuments", err)
	}

	if _, err := store.RecordAdvancement(ctx, models.RankAdvancement{
		ScoutID:   sc.ID,
		Rank:      models.RankSecondClass,
		AwardedAt: time.Now().UTC().Add(time.Hour),
	}); err != nil {
		t.Fatalf("second advancement: %v", err)
	}
	history, err := store.ListAdvancements(ctx, sc.ID)
	if err != nil {
		t.Fatalf("ListAdvancements: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("got %d advancements, want 2", len(history))
	}
	if history[0].Rank != models.RankSecondClass {
		t.Errorf("latest first: got %q", history[0].Rank)
	}
}

func TestDeleteRemovesHistory(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	troop := fx.CreateTroop(ctx, "106", "Pine Flats")
	store := scoutstore.New(db)

	sc, err := store.Create(ctx, models.Scout{TroopID: troop.ID, FirstName: "Max", LastName: "Ortiz"})
	if err != nil {
		t.Fatalf("create scout: %v", err)
	}
	if _, err := store.RecordAdvancement(ctx, models.RankAdvancement{ScoutID: sc.ID, Rank: models.RankTenderfoot}); err != nil {
		t.Fatalf("advancement: %v", err)
	}

	n, err := store.Delete(ctx, sc.ID)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted %d, want 1", n)
	}
	history, err := store.ListAdvancements(ctx, sc.ID)
	if err != nil {
		t.Fatalf("ListAdvancements: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("history should be gone, got %d entries", len(history))
	}
}

func TestRankCountsForTroop(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	troop := fx.CreateTroop(ctx, "107", "Birch Grove")
	store := scoutstore.New(db)

	for _, rank := range []models.ScoutRank{models.RankScout, models.RankScout, models.RankStar} {
		if _, err := store.Create(ctx, models.Scout{TroopID: troop.ID, FirstName: "N", LastName: string(rank), Rank: rank}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	counts, err := store.RankCountsForTroop(ctx, troop.ID)
	if err != nil {
		t.Fatalf("RankCountsForTroop: %v", err)
	}
	if counts[models.RankScout] != 2 || counts[models.RankStar] != 1 {
		t.Errorf("counts = %v", counts)
	}
}
