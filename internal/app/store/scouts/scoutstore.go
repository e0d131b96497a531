// internal/app/store/scouts/scoutstore.go
package scoutstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
	"github.com/scouthq/troophub/internal/app/system/normalize"
	"github.com/scouthq/troophub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c      *mongo.Collection
	ranks  *mongo.Collection
	troops *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		c:      db.Collection("scouts"),
		ranks:  db.Collection("rank_advancements"),
		troops: db.Collection("troops"),
	}
}

var (
	errBadRank   = errors.New("rank is not a valid scout rank")
	errBadGender = errors.New(`gender must be "MALE" or "FEMALE"`)

	// ErrTroopFull is returned when a troop is at its size limit.
	ErrTroopFull = errors.New("troop has reached its size limit")
)

// Create inserts a new scout after validating fields and the troop's
// size limit. New scouts start at SCOUT rank unless one is given.
func (s *Store) Create(ctx context.Context, sc models.Scout) (models.Scout, error) {
	sc.ID = primitive.NewObjectID()
	sc.FirstName = normalize.Name(sc.FirstName)
	sc.LastName = normalize.Name(sc.LastName)
	sc.FullNameCI = text.Fold(sc.FirstName + " " + sc.LastName)
	sc.PatrolName = normalize.Name(sc.PatrolName)
	if sc.Rank == "" {
		sc.Rank = models.RankScout
	}
	if !models.IsValidScoutRank(sc.Rank) {
		return models.Scout{}, errBadRank
	}
	if sc.Gender != "" && sc.Gender != models.GenderMale && sc.Gender != models.GenderFemale {
		return models.Scout{}, errBadGender
	}

	// The troop must exist and have room.
	var troop models.Troop
	if err := s.troops.FindOne(ctx, bson.M{"_id": sc.TroopID}).Decode(&troop); err != nil {
		return models.Scout{}, err
	}
	n, err := s.c.CountDocuments(ctx, bson.M{"troop_id": sc.TroopID, "active": true})
	if err != nil {
		return models.Scout{}, err
	}
	if troop.SizeLimit > 0 && n >= int64(troop.SizeLimit) {
		return models.Scout{}, ErrTroopFull
	}

	now := time.Now().UTC()
	if sc.JoinedAt.IsZero() {
		sc.JoinedAt = now
	}
	sc.Active = true
	sc.CreatedAt = now
	sc.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, sc); err != nil {
		return models.Scout{}, err
	}
	return sc, nil
}

// GetByID loads a scout by ObjectID. Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Scout, error) {
	var sc models.Scout
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&sc); err != nil {
		return nil, err
	}
	return &sc, nil
}

// ListByTroop returns a troop's scouts sorted by name.
func (s *Store) ListByTroop(ctx context.Context, troopID primitive.ObjectID) ([]models.Scout, error) {
	return s.list(ctx, bson.M{"troop_id": troopID})
}

// ListByParent returns the scouts whose parent account is the given user.
func (s *Store) ListByParent(ctx context.Context, parentID primitive.ObjectID) ([]models.Scout, error) {
	return s.list(ctx, bson.M{"parent_id": parentID})
}

// Filter narrows List. Nil fields are ignored; with both set a scout
// must match both.
type Filter struct {
	TroopID  *primitive.ObjectID
	ParentID *primitive.ObjectID
}

// List returns the scouts matching the filter, sorted by name. An empty
// filter returns every scout.
func (s *Store) List(ctx context.Context, f Filter) ([]models.Scout, error) {
	filter := bson.M{}
	if f.TroopID != nil {
		filter["troop_id"] = *f.TroopID
	}
	if f.ParentID != nil {
		filter["parent_id"] = *f.ParentID
	}
	return s.list(ctx, filter)
}

func (s *Store) list(ctx context.Context, filter bson.M) ([]models.Scout, error) {
	opts := options.Find().SetSort(bson.D{{Key: "full_name_ci", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var scouts []models.Scout
	if err := cur.All(ctx, &scouts); err != nil {
		return nil, err
	}
	return scouts, nil
}

// Update holds the editable scout fields. Rank is not here: rank only
// moves through RecordAdvancement so the history stays consistent.
type Update struct {
	FirstName  string
	LastName   string
	PatrolName string
	ParentID   *primitive.ObjectID
	Active     *bool
}

// Update applies field changes and returns the fresh document.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, upd Update) (*models.Scout, error) {
	first := normalize.Name(upd.FirstName)
	last := normalize.Name(upd.LastName)
	set := bson.M{
		"first_name":   first,
		"last_name":    last,
		"full_name_ci": text.Fold(first + " " + last),
		"patrol_name":  normalize.Name(upd.PatrolName),
		"updated_at":   time.Now().UTC(),
	}
	if upd.ParentID != nil {
		set["parent_id"] = *upd.ParentID
	}
	if upd.Active != nil {
		set["active"] = *upd.Active
	}
	if _, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set}); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// Delete removes a scout and their advancement history.
// Returns the number of scout documents deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	if res.DeletedCount > 0 {
		if _, err := s.ranks.DeleteMany(ctx, bson.M{"scout_id": id}); err != nil {
			return res.DeletedCount, err
		}
	}
	return res.DeletedCount, nil
}

// RecordAdvancement appends a rank advancement and moves the scout's
// current rank to match. Two writes, history first, so a failure leaves
// the scout at the old rank with no phantom history entry possible.
func (s *Store) RecordAdvancement(ctx context.Context, adv models.RankAdvancement) (models.RankAdvancement, error) {
	adv.Rank = models.ScoutRank(normalize.Rank(string(adv.Rank)))
	if !models.IsValidScoutRank(adv.Rank) {
		return models.RankAdvancement{}, errBadRank
	}
	if err := s.c.FindOne(ctx, bson.M{"_id": adv.ScoutID}).Err(); err != nil {
		return models.RankAdvancement{}, err
	}

	adv.ID = primitive.NewObjectID()
	if adv.AwardedAt.IsZero() {
		adv.AwardedAt = time.Now().UTC()
	}
	adv.CreatedAt = time.Now().UTC()

	if _, err := s.ranks.InsertOne(ctx, adv); err != nil {
		return models.RankAdvancement{}, err
	}
	if _, err := s.c.UpdateOne(ctx, bson.M{"_id": adv.ScoutID}, bson.M{"$set": bson.M{
		"rank":       adv.Rank,
		"updated_at": time.Now().UTC(),
	}}); err != nil {
		return models.RankAdvancement{}, err
	}
	return adv, nil
}

// ListAdvancements returns a scout's rank history, latest first.
func (s *Store) ListAdvancements(ctx context.Context, scoutID primitive.ObjectID) ([]models.RankAdvancement, error) {
	opts := options.Find().SetSort(bson.D{{Key: "awarded_at", Value: -1}})
	cur, err := s.ranks.Find(ctx, bson.M{"scout_id": scoutID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var advs []models.RankAdvancement
	if err := cur.All(ctx, &advs); err != nil {
		return nil, err
	}
	return advs, nil
}

// CountByTroop returns the number of active scouts in a troop.
func (s *Store) CountByTroop(ctx context.Context, troopID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"troop_id": troopID, "active": true})
}

// RankCountsForTroop aggregates a troop's active scouts by rank, for
// the troop stats endpoint.
func (s *Store) RankCountsForTroop(ctx context.Context, troopID primitive.ObjectID) (map[models.ScoutRank]int, error) {
	cur, err := s.c.Aggregate(ctx, []bson.M{
		{"$match": bson.M{"troop_id": troopID, "active": true}},
		{"$group": bson.M{"_id": "$rank", "n": bson.M{"$sum": 1}}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	result := make(map[models.ScoutRank]int)
	for cur.Next(ctx) {
		var row struct {
			Rank models.ScoutRank `bson:"_id"`
			N    int              `bson:"n"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		result[row.Rank] = row.N
	}
	return result, cur.Err()
}

// DeleteByTroop removes all scouts in a troop along with their rank
// history. Used when a troop is deleted.
func (s *Store) DeleteByTroop(ctx context.Context, troopID primitive.ObjectID) (int64, error) {
	cur, err := s.c.Find(ctx, bson.M{"troop_id": troopID}, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return 0, err
	}
	var ids []primitive.ObjectID
	for cur.Next(ctx) {
		var row struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cur.Decode(&row); err != nil {
			cur.Close(ctx)
			return 0, err
		}
		ids = append(ids, row.ID)
	}
	cur.Close(ctx)
	if len(ids) == 0 {
		return 0, nil
	}

	if _, err := s.ranks.DeleteMany(ctx, bson.M{"scout_id": bson.M{"$in": ids}}); err != nil {
		return 0, err
	}
	res, err := s.c.DeleteMany(ctx, bson.M{"troop_id": troopID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
