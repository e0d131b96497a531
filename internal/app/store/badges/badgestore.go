// internal/app/store/badges/badgestore.go
package badgestore

import (
	"context"
	"errors"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/scouthq/troophub/internal/app/system/normalize"
	"github.com/scouthq/troophub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c        *mongo.Collection
	progress *mongo.Collection
	scouts   *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		c:        db.Collection("merit_badges"),
		progress: db.Collection("scout_merit_badges"),
		scouts:   db.Collection("scouts"),
	}
}

var (
	// ErrDuplicateBadge is returned when a badge name already exists in the catalog.
	ErrDuplicateBadge = errors.New("a merit badge with that name already exists")

	// ErrAlreadyStarted is returned when a scout already has a record for a badge.
	ErrAlreadyStarted = errors.New("scout has already started this merit badge")

	// ErrNotStarted is returned when completing a badge the scout never started.
	ErrNotStarted = errors.New("scout has not started this merit badge")
)

// CreateBadge adds a badge to the catalog.
func (s *Store) CreateBadge(ctx context.Context, b models.MeritBadge) (models.MeritBadge, error) {
	b.ID = primitive.NewObjectID()
	b.Name = normalize.Name(b.Name)
	b.NameCI = text.Fold(b.Name)
	b.Category = normalize.Name(b.Category)
	b.CreatedAt = time.Now().UTC()

	if _, err := s.c.InsertOne(ctx, b); err != nil {
		if wafflemongo.IsDup(err) {
			return models.MeritBadge{}, ErrDuplicateBadge
		}
		return models.MeritBadge{}, err
	}
	return b, nil
}

// UpsertBadge inserts a badge by folded name or leaves an existing one
// untouched. Used by catalog seeding so restarts stay idempotent.
func (s *Store) UpsertBadge(ctx context.Context, b models.MeritBadge) error {
	b.Name = normalize.Name(b.Name)
	b.NameCI = text.Fold(b.Name)
	b.Category = normalize.Name(b.Category)

	_, err := s.c.UpdateOne(ctx,
		bson.M{"name_ci": b.NameCI},
		bson.M{"$setOnInsert": bson.M{
			"name":           b.Name,
			"name_ci":        b.NameCI,
			"category":       b.Category,
			"description":    b.Description,
			"eagle_required": b.EagleRequired,
			"created_at":     time.Now().UTC(),
		}},
		options.Update().SetUpsert(true),
	)
	return err
}

// GetBadge loads a catalog badge by ID.
func (s *Store) GetBadge(ctx context.Context, id primitive.ObjectID) (*models.MeritBadge, error) {
	var b models.MeritBadge
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&b); err != nil {
		return nil, err
	}
	return &b, nil
}

// ListCatalog returns the badge catalog, optionally filtered by category,
// sorted by name.
func (s *Store) ListCatalog(ctx context.Context, category string) ([]models.MeritBadge, error) {
	filter := bson.M{}
	if category = normalize.Name(category); category != "" {
		filter["category"] = category
	}
	opts := options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var badges []models.MeritBadge
	if err := cur.All(ctx, &badges); err != nil {
		return nil, err
	}
	return badges, nil
}

// CountCatalog returns the catalog size.
func (s *Store) CountCatalog(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{})
}

// StartBadge opens an in-progress record for a scout on a badge. The
// scout and badge must both exist, and a scout gets one record per badge.
func (s *Store) StartBadge(ctx context.Context, scoutID, badgeID primitive.ObjectID, counselorID *primitive.ObjectID) (models.ScoutMeritBadge, error) {
	if err := s.scouts.FindOne(ctx, bson.M{"_id": scoutID}).Err(); err != nil {
		return models.ScoutMeritBadge{}, err
	}
	if err := s.c.FindOne(ctx, bson.M{"_id": badgeID}).Err(); err != nil {
		return models.ScoutMeritBadge{}, err
	}

	now := time.Now().UTC()
	smb := models.ScoutMeritBadge{
		ID:          primitive.NewObjectID(),
		ScoutID:     scoutID,
		BadgeID:     badgeID,
		Status:      models.BadgeInProgress,
		CounselorID: counselorID,
		StartedAt:   now,
		CreatedAt:   now,
	}
	if _, err := s.progress.InsertOne(ctx, smb); err != nil {
		if wafflemongo.IsDup(err) {
			return models.ScoutMeritBadge{}, ErrAlreadyStarted
		}
		return models.ScoutMeritBadge{}, err
	}
	return smb, nil
}

// CompleteBadge marks a scout's in-progress badge as completed.
func (s *Store) CompleteBadge(ctx context.Context, scoutID, badgeID primitive.ObjectID) (*models.ScoutMeritBadge, error) {
	now := time.Now().UTC()
	res := s.progress.FindOneAndUpdate(ctx,
		bson.M{"scout_id": scoutID, "badge_id": badgeID},
		bson.M{"$set": bson.M{"status": models.BadgeCompleted, "completed_at": now}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	var smb models.ScoutMeritBadge
	if err := res.Decode(&smb); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotStarted
		}
		return nil, err
	}
	return &smb, nil
}

// ListForScout returns a scout's badge records joined with the catalog
// entries, in-progress first, then by badge name.
func (s *Store) ListForScout(ctx context.Context, scoutID primitive.ObjectID) ([]models.BadgeWithProgress, error) {
	cur, err := s.progress.Aggregate(ctx, []bson.M{
		{"$match": bson.M{"scout_id": scoutID}},
		{"$lookup": bson.M{
			"from":         "merit_badges",
			"localField":   "badge_id",
			"foreignField": "_id",
			"as":           "badge",
		}},
		{"$unwind": "$badge"},
		{"$sort": bson.D{{Key: "status", Value: -1}, {Key: "badge.name_ci", Value: 1}}},
		{"$project": bson.M{
			"badge": 1,
			"progress": bson.M{
				"_id":          "$_id",
				"scout_id":     "$scout_id",
				"badge_id":     "$badge_id",
				"status":       "$status",
				"counselor_id": "$counselor_id",
				"started_at":   "$started_at",
				"completed_at": "$completed_at",
				"created_at":   "$created_at",
			},
		}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var rows []models.BadgeWithProgress
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// CompletedCountForScout returns how many badges a scout has completed.
func (s *Store) CompletedCountForScout(ctx context.Context, scoutID primitive.ObjectID) (int64, error) {
	return s.progress.CountDocuments(ctx, bson.M{"scout_id": scoutID, "status": models.BadgeCompleted})
}
