// internal/app/store/troops/troopstore.go
package troopstore

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

// DefaultPageSize is the page size used when a List caller passes an
// out-of-range limit.
const DefaultPageSize = 20

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("troops")}
}

var (
	// ErrDuplicateNumber is returned when a troop number is already taken.
	ErrDuplicateNumber = errors.New("a troop with this number already exists")
	errBadStatus       = errors.New(`status must be "ACTIVE"|"INACTIVE"|"ARCHIVED"`)
	errMissingNumber   = errors.New("troop number is required")
)

// Create inserts a new troop after normalizing and validating fields.
// Membership documents are written separately by the caller.
func (s *Store) Create(ctx context.Context, t models.Troop) (models.Troop, error) {
	t.ID = primitive.NewObjectID()
	t.TroopNumber = normalize.Name(t.TroopNumber)
	t.Name = normalize.Name(t.Name)
	t.NameCI = text.Fold(t.Name)
	if t.TroopNumber == "" {
		return models.Troop{}, errMissingNumber
	}
	if t.Status == "" {
		t.Status = models.TroopActive
	}
	if !models.IsValidTroopStatus(t.Status) {
		return models.Troop{}, errBadStatus
	}
	if t.SizeLimit <= 0 {
		t.SizeLimit = models.DefaultTroopSizeLimit
	}

	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, t); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Troop{}, ErrDuplicateNumber
		}
		return models.Troop{}, err
	}
	return t, nil
}

// GetByID loads a troop by ObjectID. Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Troop, error) {
	var t models.Troop
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&t); err != nil {
		return nil, err
	}
	return &t, nil
}

// List returns a page of troops, optionally filtered by status, sorted
// by name with a stable _id tiebreak. Also returns the total count for
// pagination.
func (s *Store) List(ctx context.Context, status string, page, limit int) ([]models.Troop, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = DefaultPageSize
	}

	filter := bson.M{}
	if status != "" {
		filter["status"] = normalize.Status(status)
	}

	total, err := s.c.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var troops []models.Troop
	if err := cur.All(ctx, &troops); err != nil {
		return nil, 0, err
	}
	return troops, total, nil
}

// Update holds the editable troop fields. Status changes go through
// SetStatus so archive/reactivate stay explicit operations.
type Update struct {
	Name        string
	Description string
	CharterOrg  string
	City        string
	State       string
	MeetingDay  string
	MeetingTime string
	SizeLimit   int
}

// Update applies field changes and returns the fresh document.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, upd Update) (*models.Troop, error) {
	name := normalize.Name(upd.Name)
	set := bson.M{
		"name":         name,
		"name_ci":      text.Fold(name),
		"description":  upd.Description,
		"charter_org":  normalize.Name(upd.CharterOrg),
		"city":         normalize.Name(upd.City),
		"state":        normalize.Name(upd.State),
		"meeting_day":  normalize.Name(upd.MeetingDay),
		"meeting_time": normalize.Name(upd.MeetingTime),
		"updated_at":   time.Now().UTC(),
	}
	if upd.SizeLimit > 0 {
		set["size_limit"] = upd.SizeLimit
	}
	if _, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set}); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// SetStatus moves a troop between ACTIVE, INACTIVE, and ARCHIVED.
// Returns mongo.ErrNoDocuments if the troop does not exist.
func (s *Store) SetStatus(ctx context.Context, id primitive.ObjectID, status string) (*models.Troop, error) {
	status = normalize.Status(status)
	if !models.IsValidTroopStatus(status) {
		return nil, errBadStatus
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"status":     status,
		"updated_at": time.Now().UTC(),
	}})
	if err != nil {
		return nil, err
	}
	if res.MatchedCount == 0 {
		return nil, mongo.ErrNoDocuments
	}
	return s.GetByID(ctx, id)
}

// Delete removes a troop document. The caller is responsible for
// cascading membership and scout cleanup.
// Returns the number of documents deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
