// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup. Each ensure* function is idempotent.
We aggregate errors so any problem is visible and startup can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	if err := ensureUsers(ctx, db); err != nil {
		problems = append(problems, "users: "+err.Error())
	}
	if err := ensureTroops(ctx, db); err != nil {
		problems = append(problems, "troops: "+err.Error())
	}
	if err := ensureTroopMemberships(ctx, db); err != nil {
		problems = append(problems, "troop_memberships: "+err.Error())
	}
	if err := ensureScouts(ctx, db); err != nil {
		problems = append(problems, "scouts: "+err.Error())
	}
	if err := ensureRankAdvancements(ctx, db); err != nil {
		problems = append(problems, "rank_advancements: "+err.Error())
	}
	if err := ensureMeritBadges(ctx, db); err != nil {
		problems = append(problems, "merit_badges: "+err.Error())
	}
	if err := ensureScoutMeritBadges(ctx, db); err != nil {
		problems = append(problems, "scout_merit_badges: "+err.Error())
	}
	if err := ensureOAuthStates(ctx, db); err != nil {
		problems = append(problems, "oauth_states: "+err.Error())
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Reconcile machinery                                                         */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func sameBoolPtr(a, b *bool) bool {
	av := false
	bv := false
	if a != nil {
		av = *a
	}
	if b != nil {
		bv = *b
	}
	return av == bv
}

// Best-effort duplicate-detector (works cross-vendors)
func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 { // E11000 duplicate key error index
				return true
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "E11000") || strings.Contains(strings.ToLower(s), "duplicate key")
}

// ensureIndexSet reconciles the desired index models against what the
// collection already has: reuse when keys and options match, drop and
// recreate when the name or uniqueness differs, create when missing.
func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	var errs []string

	existing := map[string]existingIndex{} // sig -> index
	cur, err := coll.Indexes().List(ctx)
	if err == nil {
		defer cur.Close(ctx)
		for cur.Next(ctx) {
			var idx existingIndex
			if err := cur.Decode(&idx); err != nil {
				zap.L().Warn("failed to decode existing index",
					zap.String("collection", coll.Name()),
					zap.Error(err))
				continue
			}
			existing[keySig(idx.Key)] = idx
		}
	}

	for _, m := range models {
		var desiredName string
		var desiredUnique *bool
		if m.Options != nil {
			if m.Options.Name != nil {
				desiredName = *m.Options.Name
			}
			if m.Options.Unique != nil {
				desiredUnique = m.Options.Unique
			}
		}
		desiredSig := keySig(m.Keys.(bson.D))
		start := time.Now()

		if ex, ok := existing[desiredSig]; ok {
			if sameBoolPtr(desiredUnique, ex.Unique) && (desiredName == "" || ex.Name == desiredName) {
				zap.L().Info("reusing existing index",
					zap.String("collection", coll.Name()),
					zap.String("name", ex.Name),
					zap.String("keys", desiredSig))
				continue
			}

			// Name or options mismatch (e.g. upgrading to unique). Drop & recreate.
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				zap.L().Warn("drop existing index failed",
					zap.String("collection", coll.Name()),
					zap.String("name", ex.Name),
					zap.Error(err))
				errs = append(errs, fmt.Sprintf("%s(%s): drop failed: %v", coll.Name(), desiredName, err))
				continue
			}
		}

		if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			if isDuplicateKeyErr(err) && desiredUnique != nil && *desiredUnique {
				errs = append(errs, fmt.Sprintf("%s(%s): cannot create unique index (duplicates present)", coll.Name(), desiredName))
			} else {
				zap.L().Warn("index ensure failed",
					zap.String("collection", coll.Name()),
					zap.String("name", desiredName),
					zap.String("keys", desiredSig),
					zap.Error(err))
				errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), desiredName, err))
			}
			continue
		}

		zap.L().Info("index ensured",
			zap.String("collection", coll.Name()),
			zap.String("name", desiredName),
			zap.String("keys", desiredSig),
			zap.Bool("unique", desiredUnique != nil && *desiredUnique),
			zap.String("took", time.Since(start).String()))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Collection-specific index sets                                              */
/* -------------------------------------------------------------------------- */

func ensureUsers(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("users")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Email must be unique across all users
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_users_email"),
		},
		// Social login lookup: (provider, provider_id). Sparse so the many
		// password-only accounts stay out of the index.
		{
			Keys:    bson.D{{Key: "provider", Value: 1}, {Key: "provider_id", Value: 1}},
			Options: options.Index().SetSparse(true).SetName("idx_users_provider"),
		},
		// Name search + stable sort
		{
			Keys:    bson.D{{Key: "full_name_ci", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_users_fullnameci__id"),
		},
	})
}

func ensureTroops(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("troops")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// No duplicate troop numbers
		{
			Keys:    bson.D{{Key: "troop_number", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_troops_number"),
		},
		// List pages: filter by status + name prefix + stable tiebreak
		{
			Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "name_ci", Value: 1},
				{Key: "_id", Value: 1},
			},
			Options: options.Index().SetName("idx_troops_status_nameci__id"),
		},
	})
}

func ensureTroopMemberships(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("troop_memberships")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Uniqueness: one document per (user, troop, role). A user with
		// two hats in the same troop has two documents.
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "troop_id", Value: 1},
				{Key: "role", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("uniq_tm_user_troop_role"),
		},
		// Fast: list troop roster (+role segmentation, stable tiebreak)
		{
			Keys:    bson.D{{Key: "troop_id", Value: 1}, {Key: "role", Value: 1}, {Key: "user_id", Value: 1}},
			Options: options.Index().SetName("idx_tm_troop_role_user"),
		},
	})
}

func ensureScouts(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("scouts")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Troop roster listing
		{
			Keys:    bson.D{{Key: "troop_id", Value: 1}, {Key: "full_name_ci", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_scouts_troop_nameci__id"),
		},
		// "My scouts" for parents
		{
			Keys:    bson.D{{Key: "parent_id", Value: 1}},
			Options: options.Index().SetName("idx_scouts_parent"),
		},
		// Rank distribution aggregations
		{
			Keys:    bson.D{{Key: "troop_id", Value: 1}, {Key: "rank", Value: 1}},
			Options: options.Index().SetName("idx_scouts_troop_rank"),
		},
	})
}

func ensureRankAdvancements(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("rank_advancements")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Per-scout history, latest first
		{
			Keys:    bson.D{{Key: "scout_id", Value: 1}, {Key: "awarded_at", Value: -1}},
			Options: options.Index().SetName("idx_ranks_scout_awarded"),
		},
	})
}

func ensureMeritBadges(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("merit_badges")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Catalog names are unique (case/diacritics folded via name_ci)
		{
			Keys:    bson.D{{Key: "name_ci", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_badges_nameci"),
		},
		// Category filter
		{
			Keys:    bson.D{{Key: "category", Value: 1}, {Key: "name_ci", Value: 1}},
			Options: options.Index().SetName("idx_badges_category_nameci"),
		},
	})
}

func ensureScoutMeritBadges(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("scout_merit_badges")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// One progress record per (scout, badge)
		{
			Keys:    bson.D{{Key: "scout_id", Value: 1}, {Key: "badge_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_smb_scout_badge"),
		},
		// Per-badge views (counselor rosters)
		{
			Keys:    bson.D{{Key: "badge_id", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index().SetName("idx_smb_badge_status"),
		},
	})
}

func ensureOAuthStates(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("oauth_states")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Primary lookup by state
		{
			Keys:    bson.D{{Key: "state", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_oauth_state"),
		},
		// TTL index for automatic cleanup
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("idx_oauth_ttl"),
		},
	})
}
