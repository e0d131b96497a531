// internal/app/system/seed/seed.go
package seed

import (
	"context"
	"fmt"

	badgestore "github.com/scouthq/troophub/internal/app/store/badges"
	"github.com/scouthq/troophub/internal/domain/models"
	"go.uber.org/zap"
)

// catalog is the starter merit badge catalog inserted on first startup.
// Upserts key on folded name, so renames or re-runs never duplicate.
var catalog = []models.MeritBadge{
	{Name: "Camping", Category: "Outdoor", EagleRequired: true,
		Description: "Plan, prepare for, and carry out overnight camping trips."},
	{Name: "First Aid", Category: "Health and Safety", EagleRequired: true,
		Description: "Demonstrate first aid skills for common injuries and emergencies."},
	{Name: "Swimming", Category: "Aquatics", EagleRequired: true,
		Description: "Demonstrate swimming strokes, water rescue, and safe swim practices."},
	{Name: "Cooking", Category: "Outdoor", EagleRequired: true,
		Description: "Plan menus and cook meals at home, on the trail, and in camp."},
	{Name: "Citizenship in the Community", Category: "Citizenship", EagleRequired: true,
		Description: "Learn how local government works and serve the community."},
	{Name: "Environmental Science", Category: "Conservation", EagleRequired: true,
		Description: "Study ecosystems, pollution, and conservation practices."},
	{Name: "Personal Fitness", Category: "Health and Safety", EagleRequired: true,
		Description: "Build and follow a twelve-week personal fitness program."},
	{Name: "Communication", Category: "Citizenship", EagleRequired: true,
		Description: "Practice public speaking, interviewing, and presentations."},
	{Name: "Family Life", Category: "Citizenship", EagleRequired: true,
		Description: "Carry out projects and discussions that strengthen family life."},
	{Name: "Personal Management", Category: "Citizenship", EagleRequired: true,
		Description: "Budget, save, and plan the use of money and time."},
}

// Catalog makes sure the starter merit badge catalog exists. Safe to run
// on every startup; existing badges are left untouched.
func Catalog(ctx context.Context, badges *badgestore.Store, logger *zap.Logger) error {
	for _, b := range catalog {
		if err := badges.UpsertBadge(ctx, b); err != nil {
			return fmt.Errorf("seed badge %q: %w", b.Name, err)
		}
	}
	n, err := badges.CountCatalog(ctx)
	if err != nil {
		return err
	}
	logger.Info("merit badge catalog ready", zap.Int64("badges", n))
	return nil
}
