package repositories

import (
	"context"

	"github.com/v01dsy/Azurewrath/azurewrath/config"
	"github.com/v01dsy/Azurewrath/azurewrath/database/models"
	"github.com/uptrace/bun"
)

type UserRepository interface {
	// GetDiscordOptIns returns userID -> Discord ID for users among the
	// given set who opted in to DM alerts and have Discord linked.
	GetDiscordOptIns(ctx context.Context, userIDs []int64) (map[int64]string, error)
}

type userRepository struct {
	db *bun.DB
}

func NewUserRepository(db *bun.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetDiscordOptIns(ctx context.Context, userIDs []int64) (map[int64]string, error) {
	if len(userIDs) == 0 {
		return map[int64]string{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	var users []*models.User
	err := r.db.NewSelect().
		Model(&users).
		Where("id IN (?)", bun.In(userIDs)).
		Where("discord_notifications = TRUE").
		Where("discord_id IS NOT NULL").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	optIns := make(map[int64]string, len(users))
	for _, user := range users {
		if user.DiscordID != nil {
			optIns[user.ID] = *user.DiscordID
		}
	}
	return optIns, nil
}
