package repositories

import (
	"context"

	"github.com/v01dsy/Azurewrath/azurewrath/config"
	"github.com/v01dsy/Azurewrath/azurewrath/database/models"
	"github.com/uptrace/bun"
)

type PushSubscriptionRepository interface {
	GetByUserIDs(ctx context.Context, userIDs []int64) ([]*models.PushSubscription, error)
	// Delete removes an endpoint the push service reported as gone.
	Delete(ctx context.Context, id int64) error
}

type pushSubscriptionRepository struct {
	db *bun.DB
}

func NewPushSubscriptionRepository(db *bun.DB) PushSubscriptionRepository {
	return &pushSubscriptionRepository{db: db}
}

func (r *pushSubscriptionRepository) GetByUserIDs(ctx context.Context, userIDs []int64) ([]*models.PushSubscription, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	var subs []*models.PushSubscription
	err := r.db.NewSelect().
		Model(&subs).
		Where("user_id IN (?)", bun.In(userIDs)).
		Scan(ctx)

	return subs, err
}

func (r *pushSubscriptionRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	_, err := r.db.NewDelete().
		Model((*models.PushSubscription)(nil)).
		Where("id = ?", id).
		Exec(ctx)

	return err
}
