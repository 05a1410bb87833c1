package mongo

import (
	"context"
	"errors"

	"github.com/opentoworkprojects/bill-sub001/internal/domain/settings"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SettingsRepository implements settings.Repository on MongoDB.
// Profiles are keyed by organization id.
type SettingsRepository struct {
	store *Store
	coll  *mongo.Collection
}

var _ settings.Repository = (*SettingsRepository)(nil)

func (r *SettingsRepository) Get(ctx context.Context, tenantID string) (*settings.BusinessProfile, error) {
	var doc profileDoc
	found := true
	err := r.store.run(ctx, "settings.get", func(ctx context.Context, _ int) error {
		err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: tenantID}}).Decode(&doc)
		if errors.Is(err, mongo.ErrNoDocuments) {
			found = false
			return nil
		}
		found = true
		return err
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return settings.DefaultProfile(tenantID), nil
	}
	return doc.toDomain(), nil
}

func (r *SettingsRepository) Save(ctx context.Context, p *settings.BusinessProfile) error {
	doc := toProfileDoc(p)
	return r.store.run(ctx, "settings.save", func(ctx context.Context, _ int) error {
		_, err := r.coll.ReplaceOne(ctx,
			bson.D{{Key: "_id", Value: p.TenantID}},
			doc,
			options.Replace().SetUpsert(true),
		)
		return err
	})
}
