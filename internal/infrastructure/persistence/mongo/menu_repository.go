package mongo

import (
	"context"
	"errors"

	"github.com/opentoworkprojects/bill-sub001/internal/domain/menu"
	"github.com/opentoworkprojects/bill-sub001/internal/domain/shared"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MenuRepository implements menu.Repository on MongoDB
type MenuRepository struct {
	store *Store
	coll  *mongo.Collection
}

var _ menu.Repository = (*MenuRepository)(nil)

func menuWriteError(err error, attempt int) error {
	switch duplicateIndex(err) {
	case "":
		return err
	case "_id_":
		if attempt > 1 {
			return nil
		}
		return shared.NewConflictError("Menu item already exists")
	default:
		return shared.WrapDomainError(shared.CodeConflict, "Menu item name already exists", err)
	}
}

func (r *MenuRepository) Create(ctx context.Context, item *menu.Item) error {
	doc := toMenuItemDoc(item)
	return r.store.run(ctx, "menu.create", func(ctx context.Context, attempt int) error {
		if _, err := r.coll.InsertOne(ctx, doc); err != nil {
			return menuWriteError(err, attempt)
		}
		return nil
	})
}

func (r *MenuRepository) Get(ctx context.Context, tenantID, id string) (*menu.Item, error) {
	var doc menuItemDoc
	err := r.store.run(ctx, "menu.get", func(ctx context.Context, _ int) error {
		err := r.coll.FindOne(ctx, bson.D{
			{Key: "_id", Value: id},
			{Key: "organization_id", Value: tenantID},
		}).Decode(&doc)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return notFound("Menu item")
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return doc.toDomain(), nil
}

func (r *MenuRepository) GetMany(ctx context.Context, tenantID string, ids []string) (map[string]*menu.Item, error) {
	items := make(map[string]*menu.Item, len(ids))
	if len(ids) == 0 {
		return items, nil
	}
	var docs []menuItemDoc
	err := r.store.run(ctx, "menu.get_many", func(ctx context.Context, _ int) error {
		cursor, err := r.coll.Find(ctx, bson.D{
			{Key: "organization_id", Value: tenantID},
			{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}},
		})
		if err != nil {
			return err
		}
		docs = docs[:0]
		return cursor.All(ctx, &docs)
	})
	if err != nil {
		return nil, err
	}
	for _, d := range docs {
		items[d.ID] = d.toDomain()
	}
	return items, nil
}

func (r *MenuRepository) List(ctx context.Context, tenantID string, onlyAvailable bool) ([]*menu.Item, error) {
	filter := bson.D{{Key: "organization_id", Value: tenantID}}
	if onlyAvailable {
		filter = append(filter, bson.E{Key: "available", Value: true})
	}
	opts := options.Find().SetSort(bson.D{{Key: "category", Value: 1}, {Key: "name", Value: 1}})

	var docs []menuItemDoc
	err := r.store.run(ctx, "menu.list", func(ctx context.Context, _ int) error {
		cursor, err := r.coll.Find(ctx, filter, opts)
		if err != nil {
			return err
		}
		docs = docs[:0]
		return cursor.All(ctx, &docs)
	})
	if err != nil {
		return nil, err
	}
	items := make([]*menu.Item, 0, len(docs))
	for _, d := range docs {
		items = append(items, d.toDomain())
	}
	return items, nil
}

func (r *MenuRepository) Update(ctx context.Context, item *menu.Item) error {
	doc := toMenuItemDoc(item)
	return r.store.run(ctx, "menu.update", func(ctx context.Context, attempt int) error {
		res, err := r.coll.ReplaceOne(ctx, bson.D{
			{Key: "_id", Value: item.ID},
			{Key: "organization_id", Value: item.TenantID},
		}, doc)
		if err != nil {
			return menuWriteError(err, attempt)
		}
		if res.MatchedCount == 0 {
			return notFound("Menu item")
		}
		return nil
	})
}

func (r *MenuRepository) Delete(ctx context.Context, tenantID, id string) error {
	return r.store.run(ctx, "menu.delete", func(ctx context.Context, attempt int) error {
		res, err := r.coll.DeleteOne(ctx, bson.D{
			{Key: "_id", Value: id},
			{Key: "organization_id", Value: tenantID},
		})
		if err != nil {
			return err
		}
		if res.DeletedCount == 0 && attempt == 1 {
			return notFound("Menu item")
		}
		return nil
	})
}
