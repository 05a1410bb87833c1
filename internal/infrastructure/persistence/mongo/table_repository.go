package mongo

import (
	"context"
	"errors"

	"github.com/opentoworkprojects/bill-sub001/internal/domain/shared"
	"github.com/opentoworkprojects/bill-sub001/internal/domain/table"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TableRepository implements table.Repository on MongoDB
type TableRepository struct {
	store *Store
	coll  *mongo.Collection
}

var _ table.Repository = (*TableRepository)(nil)

func tableWriteError(err error, attempt int) error {
	switch duplicateIndex(err) {
	case "":
		return err
	case "_id_":
		if attempt > 1 {
			return nil
		}
		return shared.NewConflictError("Table already exists")
	default:
		return shared.WrapDomainError(shared.CodeConflict, "Table number already exists", err)
	}
}

func (r *TableRepository) Create(ctx context.Context, t *table.Table) error {
	doc := toTableDoc(t)
	return r.store.run(ctx, "tables.create", func(ctx context.Context, attempt int) error {
		_, err := r.coll.InsertOne(ctx, doc)
		if err != nil {
			return tableWriteError(err, attempt)
		}
		return nil
	})
}

func (r *TableRepository) Get(ctx context.Context, tenantID, id string) (*table.Table, error) {
	var doc tableDoc
	err := r.store.run(ctx, "tables.get", func(ctx context.Context, _ int) error {
		err := r.coll.FindOne(ctx, bson.D{
			{Key: "_id", Value: id},
			{Key: "organization_id", Value: tenantID},
		}).Decode(&doc)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return notFound("Table")
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return doc.toDomain(), nil
}

func (r *TableRepository) List(ctx context.Context, tenantID string) ([]*table.Table, error) {
	var docs []tableDoc
	err := r.store.run(ctx, "tables.list", func(ctx context.Context, _ int) error {
		cursor, err := r.coll.Find(ctx,
			bson.D{{Key: "organization_id", Value: tenantID}},
			options.Find().SetSort(bson.D{{Key: "table_number", Value: 1}}),
		)
		if err != nil {
			return err
		}
		docs = docs[:0]
		return cursor.All(ctx, &docs)
	})
	if err != nil {
		return nil, err
	}
	tables := make([]*table.Table, 0, len(docs))
	for _, d := range docs {
		tables = append(tables, d.toDomain())
	}
	return tables, nil
}

func (r *TableRepository) Update(ctx context.Context, t *table.Table) error {
	doc := toTableDoc(t)
	return r.store.run(ctx, "tables.update", func(ctx context.Context, attempt int) error {
		res, err := r.coll.ReplaceOne(ctx, bson.D{
			{Key: "_id", Value: t.ID},
			{Key: "organization_id", Value: t.TenantID},
		}, doc)
		if err != nil {
			return tableWriteError(err, attempt)
		}
		if res.MatchedCount == 0 {
			return notFound("Table")
		}
		return nil
	})
}

func (r *TableRepository) Delete(ctx context.Context, tenantID, id string) error {
	return r.store.run(ctx, "tables.delete", func(ctx context.Context, attempt int) error {
		res, err := r.coll.DeleteOne(ctx, bson.D{
			{Key: "_id", Value: id},
			{Key: "organization_id", Value: tenantID},
		})
		if err != nil {
			return err
		}
		if res.DeletedCount == 0 && attempt == 1 {
			return notFound("Table")
		}
		return nil
	})
}

// ClearMark unsets the mark; a missing table is not an error
func (r *TableRepository) ClearMark(ctx context.Context, tenantID, id string) error {
	return r.store.run(ctx, "tables.clear_mark", func(ctx context.Context, _ int) error {
		_, err := r.coll.UpdateOne(ctx,
			bson.D{{Key: "_id", Value: id}, {Key: "organization_id", Value: tenantID}},
			bson.D{{Key: "$unset", Value: bson.D{{Key: "mark", Value: ""}}}},
		)
		return err
	})
}
