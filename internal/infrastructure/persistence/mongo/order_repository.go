package mongo

import (
	"context"
	"errors"
	"fmt"

	"github.com/opentoworkprojects/bill-sub001/internal/domain/order"
	"github.com/opentoworkprojects/bill-sub001/internal/domain/shared"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// OrderRepository implements order.Repository on MongoDB
type OrderRepository struct {
	store    *Store
	coll     *mongo.Collection
	counters *mongo.Collection
}

var _ order.Repository = (*OrderRepository)(nil)

// Insert persists a new order
func (r *OrderRepository) Insert(ctx context.Context, o *order.Order) error {
	doc := toOrderDoc(o)
	return r.store.run(ctx, "orders.insert", func(ctx context.Context, attempt int) error {
		_, err := r.coll.InsertOne(ctx, doc)
		if err == nil {
			return nil
		}
		switch duplicateIndex(err) {
		case "":
			return err
		case "_id_":
			if attempt > 1 {
				// an earlier attempt landed before its reply was lost
				return nil
			}
			return shared.NewConflictError("Order already exists")
		case idxOrdersInvoice:
			return shared.WrapDomainError(shared.CodeDuplicateInvoice, "Invoice number already used", err)
		default:
			return shared.WrapDomainError(shared.CodeConflict, "Order conflicts with an existing record", err)
		}
	})
}

// Update replaces the order when its stored status and version still match
func (r *OrderRepository) Update(ctx context.Context, o *order.Order, expected []order.Status) error {
	doc := toOrderDoc(o)
	doc.Version = o.Version + 1

	filter := bson.D{
		{Key: "_id", Value: o.ID},
		{Key: "organization_id", Value: o.TenantID},
		{Key: "version", Value: o.Version},
	}
	if len(expected) > 0 {
		filter = append(filter, bson.E{Key: "status", Value: bson.D{{Key: "$in", Value: statusStrings(expected)}}})
	}

	err := r.store.run(ctx, "orders.update", func(ctx context.Context, attempt int) error {
		res, err := r.coll.ReplaceOne(ctx, filter, doc)
		if err != nil {
			if duplicateIndex(err) == idxOrdersInvoice {
				return shared.WrapDomainError(shared.CodeDuplicateInvoice, "Invoice number already used", err)
			}
			return err
		}
		if res.MatchedCount == 1 {
			return nil
		}
		return r.explainMiss(ctx, o, doc, attempt)
	})
	if err != nil {
		return err
	}
	o.Version = doc.Version
	return nil
}

// explainMiss decides why a conditional replace matched nothing
func (r *OrderRepository) explainMiss(ctx context.Context, o *order.Order, written orderDoc, attempt int) error {
	var current orderDoc
	err := r.coll.FindOne(ctx, bson.D{
		{Key: "_id", Value: o.ID},
		{Key: "organization_id", Value: o.TenantID},
	}, options.FindOne().SetProjection(bson.D{
		{Key: "version", Value: 1},
		{Key: "status", Value: 1},
		{Key: "updated_at", Value: 1},
	})).Decode(&current)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return notFound("Order")
	}
	if err != nil {
		return err
	}
	if attempt > 1 && current.Version == written.Version && current.UpdatedAt == written.UpdatedAt {
		return nil
	}
	return shared.NewStatusConflictError(fmt.Sprintf("Order changed concurrently (status %s)", current.Status))
}

// Get loads one order of the tenant
func (r *OrderRepository) Get(ctx context.Context, tenantID, id string) (*order.Order, error) {
	var doc orderDoc
	err := r.store.run(ctx, "orders.get", func(ctx context.Context, _ int) error {
		err := r.coll.FindOne(ctx, bson.D{
			{Key: "_id", Value: id},
			{Key: "organization_id", Value: tenantID},
		}).Decode(&doc)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return notFound("Order")
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return doc.toDomain(), nil
}

// List returns matching orders, newest first
func (r *OrderRepository) List(ctx context.Context, tenantID string, filter order.Filter) ([]*order.Order, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(filter.EffectiveLimit()))
	if projection := buildProjection(filter.Fields); projection != nil {
		opts.SetProjection(projection)
	}

	var docs []orderDoc
	err := r.store.run(ctx, "orders.list", func(ctx context.Context, _ int) error {
		cursor, err := r.coll.Find(ctx, buildOrderFilter(tenantID, filter), opts)
		if err != nil {
			return err
		}
		docs = docs[:0]
		return cursor.All(ctx, &docs)
	})
	if err != nil {
		return nil, err
	}

	orders := make([]*order.Order, 0, len(docs))
	for _, d := range docs {
		orders = append(orders, d.toDomain())
	}
	return orders, nil
}

// Count returns the number of matching orders
func (r *OrderRepository) Count(ctx context.Context, tenantID string, filter order.Filter) (int64, error) {
	var n int64
	err := r.store.run(ctx, "orders.count", func(ctx context.Context, _ int) error {
		var err error
		n, err = r.coll.CountDocuments(ctx, buildOrderFilter(tenantID, filter))
		return err
	})
	return n, err
}

// NextInvoiceNumber increments the tenant's invoice counter and returns the new value
func (r *OrderRepository) NextInvoiceNumber(ctx context.Context, tenantID string) (int64, error) {
	var out struct {
		Seq int64 `bson:"seq"`
	}
	filter := bson.D{{Key: "_id", Value: "invoice:" + tenantID}}
	update := bson.D{{Key: "$inc", Value: bson.D{{Key: "seq", Value: int64(1)}}}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	err := r.store.run(ctx, "counters.next", func(ctx context.Context, _ int) error {
		err := r.counters.FindOneAndUpdate(ctx, filter, update, opts).Decode(&out)
		if err != nil && mongo.IsDuplicateKeyError(err) {
			// two first-time upserts raced; the document exists now
			err = r.counters.FindOneAndUpdate(ctx, filter, update, opts).Decode(&out)
		}
		return err
	})
	if err != nil {
		return 0, err
	}
	return out.Seq, nil
}

// CustomerLedgers aggregates outstanding credit per customer phone
func (r *OrderRepository) CustomerLedgers(ctx context.Context, tenantID string) ([]order.CustomerLedger, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{
			{Key: "organization_id", Value: tenantID},
			{Key: "status", Value: string(order.StatusCompleted)},
			{Key: "balance_amount", Value: bson.D{{Key: "$gt", Value: primitive.NewDecimal128(0, 0)}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: -1}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$customer_phone"},
			{Key: "customer_name", Value: bson.D{{Key: "$first", Value: "$customer_name"}}},
			{Key: "outstanding", Value: bson.D{{Key: "$sum", Value: "$balance_amount"}}},
			{Key: "order_count", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "last_order_date", Value: bson.D{{Key: "$first", Value: "$created_at"}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "outstanding", Value: -1}, {Key: "_id", Value: 1}}}},
	}

	var rows []struct {
		Phone         string               `bson:"_id"`
		CustomerName  string               `bson:"customer_name"`
		Outstanding   primitive.Decimal128 `bson:"outstanding"`
		OrderCount    int                  `bson:"order_count"`
		LastOrderDate string               `bson:"last_order_date"`
	}
	err := r.store.run(ctx, "orders.ledgers", func(ctx context.Context, _ int) error {
		cursor, err := r.coll.Aggregate(ctx, pipeline)
		if err != nil {
			return err
		}
		rows = rows[:0]
		return cursor.All(ctx, &rows)
	})
	if err != nil {
		return nil, err
	}

	ledgers := make([]order.CustomerLedger, 0, len(rows))
	for _, row := range rows {
		ledgers = append(ledgers, order.CustomerLedger{
			CustomerName:  row.CustomerName,
			CustomerPhone: row.Phone,
			Outstanding:   fromDecimal128(row.Outstanding),
			OrderCount:    row.OrderCount,
			LastOrderDate: parseTime(row.LastOrderDate),
		})
	}
	return ledgers, nil
}

// CountActiveByTable counts active orders per dine-in table
func (r *OrderRepository) CountActiveByTable(ctx context.Context, tenantID string) (map[string]int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{
			{Key: "organization_id", Value: tenantID},
			{Key: "status", Value: bson.D{{Key: "$in", Value: statusStrings(order.ActiveStatuses())}}},
			{Key: "table_id", Value: bson.D{{Key: "$ne", Value: order.CounterTableID}}},
		}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$table_id"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}

	counts := make(map[string]int)
	err := r.store.run(ctx, "orders.active_by_table", func(ctx context.Context, _ int) error {
		cursor, err := r.coll.Aggregate(ctx, pipeline)
		if err != nil {
			return err
		}
		var rows []struct {
			TableID string `bson:"_id"`
			Count   int    `bson:"count"`
		}
		if err := cursor.All(ctx, &rows); err != nil {
			return err
		}
		clear(counts)
		for _, row := range rows {
			if row.TableID != "" {
				counts[row.TableID] = row.Count
			}
		}
		return nil
	})
	if err != nil {
		r.store.logger.Debug("Active order count failed", zap.String("tenant_id", tenantID), zap.Error(err))
		return nil, err
	}
	return counts, nil
}

// buildOrderFilter translates an order.Filter into a query document
func buildOrderFilter(tenantID string, f order.Filter) bson.D {
	q := bson.D{{Key: "organization_id", Value: tenantID}}

	status := bson.D{}
	if len(f.Statuses) > 0 {
		status = append(status, bson.E{Key: "$in", Value: statusStrings(f.Statuses)})
	}
	if len(f.ExcludeStatuses) > 0 {
		status = append(status, bson.E{Key: "$nin", Value: statusStrings(f.ExcludeStatuses)})
	}
	if len(status) > 0 {
		q = append(q, bson.E{Key: "status", Value: status})
	}

	created := bson.D{}
	if !f.CreatedFrom.IsZero() {
		created = append(created, bson.E{Key: "$gte", Value: formatTime(f.CreatedFrom)})
	}
	if !f.CreatedTo.IsZero() {
		created = append(created, bson.E{Key: "$lt", Value: formatTime(f.CreatedTo)})
	}
	if len(created) > 0 {
		q = append(q, bson.E{Key: "created_at", Value: created})
	}

	if f.HasBalance {
		q = append(q, bson.E{Key: "balance_amount", Value: bson.D{{Key: "$gt", Value: primitive.NewDecimal128(0, 0)}}})
	}
	if f.CustomerPhone != "" {
		q = append(q, bson.E{Key: "customer_phone", Value: f.CustomerPhone})
	}
	if f.TableID != "" {
		q = append(q, bson.E{Key: "table_id", Value: f.TableID})
	}
	if f.BillableOnly {
		q = append(q, bson.E{Key: "$or", Value: bson.A{
			bson.D{{Key: "status", Value: bson.D{{Key: "$in", Value: statusStrings(order.BilledStatuses())}}}},
			bson.D{{Key: "payment_received", Value: bson.D{{Key: "$gt", Value: primitive.NewDecimal128(0, 0)}}}},
		}})
	}
	return q
}

// buildProjection returns nil when every field is wanted
func buildProjection(fields []string) bson.D {
	if len(fields) == 0 {
		return nil
	}
	projection := bson.D{
		{Key: "_id", Value: 1},
		{Key: "organization_id", Value: 1},
		{Key: "status", Value: 1},
		{Key: "version", Value: 1},
		{Key: "created_at", Value: 1},
	}
	seen := map[string]bool{"_id": true, "organization_id": true, "status": true, "version": true, "created_at": true}
	for _, f := range fields {
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		projection = append(projection, bson.E{Key: f, Value: 1})
	}
	return projection
}

func statusStrings(statuses []order.Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
