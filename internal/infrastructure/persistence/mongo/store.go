package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/opentoworkprojects/bill-sub001/internal/infrastructure/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Collection names
const (
	ordersCollection   = "orders"
	tablesCollection   = "tables"
	menuCollection     = "menu_items"
	profileCollection  = "business_profiles"
	countersCollection = "counters"
)

// Index names. Unique violations are told apart by index name.
const (
	idxOrdersCreated = "org_created_at"
	idxOrdersStatus  = "org_status"
	idxOrdersPhone   = "org_customer_phone"
	idxOrdersTable   = "org_table_status"
	idxOrdersInvoice = "uniq_org_invoice_number"
	idxTablesNumber  = "uniq_org_table_number"
	idxMenuName      = "uniq_org_menu_name"
	idxMenuAvailable = "org_available_category"
)

// Store owns the MongoDB connection and hands out repositories bound to it
type Store struct {
	client     *mongo.Client
	db         *mongo.Database
	logger     *zap.Logger
	timeout    time.Duration
	maxRetries int
}

// Connect dials MongoDB, pings it and returns a Store
func Connect(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	clientOptions := options.Client().ApplyURI(cfg.URI).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(cfg.Timeout).
		SetMaxPoolSize(cfg.MaxPool).
		SetAppName("pos-billing")

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("cannot ping MongoDB: %w", err)
	}

	logger.Info("Connected to MongoDB", zap.String("database", cfg.Name))
	return NewStore(client.Database(cfg.Name), logger, cfg.Timeout, cfg.MaxRetries), nil
}

// NewStore wraps an existing database handle
func NewStore(db *mongo.Database, logger *zap.Logger, timeout time.Duration, maxRetries int) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Store{
		client:     db.Client(),
		db:         db,
		logger:     logger,
		timeout:    timeout,
		maxRetries: maxRetries,
	}
}

// EnsureIndexes creates the indexes the repositories rely on. It is idempotent.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	specs := map[string][]mongo.IndexModel{
		ordersCollection: {
			{
				Keys:    bson.D{{Key: "organization_id", Value: 1}, {Key: "created_at", Value: -1}},
				Options: options.Index().SetName(idxOrdersCreated),
			},
			{
				Keys:    bson.D{{Key: "organization_id", Value: 1}, {Key: "status", Value: 1}},
				Options: options.Index().SetName(idxOrdersStatus),
			},
			{
				Keys:    bson.D{{Key: "organization_id", Value: 1}, {Key: "customer_phone", Value: 1}},
				Options: options.Index().SetName(idxOrdersPhone),
			},
			{
				Keys:    bson.D{{Key: "organization_id", Value: 1}, {Key: "table_id", Value: 1}, {Key: "status", Value: 1}},
				Options: options.Index().SetName(idxOrdersTable),
			},
			{
				// Partial rather than sparse: organization_id is always present, so a sparse
				// compound index would still index orders without an invoice number.
				Keys: bson.D{{Key: "organization_id", Value: 1}, {Key: "invoice_number", Value: 1}},
				Options: options.Index().SetName(idxOrdersInvoice).SetUnique(true).
					SetPartialFilterExpression(bson.D{{Key: "invoice_number", Value: bson.D{{Key: "$exists", Value: true}}}}),
			},
		},
		tablesCollection: {
			{
				Keys:    bson.D{{Key: "organization_id", Value: 1}, {Key: "table_number", Value: 1}},
				Options: options.Index().SetName(idxTablesNumber).SetUnique(true),
			},
		},
		menuCollection: {
			{
				Keys: bson.D{{Key: "organization_id", Value: 1}, {Key: "name", Value: 1}},
				Options: options.Index().SetName(idxMenuName).SetUnique(true).
					SetCollation(&options.Collation{Locale: "en", Strength: 2}),
			},
			{
				Keys:    bson.D{{Key: "organization_id", Value: 1}, {Key: "available", Value: 1}, {Key: "category", Value: 1}},
				Options: options.Index().SetName(idxMenuAvailable),
			},
		},
	}

	for name, models := range specs {
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("cannot create indexes on %s: %w", name, err)
		}
	}
	s.logger.Info("MongoDB indexes ensured")
	return nil
}

// Ping checks the connection within the store timeout
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.client.Ping(ctx, nil)
}

// Close disconnects the client
func (s *Store) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("cannot disconnect from MongoDB: %w", err)
	}
	s.logger.Info("Disconnected from MongoDB")
	return nil
}

// Database returns the underlying database handle
func (s *Store) Database() *mongo.Database {
	return s.db
}

// Orders returns the order repository
func (s *Store) Orders() *OrderRepository {
	return &OrderRepository{store: s, coll: s.db.Collection(ordersCollection), counters: s.db.Collection(countersCollection)}
}

// Tables returns the table repository
func (s *Store) Tables() *TableRepository {
	return &TableRepository{store: s, coll: s.db.Collection(tablesCollection)}
}

// Menu returns the menu repository
func (s *Store) Menu() *MenuRepository {
	return &MenuRepository{store: s, coll: s.db.Collection(menuCollection)}
}

// Settings returns the business profile repository
func (s *Store) Settings() *SettingsRepository {
	return &SettingsRepository{store: s, coll: s.db.Collection(profileCollection)}
}
