// Package mongostore is a Gateway backed by a MongoDB collection.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"

	"github.com/cedd82/mongoSchemaVersion/internal/doc"
	"github.com/cedd82/mongoSchemaVersion/internal/store"
)

// Config configures a Store.
type Config struct {
	URI        string
	Database   string
	Collection string

	// MaxPoolSize caps driver connections. Zero keeps the driver default.
	MaxPoolSize uint64

	// ConnectTimeout bounds the initial ping.
	ConnectTimeout time.Duration

	Logger *zap.Logger
}

// DefaultConfig returns a Config for a local server.
func DefaultConfig() Config {
	return Config{
		URI:            "mongodb://localhost:27017",
		Database:       "schemav",
		Collection:     "documents",
		ConnectTimeout: 10 * time.Second,
		Logger:         zap.NewNop(),
	}
}

// Store reads and writes one collection. The driver's connection pool makes
// it safe for concurrent use.
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
	logger *zap.Logger
}

var _ store.Gateway = (*Store)(nil)

// Open connects to the server and verifies it answers.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Database == "" || cfg.Collection == "" {
		return nil, errors.New("mongo database and collection are required")
	}

	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(cfg.MaxPoolSize)
	}
	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx := ctx
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	cfg.Logger.Debug("mongo store opened",
		zap.String("database", cfg.Database),
		zap.String("collection", cfg.Collection))

	return &Store{
		client: client,
		coll:   client.Database(cfg.Database).Collection(cfg.Collection),
		logger: cfg.Logger,
	}, nil
}

func byID(id string) bson.D {
	return bson.D{{Key: doc.IDField, Value: id}}
}

func (s *Store) Fetch(ctx context.Context, id string) (doc.Raw, error) {
	body, err := s.coll.FindOne(ctx, byID(id)).Raw()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.NotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch document %s: %w", id, err)
	}

	raw, err := doc.FromBSON(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode document %s: %w", id, err)
	}
	return raw, nil
}

func (s *Store) Upsert(ctx context.Context, raw doc.Raw) error {
	id, err := raw.ID()
	if err != nil {
		return err
	}
	if _, err := raw.Version(); err != nil {
		return fmt.Errorf("document %s: %w", id, err)
	}

	_, err = s.coll.ReplaceOne(ctx, byID(id), raw.D(), options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert document %s: %w", id, err)
	}
	return nil
}

// Reset deletes every document but keeps the collection and its indexes.
func (s *Store) Reset(ctx context.Context) error {
	res, err := s.coll.DeleteMany(ctx, bson.D{})
	if err != nil {
		return fmt.Errorf("failed to reset collection: %w", err)
	}
	s.logger.Debug("collection reset", zap.Int64("deleted", res.DeletedCount))
	return nil
}

type versionCount struct {
	Version bson.RawValue `bson:"_id"`
	Count   int           `bson:"count"`
}

// Stats groups the collection by schema version on the server.
func (s *Store) Stats(ctx context.Context) (store.Stats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$" + doc.VersionField, doc.DefaultVersion}}}},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}

	cursor, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return store.Stats{}, fmt.Errorf("failed to aggregate document stats: %w", err)
	}
	var groups []versionCount
	if err := cursor.All(ctx, &groups); err != nil {
		return store.Stats{}, fmt.Errorf("failed to read document stats: %w", err)
	}

	stats := store.Stats{ByVersion: make(map[int]int)}
	for _, g := range groups {
		v, err := doc.Raw{doc.VersionField: g.Version}.Version()
		if err != nil {
			return store.Stats{}, err
		}
		stats.ByVersion[v] += g.Count
		stats.Documents += g.Count
	}
	return stats, nil
}

// Close disconnects the client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from MongoDB: %w", err)
	}
	return nil
}
