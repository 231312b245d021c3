// Package storage provides the MongoDB prediction log.
package storage

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/leeaandrob/fusecast/internal/models"
)

// minWriteInterval throttles the sink; the log is an audit trail, not a
// hot path, and a burst of requests should not hammer the cluster.
const minWriteInterval = 5 * time.Second

// Store persists predictions and serves recent history.
type Store struct {
	client      *mongo.Client
	db          *mongo.Database
	predictions *mongo.Collection

	mu        sync.Mutex
	lastWrite time.Time
}

// NewStore creates a new storage connection.
func NewStore(ctx context.Context, uri, dbName string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	db := client.Database(dbName)
	log.Info().Str("db", dbName).Msg("Connected to MongoDB")

	store := &Store{
		client:      client,
		db:          db,
		predictions: db.Collection("predictions"),
	}

	if err := store.createIndexes(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to create some indexes")
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) createIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "generated_at", Value: -1}}},
		{Keys: bson.D{{Key: "event.market_slug", Value: 1}, {Key: "generated_at", Value: -1}}},
		{Keys: bson.D{{Key: "requester_id", Value: 1}, {Key: "generated_at", Value: -1}}},
	}
	_, err := s.predictions.Indexes().CreateMany(ctx, indexes)
	return err
}

// Record writes one prediction. Writes closer together than the minimum
// interval are dropped silently: losing an audit row is preferable to
// backpressure on the pipeline.
func (s *Store) Record(ctx context.Context, p *models.Prediction) error {
	s.mu.Lock()
	if time.Since(s.lastWrite) < minWriteInterval {
		s.mu.Unlock()
		log.Debug().Msg("Prediction write rate-limited, dropping")
		return nil
	}
	s.lastWrite = time.Now()
	s.mu.Unlock()

	_, err := s.predictions.InsertOne(ctx, p)
	if err != nil {
		return err
	}

	log.Debug().
		Str("slug", p.Event.MarketSlug).
		Int("outcomes", len(p.Outcomes)).
		Msg("Prediction recorded")
	return nil
}

// RecentPredictions returns the newest predictions, most recent first.
func (s *Store) RecentPredictions(ctx context.Context, limit int) ([]models.Prediction, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "generated_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := s.predictions.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []models.Prediction
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PredictionsForSlug returns the history for one market.
func (s *Store) PredictionsForSlug(ctx context.Context, slug string, limit int) ([]models.Prediction, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "generated_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := s.predictions.Find(ctx, bson.M{"event.market_slug": slug}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []models.Prediction
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
