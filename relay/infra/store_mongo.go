package infra

import (
	"context"
	"errors"
	"time"

	"rebuild-relay/relay/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore implementa domain.KVStore numa collection com um documento por chave.
//
// O índice TTL do Mongo roda a cada ~60s, então a leitura também filtra
// documentos vencidos: a semântica de expiração não depende do monitor.
type MongoStore struct {
	coll *mongo.Collection
	now  func() time.Time
}

type mongoEntry struct {
	Key       string     `bson:"_id"`
	Value     string     `bson:"value"`
	ExpiresAt *time.Time `bson:"expires_at,omitempty"`
	UpdatedAt time.Time  `bson:"updated_at"`
}

func NewMongoStore(coll *mongo.Collection) *MongoStore {
	return &MongoStore{coll: coll, now: time.Now}
}

// EnsureIndexes cria o índice TTL em expires_at. Idempotente.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0).SetName("expires_at_ttl"),
	})
	return err
}

func (s *MongoStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	filter := bson.M{
		"_id": key,
		"$or": bson.A{
			bson.M{"expires_at": bson.M{"$exists": false}},
			bson.M{"expires_at": bson.M{"$gt": s.now().UTC()}},
		},
	}

	var ent mongoEntry
	err := s.coll.FindOne(ctx, filter).Decode(&ent)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(ent.Value), true, nil
}

func (s *MongoStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	now := s.now().UTC()
	ent := mongoEntry{Key: key, Value: string(value), UpdatedAt: now}
	if ttl > 0 {
		exp := now.Add(ttl)
		ent.ExpiresAt = &exp
	}

	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": key}, ent, options.Replace().SetUpsert(true))
	return err
}

func (s *MongoStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := s.coll.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": keys}})
	return err
}

var _ domain.KVStore = (*MongoStore)(nil)
