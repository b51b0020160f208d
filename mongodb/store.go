/*
Package mongodb implements the page store on MongoDB. Pages are upserted by
URL into one collection, so refetching a page rewrites its document instead
of growing the collection.
*/
package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trawler-io/trawler"
)

const pagesCollection = "pages"

// Store implements trawler.PageStore.
type Store struct {
	client *mongo.Client
	pages  *mongo.Collection
}

// NewStore connects to the given mongodb:// URL and binds to the pages
// collection of the named database.
func NewStore(ctx context.Context, url, db string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(url))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, err
	}
	return &Store{
		client: client,
		pages:  client.Database(db).Collection(pagesCollection),
	}, nil
}

// Init creates the indexes the store queries depend on. Safe to call on
// every startup; existing indexes are left alone.
func (s *Store) Init(ctx context.Context) error {
	_, err := s.pages.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "url", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "domain", Value: 1}}},
		{Keys: bson.D{{Key: "timestamp", Value: 1}}},
	})
	return err
}

// Drop deletes the pages collection and its indexes.
func (s *Store) Drop(ctx context.Context) error {
	return s.pages.Drop(ctx)
}

// Close tears down the underlying connection pool.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// SavePage upserts the page keyed by its URL.
func (s *Store) SavePage(ctx context.Context, page *trawler.Page) error {
	_, err := s.pages.UpdateOne(ctx,
		bson.M{"url": page.URL},
		bson.M{"$set": page},
		options.Update().SetUpsert(true))
	return err
}

// GetPage returns the stored page for url, or nil when none exists.
func (s *Store) GetPage(ctx context.Context, url string) (*trawler.Page, error) {
	var page trawler.Page
	err := s.pages.FindOne(ctx, bson.M{"url": url}).Decode(&page)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &page, nil
}

func (s *Store) CountPages(ctx context.Context) (int64, error) {
	return s.pages.CountDocuments(ctx, bson.D{})
}

// DomainCounts returns the top domains by stored page count, descending.
func (s *Store) DomainCounts(ctx context.Context, limit int) ([]trawler.DomainCount, error) {
	cursor, err := s.pages.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$domain"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}}}},
		{{Key: "$limit", Value: limit}},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var counts []trawler.DomainCount
	if err := cursor.All(ctx, &counts); err != nil {
		return nil, err
	}
	return counts, nil
}

// StatusCountsSince groups pages stored at or after since by HTTP status.
func (s *Store) StatusCountsSince(ctx context.Context, since time.Time) (map[int]int64, error) {
	cursor, err := s.pages.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.D{
			{Key: "timestamp", Value: bson.D{{Key: "$gte", Value: trawler.UnixSeconds(since)}}},
		}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$status"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	counts := map[int]int64{}
	for cursor.Next(ctx) {
		var row struct {
			Status int   `bson:"_id"`
			Count  int64 `bson:"count"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, err
		}
		counts[row.Status] = row.Count
	}
	return counts, cursor.Err()
}

// EachPageSince streams the url and outbound links of every page stored at
// or after since. The callback returning false stops the walk early.
func (s *Store) EachPageSince(ctx context.Context, since time.Time, fn func(url string, links []string) bool) error {
	cursor, err := s.pages.Find(ctx,
		bson.M{"timestamp": bson.M{"$gte": trawler.UnixSeconds(since)}},
		options.Find().SetProjection(bson.M{"url": 1, "links": 1}))
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var row struct {
			URL   string   `bson:"url"`
			Links []string `bson:"links"`
		}
		if err := cursor.Decode(&row); err != nil {
			return err
		}
		if !fn(row.URL, row.Links) {
			return nil
		}
	}
	return cursor.Err()
}
