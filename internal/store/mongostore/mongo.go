// Package mongostore is the MongoDB store backend.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/anatolykoptev/go_edunote/internal/store"
)

// DefaultDatabase is used when the URI names no database.
const DefaultDatabase = "edunote"

// Store is a MongoDB-backed store.Store.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	users  *mongo.Collection
	videos *mongo.Collection
	notes  *mongo.Collection
}

var _ store.Store = (*Store)(nil)

// Connect dials uri, pings, and ensures indexes on database name.
func Connect(ctx context.Context, uri, name string) (*Store, error) {
	if uri == "" {
		return nil, errors.New("MONGO_URI is required")
	}
	if name == "" {
		name = DefaultDatabase
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	db := client.Database(name)
	s := &Store{
		client: client,
		db:     db,
		users:  db.Collection("users"),
		videos: db.Collection("videos"),
		notes:  db.Collection("notes"),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo indexes: %w", err)
	}
	slog.Info("mongo store connected", slog.String("database", name))
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	if _, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return err
	}
	if _, err := s.videos.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "videoId", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return err
	}
	_, err := s.notes.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user", Value: 1}, {Key: "isPinned", Value: -1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "user", Value: 1}, {Key: "folder", Value: 1}}},
		{Keys: bson.D{{Key: "tags", Value: 1}}},
	})
	return err
}

func (s *Store) Ping(ctx context.Context) error { return s.client.Ping(ctx, nil) }

func (s *Store) Close() error { return s.client.Disconnect(context.Background()) }

// Reset drops the database and recreates indexes. Used by integration tests.
func (s *Store) Reset(ctx context.Context) error {
	if err := s.db.Drop(ctx); err != nil {
		return err
	}
	return s.ensureIndexes(ctx)
}

// --- Users ---

func (s *Store) CreateUser(ctx context.Context, u *store.User) error {
	store.PrepareUser(u)
	_, err := s.users.InsertOne(ctx, u)
	return mapErr(err)
}

func (s *Store) UserByID(ctx context.Context, id string) (*store.User, error) {
	return findOne[store.User](ctx, s.users, bson.M{"_id": id})
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*store.User, error) {
	return findOne[store.User](ctx, s.users, bson.M{"email": email})
}

// --- Videos ---

func (s *Store) CreateVideo(ctx context.Context, v *store.Video) error {
	store.PrepareVideo(v)
	_, err := s.videos.InsertOne(ctx, v)
	return mapErr(err)
}

func (s *Store) VideoByID(ctx context.Context, id string) (*store.Video, error) {
	return findOne[store.Video](ctx, s.videos, bson.M{"_id": id})
}

func (s *Store) VideoByVideoID(ctx context.Context, videoID string) (*store.Video, error) {
	return findOne[store.Video](ctx, s.videos, bson.M{"videoId": videoID})
}

// --- Notes ---

func (s *Store) CreateNote(ctx context.Context, n *store.Note) error {
	store.PrepareNote(n)
	_, err := s.notes.InsertOne(ctx, n)
	return mapErr(err)
}

func (s *Store) NoteByID(ctx context.Context, id string) (*store.Note, error) {
	n, err := findOne[store.Note](ctx, s.notes, bson.M{"_id": id})
	if err != nil {
		return nil, err
	}
	n.Normalize()
	return n, nil
}

func (s *Store) UpdateNote(ctx context.Context, n *store.Note) error {
	n.Normalize()
	n.UpdatedAt = store.Now()
	set := bson.M{
		"title":           n.Title,
		"content":         n.Content,
		"structuredNotes": n.Structured,
		"highlights":      n.Highlights,
		"tags":            n.Tags,
		"folder":          n.Folder,
		"isTranslated":    n.IsTranslated,
		"isPinned":        n.IsPinned,
		"updatedAt":       n.UpdatedAt,
	}
	update := bson.M{"$set": set}
	if n.Translation != nil {
		set["translatedContent"] = n.Translation
	} else {
		update["$unset"] = bson.M{"translatedContent": ""}
	}
	res, err := s.notes.UpdateOne(ctx, bson.M{"_id": n.ID}, update)
	if err != nil {
		return mapErr(err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteNote(ctx context.Context, id string) error {
	res, err := s.notes.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return mapErr(err)
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListNotes(ctx context.Context, f store.NoteFilter) ([]store.Note, error) {
	cursor, err := s.notes.Find(ctx, noteQuery(f), findOptions(f))
	if err != nil {
		return nil, fmt.Errorf("failed to query notes: %w", err)
	}
	defer cursor.Close(ctx)

	notes := []store.Note{}
	for cursor.Next(ctx) {
		var n store.Note
		if err := cursor.Decode(&n); err != nil {
			return nil, fmt.Errorf("decode note: %w", err)
		}
		n.CreatedAt, n.UpdatedAt = n.CreatedAt.UTC(), n.UpdatedAt.UTC()
		n.Normalize()
		notes = append(notes, n)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return notes, nil
}

func noteQuery(f store.NoteFilter) bson.M {
	q := bson.M{"user": f.UserID}
	if f.Folder != "" {
		q["folder"] = f.Folder
	}
	if len(f.Tags) > 0 {
		q["tags"] = bson.M{"$in": f.Tags}
	}
	if f.Search != "" {
		re := bson.M{"$regex": regexp.QuoteMeta(f.Search), "$options": "i"}
		q["$or"] = bson.A{bson.M{"title": re}, bson.M{"content": re}}
	}
	return q
}

func findOptions(f store.NoteFilter) *options.FindOptions {
	opts := options.Find().SetSort(bson.D{{Key: "isPinned", Value: -1}, {Key: "createdAt", Value: -1}})
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}
	return opts
}

type timestamped interface {
	store.User | store.Video | store.Note
}

func findOne[T timestamped](ctx context.Context, c *mongo.Collection, filter bson.M) (*T, error) {
	var out T
	if err := c.FindOne(ctx, filter).Decode(&out); err != nil {
		return nil, mapErr(err)
	}
	normalizeTimes(&out)
	return &out, nil
}

func normalizeTimes(v any) {
	switch r := v.(type) {
	case *store.User:
		r.CreatedAt, r.UpdatedAt = r.CreatedAt.UTC(), r.UpdatedAt.UTC()
	case *store.Video:
		r.CreatedAt, r.UpdatedAt = r.CreatedAt.UTC(), r.UpdatedAt.UTC()
	case *store.Note:
		r.CreatedAt, r.UpdatedAt = r.CreatedAt.UTC(), r.UpdatedAt.UTC()
	}
}

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return store.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", store.ErrDuplicate, err)
	}
	return err
}
