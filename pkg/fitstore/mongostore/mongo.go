// Package mongostore stores fits in the MongoDB collection item_fits.
//
// Documents are keyed by a unique compound index on (userId, poseId,
// itemId). Saving is a single upsert on that key.
package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/tryon/pkg/fit"
	"github.com/matzehuels/tryon/pkg/fitstore"
)

// Collection is the name of the fits collection.
const Collection = "item_fits"

// Store is a MongoDB-backed [fitstore.Store].
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// Connect dials uri, selects database and ensures the unique index.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	s := &Store{client: client, coll: client.Database(database).Collection(Collection)}
	if err := s.EnsureIndexes(ctx); err != nil {
		client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

// EnsureIndexes creates the unique (userId, poseId, itemId) index.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "poseId", Value: 1}, {Key: "itemId", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("user_pose_item"),
	})
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

func (s *Store) Name() string { return "mongo" }

func (s *Store) Fetch(ctx context.Context, user, poseID string, itemIDs []string) ([]fit.Record, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}
	cur, err := s.coll.Find(ctx, fetchFilter(user, poseID, itemIDs))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []document
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]fit.Record, len(docs))
	for i, d := range docs {
		out[i] = d.record()
	}
	return out, nil
}

func (s *Store) Upsert(ctx context.Context, rec fit.Record) (fit.Record, error) {
	filter, update := upsertOps(rec)
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc document
	if err := s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		return fit.Record{}, err
	}
	return doc.record(), nil
}

func (s *Store) Delete(ctx context.Context, key fit.Key) error {
	_, err := s.coll.DeleteOne(ctx, keyFilter(key))
	return err
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

type transformDoc struct {
	X           float64 `bson:"x"`
	Y           float64 `bson:"y"`
	Scale       float64 `bson:"scale"`
	RotationDeg float64 `bson:"rotationDeg"`
}

type meshDoc struct {
	X float64 `bson:"x"`
	Y float64 `bson:"y"`
}

type document struct {
	ID        string       `bson:"_id"`
	UserID    string       `bson:"userId"`
	PoseID    string       `bson:"poseId"`
	ItemID    string       `bson:"itemId"`
	Transform transformDoc `bson:"transform"`
	Mesh      []meshDoc    `bson:"mesh,omitempty"`
	UpdatedAt time.Time    `bson:"updatedAt"`
}

func toDocument(r fit.Record) document {
	d := document{
		ID:     r.ID,
		UserID: r.UserID,
		PoseID: r.PoseID,
		ItemID: r.ItemID,
		Transform: transformDoc{
			X:           r.Transform.X,
			Y:           r.Transform.Y,
			Scale:       r.Transform.Scale,
			RotationDeg: r.Transform.RotationDeg,
		},
		UpdatedAt: r.UpdatedAt,
	}
	for _, p := range r.Mesh {
		d.Mesh = append(d.Mesh, meshDoc{X: p.X, Y: p.Y})
	}
	return d
}

func (d document) record() fit.Record {
	r := fit.Record{
		ID:     d.ID,
		UserID: d.UserID,
		PoseID: d.PoseID,
		ItemID: d.ItemID,
		Transform: fit.Transform{
			X:           d.Transform.X,
			Y:           d.Transform.Y,
			Scale:       d.Transform.Scale,
			RotationDeg: d.Transform.RotationDeg,
		},
		UpdatedAt: d.UpdatedAt.UTC(),
	}
	for _, p := range d.Mesh {
		r.Mesh = append(r.Mesh, fit.MeshPoint{X: p.X, Y: p.Y})
	}
	return r
}

func keyFilter(k fit.Key) bson.D {
	return bson.D{{Key: "userId", Value: k.User}, {Key: "poseId", Value: k.Pose}, {Key: "itemId", Value: k.Item}}
}

func fetchFilter(user, poseID string, itemIDs []string) bson.D {
	return bson.D{
		{Key: "userId", Value: user},
		{Key: "poseId", Value: poseID},
		{Key: "itemId", Value: bson.D{{Key: "$in", Value: itemIDs}}},
	}
}

// upsertOps returns the filter and update of a save. The record id is only
// written when the document is created.
func upsertOps(r fit.Record) (filter, update bson.D) {
	d := toDocument(r)
	set := bson.D{
		{Key: "transform", Value: d.Transform},
		{Key: "updatedAt", Value: d.UpdatedAt},
	}
	unset := bson.D{}
	if len(d.Mesh) > 0 {
		set = append(set, bson.E{Key: "mesh", Value: d.Mesh})
	} else {
		unset = append(unset, bson.E{Key: "mesh", Value: ""})
	}
	update = bson.D{
		{Key: "$set", Value: set},
		{Key: "$setOnInsert", Value: bson.D{{Key: "_id", Value: d.ID}}},
	}
	if len(unset) > 0 {
		update = append(update, bson.E{Key: "$unset", Value: unset})
	}
	return keyFilter(r.Key()), update
}

var _ fitstore.Store = (*Store)(nil)
