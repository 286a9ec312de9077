package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/example/comment-tree/services/comments/internal/pathcodec"
)

// MongoCommentStore persists comments as documents in MongoDB.
type MongoCommentStore struct {
	coll *mongo.Collection
	log  *zap.Logger
}

// NewMongoCommentStore creates a store backed by the comments collection of db.
func NewMongoCommentStore(db *mongo.Database, log *zap.Logger) *MongoCommentStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &MongoCommentStore{
		coll: db.Collection(collectionName),
		log:  log.Named("comments.mongo"),
	}
}

// EnsureIndexes creates the id and path indexes. Prefix queries on
// materialized_path stay correct without them, only slower.
func (s *MongoCommentStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "comment_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "materialized_path", Value: 1}},
		},
	})
	if err != nil {
		return fmt.Errorf("create comment indexes: %w", err)
	}
	return nil
}

func (s *MongoCommentStore) Insert(ctx context.Context, c Comment) error {
	res, err := s.coll.InsertOne(ctx, normalize(c))
	if err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	if res.InsertedID == nil {
		return errors.New("insert comment: no document id returned")
	}
	return nil
}

func (s *MongoCommentStore) FindByID(ctx context.Context, commentID string) (Comment, error) {
	var c Comment
	err := s.coll.FindOne(ctx, bson.M{"comment_id": commentID}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Comment{}, ErrNotFound
	}
	if err != nil {
		return Comment{}, fmt.Errorf("find comment: %w", err)
	}
	return normalize(c), nil
}

func (s *MongoCommentStore) AppendReaction(ctx context.Context, commentID string, r CommentReaction) error {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"comment_id": commentID},
		bson.M{"$push": bson.M{"reactions": r}},
	)
	if err != nil {
		return fmt.Errorf("append reaction: %w", err)
	}
	if res.ModifiedCount == 0 {
		return ErrNoOp
	}
	return nil
}

// RemoveReaction drops only the first equal entry.
func (s *MongoCommentStore) RemoveReaction(ctx context.Context, commentID string, r CommentReaction) error {
	res, err := s.coll.UpdateOne(ctx, reactionFilter(commentID, r), removeOnePipeline(r))
	if err != nil {
		return fmt.Errorf("remove reaction: %w", err)
	}
	if res.ModifiedCount == 0 {
		return ErrNoOp
	}
	return nil
}

// reactionFilter matches the comment only while it still holds r.
func reactionFilter(commentID string, r CommentReaction) bson.M {
	return bson.M{"comment_id": commentID, "reactions": r}
}

// removeOnePipeline rebuilds reactions without the element at the first index
// equal to r. $pull would drop every duplicate.
func removeOnePipeline(r CommentReaction) mongo.Pipeline {
	keep := bson.M{"$filter": bson.M{
		"input": bson.M{"$range": bson.A{0, bson.M{"$size": "$reactions"}}},
		"as":    "k",
		"cond":  bson.M{"$ne": bson.A{"$$k", "$$i"}},
	}}
	return mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"reactions": bson.M{"$let": bson.M{
				"vars": bson.M{"i": bson.M{"$indexOfArray": bson.A{"$reactions", bson.M{"$literal": r}}}},
				"in": bson.M{"$map": bson.M{
					"input": keep,
					"as":    "k",
					"in":    bson.M{"$arrayElemAt": bson.A{"$reactions", "$$k"}},
				}},
			}},
		}}},
	}
}

func (s *MongoCommentStore) ReplaceText(ctx context.Context, commentID, text string) error {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"comment_id": commentID},
		bson.M{"$set": bson.M{"comment_text": text}},
	)
	if err != nil {
		return fmt.Errorf("replace comment text: %w", err)
	}
	if res.ModifiedCount == 0 {
		s.log.Info("no comment documents updated", zap.String("comment_id", commentID))
	}
	return nil
}

func (s *MongoCommentStore) PruneSubtree(ctx context.Context, path string) error {
	res, err := s.coll.DeleteMany(ctx, pathFilter(pathcodec.SubtreePattern(path)))
	if err != nil {
		return fmt.Errorf("prune comments: %w", err)
	}
	if res.DeletedCount == 0 {
		s.log.Info("no comment documents deleted", zap.String("path", path))
	}
	return nil
}

func (s *MongoCommentStore) FindChildren(ctx context.Context, parentPath string) ([]Comment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "commented_timestamp", Value: -1}})
	cur, err := s.coll.Find(ctx, pathFilter(pathcodec.ChildPattern(parentPath)), opts)
	if err != nil {
		return nil, fmt.Errorf("find child comments: %w", err)
	}
	return decodeAll(ctx, cur)
}

func (s *MongoCommentStore) FindSubtree(ctx context.Context, rootPath string) ([]Comment, error) {
	cur, err := s.coll.Aggregate(ctx, subtreePipeline(rootPath))
	if err != nil {
		return nil, fmt.Errorf("find comment subtree: %w", err)
	}
	return decodeAll(ctx, cur)
}

// subtreePipeline selects rootPath and its descendants, shallowest first and
// newest first within a depth.
func subtreePipeline(rootPath string) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: pathFilter(pathcodec.SubtreePattern(rootPath))}},
		{{Key: "$addFields", Value: bson.M{
			"path_depth": bson.M{"$size": bson.M{"$split": bson.A{"$materialized_path", pathcodec.Separator}}},
		}}},
		{{Key: "$sort", Value: bson.D{
			{Key: "path_depth", Value: 1},
			{Key: "commented_timestamp", Value: -1},
		}}},
	}
}

func pathFilter(pattern string) bson.M {
	return bson.M{"materialized_path": bson.M{"$regex": pattern}}
}

func (s *MongoCommentStore) Ping(ctx context.Context) error {
	return s.coll.Database().Client().Ping(ctx, nil)
}

func decodeAll(ctx context.Context, cur *mongo.Cursor) ([]Comment, error) {
	out := []Comment{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode comments: %w", err)
	}
	for i := range out {
		out[i] = normalize(out[i])
	}
	return out, nil
}
