package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the indexes the repositories rely on. The unique
// (issueId, userId) index backs the one-vote-per-user rule.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	votes := mongo.IndexModel{
		Keys:    bson.D{{Key: "issueId", Value: 1}, {Key: "userId", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := db.Collection(VotesCollection).Indexes().CreateOne(ctx, votes); err != nil {
		return fmt.Errorf("create vote index: %w", err)
	}

	issues := []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "authorId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "processingStatus", Value: 1}}},
	}
	if _, err := db.Collection(IssuesCollection).Indexes().CreateMany(ctx, issues); err != nil {
		return fmt.Errorf("create issue indexes: %w", err)
	}

	users := mongo.IndexModel{
		Keys: bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetPartialFilterExpression(bson.M{
			"email": bson.M{"$type": "string", "$gt": ""},
		}),
	}
	if _, err := db.Collection(UsersCollection).Indexes().CreateOne(ctx, users); err != nil {
		return fmt.Errorf("create user index: %w", err)
	}
	return nil
}
