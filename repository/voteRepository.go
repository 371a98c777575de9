package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"meriawaaz-be/models"
)

type voteDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	IssueID   string             `bson:"issueId"`
	UserID    string             `bson:"userId"`
	VoteType  string             `bson:"voteType"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

func (d voteDocument) model() *models.Vote {
	return &models.Vote{
		ID:        d.ID.Hex(),
		IssueID:   d.IssueID,
		UserID:    d.UserID,
		VoteType:  models.VoteType(d.VoteType),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

type MongoVoteRepository struct {
	votes *mongo.Collection
	now   func() time.Time
}

func NewVoteRepository(db *mongo.Database) *MongoVoteRepository {
	return &MongoVoteRepository{votes: db.Collection(VotesCollection), now: time.Now}
}

func (r *MongoVoteRepository) Find(ctx context.Context, issueID, userID string) (*models.Vote, error) {
	var doc voteDocument
	err := r.votes.FindOne(ctx, bson.M{"issueId": issueID, "userId": userID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find vote: %w", err)
	}
	return doc.model(), nil
}

func (r *MongoVoteRepository) Create(ctx context.Context, vote *models.Vote) error {
	now := r.now().UTC()
	doc := voteDocument{
		ID:        primitive.NewObjectID(),
		IssueID:   vote.IssueID,
		UserID:    vote.UserID,
		VoteType:  string(vote.VoteType),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := r.votes.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert vote: %w", err)
	}

	vote.ID = doc.ID.Hex()
	vote.CreatedAt = now
	vote.UpdatedAt = now
	return nil
}

func (r *MongoVoteRepository) UpdateType(ctx context.Context, id string, voteType models.VoteType) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	result, err := r.votes.UpdateOne(ctx, bson.M{"_id": objID}, bson.M{"$set": bson.M{
		"voteType":  string(voteType),
		"updatedAt": r.now().UTC(),
	}})
	if err != nil {
		return fmt.Errorf("update vote %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoVoteRepository) Delete(ctx context.Context, id string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	result, err := r.votes.DeleteOne(ctx, bson.M{"_id": objID})
	if err != nil {
		return fmt.Errorf("delete vote %s: %w", id, err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoVoteRepository) ListByIssue(ctx context.Context, issueID string) ([]*models.Vote, error) {
	cursor, err := r.votes.Find(ctx, bson.M{"issueId": issueID})
	if err != nil {
		return nil, fmt.Errorf("find votes: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []voteDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode votes: %w", err)
	}

	votes := make([]*models.Vote, 0, len(docs))
	for _, d := range docs {
		votes = append(votes, d.model())
	}
	return votes, nil
}

func (r *MongoVoteRepository) DeleteByIssue(ctx context.Context, issueID string) error {
	if _, err := r.votes.DeleteMany(ctx, bson.M{"issueId": issueID}); err != nil {
		return fmt.Errorf("delete votes of issue %s: %w", issueID, err)
	}
	return nil
}

func (r *MongoVoteRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	count, err := r.votes.CountDocuments(ctx, bson.M{"userId": userID})
	if err != nil {
		return 0, fmt.Errorf("count votes of user %s: %w", userID, err)
	}
	return count, nil
}
