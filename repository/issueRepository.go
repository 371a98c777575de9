package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"meriawaaz-be/models"
)

const (
	IssuesCollection = "issues"
	VotesCollection  = "votes"
	UsersCollection  = "users"
)

type geoJSONPoint struct {
	Type        string    `bson:"type"`
	Coordinates []float64 `bson:"coordinates"`
}

// issueDocument is the stored shape of an issue. imageUrls is kept raw
// because older records hold it as a JSON encoded string.
type issueDocument struct {
	ID                    primitive.ObjectID `bson:"_id,omitempty"`
	AuthorID              string             `bson:"authorId"`
	AuthorName            string             `bson:"authorName"`
	AuthorProfileImageURL string             `bson:"authorProfileImageUrl,omitempty"`
	Title                 string             `bson:"title"`
	Description           string             `bson:"description"`
	Location              *geoJSONPoint      `bson:"location,omitempty"`
	Address               string             `bson:"address,omitempty"`
	ImageURLs             bson.RawValue      `bson:"imageUrls"`
	AudioURL              string             `bson:"audioUrl,omitempty"`
	Status                string             `bson:"status"`
	Category              string             `bson:"category"`
	Priority              string             `bson:"priority"`
	AISummary             string             `bson:"aiSummary,omitempty"`
	ProcessingStatus      string             `bson:"processingStatus"`
	ProcessingError       string             `bson:"processingError,omitempty"`
	VoteCount             int                `bson:"voteCount"`
	Upvotes               int                `bson:"upvotes"`
	Downvotes             int                `bson:"downvotes"`
	CreatedAt             time.Time          `bson:"createdAt"`
	UpdatedAt             time.Time          `bson:"updatedAt"`
}

func toGeoJSON(p *models.GeoPoint) *geoJSONPoint {
	if p == nil {
		return nil
	}
	return &geoJSONPoint{Type: "Point", Coordinates: []float64{p.Longitude, p.Latitude}}
}

func fromGeoJSON(g *geoJSONPoint) (*models.GeoPoint, error) {
	if g == nil {
		return nil, nil
	}
	if g.Type != "Point" || len(g.Coordinates) != 2 {
		return nil, fmt.Errorf("invalid geo point: type %q with %d coordinates", g.Type, len(g.Coordinates))
	}
	lon, lat := g.Coordinates[0], g.Coordinates[1]
	if !validCoordinates(lat, lon) {
		return nil, fmt.Errorf("invalid geo point: lat %v lon %v out of range", lat, lon)
	}
	return &models.GeoPoint{Latitude: lat, Longitude: lon}, nil
}

func encodeImageURLs(urls []string) (bson.RawValue, error) {
	if urls == nil {
		urls = []string{}
	}
	t, data, err := bson.MarshalValue(urls)
	if err != nil {
		return bson.RawValue{}, err
	}
	return bson.RawValue{Type: t, Value: data}, nil
}

// decodeImageURLs accepts an array, a JSON encoded array string or a single
// URL string.
func decodeImageURLs(v bson.RawValue) ([]string, error) {
	switch v.Type {
	case 0, bsontype.Null, bsontype.Undefined:
		return []string{}, nil
	case bsontype.Array:
		values, err := v.Array().Values()
		if err != nil {
			return nil, err
		}
		urls := make([]string, 0, len(values))
		for _, item := range values {
			s, ok := item.StringValueOK()
			if !ok {
				return nil, fmt.Errorf("imageUrls entry has type %s", item.Type)
			}
			urls = append(urls, s)
		}
		return urls, nil
	case bsontype.String:
		s := strings.TrimSpace(v.StringValue())
		if s == "" {
			return []string{}, nil
		}
		if strings.HasPrefix(s, "[") {
			var urls []string
			if err := json.Unmarshal([]byte(s), &urls); err != nil {
				return nil, fmt.Errorf("imageUrls is not a JSON list: %w", err)
			}
			return urls, nil
		}
		return []string{s}, nil
	default:
		return nil, fmt.Errorf("imageUrls has type %s", v.Type)
	}
}

func decodeIssue(raw bson.Raw) (*models.Issue, error) {
	var doc issueDocument
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}

	location, err := fromGeoJSON(doc.Location)
	if err != nil {
		return nil, err
	}
	images, err := decodeImageURLs(doc.ImageURLs)
	if err != nil {
		return nil, err
	}

	return &models.Issue{
		ID:                    doc.ID.Hex(),
		AuthorID:              doc.AuthorID,
		AuthorName:            doc.AuthorName,
		AuthorProfileImageURL: doc.AuthorProfileImageURL,
		Title:                 doc.Title,
		Description:           doc.Description,
		Location:              location,
		Address:               doc.Address,
		ImageURLs:             images,
		AudioURL:              doc.AudioURL,
		Status:                models.NormalizeStatus(doc.Status),
		Category:              models.NormalizeCategory(doc.Category),
		Priority:              models.NormalizePriority(doc.Priority),
		AISummary:             doc.AISummary,
		ProcessingStatus:      models.NormalizeProcessingStatus(doc.ProcessingStatus),
		ProcessingError:       doc.ProcessingError,
		VoteCount:             doc.VoteCount,
		Upvotes:               doc.Upvotes,
		Downvotes:             doc.Downvotes,
		CreatedAt:             doc.CreatedAt,
		UpdatedAt:             doc.UpdatedAt,
	}, nil
}

func encodeIssue(issue *models.Issue) (*issueDocument, error) {
	images, err := encodeImageURLs(issue.ImageURLs)
	if err != nil {
		return nil, err
	}
	return &issueDocument{
		AuthorID:              issue.AuthorID,
		AuthorName:            issue.AuthorName,
		AuthorProfileImageURL: issue.AuthorProfileImageURL,
		Title:                 issue.Title,
		Description:           issue.Description,
		Location:              toGeoJSON(issue.Location),
		Address:               issue.Address,
		ImageURLs:             images,
		AudioURL:              issue.AudioURL,
		Status:                string(issue.Status),
		Category:              string(issue.Category),
		Priority:              string(issue.Priority),
		AISummary:             issue.AISummary,
		ProcessingStatus:      string(issue.ProcessingStatus),
		ProcessingError:       issue.ProcessingError,
		VoteCount:             issue.VoteCount,
		Upvotes:               issue.Upvotes,
		Downvotes:             issue.Downvotes,
		CreatedAt:             issue.CreatedAt,
		UpdatedAt:             issue.UpdatedAt,
	}, nil
}

// setDocument renders the patch as a $set document.
func (p IssuePatch) setDocument(now time.Time) (bson.M, error) {
	set := bson.M{"updatedAt": now}
	if p.Title != nil {
		set["title"] = *p.Title
	}
	if p.Description != nil {
		set["description"] = *p.Description
	}
	if p.Address != nil {
		set["address"] = *p.Address
	}
	if p.Status != nil {
		set["status"] = string(*p.Status)
	}
	if p.Category != nil {
		set["category"] = string(*p.Category)
	}
	if p.Priority != nil {
		set["priority"] = string(*p.Priority)
	}
	if p.AISummary != nil {
		set["aiSummary"] = *p.AISummary
	}
	if p.ProcessingStatus != nil {
		set["processingStatus"] = string(*p.ProcessingStatus)
	}
	if p.ProcessingError != nil {
		set["processingError"] = *p.ProcessingError
	}
	if p.Location != nil {
		if !validCoordinates(p.Location.Latitude, p.Location.Longitude) {
			return nil, fmt.Errorf("invalid location %v,%v", p.Location.Latitude, p.Location.Longitude)
		}
		set["location"] = toGeoJSON(p.Location)
	}
	if p.ImageURLs != nil {
		set["imageUrls"] = p.ImageURLs
	}
	if p.AudioURL != nil {
		set["audioUrl"] = *p.AudioURL
	}
	if p.Upvotes != nil {
		set["upvotes"] = *p.Upvotes
	}
	if p.Downvotes != nil {
		set["downvotes"] = *p.Downvotes
	}
	if p.VoteCount != nil {
		set["voteCount"] = *p.VoteCount
	}
	return set, nil
}

func (f ListFilter) document() bson.M {
	filter := bson.M{}
	if f.Category != "" {
		filter["category"] = f.Category
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.Priority != "" {
		filter["priority"] = f.Priority
	}
	if f.AuthorID != "" {
		filter["authorId"] = f.AuthorID
	}
	if f.ProcessingStatus != "" {
		filter["processingStatus"] = f.ProcessingStatus
	}
	if f.GeotaggedOnly {
		filter["location"] = bson.M{"$exists": true, "$ne": nil}
	}
	if !f.UpdatedBefore.IsZero() {
		filter["updatedAt"] = bson.M{"$lt": f.UpdatedBefore}
	}
	return filter
}

type MongoIssueRepository struct {
	issues *mongo.Collection
	votes  *mongo.Collection
	log    *zap.SugaredLogger
	now    func() time.Time
}

func NewIssueRepository(db *mongo.Database, log *zap.SugaredLogger) *MongoIssueRepository {
	return &MongoIssueRepository{
		issues: db.Collection(IssuesCollection),
		votes:  db.Collection(VotesCollection),
		log:    log,
		now:    time.Now,
	}
}

func (r *MongoIssueRepository) Create(ctx context.Context, issue *models.Issue) (string, error) {
	PrepareForInsert(issue, r.now().UTC())
	if issue.Location != nil && !validCoordinates(issue.Location.Latitude, issue.Location.Longitude) {
		return "", fmt.Errorf("invalid location %v,%v", issue.Location.Latitude, issue.Location.Longitude)
	}

	doc, err := encodeIssue(issue)
	if err != nil {
		return "", fmt.Errorf("encode issue: %w", err)
	}
	doc.ID = primitive.NewObjectID()

	if _, err := r.issues.InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("insert issue: %w", err)
	}

	issue.ID = doc.ID.Hex()
	return issue.ID, nil
}

func (r *MongoIssueRepository) Get(ctx context.Context, id string) (*models.Issue, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	raw, err := r.issues.FindOne(ctx, bson.M{"_id": objID}).Raw()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find issue %s: %w", id, err)
	}

	issue, err := decodeIssue(raw)
	if err != nil {
		return nil, fmt.Errorf("decode issue %s: %w", id, err)
	}
	return issue, nil
}

func (r *MongoIssueRepository) List(ctx context.Context, filter ListFilter) ([]*models.Issue, error) {
	filter = filter.Normalized()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	cursor, err := r.issues.Find(ctx, filter.document(), opts)
	if err != nil {
		return nil, fmt.Errorf("find issues: %w", err)
	}
	return r.collect(ctx, cursor)
}

func (r *MongoIssueRepository) Nearby(ctx context.Context, lat, lon, radiusKm float64, limit int) ([]models.NearbyIssue, error) {
	cursor, err := r.issues.Find(ctx, ListFilter{GeotaggedOnly: true}.document())
	if err != nil {
		return nil, fmt.Errorf("find geotagged issues: %w", err)
	}
	issues, err := r.collect(ctx, cursor)
	if err != nil {
		return nil, err
	}
	return SelectNearby(issues, lat, lon, radiusKm, limit), nil
}

// collect decodes every record of the cursor, skipping malformed ones.
func (r *MongoIssueRepository) collect(ctx context.Context, cursor *mongo.Cursor) ([]*models.Issue, error) {
	defer cursor.Close(ctx)

	issues := make([]*models.Issue, 0)
	for cursor.Next(ctx) {
		issue, err := decodeIssue(cursor.Current)
		if err != nil {
			r.log.Warnw("skipping malformed issue record",
				"id", cursor.Current.Lookup("_id").String(),
				"error", err,
			)
			continue
		}
		issues = append(issues, issue)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate issues: %w", err)
	}
	return issues, nil
}

func (r *MongoIssueRepository) Update(ctx context.Context, id string, patch IssuePatch) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	set, err := patch.setDocument(r.now().UTC())
	if err != nil {
		return err
	}

	result, err := r.issues.UpdateOne(ctx, bson.M{"_id": objID}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update issue %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the issue and every vote cast on it.
func (r *MongoIssueRepository) Delete(ctx context.Context, id string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	result, err := r.issues.DeleteOne(ctx, bson.M{"_id": objID})
	if err != nil {
		return fmt.Errorf("delete issue %s: %w", id, err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}

	if _, err := r.votes.DeleteMany(ctx, bson.M{"issueId": id}); err != nil {
		return fmt.Errorf("delete votes of issue %s: %w", id, err)
	}
	return nil
}
