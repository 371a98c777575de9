package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"meriawaaz-be/models"
)

func rawIssue(t *testing.T, fields bson.M) bson.Raw {
	t.Helper()
	doc := bson.M{
		"_id":              primitive.NewObjectID(),
		"title":            "Pothole",
		"description":      "Big pothole near the market",
		"status":           "pending",
		"category":         "road",
		"priority":         "urgent",
		"processingStatus": "error",
		"createdAt":        time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	for k, v := range fields {
		doc[k] = v
	}
	data, err := bson.Marshal(doc)
	require.NoError(t, err)
	return data
}

func TestDecodeIssueNormalizesAndConvertsLocation(t *testing.T) {
	raw := rawIssue(t, bson.M{
		"location":  bson.M{"type": "Point", "coordinates": bson.A{77.1025, 28.7041}},
		"imageUrls": bson.A{"https://img/1.jpg"},
	})

	issue, err := decodeIssue(raw)
	require.NoError(t, err)

	assert.Equal(t, models.Submitted, issue.Status)
	assert.Equal(t, models.Roads, issue.Category)
	assert.Equal(t, models.Critical, issue.Priority)
	assert.Equal(t, models.ProcessingError, issue.ProcessingStatus)
	require.NotNil(t, issue.Location)
	assert.Equal(t, 28.7041, issue.Location.Latitude)
	assert.Equal(t, 77.1025, issue.Location.Longitude)
	assert.Equal(t, []string{"https://img/1.jpg"}, issue.ImageURLs)
}

func TestDecodeIssueImageURLVariants(t *testing.T) {
	cases := []struct {
		name  string
		value interface{}
		want  []string
	}{
		{"json string", `["a.jpg","b.jpg"]`, []string{"a.jpg", "b.jpg"}},
		{"single string", "a.jpg", []string{"a.jpg"}},
		{"empty string", "", []string{}},
		{"null", nil, []string{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			issue, err := decodeIssue(rawIssue(t, bson.M{"imageUrls": tc.value}))
			require.NoError(t, err)
			assert.Equal(t, tc.want, issue.ImageURLs)
		})
	}

	t.Run("missing", func(t *testing.T) {
		issue, err := decodeIssue(rawIssue(t, nil))
		require.NoError(t, err)
		assert.Empty(t, issue.ImageURLs)
		assert.Nil(t, issue.Location)
	})
}

func TestDecodeIssueRejectsMalformedRecords(t *testing.T) {
	cases := map[string]bson.M{
		"broken json list":  {"imageUrls": `["a.jpg"`},
		"non string entry":  {"imageUrls": bson.A{1, 2}},
		"numeric imageUrls": {"imageUrls": 12},
		"one coordinate":    {"location": bson.M{"type": "Point", "coordinates": bson.A{77.1}}},
		"latitude range":    {"location": bson.M{"type": "Point", "coordinates": bson.A{10.0, 95.0}}},
		"wrong geo type":    {"location": bson.M{"type": "Polygon", "coordinates": bson.A{1.0, 2.0}}},
	}
	for name, fields := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := decodeIssue(rawIssue(t, fields))
			assert.Error(t, err)
		})
	}
}

func TestEncodeIssueRoundTripsThroughDecode(t *testing.T) {
	issue := &models.Issue{
		Title:     "Broken light",
		Location:  &models.GeoPoint{Latitude: 19.076, Longitude: 72.8777},
		ImageURLs: []string{"x.png"},
		Status:    models.InProgress,
		Category:  models.Electrical,
		Priority:  models.High,
	}
	doc, err := encodeIssue(issue)
	require.NoError(t, err)
	doc.ID = primitive.NewObjectID()

	assert.Equal(t, []float64{72.8777, 19.076}, doc.Location.Coordinates)

	data, err := bson.Marshal(doc)
	require.NoError(t, err)
	decoded, err := decodeIssue(data)
	require.NoError(t, err)

	assert.Equal(t, doc.ID.Hex(), decoded.ID)
	assert.Equal(t, issue.Location, decoded.Location)
	assert.Equal(t, issue.ImageURLs, decoded.ImageURLs)
	assert.Equal(t, models.InProgress, decoded.Status)
}

func TestIssuePatchSetDocument(t *testing.T) {
	now := time.Now()
	title := "New title"
	status := models.Resolved
	up := 3

	set, err := IssuePatch{
		Title:    &title,
		Status:   &status,
		Upvotes:  &up,
		Location: &models.GeoPoint{Latitude: 12.9716, Longitude: 77.5946},
	}.setDocument(now)
	require.NoError(t, err)

	assert.Equal(t, now, set["updatedAt"])
	assert.Equal(t, "New title", set["title"])
	assert.Equal(t, "Resolved", set["status"])
	assert.Equal(t, 3, set["upvotes"])
	assert.Equal(t, &geoJSONPoint{Type: "Point", Coordinates: []float64{77.5946, 12.9716}}, set["location"])
	assert.NotContains(t, set, "description")

	_, err = IssuePatch{Location: &models.GeoPoint{Latitude: 100}}.setDocument(now)
	assert.Error(t, err)
}

func TestListFilterNormalizedDocument(t *testing.T) {
	f := ListFilter{Category: "road", Status: "pending", ProcessingStatus: "error", AuthorID: "u1"}.Normalized()
	doc := f.document()

	assert.Equal(t, bson.M{
		"category":         "Roads",
		"status":           "Submitted",
		"processingStatus": "error",
		"authorId":         "u1",
	}, doc)

	assert.True(t, f.Matches(&models.Issue{Category: models.Roads, Status: models.Submitted, ProcessingStatus: models.ProcessingError, AuthorID: "u1"}))
	assert.False(t, f.Matches(&models.Issue{Category: models.Water, Status: models.Submitted, ProcessingStatus: models.ProcessingError, AuthorID: "u1"}))
}

func TestListFilterUpdatedBefore(t *testing.T) {
	cutoff := time.Date(2024, 6, 1, 11, 0, 0, 0, time.UTC)
	f := ListFilter{ProcessingStatus: "error", UpdatedBefore: cutoff}.Normalized()

	assert.Equal(t, bson.M{
		"processingStatus": "error",
		"updatedAt":        bson.M{"$lt": cutoff},
	}, f.document())

	assert.True(t, f.Matches(&models.Issue{ProcessingStatus: models.ProcessingError, UpdatedAt: cutoff.Add(-time.Second)}))
	assert.False(t, f.Matches(&models.Issue{ProcessingStatus: models.ProcessingError, UpdatedAt: cutoff}))
	assert.True(t, ListFilter{}.Matches(&models.Issue{UpdatedAt: cutoff}))
}

func TestPrepareForInsertDefaults(t *testing.T) {
	now := time.Now()
	issue := &models.Issue{Category: "electricity", Upvotes: 9}
	PrepareForInsert(issue, now)

	assert.Equal(t, models.Submitted, issue.Status)
	assert.Equal(t, models.Electrical, issue.Category)
	assert.Equal(t, models.Medium, issue.Priority)
	assert.Equal(t, models.ProcessingPending, issue.ProcessingStatus)
	assert.Equal(t, 0, issue.Upvotes)
	assert.Equal(t, now, issue.CreatedAt)
	assert.Equal(t, now, issue.UpdatedAt)
	assert.NotNil(t, issue.ImageURLs)
}
