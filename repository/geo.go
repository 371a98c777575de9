package repository

import (
	"math"
	"sort"

	"meriawaaz-be/models"
)

const earthRadiusKm = 6371.0

// Haversine returns the great-circle distance in kilometres between two
// points given in degrees.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// SelectNearby keeps the geotagged issues within radiusKm of the point,
// nearest first, at most limit of them. limit <= 0 keeps all matches.
// Distances are compared unrounded and reported rounded to two decimals.
func SelectNearby(issues []*models.Issue, lat, lon, radiusKm float64, limit int) []models.NearbyIssue {
	out := make([]models.NearbyIssue, 0)
	for _, issue := range issues {
		if issue.Location == nil {
			continue
		}
		d := Haversine(lat, lon, issue.Location.Latitude, issue.Location.Longitude)
		if d <= radiusKm {
			out = append(out, models.NearbyIssue{Issue: issue, DistanceKm: d})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DistanceKm < out[j].DistanceKm
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	for i := range out {
		out[i].DistanceKm = math.Round(out[i].DistanceKm*100) / 100
	}
	return out
}

func validCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180 &&
		!math.IsNaN(lat) && !math.IsNaN(lon)
}
