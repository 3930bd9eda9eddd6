package api

import (
	"github.com/mr1hm/go-aid-dispatch/internal/models"
)

type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}
type Feature struct {
	Type       string         `json:"type"`
	Geometry   Geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}
type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

func point(c models.Coordinates) Geometry {
	return Geometry{
		Type:        "Point",
		Coordinates: []float64{c.Longitude, c.Latitude},
	}
}

func collection(features []Feature) FeatureCollection {
	return FeatureCollection{
		Type:     "FeatureCollection",
		Features: features,
	}
}

// reportsToGeoJSON maps reports that carry coordinates. Index is the 1-based position
// in the full log, so it can be fed back to DELETE /api/reports/:index.
func reportsToGeoJSON(reports []models.Report) FeatureCollection {
	features := make([]Feature, 0, len(reports))

	for i, r := range reports {
		if r.Location == nil || r.Location.Coordinates == nil {
			continue
		}
		features = append(features, Feature{
			Type:     "Feature",
			Geometry: point(*r.Location.Coordinates),
			Properties: map[string]any{
				"index":         i + 1,
				"name":          r.Name,
				"disaster_type": r.DisasterType,
				"description":   r.Description,
				"address":       r.Location.Address,
				"timestamp":     r.Timestamp,
			},
		})
	}

	return collection(features)
}

func stationsToGeoJSON(list []models.Station) FeatureCollection {
	features := make([]Feature, 0, len(list))

	for _, s := range list {
		features = append(features, Feature{
			Type:     "Feature",
			Geometry: point(s.Location),
			Properties: map[string]any{
				"name": s.Name,
			},
		})
	}

	return collection(features)
}
