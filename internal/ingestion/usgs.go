package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mr1hm/go-aid-dispatch/internal/models"
)

type usgsResponse struct {
	Features []usgsFeature `json:"features"`
}

type usgsFeature struct {
	ID         string         `json:"id"`
	Properties usgsProperties `json:"properties"`
	Geometry   usgsGeometry   `json:"geometry"`
}
type usgsProperties struct {
	Mag   float64 `json:"mag"`
	Place string  `json:"place"`
	Time  int64   `json:"time"` // unix millis
	Title string  `json:"title"`
	Alert string  `json:"alert"` // PAGER level, often null
}
type usgsGeometry struct {
	Coordinates []float64 `json:"coordinates"` // [lon, lat, depth]
}

func fetchUSGS(ctx context.Context, client *http.Client, url string) ([]*models.FeedEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error while doing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d - status: %s", resp.StatusCode, resp.Status)
	}

	var data usgsResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("error decoding resp.Body: %w", err)
	}

	feed := make([]*models.FeedEvent, 0, len(data.Features))
	for _, f := range data.Features {
		if len(f.Geometry.Coordinates) < 2 {
			slog.Warn("USGS feature without coordinates", "id", f.ID)
			continue
		}
		feed = append(feed, &models.FeedEvent{
			ID:         "usgs_" + f.ID,
			Source:     SourceUSGS,
			Type:       models.DisasterEarthquake,
			Title:      f.Properties.Title,
			Place:      f.Properties.Place,
			Magnitude:  f.Properties.Mag,
			AlertLevel: f.Properties.Alert,
			Longitude:  f.Geometry.Coordinates[0],
			Latitude:   f.Geometry.Coordinates[1],
			Timestamp:  time.UnixMilli(f.Properties.Time).UTC(),
		})
	}

	return feed, nil
}
