package ingestion

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mr1hm/go-aid-dispatch/internal/models"
)

type gdacsRSS struct {
	Channel gdacsChannel `xml:"channel"`
}
type gdacsChannel struct {
	Items []gdacsItem `xml:"item"`
}
type gdacsItem struct {
	Title      string        `xml:"title"`
	PubDate    string        `xml:"pubDate"`
	Point      string        `xml:"http://www.georss.org/georss point"` // "lat lon"
	EventType  string        `xml:"http://www.gdacs.org eventtype"`
	AlertLevel string        `xml:"http://www.gdacs.org alertlevel"`
	EventID    string        `xml:"http://www.gdacs.org eventid"`
	Country    string        `xml:"http://www.gdacs.org country"`
	Severity   gdacsSeverity `xml:"http://www.gdacs.org severity"`
}

// The element text is prose; the number lives in the value attribute.
type gdacsSeverity struct {
	Value float64 `xml:"value,attr"`
}

func fetchGDACS(ctx context.Context, client *http.Client, url string) ([]*models.FeedEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error doing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d - status: %s", resp.StatusCode, resp.Status)
	}

	var data gdacsRSS
	if err := xml.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("error decoding resp.Body: %w", err)
	}

	feed := make([]*models.FeedEvent, 0, len(data.Channel.Items))
	for _, item := range data.Channel.Items {
		timestamp, err := time.Parse(time.RFC1123, item.PubDate)
		if err != nil {
			slog.Warn("GDACS timestamp parsing failed", "id", item.EventID, "error", err.Error())
		}
		lat, lon, ok := parsePoint(item.Point)
		if !ok {
			slog.Warn("GDACS item without usable point", "id", item.EventID, "point", item.Point)
			continue
		}

		feed = append(feed, &models.FeedEvent{
			ID:         "gdacs_" + item.EventID,
			Source:     SourceGDACS,
			Type:       mapGDACSEventType(item.EventType),
			Title:      item.Title,
			Place:      item.Country,
			Magnitude:  item.Severity.Value,
			AlertLevel: strings.ToLower(strings.TrimSpace(item.AlertLevel)),
			Latitude:   lat,
			Longitude:  lon,
			Timestamp:  timestamp.UTC(),
		})
	}

	return feed, nil
}

func parsePoint(s string) (lat, lon float64, ok bool) {
	parts := strings.Fields(s)
	if len(parts) != 2 {
		return 0, 0, false
	}
	lat, errLat := strconv.ParseFloat(parts[0], 64)
	lon, errLon := strconv.ParseFloat(parts[1], 64)
	if errLat != nil || errLon != nil {
		return 0, 0, false
	}
	return lat, lon, true
}

func mapGDACSEventType(eventType string) string {
	switch strings.ToUpper(eventType) {
	case "EQ":
		return models.DisasterEarthquake
	case "TC":
		return models.DisasterCyclone
	case "FL":
		return models.DisasterFlood
	case "VO":
		return models.DisasterVolcano
	case "TS":
		return models.DisasterTsunami
	case "WF":
		return models.DisasterWildfire
	default:
		return models.DisasterUnknown
	}
}
