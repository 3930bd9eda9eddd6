// Package ingestion polls public disaster feeds and files significant events as
// disaster reports.
package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/mr1hm/go-aid-dispatch/internal/config"
	"github.com/mr1hm/go-aid-dispatch/internal/models"
	"github.com/mr1hm/go-aid-dispatch/internal/worker"
)

const (
	SourceUSGS  = "usgs"
	SourceGDACS = "gdacs"
)

// ReportSink is where filed feed events end up.
type ReportSink interface {
	HasReport(name, disasterType, details string) bool
	FileReport(name, disasterType, details string) (models.Report, error)
}

type Manager struct {
	cfg    *config.Config
	sink   ReportSink
	client *http.Client
	pool   *worker.WorkerPool
	wg     sync.WaitGroup
}

func NewManager(cfg *config.Config, sink ReportSink) *Manager {
	return &Manager{
		cfg:  cfg,
		sink: sink,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (m *Manager) Start(ctx context.Context) {
	m.pool = worker.NewWorkerPool("ingestion", m.cfg.Worker.Count, m.cfg.Worker.BufferSize, m.process)
	m.pool.Start(ctx)

	if m.cfg.Sources.USGSEnabled {
		m.wg.Add(1)
		go m.runPoller(ctx, SourceUSGS, m.cfg.Sources.USGSURL, m.cfg.Sources.USGSPollInterval)
	}

	if m.cfg.Sources.GDACSEnabled {
		m.wg.Add(1)
		go m.runPoller(ctx, SourceGDACS, m.cfg.Sources.GDACSURL, m.cfg.Sources.GDACSPollInterval)
	}
}

func (m *Manager) process(ctx context.Context, job worker.Job) error {
	ev, ok := job.(*models.FeedEvent)
	if !ok {
		return fmt.Errorf("unexpected job type %T", job)
	}

	details := reportDetails(ev)
	if m.sink.HasReport(ev.Source, ev.Type, details) {
		return nil
	}
	if _, err := m.sink.FileReport(ev.Source, ev.Type, details); err != nil {
		return fmt.Errorf("error filing %s: %w", ev.ID, err)
	}

	slog.Info("filed feed report", "id", ev.ID, "type", ev.Type, "source", ev.Source)
	return nil
}

func (m *Manager) runPoller(ctx context.Context, source, url string, interval time.Duration) {
	defer m.wg.Done()
	slog.Info("starting poller", "source", source, "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.poll(ctx, source, url)

	for {
		select {
		case <-ctx.Done():
			slog.Info("poller shutting down", "source", source)
			return
		case <-ticker.C:
			m.poll(ctx, source, url)
		}
	}
}

func (m *Manager) poll(ctx context.Context, source, url string) {
	slog.Debug("polling", "source", source)

	var (
		feed []*models.FeedEvent
		err  error
	)

	switch source {
	case SourceUSGS:
		feed, err = fetchUSGS(ctx, m.client, url)
	case SourceGDACS:
		feed, err = fetchGDACS(ctx, m.client, url)
	}
	if err != nil {
		slog.Error("poll failed", "source", source, "error", err)
		return
	}

	n := m.Ingest(ctx, feed)
	slog.Debug("poll complete", "source", source, "count", len(feed), "queued", n)
}

// Ingest queues the significant events of feed for filing and returns how many were queued.
func (m *Manager) Ingest(ctx context.Context, feed []*models.FeedEvent) int {
	queued := 0
	for _, ev := range feed {
		if !shouldFile(ev) {
			continue
		}
		if err := m.pool.Submit(ctx, ev); err != nil {
			slog.Warn("dropping feed event", "id", ev.ID, "error", err)
			return queued
		}
		queued++
	}
	return queued
}

func (m *Manager) Stop() {
	m.wg.Wait()
	if m.pool != nil {
		m.pool.Stop()
	}
	slog.Info("ingestion manager stopped")
}

// shouldFile returns true if the event is worth a report:
// - Earthquakes: magnitude >= 5.0
// - Other disasters: alert_level is "orange" or "red"
func shouldFile(ev *models.FeedEvent) bool {
	if ev.Type == models.DisasterEarthquake {
		return ev.Magnitude >= 5.0
	}
	return ev.AlertLevel == "orange" || ev.AlertLevel == "red"
}

// reportDetails carries the feed ID so the same event always produces the same details.
func reportDetails(ev *models.FeedEvent) string {
	c := ev.Coordinates()
	desc := fmt.Sprintf("%s [%s]", ev.Title, ev.ID)
	return models.FormatDetails(desc, &models.Location{
		Address:     ev.Place,
		Coordinates: &c,
	})
}
