package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mr1hm/go-aid-dispatch/internal/dispatch"
	"github.com/mr1hm/go-aid-dispatch/internal/geocode"
	"github.com/mr1hm/go-aid-dispatch/internal/models"
	"github.com/mr1hm/go-aid-dispatch/internal/repository"
	"github.com/mr1hm/go-aid-dispatch/internal/stations"
)

type Geocoder interface {
	Lookup(ctx context.Context, addr geocode.Address) *models.Location
}

type Handler struct {
	sys      *dispatch.System
	geocoder Geocoder
}

// NewHandler serves sys over HTTP. geocoder may be nil, in which case report
// addresses are never resolved.
func NewHandler(sys *dispatch.System, geocoder Geocoder) *Handler {
	return &Handler{
		sys:      sys,
		geocoder: geocoder,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.health)

	api := r.Group("/api")

	api.GET("/supplies", h.listSupplies)
	api.POST("/supplies", h.addSupplies)
	api.GET("/supplies/:category", h.checkInventory)
	api.DELETE("/supplies/:category", h.removeSupplies)

	api.GET("/reports", h.listReports)
	api.POST("/reports", h.fileReport)
	api.GET("/reports/geojson", h.reportsGeoJSON)
	api.DELETE("/reports/:index", h.deleteReport)

	api.GET("/requesters", h.listRequesters)

	api.GET("/vehicles", h.listVehicles)
	api.POST("/vehicles", h.addVehicle)
	api.POST("/vehicles/:name/return", h.returnVehicle)

	api.GET("/stations", h.listStations)
	api.POST("/stations", h.addStation)
	api.GET("/stations/nearest", h.nearestStation)
	api.GET("/stations/geojson", h.stationsGeoJSON)

	api.POST("/requests", h.fulfillRequest)
	api.GET("/dispatches", h.listDispatches)
	api.GET("/events", h.streamEvents)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// statusFor maps domain error kinds to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation), errors.Is(err, models.ErrStaleQuantity):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrInsufficientStock), errors.Is(err, models.ErrNoVehicleAvailable):
		return http.StatusConflict
	case errors.Is(err, models.ErrUnknownStation):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "path", c.FullPath(), "error", err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}

// Supplies

type supplyView struct {
	Category string `json:"category"`
	Quantity int    `json:"quantity"`
	Unit     string `json:"unit,omitempty"`
	Display  string `json:"display"`
}

func newSupplyView(category string, quantity int) supplyView {
	v := supplyView{Category: category, Quantity: quantity, Display: strconv.Itoa(quantity)}
	if cat, ok := models.LookupCategory(category); ok {
		v.Unit = cat.Unit
		v.Display = cat.FormatQuantity(quantity)
		if cat.IsBinary() {
			v.Display = "Not available"
			if quantity > 0 {
				v.Display = "Available"
			}
		}
	}
	return v
}

func (h *Handler) listSupplies(c *gin.Context) {
	supplies := h.sys.Ledger.Supplies()
	out := make([]supplyView, 0, len(supplies))
	for _, s := range supplies {
		out = append(out, newSupplyView(s.Category, s.Quantity))
	}
	c.JSON(http.StatusOK, out)
}

type addSuppliesRequest struct {
	Category string `json:"category"`
	Quantity int    `json:"quantity"`
}

func (h *Handler) addSupplies(c *gin.Context) {
	var req addSuppliesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if err := h.sys.Ledger.AddSupplies(req.Category, req.Quantity); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newSupplyView(req.Category, h.sys.Ledger.CheckInventory(req.Category)))
}

func (h *Handler) checkInventory(c *gin.Context) {
	category := c.Param("category")
	c.JSON(http.StatusOK, newSupplyView(category, h.sys.Ledger.CheckInventory(category)))
}

func (h *Handler) removeSupplies(c *gin.Context) {
	category := c.Param("category")
	q, err := strconv.Atoi(c.Query("quantity"))
	if err != nil {
		badRequest(c, "quantity must be an integer")
		return
	}
	if err := h.sys.Ledger.RemoveSupplies(category, q); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSupplyView(category, h.sys.Ledger.CheckInventory(category)))
}

// Reports

type reportView struct {
	Index        int              `json:"index"`
	Name         string           `json:"name"`
	DisasterType string           `json:"disaster_type"`
	Details      string           `json:"details"`
	Description  string           `json:"description"`
	Location     *models.Location `json:"location,omitempty"`
	Timestamp    time.Time        `json:"timestamp"`
}

func newReportView(index int, r models.Report) reportView {
	return reportView{
		Index:        index,
		Name:         r.Name,
		DisasterType: r.DisasterType,
		Details:      r.Details,
		Description:  r.Description,
		Location:     r.Location,
		Timestamp:    r.Timestamp,
	}
}

func (h *Handler) listReports(c *gin.Context) {
	reports := h.sys.Ledger.Reports()
	out := make([]reportView, 0, len(reports))
	for i, r := range reports {
		out = append(out, newReportView(i+1, r))
	}
	c.JSON(http.StatusOK, out)
}

type addressRequest struct {
	Number  string `json:"number"`
	Street  string `json:"street"`
	City    string `json:"city"`
	Country string `json:"country"`
}

type fileReportRequest struct {
	Name         string          `json:"name"`
	DisasterType string          `json:"disaster_type"`
	Details      string          `json:"details"`
	Address      *addressRequest `json:"address,omitempty"`
}

func (h *Handler) fileReport(c *gin.Context) {
	var req fileReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	details := req.Details
	if req.Address != nil && h.geocoder != nil {
		loc := h.geocoder.Lookup(c.Request.Context(), geocode.Address{
			Number:  req.Address.Number,
			Street:  req.Address.Street,
			City:    req.Address.City,
			Country: req.Address.Country,
		})
		if loc != nil {
			details = models.FormatDetails(details, loc)
		}
	}

	r, err := h.sys.FileReport(req.Name, req.DisasterType, details)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newReportView(len(h.sys.Ledger.Reports()), r))
}

func (h *Handler) deleteReport(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		badRequest(c, "index must be an integer")
		return
	}
	if !h.sys.Ledger.DeleteReport(index) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "invalid report number"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) reportsGeoJSON(c *gin.Context) {
	c.Header("Content-Type", "application/geo+json")
	c.JSON(http.StatusOK, reportsToGeoJSON(h.sys.Ledger.Reports()))
}

func (h *Handler) listRequesters(c *gin.Context) {
	c.JSON(http.StatusOK, h.sys.Ledger.Requesters())
}

// Vehicles

type addVehicleRequest struct {
	Name string `json:"name"`
}

func (h *Handler) listVehicles(c *gin.Context) {
	c.JSON(http.StatusOK, h.sys.Fleet.Vehicles())
}

func (h *Handler) addVehicle(c *gin.Context) {
	var req addVehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		badRequest(c, "name is required")
		return
	}
	h.sys.Fleet.AddVehicle(name)
	c.JSON(http.StatusCreated, models.Vehicle{Name: name, Status: models.VehicleAvailable})
}

func (h *Handler) returnVehicle(c *gin.Context) {
	name := c.Param("name")
	h.sys.ReturnVehicle(c.Request.Context(), name)
	c.JSON(http.StatusOK, models.Vehicle{Name: name, Status: models.VehicleAvailable})
}

// Stations

type addStationRequest struct {
	Name      string   `json:"name"`
	Region    string   `json:"region,omitempty"`
	Latitude  *float64 `json:"lat,omitempty"`
	Longitude *float64 `json:"lon,omitempty"`
}

func (h *Handler) listStations(c *gin.Context) {
	c.JSON(http.StatusOK, h.sys.Stations.Stations())
}

func (h *Handler) addStation(c *gin.Context) {
	var req addStationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		badRequest(c, "name is required")
		return
	}

	var loc models.Coordinates
	switch {
	case req.Region != "":
		coords, ok := stations.LookupRegion(req.Region)
		if !ok {
			badRequest(c, "unknown region, expected one of "+strings.Join(stations.RegionNames(), "/"))
			return
		}
		loc = coords
	case req.Latitude != nil && req.Longitude != nil:
		loc = models.Coordinates{Latitude: *req.Latitude, Longitude: *req.Longitude}
	default:
		badRequest(c, "either region or lat/lon is required")
		return
	}

	h.sys.Stations.AddStation(name, loc)
	c.JSON(http.StatusCreated, models.Station{Name: name, Location: loc})
}

func parsePoint(c *gin.Context) (models.Coordinates, bool) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lon, errLon := strconv.ParseFloat(c.Query("lon"), 64)
	if errLat != nil || errLon != nil {
		return models.Coordinates{}, false
	}
	return models.Coordinates{Latitude: lat, Longitude: lon}, true
}

func (h *Handler) nearestStation(c *gin.Context) {
	point, ok := parsePoint(c)
	if !ok {
		badRequest(c, "lat and lon must be numbers")
		return
	}
	name, dist, ok := h.sys.Stations.NearestStation(point)
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "no stations registered"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": name, "distance": dist})
}

func (h *Handler) stationsGeoJSON(c *gin.Context) {
	c.Header("Content-Type", "application/geo+json")
	c.JSON(http.StatusOK, stationsToGeoJSON(h.sys.Stations.Stations()))
}

// Fulfilment

func (h *Handler) fulfillRequest(c *gin.Context) {
	var req dispatch.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	out, err := h.sys.FulfillRequest(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (h *Handler) listDispatches(c *gin.Context) {
	filter := repository.Filter{
		Limit: 20, // Default to 20 records if limit param not supplied
	}

	if l := c.Query("limit"); l != "" {
		if lim, err := strconv.Atoi(l); err == nil && lim > 0 && lim <= 500 {
			filter.Limit = lim
		}
	}
	if o := c.Query("offset"); o != "" {
		if off, err := strconv.Atoi(o); err == nil && off >= 0 {
			filter.Offset = off
		}
	}
	if s := c.Query("since"); s != "" {
		if t, err := time.Parse("2006-01-02", s); err == nil {
			filter.Since = &t
		}
	}
	filter.Category = c.Query("category")
	filter.Vehicle = c.Query("vehicle")
	if open, err := strconv.ParseBool(c.Query("open")); err == nil {
		filter.OpenOnly = open
	}

	records, err := h.sys.ListDispatches(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to fetch dispatches",
		})
		return
	}
	if records == nil {
		records = []models.DispatchRecord{}
	}
	c.JSON(http.StatusOK, records)
}

// streamEvents relays engine events as server-sent events until the client leaves
// or the broadcaster is closed.
func (h *Handler) streamEvents(c *gin.Context) {
	if h.sys.Events == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "event stream disabled"})
		return
	}

	id, ch := h.sys.Events.Subscribe()
	defer h.sys.Events.Unsubscribe(id)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			c.SSEvent(string(e.Type), e)
			c.Writer.Flush()
		}
	}
}
