package models

import "time"

type VehicleStatus string

const (
	VehicleAvailable  VehicleStatus = "AVAILABLE"
	VehicleDispatched VehicleStatus = "DISPATCHED"
)

type Vehicle struct {
	Name   string        `json:"name"`
	Status VehicleStatus `json:"status"`
}

type Station struct {
	Name     string      `json:"name"`
	Location Coordinates `json:"location"`
}

// DispatchRecord is the durable trace of one successful fulfilment.
type DispatchRecord struct {
	ID         string     `json:"id"`
	Vehicle    string     `json:"vehicle"`
	Category   string     `json:"category"`
	Quantity   int        `json:"quantity"`
	Requester  string     `json:"requester"`
	Station    string     `json:"station,omitempty"` // nearest station, when the request had a location
	CreatedAt  time.Time  `json:"created_at"`
	ReturnedAt *time.Time `json:"returned_at,omitempty"`
}

type EventType string

const (
	EventDispatched  EventType = "dispatched"
	EventReturned    EventType = "returned"
	EventReportFiled EventType = "report_filed"
)

// Event is published to stream subscribers whenever engine state changes visibly.
type Event struct {
	Type      EventType       `json:"type"`
	Vehicle   string          `json:"vehicle,omitempty"`
	Dispatch  *DispatchRecord `json:"dispatch,omitempty"`
	Report    *Report         `json:"report,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}
