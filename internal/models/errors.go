package models

import "errors"

var (
	// ErrValidation covers malformed input: non-positive quantities, blank names, bad indices.
	ErrValidation = errors.New("validation error")
	// ErrInsufficientStock is returned when a category holds less than requested.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrNoVehicleAvailable is returned when every vehicle is dispatched.
	ErrNoVehicleAvailable = errors.New("no vehicle available")
	// ErrUnknownStation is returned by distance queries against an unregistered station.
	ErrUnknownStation = errors.New("unknown station")
	// ErrStaleQuantity is returned when a request exceeds the quantity quoted to the caller.
	ErrStaleQuantity = errors.New("stale quantity")
)
