package domain

import "errors"

// ErrNotFound is returned when the requested trip or sub-record does not exist.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned when input fails business rule validation
// (e.g. missing destination, end date before start date, negative budget).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrConflict is returned when an operation collides with work already in
// progress or already done: a second itinerary generation while one is
// running, or saving a suggestion that was already committed.
// Handlers should map this to HTTP 409.
var ErrConflict = errors.New("conflict")
