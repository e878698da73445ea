// Package services defines the business logic for lead intake, entitlement
// projection, and the lead feed. This file centralizes common service-level
// error values so that they can be consistently returned by service methods
// and checked by callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler/controller layer.
package services

import "errors"

var (
	// ErrLeadNotFound indicates that the requested lead does not exist.
	ErrLeadNotFound = errors.New("lead not found")

	// ErrInvalidPlan is returned when a checkout request names a plan
	// outside {day, week, month}.
	ErrInvalidPlan = errors.New("plan must be one of: day, week, month")

	// ErrInvalidStatus is returned when a lead annotation carries a status
	// outside {saved, contacted, hidden}.
	ErrInvalidStatus = errors.New("status must be one of: saved, contacted, hidden")

	// ErrInvalidNiche is returned when a feed query names an unknown niche.
	ErrInvalidNiche = errors.New("niche must be one of: writing, video, dev, all")

	// ErrMissingUser is returned when an operation requires a caller
	// identity and none was supplied.
	ErrMissingUser = errors.New("user id is required")
)
