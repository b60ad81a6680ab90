package service

import "errors"

// Service-level errors.
var (
	ErrTripNotFound    = errors.New("trip not found")
	ErrCaptainNotFound = errors.New("captain not found")
	ErrPointNotFound   = errors.New("trip point not found")

	ErrTripNotScheduled   = errors.New("trip is not in scheduled status")
	ErrTripNotActive      = errors.New("trip is not active")
	ErrStateConflict      = errors.New("trip status changed concurrently")
	ErrCaptainNotActive   = errors.New("captain must be online")
	ErrNotAssignedCaptain = errors.New("captain is not assigned to this trip")
	ErrNoAssignedCaptain  = errors.New("trip has no assigned captain")
	ErrPhoneAlreadyExists = errors.New("phone number already registered")

	ErrActivationRejected = errors.New("activation conditions not met")

	ErrInvalidCoordinates   = errors.New("coordinates out of range")
	ErrInvalidPrice         = errors.New("price must be greater than zero")
	ErrNoCheckpointsGiven   = errors.New("trip must have at least one checkpoint")
	ErrFinalPointCount      = errors.New("trip must have exactly one final point")
	ErrFinalPointNotLast    = errors.New("final point must be the last checkpoint")
	ErrExpectedTimeRequired = errors.New("arrival trips require an expected time on every checkpoint")
	ErrPointAlreadyDone     = errors.New("trip point already reached")

	ErrUpdateBlocked  = errors.New("trip cannot be updated while active or emergency-ended")
	ErrPriceImmutable = errors.New("price cannot change once the trip has been active")
	ErrCannotDelete   = errors.New("trip can only be deleted while scheduled or failed")

	ErrEmergencyQuotaUsed  = errors.New("emergency termination already used today")
	ErrEmergencyInProgress = errors.New("emergency termination already in progress")

	ErrInvalidPushToken = errors.New("invalid push token format")
)
