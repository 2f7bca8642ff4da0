package alerting

import "errors"

var (
	ErrCandidateFetchFailed = errors.New("candidate fetch failed")
	ErrRideNotFound         = errors.New("ride not found")
	ErrVehicleNotFound      = errors.New("vehicle not found")
)
