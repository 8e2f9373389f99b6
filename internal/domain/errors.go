package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by repo and service functions when the requested
// resource does not exist in the database.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned when a trip candidate violates a domain constraint.
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrResolution is returned when vendor or zone identifying data is malformed.
var ErrResolution = errors.New("resolution error")

// ErrConflict is returned by repo Create methods when a row with the same
// unique key already exists. The resolver retries on it; it never reaches a
// handler.
var ErrConflict = errors.New("conflict")

// ErrInvalidReference is returned when a write names a vendor or zone id that
// does not exist.
var ErrInvalidReference = errors.New("invalid reference")

// ReasonCode classifies why a record was not accepted. The string values are
// part of the API and must stay stable.
type ReasonCode string

const (
	ReasonNegativeDuration       ReasonCode = "negative_duration"
	ReasonNegativePassengerCount ReasonCode = "negative_passenger_count"
	ReasonNegativeDistance       ReasonCode = "negative_distance"
	ReasonNegativeFare           ReasonCode = "negative_fare"
	ReasonNegativeTip            ReasonCode = "negative_tip"
	ReasonHourOutOfRange         ReasonCode = "hour_out_of_range"
	ReasonNonFiniteValue         ReasonCode = "non_finite_value"
	ReasonValueOutOfRange        ReasonCode = "value_out_of_range"
	ReasonMissingTimestamp       ReasonCode = "missing_timestamp"

	ReasonMalformedTimestamp   ReasonCode = "malformed_timestamp"
	ReasonMalformedCoordinates ReasonCode = "malformed_coordinates"
	ReasonMalformedVendorCode  ReasonCode = "malformed_vendor_code"
	ReasonMalformedZone        ReasonCode = "malformed_zone"

	// ReasonStoreFailure marks a record that passed validation but could not
	// be written (database unavailable, referenced row deleted mid-flight).
	ReasonStoreFailure ReasonCode = "store_failure"
)

// RejectionError reports a validation failure. It unwraps to ErrValidation.
type RejectionError struct {
	Reason ReasonCode
	Field  string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", ErrValidation, e.Reason, e.Field)
}

func (e *RejectionError) Unwrap() error { return ErrValidation }

// ResolutionError reports malformed vendor or zone data. It unwraps to ErrResolution.
type ResolutionError struct {
	Reason ReasonCode
	Detail string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrResolution, e.Reason, e.Detail)
}

func (e *ResolutionError) Unwrap() error { return ErrResolution }

// ReasonOf extracts the reason code carried by a rejection or resolution error.
// It returns "" for any other error.
func ReasonOf(err error) ReasonCode {
	var rej *RejectionError
	if errors.As(err, &rej) {
		return rej.Reason
	}
	var res *ResolutionError
	if errors.As(err, &res) {
		return res.Reason
	}
	return ""
}
