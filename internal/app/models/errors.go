package models

import (
	"context"
	"errors"
)

// Domain specific errors shared by the state containers and their clients.
var (
	ErrNotFound            = errors.New("requested item not found")
	ErrBadRequest          = errors.New("bad request")
	ErrValidation          = errors.New("validation failed")
	ErrNotAuthenticated    = errors.New("not authenticated")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrSessionExpired      = errors.New("session expired")
	ErrPermissionDenied    = errors.New("location permission denied")
	ErrLocationUnavailable = errors.New("current location unavailable")
	ErrSearchTimeout       = errors.New("search timed out")
	ErrProviderUnavailable = errors.New("places provider unavailable")
)

// UserMessage converts err into the message shown to the user. Unknown errors
// collapse into a generic retry hint so transport details never reach the UI.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotAuthenticated):
		return "You need to be logged in to do that."
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid email or password."
	case errors.Is(err, ErrSessionExpired):
		return "Your session has expired. Please log in again."
	case errors.Is(err, ErrPermissionDenied):
		return "Location permission is required to find places near you."
	case errors.Is(err, ErrLocationUnavailable):
		return "Could not determine your current location."
	case errors.Is(err, ErrSearchTimeout), errors.Is(err, context.DeadlineExceeded):
		return "Loading places took too long. Pull to refresh."
	case errors.Is(err, ErrProviderUnavailable):
		return "Could not load places right now. Please try again."
	case errors.Is(err, ErrNotFound):
		return "We could not find what you were looking for."
	case errors.Is(err, ErrBadRequest), errors.Is(err, ErrValidation):
		return "The request was not valid."
	default:
		return "Something went wrong. Please try again."
	}
}
