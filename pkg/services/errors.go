// Package services contains the application layer between the HTTP surface
// and persistence: workflow authoring, run management, and channel signal
// publication.
package services

import (
	"errors"

	"github.com/dripline/dripline/pkg/persistence"
)

// Validation errors (400).
var (
	ErrInvalidRequest       = errors.New("invalid request")
	ErrWorkflowNil          = errors.New("workflow cannot be nil")
	ErrWorkflowNameRequired = errors.New("workflow name is required")
	ErrTriggerNodeRequired  = errors.New("workflow must have exactly one trigger node")
	ErrEdgeEndpointUnknown  = errors.New("edge references a node that does not exist")
	ErrDuplicateNodeID      = errors.New("workflow contains duplicate node ids")
	ErrUnknownEventType     = errors.New("unknown channel event type")
)

// Conflict errors (409).
var (
	ErrWorkflowInactive = errors.New("workflow is not active")
	ErrRunExists        = errors.New("lead already has a run of this workflow in flight")
)

// Not-found errors are re-exported from persistence so handlers depend on
// one package.
var (
	ErrWorkflowNotFound = persistence.ErrWorkflowNotFound
	ErrRunNotFound      = persistence.ErrRunNotFound
	ErrLeadNotFound     = persistence.ErrLeadNotFound
)

// IsValidationError reports whether the error maps to HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrWorkflowNil) ||
		errors.Is(err, ErrWorkflowNameRequired) ||
		errors.Is(err, ErrTriggerNodeRequired) ||
		errors.Is(err, ErrEdgeEndpointUnknown) ||
		errors.Is(err, ErrDuplicateNodeID) ||
		errors.Is(err, ErrUnknownEventType)
}

// IsConflictError reports whether the error maps to HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrWorkflowInactive) ||
		errors.Is(err, ErrRunExists)
}

// IsNotFoundError reports whether the error maps to HTTP 404.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound) ||
		errors.Is(err, ErrRunNotFound) ||
		errors.Is(err, ErrLeadNotFound)
}
