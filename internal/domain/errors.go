package domain

import "fmt"

// Error types for consistent error handling across the client core.

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrExternalService indicates a failure in a remote service call.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrValidation indicates a validation error (bad input), caught
// client-side before the network or surfaced from the remote service.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrAuthentication indicates the remote service rejected the
// presented credentials (bad login or expired token).
type ErrAuthentication struct {
	Message string
}

func (e *ErrAuthentication) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "authentication failed"
}

// ErrUnauthenticated indicates a mutating call was attempted with no
// session. Raised before the network round trip.
type ErrUnauthenticated struct {
	Operation string
}

func (e *ErrUnauthenticated) Error() string {
	return fmt.Sprintf("not logged in: %s requires an authenticated session", e.Operation)
}

// ErrOverfund indicates a donation would push the campaign past its
// funding goal.
type ErrOverfund struct {
	CampaignID string
	Remaining  float64
	Requested  float64
}

func (e *ErrOverfund) Error() string {
	return fmt.Sprintf("donation of %.2f exceeds remaining goal %.2f for campaign %s",
		e.Requested, e.Remaining, e.CampaignID)
}

// ErrConflict indicates the operation conflicts with the resource's
// current state (e.g. deleting a funded campaign).
type ErrConflict struct {
	Message string
}

func (e *ErrConflict) Error() string {
	return e.Message
}
